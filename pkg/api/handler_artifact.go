package api

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/swarmrouter/core/pkg/models"
)

// getArtifactHandler handles GET /artifacts/:run_id/:node_id (artifact.get,
// §6.1). For any two artifacts with the same (runId,nodeId), the one with
// the largest createdAt is returned — GetLatestArtifact already enforces
// this ordering.
func (s *Server) getArtifactHandler(c *gin.Context) {
	runID := c.Param("run_id")
	nodeID := c.Param("node_id")

	artifact, err := s.store.GetLatestArtifact(c.Request.Context(), runID, nodeID)
	if err != nil {
		writeError(c, err)
		return
	}

	body, err := s.artifacts.Read(artifact)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, getArtifactResponse{
		ArtifactType: string(artifact.Type),
		Content:      extractRawOutput(body),
		Metadata: artifactMetadata{
			Bytes:     artifact.Bytes,
			SHA256:    artifact.SHA256,
			CreatedAt: artifact.CreatedAt,
			Path:      artifact.Path,
		},
	})
}

// extractRawOutput reads the "output" field of a raw artifact's JSON body,
// falling back to the raw bytes verbatim for merged (markdown) and plan
// artifacts.
func extractRawOutput(body []byte) string {
	var raw models.RawArtifactBody
	if err := json.Unmarshal(body, &raw); err == nil && raw.Output != "" {
		return raw.Output
	}
	return string(body)
}
