package api

import (
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/swarmrouter/core/pkg/models"
)

// createRunHandler handles POST /runs (run.create, §6.1).
func (s *Server) createRunHandler(c *gin.Context) {
	var req createRunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, models.NewError(models.CodeInvalidBody, err.Error()))
		return
	}
	if !models.ValidMode(req.Mode) {
		writeError(c, models.NewError(models.CodeInvalidParam, "mode must be one of single, collective, cascade, plan, swarm"))
		return
	}
	if req.Budget == "" {
		req.Budget = models.BudgetAny
	}
	if !models.ValidBudget(req.Budget) {
		writeError(c, models.NewError(models.CodeInvalidParam, "budget must be one of low, medium, high, any"))
		return
	}

	run := &models.Run{
		Task:            req.Task,
		Mode:            req.Mode,
		Budget:          req.Budget,
		Context:         req.Context,
		CollectiveCount: req.CollectiveCount,
		Role:            req.Role,
		Merge:           req.Merge,
	}
	if err := s.admitter.CreateRun(c.Request.Context(), run); err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, createRunResponse{
		RunID:     run.ID,
		Status:    string(run.Status),
		CreatedAt: run.CreatedAt,
	})
}

// getRunStatusHandler handles GET /runs/:id (run.status, §6.1).
func (s *Server) getRunStatusHandler(c *gin.Context) {
	runID := c.Param("id")
	run, err := s.store.GetRun(c.Request.Context(), runID)
	if err != nil {
		writeError(c, err)
		return
	}
	nodes, err := s.store.ListNodes(c.Request.Context(), runID)
	if err != nil {
		writeError(c, err)
		return
	}
	last, _ := s.store.LatestEvent(c.Request.Context(), runID)

	resp := runStatusResponse{
		Status:    string(run.Status),
		Progress:  progressOf(nodes),
		UpdatedAt: run.UpdatedAt,
	}
	if last != nil {
		resp.LastEvent = last.Message
	}
	c.JSON(http.StatusOK, resp)
}

// progressOf computes progress.{total,done,running,failed,percent}:
// percent = round(100·(completed+skipped)/total, 2) (§6.1).
func progressOf(nodes []*models.Node) progressResponse {
	var p progressResponse
	p.Total = len(nodes)
	for _, n := range nodes {
		switch n.Status {
		case models.NodeStatusCompleted, models.NodeStatusSkipped:
			p.Done++
		case models.NodeStatusRunning:
			p.Running++
		case models.NodeStatusFailed:
			p.Failed++
		}
	}
	if p.Total > 0 {
		p.Percent = math.Round(100*float64(p.Done)/float64(p.Total)*100) / 100
	}
	return p
}

// getRunResultHandler handles GET /runs/:id/result (run.result, §6.1).
func (s *Server) getRunResultHandler(c *gin.Context) {
	runID := c.Param("id")
	run, err := s.store.GetRun(c.Request.Context(), runID)
	if err != nil {
		writeError(c, err)
		return
	}
	nodes, err := s.store.ListNodes(c.Request.Context(), runID)
	if err != nil {
		writeError(c, err)
		return
	}
	artifacts, err := s.store.ListArtifacts(c.Request.Context(), runID)
	if err != nil {
		writeError(c, err)
		return
	}

	resp := runResultResponse{
		Status: string(run.Status),
		Cost:   costOf(nodes),
	}
	for _, a := range artifacts {
		resp.Artifacts = append(resp.Artifacts, artifactSummary{
			NodeID: a.NodeID, Type: string(a.Type), Bytes: a.Bytes, SHA256: a.SHA256, CreatedAt: a.CreatedAt,
		})
	}

	if merged, err := s.store.GetLatestArtifact(c.Request.Context(), runID, models.MergedLocalID); err == nil && merged != nil {
		if body, rerr := s.artifacts.Read(merged); rerr == nil {
			resp.MergedOutput = string(body)
		}
	}

	if c.Query("include_raw") == "true" {
		for _, n := range nodes {
			if n.Kind != models.NodeKindTask {
				continue
			}
			raw, err := s.store.GetLatestArtifact(c.Request.Context(), runID, n.ID)
			if err != nil || raw == nil {
				continue
			}
			body, err := s.artifacts.Read(raw)
			if err != nil {
				continue
			}
			output := extractRawOutput(body)
			if len(output) > 12000 {
				output = output[:12000]
			}
			resp.RawOutputs = append(resp.RawOutputs, rawOutputEntry{NodeID: n.ID, Model: n.Model, Output: output})
		}
	}

	c.JSON(http.StatusOK, resp)
}

func costOf(nodes []*models.Node) costSummary {
	var c costSummary
	for _, n := range nodes {
		c.Prompt += n.TokensPrompt
		c.Completion += n.TokensCompletion
		c.USD += n.CostUSD
	}
	return c
}

// cancelRunHandler handles POST /runs/:id/cancel (run.cancel, §6.1).
// Re-invoking on an already canceled run is a no-op returning the same
// record.
func (s *Server) cancelRunHandler(c *gin.Context) {
	runID := c.Param("id")
	if err := s.admitter.Cancel(c.Request.Context(), runID); err != nil {
		writeError(c, err)
		return
	}
	run, err := s.store.GetRun(c.Request.Context(), runID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cancelRunResponse{RunID: run.ID, Status: string(run.Status)})
}

// listRunsHandler handles GET /runs (run.list, §6.1): limit ≤200, default 20.
func (s *Server) listRunsHandler(c *gin.Context) {
	limit := 20
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > 200 {
		limit = 200
	}

	status := models.RunStatus(c.Query("status"))
	runs, err := s.store.ListRuns(c.Request.Context(), status, limit)
	if err != nil {
		writeError(c, err)
		return
	}

	resp := listRunsResponse{}
	for _, r := range runs {
		resp.Runs = append(resp.Runs, runSummary{
			RunID: r.ID, Task: r.Task, Mode: string(r.Mode), Status: string(r.Status), CreatedAt: r.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, resp)
}
