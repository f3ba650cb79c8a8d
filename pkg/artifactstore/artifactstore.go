// Package artifactstore writes content-addressed artifact blobs under the
// artifacts home directory (§6.2) and hands back the metadata the store
// persists alongside the run's other records.
package artifactstore

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/swarmrouter/core/pkg/models"
)

// Store writes artifact blobs to disk under <home>/<run_id>/<node_id>.<ext>,
// where home is the artifacts root it was constructed with.
type Store struct {
	home string
}

// New returns a Store rooted at home, creating the directory if absent.
func New(home string) (*Store, error) {
	if err := os.MkdirAll(home, 0o755); err != nil {
		return nil, fmt.Errorf("creating artifacts home %s: %w", home, err)
	}
	return &Store{home: home}, nil
}

// Write persists body under runID/nodeID.<ext-for-type>, returning the
// Artifact record the caller should hand to the durable store.
func (s *Store) Write(runID, nodeID string, typ models.ArtifactType, body []byte) (*models.Artifact, error) {
	dir := filepath.Join(s.home, runID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating run artifact dir: %w", err)
	}

	ext := typ.Ext()
	relPath := filepath.Join(runID, nodeID+"."+ext)
	fullPath := filepath.Join(s.home, relPath)

	if err := os.WriteFile(fullPath, body, 0o644); err != nil {
		return nil, fmt.Errorf("writing artifact %s: %w", fullPath, err)
	}

	sum := sha256.Sum256(body)

	return &models.Artifact{
		ID:        uuid.New().String(),
		RunID:     runID,
		NodeID:    nodeID,
		Type:      typ,
		Path:      relPath,
		Bytes:     int64(len(body)),
		SHA256:    hex.EncodeToString(sum[:]),
		CreatedAt: time.Now(),
	}, nil
}

// Read returns the raw bytes at a.Path under the artifacts home.
func (s *Store) Read(a *models.Artifact) ([]byte, error) {
	full := filepath.Join(s.home, a.Path)
	b, err := os.ReadFile(full)
	if err != nil {
		return nil, fmt.Errorf("reading artifact %s: %w", full, err)
	}
	return b, nil
}
