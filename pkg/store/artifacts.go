package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/swarmrouter/core/pkg/models"
)

func (p *Postgres) CreateArtifact(ctx context.Context, a *models.Artifact) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO artifacts (id, run_id, node_id, type, path, bytes, sha256, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		a.ID, a.RunID, a.NodeID, string(a.Type), a.Path, a.Bytes, a.SHA256, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting artifact: %w", err)
	}
	return nil
}

// GetLatestArtifact returns the most recently created artifact for
// (runID, nodeID), satisfying invariant 6 (§8).
func (p *Postgres) GetLatestArtifact(ctx context.Context, runID, nodeID string) (*models.Artifact, error) {
	row := p.pool.QueryRow(ctx, `
		SELECT id, run_id, node_id, type, path, bytes, sha256, created_at
		FROM artifacts WHERE run_id=$1 AND node_id=$2
		ORDER BY created_at DESC LIMIT 1`, runID, nodeID)
	a, err := scanArtifact(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	return a, err
}

func (p *Postgres) ListArtifacts(ctx context.Context, runID string) ([]*models.Artifact, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, run_id, node_id, type, path, bytes, sha256, created_at
		FROM artifacts WHERE run_id=$1 ORDER BY created_at ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("listing artifacts: %w", err)
	}
	defer rows.Close()

	var out []*models.Artifact
	for rows.Next() {
		a, err := scanArtifact(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning artifact: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func scanArtifact(row rowScanner) (*models.Artifact, error) {
	var a models.Artifact
	var typ string
	if err := row.Scan(&a.ID, &a.RunID, &a.NodeID, &typ, &a.Path, &a.Bytes, &a.SHA256, &a.CreatedAt); err != nil {
		return nil, err
	}
	a.Type = models.ArtifactType(typ)
	return &a, nil
}
