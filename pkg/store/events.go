package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/swarmrouter/core/pkg/models"
)

func (p *Postgres) AppendEvent(ctx context.Context, e *models.Event) error {
	err := p.pool.QueryRow(ctx, `
		INSERT INTO events (run_id, node_id, level, message, created_at)
		VALUES ($1,$2,$3,$4,$5) RETURNING id::text`,
		e.RunID, e.NodeID, string(e.Level), e.Message, e.CreatedAt).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("appending event: %w", err)
	}
	return nil
}

func (p *Postgres) LatestEvent(ctx context.Context, runID string) (*models.Event, error) {
	row := p.pool.QueryRow(ctx, `
		SELECT id::text, run_id, node_id, level, message, created_at
		FROM events WHERE run_id=$1 ORDER BY created_at DESC, id DESC LIMIT 1`, runID)
	e, err := scanEvent(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	return e, err
}

func (p *Postgres) ListEvents(ctx context.Context, runID string) ([]*models.Event, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id::text, run_id, node_id, level, message, created_at
		FROM events WHERE run_id=$1 ORDER BY created_at ASC, id ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("listing events: %w", err)
	}
	defer rows.Close()

	var out []*models.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func scanEvent(row rowScanner) (*models.Event, error) {
	var e models.Event
	var level string
	if err := row.Scan(&e.ID, &e.RunID, &e.NodeID, &level, &e.Message, &e.CreatedAt); err != nil {
		return nil, err
	}
	e.Level = models.EventLevel(level)
	return &e, nil
}
