package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// LoadRankerSnapshot returns the last persisted catalog JSON, if any.
func (p *Postgres) LoadRankerSnapshot(ctx context.Context) ([]byte, bool, error) {
	var blob []byte
	err := p.pool.QueryRow(ctx, `SELECT catalog_json FROM ranker_snapshot WHERE id=1`).Scan(&blob)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("loading ranker snapshot: %w", err)
	}
	return blob, true, nil
}

// SaveRankerSnapshot upserts the single-row catalog snapshot.
func (p *Postgres) SaveRankerSnapshot(ctx context.Context, blob []byte) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO ranker_snapshot (id, catalog_json, updated_at)
		VALUES (1, $1, $2)
		ON CONFLICT (id) DO UPDATE SET catalog_json = EXCLUDED.catalog_json, updated_at = EXCLUDED.updated_at`,
		blob, time.Now())
	if err != nil {
		return fmt.Errorf("saving ranker snapshot: %w", err)
	}
	return nil
}
