package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/swarmrouter/core/pkg/models"
)

func (p *Postgres) CreateRun(ctx context.Context, run *models.Run) error {
	var roleJSON []byte
	if run.Role != nil {
		b, err := json.Marshal(run.Role)
		if err != nil {
			return fmt.Errorf("marshaling role config: %w", err)
		}
		roleJSON = b
	}

	_, err := p.pool.Exec(ctx, `
		INSERT INTO runs (id, task, mode, budget, context, collective_count, role_json,
			merge_style, merge_model, status, created_at, updated_at, started_at, finished_at,
			error, params_json)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
		run.ID, run.Task, string(run.Mode), string(run.Budget), run.Context, run.CollectiveCount,
		roleJSON, run.Merge.Style, run.Merge.Model, string(run.Status), run.CreatedAt, run.UpdatedAt,
		run.StartedAt, run.FinishedAt, run.Error, run.ParamsJSON)
	if err != nil {
		return fmt.Errorf("inserting run: %w", err)
	}
	return nil
}

func (p *Postgres) GetRun(ctx context.Context, id string) (*models.Run, error) {
	row := p.pool.QueryRow(ctx, `
		SELECT id, task, mode, budget, context, collective_count, role_json, merge_style,
			merge_model, status, created_at, updated_at, started_at, finished_at, error, params_json
		FROM runs WHERE id = $1`, id)
	run, err := scanRun(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	return run, err
}

func (p *Postgres) UpdateRun(ctx context.Context, run *models.Run) error {
	var roleJSON []byte
	if run.Role != nil {
		b, err := json.Marshal(run.Role)
		if err != nil {
			return fmt.Errorf("marshaling role config: %w", err)
		}
		roleJSON = b
	}

	tag, err := p.pool.Exec(ctx, `
		UPDATE runs SET task=$2, mode=$3, budget=$4, context=$5, collective_count=$6,
			role_json=$7, merge_style=$8, merge_model=$9, status=$10, updated_at=$11,
			started_at=$12, finished_at=$13, error=$14, params_json=$15
		WHERE id=$1`,
		run.ID, run.Task, string(run.Mode), string(run.Budget), run.Context, run.CollectiveCount,
		roleJSON, run.Merge.Style, run.Merge.Model, string(run.Status), run.UpdatedAt,
		run.StartedAt, run.FinishedAt, run.Error, run.ParamsJSON)
	if err != nil {
		return fmt.Errorf("updating run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func (p *Postgres) ListActiveRuns(ctx context.Context) ([]*models.Run, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, task, mode, budget, context, collective_count, role_json, merge_style,
			merge_model, status, created_at, updated_at, started_at, finished_at, error, params_json
		FROM runs WHERE status IN ('queued','running') ORDER BY created_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing active runs: %w", err)
	}
	defer rows.Close()
	return scanRuns(rows)
}

func (p *Postgres) ListRuns(ctx context.Context, status models.RunStatus, limit int) ([]*models.Run, error) {
	if limit <= 0 || limit > 200 {
		limit = 20
	}
	var rows pgx.Rows
	var err error
	if status == "" {
		rows, err = p.pool.Query(ctx, `
			SELECT id, task, mode, budget, context, collective_count, role_json, merge_style,
				merge_model, status, created_at, updated_at, started_at, finished_at, error, params_json
			FROM runs ORDER BY created_at DESC LIMIT $1`, limit)
	} else {
		rows, err = p.pool.Query(ctx, `
			SELECT id, task, mode, budget, context, collective_count, role_json, merge_style,
				merge_model, status, created_at, updated_at, started_at, finished_at, error, params_json
			FROM runs WHERE status=$1 ORDER BY created_at DESC LIMIT $2`, string(status), limit)
	}
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	defer rows.Close()
	return scanRuns(rows)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*models.Run, error) {
	var run models.Run
	var mode, budget, status string
	var roleJSON []byte
	if err := row.Scan(&run.ID, &run.Task, &mode, &budget, &run.Context, &run.CollectiveCount,
		&roleJSON, &run.Merge.Style, &run.Merge.Model, &status, &run.CreatedAt, &run.UpdatedAt,
		&run.StartedAt, &run.FinishedAt, &run.Error, &run.ParamsJSON); err != nil {
		return nil, err
	}
	run.Mode = models.Mode(mode)
	run.Budget = models.Budget(budget)
	run.Status = models.RunStatus(status)
	if len(roleJSON) > 0 {
		var rc models.RoleConfig
		if err := json.Unmarshal(roleJSON, &rc); err == nil {
			run.Role = &rc
		}
	}
	return &run, nil
}

func scanRuns(rows pgx.Rows) ([]*models.Run, error) {
	var out []*models.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		out = append(out, run)
	}
	return out, rows.Err()
}
