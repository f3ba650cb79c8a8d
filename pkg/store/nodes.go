package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/swarmrouter/core/pkg/models"
)

// CreateNodes inserts every node in a single transaction, satisfying
// §4.3.3 and §5's "Locking" requirement that DAG insertion be atomic.
func (p *Postgres) CreateNodes(ctx context.Context, nodes []*models.Node) error {
	if len(nodes) == 0 {
		return nil
	}
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning node insert transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, n := range nodes {
		dependsOn, err := json.Marshal(n.DependsOn)
		if err != nil {
			return fmt.Errorf("marshaling dependsOn for %s: %w", n.ID, err)
		}
		meta, err := json.Marshal(n.Meta)
		if err != nil {
			return fmt.Errorf("marshaling meta for %s: %w", n.ID, err)
		}
		_, err = tx.Exec(ctx, `
			INSERT INTO nodes (id, run_id, local_id, kind, wave, depends_on, task, model, prompt,
				meta_json, status, retry_count, max_retries, error, created_at, updated_at,
				started_at, finished_at, tokens_prompt, tokens_completion, cost_usd)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21)`,
			n.ID, n.RunID, n.LocalID, string(n.Kind), n.Wave, dependsOn, n.Task, n.Model, n.Prompt,
			meta, string(n.Status), n.RetryCount, n.MaxRetries, n.Error, n.CreatedAt, n.UpdatedAt,
			n.StartedAt, n.FinishedAt, n.TokensPrompt, n.TokensCompletion, n.CostUSD)
		if err != nil {
			return fmt.Errorf("inserting node %s: %w", n.ID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing node insert transaction: %w", err)
	}
	return nil
}

const nodeColumns = `id, run_id, local_id, kind, wave, depends_on, task, model, prompt,
	meta_json, status, retry_count, max_retries, error, created_at, updated_at,
	started_at, finished_at, tokens_prompt, tokens_completion, cost_usd`

func (p *Postgres) GetNode(ctx context.Context, id string) (*models.Node, error) {
	row := p.pool.QueryRow(ctx, `SELECT `+nodeColumns+` FROM nodes WHERE id=$1`, id)
	n, err := scanNode(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, models.ErrNotFound
	}
	return n, err
}

func (p *Postgres) ListNodes(ctx context.Context, runID string) ([]*models.Node, error) {
	rows, err := p.pool.Query(ctx, `SELECT `+nodeColumns+` FROM nodes WHERE run_id=$1 ORDER BY wave ASC, local_id ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("listing nodes: %w", err)
	}
	defer rows.Close()

	var out []*models.Node
	for rows.Next() {
		n, err := scanNode(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning node: %w", err)
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (p *Postgres) UpdateNode(ctx context.Context, n *models.Node) error {
	dependsOn, err := json.Marshal(n.DependsOn)
	if err != nil {
		return fmt.Errorf("marshaling dependsOn: %w", err)
	}
	meta, err := json.Marshal(n.Meta)
	if err != nil {
		return fmt.Errorf("marshaling meta: %w", err)
	}
	tag, err := p.pool.Exec(ctx, `
		UPDATE nodes SET wave=$2, depends_on=$3, task=$4, model=$5, prompt=$6, meta_json=$7,
			status=$8, retry_count=$9, max_retries=$10, error=$11, updated_at=$12, started_at=$13,
			finished_at=$14, tokens_prompt=$15, tokens_completion=$16, cost_usd=$17
		WHERE id=$1`,
		n.ID, n.Wave, dependsOn, n.Task, n.Model, n.Prompt, meta, string(n.Status), n.RetryCount,
		n.MaxRetries, n.Error, n.UpdatedAt, n.StartedAt, n.FinishedAt, n.TokensPrompt,
		n.TokensCompletion, n.CostUSD)
	if err != nil {
		return fmt.Errorf("updating node: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}

func scanNode(row rowScanner) (*models.Node, error) {
	var n models.Node
	var kind, status string
	var dependsOn, meta []byte
	if err := row.Scan(&n.ID, &n.RunID, &n.LocalID, &kind, &n.Wave, &dependsOn, &n.Task, &n.Model,
		&n.Prompt, &meta, &status, &n.RetryCount, &n.MaxRetries, &n.Error, &n.CreatedAt, &n.UpdatedAt,
		&n.StartedAt, &n.FinishedAt, &n.TokensPrompt, &n.TokensCompletion, &n.CostUSD); err != nil {
		return nil, err
	}
	n.Kind = models.NodeKind(kind)
	n.Status = models.NodeStatus(status)
	if len(dependsOn) > 0 {
		_ = json.Unmarshal(dependsOn, &n.DependsOn)
	}
	if len(meta) > 0 {
		_ = json.Unmarshal(meta, &n.Meta)
	}
	return &n, nil
}
