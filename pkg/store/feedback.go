package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/swarmrouter/core/pkg/models"
)

func (p *Postgres) RecordPersonalOutcome(ctx context.Context, model string, category models.Category, success bool) error {
	successInc, failureInc := 0, 0
	if success {
		successInc = 1
	} else {
		failureInc = 1
	}
	_, err := p.pool.Exec(ctx, `
		INSERT INTO personal_scores (model, category, successes, failures)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (model, category) DO UPDATE SET
			successes = personal_scores.successes + EXCLUDED.successes,
			failures  = personal_scores.failures  + EXCLUDED.failures`,
		model, string(category), successInc, failureInc)
	if err != nil {
		return fmt.Errorf("recording personal outcome: %w", err)
	}
	return nil
}

func (p *Postgres) RecordContextOutcome(ctx context.Context, model string, category models.Category, contextTag string, success bool) error {
	successInc, failureInc := 0, 0
	if success {
		successInc = 1
	} else {
		failureInc = 1
	}
	_, err := p.pool.Exec(ctx, `
		INSERT INTO context_scores (model, category, context_tag, successes, failures)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (model, category, context_tag) DO UPDATE SET
			successes = context_scores.successes + EXCLUDED.successes,
			failures  = context_scores.failures  + EXCLUDED.failures`,
		model, string(category), contextTag, successInc, failureInc)
	if err != nil {
		return fmt.Errorf("recording context outcome: %w", err)
	}
	return nil
}

// RecordCommunityRating applies an hourly per-(model,category) rate limit
// (one instance's contribution bucket per hour) before accumulating the
// rating into community_scores. It returns allowed=false without error
// when the bucket is already at capacity.
func (p *Postgres) RecordCommunityRating(ctx context.Context, model string, category models.Category, rating float64, now time.Time) (bool, error) {
	const maxPerHour = 60

	hourBucket := now.Truncate(time.Hour)

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("beginning rating transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var count int
	err = tx.QueryRow(ctx, `
		SELECT count FROM community_rate_limit WHERE model=$1 AND category=$2 AND hour_bucket=$3`,
		model, string(category), hourBucket).Scan(&count)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return false, fmt.Errorf("reading rate limit bucket: %w", err)
	}
	if count >= maxPerHour {
		return false, nil
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO community_rate_limit (model, category, hour_bucket, count)
		VALUES ($1,$2,$3,1)
		ON CONFLICT (model, category, hour_bucket) DO UPDATE SET count = community_rate_limit.count + 1`,
		model, string(category), hourBucket)
	if err != nil {
		return false, fmt.Errorf("updating rate limit bucket: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO community_scores (model, category, total_ratings, sum_ratings, contributors)
		VALUES ($1,$2,1,$3,1)
		ON CONFLICT (model, category) DO UPDATE SET
			total_ratings = community_scores.total_ratings + 1,
			sum_ratings   = community_scores.sum_ratings + EXCLUDED.sum_ratings,
			contributors  = community_scores.contributors + 1`,
		model, string(category), rating)
	if err != nil {
		return false, fmt.Errorf("recording community rating: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("committing rating transaction: %w", err)
	}
	return true, nil
}

func (p *Postgres) PersonalScore(ctx context.Context, model string, category models.Category) (models.PersonalScore, error) {
	ps := models.PersonalScore{Model: model, Category: category}
	err := p.pool.QueryRow(ctx, `
		SELECT successes, failures FROM personal_scores WHERE model=$1 AND category=$2`,
		model, string(category)).Scan(&ps.Successes, &ps.Failures)
	if errors.Is(err, pgx.ErrNoRows) {
		return ps, nil
	}
	if err != nil {
		return ps, fmt.Errorf("reading personal score: %w", err)
	}
	return ps, nil
}

func (p *Postgres) ContextScore(ctx context.Context, model string, category models.Category, contextTag string) (models.ContextScore, error) {
	cs := models.ContextScore{Model: model, Category: category, ContextTag: contextTag}
	err := p.pool.QueryRow(ctx, `
		SELECT successes, failures FROM context_scores WHERE model=$1 AND category=$2 AND context_tag=$3`,
		model, string(category), contextTag).Scan(&cs.Successes, &cs.Failures)
	if errors.Is(err, pgx.ErrNoRows) {
		return cs, nil
	}
	if err != nil {
		return cs, fmt.Errorf("reading context score: %w", err)
	}
	return cs, nil
}

func (p *Postgres) CommunityScore(ctx context.Context, model string, category models.Category) (models.CommunityScore, error) {
	cs := models.CommunityScore{Model: model, Category: category}
	err := p.pool.QueryRow(ctx, `
		SELECT total_ratings, sum_ratings, contributors FROM community_scores WHERE model=$1 AND category=$2`,
		model, string(category)).Scan(&cs.TotalRatings, &cs.SumRatings, &cs.Contributors)
	if errors.Is(err, pgx.ErrNoRows) {
		return cs, nil
	}
	if err != nil {
		return cs, fmt.Errorf("reading community score: %w", err)
	}
	return cs, nil
}
