package ranker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swarmrouter/core/pkg/models"
)

func testRanker(models_ ...*models.EnrichedModel) *Ranker {
	cat := emptyCatalog()
	for _, m := range models_ {
		cat.Models[m.ID] = m
	}
	r := &Ranker{contextWeights: defaultContextWeights()}
	r.snapshot.store(cat)
	return r
}

func codingModel(id, provider string, score float64, promptPrice float64) *models.EnrichedModel {
	return &models.EnrichedModel{
		ID:       id,
		Provider: provider,
		Pricing:  models.Pricing{Prompt: promptPrice, Completion: promptPrice * 2},
		Scores:   map[models.Category]float64{models.CategoryGeneral: score, models.CategoryCoding: score},
		Categories: map[models.Category]bool{
			models.CategoryGeneral: true,
			models.CategoryCoding:  true,
		},
	}
}

func TestPick(t *testing.T) {
	t.Run("selects highest-scoring candidate within budget", func(t *testing.T) {
		r := testRanker(
			codingModel("a/low", "a", 60, 0.5),
			codingModel("b/high", "b", 90, 0.5),
		)
		m, err := r.Pick(context.Background(), models.CategoryCoding, models.BudgetLow, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, "b/high", m.ID)
	})

	t.Run("excludes models outside the budget range", func(t *testing.T) {
		r := testRanker(codingModel("a/expensive", "a", 95, 10))
		_, err := r.Pick(context.Background(), models.CategoryCoding, models.BudgetLow, nil, nil)
		assert.ErrorIs(t, err, models.ErrNoModel)
	})

	t.Run("excludes models in the exclude list", func(t *testing.T) {
		r := testRanker(codingModel("a/only", "a", 90, 0.5))
		_, err := r.Pick(context.Background(), models.CategoryCoding, models.BudgetLow, nil, []string{"a/only"})
		assert.ErrorIs(t, err, models.ErrNoModel)
	})

	t.Run("empty catalog yields ErrNoModel", func(t *testing.T) {
		r := testRanker()
		_, err := r.Pick(context.Background(), models.CategoryCoding, models.BudgetAny, nil, nil)
		assert.ErrorIs(t, err, models.ErrNoModel)
	})

	t.Run("ties break lexicographically by id", func(t *testing.T) {
		r := testRanker(
			codingModel("z/model", "z", 80, 0.5),
			codingModel("a/model", "a", 80, 0.5),
		)
		m, err := r.Pick(context.Background(), models.CategoryCoding, models.BudgetLow, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, "a/model", m.ID)
	})
}

func TestRecommend(t *testing.T) {
	t.Run("prefers provider diversity before filling by score", func(t *testing.T) {
		r := testRanker(
			codingModel("a/best", "acme", 95, 0.5),
			codingModel("a/second", "acme", 90, 0.5),
			codingModel("b/third", "beta", 85, 0.5),
		)
		got, err := r.Recommend(context.Background(), models.CategoryCoding, models.BudgetLow, nil, nil, 2)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "a/best", got[0].ID, "highest scorer from first provider wins that slot")
		assert.Equal(t, "b/third", got[1].ID, "second slot goes to the next distinct provider")
	})

	t.Run("fills remaining slots by score when providers are exhausted", func(t *testing.T) {
		r := testRanker(
			codingModel("a/best", "acme", 95, 0.5),
			codingModel("a/second", "acme", 90, 0.5),
		)
		got, err := r.Recommend(context.Background(), models.CategoryCoding, models.BudgetLow, nil, nil, 2)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "a/best", got[0].ID)
		assert.Equal(t, "a/second", got[1].ID)
	})

	t.Run("count below 1 is treated as 1", func(t *testing.T) {
		r := testRanker(codingModel("a/only", "acme", 90, 0.5))
		got, err := r.Recommend(context.Background(), models.CategoryCoding, models.BudgetLow, nil, nil, 0)
		require.NoError(t, err)
		assert.Len(t, got, 1)
	})

	t.Run("empty catalog yields ErrNoModel", func(t *testing.T) {
		r := testRanker()
		_, err := r.Recommend(context.Background(), models.CategoryCoding, models.BudgetAny, nil, nil, 3)
		assert.ErrorIs(t, err, models.ErrNoModel)
	})
}

func TestBlendWeights(t *testing.T) {
	t.Run("no feedback weighs base score fully", func(t *testing.T) {
		w := blendWeights(false, false, false)
		assert.Equal(t, weightRow{1.0, 0, 0, 0}, w)
	})

	t.Run("all three feedback sources present", func(t *testing.T) {
		w := blendWeights(true, true, true)
		assert.Equal(t, weightRow{0.45, 0.20, 0.15, 0.20}, w)
	})
}

func TestContextBoost(t *testing.T) {
	r := testRanker()
	cat := r.snapshot.load()
	cat.NormMean["liveBenchCoding"] = 50
	cat.NormStdDev["liveBenchCoding"] = 10

	m := &models.EnrichedModel{Benchmarks: map[string]float64{"liveBenchCoding": 60}}
	boost := r.contextBoost(m, []string{"typescript"})
	assert.InDelta(t, 10, boost, 1e-9, "z=1, weight=1 -> 1*1*10=10")

	t.Run("unknown tag contributes nothing", func(t *testing.T) {
		boost := r.contextBoost(m, []string{"unknown-tag"})
		assert.Equal(t, 0.0, boost)
	})

	t.Run("boost caps at 15", func(t *testing.T) {
		big := &models.EnrichedModel{Benchmarks: map[string]float64{"liveBenchCoding": 200}}
		boost := r.contextBoost(big, []string{"typescript"})
		assert.Equal(t, 15.0, boost)
	})
}
