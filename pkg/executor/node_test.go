package executor

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/swarmrouter/core/pkg/models"
)

func TestTruncateWithMarker(t *testing.T) {
	t.Run("shorter than limit is untouched", func(t *testing.T) {
		out, cut := truncateWithMarker("hello", 10)
		assert.Equal(t, "hello", out)
		assert.False(t, cut)
	})

	t.Run("exactly at limit is untouched", func(t *testing.T) {
		out, cut := truncateWithMarker("hello", 5)
		assert.Equal(t, "hello", out)
		assert.False(t, cut)
	})

	t.Run("longer than limit is cut", func(t *testing.T) {
		out, cut := truncateWithMarker("hello world", 5)
		assert.Equal(t, "hello", out)
		assert.True(t, cut)
	})
}

func TestExtractOutput(t *testing.T) {
	t.Run("valid raw artifact body", func(t *testing.T) {
		body, err := json.Marshal(models.RawArtifactBody{Output: "the answer"})
		assert.NoError(t, err)
		assert.Equal(t, "the answer", extractOutput(body))
	})

	t.Run("falls back to raw bytes on unparseable body", func(t *testing.T) {
		got := extractOutput([]byte("not json"))
		assert.Equal(t, "not json", got)
	})
}

func TestEstimateCost(t *testing.T) {
	e := &Executor{}

	t.Run("uses default pricing when no pricing func wired", func(t *testing.T) {
		cost := e.estimateCost("unknown/model", models.TokenUsage{Prompt: 1_000_000, Completion: 1_000_000})
		assert.InDelta(t, 1+3, cost, 1e-9)
	})

	t.Run("prefers catalog pricing when known", func(t *testing.T) {
		e2 := &Executor{pricing: func(model string) (models.Pricing, bool) {
			if model == "acme/cheap" {
				return models.Pricing{Prompt: 0.1, Completion: 0.2}, true
			}
			return models.Pricing{}, false
		}}
		cost := e2.estimateCost("acme/cheap", models.TokenUsage{Prompt: 1_000_000, Completion: 1_000_000})
		assert.InDelta(t, 0.3, cost, 1e-9)
	})

	t.Run("falls back to default when pricing func misses", func(t *testing.T) {
		e2 := &Executor{pricing: func(model string) (models.Pricing, bool) { return models.Pricing{}, false }}
		cost := e2.estimateCost("unknown/model", models.TokenUsage{Prompt: 500_000, Completion: 0})
		assert.InDelta(t, 0.5, cost, 1e-9)
	})
}
