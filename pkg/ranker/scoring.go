package ranker

import (
	"math"

	"github.com/swarmrouter/core/pkg/models"
)

// tierBaseline is the scoring.general fallback from §4.1.2.
func tierBaseline(t models.Tier) float64 {
	switch t {
	case models.TierPremium:
		return 70
	case models.TierStandard:
		return 50
	default:
		return 30
	}
}

// categoryWeights holds the §4.1.2 weight table, keyed by benchmark field.
var categoryWeights = map[models.Category]map[string]float64{
	models.CategoryGeneral: {
		"arena": 3, "mmluPro": 2, "gpqa": 2, "intelligenceIndex": 1,
	},
	models.CategoryCoding: {
		"liveCodeBench": 4, "liveBenchAgenticCoding": 3, "liveBenchCoding": 2, "codingIndex": 1,
	},
	models.CategoryReasoning: {
		"liveBenchReasoning": 3, "gpqa": 3, "mathIndex": 2, "arena": 1, "intelligenceIndex": 1,
	},
	models.CategoryCreative: {
		"arena": 4, "liveBenchLanguage": 2, "general": 1,
	},
}

// ComputeCategoryScore derives the score for one category per the §4.1.2
// table. general must be computed first since coding/creative/research/
// vision fallbacks (and creative's weighted input) reference it.
func ComputeCategoryScore(m *models.EnrichedModel, category models.Category, generalScore float64, hasGeneral bool) (float64, bool) {
	switch category {
	case models.CategoryGeneral:
		if avg, ok := WeightedAverage(m.Benchmarks, categoryWeights[models.CategoryGeneral]); ok {
			return math.Round(avg), true
		}
		return tierBaseline(m.Tier), true

	case models.CategoryCoding:
		if avg, ok := WeightedAverage(m.Benchmarks, categoryWeights[models.CategoryCoding]); ok {
			return math.Round(avg), true
		}
		if hasGeneral {
			return math.Round(0.85 * generalScore), true
		}
		return 0, false

	case models.CategoryReasoning:
		if avg, ok := WeightedAverage(m.Benchmarks, categoryWeights[models.CategoryReasoning]); ok {
			score := avg
			if m.Capabilities.Reasoning && score < 65 {
				score = 65
			}
			return math.Round(score), true
		}
		if m.Capabilities.Reasoning {
			return 65, true
		}
		return tierBaseline(m.Tier), true

	case models.CategoryCreative:
		inputs := map[string]float64{}
		for k, v := range m.Benchmarks {
			inputs[k] = v
		}
		if hasGeneral {
			inputs["general"] = generalScore
		}
		if avg, ok := WeightedAverage(inputs, categoryWeights[models.CategoryCreative]); ok {
			return math.Round(avg), true
		}
		if hasGeneral && m.Tier == models.TierPremium {
			return math.Round(generalScore), true
		}
		return 0, false

	case models.CategoryVision:
		if m.Capabilities.Vision && hasGeneral {
			return math.Round(generalScore), true
		}
		return 0, false

	case models.CategoryFastCheap:
		if m.Pricing.Prompt < 2 {
			return math.Round(100 - 50*m.Pricing.Prompt), true
		}
		return 0, false

	case models.CategoryResearch:
		if m.ContextLength >= 100_000 && hasGeneral {
			bonus := 20 * float64(m.ContextLength) / 1_000_000
			if bonus > 20 {
				bonus = 20
			}
			return math.Round(generalScore + bonus), true
		}
		return 0, false

	default:
		return 0, false
	}
}

// ComputeAllScores fills m.Scores and m.CostEfficiency for every category,
// computing general first since several other categories depend on it.
func ComputeAllScores(m *models.EnrichedModel) {
	if m.Scores == nil {
		m.Scores = make(map[models.Category]float64)
	}
	if m.CostEfficiency == nil {
		m.CostEfficiency = make(map[models.Category]float64)
	}

	generalScore, hasGeneral := ComputeCategoryScore(m, models.CategoryGeneral, 0, false)
	if hasGeneral {
		m.Scores[models.CategoryGeneral] = generalScore
	}

	for _, cat := range models.AllCategories {
		if cat == models.CategoryGeneral {
			continue
		}
		score, ok := ComputeCategoryScore(m, cat, generalScore, hasGeneral)
		if ok {
			m.Scores[cat] = clamp01to100(score)
		}
	}

	for cat, score := range m.Scores {
		if ce, ok := CostEfficiency(score, m.Pricing); ok {
			m.CostEfficiency[cat] = ce
		}
	}
}

// CostEfficiency is round(100*score/(prompt+completion))/100, undefined
// when total price is zero (§4.1.2).
func CostEfficiency(score float64, pricing models.Pricing) (float64, bool) {
	total := pricing.Prompt + pricing.Completion
	if total == 0 {
		return 0, false
	}
	return math.Round(100*score/total) / 100, true
}

// DeriveCategories sets m.Categories from capabilities, pricing and
// benchmark presence (§4.1.1 "Category membership is then derived purely
// from capabilities, pricing and benchmark presence").
func DeriveCategories(m *models.EnrichedModel) {
	if m.Categories == nil {
		m.Categories = make(map[models.Category]bool)
	}
	m.Categories[models.CategoryGeneral] = true

	for cat, score := range m.Scores {
		if score > 0 {
			m.Categories[cat] = true
		}
	}
	if m.Capabilities.Vision {
		m.Categories[models.CategoryVision] = true
	}
	if m.Pricing.Prompt > 0 && m.Pricing.Prompt < 2 {
		m.Categories[models.CategoryFastCheap] = true
	}
	if m.ContextLength >= 100_000 {
		m.Categories[models.CategoryResearch] = true
	}
}

// DeriveTier assigns a coarse price tier used for fallback baselines.
func DeriveTier(pricing models.Pricing) models.Tier {
	total := pricing.Prompt + pricing.Completion
	switch {
	case total >= 15:
		return models.TierPremium
	case total >= 3:
		return models.TierStandard
	default:
		return models.TierBudget
	}
}
