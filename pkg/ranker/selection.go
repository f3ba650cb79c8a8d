package ranker

import (
	"context"
	"sort"
	"strings"

	"github.com/swarmrouter/core/pkg/models"
)

// BudgetRange is the [low,high] USD-per-1M-prompt-token band for a budget
// tier (glossary "Budget range").
type BudgetRange struct {
	Low, High float64
}

var budgetRanges = map[models.Budget]BudgetRange{
	models.BudgetLow:    {0, 1},
	models.BudgetMedium: {0, 5},
	models.BudgetHigh:   {2, 20},
	models.BudgetAny:    {0, 1e18},
}

// weightRow is one row of the §4.1.3 blended-score weight matrix.
type weightRow struct{ wB, wP, wX, wC float64 }

func blendWeights(hasPersonal, hasContext, hasCommunity bool) weightRow {
	switch {
	case hasPersonal && hasContext && hasCommunity:
		return weightRow{0.45, 0.20, 0.15, 0.20}
	case hasPersonal && hasContext:
		return weightRow{0.60, 0.20, 0.20, 0}
	case hasPersonal && hasCommunity:
		return weightRow{0.50, 0.25, 0, 0.25}
	case hasContext && hasCommunity:
		return weightRow{0.55, 0, 0.20, 0.25}
	case hasPersonal:
		return weightRow{0.70, 0.30, 0, 0}
	case hasContext:
		return weightRow{0.80, 0, 0.20, 0}
	case hasCommunity:
		return weightRow{0.70, 0, 0, 0.30}
	default:
		return weightRow{1.0, 0, 0, 0}
	}
}

// FeedbackSource is the subset of the durable store the ranker needs to
// read personal, context and community feedback while scoring candidates.
type FeedbackSource interface {
	PersonalScore(ctx context.Context, model string, category models.Category) (models.PersonalScore, error)
	ContextScore(ctx context.Context, model string, category models.Category, contextTag string) (models.ContextScore, error)
	CommunityScore(ctx context.Context, model string, category models.Category) (models.CommunityScore, error)
}

// candidateScore is the blended-score outcome for one model, with enough
// detail retained to support provider-diversity fill and confidence.
type candidateScore struct {
	model      *models.EnrichedModel
	score      float64
	confidence float64
}

// Pick selects the single best model for (category, budget, contextTags,
// exclude), returning models.ErrNoModel when no candidate remains after
// filtering (§4.1.3, boundary behavior in §8).
func (r *Ranker) Pick(ctx context.Context, category models.Category, budget models.Budget, contextTags []string, exclude []string) (*models.EnrichedModel, error) {
	candidates := r.scoreCandidates(ctx, category, budget, contextTags, exclude)
	if len(candidates) == 0 {
		return nil, models.ErrNoModel
	}
	return candidates[0].model, nil
}

// Recommend generalizes Pick to count winners with provider diversity:
// one slot per distinct provider in descending-score order, then fill
// remaining slots by pure score (§4.1.3).
func (r *Ranker) Recommend(ctx context.Context, category models.Category, budget models.Budget, contextTags []string, exclude []string, count int) ([]*models.EnrichedModel, error) {
	if count < 1 {
		count = 1
	}
	candidates := r.scoreCandidates(ctx, category, budget, contextTags, exclude)
	if len(candidates) == 0 {
		return nil, models.ErrNoModel
	}

	var out []*models.EnrichedModel
	seenProvider := make(map[string]bool)
	used := make(map[string]bool)

	for _, c := range candidates {
		if len(out) >= count {
			break
		}
		if seenProvider[c.model.Provider] {
			continue
		}
		seenProvider[c.model.Provider] = true
		used[c.model.ID] = true
		out = append(out, c.model)
	}

	for _, c := range candidates {
		if len(out) >= count {
			break
		}
		if used[c.model.ID] {
			continue
		}
		used[c.model.ID] = true
		out = append(out, c.model)
	}

	return out, nil
}

// scoreCandidates filters and ranks the catalog for (category, budget,
// contextTags, exclude), returning candidates in descending blended-score
// order. Ties fall back to lexicographic id order for determinism.
func (r *Ranker) scoreCandidates(ctx context.Context, category models.Category, budget models.Budget, contextTags []string, exclude []string) []candidateScore {
	cat := r.snapshot.load()
	rng := budgetRanges[budget]
	excluded := make(map[string]bool, len(exclude))
	for _, id := range exclude {
		excluded[id] = true
	}

	var out []candidateScore
	for _, m := range cat.Models {
		if excluded[m.ID] {
			continue
		}
		if m.Pricing.Prompt < rng.Low || m.Pricing.Prompt > rng.High {
			continue
		}
		if !m.HasCategory(category) && !m.HasCategory(models.CategoryGeneral) {
			continue
		}
		out = append(out, r.blendedScore(ctx, m, category, contextTags))
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].score != out[j].score {
			return out[i].score > out[j].score
		}
		return out[i].model.ID < out[j].model.ID
	})
	return out
}

// blendedScore computes S = Sb*wB + 100*Sp*wP + 100*Sx*wX + 100*Sc*wC +
// contextBoost per §4.1.3.
func (r *Ranker) blendedScore(ctx context.Context, m *models.EnrichedModel, category models.Category, contextTags []string) candidateScore {
	sb := m.Scores[category]
	if sb == 0 {
		sb = m.Scores[models.CategoryGeneral]
	}

	var sp, sx, sc float64
	var hasPersonal, hasContext, hasCommunity bool

	if r.feedback != nil {
		if ps, err := r.feedback.PersonalScore(ctx, m.ID, category); err == nil && ps.Total() >= models.PersonalSampleThreshold {
			sp = ps.Score()
			hasPersonal = true
		}
		for _, tag := range contextTags {
			if cs, err := r.feedback.ContextScore(ctx, m.ID, category, tag); err == nil && cs.Total() >= models.ContextSampleThreshold {
				sx = cs.Score()
				hasContext = true
				break
			}
		}
		if cms, err := r.feedback.CommunityScore(ctx, m.ID, category); err == nil && cms.TotalRatings >= models.CommunitySampleThreshold {
			sc = cms.AvgRating() / 5.0 // ratings are on a 1-5 scale; normalize to unit interval
			hasCommunity = true
		}
	}

	w := blendWeights(hasPersonal, hasContext, hasCommunity)
	score := sb*w.wB + 100*sp*w.wP + 100*sx*w.wX + 100*sc*w.wC
	score += r.contextBoost(m, contextTags)

	confidence := 0.5 + 0.1*float64(len(m.SourcesCovered))
	if _, ok := m.Scores[category]; ok {
		confidence += 0.1
	}
	if _, ok := m.Benchmarks["arena"]; ok {
		confidence += 0.1
	}
	if hasPersonal {
		confidence += 0.15
	}
	if confidence > 0.99 {
		confidence = 0.99
	}

	return candidateScore{model: m, score: score, confidence: confidence}
}

// contextBoost sums max(0,z)*weight*10 over each context tag's preconfigured
// benchmark weights, capped at 15 (§4.1.3).
func (r *Ranker) contextBoost(m *models.EnrichedModel, contextTags []string) float64 {
	var total float64
	for _, rawTag := range contextTags {
		tag := strings.ToLower(strings.TrimSpace(rawTag))
		if tag == "" {
			continue
		}
		weights, ok := r.contextWeights[tag]
		if !ok {
			continue
		}
		for key, weight := range weights {
			v, present := m.Benchmarks[key]
			if !present {
				continue
			}
			mean := r.snapshot.load().NormMean[key]
			stddev := r.snapshot.load().NormStdDev[key]
			if stddev == 0 {
				continue
			}
			z := (v - mean) / stddev
			if z > 0 {
				total += z * weight * 10
			}
		}
	}
	if total > 15 {
		total = 15
	}
	return total
}
