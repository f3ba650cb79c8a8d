package ranker

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/swarmrouter/core/pkg/models"
)

// sourcePriority ranks auxiliary sources so a later, lower-priority source
// never overwrites a field a higher-priority one already set (§4.1.1 step 3:
// "AA > HF; LiveBench fields have no cross-source conflict").
var sourcePriority = map[string]int{
	SourceArtificialAnalysis: 2,
	SourceHuggingFace:        1,
	SourceLMArena:            1,
	SourceLiveBench:          1,
}

// fieldOwner tracks, per model id and benchmark key, which source priority
// last wrote that field — used to enforce the priority-write rule above.
type fieldOwner map[string]map[string]int // modelID -> benchmarkKey -> priority

// Refresh performs one ingestion cycle: it fetches OpenRouter (authoritative,
// required) and every auxiliary source (parallel, best-effort), merges them
// into a new Catalog, and swaps that catalog in as the current snapshot. It
// never mutates the previous snapshot, and keeps it when OpenRouter fails or
// returns no entries.
func (r *Ranker) Refresh(ctx context.Context) error {
	prev := r.snapshot.load()

	orModels, err := FetchOpenRouter(ctx, r.httpClient, r.cfg.OpenRouterBaseURL, r.cfg.OpenRouterAPIKey)
	if err != nil {
		return fmt.Errorf("fetching openrouter catalog: %w", err)
	}
	if len(orModels) == 0 {
		r.log.Warn("openrouter returned zero entries; retaining previous snapshot")
		return nil
	}

	cat := emptyCatalog()
	hfIndex := make(map[string]string)
	catalogIDs := make(map[string]bool, len(orModels))

	for _, orm := range orModels {
		em := &models.EnrichedModel{
			ID:            orm.ID,
			Provider:      providerOf(orm.ID),
			ContextLength: orm.ContextLength,
			HuggingFaceID: orm.HuggingFaceID,
			Pricing: models.Pricing{
				Prompt:     perMillion(orm.Pricing.Prompt),
				Completion: perMillion(orm.Pricing.Completion),
			},
			Capabilities: capabilitiesOf(orm),
			Benchmarks:   make(map[string]float64),
			Categories:   make(map[models.Category]bool),
			Scores:       make(map[models.Category]float64),
			CostEfficiency: make(map[models.Category]float64),
			SourcesCovered: []string{SourceOpenRouter},
		}
		em.Tier = DeriveTier(em.Pricing)
		cat.Models[em.ID] = em
		catalogIDs[em.ID] = true
		if orm.HuggingFaceID != "" {
			hfIndex[normalizeNameKey(orm.HuggingFaceID)] = em.ID
		}
	}

	owner := fieldOwner{}
	auxSources := r.auxSources()

	g, gctx := errgroup.WithContext(ctx)
	results := make([][]AuxRow, len(auxSources))
	statuses := make([]SourceStatus, len(auxSources))
	for i, src := range auxSources {
		i, src := i, src
		g.Go(func() error {
			rows, err := src.Fetch(gctx)
			if err != nil {
				r.log.Warn("auxiliary source fetch failed; marking stale", "source", src.Name(), "error", err)
				prior := prev.SourceStatus[src.Name()]
				statuses[i] = SourceStatus{Stale: true, Count: prior.Count, UpdatedAt: prior.UpdatedAt}
				return nil
			}
			results[i] = rows
			statuses[i] = SourceStatus{Stale: false, Count: len(rows), UpdatedAt: time.Now().Unix()}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("fetching auxiliary sources: %w", err)
	}

	for i, src := range auxSources {
		cat.SourceStatus[src.Name()] = statuses[i]
		mergeAuxRows(cat, owner, src.Name(), results[i], r.aliases, hfIndex, catalogIDs)
	}

	propagateVariants(cat)
	applyZScoreNormalization(cat)

	for _, em := range cat.Models {
		ComputeAllScores(em)
		DeriveCategories(em)
	}

	if r.overrides != nil {
		applyOverrides(cat, r.overrides)
	}

	r.snapshot.store(cat)
	return nil
}

func (r *Ranker) auxSources() []AuxSource {
	return []AuxSource{
		NewArtificialAnalysisSource(r.httpClient, r.cfg.ArtificialAnalysisURL),
		NewHuggingFaceSource(r.httpClient, r.cfg.HuggingFaceURL),
		NewLMArenaSource(r.httpClient, r.cfg.LMArenaURL),
		NewLiveBenchSource(r.httpClient, r.cfg.LiveBenchURL),
	}
}

// mergeAuxRows resolves each row's raw name to a canonical id and writes
// its metrics, respecting source priority and the "prefer reasoning
// variant, else highest raw score" tie-break among multiple rows that
// resolve to the same id (§4.1.1 step 2).
func mergeAuxRows(cat *Catalog, owner fieldOwner, sourceName string, rows []AuxRow, aliases, hfIndex map[string]string, catalogIDs map[string]bool) {
	priority := sourcePriority[sourceName]

	chosen := make(map[string]AuxRow) // canonical id -> winning row for this source
	for _, row := range rows {
		id := ResolveCanonicalID(row.RawName, aliases, hfIndex, catalogIDs)
		if id == "" {
			continue
		}
		existing, ok := chosen[id]
		if !ok {
			chosen[id] = row
			continue
		}
		if preferRow(row, existing, id) {
			chosen[id] = row
		}
	}

	for id, row := range chosen {
		em := cat.Models[id]
		if em == nil {
			continue
		}
		em.SourcesCovered = appendUnique(em.SourcesCovered, sourceName)
		for key, raw := range row.Metrics {
			normalized := normalizeBySource(sourceName, key, raw)
			if owner[id] == nil {
				owner[id] = make(map[string]int)
			}
			if curPriority, written := owner[id][key]; written && curPriority >= priority {
				continue
			}
			em.Benchmarks[key] = normalized
			owner[id][key] = priority
		}
	}
}

func normalizeBySource(sourceName, key string, raw float64) float64 {
	switch sourceName {
	case SourceArtificialAnalysis:
		return NormalizeAAMetric(key, raw)
	case SourceLMArena:
		return NormalizeArenaElo(raw)
	default:
		return clamp01to100(raw)
	}
}

// preferRow implements "the ranker prefers the reasoning variant; for
// arena/HF it prefers the highest raw score" (§4.1.1 step 2).
func preferRow(candidate, incumbent AuxRow, id string) bool {
	candidateReasoning := strings.Contains(strings.ToLower(candidate.RawName), "reasoning") || strings.Contains(strings.ToLower(candidate.RawName), "thinking")
	incumbentReasoning := strings.Contains(strings.ToLower(incumbent.RawName), "reasoning") || strings.Contains(strings.ToLower(incumbent.RawName), "thinking")
	if candidateReasoning != incumbentReasoning {
		return candidateReasoning
	}
	return sumMetrics(candidate.Metrics) > sumMetrics(incumbent.Metrics)
}

func sumMetrics(m map[string]float64) float64 {
	var s float64
	for _, v := range m {
		s += v
	}
	return s
}

// propagateVariants copies benchmarks and speed data from each base id to
// variant ids of form `base:<suffix>` that carry none of their own
// (§4.1.1 "variant propagation", invariant 7 in §8).
func propagateVariants(cat *Catalog) {
	for id, em := range cat.Models {
		base := models.BaseID(id)
		if base == id {
			continue
		}
		baseModel, ok := cat.Models[base]
		if !ok {
			continue
		}
		if len(em.Benchmarks) == 0 {
			for k, v := range baseModel.Benchmarks {
				em.Benchmarks[k] = v
			}
			em.Speed = baseModel.Speed
			em.SourcesCovered = appendUniqueAll(em.SourcesCovered, baseModel.SourcesCovered)
		}
	}
}

// applyZScoreNormalization recomputes every benchmark key's catalog-wide
// mean/stddev and replaces each model's value for that key with the
// z-score composite, when the key has enough samples to be meaningful
// (§4.1.1, ≥5 samples).
func applyZScoreNormalization(cat *Catalog) {
	const minSamples = 5

	byKey := make(map[string][]float64)
	for _, em := range cat.Models {
		for k, v := range em.Benchmarks {
			byKey[k] = append(byKey[k], v)
		}
	}

	for key, values := range byKey {
		mean, stddev, ok := MeanStdDev(values, minSamples)
		if !ok {
			continue
		}
		cat.NormMean[key] = mean
		cat.NormStdDev[key] = stddev
		for _, em := range cat.Models {
			if v, has := em.Benchmarks[key]; has {
				em.Benchmarks[key] = ZScoreComposite(v, mean, stddev)
			}
		}
	}
}

func providerOf(id string) string {
	if i := strings.IndexByte(id, '/'); i >= 0 {
		return id[:i]
	}
	return id
}

func perMillion(raw string) float64 {
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0
	}
	return f * 1_000_000
}

func capabilitiesOf(orm OpenRouterModel) models.Capabilities {
	hasParam := func(name string) bool {
		for _, p := range orm.SupportedParameters {
			if p == name {
				return true
			}
		}
		return false
	}
	hasModality := func(name string) bool {
		for _, m := range orm.Architecture.InputModalities {
			if m == name {
				return true
			}
		}
		return false
	}
	return models.Capabilities{
		Vision:          hasModality("image"),
		FunctionCalling: hasParam("tools") || hasParam("tool_choice"),
		Streaming:       true,
		JSON:            hasParam("response_format"),
		Reasoning:       hasParam("reasoning") || hasParam("include_reasoning"),
	}
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}

func appendUniqueAll(list []string, vs []string) []string {
	for _, v := range vs {
		list = appendUnique(list, v)
	}
	return list
}
