package ranker

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/swarmrouter/core/pkg/models"
	"github.com/swarmrouter/core/pkg/store"
)

// Config wires the ranker's upstream endpoints and static assets. Only
// OpenRouterBaseURL is required for a meaningful refresh. An unset
// auxiliary URL is not defaulted: that source's fetch fails and it is
// marked stale. DefaultConfig carries the public feed URLs.
type Config struct {
	OpenRouterBaseURL     string
	OpenRouterAPIKey      string
	ArtificialAnalysisURL string
	HuggingFaceURL        string
	LMArenaURL            string
	LiveBenchURL          string
	AliasesPath           string
	OverridesPath         string
	RefreshInterval       time.Duration
}

// DefaultConfig fills in the public endpoints the ranker targets absent
// explicit configuration.
func DefaultConfig() Config {
	return Config{
		OpenRouterBaseURL:     "https://openrouter.ai/api/v1",
		ArtificialAnalysisURL: "https://artificialanalysis.ai/api/v2/data",
		HuggingFaceURL:        "https://huggingface.co/api/open-llm-leaderboard",
		LMArenaURL:            "https://arena.lmsys.org/api/leaderboard",
		LiveBenchURL:          "https://livebench.ai/api/results",
		RefreshInterval:       6 * time.Hour,
	}
}

// Ranker is the Model Intelligence Ranker (§4.1): it owns the in-memory
// catalog snapshot, the feedback store, and the static alias/override
// assets, and exposes pick/recommend/decompose/swarm/composeRole.
type Ranker struct {
	cfg        Config
	httpClient *http.Client
	log        *slog.Logger

	snapshot snapshotHolder
	store    *store.Postgres
	feedback FeedbackSource

	aliases        AliasMap
	overrides      *Overrides
	contextWeights map[string]map[string]float64
}

// New constructs a Ranker, loading the last persisted snapshot (or an
// empty one, per §4.1.1) and the static alias/override assets.
func New(ctx context.Context, cfg Config, st *store.Postgres) (*Ranker, error) {
	aliases, err := LoadAliases(cfg.AliasesPath)
	if err != nil {
		return nil, err
	}
	overrides, err := LoadOverrides(cfg.OverridesPath)
	if err != nil {
		return nil, err
	}

	r := &Ranker{
		cfg:            cfg,
		httpClient:     &http.Client{Timeout: AuxSourceTimeout},
		log:            slog.Default().With("component", "ranker"),
		store:          st,
		feedback:       st,
		aliases:        aliases,
		overrides:      overrides,
		contextWeights: defaultContextWeights(),
	}

	if st != nil {
		blob, found, err := st.LoadRankerSnapshot(ctx)
		if err != nil {
			return nil, err
		}
		if found {
			r.snapshot.store(UnmarshalSnapshot(blob))
		} else {
			r.snapshot.store(emptyCatalog())
		}
	} else {
		r.snapshot.store(emptyCatalog())
	}

	return r, nil
}

// RunBackgroundRefresh blocks, refreshing the catalog every
// cfg.RefreshInterval until ctx is canceled. Callers should launch it in
// its own goroutine (Design Notes §9: "background ranker refresh" is the
// last step of the initialization order).
func (r *Ranker) RunBackgroundRefresh(ctx context.Context) {
	interval := r.cfg.RefreshInterval
	if interval <= 0 {
		interval = 6 * time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.Refresh(ctx); err != nil {
				r.log.Error("scheduled ranker refresh failed", "error", err)
				continue
			}
			r.persistSnapshot(ctx)
		}
	}
}

// RefreshNow triggers an on-demand refresh (§4.1.1 "on explicit demand")
// and persists the result.
func (r *Ranker) RefreshNow(ctx context.Context) error {
	if err := r.Refresh(ctx); err != nil {
		return err
	}
	r.persistSnapshot(ctx)
	return nil
}

func (r *Ranker) persistSnapshot(ctx context.Context) {
	if r.store == nil {
		return
	}
	blob, err := MarshalSnapshot(r.snapshot.load())
	if err != nil {
		r.log.Error("marshaling ranker snapshot", "error", err)
		return
	}
	if err := r.store.SaveRankerSnapshot(ctx, blob); err != nil {
		r.log.Error("persisting ranker snapshot", "error", err)
	}
}

// Status reports catalog size and per-source freshness, backing the
// ranking service's GET /status contract (§6.4) and the health handler.
type Status struct {
	ModelCount   int                     `json:"modelCount"`
	SourceStatus map[string]SourceStatus `json:"sourceStatus"`
}

func (r *Ranker) Status() Status {
	cat := r.snapshot.load()
	return Status{ModelCount: len(cat.Models), SourceStatus: cat.SourceStatus}
}

// PricingFor returns the catalog's known per-1M-token pricing for model,
// if present, for the executor's cost computation (§4.3.2 step 5: "when
// per-model pricing is unknown, apply a conservative default").
func (r *Ranker) PricingFor(model string) (models.Pricing, bool) {
	cat := r.snapshot.load()
	m, ok := cat.Models[model]
	if !ok {
		return models.Pricing{}, false
	}
	return m.Pricing, true
}

// RecordOutcome feeds a node's pass/fail result back into the personal and
// (when a context tag applies) context feedback stores, so future blended
// scores (§4.1.3) reflect it. The ranker itself never blocks a run on this
// write failing; callers log and move on.
func (r *Ranker) RecordOutcome(ctx context.Context, model string, category models.Category, contextTag string, success bool) error {
	if r.store == nil {
		return nil
	}
	if err := r.store.RecordPersonalOutcome(ctx, model, category, success); err != nil {
		return err
	}
	if contextTag == "" {
		return nil
	}
	return r.store.RecordContextOutcome(ctx, model, category, contextTag, success)
}

// RecordRating applies a community rating, honoring the store's per-hour
// rate limit (§4.1.3 "community feedback"); allowed is false when the
// bucket for (model, category) is already saturated this hour.
func (r *Ranker) RecordRating(ctx context.Context, model string, category models.Category, rating float64, now time.Time) (allowed bool, err error) {
	if r.store == nil {
		return false, nil
	}
	return r.store.RecordCommunityRating(ctx, model, category, rating, now)
}

// defaultContextWeights seeds a handful of common context tags with
// benchmark-weight recipes for the contextBoost computation (§4.1.3);
// additional tags may be layered in via the overrides asset in a future
// revision without changing this shape.
func defaultContextWeights() map[string]map[string]float64 {
	return map[string]map[string]float64{
		"typescript": {"liveBenchCoding": 1, "codingIndex": 0.5},
		"python":     {"liveBenchCoding": 1, "codingIndex": 0.5},
		"nextjs":     {"liveBenchCoding": 0.8, "liveBenchAgenticCoding": 0.5},
		"security":   {"gpqa": 0.6, "liveBenchReasoning": 0.4},
	}
}
