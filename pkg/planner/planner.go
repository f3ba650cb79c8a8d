// Package planner turns a (task, mode) pair into a typed DAG of task-nodes
// and one terminal merge-node, choosing a concrete model per node via the
// ranker (§4.2). The planner never executes anything; the executor walks
// the DAG it produces.
package planner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/swarmrouter/core/pkg/models"
	"github.com/swarmrouter/core/pkg/ranker"
)

// ErrPlannerEmpty is the exact error surfaced in run.Error (§7(f)) when a
// planner produces zero nodes. The queue passes it through unwrapped so
// the text a caller sees matches this literal.
var ErrPlannerEmpty = errors.New("Planner returned no nodes")

const (
	planningSourceAPI      = "api"
	planningSourceFallback = "fallback"

	collectiveMin = 2
	collectiveMax = 5
)

// fallbackModels is the hard-coded table of opinionated per-category
// defaults used when the Ranker is absent or failing (§4.2), mirroring the
// teacher's built-in-fallback-runbook pattern. This table is not part of
// the product surface.
var fallbackModels = map[models.Category]string{
	models.CategoryGeneral:    "openai/gpt-4o-mini",
	models.CategoryCoding:     "anthropic/claude-3.5-sonnet",
	models.CategoryReasoning:  "openai/o1-mini",
	models.CategoryCreative:   "anthropic/claude-3.5-sonnet",
	models.CategoryResearch:   "openai/gpt-4o",
	models.CategoryFastCheap:  "openai/gpt-4o-mini",
	models.CategoryVision:     "openai/gpt-4o",
}

func fallbackFor(category models.Category) string {
	if m, ok := fallbackModels[category]; ok {
		return m
	}
	return fallbackModels[models.CategoryGeneral]
}

// PlannedRun is the planner's output: a human summary plus the node list
// the executor will insert and drive.
type PlannedRun struct {
	PlannerSummary string        `json:"plannerSummary"`
	Nodes          []*models.Node `json:"nodes"`
}

// Planner dispatches over Mode, consulting the Ranker for model selection
// and task decomposition (§4.2). One function per mode variant, per the
// "tagged variant, not subclasses" redesign flag.
type Planner struct {
	ranker *ranker.Ranker
	log    *slog.Logger
}

func New(r *ranker.Ranker) *Planner {
	return &Planner{ranker: r, log: slog.Default().With("component", "planner")}
}

// Plan produces a PlannedRun for run, dispatching on run.Mode. A planner
// that yields zero nodes is a caller-visible PlannerEmpty error (§7); the
// queue fails the run with "Planner returned no nodes" in that case.
func (p *Planner) Plan(ctx context.Context, run *models.Run) (*PlannedRun, error) {
	var pr *PlannedRun
	var err error

	switch run.Mode {
	case models.ModeSingle:
		pr, err = p.planSingle(ctx, run)
	case models.ModeCollective:
		pr, err = p.planCollective(ctx, run)
	case models.ModeCascade:
		pr, err = p.planCascade(ctx, run)
	case models.ModePlan:
		pr, err = p.planSequential(ctx, run)
	case models.ModeSwarm:
		pr, err = p.planSwarm(ctx, run)
	default:
		return nil, fmt.Errorf("unknown planning mode %q", run.Mode)
	}
	if err != nil {
		return nil, err
	}
	if len(pr.Nodes) == 0 {
		return nil, ErrPlannerEmpty
	}
	return pr, nil
}

// composedPrompt builds the role-enriched prompt for run.Task, falling
// back to the raw task on any composition difficulty (§4.2, §6.5).
func composedPrompt(run *models.Run) string {
	return ranker.ComposeRole(run.Task, run.Role)
}

// pickModel consults the Ranker for (category, budget, exclude); on any
// Ranker failure (including an empty catalog) it falls back to the
// hard-coded table and tags the node accordingly.
func (p *Planner) pickModel(ctx context.Context, category models.Category, budget models.Budget, exclude []string, contextTags []string) (model, source string) {
	if p.ranker != nil {
		if m, err := p.ranker.Pick(ctx, category, budget, contextTags, exclude); err == nil && m != nil {
			return m.ID, planningSourceAPI
		}
	}
	return fallbackFor(category), planningSourceFallback
}

func newTaskNode(localID string, run *models.Run, task, model string, dependsOn []string, wave int, meta models.NodeMeta) *models.Node {
	return &models.Node{
		LocalID:    localID,
		RunID:      run.ID,
		Kind:       models.NodeKindTask,
		Wave:       wave,
		DependsOn:  dependsOn,
		Task:       task,
		Model:      model,
		Prompt:     task,
		Meta:       meta,
		Status:     models.NodeStatusQueued,
		MaxRetries: models.DefaultMaxRetries,
	}
}

func newMergeNode(run *models.Run, dependsOn []string, wave int, style string) *models.Node {
	if style == "" {
		style = "detailed"
	}
	return &models.Node{
		LocalID:    models.MergedLocalID,
		RunID:      run.ID,
		Kind:       models.NodeKindMerge,
		Wave:       wave,
		DependsOn:  dependsOn,
		Task:       run.Task,
		Model:      run.Merge.Model,
		Meta:       models.NodeMeta{MergeStyle: style},
		Status:     models.NodeStatusQueued,
		MaxRetries: models.DefaultMaxRetries,
	}
}

// marshalPlanArtifact pretty-prints the produced DAG for the plan artifact
// (§4.2, §4.3.3 — actual storage is performed by the Queue on admission).
func marshalPlanArtifact(pr *PlannedRun) ([]byte, error) {
	return json.MarshalIndent(pr, "", "  ")
}

func contextTagsOf(run *models.Run) []string {
	if run.Context == "" {
		return nil
	}
	return []string{run.Context}
}

func allLocalIDs(nodes []*models.Node) []string {
	ids := make([]string, len(nodes))
	for i, n := range nodes {
		ids[i] = n.LocalID
	}
	return ids
}
