package planner

import (
	"context"
	"fmt"

	"github.com/swarmrouter/core/pkg/models"
)

// planCollective produces N parallel task-nodes (wave 0) sharing the same
// composed prompt with different recommended models, plus one merge-node
// (wave 1) depending on all of them, mergeStyle=detailed by default.
// N is clamped to [2,5] (§4.2 "collective").
func (p *Planner) planCollective(ctx context.Context, run *models.Run) (*PlannedRun, error) {
	n := run.CollectiveCount
	if n < collectiveMin {
		n = collectiveMin
	}
	if n > collectiveMax {
		n = collectiveMax
	}

	category := categoryFor(run)
	prompt := composedPrompt(run)

	recommended, source := p.recommendModels(ctx, category, run.Budget, n, contextTagsOf(run))

	nodes := make([]*models.Node, 0, n+1)
	for i, model := range recommended {
		localID := fmt.Sprintf("task-%d", i+1)
		nodes = append(nodes, newTaskNode(localID, run, prompt, model, nil, 0, models.NodeMeta{
			Mode:           models.ModeCollective,
			PlanningSource: source,
		}))
	}

	merge := newMergeNode(run, allLocalIDs(nodes), 1, firstNonEmpty(run.Merge.Style, "detailed"))
	nodes = append(nodes, merge)

	return &PlannedRun{
		PlannerSummary: fmt.Sprintf("collective of %d models routed via %s", len(recommended), source),
		Nodes:          nodes,
	}, nil
}

// recommendModels asks the Ranker for n recommendations, padding with the
// hard-coded fallback when the Ranker under-delivers or fails entirely.
func (p *Planner) recommendModels(ctx context.Context, category models.Category, budget models.Budget, n int, contextTags []string) ([]string, string) {
	if p.ranker != nil {
		if ms, err := p.ranker.Recommend(ctx, category, budget, contextTags, nil, n); err == nil && len(ms) > 0 {
			ids := make([]string, len(ms))
			for i, m := range ms {
				ids[i] = m.ID
			}
			for len(ids) < n {
				ids = append(ids, fallbackFor(category))
			}
			return ids, planningSourceAPI
		}
	}
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fallbackFor(category)
	}
	return ids, planningSourceFallback
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
