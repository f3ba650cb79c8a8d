package planner

import (
	"context"
	"fmt"

	"github.com/swarmrouter/core/pkg/models"
)

// planCascade produces two task-nodes — cheap at budget=low (wave 0),
// premium at budget=high (wave 1) depending on cheap, excluding the
// cheap model's id — plus a merge-node (wave 2). The premium node's meta
// carries conditional=true, triggering the executor's skip rule (§4.3.2).
// mergeStyle=decision by default (§4.2 "cascade").
func (p *Planner) planCascade(ctx context.Context, run *models.Run) (*PlannedRun, error) {
	category := categoryFor(run)
	prompt := composedPrompt(run)

	cheapModel, cheapSource := p.pickModel(ctx, category, models.BudgetLow, nil, contextTagsOf(run))
	premiumModel, premiumSource := p.pickModel(ctx, category, models.BudgetHigh, []string{cheapModel}, contextTagsOf(run))

	cheap := newTaskNode("cheap", run, prompt, cheapModel, nil, 0, models.NodeMeta{
		Mode:           models.ModeCascade,
		Tier:           "budget",
		PlanningSource: cheapSource,
	})
	premium := newTaskNode("premium", run, prompt, premiumModel, []string{"cheap"}, 1, models.NodeMeta{
		Mode:           models.ModeCascade,
		Tier:           "premium",
		Conditional:    true,
		PlanningSource: premiumSource,
	})
	merge := newMergeNode(run, []string{"cheap", "premium"}, 2, firstNonEmpty(run.Merge.Style, "decision"))

	return &PlannedRun{
		PlannerSummary: fmt.Sprintf("cascade %s -> %s", cheapModel, premiumModel),
		Nodes:          []*models.Node{cheap, premium, merge},
	}, nil
}
