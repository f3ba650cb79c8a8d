package planner

import (
	"context"
	"fmt"

	"github.com/swarmrouter/core/pkg/models"
	"github.com/swarmrouter/core/pkg/ranker"
)

// planSingle produces one task-node carrying the picked model; no merge
// node (§4.2 "single").
func (p *Planner) planSingle(ctx context.Context, run *models.Run) (*PlannedRun, error) {
	category := categoryFor(run)
	model, source := p.pickModel(ctx, category, run.Budget, nil, contextTagsOf(run))

	node := newTaskNode("task", run, composedPrompt(run), model, nil, 0, models.NodeMeta{
		Mode:           models.ModeSingle,
		PlanningSource: source,
	})

	return &PlannedRun{
		PlannerSummary: fmt.Sprintf("single task routed to %s (%s)", model, source),
		Nodes:          []*models.Node{node},
	}, nil
}

// categoryFor derives the top-level task's scoring category by the same
// keyword-majority classifier used for sub-tasks (§4.1.4).
func categoryFor(run *models.Run) models.Category {
	return ranker.ClassifyCategory(run.Task)
}
