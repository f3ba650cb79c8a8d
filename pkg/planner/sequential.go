package planner

import (
	"context"
	"fmt"

	"github.com/swarmrouter/core/pkg/models"
)

// planSequential asks the Ranker to decompose the task sequentially; on
// success produces one task-node per step with dependsOn=[previousStep],
// then a terminal merge-node depending on all steps. On failure (no
// decomposition, or fewer than 2 parts) falls back to single (§4.2 "plan").
func (p *Planner) planSequential(ctx context.Context, run *models.Run) (*PlannedRun, error) {
	if p.ranker == nil {
		return p.planSingle(ctx, run)
	}

	result := p.ranker.Decompose(run.Task, run.Budget)
	if !result.Decomposed || len(result.SubTasks) < 2 {
		return p.planSingle(ctx, run)
	}

	nodes := make([]*models.Node, 0, len(result.SubTasks)+1)
	for i, st := range result.SubTasks {
		localID := fmt.Sprintf("step-%d", i+1)
		var dependsOn []string
		if i > 0 {
			dependsOn = []string{fmt.Sprintf("step-%d", i)}
		}
		model, source := p.pickModel(ctx, st.Category, st.Budget, nil, contextTagsOf(run))
		nodes = append(nodes, newTaskNode(localID, run, st.Text, model, dependsOn, i, models.NodeMeta{
			Mode:           models.ModePlan,
			PlanningSource: source,
		}))
	}

	merge := newMergeNode(run, allLocalIDs(nodes), len(nodes), firstNonEmpty(run.Merge.Style, "detailed"))
	nodes = append(nodes, merge)

	return &PlannedRun{
		PlannerSummary: fmt.Sprintf("sequential plan (%s split) with %d steps", result.Method, len(result.SubTasks)),
		Nodes:          nodes,
	}, nil
}
