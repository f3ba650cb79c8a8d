package planner

import (
	"context"
	"fmt"

	"github.com/swarmrouter/core/pkg/models"
	"github.com/swarmrouter/core/pkg/ranker"
)

const defaultMaxParallel = 4

// planSwarm asks the Ranker for the swarm DAG; maps each returned task to
// a task-node preserving its dependsOn, picks a model per node, then
// appends a merge-node depending on every task-node. Falls back to single
// on failure (§4.2 "swarm").
func (p *Planner) planSwarm(ctx context.Context, run *models.Run) (*PlannedRun, error) {
	if p.ranker == nil {
		return p.planSingle(ctx, run)
	}

	result := p.ranker.Swarm(run.Task, run.Budget, defaultMaxParallel)
	if !result.Decomposed || len(result.SubTasks) < 2 {
		return p.planSingle(ctx, run)
	}

	localIDs := make([]string, len(result.SubTasks))
	for i := range result.SubTasks {
		localIDs[i] = fmt.Sprintf("task-%d", i+1)
	}

	nodes := make([]*models.Node, 0, len(result.SubTasks)+1)
	for i, st := range result.SubTasks {
		dependsOn := make([]string, len(st.DependsOn))
		for j, depIdx := range st.DependsOn {
			dependsOn[j] = localIDs[depIdx]
		}
		model, source := p.pickModel(ctx, st.Category, st.Budget, nil, contextTagsOf(run))
		nodes = append(nodes, newTaskNode(localIDs[i], run, st.Text, model, dependsOn, st.Wave, models.NodeMeta{
			Mode:           models.ModeSwarm,
			PlanningSource: source,
		}))
	}

	merge := newMergeNode(run, localIDs, maxWave(result.SubTasks)+1, firstNonEmpty(run.Merge.Style, "detailed"))
	nodes = append(nodes, merge)

	summary := fmt.Sprintf("swarm (%s split) with %d nodes", result.Method, len(result.SubTasks))
	if result.Warning != "" {
		summary += "; " + result.Warning
	}

	return &PlannedRun{PlannerSummary: summary, Nodes: nodes}, nil
}

func maxWave(subTasks []ranker.SubTask) int {
	max := 0
	for _, st := range subTasks {
		if st.Wave > max {
			max = st.Wave
		}
	}
	return max
}
