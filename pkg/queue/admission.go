package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/swarmrouter/core/pkg/models"
	"github.com/swarmrouter/core/pkg/planner"
)

// CreateRun persists a new run in the queued state and wakes the poll loop
// so it is considered for admission on this tick rather than the next
// timer fire (§4.4 "on each createRun").
func (a *Admitter) CreateRun(ctx context.Context, run *models.Run) error {
	run.ID = uuid.New().String()
	run.Status = models.RunStatusQueued
	now := time.Now()
	run.CreatedAt = now
	run.UpdatedAt = now
	if err := a.store.CreateRun(ctx, run); err != nil {
		return fmt.Errorf("creating run: %w", err)
	}
	a.wake()
	return nil
}

// ensurePlanned plans a run on first admission, writes its plan artifact
// under the reserved node_id "plan", rewrites every node id to the global
// runId:localId form (and every dependsOn entry correspondingly), and
// inserts the whole DAG in one transaction (§4.3.3).
func (a *Admitter) ensurePlanned(ctx context.Context, run *models.Run) error {
	existing, err := a.store.ListNodes(ctx, run.ID)
	if err != nil {
		return fmt.Errorf("checking existing nodes: %w", err)
	}
	if len(existing) > 0 {
		return nil
	}

	pr, err := a.planner.Plan(ctx, run)
	if err != nil {
		return wrapPlanError(err)
	}

	if err := a.writePlanArtifact(ctx, run, pr); err != nil {
		return err
	}

	rewriteNodeIDs(run.ID, pr.Nodes)

	now := time.Now()
	for _, n := range pr.Nodes {
		n.CreatedAt = now
		n.UpdatedAt = now
	}
	if err := a.store.CreateNodes(ctx, pr.Nodes); err != nil {
		return fmt.Errorf("inserting planned nodes: %w", err)
	}

	a.log.Info("run planned", "run_id", run.ID, "node_count", len(pr.Nodes), "summary", pr.PlannerSummary)
	return nil
}

// wrapPlanError adds a "planning run:" prefix to any planner failure
// except ErrPlannerEmpty, which must reach run.Error verbatim as the
// exact string "Planner returned no nodes" (§7(f)).
func wrapPlanError(err error) error {
	if errors.Is(err, planner.ErrPlannerEmpty) {
		return err
	}
	return fmt.Errorf("planning run: %w", err)
}

// writePlanArtifact marshals the planned DAG and stores it under the
// reserved literal node_id "plan" (§4.3.3), independent of any node's own
// rewritten id.
func (a *Admitter) writePlanArtifact(ctx context.Context, run *models.Run, pr *planner.PlannedRun) error {
	payload, err := json.MarshalIndent(pr, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling plan artifact: %w", err)
	}
	artifact, err := a.artifacts.Write(run.ID, models.PlanLocalID, models.ArtifactPlan, payload)
	if err != nil {
		return fmt.Errorf("writing plan artifact: %w", err)
	}
	if err := a.store.CreateArtifact(ctx, artifact); err != nil {
		return fmt.Errorf("recording plan artifact: %w", err)
	}
	return nil
}

// rewriteNodeIDs assigns each node its global id (runId:localId) and
// rewrites every dependsOn entry — planned at local-id granularity — to
// point at the matching global id, preserving the uniqueness invariant
// across the store (§4.3.3).
func rewriteNodeIDs(runID string, nodes []*models.Node) {
	globalOf := make(map[string]string, len(nodes))
	for _, n := range nodes {
		globalOf[n.LocalID] = runID + ":" + n.LocalID
	}
	for _, n := range nodes {
		n.ID = globalOf[n.LocalID]
		n.RunID = runID
		rewritten := make([]string, 0, len(n.DependsOn))
		for _, dep := range n.DependsOn {
			if g, ok := globalOf[dep]; ok {
				rewritten = append(rewritten, g)
			} else {
				rewritten = append(rewritten, dep)
			}
		}
		n.DependsOn = rewritten
	}
}
