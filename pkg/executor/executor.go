// Package executor advances a run's DAG to a terminal state (§4.3): it
// dispatches ready task-nodes, enforces the per-run budget and timeout,
// and guarantees a merged artifact exists before marking a run completed.
package executor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/swarmrouter/core/pkg/artifactstore"
	"github.com/swarmrouter/core/pkg/completion"
	"github.com/swarmrouter/core/pkg/models"
	"github.com/swarmrouter/core/pkg/store"
)

// tickSleep is the short sleep the scheduling loop takes when there is
// nothing ready to dispatch or the run is already at node capacity (§5
// "Suspension points": 200ms).
const tickSleep = 200 * time.Millisecond

// Config holds the executor's timing and budget tunables (§6.3 subset).
type Config struct {
	MaxParallelNodesPerRun int
	MaxUSDPerRun           float64
	NodeTimeoutSeconds     int
	RunTimeoutSeconds      int
}

// PricingLookup resolves a model's known per-1M-token pricing, when the
// ranker catalog has it, for the node-cost computation (§4.3.2 step 5).
type PricingLookup func(model string) (models.Pricing, bool)

// Executor drives one run at a time through Execute; the Queue is
// responsible for calling Execute concurrently across runs up to
// maxParallelRuns.
type Executor struct {
	store      store.Store
	artifacts  *artifactstore.Store
	completion *completion.Client
	pricing    PricingLookup
	cfg        Config
	log        *slog.Logger
}

func New(st store.Store, artifacts *artifactstore.Store, completionClient *completion.Client, pricing PricingLookup, cfg Config) *Executor {
	return &Executor{
		store:      st,
		artifacts:  artifacts,
		completion: completionClient,
		pricing:    pricing,
		cfg:        cfg,
		log:        slog.Default().With("component", "executor"),
	}
}

// Execute runs the scheduling algorithm of §4.3.1 until the run reaches a
// terminal state or ctx is canceled (a cancel request is detected via the
// run's status flipping to canceled on the Queue's side, per §4.4).
func (e *Executor) Execute(ctx context.Context, runID string) {
	log := e.log.With("run_id", runID)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		run, err := e.store.GetRun(ctx, runID)
		if err != nil {
			log.Error("refreshing run", "error", err)
			return
		}

		// 1. Terminal check.
		if run.Status.Terminal() {
			return
		}

		// 2. Per-run timeout.
		if run.StartedAt != nil && time.Since(*run.StartedAt) > time.Duration(e.cfg.RunTimeoutSeconds)*time.Second {
			e.failRun(ctx, run, "Run timed out")
			return
		}

		nodes, err := e.store.ListNodes(ctx, runID)
		if err != nil {
			log.Error("listing nodes", "error", err)
			return
		}

		// 3. All-terminal check.
		if allTerminal(nodes) {
			if anyFailed(nodes) {
				e.failRun(ctx, run, fmt.Sprintf("%d node(s) failed", countFailed(nodes)))
				return
			}
			if err := e.ensureMergedArtifact(ctx, run, nodes); err != nil {
				log.Error("ensuring merged artifact", "error", err)
				e.failRun(ctx, run, "failed to produce merged artifact")
				return
			}
			e.completeRun(ctx, run)
			return
		}

		// 4. Running-count gate.
		running := countRunning(nodes)
		if running >= e.cfg.MaxParallelNodesPerRun {
			time.Sleep(tickSleep)
			continue
		}

		// 5. Ready set.
		ready := readySet(nodes)
		if len(ready) == 0 {
			time.Sleep(tickSleep)
			continue
		}

		// 6. Dispatch up to capacity, concurrently, awaiting completion.
		slots := e.cfg.MaxParallelNodesPerRun - running
		if slots > len(ready) {
			slots = len(ready)
		}
		e.dispatch(ctx, run, ready[:slots])
	}
}

func (e *Executor) dispatch(ctx context.Context, run *models.Run, nodes []*models.Node) {
	done := make(chan struct{}, len(nodes))
	for _, n := range nodes {
		n := n
		go func() {
			defer func() { done <- struct{}{} }()
			e.executeNode(ctx, run, n)
		}()
	}
	for range nodes {
		<-done
	}
}

func (e *Executor) failRun(ctx context.Context, run *models.Run, reason string) {
	run.Status = models.RunStatusFailed
	run.Error = reason
	now := time.Now()
	run.FinishedAt = &now
	if err := e.store.UpdateRun(ctx, run); err != nil {
		e.log.Error("marking run failed", "run_id", run.ID, "error", err)
	}
	e.emit(ctx, run.ID, "", models.EventError, reason)
}

func (e *Executor) completeRun(ctx context.Context, run *models.Run) {
	run.Status = models.RunStatusCompleted
	now := time.Now()
	run.FinishedAt = &now
	if err := e.store.UpdateRun(ctx, run); err != nil {
		e.log.Error("marking run completed", "run_id", run.ID, "error", err)
	}
	e.emit(ctx, run.ID, "", models.EventInfo, "run completed")
}

func (e *Executor) emit(ctx context.Context, runID, nodeID string, level models.EventLevel, message string) {
	ev := &models.Event{RunID: runID, NodeID: nodeID, Level: level, Message: message, CreatedAt: time.Now()}
	if err := e.store.AppendEvent(ctx, ev); err != nil {
		e.log.Error("appending event", "run_id", runID, "error", err)
	}
}

// allTerminal, anyFailed, countFailed, countRunning, readySet implement the
// pure predicates of §4.3.1 over a run's current node snapshot.

func allTerminal(nodes []*models.Node) bool {
	for _, n := range nodes {
		if !n.Status.Terminal() {
			return false
		}
	}
	return true
}

func anyFailed(nodes []*models.Node) bool {
	return countFailed(nodes) > 0
}

func countFailed(nodes []*models.Node) int {
	c := 0
	for _, n := range nodes {
		if n.Status == models.NodeStatusFailed {
			c++
		}
	}
	return c
}

func countRunning(nodes []*models.Node) int {
	c := 0
	for _, n := range nodes {
		if n.Status == models.NodeStatusRunning {
			c++
		}
	}
	return c
}

// readySet returns every queued node whose dependencies are all in a
// terminal-good state (completed or skipped) — the sole admission oracle;
// wave numbers are decorative (§4.3.1).
func readySet(nodes []*models.Node) []*models.Node {
	byID := make(map[string]*models.Node, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = n
	}

	var ready []*models.Node
	for _, n := range nodes {
		if n.Status != models.NodeStatusQueued {
			continue
		}
		allGood := true
		for _, dep := range n.DependsOn {
			depNode, ok := byID[dep]
			if !ok || !depNode.Status.TerminalGood() {
				allGood = false
				break
			}
		}
		if allGood {
			ready = append(ready, n)
		}
	}
	return ready
}
