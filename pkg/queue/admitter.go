// Package queue implements the process-wide admission controller (§4.4):
// it polls the run store, admits at most maxParallelRuns runs concurrently,
// and drives each through Planner → Executor. Grounded on the teacher's
// pkg/queue.WorkerPool (cancel registry behind sync.RWMutex, poll loop,
// Health snapshot), generalized from a fixed worker-goroutine pool to a
// single admission loop since the unit of concurrency here is one run, not
// one ent-session stage.
package queue

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/swarmrouter/core/pkg/artifactstore"
	"github.com/swarmrouter/core/pkg/executor"
	"github.com/swarmrouter/core/pkg/models"
	"github.com/swarmrouter/core/pkg/planner"
	"github.com/swarmrouter/core/pkg/store"
)

// Config holds the queue's scheduling tunables (§6.3 subset).
type Config struct {
	MaxParallelRuns int
	PollIntervalMs  int

	// MaxAdmitsPerSecond caps how fast new runs are handed to the planner
	// and executor, independent of MaxParallelRuns. It smooths a burst of
	// queued runs (e.g. many CreateRun calls landing in the same tick)
	// into a steady admission rate instead of launching them all at once.
	MaxAdmitsPerSecond float64
}

// Admitter is the process-wide run scheduler. At most one instance should
// run per process; it is safe to call CreateRun from many goroutines.
type Admitter struct {
	store     store.Store
	artifacts *artifactstore.Store
	planner   *planner.Planner
	executor  *executor.Executor
	cfg       Config
	log       *slog.Logger

	mu      sync.RWMutex
	cancels map[string]context.CancelFunc

	limiter *rate.Limiter

	wakeCh chan struct{}
	stopCh chan struct{}
	wg     sync.WaitGroup
}

func New(st store.Store, artifacts *artifactstore.Store, pl *planner.Planner, ex *executor.Executor, cfg Config) *Admitter {
	if cfg.MaxParallelRuns <= 0 {
		cfg.MaxParallelRuns = 2
	}
	if cfg.PollIntervalMs <= 0 {
		cfg.PollIntervalMs = 1200
	}
	if cfg.MaxAdmitsPerSecond <= 0 {
		cfg.MaxAdmitsPerSecond = 5
	}
	return &Admitter{
		store:     st,
		artifacts: artifacts,
		planner:   pl,
		executor:  ex,
		cfg:       cfg,
		log:       slog.Default().With("component", "queue"),
		cancels:   make(map[string]context.CancelFunc),
		limiter:   rate.NewLimiter(rate.Limit(cfg.MaxAdmitsPerSecond), 1),
		wakeCh:    make(chan struct{}, 1),
		stopCh:    make(chan struct{}),
	}
}

// Run blocks, polling the store every PollIntervalMs (and on every wake
// signal from CreateRun) until ctx is canceled (§4.4).
func (a *Admitter) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Duration(a.cfg.PollIntervalMs) * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-a.stopCh:
			return
		case <-ticker.C:
			a.tick(ctx)
		case <-a.wakeCh:
			a.tick(ctx)
		}
	}
}

// Stop signals Run to exit. It does not interrupt in-flight runs; those
// continue until their own context is canceled or they finish naturally.
func (a *Admitter) Stop() {
	close(a.stopCh)
}

// wake nudges the poll loop to run immediately, e.g. right after CreateRun.
func (a *Admitter) wake() {
	select {
	case a.wakeCh <- struct{}{}:
	default:
	}
}

// tick admits as many queued/running runs as the parallelism limit and the
// admission rate limiter allow, preferring the earliest-created
// not-already-in-flight run (§4.4). MaxParallelRuns bounds how many runs
// are in flight at once; the rate limiter bounds how fast new ones start,
// so a burst of queued runs is spread out rather than launched in one
// tick.
func (a *Admitter) tick(ctx context.Context) {
	active, err := a.store.ListActiveRuns(ctx)
	if err != nil {
		a.log.Error("listing active runs", "error", err)
		return
	}

	inFlight := a.inFlightCount()
	for _, run := range active {
		if inFlight >= a.cfg.MaxParallelRuns {
			return
		}
		if a.isInFlight(run.ID) {
			continue
		}
		if !a.limiter.Allow() {
			return
		}
		a.admit(ctx, run)
		inFlight++
	}
}

func (a *Admitter) inFlightCount() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.cancels)
}

func (a *Admitter) isInFlight(runID string) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	_, ok := a.cancels[runID]
	return ok
}

// admit plans a run on first admission (if it has no nodes yet), then
// launches the executor for it in its own goroutine with a registered
// cancel function.
func (a *Admitter) admit(ctx context.Context, run *models.Run) {
	runCtx, cancel := context.WithCancel(ctx)

	a.mu.Lock()
	a.cancels[run.ID] = cancel
	a.mu.Unlock()

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer a.unregister(run.ID)
		defer cancel()

		if err := a.ensurePlanned(runCtx, run); err != nil {
			a.log.Error("planning run", "run_id", run.ID, "error", err)
			a.failRun(runCtx, run, err.Error())
			return
		}
		a.markRunning(runCtx, run)
		a.executor.Execute(runCtx, run.ID)
	}()
}

func (a *Admitter) unregister(runID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.cancels, runID)
}

// Cancel transitions a non-terminal run to canceled and aborts its
// in-flight executor loop if this process is driving it (§4.4).
func (a *Admitter) Cancel(ctx context.Context, runID string) error {
	run, err := a.store.GetRun(ctx, runID)
	if err != nil {
		return err
	}
	if !run.Status.Terminal() {
		run.Status = models.RunStatusCanceled
		now := time.Now()
		run.FinishedAt = &now
		if err := a.store.UpdateRun(ctx, run); err != nil {
			return err
		}
		_ = a.store.AppendEvent(ctx, &models.Event{
			RunID: runID, Level: models.EventWarning, Message: "run canceled", CreatedAt: time.Now(),
		})
	}

	a.mu.RLock()
	cancel, ok := a.cancels[runID]
	a.mu.RUnlock()
	if ok {
		cancel()
	}
	return nil
}

func (a *Admitter) markRunning(ctx context.Context, run *models.Run) {
	if run.Status == models.RunStatusRunning {
		return
	}
	run.Status = models.RunStatusRunning
	now := time.Now()
	run.StartedAt = &now
	if err := a.store.UpdateRun(ctx, run); err != nil {
		a.log.Error("marking run running", "run_id", run.ID, "error", err)
	}
}

// Health reports a point-in-time snapshot of the admitter's in-flight
// state for the health RPC (§6.1), mirroring the teacher's
// WorkerPool.Health().
type Health struct {
	InFlightRuns    int `json:"in_flight_runs"`
	MaxParallelRuns int `json:"max_parallel_runs"`
}

func (a *Admitter) Health() Health {
	return Health{
		InFlightRuns:    a.inFlightCount(),
		MaxParallelRuns: a.cfg.MaxParallelRuns,
	}
}

func (a *Admitter) failRun(ctx context.Context, run *models.Run, reason string) {
	run.Status = models.RunStatusFailed
	run.Error = reason
	now := time.Now()
	run.FinishedAt = &now
	if err := a.store.UpdateRun(ctx, run); err != nil {
		a.log.Error("marking run failed", "run_id", run.ID, "error", err)
	}
}
