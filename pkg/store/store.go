// Package store implements the durable run/node/artifact/event/feedback
// persistence layer (§4.5, §6.2). It is the sole source of truth the
// executor and queue consult for cross-component coordination (§5
// "Shared state") — nothing is coordinated in memory across components.
package store

import (
	"context"
	"time"

	"github.com/swarmrouter/core/pkg/models"
)

// Store is the full persistence contract the planner, executor, queue and
// API layers depend on. The concrete implementation is Postgres-backed
// (postgres.go); names of the underlying tables are not part of this
// contract (§6.2 "names are not normative").
type Store interface {
	// Runs
	CreateRun(ctx context.Context, run *models.Run) error
	GetRun(ctx context.Context, id string) (*models.Run, error)
	UpdateRun(ctx context.Context, run *models.Run) error
	ListActiveRuns(ctx context.Context) ([]*models.Run, error)
	ListRuns(ctx context.Context, status models.RunStatus, limit int) ([]*models.Run, error)

	// Nodes — CreateNodes is transactional per §4.3.3/§5 "Locking".
	CreateNodes(ctx context.Context, nodes []*models.Node) error
	GetNode(ctx context.Context, id string) (*models.Node, error)
	ListNodes(ctx context.Context, runID string) ([]*models.Node, error)
	UpdateNode(ctx context.Context, node *models.Node) error

	// Artifacts
	CreateArtifact(ctx context.Context, a *models.Artifact) error
	GetLatestArtifact(ctx context.Context, runID, nodeID string) (*models.Artifact, error)
	ListArtifacts(ctx context.Context, runID string) ([]*models.Artifact, error)

	// Events
	AppendEvent(ctx context.Context, e *models.Event) error
	LatestEvent(ctx context.Context, runID string) (*models.Event, error)
	ListEvents(ctx context.Context, runID string) ([]*models.Event, error)

	// Feedback
	RecordPersonalOutcome(ctx context.Context, model string, category models.Category, success bool) error
	RecordContextOutcome(ctx context.Context, model string, category models.Category, contextTag string, success bool) error
	RecordCommunityRating(ctx context.Context, model string, category models.Category, rating float64, now time.Time) (allowed bool, err error)
	PersonalScore(ctx context.Context, model string, category models.Category) (models.PersonalScore, error)
	ContextScore(ctx context.Context, model string, category models.Category, contextTag string) (models.ContextScore, error)
	CommunityScore(ctx context.Context, model string, category models.Category) (models.CommunityScore, error)

	// Ranker snapshot
	LoadRankerSnapshot(ctx context.Context) (json []byte, found bool, err error)
	SaveRankerSnapshot(ctx context.Context, json []byte) error

	Close()
}

// NodeSum sums node.CostUSD over a node slice — used by both the executor's
// cost-limit check and tests validating invariant 3 (§8).
func NodeSum(nodes []*models.Node) float64 {
	var sum float64
	for _, n := range nodes {
		sum += n.CostUSD
	}
	return sum
}
