package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swarmrouter/core/pkg/models"
	"github.com/swarmrouter/core/test/dbtest"
)

func seedRun(t *testing.T, st interface {
	CreateRun(ctx context.Context, run *models.Run) error
}, id string) {
	t.Helper()
	now := time.Now().UTC().Truncate(time.Microsecond)
	require.NoError(t, st.CreateRun(context.Background(), &models.Run{
		ID: id, Task: "x", Mode: models.ModeCascade, Budget: models.BudgetAny,
		Status: models.RunStatusQueued, CreatedAt: now, UpdatedAt: now,
	}))
}

func newNode(runID, id, localID string, wave int, dependsOn ...string) *models.Node {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &models.Node{
		ID: id, RunID: runID, LocalID: localID, Kind: models.NodeKindTask, Wave: wave,
		DependsOn: dependsOn, Task: "do part " + localID, Model: "acme/flagship",
		Status: models.NodeStatusQueued, MaxRetries: models.DefaultMaxRetries,
		CreatedAt: now, UpdatedAt: now,
	}
}

func TestPostgresCreateNodesIsTransactional(t *testing.T) {
	st := dbtest.NewTestStore(t)
	seedRun(t, st, "run-nodes-1")

	nodes := []*models.Node{
		newNode("run-nodes-1", "run-nodes-1:a", "a", 0),
		newNode("run-nodes-1", "run-nodes-1:b", "b", 1, "run-nodes-1:a"),
	}
	require.NoError(t, st.CreateNodes(context.Background(), nodes))

	got, err := st.ListNodes(context.Background(), "run-nodes-1")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].LocalID, "ordered by wave then local_id")
	assert.Equal(t, "b", got[1].LocalID)
	assert.Equal(t, []string{"run-nodes-1:a"}, got[1].DependsOn)
}

func TestPostgresCreateNodesEmptySliceIsNoop(t *testing.T) {
	st := dbtest.NewTestStore(t)
	require.NoError(t, st.CreateNodes(context.Background(), nil))
}

func TestPostgresGetNodeMissingReturnsErrNotFound(t *testing.T) {
	st := dbtest.NewTestStore(t)
	_, err := st.GetNode(context.Background(), "does-not-exist")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestPostgresUpdateNode(t *testing.T) {
	st := dbtest.NewTestStore(t)
	ctx := context.Background()
	seedRun(t, st, "run-nodes-2")

	node := newNode("run-nodes-2", "run-nodes-2:a", "a", 0)
	require.NoError(t, st.CreateNodes(ctx, []*models.Node{node}))

	node.Status = models.NodeStatusCompleted
	node.TokensPrompt = 100
	node.TokensCompletion = 50
	node.CostUSD = 0.02
	require.NoError(t, st.UpdateNode(ctx, node))

	got, err := st.GetNode(ctx, "run-nodes-2:a")
	require.NoError(t, err)
	assert.Equal(t, models.NodeStatusCompleted, got.Status)
	assert.Equal(t, 100, got.TokensPrompt)
	assert.InDelta(t, 0.02, got.CostUSD, 1e-9)
}

func TestPostgresUpdateNodeMissingReturnsErrNotFound(t *testing.T) {
	st := dbtest.NewTestStore(t)
	err := st.UpdateNode(context.Background(), newNode("run-x", "run-x:missing", "missing", 0))
	assert.ErrorIs(t, err, models.ErrNotFound)
}
