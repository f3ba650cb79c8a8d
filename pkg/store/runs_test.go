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

func newRun(id string, status models.RunStatus) *models.Run {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &models.Run{
		ID:        id,
		Task:      "summarize the quarterly report",
		Mode:      models.ModeSingle,
		Budget:    models.BudgetMedium,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestPostgresCreateAndGetRun(t *testing.T) {
	st := dbtest.NewTestStore(t)
	ctx := context.Background()

	run := newRun("run-1", models.RunStatusQueued)
	run.Role = &models.RoleConfig{Persona: "reviewer", Stack: []string{"go"}}
	require.NoError(t, st.CreateRun(ctx, run))

	got, err := st.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, run.Task, got.Task)
	assert.Equal(t, models.ModeSingle, got.Mode)
	assert.Equal(t, models.RunStatusQueued, got.Status)
	require.NotNil(t, got.Role)
	assert.Equal(t, "reviewer", got.Role.Persona)
	assert.Equal(t, []string{"go"}, got.Role.Stack)
}

func TestPostgresGetRunMissingReturnsErrNotFound(t *testing.T) {
	st := dbtest.NewTestStore(t)
	_, err := st.GetRun(context.Background(), "does-not-exist")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestPostgresUpdateRun(t *testing.T) {
	st := dbtest.NewTestStore(t)
	ctx := context.Background()

	run := newRun("run-2", models.RunStatusQueued)
	require.NoError(t, st.CreateRun(ctx, run))

	run.Status = models.RunStatusRunning
	now := time.Now().UTC().Truncate(time.Microsecond)
	run.StartedAt = &now
	require.NoError(t, st.UpdateRun(ctx, run))

	got, err := st.GetRun(ctx, "run-2")
	require.NoError(t, err)
	assert.Equal(t, models.RunStatusRunning, got.Status)
	require.NotNil(t, got.StartedAt)
}

func TestPostgresUpdateRunMissingReturnsErrNotFound(t *testing.T) {
	st := dbtest.NewTestStore(t)
	err := st.UpdateRun(context.Background(), newRun("missing-run", models.RunStatusQueued))
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestPostgresListActiveRunsExcludesTerminalRuns(t *testing.T) {
	st := dbtest.NewTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Microsecond)
	queued := newRun("active-1", models.RunStatusQueued)
	queued.CreatedAt = base
	running := newRun("active-2", models.RunStatusRunning)
	running.CreatedAt = base.Add(time.Second)
	done := newRun("done-1", models.RunStatusCompleted)
	done.CreatedAt = base.Add(2 * time.Second)

	for _, r := range []*models.Run{queued, running, done} {
		require.NoError(t, st.CreateRun(ctx, r))
	}

	active, err := st.ListActiveRuns(ctx)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, "active-1", active[0].ID, "ordered oldest first")
	assert.Equal(t, "active-2", active[1].ID)
}

func TestPostgresListRunsFiltersByStatusAndLimit(t *testing.T) {
	st := dbtest.NewTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Microsecond)
	for i, status := range []models.RunStatus{
		models.RunStatusCompleted, models.RunStatusFailed, models.RunStatusCompleted,
	} {
		run := newRun(idFor(i), status)
		run.CreatedAt = base.Add(time.Duration(i) * time.Second)
		require.NoError(t, st.CreateRun(ctx, run))
	}

	completed, err := st.ListRuns(ctx, models.RunStatusCompleted, 200)
	require.NoError(t, err)
	assert.Len(t, completed, 2)

	limited, err := st.ListRuns(ctx, "", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func idFor(i int) string {
	return "run-list-" + string(rune('a'+i))
}
