package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swarmrouter/core/pkg/artifactstore"
	"github.com/swarmrouter/core/pkg/executor"
	"github.com/swarmrouter/core/pkg/models"
	"github.com/swarmrouter/core/pkg/planner"
	"github.com/swarmrouter/core/pkg/queue"
	"github.com/swarmrouter/core/pkg/store/storetest"
)

// newTestServer wires a fake in-memory store, a real nil-ranker planner, a
// real executor and a real tempdir-backed artifact store into a *Server,
// mirroring production wiring minus the background admission loop (tests
// never call admitter.Run, so no run is ever admitted or planned: CreateRun
// only persists the run in the queued state).
func newTestServer(t *testing.T) (*Server, *storetest.Store) {
	t.Helper()
	st := storetest.New()
	artifacts, err := artifactstore.New(t.TempDir())
	require.NoError(t, err)

	pl := planner.New(nil)
	ex := executor.New(st, artifacts, nil, nil, executor.Config{})
	admitter := queue.New(st, artifacts, pl, ex, queue.Config{})

	return NewServer(st, artifacts, admitter, nil, true), st
}

func doJSON(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	return rec
}

func TestCreateRunHandler(t *testing.T) {
	t.Run("valid single-mode request is admitted", func(t *testing.T) {
		s, _ := newTestServer(t)
		rec := doJSON(t, s, http.MethodPost, "/runs", createRunRequest{
			Task: "summarize this doc", Mode: models.ModeSingle,
		})
		require.Equal(t, http.StatusOK, rec.Code)

		var resp createRunResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.NotEmpty(t, resp.RunID)
		assert.Equal(t, string(models.RunStatusQueued), resp.Status)
	})

	t.Run("invalid mode is rejected", func(t *testing.T) {
		s, _ := newTestServer(t)
		rec := doJSON(t, s, http.MethodPost, "/runs", createRunRequest{
			Task: "x", Mode: "not-a-mode",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		var body errorEnvelope
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, string(models.CodeInvalidParam), body.Error.Code)
	})

	t.Run("invalid budget is rejected", func(t *testing.T) {
		s, _ := newTestServer(t)
		rec := doJSON(t, s, http.MethodPost, "/runs", createRunRequest{
			Task: "x", Mode: models.ModeSingle, Budget: "outrageous",
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing task fails JSON binding", func(t *testing.T) {
		s, _ := newTestServer(t)
		rec := doJSON(t, s, http.MethodPost, "/runs", createRunRequest{
			Mode: models.ModeSingle,
		})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestGetRunStatusHandler(t *testing.T) {
	s, _ := newTestServer(t)
	createRec := doJSON(t, s, http.MethodPost, "/runs", createRunRequest{
		Task: "do a thing", Mode: models.ModeSingle,
	})
	require.Equal(t, http.StatusOK, createRec.Code)
	var created createRunResponse
	require.NoError(t, json.Unmarshal(createRec.Body.Bytes(), &created))

	t.Run("reports empty progress before the run is planned", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/runs/"+created.RunID, nil)
		s.engine.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp runStatusResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, string(models.RunStatusQueued), resp.Status)
		assert.Equal(t, 0, resp.Progress.Total)
	})

	t.Run("unknown run id is a 404", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/runs/does-not-exist", nil)
		s.engine.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestCancelRunHandler(t *testing.T) {
	s, _ := newTestServer(t)
	createRec := doJSON(t, s, http.MethodPost, "/runs", createRunRequest{
		Task: "cancel me", Mode: models.ModeSingle,
	})
	var created createRunResponse
	require.NoError(t, json.Unmarshal(createRec.Body.Bytes(), &created))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/runs/"+created.RunID+"/cancel", nil)
	s.engine.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp cancelRunResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, created.RunID, resp.RunID)
	assert.Equal(t, string(models.RunStatusCanceled), resp.Status)

	t.Run("re-canceling an already-canceled run is a no-op", func(t *testing.T) {
		rec2 := httptest.NewRecorder()
		req2 := httptest.NewRequest(http.MethodPost, "/runs/"+created.RunID+"/cancel", nil)
		s.engine.ServeHTTP(rec2, req2)
		require.Equal(t, http.StatusOK, rec2.Code)

		var resp2 cancelRunResponse
		require.NoError(t, json.Unmarshal(rec2.Body.Bytes(), &resp2))
		assert.Equal(t, string(models.RunStatusCanceled), resp2.Status)
	})

	t.Run("unknown run id is a 404", func(t *testing.T) {
		rec3 := httptest.NewRecorder()
		req3 := httptest.NewRequest(http.MethodPost, "/runs/does-not-exist/cancel", nil)
		s.engine.ServeHTTP(rec3, req3)
		assert.Equal(t, http.StatusNotFound, rec3.Code)
	})
}

func TestListRunsHandler(t *testing.T) {
	s, _ := newTestServer(t)
	for _, task := range []string{"a", "b", "c"} {
		rec := doJSON(t, s, http.MethodPost, "/runs", createRunRequest{Task: task, Mode: models.ModeSingle})
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/runs", nil)
	s.engine.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp listRunsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Runs, 3)
}

func TestGetRunResultHandler(t *testing.T) {
	s, _ := newTestServer(t)
	createRec := doJSON(t, s, http.MethodPost, "/runs", createRunRequest{
		Task: "result please", Mode: models.ModeSingle,
	})
	var created createRunResponse
	require.NoError(t, json.Unmarshal(createRec.Body.Bytes(), &created))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/runs/"+created.RunID+"/result", nil)
	s.engine.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp runResultResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, string(models.RunStatusQueued), resp.Status)
	require.Empty(t, resp.Artifacts, "the plan artifact is written on admission, which these tests never trigger")
	assert.Empty(t, resp.MergedOutput, "nothing is merged for a run that has not been admitted")
}

func TestGetArtifactHandler(t *testing.T) {
	s, _ := newTestServer(t)

	t.Run("missing artifact is a 404", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/artifacts/run-x/node-x", nil)
		s.engine.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestHealthHandler(t *testing.T) {
	t.Run("healthy when store, artifacts and worker are wired", func(t *testing.T) {
		s, _ := newTestServer(t)
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		s.engine.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)

		var resp healthResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.True(t, resp.CompletionConfigured)
		assert.True(t, resp.StoreWritable)
		assert.True(t, resp.ArtifactWritable)
		assert.True(t, resp.WorkerAlive)
		assert.False(t, resp.RankingReachable, "ranker is nil in this harness")
	})

	t.Run("unavailable when completion is not configured", func(t *testing.T) {
		st := storetest.New()
		artifacts, err := artifactstore.New(t.TempDir())
		require.NoError(t, err)
		pl := planner.New(nil)
		ex := executor.New(st, artifacts, nil, nil, executor.Config{})
		admitter := queue.New(st, artifacts, pl, ex, queue.Config{})
		s := NewServer(st, artifacts, admitter, nil, false)

		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		s.engine.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}
