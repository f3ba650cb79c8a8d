// Package storetest provides an in-memory store.Store implementation for
// unit tests that need a real admission/execution path without a
// Postgres-backed test harness. Grounded on the teacher's mutex-guarded
// in-memory cache idiom (pkg/runbook/cache.go), generalized from a single
// map to the full persistence contract of pkg/store.Store.
package storetest

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/swarmrouter/core/pkg/models"
)

// Store is a goroutine-safe, process-local implementation of
// store.Store. Every method returns copies of its internal records so
// callers cannot mutate state behind the store's back.
type Store struct {
	mu sync.Mutex

	runs      map[string]*models.Run
	nodes     map[string]*models.Node
	artifacts []*models.Artifact
	events    []*models.Event

	personal  map[personalKey]models.PersonalScore
	context   map[contextKey]models.ContextScore
	community map[personalKey]models.CommunityScore

	snapshot      []byte
	snapshotFound bool
}

type personalKey struct {
	model    string
	category models.Category
}

type contextKey struct {
	model      string
	category   models.Category
	contextTag string
}

// New returns an empty fake store.
func New() *Store {
	return &Store{
		runs:      make(map[string]*models.Run),
		nodes:     make(map[string]*models.Node),
		personal:  make(map[personalKey]models.PersonalScore),
		context:   make(map[contextKey]models.ContextScore),
		community: make(map[personalKey]models.CommunityScore),
	}
}

func (s *Store) Close() {}

func (s *Store) CreateRun(_ context.Context, run *models.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	cp := *run
	s.runs[run.ID] = &cp
	return nil
}

func (s *Store) GetRun(_ context.Context, id string) (*models.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	run, ok := s.runs[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *run
	return &cp, nil
}

func (s *Store) UpdateRun(_ context.Context, run *models.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.runs[run.ID]; !ok {
		return models.ErrNotFound
	}
	cp := *run
	s.runs[run.ID] = &cp
	return nil
}

func (s *Store) ListActiveRuns(_ context.Context) ([]*models.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Run
	for _, run := range s.runs {
		if run.Status == models.RunStatusQueued || run.Status == models.RunStatusRunning {
			cp := *run
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) ListRuns(_ context.Context, status models.RunStatus, limit int) ([]*models.Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit <= 0 || limit > 200 {
		limit = 20
	}
	var out []*models.Run
	for _, run := range s.runs {
		if status != "" && run.Status != status {
			continue
		}
		cp := *run
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) CreateNodes(_ context.Context, nodes []*models.Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range nodes {
		cp := *n
		s.nodes[n.ID] = &cp
	}
	return nil
}

func (s *Store) GetNode(_ context.Context, id string) (*models.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.nodes[id]
	if !ok {
		return nil, models.ErrNotFound
	}
	cp := *n
	return &cp, nil
}

func (s *Store) ListNodes(_ context.Context, runID string) ([]*models.Node, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Node
	for _, n := range s.nodes {
		if n.RunID == runID {
			cp := *n
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Wave != out[j].Wave {
			return out[i].Wave < out[j].Wave
		}
		return out[i].LocalID < out[j].LocalID
	})
	return out, nil
}

func (s *Store) UpdateNode(_ context.Context, n *models.Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.nodes[n.ID]; !ok {
		return models.ErrNotFound
	}
	cp := *n
	s.nodes[n.ID] = &cp
	return nil
}

func (s *Store) CreateArtifact(_ context.Context, a *models.Artifact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *a
	s.artifacts = append(s.artifacts, &cp)
	return nil
}

func (s *Store) GetLatestArtifact(_ context.Context, runID, nodeID string) (*models.Artifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *models.Artifact
	for _, a := range s.artifacts {
		if a.RunID != runID || a.NodeID != nodeID {
			continue
		}
		if latest == nil || a.CreatedAt.After(latest.CreatedAt) {
			latest = a
		}
	}
	if latest == nil {
		return nil, models.ErrNotFound
	}
	cp := *latest
	return &cp, nil
}

func (s *Store) ListArtifacts(_ context.Context, runID string) ([]*models.Artifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Artifact
	for _, a := range s.artifacts {
		if a.RunID == runID {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) AppendEvent(_ context.Context, e *models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	cp := *e
	s.events = append(s.events, &cp)
	return nil
}

func (s *Store) LatestEvent(_ context.Context, runID string) (*models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *models.Event
	for _, e := range s.events {
		if e.RunID != runID {
			continue
		}
		if latest == nil || e.CreatedAt.After(latest.CreatedAt) {
			latest = e
		}
	}
	if latest == nil {
		return nil, models.ErrNotFound
	}
	cp := *latest
	return &cp, nil
}

func (s *Store) ListEvents(_ context.Context, runID string) ([]*models.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Event
	for _, e := range s.events {
		if e.RunID == runID {
			cp := *e
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) RecordPersonalOutcome(_ context.Context, model string, category models.Category, success bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := personalKey{model, category}
	ps := s.personal[key]
	ps.Model, ps.Category = model, category
	if success {
		ps.Successes++
	} else {
		ps.Failures++
	}
	s.personal[key] = ps
	return nil
}

func (s *Store) RecordContextOutcome(_ context.Context, model string, category models.Category, contextTag string, success bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := contextKey{model, category, contextTag}
	cs := s.context[key]
	cs.Model, cs.Category, cs.ContextTag = model, category, contextTag
	if success {
		cs.Successes++
	} else {
		cs.Failures++
	}
	s.context[key] = cs
	return nil
}

func (s *Store) RecordCommunityRating(_ context.Context, model string, category models.Category, rating float64, _ time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := personalKey{model, category}
	cs := s.community[key]
	cs.Model, cs.Category = model, category
	cs.TotalRatings++
	cs.SumRatings += rating
	cs.Contributors++
	s.community[key] = cs
	return true, nil
}

func (s *Store) PersonalScore(_ context.Context, model string, category models.Category) (models.PersonalScore, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ps, ok := s.personal[personalKey{model, category}]
	if !ok {
		return models.PersonalScore{Model: model, Category: category}, nil
	}
	return ps, nil
}

func (s *Store) ContextScore(_ context.Context, model string, category models.Category, contextTag string) (models.ContextScore, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cs, ok := s.context[contextKey{model, category, contextTag}]
	if !ok {
		return models.ContextScore{Model: model, Category: category, ContextTag: contextTag}, nil
	}
	return cs, nil
}

func (s *Store) CommunityScore(_ context.Context, model string, category models.Category) (models.CommunityScore, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cs, ok := s.community[personalKey{model, category}]
	if !ok {
		return models.CommunityScore{Model: model, Category: category}, nil
	}
	return cs, nil
}

func (s *Store) LoadRankerSnapshot(_ context.Context) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.snapshotFound {
		return nil, false, nil
	}
	blob := make([]byte, len(s.snapshot))
	copy(blob, s.snapshot)
	return blob, true, nil
}

func (s *Store) SaveRankerSnapshot(_ context.Context, blob []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = append([]byte(nil), blob...)
	s.snapshotFound = true
	return nil
}
