// Package models holds the data types shared across the store, ranker,
// planner, executor and API layers: runs, nodes, artifacts, events, the
// ranker's enriched model catalog entries, and feedback rows.
package models

import "time"

// Mode selects how the planner expands a task into a DAG.
type Mode string

const (
	ModeSingle     Mode = "single"
	ModeCollective Mode = "collective"
	ModeCascade    Mode = "cascade"
	ModePlan       Mode = "plan"
	ModeSwarm      Mode = "swarm"
)

// ValidMode reports whether m is one of the five recognized modes.
func ValidMode(m Mode) bool {
	switch m {
	case ModeSingle, ModeCollective, ModeCascade, ModePlan, ModeSwarm:
		return true
	}
	return false
}

// Budget selects a price band for model selection.
type Budget string

const (
	BudgetLow    Budget = "low"
	BudgetMedium Budget = "medium"
	BudgetHigh   Budget = "high"
	BudgetAny    Budget = "any"
)

// ValidBudget reports whether b is one of the four recognized budgets.
func ValidBudget(b Budget) bool {
	switch b {
	case BudgetLow, BudgetMedium, BudgetHigh, BudgetAny:
		return true
	}
	return false
}

// RunStatus is the lifecycle state of a Run.
type RunStatus string

const (
	RunStatusQueued    RunStatus = "queued"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCanceled  RunStatus = "canceled"
)

// Terminal reports whether s is one of the run's terminal states.
func (s RunStatus) Terminal() bool {
	switch s {
	case RunStatusCompleted, RunStatusFailed, RunStatusCanceled:
		return true
	}
	return false
}

// RoleConfig composes a persona-enriched prompt per §6.5.
type RoleConfig struct {
	Persona    string   `json:"persona,omitempty"`
	Stack      []string `json:"stack,omitempty"`
	Domain     string   `json:"domain,omitempty"`
	Format     string   `json:"format,omitempty"`
	Guardrails []string `json:"guardrails,omitempty"`
}

// MergeConfig selects the terminal merge node's style and model.
type MergeConfig struct {
	Style string `json:"style,omitempty"`
	Model string `json:"model,omitempty"`
}

// Run is a single client-submitted task and its execution record.
type Run struct {
	ID              string      `json:"id"`
	Task            string      `json:"task"`
	Mode            Mode        `json:"mode"`
	Budget          Budget      `json:"budget"`
	Context         string      `json:"context,omitempty"`
	CollectiveCount int         `json:"collective_count,omitempty"`
	Role            *RoleConfig `json:"role,omitempty"`
	Merge           MergeConfig `json:"merge,omitempty"`
	Status          RunStatus   `json:"status"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
	StartedAt       *time.Time  `json:"started_at,omitempty"`
	FinishedAt      *time.Time  `json:"finished_at,omitempty"`
	Error           string      `json:"error,omitempty"`
	ParamsJSON      string      `json:"params_json,omitempty"`
}

// Progress summarizes node completion for run.status responses.
type Progress struct {
	Total   int     `json:"total"`
	Done    int     `json:"done"`
	Running int     `json:"running"`
	Failed  int     `json:"failed"`
	Percent float64 `json:"percent"`
}
