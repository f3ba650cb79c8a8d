package models

import "time"

// NodeKind distinguishes ordinary task nodes from the terminal merge node.
type NodeKind string

const (
	NodeKindTask  NodeKind = "task"
	NodeKindMerge NodeKind = "merge"
)

// NodeStatus is the lifecycle state of a Node.
type NodeStatus string

const (
	NodeStatusQueued    NodeStatus = "queued"
	NodeStatusRunning   NodeStatus = "running"
	NodeStatusCompleted NodeStatus = "completed"
	NodeStatusFailed    NodeStatus = "failed"
	NodeStatusCanceled  NodeStatus = "canceled"
	NodeStatusSkipped   NodeStatus = "skipped"
)

// Terminal reports whether s leaves the node no longer schedulable.
func (s NodeStatus) Terminal() bool {
	switch s {
	case NodeStatusCompleted, NodeStatusFailed, NodeStatusCanceled, NodeStatusSkipped:
		return true
	}
	return false
}

// TerminalGood reports whether s satisfies a dependent's admission rule
// ("dependency in terminal-good state" — §4.3.1).
func (s NodeStatus) TerminalGood() bool {
	return s == NodeStatusCompleted || s == NodeStatusSkipped
}

// MergedLocalID is the reserved local id of a run's terminal merge node.
const MergedLocalID = "merged"

// PlanLocalID is the reserved node id under which the plan artifact is filed.
const PlanLocalID = "plan"

// NodeMeta carries mode-specific hints the executor and planner exchange
// out of band of the strict DAG shape.
type NodeMeta struct {
	Mode           Mode   `json:"mode,omitempty"`
	Tier           string `json:"tier,omitempty"`
	Conditional    bool   `json:"conditional,omitempty"`
	MergeStyle     string `json:"mergeStyle,omitempty"`
	PlanningSource string `json:"planningSource,omitempty"`
}

// Node is a vertex in a run's DAG.
type Node struct {
	ID               string     `json:"id"`
	RunID            string     `json:"run_id"`
	LocalID          string     `json:"local_id"`
	Kind             NodeKind   `json:"kind"`
	Wave             int        `json:"wave"`
	DependsOn        []string   `json:"depends_on"`
	Task             string     `json:"task"`
	Model            string     `json:"model"`
	Prompt           string     `json:"prompt"`
	Meta             NodeMeta   `json:"meta"`
	Status           NodeStatus `json:"status"`
	RetryCount       int        `json:"retry_count"`
	MaxRetries       int        `json:"max_retries"`
	Error            string     `json:"error,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
	StartedAt        *time.Time `json:"started_at,omitempty"`
	FinishedAt       *time.Time `json:"finished_at,omitempty"`
	TokensPrompt     int        `json:"tokens_prompt"`
	TokensCompletion int        `json:"tokens_completion"`
	CostUSD          float64    `json:"cost_usd"`
}

// DefaultMaxRetries is the default per-node retry budget.
const DefaultMaxRetries = 2
