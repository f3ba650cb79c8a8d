package api

import "time"

// createRunResponse is run.create's output (§6.1).
type createRunResponse struct {
	RunID     string    `json:"run_id"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// progressResponse mirrors run.status's progress.{...} fields.
type progressResponse struct {
	Total   int     `json:"total"`
	Done    int     `json:"done"`
	Running int     `json:"running"`
	Failed  int     `json:"failed"`
	Percent float64 `json:"percent"`
}

// runStatusResponse is run.status's output (§6.1).
type runStatusResponse struct {
	Status    string           `json:"status"`
	Progress  progressResponse `json:"progress"`
	LastEvent string           `json:"last_event,omitempty"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// artifactSummary is one entry of run.result's artifacts[] field.
type artifactSummary struct {
	NodeID    string    `json:"node_id"`
	Type      string    `json:"type"`
	Bytes     int64     `json:"bytes"`
	SHA256    string    `json:"sha256"`
	CreatedAt time.Time `json:"created_at"`
}

// costSummary mirrors run.result's cost.{...} fields.
type costSummary struct {
	Prompt     int     `json:"prompt"`
	Completion int     `json:"completion"`
	USD        float64 `json:"usd"`
}

// runResultResponse is run.result's output (§6.1).
type runResultResponse struct {
	Status       string            `json:"status"`
	MergedOutput string            `json:"merged_output,omitempty"`
	Summary      string            `json:"summary,omitempty"`
	Artifacts    []artifactSummary `json:"artifacts"`
	Cost         costSummary       `json:"cost"`
	RawOutputs   []rawOutputEntry  `json:"raw_outputs,omitempty"`
}

// rawOutputEntry is one entry of run.result's optional raw_outputs[],
// truncated to 12000 chars each (§6.1).
type rawOutputEntry struct {
	NodeID string `json:"node_id"`
	Model  string `json:"model"`
	Output string `json:"output"`
}

// cancelRunResponse is run.cancel's output (§6.1).
type cancelRunResponse struct {
	RunID  string `json:"run_id"`
	Status string `json:"status"`
}

// runSummary is one entry of run.list's runs[] field.
type runSummary struct {
	RunID     string    `json:"run_id"`
	Task      string    `json:"task"`
	Mode      string    `json:"mode"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

type listRunsResponse struct {
	Runs []runSummary `json:"runs"`
}

// artifactMetadata mirrors artifact.get's metadata.{...} fields.
type artifactMetadata struct {
	Bytes     int64     `json:"bytes"`
	SHA256    string    `json:"sha256"`
	CreatedAt time.Time `json:"createdAt"`
	Path      string    `json:"path"`
}

// getArtifactResponse is artifact.get's output (§6.1).
type getArtifactResponse struct {
	ArtifactType string           `json:"artifact_type"`
	Content      string           `json:"content"`
	Metadata     artifactMetadata `json:"metadata"`
}

// healthResponse is health's output (§6.1).
type healthResponse struct {
	Version              string `json:"version"`
	CompletionConfigured bool   `json:"completion_configured"`
	RankingReachable     bool   `json:"ranking_reachable"`
	StoreWritable        bool   `json:"store_writable"`
	ArtifactWritable     bool   `json:"artifact_writable"`
	WorkerAlive          bool   `json:"worker_alive"`
}
