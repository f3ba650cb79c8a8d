package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/swarmrouter/core/pkg/models"
)

const dependencyContextCharLimit = 6000

// executeNode drives one ready node through its full lifecycle (§4.3.2).
func (e *Executor) executeNode(ctx context.Context, run *models.Run, node *models.Node) {
	if node.Kind == models.NodeKindMerge {
		e.executeMergeNode(ctx, run, node)
		return
	}

	if skipped, reason := e.cascadeSkip(ctx, run, node); skipped {
		node.Status = models.NodeStatusSkipped
		node.Error = ""
		now := time.Now()
		node.FinishedAt = &now
		if err := e.store.UpdateNode(ctx, node); err != nil {
			e.log.Error("marking node skipped", "node_id", node.ID, "error", err)
		}
		e.emit(ctx, run.ID, node.ID, models.EventInfo, reason)
		return
	}

	e.runTaskNode(ctx, run, node)
}

// cascadeSkip implements the cascade-premium skip rule: fires only for a
// premium, conditional cascade node whose cheap sibling completed with a
// raw output ≥500 trimmed characters (§4.3.2 step 1).
func (e *Executor) cascadeSkip(ctx context.Context, run *models.Run, node *models.Node) (bool, string) {
	if node.Meta.Mode != models.ModeCascade || node.Meta.Tier != "premium" || !node.Meta.Conditional {
		return false, ""
	}

	nodes, err := e.store.ListNodes(ctx, run.ID)
	if err != nil {
		return false, ""
	}
	var cheap *models.Node
	for _, n := range nodes {
		if n.LocalID == "cheap" {
			cheap = n
			break
		}
	}
	if cheap == nil || cheap.Status != models.NodeStatusCompleted {
		return false, ""
	}

	artifact, err := e.store.GetLatestArtifact(ctx, run.ID, cheap.ID)
	if err != nil || artifact == nil {
		return false, ""
	}
	body, err := e.artifacts.Read(artifact)
	if err != nil {
		return false, ""
	}
	var raw models.RawArtifactBody
	if err := json.Unmarshal(body, &raw); err != nil {
		return false, ""
	}
	if len(strings.TrimSpace(raw.Output)) >= 500 {
		return true, "Cascade cheap output passed quality gate"
	}
	return false, ""
}

// runTaskNode transitions a task-node through running -> completed/failed,
// including the dependency-context build, the completion call, artifact
// write, cost-limit check, and retry classification (§4.3.2 steps 2-7).
func (e *Executor) runTaskNode(ctx context.Context, run *models.Run, node *models.Node) {
	node.Status = models.NodeStatusRunning
	now := time.Now()
	node.StartedAt = &now
	if err := e.store.UpdateNode(ctx, node); err != nil {
		e.log.Error("marking node running", "node_id", node.ID, "error", err)
		return
	}
	e.emit(ctx, run.ID, node.ID, models.EventInfo, "node started")

	prompt, err := e.buildDependencyContext(ctx, run.ID, node)
	if err != nil {
		e.log.Error("building dependency context", "node_id", node.ID, "error", err)
		prompt = node.Prompt
	}

	callCtx, cancel := context.WithTimeout(ctx, time.Duration(e.cfg.NodeTimeoutSeconds)*time.Second)
	result, err := e.completion.Complete(callCtx, node.Model, prompt)
	cancel()

	if err != nil {
		e.handleNodeFailure(ctx, run, node, err)
		return
	}

	costUSD := e.estimateCost(node.Model, result.Usage)
	body := models.RawArtifactBody{
		RunID:      run.ID,
		NodeID:     node.ID,
		Model:      node.Model,
		Task:       node.Task,
		Output:     result.Content,
		Tokens:     result.Usage,
		CostUSD:    costUSD,
		FinishedAt: time.Now(),
	}
	payload, err := json.Marshal(body)
	if err != nil {
		e.handleNodeFailure(ctx, run, node, fmt.Errorf("marshaling raw artifact: %w", err))
		return
	}
	artifact, err := e.artifacts.Write(run.ID, node.ID, models.ArtifactRaw, payload)
	if err != nil {
		e.handleNodeFailure(ctx, run, node, fmt.Errorf("writing raw artifact: %w", err))
		return
	}
	if err := e.store.CreateArtifact(ctx, artifact); err != nil {
		e.handleNodeFailure(ctx, run, node, fmt.Errorf("recording raw artifact: %w", err))
		return
	}

	node.Status = models.NodeStatusCompleted
	node.TokensPrompt = result.Usage.Prompt
	node.TokensCompletion = result.Usage.Completion
	node.CostUSD = costUSD
	finished := time.Now()
	node.FinishedAt = &finished
	node.Error = ""
	if err := e.store.UpdateNode(ctx, node); err != nil {
		e.log.Error("marking node completed", "node_id", node.ID, "error", err)
		return
	}
	e.emit(ctx, run.ID, node.ID, models.EventInfo, "node completed")

	e.checkBudget(ctx, run)
}

// buildDependencyContext concatenates each predecessor's raw artifact
// content (truncated to 6000 chars, with a "[truncated N chars]" marker
// when cut) under a "## Dependency context" header, prepended to the
// node's composed prompt. A node with no predecessors uses its prompt
// verbatim (§4.3.2 step 3).
func (e *Executor) buildDependencyContext(ctx context.Context, runID string, node *models.Node) (string, error) {
	if len(node.DependsOn) == 0 {
		return node.Prompt, nil
	}

	var sb strings.Builder
	sb.WriteString("## Dependency context\n\n")
	for _, depID := range node.DependsOn {
		artifact, err := e.store.GetLatestArtifact(ctx, runID, depID)
		if err != nil || artifact == nil {
			continue
		}
		body, err := e.artifacts.Read(artifact)
		if err != nil {
			continue
		}
		content := extractOutput(body)
		truncated, cut := truncateWithMarker(content, dependencyContextCharLimit)
		sb.WriteString(truncated)
		if cut {
			sb.WriteString(fmt.Sprintf(" [truncated %d chars]", len(content)-dependencyContextCharLimit))
		}
		sb.WriteString("\n\n")
	}
	sb.WriteString(node.Prompt)
	return sb.String(), nil
}

// extractOutput reads the "output" field of a raw artifact's JSON body,
// falling back to the raw bytes if parsing fails.
func extractOutput(body []byte) string {
	var raw models.RawArtifactBody
	if err := json.Unmarshal(body, &raw); err == nil {
		return raw.Output
	}
	return string(body)
}

func truncateWithMarker(s string, limit int) (string, bool) {
	if len(s) <= limit {
		return s, false
	}
	return s[:limit], true
}

// defaultPricing applies when a model's per-token pricing is unknown
// (§4.3.2 step 5: conservative $1/$3 per 1M prompt/completion tokens).
var defaultPricing = models.Pricing{Prompt: 1, Completion: 3}

func (e *Executor) estimateCost(model string, usage models.TokenUsage) float64 {
	p := defaultPricing
	if e.pricing != nil {
		if known, ok := e.pricing(model); ok {
			p = known
		}
	}
	return (float64(usage.Prompt)*p.Prompt + float64(usage.Completion)*p.Completion) / 1_000_000
}

// checkBudget recomputes the run's total cost after a node completes; if it
// strictly exceeds maxUsdPerRun, the run is canceled with a non-retryable
// reason. This happens after the node's own cost was recorded, so a single
// node overrun is tolerated (§4.3.2 step 6).
func (e *Executor) checkBudget(ctx context.Context, run *models.Run) {
	nodes, err := e.store.ListNodes(ctx, run.ID)
	if err != nil {
		e.log.Error("listing nodes for budget check", "run_id", run.ID, "error", err)
		return
	}
	total := 0.0
	for _, n := range nodes {
		total += n.CostUSD
	}
	if total <= e.cfg.MaxUSDPerRun {
		return
	}

	fresh, err := e.store.GetRun(ctx, run.ID)
	if err != nil || fresh.Status.Terminal() {
		return
	}
	fresh.Status = models.RunStatusCanceled
	fresh.Error = "Budget limit reached"
	now := time.Now()
	fresh.FinishedAt = &now
	if err := e.store.UpdateRun(ctx, fresh); err != nil {
		e.log.Error("canceling run over budget", "run_id", run.ID, "error", err)
		return
	}
	e.emit(ctx, run.ID, "", models.EventWarning, "Budget limit reached")
}
