package executor

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/swarmrouter/core/pkg/models"
)

const mergeDependencyCharLimit = 10000

// executeMergeNode builds the merge prompt from every dependency's raw
// artifact (truncated to 10000 chars each), calls the completion endpoint,
// and writes the merged artifact (§4.3.2 "For a merge-node").
func (e *Executor) executeMergeNode(ctx context.Context, run *models.Run, node *models.Node) {
	node.Status = models.NodeStatusRunning
	now := time.Now()
	node.StartedAt = &now
	if err := e.store.UpdateNode(ctx, node); err != nil {
		e.log.Error("marking merge node running", "node_id", node.ID, "error", err)
		return
	}
	e.emit(ctx, run.ID, node.ID, models.EventInfo, "merge started")

	style := node.Meta.MergeStyle
	if style == "" {
		style = "detailed"
	}
	prompt := e.buildMergePrompt(ctx, run, node, style)

	model := node.Model
	if model == "" {
		model = run.Merge.Model
	}

	callCtx, cancel := context.WithTimeout(ctx, time.Duration(e.cfg.NodeTimeoutSeconds)*time.Second)
	result, err := e.completion.Complete(callCtx, model, prompt)
	cancel()
	if err != nil {
		node.Status = models.NodeStatusFailed
		node.Error = err.Error()
		finished := time.Now()
		node.FinishedAt = &finished
		if uerr := e.store.UpdateNode(ctx, node); uerr != nil {
			e.log.Error("marking merge node failed", "node_id", node.ID, "error", uerr)
		}
		e.emit(ctx, run.ID, node.ID, models.EventError, err.Error())
		return
	}

	content := "# Merged Output\n\n" + strings.TrimSpace(result.Content)
	artifact, err := e.artifacts.Write(run.ID, models.MergedLocalID, models.ArtifactMerged, []byte(content))
	if err != nil {
		e.log.Error("writing merged artifact", "node_id", node.ID, "error", err)
		return
	}
	if err := e.store.CreateArtifact(ctx, artifact); err != nil {
		e.log.Error("recording merged artifact", "node_id", node.ID, "error", err)
		return
	}

	node.Status = models.NodeStatusCompleted
	node.CostUSD = e.estimateCost(model, result.Usage)
	node.TokensPrompt = result.Usage.Prompt
	node.TokensCompletion = result.Usage.Completion
	node.Error = ""
	finished := time.Now()
	node.FinishedAt = &finished
	if err := e.store.UpdateNode(ctx, node); err != nil {
		e.log.Error("marking merge node completed", "node_id", node.ID, "error", err)
		return
	}
	e.emit(ctx, run.ID, node.ID, models.EventInfo, "merge completed")
	e.checkBudget(ctx, run)
}

// buildMergePrompt constructs the fixed-preamble merge prompt (§4.3.2 step 2).
func (e *Executor) buildMergePrompt(ctx context.Context, run *models.Run, node *models.Node, style string) string {
	var inputs strings.Builder
	for _, depID := range node.DependsOn {
		artifact, err := e.store.GetLatestArtifact(ctx, run.ID, depID)
		if err != nil || artifact == nil {
			continue
		}
		body, err := e.artifacts.Read(artifact)
		if err != nil {
			continue
		}
		content := extractOutput(body)
		truncated, _ := truncateWithMarker(content, mergeDependencyCharLimit)
		inputs.WriteString("- ")
		inputs.WriteString(truncated)
		inputs.WriteString("\n")
	}

	return fmt.Sprintf(
		"You are merging outputs from multiple sub-agents for task: %s\nOutput style: %s.\nProduce one final answer, remove conflicts, and include the strongest concrete recommendations.\nInputs:\n%s",
		run.Task, style, inputs.String(),
	)
}

// ensureMergedArtifact guarantees a merged artifact exists before a run is
// marked completed: if a merge-node exists and produced one, nothing to
// do. Otherwise (single mode, or a merge-node that failed to produce an
// artifact), synthesize one from the chronologically latest raw artifact
// (§4.3.5).
func (e *Executor) ensureMergedArtifact(ctx context.Context, run *models.Run, nodes []*models.Node) error {
	existing, err := e.store.GetLatestArtifact(ctx, run.ID, models.MergedLocalID)
	if err == nil && existing != nil {
		return nil
	}

	latest := latestRawNode(nodes)
	if latest == nil {
		return fmt.Errorf("no raw artifact available to synthesize a merged output from")
	}

	artifact, err := e.store.GetLatestArtifact(ctx, run.ID, latest.ID)
	if err != nil || artifact == nil {
		return fmt.Errorf("loading latest raw artifact for synthesis: %w", err)
	}
	body, err := e.artifacts.Read(artifact)
	if err != nil {
		return fmt.Errorf("reading latest raw artifact for synthesis: %w", err)
	}

	output := extractOutput(body)
	content := "# Merged Output\n\n" + strings.TrimSpace(output) + "\n"

	merged, err := e.artifacts.Write(run.ID, models.MergedLocalID, models.ArtifactMerged, []byte(content))
	if err != nil {
		return fmt.Errorf("writing synthesized merged artifact: %w", err)
	}
	if err := e.store.CreateArtifact(ctx, merged); err != nil {
		return fmt.Errorf("recording synthesized merged artifact: %w", err)
	}
	return nil
}

// latestRawNode returns the chronologically last completed task-node by
// FinishedAt.
func latestRawNode(nodes []*models.Node) *models.Node {
	var candidates []*models.Node
	for _, n := range nodes {
		if n.Kind == models.NodeKindTask && n.Status == models.NodeStatusCompleted && n.FinishedAt != nil {
			candidates = append(candidates, n)
		}
	}
	if len(candidates) == 0 {
		return nil
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].FinishedAt.After(*candidates[j].FinishedAt)
	})
	return candidates[0]
}
