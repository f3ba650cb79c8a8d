package executor

import (
	"context"
	"strings"
	"time"

	"github.com/swarmrouter/core/pkg/models"
)

// retryableMarkers are the substrings that classify a failure as
// transient (§4.3.2 step 7, §7 taxonomy). Both "timeout" and "timed out"
// are listed explicitly: the completion client's deadline-exceeded error
// reads "... timed out after 1s: ...", which does not contain "timeout"
// as a substring, so the literal phrase is matched too. Per §5 a
// node-level timeout retries once by default.
var retryableMarkers = []string{"429", "timeout", "timed out", "temporarily"}

func shouldRetry(errText string) bool {
	lower := strings.ToLower(errText)
	for _, marker := range retryableMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return is5xxMarker(lower)
}

// is5xxMarker looks for a bare "5xx"-shaped HTTP status substring such as
// "500", "502", "503", "504" in the error text.
func is5xxMarker(lower string) bool {
	for _, code := range []string{"500", "502", "503", "504"} {
		if strings.Contains(lower, code) {
			return true
		}
	}
	return false
}

// handleNodeFailure classifies the error and either re-enqueues the node
// with a linear back-off (300·(retryCount+1) ms) or marks it permanently
// failed. Only task-nodes retry; merge-nodes fail permanently on first
// error (§4.3.4). Retry preserves every prior field except status and
// error.
func (e *Executor) handleNodeFailure(ctx context.Context, run *models.Run, node *models.Node, cause error) {
	errText := cause.Error()

	if node.Kind == models.NodeKindTask && shouldRetry(errText) && node.RetryCount < node.MaxRetries {
		node.RetryCount++
		node.Status = models.NodeStatusQueued
		node.Error = errText
		if err := e.store.UpdateNode(ctx, node); err != nil {
			e.log.Error("re-enqueuing node for retry", "node_id", node.ID, "error", err)
		}
		e.emit(ctx, run.ID, node.ID, models.EventWarning, "retrying: "+errText)
		time.Sleep(time.Duration(300*(node.RetryCount)) * time.Millisecond)
		return
	}

	node.Status = models.NodeStatusFailed
	node.Error = errText
	now := time.Now()
	node.FinishedAt = &now
	if err := e.store.UpdateNode(ctx, node); err != nil {
		e.log.Error("marking node failed", "node_id", node.ID, "error", err)
	}
	e.emit(ctx, run.ID, node.ID, models.EventError, errText)
}
