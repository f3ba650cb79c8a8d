package models_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/swarmrouter/core/pkg/models"
)

func TestNodeStatusTerminal(t *testing.T) {
	for _, s := range []models.NodeStatus{
		models.NodeStatusCompleted, models.NodeStatusFailed,
		models.NodeStatusCanceled, models.NodeStatusSkipped,
	} {
		assert.True(t, s.Terminal(), "%s should be terminal", s)
	}
	for _, s := range []models.NodeStatus{models.NodeStatusQueued, models.NodeStatusRunning} {
		assert.False(t, s.Terminal(), "%s should not be terminal", s)
	}
}

func TestNodeStatusTerminalGood(t *testing.T) {
	assert.True(t, models.NodeStatusCompleted.TerminalGood())
	assert.True(t, models.NodeStatusSkipped.TerminalGood())
	assert.False(t, models.NodeStatusFailed.TerminalGood(), "a failed dependency does not satisfy admission")
	assert.False(t, models.NodeStatusCanceled.TerminalGood())
	assert.False(t, models.NodeStatusRunning.TerminalGood())
}
