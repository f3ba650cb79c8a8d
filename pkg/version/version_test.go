package version_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/swarmrouter/core/pkg/version"
)

func TestFullCombinesAppNameAndCommit(t *testing.T) {
	full := version.Full()
	assert.True(t, strings.HasPrefix(full, version.AppName+"/"), "expected %q to start with %q", full, version.AppName+"/")
	assert.Equal(t, version.AppName+"/"+version.GitCommit, full)
}
