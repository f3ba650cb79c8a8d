package models_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/swarmrouter/core/pkg/models"
)

func TestArtifactTypeExt(t *testing.T) {
	cases := []struct {
		typ  models.ArtifactType
		want string
	}{
		{models.ArtifactPlan, "json"},
		{models.ArtifactRaw, "json"},
		{models.ArtifactMerged, "md"},
		{models.ArtifactLog, "txt"},
		{models.ArtifactType("unknown"), "txt"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.typ.Ext(), "%s", tc.typ)
	}
}
