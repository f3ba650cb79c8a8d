package ranker

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swarmrouter/core/pkg/models"
)

func TestLoadOverridesEmptyPath(t *testing.T) {
	o, err := LoadOverrides("")
	require.NoError(t, err)
	assert.NotNil(t, o.Models)
	assert.Empty(t, o.Models)
}

func TestLoadOverridesMissingFile(t *testing.T) {
	o, err := LoadOverrides(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Empty(t, o.Models)
}

func TestLoadOverridesParsesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "overrides.yaml")
	writeFile(t, path, `
models:
  acme/flagship:
    categories: [coding, reasoning]
    scores:
      coding: 150
      reasoning: -10
`)

	o, err := LoadOverrides(path)
	require.NoError(t, err)
	require.Contains(t, o.Models, "acme/flagship")
	override := o.Models["acme/flagship"]
	assert.ElementsMatch(t, []string{"coding", "reasoning"}, override.Categories)
	assert.Equal(t, 150.0, override.Scores["coding"])
	assert.Equal(t, -10.0, override.Scores["reasoning"])
}

func TestApplyOverrides(t *testing.T) {
	cat := emptyCatalog()
	cat.Models["acme/flagship"] = &models.EnrichedModel{
		ID:         "acme/flagship",
		Categories: map[models.Category]bool{models.CategoryGeneral: true},
		Scores:     map[models.Category]float64{models.CategoryGeneral: 80},
	}

	overrides := &Overrides{Models: map[string]ModelOverride{
		"acme/flagship": {
			Categories: []string{"coding"},
			Scores:     map[string]float64{"coding": 200, "reasoning": -50},
		},
		"unknown/model": {Categories: []string{"coding"}},
	}}

	applyOverrides(cat, overrides)

	got := cat.Models["acme/flagship"]
	assert.True(t, got.HasCategory(models.CategoryGeneral), "existing categories are preserved")
	assert.True(t, got.HasCategory(models.CategoryCoding), "override adds new categories")
	assert.Equal(t, 100.0, got.Scores[models.CategoryCoding], "scores are clamped to [0,100]")
	assert.Equal(t, 0.0, got.Scores[models.CategoryReasoning], "scores are clamped to [0,100]")
}

func TestLoadAliasesNormalizesKeys(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "aliases.yaml")
	writeFile(t, path, `
"GPT-4 Omni": openai/gpt-4o
Claude 3.5 Sonnet: anthropic/claude-3.5-sonnet
`)

	aliases, err := LoadAliases(path)
	require.NoError(t, err)
	assert.Equal(t, "openai/gpt-4o", aliases[normalizeNameKey("GPT-4 Omni")])
	assert.Equal(t, "anthropic/claude-3.5-sonnet", aliases[normalizeNameKey("Claude 3.5 Sonnet")])
}

func TestLoadAliasesEmptyPath(t *testing.T) {
	aliases, err := LoadAliases("")
	require.NoError(t, err)
	assert.Empty(t, aliases)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}
