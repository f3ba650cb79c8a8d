package ranker

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/swarmrouter/core/pkg/models"
)

// ModelOverride sets categories or scores for one model id by hand,
// authoritative over any computed value (§4.1.1 "A final YAML-loaded
// override file may set categories or scores by id; overrides are
// authoritative").
type ModelOverride struct {
	Categories []string           `yaml:"categories"`
	Scores     map[string]float64 `yaml:"scores"`
}

// Overrides is the top-level shape of the YAML override asset, keyed by
// model id.
type Overrides struct {
	Models map[string]ModelOverride `yaml:"models"`
}

// LoadOverrides reads and parses the override YAML at path. A missing file
// is not an error — overrides are optional.
func LoadOverrides(path string) (*Overrides, error) {
	if path == "" {
		return &Overrides{Models: map[string]ModelOverride{}}, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Overrides{Models: map[string]ModelOverride{}}, nil
		}
		return nil, fmt.Errorf("reading overrides file %s: %w", path, err)
	}

	var o Overrides
	if err := yaml.Unmarshal(raw, &o); err != nil {
		return nil, fmt.Errorf("parsing overrides file %s: %w", path, err)
	}
	if o.Models == nil {
		o.Models = map[string]ModelOverride{}
	}
	return &o, nil
}

func applyOverrides(cat *Catalog, overrides *Overrides) {
	for id, override := range overrides.Models {
		em, ok := cat.Models[id]
		if !ok {
			continue
		}
		for _, catName := range override.Categories {
			em.Categories[models.Category(catName)] = true
		}
		for catName, score := range override.Scores {
			em.Scores[models.Category(catName)] = clamp01to100(score)
		}
	}
}

// AliasMap is the static asset mapping raw source names to canonical
// catalog ids (§4.1.1 step 2a).
type AliasMap map[string]string

// LoadAliases reads the alias YAML at path, keyed by lower-cased raw name.
func LoadAliases(path string) (AliasMap, error) {
	if path == "" {
		return AliasMap{}, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return AliasMap{}, nil
		}
		return nil, fmt.Errorf("reading alias file %s: %w", path, err)
	}

	var flat map[string]string
	if err := yaml.Unmarshal(raw, &flat); err != nil {
		return nil, fmt.Errorf("parsing alias file %s: %w", path, err)
	}

	out := make(AliasMap, len(flat))
	for raw, canonical := range flat {
		out[normalizeNameKey(raw)] = canonical
	}
	return out, nil
}
