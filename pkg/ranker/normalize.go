package ranker

import (
	"math"
	"regexp"
	"strings"
)

// clamp01to100 bounds a normalized score to [0,100].
func clamp01to100(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

// NormalizeAAIndex maps an Artificial Analysis index (on a [-100,+100]
// scale) onto the 0-100 convention (§4.1.1 step 1).
func NormalizeAAIndex(raw float64) float64 {
	return clamp01to100((raw + 100) / 2)
}

// NormalizeAAAccuracy maps an AA accuracy fraction (0-1) onto 0-100.
func NormalizeAAAccuracy(raw float64) float64 {
	return clamp01to100(raw * 100)
}

// NormalizeArenaElo maps a Chatbot Arena ELO rating onto 0-100, linearly
// over [1000,1500] (§4.1.1 step 1).
func NormalizeArenaElo(elo float64) float64 {
	return clamp01to100((elo - 1000) / 500 * 100)
}

// aaIndexKeys are the AA fields requiring the index mapping; all other AA
// fields (gpqa) are accuracy fractions.
var aaIndexKeys = map[string]bool{
	"intelligenceIndex": true,
	"codingIndex":       true,
	"mathIndex":         true,
}

// NormalizeAAMetric dispatches an AA-sourced raw metric to the index or
// accuracy mapping by key.
func NormalizeAAMetric(key string, raw float64) float64 {
	if aaIndexKeys[key] {
		return NormalizeAAIndex(raw)
	}
	return NormalizeAAAccuracy(raw)
}

// variantSuffixPattern matches trailing `:<suffix>` tokens the iterative
// suffix-stripping resolver peels off one at a time (glossary "Variant id").
var variantSuffixPattern = regexp.MustCompile(`:[a-zA-Z0-9_-]+$`)

// StripVariantSuffixes repeatedly strips trailing `:suffix` tokens from id
// until no more match, returning every candidate tried in order from most
// to least specific (including id itself first).
func StripVariantSuffixes(id string) []string {
	candidates := []string{id}
	cur := id
	for {
		stripped := variantSuffixPattern.ReplaceAllString(cur, "")
		if stripped == cur {
			break
		}
		candidates = append(candidates, stripped)
		cur = stripped
	}
	return candidates
}

// ResolveCanonicalID implements the multi-strategy matcher of §4.1.1 step 2:
// (a) an explicit alias map, (b) OpenRouter's hugging_face_id cross
// reference, (c) iterative suffix stripping. It returns the first catalog
// id any strategy resolves to, or "" if none match.
func ResolveCanonicalID(rawName string, aliases map[string]string, hfIndex map[string]string, catalog map[string]bool) string {
	norm := normalizeNameKey(rawName)

	if alias, ok := aliases[norm]; ok {
		if catalog[alias] {
			return alias
		}
	}

	if id, ok := hfIndex[norm]; ok {
		if catalog[id] {
			return id
		}
	}

	for _, candidate := range StripVariantSuffixes(rawName) {
		if catalog[candidate] {
			return candidate
		}
		lower := strings.ToLower(candidate)
		if catalog[lower] {
			return lower
		}
	}

	return ""
}

// normalizeNameKey lower-cases and trims a raw source name for alias/HF
// index lookups, which are keyed case-insensitively.
func normalizeNameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// WeightedAverage computes a weight-normalized average, skipping absent
// inputs and redistributing weight proportionally among present ones
// (§4.1.1 "Weighted averages skip absent inputs").
func WeightedAverage(values map[string]float64, weights map[string]float64) (float64, bool) {
	var weightedSum, weightTotal float64
	for key, w := range weights {
		if v, ok := values[key]; ok {
			weightedSum += v * w
			weightTotal += w
		}
	}
	if weightTotal == 0 {
		return 0, false
	}
	return weightedSum / weightTotal, true
}

// ZScoreComposite maps a raw value to the ranker's composite-score space:
// `50 + 20*z`, clamped to [0,100] (§4.1.1).
func ZScoreComposite(raw, mean, stddev float64) float64 {
	if stddev == 0 {
		return clamp01to100(50)
	}
	z := (raw - mean) / stddev
	return clamp01to100(50 + 20*z)
}

// MeanStdDev computes sample mean and population stddev, requiring at
// least minSamples values to be considered meaningful (§4.1.1: "requiring
// ≥5 samples"). ok is false when there are too few samples.
func MeanStdDev(values []float64, minSamples int) (mean, stddev float64, ok bool) {
	if len(values) < minSamples {
		return 0, 0, false
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean = sum / float64(len(values))

	var sqDiffSum float64
	for _, v := range values {
		d := v - mean
		sqDiffSum += d * d
	}
	stddev = math.Sqrt(sqDiffSum / float64(len(values)))
	return mean, stddev, true
}
