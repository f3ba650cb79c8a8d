package ranker

import (
	"regexp"
	"strings"

	"github.com/swarmrouter/core/pkg/models"
)

// splitPattern is one candidate splitter in the heuristic cascade of
// §4.1.4; the first pattern yielding ≥2 non-empty parts wins.
type splitPattern struct {
	name  string
	split func(task string) []string
}

var enumeratedListRe = regexp.MustCompile(`(?m)^\s*\d+[.)]\s+`)
var bulletedListRe = regexp.MustCompile(`(?m)^\s*[-*•]\s+`)
var sequentialConjunctionRe = regexp.MustCompile(`(?i)\b(then|next|finally|after that|afterwards|lastly)\b`)
var paragraphBreakRe = regexp.MustCompile(`\n\s*\n`)

var splitPatterns = []splitPattern{
	{"enumerated", func(task string) []string { return splitByRegexMarker(task, enumeratedListRe) }},
	{"bulleted", func(task string) []string { return splitByRegexMarker(task, bulletedListRe) }},
	{"conjunctions", func(task string) []string { return sequentialConjunctionRe.Split(task, -1) }},
	{"semicolons", func(task string) []string { return strings.Split(task, ";") }},
	{"paragraphs", func(task string) []string { return paragraphBreakRe.Split(task, -1) }},
}

// splitByRegexMarker splits on a leading-marker pattern (numbered or
// bulleted list items), dropping the marker text itself.
func splitByRegexMarker(task string, marker *regexp.Regexp) []string {
	locs := marker.FindAllStringIndex(task, -1)
	if len(locs) == 0 {
		return nil
	}
	var parts []string
	for i, loc := range locs {
		start := loc[1]
		end := len(task)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		parts = append(parts, task[start:end])
	}
	return parts
}

// DecomposeResult is the outcome of decompose/swarm's heuristic split.
type DecomposeResult struct {
	Decomposed bool
	Method     string
	SubTasks   []SubTask
	Warning    string
}

// SubTask is one part produced by the splitter, reclassified and
// budget-adjusted per §4.1.4.
type SubTask struct {
	Text       string
	Category   models.Category
	Budget     models.Budget
	Phase      int
	Artifacts  []string
	DependsOn  []int // indices into the owning DecomposeResult.SubTasks slice
	Wave       int
}

var downgradeKeywords = []string{"simple", "quick", "boilerplate", "trivial", "basic", "straightforward", "easy"}
var upgradeKeywords = []string{"critical", "complex", "architecture", "security", "performance", "optimize", "core"}

var categoryKeywords = map[models.Category][]string{
	models.CategoryCoding:    {"code", "implement", "function", "bug", "refactor", "api", "backend"},
	models.CategoryCreative:  {"write", "story", "poem", "marketing", "copy", "design"},
	models.CategoryResearch:  {"research", "analyze", "investigate", "survey", "compare"},
	models.CategoryReasoning: {"reason", "plan", "strategy", "architecture", "decide"},
}

// splitTask runs the §4.1.4 heuristic cascade once, returning the first
// pattern that yields ≥2 non-empty trimmed parts.
func splitTask(task string) (method string, parts []string) {
	for _, p := range splitPatterns {
		raw := p.split(task)
		var trimmed []string
		for _, part := range raw {
			t := strings.TrimSpace(part)
			if t != "" {
				trimmed = append(trimmed, t)
			}
		}
		if len(trimmed) >= 2 {
			return p.name, trimmed
		}
	}
	return "", nil
}

// Decompose attempts a sequential split (§4.1.4 decompose). Callers fall
// back to single mode when Decomposed is false.
func (r *Ranker) Decompose(task string, baseBudget models.Budget) DecomposeResult {
	method, parts := splitTask(task)
	if len(parts) < 2 {
		return DecomposeResult{Decomposed: false}
	}

	subTasks := make([]SubTask, len(parts))
	for i, part := range parts {
		subTasks[i] = classifySubTask(part, baseBudget)
		if i > 0 {
			subTasks[i].DependsOn = []int{i - 1}
		}
	}
	return DecomposeResult{Decomposed: true, Method: method, SubTasks: subTasks}
}

// ClassifyCategory assigns a category to free-form text by keyword
// majority (§4.1.4), defaulting to general when nothing matches. Used both
// to reclassify decompose/swarm sub-tasks and to pick a top-level category
// for single/collective/cascade planning.
func ClassifyCategory(text string) models.Category {
	lower := strings.ToLower(text)
	best := models.CategoryGeneral
	bestHits := 0
	for cat, keywords := range categoryKeywords {
		hits := 0
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				hits++
			}
		}
		if hits > bestHits {
			bestHits = hits
			best = cat
		}
	}
	return best
}

// classifySubTask reclassifies a sub-task into a category by keyword
// majority and adjusts its budget per the downgrade/upgrade keyword rule
// (§4.1.4).
func classifySubTask(text string, baseBudget models.Budget) SubTask {
	lower := strings.ToLower(text)
	bestCategory := ClassifyCategory(text)

	downgrade := containsAny(lower, downgradeKeywords)
	upgrade := containsAny(lower, upgradeKeywords)

	budget := baseBudget
	switch {
	case downgrade && upgrade:
		// both present: retain base budget (§4.1.4)
	case downgrade:
		budget = stepCheaper(baseBudget)
	case upgrade:
		budget = stepExpensive(baseBudget)
	}

	return SubTask{Text: text, Category: bestCategory, Budget: budget}
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

var budgetOrder = []models.Budget{models.BudgetLow, models.BudgetMedium, models.BudgetHigh}

func stepCheaper(b models.Budget) models.Budget {
	for i, v := range budgetOrder {
		if v == b && i > 0 {
			return budgetOrder[i-1]
		}
	}
	return b
}

func stepExpensive(b models.Budget) models.Budget {
	for i, v := range budgetOrder {
		if v == b && i < len(budgetOrder)-1 {
			return budgetOrder[i+1]
		}
	}
	return b
}
