package ranker

import (
	"regexp"
	"strings"

	"github.com/swarmrouter/core/pkg/models"
)

// phaseKeywords maps phase index 0-5 to its keyword set (§4.1.4).
var phaseKeywords = [][]string{
	{"design", "plan"},
	{"setup", "scaffold", "bootstrap"},
	{"implement", "build", "develop", "code"},
	{"integrate", "connect", "wire"},
	{"test", "verify", "validate"},
	{"deploy", "docs", "document", "release"},
}

var artifactCategoryPatterns = map[string]*regexp.Regexp{
	"schema":    regexp.MustCompile(`(?i)schema|migration|model`),
	"api":       regexp.MustCompile(`(?i)\bapi\b|endpoint|route`),
	"component": regexp.MustCompile(`(?i)component|ui\b|frontend|page|view`),
	"config":    regexp.MustCompile(`(?i)config|settings|env\b`),
	"test":      regexp.MustCompile(`(?i)\btest`),
	"docs":      regexp.MustCompile(`(?i)docs|documentation|readme`),
}

// detectPhase returns the phase index 0-5 by keyword majority, defaulting
// to phase 2 (implement) when nothing matches.
func detectPhase(text string) int {
	lower := strings.ToLower(text)
	best, bestHits := 2, 0
	for phase, keywords := range phaseKeywords {
		hits := 0
		for _, kw := range keywords {
			if strings.Contains(lower, kw) {
				hits++
			}
		}
		if hits > bestHits {
			bestHits = hits
			best = phase
		}
	}
	return best
}

// detectArtifactCategories returns every artifact category pattern that
// matches text.
func detectArtifactCategories(text string) []string {
	var cats []string
	for name, re := range artifactCategoryPatterns {
		if re.MatchString(text) {
			cats = append(cats, name)
		}
	}
	return cats
}

// edge is a directed dependency a -> b (b depends on a), by sub-task index.
type edge struct{ from, to int }

// Swarm attempts a DAG split (§4.1.4 swarm). maxParallel bounds the number
// of sub-tasks assigned to the same wave.
func (r *Ranker) Swarm(task string, baseBudget models.Budget, maxParallel int) DecomposeResult {
	method, parts := splitTask(task)
	if len(parts) < 2 {
		return DecomposeResult{Decomposed: false}
	}
	if maxParallel <= 0 {
		maxParallel = len(parts)
	}

	subTasks := make([]SubTask, len(parts))
	for i, part := range parts {
		st := classifySubTask(part, baseBudget)
		st.Phase = detectPhase(part)
		st.Artifacts = detectArtifactCategories(part)
		subTasks[i] = st
	}

	edges := buildSwarmEdges(subTasks, method)
	edges = transitiveReduce(len(subTasks), edges)

	warning := ""
	if hasCycle(len(subTasks), edges) {
		edges = linearChainEdges(len(subTasks))
		warning = "cycle detected in swarm decomposition; replaced with a linear chain"
	}

	applyDependsOn(subTasks, edges)
	computeWaves(subTasks, edges, maxParallel)

	return DecomposeResult{Decomposed: true, Method: method, SubTasks: subTasks, Warning: warning}
}

// buildSwarmEdges builds edges in the three layers of §4.1.4:
// (1) phase k+1 depends on every sub-task in phase k,
// (2) pairs sharing an artifact category with a.phase <= b.phase,
// (3) chain consecutive sub-tasks when the split was numbered/conjunctions.
func buildSwarmEdges(subTasks []SubTask, method string) []edge {
	var edges []edge
	seen := make(map[edge]bool)
	add := func(from, to int) {
		if from == to {
			return
		}
		e := edge{from, to}
		if !seen[e] {
			seen[e] = true
			edges = append(edges, e)
		}
	}

	for a := range subTasks {
		for b := range subTasks {
			if subTasks[b].Phase == subTasks[a].Phase+1 {
				add(a, b)
			}
		}
	}

	for a := range subTasks {
		for b := range subTasks {
			if a == b || subTasks[a].Phase > subTasks[b].Phase {
				continue
			}
			if sharesArtifactCategory(subTasks[a].Artifacts, subTasks[b].Artifacts) {
				add(a, b)
			}
		}
	}

	if method == "enumerated" || method == "conjunctions" {
		for i := 0; i+1 < len(subTasks); i++ {
			add(i, i+1)
		}
	}

	return edges
}

func sharesArtifactCategory(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}

// transitiveReduce drops edge a->c whenever another direct successor of a
// can reach c (§4.1.4).
func transitiveReduce(n int, edges []edge) []edge {
	adj := make([][]bool, n)
	for i := range adj {
		adj[i] = make([]bool, n)
	}
	for _, e := range edges {
		adj[e.from][e.to] = true
	}

	var reduced []edge
	for _, e := range edges {
		redundant := false
		for mid := 0; mid < n; mid++ {
			if mid == e.from || mid == e.to || !adj[e.from][mid] {
				continue
			}
			if mid == e.to {
				continue
			}
			if reachableDirect(adj, mid, e.to) {
				redundant = true
				break
			}
		}
		if !redundant {
			reduced = append(reduced, e)
		}
	}
	return reduced
}

func reachableDirect(adj [][]bool, from, to int) bool {
	n := len(adj)
	visited := make([]bool, n)
	stack := []int{from}
	visited[from] = true
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur == to {
			return true
		}
		for next := 0; next < n; next++ {
			if adj[cur][next] && !visited[next] {
				visited[next] = true
				stack = append(stack, next)
			}
		}
	}
	return false
}

// hasCycle runs Kahn's algorithm, returning true if any node never
// reaches in-degree zero (§4.1.4).
func hasCycle(n int, edges []edge) bool {
	inDegree := make([]int, n)
	adj := make([][]int, n)
	for _, e := range edges {
		adj[e.from] = append(adj[e.from], e.to)
		inDegree[e.to]++
	}

	var queue []int
	for i := 0; i < n; i++ {
		if inDegree[i] == 0 {
			queue = append(queue, i)
		}
	}

	visited := 0
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		visited++
		for _, next := range adj[cur] {
			inDegree[next]--
			if inDegree[next] == 0 {
				queue = append(queue, next)
			}
		}
	}
	return visited != n
}

func linearChainEdges(n int) []edge {
	var edges []edge
	for i := 0; i+1 < n; i++ {
		edges = append(edges, edge{i, i + 1})
	}
	return edges
}

func applyDependsOn(subTasks []SubTask, edges []edge) {
	deps := make([][]int, len(subTasks))
	for _, e := range edges {
		deps[e.to] = append(deps[e.to], e.from)
	}
	for i := range subTasks {
		subTasks[i].DependsOn = deps[i]
	}
}

// computeWaves assigns wave numbers by repeated peeling of ready nodes,
// splitting each wave into increments of at most maxParallel (§4.1.4).
// Wave numbers are advisory only (§5, §9) — never an admission oracle.
func computeWaves(subTasks []SubTask, edges []edge, maxParallel int) {
	n := len(subTasks)
	inDegree := make([]int, n)
	adj := make([][]int, n)
	for _, e := range edges {
		adj[e.from] = append(adj[e.from], e.to)
		inDegree[e.to]++
	}

	remaining := inDegree
	done := make([]bool, n)
	wave := 0
	left := n

	for left > 0 {
		var ready []int
		for i := 0; i < n; i++ {
			if !done[i] && remaining[i] == 0 {
				ready = append(ready, i)
			}
		}
		if len(ready) == 0 {
			// cycle slipped through; assign the rest sequentially to avoid
			// an infinite loop (should not happen after hasCycle guard).
			for i := 0; i < n; i++ {
				if !done[i] {
					ready = append(ready, i)
				}
			}
		}

		for chunkStart := 0; chunkStart < len(ready); chunkStart += maxParallel {
			chunkEnd := chunkStart + maxParallel
			if chunkEnd > len(ready) {
				chunkEnd = len(ready)
			}
			for _, idx := range ready[chunkStart:chunkEnd] {
				subTasks[idx].Wave = wave
				done[idx] = true
				left--
				for _, next := range adj[idx] {
					remaining[next]--
				}
			}
			wave++
		}
	}
}

// EstimateCost estimates USD cost for one sub-task given per-1M-token
// pricing, assuming (1K,10K) token bounds for (low,high) budget bands
// (§4.1.4).
func EstimateCost(budget models.Budget, pricing models.Pricing) float64 {
	tokens := 1000.0
	if budget == models.BudgetHigh || budget == models.BudgetAny {
		tokens = 10000.0
	}
	return (tokens*pricing.Prompt + tokens*pricing.Completion) / 1_000_000
}
