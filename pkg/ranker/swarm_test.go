package ranker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/swarmrouter/core/pkg/models"
)

func TestDetectPhase(t *testing.T) {
	cases := []struct {
		name string
		text string
		want int
	}{
		{"design keyword", "design the database schema", 0},
		{"setup keyword", "scaffold the new service", 1},
		{"implement keyword", "implement the api endpoints", 2},
		{"integrate keyword", "wire the payments service together", 3},
		{"test keyword", "test the api thoroughly", 4},
		{"deploy keyword", "document and release the build", 5},
		{"no keyword falls back to implement", "lorem ipsum dolor sit amet", 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, detectPhase(tc.text))
		})
	}
}

func TestDetectArtifactCategories(t *testing.T) {
	assert.ElementsMatch(t, []string{"schema"}, detectArtifactCategories("design the database schema"))
	assert.ElementsMatch(t, []string{"api"}, detectArtifactCategories("implement the api endpoints"))
	assert.ElementsMatch(t, []string{"api", "test"}, detectArtifactCategories("test the api thoroughly"))
	assert.Empty(t, detectArtifactCategories("nothing matches here"))
}

func TestSharesArtifactCategory(t *testing.T) {
	assert.True(t, sharesArtifactCategory([]string{"api", "test"}, []string{"test"}))
	assert.False(t, sharesArtifactCategory([]string{"api"}, []string{"schema"}))
	assert.False(t, sharesArtifactCategory(nil, []string{"schema"}))
}

func TestTransitiveReduceDropsRedundantEdge(t *testing.T) {
	edges := []edge{{0, 1}, {1, 2}, {0, 2}}
	reduced := transitiveReduce(3, edges)
	assert.ElementsMatch(t, []edge{{0, 1}, {1, 2}}, reduced, "0->2 is implied by 0->1->2")
}

func TestHasCycle(t *testing.T) {
	assert.False(t, hasCycle(3, []edge{{0, 1}, {1, 2}}))
	assert.True(t, hasCycle(3, []edge{{0, 1}, {1, 2}, {2, 0}}))
}

func TestLinearChainEdges(t *testing.T) {
	assert.Equal(t, []edge{{0, 1}, {1, 2}, {2, 3}}, linearChainEdges(4))
	assert.Nil(t, linearChainEdges(1))
}

func TestComputeWavesSplitsReadySetByMaxParallel(t *testing.T) {
	// 0 and 1 are independent roots; 2 and 3 each depend on both.
	edges := []edge{{0, 2}, {1, 2}, {0, 3}, {1, 3}}

	subTasks := make([]SubTask, 4)
	computeWaves(subTasks, edges, 1)
	assert.Equal(t, 0, subTasks[0].Wave)
	assert.Equal(t, 1, subTasks[1].Wave, "maxParallel=1 forces 1 into its own wave even though it has no deps")
	assert.Equal(t, 2, subTasks[2].Wave)
	assert.Equal(t, 3, subTasks[3].Wave)

	subTasks2 := make([]SubTask, 4)
	computeWaves(subTasks2, edges, 2)
	assert.Equal(t, 0, subTasks2[0].Wave)
	assert.Equal(t, 0, subTasks2[1].Wave, "maxParallel=2 lets both roots share wave 0")
	assert.Equal(t, 1, subTasks2[2].Wave)
	assert.Equal(t, 1, subTasks2[3].Wave)
}

func TestBuildSwarmEdgesChainsConsecutiveOnEnumeratedMethod(t *testing.T) {
	subTasks := []SubTask{
		{Phase: 0, Artifacts: []string{"schema"}},
		{Phase: 2, Artifacts: []string{"api"}},
		{Phase: 4, Artifacts: []string{"api", "test"}},
	}
	edges := buildSwarmEdges(subTasks, "enumerated")
	assert.Contains(t, edges, edge{0, 1}, "enumerated method chains consecutive sub-tasks")
	assert.Contains(t, edges, edge{1, 2})
}

func TestEstimateCost(t *testing.T) {
	pricing := models.Pricing{Prompt: 1.0, Completion: 2.0}
	low := EstimateCost(models.BudgetLow, pricing)
	high := EstimateCost(models.BudgetHigh, pricing)
	any := EstimateCost(models.BudgetAny, pricing)

	assert.InDelta(t, (1000.0*1.0+1000.0*2.0)/1_000_000, low, 1e-9)
	assert.InDelta(t, (10000.0*1.0+10000.0*2.0)/1_000_000, high, 1e-9)
	assert.InDelta(t, high, any, 1e-9, "any budget is priced like high")
}

func TestSwarmUndecomposableTaskReturnsFalse(t *testing.T) {
	r := &Ranker{}
	result := r.Swarm("a single sentence with no separators", models.BudgetAny, 2)
	assert.False(t, result.Decomposed)
}

func TestSwarmBuildsAcyclicDependencyGraph(t *testing.T) {
	r := &Ranker{}
	task := "1. design the database schema\n2. implement the api endpoints\n3. test the api thoroughly"
	result := r.Swarm(task, models.BudgetAny, 2)

	require.True(t, result.Decomposed)
	assert.Equal(t, "enumerated", result.Method)
	require.Len(t, result.SubTasks, 3)
	assert.Empty(t, result.Warning, "this chain has no cycle so no fallback warning is expected")

	// every dependency index must point at an earlier wave, proving the
	// graph produced by Swarm is acyclic regardless of internal edge order.
	for i, st := range result.SubTasks {
		for _, dep := range st.DependsOn {
			assert.Less(t, result.SubTasks[dep].Wave, st.Wave, "sub-task %d must wait on an earlier wave", i)
		}
	}
	assert.Equal(t, []int{0}, result.SubTasks[1].DependsOn)
	assert.Equal(t, []int{1}, result.SubTasks[2].DependsOn)
}
