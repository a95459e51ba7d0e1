package opt

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"roadcover/internal/dijkstra"
	"roadcover/internal/graph"
)

func TestSpliceJoinsPrefixAndSuffix(t *testing.T) {
	p1 := []int64{1, 2, 3, 4, 5}
	p2 := []int64{9, 8, 3, 7, 6}
	require.Equal(t, []int64{1, 2, 3, 7, 6}, Splice(p1, p2, 3))
	require.Equal(t, []int64{1}, Splice(p1, []int64{1}, 1))
	// splice node missing: parent 1 unchanged
	require.Equal(t, p1, Splice(p1, p2, 42))
}

func TestSplicePointPrefersClosestAlignment(t *testing.T) {
	at, ok := SplicePoint([]int64{1, 2, 3, 4}, []int64{5, 4, 3})
	require.True(t, ok)
	require.Equal(t, int64(3), at)

	// equal gaps: the first candidate along parent 1 wins
	at, ok = SplicePoint([]int64{1, 2, 3}, []int64{2, 3, 1})
	require.True(t, ok)
	require.Equal(t, int64(2), at)

	_, ok = SplicePoint([]int64{1, 2}, []int64{3, 4})
	require.False(t, ok)
}

func TestFitnessLaw(t *testing.T) {
	g := fourCycle(t)

	st := newRunState(g, testParams(1, 42.2))
	ev := newEvolution(st)
	// two new segments, 20 km: (0.2 + 0.1) * 1.5 * 2
	require.InDelta(t, 0.9, ev.evaluate(walkOf(t, g, 1, 2, 3)).fitness, 1e-9)

	st = newRunState(g, testParams(1, 15))
	ev = newEvolution(st)
	// over budget: (0.2*0.1 + 0.1) * 1.5 * 2
	require.InDelta(t, 0.36, ev.evaluate(walkOf(t, g, 1, 2, 3)).fitness, 1e-9)

	st = newRunState(g, testParams(1, 42.2))
	ab, ok := g.Edge(1, 2)
	require.True(t, ok)
	st.Coverage.Add(ab.ID)
	ev = newEvolution(st)
	// one new segment
	require.InDelta(t, 0.6, ev.evaluate(walkOf(t, g, 1, 2, 3)).fitness, 1e-9)

	// heavy reuse: seven passes over A-B average above five visits
	st = newRunState(g, testParams(1, 1000))
	ev = newEvolution(st)
	ind := ev.evaluate(walkOf(t, g, 1, 2, 1, 2, 1, 2, 1, 2))
	require.Greater(t, ev.avgVisits(ind), 5.0)
	// (0.1*0.1 + 0.1) * 1.5
	require.InDelta(t, 0.165, ind.fitness, 1e-9)

	// a route that goes nowhere scores nothing
	require.Zero(t, ev.evaluate(walkOf(t, g, 1)).fitness)
}

func TestGrowStaysWithinGrowthShare(t *testing.T) {
	g := grid(t, 4)
	st := newRunState(g, testParams(1, 10))
	ev := newEvolution(st)
	for range 50 {
		ind := ev.grow()
		require.Equal(t, int64(1), ind.nodes[0])
		require.LessOrEqual(t, ind.distance, 9.0+1e-9)
		require.True(t, walkable(g, ind.nodes))
		require.Equal(t, ind.nodes, g.Walk(1, ind.steps))
	}
}

func TestMutationKeepsWalks(t *testing.T) {
	g := grid(t, 4)
	st := newRunState(g, testParams(1, 12))
	ev := newEvolution(st)
	for range 200 {
		ind := ev.mutate(ev.grow())
		require.Equal(t, int64(1), ind.nodes[0])
		require.True(t, walkable(g, ind.nodes), "route %v", ind.nodes)
		require.Equal(t, ind.nodes, g.Walk(1, ind.steps))
		require.InDelta(t, dijkstra.WalkDistance(g, ind.steps), ind.distance, 1e-9)
	}
}

func TestCrossoverChildIsWalk(t *testing.T) {
	g := grid(t, 4)
	p := testParams(1, 12)
	p.CrossoverRate = 1
	st := newRunState(g, p)
	ev := newEvolution(st)
	for range 100 {
		child := ev.crossover(ev.grow(), ev.grow())
		require.Equal(t, int64(1), child.nodes[0])
		require.True(t, walkable(g, child.nodes))
		require.Equal(t, child.nodes, g.Walk(1, child.steps))
	}
}

func TestElitismNeverLosesBest(t *testing.T) {
	g := grid(t, 4)
	p := testParams(1, 12)
	p.Generations = 30
	p.MaxStagnation = 0
	p.MutationRate = 0.5
	st := newRunState(g, p)
	best, stats, err := newEvolution(st).run(context.Background())
	require.NoError(t, err)
	require.InDelta(t, best.distance, stats.BestDistance, 1e-9)
	require.NotEmpty(t, stats.MaxFitness)
	for i := 1; i < len(stats.MaxFitness); i++ {
		require.GreaterOrEqual(t, stats.MaxFitness[i], stats.MaxFitness[i-1])
	}
	require.GreaterOrEqual(t, stats.BestFitness, stats.MaxFitness[0])
	require.Len(t, stats.Snapshots, stats.Generations)
}

func TestGeneticStagnationStopsEarly(t *testing.T) {
	g := fourCycle(t)
	p := testParams(1, 5) // nothing fits: every route is just the depot
	p.Generations = 50
	p.MaxStagnation = 3
	p.MutationRate = 0
	st := newRunState(g, p)
	_, stats, err := newEvolution(st).run(context.Background())
	require.NoError(t, err)
	require.True(t, stats.Stagnated)
	require.Equal(t, 3, stats.Generations)
}

func TestGeneticPlanIsSeededAndClosed(t *testing.T) {
	g := grid(t, 3)
	p := testParams(1, 12)
	p.MaxDays = 20

	first, err := Solve(context.Background(), g, "genetic", p)
	require.NoError(t, err)
	second, err := Solve(context.Background(), g, "genetic", p)
	require.NoError(t, err)
	if diff := cmp.Diff(first.Routes(), second.Routes()); diff != "" {
		t.Fatalf("same seed, different routes (-first +second):\n%s", diff)
	}

	require.NotEmpty(t, first.Days)
	requireAgrees(t, g, p, first, true)
	for _, d := range first.Days {
		require.NotEmpty(t, d.Edges)
		require.NotNil(t, d.Genetic)
		require.LessOrEqual(t, d.Genetic.BestDistance, d.Distance+1e-9, "the closing leg only adds")
		require.Equal(t, p.Depot, d.Route[len(d.Route)-1])
	}
	require.Equal(t, first.Covered, first.Total-len(first.Missing))
	if first.Complete {
		require.Equal(t, StopComplete, first.StopReason)
	} else {
		require.Contains(t, []StopReason{StopNoProgress, StopMaxDays}, first.StopReason)
	}
}

func TestGeneticCoversParallelRoads(t *testing.T) {
	g := parallelTriangle(t)
	p := testParams(1, 100)
	plan, err := Solve(context.Background(), g, "genetic", p)
	require.NoError(t, err)
	require.True(t, plan.Complete)
	require.Equal(t, StopComplete, plan.StopReason)
	requireAgrees(t, g, p, plan, true)

	long := false
	for _, d := range plan.Days {
		for _, id := range d.Steps {
			long = long || g.EdgeAt(id).Canonical() == 6
		}
	}
	require.True(t, long, "the 5 km road is never driven")
}

func TestGeneticStopsWhenNothingReachableIsLeft(t *testing.T) {
	g := buildGraph(t,
		segment(1, 1, 1, 2), segment(2, 1, 2, 3), segment(3, 1, 3, 1),
		segment(4, 1, 7, 8), segment(5, 1, 8, 9), segment(6, 1, 9, 7),
	)
	p := testParams(1, 100)
	plan, err := Solve(context.Background(), g, "genetic", p)
	require.NoError(t, err)
	require.False(t, plan.Complete)
	require.Equal(t, StopNoProgress, plan.StopReason)
	require.Less(t, len(plan.Days), p.MaxDays)
	require.Equal(t, 2, plan.Components)
	require.Len(t, plan.Missing, 3)
	for _, e := range plan.Missing {
		require.Contains(t, []int64{7, 8, 9}, e.From)
	}
	requireAgrees(t, g, p, plan, true)
}

func TestMutationPreservesDrivenParallel(t *testing.T) {
	g := parallelTriangle(t)
	st := newRunState(g, testParams(1, 100))
	ev := newEvolution(st)
	// out on the long road, back on the short one
	ind := ev.evaluate([]int64{1, 2, 1}, []graph.EdgeID{6, 1})

	// 1->3 is the least driven uncovered edge and 3 links back to 2, so the
	// detour replaces the first step
	nodes, steps := ev.insertDetour(ind)
	require.Equal(t, []int64{1, 3, 2, 1}, nodes)
	require.Equal(t, []graph.EdgeID{5, 3, 1}, steps)

	for range 50 {
		m := ev.mutate(ind)
		require.Equal(t, m.nodes, g.Walk(1, m.steps))
		require.Len(t, m.steps, len(m.nodes)-1)
	}
	require.Equal(t, []graph.EdgeID{6, 1}, ind.steps, "mutation changed its parent")
}
