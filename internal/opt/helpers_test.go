package opt

import (
	"io"
	"log/slog"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"roadcover/internal/dijkstra"
	"roadcover/internal/graph"
	"roadcover/internal/observe"
)

func segment(id int64, dist float64, a, b int64) graph.Segment {
	return graph.Segment{
		ID:       id,
		Distance: dist,
		Nodes: []graph.Node{
			{ID: a, Lat: float64(a) * 0.001, Lon: float64(a) * 0.002},
			{ID: b, Lat: float64(b) * 0.001, Lon: float64(b) * 0.002},
		},
	}
}

func buildGraph(t *testing.T, segs ...graph.Segment) *graph.Graph {
	t.Helper()
	g, err := graph.Build(segs, graph.WithSegmentLengths())
	require.NoError(t, err)
	return g
}

// fourCycle is A(1)-B(2)-C(3)-D(4)-A with every side 10 long.
func fourCycle(t *testing.T) *graph.Graph {
	return buildGraph(t,
		segment(1, 10, 1, 2),
		segment(2, 10, 2, 3),
		segment(3, 10, 3, 4),
		segment(4, 10, 4, 1),
	)
}

// grid builds an n x n lattice with unit edges; node ids are row*10+col+1.
func grid(t *testing.T, n int) *graph.Graph {
	var segs []graph.Segment
	id := int64(1)
	node := func(r, c int) int64 { return int64(r*10 + c + 1) }
	for r := 0; r < n; r++ {
		for c := 0; c < n; c++ {
			if c+1 < n {
				segs = append(segs, segment(id, 1, node(r, c), node(r, c+1)))
				id++
			}
			if r+1 < n {
				segs = append(segs, segment(id, 1, node(r, c), node(r+1, c)))
				id++
			}
		}
	}
	return buildGraph(t, segs...)
}

// parallelTriangle is 1-2-3-1 with 1 km sides plus a second, 5 km road
// between 1 and 2. Edge ids: 0/1 short 1-2, 2/3 2-3, 4/5 3-1, 6/7 long 1-2.
func parallelTriangle(t *testing.T) *graph.Graph {
	return buildGraph(t,
		segment(1, 1, 1, 2),
		segment(2, 1, 2, 3),
		segment(3, 1, 3, 1),
		segment(4, 5, 1, 2),
	)
}

// walkOf resolves a node walk to steps for evaluate.
func walkOf(t *testing.T, g *graph.Graph, nodes ...int64) ([]int64, []graph.EdgeID) {
	t.Helper()
	steps, ok := g.Steps(nodes)
	require.True(t, ok, "not a walk: %v", nodes)
	return nodes, steps
}

// bareDays wraps node routes as days without steps.
func bareDays(routes ...[]int64) []Day {
	days := make([]Day, len(routes))
	for i, r := range routes {
		days[i] = Day{Number: i + 1, Route: r}
	}
	return days
}

func edgeIDs(edges []graph.Edge) []graph.EdgeID {
	var out []graph.EdgeID
	for _, e := range edges {
		out = append(out, e.ID)
	}
	return out
}

// requireAgrees checks that a plan and the validator describe the same
// days: steps match routes, distances are the driven edges' lengths and
// every credited segment was driven. With exact, or once the plan is
// complete, the driven and the credited segments must coincide.
func requireAgrees(t *testing.T, g *graph.Graph, p Params, plan Plan, exact bool) {
	t.Helper()
	r := Validate(g, plan.Days, p.Depot, p.MaxDistance)
	require.Empty(t, r.Gaps)
	require.Empty(t, r.DepotViolations)

	driven := map[graph.EdgeID]bool{}
	for _, e := range g.AllEdges() {
		driven[e.ID] = true
	}
	for _, e := range r.Missing {
		delete(driven, e.ID)
	}
	credited := map[graph.EdgeID]bool{}
	for _, d := range plan.Days {
		require.Len(t, d.Steps, len(d.Route)-1, "day %d", d.Number)
		require.Equal(t, d.Route, g.Walk(p.Depot, d.Steps), "day %d", d.Number)
		require.InDelta(t, dijkstra.WalkDistance(g, d.Steps), d.Distance, 1e-9, "day %d", d.Number)
		for _, id := range d.Edges {
			require.True(t, driven[id], "day %d credits segment %d it never drove", d.Number, id)
			credited[id] = true
		}
	}
	require.Len(t, credited, plan.Covered)
	if exact || plan.Complete {
		require.Equal(t, driven, credited)
		require.Equal(t, edgeIDs(plan.Missing), edgeIDs(r.Missing))
	}
}

func testParams(depot int64, budget float64) Params {
	p := DefaultParams()
	p.Depot = depot
	p.MaxDistance = budget
	p.Seed = 7
	p.PopulationSize = 20
	p.Generations = 10
	return p
}

func newRunState(g *graph.Graph, p Params) *RunState {
	return &RunState{
		Graph:    g,
		Paths:    dijkstra.New(g),
		Params:   p,
		Day:      1,
		Coverage: NewCoverage(g),
		Rand:     rand.New(rand.NewSource(p.Seed)),
		Observer: observe.Nop{},
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}
