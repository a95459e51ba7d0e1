package opt

import "roadcover/internal/graph"

// individual is one candidate day route of the genetic search. steps holds
// the driven edges, one per consecutive pair of nodes.
type individual struct {
	nodes    []int64
	steps    []graph.EdgeID
	covered  []graph.EdgeID // canonical, first traversal order
	fitness  float64
	distance float64
}

// evolution is the per-day state of the genetic search. visits counts, per
// canonical edge, how often candidate routes have driven it today.
type evolution struct {
	st     *RunState
	visits []int
}

func newEvolution(st *RunState) *evolution {
	return &evolution{st: st, visits: make([]int, st.Graph.EdgeCount())}
}

// evaluate builds an individual from a walk: covered edges (which bumps
// today's visit counts), distance, then fitness. Distances only grow along
// a walk, so the total is also the peak cumulative distance.
func (ev *evolution) evaluate(nodes []int64, steps []graph.EdgeID) *individual {
	g := ev.st.Graph
	ind := &individual{nodes: nodes, steps: steps}
	seen := make(map[graph.EdgeID]bool)
	for _, id := range steps {
		e := g.EdgeAt(id)
		cid := e.Canonical()
		ev.visits[cid]++
		ev.st.Observer.AddPathEdge(e)
		if !seen[cid] {
			seen[cid] = true
			ind.covered = append(ind.covered, cid)
		}
		ind.distance += e.Distance
	}
	ind.fitness = ev.fitness(ind)
	return ind
}

// fitness scores an individual by new coverage, budget, reuse and the
// length of road it covers.
func (ev *evolution) fitness(ind *individual) float64 {
	g := ev.st.Graph
	score := 0.0
	for _, cid := range ind.covered {
		if !ev.st.Coverage.Has(cid) {
			score += 0.1
		}
	}
	if ind.distance > ev.st.Params.MaxDistance {
		score *= 0.1
	}
	if ev.avgVisits(ind) > 5 {
		score *= 0.1
	}
	unique := 0.0
	for _, cid := range ind.covered {
		unique += g.EdgeAt(cid).Distance
	}
	if unique > 0 {
		score += 0.1
	}
	if unique > 5 {
		score *= 1.5
	}
	if unique > 15 {
		score *= 2
	}
	if score < 0 {
		score = 0
	}
	return score
}

// avgVisits is the mean visit count over the individual's covered edges.
func (ev *evolution) avgVisits(ind *individual) float64 {
	if len(ind.covered) == 0 {
		return 0
	}
	total := 0
	for _, cid := range ind.covered {
		total += ev.visits[cid]
	}
	return float64(total) / float64(len(ind.covered))
}

// walkable reports whether every consecutive pair of nodes is joined by an
// edge.
func walkable(g *graph.Graph, nodes []int64) bool {
	for i := 1; i < len(nodes); i++ {
		if !g.Adjacent(nodes[i-1], nodes[i]) {
			return false
		}
	}
	return true
}

// edgesOf returns the covered edges of ind.
func edgesOf(st *RunState, ind *individual) []graph.Edge {
	out := make([]graph.Edge, len(ind.covered))
	for i, cid := range ind.covered {
		out[i] = st.Graph.EdgeAt(cid)
	}
	return out
}
