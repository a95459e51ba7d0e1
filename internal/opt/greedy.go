package opt

import (
	"context"

	"roadcover/internal/dijkstra"
	"roadcover/internal/graph"
)

// Greedy builds each day by repeatedly walking to the nearest uncovered
// segment and driving it, as long as the day can still end at the depot
// within budget.
type Greedy struct{}

func (Greedy) Name() string { return "greedy" }

// candidate orientation of a segment: enter at edge.From, leave at edge.To.
type approach struct {
	edge graph.Edge
	cost float64 // path to edge.From plus edge length
}

func (Greedy) PlanDay(ctx context.Context, st *RunState) (Day, error) {
	g := st.Graph
	depot := st.Params.Depot
	budget := st.Params.MaxDistance

	// The graph is symmetric, so distances from the depot are distances to it.
	home, err := st.Paths.Tree(ctx, depot)
	if err != nil {
		return Day{}, err
	}

	var remaining []graph.Edge
	for _, e := range g.AllEdges() {
		if !st.Coverage.Has(e.ID) {
			remaining = append(remaining, e)
		}
	}

	st.Observer.ClearVisited()
	cur := depot
	spent := 0.0
	taken := make(map[graph.EdgeID]bool)
	var steps, credited []graph.EdgeID

	for len(taken) < len(remaining) {
		here, err := st.Paths.Tree(ctx, cur)
		if err != nil {
			return Day{}, err
		}
		best, ok := nearest(g, here, remaining, taken)
		if !ok {
			st.Logger.Debug("no reachable segment left", "day", st.Day, "at", cur)
			break
		}
		back, ok := home.Distance(best.edge.To)
		if !ok || spent+best.cost+back > budget {
			break
		}

		leg := here.StepsTo(best.edge.From)
		steps = append(steps, leg...)
		steps = append(steps, best.edge.ID)
		spent += best.cost
		taken[best.edge.Canonical()] = true
		credited = append(credited, best.edge.Canonical())
		if st.Params.CreditTransit {
			credited = append(credited, canonical(g, leg)...)
		}
		st.Observer.EdgeVisited(best.edge)
		cur = best.edge.To
	}

	if cur != depot {
		leg, err := st.Paths.ShortestSteps(ctx, cur, depot)
		if err != nil {
			return Day{}, err
		}
		steps = append(steps, leg...)
		if st.Params.CreditTransit {
			credited = append(credited, canonical(g, leg)...)
		}
	}

	return Day{
		Route:    g.Walk(depot, steps),
		Steps:    steps,
		Distance: dijkstra.WalkDistance(g, steps),
		Edges:    credited,
	}, nil
}

// nearest picks the cheapest way to drive one of the remaining segments
// from the tree's source. Segments are scanned in EdgeID order and the
// forward orientation first, so ties go to the lower id, forward first.
func nearest(g *graph.Graph, from *dijkstra.Tree, remaining []graph.Edge, taken map[graph.EdgeID]bool) (approach, bool) {
	var best approach
	found := false
	for _, e := range remaining {
		if taken[e.ID] {
			continue
		}
		for _, dir := range [2]graph.Edge{e, g.EdgeAt(e.Mirror)} {
			d, ok := from.Distance(dir.From)
			if !ok {
				continue
			}
			cost := d + dir.Distance
			if !found || cost < best.cost {
				best = approach{edge: dir, cost: cost}
				found = true
			}
		}
	}
	return best, found
}

// canonical maps driven edges to their segments.
func canonical(g *graph.Graph, steps []graph.EdgeID) []graph.EdgeID {
	out := make([]graph.EdgeID, len(steps))
	for i, id := range steps {
		out[i] = g.EdgeAt(id).Canonical()
	}
	return out
}
