package opt

import (
	"sort"

	"roadcover/internal/graph"
)

// growthShare is the part of the daily budget a freshly grown route may use.
const growthShare = 0.9

// grow builds a starting route from the depot, each step taking the least
// driven outgoing edge (today's visits plus uses within this route, then
// length, then a random draw) that keeps the route within growthShare of
// the budget.
func (ev *evolution) grow() *individual {
	g := ev.st.Graph
	rng := ev.st.Rand
	limit := ev.st.Params.MaxDistance * growthShare
	maxSteps := 2*g.EdgeCount() + 1

	cur := ev.st.Params.Depot
	nodes := []int64{cur}
	var steps []graph.EdgeID
	uses := make(map[graph.EdgeID]int)
	spent := 0.0
	for len(nodes) <= maxSteps {
		out := g.Neighbours(cur)
		if len(out) == 0 {
			break
		}
		rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
		sort.SliceStable(out, func(i, j int) bool {
			ci := ev.visits[out[i].Canonical()] + uses[out[i].Canonical()]
			cj := ev.visits[out[j].Canonical()] + uses[out[j].Canonical()]
			if ci != cj {
				return ci < cj
			}
			return out[i].Distance < out[j].Distance
		})
		var next *graph.Edge
		for i := range out {
			if spent+out[i].Distance <= limit {
				next = &out[i]
				break
			}
		}
		if next == nil {
			break
		}
		nodes = append(nodes, next.To)
		steps = append(steps, next.ID)
		uses[next.Canonical()]++
		spent += next.Distance
		cur = next.To
	}
	return ev.evaluate(nodes, steps)
}

// selectParent runs a tournament of TournamentSize draws with replacement
// and returns the entrant maximising fitness*(1+0.5/(1+avgVisits)). Ties go
// to the earliest draw.
func (ev *evolution) selectParent(pop []*individual) *individual {
	rng := ev.st.Rand
	var best *individual
	bestScore := 0.0
	for range ev.st.Params.TournamentSize {
		c := pop[rng.Intn(len(pop))]
		score := c.fitness * (1 + 0.5/(1+ev.avgVisits(c)))
		if best == nil || score > bestScore {
			best, bestScore = c, score
		}
	}
	return best
}

// crossover splices two parents at their best aligned common node. With
// probability 1-CrossoverRate, or when the parents share no node, a copy of
// a random parent is returned instead.
func (ev *evolution) crossover(p1, p2 *individual) *individual {
	rng := ev.st.Rand
	if rng.Float64() > ev.st.Params.CrossoverRate {
		return ev.clone(p1, p2)
	}
	at, ok := SplicePoint(p1.nodes, p2.nodes)
	if !ok {
		return ev.clone(p1, p2)
	}
	// The child drives p1's steps up to the splice node and p2's after it.
	i1, i2 := indexOf(p1.nodes, at), indexOf(p2.nodes, at)
	steps := make([]graph.EdgeID, 0, i1+len(p2.steps)-i2)
	steps = append(steps, p1.steps[:i1]...)
	steps = append(steps, p2.steps[i2:]...)
	return ev.evaluate(Splice(p1.nodes, p2.nodes, at), steps)
}

func (ev *evolution) clone(p1, p2 *individual) *individual {
	src := p1
	if ev.st.Rand.Intn(2) == 1 {
		src = p2
	}
	return ev.evaluate(append([]int64(nil), src.nodes...), append([]graph.EdgeID(nil), src.steps...))
}

// SplicePoint returns the node common to both routes whose first positions
// differ least. Candidates are scanned in p1 order; the first minimum wins.
func SplicePoint(p1, p2 []int64) (int64, bool) {
	first2 := make(map[int64]int, len(p2))
	for i, n := range p2 {
		if _, ok := first2[n]; !ok {
			first2[n] = i
		}
	}
	seen := make(map[int64]bool, len(p1))
	var at int64
	bestGap := -1
	for i1, n := range p1 {
		if seen[n] {
			continue
		}
		seen[n] = true
		i2, ok := first2[n]
		if !ok {
			continue
		}
		gap := i1 - i2
		if gap < 0 {
			gap = -gap
		}
		if bestGap < 0 || gap < bestGap {
			at, bestGap = n, gap
		}
	}
	return at, bestGap >= 0
}

// Splice returns p1 up to and including the first occurrence of at,
// followed by p2 strictly after its first occurrence of at. If at is
// missing from either route a copy of p1 is returned.
func Splice(p1, p2 []int64, at int64) []int64 {
	i1, i2 := indexOf(p1, at), indexOf(p2, at)
	if i1 < 0 || i2 < 0 {
		return append([]int64(nil), p1...)
	}
	child := make([]int64, 0, i1+1+len(p2)-i2-1)
	child = append(child, p1[:i1+1]...)
	child = append(child, p2[i2+1:]...)
	return child
}

func indexOf(s []int64, v int64) int {
	for i, x := range s {
		if x == v {
			return i
		}
	}
	return -1
}

// mutate returns a changed copy of ind. With 70% probability it inserts a
// detour over the least driven edge not yet on the route; otherwise it swaps
// two positions if the result is still a walk from the same start.
func (ev *evolution) mutate(ind *individual) *individual {
	if ev.st.Rand.Float64() < 0.7 {
		return ev.evaluate(ev.insertDetour(ind))
	}
	return ev.evaluate(ev.swap(ind))
}

// insertDetour drives the least visited uncovered edge leaving the route.
// When the edge's far end is adjacent to the next route node the detour
// rejoins there, otherwise it comes straight back.
func (ev *evolution) insertDetour(ind *individual) ([]int64, []graph.EdgeID) {
	g := ev.st.Graph
	nodes, steps := ind.nodes, ind.steps
	on := make(map[graph.EdgeID]bool, len(ind.covered))
	for _, cid := range ind.covered {
		on[cid] = true
	}
	pos := -1
	var pick graph.Edge
	for i, n := range nodes {
		if indexOf(nodes, n) != i {
			continue
		}
		for _, e := range g.Neighbours(n) {
			cid := e.Canonical()
			if on[cid] {
				continue
			}
			if pos < 0 || ev.visits[cid] < ev.visits[pick.Canonical()] {
				pos, pick = i, e
			}
		}
	}
	if pos < 0 {
		return append([]int64(nil), nodes...), append([]graph.EdgeID(nil), steps...)
	}

	insNodes := []int64{pick.To}
	insSteps := []graph.EdgeID{pick.ID}
	rest := pos // first kept step after the detour
	if pos+1 < len(nodes) {
		if link, ok := g.Edge(pick.To, nodes[pos+1]); ok {
			insSteps = append(insSteps, link.ID)
			rest = pos + 1
		} else {
			insNodes = append(insNodes, pick.From)
			insSteps = append(insSteps, pick.Mirror)
		}
	}
	outNodes := make([]int64, 0, len(nodes)+len(insNodes))
	outNodes = append(outNodes, nodes[:pos+1]...)
	outNodes = append(outNodes, insNodes...)
	outNodes = append(outNodes, nodes[pos+1:]...)
	outSteps := make([]graph.EdgeID, 0, len(steps)+len(insSteps))
	outSteps = append(outSteps, steps[:pos]...)
	outSteps = append(outSteps, insSteps...)
	outSteps = append(outSteps, steps[rest:]...)
	return outNodes, outSteps
}

// swap exchanges two route positions holding adjacent nodes, but only when
// the whole resulting sequence is still a walk from the same start. Steps
// between unchanged pairs keep their edge; the others take Edge(x, y).
func (ev *evolution) swap(ind *individual) ([]int64, []graph.EdgeID) {
	nodes := append([]int64(nil), ind.nodes...)
	steps := append([]graph.EdgeID(nil), ind.steps...)
	if len(nodes) <= 2 {
		return nodes, steps
	}
	g := ev.st.Graph
	i := ev.st.Rand.Intn(len(nodes) - 1)
	j := ev.st.Rand.Intn(len(nodes) - 1)
	if i == j || !g.Adjacent(nodes[i], nodes[j]) {
		return nodes, steps
	}
	swapped := append([]int64(nil), nodes...)
	swapped[i], swapped[j] = swapped[j], swapped[i]
	if swapped[0] != nodes[0] || !walkable(g, swapped) {
		return nodes, steps
	}
	for k := 1; k < len(swapped); k++ {
		if swapped[k-1] == nodes[k-1] && swapped[k] == nodes[k] {
			continue
		}
		e, _ := g.Edge(swapped[k-1], swapped[k])
		steps[k-1] = e.ID
	}
	return swapped, steps
}
