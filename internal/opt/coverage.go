package opt

import "roadcover/internal/graph"

// Coverage is the run-scoped set of covered segments, keyed by canonical
// EdgeID. It never touches the graph's edges.
type Coverage struct {
	g       *graph.Graph
	covered []bool
	count   int
	total   int
}

// NewCoverage returns an empty coverage set for g.
func NewCoverage(g *graph.Graph) *Coverage {
	return &Coverage{
		g:       g,
		covered: make([]bool, g.EdgeCount()),
		total:   g.SegmentCount(),
	}
}

func (c *Coverage) canonical(id graph.EdgeID) (graph.EdgeID, bool) {
	e, ok := c.g.EdgeByID(id)
	if !ok {
		return graph.NoEdge, false
	}
	return e.Canonical(), true
}

// Has reports whether the segment of edge id is covered. Either direction
// may be passed.
func (c *Coverage) Has(id graph.EdgeID) bool {
	cid, ok := c.canonical(id)
	return ok && c.covered[cid]
}

// Add covers the segment of edge id and reports whether it was new.
func (c *Coverage) Add(id graph.EdgeID) bool {
	cid, ok := c.canonical(id)
	if !ok || c.covered[cid] {
		return false
	}
	c.covered[cid] = true
	c.count++
	return true
}

// Len returns the number of covered segments.
func (c *Coverage) Len() int { return c.count }

// Total returns the number of segments in the graph.
func (c *Coverage) Total() int { return c.total }

// Complete reports whether every segment is covered.
func (c *Coverage) Complete() bool { return c.count >= c.total }

// Ratio returns the covered share; an empty graph is fully covered.
func (c *Coverage) Ratio() float64 {
	if c.total == 0 {
		return 1
	}
	return float64(c.count) / float64(c.total)
}

// Covered returns the covered canonical edges in EdgeID order.
func (c *Coverage) Covered() []graph.Edge {
	out := make([]graph.Edge, 0, c.count)
	for _, e := range c.g.AllEdges() {
		if c.covered[e.ID] {
			out = append(out, e)
		}
	}
	return out
}

// Missing returns the uncovered canonical edges in EdgeID order.
func (c *Coverage) Missing() []graph.Edge {
	out := make([]graph.Edge, 0, c.total-c.count)
	for _, e := range c.g.AllEdges() {
		if !c.covered[e.ID] {
			out = append(out, e)
		}
	}
	return out
}
