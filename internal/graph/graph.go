package graph

import (
	"fmt"
	"math"
)

// Graph is an undirected road network stored as mirrored directed edges.
//
// A Graph is built once, optionally reduced with Compute2Core, and is
// read-only afterwards; concurrent readers are safe. Run-local bookkeeping
// such as coverage or visit counts belongs to the caller, keyed by EdgeID.
type Graph struct {
	nodes []Node
	index map[int64]int // node id -> handle
	edges []Edge
	tails []int // edge id -> handle of From
	heads []int // edge id -> handle of To
	adj   [][]EdgeID
}

// Build constructs a Graph from preprocessed road segments. Nodes are
// deduplicated by ID (first occurrence wins). Segments with fewer than two
// nodes are skipped, as are consecutive repeats of the same node.
func Build(segments []Segment, opts ...Option) (*Graph, error) {
	var o buildOptions
	for _, opt := range opts {
		opt(&o)
	}
	g := &Graph{index: make(map[int64]int)}
	for _, seg := range segments {
		if len(seg.Nodes) < 2 {
			continue
		}
		for _, n := range seg.Nodes {
			if _, ok := g.index[n.ID]; ok {
				continue
			}
			g.index[n.ID] = len(g.nodes)
			g.nodes = append(g.nodes, n)
			g.adj = append(g.adj, nil)
		}
	}
	for _, seg := range segments {
		if len(seg.Nodes) < 2 {
			continue
		}
		legs := g.legLengths(seg, o)
		for i := 0; i < len(seg.Nodes)-1; i++ {
			x, y := seg.Nodes[i].ID, seg.Nodes[i+1].ID
			if x == y {
				continue
			}
			if err := g.addSegment(x, y, legs[i]); err != nil {
				return nil, fmt.Errorf("segment %d: %w", seg.ID, err)
			}
		}
	}
	return g, nil
}

// legLengths returns the length of every consecutive pair of seg.
func (g *Graph) legLengths(seg Segment, o buildOptions) []float64 {
	legs := make([]float64, len(seg.Nodes)-1)
	total := 0.0
	for i := range legs {
		a := g.nodes[g.index[seg.Nodes[i].ID]]
		b := g.nodes[g.index[seg.Nodes[i+1].ID]]
		legs[i] = nodeDistance(a, b)
		total += legs[i]
	}
	if !o.segmentLengths || seg.Distance <= 0 {
		return legs
	}
	if len(legs) == 1 {
		legs[0] = seg.Distance
		return legs
	}
	for i := range legs {
		if total > 0 {
			legs[i] = seg.Distance * legs[i] / total
		} else {
			legs[i] = seg.Distance / float64(len(legs))
		}
	}
	return legs
}

func (g *Graph) addSegment(x, y int64, distance float64) error {
	hx, okx := g.index[x]
	hy, oky := g.index[y]
	if !okx || !oky {
		return ErrUnknownEndpoint
	}
	if distance < 0 || math.IsNaN(distance) {
		distance = 0
	}
	fwd := EdgeID(len(g.edges))
	bwd := fwd + 1
	g.edges = append(g.edges,
		Edge{ID: fwd, From: x, To: y, Distance: distance, Mirror: bwd},
		Edge{ID: bwd, From: y, To: x, Distance: distance, Mirror: fwd},
	)
	g.tails = append(g.tails, hx, hy)
	g.heads = append(g.heads, hy, hx)
	g.adj[hx] = append(g.adj[hx], fwd)
	g.adj[hy] = append(g.adj[hy], bwd)
	return nil
}

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.nodes) }

// EdgeCount returns the number of directed edges (twice the segment count).
func (g *Graph) EdgeCount() int { return len(g.edges) }

// SegmentCount returns the number of road segments.
func (g *Graph) SegmentCount() int { return len(g.edges) / 2 }

// Nodes returns a copy of the node set in handle order.
func (g *Graph) Nodes() []Node {
	out := make([]Node, len(g.nodes))
	copy(out, g.nodes)
	return out
}

// Node looks a node up by ID.
func (g *Graph) Node(id int64) (Node, bool) {
	h, ok := g.index[id]
	if !ok {
		return Node{}, false
	}
	return g.nodes[h], true
}

// HasNode reports whether id is part of the graph.
func (g *Graph) HasNode(id int64) bool {
	_, ok := g.index[id]
	return ok
}

// Handle returns the dense handle of node id.
func (g *Graph) Handle(id int64) (int, bool) {
	h, ok := g.index[id]
	return h, ok
}

// NodeAt returns the node behind handle h.
func (g *Graph) NodeAt(h int) Node { return g.nodes[h] }

// Out returns the outgoing edge handles of node handle h in insertion
// order. The slice is owned by the graph and must not be modified.
func (g *Graph) Out(h int) []EdgeID { return g.adj[h] }

// EdgeAt returns the edge behind handle id. It panics on an invalid handle;
// use EdgeByID for untrusted input.
func (g *Graph) EdgeAt(id EdgeID) Edge { return g.edges[id] }

// Head returns the node handle an edge points to.
func (g *Graph) Head(id EdgeID) int { return g.heads[id] }

// EdgeByID looks up an edge by handle.
func (g *Graph) EdgeByID(id EdgeID) (Edge, bool) {
	if id < 0 || int(id) >= len(g.edges) {
		return Edge{}, false
	}
	return g.edges[id], true
}

// Neighbours returns the outgoing edges of node id ordered by EdgeID.
// Unknown nodes have no neighbours.
func (g *Graph) Neighbours(id int64) []Edge {
	h, ok := g.index[id]
	if !ok {
		return nil
	}
	out := make([]Edge, 0, len(g.adj[h]))
	for _, eid := range g.adj[h] {
		out = append(out, g.edges[eid])
	}
	return out
}

// Degree returns the number of segments incident to node id.
func (g *Graph) Degree(id int64) int {
	h, ok := g.index[id]
	if !ok {
		return 0
	}
	return len(g.adj[h])
}

// Edge returns the directed edge x->y. With parallel segments the shortest
// one wins, ties going to the lower EdgeID.
func (g *Graph) Edge(x, y int64) (Edge, bool) {
	hx, ok := g.index[x]
	if !ok {
		return Edge{}, false
	}
	best := NoEdge
	for _, eid := range g.adj[hx] {
		e := g.edges[eid]
		if e.To != y {
			continue
		}
		if best == NoEdge || e.Distance < g.edges[best].Distance {
			best = eid
		}
	}
	if best == NoEdge {
		return Edge{}, false
	}
	return g.edges[best], true
}

// Adjacent reports whether an edge x->y exists.
func (g *Graph) Adjacent(x, y int64) bool {
	_, ok := g.Edge(x, y)
	return ok
}

// Steps resolves a node walk into the directed edges it drives, taking
// Edge(x, y) for every consecutive pair. ok is false when some pair is not
// adjacent; the steps up to that pair are still returned.
func (g *Graph) Steps(walk []int64) ([]EdgeID, bool) {
	steps := make([]EdgeID, 0, max(len(walk)-1, 0))
	for i := 1; i < len(walk); i++ {
		e, ok := g.Edge(walk[i-1], walk[i])
		if !ok {
			return steps, false
		}
		steps = append(steps, e.ID)
	}
	return steps, true
}

// Walk returns the node sequence of driving steps from start. Steps that
// do not leave the current node are skipped.
func (g *Graph) Walk(start int64, steps []EdgeID) []int64 {
	walk := make([]int64, 1, len(steps)+1)
	walk[0] = start
	for _, id := range steps {
		e, ok := g.EdgeByID(id)
		if !ok || e.From != walk[len(walk)-1] {
			continue
		}
		walk = append(walk, e.To)
	}
	return walk
}

// AllEdges returns one canonical edge per road segment, ascending by
// EdgeID. Coverage and missing-edge reports are expressed in these edges.
func (g *Graph) AllEdges() []Edge {
	out := make([]Edge, 0, len(g.edges)/2)
	for _, e := range g.edges {
		if e.Canonical() == e.ID {
			out = append(out, e)
		}
	}
	return out
}

// TotalLength returns the summed length of all segments.
func (g *Graph) TotalLength() float64 {
	total := 0.0
	for _, e := range g.edges {
		if e.Canonical() == e.ID {
			total += e.Distance
		}
	}
	return total
}

// Distance returns the haversine distance between two nodes, independent
// of whether they share an edge.
func (g *Graph) Distance(a, b int64) (float64, bool) {
	na, ok := g.Node(a)
	if !ok {
		return 0, false
	}
	nb, ok := g.Node(b)
	if !ok {
		return 0, false
	}
	return nodeDistance(na, nb), true
}

// IsConnected reports whether every node is reachable from the first one.
// The empty graph is connected.
func (g *Graph) IsConnected() bool {
	if len(g.nodes) == 0 {
		return true
	}
	return len(g.reach(0, nil)) == len(g.nodes)
}

// Components returns the node IDs of every connected component, in order
// of each component's first node handle.
func (g *Graph) Components() [][]int64 {
	seen := make([]bool, len(g.nodes))
	var out [][]int64
	for h := range g.nodes {
		if seen[h] {
			continue
		}
		comp := g.reach(h, seen)
		ids := make([]int64, len(comp))
		for i, c := range comp {
			ids[i] = g.nodes[c].ID
		}
		out = append(out, ids)
	}
	return out
}

// reach runs a breadth-first search from start and returns the handles it
// reached. seen may be shared between calls.
func (g *Graph) reach(start int, seen []bool) []int {
	if seen == nil {
		seen = make([]bool, len(g.nodes))
	}
	seen[start] = true
	queue := []int{start}
	for i := 0; i < len(queue); i++ {
		for _, eid := range g.adj[queue[i]] {
			next := g.heads[eid]
			if !seen[next] {
				seen[next] = true
				queue = append(queue, next)
			}
		}
	}
	return queue
}
