// Package dijkstra finds shortest paths over a graph.Graph.
//
// Searches are deterministic: among equal tentative distances the node with
// the smaller id is settled first and, after that, the one discovered
// earlier. Predecessors only change on a strict improvement, so the first
// discovered of several equal-length paths is the one returned.
package dijkstra

import (
	"context"
	"math"
	"sync/atomic"

	"roadcover/internal/graph"
)

// RelaxHook observes every improved tentative distance. It must not block.
type RelaxHook func(from, to int64, dist float64)

// Option configures an Engine.
type Option func(*Engine)

// WithRelaxHook installs an observation hook called on each relaxation
// that improves a tentative distance.
func WithRelaxHook(h RelaxHook) Option {
	return func(e *Engine) { e.hook = h }
}

// Engine runs searches against one graph. It holds no per-search state and
// may be shared by goroutines.
type Engine struct {
	g        *graph.Graph
	hook     RelaxHook
	searches atomic.Uint64
}

// New returns an Engine for g.
func New(g *graph.Graph, opts ...Option) *Engine {
	e := &Engine{g: g}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Searches returns the number of searches started so far.
func (e *Engine) Searches() uint64 { return e.searches.Load() }

// ShortestPath returns the node ids of a shortest path from source to
// target, both inclusive. Unknown or unreachable endpoints give an empty
// path; source == target gives [source]. The only error is ctx's.
func (e *Engine) ShortestPath(ctx context.Context, source, target int64) ([]int64, error) {
	src, ok := e.g.Handle(source)
	if !ok {
		return []int64{}, nil
	}
	dst, ok := e.g.Handle(target)
	if !ok {
		return []int64{}, nil
	}
	if src == dst {
		return []int64{source}, nil
	}
	t, err := e.run(ctx, src, dst)
	if err != nil {
		return nil, err
	}
	return t.path(dst), nil
}

// ShortestSteps is ShortestPath expressed as the directed edges driven, so
// that a parallel segment is never confused with its neighbour. Unknown,
// unreachable or identical endpoints give no steps.
func (e *Engine) ShortestSteps(ctx context.Context, source, target int64) ([]graph.EdgeID, error) {
	src, ok := e.g.Handle(source)
	if !ok {
		return []graph.EdgeID{}, nil
	}
	dst, ok := e.g.Handle(target)
	if !ok || src == dst {
		return []graph.EdgeID{}, nil
	}
	t, err := e.run(ctx, src, dst)
	if err != nil {
		return nil, err
	}
	return t.steps(dst), nil
}

// Tree runs a full single-source search from source. An unknown source
// yields a tree in which nothing is reachable.
func (e *Engine) Tree(ctx context.Context, source int64) (*Tree, error) {
	src, ok := e.g.Handle(source)
	if !ok {
		return &Tree{g: e.g, source: -1}, nil
	}
	return e.run(ctx, src, -1)
}

func (e *Engine) run(ctx context.Context, src, dst int) (*Tree, error) {
	e.searches.Add(1)
	n := e.g.Len()
	t := &Tree{
		g:       e.g,
		source:  src,
		dist:    make([]float64, n),
		prev:    make([]int, n),
		via:     make([]graph.EdgeID, n),
		settled: make([]bool, n),
	}
	for i := range t.dist {
		t.dist[i] = math.Inf(1)
		t.prev[i] = -1
		t.via[i] = graph.NoEdge
	}
	t.dist[src] = 0

	var seq uint64
	q := &queue{}
	q.push(item{node: src, id: e.g.NodeAt(src).ID, dist: 0, seq: seq})
	for q.Len() > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		cur := q.pop()
		if t.settled[cur.node] {
			continue
		}
		t.settled[cur.node] = true
		if cur.node == dst {
			break
		}
		for _, eid := range e.g.Out(cur.node) {
			edge := e.g.EdgeAt(eid)
			next := e.g.Head(eid)
			if t.settled[next] {
				continue
			}
			nd := cur.dist + edge.Distance
			if nd >= t.dist[next] {
				continue
			}
			t.dist[next] = nd
			t.prev[next] = cur.node
			t.via[next] = eid
			seq++
			q.push(item{node: next, id: edge.To, dist: nd, seq: seq})
			if e.hook != nil {
				e.hook(edge.From, edge.To, nd)
			}
		}
	}
	return t, nil
}

// Tree is the result of a single-source search.
type Tree struct {
	g       *graph.Graph
	source  int
	dist    []float64
	prev    []int
	via     []graph.EdgeID // edge that settled each node
	settled []bool
}

// Distance returns the shortest distance from the tree's source to id.
func (t *Tree) Distance(id int64) (float64, bool) {
	h, ok := t.g.Handle(id)
	if !ok || t.source < 0 || !t.settled[h] {
		return math.Inf(1), false
	}
	return t.dist[h], true
}

// PathTo returns the shortest path from the source to id, or an empty path
// if id is unreachable. It matches ShortestPath for the same endpoints.
func (t *Tree) PathTo(id int64) []int64 {
	h, ok := t.g.Handle(id)
	if !ok || t.source < 0 {
		return []int64{}
	}
	return t.path(h)
}

// StepsTo returns the edges of PathTo(id), one per consecutive pair.
func (t *Tree) StepsTo(id int64) []graph.EdgeID {
	h, ok := t.g.Handle(id)
	if !ok || t.source < 0 {
		return []graph.EdgeID{}
	}
	return t.steps(h)
}

func (t *Tree) steps(h int) []graph.EdgeID {
	if !t.settled[h] {
		return []graph.EdgeID{}
	}
	var rev []graph.EdgeID
	for cur := h; t.prev[cur] != -1; cur = t.prev[cur] {
		rev = append(rev, t.via[cur])
	}
	out := make([]graph.EdgeID, len(rev))
	for i, id := range rev {
		out[len(rev)-1-i] = id
	}
	return out
}

func (t *Tree) path(h int) []int64 {
	if !t.settled[h] {
		return []int64{}
	}
	var rev []int64
	for cur := h; cur != -1; cur = t.prev[cur] {
		rev = append(rev, t.g.NodeAt(cur).ID)
	}
	out := make([]int64, len(rev))
	for i, id := range rev {
		out[len(rev)-1-i] = id
	}
	return out
}

// WalkDistance sums the lengths of the driven edges. Unknown handles
// contribute nothing.
func WalkDistance(g *graph.Graph, steps []graph.EdgeID) float64 {
	total := 0.0
	for _, id := range steps {
		if e, ok := g.EdgeByID(id); ok {
			total += e.Distance
		}
	}
	return total
}

// PathDistance sums the edge lengths along a node path. Consecutive pairs
// without a connecting edge contribute nothing, and parallel segments
// count as the shortest one; use WalkDistance when the edges are known.
func PathDistance(g *graph.Graph, path []int64) float64 {
	total := 0.0
	for i := 1; i < len(path); i++ {
		if e, ok := g.Edge(path[i-1], path[i]); ok {
			total += e.Distance
		}
	}
	return total
}
