package network

import (
	"slices"

	"roadcover/internal/graph"
)

// Stats describes what Preprocess kept and threw away.
type Stats struct {
	Ways           int `json:"ways"`
	Intermediaries int `json:"intermediaries"`
	Pieces         int `json:"pieces"`
	SingleNode     int `json:"singleNode"`
	MissingRefs    int `json:"missingRefs"`
	Components     int `json:"components"`
	Segments       int `json:"segments"`
}

// Preprocess turns an extract into routable segments.
//
// A node referenced more than once across all ways is an intermediary.
// Ways are split at intermediaries, pieces with fewer than two nodes are
// dropped, each piece's length is the sum of its haversine legs and the
// piece is then trimmed to its two end nodes. Only segments in the largest
// connected component (by endpoints) survive. Segment IDs are assigned
// sequentially from 1 in way order.
func Preprocess(ex *Extract) ([]graph.Segment, Stats) {
	var st Stats
	if ex == nil {
		return nil, st
	}
	st.Ways = len(ex.Ways)

	occurrences := make(map[int64]int)
	for _, w := range ex.Ways {
		for _, id := range w.Nodes {
			occurrences[id]++
		}
	}

	nodes := make(map[int64]graph.Node, len(ex.Points))
	for _, p := range ex.Points {
		if _, dup := nodes[p.ID]; dup {
			continue
		}
		n := graph.Node{ID: p.ID, Lat: p.Lat, Lon: p.Lon, Intermediary: occurrences[p.ID] > 1}
		if n.Intermediary {
			st.Intermediaries++
		}
		nodes[p.ID] = n
	}

	var segs []graph.Segment
	for _, w := range ex.Ways {
		for _, piece := range splitWay(w, nodes, &st) {
			st.Pieces++
			if len(piece) < 2 {
				st.SingleNode++
				continue
			}
			segs = append(segs, graph.Segment{
				Name:     w.Name(),
				Nodes:    []graph.Node{piece[0], piece[len(piece)-1]},
				Distance: pieceLength(piece),
			})
		}
	}

	segs, st.Components = largestComponent(segs)
	for i := range segs {
		segs[i].ID = int64(i + 1)
	}
	st.Segments = len(segs)
	return segs, st
}

// splitWay cuts w at every intermediary node. An intermediary closes the
// current piece and opens the next one. References to unknown nodes are
// skipped.
func splitWay(w Way, nodes map[int64]graph.Node, st *Stats) [][]graph.Node {
	var (
		pieces  [][]graph.Node
		current []graph.Node
	)
	for _, id := range w.Nodes {
		n, ok := nodes[id]
		if !ok {
			st.MissingRefs++
			continue
		}
		current = append(current, n)
		if n.Intermediary {
			pieces = append(pieces, current)
			current = []graph.Node{n}
		}
	}
	if len(current) > 0 {
		pieces = append(pieces, current)
	}
	return pieces
}

func pieceLength(piece []graph.Node) float64 {
	var d float64
	for i := 1; i < len(piece); i++ {
		a, b := piece[i-1], piece[i]
		d += graph.Haversine(a.Lat, a.Lon, b.Lat, b.Lon)
	}
	return d
}

// largestComponent keeps the segments whose endpoints fall in the biggest
// union-find component, counted in nodes. Ties go to the component holding
// the smallest node ID. It also returns the number of components.
func largestComponent(segs []graph.Segment) ([]graph.Segment, int) {
	if len(segs) == 0 {
		return nil, 0
	}
	index := make(map[int64]int)
	var ids []int64
	for _, s := range segs {
		for _, n := range []graph.Node{s.Nodes[0], s.Nodes[len(s.Nodes)-1]} {
			if _, ok := index[n.ID]; !ok {
				index[n.ID] = -1
				ids = append(ids, n.ID)
			}
		}
	}
	slices.Sort(ids)
	for i, id := range ids {
		index[id] = i
	}

	ds := newDisjointSet(len(ids))
	for _, s := range segs {
		ds.union(index[s.Nodes[0].ID], index[s.Nodes[len(s.Nodes)-1].ID])
	}

	sizes := make(map[int]int)
	for i := range ids {
		sizes[ds.find(i)]++
	}
	// ids are sorted, so scanning them meets each component at its
	// smallest node first.
	best, bestSize := -1, 0
	for i := range ids {
		if r := ds.find(i); sizes[r] > bestSize {
			best, bestSize = r, sizes[r]
		}
	}

	kept := segs[:0:0]
	for _, s := range segs {
		if ds.find(index[s.Nodes[0].ID]) == best {
			kept = append(kept, s)
		}
	}
	return kept, len(sizes)
}
