// Package graph holds the road network model used by the planners: nodes,
// mirrored directed edges, an index-based adjacency list and the 2-core
// reduction that strips dead-end spurs before routing.
//
// Nodes are addressed two ways. The int64 ID is the stable identifier that
// comes from the map data; the handle is a dense int assigned at
// construction and used for O(1) adjacency lookups. Edges are addressed by
// EdgeID. Every road segment is stored as a forward and a backward Edge and
// each one records the other as its Mirror.
package graph

import "errors"

// ErrUnknownEndpoint is returned by Build when a segment references a node
// that could not be placed in the node set.
var ErrUnknownEndpoint = errors.New("graph: edge endpoint not in node set")

// Node is a junction or shape point of the road network.
type Node struct {
	ID           int64   `json:"id" yaml:"id"`
	Lat          float64 `json:"lat" yaml:"lat"`
	Lon          float64 `json:"lon" yaml:"lon"`
	Intermediary bool    `json:"intermediary,omitempty" yaml:"intermediary,omitempty"`
}

// EdgeID is the handle of a directed edge. Handles are dense and are
// re-issued by Compute2Core.
type EdgeID int

// NoEdge is the zero-information EdgeID.
const NoEdge EdgeID = -1

// Edge is one direction of a road segment.
type Edge struct {
	ID       EdgeID  `json:"id"`
	From     int64   `json:"from"`
	To       int64   `json:"to"`
	Distance float64 `json:"distance"`
	Mirror   EdgeID  `json:"mirror"`
}

// Canonical returns the EdgeID that stands for the whole segment: the lower
// of the edge and its mirror.
func (e Edge) Canonical() EdgeID {
	if e.Mirror != NoEdge && e.Mirror < e.ID {
		return e.Mirror
	}
	return e.ID
}

// Reversed reports whether e is the backward half of its segment.
func (e Edge) Reversed() bool { return e.Canonical() != e.ID }

// Segment is one routable piece of road as delivered by the preprocessor:
// an ordered list of endpoint nodes and the segment's precomputed length in
// kilometres.
type Segment struct {
	Name     string  `json:"name,omitempty" yaml:"name,omitempty"`
	ID       int64   `json:"id" yaml:"id"`
	Nodes    []Node  `json:"nodes" yaml:"nodes"`
	Distance float64 `json:"distance,omitempty" yaml:"distance,omitempty"`
}

// CoreStats describes what a 2-core reduction removed.
type CoreStats struct {
	NodesBefore  int     `json:"nodesBefore"`
	NodesAfter   int     `json:"nodesAfter"`
	EdgesBefore  int     `json:"edgesBefore"`
	EdgesAfter   int     `json:"edgesAfter"`
	RemovedNodes []int64 `json:"removedNodes,omitempty"`
}

// Option configures Build.
type Option func(*buildOptions)

type buildOptions struct {
	segmentLengths bool
}

// WithSegmentLengths makes Build use each segment's precomputed Distance
// instead of the endpoint haversine. Segments with more than two nodes have
// the length spread over their legs in proportion to the haversine of each
// leg. Segments without a positive Distance fall back to haversine.
func WithSegmentLengths() Option {
	return func(o *buildOptions) { o.segmentLengths = true }
}
