// Package observe carries solver progress to whoever wants to watch it.
//
// Solvers call an Observer synchronously but an Observer must never block
// or fail: notifications are fire-and-forget. Stream turns notifications
// into Events and hands them to a Broker from a background goroutine,
// dropping what it cannot keep up with.
package observe

import (
	"time"

	"roadcover/internal/graph"
)

// Observer receives solver progress notifications.
type Observer interface {
	EdgeVisited(e graph.Edge)
	MarkEdgesVisited(edges []graph.Edge)
	AddPathEdge(e graph.Edge)
	ClearVisited()
	UpdateCurrentPath(route []int64)
}

// Nop ignores every notification.
type Nop struct{}

func (Nop) EdgeVisited(graph.Edge) {}
func (Nop) MarkEdgesVisited([]graph.Edge) {}
func (Nop) AddPathEdge(graph.Edge) {}
func (Nop) ClearVisited() {}
func (Nop) UpdateCurrentPath(route []int64) {}

// OrNop returns o, or Nop when o is nil.
func OrNop(o Observer) Observer {
	if o == nil {
		return Nop{}
	}
	return o
}

// Event types.
const (
	EventEdgeVisited  = "edge.visited"
	EventEdgesMarked  = "edges.marked"
	EventPathEdge     = "path.edge"
	EventClearVisited = "visited.cleared"
	EventPathUpdated  = "path.updated"
	EventRunFinished  = "run.finished"
)

// EdgeRef is the wire form of a directed edge.
type EdgeRef struct {
	ID       graph.EdgeID `json:"id"`
	From     int64        `json:"from"`
	To       int64        `json:"to"`
	Distance float64      `json:"distance"`
}

func refOf(e graph.Edge) EdgeRef {
	return EdgeRef{ID: e.ID, From: e.From, To: e.To, Distance: e.Distance}
}

// Event is one published notification.
type Event struct {
	Type  string    `json:"type"`
	Topic string    `json:"topic"`
	At    time.Time `json:"at"`
	Edge  *EdgeRef  `json:"edge,omitempty"`
	Edges []EdgeRef `json:"edges,omitempty"`
	Path  []int64   `json:"path,omitempty"`
	Data  any       `json:"data,omitempty"`
}
