package observe

import (
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"roadcover/internal/graph"
)

// Stream is an Observer that publishes every notification to a Broker
// topic. High-frequency notifications (single edges) go through a token
// bucket; everything else is only subject to the buffer. Publishing happens
// on a background goroutine, so a slow Broker never slows the caller.
type Stream struct {
	broker  Broker
	topic   string
	limiter *rate.Limiter
	now     func() time.Time

	mu     sync.RWMutex
	closed bool
	events chan Event
	done   chan struct{}

	dropped atomic.Uint64
}

// StreamOption configures a Stream.
type StreamOption func(*Stream)

// WithRate limits edge notifications to r per second with the given burst.
func WithRate(r rate.Limit, burst int) StreamOption {
	return func(s *Stream) { s.limiter = rate.NewLimiter(r, burst) }
}

// WithBuffer sets how many events may wait for the Broker.
func WithBuffer(n int) StreamOption {
	return func(s *Stream) { s.events = make(chan Event, n) }
}

// NewStream starts publishing to topic on b. Close it when the run ends.
func NewStream(b Broker, topic string, opts ...StreamOption) *Stream {
	s := &Stream{
		broker:  b,
		topic:   topic,
		limiter: rate.NewLimiter(rate.Limit(200), 50),
		now:     time.Now,
		events:  make(chan Event, 256),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	go s.loop()
	return s
}

func (s *Stream) loop() {
	defer close(s.done)
	for evt := range s.events {
		s.broker.Publish(s.topic, evt)
	}
}

// Dropped returns how many notifications were discarded.
func (s *Stream) Dropped() uint64 { return s.dropped.Load() }

// Publish sends an arbitrary event on the stream's topic.
func (s *Stream) Publish(typ string, data any) {
	s.emit(Event{Type: typ, Data: data})
}

func (s *Stream) EdgeVisited(e graph.Edge) {
	if !s.limiter.Allow() {
		s.dropped.Add(1)
		return
	}
	ref := refOf(e)
	s.emit(Event{Type: EventEdgeVisited, Edge: &ref})
}

func (s *Stream) AddPathEdge(e graph.Edge) {
	if !s.limiter.Allow() {
		s.dropped.Add(1)
		return
	}
	ref := refOf(e)
	s.emit(Event{Type: EventPathEdge, Edge: &ref})
}

func (s *Stream) MarkEdgesVisited(edges []graph.Edge) {
	refs := make([]EdgeRef, len(edges))
	for i, e := range edges {
		refs[i] = refOf(e)
	}
	s.emit(Event{Type: EventEdgesMarked, Edges: refs})
}

func (s *Stream) ClearVisited() { s.emit(Event{Type: EventClearVisited}) }

func (s *Stream) UpdateCurrentPath(route []int64) {
	path := make([]int64, len(route))
	copy(path, route)
	s.emit(Event{Type: EventPathUpdated, Path: path})
}

func (s *Stream) emit(evt Event) {
	evt.Topic = s.topic
	evt.At = s.now()
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		s.dropped.Add(1)
		return
	}
	select {
	case s.events <- evt:
	default:
		s.dropped.Add(1)
	}
}

// Close stops accepting notifications and waits until the queued ones have
// been handed to the Broker.
func (s *Stream) Close() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.events)
	}
	s.mu.Unlock()
	<-s.done
}
