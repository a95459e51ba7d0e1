// Package store persists uploaded road networks and the metrics of past
// planning runs.
package store

import (
	"context"
	"errors"
	"time"

	"roadcover/internal/graph"
	"roadcover/internal/opt"
)

// Store is the persistence interface used by the API server.
type Store interface {
	// Networks
	SaveNetwork(ctx context.Context, name string, depot int64, segs []graph.Segment) (NetworkInfo, error)
	GetNetwork(ctx context.Context, id string) (Network, error)
	ListNetworks(ctx context.Context, cursor string, limit int) ([]NetworkInfo, string, error)
	DeleteNetwork(ctx context.Context, id string) error

	// Plan metrics
	SavePlanMetrics(ctx context.Context, rec PlanRecord) (PlanRecord, error)
	ListPlanMetrics(ctx context.Context, networkID, algo string) ([]PlanRecord, error)

	Ping(ctx context.Context) error
}

var ErrNotFound = errors.New("not found")

// NetworkInfo describes a stored network without its segments.
type NetworkInfo struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Depot     int64     `json:"depot,omitempty"`
	Segments  int       `json:"segments"`
	LengthKm  float64   `json:"lengthKm"`
	CreatedAt time.Time `json:"createdAt"`
}

type Network struct {
	NetworkInfo
	Data []graph.Segment `json:"data"`
}

// PlanRecord is the persisted outcome of one planning run.
type PlanRecord struct {
	ID          string      `json:"id"`
	NetworkID   string      `json:"networkId,omitempty"`
	Algorithm   string      `json:"algorithm"`
	Seed        int64       `json:"seed"`
	MaxDistance float64     `json:"maxDistance"`
	Days        int         `json:"days"`
	Covered     int         `json:"covered"`
	Total       int         `json:"total"`
	Complete    bool        `json:"complete"`
	StopReason  string      `json:"stopReason"`
	ElapsedMs   int64       `json:"elapsedMs"`
	Generations int         `json:"generations"`
	Summary     opt.Summary `json:"summary"`
	CreatedAt   time.Time   `json:"createdAt"`
}

// NewPlanRecord condenses p for storage.
func NewPlanRecord(networkID string, p opt.Plan) PlanRecord {
	rec := PlanRecord{
		NetworkID:   networkID,
		Algorithm:   p.Algorithm,
		Seed:        p.Seed,
		MaxDistance: p.MaxDistance,
		Days:        len(p.Days),
		Covered:     p.Covered,
		Total:       p.Total,
		Complete:    p.Complete,
		StopReason:  string(p.StopReason),
		ElapsedMs:   p.Elapsed.Milliseconds(),
		Summary:     opt.Summarize(p),
	}
	for _, d := range p.Days {
		if d.Genetic != nil {
			rec.Generations += d.Genetic.Generations
		}
	}
	return rec
}

func describe(name string, depot int64, segs []graph.Segment) NetworkInfo {
	info := NetworkInfo{Name: name, Depot: depot, Segments: len(segs)}
	for _, s := range segs {
		if s.Distance > 0 {
			info.LengthKm += s.Distance
			continue
		}
		for i := 1; i < len(s.Nodes); i++ {
			a, b := s.Nodes[i-1], s.Nodes[i]
			info.LengthKm += graph.Haversine(a.Lat, a.Lon, b.Lat, b.Lon)
		}
	}
	return info
}

func pageLimit(limit int) int {
	if limit <= 0 || limit > 500 {
		return 100
	}
	return limit
}
