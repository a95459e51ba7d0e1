package store

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"roadcover/internal/graph"
)

// Memory is a simple in-memory store used when no DATABASE_URL is set.
type Memory struct {
	mu       sync.Mutex
	networks map[string]Network // id -> network
	byName   map[string]string  // name -> id
	plans    []PlanRecord
	now      func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		networks: map[string]Network{},
		byName:   map[string]string{},
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SaveNetwork replaces a network of the same name, keeping its id.
func (m *Memory) SaveNetwork(ctx context.Context, name string, depot int64, segs []graph.Segment) (NetworkInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	info := describe(name, depot, segs)
	if id, ok := m.byName[name]; ok {
		info.ID = id
		info.CreatedAt = m.networks[id].CreatedAt
	} else {
		info.ID = uuid.New().String()
		info.CreatedAt = m.now()
		m.byName[name] = info.ID
	}
	m.networks[info.ID] = Network{NetworkInfo: info, Data: slices.Clone(segs)}
	return info, nil
}

func (m *Memory) GetNetwork(ctx context.Context, id string) (Network, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.networks[id]
	if !ok {
		return Network{}, ErrNotFound
	}
	n.Data = slices.Clone(n.Data)
	return n, nil
}

// ListNetworks pages by name; the cursor is the last name returned.
func (m *Memory) ListNetworks(ctx context.Context, cursor string, limit int) ([]NetworkInfo, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	limit = pageLimit(limit)
	names := make([]string, 0, len(m.byName))
	for name := range m.byName {
		if cursor == "" || name > cursor {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	out := []NetworkInfo{}
	for _, name := range names {
		if len(out) == limit {
			break
		}
		out = append(out, m.networks[m.byName[name]].NetworkInfo)
	}
	var next string
	if len(out) == limit && len(names) > limit {
		next = out[len(out)-1].Name
	}
	return out, next, nil
}

func (m *Memory) DeleteNetwork(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, ok := m.networks[id]
	if !ok {
		return ErrNotFound
	}
	delete(m.networks, id)
	delete(m.byName, n.Name)
	m.plans = slices.DeleteFunc(m.plans, func(r PlanRecord) bool { return r.NetworkID == id })
	return nil
}

func (m *Memory) SavePlanMetrics(ctx context.Context, rec PlanRecord) (PlanRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec.NetworkID != "" {
		if _, ok := m.networks[rec.NetworkID]; !ok {
			return PlanRecord{}, ErrNotFound
		}
	}
	rec.ID = uuid.New().String()
	rec.CreatedAt = m.now()
	m.plans = append(m.plans, rec)
	return rec, nil
}

// ListPlanMetrics returns the newest records first. Empty filters match
// everything.
func (m *Memory) ListPlanMetrics(ctx context.Context, networkID, algo string) ([]PlanRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []PlanRecord{}
	for i := len(m.plans) - 1; i >= 0; i-- {
		r := m.plans[i]
		if networkID != "" && r.NetworkID != networkID {
			continue
		}
		if algo != "" && !strings.EqualFold(r.Algorithm, algo) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (m *Memory) Ping(ctx context.Context) error { return ctx.Err() }
