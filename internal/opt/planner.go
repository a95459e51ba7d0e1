package opt

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"roadcover/internal/dijkstra"
	"roadcover/internal/graph"
	"roadcover/internal/metrics"
	"roadcover/internal/observe"
)

// DaySolver builds a single day's route. The Planner owns everything that
// spans days; a solver only reads RunState and returns the day it chose.
type DaySolver interface {
	Name() string
	// PlanDay returns a route starting at the depot and the edges it claims
	// to cover. A day claiming no uncovered edge ends the run.
	PlanDay(ctx context.Context, st *RunState) (Day, error)
}

// RunState is the state shared by the days of one run.
type RunState struct {
	Graph    *graph.Graph
	Paths    *dijkstra.Engine
	Params   Params
	Day      int // 1-based
	Coverage *Coverage
	Rand     *rand.Rand
	Observer observe.Observer
	Logger   *slog.Logger
}

// StopReason tells why a run ended.
type StopReason string

const (
	StopComplete   StopReason = "complete"
	StopMaxDays    StopReason = "max_days"
	StopNoProgress StopReason = "no_progress"
)

// Day is one planned working day.
type Day struct {
	Number int     `json:"number"`
	Route  []int64 `json:"route"`
	// Steps are the directed edges driven, one per consecutive pair of
	// Route. They tell parallel segments between two junctions apart.
	Steps    []graph.EdgeID `json:"steps"`
	Distance float64        `json:"distance"`
	// Edges lists the segments (canonical ids) first covered on this day.
	Edges   []graph.EdgeID `json:"edges"`
	Genetic *GeneticStats  `json:"genetic,omitempty"`
}

// Plan is the outcome of a run.
type Plan struct {
	Algorithm   string       `json:"algorithm"`
	Depot       int64        `json:"depot"`
	MaxDistance float64      `json:"maxDistance"`
	Seed        int64        `json:"seed"`
	Days        []Day        `json:"days"`
	Missing     []graph.Edge `json:"missing,omitempty"`
	Covered     int          `json:"covered"`
	Total       int          `json:"total"`
	Complete    bool         `json:"complete"`
	StopReason  StopReason   `json:"stopReason"`
	// Components is the number of connected components of the planned
	// graph; anything above one leaves segments unreachable from the depot.
	Components  int           `json:"components"`
	Searches    uint64        `json:"searches"`
	Relaxations uint64        `json:"relaxations"`
	Elapsed     time.Duration `json:"elapsed"`
}

// Routes returns the node sequence of every day.
func (p Plan) Routes() [][]int64 {
	out := make([][]int64, len(p.Days))
	for i, d := range p.Days {
		out[i] = d.Route
	}
	return out
}

// Planner drives a DaySolver day after day until every segment is covered,
// the day limit is hit, or a day makes no progress.
type Planner struct {
	solver   DaySolver
	params   Params
	observer observe.Observer
	logger   *slog.Logger
	tracer   trace.Tracer
}

// PlannerOption configures a Planner.
type PlannerOption func(*Planner)

// WithObserver sends progress notifications to o.
func WithObserver(o observe.Observer) PlannerOption {
	return func(p *Planner) { p.observer = observe.OrNop(o) }
}

// WithLogger sets the logger; nil discards.
func WithLogger(l *slog.Logger) PlannerOption {
	return func(p *Planner) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithTracer overrides the tracer taken from the global provider.
func WithTracer(t trace.Tracer) PlannerOption {
	return func(p *Planner) { p.tracer = t }
}

// NewPlanner returns a Planner running solver with params.
func NewPlanner(solver DaySolver, params Params, opts ...PlannerOption) *Planner {
	p := &Planner{
		solver:   solver,
		params:   params,
		observer: observe.Nop{},
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		tracer:   otel.Tracer("roadcover/internal/opt"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run plans g. Incomplete coverage is a result, not an error: the returned
// Plan lists what is missing. On cancellation the days planned so far are
// returned together with the context's error.
func (p *Planner) Run(ctx context.Context, g *graph.Graph) (Plan, error) {
	if err := p.params.Validate(); err != nil {
		return Plan{}, err
	}
	if !g.HasNode(p.params.Depot) {
		return Plan{}, fmt.Errorf("%w: %d", ErrDepotNotFound, p.params.Depot)
	}
	seed := p.params.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	algo := p.solver.Name()
	start := time.Now()

	ctx, span := p.tracer.Start(ctx, "opt.Plan", trace.WithAttributes(
		attribute.String("roadcover.algorithm", algo),
		attribute.Int64("roadcover.depot", p.params.Depot),
		attribute.Int("roadcover.segments", g.SegmentCount()),
		attribute.Int64("roadcover.seed", seed),
	))
	defer span.End()

	components := len(g.Components())
	if components > 1 {
		p.logger.Warn("graph is disconnected; segments outside the depot's component cannot be covered",
			"algorithm", algo, "components", components)
	}
	span.SetAttributes(attribute.Int("roadcover.components", components))

	var relaxations uint64
	engine := dijkstra.New(g, dijkstra.WithRelaxHook(func(int64, int64, float64) { relaxations++ }))
	st := &RunState{
		Graph:    g,
		Paths:    engine,
		Params:   p.params,
		Coverage: NewCoverage(g),
		Rand:     rand.New(rand.NewSource(seed)),
		Observer: p.observer,
		Logger:   p.logger.With("algorithm", algo),
	}
	plan := Plan{
		Algorithm:   algo,
		Depot:       p.params.Depot,
		MaxDistance: p.params.MaxDistance,
		Seed:        seed,
		Total:       st.Coverage.Total(),
		Components:  components,
	}

	var runErr error
	for day := 1; ; day++ {
		if st.Coverage.Complete() {
			plan.StopReason = StopComplete
			break
		}
		if p.params.MaxDays > 0 && day > p.params.MaxDays {
			plan.StopReason = StopMaxDays
			break
		}
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		st.Day = day
		d, err := p.planDay(ctx, st)
		if err != nil {
			runErr = err
			break
		}
		if len(d.Edges) == 0 {
			st.Logger.Warn("day covered no new segment; stopping", "day", day)
			plan.StopReason = StopNoProgress
			break
		}
		plan.Days = append(plan.Days, d)
		p.observer.MarkEdgesVisited(st.Coverage.Covered())
		p.observer.UpdateCurrentPath(d.Route)
	}

	plan.Missing = st.Coverage.Missing()
	plan.Covered = st.Coverage.Len()
	plan.Complete = st.Coverage.Complete()
	plan.Elapsed = time.Since(start)
	plan.Searches = engine.Searches()
	plan.Relaxations = relaxations
	metrics.Searches.Add(float64(plan.Searches))
	metrics.Relaxations.Add(float64(relaxations))

	if runErr != nil {
		span.RecordError(runErr)
		span.SetStatus(codes.Error, runErr.Error())
		st.Logger.Error("plan aborted", "days", len(plan.Days), "err", runErr)
		return plan, runErr
	}

	metrics.PlanRuns.WithLabelValues(algo, string(plan.StopReason)).Inc()
	metrics.PlanDuration.WithLabelValues(algo).Observe(plan.Elapsed.Seconds())
	metrics.PlanDays.WithLabelValues(algo).Observe(float64(len(plan.Days)))
	metrics.Coverage.WithLabelValues(algo).Set(st.Coverage.Ratio())
	span.SetAttributes(
		attribute.Int("roadcover.days", len(plan.Days)),
		attribute.Int("roadcover.missing", len(plan.Missing)),
		attribute.String("roadcover.stop_reason", string(plan.StopReason)),
	)
	if pub, ok := p.observer.(interface{ Publish(string, any) }); ok {
		pub.Publish(observe.EventRunFinished, Summarize(plan))
	}
	st.Logger.Info("plan finished",
		"days", len(plan.Days),
		"covered", plan.Covered,
		"total", plan.Total,
		"reason", plan.StopReason,
		"elapsed", plan.Elapsed,
	)
	return plan, nil
}

func (p *Planner) planDay(ctx context.Context, st *RunState) (Day, error) {
	ctx, span := p.tracer.Start(ctx, "opt.PlanDay", trace.WithAttributes(
		attribute.Int("roadcover.day", st.Day),
	))
	defer span.End()

	d, err := p.solver.PlanDay(ctx, st)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return Day{}, fmt.Errorf("day %d: %w", st.Day, err)
	}
	d.Number = st.Day

	fresh := make([]graph.EdgeID, 0, len(d.Edges))
	for _, id := range d.Edges {
		if st.Coverage.Add(id) {
			fresh = append(fresh, st.Graph.EdgeAt(id).Canonical())
		}
	}
	d.Edges = fresh
	if len(fresh) == 0 {
		return d, nil
	}

	metrics.DayDistance.WithLabelValues(p.solver.Name()).Observe(d.Distance)
	span.SetAttributes(
		attribute.Float64("roadcover.distance_km", d.Distance),
		attribute.Int("roadcover.new_segments", len(fresh)),
	)
	st.Logger.Info("day planned",
		"day", st.Day,
		"distance_km", d.Distance,
		"budget_km", st.Params.MaxDistance,
		"new_segments", len(fresh),
		"covered", st.Coverage.Len(),
		"total", st.Coverage.Total(),
	)
	return d, nil
}
