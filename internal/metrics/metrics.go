package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for the service
	Registry = prometheus.NewRegistry()
	// HTTPRequests counts requests by method, path, and status
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	// HTTPDuration records request durations in seconds
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path", "status"},
	)

	// PlanRuns counts planner runs by algorithm and stop reason
	PlanRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "roadcover_plan_runs_total", Help: "Planner runs by algorithm and stop reason."},
		[]string{"algorithm", "reason"},
	)
	// PlanDuration records wall time of a whole run in seconds
	PlanDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "roadcover_plan_duration_seconds", Help: "Planner run duration in seconds.", Buckets: []float64{.01, .05, .1, .5, 1, 2, 5, 10, 30, 60, 120}},
		[]string{"algorithm"},
	)
	// PlanDays records how many days a run produced
	PlanDays = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "roadcover_plan_days", Help: "Days per plan.", Buckets: []float64{1, 2, 3, 5, 8, 13, 21, 34, 55, 100}},
		[]string{"algorithm"},
	)
	// DayDistance records the distance of every planned day in km
	DayDistance = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "roadcover_day_distance_km", Help: "Distance per planned day in km.", Buckets: []float64{1, 5, 10, 20, 30, 40, 50, 75, 100}},
		[]string{"algorithm"},
	)
	// Coverage is the covered share of segments of the last finished run
	Coverage = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "roadcover_coverage_ratio", Help: "Covered share of segments in the last run."},
		[]string{"algorithm"},
	)
	// Generations counts genetic generations evolved
	Generations = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "roadcover_ga_generations_total", Help: "Genetic generations evolved."},
	)
	// Searches counts shortest-path searches
	Searches = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "roadcover_shortest_path_searches_total", Help: "Shortest-path searches run."},
	)
	// Relaxations counts improved tentative distances across all searches
	Relaxations = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "roadcover_shortest_path_relaxations_total", Help: "Shortest-path edge relaxations."},
	)
)

// RegisterDefault registers collectors to the default registry.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(HTTPDuration)
		Registry.MustRegister(PlanRuns)
		Registry.MustRegister(PlanDuration)
		Registry.MustRegister(PlanDays)
		Registry.MustRegister(DayDistance)
		Registry.MustRegister(Coverage)
		Registry.MustRegister(Generations)
		Registry.MustRegister(Searches)
		Registry.MustRegister(Relaxations)
		// Go/process collectors on our registry
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

var regOnce sync.Once
