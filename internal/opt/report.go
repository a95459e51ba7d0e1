package opt

import (
	"fmt"
	"io"
	"strings"

	"roadcover/internal/graph"
)

// budgetSlack absorbs float summation differences when comparing a day's
// distance with the budget.
const budgetSlack = 1e-9

// Gap is a consecutive pair of a route with no edge between them.
type Gap struct {
	Day  int   `json:"day"`
	From int64 `json:"from"`
	To   int64 `json:"to"`
}

// Overrun is a day longer than the budget.
type Overrun struct {
	Day      int     `json:"day"`
	Distance float64 `json:"distance"`
	Budget   float64 `json:"budget"`
}

// Report lists everything wrong with a set of routes.
type Report struct {
	Missing         []graph.Edge `json:"missing,omitempty"`
	OverBudget      []Overrun    `json:"overBudget,omitempty"`
	DepotViolations []int        `json:"depotViolations,omitempty"`
	Gaps            []Gap        `json:"gaps,omitempty"`
}

// OK reports whether the routes passed every check.
func (r Report) OK() bool {
	return len(r.Missing) == 0 && len(r.OverBudget) == 0 && len(r.DepotViolations) == 0 && len(r.Gaps) == 0
}

// Validate checks days against g independently of how they were made:
// every segment driven, no day over maxDistance, every day starting and
// ending at depot, and every step following an edge. A day's Steps say
// which edge each pair of its Route drove; a day without Steps is resolved
// pair by pair with Edge(x, y). Days are numbered by position from 1.
func Validate(g *graph.Graph, days []Day, depot int64, maxDistance float64) Report {
	var r Report
	covered := make(map[graph.EdgeID]bool)
	for i, d := range days {
		day := i + 1
		route := d.Route
		if len(route) == 0 || route[0] != depot || route[len(route)-1] != depot {
			r.DepotViolations = append(r.DepotViolations, day)
		}
		distance := 0.0
		for j := 1; j < len(route); j++ {
			e, ok := driven(g, d, j-1)
			if !ok {
				r.Gaps = append(r.Gaps, Gap{Day: day, From: route[j-1], To: route[j]})
				continue
			}
			covered[e.Canonical()] = true
			distance += e.Distance
		}
		if distance > maxDistance+budgetSlack {
			r.OverBudget = append(r.OverBudget, Overrun{Day: day, Distance: distance, Budget: maxDistance})
		}
	}
	for _, e := range g.AllEdges() {
		if !covered[e.ID] {
			r.Missing = append(r.Missing, e)
		}
	}
	return r
}

// driven returns the edge day d drove from Route[k] to Route[k+1].
func driven(g *graph.Graph, d Day, k int) (graph.Edge, bool) {
	from, to := d.Route[k], d.Route[k+1]
	if d.Steps == nil {
		return g.Edge(from, to)
	}
	if k >= len(d.Steps) {
		return graph.Edge{}, false
	}
	e, ok := g.EdgeByID(d.Steps[k])
	if !ok || e.From != from || e.To != to {
		return graph.Edge{}, false
	}
	return e, true
}

// DaySummary is the per-day line of a plan summary.
type DaySummary struct {
	Day           int     `json:"day"`
	Distance      float64 `json:"distance"`
	BudgetPercent float64 `json:"budgetPercent"`
	Edges         int     `json:"edges"`
	Nodes         int     `json:"nodes"`
	Start         int64   `json:"start"`
	End           int64   `json:"end"`
}

// Summary condenses a plan for printing and publishing.
type Summary struct {
	Algorithm string       `json:"algorithm"`
	Days      []DaySummary `json:"days"`
	Covered   int          `json:"covered"`
	Total     int          `json:"total"`
	Complete  bool         `json:"complete"`
	Reason    StopReason   `json:"reason"`
}

// Summarize derives the per-day summary of p.
func Summarize(p Plan) Summary {
	s := Summary{
		Algorithm: p.Algorithm,
		Covered:   p.Covered,
		Total:     p.Total,
		Complete:  p.Complete,
		Reason:    p.StopReason,
	}
	for _, d := range p.Days {
		ds := DaySummary{
			Day:      d.Number,
			Distance: d.Distance,
			Edges:    len(d.Edges),
			Nodes:    len(d.Route),
		}
		if p.MaxDistance > 0 {
			ds.BudgetPercent = d.Distance / p.MaxDistance * 100
		}
		if len(d.Route) > 0 {
			ds.Start, ds.End = d.Route[0], d.Route[len(d.Route)-1]
		}
		s.Days = append(s.Days, ds)
	}
	return s
}

// WriteSummary prints a human-readable daily breakdown of p to w.
func WriteSummary(w io.Writer, p Plan) error {
	var b strings.Builder
	fmt.Fprintf(&b, "=== DAILY ROUTE SUMMARY (%s) ===\n", p.Algorithm)
	fmt.Fprintf(&b, "Total days required: %d\n", len(p.Days))
	for _, d := range p.Days {
		pct := 0.0
		if p.MaxDistance > 0 {
			pct = d.Distance / p.MaxDistance * 100
		}
		fmt.Fprintf(&b, "\nDay %d:\n", d.Number)
		fmt.Fprintf(&b, "- Distance traveled: %.2f km (%.1f%% of max)\n", d.Distance, pct)
		fmt.Fprintf(&b, "- Edges covered: %d\n", len(d.Edges))
		fmt.Fprintf(&b, "- Route nodes: %d\n", len(d.Route))
		if len(d.Route) > 0 {
			fmt.Fprintf(&b, "- Start/End: %d -> %d\n", d.Route[0], d.Route[len(d.Route)-1])
		}
		fmt.Fprintf(&b, "- Path: %s\n", abbreviate(d.Route))
	}
	fmt.Fprintf(&b, "\nCovered %d/%d segments", p.Covered, p.Total)
	if p.Total > 0 {
		fmt.Fprintf(&b, " (%.1f%%)", float64(p.Covered)/float64(p.Total)*100)
	}
	fmt.Fprintf(&b, ", stop reason: %s\n", p.StopReason)
	if len(p.Missing) > 0 {
		fmt.Fprintf(&b, "Missing %d segments:\n", len(p.Missing))
		for _, e := range p.Missing {
			fmt.Fprintf(&b, "  %d->%d (%.2f km)\n", e.From, e.To, e.Distance)
		}
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// abbreviate renders a route, eliding the middle of long ones.
func abbreviate(route []int64) string {
	if len(route) > 6 {
		return fmt.Sprintf("[%d, %d, %d, ..., %d, %d, %d]",
			route[0], route[1], route[2],
			route[len(route)-3], route[len(route)-2], route[len(route)-1])
	}
	parts := make([]string, len(route))
	for i, id := range route {
		parts[i] = fmt.Sprint(id)
	}
	return strings.Join(parts, " -> ")
}
