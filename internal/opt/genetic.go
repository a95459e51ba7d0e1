package opt

import (
	"context"

	"roadcover/internal/dijkstra"
	"roadcover/internal/graph"
	"roadcover/internal/metrics"
)

// explorationShare is the leading share of generations that mutate at
// 1.5x the configured rate.
const explorationShare = 0.2

// GeneticStats describes one day's evolution.
type GeneticStats struct {
	Generations  int     `json:"generations"`
	Improvements int     `json:"improvements"`
	BestFitness  float64 `json:"bestFitness"`
	// BestDistance is the winner's length before any closing leg home.
	BestDistance float64 `json:"bestDistance"`
	Stagnated    bool    `json:"stagnated"`
	// MaxFitness is the fittest individual's fitness after each generation.
	MaxFitness []float64         `json:"maxFitness"`
	Snapshots  []FitnessSnapshot `json:"snapshots,omitempty"`
}

// FitnessSnapshot summarises a population after a generation.
type FitnessSnapshot struct {
	Generation int     `json:"generation"`
	Avg        float64 `json:"avg"`
	Max        float64 `json:"max"`
	Min        float64 `json:"min"`
}

// Genetic evolves a population of day routes grown from the depot and keeps
// the fittest. With ReturnToDepot the winner is closed with the shortest
// path home.
type Genetic struct{}

func (Genetic) Name() string { return "genetic" }

func (Genetic) PlanDay(ctx context.Context, st *RunState) (Day, error) {
	ev := newEvolution(st)
	best, stats, err := ev.run(ctx)
	if err != nil {
		return Day{}, err
	}

	route, steps := best.nodes, best.steps
	depot := st.Params.Depot
	if st.Params.ReturnToDepot && route[len(route)-1] != depot {
		home, err := st.Paths.ShortestSteps(ctx, route[len(route)-1], depot)
		if err != nil {
			return Day{}, err
		}
		steps = append(append([]graph.EdgeID(nil), steps...), home...)
		route = st.Graph.Walk(depot, steps)
	}
	// The closing leg is driven too, so coverage is taken from the final route.
	final := ev.evaluate(route, steps)
	st.Observer.UpdateCurrentPath(route)

	return Day{
		Route:    route,
		Steps:    steps,
		Distance: dijkstra.WalkDistance(st.Graph, steps),
		Edges:    final.covered,
		Genetic:  stats,
	}, nil
}

// run evolves one day's population and returns the best individual seen.
// The fittest individual is carried into every new generation unchanged,
// so the best fitness never decreases.
func (ev *evolution) run(ctx context.Context) (*individual, *GeneticStats, error) {
	p := ev.st.Params
	pop := make([]*individual, 0, p.PopulationSize)
	for range p.PopulationSize {
		pop = append(pop, ev.grow())
	}
	best := fittest(pop)
	stats := &GeneticStats{BestFitness: best.fitness}
	exploration := int(float64(p.Generations) * explorationShare)
	stagnant := 0

	for gen := 0; gen < p.Generations; gen++ {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		rate := p.MutationRate
		if gen < exploration {
			rate *= 1.5
		}

		next := make([]*individual, 0, p.PopulationSize)
		next = append(next, fittest(pop))
		for len(next) < p.PopulationSize {
			child := ev.crossover(ev.selectParent(pop), ev.selectParent(pop))
			if ev.st.Rand.Float64() < rate {
				child = ev.mutate(child)
			}
			next = append(next, child)
		}
		pop = next
		stats.Generations++
		metrics.Generations.Inc()

		cur := fittest(pop)
		stats.MaxFitness = append(stats.MaxFitness, cur.fitness)
		if cur.fitness > best.fitness {
			best = cur
			stats.Improvements++
			stats.BestFitness = best.fitness
			stagnant = 0
		} else {
			stagnant++
		}
		if p.SnapshotEvery > 0 && stats.Generations%p.SnapshotEvery == 0 {
			stats.Snapshots = append(stats.Snapshots, snapshot(gen+1, pop))
		}
		ev.st.Observer.MarkEdgesVisited(edgesOf(ev.st, best))

		if ev.coversRest(best) {
			break
		}
		if p.MaxStagnation > 0 && stagnant >= p.MaxStagnation {
			stats.Stagnated = true
			break
		}
	}
	stats.BestDistance = best.distance
	ev.st.Logger.Debug("evolution finished",
		"day", ev.st.Day,
		"generations", stats.Generations,
		"improvements", stats.Improvements,
		"best_fitness", stats.BestFitness,
	)
	return best, stats, nil
}

// coversRest reports whether ind alone covers every segment still missing.
func (ev *evolution) coversRest(ind *individual) bool {
	fresh := 0
	for _, cid := range ind.covered {
		if !ev.st.Coverage.Has(cid) {
			fresh++
		}
	}
	return ev.st.Coverage.Len()+fresh >= ev.st.Coverage.Total()
}

// fittest returns the individual with the highest fitness; ties go to the
// earliest.
func fittest(pop []*individual) *individual {
	best := pop[0]
	for _, ind := range pop[1:] {
		if ind.fitness > best.fitness {
			best = ind
		}
	}
	return best
}

func snapshot(gen int, pop []*individual) FitnessSnapshot {
	s := FitnessSnapshot{Generation: gen, Max: pop[0].fitness, Min: pop[0].fitness}
	sum := 0.0
	for _, ind := range pop {
		sum += ind.fitness
		if ind.fitness > s.Max {
			s.Max = ind.fitness
		}
		if ind.fitness < s.Min {
			s.Min = ind.fitness
		}
	}
	s.Avg = sum / float64(len(pop))
	return s
}
