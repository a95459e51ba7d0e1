package opt

import (
	"context"
	"fmt"
	"strings"

	"roadcover/internal/graph"
)

// Algorithms lists the solver names NewSolver accepts.
var Algorithms = []string{"greedy", "genetic"}

// NewSolver returns the DaySolver called name. The empty name is greedy.
func NewSolver(name string) (DaySolver, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "greedy":
		return Greedy{}, nil
	case "genetic", "ga":
		return Genetic{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, name)
}

// Solve plans g with the named algorithm.
func Solve(ctx context.Context, g *graph.Graph, algorithm string, params Params, opts ...PlannerOption) (Plan, error) {
	solver, err := NewSolver(algorithm)
	if err != nil {
		return Plan{}, err
	}
	return NewPlanner(solver, params, opts...).Run(ctx, g)
}
