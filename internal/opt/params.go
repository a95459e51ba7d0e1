package opt

import (
	"errors"
	"fmt"
)

var (
	// ErrDepotNotFound is returned when the depot is not a node of the graph.
	ErrDepotNotFound = errors.New("opt: depot not in graph")
	// ErrBadConfig wraps every parameter validation failure.
	ErrBadConfig = errors.New("opt: invalid parameters")
	// ErrUnknownAlgorithm is returned by NewSolver for an unsupported name.
	ErrUnknownAlgorithm = errors.New("opt: unknown algorithm")
)

// Params holds the tunables of a planning run.
type Params struct {
	Depot          int64   `json:"depot" yaml:"depot" mapstructure:"depot"`
	MaxDistance    float64 `json:"maxDistance" yaml:"maxDistance" mapstructure:"maxDistance"` // km per day
	MaxDays        int     `json:"maxDays" yaml:"maxDays" mapstructure:"maxDays"`                // 0 = unlimited
	Seed           int64   `json:"seed" yaml:"seed" mapstructure:"seed"`                         // 0 = time based
	PopulationSize int     `json:"populationSize" yaml:"populationSize" mapstructure:"populationSize"`
	Generations    int     `json:"generations" yaml:"generations" mapstructure:"generations"`
	TournamentSize int     `json:"tournamentSize" yaml:"tournamentSize" mapstructure:"tournamentSize"`
	CrossoverRate  float64 `json:"crossoverRate" yaml:"crossoverRate" mapstructure:"crossoverRate"`
	MutationRate   float64 `json:"mutationRate" yaml:"mutationRate" mapstructure:"mutationRate"`
	MaxStagnation  int     `json:"maxStagnation" yaml:"maxStagnation" mapstructure:"maxStagnation"` // 0 = off
	SnapshotEvery  int     `json:"snapshotEvery" yaml:"snapshotEvery" mapstructure:"snapshotEvery"` // 0 = off
	ReturnToDepot  bool    `json:"returnToDepot" yaml:"returnToDepot" mapstructure:"returnToDepot"`
	CreditTransit  bool    `json:"creditTransit" yaml:"creditTransit" mapstructure:"creditTransit"`
}

// DefaultParams returns the tuning the planner was calibrated with.
func DefaultParams() Params {
	return Params{
		Depot:          65296337,
		MaxDistance:    42.2,
		MaxDays:        100,
		PopulationSize: 100,
		Generations:    5,
		TournamentSize: 7,
		CrossoverRate:  0.8,
		MutationRate:   0.005,
		MaxStagnation:  25,
		SnapshotEvery:  1,
		ReturnToDepot:  true,
	}
}

// Validate checks p for values no solver can work with.
func (p Params) Validate() error {
	switch {
	case !(p.MaxDistance > 0):
		return fmt.Errorf("%w: maxDistance must be > 0", ErrBadConfig)
	case p.MaxDays < 0:
		return fmt.Errorf("%w: maxDays must be >= 0", ErrBadConfig)
	case p.PopulationSize < 1:
		return fmt.Errorf("%w: populationSize must be >= 1", ErrBadConfig)
	case p.Generations < 0:
		return fmt.Errorf("%w: generations must be >= 0", ErrBadConfig)
	case p.TournamentSize < 1:
		return fmt.Errorf("%w: tournamentSize must be >= 1", ErrBadConfig)
	case p.CrossoverRate < 0 || p.CrossoverRate > 1:
		return fmt.Errorf("%w: crossoverRate must be in [0,1]", ErrBadConfig)
	case p.MutationRate < 0 || p.MutationRate > 1:
		return fmt.Errorf("%w: mutationRate must be in [0,1]", ErrBadConfig)
	case p.MaxStagnation < 0:
		return fmt.Errorf("%w: maxStagnation must be >= 0", ErrBadConfig)
	case p.SnapshotEvery < 0:
		return fmt.Errorf("%w: snapshotEvery must be >= 0", ErrBadConfig)
	}
	return nil
}
