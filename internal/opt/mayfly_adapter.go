package opt

import (
	"fmt"
	"math/rand"

	"github.com/cwbudde/mayfly"
)

// MayflyAdapter wraps the external Mayfly library to conform to our
// Optimizer interface. Mayfly is a population-based stochastic search and
// needs box bounds; the adapter applies the same scalar bounds to every
// dimension of the start vector.
type MayflyAdapter struct {
	maxIters int
	popSize  int
	seed     int64
	lower    float64
	upper    float64
}

// NewMayfly creates a new Mayfly optimizer adapter.
// lower and upper bound every coordinate of the search space.
func NewMayfly(maxIters, popSize int, seed int64, lower, upper float64) Optimizer {
	return &MayflyAdapter{
		maxIters: maxIters,
		popSize:  popSize,
		seed:     seed,
		lower:    lower,
		upper:    upper,
	}
}

// Run executes the Mayfly optimization using the external library.
// The start point only fixes the problem dimension; Mayfly seeds its own
// population within the bounds.
func (m *MayflyAdapter) Run(eval func([]float64) float64, start []float64) ([]float64, float64, error) {
	config := mayfly.NewDefaultConfig()

	config.ObjectiveFunc = eval
	config.ProblemSize = len(start)
	config.MaxIterations = m.maxIters
	config.NPop = m.popSize

	// External library uses scalar bounds shared by all dimensions.
	config.LowerBound = m.lower
	config.UpperBound = m.upper

	// Set random seed for reproducibility
	config.Rand = rand.New(rand.NewSource(m.seed))

	result, err := mayfly.Optimize(config)
	if err != nil {
		best := append([]float64{}, start...)
		return best, eval(best), fmt.Errorf("%w: %v", ErrNotConverged, err)
	}

	return result.GlobalBest.Position, result.GlobalBest.Cost, nil
}
