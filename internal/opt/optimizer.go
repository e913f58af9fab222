package opt

import "errors"

// Optimizer defines a black-box minimization algorithm.
// Implementations minimize an arbitrary scalar-valued objective from a given
// starting point, without gradients. Non-convergence is reported through
// ErrNotConverged alongside the best parameters found so far; it is never a
// panic or an empty result.
type Optimizer interface {
	// Run minimizes eval starting from start.
	// Returns: best parameters, best cost, and an optional error wrapping
	// ErrNotConverged when the internal budget was exhausted.
	Run(eval func([]float64) float64, start []float64) ([]float64, float64, error)
}

// ErrNotConverged indicates an optimizer exhausted its internal budget.
// The returned parameters are still the best found and usable as a
// best-effort value. Use errors.Is(err, ErrNotConverged) to check.
var ErrNotConverged = errors.New("optimizer did not converge")
