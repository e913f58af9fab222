package opt

import (
	"fmt"

	"gonum.org/v1/gonum/optimize"
)

// NelderMeadAdapter wraps gonum's Nelder-Mead simplex method to conform to
// our Optimizer interface. Nelder-Mead is derivative-free, which matches the
// black-box contract: callers only provide an objective and a start point.
type NelderMeadAdapter struct {
	maxEvals int
}

// NewNelderMead creates a Nelder-Mead optimizer adapter.
// maxEvals caps objective evaluations; 0 uses gonum's defaults.
func NewNelderMead(maxEvals int) Optimizer {
	return &NelderMeadAdapter{maxEvals: maxEvals}
}

// Run executes the Nelder-Mead minimization using gonum/optimize.
func (nm *NelderMeadAdapter) Run(eval func([]float64) float64, start []float64) ([]float64, float64, error) {
	problem := optimize.Problem{Func: eval}

	settings := &optimize.Settings{}
	if nm.maxEvals > 0 {
		settings.FuncEvaluations = nm.maxEvals
	}

	initX := append([]float64{}, start...)

	result, err := optimize.Minimize(problem, initX, settings, &optimize.NelderMead{})
	if err != nil {
		// Best-effort: return whatever the method got to before failing.
		if result != nil && len(result.X) == len(start) {
			return result.X, result.F, fmt.Errorf("%w: %v", ErrNotConverged, err)
		}
		best := append([]float64{}, start...)
		return best, eval(best), fmt.Errorf("%w: %v", ErrNotConverged, err)
	}

	// A hit evaluation or iteration limit is a budget exhaustion, not a
	// converged result.
	if result.Status == optimize.FunctionEvaluationLimit || result.Status == optimize.IterationLimit {
		return result.X, result.F, fmt.Errorf("%w: %v", ErrNotConverged, result.Status)
	}

	return result.X, result.F, nil
}
