// Package interval implements a stochastic, derivative-free scalar minimizer
// based on randomized bracket narrowing ("random interval search").
//
// The search keeps a bracket (x1, x2, x3) with x1 <= x2 <= x3 where x2 is the
// best point seen so far. Each iteration explores the larger of the two
// sub-intervals with a uniform random draw and either shrinks the bracket
// toward x2 or slides it toward the new candidate. The search is a heuristic:
// repeated runs with different seeds may return different answers.
package interval

import (
	"errors"
	"fmt"
	"math/rand"
	"time"
)

// Status describes how a minimization run ended.
type Status string

const (
	// StatusConverged means the last iteration improved the objective by no
	// more than the tolerance.
	StatusConverged Status = "converged"

	// StatusMaxIterations means the iteration cap was reached before the
	// improvement dropped below the tolerance.
	StatusMaxIterations Status = "max_iterations"

	// StatusDegenerate means the initial bracket had zero width and the sole
	// point was returned without iterating.
	StatusDegenerate Status = "degenerate"
)

// ErrInvertedBracket is returned when the initial bracket has x3 < x1.
var ErrInvertedBracket = errors.New("interval: inverted bracket")

// ErrEmptySample is returned by MinimizeSample for an empty sample.
var ErrEmptySample = errors.New("interval: empty sample")

// Config holds tuning parameters for the search.
type Config struct {
	// Tol is the minimum objective improvement per iteration; once an
	// iteration improves by Tol or less the search stops.
	Tol float64

	// MaxIters caps the number of iterations regardless of convergence.
	MaxIters int

	// Rand is the random source for candidate draws. If nil, a time-seeded
	// source is created per call.
	Rand *rand.Rand
}

// DefaultConfig returns the conventional tolerance and iteration cap.
func DefaultConfig() Config {
	return Config{
		Tol:      1e-6,
		MaxIters: 100,
	}
}

// Result holds the best point found by a minimization run.
type Result struct {
	X          float64 // best interior point
	F          float64 // objective value at X
	Iterations int     // iterations actually performed
	Status     Status
}

// Minimize approximates the minimizer of f over [x1, x3] using random
// interval search. The returned X always lies within the initial bracket.
// A zero-width bracket returns the sole point with StatusDegenerate; an
// inverted bracket is an error.
func Minimize(f func(float64) float64, x1, x3 float64, cfg Config) (Result, error) {
	if x3 < x1 {
		return Result{}, fmt.Errorf("%w: [%g, %g]", ErrInvertedBracket, x1, x3)
	}
	if x1 == x3 {
		return Result{X: x1, F: f(x1), Status: StatusDegenerate}, nil
	}
	if cfg.Tol <= 0 {
		cfg.Tol = 1e-6
	}
	if cfg.MaxIters <= 0 {
		cfg.MaxIters = 100
	}

	rng := cfg.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	x2 := x1 + rng.Float64()*(x3-x1)
	f2 := f(x2)

	status := StatusMaxIterations
	iters := 0

	for iters < cfg.MaxIters {
		iters++

		a := x2 - x1
		b := x3 - x2

		// Explore the larger sub-interval. Ties go right: the comparison is
		// strict, so equal spans fall through to the right side.
		left := a > b

		var x4 float64
		if left {
			x4 = x1 + rng.Float64()*a
		} else {
			x4 = x2 + rng.Float64()*b
		}
		f4 := f(x4)

		if f4 > f2 {
			// Candidate is worse: shrink the explored side toward x2.
			if left {
				x1 = x4
			} else {
				x3 = x4
			}
		} else {
			// Candidate is at least as good: slide the bracket so the old x2
			// becomes the near endpoint and x4 the new center.
			if left {
				x3 = x2
			} else {
				x1 = x2
			}
			x2 = x4
		}

		newF2 := f(x2)
		diff := f2 - newF2
		f2 = newF2

		if diff <= cfg.Tol {
			status = StatusConverged
			break
		}
	}

	return Result{X: x2, F: f2, Iterations: iters, Status: status}, nil
}

// MinimizeSample minimizes the sum of squared deviations from a candidate
// location over the sample's range. For a non-degenerate sample the true
// minimizer is the sample mean; the stochastic search approximates it.
func MinimizeSample(sample []float64, cfg Config) (Result, error) {
	if len(sample) == 0 {
		return Result{}, ErrEmptySample
	}

	lo, hi := sample[0], sample[0]
	for _, v := range sample[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}

	ssd := func(mu float64) float64 {
		var sum float64
		for _, v := range sample {
			d := v - mu
			sum += d * d
		}
		return sum
	}

	return Minimize(ssd, lo, hi, cfg)
}

// BestOf runs the search restarts times and returns the result with the
// lowest objective value. Each restart draws fresh random candidates from
// cfg.Rand, so results remain reproducible under a fixed seed.
func BestOf(f func(float64) float64, x1, x3 float64, restarts int, cfg Config) (Result, error) {
	if restarts < 1 {
		restarts = 1
	}

	var best Result
	for i := 0; i < restarts; i++ {
		res, err := Minimize(f, x1, x3, cfg)
		if err != nil {
			return Result{}, err
		}
		if i == 0 || res.F < best.F {
			best = res
		}
	}
	return best, nil
}
