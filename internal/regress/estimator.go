package regress

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/cwbudde/bootfit/internal/opt"
)

// ErrSingularCovariance is returned when the bootstrap covariance estimate
// is necessarily or numerically singular (too few replicates, or degenerate
// replicate fits producing non-finite entries).
var ErrSingularCovariance = errors.New("singular bootstrap covariance")

// Config holds tuning parameters for a bootstrap fit.
type Config struct {
	// Replicates is the number of bootstrap refits B. Default 100.
	Replicates int

	// Seed seeds the master random source. Zero uses a time-based seed,
	// making the fit non-reproducible.
	Seed int64

	// Workers caps the number of concurrent refits. Zero or negative uses
	// runtime.NumCPU().
	Workers int

	// OnReplicate, if set, is called after each completed refit with the
	// running count of finished replicates. Called from worker goroutines.
	OnReplicate func(completed int)
}

// DefaultConfig returns the conventional replicate count.
func DefaultConfig() Config {
	return Config{Replicates: 100}
}

// Estimate holds the fitted coefficients and their bootstrap covariance.
// Immutable after construction; owned by the caller.
type Estimate struct {
	// Beta is the point estimate, fitted on the original data.
	Beta []float64

	// Cov is the p x p sample covariance of the replicate coefficient
	// vectors (n-1 denominator).
	Cov *mat.SymDense

	// ReplicateCoefs holds one fitted coefficient vector per row, B x p.
	ReplicateCoefs *mat.Dense

	// Replicates is the number of bootstrap refits performed.
	Replicates int

	// Converged is false when any optimizer run exhausted its budget and a
	// best-effort vector was accepted. The estimate is then low-confidence.
	Converged bool
}

// StdErrs returns the bootstrap standard error of each coefficient.
func (e *Estimate) StdErrs() []float64 {
	p := len(e.Beta)
	se := make([]float64, p)
	for j := 0; j < p; j++ {
		se[j] = math.Sqrt(e.Cov.At(j, j))
	}
	return se
}

// Estimator fits linear-model coefficients through an injected optimizer.
type Estimator struct {
	optimizer opt.Optimizer
	cfg       Config
}

// NewEstimator creates an estimator using the given optimizer collaborator.
func NewEstimator(optimizer opt.Optimizer, cfg Config) *Estimator {
	if cfg.Replicates <= 0 {
		cfg.Replicates = 100
	}
	return &Estimator{optimizer: optimizer, cfg: cfg}
}

// Fit validates the pairing of y and x and runs the bootstrap fit.
func (e *Estimator) Fit(y []float64, x *mat.Dense) (*Estimate, error) {
	ds, err := NewDataset(y, x)
	if err != nil {
		return nil, err
	}
	return e.FitDataset(ds)
}

// FitDataset fits the coefficients on the original data, then refits B
// pairs-bootstrap resamples and assembles the replicate covariance.
//
// The refits are independent and run on a worker pool. Each replicate gets
// its own random source, seeded from a master source, so results are
// reproducible under a fixed seed regardless of scheduling order.
func (e *Estimator) FitDataset(ds *Dataset) (*Estimate, error) {
	n, p := ds.Dims()
	B := e.cfg.Replicates

	if B < p+1 {
		return nil, fmt.Errorf("%w: %d replicates for %d coefficients (need at least p+1)", ErrSingularCovariance, B, p)
	}

	slog.Info("Starting bootstrap fit", "n", n, "p", p, "replicates", B)

	converged := true

	// Point estimate on the original data, starting from the zero vector.
	beta, cost, err := e.optimizer.Run(SumSquaredResiduals(ds), make([]float64, p))
	if err != nil {
		if !errors.Is(err, opt.ErrNotConverged) {
			return nil, fmt.Errorf("point estimate failed: %w", err)
		}
		converged = false
		slog.Warn("Point estimate accepted without convergence", "cost", cost)
	}

	// Per-replicate seeds drawn up front so no random source is shared
	// across goroutines.
	masterSeed := e.cfg.Seed
	if masterSeed == 0 {
		masterSeed = time.Now().UnixNano()
	}
	masterRng := rand.New(rand.NewSource(masterSeed))

	seeds := make([]int64, B)
	for b := 0; b < B; b++ {
		seeds[b] = masterRng.Int63()
	}

	workers := e.cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > B {
		workers = B
	}

	replicates := mat.NewDense(B, p, nil)
	stale := make([]bool, B) // replicate fits that did not converge

	jobs := make(chan int)
	var completed int64
	var wg sync.WaitGroup
	wg.Add(workers)

	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()

			for b := range jobs {
				rng := rand.New(rand.NewSource(seeds[b]))
				sample := ds.Resample(rng)

				betaB, _, err := e.optimizer.Run(SumSquaredResiduals(sample), make([]float64, p))
				if err != nil {
					// Best-effort vectors are kept so the collection retains
					// exactly B rows; the fit is flagged instead.
					stale[b] = true
				}
				replicates.SetRow(b, betaB)

				done := atomic.AddInt64(&completed, 1)
				if e.cfg.OnReplicate != nil {
					e.cfg.OnReplicate(int(done))
				}
			}
		}()
	}

	for b := 0; b < B; b++ {
		jobs <- b
	}
	close(jobs)
	wg.Wait()

	for _, s := range stale {
		if s {
			converged = false
			break
		}
	}

	cov := mat.NewSymDense(p, nil)
	stat.CovarianceMatrix(cov, replicates, nil)

	// Degenerate replicate fits can poison the covariance with non-finite
	// entries; surface that instead of returning a malformed matrix.
	for i := 0; i < p; i++ {
		for j := i; j < p; j++ {
			v := cov.At(i, j)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("%w: non-finite entry at (%d,%d)", ErrSingularCovariance, i, j)
			}
		}
	}

	slog.Info("Bootstrap fit complete", "replicates", B, "converged", converged)

	return &Estimate{
		Beta:           beta,
		Cov:            cov,
		ReplicateCoefs: replicates,
		Replicates:     B,
		Converged:      converged,
	}, nil
}
