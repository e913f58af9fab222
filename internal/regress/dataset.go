// Package regress fits linear-model coefficients by minimizing a sum of
// squared residuals through an injected optimizer, and quantifies the
// coefficient uncertainty with a nonparametric pairs bootstrap.
package regress

import (
	"errors"
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// ErrDimensionMismatch is returned when the response length does not match
// the design matrix row count, or the dataset is empty.
var ErrDimensionMismatch = errors.New("dimension mismatch")

// Dataset pairs a response vector with its row-aligned design matrix.
// Row i of X explains Y[i]; resampling always moves the pair together.
// The design matrix carries no implicit intercept column; use WithIntercept
// if a constant term is wanted.
type Dataset struct {
	Y []float64
	X *mat.Dense
}

// NewDataset validates the pairing and returns a dataset.
func NewDataset(y []float64, x *mat.Dense) (*Dataset, error) {
	if x == nil {
		return nil, fmt.Errorf("%w: nil design matrix", ErrDimensionMismatch)
	}
	n, p := x.Dims()
	if n == 0 || p == 0 {
		return nil, fmt.Errorf("%w: empty design matrix (%dx%d)", ErrDimensionMismatch, n, p)
	}
	if len(y) != n {
		return nil, fmt.Errorf("%w: response length %d, design rows %d", ErrDimensionMismatch, len(y), n)
	}
	return &Dataset{Y: y, X: x}, nil
}

// Dims returns the number of observations and coefficients.
func (d *Dataset) Dims() (n, p int) {
	return d.X.Dims()
}

// WithIntercept returns a copy of the dataset with a leading constant column.
func (d *Dataset) WithIntercept() *Dataset {
	n, p := d.Dims()

	x := mat.NewDense(n, p+1, nil)
	for i := 0; i < n; i++ {
		x.Set(i, 0, 1)
		for j := 0; j < p; j++ {
			x.Set(i, j+1, d.X.At(i, j))
		}
	}

	y := append([]float64{}, d.Y...)
	return &Dataset{Y: y, X: x}
}

// Resample builds a pairs-bootstrap resample: n row indices drawn uniformly
// with replacement, response and design rows selected together. Rows may
// repeat; columns are unchanged.
func (d *Dataset) Resample(rng *rand.Rand) *Dataset {
	n, p := d.Dims()

	y := make([]float64, n)
	x := mat.NewDense(n, p, nil)
	for i := 0; i < n; i++ {
		j := rng.Intn(n)
		y[i] = d.Y[j]
		x.SetRow(i, d.X.RawRowView(j))
	}

	return &Dataset{Y: y, X: x}
}
