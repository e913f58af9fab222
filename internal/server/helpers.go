package server

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"gonum.org/v1/gonum/mat"

	"github.com/cwbudde/bootfit/internal/opt"
	"github.com/cwbudde/bootfit/internal/regress"
)

// loadFitDataset reads a CSV file with a header row into a dataset.
// The response column is selected by name; an empty name means the last
// column. All remaining columns become the design matrix, in file order.
func loadFitDataset(path, response string, intercept bool) (*regress.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	cols := len(header)
	if cols < 2 {
		return nil, fmt.Errorf("need at least 2 columns, got %d", cols)
	}

	respIdx := cols - 1
	if response != "" {
		respIdx = -1
		for j, name := range header {
			if name == response {
				respIdx = j
				break
			}
		}
		if respIdx < 0 {
			return nil, fmt.Errorf("response column %q not found", response)
		}
	}

	var (
		y    []float64
		data []float64 // flat design matrix values, row-major
		row  int
	)

	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", row+2, err)
		}
		if len(record) != cols {
			return nil, fmt.Errorf("row %d: expected %d columns, got %d", row+2, cols, len(record))
		}

		for j, s := range record {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, fmt.Errorf("row %d col %d (%q): %w", row+2, j+1, s, err)
			}
			if j == respIdx {
				y = append(y, v)
			} else {
				data = append(data, v)
			}
		}
		row++
	}

	if row == 0 {
		return nil, fmt.Errorf("no data rows in %s", path)
	}

	x := mat.NewDense(row, cols-1, data)
	ds, err := regress.NewDataset(y, x)
	if err != nil {
		return nil, err
	}
	if intercept {
		ds = ds.WithIntercept()
	}
	return ds, nil
}

// buildOptimizer constructs the optimizer named in a job config.
func buildOptimizer(config JobConfig) (opt.Optimizer, error) {
	switch config.Optimizer {
	case "", "neldermead":
		return opt.NewNelderMead(0), nil
	case "mayfly":
		// Mayfly needs box bounds; coefficients of standardized regression
		// problems rarely leave this range.
		return opt.NewMayfly(200, 30, config.Seed, -100, 100), nil
	default:
		return nil, fmt.Errorf("unknown optimizer: %s", config.Optimizer)
	}
}
