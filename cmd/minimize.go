package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"math/rand"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cwbudde/bootfit/internal/interval"
)

var (
	minValues   string
	minCSVPath  string
	minColumn   string
	minTol      float64
	minMaxIters int
	minSeed     int64
	minRestarts int
)

var minimizeCmd = &cobra.Command{
	Use:   "minimize",
	Short: "Locate the least-squares center of a sample",
	Long: `Minimizes the sum of squared deviations from a candidate location over a
one-dimensional sample using random interval search. The sample comes from
--values or from a single CSV column.`,
	RunE: runMinimize,
}

func init() {
	minimizeCmd.Flags().StringVar(&minValues, "values", "", "Comma-separated sample values")
	minimizeCmd.Flags().StringVar(&minCSVPath, "csv", "", "CSV path with header row")
	minimizeCmd.Flags().StringVar(&minColumn, "col", "", "Column name to read from the CSV (default: first column)")
	minimizeCmd.Flags().Float64Var(&minTol, "tol", 1e-6, "Improvement tolerance")
	minimizeCmd.Flags().IntVar(&minMaxIters, "maxit", 100, "Max iterations per restart")
	minimizeCmd.Flags().Int64Var(&minSeed, "seed", 42, "Random seed")
	minimizeCmd.Flags().IntVar(&minRestarts, "restarts", 1, "Number of restarts; the best result wins")

	rootCmd.AddCommand(minimizeCmd)
}

func runMinimize(cmd *cobra.Command, args []string) error {
	sample, err := loadSample()
	if err != nil {
		return err
	}

	cfg := interval.Config{
		Tol:      minTol,
		MaxIters: minMaxIters,
		Rand:     rand.New(rand.NewSource(minSeed)),
	}

	restarts := minRestarts
	if restarts < 1 {
		restarts = 1
	}

	var best interval.Result
	for i := 0; i < restarts; i++ {
		res, err := interval.MinimizeSample(sample, cfg)
		if err != nil {
			return err
		}
		if i == 0 || res.F < best.F {
			best = res
		}
	}

	fmt.Printf("x = %.9g\n", best.X)
	fmt.Printf("f(x) = %.9g\n", best.F)
	fmt.Printf("iterations = %d\n", best.Iterations)
	fmt.Printf("status = %s\n", best.Status)
	return nil
}

func loadSample() ([]float64, error) {
	if minValues != "" && minCSVPath != "" {
		return nil, fmt.Errorf("--values and --csv are mutually exclusive")
	}

	if minValues != "" {
		parts := strings.Split(minValues, ",")
		sample := make([]float64, 0, len(parts))
		for _, p := range parts {
			v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
			if err != nil {
				return nil, fmt.Errorf("invalid value %q: %w", p, err)
			}
			sample = append(sample, v)
		}
		return sample, nil
	}

	if minCSVPath != "" {
		return loadSampleColumn(minCSVPath, minColumn)
	}

	return nil, fmt.Errorf("either --values or --csv is required")
}

func loadSampleColumn(path, column string) ([]float64, error) {
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

	idx := 0
	if column != "" {
		idx = -1
		for j, name := range header {
			if name == column {
				idx = j
				break
			}
		}
		if idx < 0 {
			return nil, fmt.Errorf("column %q not found", column)
		}
	}

	var sample []float64
	row := 1
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", row+1, err)
		}
		if idx >= len(record) {
			return nil, fmt.Errorf("row %d has %d columns, need %d", row+1, len(record), idx+1)
		}
		v, err := strconv.ParseFloat(record[idx], 64)
		if err != nil {
			return nil, fmt.Errorf("row %d (%q): %w", row+1, record[idx], err)
		}
		sample = append(sample, v)
		row++
	}
	return sample, nil
}
