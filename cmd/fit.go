package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"

	"github.com/cwbudde/bootfit/internal/opt"
	"github.com/cwbudde/bootfit/internal/regress"
	"github.com/cwbudde/bootfit/internal/store"
)

var (
	fitCSVPath    string
	fitResponse   string
	fitIntercept  bool
	fitReplicates int
	fitSeed       int64
	fitOptimizer  string
	fitWorkers    int
	fitOutPath    string
)

var fitCmd = &cobra.Command{
	Use:   "fit",
	Short: "Run a single bootstrap regression fit",
	Long: `Fits regression coefficients by minimizing the sum of squared residuals,
then estimates their covariance with a pairs bootstrap. Results are printed
as a coefficient table and optionally written to a JSON file.`,
	RunE: runFit,
}

func init() {
	fitCmd.Flags().StringVar(&fitCSVPath, "csv", "", "Input CSV path with header row (required)")
	fitCmd.Flags().StringVar(&fitResponse, "response", "", "Response column name (default: last column)")
	fitCmd.Flags().BoolVar(&fitIntercept, "intercept", false, "Prepend an intercept column")
	fitCmd.Flags().IntVar(&fitReplicates, "replicates", 100, "Number of bootstrap replicates")
	fitCmd.Flags().Int64Var(&fitSeed, "seed", 42, "Random seed")
	fitCmd.Flags().StringVar(&fitOptimizer, "optimizer", "neldermead", "Optimizer: neldermead, mayfly")
	fitCmd.Flags().IntVar(&fitWorkers, "workers", 0, "Parallel workers (0 = all CPUs)")
	fitCmd.Flags().StringVar(&fitOutPath, "out", "", "Output JSON path (optional)")

	fitCmd.MarkFlagRequired("csv")
	rootCmd.AddCommand(fitCmd)
}

func runFit(cmd *cobra.Command, args []string) error {
	slog.Info("Starting fit", "csv", fitCSVPath, "replicates", fitReplicates, "optimizer", fitOptimizer)

	ds, err := loadDataset(fitCSVPath, fitResponse, fitIntercept)
	if err != nil {
		return err
	}

	n, p := ds.Dims()
	slog.Info("Loaded dataset", "rows", n, "coefficients", p)

	var optimizer opt.Optimizer
	switch fitOptimizer {
	case "neldermead":
		optimizer = opt.NewNelderMead(0)
	case "mayfly":
		optimizer = opt.NewMayfly(200, 30, fitSeed, -100, 100)
	default:
		return fmt.Errorf("unknown optimizer: %s", fitOptimizer)
	}

	estimator := regress.NewEstimator(optimizer, regress.Config{
		Replicates: fitReplicates,
		Seed:       fitSeed,
		Workers:    fitWorkers,
	})

	start := time.Now()
	est, err := estimator.FitDataset(ds)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	stdErrs := est.StdErrs()

	slog.Info("Fit complete",
		"elapsed", elapsed,
		"replicates", est.Replicates,
		"converged", est.Converged,
	)

	fmt.Printf("Fitted %d coefficient(s) over %d rows (%d bootstrap replicates, %s)\n\n",
		p, n, est.Replicates, elapsed.Round(time.Millisecond))
	fmt.Printf("%-6s %12s %12s\n", "COEF", "ESTIMATE", "STD ERR")
	for j := 0; j < p; j++ {
		fmt.Printf("b%-5d %12.6f %12.6f\n", j, est.Beta[j], stdErrs[j])
	}
	if !est.Converged {
		fmt.Println("\nWarning: one or more optimizer runs were accepted best-effort; treat standard errors with caution")
	}

	if fitOutPath != "" {
		if err := writeFitJSON(fitOutPath, est); err != nil {
			return err
		}
		fmt.Printf("\nWrote %s\n", fitOutPath)
	}

	return nil
}

// loadDataset reads a headered CSV into a dataset, selecting the response
// column by name (empty means the last column).
func loadDataset(path, response string, intercept bool) (*regress.Dataset, error) {
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
		data []float64
		rows int
	)
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", rows+2, err)
		}
		if len(record) != cols {
			return nil, fmt.Errorf("row %d: expected %d columns, got %d", rows+2, cols, len(record))
		}
		for j, s := range record {
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, fmt.Errorf("row %d col %d (%q): %w", rows+2, j+1, s, err)
			}
			if j == respIdx {
				y = append(y, v)
			} else {
				data = append(data, v)
			}
		}
		rows++
	}
	if rows == 0 {
		return nil, fmt.Errorf("no data rows in %s", path)
	}

	ds, err := regress.NewDataset(y, mat.NewDense(rows, cols-1, data))
	if err != nil {
		return nil, err
	}
	if intercept {
		ds = ds.WithIntercept()
	}
	return ds, nil
}

func writeFitJSON(path string, est *regress.Estimate) error {
	p := len(est.Beta)
	cov := make([]float64, p*p)
	for i := 0; i < p; i++ {
		for j := 0; j < p; j++ {
			cov[i*p+j] = est.Cov.At(i, j)
		}
	}

	record := store.NewFitRecord(uuid.New().String(), est.Beta, est.StdErrs(), cov, est.Replicates, est.Converged, store.JobConfig{
		CSVPath:    fitCSVPath,
		Response:   fitResponse,
		Intercept:  fitIntercept,
		Replicates: fitReplicates,
		Seed:       fitSeed,
		Optimizer:  fitOptimizer,
		Workers:    fitWorkers,
	})

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(record); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}
