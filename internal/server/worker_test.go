package server

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/cwbudde/bootfit/internal/store"
)

func TestRunJob_Success(t *testing.T) {
	tmpDir := t.TempDir()
	csvPath := filepath.Join(tmpDir, "data.csv")
	createTestCSV(t, csvPath)

	jm := NewJobManager()
	config := JobConfig{
		CSVPath:    csvPath,
		Response:   "y",
		Replicates: 20,
		Seed:       42,
		Optimizer:  "neldermead",
		Workers:    2,
	}

	job := jm.CreateJob(config)

	ctx := context.Background()
	err := runJob(ctx, jm, nil, job.ID)

	if err != nil {
		t.Errorf("runJob should succeed: %v", err)
	}

	updated, _ := jm.GetJob(job.ID)
	if updated.State != StateCompleted {
		t.Errorf("Job should be completed, got %s", updated.State)
	}

	if len(updated.Beta) != 2 {
		t.Errorf("Expected 2 coefficients, got %d", len(updated.Beta))
	}

	if len(updated.StdErrs) != 2 {
		t.Errorf("Expected 2 standard errors, got %d", len(updated.StdErrs))
	}

	if updated.Completed != 20 {
		t.Errorf("Expected 20 completed replicates, got %d", updated.Completed)
	}

	// The test data is exactly linear, so the fit should recover it closely
	if diff := updated.Beta[0] - 2.0; diff < -0.2 || diff > 0.2 {
		t.Errorf("Expected beta[0] near 2.0, got %f", updated.Beta[0])
	}
}

func TestRunJob_PersistsResult(t *testing.T) {
	tmpDir := t.TempDir()
	csvPath := filepath.Join(tmpDir, "data.csv")
	createTestCSV(t, csvPath)

	resultStore, err := store.NewFSStore(filepath.Join(tmpDir, "store"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	jm := NewJobManager()
	config := JobConfig{
		CSVPath:    csvPath,
		Response:   "y",
		Replicates: 10,
		Seed:       7,
		Optimizer:  "neldermead",
	}

	job := jm.CreateJob(config)

	if err := runJob(context.Background(), jm, resultStore, job.ID); err != nil {
		t.Fatalf("runJob failed: %v", err)
	}

	record, err := resultStore.LoadResult(job.ID)
	if err != nil {
		t.Fatalf("LoadResult failed: %v", err)
	}

	if record.JobID != job.ID {
		t.Errorf("Record has wrong job ID: %s", record.JobID)
	}
	if len(record.Beta) != 2 {
		t.Errorf("Expected 2 coefficients in record, got %d", len(record.Beta))
	}
	if len(record.Cov) != 4 {
		t.Errorf("Expected 2x2 covariance in record, got %d values", len(record.Cov))
	}
	if record.Replicates != 10 {
		t.Errorf("Expected 10 replicates in record, got %d", record.Replicates)
	}

	// Replicate trace should have one entry per bootstrap replicate
	reader, err := store.NewTraceReader(resultStore.BaseDir(), job.ID)
	if err != nil {
		t.Fatalf("NewTraceReader failed: %v", err)
	}
	defer reader.Close()

	entries, err := reader.ReadAll()
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if len(entries) != 10 {
		t.Errorf("Expected 10 trace entries, got %d", len(entries))
	}
}

func TestRunJob_InvalidCSV(t *testing.T) {
	jm := NewJobManager()
	config := JobConfig{
		CSVPath:    "/nonexistent/data.csv",
		Replicates: 10,
		Optimizer:  "neldermead",
	}

	job := jm.CreateJob(config)

	ctx := context.Background()
	err := runJob(ctx, jm, nil, job.ID)

	if err == nil {
		t.Error("runJob should fail with invalid CSV path")
	}

	updated, _ := jm.GetJob(job.ID)
	if updated.State != StateFailed {
		t.Errorf("Job should be failed, got %s", updated.State)
	}

	if updated.Error == "" {
		t.Error("Error message should be set")
	}
}

func TestRunJob_UnknownOptimizer(t *testing.T) {
	tmpDir := t.TempDir()
	csvPath := filepath.Join(tmpDir, "data.csv")
	createTestCSV(t, csvPath)

	jm := NewJobManager()
	job := jm.CreateJob(JobConfig{
		CSVPath:    csvPath,
		Replicates: 10,
		Optimizer:  "gradient-descent",
	})

	if err := runJob(context.Background(), jm, nil, job.ID); err == nil {
		t.Error("runJob should fail with unknown optimizer")
	}

	updated, _ := jm.GetJob(job.ID)
	if updated.State != StateFailed {
		t.Errorf("Job should be failed, got %s", updated.State)
	}
}

func TestRunJob_Cancellation(t *testing.T) {
	tmpDir := t.TempDir()
	csvPath := filepath.Join(tmpDir, "data.csv")
	createTestCSV(t, csvPath)

	jm := NewJobManager()
	job := jm.CreateJob(JobConfig{
		CSVPath:    csvPath,
		Response:   "y",
		Replicates: 1000,
		Seed:       42,
		Optimizer:  "neldermead",
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // Cancel before the fit starts

	err := runJob(ctx, jm, nil, job.ID)
	if err == nil {
		t.Error("runJob should return error when cancelled")
	}

	updated, _ := jm.GetJob(job.ID)
	if updated.State != StateCancelled {
		t.Errorf("Job should be cancelled, got %s", updated.State)
	}
}

// Helper function to create a small exactly linear CSV dataset.
// Columns x1, x2 and response y = 2*x1 - x2.
func createTestCSV(t *testing.T, path string) {
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("Failed to create test CSV: %v", err)
	}
	defer f.Close()

	fmt.Fprintln(f, "x1,x2,y")
	for i := 0; i < 40; i++ {
		x1 := float64(i) * 0.25
		x2 := float64(i%7) - 3.0
		y := 2.0*x1 - x2
		fmt.Fprintf(f, "%g,%g,%g\n", x1, x2, y)
	}
}
