package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cwbudde/bootfit/internal/regress"
	"github.com/cwbudde/bootfit/internal/store"
)

// runJob executes a bootstrap fit job in the background.
// If resultStore is not nil, the completed fit and its replicate trace are
// persisted.
func runJob(ctx context.Context, jm *JobManager, resultStore store.Store, jobID string) error {
	// Get the job
	job, exists := jm.GetJob(jobID)
	if !exists {
		return fmt.Errorf("job not found: %s", jobID)
	}

	// Update state to running
	err := jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateRunning
	})
	if err != nil {
		return err
	}

	slog.Info("Starting job", "job_id", jobID, "csv", job.Config.CSVPath)

	// Load the dataset
	ds, err := loadFitDataset(job.Config.CSVPath, job.Config.Response, job.Config.Intercept)
	if err != nil {
		markJobFailed(jm, jobID, fmt.Errorf("failed to load dataset: %w", err))
		return err
	}

	n, p := ds.Dims()
	slog.Info("Loaded dataset", "job_id", jobID, "rows", n, "coefficients", p)

	// Create optimizer
	optimizer, err := buildOptimizer(job.Config)
	if err != nil {
		markJobFailed(jm, jobID, err)
		return err
	}

	// Check for cancellation before starting expensive operation
	select {
	case <-ctx.Done():
		markJobCancelled(jm, jobID)
		return ctx.Err()
	default:
	}

	// Start progress monitoring goroutine
	progressDone := make(chan struct{})
	go monitorProgress(ctx, jm, jobID, progressDone)

	estimator := regress.NewEstimator(optimizer, regress.Config{
		Replicates: job.Config.Replicates,
		Seed:       job.Config.Seed,
		Workers:    job.Config.Workers,
		OnReplicate: func(completed int) {
			jm.UpdateJob(jobID, func(j *Job) {
				j.Completed = completed
			})
		},
	})

	start := time.Now()
	est, err := estimator.FitDataset(ds)
	close(progressDone)

	if err != nil {
		markJobFailed(jm, jobID, err)
		return err
	}

	elapsed := time.Since(start)

	// Check for cancellation after the fit
	select {
	case <-ctx.Done():
		markJobCancelled(jm, jobID)
		return ctx.Err()
	default:
	}

	// Update job with results
	endTime := time.Now()
	err = jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateCompleted
		j.Beta = est.Beta
		j.StdErrs = est.StdErrs()
		j.Completed = est.Replicates
		j.Converged = est.Converged
		j.EndTime = &endTime
	})
	if err != nil {
		return err
	}

	// Persist result and replicate trace
	if resultStore != nil {
		if err := saveFitArtifacts(resultStore, jobID, job.Config, est); err != nil {
			slog.Warn("Failed to persist fit artifacts", "job_id", jobID, "error", err)
			// The in-memory job already carries the result; persistence is best-effort
		}
	}

	slog.Info("Job completed",
		"job_id", jobID,
		"elapsed", elapsed,
		"replicates", est.Replicates,
		"converged", est.Converged,
	)

	// Broadcast final completion event
	jm.broadcaster.Broadcast(ProgressEvent{
		JobID:     jobID,
		State:     StateCompleted,
		Completed: est.Replicates,
		Total:     est.Replicates,
		Timestamp: time.Now(),
	})

	return nil
}

// monitorProgress periodically broadcasts progress events during the fit
func monitorProgress(ctx context.Context, jm *JobManager, jobID string, done chan struct{}) {
	ticker := time.NewTicker(500 * time.Millisecond) // Throttle to 2 updates per second
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			job, exists := jm.GetJob(jobID)
			if !exists {
				return
			}

			jm.broadcaster.Broadcast(ProgressEvent{
				JobID:     jobID,
				State:     job.State,
				Completed: job.Completed,
				Total:     job.Config.Replicates,
				Timestamp: time.Now(),
			})
		}
	}
}

// markJobFailed marks a job as failed with an error message
func markJobFailed(jm *JobManager, jobID string, err error) {
	endTime := time.Now()
	jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateFailed
		j.Error = err.Error()
		j.EndTime = &endTime
	})
	slog.Error("Job failed", "job_id", jobID, "error", err)
}

// markJobCancelled marks a job as cancelled
func markJobCancelled(jm *JobManager, jobID string) {
	endTime := time.Now()
	jm.UpdateJob(jobID, func(j *Job) {
		j.State = StateCancelled
		j.EndTime = &endTime
	})
	slog.Info("Job cancelled", "job_id", jobID)
}

// saveFitArtifacts persists the fit record and the replicate trace
func saveFitArtifacts(resultStore store.Store, jobID string, config JobConfig, est *regress.Estimate) error {
	p := len(est.Beta)

	// Flatten the covariance row-major for the record
	cov := make([]float64, p*p)
	for i := 0; i < p; i++ {
		for j := 0; j < p; j++ {
			cov[i*p+j] = est.Cov.At(i, j)
		}
	}

	record := store.NewFitRecord(jobID, est.Beta, est.StdErrs(), cov, est.Replicates, est.Converged, config)
	if err := resultStore.SaveResult(jobID, record); err != nil {
		return fmt.Errorf("failed to save fit record: %w", err)
	}

	// Replicate trace only exists for filesystem stores
	fsStore, ok := resultStore.(*store.FSStore)
	if !ok {
		return nil
	}

	tw, err := store.NewTraceWriter(fsStore.BaseDir(), jobID, false)
	if err != nil {
		return fmt.Errorf("failed to create trace writer: %w", err)
	}
	defer tw.Close()

	rows, _ := est.ReplicateCoefs.Dims()
	for b := 0; b < rows; b++ {
		entry := store.TraceEntry{
			Replicate: b,
			Coefs:     append([]float64{}, est.ReplicateCoefs.RawRowView(b)...),
			Timestamp: time.Now(),
		}
		if err := tw.Write(entry); err != nil {
			return fmt.Errorf("failed to write trace entry: %w", err)
		}
	}

	return nil
}
