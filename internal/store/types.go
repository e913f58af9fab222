package store

import (
	"fmt"
	"time"
)

// JobConfig holds configuration for a bootstrap fit job (persisted copy).
// This avoids import cycles with the server package.
type JobConfig struct {
	CSVPath    string `json:"csvPath"`
	Response   string `json:"response,omitempty"` // response column name; empty = last column
	Intercept  bool   `json:"intercept,omitempty"`
	Replicates int    `json:"replicates"`
	Seed       int64  `json:"seed"`
	Optimizer  string `json:"optimizer"` // neldermead, mayfly
	Workers    int    `json:"workers,omitempty"`
}

// FitRecord is the persisted outcome of a bootstrap fit job.
// All fields are serialized to JSON. The covariance is stored flattened in
// row-major order so the record stays a flat, language-neutral document.
type FitRecord struct {
	// JobID is the unique identifier of the fit job
	JobID string `json:"jobId"`

	// Beta is the point estimate fitted on the original data
	Beta []float64 `json:"beta"`

	// StdErrs holds the bootstrap standard error per coefficient
	StdErrs []float64 `json:"stdErrs"`

	// Cov is the p x p bootstrap covariance, flattened row-major
	Cov []float64 `json:"cov"`

	// Replicates is the number of bootstrap refits performed
	Replicates int `json:"replicates"`

	// Converged is false when any optimizer run was accepted best-effort
	Converged bool `json:"converged"`

	// Timestamp records when the fit completed
	Timestamp time.Time `json:"timestamp"`

	// Config holds the job configuration that produced this record
	Config JobConfig `json:"config"`
}

// FitInfo contains metadata about a stored fit without the full matrices.
// Used for listing results efficiently.
type FitInfo struct {
	JobID        string    `json:"jobId"`
	Coefficients int       `json:"coefficients"`
	Replicates   int       `json:"replicates"`
	Converged    bool      `json:"converged"`
	Timestamp    time.Time `json:"timestamp"`
	CSVPath      string    `json:"csvPath"`
}

// NewFitRecord creates a record from fit outputs.
func NewFitRecord(jobID string, beta, stdErrs, cov []float64, replicates int, converged bool, config JobConfig) *FitRecord {
	return &FitRecord{
		JobID:      jobID,
		Beta:       beta,
		StdErrs:    stdErrs,
		Cov:        cov,
		Replicates: replicates,
		Converged:  converged,
		Timestamp:  time.Now(),
		Config:     config,
	}
}

// ToInfo converts a full FitRecord to FitInfo (metadata only).
func (r *FitRecord) ToInfo() FitInfo {
	return FitInfo{
		JobID:        r.JobID,
		Coefficients: len(r.Beta),
		Replicates:   r.Replicates,
		Converged:    r.Converged,
		Timestamp:    r.Timestamp,
		CSVPath:      r.Config.CSVPath,
	}
}

// Validate checks if the record has valid data.
// Returns an error if any required field is missing or inconsistent.
func (r *FitRecord) Validate() error {
	if r.JobID == "" {
		return &ValidationError{Field: "JobID", Reason: "cannot be empty"}
	}
	if len(r.Beta) == 0 {
		return &ValidationError{Field: "Beta", Reason: "cannot be empty"}
	}
	p := len(r.Beta)
	if len(r.StdErrs) != p {
		return &ValidationError{Field: "StdErrs", Reason: fmt.Sprintf("length %d, expected %d", len(r.StdErrs), p)}
	}
	if len(r.Cov) != p*p {
		return &ValidationError{Field: "Cov", Reason: fmt.Sprintf("length %d, expected %d", len(r.Cov), p*p)}
	}
	if r.Replicates <= 0 {
		return &ValidationError{Field: "Replicates", Reason: "must be positive"}
	}
	if r.Timestamp.IsZero() {
		return &ValidationError{Field: "Timestamp", Reason: "cannot be zero"}
	}
	if r.Config.CSVPath == "" {
		return &ValidationError{Field: "Config.CSVPath", Reason: "cannot be empty"}
	}
	if r.Config.Replicates <= 0 {
		return &ValidationError{Field: "Config.Replicates", Reason: "must be positive"}
	}
	return nil
}

// ValidationError represents a fit record validation error.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation error: " + e.Field + " " + e.Reason
}
