package store

// Store defines the interface for fit result persistence operations.
// Implementations must be thread-safe and handle concurrent access gracefully.
//
// Error handling conventions:
//   - Return nil error on success
//   - Return ErrNotFound if a result doesn't exist (for Load/Delete)
//   - Return descriptive errors for I/O, serialization, or validation failures
//   - Wrap underlying errors with context using fmt.Errorf("context: %w", err)
type Store interface {
	// SaveResult atomically saves a fit record for the given job.
	// If a record already exists for this jobID, it is overwritten.
	// The implementation should use atomic write strategies (e.g., temp file
	// + rename) to prevent corruption in case of failures.
	SaveResult(jobID string, record *FitRecord) error

	// LoadResult retrieves the fit record for the given job.
	// Returns ErrNotFound if no record exists for this jobID.
	LoadResult(jobID string) (*FitRecord, error)

	// ListResults returns metadata for all stored fit results.
	// The returned slice may be empty if no results exist.
	ListResults() ([]FitInfo, error)

	// DeleteResult removes the record and all associated artifacts for the
	// given job, including result.json and trace.jsonl.
	// Returns ErrNotFound if no record exists for this jobID.
	DeleteResult(jobID string) error
}

// ErrNotFound is returned when a requested fit result does not exist.
// Use errors.Is(err, ErrNotFound) to check for this error.
var ErrNotFound = &NotFoundError{}

// NotFoundError represents a missing fit result error.
type NotFoundError struct {
	JobID string
}

func (e *NotFoundError) Error() string {
	if e.JobID != "" {
		return "fit result not found: " + e.JobID
	}
	return "fit result not found"
}

func (e *NotFoundError) Is(target error) bool {
	_, ok := target.(*NotFoundError)
	return ok
}
