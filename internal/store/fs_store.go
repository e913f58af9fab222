package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// FSStore implements the Store interface using filesystem-based persistence.
// Results are stored in a directory structure: <baseDir>/fits/<jobID>/
//
// Thread-safety: This implementation uses atomic file operations (rename)
// and does not require locks. Multiple goroutines can safely call methods
// concurrently.
type FSStore struct {
	baseDir string // Root directory for all result data (e.g., "./data")
}

// NewFSStore creates a new filesystem-based store.
// The baseDir will be created if it doesn't exist.
func NewFSStore(baseDir string) (*FSStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &FSStore{
		baseDir: baseDir,
	}, nil
}

// BaseDir returns the root directory of the store.
func (fs *FSStore) BaseDir() string {
	return fs.baseDir
}

// fitDir returns the directory path for a given job ID.
func (fs *FSStore) fitDir(jobID string) string {
	return filepath.Join(fs.baseDir, "fits", jobID)
}

// resultPath returns the path to the result.json file for a job.
func (fs *FSStore) resultPath(jobID string) string {
	return filepath.Join(fs.fitDir(jobID), "result.json")
}

// SaveResult atomically saves a fit record for the given job.
// Uses temp file + rename pattern to ensure atomicity.
func (fs *FSStore) SaveResult(jobID string, record *FitRecord) error {
	if jobID == "" {
		return fmt.Errorf("jobID cannot be empty")
	}
	if record == nil {
		return fmt.Errorf("record cannot be nil")
	}

	fitDir := fs.fitDir(jobID)
	if err := os.MkdirAll(fitDir, 0755); err != nil {
		return fmt.Errorf("failed to create fit directory: %w", err)
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize fit record: %w", err)
	}

	// Write to temporary file first (atomic pattern)
	tempPath := fs.resultPath(jobID) + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write temp result file: %w", err)
	}

	// Atomic rename to final location
	finalPath := fs.resultPath(jobID)
	if err := os.Rename(tempPath, finalPath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename result file: %w", err)
	}

	slog.Debug("Fit result saved", "jobID", jobID, "path", finalPath)
	return nil
}

// LoadResult retrieves the fit record for the given job.
func (fs *FSStore) LoadResult(jobID string) (*FitRecord, error) {
	if jobID == "" {
		return nil, fmt.Errorf("jobID cannot be empty")
	}

	path := fs.resultPath(jobID)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, &NotFoundError{JobID: jobID}
	} else if err != nil {
		return nil, fmt.Errorf("failed to stat result file: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read result file: %w", err)
	}

	var record FitRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to deserialize fit record: %w", err)
	}

	slog.Debug("Fit result loaded", "jobID", jobID, "path", path)
	return &record, nil
}

// ListResults returns metadata for all stored fit results.
func (fs *FSStore) ListResults() ([]FitInfo, error) {
	fitsDir := filepath.Join(fs.baseDir, "fits")

	if _, err := os.Stat(fitsDir); os.IsNotExist(err) {
		// No results exist yet, return empty slice
		return []FitInfo{}, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to stat fits directory: %w", err)
	}

	entries, err := os.ReadDir(fitsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read fits directory: %w", err)
	}

	var infos []FitInfo

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		jobID := entry.Name()
		if _, err := os.Stat(fs.resultPath(jobID)); os.IsNotExist(err) {
			continue // Skip directories without result.json
		}

		record, err := fs.LoadResult(jobID)
		if err != nil {
			slog.Warn("Failed to load fit result for listing", "jobID", jobID, "error", err)
			continue // Skip corrupted records
		}

		infos = append(infos, record.ToInfo())
	}

	slog.Debug("Listed fit results", "count", len(infos))
	return infos, nil
}

// DeleteResult removes the record and all associated artifacts.
func (fs *FSStore) DeleteResult(jobID string) error {
	if jobID == "" {
		return fmt.Errorf("jobID cannot be empty")
	}

	fitDir := fs.fitDir(jobID)

	if _, err := os.Stat(fitDir); os.IsNotExist(err) {
		return &NotFoundError{JobID: jobID}
	} else if err != nil {
		return fmt.Errorf("failed to stat fit directory: %w", err)
	}

	if err := os.RemoveAll(fitDir); err != nil {
		return fmt.Errorf("failed to remove fit directory: %w", err)
	}

	slog.Debug("Fit result deleted", "jobID", jobID, "path", fitDir)
	return nil
}
