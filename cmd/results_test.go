package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cwbudde/bootfit/internal/store"
)

func TestSelectResultsForDeletion_ByAge(t *testing.T) {
	now := time.Now()
	infos := []store.FitInfo{
		{JobID: "job1", Timestamp: now.AddDate(0, 0, -10)}, // 10 days old
		{JobID: "job2", Timestamp: now.AddDate(0, 0, -5)},  // 5 days old
		{JobID: "job3", Timestamp: now.AddDate(0, 0, -1)},  // 1 day old
		{JobID: "job4", Timestamp: now.AddDate(0, 0, -30)}, // 30 days old
	}

	// Delete results older than 7 days
	toDelete := selectResultsForDeletion(infos, 0, 7)

	if len(toDelete) != 2 {
		t.Errorf("Expected 2 results to delete, got %d", len(toDelete))
	}

	// Verify correct results selected
	found10 := false
	found30 := false
	for _, info := range toDelete {
		if info.JobID == "job1" {
			found10 = true
		}
		if info.JobID == "job4" {
			found30 = true
		}
	}

	if !found10 || !found30 {
		t.Error("Expected job1 and job4 to be selected for deletion")
	}
}

func TestSelectResultsForDeletion_ByCount(t *testing.T) {
	now := time.Now()
	infos := []store.FitInfo{
		{JobID: "job1", Timestamp: now.AddDate(0, 0, -10)},
		{JobID: "job2", Timestamp: now.AddDate(0, 0, -5)},
		{JobID: "job3", Timestamp: now.AddDate(0, 0, -1)},
		{JobID: "job4", Timestamp: now.AddDate(0, 0, -30)},
	}

	// Keep only last 2 results
	toDelete := selectResultsForDeletion(infos, 2, 0)

	if len(toDelete) != 2 {
		t.Errorf("Expected 2 results to delete, got %d", len(toDelete))
	}

	// Should delete oldest two (job4 and job1)
	found30 := false
	found10 := false
	for _, info := range toDelete {
		if info.JobID == "job4" {
			found30 = true
		}
		if info.JobID == "job1" {
			found10 = true
		}
	}

	if !found30 || !found10 {
		t.Error("Expected job4 and job1 to be selected for deletion (oldest)")
	}
}

func TestSelectResultsForDeletion_Combined(t *testing.T) {
	now := time.Now()
	infos := []store.FitInfo{
		{JobID: "job1", Timestamp: now.AddDate(0, 0, -10)},
		{JobID: "job2", Timestamp: now.AddDate(0, 0, -5)},
		{JobID: "job3", Timestamp: now.AddDate(0, 0, -1)},
		{JobID: "job4", Timestamp: now.AddDate(0, 0, -30)},
		{JobID: "job5", Timestamp: now.AddDate(0, 0, -2)},
	}

	// Delete older than 7 days AND keep only last 3
	toDelete := selectResultsForDeletion(infos, 3, 7)

	// job4 and job1 qualify by age, and they are also the two oldest
	if len(toDelete) != 2 {
		t.Errorf("Expected 2 results to delete, got %d", len(toDelete))
	}
}

func TestGetDirSize(t *testing.T) {
	tmpDir := t.TempDir()

	testFile := filepath.Join(tmpDir, "test.txt")
	content := []byte("Hello, World!")
	if err := os.WriteFile(testFile, content, 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	size, err := getDirSize(tmpDir)
	if err != nil {
		t.Fatalf("getDirSize failed: %v", err)
	}

	if size < int64(len(content)) {
		t.Errorf("Expected size >= %d, got %d", len(content), size)
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		bytes    int64
		expected string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1023, "1023 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{1048576, "1.0 MB"},
		{1073741824, "1.0 GB"},
	}

	for _, tt := range tests {
		result := formatBytes(tt.bytes)
		if result != tt.expected {
			t.Errorf("formatBytes(%d) = %s, expected %s", tt.bytes, result, tt.expected)
		}
	}
}

func TestResultsListCommand_NoResults(t *testing.T) {
	tmpDir := t.TempDir()

	originalDataDir := resultsDataDir
	resultsDataDir = tmpDir
	defer func() { resultsDataDir = originalDataDir }()

	err := runListResults(nil, nil)
	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
}

func TestResultsListCommand_WithResults(t *testing.T) {
	tmpDir := t.TempDir()

	resultStore, err := store.NewFSStore(tmpDir)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	config := store.JobConfig{
		CSVPath:    "data.csv",
		Replicates: 100,
		Optimizer:  "neldermead",
	}
	record := store.NewFitRecord("test-job-id", []float64{2, -1.5}, []float64{0.1, 0.2}, []float64{0.01, 0, 0, 0.04}, 100, true, config)

	if err := resultStore.SaveResult("test-job-id", record); err != nil {
		t.Fatalf("Failed to save result: %v", err)
	}

	originalDataDir := resultsDataDir
	resultsDataDir = tmpDir
	defer func() { resultsDataDir = originalDataDir }()

	err = runListResults(nil, nil)
	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
}

func TestResultsCleanCommand_NoFlags(t *testing.T) {
	tmpDir := t.TempDir()

	originalDataDir := resultsDataDir
	resultsDataDir = tmpDir
	defer func() { resultsDataDir = originalDataDir }()

	// Reset flags
	keepLast = 0
	olderThanDays = 0

	// Should return error when no flags specified
	err := runCleanResults(nil, nil)
	if err == nil {
		t.Error("Expected error when no flags specified")
	}
}

func TestResultsCleanCommand_WithForce(t *testing.T) {
	tmpDir := t.TempDir()

	resultStore, err := store.NewFSStore(tmpDir)
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}

	config := store.JobConfig{
		CSVPath:    "data.csv",
		Replicates: 50,
		Optimizer:  "neldermead",
	}
	record := store.NewFitRecord("old-job", []float64{1}, []float64{0.1}, []float64{0.01}, 50, true, config)

	// Manually set timestamp to be old
	record.Timestamp = time.Now().AddDate(0, 0, -30)

	if err := resultStore.SaveResult("old-job", record); err != nil {
		t.Fatalf("Failed to save result: %v", err)
	}

	originalDataDir := resultsDataDir
	resultsDataDir = tmpDir
	defer func() { resultsDataDir = originalDataDir }()

	// Set flags
	keepLast = 0
	olderThanDays = 7
	forceClean = true

	err = runCleanResults(nil, nil)
	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}

	// Verify result was deleted
	if _, err := resultStore.LoadResult("old-job"); err == nil {
		t.Error("Expected result to be deleted")
	}
}
