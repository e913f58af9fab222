package server

import (
	"testing"
	"time"
)

func TestJobManager_CreateJob(t *testing.T) {
	jm := NewJobManager()

	config := JobConfig{
		CSVPath:    "data.csv",
		Response:   "y",
		Replicates: 100,
		Seed:       42,
		Optimizer:  "neldermead",
	}

	job := jm.CreateJob(config)

	if job.ID == "" {
		t.Error("Job ID should not be empty")
	}

	if job.State != StatePending {
		t.Errorf("Initial state should be pending, got %s", job.State)
	}

	if job.Config.CSVPath != "data.csv" {
		t.Errorf("Config not set correctly")
	}
}

func TestJobManager_GetJob(t *testing.T) {
	jm := NewJobManager()

	config := JobConfig{CSVPath: "data.csv", Replicates: 50}
	job := jm.CreateJob(config)

	retrieved, exists := jm.GetJob(job.ID)
	if !exists {
		t.Error("Job should exist")
	}

	if retrieved.ID != job.ID {
		t.Error("Retrieved wrong job")
	}

	_, exists = jm.GetJob("nonexistent")
	if exists {
		t.Error("Should not find nonexistent job")
	}
}

func TestJobManager_ListJobs(t *testing.T) {
	jm := NewJobManager()

	if len(jm.ListJobs()) != 0 {
		t.Error("Should start with no jobs")
	}

	jm.CreateJob(JobConfig{CSVPath: "a.csv"})
	jm.CreateJob(JobConfig{CSVPath: "b.csv"})

	jobs := jm.ListJobs()
	if len(jobs) != 2 {
		t.Errorf("Expected 2 jobs, got %d", len(jobs))
	}
}

func TestJobManager_UpdateJob(t *testing.T) {
	jm := NewJobManager()

	job := jm.CreateJob(JobConfig{CSVPath: "data.csv"})

	err := jm.UpdateJob(job.ID, func(j *Job) {
		j.State = StateRunning
		j.Completed = 10
		j.Beta = []float64{2.0, -1.5}
	})

	if err != nil {
		t.Errorf("Update should succeed: %v", err)
	}

	updated, _ := jm.GetJob(job.ID)
	if updated.State != StateRunning {
		t.Error("State should be updated")
	}
	if updated.Completed != 10 {
		t.Error("Completed count should be updated")
	}
	if len(updated.Beta) != 2 {
		t.Error("Beta should be updated")
	}

	err = jm.UpdateJob("nonexistent", func(j *Job) {})
	if err == nil {
		t.Error("Update of nonexistent job should fail")
	}
}

func TestJobManager_CancelJob(t *testing.T) {
	jm := NewJobManager()

	job := jm.CreateJob(JobConfig{CSVPath: "data.csv"})

	// No cancel function registered yet
	if jm.CancelJob(job.ID) {
		t.Error("Cancel should fail before a cancel function is set")
	}

	cancelled := false
	jm.SetCancel(job.ID, func() { cancelled = true })

	if !jm.CancelJob(job.ID) {
		t.Error("Cancel should succeed once a cancel function is set")
	}
	if !cancelled {
		t.Error("Cancel function should have been invoked")
	}

	if jm.CancelJob("nonexistent") {
		t.Error("Cancel of nonexistent job should fail")
	}
}

func TestJobManager_ThreadSafety(t *testing.T) {
	jm := NewJobManager()

	job := jm.CreateJob(JobConfig{CSVPath: "data.csv"})

	// Simulate concurrent updates
	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func(completed int) {
			jm.UpdateJob(job.ID, func(j *Job) {
				j.Completed = completed
				time.Sleep(1 * time.Millisecond)
			})
			done <- true
		}(i)
	}

	// Wait for all updates
	for i := 0; i < 10; i++ {
		<-done
	}

	// Should not crash - actual value depends on race
	_, exists := jm.GetJob(job.ID)
	if !exists {
		t.Error("Job should still exist after concurrent updates")
	}
}
