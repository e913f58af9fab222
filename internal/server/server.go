package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/cwbudde/bootfit/internal/store"
)

// Server represents the HTTP server
type Server struct {
	jobManager  *JobManager
	resultStore store.Store
	addr        string
	server      *http.Server
}

// NewServer creates a new HTTP server. resultStore may be nil, in which
// case completed fits are only held in memory.
func NewServer(addr string, resultStore store.Store) *Server {
	return &Server{
		jobManager:  NewJobManager(),
		resultStore: resultStore,
		addr:        addr,
	}
}

// Start starts the HTTP server
func (s *Server) Start() error {
	mux := http.NewServeMux()

	// Register API routes
	mux.HandleFunc("/api/v1/jobs", s.handleJobs)
	mux.HandleFunc("/api/v1/jobs/", s.handleJobsWithID)
	mux.HandleFunc("/api/v1/results", s.handleListResults)

	// Wrap with middleware
	handler := s.loggingMiddleware(s.corsMiddleware(mux))

	s.server = &http.Server{
		Addr:    s.addr,
		Handler: handler,
	}

	slog.Info("Starting HTTP server", "addr", s.addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	slog.Info("Shutting down HTTP server")
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// handleJobs handles /api/v1/jobs
func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.handleCreateJob(w, r)
	case http.MethodGet:
		s.handleListJobs(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleJobsWithID handles /api/v1/jobs/:id/*
func (s *Server) handleJobsWithID(w http.ResponseWriter, r *http.Request) {
	// Parse job ID from path
	path := strings.TrimPrefix(r.URL.Path, "/api/v1/jobs/")
	parts := strings.Split(path, "/")
	if len(parts) == 0 || parts[0] == "" {
		http.Error(w, "Job ID required", http.StatusBadRequest)
		return
	}

	jobID := parts[0]

	if r.Method == http.MethodDelete && len(parts) == 1 {
		s.handleCancelJob(w, r, jobID)
		return
	}

	// Route based on subpath
	if len(parts) == 1 || parts[1] == "status" {
		s.handleGetJobStatus(w, r, jobID)
	} else if parts[1] == "result" {
		s.handleGetJobResult(w, r, jobID)
	} else if parts[1] == "stream" {
		s.handleJobStream(w, r, jobID)
	} else {
		http.Error(w, "Not found", http.StatusNotFound)
	}
}

// handleCreateJob handles POST /api/v1/jobs
func (s *Server) handleCreateJob(w http.ResponseWriter, r *http.Request) {
	var config JobConfig
	if err := json.NewDecoder(r.Body).Decode(&config); err != nil {
		http.Error(w, fmt.Sprintf("Invalid JSON: %v", err), http.StatusBadRequest)
		return
	}

	// Validate config
	if config.CSVPath == "" {
		http.Error(w, "csvPath is required", http.StatusBadRequest)
		return
	}
	if config.Replicates <= 0 {
		config.Replicates = 100
	}
	if config.Optimizer == "" {
		config.Optimizer = "neldermead"
	}
	if _, err := buildOptimizer(config); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// Create job
	job := s.jobManager.CreateJob(config)

	// Start worker in background with a cancellable context
	ctx, cancel := context.WithCancel(context.Background())
	s.jobManager.SetCancel(job.ID, cancel)
	go runJob(ctx, s.jobManager, s.resultStore, job.ID)

	// Return job
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(job)
}

// handleListJobs handles GET /api/v1/jobs
func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	jobs := s.jobManager.ListJobs()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(jobs)
}

// handleGetJobStatus handles GET /api/v1/jobs/:id/status
func (s *Server) handleGetJobStatus(w http.ResponseWriter, r *http.Request, jobID string) {
	job, exists := s.jobManager.GetJob(jobID)
	if !exists {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}

	// Compute elapsed time and replicates per second
	var elapsed time.Duration
	if job.EndTime != nil {
		elapsed = job.EndTime.Sub(job.StartTime)
	} else {
		elapsed = time.Since(job.StartTime)
	}

	rps := float64(0)
	if elapsed.Seconds() > 0 {
		rps = float64(job.Completed) / elapsed.Seconds()
	}

	// Create response
	response := map[string]interface{}{
		"id":         job.ID,
		"state":      job.State,
		"config":     job.Config,
		"completed":  job.Completed,
		"total":      job.Config.Replicates,
		"converged":  job.Converged,
		"elapsed":    elapsed.Seconds(),
		"repsPerSec": rps,
		"startTime":  job.StartTime,
		"endTime":    job.EndTime,
		"error":      job.Error,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// handleGetJobResult handles GET /api/v1/jobs/:id/result
func (s *Server) handleGetJobResult(w http.ResponseWriter, r *http.Request, jobID string) {
	job, exists := s.jobManager.GetJob(jobID)
	if !exists {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}

	if job.State != StateCompleted {
		http.Error(w, "No results yet", http.StatusNotFound)
		return
	}

	// Prefer the persisted record, which carries the full covariance
	if s.resultStore != nil {
		record, err := s.resultStore.LoadResult(jobID)
		if err == nil {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(record)
			return
		}
		if !errors.Is(err, store.ErrNotFound) {
			http.Error(w, fmt.Sprintf("Failed to load result: %v", err), http.StatusInternalServerError)
			return
		}
	}

	response := map[string]interface{}{
		"jobId":      job.ID,
		"beta":       job.Beta,
		"stdErrs":    job.StdErrs,
		"replicates": job.Completed,
		"converged":  job.Converged,
		"config":     job.Config,
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

// handleCancelJob handles DELETE /api/v1/jobs/:id
func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request, jobID string) {
	job, exists := s.jobManager.GetJob(jobID)
	if !exists {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}

	if job.State != StatePending && job.State != StateRunning {
		http.Error(w, fmt.Sprintf("Job is %s, cannot cancel", job.State), http.StatusConflict)
		return
	}

	if !s.jobManager.CancelJob(jobID) {
		http.Error(w, "Job cannot be cancelled", http.StatusConflict)
		return
	}

	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{"id": jobID, "state": "cancelling"})
}

// handleListResults handles GET /api/v1/results
func (s *Server) handleListResults(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if s.resultStore == nil {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode([]store.FitInfo{})
		return
	}

	infos, err := s.resultStore.ListResults()
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to list results: %v", err), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(infos)
}

// corsMiddleware adds CORS headers
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		slog.Debug("HTTP request", "method", r.Method, "path", r.URL.Path, "duration", time.Since(start))
	})
}
