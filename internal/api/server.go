package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/loadlens-hq/loadlens/internal/config"
	"github.com/loadlens-hq/loadlens/internal/db"
	"github.com/loadlens-hq/loadlens/internal/jobs"
	loadlensnats "github.com/loadlens-hq/loadlens/internal/nats"
)

// Server represents the API server
type Server struct {
	cfg      *config.Config
	router   *chi.Mux
	store    *db.Store
	jobRepo  *jobs.Repository
	pipeline *jobs.Pipeline
	nats     *loadlensnats.Client
}

// NewServer creates a new API server
func NewServer(cfg *config.Config) (*Server, error) {
	s := &Server{
		cfg:    cfg,
		router: chi.NewRouter(),
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s, nil
}

// AttachStore wires the database store into the server
func (s *Server) AttachStore(store *db.Store) {
	s.store = store
}

// AttachJobSystem wires the job repository and pipeline into the server
func (s *Server) AttachJobSystem(repo *jobs.Repository, pipeline *jobs.Pipeline) {
	s.jobRepo = repo
	s.pipeline = pipeline
}

// AttachNATS wires the NATS client into the server
func (s *Server) AttachNATS(client *loadlensnats.Client) {
	s.nats = client
}

// Router returns the HTTP router
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Timeout(60 * time.Second))
}

func (s *Server) setupRoutes() {
	// Health check
	s.router.Get("/health", s.healthCheck)
	s.router.Get("/ready", s.readyCheck)

	// API v1
	s.router.Route("/api/v1", func(r chi.Router) {
		// Projects
		r.Route("/projects", func(r chi.Router) {
			r.Post("/", s.createProject)
			r.Get("/", s.listProjects)
			r.Get("/{projectID}", s.getProject)
			r.Get("/{projectID}/tests", s.listProjectTests)
		})

		// Performance tests
		r.Route("/tests", func(r chi.Router) {
			r.Post("/", s.createPerfTest)
			r.Get("/", s.listPerfTests)
			r.Get("/summary", s.getPerfTestSummary)
			r.Get("/{testID}", s.getPerfTest)
			r.Delete("/{testID}", s.deletePerfTest)
			r.Post("/{testID}/generate", s.generateScript)
			r.Post("/{testID}/run", s.runPerfTest)
			r.Post("/{testID}/analyze", s.analyzePerfTest)
			r.Get("/{testID}/report", s.getReport)
			r.Get("/{testID}/jobs", s.listTestJobs)
		})

		// Full pipeline in one call
		r.Post("/pipeline", s.startPipeline)

		// Jobs
		r.Route("/jobs", func(r chi.Router) {
			r.Post("/", s.createJob)
			r.Get("/", s.listJobs)
			r.Get("/{jobID}", s.getJob)
			r.Post("/{jobID}/cancel", s.cancelJob)
			r.Post("/{jobID}/retry", s.retryJob)
		})
	})
}

// Health check handlers
func (s *Server) healthCheck(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) readyCheck(w http.ResponseWriter, r *http.Request) {
	checks := map[string]string{}

	if s.store != nil {
		if err := s.store.Ping(r.Context()); err != nil {
			checks["database"] = "unavailable"
		} else {
			checks["database"] = "ok"
		}
	}
	if s.nats != nil {
		if err := s.nats.HealthCheck(); err != nil {
			checks["nats"] = "unavailable"
		} else {
			checks["nats"] = "ok"
		}
	}

	for _, status := range checks {
		if status != "ok" {
			respondJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
				"status": "degraded",
				"checks": checks,
			})
			return
		}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "ready",
		"checks": checks,
	})
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
