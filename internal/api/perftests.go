package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/loadlens-hq/loadlens/internal/db"
	"github.com/loadlens-hq/loadlens/internal/jobs"
)

// CreateProjectRequest is the request body for creating a project
type CreateProjectRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
}

// CreatePerfTestRequest is the request body for creating a perf-test record
type CreatePerfTestRequest struct {
	ProjectID   string `json:"project_id,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Requirement string `json:"requirement,omitempty"`
	TargetURL   string `json:"target_url,omitempty"`
	Mode        string `json:"mode,omitempty"` // "regex" or "ai"
}

// GenerateRequest is the request body for triggering script generation
type GenerateRequest struct {
	Mode         string `json:"mode,omitempty"`
	RunExecution bool   `json:"run_execution,omitempty"`
	RunAnalysis  bool   `json:"run_analysis,omitempty"`
	OutputFormat string `json:"output_format,omitempty"` // "summary" or "full"
}

// RunRequest is the request body for triggering script execution
type RunRequest struct {
	OutputFormat string   `json:"output_format,omitempty"`
	ExtraArgs    []string `json:"extra_args,omitempty"`
	RunAnalysis  bool     `json:"run_analysis,omitempty"`
}

// StartPipelineRequest is the request body for the one-call pipeline.
// It creates the perf-test record and kicks off generation, execution
// and analysis in sequence.
type StartPipelineRequest struct {
	ProjectID    string `json:"project_id,omitempty"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	Requirement  string `json:"requirement,omitempty"`
	TargetURL    string `json:"target_url,omitempty"`
	Mode         string `json:"mode,omitempty"`
	OutputFormat string `json:"output_format,omitempty"`
	SkipAnalysis bool   `json:"skip_analysis,omitempty"`
}

// Project handlers

func (s *Server) createProject(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		respondError(w, http.StatusServiceUnavailable, "database not available")
		return
	}

	var req CreateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}

	project := &db.Project{
		Name:        req.Name,
		Description: req.Description,
	}
	if err := s.store.CreateProject(r.Context(), project); err != nil {
		log.Error().Err(err).Msg("failed to create project")
		respondError(w, http.StatusInternalServerError, "failed to create project")
		return
	}

	respondJSON(w, http.StatusCreated, project)
}

func (s *Server) listProjects(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		respondError(w, http.StatusServiceUnavailable, "database not available")
		return
	}

	limit, offset := parsePagination(r)
	projects, err := s.store.ListProjects(r.Context(), limit, offset)
	if err != nil {
		log.Error().Err(err).Msg("failed to list projects")
		respondError(w, http.StatusInternalServerError, "failed to list projects")
		return
	}

	respondJSON(w, http.StatusOK, projects)
}

func (s *Server) getProject(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		respondError(w, http.StatusServiceUnavailable, "database not available")
		return
	}

	projectID, err := uuid.Parse(chi.URLParam(r, "projectID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid project ID")
		return
	}

	project, err := s.store.GetProject(r.Context(), projectID)
	if err != nil {
		log.Error().Err(err).Msg("failed to get project")
		respondError(w, http.StatusInternalServerError, "failed to get project")
		return
	}
	if project == nil {
		respondError(w, http.StatusNotFound, "project not found")
		return
	}

	respondJSON(w, http.StatusOK, project)
}

func (s *Server) listProjectTests(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		respondError(w, http.StatusServiceUnavailable, "database not available")
		return
	}

	projectID, err := uuid.Parse(chi.URLParam(r, "projectID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid project ID")
		return
	}

	limit, offset := parsePagination(r)
	tests, err := s.store.ListPerfTestsByProject(r.Context(), projectID, limit, offset)
	if err != nil {
		log.Error().Err(err).Msg("failed to list perf tests")
		respondError(w, http.StatusInternalServerError, "failed to list tests")
		return
	}

	respondJSON(w, http.StatusOK, tests)
}

// Perf-test handlers

func (s *Server) createPerfTest(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		respondError(w, http.StatusServiceUnavailable, "database not available")
		return
	}

	var req CreatePerfTestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || req.Description == "" {
		respondError(w, http.StatusBadRequest, "name and description are required")
		return
	}

	test := &db.PerfTest{
		Name:        req.Name,
		Description: req.Description,
		Mode:        req.Mode,
	}
	if req.ProjectID != "" {
		projectID, err := uuid.Parse(req.ProjectID)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid project_id")
			return
		}
		test.ProjectID = &projectID
	}
	if req.Requirement != "" {
		test.Requirement = &req.Requirement
	}
	if req.TargetURL != "" {
		test.TargetURL = &req.TargetURL
	}

	if err := s.store.CreatePerfTest(r.Context(), test); err != nil {
		log.Error().Err(err).Msg("failed to create perf test")
		respondError(w, http.StatusInternalServerError, "failed to create test")
		return
	}

	respondJSON(w, http.StatusCreated, test)
}

func (s *Server) listPerfTests(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		respondError(w, http.StatusServiceUnavailable, "database not available")
		return
	}

	limit, offset := parsePagination(r)
	tests, err := s.store.ListPerfTests(r.Context(), limit, offset)
	if err != nil {
		log.Error().Err(err).Msg("failed to list perf tests")
		respondError(w, http.StatusInternalServerError, "failed to list tests")
		return
	}

	respondJSON(w, http.StatusOK, tests)
}

func (s *Server) getPerfTest(w http.ResponseWriter, r *http.Request) {
	test := s.loadPerfTest(w, r)
	if test == nil {
		return
	}

	respondJSON(w, http.StatusOK, test)
}

func (s *Server) deletePerfTest(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		respondError(w, http.StatusServiceUnavailable, "database not available")
		return
	}

	testID, err := uuid.Parse(chi.URLParam(r, "testID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid test ID")
		return
	}

	if err := s.store.DeletePerfTest(r.Context(), testID); err != nil {
		respondError(w, http.StatusNotFound, "test not found")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// generateScript queues a script generation job for a perf-test record
func (s *Server) generateScript(w http.ResponseWriter, r *http.Request) {
	if s.pipeline == nil {
		respondError(w, http.StatusServiceUnavailable, "job system not available")
		return
	}

	test := s.loadPerfTest(w, r)
	if test == nil {
		return
	}

	var req GenerateRequest
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}

	mode := req.Mode
	if mode == "" {
		mode = test.Mode
	}
	targetURL := ""
	if test.TargetURL != nil {
		targetURL = *test.TargetURL
	}

	payload := jobs.GenerationPayload{
		PerfTestID:   test.ID,
		Description:  test.Description,
		TargetURL:    targetURL,
		Mode:         mode,
		RunExecution: req.RunExecution,
		RunAnalysis:  req.RunAnalysis,
		OutputFormat: req.OutputFormat,
	}

	job, err := s.pipeline.StartGeneration(r.Context(), payload)
	if err != nil {
		log.Error().Err(err).Msg("failed to start generation")
		respondError(w, http.StatusInternalServerError, "failed to start generation")
		return
	}

	respondJSON(w, http.StatusAccepted, jobToResponse(job))
}

// runPerfTest queues an execution job for an already generated script
func (s *Server) runPerfTest(w http.ResponseWriter, r *http.Request) {
	if s.jobRepo == nil {
		respondError(w, http.StatusServiceUnavailable, "job system not available")
		return
	}

	test := s.loadPerfTest(w, r)
	if test == nil {
		return
	}

	if test.Script == nil || *test.Script == "" {
		respondError(w, http.StatusConflict, "no script generated yet")
		return
	}

	var req RunRequest
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}

	payload := jobs.ExecutionPayload{
		PerfTestID:   test.ID,
		Script:       *test.Script,
		OutputFormat: req.OutputFormat,
		ExtraArgs:    req.ExtraArgs,
		RunAnalysis:  req.RunAnalysis,
	}

	job, err := jobs.NewJob(jobs.JobTypeExecution, payload)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	job.PerfTestID = &test.ID

	if err := s.jobRepo.Create(r.Context(), job); err != nil {
		log.Error().Err(err).Msg("failed to create execution job")
		respondError(w, http.StatusInternalServerError, "failed to create job")
		return
	}

	respondJSON(w, http.StatusAccepted, jobToResponse(job))
}

// analyzePerfTest queues an analysis job over stored execution results
func (s *Server) analyzePerfTest(w http.ResponseWriter, r *http.Request) {
	if s.jobRepo == nil {
		respondError(w, http.StatusServiceUnavailable, "job system not available")
		return
	}

	test := s.loadPerfTest(w, r)
	if test == nil {
		return
	}

	if test.Metrics == nil && test.RawOutput == nil {
		respondError(w, http.StatusConflict, "no execution results to analyze")
		return
	}

	payload := jobs.AnalysisPayload{
		PerfTestID:      test.ID,
		TestName:        test.Name,
		TestDescription: test.Description,
	}
	if test.Requirement != nil {
		payload.TestRequirement = *test.Requirement
	}

	job, err := jobs.NewJob(jobs.JobTypeAnalysis, payload)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	job.PerfTestID = &test.ID

	if err := s.jobRepo.Create(r.Context(), job); err != nil {
		log.Error().Err(err).Msg("failed to create analysis job")
		respondError(w, http.StatusInternalServerError, "failed to create job")
		return
	}

	respondJSON(w, http.StatusAccepted, jobToResponse(job))
}

// getReport returns the markdown analysis report for a perf-test record
func (s *Server) getReport(w http.ResponseWriter, r *http.Request) {
	test := s.loadPerfTest(w, r)
	if test == nil {
		return
	}

	if test.ReportMarkdown == nil {
		respondError(w, http.StatusNotFound, "report not generated yet")
		return
	}

	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(*test.ReportMarkdown))
}

// listTestJobs lists jobs for a specific perf-test record
func (s *Server) listTestJobs(w http.ResponseWriter, r *http.Request) {
	if s.jobRepo == nil {
		respondError(w, http.StatusServiceUnavailable, "job system not available")
		return
	}

	testID, err := uuid.Parse(chi.URLParam(r, "testID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid test ID")
		return
	}

	limit, _ := parsePagination(r)
	jobList, err := s.jobRepo.ListByPerfTest(r.Context(), testID, limit)
	if err != nil {
		log.Error().Err(err).Msg("failed to list jobs")
		respondError(w, http.StatusInternalServerError, "failed to list jobs")
		return
	}

	responses := make([]*JobResponse, len(jobList))
	for i, j := range jobList {
		responses[i] = jobToResponse(j)
	}

	respondJSON(w, http.StatusOK, responses)
}

func (s *Server) getPerfTestSummary(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		respondError(w, http.StatusServiceUnavailable, "database not available")
		return
	}

	summary, err := s.store.GetPerfTestSummary(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to get summary")
		respondError(w, http.StatusInternalServerError, "failed to get summary")
		return
	}

	respondJSON(w, http.StatusOK, summary)
}

// startPipeline creates a perf-test record and starts the full pipeline
func (s *Server) startPipeline(w http.ResponseWriter, r *http.Request) {
	if s.store == nil || s.pipeline == nil {
		respondError(w, http.StatusServiceUnavailable, "job system not available")
		return
	}

	var req StartPipelineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Description == "" {
		respondError(w, http.StatusBadRequest, "description is required")
		return
	}
	if req.Name == "" {
		req.Name = req.Description
	}

	test := &db.PerfTest{
		Name:        req.Name,
		Description: req.Description,
		Mode:        req.Mode,
	}
	if req.ProjectID != "" {
		projectID, err := uuid.Parse(req.ProjectID)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid project_id")
			return
		}
		test.ProjectID = &projectID
	}
	if req.Requirement != "" {
		test.Requirement = &req.Requirement
	}
	if req.TargetURL != "" {
		test.TargetURL = &req.TargetURL
	}

	if err := s.store.CreatePerfTest(r.Context(), test); err != nil {
		log.Error().Err(err).Msg("failed to create perf test")
		respondError(w, http.StatusInternalServerError, "failed to create test")
		return
	}

	options := jobs.PipelineOptions{
		Mode:         req.Mode,
		TargetURL:    req.TargetURL,
		RunExecution: true,
		RunAnalysis:  !req.SkipAnalysis,
		OutputFormat: req.OutputFormat,
	}

	job, err := s.pipeline.StartFullPipeline(r.Context(), test.ID, req.Description, options)
	if err != nil {
		log.Error().Err(err).Msg("failed to start pipeline")
		respondError(w, http.StatusInternalServerError, "failed to start pipeline")
		return
	}

	respondJSON(w, http.StatusCreated, map[string]interface{}{
		"test": test,
		"job":  jobToResponse(job),
	})
}

// loadPerfTest fetches the record named in the URL, writing the error
// response itself when the record cannot be loaded
func (s *Server) loadPerfTest(w http.ResponseWriter, r *http.Request) *db.PerfTest {
	if s.store == nil {
		respondError(w, http.StatusServiceUnavailable, "database not available")
		return nil
	}

	testID, err := uuid.Parse(chi.URLParam(r, "testID"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid test ID")
		return nil
	}

	test, err := s.store.GetPerfTest(r.Context(), testID)
	if err != nil {
		log.Error().Err(err).Msg("failed to get perf test")
		respondError(w, http.StatusInternalServerError, "failed to get test")
		return nil
	}
	if test == nil {
		respondError(w, http.StatusNotFound, "test not found")
		return nil
	}

	return test
}

func parsePagination(r *http.Request) (limit, offset int) {
	limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	offset, _ = strconv.Atoi(r.URL.Query().Get("offset"))
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
