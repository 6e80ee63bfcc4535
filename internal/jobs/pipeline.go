// Package jobs provides pipeline orchestration for perf-test workflows
package jobs

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	loadlensnats "github.com/loadlens-hq/loadlens/internal/nats"
)

// Pipeline orchestrates the perf-test workflow
type Pipeline struct {
	repo *Repository
	nats *loadlensnats.Client
}

// NewPipeline creates a new pipeline manager
func NewPipeline(repo *Repository, nats *loadlensnats.Client) *Pipeline {
	return &Pipeline{
		repo: repo,
		nats: nats,
	}
}

// StartGeneration starts the script generation stage for a perf-test record
func (p *Pipeline) StartGeneration(ctx context.Context, payload GenerationPayload) (*Job, error) {
	job, err := NewJob(JobTypeGeneration, payload)
	if err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}
	job.PerfTestID = &payload.PerfTestID

	if err := p.repo.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to persist job: %w", err)
	}

	if err := p.publishJob(ctx, job); err != nil {
		log.Error().Err(err).Str("job_id", job.ID.String()).Msg("failed to publish job")
		// Job is in DB, worker can poll for it
	}

	log.Info().
		Str("job_id", job.ID.String()).
		Str("perf_test_id", payload.PerfTestID.String()).
		Str("mode", payload.Mode).
		Msg("started generation pipeline")

	return job, nil
}

// PipelineOptions configures pipeline execution
type PipelineOptions struct {
	Mode         string // "regex" or "ai"
	TargetURL    string // Overrides any URL found in the description
	RunExecution bool   // Whether to run the script after generation
	RunAnalysis  bool   // Whether to analyze results after execution
	OutputFormat string // "summary" or "full"
}

// StartFullPipeline starts the complete generate-execute-analyze pipeline.
// This creates the initial generation job; subsequent jobs are created by
// workers as each stage completes.
func (p *Pipeline) StartFullPipeline(ctx context.Context, perfTestID uuid.UUID, description string, options PipelineOptions) (*Job, error) {
	payload := GenerationPayload{
		PerfTestID:   perfTestID,
		Description:  description,
		TargetURL:    options.TargetURL,
		Mode:         options.Mode,
		RunExecution: options.RunExecution,
		RunAnalysis:  options.RunAnalysis,
		OutputFormat: options.OutputFormat,
	}

	job, err := p.StartGeneration(ctx, payload)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("job_id", job.ID.String()).
		Str("perf_test_id", perfTestID.String()).
		Bool("run_execution", options.RunExecution).
		Bool("run_analysis", options.RunAnalysis).
		Msg("started full pipeline")

	return job, nil
}

// ChainJob creates a child job linked to a parent
func (p *Pipeline) ChainJob(ctx context.Context, parentID uuid.UUID, jobType JobType, payload interface{}) (*Job, error) {
	job, err := NewJob(jobType, payload)
	if err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	job.ParentJobID = &parentID

	// Inherit perf_test_id from parent if not set
	parent, err := p.repo.GetByID(ctx, parentID)
	if err != nil {
		return nil, fmt.Errorf("failed to get parent job: %w", err)
	}
	if parent != nil && parent.PerfTestID != nil {
		job.PerfTestID = parent.PerfTestID
	}

	if err := p.repo.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to persist job: %w", err)
	}

	if err := p.publishJob(ctx, job); err != nil {
		log.Error().Err(err).Str("job_id", job.ID.String()).Msg("failed to publish job")
	}

	log.Debug().
		Str("job_id", job.ID.String()).
		Str("parent_id", parentID.String()).
		Str("type", string(jobType)).
		Msg("created chained job")

	return job, nil
}

// CreateExecutionJob creates an execution job after generation completes
func (p *Pipeline) CreateExecutionJob(ctx context.Context, parentID, perfTestID uuid.UUID, script, outputFormat string, runAnalysis bool) (*Job, error) {
	payload := ExecutionPayload{
		PerfTestID:   perfTestID,
		Script:       script,
		OutputFormat: outputFormat,
		RunAnalysis:  runAnalysis,
	}

	job, err := p.ChainJob(ctx, parentID, JobTypeExecution, payload)
	if err != nil {
		return nil, err
	}
	job.PerfTestID = &perfTestID

	return job, nil
}

// CreateAnalysisJob creates an analysis job after execution completes
func (p *Pipeline) CreateAnalysisJob(ctx context.Context, parentID uuid.UUID, payload AnalysisPayload) (*Job, error) {
	job, err := p.ChainJob(ctx, parentID, JobTypeAnalysis, payload)
	if err != nil {
		return nil, err
	}
	job.PerfTestID = &payload.PerfTestID

	return job, nil
}

// publishJob publishes a job notification to NATS
func (p *Pipeline) publishJob(ctx context.Context, job *Job) error {
	if p.nats == nil {
		return nil // NATS not configured, workers will poll DB
	}

	msg := &JobMessage{
		JobID:    job.ID,
		Type:     job.Type,
		Priority: job.Priority,
	}

	data, err := msg.Encode()
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	subject := loadlensnats.SubjectForJobType(string(job.Type))
	if subject == "" {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}

	_, err = p.nats.Publish(ctx, subject, data)
	return err
}

// GetJobStatus returns the current status of a job and its children
func (p *Pipeline) GetJobStatus(ctx context.Context, jobID uuid.UUID) (*JobStatusReport, error) {
	job, err := p.repo.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, fmt.Errorf("job not found")
	}

	children, err := p.repo.GetChildJobs(ctx, jobID)
	if err != nil {
		return nil, err
	}

	return &JobStatusReport{
		Job:      job,
		Children: children,
	}, nil
}

// JobStatusReport contains a job and its child jobs
type JobStatusReport struct {
	Job      *Job   `json:"job"`
	Children []*Job `json:"children,omitempty"`
}

// RetryFailedJobs requeues all jobs in retrying status
func (p *Pipeline) RetryFailedJobs(ctx context.Context) (int, error) {
	jobs, err := p.repo.ListByStatus(ctx, StatusRetrying, 100)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, job := range jobs {
		if err := p.repo.Retry(ctx, job.ID); err != nil {
			log.Warn().Err(err).Str("job_id", job.ID.String()).Msg("failed to retry job")
			continue
		}

		// Republish to NATS
		job.Status = StatusPending
		if err := p.publishJob(ctx, job); err != nil {
			log.Warn().Err(err).Str("job_id", job.ID.String()).Msg("failed to republish job")
		}

		count++
	}

	return count, nil
}
