// Package jobs defines the async job model for the perf-test pipeline
package jobs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// JobType identifies the pipeline stage a job belongs to
type JobType string

const (
	JobTypeGeneration JobType = "script_generation" // description -> k6 script
	JobTypeExecution  JobType = "execution"         // k6 script -> metrics
	JobTypeAnalysis   JobType = "analysis"          // metrics -> report
)

// JobStatus represents the lifecycle state of a job
type JobStatus string

const (
	StatusPending   JobStatus = "pending"
	StatusRunning   JobStatus = "running"
	StatusCompleted JobStatus = "completed"
	StatusFailed    JobStatus = "failed"
	StatusRetrying  JobStatus = "retrying"
	StatusCancelled JobStatus = "cancelled"
)

// Job is a unit of async work persisted in the jobs table
type Job struct {
	ID           uuid.UUID        `json:"id" db:"id"`
	Type         JobType          `json:"type" db:"type"`
	Status       JobStatus        `json:"status" db:"status"`
	Priority     int              `json:"priority" db:"priority"`
	PerfTestID   *uuid.UUID       `json:"perf_test_id,omitempty" db:"perf_test_id"`
	ParentJobID  *uuid.UUID       `json:"parent_job_id,omitempty" db:"parent_job_id"`
	Payload      json.RawMessage  `json:"payload" db:"payload"`
	Result       *json.RawMessage `json:"result,omitempty" db:"result"`
	ErrorMessage *string          `json:"error_message,omitempty" db:"error_message"`
	ErrorDetails *json.RawMessage `json:"error_details,omitempty" db:"error_details"`
	RetryCount   int              `json:"retry_count" db:"retry_count"`
	MaxRetries   int              `json:"max_retries" db:"max_retries"`
	CreatedAt    time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at" db:"updated_at"`
	StartedAt    *time.Time       `json:"started_at,omitempty" db:"started_at"`
	CompletedAt  *time.Time       `json:"completed_at,omitempty" db:"completed_at"`
	LockedUntil  *time.Time       `json:"locked_until,omitempty" db:"locked_until"`
	WorkerID     *string          `json:"worker_id,omitempty" db:"worker_id"`
}

// GenerationPayload is the input for a script generation job
type GenerationPayload struct {
	PerfTestID  uuid.UUID `json:"perf_test_id"`
	Description string    `json:"description"`
	TargetURL   string    `json:"target_url,omitempty"`
	Mode        string    `json:"mode,omitempty"` // "regex" or "ai"
	// Pipeline chaining: a completed generation enqueues an execution job
	// when RunExecution is set, which in turn may enqueue analysis.
	RunExecution bool   `json:"run_execution,omitempty"`
	RunAnalysis  bool   `json:"run_analysis,omitempty"`
	OutputFormat string `json:"output_format,omitempty"` // "summary" or "full"
}

// GenerationResult is the output of a script generation job
type GenerationResult struct {
	PerfTestID   uuid.UUID `json:"perf_test_id"`
	Status       string    `json:"status"`
	Mode         string    `json:"mode"`
	ScriptLength int       `json:"script_length"`
	VUs          int       `json:"vus,omitempty"`
	Duration     string    `json:"duration,omitempty"`
	TargetURL    string    `json:"target_url,omitempty"`
}

// ExecutionPayload is the input for a k6 execution job. Script may be
// empty, in which case the worker loads it from the perf-test record.
type ExecutionPayload struct {
	PerfTestID   uuid.UUID `json:"perf_test_id"`
	Script       string    `json:"script,omitempty"`
	OutputFormat string    `json:"output_format,omitempty"`
	ExtraArgs    []string  `json:"extra_args,omitempty"`
	RunAnalysis  bool      `json:"run_analysis,omitempty"`
}

// ExecutionResult is the output of a k6 execution job
type ExecutionResult struct {
	PerfTestID       uuid.UUID `json:"perf_test_id"`
	Status           string    `json:"status"`
	ExitCode         int       `json:"exit_code"`
	ThresholdsFailed bool      `json:"thresholds_failed,omitempty"`
	MetricCount      int       `json:"metric_count"`
	DurationSeconds  float64   `json:"duration_seconds"`
	DetailedJSONPath string    `json:"detailed_json_path,omitempty"`
}

// AnalysisPayload is the input for an analysis job. Metrics and the raw
// execution transcript are read from the perf-test record, not carried
// in the payload.
type AnalysisPayload struct {
	PerfTestID         uuid.UUID `json:"perf_test_id"`
	TestName           string    `json:"test_name,omitempty"`
	TestDescription    string    `json:"test_description,omitempty"`
	TestRequirement    string    `json:"test_requirement,omitempty"`
	ProjectName        string    `json:"project_name,omitempty"`
	ProjectDescription string    `json:"project_description,omitempty"`
}

// AnalysisResult is the output of an analysis job
type AnalysisResult struct {
	PerfTestID    uuid.UUID `json:"perf_test_id"`
	Status        string    `json:"status"`
	SectionCount  int       `json:"section_count"`
	MarkdownBytes int       `json:"markdown_bytes"`
}

// NewJob creates a job with a payload
func NewJob(jobType JobType, payload interface{}) (*Job, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	now := time.Now()
	return &Job{
		ID:         uuid.New(),
		Type:       jobType,
		Status:     StatusPending,
		Priority:   0,
		Payload:    payloadBytes,
		MaxRetries: 3,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

// SetPayload marshals and sets the job payload
func (j *Job) SetPayload(payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}
	j.Payload = data
	return nil
}

// GetPayload unmarshals the job payload into the given struct
func (j *Job) GetPayload(v interface{}) error {
	if err := json.Unmarshal(j.Payload, v); err != nil {
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	return nil
}

// SetResult marshals and sets the job result
func (j *Job) SetResult(result interface{}) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}
	raw := json.RawMessage(data)
	j.Result = &raw
	return nil
}

// GetResult unmarshals the job result into the given struct
func (j *Job) GetResult(v interface{}) error {
	if j.Result == nil {
		return fmt.Errorf("job has no result")
	}
	if err := json.Unmarshal(*j.Result, v); err != nil {
		return fmt.Errorf("failed to unmarshal result: %w", err)
	}
	return nil
}

// CanRetry returns true if the job has retries remaining
func (j *Job) CanRetry() bool {
	return j.RetryCount < j.MaxRetries
}

// JobMessage is the NATS notification published when a job is enqueued
type JobMessage struct {
	JobID    uuid.UUID `json:"job_id"`
	Type     JobType   `json:"type"`
	Priority int       `json:"priority"`
}

// Encode serializes the message for NATS
func (m *JobMessage) Encode() ([]byte, error) {
	return json.Marshal(m)
}

// DecodeJobMessage deserializes a NATS message
func DecodeJobMessage(data []byte) (*JobMessage, error) {
	var msg JobMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to decode job message: %w", err)
	}
	return &msg, nil
}
