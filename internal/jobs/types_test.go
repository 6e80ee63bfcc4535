package jobs

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestJobType_Constants(t *testing.T) {
	tests := []struct {
		jobType JobType
		want    string
	}{
		{JobTypeGeneration, "script_generation"},
		{JobTypeExecution, "execution"},
		{JobTypeAnalysis, "analysis"},
	}

	for _, tt := range tests {
		if string(tt.jobType) != tt.want {
			t.Errorf("JobType %v = %s, want %s", tt.jobType, string(tt.jobType), tt.want)
		}
	}
}

func TestJobStatus_Constants(t *testing.T) {
	tests := []struct {
		status JobStatus
		want   string
	}{
		{StatusPending, "pending"},
		{StatusRunning, "running"},
		{StatusCompleted, "completed"},
		{StatusFailed, "failed"},
		{StatusRetrying, "retrying"},
		{StatusCancelled, "cancelled"},
	}

	for _, tt := range tests {
		if string(tt.status) != tt.want {
			t.Errorf("JobStatus %v = %s, want %s", tt.status, string(tt.status), tt.want)
		}
	}
}

func TestNewJob(t *testing.T) {
	payload := GenerationPayload{
		PerfTestID:  uuid.New(),
		Description: "100个并发用户持续5分钟",
	}

	job, err := NewJob(JobTypeGeneration, payload)
	if err != nil {
		t.Fatalf("NewJob failed: %v", err)
	}

	if job.ID == uuid.Nil {
		t.Error("job.ID should not be nil")
	}
	if job.Type != JobTypeGeneration {
		t.Errorf("job.Type = %s, want script_generation", job.Type)
	}
	if job.Status != StatusPending {
		t.Errorf("job.Status = %s, want pending", job.Status)
	}
	if job.RetryCount != 0 {
		t.Errorf("job.RetryCount = %d, want 0", job.RetryCount)
	}
	if job.MaxRetries != 3 {
		t.Errorf("job.MaxRetries = %d, want 3", job.MaxRetries)
	}
}

func TestJob_GetSetPayload(t *testing.T) {
	job := &Job{
		ID:        uuid.New(),
		Type:      JobTypeGeneration,
		Status:    StatusPending,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	original := GenerationPayload{
		PerfTestID:   uuid.New(),
		Description:  "50个用户压测登录接口",
		TargetURL:    "https://api.example.com/login",
		Mode:         "regex",
		RunExecution: true,
	}

	if err := job.SetPayload(original); err != nil {
		t.Fatalf("SetPayload failed: %v", err)
	}

	var retrieved GenerationPayload
	if err := job.GetPayload(&retrieved); err != nil {
		t.Fatalf("GetPayload failed: %v", err)
	}

	if retrieved.PerfTestID != original.PerfTestID {
		t.Errorf("PerfTestID mismatch")
	}
	if retrieved.Description != original.Description {
		t.Errorf("Description = %s, want %s", retrieved.Description, original.Description)
	}
	if retrieved.TargetURL != original.TargetURL {
		t.Errorf("TargetURL = %s, want %s", retrieved.TargetURL, original.TargetURL)
	}
	if !retrieved.RunExecution {
		t.Error("RunExecution should survive the round trip")
	}
}

func TestJob_GetSetResult(t *testing.T) {
	job := &Job{
		ID:     uuid.New(),
		Type:   JobTypeExecution,
		Status: StatusCompleted,
	}

	original := ExecutionResult{
		PerfTestID:      uuid.New(),
		Status:          "completed",
		ExitCode:        0,
		MetricCount:     9,
		DurationSeconds: 31.4,
	}

	if err := job.SetResult(original); err != nil {
		t.Fatalf("SetResult failed: %v", err)
	}

	var retrieved ExecutionResult
	if err := job.GetResult(&retrieved); err != nil {
		t.Fatalf("GetResult failed: %v", err)
	}

	if retrieved.PerfTestID != original.PerfTestID {
		t.Errorf("PerfTestID mismatch")
	}
	if retrieved.MetricCount != original.MetricCount {
		t.Errorf("MetricCount = %d, want %d", retrieved.MetricCount, original.MetricCount)
	}
}

func TestJob_GetResult_NoResult(t *testing.T) {
	job := &Job{ID: uuid.New(), Type: JobTypeAnalysis}

	var out AnalysisResult
	if err := job.GetResult(&out); err == nil {
		t.Error("GetResult should fail when no result is set")
	}
}

func TestJob_CanRetry(t *testing.T) {
	tests := []struct {
		name       string
		retryCount int
		maxRetries int
		want       bool
	}{
		{"can retry", 0, 3, true},
		{"can retry once more", 2, 3, true},
		{"cannot retry", 3, 3, false},
		{"exceeded", 5, 3, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := &Job{
				RetryCount: tt.retryCount,
				MaxRetries: tt.maxRetries,
			}
			if got := job.CanRetry(); got != tt.want {
				t.Errorf("CanRetry() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestJobMessage_Encode(t *testing.T) {
	msg := &JobMessage{
		JobID:    uuid.New(),
		Type:     JobTypeExecution,
		Priority: 5,
	}

	data, err := msg.Encode()
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}

	decoded, err := DecodeJobMessage(data)
	if err != nil {
		t.Fatalf("DecodeJobMessage failed: %v", err)
	}

	if decoded.JobID != msg.JobID {
		t.Errorf("JobID mismatch")
	}
	if decoded.Type != msg.Type {
		t.Errorf("Type = %s, want %s", decoded.Type, msg.Type)
	}
	if decoded.Priority != msg.Priority {
		t.Errorf("Priority = %d, want %d", decoded.Priority, msg.Priority)
	}
}

func TestPayload_JSON(t *testing.T) {
	tests := []struct {
		name    string
		payload interface{}
	}{
		{"GenerationPayload", GenerationPayload{PerfTestID: uuid.New(), Description: "100并发", Mode: "ai"}},
		{"ExecutionPayload", ExecutionPayload{PerfTestID: uuid.New(), OutputFormat: "full"}},
		{"AnalysisPayload", AnalysisPayload{PerfTestID: uuid.New(), TestName: "登录压测"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.payload)
			if err != nil {
				t.Fatalf("Marshal failed: %v", err)
			}
			if len(data) == 0 {
				t.Error("marshaled data should not be empty")
			}
		})
	}
}

func TestResult_JSON(t *testing.T) {
	tests := []struct {
		name   string
		result interface{}
	}{
		{"GenerationResult", GenerationResult{PerfTestID: uuid.New(), Status: "success", ScriptLength: 842}},
		{"ExecutionResult", ExecutionResult{PerfTestID: uuid.New(), Status: "completed", MetricCount: 11}},
		{"AnalysisResult", AnalysisResult{PerfTestID: uuid.New(), Status: "success", SectionCount: 8}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.result)
			if err != nil {
				t.Fatalf("Marshal failed: %v", err)
			}
			if len(data) == 0 {
				t.Error("marshaled data should not be empty")
			}
		})
	}
}
