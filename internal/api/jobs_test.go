package api

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/loadlens-hq/loadlens/internal/jobs"
)

func TestJobToResponse(t *testing.T) {
	now := time.Now()
	startedAt := now.Add(-time.Minute)
	completedAt := now
	result := json.RawMessage(`{"status": "success", "script_length": 1200}`)

	job := &jobs.Job{
		ID:          uuid.New(),
		Type:        jobs.JobTypeGeneration,
		Status:      jobs.StatusCompleted,
		Priority:    5,
		PerfTestID:  ptr(uuid.New()),
		Payload:     json.RawMessage(`{"description": "100并发"}`),
		Result:      &result,
		RetryCount:  1,
		MaxRetries:  3,
		CreatedAt:   now.Add(-5 * time.Minute),
		UpdatedAt:   now,
		StartedAt:   &startedAt,
		CompletedAt: &completedAt,
		WorkerID:    strPtr("worker-1"),
	}

	resp := jobToResponse(job)

	if resp.ID != job.ID {
		t.Errorf("ID mismatch")
	}
	if resp.Type != "script_generation" {
		t.Errorf("Type = %s, want script_generation", resp.Type)
	}
	if resp.Status != "completed" {
		t.Errorf("Status = %s, want completed", resp.Status)
	}
	if resp.Priority != 5 {
		t.Errorf("Priority = %d, want 5", resp.Priority)
	}
	if resp.PerfTestID == nil {
		t.Error("PerfTestID should not be nil")
	}
	if resp.RetryCount != 1 {
		t.Errorf("RetryCount = %d, want 1", resp.RetryCount)
	}
	if resp.MaxRetries != 3 {
		t.Errorf("MaxRetries = %d, want 3", resp.MaxRetries)
	}
	if resp.StartedAt == nil {
		t.Error("StartedAt should not be nil")
	}
	if resp.CompletedAt == nil {
		t.Error("CompletedAt should not be nil")
	}
	if resp.WorkerID == nil || *resp.WorkerID != "worker-1" {
		t.Errorf("WorkerID = %v, want worker-1", resp.WorkerID)
	}
	if len(resp.Result) == 0 {
		t.Error("Result should not be empty")
	}
}

func TestJobToResponse_NilJob(t *testing.T) {
	resp := jobToResponse(nil)
	if resp != nil {
		t.Error("expected nil response for nil job")
	}
}

func TestJobToResponse_MinimalJob(t *testing.T) {
	job := &jobs.Job{
		ID:        uuid.New(),
		Type:      jobs.JobTypeExecution,
		Status:    jobs.StatusPending,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	resp := jobToResponse(job)

	if resp.Type != "execution" {
		t.Errorf("Type = %s, want execution", resp.Type)
	}
	if resp.Status != "pending" {
		t.Errorf("Status = %s, want pending", resp.Status)
	}
	if resp.StartedAt != nil {
		t.Error("StartedAt should be nil")
	}
	if resp.CompletedAt != nil {
		t.Error("CompletedAt should be nil")
	}
	if resp.PerfTestID != nil {
		t.Error("PerfTestID should be nil")
	}
}

func TestCreateJobRequest_Valid(t *testing.T) {
	req := CreateJobRequest{
		Type:     "script_generation",
		Priority: 10,
		Payload: map[string]interface{}{
			"description": "100个并发用户压测登录接口",
			"mode":        "regex",
		},
	}

	if req.Type != "script_generation" {
		t.Errorf("Type = %s, want script_generation", req.Type)
	}
	if req.Priority != 10 {
		t.Errorf("Priority = %d, want 10", req.Priority)
	}
	if req.Payload["mode"] != "regex" {
		t.Error("Payload mismatch")
	}
}

func TestStartPipelineRequest_Valid(t *testing.T) {
	req := StartPipelineRequest{
		Name:         "登录压测",
		Description:  "100并发持续30秒",
		Requirement:  "P95低于500ms",
		TargetURL:    "https://api.example.com/login",
		Mode:         "ai",
		OutputFormat: "full",
	}

	if req.Name != "登录压测" {
		t.Errorf("Name mismatch")
	}
	if req.Description != "100并发持续30秒" {
		t.Errorf("Description mismatch")
	}
	if req.Mode != "ai" {
		t.Errorf("Mode = %s, want ai", req.Mode)
	}
	if req.OutputFormat != "full" {
		t.Errorf("OutputFormat = %s, want full", req.OutputFormat)
	}
	if req.SkipAnalysis {
		t.Error("SkipAnalysis should default to false")
	}
}

func TestJobStatusResponse_Structure(t *testing.T) {
	parent := &JobResponse{
		ID:     uuid.New(),
		Type:   "script_generation",
		Status: "completed",
	}

	children := []*JobResponse{
		{ID: uuid.New(), Type: "execution", Status: "completed"},
		{ID: uuid.New(), Type: "analysis", Status: "running"},
	}

	resp := &JobStatusResponse{
		Job:      parent,
		Children: children,
	}

	if resp.Job == nil {
		t.Error("Job should not be nil")
	}
	if len(resp.Children) != 2 {
		t.Errorf("len(Children) = %d, want 2", len(resp.Children))
	}
}

func TestJobResponse_JSON(t *testing.T) {
	resp := &JobResponse{
		ID:         uuid.New(),
		Type:       "script_generation",
		Status:     "pending",
		Priority:   5,
		RetryCount: 0,
		MaxRetries: 3,
		CreatedAt:  "2024-01-01T00:00:00Z",
		UpdatedAt:  "2024-01-01T00:00:00Z",
	}

	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}

	var parsed JobResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("failed to unmarshal: %v", err)
	}

	if parsed.ID != resp.ID {
		t.Errorf("ID mismatch after JSON roundtrip")
	}
	if parsed.Type != resp.Type {
		t.Errorf("Type mismatch after JSON roundtrip")
	}
}

// Helper functions
func ptr(u uuid.UUID) *uuid.UUID {
	return &u
}

func strPtr(s string) *string {
	return &s
}
