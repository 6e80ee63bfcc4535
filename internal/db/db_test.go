package db

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestDB_Fields(t *testing.T) {
	// DB struct should have pool field
	db := &DB{pool: nil}
	if db.pool != nil {
		t.Error("pool should be nil")
	}
}

func TestDB_Pool_Nil(t *testing.T) {
	db := &DB{pool: nil}

	pool := db.Pool()
	if pool != nil {
		t.Error("Pool() should return nil when pool is nil")
	}
}

func TestProject_Fields(t *testing.T) {
	id := uuid.New()
	desc := "电商后端服务"

	project := Project{
		ID:          id,
		Name:        "商城",
		Description: &desc,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}

	if project.ID != id {
		t.Errorf("ID mismatch")
	}
	if project.Name != "商城" {
		t.Errorf("Name = %s, want 商城", project.Name)
	}
	if *project.Description != desc {
		t.Errorf("Description = %s, want %s", *project.Description, desc)
	}
}

func TestProject_JSON(t *testing.T) {
	desc := "test project"
	project := Project{
		ID:          uuid.New(),
		Name:        "loadtest",
		Description: &desc,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}

	data, err := json.Marshal(project)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}

	var unmarshaled Project
	if err := json.Unmarshal(data, &unmarshaled); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}

	if unmarshaled.Name != project.Name {
		t.Errorf("Name = %s, want %s", unmarshaled.Name, project.Name)
	}
}

func TestPerfTest_Fields(t *testing.T) {
	id := uuid.New()
	projectID := uuid.New()
	requirement := "验证登录接口在100并发下P95低于500ms"
	targetURL := "https://api.example.com/login"
	script := "import http from 'k6/http';"
	results := json.RawMessage(`{"exit_code": 0}`)
	metrics := json.RawMessage(`{"http_reqs": {"count": 1054}}`)
	rawOutput := "http_reqs..: 1054"
	analysis := json.RawMessage(`{"performance_rating": "优秀"}`)
	markdown := "# 📊 性能测试分析报告"

	test := PerfTest{
		ID:             id,
		ProjectID:      &projectID,
		Name:           "登录压测",
		Description:    "100并发持续30秒",
		Requirement:    &requirement,
		TargetURL:      &targetURL,
		Mode:           "regex",
		Script:         &script,
		Status:         "completed",
		Results:        &results,
		Metrics:        &metrics,
		RawOutput:      &rawOutput,
		Analysis:       &analysis,
		ReportMarkdown: &markdown,
		CreatedAt:      time.Now(),
		UpdatedAt:      time.Now(),
	}

	if test.ID != id {
		t.Error("ID mismatch")
	}
	if *test.ProjectID != projectID {
		t.Error("ProjectID mismatch")
	}
	if test.Name != "登录压测" {
		t.Errorf("Name = %s, want 登录压测", test.Name)
	}
	if test.Mode != "regex" {
		t.Errorf("Mode = %s, want regex", test.Mode)
	}
	if *test.Script != script {
		t.Error("Script mismatch")
	}
	if test.Status != "completed" {
		t.Errorf("Status = %s, want completed", test.Status)
	}
	if test.Results == nil || test.Metrics == nil || test.Analysis == nil {
		t.Error("Results, Metrics, and Analysis should not be nil")
	}
	if *test.ReportMarkdown != markdown {
		t.Error("ReportMarkdown mismatch")
	}
}

func TestPerfTest_JSON(t *testing.T) {
	test := PerfTest{
		ID:          uuid.New(),
		Name:        "下单压测",
		Description: "50个用户压测下单接口",
		Mode:        "ai",
		Status:      "pending",
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}

	data, err := json.Marshal(test)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}

	var unmarshaled PerfTest
	if err := json.Unmarshal(data, &unmarshaled); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}

	if unmarshaled.Name != test.Name {
		t.Errorf("Name = %s, want %s", unmarshaled.Name, test.Name)
	}
	if unmarshaled.Mode != test.Mode {
		t.Errorf("Mode = %s, want %s", unmarshaled.Mode, test.Mode)
	}
}

func TestStore_Fields(t *testing.T) {
	// Store with nil pool
	store := &Store{pool: nil}
	if store.pool != nil {
		t.Error("pool should be nil")
	}
}

func TestNewStore_NilDB(t *testing.T) {
	// This would panic if db is nil
	// Just test that the struct exists
	db := &DB{pool: nil}
	store := NewStore(db)

	if store == nil {
		t.Error("NewStore should not return nil")
	}
}

func TestPerfTest_Defaults(t *testing.T) {
	test := PerfTest{}

	if test.ID != uuid.Nil {
		t.Error("Default ID should be nil UUID")
	}
	if test.ProjectID != nil {
		t.Error("Default ProjectID should be nil")
	}
	if test.Script != nil {
		t.Error("Default Script should be nil")
	}
	if test.Results != nil {
		t.Error("Default Results should be nil")
	}
	if test.Metrics != nil {
		t.Error("Default Metrics should be nil")
	}
	if test.Analysis != nil {
		t.Error("Default Analysis should be nil")
	}
	if test.ReportMarkdown != nil {
		t.Error("Default ReportMarkdown should be nil")
	}
}

func TestProject_Defaults(t *testing.T) {
	project := Project{}

	if project.ID != uuid.Nil {
		t.Error("Default ID should be nil UUID")
	}
	if project.Name != "" {
		t.Error("Default Name should be empty")
	}
	if project.Description != nil {
		t.Error("Default Description should be nil")
	}
}
