package db

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store provides database operations
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new store
func NewStore(db *DB) *Store {
	return &Store{pool: db.Pool()}
}

// Ping verifies database connectivity
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Project groups perf tests and provides context for analysis reports
type Project struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// PerfTest represents a performance test record. A record moves through
// the pipeline: script generated, then executed, then analyzed; each
// stage fills in its columns.
type PerfTest struct {
	ID             uuid.UUID        `json:"id"`
	ProjectID      *uuid.UUID       `json:"project_id,omitempty"`
	Name           string           `json:"name"`
	Description    string           `json:"description"`
	Requirement    *string          `json:"requirement,omitempty"`
	TargetURL      *string          `json:"target_url,omitempty"`
	Mode           string           `json:"mode"`
	Script         *string          `json:"script,omitempty"`
	Status         string           `json:"status"`
	Results        *json.RawMessage `json:"results,omitempty"`
	Metrics        *json.RawMessage `json:"metrics,omitempty"`
	RawOutput      *string          `json:"raw_output,omitempty"`
	Analysis       *json.RawMessage `json:"analysis,omitempty"`
	ReportMarkdown *string          `json:"report_markdown,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// CreateProject creates a new project
func (s *Store) CreateProject(ctx context.Context, project *Project) error {
	if project.ID == uuid.Nil {
		project.ID = uuid.New()
	}
	project.CreatedAt = time.Now()
	project.UpdatedAt = time.Now()

	_, err := s.pool.Exec(ctx, `
		INSERT INTO projects (id, name, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`, project.ID, project.Name, project.Description, project.CreatedAt, project.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create project: %w", err)
	}

	return nil
}

// GetProject gets a project by ID
func (s *Store) GetProject(ctx context.Context, id uuid.UUID) (*Project, error) {
	project := &Project{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, description, created_at, updated_at
		FROM projects WHERE id = $1
	`, id).Scan(&project.ID, &project.Name, &project.Description, &project.CreatedAt, &project.UpdatedAt)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	return project, nil
}

// ListProjects lists all projects
func (s *Store) ListProjects(ctx context.Context, limit, offset int) ([]Project, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, description, created_at, updated_at
		FROM projects
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	defer rows.Close()

	projects := make([]Project, 0)
	for rows.Next() {
		var p Project
		if err := rows.Scan(&p.ID, &p.Name, &p.Description, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan project: %w", err)
		}
		projects = append(projects, p)
	}

	return projects, nil
}

// CreatePerfTest creates a new perf-test record
func (s *Store) CreatePerfTest(ctx context.Context, test *PerfTest) error {
	if test.ID == uuid.Nil {
		test.ID = uuid.New()
	}
	if test.Status == "" {
		test.Status = "pending"
	}
	if test.Mode == "" {
		test.Mode = "regex"
	}
	test.CreatedAt = time.Now()
	test.UpdatedAt = time.Now()

	_, err := s.pool.Exec(ctx, `
		INSERT INTO performance_tests (id, project_id, name, description, requirement, target_url, mode, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, test.ID, test.ProjectID, test.Name, test.Description, test.Requirement, test.TargetURL,
		test.Mode, test.Status, test.CreatedAt, test.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create perf test: %w", err)
	}

	return nil
}

// GetPerfTest gets a perf-test record by ID
func (s *Store) GetPerfTest(ctx context.Context, id uuid.UUID) (*PerfTest, error) {
	test := &PerfTest{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, project_id, name, description, requirement, target_url, mode, script, status,
		       results, metrics, raw_output, analysis, report_markdown, created_at, updated_at
		FROM performance_tests WHERE id = $1
	`, id).Scan(&test.ID, &test.ProjectID, &test.Name, &test.Description, &test.Requirement,
		&test.TargetURL, &test.Mode, &test.Script, &test.Status, &test.Results, &test.Metrics,
		&test.RawOutput, &test.Analysis, &test.ReportMarkdown, &test.CreatedAt, &test.UpdatedAt)

	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get perf test: %w", err)
	}

	return test, nil
}

// ListPerfTests lists perf-test records, newest first
func (s *Store) ListPerfTests(ctx context.Context, limit, offset int) ([]PerfTest, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, project_id, name, description, requirement, target_url, mode, script, status,
		       results, metrics, raw_output, analysis, report_markdown, created_at, updated_at
		FROM performance_tests
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list perf tests: %w", err)
	}
	defer rows.Close()

	return scanPerfTests(rows)
}

// ListPerfTestsByProject lists perf-test records for a project
func (s *Store) ListPerfTestsByProject(ctx context.Context, projectID uuid.UUID, limit, offset int) ([]PerfTest, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, project_id, name, description, requirement, target_url, mode, script, status,
		       results, metrics, raw_output, analysis, report_markdown, created_at, updated_at
		FROM performance_tests
		WHERE project_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, projectID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list perf tests: %w", err)
	}
	defer rows.Close()

	return scanPerfTests(rows)
}

func scanPerfTests(rows pgx.Rows) ([]PerfTest, error) {
	tests := make([]PerfTest, 0)
	for rows.Next() {
		var test PerfTest
		if err := rows.Scan(&test.ID, &test.ProjectID, &test.Name, &test.Description, &test.Requirement,
			&test.TargetURL, &test.Mode, &test.Script, &test.Status, &test.Results, &test.Metrics,
			&test.RawOutput, &test.Analysis, &test.ReportMarkdown, &test.CreatedAt, &test.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan perf test: %w", err)
		}
		tests = append(tests, test)
	}

	return tests, rows.Err()
}

// UpdatePerfTestStatus updates a record's pipeline status
func (s *Store) UpdatePerfTestStatus(ctx context.Context, id uuid.UUID, status string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE performance_tests SET status = $2, updated_at = $3
		WHERE id = $1
	`, id, status, time.Now())
	return err
}

// UpdatePerfTestScript stores the generated script on a record
func (s *Store) UpdatePerfTestScript(ctx context.Context, id uuid.UUID, script, status string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE performance_tests
		SET script = $2, status = $3, updated_at = $4
		WHERE id = $1
	`, id, script, status, time.Now())

	if err != nil {
		return fmt.Errorf("failed to update perf test script: %w", err)
	}

	return nil
}

// UpdatePerfTestResults stores execution results on a record
func (s *Store) UpdatePerfTestResults(ctx context.Context, id uuid.UUID, status string, results, metrics json.RawMessage, rawOutput string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE performance_tests
		SET status = $2, results = $3, metrics = $4, raw_output = $5, updated_at = $6
		WHERE id = $1
	`, id, status, results, metrics, rawOutput, time.Now())

	if err != nil {
		return fmt.Errorf("failed to update perf test results: %w", err)
	}

	return nil
}

// UpdatePerfTestAnalysis stores the analysis report on a record
func (s *Store) UpdatePerfTestAnalysis(ctx context.Context, id uuid.UUID, analysis json.RawMessage, markdown string) error {
	_, err := s.pool.Exec(ctx, `
		UPDATE performance_tests
		SET analysis = $2, report_markdown = $3, updated_at = $4
		WHERE id = $1
	`, id, analysis, markdown, time.Now())

	if err != nil {
		return fmt.Errorf("failed to update perf test analysis: %w", err)
	}

	return nil
}

// DeletePerfTest deletes a perf-test record and its jobs (cascading)
func (s *Store) DeletePerfTest(ctx context.Context, id uuid.UUID) error {
	// The database schema has ON DELETE CASCADE, so related jobs go too
	result, err := s.pool.Exec(ctx, `DELETE FROM performance_tests WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete perf test: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("perf test not found")
	}

	return nil
}

// GetPerfTestSummary returns aggregated pipeline stats across all records
func (s *Store) GetPerfTestSummary(ctx context.Context) (map[string]interface{}, error) {
	var total, pending, running, completed, failed int

	err := s.pool.QueryRow(ctx, `
		SELECT
			COUNT(*) as total,
			COUNT(*) FILTER (WHERE status = 'pending') as pending,
			COUNT(*) FILTER (WHERE status IN ('generating', 'executing', 'analyzing')) as running,
			COUNT(*) FILTER (WHERE status = 'completed') as completed,
			COUNT(*) FILTER (WHERE status IN ('failed', 'timeout', 'error')) as failed
		FROM performance_tests
	`).Scan(&total, &pending, &running, &completed, &failed)

	if err != nil {
		return nil, fmt.Errorf("failed to get perf test summary: %w", err)
	}

	return map[string]interface{}{
		"total":     total,
		"pending":   pending,
		"running":   running,
		"completed": completed,
		"failed":    failed,
	}, nil
}
