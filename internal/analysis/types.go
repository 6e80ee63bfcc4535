// Package analysis turns raw k6 execution output into a structured,
// human-readable performance report with help from an LLM.
package analysis

import (
	"context"
	"time"

	"github.com/loadlens-hq/loadlens/internal/k6"
	"github.com/loadlens-hq/loadlens/internal/llm"
)

// Completer is the LLM surface the synthesizer needs.
type Completer interface {
	Complete(ctx context.Context, req *llm.Request) (*llm.Response, error)
}

// TestMeta carries the identifying context embedded in the analysis prompt
// and the rendered report.
type TestMeta struct {
	TestName           string `json:"test_name"`
	TestDescription    string `json:"test_description"`
	TestRequirement    string `json:"test_requirement,omitempty"`
	ProjectName        string `json:"project_name,omitempty"`
	ProjectDescription string `json:"project_description,omitempty"`
}

// Report is the synthesized analysis: the structured fields recovered from
// the model response (canonical snake_case keys) plus the deterministic
// markdown rendering.
type Report struct {
	Fields      map[string]any                `json:"fields"`
	KeyMetrics  map[string]k6.MetricAggregate `json:"key_metrics,omitempty"`
	Markdown    string                        `json:"markdown"`
	FormattedAt time.Time                     `json:"formatted_at"`
}

// Result statuses.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Result is the tagged outcome of one analysis run.
type Result struct {
	Status      string    `json:"status"`
	Report      *Report   `json:"analysis,omitempty"`
	Error       string    `json:"error,omitempty"`
	GeneratedAt time.Time `json:"generated_at"`
}
