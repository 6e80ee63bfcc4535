// Package perftest turns natural-language load-test requirements into
// runnable k6 scripts. Parameters are extracted with ordered regex patterns
// (an LLM fills gaps), a stage sequence is derived, and the script itself is
// produced by the LLM under a tightly constrained prompt.
package perftest

import (
	"context"

	"github.com/loadlens-hq/loadlens/internal/llm"
)

// Parameters holds load-test parameters pulled from a requirement
// description. Zero values mean "not found"; defaults are applied by the
// composer, never during extraction.
type Parameters struct {
	VUs              int    `json:"vus,omitempty"`
	Duration         string `json:"duration,omitempty"` // hold duration, e.g. "30s" or "5m"
	RampUpDuration   string `json:"ramp_up_duration,omitempty"`
	RampUpTarget     int    `json:"ramp_up_target,omitempty"` // intermediate ramp target when it differs from VUs
	RampDownDuration string `json:"ramp_down_duration,omitempty"`
	URL              string `json:"url,omitempty"`
}

// Stage is one segment of the load curve.
type Stage struct {
	Duration string `json:"duration"`
	Target   int    `json:"target"`
}

// Mode selects the script generation strategy
type Mode string

const (
	// ModeRegex extracts parameters deterministically and constrains the
	// LLM to a fixed stage sequence. Recommended default.
	ModeRegex Mode = "regex"
	// ModeAI hands the raw requirement to the LLM and asks for code only.
	ModeAI Mode = "ai"
)

// Result statuses
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// ScriptResult is the tagged outcome of script composition.
type ScriptResult struct {
	Status       string      `json:"status"`
	Script       string      `json:"script,omitempty"`
	ScriptLength int         `json:"script_length,omitempty"`
	Error        string      `json:"error,omitempty"`
	Description  string      `json:"test_description"`
	RawResponse  string      `json:"raw_response,omitempty"`
	Params       *Parameters `json:"params,omitempty"`
	Stages       []Stage     `json:"stages,omitempty"`
}

// Completer is the slice of the LLM surface this package needs.
type Completer interface {
	Complete(ctx context.Context, req *llm.Request) (*llm.Response, error)
}
