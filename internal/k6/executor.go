package k6

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/loadlens-hq/loadlens/internal/config"
	"github.com/loadlens-hq/loadlens/internal/perftest"
)

// OutputFormat selects how much result data a run produces.
type OutputFormat string

const (
	// FormatSummary exports only the aggregated summary document. Bounded
	// size, the recommended default.
	FormatSummary OutputFormat = "summary"
	// FormatFull additionally streams the per-request time series to a
	// JSON file. Unbounded size, only on explicit request.
	FormatFull OutputFormat = "full"
)

// Execution statuses.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusTimeout   = "timeout"
	StatusError     = "error"
)

// exitThresholdsFailed is the k6 exit code for a run that finished but did
// not meet its thresholds. The test itself succeeded.
const exitThresholdsFailed = 99

// ExecutionResult is the immutable record of one k6 run.
type ExecutionResult struct {
	Status           string                     `json:"status"`
	ExitCode         int                        `json:"exit_code"`
	Stdout           string                     `json:"stdout,omitempty"`
	Stderr           string                     `json:"stderr,omitempty"`
	Error            string                     `json:"error,omitempty"`
	ThresholdsFailed bool                       `json:"thresholds_failed,omitempty"`
	Summary          json.RawMessage            `json:"summary,omitempty"`
	SummaryError     string                     `json:"summary_error,omitempty"`
	ConsoleSummary   map[string]string          `json:"console_summary,omitempty"`
	Metrics          map[string]MetricAggregate `json:"metrics,omitempty"`
	DetailedJSONPath string                     `json:"detailed_json_path,omitempty"`
	DurationSeconds  float64                    `json:"duration_seconds"`
	ExecutedAt       time.Time                  `json:"executed_at"`
}

// Executor runs k6 scripts as subprocesses.
type Executor struct {
	binary    string
	timeout   time.Duration
	reportDir string
}

// NewExecutor builds an executor from config, resolving the binary path.
// The version probe is advisory: a broken binary is logged here and
// surfaces again as a spawn error on the first run.
func NewExecutor(cfg config.K6Config) *Executor {
	binary := FindBinary(cfg.BinaryPath)
	if err := Probe(context.Background(), binary); err != nil {
		log.Warn().Err(err).Str("binary", binary).Msg("k6 version check failed")
	}
	return &Executor{
		binary:    binary,
		timeout:   time.Duration(cfg.TimeoutSeconds) * time.Second,
		reportDir: cfg.ReportDir,
	}
}

// Execute runs the script and returns a tagged result. Expected failures
// (spawn errors, timeouts, non-zero exits) come back in the result status,
// never as a panic or an error return.
func (e *Executor) Execute(ctx context.Context, script string, format OutputFormat, extraArgs []string) *ExecutionResult {
	// Defensive second pass even when the composer already sanitized.
	script = perftest.SanitizeScript(script)

	scriptFile, err := os.CreateTemp("", "loadlens-*.js")
	if err != nil {
		return errorResult(fmt.Errorf("create script file: %w", err))
	}
	scriptPath := scriptFile.Name()
	defer func() {
		if err := os.Remove(scriptPath); err != nil {
			log.Warn().Err(err).Str("path", scriptPath).Msg("remove temp script failed")
		}
	}()

	if _, err := scriptFile.WriteString(script); err != nil {
		scriptFile.Close()
		return errorResult(fmt.Errorf("write script file: %w", err))
	}
	if err := scriptFile.Close(); err != nil {
		return errorResult(fmt.Errorf("close script file: %w", err))
	}

	tempDir, err := os.MkdirTemp("", "loadlens-k6-")
	if err != nil {
		return errorResult(fmt.Errorf("create output dir: %w", err))
	}
	defer func() {
		if err := os.RemoveAll(tempDir); err != nil {
			log.Warn().Err(err).Str("dir", tempDir).Msg("remove temp dir failed")
		}
	}()

	summaryPath := filepath.Join(tempDir, "summary.json")
	jsonOutputPath := filepath.Join(tempDir, "output.json")

	args := []string{"run", scriptPath, "--summary-export", summaryPath}
	if format == FormatFull {
		args = append(args, "--out", "json="+jsonOutputPath)
	}
	args = append(args, extraArgs...)

	runCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, e.binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	log.Info().
		Str("binary", e.binary).
		Str("format", string(format)).
		Int("script_len", len(script)).
		Msg("starting k6 run")

	start := time.Now()
	runErr := cmd.Run()
	elapsed := time.Since(start)

	result := &ExecutionResult{
		Stdout:          stdout.String(),
		Stderr:          stderr.String(),
		DurationSeconds: elapsed.Seconds(),
		ExecutedAt:      time.Now().UTC(),
	}

	if runCtx.Err() == context.DeadlineExceeded {
		log.Error().Dur("elapsed", elapsed).Msg("k6 run timed out")
		result.Status = StatusTimeout
		result.Error = fmt.Sprintf("k6 run exceeded timeout of %s", e.timeout)
		return result
	}

	var exitErr *exec.ExitError
	switch {
	case runErr == nil:
		result.ExitCode = 0
	case errors.As(runErr, &exitErr):
		result.ExitCode = exitErr.ExitCode()
	default:
		// Could not even launch the subprocess.
		log.Error().Err(runErr).Msg("k6 spawn failed")
		result.Status = StatusError
		result.Error = runErr.Error()
		return result
	}

	switch result.ExitCode {
	case 0:
		result.Status = StatusCompleted
		log.Info().Dur("elapsed", elapsed).Msg("k6 run completed")
	case exitThresholdsFailed:
		// The run finished, only the performance thresholds were missed.
		result.Status = StatusCompleted
		result.ThresholdsFailed = true
		log.Warn().Msg("k6 run completed with failed thresholds")
	default:
		result.Status = StatusFailed
		if s := result.Stderr; s != "" {
			if len(s) > 1000 {
				s = s[:1000]
			}
			result.Error = s
		}
		log.Error().Int("exit_code", result.ExitCode).Msg("k6 run failed")
	}

	e.attachSummary(result, summaryPath)

	if format == FormatFull {
		result.DetailedJSONPath = e.preserveDetailedOutput(jsonOutputPath)
	}

	return result
}

// attachSummary reads the summary export and normalizes its metrics.
// Metrics are best-effort: a missing or broken summary is recorded on the
// result without changing the run status, and whatever metric lines the
// console table printed are salvaged from stdout instead.
func (e *Executor) attachSummary(result *ExecutionResult, summaryPath string) {
	data, err := os.ReadFile(summaryPath)
	if err != nil {
		log.Warn().Err(err).Str("path", summaryPath).Msg("summary export not readable")
		result.SummaryError = "summary export not found"
		e.attachConsoleSummary(result)
		return
	}

	var summary map[string]any
	if err := json.Unmarshal(data, &summary); err != nil {
		log.Warn().Err(err).Msg("summary export not valid JSON")
		result.SummaryError = fmt.Sprintf("parse summary: %v", err)
		e.attachConsoleSummary(result)
		return
	}

	result.Summary = json.RawMessage(data)
	result.Metrics = Normalize(summary)
	log.Info().Int("metrics", len(result.Metrics)).Msg("summary metrics normalized")
}

// attachConsoleSummary recovers metric lines from stdout when the summary
// export could not be used.
func (e *Executor) attachConsoleSummary(result *ExecutionResult) {
	if cs := ParseConsoleSummary(result.Stdout); len(cs) > 0 {
		result.ConsoleSummary = cs
		log.Info().Int("entries", len(cs)).Msg("recovered metrics from console output")
	}
}

// preserveDetailedOutput moves the full time-series file out of the temp
// dir before cleanup so the caller can still reach it. Returns the final
// path, or empty when the file is absent or cannot be kept.
func (e *Executor) preserveDetailedOutput(jsonOutputPath string) string {
	if _, err := os.Stat(jsonOutputPath); err != nil {
		return ""
	}

	dir := e.reportDir
	if dir == "" {
		dir = os.TempDir()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Warn().Err(err).Str("dir", dir).Msg("cannot create report dir")
		return ""
	}

	dest := filepath.Join(dir, fmt.Sprintf("k6-output-%s.json", uuid.New().String()))
	if err := os.Rename(jsonOutputPath, dest); err != nil {
		log.Warn().Err(err).Msg("cannot preserve detailed output")
		return ""
	}
	return dest
}

func errorResult(err error) *ExecutionResult {
	log.Error().Err(err).Msg("k6 execution setup failed")
	return &ExecutionResult{
		Status:     StatusError,
		Error:      err.Error(),
		ExecutedAt: time.Now().UTC(),
	}
}
