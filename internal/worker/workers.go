package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/loadlens-hq/loadlens/internal/analysis"
	"github.com/loadlens-hq/loadlens/internal/config"
	"github.com/loadlens-hq/loadlens/internal/db"
	"github.com/loadlens-hq/loadlens/internal/jobs"
	"github.com/loadlens-hq/loadlens/internal/k6"
	"github.com/loadlens-hq/loadlens/internal/perftest"
)

// GenerationWorker turns requirement descriptions into k6 scripts
type GenerationWorker struct {
	*BaseWorker
	store    *db.Store
	composer *perftest.Composer
}

func NewGenerationWorker(base *BaseWorker, store *db.Store, client perftest.Completer) *GenerationWorker {
	w := &GenerationWorker{
		BaseWorker: base,
		store:      store,
		composer:   perftest.NewComposer(client),
	}
	base.handler = w.handleJob
	return w
}

func (w *GenerationWorker) Name() string { return "generation" }

func (w *GenerationWorker) handleJob(ctx context.Context, job *jobs.Job) error {
	var payload jobs.GenerationPayload
	if err := job.GetPayload(&payload); err != nil {
		return fmt.Errorf("failed to parse payload: %w", err)
	}

	log.Info().
		Str("perf_test_id", payload.PerfTestID.String()).
		Str("mode", payload.Mode).
		Msg("generating script")

	w.updateStatus(ctx, payload.PerfTestID, "generating")

	mode := perftest.Mode(payload.Mode)
	if mode == "" {
		mode = perftest.ModeRegex
	}

	result := w.composer.Compose(ctx, payload.Description, payload.TargetURL, nil, mode)
	if result.Status != perftest.StatusSuccess {
		w.updateStatus(ctx, payload.PerfTestID, "failed")
		return fmt.Errorf("script generation failed: %s", result.Error)
	}

	if w.store != nil {
		if err := w.store.UpdatePerfTestScript(ctx, payload.PerfTestID, result.Script, "generated"); err != nil {
			log.Warn().Err(err).Msg("failed to store generated script")
		}
	}

	jobResult := jobs.GenerationResult{
		PerfTestID:   payload.PerfTestID,
		Status:       result.Status,
		Mode:         string(mode),
		ScriptLength: result.ScriptLength,
	}
	if result.Params != nil {
		jobResult.VUs = result.Params.VUs
		jobResult.Duration = result.Params.Duration
		jobResult.TargetURL = result.Params.URL
	}

	if err := w.Repository().Complete(ctx, job.ID, jobResult); err != nil {
		return fmt.Errorf("failed to complete job: %w", err)
	}

	// Chain to execution when requested
	if payload.RunExecution && w.Pipeline() != nil {
		_, err := w.Pipeline().CreateExecutionJob(ctx, job.ID, payload.PerfTestID,
			result.Script, payload.OutputFormat, payload.RunAnalysis)
		if err != nil {
			log.Warn().Err(err).Msg("failed to create execution job")
		}
	}

	return nil
}

func (w *GenerationWorker) updateStatus(ctx context.Context, id uuid.UUID, status string) {
	if w.store != nil {
		if err := w.store.UpdatePerfTestStatus(ctx, id, status); err != nil {
			log.Warn().Err(err).Str("perf_test_id", id.String()).Msg("failed to update status")
		}
	}
}

// ExecutionWorker runs generated scripts under the k6 binary
type ExecutionWorker struct {
	*BaseWorker
	store    *db.Store
	executor *k6.Executor
}

func NewExecutionWorker(base *BaseWorker, store *db.Store, cfg *config.Config) *ExecutionWorker {
	var k6cfg config.K6Config
	if cfg != nil {
		k6cfg = cfg.K6
	}
	w := &ExecutionWorker{
		BaseWorker: base,
		store:      store,
		executor:   k6.NewExecutor(k6cfg),
	}
	base.handler = w.handleJob
	return w
}

func (w *ExecutionWorker) Name() string { return "execution" }

func (w *ExecutionWorker) handleJob(ctx context.Context, job *jobs.Job) error {
	var payload jobs.ExecutionPayload
	if err := job.GetPayload(&payload); err != nil {
		return fmt.Errorf("failed to parse payload: %w", err)
	}

	script := payload.Script
	if script == "" {
		if w.store == nil {
			return fmt.Errorf("no script in payload and no store to load from")
		}
		test, err := w.store.GetPerfTest(ctx, payload.PerfTestID)
		if err != nil {
			return fmt.Errorf("failed to load perf test: %w", err)
		}
		if test == nil || test.Script == nil || *test.Script == "" {
			return fmt.Errorf("perf test %s has no script", payload.PerfTestID)
		}
		script = *test.Script
	}

	log.Info().
		Str("perf_test_id", payload.PerfTestID.String()).
		Int("script_length", len(script)).
		Msg("executing k6 script")

	w.updateStatus(ctx, payload.PerfTestID, "executing")

	format := k6.OutputFormat(payload.OutputFormat)
	if format == "" {
		format = k6.FormatSummary
	}

	res := w.executor.Execute(ctx, script, format, payload.ExtraArgs)

	w.storeResults(ctx, payload.PerfTestID, res)

	jobResult := jobs.ExecutionResult{
		PerfTestID:       payload.PerfTestID,
		Status:           res.Status,
		ExitCode:         res.ExitCode,
		ThresholdsFailed: res.ThresholdsFailed,
		MetricCount:      len(res.Metrics),
		DurationSeconds:  res.DurationSeconds,
		DetailedJSONPath: res.DetailedJSONPath,
	}

	if res.Status != k6.StatusCompleted {
		// The result is already persisted on the perf-test record; let the
		// base worker mark the job failed so retry accounting stays in one place
		return fmt.Errorf("k6 run %s: %s", res.Status, res.Error)
	}

	if err := w.Repository().Complete(ctx, job.ID, jobResult); err != nil {
		return fmt.Errorf("failed to complete job: %w", err)
	}

	// Chain to analysis when requested
	if payload.RunAnalysis && w.Pipeline() != nil {
		analysisPayload := jobs.AnalysisPayload{PerfTestID: payload.PerfTestID}
		if _, err := w.Pipeline().CreateAnalysisJob(ctx, job.ID, analysisPayload); err != nil {
			log.Warn().Err(err).Msg("failed to create analysis job")
		}
	}

	return nil
}

// storeResults persists execution output on the perf-test record. The raw
// transcript goes in its own column; the results blob drops it to stay small.
func (w *ExecutionWorker) storeResults(ctx context.Context, id uuid.UUID, res *k6.ExecutionResult) {
	if w.store == nil {
		return
	}

	trimmed := *res
	trimmed.Stdout = ""
	trimmed.Stderr = ""
	trimmed.Summary = nil

	resultsJSON, err := json.Marshal(&trimmed)
	if err != nil {
		log.Warn().Err(err).Msg("failed to marshal execution results")
		return
	}
	metricsJSON, err := json.Marshal(res.Metrics)
	if err != nil {
		log.Warn().Err(err).Msg("failed to marshal metrics")
		metricsJSON = []byte(`{}`)
	}

	status := res.Status
	if status == k6.StatusCompleted {
		status = "executed"
	}

	if err := w.store.UpdatePerfTestResults(ctx, id, status, resultsJSON, metricsJSON, res.Stdout); err != nil {
		log.Warn().Err(err).Str("perf_test_id", id.String()).Msg("failed to store execution results")
	}
}

func (w *ExecutionWorker) updateStatus(ctx context.Context, id uuid.UUID, status string) {
	if w.store != nil {
		if err := w.store.UpdatePerfTestStatus(ctx, id, status); err != nil {
			log.Warn().Err(err).Str("perf_test_id", id.String()).Msg("failed to update status")
		}
	}
}

// AnalysisWorker turns execution metrics into a bilingual markdown report
type AnalysisWorker struct {
	*BaseWorker
	store       *db.Store
	synthesizer *analysis.Synthesizer
}

func NewAnalysisWorker(base *BaseWorker, store *db.Store, client analysis.Completer) *AnalysisWorker {
	w := &AnalysisWorker{
		BaseWorker:  base,
		store:       store,
		synthesizer: analysis.NewSynthesizer(client),
	}
	base.handler = w.handleJob
	return w
}

func (w *AnalysisWorker) Name() string { return "analysis" }

func (w *AnalysisWorker) handleJob(ctx context.Context, job *jobs.Job) error {
	var payload jobs.AnalysisPayload
	if err := job.GetPayload(&payload); err != nil {
		return fmt.Errorf("failed to parse payload: %w", err)
	}

	if w.store == nil {
		return fmt.Errorf("analysis requires a database store")
	}

	test, err := w.store.GetPerfTest(ctx, payload.PerfTestID)
	if err != nil {
		return fmt.Errorf("failed to load perf test: %w", err)
	}
	if test == nil {
		return fmt.Errorf("perf test %s not found", payload.PerfTestID)
	}

	meta := w.buildMeta(ctx, payload, test)

	var metrics map[string]k6.MetricAggregate
	if test.Metrics != nil {
		if err := json.Unmarshal(*test.Metrics, &metrics); err != nil {
			log.Warn().Err(err).Msg("failed to parse stored metrics")
		}
	}
	var stdout string
	if test.RawOutput != nil {
		stdout = *test.RawOutput
	}

	log.Info().
		Str("perf_test_id", payload.PerfTestID.String()).
		Int("metric_count", len(metrics)).
		Msg("analyzing results")

	if err := w.store.UpdatePerfTestStatus(ctx, payload.PerfTestID, "analyzing"); err != nil {
		log.Warn().Err(err).Msg("failed to update status")
	}

	result := w.synthesizer.Analyze(ctx, meta, metrics, stdout)
	if result.Status != analysis.StatusSuccess {
		// Service unreachable is the only analysis error; retries may recover
		if err := w.store.UpdatePerfTestStatus(ctx, payload.PerfTestID, "analysis_failed"); err != nil {
			log.Warn().Err(err).Msg("failed to update status")
		}
		return fmt.Errorf("analysis failed: %s", result.Error)
	}

	fieldsJSON, err := json.Marshal(result.Report.Fields)
	if err != nil {
		fieldsJSON = []byte(`{}`)
	}
	if err := w.store.UpdatePerfTestAnalysis(ctx, payload.PerfTestID, fieldsJSON, result.Report.Markdown); err != nil {
		log.Warn().Err(err).Msg("failed to store analysis")
	}
	if err := w.store.UpdatePerfTestStatus(ctx, payload.PerfTestID, "completed"); err != nil {
		log.Warn().Err(err).Msg("failed to update status")
	}

	jobResult := jobs.AnalysisResult{
		PerfTestID:    payload.PerfTestID,
		Status:        result.Status,
		SectionCount:  len(result.Report.Fields),
		MarkdownBytes: len(result.Report.Markdown),
	}

	if err := w.Repository().Complete(ctx, job.ID, jobResult); err != nil {
		return fmt.Errorf("failed to complete job: %w", err)
	}

	return nil
}

// buildMeta fills report metadata from the payload, falling back to the
// perf-test record and its project.
func (w *AnalysisWorker) buildMeta(ctx context.Context, payload jobs.AnalysisPayload, test *db.PerfTest) analysis.TestMeta {
	meta := analysis.TestMeta{
		TestName:           payload.TestName,
		TestDescription:    payload.TestDescription,
		TestRequirement:    payload.TestRequirement,
		ProjectName:        payload.ProjectName,
		ProjectDescription: payload.ProjectDescription,
	}

	if meta.TestName == "" {
		meta.TestName = test.Name
	}
	if meta.TestDescription == "" {
		meta.TestDescription = test.Description
	}
	if meta.TestRequirement == "" && test.Requirement != nil {
		meta.TestRequirement = *test.Requirement
	}

	if meta.ProjectName == "" && test.ProjectID != nil {
		project, err := w.store.GetProject(ctx, *test.ProjectID)
		if err != nil {
			log.Warn().Err(err).Msg("failed to load project")
		} else if project != nil {
			meta.ProjectName = project.Name
			if project.Description != nil {
				meta.ProjectDescription = *project.Description
			}
		}
	}

	return meta
}
