package analysis

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/loadlens-hq/loadlens/internal/k6"
	"github.com/loadlens-hq/loadlens/internal/llm"
)

// Synthesizer analyzes execution results through the LLM and renders the
// structured report.
type Synthesizer struct {
	llm Completer
}

// NewSynthesizer creates a synthesizer backed by the given LLM surface.
func NewSynthesizer(client Completer) *Synthesizer {
	return &Synthesizer{llm: client}
}

// Analyze builds the prompt, queries the model and recovers a report from
// whatever it answers. Only an unreachable model yields a bare error
// result; a garbled response still produces a best-effort report carrying
// at least the raw metrics.
func (s *Synthesizer) Analyze(ctx context.Context, meta TestMeta, metrics map[string]k6.MetricAggregate, stdout string) *Result {
	prompt := BuildPrompt(meta, metrics, stdout)
	log.Info().Str("test", meta.TestName).Int("prompt_len", len(prompt)).Msg("analyzing performance results")

	resp, err := s.llm.Complete(ctx, &llm.Request{
		Tier:        llm.Tier3,
		Messages:    []llm.Message{{Role: "user", Content: prompt}},
		Temperature: 0.2,
	})
	if err != nil {
		log.Error().Err(err).Msg("analysis service unreachable")
		return &Result{
			Status:      StatusError,
			Error:       "analysis service unavailable: " + err.Error(),
			GeneratedAt: time.Now().UTC(),
		}
	}

	fields := ParseResponse(resp.Content)
	if fields == nil {
		log.Warn().Msg("no structured analysis recovered, falling back to sections")
		fields = ExtractSections(resp.Content)
	} else {
		MergeNestedAnalysis(fields)
		fields = NormalizeKeys(fields)
	}
	StripEchoes(fields)

	report := &Report{
		Fields:      fields,
		KeyMetrics:  metrics,
		Markdown:    RenderMarkdown(meta, fields, metrics, resp.Content),
		FormattedAt: time.Now().UTC(),
	}

	log.Info().Int("fields", len(fields)).Int("markdown_len", len(report.Markdown)).Msg("analysis report synthesized")
	return &Result{
		Status:      StatusSuccess,
		Report:      report,
		GeneratedAt: time.Now().UTC(),
	}
}
