package perftest

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/loadlens-hq/loadlens/internal/config"
	"github.com/loadlens-hq/loadlens/internal/llm"
)

// Composition defaults, applied only here, never during extraction.
const (
	DefaultVUs      = 10
	DefaultDuration = "30s"
)

// Composer generates k6 scripts from requirement descriptions.
type Composer struct {
	llm       Completer
	extractor *Extractor
}

// NewComposer creates a composer backed by the given LLM surface.
func NewComposer(client Completer) *Composer {
	return &Composer{
		llm:       client,
		extractor: NewExtractor(client),
	}
}

// Compose generates a k6 script for the description. targetURL and loadCfg
// supply fallbacks for parameters the description does not pin down.
// Expected failures come back as a tagged error result, never as a panic.
func (c *Composer) Compose(ctx context.Context, description, targetURL string, loadCfg *config.LoadConfig, mode Mode) *ScriptResult {
	log.Info().Str("mode", string(mode)).Str("description", description).Msg("composing k6 script")

	if mode == ModeAI {
		return c.composeDirect(ctx, description)
	}
	return c.composeFromParams(ctx, description, targetURL, loadCfg)
}

// composeFromParams is regex mode: deterministic parameter resolution, a
// fixed stage sequence, and a low-temperature constrained prompt.
func (c *Composer) composeFromParams(ctx context.Context, description, targetURL string, loadCfg *config.LoadConfig) *ScriptResult {
	description = CleanDescription(description)
	extracted := c.extractor.Extract(ctx, description)
	log.Info().Interface("params", extracted).Msg("extracted load parameters")

	// Resolution order: description, request config, package default.
	finalVUs := extracted.VUs
	if finalVUs == 0 && loadCfg != nil {
		finalVUs = loadCfg.VUs
	}
	if finalVUs == 0 {
		log.Warn().Int("default", DefaultVUs).Msg("concurrency not found, using default")
		finalVUs = DefaultVUs
	}

	finalDuration := extracted.Duration
	if finalDuration == "" && loadCfg != nil {
		finalDuration = loadCfg.Duration
	}
	if finalDuration == "" {
		log.Warn().Str("default", DefaultDuration).Msg("hold duration not found, using default")
		finalDuration = DefaultDuration
	}

	finalURL := extracted.URL
	if finalURL == "" {
		finalURL = targetURL
	}

	rampUp := DeriveRampUp(description, extracted, finalDuration)
	rampDown := extracted.RampDownDuration
	if rampDown == "" {
		rampDown = "1s"
	}

	stages := BuildStages(finalVUs, finalDuration, rampUp, rampDown, extracted.RampUpTarget)
	log.Info().Interface("stages", stages).Int("vus", finalVUs).Str("duration", finalDuration).Msg("derived stage sequence")

	prompt := BuildGenerationPrompt(description, extracted, finalVUs, finalDuration, finalURL, rampUp, rampDown, stages)

	resp, err := c.llm.Complete(ctx, &llm.Request{
		Tier:        llm.Tier2,
		Messages:    []llm.Message{{Role: "user", Content: prompt}},
		Temperature: 0.3,
	})
	if err != nil {
		log.Error().Err(err).Msg("script generation failed")
		return &ScriptResult{
			Status:      StatusError,
			Error:       err.Error(),
			Description: description,
		}
	}

	script := StripCodeFences(resp.Content)
	if !IsValidScript(script) {
		// Fence stripping may have eaten a script that never was fenced;
		// the raw response is the safer candidate.
		log.Warn().Msg("stripped script failed validation, keeping raw response")
		script = resp.Content
	}

	cleaned := SanitizeScript(script)
	if cleaned != script {
		log.Info().Msg("sanitized built-in metric re-declarations")
		script = cleaned
	}

	return &ScriptResult{
		Status:       StatusSuccess,
		Script:       script,
		ScriptLength: len(script),
		Description:  description,
		Params:       &extracted,
		Stages:       stages,
	}
}

// composeDirect is AI mode: the raw requirement goes to the model, which
// must answer with code only.
func (c *Composer) composeDirect(ctx context.Context, description string) *ScriptResult {
	prompt := BuildDirectPrompt(description)

	resp, err := c.llm.Complete(ctx, &llm.Request{
		Tier:        llm.Tier2,
		Messages:    []llm.Message{{Role: "user", Content: prompt}},
		Temperature: 0.2,
		MaxTokens:   3000,
	})
	if err != nil {
		log.Error().Err(err).Msg("direct script generation failed")
		return &ScriptResult{
			Status:      StatusError,
			Error:       err.Error(),
			Description: description,
		}
	}

	script, ok := ExtractScriptCode(resp.Content)
	if !ok {
		log.Error().Msg("no valid script found in model response")
		raw := resp.Content
		if len(raw) > 500 {
			raw = raw[:500]
		}
		return &ScriptResult{
			Status:      StatusError,
			Error:       "no valid k6 script in model response",
			Description: description,
			RawResponse: raw,
		}
	}

	cleaned := SanitizeScript(script)
	if cleaned != script {
		log.Info().Msg("sanitized built-in metric re-declarations")
		script = cleaned
	}
	if !IsValidScript(script) {
		log.Warn().Msg("generated script failed structural validation")
	}

	return &ScriptResult{
		Status:       StatusSuccess,
		Script:       script,
		ScriptLength: len(script),
		Description:  description,
	}
}
