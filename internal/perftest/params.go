package perftest

import (
	"context"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/loadlens-hq/loadlens/internal/llm"
)

// Concurrency patterns, tried in priority order: explicit phrasings first,
// generic "N用户" last.
var vuPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(\d+)\s*并发用户`),
	regexp.MustCompile(`(?i)(\d+)\s*个用户`),
	regexp.MustCompile(`(?i)(\d+)\s*VUs?`),
	regexp.MustCompile(`(?i)(\d+)\s*虚拟用户`),
	regexp.MustCompile(`(?i)(\d+)\s*用户并发`),
	regexp.MustCompile(`(?i)(\d+)\s*并发`),
	regexp.MustCompile(`(?i)并发\s*(\d+)`),
	regexp.MustCompile(`(?i)(\d+)\s*用户`),
	regexp.MustCompile(`(?i)到\s*(\d+)\s*用户`),
	regexp.MustCompile(`(?i)加压到\s*(\d+)`),
}

// Compound ramp phrases capture the ramp duration and its intermediate
// target together. They must never be parsed as two independent matches,
// which could pair the duration with the wrong number.
var rampUpWithTargetPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(\d+)\s*s?\s*内?\s*加到\s*(\d+)\s*用户`),
	regexp.MustCompile(`(?i)(\d+)\s*秒\s*内?\s*加到\s*(\d+)\s*用户`),
	regexp.MustCompile(`(?i)(\d+)\s*s?\s*内\s*缓慢\s*加压\s*到\s*(\d+)`),
	regexp.MustCompile(`(?i)(\d+)\s*秒\s*内\s*缓慢\s*加压\s*到\s*(\d+)`),
}

var rampUpPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(\d+)\s*s?\s*内?\s*加到\s*\d+`),
	regexp.MustCompile(`(?i)(\d+)\s*秒\s*内?\s*加到\s*\d+`),
	regexp.MustCompile(`(?i)(\d+)\s*s?\s*内\s*缓慢\s*加压`),
	regexp.MustCompile(`(?i)(\d+)\s*秒\s*内\s*缓慢\s*加压`),
	regexp.MustCompile(`(?i)缓慢\s*加压.*?(\d+)\s*s`),
	regexp.MustCompile(`(?i)缓慢\s*加压.*?(\d+)\s*秒`),
}

var rampDownPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(\d+)\s*s?\s*内\s*缓慢\s*减少`),
	regexp.MustCompile(`(?i)(\d+)\s*秒\s*内\s*缓慢\s*减少`),
	regexp.MustCompile(`(?i)(\d+)\s*s?\s*内\s*减少\s*到\s*0`),
	regexp.MustCompile(`(?i)(\d+)\s*秒\s*内\s*减少\s*到\s*0`),
}

// Hold-duration patterns. Explicit 持续 phrasings first so a bare "Ns"
// elsewhere in the sentence does not win.
var durationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)持续\s*运行\s*(\d+)\s*秒`),
	regexp.MustCompile(`(?i)持续\s*运行\s*(\d+)\s*s`),
	regexp.MustCompile(`(?i)持续\s*(\d+)\s*秒`),
	regexp.MustCompile(`(?i)持续\s*(\d+)\s*s\b`),
	regexp.MustCompile(`(?i)(\d+)\s*秒\s*持续`),
	regexp.MustCompile(`(?i)(\d+)\s*s\b`),
	regexp.MustCompile(`(?i)(\d+)\s*秒`),
	regexp.MustCompile(`(?i)持续\s*(\d+)\s*分钟`),
	regexp.MustCompile(`(?i)(\d+)\s*分钟`),
	regexp.MustCompile(`(?i)(\d+)\s*m\b`),
}

// URL match stops at whitespace, a closing paren, or the first CJK
// character, so URLs embedded in prose do not swallow the following text.
var urlRe = regexp.MustCompile(`https?://[^\s)\x{4e00}-\x{9fff}]+`)

// CleanDescription normalizes a requirement description: newlines become
// spaces and runs of whitespace collapse to one space.
func CleanDescription(text string) string {
	if text == "" {
		return ""
	}
	text = strings.ReplaceAll(text, "\n", " ")
	text = strings.ReplaceAll(text, "\r", " ")
	return strings.Join(strings.Fields(text), " ")
}

// maskSpan blanks out [start,end) with '#' so already-consumed text cannot
// match a later pattern. Byte length is preserved to keep offsets stable.
func maskSpan(s string, start, end int) string {
	return s[:start] + strings.Repeat("#", end-start) + s[end:]
}

func maskURLs(s string) string {
	return urlRe.ReplaceAllStringFunc(s, func(m string) string {
		return strings.Repeat("#", len(m))
	})
}

// ExtractFromText pulls load-test parameters out of a description using
// regex patterns only. Fields that cannot be found stay at their zero
// value. Numbers inside URLs are masked first so they can never populate a
// numeric field.
func ExtractFromText(description string) Parameters {
	var p Parameters

	text := maskURLs(description)

	// Compound ramp first: once matched, its span is masked so the
	// intermediate target cannot be re-read as the final concurrency and
	// the ramp duration cannot be re-read as the hold duration.
	for _, re := range rampUpWithTargetPatterns {
		if loc := re.FindStringSubmatchIndex(text); loc != nil {
			m := re.FindStringSubmatch(text)
			p.RampUpDuration = m[1] + "s"
			p.RampUpTarget = mustAtoi(m[2])
			text = maskSpan(text, loc[0], loc[1])
			log.Debug().Str("ramp_up", p.RampUpDuration).Int("ramp_up_target", p.RampUpTarget).Msg("matched compound ramp-up")
			break
		}
	}
	if p.RampUpDuration == "" {
		for _, re := range rampUpPatterns {
			if loc := re.FindStringSubmatchIndex(text); loc != nil {
				m := re.FindStringSubmatch(text)
				p.RampUpDuration = m[1] + "s"
				text = maskSpan(text, loc[0], loc[1])
				log.Debug().Str("ramp_up", p.RampUpDuration).Msg("matched ramp-up")
				break
			}
		}
	}

	for _, re := range rampDownPatterns {
		if loc := re.FindStringSubmatchIndex(text); loc != nil {
			m := re.FindStringSubmatch(text)
			p.RampDownDuration = m[1] + "s"
			text = maskSpan(text, loc[0], loc[1])
			log.Debug().Str("ramp_down", p.RampDownDuration).Msg("matched ramp-down")
			break
		}
	}

	for _, re := range vuPatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			p.VUs = mustAtoi(m[1])
			log.Debug().Int("vus", p.VUs).Str("pattern", re.String()).Msg("matched concurrency")
			break
		}
	}

	for _, re := range durationPatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			value := m[1]
			whole := m[0]
			if strings.Contains(whole, "分钟") || strings.Contains(strings.ToLower(whole), "m") {
				p.Duration = value + "m"
			} else {
				p.Duration = value + "s"
			}
			log.Debug().Str("duration", p.Duration).Msg("matched hold duration")
			break
		}
	}

	if m := urlRe.FindString(description); m != "" {
		p.URL = strings.TrimRight(m, "),，。,")
	}

	return p
}

func mustAtoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

// Extractor combines regex extraction with an LLM fallback for
// descriptions the patterns cannot fully cover.
type Extractor struct {
	llm Completer
}

// NewExtractor creates an extractor. client may be nil, in which case only
// regex extraction runs.
func NewExtractor(client Completer) *Extractor {
	return &Extractor{llm: client}
}

// Extract runs regex extraction and, when concurrency or hold duration is
// still missing, asks the LLM for exactly those fields. LLM values win for
// any field the model returns. Extraction never fails: on any LLM error the
// regex result is returned as-is.
func (e *Extractor) Extract(ctx context.Context, description string) Parameters {
	description = CleanDescription(description)
	params := ExtractFromText(description)

	if params.VUs != 0 && params.Duration != "" {
		return params
	}
	if e.llm == nil {
		return params
	}

	log.Debug().Msg("regex extraction incomplete, trying LLM fallback")
	llmParams, err := e.extractViaLLM(ctx, description)
	if err != nil {
		log.Warn().Err(err).Msg("LLM parameter extraction failed, keeping regex result")
		return params
	}

	if llmParams.VUs != 0 {
		params.VUs = llmParams.VUs
	}
	if llmParams.Duration != "" {
		params.Duration = llmParams.Duration
	}
	if llmParams.URL != "" {
		params.URL = llmParams.URL
	}

	return params
}

var (
	fencedJSONRe = regexp.MustCompile("(?s)```json\\s*\\n(.*?)\\n```")
	fencedAnyRe  = regexp.MustCompile("(?s)```\\s*\\n(.*?)\\n```")
)

func (e *Extractor) extractViaLLM(ctx context.Context, description string) (Parameters, error) {
	prompt := BuildExtractionPrompt(description)

	resp, err := e.llm.Complete(ctx, &llm.Request{
		Tier:        llm.Tier1,
		Messages:    []llm.Message{{Role: "user", Content: prompt}},
		Temperature: 0.1,
		JSONMode:    true,
	})
	if err != nil {
		return Parameters{}, err
	}

	cleaned := strings.TrimSpace(resp.Content)
	if strings.Contains(cleaned, "```json") {
		if m := fencedJSONRe.FindStringSubmatch(cleaned); m != nil {
			cleaned = strings.TrimSpace(m[1])
		}
	} else if strings.Contains(cleaned, "```") {
		if m := fencedAnyRe.FindStringSubmatch(cleaned); m != nil {
			cleaned = strings.TrimSpace(m[1])
		}
	}

	var params Parameters
	if err := json.Unmarshal([]byte(cleaned), &params); err != nil {
		return Parameters{}, err
	}
	return params, nil
}
