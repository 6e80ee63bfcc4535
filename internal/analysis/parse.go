package analysis

import (
	"encoding/json"
	"regexp"
	"strings"
)

var fencedJSONRe = regexp.MustCompile("(?s)```json\\s*(\\{.*?\\})\\s*```")
var jsonArrayRe = regexp.MustCompile(`(?s)\[.*?\]`)
var jsonObjectRe = regexp.MustCompile(`(?s)\{[^{}]*(?:\{[^{}]*\}[^{}]*)*\}`)

// ParseResponse recovers a structured analysis from a model response, in
// order of decreasing trust: strict JSON, Python-literal-style dicts with
// normalized tokens, then a fenced or balanced-brace JSON object buried in
// surrounding prose. Returns nil when nothing structured can be recovered.
func ParseResponse(content string) map[string]any {
	content = strings.TrimSpace(content)

	if fields := tryJSON(content); fields != nil {
		return fields
	}
	if fields := tryJSON(normalizePythonLiteral(content)); fields != nil {
		return fields
	}

	if m := fencedJSONRe.FindStringSubmatch(content); m != nil {
		if fields := tryJSON(m[1]); fields != nil {
			return fields
		}
		if fields := tryJSON(normalizePythonLiteral(m[1])); fields != nil {
			return fields
		}
	}

	if obj, ok := extractBalancedJSON(content); ok {
		if fields := tryJSON(obj); fields != nil {
			return fields
		}
		if fields := tryJSON(normalizePythonLiteral(obj)); fields != nil {
			return fields
		}
	}

	return nil
}

func tryJSON(s string) map[string]any {
	var fields map[string]any
	if err := json.Unmarshal([]byte(s), &fields); err != nil {
		return nil
	}
	return fields
}

// normalizePythonLiteral rewrites a Python-repr-style dict into JSON:
// single quotes become double quotes and the literal tokens are lowered.
// Lossy for strings containing quotes, acceptable for a last-ditch parse.
func normalizePythonLiteral(s string) string {
	s = strings.ReplaceAll(s, "'", `"`)
	s = strings.ReplaceAll(s, "True", "true")
	s = strings.ReplaceAll(s, "False", "false")
	s = strings.ReplaceAll(s, "None", "null")
	return s
}

// extractBalancedJSON returns the first brace-balanced object in the text,
// skipping braces inside string literals.
func extractBalancedJSON(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	if start == -1 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if escaped {
			escaped = false
			continue
		}
		switch c {
		case '\\':
			escaped = true
		case '"':
			inString = !inString
		case '{':
			if !inString {
				depth++
			}
		case '}':
			if !inString {
				depth--
				if depth == 0 {
					return text[start : i+1], true
				}
			}
		}
	}
	return "", false
}

// MergeNestedAnalysis handles responses wrapping the real payload in an
// "Analysis" text field. Any JSON recoverable from the wrapper, plus any
// section headings it contains, is merged into the top level. The wrapper
// itself is removed later with the other echo fields.
func MergeNestedAnalysis(fields map[string]any) {
	wrapper, ok := fields["Analysis"]
	if !ok {
		return
	}

	switch inner := wrapper.(type) {
	case map[string]any:
		for k, v := range inner {
			fields[k] = v
		}
	case string:
		if m := fencedJSONRe.FindStringSubmatch(inner); m != nil {
			if parsed := tryJSON(m[1]); parsed != nil {
				for k, v := range parsed {
					fields[k] = v
				}
			}
		}
		if parsed := tryJSON(inner); parsed != nil {
			for k, v := range parsed {
				fields[k] = v
			}
		}
		for k, v := range ExtractSections(inner) {
			if _, exists := fields[k]; !exists {
				fields[k] = v
			}
		}
	}
}

var ratingRe = regexp.MustCompile(`(?i)(?:Performance Rating|性能评级)[:\-]?\s*([^\n]+)`)
var nextSectionRe = regexp.MustCompile(`\n\s*(?:-?\s*\*\*)?[A-Z][a-zA-Z\s]+?[:\-]`)
var recommendationsHeadRe = regexp.MustCompile(`(?i)(?:Optimization Recommendations?|优化建议)[:\-]?\s*`)

// sectionHeads matches the bilingual headings of the remaining sections.
var sectionHeads = []struct {
	re  *regexp.Regexp
	key string
}{
	{regexp.MustCompile(`(?i)(?:Key Metrics Summary|关键指标摘要)[:\-]?\s*`), KeyMetricsSummary},
	{regexp.MustCompile(`(?i)(?:-?\s*\*\*)?(?:Response Time Analysis|响应时间分析)[:\-]?\s*\*?\*?[:\-]?\s*`), KeyResponseTime},
	{regexp.MustCompile(`(?i)(?:Throughput Analysis|吞吐量分析)[:\-]?\s*`), KeyThroughput},
	{regexp.MustCompile(`(?i)(?:-?\s*\*\*)?(?:Stability Analysis|稳定性分析)[:\-]?\s*\*?\*?[:\-]?\s*`), KeyStability},
	{regexp.MustCompile(`(?i)(?:-?\s*\*\*)?(?:Risk Assessment|风险评估)[:\-]?\s*\*?\*?[:\-]?\s*`), KeyRisk},
	{regexp.MustCompile(`(?i)(?:Capacity Planning|容量规划)[:\-]?\s*`), KeyCapacity},
}

// ExtractSections is the last-resort parser: it scavenges individually
// recognizable sections out of free text, reconstructing as much structure
// as possible. Keys come back already canonical.
func ExtractSections(text string) map[string]any {
	fields := make(map[string]any)
	if text == "" {
		return fields
	}

	if m := ratingRe.FindStringSubmatch(text); m != nil {
		fields[KeyRating] = strings.Trim(strings.TrimSpace(m[1]), "*")
	}

	for _, head := range sectionHeads {
		loc := head.re.FindStringIndex(text)
		if loc == nil {
			continue
		}
		rest := text[loc[1]:]

		if parsed := sectionJSON(rest); parsed != nil {
			fields[head.key] = parsed
			continue
		}
		if content := untilNextSection(rest); content != "" {
			fields[head.key] = content
		}
	}

	if loc := recommendationsHeadRe.FindStringIndex(text); loc != nil {
		rest := text[loc[1]:]
		if recs := extractRecommendations(rest); len(recs) > 0 {
			fields[KeyRecommendations] = recs
		}
	}

	return fields
}

// sectionJSON tries a fenced block first, then a balanced object, right
// after a section heading.
func sectionJSON(rest string) map[string]any {
	if m := fencedJSONRe.FindStringSubmatch(rest); m != nil {
		if parsed := tryJSON(strings.TrimSpace(m[1])); parsed != nil {
			return parsed
		}
	}
	if obj, ok := extractBalancedJSON(rest); ok {
		if parsed := tryJSON(obj); parsed != nil {
			return parsed
		}
	}
	return nil
}

func untilNextSection(rest string) string {
	if loc := nextSectionRe.FindStringIndex(rest); loc != nil {
		return strings.TrimSpace(rest[:loc[0]])
	}
	return strings.TrimSpace(rest)
}

func extractRecommendations(rest string) []any {
	if m := jsonArrayRe.FindString(rest); m != "" {
		var recs []any
		if err := json.Unmarshal([]byte(m), &recs); err == nil {
			return recs
		}
	}
	// Array parse failed, salvage the individual objects.
	var recs []any
	for _, obj := range jsonObjectRe.FindAllString(rest, -1) {
		if parsed := tryJSON(obj); parsed != nil {
			recs = append(recs, parsed)
		}
	}
	return recs
}
