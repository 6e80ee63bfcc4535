package perftest

import (
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
)

// Metric names k6 registers automatically. Re-declaring any of them with a
// custom metric constructor aborts the run at startup with a duplicate
// registration error.
var builtinMetrics = []string{
	"data_sent", "data_received", "http_req_duration", "http_reqs",
	"iterations", "vus", "http_req_failed", "http_req_waiting",
	"http_req_connecting", "http_req_tls_handshaking", "http_req_sending",
	"http_req_receiving", "http_req_blocked", "iteration_duration",
	"vus_max",
}

var (
	builtinDeclRes       []*regexp.Regexp
	builtinConstructorRe []*regexp.Regexp
)

func init() {
	for _, metric := range builtinMetrics {
		quoted := regexp.QuoteMeta(metric)
		builtinDeclRes = append(builtinDeclRes, regexp.MustCompile(
			`(?i)(const|let|var)\s+(\w+)\s*=\s*new\s+(Counter|Trend|Rate|Gauge|Metric)\s*\(\s*['"]`+quoted+`['"]`))
		builtinConstructorRe = append(builtinConstructorRe, regexp.MustCompile(
			`(?i)new\s+(Counter|Trend|Rate|Gauge|Metric)\s*\(\s*['"]`+quoted+`['"]`))
	}
}

// SanitizeScript removes re-declarations of k6 built-in metrics and every
// use of the variables they were bound to. Two passes: collect the bound
// variable names, then drop declaration lines and lines referencing those
// variables. Idempotent.
func SanitizeScript(script string) string {
	lines := strings.Split(script, "\n")

	removedVars := make(map[string]*regexp.Regexp)
	for _, line := range lines {
		for _, re := range builtinDeclRes {
			if m := re.FindStringSubmatch(line); m != nil {
				varName := m[2]
				removedVars[varName] = regexp.MustCompile(`\b` + regexp.QuoteMeta(varName) + `\s*\.`)
				log.Warn().Str("variable", varName).Msg("script re-declares a built-in metric")
			}
		}
	}

	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		skip := false

		for _, re := range builtinConstructorRe {
			if re.MatchString(line) {
				skip = true
				break
			}
		}

		if !skip {
			for _, useRe := range removedVars {
				if useRe.MatchString(line) {
					skip = true
					break
				}
			}
		}

		if !skip {
			cleaned = append(cleaned, line)
		}
	}

	result := strings.Join(cleaned, "\n")
	if result != script && len(removedVars) > 0 {
		log.Info().Int("variables", len(removedVars)).Msg("removed built-in metric re-declarations from script")
	}
	return result
}

// Structural keywords a plausible k6 script contains.
var scriptKeywords = []string{"import", "http", "check", "options", "export default function"}

// IsValidScript is a cheap structural heuristic: minimum length plus at
// least two of the expected k6 keywords. It gates fallbacks, never hard
// rejections.
func IsValidScript(script string) bool {
	if len(script) < 50 {
		return false
	}
	found := 0
	for _, kw := range scriptKeywords {
		if strings.Contains(script, kw) {
			found++
		}
	}
	return found >= 2
}
