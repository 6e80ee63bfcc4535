package perftest

import (
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"
)

var (
	fencedJSRe  = regexp.MustCompile("(?s)```javascript\\s*\\n(.*?)\\n```")
	fencedJS2Re = regexp.MustCompile("(?s)```js\\s*\\n(.*?)\\n```")
	fencedRe    = regexp.MustCompile("(?s)```\\s*\\n(.*?)\\n```")
	allFenceRe  = regexp.MustCompile("(?s)```(?:javascript|js)?\\s*\\n(.*?)\\n```")
	fenceMarkRe = regexp.MustCompile("```(?:javascript|js)?\\s*\\n?")

	importStartRe = regexp.MustCompile(`(?s)import\s+.*?from`)
	exportStartRe = regexp.MustCompile(`(?s)export\s+.*?options`)
)

// StripCodeFences removes a single markdown code fence wrapping the
// response, trying language-tagged fences first.
func StripCodeFences(response string) string {
	cleaned := strings.TrimSpace(response)
	for _, re := range []*regexp.Regexp{fencedJSRe, fencedJS2Re, fencedRe} {
		if m := re.FindStringSubmatch(cleaned); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return cleaned
}

// ExtractScriptCode recovers runnable script code from an LLM response that
// may carry markdown fences and surrounding prose. Returns false when no
// plausible script could be recovered.
func ExtractScriptCode(response string) (string, bool) {
	cleaned := StripCodeFences(response)

	// Multiple fenced blocks with prose between them: take the last block.
	if strings.Contains(cleaned, "```") && !strings.HasPrefix(strings.TrimSpace(cleaned), "import") {
		if blocks := allFenceRe.FindAllStringSubmatch(cleaned, -1); len(blocks) > 0 {
			cleaned = strings.TrimSpace(blocks[len(blocks)-1][1])
			log.Debug().Msg("extracted script from last fenced block")
		}
	}

	// Leading prose: slice from the first import or export statement.
	trimmed := strings.TrimSpace(cleaned)
	if !strings.HasPrefix(trimmed, "import") && !strings.HasPrefix(trimmed, "export") {
		if loc := importStartRe.FindStringIndex(cleaned); loc != nil {
			cleaned = strings.TrimSpace(cleaned[loc[0]:])
		} else if loc := exportStartRe.FindStringIndex(cleaned); loc != nil {
			cleaned = strings.TrimSpace(cleaned[loc[0]:])
		}
	}

	// Trailing prose: more closing than opening braces means text follows
	// the last code line. Cut after the last structural line.
	if strings.Count(cleaned, "}") > strings.Count(cleaned, "{") {
		lines := strings.Split(cleaned, "\n")
		lastCode := -1
		for i := len(lines) - 1; i >= 0; i-- {
			line := strings.TrimSpace(lines[i])
			if line != "" && (strings.HasPrefix(line, "}") || strings.HasPrefix(line, "export") || strings.HasPrefix(line, "import")) {
				lastCode = i
				break
			}
		}
		if lastCode >= 0 {
			cleaned = strings.TrimSpace(strings.Join(lines[:lastCode+1], "\n"))
		}
	}

	cleaned = strings.TrimSpace(cleaned)
	if IsValidScript(cleaned) {
		return cleaned, true
	}

	// Last resort: strip every fence marker from the raw response and hope
	// what remains is code.
	loose := strings.TrimSpace(fenceMarkRe.ReplaceAllString(response, ""))
	if IsValidScript(loose) {
		log.Debug().Msg("recovered script via loose fence strip")
		return loose, true
	}

	return "", false
}
