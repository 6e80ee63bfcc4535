package k6

import "strings"

// ParseConsoleSummary extracts metric lines from the k6 console output as
// a fallback when no summary export is available. Lines look like
//
//	http_req_duration..............: avg=200ms min=100ms med=180ms max=500ms
//	http_reqs......................: 1000    33.333333/s
//
// The dotted padding is stripped from the metric name; values stay as the
// raw text to the right of the colon.
func ParseConsoleSummary(stdout string) map[string]string {
	summary := make(map[string]string)

	for _, line := range strings.Split(stdout, "\n") {
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		name = strings.TrimSpace(name)
		name = strings.Trim(name, ".")
		name = strings.ReplaceAll(name, " ", "_")
		value = strings.TrimSpace(value)
		if name == "" || value == "" {
			continue
		}
		summary[name] = value
	}

	return summary
}
