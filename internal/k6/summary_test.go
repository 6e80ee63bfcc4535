package k6

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseConsoleSummary(t *testing.T) {
	stdout := `
     checks.........................: 100.00% ✓ 1000  ✗ 0
     data_received..................: 1.2 MB  40 kB/s
     http_req_duration..............: avg=200ms min=100ms med=180ms max=500ms p(90)=300ms p(95)=400ms
     http_reqs......................: 1000    33.333333/s
     vus............................: 10      min=10 max=10
`

	summary := ParseConsoleSummary(stdout)

	assert.Equal(t, "100.00% ✓ 1000  ✗ 0", summary["checks"])
	assert.Equal(t, "1.2 MB  40 kB/s", summary["data_received"])
	assert.Contains(t, summary["http_req_duration"], "p(95)=400ms")
	assert.Equal(t, "10      min=10 max=10", summary["vus"])
}

func TestParseConsoleSummary_Empty(t *testing.T) {
	assert.Empty(t, ParseConsoleSummary(""))
	assert.Empty(t, ParseConsoleSummary("no metrics here\njust text\n"))
}
