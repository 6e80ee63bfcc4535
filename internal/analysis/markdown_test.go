package analysis

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loadlens-hq/loadlens/internal/k6"
)

func f64(v float64) *float64 { return &v }

func sampleMetrics() map[string]k6.MetricAggregate {
	return map[string]k6.MetricAggregate{
		"http_req_duration": {Avg: f64(258.0), Min: f64(100.0), Max: f64(470.0), P95: f64(307.0)},
		"http_req_failed":   {Rate: f64(0.0)},
		"http_reqs":         {Count: f64(1054), Rate: f64(36.53)},
		"vus":               {Max: f64(100)},
	}
}

func TestRenderMarkdown_SectionOrder(t *testing.T) {
	fields := map[string]any{
		KeyRating:         "优秀",
		KeyMetricsSummary: map[string]any{"总请求数": "1054 次", "错误率": "0.0%"},
		KeyResponseTime:   map[string]any{"响应时间分布": "集中在 200-300ms"},
		KeyThroughput:     "吞吐量达标",
		KeyStability:      map[string]any{"错误率": "0.0%"},
		KeyRecommendations: []any{
			map[string]any{"优先级": "high", "建议内容": "增加数据库连接池"},
		},
		KeyRisk:     map[string]any{"性能风险": "暂无明显风险"},
		KeyCapacity: map[string]any{"当前容量": "支持100并发"},
	}

	md := RenderMarkdown(TestMeta{TestName: "登录接口压测"}, fields, sampleMetrics(), "")

	headings := []string{
		"性能评估",
		"关键指标摘要",
		"响应时间分析",
		"吞吐量分析",
		"稳定性分析",
		"优化建议",
		"风险评估",
		"容量规划建议",
	}
	last := -1
	for _, h := range headings {
		pos := strings.Index(md, h)
		require.GreaterOrEqual(t, pos, 0, "missing section %q", h)
		assert.Greater(t, pos, last, "section %q out of order", h)
		last = pos
	}
}

func TestRenderMarkdown_RatingEmoji(t *testing.T) {
	md := RenderMarkdown(TestMeta{}, map[string]any{KeyRating: "优秀"}, nil, "")
	assert.Contains(t, md, "## 🟢 性能评估")
	assert.Contains(t, md, "**整体评级**: 优秀")

	md = RenderMarkdown(TestMeta{}, map[string]any{KeyRating: "较差"}, nil, "")
	assert.Contains(t, md, "## 🔴 性能评估")
}

func TestRenderMarkdown_MetricsTableTwoRows(t *testing.T) {
	fields := map[string]any{
		KeyMetricsSummary: map[string]any{
			"总请求数":  "1054 次",
			"请求速率":  "36.53 req/s",
			"平均响应时间": "0.258 秒",
		},
	}

	md := RenderMarkdown(TestMeta{}, fields, nil, "")

	// Metric names as the header row, values as a single data row.
	assert.Contains(t, md, "| 总请求数 | 请求速率 | 平均响应时间 |")
	assert.Contains(t, md, "| 1054 次 | 36.53 req/s | 0.258 秒 |")
	lines := strings.Split(md, "\n")
	var tableLines int
	for _, l := range lines {
		if strings.HasPrefix(l, "|") {
			tableLines++
		}
	}
	assert.Equal(t, 3, tableLines, "header, separator, data")
}

func TestRenderMarkdown_RecommendationPriorities(t *testing.T) {
	fields := map[string]any{
		KeyRecommendations: []any{
			map[string]any{"优先级": "high", "建议内容": "增加连接池"},
			map[string]any{"priority": "medium", "suggestion": "tune GC"},
			map[string]any{"优先级": "low", "建议内容": "开启压缩"},
		},
	}

	md := RenderMarkdown(TestMeta{}, fields, nil, "")

	assert.Contains(t, md, "1. 🔴 **增加连接池**")
	assert.Contains(t, md, "2. 🟡 **tune GC**")
	assert.Contains(t, md, "3. 🟢 **开启压缩**")
	assert.Contains(t, md, "优先级: 高")
	assert.Contains(t, md, "优先级: 中")
	assert.Contains(t, md, "优先级: 低")
}

func TestRenderMarkdown_FallbackNeverEmptyWithMetrics(t *testing.T) {
	md := RenderMarkdown(TestMeta{TestName: "t"}, map[string]any{}, sampleMetrics(), "the model rambled instead of answering")

	// No structured fields recovered: metrics table plus raw body.
	assert.Contains(t, md, "性能分析结果")
	assert.Contains(t, md, "关键指标")
	assert.Contains(t, md, "0.258 s", "avg duration converted ms to s exactly once")
	assert.Contains(t, md, "0.307 s")
	assert.Contains(t, md, "1,054")
	assert.Contains(t, md, "36.53 req/s")
	assert.Contains(t, md, "the model rambled instead of answering")
}

func TestFormatMetricValue(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value any
		want  string
	}{
		{"string_passthrough", "总请求数", "1054 次", "1054 次"},
		{"response_time_ms", "平均响应时间", 258.0, "0.258 s"},
		{"response_time_half_second", "avg_response_time", 500.0, "0.500 s"},
		{"response_time_over_second", "P95响应时间", 1500.0, "1.500 s"},
		{"error_rate", "错误率", 0.015, "1.5%"},
		{"request_rate", "请求速率", 36.53, "36.53 req/s"},
		{"count_thousands", "总请求数", 1054.0, "1,054"},
		{"vus", "并发用户数", 100.0, "100"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatMetricValue(tt.key, tt.value))
		})
	}
}

func TestThousands(t *testing.T) {
	assert.Equal(t, "7", thousands(7))
	assert.Equal(t, "999", thousands(999))
	assert.Equal(t, "1,054", thousands(1054))
	assert.Equal(t, "1,234,567", thousands(1234567))
}
