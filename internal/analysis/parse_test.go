package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseResponse_StrictJSON(t *testing.T) {
	fields := ParseResponse(`{"性能评级": "优秀", "关键指标摘要": {"总请求数": "1054 次"}}`)

	require.NotNil(t, fields)
	assert.Equal(t, "优秀", fields["性能评级"])
}

func TestParseResponse_PythonLiteral(t *testing.T) {
	fields := ParseResponse(`{'性能评级': '良好', '达标': True, '瓶颈': None}`)

	require.NotNil(t, fields)
	assert.Equal(t, "良好", fields["性能评级"])
	assert.Equal(t, true, fields["达标"])
	assert.Nil(t, fields["瓶颈"])
}

func TestParseResponse_FencedBlock(t *testing.T) {
	response := "Here is my analysis:\n```json\n{\"性能评级\": \"一般\"}\n```\nHope this helps."
	fields := ParseResponse(response)

	require.NotNil(t, fields)
	assert.Equal(t, "一般", fields["性能评级"])
}

func TestParseResponse_BalancedBraces(t *testing.T) {
	response := `The result is {"性能评级": "优秀", "备注": "包含 } 字符的 {文本}"} as requested.`
	// Braces inside string values must not break the scan.
	fields := ParseResponse(response)

	require.NotNil(t, fields)
	assert.Equal(t, "优秀", fields["性能评级"])
}

func TestParseResponse_Unparsable(t *testing.T) {
	assert.Nil(t, ParseResponse("I could not analyze these results."))
	assert.Nil(t, ParseResponse(""))
}

func TestMergeNestedAnalysis_FencedPayload(t *testing.T) {
	fields := map[string]any{
		"Analysis": "Performance looks fine.\n```json\n{\"性能评级\": \"良好\"}\n```",
	}

	MergeNestedAnalysis(fields)

	assert.Equal(t, "良好", fields["性能评级"])
}

func TestMergeNestedAnalysis_InnerMap(t *testing.T) {
	fields := map[string]any{
		"Analysis": map[string]any{"性能评级": "优秀"},
	}

	MergeNestedAnalysis(fields)

	assert.Equal(t, "优秀", fields["性能评级"])
}

func TestExtractSections_BilingualHeadings(t *testing.T) {
	text := `Performance Rating: 良好

Key Metrics Summary:
` + "```json\n" + `{"总请求数": "1054 次", "错误率": "0.0%"}` + "\n```" + `

Response Time Analysis: 响应时间整体稳定，无明显异常值。

Throughput Analysis: 吞吐量达到预期水平。
`

	fields := ExtractSections(text)

	assert.Equal(t, "良好", fields[KeyRating])
	summary, ok := fields[KeyMetricsSummary].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "1054 次", summary["总请求数"])
	assert.Contains(t, fields[KeyResponseTime], "无明显异常值")
	assert.Contains(t, fields[KeyThroughput], "吞吐量达到预期水平")
}

func TestExtractSections_RecommendationsArray(t *testing.T) {
	text := `优化建议: [{"优先级": "high", "建议内容": "增加数据库连接池"}, {"优先级": "low", "建议内容": "开启响应压缩"}]`

	fields := ExtractSections(text)

	recs, ok := fields[KeyRecommendations].([]any)
	require.True(t, ok)
	require.Len(t, recs, 2)
	first, ok := recs[0].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "high", first["优先级"])
}

func TestNormalizeKeys(t *testing.T) {
	fields := NormalizeKeys(map[string]any{
		"性能评级":  "优秀",
		"优化建议":  []any{},
		"自定义字段": "保留",
	})

	assert.Equal(t, "优秀", fields[KeyRating])
	assert.Contains(t, fields, KeyRecommendations)
	assert.Equal(t, "保留", fields["自定义字段"])
	assert.NotContains(t, fields, "性能评级")
}

func TestStripEchoes(t *testing.T) {
	fields := map[string]any{
		"requirement_text": "echoed prompt",
		"Status":           "success",
		"test_focus":       []any{"性能指标"},
		"Analysis":         "wrapper",
		KeyRating:          "优秀",
	}

	StripEchoes(fields)

	assert.Equal(t, map[string]any{KeyRating: "优秀"}, fields)
}
