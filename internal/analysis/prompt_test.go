package analysis

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildPrompt_PrefersRawStdout(t *testing.T) {
	stdout := "http_req_duration..: avg=258ms p(95)=307ms"
	prompt := BuildPrompt(TestMeta{TestName: "登录压测", TestDescription: "100并发"}, sampleMetrics(), stdout)

	assert.Contains(t, prompt, "k6 执行输出（原始数据）")
	assert.Contains(t, prompt, stdout)
	assert.NotContains(t, prompt, "### 响应时间指标", "formatted metrics replaced by the raw transcript")
	assert.Contains(t, prompt, "完整指标数据")
	assert.Contains(t, prompt, "所有JSON键名必须使用中文")
}

func TestBuildPrompt_FormattedMetricsInSeconds(t *testing.T) {
	prompt := BuildPrompt(TestMeta{TestName: "t", TestDescription: "d"}, sampleMetrics(), "")

	// Normalized values are milliseconds; the prompt converts once.
	assert.Contains(t, prompt, "平均响应时间: 0.258 秒")
	assert.Contains(t, prompt, "P95响应时间: 0.307 秒")
	assert.Contains(t, prompt, "最大响应时间: 0.470 秒")
	assert.Contains(t, prompt, "请求总数: 1054 次")
	assert.Contains(t, prompt, "请求速率: 36.53 req/s")
	assert.Contains(t, prompt, "虚拟用户数: 100 个")
}

func TestBuildPrompt_MetadataSection(t *testing.T) {
	meta := TestMeta{
		TestName:           "下单接口压测",
		TestDescription:    "100并发持续30秒",
		TestRequirement:    "验证下单性能",
		ProjectName:        "商城",
		ProjectDescription: "电商后端",
	}
	prompt := BuildPrompt(meta, nil, "output")

	for _, want := range []string{"下单接口压测", "100并发持续30秒", "验证下单性能", "商城", "电商后端"} {
		assert.True(t, strings.Contains(prompt, want), "prompt missing %q", want)
	}
}
