package perftest

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loadlens-hq/loadlens/internal/config"
	"github.com/loadlens-hq/loadlens/internal/llm"
)

const generatedScript = `import http from 'k6/http';
import { check, sleep } from 'k6';

export const options = {
  stages: [
    { duration: '1s', target: 100 },
    { duration: '30s', target: 100 },
    { duration: '1s', target: 0 },
  ],
  thresholds: {
    http_req_duration: ['p(95)<500'],
    http_req_failed: ['rate<0.01'],
  },
};

export default function() {
  const res = http.get('https://example.com/api');
  check(res, { 'status is 200': (r) => r.status === 200 });
  sleep(1);
}`

var promptStagesRe = regexp.MustCompile(`负载阶段配置 \(stages\): (\[[^\n]*\])`)

func TestCompose_RegexMode(t *testing.T) {
	fake := &fakeCompleter{responses: []string{generatedScript}}
	c := NewComposer(fake)

	result := c.Compose(context.Background(), "100并发用户持续30秒压测 https://example.com/api", "", nil, ModeRegex)

	require.Equal(t, StatusSuccess, result.Status)
	assert.Equal(t, generatedScript, result.Script)
	assert.Equal(t, len(generatedScript), result.ScriptLength)
	require.NotNil(t, result.Params)
	assert.Equal(t, 100, result.Params.VUs)
	assert.Equal(t, "30s", result.Params.Duration)

	require.Len(t, fake.requests, 1)
	req := fake.requests[0]
	assert.Equal(t, llm.Tier2, req.Tier)
	assert.InDelta(t, 0.3, req.Temperature, 0.001)
}

func TestCompose_PromptStagesMatchResult(t *testing.T) {
	fake := &fakeCompleter{responses: []string{generatedScript}}
	c := NewComposer(fake)

	result := c.Compose(context.Background(), "在 3s 内加到 100 用户，然后持续 30s 保持 121 用户", "", nil, ModeRegex)

	require.Equal(t, StatusSuccess, result.Status)
	require.Len(t, fake.requests, 1)
	prompt := fake.requests[0].Messages[0].Content

	m := promptStagesRe.FindStringSubmatch(prompt)
	require.NotNil(t, m, "prompt must embed the stage sequence as JSON")

	var promptStages []Stage
	require.NoError(t, json.Unmarshal([]byte(m[1]), &promptStages))

	// The stages handed to the model and the stages reported back to the
	// caller describe the same plan.
	assert.Equal(t, result.Stages, promptStages)
	assert.Equal(t, []Stage{
		{Duration: "3s", Target: 100},
		{Duration: "30s", Target: 121},
		{Duration: "1s", Target: 0},
	}, promptStages)
}

func TestCompose_DefaultsApplied(t *testing.T) {
	fake := &fakeCompleter{responses: []string{generatedScript}}
	c := NewComposer(fake)

	result := c.Compose(context.Background(), "对登录接口做一次压力测试", "", nil, ModeRegex)

	require.Equal(t, StatusSuccess, result.Status)
	require.Len(t, fake.requests, 2, "sparse description triggers the extraction fallback")
	prompt := fake.requests[1].Messages[0].Content
	assert.Contains(t, prompt, "虚拟用户数 (VUs): 10")
	assert.Contains(t, prompt, "测试时长: 30s")
}

func TestCompose_LoadConfigFallback(t *testing.T) {
	fake := &fakeCompleter{responses: []string{generatedScript}}
	c := NewComposer(fake)
	loadCfg := &config.LoadConfig{VUs: 25, Duration: "2m"}

	result := c.Compose(context.Background(), "对登录接口做一次压力测试", "https://example.com/login", loadCfg, ModeRegex)

	require.Equal(t, StatusSuccess, result.Status)
	prompt := fake.requests[len(fake.requests)-1].Messages[0].Content
	assert.Contains(t, prompt, "虚拟用户数 (VUs): 25")
	assert.Contains(t, prompt, "测试时长: 2m")
	assert.Contains(t, prompt, "https://example.com/login")
}

func TestCompose_DescriptionOverridesLoadConfig(t *testing.T) {
	fake := &fakeCompleter{responses: []string{generatedScript}}
	c := NewComposer(fake)
	loadCfg := &config.LoadConfig{VUs: 25, Duration: "2m"}

	c.Compose(context.Background(), "100并发用户持续30秒", "", loadCfg, ModeRegex)

	prompt := fake.requests[len(fake.requests)-1].Messages[0].Content
	assert.Contains(t, prompt, "虚拟用户数 (VUs): 100")
	assert.Contains(t, prompt, "测试时长: 30s")
}

func TestCompose_LLMError(t *testing.T) {
	fake := &fakeCompleter{err: errors.New("all providers unavailable")}
	c := NewComposer(fake)

	result := c.Compose(context.Background(), "100并发用户持续30秒", "", nil, ModeRegex)

	assert.Equal(t, StatusError, result.Status)
	assert.Contains(t, result.Error, "all providers unavailable")
	assert.Empty(t, result.Script)
}

func TestCompose_FencedResponseStripped(t *testing.T) {
	fake := &fakeCompleter{responses: []string{"```javascript\n" + generatedScript + "\n```"}}
	c := NewComposer(fake)

	result := c.Compose(context.Background(), "100并发用户持续30秒", "", nil, ModeRegex)

	require.Equal(t, StatusSuccess, result.Status)
	assert.Equal(t, generatedScript, result.Script)
}

func TestCompose_SanitizesBuiltinMetrics(t *testing.T) {
	fake := &fakeCompleter{responses: []string{scriptWithRedeclaredMetric}}
	c := NewComposer(fake)

	result := c.Compose(context.Background(), "100并发用户持续30秒", "", nil, ModeRegex)

	require.Equal(t, StatusSuccess, result.Status)
	assert.NotContains(t, result.Script, "new Counter('http_reqs')")
	assert.Contains(t, result.Script, "export default function()")
}

func TestCompose_AIMode(t *testing.T) {
	fake := &fakeCompleter{responses: []string{"```javascript\n" + generatedScript + "\n```"}}
	c := NewComposer(fake)

	result := c.Compose(context.Background(), "生成一个增强版压测脚本", "", nil, ModeAI)

	require.Equal(t, StatusSuccess, result.Status)
	assert.Equal(t, generatedScript, result.Script)

	require.Len(t, fake.requests, 1, "direct mode must not run extraction")
	req := fake.requests[0]
	assert.Equal(t, llm.Tier2, req.Tier)
	assert.InDelta(t, 0.2, req.Temperature, 0.001)
	assert.Equal(t, 3000, req.MaxTokens)
}

func TestCompose_AIMode_ProseOnlyResponse(t *testing.T) {
	fake := &fakeCompleter{responses: []string{"I am unable to produce a load test script for that request."}}
	c := NewComposer(fake)

	result := c.Compose(context.Background(), "生成一个压测脚本", "", nil, ModeAI)

	assert.Equal(t, StatusError, result.Status)
	assert.NotEmpty(t, result.RawResponse)
	assert.LessOrEqual(t, len(result.RawResponse), 500)
}
