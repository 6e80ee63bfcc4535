package analysis

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/loadlens-hq/loadlens/internal/k6"
)

// msToSeconds converts a duration metric from the summary's native
// milliseconds. This is the single conversion point; normalized metrics
// themselves stay in milliseconds.
func msToSeconds(ms float64) float64 {
	return ms / 1000.0
}

func deref(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}

// BuildPrompt constructs the analysis prompt. When the raw execution
// transcript is available it is embedded verbatim, giving the model ground
// truth instead of pre-aggregated numbers; otherwise the normalized metrics
// are formatted into the prompt with durations converted to seconds.
func BuildPrompt(meta TestMeta, metrics map[string]k6.MetricAggregate, stdout string) string {
	var b strings.Builder

	b.WriteString("请分析以下 k6 性能测试结果，并提供专业的性能分析报告：\n\n")

	b.WriteString("## 项目信息\n")
	if meta.ProjectName != "" {
		fmt.Fprintf(&b, "- 项目名称: %s\n", meta.ProjectName)
	} else {
		b.WriteString("- 项目名称: 未指定\n")
	}
	if meta.ProjectDescription != "" {
		fmt.Fprintf(&b, "- 项目描述: %s\n", meta.ProjectDescription)
	}

	b.WriteString("\n## 测试信息\n")
	fmt.Fprintf(&b, "- 测试名称: %s\n", meta.TestName)
	fmt.Fprintf(&b, "- 测试描述: %s\n", meta.TestDescription)
	if meta.TestRequirement != "" {
		fmt.Fprintf(&b, "- 测试需求: %s\n", meta.TestRequirement)
	}

	if stdout != "" {
		b.WriteString("\n## k6 执行输出（原始数据）\n")
		b.WriteString("以下是 k6 性能测试的完整执行输出，请直接基于这些原始数据进行分析：\n\n")
		b.WriteString("```\n")
		b.WriteString(stdout)
		b.WriteString("\n```\n")
	} else {
		writeMetricsSection(&b, metrics)
	}

	b.WriteString("\n## 完整指标数据（JSON格式）\n")
	metricsJSON, _ := json.MarshalIndent(metrics, "", "  ")
	b.Write(metricsJSON)
	b.WriteString("\n")

	b.WriteString(analysisSchema)

	return b.String()
}

// writeMetricsSection renders the normalized metrics as prompt text when no
// raw transcript is available. Duration values are converted to seconds
// here, exactly once.
func writeMetricsSection(b *strings.Builder, metrics map[string]k6.MetricAggregate) {
	duration := metrics["http_req_duration"]
	failed := metrics["http_req_failed"]
	reqs := metrics["http_reqs"]
	iterations := metrics["iterations"]
	vus := metrics["vus"]

	b.WriteString("\n## 性能指标数据\n")

	b.WriteString("\n### HTTP 请求指标\n")
	fmt.Fprintf(b, "- 请求总数: %.0f 次\n", deref(reqs.Count))
	fmt.Fprintf(b, "- 请求速率: %.2f req/s\n", deref(reqs.Rate))
	fmt.Fprintf(b, "- 请求失败数: %.0f 次\n", deref(failed.Count))
	fmt.Fprintf(b, "- 失败率: %.2f%%\n", deref(failed.Rate)*100)

	b.WriteString("\n### 响应时间指标\n")
	fmt.Fprintf(b, "- 平均响应时间: %.3f 秒\n", msToSeconds(deref(duration.Avg)))
	fmt.Fprintf(b, "- 最小响应时间: %.3f 秒\n", msToSeconds(deref(duration.Min)))
	fmt.Fprintf(b, "- 最大响应时间: %.3f 秒\n", msToSeconds(deref(duration.Max)))
	fmt.Fprintf(b, "- 中位数响应时间: %.3f 秒\n", msToSeconds(deref(duration.Med)))
	fmt.Fprintf(b, "- P90响应时间: %.3f 秒\n", msToSeconds(deref(duration.P90)))
	fmt.Fprintf(b, "- P95响应时间: %.3f 秒\n", msToSeconds(deref(duration.P95)))
	fmt.Fprintf(b, "- P99响应时间: %.3f 秒\n", msToSeconds(deref(duration.P99)))

	b.WriteString("\n### 负载指标\n")
	fmt.Fprintf(b, "- 虚拟用户数: %.0f 个\n", deref(vus.Max))
	fmt.Fprintf(b, "- 迭代次数: %.0f 次\n", deref(iterations.Count))
	fmt.Fprintf(b, "- 迭代速率: %.2f iter/s\n", deref(iterations.Rate))
}

// analysisSchema is the fixed tail of every analysis prompt: the response
// schema the model must fill, with Chinese keys and unit-suffixed values.
const analysisSchema = `
## 分析要求
请提供以下分析内容(以JSON格式返回，便于程序解析)：

1. **性能评估**：整体性能评级（优秀/良好/一般/较差/差）、关键指标是否达标、性能瓶颈识别
2. **响应时间分析**：响应时间分布情况、是否存在异常值、响应时间趋势分析
3. **吞吐量分析**：系统吞吐量评估、并发处理能力、资源利用率
4. **稳定性分析**：错误率分析、系统稳定性评估、异常情况识别
5. **优化建议**：性能优化建议（按优先级排序）、系统改进方向、配置调优建议
6. **风险评估**：性能风险点、潜在问题预警、容量规划建议

请以结构化的JSON格式返回分析结果，**重要：所有JSON键名必须使用中文**，包含以下字段：

- **性能评级** (performance_rating): 性能评级（优秀/良好/一般/较差/差）
- **关键指标摘要** (key_metrics_summary): 包含总请求数、请求速率、错误率、平均响应时间、最大响应时间、P95响应时间、并发用户数等关键指标。**重要：所有数值必须带上单位，例如"总请求数: 1054 次"、"平均响应时间: 0.258 秒"、"请求速率: 36.53 req/s"、"并发用户数: 100 个"。响应时间使用秒为单位（如0.258秒），不要使用毫秒。**
- **响应时间分析** (response_time_analysis): 包含响应时间分布、异常值分析、趋势分析等
- **吞吐量分析** (throughput_analysis): 包含吞吐量评估、并发处理能力、资源利用率等
- **稳定性分析** (stability_analysis): 包含错误率、系统稳定性评估、异常情况等
- **优化建议** (optimization_recommendations): 优化建议列表，每个建议包含优先级（high/medium/low）和建议内容
- **风险评估** (risk_assessment): 包含性能风险、潜在问题、预警信息等
- **容量规划** (capacity_planning): 包含当前容量、推荐容量、扩展策略等

**JSON格式要求：**
1. 所有键名必须使用中文（如：性能评级、关键指标摘要、响应时间分析等）
2. 所有值的内容也必须是中文
3. 优化建议列表中的每个建议对象，键名也要使用中文（如：优先级、建议内容）
4. 确保返回的JSON格式正确，便于程序解析

示例JSON结构：
` + "```json" + `
{
  "性能评级": "优秀",
  "关键指标摘要": {
    "总请求数": "1054 次",
    "请求速率": "36.53 req/s",
    "错误率": "0.0%",
    "平均响应时间": "0.258 秒",
    "最大响应时间": "0.470 秒",
    "P95响应时间": "0.307 秒",
    "并发用户数": "100 个"
  },
  "响应时间分析": {
    "响应时间分布": "描述文本",
    "异常值分析": "描述文本",
    "趋势分析": "描述文本"
  },
  "优化建议": [
    {
      "优先级": "high",
      "建议内容": "优化建议文本"
    }
  ]
}
` + "```" + `

请严格按照上述要求返回JSON格式的分析结果。
`
