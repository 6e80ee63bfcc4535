package perftest

import (
	"encoding/json"
	"fmt"
	"strings"
)

// BuildExtractionPrompt asks the model for exactly the load parameters the
// regex patterns could not find, as bare JSON.
func BuildExtractionPrompt(description string) string {
	return fmt.Sprintf(`请从以下性能测试需求描述中提取关键参数，并以JSON格式返回：

测试需求：%s

请提取以下参数（如果存在）：
1. 并发用户数（VUs）：数字，例如 100
2. 测试时长：格式为 "30s" 或 "5m"，例如 "30s" 表示30秒，"5m" 表示5分钟
3. 目标URL：完整的URL地址

请以JSON格式返回，例如：
{
  "vus": 100,
  "duration": "30s",
  "url": "https://example.com"
}

如果某个参数不存在，请省略该字段。只返回JSON，不要其他文字。`, description)
}

// BuildGenerationPrompt constructs the constrained script-generation prompt
// for regex mode. The literal stage sequence is embedded as JSON and the
// model is told to reproduce it exactly.
func BuildGenerationPrompt(description string, extracted Parameters, finalVUs int, finalDuration, finalURL, rampUp, rampDown string, stages []Stage) string {
	stagesJSON, _ := json.Marshal(stages)

	var b strings.Builder

	fmt.Fprintf(&b, `你是一个专业的性能测试工程师，擅长使用 k6 进行性能测试。

请根据以下需求生成一个完整的 k6 性能测试脚本：

## 测试需求
%s

## 从需求中提取的关键参数
`, description)

	if extracted.VUs != 0 || extracted.Duration != "" || extracted.URL != "" {
		b.WriteString("已从测试需求中识别出以下参数：\n")
		if extracted.VUs != 0 {
			fmt.Fprintf(&b, "- 并发用户数: %d\n", extracted.VUs)
		}
		if extracted.Duration != "" {
			fmt.Fprintf(&b, "- 测试时长: %s\n", extracted.Duration)
		}
		if extracted.URL != "" {
			fmt.Fprintf(&b, "- 目标URL: %s\n", extracted.URL)
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, `
## 负载配置（请严格按照以下配置生成）
- 虚拟用户数 (VUs): %d
- 测试时长: %s
- 负载阶段配置 (stages): %s

## 目标URL
`, finalVUs, finalDuration, stagesJSON)

	if finalURL != "" {
		fmt.Fprintf(&b, "目标 URL: %s\n", finalURL)
	} else {
		b.WriteString("目标 URL: 请从测试需求中提取或推断合适的测试目标\n")
	}

	holdTarget := stages[len(stages)-2].Target
	fmt.Fprintf(&b, `
## 重要要求（请严格遵守）

1. **负载配置必须准确（这是最重要的，请严格遵守）**：
   - stages 配置必须完全按照上面提供的配置生成：%s
   - **重要：stages 数组中的每个 stage 对象必须严格按照配置生成，不要修改 target 或 duration 值**
   - 第一阶段：%s 内将并发用户数从0提升到 %d
   - 第二阶段：保持 %d 个并发用户，持续 %s
   - 第三阶段：%s 内将并发用户数降为0（平滑结束）
   - **重要：不要设置 vusMax 字段（k6不支持此字段，会根据stages自动确定最大VU数）**
   - **警告：不要使用默认值10，必须使用配置中的 target 值**

2. **脚本结构**：
   - 导入必要的 k6 模块：import http from 'k6/http'; import { check, sleep } from 'k6';
   - options 配置必须包含 stages 和 thresholds
   - default function 中实现 HTTP 请求和检查

3. **性能阈值设置**（如果测试未达到阈值是正常的，说明需要优化性能）：
   - http_req_duration: ['p(95)<500']
   - http_req_failed: ['rate<0.01']
   - checks: ['rate>0.99']

4. **请求逻辑**：
   - 使用 http.get() 或 http.post() 发送请求
   - 添加适当的 check() 验证响应
   - 包含 sleep() 模拟用户操作间隔（1-3秒随机）

5. **URL 处理**：
   - 如果测试需求中提到了具体的 URL，必须使用该 URL
   - URL 必须正确（注意拼写）

## 输出格式
请直接输出 k6 JavaScript 代码，不要包含 markdown 代码块标记（不要使用 `+"```javascript 或 ```"+` 包裹）。
代码应该可以直接保存为 .js 文件并运行。

## 关键提醒
- **必须使用提取的参数值 %d，不要使用默认值10**
- **stages配置必须完全匹配：%s**

请严格按照以上要求生成 k6 脚本，确保所有数值都正确：
`, stagesJSON, rampUp, stages[0].Target, holdTarget, finalDuration, rampDown, finalVUs, stagesJSON)

	return b.String()
}

// BuildDirectPrompt constructs the AI-mode prompt: code only, enhanced
// metric coverage, and a hard prohibition on re-declaring built-in metrics.
func BuildDirectPrompt(description string) string {
	return fmt.Sprintf(`你是一个专业的性能测试工程师，擅长使用 k6 进行性能测试。

请根据以下需求生成一个增强版的 k6 性能测试脚本：

## 测试需求
%s

## 要求
1. **只返回 k6 JavaScript 代码，不要任何解释、说明或 markdown 标记**
2. **脚本必须是增强版本，包含更多监控指标**：
   - 响应时间分布（p50, p95, p99）
   - 吞吐量（RPS）
   - 错误率
   - 数据发送/接收量
3. **代码应该可以直接保存为 .js 文件并运行**
4. **不要使用 `+"```javascript 或 ```"+` 包裹代码**
5. **脚本必须包含完整的 options 配置和 default function**
6. **重要：不要手动创建 k6 内置指标**：
   - k6 已经内置了以下指标，不要使用 new Metric() 或 Counter/Rate/Trend/Gauge 创建它们：
     data_sent, data_received, http_req_duration, http_reqs, iterations, vus
   - **只使用 thresholds 配置来监控这些内置指标，不要重新定义它们**

## 脚本要求
- 使用 k6 的标准语法
- 包含 stages 配置（如果需要渐进式加压）
- 包含 thresholds 配置，使用内置指标名称
- 使用 check() 函数验证响应
- 添加适当的 sleep() 模拟用户行为

## 输出格式
直接输出代码，不要任何其他文字。代码应该以 import 语句开始，以 export default function 结束。

直接输出代码：`, description)
}
