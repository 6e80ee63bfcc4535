package analysis

import (
	"strings"
	"unicode"
)

// Canonical field names of a recovered analysis. The model answers with
// Chinese keys; normalization maps both spellings onto these.
const (
	KeyRating          = "performance_rating"
	KeyMetricsSummary  = "key_metrics_summary"
	KeyResponseTime    = "response_time_analysis"
	KeyThroughput      = "throughput_analysis"
	KeyStability       = "stability_analysis"
	KeyRecommendations = "optimization_recommendations"
	KeyRisk            = "risk_assessment"
	KeyCapacity        = "capacity_planning"
)

// sectionOrder is the fixed rendering order of the report.
var sectionOrder = []string{
	KeyRating,
	KeyMetricsSummary,
	KeyResponseTime,
	KeyThroughput,
	KeyStability,
	KeyRecommendations,
	KeyRisk,
	KeyCapacity,
}

var keyAliases = map[string]string{
	"性能评级":   KeyRating,
	"关键指标摘要": KeyMetricsSummary,
	"响应时间分析": KeyResponseTime,
	"吞吐量分析":  KeyThroughput,
	"稳定性分析":  KeyStability,
	"优化建议":   KeyRecommendations,
	"风险评估":   KeyRisk,
	"容量规划":   KeyCapacity,
}

// echoFields are prompt leakage the model sometimes reflects back. They
// never belong in a report.
var echoFields = []string{
	"requirement_text",
	"Requirement Text",
	"Status",
	"status",
	"test_focus",
	"Test Focus",
	"filename",
	"Analysis",
}

// NormalizeKeys maps Chinese top-level field names onto the canonical
// snake_case names. A canonical key already present wins over its alias.
func NormalizeKeys(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		canonical, ok := keyAliases[k]
		if !ok {
			canonical = k
		}
		if _, exists := out[canonical]; exists && canonical != k {
			continue
		}
		out[canonical] = v
	}
	return out
}

// StripEchoes removes reflected prompt fields in place.
func StripEchoes(fields map[string]any) {
	for _, k := range echoFields {
		delete(fields, k)
	}
}

// displayNames translates English sub-field keys for rendering. Chinese
// keys pass through untouched.
var displayNames = map[string]string{
	"total_requests":          "总请求数",
	"request_rate":            "请求速率 (req/s)",
	"error_rate":              "错误率",
	"failure_rate":            "失败率 (%)",
	"avg_response_time":       "平均响应时间 (ms)",
	"max_response_time":       "最大响应时间 (ms)",
	"p95_response_time":       "P95响应时间 (ms)",
	"p90_response_time":       "P90响应时间 (ms)",
	"concurrent_users":        "并发用户数",
	"virtual_users":           "虚拟用户数",
	"iterations":              "迭代次数",
	"distribution":            "响应时间分布",
	"outliers":                "异常值分析",
	"trend":                   "趋势分析",
	"percentile_analysis":     "百分位分析",
	"issues":                  "问题分析",
	"throughput_evaluation":   "吞吐量评估",
	"concurrent_capability":   "并发处理能力",
	"concurrency_capability":  "并发处理能力",
	"resource_utilization":    "资源利用率",
	"stability_evaluation":    "稳定性评估",
	"system_stability":        "系统稳定性",
	"abnormal_conditions":     "异常情况",
	"performance_risks":       "性能风险",
	"potential_issues":        "潜在问题",
	"early_warnings":          "预警信息",
	"capacity_warning":        "容量警告",
	"critical_concerns":       "关键关注点",
	"current_capacity":        "当前容量",
	"recommended_capacity":    "推荐容量",
	"scaling_recommendations": "扩展建议",
	"scaling_strategy":        "扩展策略",
	"capacity_targets":        "容量目标",
}

func hasHan(s string) bool {
	for _, r := range s {
		if unicode.Is(unicode.Han, r) {
			return true
		}
	}
	return false
}

// displayName renders a sub-field key for the report: Chinese keys are
// kept, known English keys are translated, the rest get Title Case.
func displayName(key string) string {
	if hasHan(key) {
		return key
	}
	if cn, ok := displayNames[key]; ok {
		return cn
	}
	words := strings.Split(strings.ReplaceAll(key, "_", " "), " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
