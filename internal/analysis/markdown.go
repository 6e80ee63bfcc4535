package analysis

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/loadlens-hq/loadlens/internal/k6"
)

var ratingEmoji = map[string]string{
	"优秀": "🟢",
	"良好": "🟡",
	"一般": "🟠",
	"较差": "🔴",
	"差":  "🔴",
}

var priorityEmoji = map[string]string{
	"high":   "🔴",
	"medium": "🟡",
	"low":    "🟢",
}

var priorityCN = map[string]string{
	"high":   "高",
	"medium": "中",
	"low":    "低",
}

// metricColumnRank orders key-metrics table columns; unknown names sort
// after the known ones, alphabetically.
var metricColumnRank = map[string]int{
	"总请求数":    0,
	"请求速率":    1,
	"错误率":     2,
	"失败率":     3,
	"平均响应时间":  4,
	"最小响应时间":  5,
	"最大响应时间":  6,
	"P90响应时间": 7,
	"P95响应时间": 8,
	"P99响应时间": 9,
	"并发用户数":   10,
	"虚拟用户数":   11,
	"迭代次数":    12,
}

// RenderMarkdown produces the report body from whatever structured fields
// were recovered, in a fixed section order. When nothing structured came
// back it falls back to a table of the normalized metrics plus the raw
// response text, so the report is never empty while metrics exist.
func RenderMarkdown(meta TestMeta, fields map[string]any, metrics map[string]k6.MetricAggregate, rawText string) string {
	var b strings.Builder

	b.WriteString("# 📊 性能测试分析报告\n\n")

	if meta.ProjectName != "" {
		b.WriteString("## 📁 项目信息\n")
		fmt.Fprintf(&b, "- **项目名称**: %s\n", meta.ProjectName)
		if meta.ProjectDescription != "" {
			fmt.Fprintf(&b, "- **项目描述**: %s\n", meta.ProjectDescription)
		}
		b.WriteString("\n")
	}

	b.WriteString("## 🧪 测试信息\n")
	if meta.TestName != "" {
		fmt.Fprintf(&b, "- **测试名称**: %s\n", meta.TestName)
	}
	if meta.TestDescription != "" {
		fmt.Fprintf(&b, "- **测试描述**: %s\n", meta.TestDescription)
	}
	if meta.TestRequirement != "" {
		fmt.Fprintf(&b, "- **测试需求**: %s\n", meta.TestRequirement)
	}
	b.WriteString("\n---\n\n")

	sections := 0

	if rating := stringField(fields, KeyRating); rating != "" {
		sections++
		emoji, ok := ratingEmoji[rating]
		if !ok {
			emoji = "📊"
		}
		fmt.Fprintf(&b, "## %s 性能评估\n**整体评级**: %s\n\n", emoji, rating)
	}

	if summary, ok := fields[KeyMetricsSummary]; ok {
		sections++
		b.WriteString("## 📈 关键指标摘要\n")
		writeSummaryTable(&b, summary)
		b.WriteString("\n")
	}

	sections += writeBulletSection(&b, fields, KeyResponseTime, "## ⏱️ 响应时间分析")
	sections += writeBulletSection(&b, fields, KeyThroughput, "## 🚀 吞吐量分析")
	sections += writeBulletSection(&b, fields, KeyStability, "## 🔒 稳定性分析")

	if recs, ok := fields[KeyRecommendations]; ok {
		sections++
		b.WriteString("## 💡 优化建议\n")
		writeRecommendations(&b, recs)
		b.WriteString("\n")
	}

	if risks, ok := fields[KeyRisk]; ok {
		sections++
		b.WriteString("## ⚠️ 风险评估\n")
		writeRiskSection(&b, risks)
		b.WriteString("\n")
	}

	sections += writeBulletSection(&b, fields, KeyCapacity, "## 📋 容量规划建议")

	if sections == 0 {
		writeFallback(&b, metrics, rawText)
	}

	return b.String()
}

func stringField(fields map[string]any, key string) string {
	s, _ := fields[key].(string)
	return strings.TrimSpace(s)
}

// writeSummaryTable renders the key metrics as a two-row table: names as
// the header, formatted values as the single data row.
func writeSummaryTable(b *strings.Builder, summary any) {
	switch v := summary.(type) {
	case map[string]any:
		names, values := tableColumns(v)
		if len(names) == 0 {
			return
		}
		b.WriteString("| " + strings.Join(names, " | ") + " |\n")
		seps := make([]string, len(names))
		for i, n := range names {
			width := utf8.RuneCountInString(n)
			if width < 3 {
				width = 3
			}
			seps[i] = strings.Repeat("-", width)
		}
		b.WriteString("| " + strings.Join(seps, " | ") + " |\n")
		b.WriteString("| " + strings.Join(values, " | ") + " |\n")
	case string:
		b.WriteString(v + "\n")
	}
}

func tableColumns(summary map[string]any) ([]string, []string) {
	keys := make([]string, 0, len(summary))
	for k := range summary {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		ri, iok := metricColumnRank[displayName(keys[i])]
		rj, jok := metricColumnRank[displayName(keys[j])]
		switch {
		case iok && jok:
			return ri < rj
		case iok:
			return true
		case jok:
			return false
		default:
			return keys[i] < keys[j]
		}
	})

	names := make([]string, 0, len(keys))
	values := make([]string, 0, len(keys))
	for _, k := range keys {
		names = append(names, displayName(k))
		values = append(values, formatMetricValue(k, summary[k]))
	}
	return names, values
}

// formatMetricValue formats a table cell. Strings from the model already
// carry units and pass through; bare numbers get units inferred from the
// key name, with response times shown in seconds.
func formatMetricValue(key string, value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		lower := strings.ToLower(key)
		switch {
		case strings.Contains(lower, "response_time") || strings.Contains(key, "响应时间"):
			// Bare response-time numbers are milliseconds at this
			// boundary, converted exactly once.
			return fmt.Sprintf("%.3f s", msToSeconds(v))
		case strings.Contains(lower, "rate") || strings.Contains(key, "速率") ||
			strings.Contains(key, "错误率") || strings.Contains(key, "失败率"):
			if strings.Contains(lower, "error") || strings.Contains(lower, "failure") ||
				strings.Contains(key, "失败") || strings.Contains(key, "错误") {
				return fmt.Sprintf("%.1f%%", v*100)
			}
			return fmt.Sprintf("%.2f req/s", v)
		case strings.Contains(lower, "count") || strings.Contains(key, "总数") ||
			strings.Contains(key, "次数") || strings.Contains(key, "请求数"):
			return thousands(int64(v))
		case strings.Contains(key, "用户数") || strings.Contains(lower, "vus") || strings.Contains(key, "并发"):
			return strconv.FormatInt(int64(v), 10)
		default:
			return strconv.FormatFloat(v, 'g', -1, 64)
		}
	default:
		return fmt.Sprintf("%v", value)
	}
}

func thousands(n int64) string {
	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// writeBulletSection renders a map field as a bullet list, or a string
// field verbatim. Returns 1 when the section was present.
func writeBulletSection(b *strings.Builder, fields map[string]any, key, heading string) int {
	value, ok := fields[key]
	if !ok {
		return 0
	}
	b.WriteString(heading + "\n")
	switch v := value.(type) {
	case map[string]any:
		for _, k := range sortedKeys(v) {
			switch nested := v[k].(type) {
			case map[string]any, []any:
				blob, _ := json.MarshalIndent(nested, "  ", "  ")
				fmt.Fprintf(b, "- **%s**:\n  %s\n", displayName(k), blob)
			default:
				fmt.Fprintf(b, "- **%s**: %v\n", displayName(k), nested)
			}
		}
	case string:
		b.WriteString(v + "\n")
	default:
		fmt.Fprintf(b, "%v\n", v)
	}
	b.WriteString("\n")
	return 1
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func writeRecommendations(b *strings.Builder, recs any) {
	switch v := recs.(type) {
	case []any:
		for i, item := range v {
			rec, ok := item.(map[string]any)
			if !ok {
				fmt.Fprintf(b, "%d. %v\n", i+1, item)
				continue
			}
			priority := firstString(rec, "priority", "优先级")
			suggestion := firstString(rec, "suggestion", "recommendation", "建议内容")
			emoji, ok := priorityEmoji[strings.ToLower(priority)]
			if !ok {
				emoji = "•"
			}
			fmt.Fprintf(b, "%d. %s **%s**\n", i+1, emoji, suggestion)
			if priority != "" {
				cn, ok := priorityCN[strings.ToLower(priority)]
				if !ok {
					cn = priority
				}
				fmt.Fprintf(b, "   - 优先级: %s\n", cn)
			}
		}
	case string:
		b.WriteString(v + "\n")
	}
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func writeRiskSection(b *strings.Builder, risks any) {
	switch v := risks.(type) {
	case map[string]any:
		for _, k := range sortedKeys(v) {
			switch nested := v[k].(type) {
			case []any:
				fmt.Fprintf(b, "### %s\n", displayName(k))
				for _, item := range nested {
					fmt.Fprintf(b, "- %v\n", item)
				}
			case map[string]any:
				blob, _ := json.MarshalIndent(nested, "  ", "  ")
				fmt.Fprintf(b, "- **%s**:\n  %s\n", displayName(k), blob)
			default:
				fmt.Fprintf(b, "- **%s**: %v\n", displayName(k), nested)
			}
		}
	case string:
		b.WriteString(v + "\n")
	}
}

// writeFallback renders the normalized metrics as a table plus the raw
// model text when no structured section could be recovered.
func writeFallback(b *strings.Builder, metrics map[string]k6.MetricAggregate, rawText string) {
	b.WriteString("## 📊 性能分析结果\n\n")

	if len(metrics) > 0 {
		b.WriteString("### 📈 关键指标\n")
		summary := make(map[string]any)

		if d, ok := metrics["http_req_duration"]; ok {
			if d.Avg != nil {
				summary["平均响应时间"] = fmt.Sprintf("%.3f s", msToSeconds(*d.Avg))
			}
			if d.Min != nil {
				summary["最小响应时间"] = fmt.Sprintf("%.3f s", msToSeconds(*d.Min))
			}
			if d.Max != nil {
				summary["最大响应时间"] = fmt.Sprintf("%.3f s", msToSeconds(*d.Max))
			}
			if d.P95 != nil {
				summary["P95响应时间"] = fmt.Sprintf("%.3f s", msToSeconds(*d.P95))
			}
		}
		if f, ok := metrics["http_req_failed"]; ok && f.Rate != nil {
			summary["错误率"] = fmt.Sprintf("%.1f%%", *f.Rate*100)
		}
		if r, ok := metrics["http_reqs"]; ok {
			if r.Count != nil {
				summary["总请求数"] = thousands(int64(*r.Count))
			}
			if r.Rate != nil {
				summary["请求速率"] = fmt.Sprintf("%.2f req/s", *r.Rate)
			}
		}
		if v, ok := metrics["vus"]; ok && v.Max != nil {
			summary["并发用户数"] = strconv.FormatInt(int64(*v.Max), 10)
		}

		writeSummaryTable(b, summary)
		b.WriteString("\n")
	}

	if strings.TrimSpace(rawText) != "" {
		b.WriteString("### 📋 详细分析\n\n")
		b.WriteString(strings.TrimSpace(rawText))
		b.WriteString("\n")
	}
}
