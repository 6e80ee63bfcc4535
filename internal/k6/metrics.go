package k6

import (
	"sort"
	"strconv"
)

// KeyMetrics is the allow-list of summary metrics carried into normalized
// results. Everything else in the raw summary is dropped.
var KeyMetrics = []string{
	"http_req_duration",
	"http_req_failed",
	"http_reqs",
	"iterations",
	"vus",
	"vus_max",
	"data_received",
	"data_sent",
	"http_req_waiting",
	"http_req_connecting",
	"iteration_duration",
}

// maxValuesEntries bounds the per-label values map carried per metric.
const maxValuesEntries = 10

// MetricAggregate is the flat aggregate view of one summary metric. Trends
// populate the percentile fields, counters populate count and rate; absent
// fields stay nil. Duration-family values are in milliseconds.
type MetricAggregate struct {
	Count  *float64           `json:"count,omitempty"`
	Sum    *float64           `json:"sum,omitempty"`
	Rate   *float64           `json:"rate,omitempty"`
	Min    *float64           `json:"min,omitempty"`
	Max    *float64           `json:"max,omitempty"`
	Avg    *float64           `json:"avg,omitempty"`
	Med    *float64           `json:"med,omitempty"`
	P90    *float64           `json:"p90,omitempty"`
	P95    *float64           `json:"p95,omitempty"`
	P99    *float64           `json:"p99,omitempty"`
	Values map[string]float64 `json:"values,omitempty"`
}

// Normalize extracts the allow-listed metrics from a decoded summary
// document into flat aggregates. Metrics absent from the summary are
// simply omitted.
func Normalize(summary map[string]any) map[string]MetricAggregate {
	metrics := make(map[string]MetricAggregate)

	rawMetrics, ok := summary["metrics"].(map[string]any)
	if !ok {
		return metrics
	}

	for _, name := range KeyMetrics {
		raw, ok := rawMetrics[name].(map[string]any)
		if !ok {
			continue
		}

		agg := MetricAggregate{
			Count: floatField(raw, "count"),
			Sum:   floatField(raw, "sum"),
			Rate:  floatField(raw, "rate"),
			Min:   floatField(raw, "min"),
			Max:   floatField(raw, "max"),
			Avg:   floatField(raw, "avg"),
			Med:   floatField(raw, "med"),
			P90:   floatField(raw, "p(90)"),
			P95:   floatField(raw, "p(95)"),
			P99:   floatField(raw, "p(99)"),
		}

		if values, ok := raw["values"].(map[string]any); ok {
			agg.Values = trimValues(values)
		}

		metrics[name] = agg
	}

	return metrics
}

func floatField(raw map[string]any, key string) *float64 {
	v, ok := raw[key].(float64)
	if !ok {
		return nil
	}
	return &v
}

// trimValues keeps at most the chronologically last entries, ordering by
// the numeric value of the keys. Non-numeric keys sort first.
func trimValues(values map[string]any) map[string]float64 {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}

	if len(keys) > maxValuesEntries {
		sort.Slice(keys, func(i, j int) bool {
			return numericKey(keys[i]) < numericKey(keys[j])
		})
		keys = keys[len(keys)-maxValuesEntries:]
	}

	out := make(map[string]float64, len(keys))
	for _, k := range keys {
		if v, ok := values[k].(float64); ok {
			out[k] = v
		}
	}
	return out
}

func numericKey(k string) float64 {
	f, err := strconv.ParseFloat(k, 64)
	if err != nil {
		return 0
	}
	return f
}
