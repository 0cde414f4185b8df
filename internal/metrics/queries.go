package metrics

import "fmt"

// Metric names used in reports and trend predictions.
const (
	MetricUp          = "up_targets"
	MetricErrorRate   = "error_rate"
	MetricLatencyP95  = "latency_p95"
	MetricCPUUsage    = "cpu_usage"
	MetricMemoryUsage = "memory_usage"

	TrendCPU     = "cpu_trend"
	TrendMemory  = "memory_trend"
	TrendError   = "error_trend"
	TrendRequest = "request_trend"
)

// Query is a named PromQL expression.
type Query struct {
	Name string
	Expr string
}

const (
	errorRateExpr  = `rate(http_requests_total{status=~"5.."}[5m])`
	latencyP95Expr = `histogram_quantile(0.95, rate(http_request_duration_seconds_bucket[5m]))`
)

// ExternalHealthQueries are used when only a metrics backend is reachable.
func ExternalHealthQueries() []Query {
	return []Query{
		{MetricUp, "up"},
		{MetricErrorRate, errorRateExpr},
		{MetricLatencyP95, latencyP95Expr},
	}
}

// UnitCorrelationQueries are evaluated alongside the unit listing on the cluster path.
func UnitCorrelationQueries(namespace string) []Query {
	return []Query{
		{MetricErrorRate, errorRateExpr},
		{MetricCPUUsage, fmt.Sprintf(`avg(rate(container_cpu_usage_seconds_total{namespace=%q}[5m])) * 100`, namespace)},
	}
}

// CorrelationQueries is the fixed metric set compared against recent events.
func CorrelationQueries(namespace string) []Query {
	return []Query{
		{MetricErrorRate, errorRateExpr},
		{MetricLatencyP95, latencyP95Expr},
		{MetricCPUUsage, fmt.Sprintf(`avg(rate(container_cpu_usage_seconds_total{namespace=%q}[5m])) * 100`, namespace)},
		{MetricMemoryUsage, fmt.Sprintf(`avg(container_memory_usage_bytes{namespace=%q}) / 1024 / 1024`, namespace)},
	}
}

// TrendQueries are evaluated as range queries for behaviour prediction.
func TrendQueries(namespace string) []Query {
	return []Query{
		{TrendCPU, fmt.Sprintf(`avg(rate(container_cpu_usage_seconds_total{namespace=%q}[5m]))`, namespace)},
		{TrendMemory, fmt.Sprintf(`avg(container_memory_usage_bytes{namespace=%q})`, namespace)},
		{TrendError, errorRateExpr},
		{TrendRequest, `rate(http_requests_total[5m])`},
	}
}
