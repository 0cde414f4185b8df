package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/moolen/vigil/internal/analysis/anomaly"
	"github.com/moolen/vigil/internal/cluster"
	"github.com/moolen/vigil/internal/environment"
	"github.com/moolen/vigil/internal/logging"
	"github.com/moolen/vigil/internal/metrics"
	corev1 "k8s.io/api/core/v1"
)

// RecentEventWindow is how far back events are considered.
const RecentEventWindow = 5 * time.Minute

// Anomaly is an abnormal signal found during correlation.
type Anomaly struct {
	Type        string   `json:"type"`
	Description string   `json:"description"`
	Severity    string   `json:"severity"`
	Count       int      `json:"count,omitempty"`
	Objects     []string `json:"objects,omitempty"`
}

// EventSummary is the part of an event shown in results.
type EventSummary struct {
	Time    time.Time `json:"time"`
	Type    string    `json:"type"`
	Reason  string    `json:"reason"`
	Message string    `json:"message"`
	Object  string    `json:"object"`
}

// CorrelationResult is the output of one correlation pass.
type CorrelationResult struct {
	Timestamp        time.Time          `json:"timestamp"`
	RecentEvents     []EventSummary     `json:"recent_events"`
	Metrics          map[string]float64 `json:"metrics"`
	Correlations     []Correlation      `json:"correlations_found"`
	Anomalies        []Anomaly          `json:"anomalies"`
	CausalChains     []CausalChain      `json:"causal_chains"`
	ConfidenceScores map[string]float64 `json:"confidence_scores"`
	Synthetic        bool               `json:"synthetic,omitempty"`
	Error            string             `json:"error,omitempty"`
}

// CorrelationEngine relates recent events to current metric values.
type CorrelationEngine struct {
	profile environment.Profile
	source  Source
	metrics metrics.Querier
	opts    Options
	logger  *logging.Logger
}

// NewCorrelationEngine wires an engine. source and querier may be nil.
func NewCorrelationEngine(profile environment.Profile, source Source, querier metrics.Querier, opts Options) *CorrelationEngine {
	if querier == nil {
		querier = metrics.Disabled{}
	}
	return &CorrelationEngine{
		profile: profile,
		source:  source,
		metrics: querier,
		opts:    opts.withDefaults(),
		logger:  logging.GetLogger("analysis.correlation"),
	}
}

// Correlate never fails; a failed event or metric source is skipped.
func (e *CorrelationEngine) Correlate(ctx context.Context) (result CorrelationResult) {
	result = CorrelationResult{
		Timestamp:        e.opts.Now(),
		RecentEvents:     []EventSummary{},
		Metrics:          map[string]float64{},
		Correlations:     []Correlation{},
		Anomalies:        []Anomaly{},
		CausalChains:     []CausalChain{},
		ConfidenceScores: map[string]float64{},
	}

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("Correlation panicked: %v", r)
			result.Error = fmt.Sprintf("%v", r)
			result.Anomalies = append(result.Anomalies, Anomaly{
				Type:        InsightSystemError,
				Description: "Correlation failed: " + result.Error,
				Severity:    "high",
			})
			result.ConfidenceScores[InsightSystemError] = 1.0
		}
	}()

	switch e.profile.Kind() {
	case environment.KindSimulated, environment.KindUnknown:
		// Nothing real to correlate; synthetic events are never invented.
		result.Synthetic = true
		return result
	case environment.KindCIPlatform, environment.KindCloudK8s, environment.KindLocalK8s, environment.KindLocalContainerRuntime:
	}

	events := e.recentEvents(ctx)
	for _, ev := range events {
		result.RecentEvents = append(result.RecentEvents, summarize(ev))
	}
	e.currentMetrics(ctx, result.Metrics)

	warnings := 0
	for _, ev := range events {
		if ev.Type == corev1.EventTypeWarning {
			warnings++
		}
	}

	errorRate, hasErrorRate := result.Metrics[metrics.MetricErrorRate]
	if warnings > 0 && hasErrorRate && errorRate > ErrorRateThreshold {
		c := NewCorrelation(CorrelationEventMetric,
			fmt.Sprintf("Warning events correlate with high error rate (%.3f/sec)", errorRate),
			0.9, fmt.Sprintf("%d warning event(s) in the last %s", warnings, RecentEventWindow))
		c.EventsCount = warnings
		result.Correlations = append(result.Correlations, c)
		result.ConfidenceScores[c.Type] = c.Confidence
	}

	for _, a := range anomaly.DetectEventAnomalies(events) {
		result.Anomalies = append(result.Anomalies, Anomaly{
			Type:        "warning_event",
			Description: fmt.Sprintf("%s: %s", a.Reason, a.Summary),
			Severity:    string(a.Severity),
			Count:       a.Count,
			Objects:     a.Objects,
		})
	}
	if hasErrorRate && errorRate > ErrorRateThreshold {
		result.Anomalies = append(result.Anomalies, Anomaly{
			Type:        "error_rate",
			Description: fmt.Sprintf("Error rate %.3f/sec above %.3f/sec", errorRate, ErrorRateThreshold),
			Severity:    string(anomaly.SeverityHigh),
		})
	}

	if len(events) > 0 && len(result.Metrics) > 0 {
		result.CausalChains = append(result.CausalChains, NewCausalChain(DefaultChainStages, 0.75,
			fmt.Sprintf("%d events, error rate: %.3f/sec", len(events), errorRate)))
	}

	e.logger.Debug("Correlated %d event(s) with %d metric(s): %d correlation(s), %d anomaly(ies)",
		len(events), len(result.Metrics), len(result.Correlations), len(result.Anomalies))
	return result
}

func (e *CorrelationEngine) recentEvents(ctx context.Context) []corev1.Event {
	if e.source == nil || !e.profile.ClusterReachable() {
		return nil
	}

	listCtx, cancel := context.WithTimeout(ctx, e.opts.ClusterTimeout)
	defer cancel()

	events, err := e.source.ListEvents(listCtx, e.opts.Namespace)
	if err != nil {
		e.logger.Warn("Listing events in %s failed: %v", e.opts.Namespace, err)
		return nil
	}

	cutoff := e.opts.Now().Add(-RecentEventWindow)
	var recent []corev1.Event
	for _, ev := range events {
		if cluster.EventTime(ev).After(cutoff) {
			recent = append(recent, ev)
		}
	}
	return recent
}

func (e *CorrelationEngine) currentMetrics(ctx context.Context, into map[string]float64) {
	if !e.metrics.Available() {
		return
	}
	for _, q := range metrics.CorrelationQueries(e.opts.Namespace) {
		values, err := e.metrics.Instant(ctx, q.Expr)
		if err != nil {
			e.logger.Debug("Query %s failed: %v", q.Name, err)
			continue
		}
		if v, ok := metrics.First(values); ok {
			into[q.Name] = v
		}
	}
}

func summarize(ev corev1.Event) EventSummary {
	return EventSummary{
		Time:    cluster.EventTime(ev),
		Type:    ev.Type,
		Reason:  ev.Reason,
		Message: ev.Message,
		Object:  ev.InvolvedObject.Name,
	}
}
