package analysis

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/moolen/vigil/internal/endpoints"
	"github.com/moolen/vigil/internal/environment"
	"github.com/moolen/vigil/internal/logging"
	"github.com/moolen/vigil/internal/metrics"
	corev1 "k8s.io/api/core/v1"
)

// Source lists workload state in a scope.
type Source interface {
	ListPods(ctx context.Context, namespace string) ([]corev1.Pod, error)
	ListEvents(ctx context.Context, namespace string) ([]corev1.Event, error)
}

// Options are shared by the analysis components.
type Options struct {
	Namespace string
	Labels    Labels

	// Endpoints are the resolved endpoint URLs, used for traceability only.
	Endpoints map[string]string

	SimulationMinUnits int
	SimulationMaxUnits int
	// Seed fixes the simulated dataset; zero picks a time-based seed per call.
	Seed uint64

	// ClusterTimeout bounds each call to the workload source.
	ClusterTimeout time.Duration

	Now func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Namespace == "" {
		o.Namespace = "default"
	}
	if o.SimulationMinUnits <= 0 {
		o.SimulationMinUnits = 3
	}
	if o.SimulationMaxUnits < o.SimulationMinUnits {
		o.SimulationMaxUnits = o.SimulationMinUnits + 5
	}
	if o.ClusterTimeout <= 0 {
		o.ClusterTimeout = 10 * time.Second
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// HealthAnalyzer computes health snapshots for the detected environment.
type HealthAnalyzer struct {
	profile environment.Profile
	source  Source
	metrics metrics.Querier
	opts    Options
	logger  *logging.Logger
}

// NewHealthAnalyzer wires an analyzer. source and querier may be nil.
func NewHealthAnalyzer(profile environment.Profile, source Source, querier metrics.Querier, opts Options) *HealthAnalyzer {
	if querier == nil {
		querier = metrics.Disabled{}
	}
	return &HealthAnalyzer{
		profile: profile,
		source:  source,
		metrics: querier,
		opts:    opts.withDefaults(),
		logger:  logging.GetLogger("analysis.health"),
	}
}

// Analyze never fails: errors and panics end up in the snapshot's Error field.
func (a *HealthAnalyzer) Analyze(ctx context.Context) (snap HealthSnapshot) {
	snap = a.newSnapshot()

	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("Health analysis panicked: %v", r)
			snap.recordFailure("Failed to analyze system health", fmt.Errorf("%v", r))
		}
	}()

	switch a.profile.Kind() {
	case environment.KindSimulated, environment.KindUnknown:
		a.analyzeSimulated(&snap)
	case environment.KindCIPlatform, environment.KindCloudK8s, environment.KindLocalK8s, environment.KindLocalContainerRuntime:
		if a.profile.ClusterReachable() && a.source != nil {
			a.analyzeCluster(ctx, &snap)
		} else {
			a.analyzeExternal(ctx, &snap)
		}
	default:
		snap.recordFailure("Failed to analyze system health", fmt.Errorf("unhandled environment kind %q", a.profile.Kind()))
	}

	a.logger.Debug("Health score %.1f from %d unit(s), %d insight(s)", snap.Score, len(snap.Units), len(snap.Insights))
	return snap
}

func (a *HealthAnalyzer) newSnapshot() HealthSnapshot {
	p := a.profile
	return HealthSnapshot{
		Timestamp: a.opts.Now(),
		RunID:     uuid.NewString(),
		Environment: EnvironmentInfo{
			Kind:             p.String(),
			ClusterReachable: p.ClusterReachable(),
			CloudProvider:    string(p.CloudProvider()),
			AuthMethod:       p.AuthMethod(),
			Capabilities:     p.Capabilities(),
		},
		Pipeline:        a.opts.Labels,
		Score:           100,
		Units:           map[string]WorkloadUnit{},
		Insights:        []Insight{},
		Predictions:     []Prediction{},
		Correlations:    []Correlation{},
		Recommendations: []Recommendation{},
		Traceability:    []TraceRecord{},
	}
}

func (a *HealthAnalyzer) analyzeCluster(ctx context.Context, snap *HealthSnapshot) {
	listCtx, cancel := context.WithTimeout(ctx, a.opts.ClusterTimeout)
	pods, err := a.source.ListPods(listCtx, a.opts.Namespace)
	cancel()
	if err != nil {
		a.logger.Warn("Listing units in %s failed, falling back to metrics: %v", a.opts.Namespace, err)
		snap.recordFailure("Failed to list workload units", err)
		a.analyzeExternal(ctx, snap)
		return
	}

	sort.Slice(pods, func(i, j int) bool { return pods[i].Name < pods[j].Name })

	now := a.opts.Now()
	units := make([]WorkloadUnit, 0, len(pods))
	for i := range pods {
		u := UnitFromPod(&pods[i], now)
		units = append(units, u)
		snap.Units[u.Name] = u

		if u.RestartCount > 0 {
			snap.Insights = append(snap.Insights, NewInsight(InsightStabilityConcern,
				fmt.Sprintf("Pod %s has %d restarts - investigating crash patterns", u.Name, u.RestartCount),
				0.9, "medium"))
		}
		if u.RiskScore > 70 {
			snap.Predictions = append(snap.Predictions, NewPrediction(PredictionFailure,
				fmt.Sprintf("Pod %s shows high risk indicators - potential failure in next 30min", u.Name),
				u.RiskScore/100, "30 minutes"))
		}
	}
	snap.Score = AggregateScore(units)

	a.correlateUnitMetrics(ctx, snap)
	addScoreRecommendations(snap)

	snap.Traceability = append(snap.Traceability, TraceRecord{
		Source:     "kubernetes_api",
		Timestamp:  now,
		PipelineID: a.opts.Labels.PipelineID,
		RunID:      snap.RunID,
		DataPoints: len(units),
	})
}

func (a *HealthAnalyzer) correlateUnitMetrics(ctx context.Context, snap *HealthSnapshot) {
	if !a.metrics.Available() {
		return
	}

	values := make(map[string]float64)
	for _, q := range metrics.UnitCorrelationQueries(a.opts.Namespace) {
		result, err := a.metrics.Instant(ctx, q.Expr)
		if err != nil {
			a.logger.Debug("Query %s failed: %v", q.Name, err)
			continue
		}
		if v, ok := metrics.First(result); ok {
			values[q.Name] = v
		}
	}

	errorRate, ok := values[metrics.MetricErrorRate]
	if !ok || errorRate <= ErrorRateThreshold {
		return
	}
	evidence := fmt.Sprintf("error_rate=%.3f/sec", errorRate)
	if cpu, ok := values[metrics.MetricCPUUsage]; ok {
		evidence += fmt.Sprintf(" cpu_usage=%.1f%%", cpu)
	}
	snap.Correlations = append(snap.Correlations, NewCorrelation(CorrelationMetricUnit,
		fmt.Sprintf("High error rate (%.3f/sec) may correlate with pod issues", errorRate),
		0.8, evidence))
}

func (a *HealthAnalyzer) analyzeExternal(ctx context.Context, snap *HealthSnapshot) {
	results := make(map[string][]float64)
	if a.metrics.Available() {
		for _, q := range metrics.ExternalHealthQueries() {
			values, err := a.metrics.Instant(ctx, q.Expr)
			if err != nil {
				a.logger.Warn("Failed to query %s: %v", q.Name, err)
				continue
			}
			if len(values) > 0 {
				results[q.Name] = values
			}
		}
	}

	if len(results) > 0 {
		up := 0
		for _, v := range results[metrics.MetricUp] {
			if v > 0 {
				up++
			}
		}
		snap.Score = clamp(float64(up*20), 0, 100)
		snap.Insights = append(snap.Insights, NewInsight(InsightExternalMonitoring,
			fmt.Sprintf("Analysis based on external metrics backend with %d healthy targets; no per-unit detail available", up),
			0.5, "medium"))

		if rate, ok := metrics.First(results[metrics.MetricErrorRate]); ok && rate > ErrorRateThreshold {
			snap.Insights = append(snap.Insights, NewInsight(InsightElevatedErrorRate,
				fmt.Sprintf("External error rate at %.3f/sec", rate), 0.5, "medium"))
		}
		if p95, ok := metrics.First(results[metrics.MetricLatencyP95]); ok {
			snap.Insights = append(snap.Insights, NewInsight(InsightLatency,
				fmt.Sprintf("External p95 latency at %.3fs", p95), 0.4, "low"))
		}
	} else {
		snap.Score = 75
		snap.Insights = append(snap.Insights, NewInsight(InsightLimitedVisibility,
			"Limited monitoring data available - consider enabling Kubernetes access or external monitoring",
			0.6, "medium"))
	}

	if a.profile.Kind() == environment.KindCIPlatform {
		snap.Recommendations = append(snap.Recommendations, Recommendation{
			Priority:        "medium",
			Action:          "enable_cluster_access",
			Description:     "Configure Kubernetes access in the CI job for deeper observability",
			EstimatedImpact: "high",
		})
	}
	addScoreRecommendations(snap)

	usable := 0
	for _, name := range endpoints.Standard {
		if endpoints.Usable(a.opts.Endpoints[name]) {
			usable++
		}
	}
	snap.Traceability = append(snap.Traceability, TraceRecord{
		Source:              "external_monitoring",
		Timestamp:           a.opts.Now(),
		PipelineID:          a.opts.Labels.PipelineID,
		RunID:               snap.RunID,
		DataPoints:          len(results),
		MonitoringEndpoints: usable,
	})
}

func addScoreRecommendations(snap *HealthSnapshot) {
	switch {
	case snap.Score < 50:
		snap.Recommendations = append(snap.Recommendations, Recommendation{
			Priority:        "critical",
			Action:          "immediate_investigation",
			Description:     "Multiple pods failing - investigate cluster resources and recent deployments",
			EstimatedImpact: "high",
		})
	case snap.Score < 80:
		snap.Recommendations = append(snap.Recommendations, Recommendation{
			Priority:        "medium",
			Action:          "proactive_monitoring",
			Description:     "Some pods showing issues - increase monitoring frequency",
			EstimatedImpact: "medium",
		})
	}

	if len(snap.Predictions) > 0 {
		snap.Recommendations = append(snap.Recommendations, Recommendation{
			Priority:        "proactive",
			Action:          "preventive_scaling",
			Description:     "Potential issues predicted - consider preemptive scaling",
			EstimatedImpact: "low",
		})
	}
}

func (a *HealthAnalyzer) seed() uint64 {
	if a.opts.Seed != 0 {
		return a.opts.Seed
	}
	return uint64(a.opts.Now().UnixNano())
}

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}
