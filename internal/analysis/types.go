package analysis

import (
	"math"
	"sort"
	"strings"
	"time"
)

// Phase is the lifecycle phase of a workload unit.
type Phase string

const (
	PhaseRunning   Phase = "Running"
	PhasePending   Phase = "Pending"
	PhaseSucceeded Phase = "Succeeded"
	PhaseFailed    Phase = "Failed"
	PhaseUnknown   Phase = "Unknown"
)

// Insight types
const (
	InsightStabilityConcern    = "stability_concern"
	InsightSystemError         = "system_error"
	InsightExternalMonitoring  = "external_monitoring"
	InsightElevatedErrorRate   = "elevated_error_rate"
	InsightLimitedVisibility   = "limited_visibility"
	InsightSimulationMode      = "simulation_mode"
	InsightEnvironmentDetected = "environment_detection"
	InsightCollectionGap       = "collection_gap"
	InsightLatency             = "latency"
)

// Prediction types
const (
	PredictionFailure          = "failure_prediction"
	PredictionPerformanceTrend = "performance_trend"
)

// Correlation types
const (
	CorrelationMetricUnit  = "metric_pod_correlation"
	CorrelationEventMetric = "event_metric_correlation"
)

// ErrorRateThreshold is the per-second 5xx rate above which correlations fire.
const ErrorRateThreshold = 0.01

// WorkloadUnit is one observed workload instance, typically a pod.
type WorkloadUnit struct {
	Name         string   `json:"name"`
	Phase        Phase    `json:"phase"`
	Ready        bool     `json:"ready"`
	RestartCount int      `json:"restart_count"`
	AgeMinutes   int      `json:"age_minutes"`
	RiskScore    float64  `json:"risk_score"`
	Issues       []string `json:"issues,omitempty"`
	Synthetic    bool     `json:"synthetic,omitempty"`
}

// Insight is an observation with a confidence in [0,1].
type Insight struct {
	Type       string  `json:"type"`
	Message    string  `json:"message"`
	Confidence float64 `json:"confidence"`
	Impact     string  `json:"impact,omitempty"`
	Synthetic  bool    `json:"synthetic,omitempty"`
}

// NewInsight clamps confidence into [0,1].
func NewInsight(typ, message string, confidence float64, impact string) Insight {
	return Insight{Type: typ, Message: message, Confidence: clamp01(confidence), Impact: impact}
}

// Prediction is an expected future event with a probability in [0,1].
type Prediction struct {
	Type        string  `json:"type"`
	Message     string  `json:"message"`
	Probability float64 `json:"probability"`
	Timeframe   string  `json:"timeframe"`
	Synthetic   bool    `json:"synthetic,omitempty"`
}

// NewPrediction clamps probability into [0,1].
func NewPrediction(typ, message string, probability float64, timeframe string) Prediction {
	return Prediction{Type: typ, Message: message, Probability: clamp01(probability), Timeframe: timeframe}
}

// Correlation links two signals.
type Correlation struct {
	Type        string  `json:"type"`
	Description string  `json:"description"`
	Confidence  float64 `json:"confidence"`
	Evidence    string  `json:"evidence,omitempty"`
	EventsCount int     `json:"events_count,omitempty"`
}

// NewCorrelation clamps confidence into [0,1].
func NewCorrelation(typ, description string, confidence float64, evidence string) Correlation {
	return Correlation{Type: typ, Description: description, Confidence: clamp01(confidence), Evidence: evidence}
}

// DefaultChainStages is the stage template used for causal chains.
var DefaultChainStages = []string{"Deployment", "Pod Restart", "Service Disruption", "Error Rate Increase"}

// CausalChain is an ordered sequence of stages believed to explain a failure.
type CausalChain struct {
	Stages      []string `json:"stages"`
	Probability float64  `json:"probability"`
	Evidence    string   `json:"evidence"`
}

// NewCausalChain copies stages and clamps probability into [0,1].
func NewCausalChain(stages []string, probability float64, evidence string) CausalChain {
	return CausalChain{
		Stages:      append([]string(nil), stages...),
		Probability: clamp01(probability),
		Evidence:    evidence,
	}
}

func (c CausalChain) String() string {
	return strings.Join(c.Stages, " → ")
}

// Recommendation is a suggested operator action.
type Recommendation struct {
	Priority        string `json:"priority"`
	Action          string `json:"action"`
	Description     string `json:"description"`
	EstimatedImpact string `json:"estimated_impact"`
	Synthetic       bool   `json:"synthetic,omitempty"`
}

// TraceRecord ties a snapshot back to its data source and pipeline run.
type TraceRecord struct {
	Source              string    `json:"source"`
	Timestamp           time.Time `json:"timestamp"`
	PipelineID          string    `json:"pipeline_id"`
	RunID               string    `json:"run_id"`
	DataPoints          int       `json:"data_points"`
	MonitoringEndpoints int       `json:"monitoring_endpoints,omitempty"`
	SimulationSeed      uint64    `json:"simulation_seed,omitempty"`
}

// EnvironmentInfo summarises the profile a snapshot was computed under.
type EnvironmentInfo struct {
	Kind             string          `json:"kind"`
	ClusterReachable bool            `json:"cluster_reachable"`
	CloudProvider    string          `json:"cloud_provider,omitempty"`
	AuthMethod       string          `json:"auth_method"`
	Capabilities     map[string]bool `json:"capabilities"`
}

// Labels identify the pipeline run. They are only ever printed.
type Labels struct {
	PipelineID  string `json:"pipeline_id"`
	CommitSHA   string `json:"commit_sha"`
	Environment string `json:"environment"`
}

// HealthSnapshot is the result of one health analysis.
type HealthSnapshot struct {
	Timestamp       time.Time               `json:"timestamp"`
	RunID           string                  `json:"run_id"`
	Environment     EnvironmentInfo         `json:"environment_info"`
	Pipeline        Labels                  `json:"pipeline_context"`
	Score           float64                 `json:"health_score"`
	Units           map[string]WorkloadUnit `json:"pods"`
	Insights        []Insight               `json:"ai_insights"`
	Predictions     []Prediction            `json:"predictions"`
	Correlations    []Correlation           `json:"correlations"`
	Recommendations []Recommendation        `json:"recommendations"`
	Traceability    []TraceRecord           `json:"traceability"`
	Synthetic       bool                    `json:"synthetic,omitempty"`
	Error           string                  `json:"error,omitempty"`
}

// UnitNames returns unit names in sorted order.
func (s *HealthSnapshot) UnitNames() []string {
	names := make([]string, 0, len(s.Units))
	for name := range s.Units {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CriticalIssue is a unit condition that blocks a pipeline.
type CriticalIssue struct {
	Unit   string `json:"unit"`
	Detail string `json:"detail"`
}

// CriticalHighRisk is the risk score above which a unit counts as critical.
const CriticalHighRisk = 80

// CriticalIssues lists not-ready units and units with risk above CriticalHighRisk.
// A unit can contribute twice.
func (s *HealthSnapshot) CriticalIssues() []CriticalIssue {
	var issues []CriticalIssue
	for _, name := range s.UnitNames() {
		u := s.Units[name]
		if !u.Ready {
			issues = append(issues, CriticalIssue{Unit: name, Detail: "not ready (status: " + string(u.Phase) + ")"})
		}
		if u.RiskScore > CriticalHighRisk {
			issues = append(issues, CriticalIssue{Unit: name, Detail: "high risk (" + formatScore(u.RiskScore) + ")"})
		}
	}
	return issues
}

// InsightsOfType filters insights by type.
func (s *HealthSnapshot) InsightsOfType(typ string) []Insight {
	var out []Insight
	for _, in := range s.Insights {
		if in.Type == typ {
			out = append(out, in)
		}
	}
	return out
}

// recordFailure sets Error and appends a system_error insight.
func (s *HealthSnapshot) recordFailure(what string, err error) {
	s.Error = err.Error()
	s.Insights = append(s.Insights, NewInsight(InsightSystemError, what+": "+err.Error(), 1.0, "high"))
}

func clamp01(v float64) float64 {
	return clamp(v, 0, 1)
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
