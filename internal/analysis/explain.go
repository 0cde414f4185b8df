package analysis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/moolen/vigil/internal/logging"
)

// AutoDetect asks Explain to derive the failure description itself.
const AutoDetect = "auto-detect"

// NoActiveFailures is the description used when nothing is wrong.
const NoActiveFailures = "No active failures detected"

// FailureContext identifies what is being explained.
type FailureContext struct {
	Description string `json:"description"`
	PipelineID  string `json:"pipeline_id"`
	Environment string `json:"environment"`
	Namespace   string `json:"namespace"`
}

// RootCause is a likely cause with the confidence of the insight it came from.
type RootCause struct {
	Cause      string  `json:"cause"`
	Evidence   string  `json:"evidence"`
	Confidence float64 `json:"confidence"`
}

// ContributingFactor is a correlated signal with its correlation's confidence.
type ContributingFactor struct {
	Factor      string  `json:"factor"`
	Description string  `json:"description"`
	Confidence  float64 `json:"confidence"`
}

// ResolutionStep is one entry of the resolution checklist.
type ResolutionStep struct {
	Step        int    `json:"step"`
	Action      string `json:"action"`
	Description string `json:"description"`
	Command     string `json:"command"`
}

// Explanation is the output of Explain.
type Explanation struct {
	Timestamp           time.Time            `json:"timestamp"`
	FailureContext      FailureContext       `json:"failure_context"`
	RootCauses          []RootCause          `json:"root_cause_analysis"`
	ContributingFactors []ContributingFactor `json:"contributing_factors"`
	ResolutionSteps     []ResolutionStep     `json:"resolution_steps"`
	PreventionMeasures  []string             `json:"prevention_measures"`
	Confidence          float64              `json:"confidence_score"`
	Synthetic           bool                 `json:"synthetic,omitempty"`
	Error               string               `json:"error,omitempty"`
}

// ExplanationComposer combines health and correlation results into an explanation.
type ExplanationComposer struct {
	health     *HealthAnalyzer
	correlator *CorrelationEngine
	opts       Options
	logger     *logging.Logger
}

// NewExplanationComposer wires a composer.
func NewExplanationComposer(health *HealthAnalyzer, correlator *CorrelationEngine, opts Options) *ExplanationComposer {
	return &ExplanationComposer{
		health:     health,
		correlator: correlator,
		opts:       opts.withDefaults(),
		logger:     logging.GetLogger("analysis.explain"),
	}
}

// Explain never fails; a panic while composing is reported on the Error field.
func (c *ExplanationComposer) Explain(ctx context.Context, description string) (ex Explanation) {
	ex = Explanation{
		Timestamp: c.opts.Now(),
		FailureContext: FailureContext{
			PipelineID:  c.opts.Labels.PipelineID,
			Environment: c.opts.Labels.Environment,
			Namespace:   c.opts.Namespace,
		},
		RootCauses:          []RootCause{},
		ContributingFactors: []ContributingFactor{},
		PreventionMeasures:  []string{},
		Confidence:          0.5,
	}

	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("Explanation panicked: %v", r)
			ex.Error = fmt.Sprintf("%v", r)
			ex.RootCauses = append(ex.RootCauses, RootCause{
				Cause:      InsightSystemError,
				Evidence:   "Explanation failed: " + ex.Error,
				Confidence: 1.0,
			})
			ex.Confidence = ExplanationConfidence(ex.RootCauses, ex.ContributingFactors)
		}
	}()

	snapshot := c.health.Analyze(ctx)
	correlation := c.correlator.Correlate(ctx)
	ex.Synthetic = snapshot.Synthetic

	description = strings.TrimSpace(description)
	if description == "" || description == AutoDetect {
		description = DescribeFailures(&snapshot, &correlation)
	}
	ex.FailureContext.Description = description

	for _, in := range snapshot.InsightsOfType(InsightStabilityConcern) {
		ex.RootCauses = append(ex.RootCauses, RootCause{
			Cause:      "pod_instability",
			Evidence:   in.Message,
			Confidence: in.Confidence,
		})
	}
	for _, corr := range correlation.Correlations {
		ex.ContributingFactors = append(ex.ContributingFactors, ContributingFactor{
			Factor:      "metric_event_correlation",
			Description: corr.Description,
			Confidence:  corr.Confidence,
		})
	}

	ex.ResolutionSteps = ResolutionSteps(c.opts.Namespace)
	ex.PreventionMeasures = preventionMeasures(&snapshot, ex.RootCauses, ex.ContributingFactors)
	ex.Confidence = ExplanationConfidence(ex.RootCauses, ex.ContributingFactors)
	return ex
}

// DescribeFailures lists not-ready and high-risk units, falling back to
// correlation anomalies and then to NoActiveFailures.
func DescribeFailures(snapshot *HealthSnapshot, correlation *CorrelationResult) string {
	var failures []string
	for _, name := range snapshot.UnitNames() {
		u := snapshot.Units[name]
		if !u.Ready || u.RiskScore > 70 {
			failures = append(failures, fmt.Sprintf("Pod %s: ready=%t, restarts=%d, risk=%s",
				name, u.Ready, u.RestartCount, formatScore(u.RiskScore)))
		}
	}
	if len(failures) == 0 && correlation != nil {
		for _, a := range correlation.Anomalies {
			failures = append(failures, a.Description)
		}
	}
	if len(failures) == 0 {
		return NoActiveFailures
	}
	return strings.Join(failures, "; ")
}

// ResolutionSteps is the fixed checklist for namespace.
func ResolutionSteps(namespace string) []ResolutionStep {
	return []ResolutionStep{
		{
			Step:        1,
			Action:      "immediate_assessment",
			Description: "Check pod status and recent events",
			Command:     fmt.Sprintf("kubectl get pods -n %s && kubectl get events -n %s --sort-by=.lastTimestamp", namespace, namespace),
		},
		{
			Step:        2,
			Action:      "log_analysis",
			Description: "Examine pod logs for error patterns",
			Command:     fmt.Sprintf("kubectl logs -n %s --tail=100 <pod>", namespace),
		},
		{
			Step:        3,
			Action:      "metric_correlation",
			Description: "Check metrics for anomalies",
			Command:     "Query error rates and resource utilization",
		},
	}
}

// ExplanationConfidence averages the per-group mean confidences of the
// non-empty groups, or returns 0.5 when both are empty.
func ExplanationConfidence(roots []RootCause, factors []ContributingFactor) float64 {
	var groups []float64
	if len(roots) > 0 {
		sum := 0.0
		for _, r := range roots {
			sum += r.Confidence
		}
		groups = append(groups, sum/float64(len(roots)))
	}
	if len(factors) > 0 {
		sum := 0.0
		for _, f := range factors {
			sum += f.Confidence
		}
		groups = append(groups, sum/float64(len(factors)))
	}
	if len(groups) == 0 {
		return 0.5
	}
	return clamp01(mean(groups))
}

func preventionMeasures(snapshot *HealthSnapshot, roots []RootCause, factors []ContributingFactor) []string {
	measures := []string{}
	if len(roots) > 0 {
		measures = append(measures,
			"Tune readiness and liveness probes to the application's startup time",
			"Alert on container restart rate before it reaches CrashLoopBackOff")
	}
	if len(factors) > 0 {
		measures = append(measures, "Alert on 5xx error rate above 0.01/sec")
	}

	imagePull := false
	for _, name := range snapshot.UnitNames() {
		for _, issue := range snapshot.Units[name].Issues {
			if strings.Contains(issue, "ImagePull") || strings.Contains(issue, "ErrImagePull") {
				imagePull = true
			}
		}
	}
	if imagePull {
		measures = append(measures, "Verify image tags and registry credentials in CI before deploying")
	}

	measures = append(measures, "Keep the deployment gate in blocking mode for production environments")
	return measures
}
