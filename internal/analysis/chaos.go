package analysis

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// ChaosScenario describes what a fault is expected to do and how to observe it.
// Nothing is ever injected.
type ChaosScenario struct {
	Description      string
	ExpectedImpacts  []string
	MonitoringPoints []string
	SuccessCriteria  []string
	Severity         string
}

var chaosScenarios = map[string]ChaosScenario{
	"latency": {
		Description:      "Inject network latency to test response time monitoring",
		ExpectedImpacts:  []string{"Increased P95/P99 latency", "Potential timeout errors"},
		MonitoringPoints: []string{"http_request_duration_seconds", "error rates"},
		SuccessCriteria:  []string{"Latency spike detected", "Alerts triggered within 2 minutes"},
		Severity:         "medium",
	},
	"cpu_spike": {
		Description:      "Simulate CPU pressure to test resource monitoring",
		ExpectedImpacts:  []string{"High CPU utilization", "Potential pod throttling"},
		MonitoringPoints: []string{"container_cpu_usage_seconds_total", "pod restarts"},
		SuccessCriteria:  []string{"Resource exhaustion predicted", "Auto-scaling triggered"},
		Severity:         "high",
	},
	"memory_leak": {
		Description:      "Simulate memory leak to test predictive capabilities",
		ExpectedImpacts:  []string{"Gradual memory increase", "OOMKilled events"},
		MonitoringPoints: []string{"container_memory_usage_bytes", "pod events"},
		SuccessCriteria:  []string{"OOM predicted before it happens", "Proactive scaling"},
		Severity:         "critical",
	},
	"network_partition": {
		Description:      "Simulate network issues to test service mesh monitoring",
		ExpectedImpacts:  []string{"Service connectivity issues", "Circuit breaker activation"},
		MonitoringPoints: []string{"service mesh metrics", "connection errors"},
		SuccessCriteria:  []string{"Network and application metrics correlated"},
		Severity:         "high",
	},
}

// ChaosPlan is the read-only plan for one scenario.
type ChaosPlan struct {
	Timestamp        time.Time `json:"timestamp"`
	Scenario         string    `json:"scenario"`
	Description      string    `json:"description"`
	ExpectedImpacts  []string  `json:"expected_impacts"`
	MonitoringPoints []string  `json:"monitoring_points"`
	SuccessCriteria  []string  `json:"success_criteria"`
	Predictions      []string  `json:"predictions"`
	Severity         string    `json:"severity"`
}

// ChaosScenarioNames returns the known scenarios in sorted order.
func ChaosScenarioNames() []string {
	names := make([]string, 0, len(chaosScenarios))
	for name := range chaosScenarios {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ScenarioSeverity returns the predicted severity of a scenario, medium if unknown.
func ScenarioSeverity(name string) string {
	if s, ok := chaosScenarios[name]; ok {
		return s.Severity
	}
	return "medium"
}

// PlanChaos returns the plan for name or an error listing the known scenarios.
func PlanChaos(name string, now time.Time) (ChaosPlan, error) {
	s, ok := chaosScenarios[name]
	if !ok {
		return ChaosPlan{}, fmt.Errorf("unknown chaos scenario %q (known: %s)", name, strings.Join(ChaosScenarioNames(), ", "))
	}
	return ChaosPlan{
		Timestamp:        now,
		Scenario:         name,
		Description:      s.Description,
		ExpectedImpacts:  append([]string(nil), s.ExpectedImpacts...),
		MonitoringPoints: append([]string(nil), s.MonitoringPoints...),
		SuccessCriteria:  append([]string(nil), s.SuccessCriteria...),
		Severity:         s.Severity,
		Predictions: []string{
			"Expected detection time: 30-60 seconds",
			"Predicted impact severity: " + s.Severity,
			"Recommended monitoring focus: " + strings.Join(s.MonitoringPoints, ", "),
		},
	}, nil
}
