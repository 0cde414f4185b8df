package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChaosScenarioNames(t *testing.T) {
	assert.Equal(t, []string{"cpu_spike", "latency", "memory_leak", "network_partition"}, ChaosScenarioNames())
}

func TestScenarioSeverity(t *testing.T) {
	tests := map[string]string{
		"latency":           "medium",
		"cpu_spike":         "high",
		"memory_leak":       "critical",
		"network_partition": "high",
		"disk_fill":         "medium",
	}
	for name, want := range tests {
		assert.Equal(t, want, ScenarioSeverity(name), name)
	}
}

func TestPlanChaos(t *testing.T) {
	plan, err := PlanChaos("memory_leak", fixedNow)
	require.NoError(t, err)

	assert.Equal(t, "memory_leak", plan.Scenario)
	assert.Equal(t, fixedNow, plan.Timestamp)
	assert.Equal(t, "critical", plan.Severity)
	assert.Contains(t, plan.Predictions, "Predicted impact severity: critical")
	assert.Contains(t, plan.ExpectedImpacts, "OOMKilled events")

	plan.MonitoringPoints[0] = "mutated"
	again, err := PlanChaos("memory_leak", fixedNow)
	require.NoError(t, err)
	assert.Equal(t, "container_memory_usage_bytes", again.MonitoringPoints[0])
}

func TestPlanChaos_Unknown(t *testing.T) {
	_, err := PlanChaos("disk_fill", fixedNow)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cpu_spike, latency, memory_leak, network_partition")
}
