package telemetry

import (
	"context"
	"fmt"
	"time"

	"github.com/moolen/vigil/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// RunMetrics holds the gauges describing one run. They are pushed to a
// Pushgateway on Stop because a CLI run ends before any scrape.
type RunMetrics struct {
	HealthScore   prometheus.Gauge
	CriticalUnits prometheus.Gauge
	Units         prometheus.Gauge
	ExitCode      prometheus.Gauge
	ProbeDuration *prometheus.GaugeVec
	ToolDuration  *prometheus.GaugeVec
	ToolErrors    *prometheus.CounterVec

	registry   *prometheus.Registry
	gatewayURL string
	pipelineID string
	logger     *logging.Logger
}

// NewRunMetrics registers the run gauges on a private registry.
// An empty gatewayURL makes Stop a no-op.
func NewRunMetrics(gatewayURL, pipelineID string) *RunMetrics {
	reg := prometheus.NewRegistry()

	healthScore := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "vigil_health_score",
		Help: "Aggregate health score of the last run (0-100)",
	})
	criticalUnits := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "vigil_critical_units",
		Help: "Number of critical unit issues found in the last run",
	})
	units := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "vigil_units_analyzed",
		Help: "Number of workload units analyzed in the last run",
	})
	exitCode := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "vigil_exit_code",
		Help: "Exit code of the last run (0 pass, 1 blocked, 2 error)",
	})
	probeDuration := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "vigil_probe_duration_seconds",
		Help: "Duration of each environment probe",
	}, []string{"probe", "matched"})
	toolDuration := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "vigil_tool_duration_seconds",
		Help: "Duration of each analysis tool call",
	}, []string{"tool"})
	toolErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vigil_tool_errors_total",
		Help: "Tool calls that reported an error",
	}, []string{"tool"})

	reg.MustRegister(healthScore)
	reg.MustRegister(criticalUnits)
	reg.MustRegister(units)
	reg.MustRegister(exitCode)
	reg.MustRegister(probeDuration)
	reg.MustRegister(toolDuration)
	reg.MustRegister(toolErrors)

	return &RunMetrics{
		HealthScore:   healthScore,
		CriticalUnits: criticalUnits,
		Units:         units,
		ExitCode:      exitCode,
		ProbeDuration: probeDuration,
		ToolDuration:  toolDuration,
		ToolErrors:    toolErrors,
		registry:      reg,
		gatewayURL:    gatewayURL,
		pipelineID:    pipelineID,
		logger:        logging.GetLogger("telemetry"),
	}
}

// ObserveProbe matches the environment classifier's observe hook.
func (m *RunMetrics) ObserveProbe(probe string, elapsed time.Duration, matched bool) {
	m.ProbeDuration.WithLabelValues(probe, fmt.Sprintf("%t", matched)).Set(elapsed.Seconds())
}

// ObserveTool records one tool call.
func (m *RunMetrics) ObserveTool(tool string, elapsed time.Duration, failed bool) {
	m.ToolDuration.WithLabelValues(tool).Set(elapsed.Seconds())
	if failed {
		m.ToolErrors.WithLabelValues(tool).Inc()
	}
}

// Registry exposes the private registry, mainly for tests.
func (m *RunMetrics) Registry() *prometheus.Registry {
	return m.registry
}

// Push sends all gauges to the Pushgateway, grouped by pipeline id.
func (m *RunMetrics) Push(ctx context.Context) error {
	if m.gatewayURL == "" {
		return nil
	}
	err := push.New(m.gatewayURL, "vigil").
		Gatherer(m.registry).
		Grouping("pipeline_id", m.pipelineID).
		PushContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to push run metrics: %w", err)
	}
	m.logger.Debug("Pushed run metrics to %s", m.gatewayURL)
	return nil
}

func (m *RunMetrics) Start(ctx context.Context) error { return nil }

// Stop pushes the final values.
func (m *RunMetrics) Stop(ctx context.Context) error {
	return m.Push(ctx)
}

func (m *RunMetrics) Name() string { return "Run Metrics" }
