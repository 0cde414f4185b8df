package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/moolen/vigil/internal/analysis"
	"github.com/moolen/vigil/internal/config"
	"github.com/moolen/vigil/internal/endpoints"
	"github.com/moolen/vigil/internal/environment"
	"github.com/moolen/vigil/internal/logging"
	"github.com/moolen/vigil/internal/metrics"
	"github.com/moolen/vigil/internal/notify"
	"github.com/moolen/vigil/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

// Tool names, shared by the tools command and the MCP server.
const (
	ToolAnalyzeHealth = "analyze_system_health"
	ToolCorrelate     = "correlate_events_and_metrics"
	ToolPredict       = "predict_system_behavior"
	ToolExplain       = "explain_failure_with_context"
	ToolNotify        = "send_cicd_notification"
	ToolChaos         = "simulate_chaos_scenario"
)

// ToolNames lists every tool in presentation order.
func ToolNames() []string {
	return []string{ToolAnalyzeHealth, ToolCorrelate, ToolPredict, ToolExplain, ToolNotify, ToolChaos}
}

// Toolbox holds the analysis components wired for one detected environment.
type Toolbox struct {
	Profile   environment.Profile
	Endpoints map[string]string

	health     *analysis.HealthAnalyzer
	correlator *analysis.CorrelationEngine
	predictor  *analysis.Predictor
	composer   *analysis.ExplanationComposer
	notifier   notify.Sender
	metrics    *telemetry.RunMetrics
	now        func() time.Time
	logger     *logging.Logger
}

// NewToolbox detects the environment, resolves endpoints and wires the analyzers.
func NewToolbox(ctx context.Context, cfg *config.Config, deps Deps) (*Toolbox, error) {
	deps = deps.withDefaults(cfg)
	logger := logging.GetLogger("pipeline")

	classifier := environment.NewClassifier(deps.Host, environment.Options{
		Simulation:   cfg.Simulation,
		ProbeTimeout: cfg.ProbeTimeout,
		Observe:      deps.Metrics.ObserveProbe,
	})
	profile := classifier.Detect(ctx)
	logger.Info("Environment detected: %s", profile)

	eps := endpoints.Resolve(profile, endpoints.Overrides{
		environment.EndpointMetrics:   cfg.MetricsURL,
		environment.EndpointDashboard: cfg.DashboardURL,
	})

	querier := deps.Querier
	if querier == nil {
		q, err := metrics.New(eps[environment.EndpointMetrics], metrics.Options{
			QueryTimeout:      cfg.QueryTimeout,
			RangeQueryTimeout: cfg.RangeQueryTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create metrics client: %w", err)
		}
		querier = q
	}

	notifier := deps.Notifier
	if notifier == nil {
		notifier = notify.NewTelegram(notify.Options{
			Token:   cfg.TelegramToken,
			ChatID:  cfg.TelegramChatID,
			Timeout: cfg.NotifyTimeout,
			Now:     deps.Now,
			Context: notify.PipelineContext{
				PipelineID:   cfg.PipelineID,
				Environment:  cfg.Environment,
				Namespace:    cfg.Namespace,
				Commit:       cfg.CommitSHA,
				DashboardURL: eps[environment.EndpointDashboard],
				MetricsURL:   eps[environment.EndpointMetrics],
			},
		})
	}

	opts := analysis.Options{
		Namespace: cfg.Namespace,
		Labels: analysis.Labels{
			PipelineID:  cfg.PipelineID,
			CommitSHA:   cfg.CommitSHA,
			Environment: cfg.Environment,
		},
		Endpoints:          eps,
		SimulationMinUnits: cfg.SimulationMinUnits,
		SimulationMaxUnits: cfg.SimulationMaxUnits,
		Seed:               deps.Seed,
		Now:                deps.Now,
	}

	health := analysis.NewHealthAnalyzer(profile, deps.Source, querier, opts)
	correlator := analysis.NewCorrelationEngine(profile, deps.Source, querier, opts)

	return &Toolbox{
		Profile:    profile,
		Endpoints:  eps,
		health:     health,
		correlator: correlator,
		predictor:  analysis.NewPredictor(profile, querier, opts),
		composer:   analysis.NewExplanationComposer(health, correlator, opts),
		notifier:   notifier,
		metrics:    deps.Metrics,
		now:        deps.Now,
		logger:     logger,
	}, nil
}

func (t *Toolbox) observe(ctx context.Context, tool string) (context.Context, func(failed bool, err error)) {
	start := time.Now()
	ctx, span := telemetry.StartSpan(ctx, "tool."+tool,
		attribute.String("tool", tool),
		attribute.String("environment.kind", string(t.Profile.Kind())))
	return ctx, func(failed bool, err error) {
		if failed && err == nil {
			err = fmt.Errorf("%s reported an error", tool)
		}
		telemetry.EndSpan(span, err)
		t.metrics.ObserveTool(tool, time.Since(start), failed)
	}
}

// AnalyzeHealth runs the health analyzer.
func (t *Toolbox) AnalyzeHealth(ctx context.Context) analysis.HealthSnapshot {
	ctx, done := t.observe(ctx, ToolAnalyzeHealth)
	snap := t.health.Analyze(ctx)
	done(snap.Error != "", nil)
	return snap
}

// Correlate runs the correlation engine.
func (t *Toolbox) Correlate(ctx context.Context) analysis.CorrelationResult {
	ctx, done := t.observe(ctx, ToolCorrelate)
	res := t.correlator.Correlate(ctx)
	done(res.Error != "", nil)
	return res
}

// Predict runs trend prediction.
func (t *Toolbox) Predict(ctx context.Context) analysis.BehaviorPrediction {
	ctx, done := t.observe(ctx, ToolPredict)
	res := t.predictor.Predict(ctx)
	done(res.Error != "", nil)
	return res
}

// Explain composes a failure explanation.
func (t *Toolbox) Explain(ctx context.Context, description string) analysis.Explanation {
	ctx, done := t.observe(ctx, ToolExplain)
	ex := t.composer.Explain(ctx, description)
	done(ex.Error != "", nil)
	return ex
}

// Notify sends a notification. It never fails.
func (t *Toolbox) Notify(ctx context.Context, message string, severity notify.Severity) notify.Result {
	ctx, done := t.observe(ctx, ToolNotify)
	res := t.notifier.Send(ctx, message, severity)
	done(!res.Sent, nil)
	return res
}

// Chaos returns the plan for a chaos scenario.
func (t *Toolbox) Chaos(ctx context.Context, scenario string) (analysis.ChaosPlan, error) {
	_, done := t.observe(ctx, ToolChaos)
	plan, err := analysis.PlanChaos(scenario, t.now())
	done(err != nil, err)
	return plan, err
}

// Call invokes a tool by name with loosely typed arguments.
func (t *Toolbox) Call(ctx context.Context, name string, args map[string]any) (any, error) {
	switch name {
	case ToolAnalyzeHealth:
		return t.AnalyzeHealth(ctx), nil
	case ToolCorrelate:
		return t.Correlate(ctx), nil
	case ToolPredict:
		return t.Predict(ctx), nil
	case ToolExplain:
		return t.Explain(ctx, stringArg(args, "failure_description", analysis.AutoDetect)), nil
	case ToolNotify:
		message := stringArg(args, "message", "")
		if message == "" {
			return nil, fmt.Errorf("%s requires a message", ToolNotify)
		}
		return t.Notify(ctx, message, notify.Severity(stringArg(args, "severity", string(notify.SeverityInfo)))), nil
	case ToolChaos:
		return t.Chaos(ctx, stringArg(args, "scenario_type", "latency"))
	default:
		return nil, fmt.Errorf("unknown tool %q", name)
	}
}

func stringArg(args map[string]any, key, fallback string) string {
	if v, ok := args[key].(string); ok && v != "" {
		return v
	}
	return fallback
}
