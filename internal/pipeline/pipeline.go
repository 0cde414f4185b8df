// Package pipeline runs a deployment health check end to end and decides the
// exit code of the CI step.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/moolen/vigil/internal/analysis"
	"github.com/moolen/vigil/internal/config"
	"github.com/moolen/vigil/internal/environment"
	"github.com/moolen/vigil/internal/logging"
	"github.com/moolen/vigil/internal/narrative"
	"github.com/moolen/vigil/internal/notify"
	"github.com/moolen/vigil/internal/telemetry"
)

// Result is everything a check run produced.
type Result struct {
	Config      *config.Config           `json:"-"`
	Profile     environment.ProfileData  `json:"environment"`
	Endpoints   map[string]string        `json:"endpoints"`
	Snapshot    *analysis.HealthSnapshot `json:"health,omitempty"`
	Explanation *analysis.Explanation    `json:"explanation,omitempty"`
	Verdict     Verdict                  `json:"verdict"`
	Narrative   *NarrativeResult         `json:"narrative,omitempty"`
	Notified    *notify.Result           `json:"notification,omitempty"`
	Error       string                   `json:"error,omitempty"`
}

// NarrativeResult is the outcome of the narrative step.
type NarrativeResult struct {
	Provider string `json:"provider"`
	Text     string `json:"text,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Pipeline is a single check run.
type Pipeline struct {
	cfg    *config.Config
	deps   Deps
	logger *logging.Logger
}

// New creates a pipeline. cfg must already be validated.
func New(cfg *config.Config, deps Deps) *Pipeline {
	return &Pipeline{
		cfg:    cfg,
		deps:   deps.withDefaults(cfg),
		logger: logging.GetLogger("pipeline"),
	}
}

// Run executes the check. It never panics: any failure yields exit code 2 and
// a best-effort critical notification.
func (p *Pipeline) Run(ctx context.Context) (res Result) {
	res.Config = p.cfg
	ctx, span := telemetry.StartSpan(ctx, "vigil.check")

	defer func() {
		if r := recover(); r != nil {
			p.fail(ctx, &res, fmt.Errorf("panic: %v", r))
		}
		p.recordMetrics(&res)
		var err error
		if res.Error != "" {
			err = errors.New(res.Error)
		}
		telemetry.EndSpan(span, err)
	}()

	tb, err := NewToolbox(ctx, p.cfg, p.deps)
	if err != nil {
		p.fail(ctx, &res, err)
		return res
	}
	res.Profile = tb.Profile.Data()
	res.Endpoints = tb.Endpoints

	snap := tb.AnalyzeHealth(ctx)
	res.Snapshot = &snap
	res.Verdict = Decide(&snap, p.cfg.BlockingMode, p.cfg.BlockingThreshold)
	p.logger.Info("Health score %.1f, %d critical issue(s), outcome %s",
		snap.Score, len(res.Verdict.CriticalIssues), res.Verdict.Outcome)

	if len(res.Verdict.CriticalIssues) > 0 && !snap.Synthetic {
		ex := tb.Explain(ctx, analysis.AutoDetect)
		res.Explanation = &ex
	}

	res.Narrative = p.narrate(ctx, tb.Profile, &snap, res.Explanation)
	res.Notified = p.notifyOutcome(ctx, tb, &res)
	return res
}

func (p *Pipeline) narrate(ctx context.Context, profile environment.Profile, snap *analysis.HealthSnapshot, ex *analysis.Explanation) *NarrativeResult {
	gen := p.deps.Narrator
	switch {
	case profile.Kind().Synthetic():
		gen = narrative.Noop{}
	case gen == nil:
		var err error
		gen, err = narrative.New(ctx, narrative.SettingsFromConfig(p.cfg))
		if err != nil {
			p.logger.Warn("Narrative disabled: %v", err)
			return &NarrativeResult{Provider: "none", Error: err.Error()}
		}
	}

	out := &NarrativeResult{Provider: gen.Name()}
	if _, noop := gen.(narrative.Noop); noop {
		return out
	}

	system := narrative.SystemPrompt(narrative.PromptContext{
		Profile:     profile,
		PipelineID:  p.cfg.PipelineID,
		Environment: p.cfg.Environment,
		Namespace:   p.cfg.Namespace,
	})
	query := narrative.Query(p.cfg.Environment, snap, ex)

	nctx, cancel := context.WithTimeout(ctx, p.cfg.NarrativeTimeout)
	defer cancel()
	nctx, span := telemetry.StartSpan(nctx, "vigil.narrative")
	text, err := gen.Generate(nctx, system, query)
	telemetry.EndSpan(span, err)
	if err != nil {
		p.logger.Warn("Narrative generation failed: %v", err)
		out.Error = err.Error()
		return out
	}
	out.Text = text
	return out
}

// notifyOutcome sends a notification for every outcome other than pass.
// SimulationBanner heads every notification built from synthetic data.
const SimulationBanner = "🎭 SIMULATION (synthetic data)"

func (p *Pipeline) notifyOutcome(ctx context.Context, tb *Toolbox, res *Result) *notify.Result {
	v := res.Verdict
	var severity notify.Severity
	switch v.Outcome {
	case OutcomeBlocked:
		severity = notify.SeverityCritical
	case OutcomeWouldBlock, OutcomeAdvisory:
		severity = notify.SeverityWarning
	default:
		return nil
	}

	var b strings.Builder
	if v.Simulated {
		b.WriteString(SimulationBanner + "\n")
	}
	fmt.Fprintf(&b, "Deployment %s: health score %.1f/100\n", strings.ReplaceAll(string(v.Outcome), "_", " "), v.Score)
	for _, issue := range v.CriticalIssues {
		fmt.Fprintf(&b, "• %s: %s\n", issue.Unit, issue.Detail)
	}
	for _, reason := range v.Reasons {
		fmt.Fprintf(&b, "• %s\n", reason)
	}
	if res.Narrative != nil && res.Narrative.Text != "" {
		b.WriteString("\n" + res.Narrative.Text)
	}

	sent := tb.Notify(ctx, strings.TrimSpace(b.String()), severity)
	return &sent
}

// fail turns err into an error verdict and sends a critical notification if it can.
func (p *Pipeline) fail(ctx context.Context, res *Result, err error) {
	p.logger.Error("Check failed: %v", err)
	res.Error = err.Error()
	res.Verdict = errorVerdict(err.Error())

	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("Failure notification panicked: %v", r)
		}
	}()

	sender := p.deps.Notifier
	if sender == nil {
		sender = notify.NewTelegram(notify.Options{
			Token:   p.cfg.TelegramToken,
			ChatID:  p.cfg.TelegramChatID,
			Timeout: p.cfg.NotifyTimeout,
			Now:     p.deps.Now,
			Context: notify.PipelineContext{
				PipelineID:  p.cfg.PipelineID,
				Environment: p.cfg.Environment,
				Namespace:   p.cfg.Namespace,
				Commit:      p.cfg.CommitSHA,
			},
		})
	}
	text := "Observability check failed: " + err.Error()
	if res.Snapshot != nil && res.Snapshot.Synthetic {
		text = SimulationBanner + "\n" + text
	}
	sent := sender.Send(ctx, text, notify.SeverityCritical)
	res.Notified = &sent
}

func (p *Pipeline) recordMetrics(res *Result) {
	m := p.deps.Metrics
	m.ExitCode.Set(float64(res.Verdict.ExitCode))
	m.CriticalUnits.Set(float64(len(res.Verdict.CriticalIssues)))
	if res.Snapshot != nil {
		m.HealthScore.Set(res.Snapshot.Score)
		m.Units.Set(float64(len(res.Snapshot.Units)))
	}
}
