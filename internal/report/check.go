package report

import (
	"fmt"
	"strings"

	"github.com/moolen/vigil/internal/analysis"
	"github.com/moolen/vigil/internal/pipeline"
)

// RenderCheck prints the report of a check run.
func (p *Printer) RenderCheck(res pipeline.Result) {
	p.println(p.title.Render("🤖 vigil deployment health check"))
	p.rule()
	if cfg := res.Config; cfg != nil {
		p.printf("Pipeline: %s | Environment: %s | Namespace: %s\n", cfg.PipelineID, cfg.Environment, cfg.Namespace)
		p.rule()
		mode := "Enabled"
		if !cfg.BlockingMode {
			mode = "Disabled"
		}
		p.printf("🔒 Blocking Mode: %s\n", mode)
	}
	if res.Profile.Kind != "" {
		p.printf("🌍 Environment: %s (cluster reachable: %t)\n", res.Profile.Kind, res.Profile.ClusterReachable)
	}

	if snap := res.Snapshot; snap != nil {
		if snap.Synthetic {
			p.println("")
			p.println(p.warning.Render("🎭 SIMULATION MODE ANALYSIS (all data below is simulated)"))
		}
		p.renderUnits(snap)
		p.renderInsights(snap)
	}

	if issues := res.Verdict.CriticalIssues; len(issues) > 0 {
		p.section("Critical issues")
		for _, issue := range issues {
			p.println(p.danger.Render(fmt.Sprintf("🚨 CRITICAL: Pod %s is %s", issue.Unit, issue.Detail)))
		}
	}

	if ex := res.Explanation; ex != nil {
		p.renderExplanation(ex)
	}

	if n := res.Narrative; n != nil && (n.Text != "" || n.Error != "") {
		p.section(fmt.Sprintf("Analysis (%s)", n.Provider))
		if n.Text != "" {
			p.println(p.renderMarkdown(n.Text))
		} else {
			p.println(p.muted.Render("narrative unavailable: " + n.Error))
		}
	}

	p.println("")
	if res.Snapshot != nil {
		p.printf("📊 System Health Score: %.1f/100\n", res.Snapshot.Score)
	}
	p.printf("🚨 Critical Issues Found: %d\n", len(res.Verdict.CriticalIssues))
	p.println(p.verdictLine(res))

	if res.Notified != nil {
		p.println(p.muted.Render("📨 " + res.Notified.String()))
	}
	p.rule()
}

func (p *Printer) renderUnits(snap *analysis.HealthSnapshot) {
	if len(snap.Units) == 0 {
		return
	}
	p.section("Workload units")
	for _, name := range snap.UnitNames() {
		u := snap.Units[name]
		mark := p.success.Render("✅")
		if !u.Ready {
			mark = p.danger.Render("❌")
		}
		p.printf("%s %-40s %-10s restarts=%-3d risk=%.0f\n", mark, name, u.Phase, u.RestartCount, u.RiskScore)
		for _, issue := range u.Issues {
			p.println(p.muted.Render("     " + issue))
		}
	}
}

func (p *Printer) renderInsights(snap *analysis.HealthSnapshot) {
	if len(snap.Insights) == 0 && len(snap.Predictions) == 0 {
		return
	}
	p.section("Insights")
	for _, in := range snap.Insights {
		p.printf("💡 %s %s\n", in.Message, p.muted.Render(fmt.Sprintf("(%.0f%%)", in.Confidence*100)))
	}
	for _, pr := range snap.Predictions {
		p.printf("🔮 %s %s\n", pr.Message, p.muted.Render(fmt.Sprintf("(%.0f%%, %s)", pr.Probability*100, pr.Timeframe)))
	}
	for _, rec := range snap.Recommendations {
		p.printf("👉 [%s] %s\n", rec.Priority, rec.Description)
	}
}

func (p *Printer) renderExplanation(ex *analysis.Explanation) {
	p.section("Failure explanation")
	p.printf("%s %s\n", p.label.Render("Failure:"), ex.FailureContext.Description)
	for _, rc := range ex.RootCauses {
		p.printf("  • root cause %s: %s (%.0f%%)\n", rc.Cause, rc.Evidence, rc.Confidence*100)
	}
	for _, f := range ex.ContributingFactors {
		p.printf("  • %s (%.0f%%)\n", f.Description, f.Confidence*100)
	}
	for _, step := range ex.ResolutionSteps {
		p.printf("  %d. %s: %s\n", step.Step, step.Description, p.muted.Render(step.Command))
	}
}

func (p *Printer) verdictLine(res pipeline.Result) string {
	v := res.Verdict
	switch v.Outcome {
	case pipeline.OutcomePass:
		if v.Simulated {
			return p.success.Render("✅ SIMULATION: System health acceptable")
		}
		return p.success.Render("✅ System health acceptable - Pipeline can continue")
	case pipeline.OutcomeWouldBlock:
		return p.warning.Render("❌ SIMULATION: Issues detected - would block in real mode")
	case pipeline.OutcomeAdvisory:
		return p.warning.Render("ℹ️  Non-blocking mode - Pipeline continues regardless of issues")
	case pipeline.OutcomeBlocked:
		if len(v.CriticalIssues) > 0 {
			return p.danger.Render("❌ CRITICAL ISSUES DETECTED - Pipeline blocked")
		}
		return p.danger.Render(fmt.Sprintf("⚠️  HEALTH SCORE BELOW THRESHOLD (%.0f) - Pipeline blocked", v.Threshold))
	default:
		return p.danger.Render("💥 Check failed: " + strings.Join(v.Reasons, "; "))
	}
}
