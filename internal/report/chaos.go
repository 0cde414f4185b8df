package report

import (
	"strings"

	"github.com/moolen/vigil/internal/analysis"
)

// RenderChaos prints a chaos scenario plan.
func (p *Printer) RenderChaos(plan analysis.ChaosPlan) {
	p.println(p.title.Render("🧪 Chaos scenario: " + plan.Scenario))
	p.rule()
	p.println(plan.Description)
	p.printf("%s %s\n", p.label.Render("Predicted severity:"), p.severity(plan.Severity))

	p.list("Expected impacts", plan.ExpectedImpacts)
	p.list("Monitoring points", plan.MonitoringPoints)
	p.list("Success criteria", plan.SuccessCriteria)
	p.list("Predictions", plan.Predictions)
	p.println("")
	p.println(p.muted.Render("Plan only: nothing was injected."))
	p.rule()
}

func (p *Printer) severity(s string) string {
	switch strings.ToLower(s) {
	case "high", "critical":
		return p.danger.Render(s)
	case "medium":
		return p.warning.Render(s)
	default:
		return p.success.Render(s)
	}
}

func (p *Printer) list(title string, items []string) {
	if len(items) == 0 {
		return
	}
	p.section(title)
	for _, item := range items {
		p.println("  • " + item)
	}
}
