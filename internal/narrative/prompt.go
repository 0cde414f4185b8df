package narrative

import (
	"fmt"
	"sort"
	"strings"

	"github.com/moolen/vigil/internal/analysis"
	"github.com/moolen/vigil/internal/environment"
)

// PromptContext is everything the system prompt depends on.
type PromptContext struct {
	Profile     environment.Profile
	PipelineID  string
	Environment string
	Namespace   string
}

// SystemPrompt builds the system prompt. The same context always yields the same text.
func SystemPrompt(pc PromptContext) string {
	p := pc.Profile
	cloud := string(p.CloudProvider())
	if cloud == "" {
		cloud = "None"
	}

	var b strings.Builder
	b.WriteString("You are an observability assistant that gates CI/CD deployments.\n\n")
	b.WriteString("**Environment Context:**\n")
	fmt.Fprintf(&b, "- Type: %s\n", p.Kind())
	fmt.Fprintf(&b, "- Pipeline: %s | Environment: %s | Namespace: %s\n", pc.PipelineID, pc.Environment, pc.Namespace)
	fmt.Fprintf(&b, "- Kubernetes Available: %t\n", p.ClusterReachable())
	fmt.Fprintf(&b, "- Cloud Provider: %s\n", cloud)
	fmt.Fprintf(&b, "- Auth Method: %s\n\n", p.AuthMethod())

	b.WriteString("**Available Capabilities:**\n")
	caps := p.Capabilities()
	names := make([]string, 0, len(caps))
	for name := range caps {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		status := "❌"
		if caps[name] {
			status = "✅"
		}
		fmt.Fprintf(&b, "- %s: %s\n", name, status)
	}
	b.WriteString("\n")

	switch {
	case p.Kind().Synthetic():
		b.WriteString(simulationRules)
	case !p.ClusterReachable():
		b.WriteString(externalRules)
	default:
		b.WriteString(strings.ReplaceAll(clusterRules, "{namespace}", pc.Namespace))
	}

	b.WriteString("\nBE PRECISE. The analysis data in the request is authoritative; never invent pods, events or metrics.\n")
	return b.String()
}

const simulationRules = `**SIMULATION MODE RULES:**
1. ALWAYS mention this is simulation mode
2. Focus on demonstrating what the analysis can do
3. Provide educational insights about observability
4. Suggest real-world setup steps
5. Maximum 200 words total

**Response Format:**
` + "```" + `
🎭 SIMULATION MODE ANALYSIS

**Simulated Health:** [Score]/100
**Insights:** [Key observations from simulated data]
**Learning Points:** [What this demonstrates]
**Next Steps:** [How to implement in real environment]
` + "```\n"

const externalRules = `**EXTERNAL MONITORING RULES:**
1. Work with available external endpoints
2. Acknowledge limited visibility
3. Provide setup recommendations
4. Focus on available metrics
5. Maximum 150 words total

**Response Format:**
` + "```" + `
📊 EXTERNAL MONITORING ANALYSIS

**Health Score:** [X]/100 (based on available data)
**Data Sources:** [What monitoring is available]
**Recommendations:** [How to improve observability]
**Action:** [Whether deployment should proceed]
` + "```\n"

const clusterRules = `**KUBERNETES MONITORING RULES:**
1. If ANY pod is not ready, this is CRITICAL
2. Explain the failure using the root causes and correlations provided
3. Give EXACT kubectl commands, not generic advice
4. Maximum 150 words total

**Response Format:**
For Problems:
` + "```" + `
🚨 DEPLOYMENT BLOCKED

**Problem:** [Exact issue - e.g., "Pod checkout-xxx has ImagePullBackOff"]
**Root Cause:** [Technical reason - e.g., "Container image cannot be pulled"]
**Impact:** [e.g., "33% capacity reduction, service degraded"]

**Immediate Actions:**
1. kubectl describe pod [POD_NAME] -n {namespace}
2. [Specific fix - e.g., "Fix image tag in deployment"]
3. kubectl get events -n {namespace} --sort-by=.lastTimestamp
` + "```" + `

For Healthy Systems:
` + "```" + `
✅ DEPLOYMENT APPROVED

**Status:** All pods running normally
**Health Score:** [X]/100
**Action:** Deployment can proceed safely
` + "```\n"

// UnitIssues describes every not-ready unit, one line each.
func UnitIssues(snap *analysis.HealthSnapshot) []string {
	var issues []string
	for _, name := range snap.UnitNames() {
		u := snap.Units[name]
		if u.Ready {
			continue
		}
		if len(u.Issues) > 0 {
			issues = append(issues, fmt.Sprintf("Pod %s: %s", name, strings.Join(u.Issues, ", ")))
		} else {
			issues = append(issues, fmt.Sprintf("Pod %s: %s state", name, u.Phase))
		}
	}
	return issues
}

// Query builds the request for a finished run. ex may be nil.
func Query(environmentName string, snap *analysis.HealthSnapshot, ex *analysis.Explanation) string {
	var b strings.Builder
	issues := UnitIssues(snap)

	if len(issues) > 0 {
		fmt.Fprintf(&b, "CRITICAL ISSUES DETECTED in %s:\n", environmentName)
		for _, issue := range issues {
			b.WriteString(issue + "\n")
		}
		b.WriteString("\nProvide EXACTLY the problem format (max 150 words): problem, root cause, impact and three immediate actions.\n")
	} else {
		fmt.Fprintf(&b, "System appears healthy in %s.\n\nProvide a brief confirmation in the healthy format.\n", environmentName)
	}

	fmt.Fprintf(&b, "\n**Analysis:**\n- Health score: %.1f/100\n- Units analyzed: %d\n", snap.Score, len(snap.Units))
	for _, issue := range snap.CriticalIssues() {
		fmt.Fprintf(&b, "- Critical: %s %s\n", issue.Unit, issue.Detail)
	}
	for _, in := range snap.Insights {
		fmt.Fprintf(&b, "- Insight (%s, %.2f): %s\n", in.Type, in.Confidence, in.Message)
	}
	for _, pr := range snap.Predictions {
		fmt.Fprintf(&b, "- Prediction (%s, %.2f): %s\n", pr.Type, pr.Probability, pr.Message)
	}

	if ex != nil {
		for _, rc := range ex.RootCauses {
			fmt.Fprintf(&b, "- Root cause (%.2f): %s\n", rc.Confidence, rc.Evidence)
		}
		for _, f := range ex.ContributingFactors {
			fmt.Fprintf(&b, "- Contributing factor (%.2f): %s\n", f.Confidence, f.Description)
		}
	}
	if snap.Synthetic {
		b.WriteString("\nAll data above is simulated.\n")
	}
	return b.String()
}
