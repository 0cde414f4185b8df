package pipeline

import (
	"fmt"

	"github.com/moolen/vigil/internal/analysis"
)

// Exit codes of a check run.
const (
	ExitPass    = 0
	ExitBlocked = 1
	ExitError   = 2
)

// Outcome is the gate decision of a run.
type Outcome string

const (
	OutcomePass Outcome = "pass"
	// OutcomeBlocked fails the pipeline.
	OutcomeBlocked Outcome = "blocked"
	// OutcomeWouldBlock is reported for simulated runs that would have blocked.
	OutcomeWouldBlock Outcome = "would_block"
	// OutcomeAdvisory is reported when blocking mode is off and issues were found.
	OutcomeAdvisory Outcome = "advisory"
	OutcomeError    Outcome = "error"
)

// Verdict is the gate decision and the facts it was based on.
type Verdict struct {
	Outcome        Outcome                  `json:"outcome"`
	ExitCode       int                      `json:"exit_code"`
	Score          float64                  `json:"health_score"`
	Threshold      float64                  `json:"threshold"`
	CriticalIssues []analysis.CriticalIssue `json:"critical_issues"`
	Reasons        []string                 `json:"reasons"`
	Simulated      bool                     `json:"simulated"`
}

// Decide applies the gate: a run fails when blocking is on and there is at
// least one critical issue or the score is below threshold. Simulated runs
// never fail.
func Decide(snap *analysis.HealthSnapshot, blocking bool, threshold float64) Verdict {
	v := Verdict{
		Score:          snap.Score,
		Threshold:      threshold,
		CriticalIssues: snap.CriticalIssues(),
		Reasons:        []string{},
		Simulated:      snap.Synthetic,
	}
	if v.CriticalIssues == nil {
		v.CriticalIssues = []analysis.CriticalIssue{}
	}

	if n := len(v.CriticalIssues); n > 0 {
		v.Reasons = append(v.Reasons, fmt.Sprintf("%d critical issue(s) detected", n))
	}
	if snap.Score < threshold {
		v.Reasons = append(v.Reasons, fmt.Sprintf("health score %.1f below threshold %.0f", snap.Score, threshold))
	}
	failing := len(v.Reasons) > 0

	switch {
	case !failing:
		v.Outcome, v.ExitCode = OutcomePass, ExitPass
	case snap.Synthetic:
		v.Outcome, v.ExitCode = OutcomeWouldBlock, ExitPass
	case !blocking:
		v.Outcome, v.ExitCode = OutcomeAdvisory, ExitPass
	default:
		v.Outcome, v.ExitCode = OutcomeBlocked, ExitBlocked
	}
	return v
}

func errorVerdict(reason string) Verdict {
	return Verdict{
		Outcome:        OutcomeError,
		ExitCode:       ExitError,
		CriticalIssues: []analysis.CriticalIssue{},
		Reasons:        []string{reason},
	}
}
