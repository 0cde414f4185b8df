package anomaly

import (
	"fmt"
	"sort"

	corev1 "k8s.io/api/core/v1"
)

// EventAnomaly groups Warning events that share a reason.
type EventAnomaly struct {
	Reason   string   `json:"reason"`
	Severity Severity `json:"severity"`
	Count    int      `json:"count"`
	Objects  []string `json:"objects"`
	Summary  string   `json:"summary"`
}

// DetectEventAnomalies groups non-benign Warning events by reason, worst first.
// Count sums the events' own repeat counters.
func DetectEventAnomalies(events []corev1.Event) []EventAnomaly {
	byReason := make(map[string]*EventAnomaly)
	seen := make(map[string]map[string]bool)

	for _, e := range events {
		if e.Type != corev1.EventTypeWarning || IsBenignEventReason(e.Reason) {
			continue
		}
		a, ok := byReason[e.Reason]
		if !ok {
			a = &EventAnomaly{Reason: e.Reason, Severity: ClassifyEventSeverity(e.Reason)}
			byReason[e.Reason] = a
			seen[e.Reason] = make(map[string]bool)
		}

		count := int(e.Count)
		if count < 1 {
			count = 1
		}
		a.Count += count

		obj := e.InvolvedObject.Name
		if e.InvolvedObject.Kind != "" {
			obj = e.InvolvedObject.Kind + "/" + obj
		}
		if !seen[e.Reason][obj] {
			seen[e.Reason][obj] = true
			a.Objects = append(a.Objects, obj)
		}
	}

	out := make([]EventAnomaly, 0, len(byReason))
	for _, a := range byReason {
		sort.Strings(a.Objects)
		a.Summary = fmt.Sprintf("%d %s warning(s) on %d object(s)", a.Count, a.Reason, len(a.Objects))
		out = append(out, *a)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Severity.Rank() != out[j].Severity.Rank() {
			return out[i].Severity.Rank() > out[j].Severity.Rank()
		}
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Reason < out[j].Reason
	})
	return out
}
