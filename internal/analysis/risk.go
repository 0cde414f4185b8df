package analysis

import (
	"fmt"
	"time"

	corev1 "k8s.io/api/core/v1"
)

// waitingReasonsAtRisk add a flat penalty when any container waits for one of them.
var waitingReasonsAtRisk = map[string]bool{
	"CrashLoopBackOff": true,
	"ImagePullBackOff": true,
}

// RiskScore estimates a pod's likelihood of imminent failure in [0,100]:
// min(restarts*20, 60), plus 40 when not Running, plus 20 per not-ready
// container, plus 30 once if any container waits in CrashLoopBackOff or
// ImagePullBackOff.
func RiskScore(pod *corev1.Pod) float64 {
	restarts := 0
	for _, cs := range pod.Status.ContainerStatuses {
		restarts += int(cs.RestartCount)
	}

	risk := restartRisk(restarts)
	if pod.Status.Phase != corev1.PodRunning {
		risk += 40
	}

	waitingAtRisk := false
	for _, cs := range pod.Status.ContainerStatuses {
		if !cs.Ready {
			risk += 20
		}
		if w := cs.State.Waiting; w != nil && waitingReasonsAtRisk[w.Reason] {
			waitingAtRisk = true
		}
	}
	if waitingAtRisk {
		risk += 30
	}

	return clamp(risk, 0, 100)
}

func restartRisk(restarts int) float64 {
	if restarts <= 0 {
		return 0
	}
	if restarts >= 3 {
		return 60
	}
	return float64(restarts * 20)
}

// AggregateScore is (ready/total)*100 - 0.3*mean(risk), clamped to [0,100].
// Non-readiness is counted twice: in the ratio and again through each unit's risk.
// An empty set of units scores 100.
func AggregateScore(units []WorkloadUnit) float64 {
	if len(units) == 0 {
		return 100
	}

	ready := 0
	totalRisk := 0.0
	for _, u := range units {
		if u.Ready {
			ready++
		}
		totalRisk += clamp(u.RiskScore, 0, 100)
	}

	base := float64(ready) / float64(len(units)) * 100
	meanRisk := totalRisk / float64(len(units))
	return clamp(base-0.3*meanRisk, 0, 100)
}

// UnitFromPod converts a pod into a WorkloadUnit as of now.
func UnitFromPod(pod *corev1.Pod, now time.Time) WorkloadUnit {
	u := WorkloadUnit{
		Name:      pod.Name,
		Phase:     phaseOf(pod.Status.Phase),
		Ready:     podReady(pod),
		RiskScore: RiskScore(pod),
	}

	for _, cs := range pod.Status.ContainerStatuses {
		u.RestartCount += int(cs.RestartCount)
		if w := cs.State.Waiting; w != nil {
			reason := w.Reason
			if reason == "" {
				reason = "Unknown"
			}
			u.Issues = append(u.Issues, fmt.Sprintf("%s: %s", reason, w.Message))
		}
	}

	if created := pod.CreationTimestamp.Time; !created.IsZero() && now.After(created) {
		u.AgeMinutes = int(now.Sub(created).Minutes())
	}
	return u
}

func podReady(pod *corev1.Pod) bool {
	for _, c := range pod.Status.Conditions {
		if c.Type == corev1.PodReady && c.Status == corev1.ConditionTrue {
			return true
		}
	}
	return false
}

func phaseOf(p corev1.PodPhase) Phase {
	switch p {
	case corev1.PodRunning:
		return PhaseRunning
	case corev1.PodPending:
		return PhasePending
	case corev1.PodSucceeded:
		return PhaseSucceeded
	case corev1.PodFailed:
		return PhaseFailed
	default:
		return PhaseUnknown
	}
}

func formatScore(v float64) string {
	return fmt.Sprintf("%.0f", v)
}
