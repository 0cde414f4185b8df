package analysis

import (
	"context"
	"time"

	"github.com/moolen/vigil/internal/environment"
	"github.com/moolen/vigil/internal/metrics"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeSource struct {
	pods      []corev1.Pod
	events    []corev1.Event
	podErr    error
	eventErr  error
	panicPods   bool
	panicEvents bool
}

func (s *fakeSource) ListPods(ctx context.Context, namespace string) ([]corev1.Pod, error) {
	if s.panicPods {
		panic("informer cache corrupted")
	}
	return s.pods, s.podErr
}

func (s *fakeSource) ListEvents(ctx context.Context, namespace string) ([]corev1.Event, error) {
	if s.panicEvents {
		panic("event watch closed")
	}
	return s.events, s.eventErr
}

// fakeQuerier answers by exact expression. Unknown expressions yield an empty result.
type fakeQuerier struct {
	instant map[string][]float64
	series  map[string][]float64
	err     error
}

func (q *fakeQuerier) Available() bool { return true }

func (q *fakeQuerier) Instant(ctx context.Context, query string) ([]float64, error) {
	if q.err != nil {
		return nil, q.err
	}
	return q.instant[query], nil
}

func (q *fakeQuerier) Range(ctx context.Context, query string, start, end time.Time, step time.Duration) ([]metrics.Sample, error) {
	if q.err != nil {
		return nil, q.err
	}
	values := q.series[query]
	samples := make([]metrics.Sample, len(values))
	for i, v := range values {
		samples[i] = metrics.Sample{Timestamp: start.Add(time.Duration(i) * step), Value: v}
	}
	return samples, nil
}

func exprFor(queries []metrics.Query, name string) string {
	for _, q := range queries {
		if q.Name == name {
			return q.Expr
		}
	}
	panic("no query named " + name)
}

func testOptions() Options {
	return Options{
		Namespace: "shop",
		Labels:    Labels{PipelineID: "pipe-42", CommitSHA: "abcdef1234567", Environment: "staging"},
		Now:       func() time.Time { return fixedNow },
	}
}

func clusterProfile() environment.Profile {
	return environment.NewProfile(environment.ProfileData{
		Kind:             environment.KindLocalK8s,
		ClusterReachable: true,
		AuthMethod:       "kubeconfig",
	})
}

func ciProfileNoCluster() environment.Profile {
	return environment.NewProfile(environment.ProfileData{
		Kind:       environment.KindCIPlatform,
		CIPlatform: "github_actions",
		AuthMethod: "api_key",
	})
}

func simulatedProfile() environment.Profile {
	return environment.NewProfile(environment.ProfileData{Kind: environment.KindSimulated, AuthMethod: "none"})
}

func container(ready bool, restarts int32, waiting string) corev1.ContainerStatus {
	cs := corev1.ContainerStatus{Name: "app", Ready: ready, RestartCount: restarts}
	if waiting != "" {
		cs.State.Waiting = &corev1.ContainerStateWaiting{Reason: waiting, Message: "back-off"}
	}
	return cs
}

func pod(name string, phase corev1.PodPhase, ready bool, containers ...corev1.ContainerStatus) corev1.Pod {
	status := corev1.ConditionFalse
	if ready {
		status = corev1.ConditionTrue
	}
	return corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{
			Name:              name,
			Namespace:         "shop",
			CreationTimestamp: metav1.NewTime(fixedNow.Add(-90 * time.Minute)),
		},
		Status: corev1.PodStatus{
			Phase:             phase,
			Conditions:        []corev1.PodCondition{{Type: corev1.PodReady, Status: status}},
			ContainerStatuses: containers,
		},
	}
}

func healthyPod(name string) corev1.Pod {
	return pod(name, corev1.PodRunning, true, container(true, 0, ""))
}

// threeUnitScenario has two healthy pods and one not-ready pod with two restarts.
func threeUnitScenario() []corev1.Pod {
	return []corev1.Pod{
		healthyPod("api-1"),
		pod("api-2", corev1.PodRunning, false, container(true, 2, "")),
		healthyPod("api-3"),
	}
}

func warningEvent(name, reason string, at time.Time) corev1.Event {
	return corev1.Event{
		ObjectMeta:     metav1.ObjectMeta{Name: name + "." + reason, Namespace: "shop"},
		Type:           corev1.EventTypeWarning,
		Reason:         reason,
		Message:        reason + " on " + name,
		Count:          1,
		LastTimestamp:  metav1.NewTime(at),
		InvolvedObject: corev1.ObjectReference{Kind: "Pod", Name: name},
	}
}
