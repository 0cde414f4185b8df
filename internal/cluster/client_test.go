package cluster

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/kubernetes/fake"
	k8stesting "k8s.io/client-go/testing"
	"k8s.io/utils/ptr"
)

func TestReachable(t *testing.T) {
	cs := fake.NewSimpleClientset()
	c := NewForClientset(cs, "https://127.0.0.1:6443", "kind-dev")
	assert.True(t, c.Reachable(context.Background()))

	cs.PrependReactor("get", "version", func(action k8stesting.Action) (bool, runtime.Object, error) {
		return true, nil, errors.New("connection refused")
	})
	assert.False(t, c.Reachable(context.Background()))
}

func TestReachable_CancelledContext(t *testing.T) {
	c := NewForClientset(fake.NewSimpleClientset(), "", "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, c.Reachable(ctx))
}

func TestClusterInfo(t *testing.T) {
	c := NewForClientset(fake.NewSimpleClientset(), "https://127.0.0.1:6443", "Kind-Dev")
	assert.Equal(t, "https://127.0.0.1:6443 kind-dev", c.ClusterInfo())
}

func TestNodeProviderID(t *testing.T) {
	node := &corev1.Node{
		ObjectMeta: metav1.ObjectMeta{Name: "node-1"},
		Spec:       corev1.NodeSpec{ProviderID: "aws:///eu-west-1a/i-0abc"},
	}
	c := NewForClientset(fake.NewSimpleClientset(node), "", "")

	id, err := c.NodeProviderID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "aws:///eu-west-1a/i-0abc", id)

	empty := NewForClientset(fake.NewSimpleClientset(), "", "")
	id, err = empty.NodeProviderID(context.Background())
	require.NoError(t, err)
	assert.Empty(t, id)
}

func TestListPods_Namespaced(t *testing.T) {
	cs := fake.NewSimpleClientset(
		&corev1.Pod{ObjectMeta: metav1.ObjectMeta{Name: "api-1", Namespace: "default"}},
		&corev1.Pod{ObjectMeta: metav1.ObjectMeta{Name: "api-2", Namespace: "default"}},
		&corev1.Pod{ObjectMeta: metav1.ObjectMeta{Name: "coredns", Namespace: "kube-system"}},
	)
	c := NewForClientset(cs, "", "")

	pods, err := c.ListPods(context.Background(), "default")
	require.NoError(t, err)
	assert.Len(t, pods, 2)
}

func TestListEvents_SortedOldestFirst(t *testing.T) {
	now := time.Now()
	cs := fake.NewSimpleClientset(
		&corev1.Event{
			ObjectMeta:    metav1.ObjectMeta{Name: "late", Namespace: "default"},
			LastTimestamp: metav1.NewTime(now),
		},
		&corev1.Event{
			ObjectMeta:     metav1.ObjectMeta{Name: "early", Namespace: "default"},
			FirstTimestamp: metav1.NewTime(now.Add(-10 * time.Minute)),
		},
	)
	c := NewForClientset(cs, "", "")

	events, err := c.ListEvents(context.Background(), "default")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "early", events[0].Name)
	assert.Equal(t, "late", events[1].Name)
}

func TestEventTime_Precedence(t *testing.T) {
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name  string
		event corev1.Event
		want  time.Time
	}{
		{
			name: "last timestamp wins",
			event: corev1.Event{
				LastTimestamp:  metav1.NewTime(base),
				FirstTimestamp: metav1.NewTime(base.Add(-time.Hour)),
			},
			want: base,
		},
		{
			name: "series observation wins",
			event: corev1.Event{
				Series:        ptr.To(corev1.EventSeries{Count: 4, LastObservedTime: metav1.NewMicroTime(base)}),
				LastTimestamp: metav1.NewTime(base.Add(-10 * time.Minute)),
			},
			want: base,
		},
		{
			name:  "event time",
			event: corev1.Event{EventTime: metav1.NewMicroTime(base)},
			want:  base,
		},
		{
			name:  "creation timestamp fallback",
			event: corev1.Event{ObjectMeta: metav1.ObjectMeta{CreationTimestamp: metav1.NewTime(base)}},
			want:  base,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.want.Equal(EventTime(tt.event)))
		})
	}
}

func TestDiscoverMonitoringServices(t *testing.T) {
	cs := fake.NewSimpleClientset(
		&corev1.Service{
			ObjectMeta: metav1.ObjectMeta{Name: "prometheus-server", Namespace: "monitoring"},
			Spec:       corev1.ServiceSpec{Ports: []corev1.ServicePort{{Port: 9090}}},
		},
		&corev1.Service{
			ObjectMeta: metav1.ObjectMeta{Name: "prometheus-operator", Namespace: "monitoring"},
		},
		&corev1.Service{
			ObjectMeta: metav1.ObjectMeta{Name: "grafana", Namespace: "monitoring"},
			Spec:       corev1.ServiceSpec{Ports: []corev1.ServicePort{{Port: 80}}},
		},
		&corev1.Service{
			ObjectMeta: metav1.ObjectMeta{Name: "api", Namespace: "default"},
		},
	)
	c := NewForClientset(cs, "", "")

	found, err := c.DiscoverMonitoringServices(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		ServiceMetrics:   "http://prometheus-server.monitoring.svc.cluster.local:9090",
		ServiceDashboard: "http://grafana.monitoring.svc.cluster.local",
	}, found)
}
