package environment

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeHost struct {
	env        map[string]string
	reachable  bool
	info       string
	providerID string
	discovered map[string]string
	awsCreds   bool
	onGCE      bool
	gkeCluster string
	runtimeOS  string
	runtimeErr error

	// blockRuntime makes ContainerRuntimeOS ignore its context and hang.
	blockRuntime bool
	// panicProviderID makes NodeProviderID panic.
	panicProviderID bool
	// reachableDelay makes ClusterReachable sleep past its context.
	reachableDelay time.Duration

	reachableCalls atomic.Int32
}

func (h *fakeHost) Getenv(key string) string { return h.env[key] }

func (h *fakeHost) ClusterReachable(ctx context.Context) bool {
	h.reachableCalls.Add(1)
	if h.reachableDelay > 0 {
		time.Sleep(h.reachableDelay)
	}
	return h.reachable
}

func (h *fakeHost) ClusterInfo(ctx context.Context) string { return h.info }

func (h *fakeHost) NodeProviderID(ctx context.Context) (string, error) {
	if h.panicProviderID {
		panic("provider lookup exploded")
	}
	return h.providerID, nil
}

func (h *fakeHost) DiscoverMonitoring(ctx context.Context) (map[string]string, error) {
	return h.discovered, nil
}

func (h *fakeHost) AWSCredentials(ctx context.Context) bool { return h.awsCreds }
func (h *fakeHost) OnGCE(ctx context.Context) bool          { return h.onGCE }

func (h *fakeHost) GKEClusterName(ctx context.Context) (string, error) {
	if h.gkeCluster == "" {
		return "", errors.New("not on GKE")
	}
	return h.gkeCluster, nil
}

func (h *fakeHost) GCPProjectID(ctx context.Context) (string, error) { return "my-project", nil }

func (h *fakeHost) ContainerRuntimeOS(ctx context.Context) (string, error) {
	if h.blockRuntime {
		select {}
	}
	if h.runtimeErr != nil {
		return "", h.runtimeErr
	}
	return h.runtimeOS, nil
}

func newFakeHost() *fakeHost {
	return &fakeHost{env: map[string]string{}, runtimeErr: errors.New("docker not running")}
}

func TestDetect_ProbePriority(t *testing.T) {
	tests := []struct {
		name     string
		setup    func(h *fakeHost)
		opts     Options
		wantKind Kind
		wantDesc string
	}{
		{
			name: "CI wins over cloud",
			setup: func(h *fakeHost) {
				h.env["GITHUB_ACTIONS"] = "true"
				h.env["AWS_ACCESS_KEY_ID"] = "AKIA"
				h.reachable = true
				h.providerID = "aws:///eu-west-1a/i-0abc"
			},
			wantKind: KindCIPlatform,
			wantDesc: "CI_PLATFORM",
		},
		{
			name: "AWS with EKS nodes",
			setup: func(h *fakeHost) {
				h.env["AWS_ROLE_ARN"] = "arn:aws:iam::1:role/ci"
				h.reachable = true
				h.providerID = "aws:///eu-west-1a/i-0abc"
			},
			wantKind: KindCloudK8s,
			wantDesc: "CLOUD_K8S(aws)",
		},
		{
			name: "AWS credentials from SDK chain",
			setup: func(h *fakeHost) {
				h.awsCreds = true
				h.reachable = true
				h.providerID = "aws:///us-east-1a/i-1"
			},
			wantKind: KindCloudK8s,
			wantDesc: "CLOUD_K8S(aws)",
		},
		{
			name: "AWS credentials but local cluster",
			setup: func(h *fakeHost) {
				h.env["AWS_ACCESS_KEY_ID"] = "AKIA"
				h.reachable = true
				h.providerID = "kind://docker/dev/dev-control-plane"
				h.info = "https://127.0.0.1:6443 kind-dev"
			},
			wantKind: KindLocalK8s,
			wantDesc: "LOCAL_K8S",
		},
		{
			name: "GKE via metadata",
			setup: func(h *fakeHost) {
				h.onGCE = true
				h.gkeCluster = "prod"
			},
			wantKind: KindCloudK8s,
			wantDesc: "CLOUD_K8S(gcp)",
		},
		{
			name: "AKS via provider ID",
			setup: func(h *fakeHost) {
				h.env["AZURE_CLIENT_ID"] = "abc"
				h.reachable = true
				h.providerID = "azure:///subscriptions/x/vm-0"
			},
			wantKind: KindCloudK8s,
			wantDesc: "CLOUD_K8S(azure)",
		},
		{
			name: "reachable remote cluster is not local",
			setup: func(h *fakeHost) {
				h.reachable = true
				h.info = "https://api.prod.example.com prod"
			},
			wantKind: KindUnknown,
			wantDesc: "UNKNOWN",
		},
		{
			name: "docker desktop",
			setup: func(h *fakeHost) {
				h.runtimeErr = nil
				h.runtimeOS = "Docker Desktop"
			},
			wantKind: KindLocalContainerRuntime,
			wantDesc: "LOCAL_CONTAINER_RUNTIME",
		},
		{
			name:     "simulation flag",
			opts:     Options{Simulation: true},
			wantKind: KindSimulated,
			wantDesc: "SIMULATED",
		},
		{
			name:     "nothing matches",
			wantKind: KindUnknown,
			wantDesc: "UNKNOWN",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newFakeHost()
			if tt.setup != nil {
				tt.setup(h)
			}
			c := NewClassifier(h, tt.opts)
			p := c.Detect(context.Background())
			assert.Equal(t, tt.wantKind, p.Kind())
			assert.Equal(t, tt.wantDesc, p.String())
		})
	}
}

func TestDetect_CIWithoutCluster(t *testing.T) {
	h := newFakeHost()
	h.env["GITLAB_CI"] = "true"
	h.env["AWS_REGION"] = "eu-west-1"

	p := NewClassifier(h, Options{}).Detect(context.Background())

	assert.Equal(t, KindCIPlatform, p.Kind())
	assert.Equal(t, "gitlab_ci", p.CIPlatform())
	assert.False(t, p.ClusterReachable())
	assert.Equal(t, "api_key", p.AuthMethod())
	assert.Equal(t, CloudAWS, p.CloudProvider())
	assert.False(t, p.Capability(CapRealTimeMonitoring))
	assert.True(t, p.Capability(CapCIIntegration))
}

func TestDetect_CIWithClusterDiscoversMonitoring(t *testing.T) {
	h := newFakeHost()
	h.env["GITHUB_ACTIONS"] = "true"
	h.reachable = true
	h.discovered = map[string]string{EndpointMetrics: "http://prometheus.monitoring.svc.cluster.local:9090"}

	p := NewClassifier(h, Options{}).Detect(context.Background())

	assert.True(t, p.ClusterReachable())
	assert.Equal(t, "service_account", p.AuthMethod())
	assert.Equal(t, "http://prometheus.monitoring.svc.cluster.local:9090", p.Endpoint(EndpointMetrics))
}

func TestDetect_Cached(t *testing.T) {
	h := newFakeHost()
	h.env["GITHUB_ACTIONS"] = "true"
	c := NewClassifier(h, Options{})

	_, ok := c.Profile()
	assert.False(t, ok)

	first := c.Detect(context.Background())
	h.env = map[string]string{}
	second := c.Detect(context.Background())

	assert.Equal(t, first.Data(), second.Data())
	cached, ok := c.Profile()
	require.True(t, ok)
	assert.Equal(t, KindCIPlatform, cached.Kind())
}

func TestDetect_ReachabilityMemoized(t *testing.T) {
	h := newFakeHost()
	h.env["AWS_ACCESS_KEY_ID"] = "AKIA"
	h.env["AZURE_CLIENT_ID"] = "abc"
	h.reachable = true
	h.info = "https://127.0.0.1:6443 minikube"

	p := NewClassifier(h, Options{}).Detect(context.Background())

	assert.Equal(t, KindLocalK8s, p.Kind())
	assert.Equal(t, int32(1), h.reachableCalls.Load())
}

func TestDetect_CIMarkerWithUnresponsiveCluster(t *testing.T) {
	h := newFakeHost()
	h.env["GITHUB_ACTIONS"] = "true"
	h.reachable = true
	h.reachableDelay = 500 * time.Millisecond

	var failed []string
	c := NewClassifier(h, Options{
		ProbeTimeout: 100 * time.Millisecond,
		Observe: func(name string, elapsed time.Duration, matched bool) {
			if !matched {
				failed = append(failed, name)
			}
		},
	})
	p := c.Detect(context.Background())

	assert.Equal(t, KindCIPlatform, p.Kind())
	assert.Equal(t, "github_actions", p.CIPlatform())
	assert.False(t, p.ClusterReachable())
	assert.Equal(t, "external_monitoring", p.Data().Approach)
	assert.Empty(t, failed)
}

func TestDetect_UnreachableResultMemoized(t *testing.T) {
	h := newFakeHost()
	h.env["AWS_ACCESS_KEY_ID"] = "AKIA"
	h.env["AZURE_CLIENT_ID"] = "abc"
	h.reachable = true
	h.reachableDelay = 300 * time.Millisecond

	start := time.Now()
	p := NewClassifier(h, Options{ProbeTimeout: 100 * time.Millisecond, Simulation: true}).Detect(context.Background())

	assert.Equal(t, KindSimulated, p.Kind())
	assert.False(t, p.ClusterReachable())
	assert.Equal(t, int32(1), h.reachableCalls.Load())
	assert.Less(t, time.Since(start), time.Second)
}

func TestDetect_HangingProbeTimesOut(t *testing.T) {
	h := newFakeHost()
	h.blockRuntime = true

	c := NewClassifier(h, Options{ProbeTimeout: 50 * time.Millisecond, Simulation: true})

	start := time.Now()
	p := c.Detect(context.Background())

	assert.Equal(t, KindSimulated, p.Kind())
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestDetect_PanickingProbeFailsSoft(t *testing.T) {
	h := newFakeHost()
	h.env["AWS_ACCESS_KEY_ID"] = "AKIA"
	h.reachable = true
	h.panicProviderID = true

	var observed []string
	c := NewClassifier(h, Options{
		Simulation: true,
		Observe: func(probe string, elapsed time.Duration, matched bool) {
			observed = append(observed, probe)
		},
	})
	p := c.Detect(context.Background())

	assert.Equal(t, KindSimulated, p.Kind())
	assert.Contains(t, observed, "aws_eks")
	assert.Equal(t, "simulation", observed[len(observed)-1])
}

func TestNewClassifier_ClampsTimeout(t *testing.T) {
	c := NewClassifier(newFakeHost(), Options{ProbeTimeout: time.Minute})
	assert.Equal(t, MaxProbeTimeout, c.opts.ProbeTimeout)

	c = NewClassifier(newFakeHost(), Options{})
	assert.Equal(t, DefaultProbeTimeout, c.opts.ProbeTimeout)
}

func TestProfile_Immutable(t *testing.T) {
	endpoints := map[string]string{EndpointMetrics: "http://a"}
	p := NewProfile(ProfileData{Kind: KindLocalK8s, Endpoints: endpoints})

	endpoints[EndpointMetrics] = "http://b"
	got := p.Endpoints()
	got[EndpointMetrics] = "http://c"

	assert.Equal(t, "http://a", p.Endpoint(EndpointMetrics))
}

func TestKind_Synthetic(t *testing.T) {
	assert.True(t, KindSimulated.Synthetic())
	assert.True(t, KindUnknown.Synthetic())
	assert.False(t, KindLocalK8s.Synthetic())
	assert.False(t, KindCIPlatform.Synthetic())
}

func TestInstructions(t *testing.T) {
	p := NewProfile(ProfileData{
		Kind:          KindCloudK8s,
		CloudProvider: CloudGCP,
		Complexity:    "low",
		Approach:      "native_gcp",
		NextSteps:     []string{"Enable Workload Identity"},
	})

	in := Instructions(p)

	assert.Equal(t, "CLOUD_K8S(gcp)", in.Environment)
	assert.Equal(t, "native_gcp", in.Approach)
	assert.Contains(t, in.RequiredSecrets, "GOOGLE_APPLICATION_CREDENTIALS")
	assert.Contains(t, in.RequiredSecrets, "PROM_URL")
	assert.Contains(t, in.OptionalConfig, "TELEGRAM_BOT_TOKEN")
	assert.Contains(t, in.ExampleUsage, "CLOUD_K8S(gcp)")
}
