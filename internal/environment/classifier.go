package environment

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/moolen/vigil/internal/logging"
)

// DefaultProbeTimeout bounds each probe when Options.ProbeTimeout is unset.
const DefaultProbeTimeout = 5 * time.Second

// MaxProbeTimeout is the upper bound accepted for a single probe.
const MaxProbeTimeout = 10 * time.Second

// ciMarkers are checked in order; the first variable that is set names the platform.
var ciMarkers = []struct {
	env      string
	platform string
}{
	{"GITHUB_ACTIONS", "github_actions"},
	{"GITLAB_CI", "gitlab_ci"},
	{"JENKINS_URL", "jenkins"},
	{"BUILDKITE", "buildkite"},
	{"CIRCLECI", "circleci"},
}

// localIndicators mark a cluster as running on the developer's machine.
var localIndicators = []string{"127.0.0.1", "localhost", "minikube", "kind", "docker-desktop"}

// Options tunes a Classifier.
type Options struct {
	// Simulation enables the SIMULATED probe.
	Simulation bool

	// ProbeTimeout bounds each probe, clamped to MaxProbeTimeout.
	ProbeTimeout time.Duration

	// Observe, if set, is called once per executed probe.
	Observe func(probe string, elapsed time.Duration, matched bool)
}

type probe struct {
	name string
	run  func(ctx context.Context) (*ProfileData, error)
}

// Classifier decides the environment profile once and caches it.
type Classifier struct {
	host   Host
	opts   Options
	logger *logging.Logger

	once    sync.Once
	profile atomic.Pointer[Profile]

	mu        sync.Mutex
	reachable *bool
}

// NewClassifier creates a classifier that probes host.
func NewClassifier(host Host, opts Options) *Classifier {
	if opts.ProbeTimeout <= 0 {
		opts.ProbeTimeout = DefaultProbeTimeout
	}
	if opts.ProbeTimeout > MaxProbeTimeout {
		opts.ProbeTimeout = MaxProbeTimeout
	}
	return &Classifier{
		host:   host,
		opts:   opts,
		logger: logging.GetLogger("environment"),
	}
}

// Detect runs the probes in priority order and returns the first match.
// The result is computed once; later calls return the cached profile.
func (c *Classifier) Detect(ctx context.Context) Profile {
	c.once.Do(func() {
		p := c.detect(ctx)
		c.profile.Store(&p)
	})
	return *c.profile.Load()
}

// Profile returns the cached profile and whether detection has run.
func (c *Classifier) Profile() (Profile, bool) {
	p := c.profile.Load()
	if p == nil {
		return Profile{}, false
	}
	return *p, true
}

func (c *Classifier) probes() []probe {
	return []probe{
		{"ci_platform", c.probeCI},
		{"aws_eks", c.probeAWS},
		{"google_gke", c.probeGCP},
		{"azure_aks", c.probeAzure},
		{"local_k8s", c.probeLocalCluster},
		{"container_runtime", c.probeContainerRuntime},
		{"simulation", c.probeSimulation},
	}
}

func (c *Classifier) detect(ctx context.Context) Profile {
	c.logger.Debug("Detecting environment")

	for _, p := range c.probes() {
		start := time.Now()
		data, err := runBounded(ctx, c.opts.ProbeTimeout, p.run)
		elapsed := time.Since(start)
		matched := err == nil && data != nil

		if c.opts.Observe != nil {
			c.opts.Observe(p.name, elapsed, matched)
		}
		if err != nil {
			c.logger.Warn("Probe %s failed after %s: %v", p.name, elapsed.Round(time.Millisecond), err)
			continue
		}
		if matched {
			profile := NewProfile(*data)
			c.logger.Info("Detected environment: %s (probe %s)", profile, p.name)
			return profile
		}
		c.logger.Debug("Probe %s did not match", p.name)
	}

	c.logger.Info("Unknown environment, falling back to synthetic data")
	return NewProfile(unknownData())
}

// runBounded runs fn in its own goroutine and gives up after timeout even if
// fn ignores cancellation. Panics are returned as errors.
func runBounded[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		value T
		err   error
	}
	done := make(chan result, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				var zero T
				done <- result{zero, fmt.Errorf("panic: %v", r)}
			}
		}()
		v, err := fn(ctx)
		done <- result{v, err}
	}()

	select {
	case r := <-done:
		return r.value, r.err
	case <-ctx.Done():
		var zero T
		return zero, fmt.Errorf("timed out: %w", ctx.Err())
	}
}

// clusterReachable memoizes the reachability check for the rest of detection.
// The check gets half the probe budget so the enclosing probe can still
// complete when the API server hangs. Failures and timeouts count as unreachable.
func (c *Classifier) clusterReachable(ctx context.Context) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.reachable != nil {
		return *c.reachable
	}

	v, err := runBounded(ctx, c.opts.ProbeTimeout/2, func(ctx context.Context) (bool, error) {
		return c.host.ClusterReachable(ctx), nil
	})
	if err != nil {
		c.logger.Debug("Cluster reachability check failed: %v", err)
		v = false
	}
	c.reachable = &v
	return v
}

func (c *Classifier) providerIDHasPrefix(ctx context.Context, prefix string) bool {
	if !c.clusterReachable(ctx) {
		return false
	}
	id, err := c.host.NodeProviderID(ctx)
	if err != nil {
		c.logger.Debug("Reading node provider ID failed: %v", err)
		return false
	}
	return strings.HasPrefix(strings.ToLower(id), prefix)
}

func (c *Classifier) discover(ctx context.Context) map[string]string {
	found, err := c.host.DiscoverMonitoring(ctx)
	if err != nil {
		c.logger.Debug("Monitoring service discovery failed: %v", err)
		return map[string]string{}
	}
	if found == nil {
		return map[string]string{}
	}
	return found
}

func (c *Classifier) envAny(keys ...string) bool {
	for _, k := range keys {
		if c.host.Getenv(k) != "" {
			return true
		}
	}
	return false
}

func (c *Classifier) envFirst(keys ...string) string {
	for _, k := range keys {
		if v := c.host.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

func (c *Classifier) ciPlatform() string {
	for _, m := range ciMarkers {
		if c.host.Getenv(m.env) != "" {
			return m.platform
		}
	}
	return ""
}

func (c *Classifier) cloudFromEnv() CloudProvider {
	switch {
	case c.envAny("AWS_REGION", "AWS_DEFAULT_REGION"):
		return CloudAWS
	case c.envAny("GOOGLE_CLOUD_PROJECT"):
		return CloudGCP
	case c.envAny("AZURE_SUBSCRIPTION_ID"):
		return CloudAzure
	}
	return CloudNone
}

func (c *Classifier) probeCI(ctx context.Context) (*ProfileData, error) {
	platform := c.ciPlatform()
	if platform == "" {
		return nil, nil
	}

	reachable := c.clusterReachable(ctx)
	data := &ProfileData{
		Kind:             KindCIPlatform,
		ClusterReachable: reachable,
		CloudProvider:    c.cloudFromEnv(),
		CIPlatform:       platform,
		Capabilities: map[string]bool{
			CapRealTimeMonitoring:  reachable,
			CapPredictiveAnalytics: true,
			CapChaosSimulation:     reachable,
			CapNotifications:       true,
			CapCIIntegration:       true,
		},
	}

	if reachable {
		data.Endpoints = c.discover(ctx)
		data.AuthMethod = "service_account"
		data.Complexity = "medium"
		data.Approach = "direct_cluster"
		data.NextSteps = []string{
			"Cluster access detected - using direct monitoring",
			"Configure RBAC for the CI service account",
			"Use secrets for sensitive monitoring endpoints",
		}
	} else {
		data.AuthMethod = "api_key"
		data.Complexity = "low"
		data.Approach = "external_monitoring"
		data.NextSteps = []string{
			"No cluster access - using external monitoring",
			"Set PROM_URL to validate deployment readiness against real metrics",
			"Consider simulation mode for testing",
		}
	}
	return data, nil
}

func (c *Classifier) probeAWS(ctx context.Context) (*ProfileData, error) {
	if !c.envAny("AWS_ACCESS_KEY_ID", "AWS_ROLE_ARN", "AWS_WEB_IDENTITY_TOKEN_FILE") && !c.host.AWSCredentials(ctx) {
		return nil, nil
	}
	if !c.providerIDHasPrefix(ctx, "aws://") {
		return nil, nil
	}

	region := c.envFirst("AWS_REGION", "AWS_DEFAULT_REGION")
	if region == "" {
		region = "us-east-1"
	}
	endpoints := c.discover(ctx)
	endpoints[EndpointCloudWatch] = fmt.Sprintf("https://monitoring.%s.amazonaws.com", region)

	return &ProfileData{
		Kind:             KindCloudK8s,
		ClusterReachable: true,
		CloudProvider:    CloudAWS,
		AuthMethod:       "iam_role",
		Endpoints:        endpoints,
		Capabilities: cloudCapabilities(map[string]bool{
			CapAWSIntegration:    true,
			CapCloudWatchMetrics: true,
		}),
		Complexity: "low",
		Approach:   "native_aws",
		NextSteps: []string{
			"Use IAM roles for service accounts (IRSA)",
			"Enable CloudWatch Container Insights",
			"Configure AWS Load Balancer Controller",
		},
	}, nil
}

func (c *Classifier) probeGCP(ctx context.Context) (*ProfileData, error) {
	if !c.envAny("GOOGLE_APPLICATION_CREDENTIALS") && !c.host.OnGCE(ctx) {
		return nil, nil
	}

	inGKE := false
	if name, err := c.host.GKEClusterName(ctx); err == nil && name != "" {
		inGKE = true
	} else if c.providerIDHasPrefix(ctx, "gce://") {
		inGKE = true
	}
	if !inGKE {
		return nil, nil
	}

	project := c.host.Getenv("GOOGLE_CLOUD_PROJECT")
	if project == "" {
		if id, err := c.host.GCPProjectID(ctx); err == nil {
			project = id
		}
	}

	reachable := c.clusterReachable(ctx)
	endpoints := map[string]string{}
	if reachable {
		endpoints = c.discover(ctx)
	}
	endpoints[EndpointStackdriver] = "https://monitoring.googleapis.com/v1/projects/" + project

	return &ProfileData{
		Kind:             KindCloudK8s,
		ClusterReachable: reachable,
		CloudProvider:    CloudGCP,
		AuthMethod:       "workload_identity",
		Endpoints:        endpoints,
		Capabilities: cloudCapabilities(map[string]bool{
			CapGCPIntegration:     true,
			CapStackdriverMetrics: true,
		}),
		Complexity: "low",
		Approach:   "native_gcp",
		NextSteps: []string{
			"Enable Workload Identity",
			"Configure GKE monitoring",
			"Use Google Cloud Operations suite",
		},
	}, nil
}

func (c *Classifier) probeAzure(ctx context.Context) (*ProfileData, error) {
	if !c.envAny("AZURE_CLIENT_ID", "AZURE_FEDERATED_TOKEN_FILE") {
		return nil, nil
	}
	if !c.providerIDHasPrefix(ctx, "azure://") {
		return nil, nil
	}

	endpoints := c.discover(ctx)
	endpoints[EndpointAzureMonitor] = "https://management.azure.com"

	return &ProfileData{
		Kind:             KindCloudK8s,
		ClusterReachable: true,
		CloudProvider:    CloudAzure,
		AuthMethod:       "managed_identity",
		Endpoints:        endpoints,
		Capabilities: cloudCapabilities(map[string]bool{
			CapAzureIntegration: true,
			CapAzureMonitor:     true,
		}),
		Complexity: "low",
		Approach:   "native_azure",
		NextSteps: []string{
			"Enable Azure AD Workload Identity",
			"Configure Azure Monitor for containers",
			"Use Azure Application Insights",
		},
	}, nil
}

func (c *Classifier) probeLocalCluster(ctx context.Context) (*ProfileData, error) {
	if !c.clusterReachable(ctx) {
		return nil, nil
	}
	info := strings.ToLower(c.host.ClusterInfo(ctx))
	if !containsAny(info, localIndicators) {
		return nil, nil
	}

	return &ProfileData{
		Kind:             KindLocalK8s,
		ClusterReachable: true,
		AuthMethod:       "kubeconfig",
		Endpoints: map[string]string{
			EndpointMetrics:   "http://localhost:9090",
			EndpointDashboard: "http://localhost:3000",
		},
		Capabilities: map[string]bool{
			CapRealTimeMonitoring:  true,
			CapPredictiveAnalytics: true,
			CapChaosSimulation:     true,
			CapNotifications:       true,
			CapCIIntegration:       false,
			CapLocalDevelopment:    true,
		},
		Complexity: "medium",
		Approach:   "local_stack",
		NextSteps: []string{
			"Install Prometheus and Grafana locally",
			"Configure port-forwarding for monitoring",
			"Use local storage for metrics",
		},
	}, nil
}

func (c *Classifier) probeContainerRuntime(ctx context.Context) (*ProfileData, error) {
	osName, err := c.host.ContainerRuntimeOS(ctx)
	if err != nil {
		c.logger.Debug("Container runtime not available: %v", err)
		return nil, nil
	}
	if !strings.Contains(strings.ToLower(osName), "docker desktop") {
		return nil, nil
	}

	reachable := c.clusterReachable(ctx)
	data := &ProfileData{
		Kind:             KindLocalContainerRuntime,
		ClusterReachable: reachable,
		AuthMethod:       "docker_api",
		Endpoints: map[string]string{
			EndpointMetrics:   "http://localhost:9090",
			EndpointDashboard: "http://localhost:3000",
			EndpointDockerAPI: "unix:///var/run/docker.sock",
		},
		Capabilities: map[string]bool{
			CapRealTimeMonitoring:  reachable,
			CapPredictiveAnalytics: true,
			CapChaosSimulation:     reachable,
			CapNotifications:       true,
			CapCIIntegration:       false,
			CapLocalDevelopment:    true,
			CapDockerIntegration:   true,
		},
		Complexity: "low",
		Approach:   "docker_compose",
		NextSteps: []string{
			"Enable Kubernetes in Docker Desktop",
			"Use docker-compose for monitoring services",
			"Configure local development workflow",
		},
	}
	if reachable {
		data.AuthMethod = "kubeconfig"
		data.Approach = "local_k8s"
		data.NextSteps[0] = "Deploy monitoring stack"
	}
	return data, nil
}

func (c *Classifier) probeSimulation(ctx context.Context) (*ProfileData, error) {
	if !c.opts.Simulation {
		return nil, nil
	}
	return &ProfileData{
		Kind:       KindSimulated,
		AuthMethod: "none",
		Capabilities: map[string]bool{
			CapRealTimeMonitoring:  false,
			CapPredictiveAnalytics: true,
			CapChaosSimulation:     true,
			CapNotifications:       true,
			CapCIIntegration:       true,
			CapSimulationMode:      true,
		},
		Complexity: "minimal",
		Approach:   "simulation",
		NextSteps: []string{
			"Exercise observability features without infrastructure",
			"Validate pipeline wiring before pointing at a real cluster",
			"Set PROM_URL or provide a kubeconfig for real data",
		},
	}, nil
}

func unknownData() ProfileData {
	return ProfileData{
		Kind:       KindUnknown,
		AuthMethod: "none",
		Capabilities: map[string]bool{
			CapRealTimeMonitoring:  false,
			CapPredictiveAnalytics: true,
			CapChaosSimulation:     false,
			CapNotifications:       true,
			CapCIIntegration:       true,
			CapSimulationMode:      true,
		},
		Complexity: "minimal",
		Approach:   "simulation",
		NextSteps: []string{
			"Environment auto-detection failed",
			"Using simulation mode as fallback",
			"Consider manual configuration for full features",
		},
	}
}

func cloudCapabilities(extra map[string]bool) map[string]bool {
	caps := map[string]bool{
		CapRealTimeMonitoring:  true,
		CapPredictiveAnalytics: true,
		CapChaosSimulation:     true,
		CapNotifications:       true,
		CapCIIntegration:       true,
	}
	for k, v := range extra {
		caps[k] = v
	}
	return caps
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
