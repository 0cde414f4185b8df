// Package environment classifies the infrastructure a run executes in and
// derives the endpoint and capability profile the rest of vigil works from.
package environment

import (
	"maps"
	"slices"
)

// Kind is the detected environment class.
type Kind string

const (
	KindCIPlatform            Kind = "CI_PLATFORM"
	KindCloudK8s              Kind = "CLOUD_K8S"
	KindLocalK8s              Kind = "LOCAL_K8S"
	KindLocalContainerRuntime Kind = "LOCAL_CONTAINER_RUNTIME"
	KindSimulated             Kind = "SIMULATED"
	KindUnknown               Kind = "UNKNOWN"
)

// Synthetic reports whether data for this kind is generated rather than collected.
// UNKNOWN is treated like SIMULATED downstream.
func (k Kind) Synthetic() bool {
	return k == KindSimulated || k == KindUnknown
}

// CloudProvider identifies a managed Kubernetes provider.
type CloudProvider string

const (
	CloudNone  CloudProvider = ""
	CloudAWS   CloudProvider = "aws"
	CloudGCP   CloudProvider = "gcp"
	CloudAzure CloudProvider = "azure"
)

// Endpoint names
const (
	EndpointMetrics      = "metrics"
	EndpointDashboard    = "dashboard"
	EndpointCloudWatch   = "cloudwatch"
	EndpointStackdriver  = "stackdriver"
	EndpointAzureMonitor = "azure_monitor"
	EndpointDockerAPI    = "docker_api"
)

// Capability names
const (
	CapRealTimeMonitoring  = "real_time_monitoring"
	CapPredictiveAnalytics = "predictive_analytics"
	CapChaosSimulation     = "chaos_simulation"
	CapNotifications       = "notifications"
	CapCIIntegration       = "ci_integration"
	CapLocalDevelopment    = "local_development"
	CapDockerIntegration   = "docker_integration"
	CapSimulationMode      = "simulation_mode"
	CapAWSIntegration      = "aws_integration"
	CapCloudWatchMetrics   = "cloudwatch_metrics"
	CapGCPIntegration      = "gcp_integration"
	CapStackdriverMetrics  = "stackdriver_metrics"
	CapAzureIntegration    = "azure_integration"
	CapAzureMonitor        = "azure_monitor"
)

// ProfileData is the plain, copyable form of a Profile. It is what NewProfile
// consumes and what Profile.Data returns for encoding.
type ProfileData struct {
	Kind             Kind              `json:"kind" yaml:"kind"`
	ClusterReachable bool              `json:"cluster_reachable" yaml:"cluster_reachable"`
	CloudProvider    CloudProvider     `json:"cloud_provider,omitempty" yaml:"cloud_provider,omitempty"`
	CIPlatform       string            `json:"ci_platform,omitempty" yaml:"ci_platform,omitempty"`
	AuthMethod       string            `json:"auth_method" yaml:"auth_method"`
	Endpoints        map[string]string `json:"endpoints" yaml:"endpoints"`
	Capabilities     map[string]bool   `json:"capabilities" yaml:"capabilities"`
	Complexity       string            `json:"setup_complexity" yaml:"setup_complexity"`
	Approach         string            `json:"suggested_approach" yaml:"suggested_approach"`
	NextSteps        []string          `json:"next_steps" yaml:"next_steps"`
}

// Profile is the immutable result of environment detection.
type Profile struct {
	data ProfileData
}

// NewProfile copies data into a new immutable profile.
func NewProfile(data ProfileData) Profile {
	return Profile{data: cloneData(data)}
}

// Data returns a copy of the profile contents.
func (p Profile) Data() ProfileData {
	return cloneData(p.data)
}

func (p Profile) Kind() Kind                    { return p.data.Kind }
func (p Profile) ClusterReachable() bool        { return p.data.ClusterReachable }
func (p Profile) CloudProvider() CloudProvider  { return p.data.CloudProvider }
func (p Profile) CIPlatform() string            { return p.data.CIPlatform }
func (p Profile) AuthMethod() string            { return p.data.AuthMethod }
func (p Profile) Endpoints() map[string]string  { return maps.Clone(p.data.Endpoints) }
func (p Profile) Capabilities() map[string]bool { return maps.Clone(p.data.Capabilities) }

// Endpoint returns the profile-derived URL for name, or "" when the profile has none.
func (p Profile) Endpoint(name string) string {
	return p.data.Endpoints[name]
}

// Capability reports whether the named capability is enabled.
func (p Profile) Capability(name string) bool {
	return p.data.Capabilities[name]
}

// String returns a short label such as "CLOUD_K8S(aws)".
func (p Profile) String() string {
	if p.data.Kind == KindCloudK8s && p.data.CloudProvider != CloudNone {
		return string(p.data.Kind) + "(" + string(p.data.CloudProvider) + ")"
	}
	return string(p.data.Kind)
}

func cloneData(d ProfileData) ProfileData {
	d.Endpoints = maps.Clone(d.Endpoints)
	if d.Endpoints == nil {
		d.Endpoints = map[string]string{}
	}
	d.Capabilities = maps.Clone(d.Capabilities)
	if d.Capabilities == nil {
		d.Capabilities = map[string]bool{}
	}
	d.NextSteps = slices.Clone(d.NextSteps)
	return d
}
