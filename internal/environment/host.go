package environment

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/compute/metadata"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	dockerclient "github.com/docker/docker/client"
	"github.com/moolen/vigil/internal/cluster"
)

// Host is everything the probes ask of the machine they run on.
// Every method may block; the classifier bounds each call with a timeout.
type Host interface {
	Getenv(key string) string

	// ClusterReachable reports whether a Kubernetes API server answers.
	ClusterReachable(ctx context.Context) bool
	// ClusterInfo returns lower-cased API server host and context name.
	ClusterInfo(ctx context.Context) string
	// NodeProviderID returns spec.providerID of any node.
	NodeProviderID(ctx context.Context) (string, error)
	// DiscoverMonitoring returns in-cluster monitoring URLs keyed by endpoint name.
	DiscoverMonitoring(ctx context.Context) (map[string]string, error)

	// AWSCredentials reports whether the AWS default credential chain yields keys.
	AWSCredentials(ctx context.Context) bool
	// OnGCE reports whether the GCE metadata server is reachable.
	OnGCE(ctx context.Context) bool
	// GKEClusterName returns the cluster-name instance attribute from the metadata server.
	GKEClusterName(ctx context.Context) (string, error)
	// GCPProjectID returns the project id from the metadata server.
	GCPProjectID(ctx context.Context) (string, error)

	// ContainerRuntimeOS returns the operating system reported by the container runtime.
	ContainerRuntimeOS(ctx context.Context) (string, error)
}

var errNoCluster = errors.New("no cluster client configured")

// SystemHost implements Host against the real process environment.
type SystemHost struct {
	// Cluster is nil when no client config could be built.
	Cluster *cluster.Client

	// MetadataTimeout bounds GCE metadata requests.
	MetadataTimeout time.Duration
}

// NewSystemHost returns a host backed by the given cluster client, which may be nil.
func NewSystemHost(c *cluster.Client) *SystemHost {
	return &SystemHost{Cluster: c, MetadataTimeout: 2 * time.Second}
}

func (h *SystemHost) Getenv(key string) string {
	return os.Getenv(key)
}

func (h *SystemHost) ClusterReachable(ctx context.Context) bool {
	if h.Cluster == nil {
		return false
	}
	return h.Cluster.Reachable(ctx)
}

func (h *SystemHost) ClusterInfo(ctx context.Context) string {
	if h.Cluster == nil {
		return ""
	}
	return h.Cluster.ClusterInfo()
}

func (h *SystemHost) NodeProviderID(ctx context.Context) (string, error) {
	if h.Cluster == nil {
		return "", errNoCluster
	}
	return h.Cluster.NodeProviderID(ctx)
}

func (h *SystemHost) DiscoverMonitoring(ctx context.Context) (map[string]string, error) {
	if h.Cluster == nil {
		return nil, errNoCluster
	}
	return h.Cluster.DiscoverMonitoringServices(ctx)
}

func (h *SystemHost) AWSCredentials(ctx context.Context) bool {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil || cfg.Credentials == nil {
		return false
	}
	creds, err := cfg.Credentials.Retrieve(ctx)
	if err != nil {
		return false
	}
	return creds.HasKeys()
}

func (h *SystemHost) metadataClient() *metadata.Client {
	return metadata.NewClient(&http.Client{Timeout: h.MetadataTimeout})
}

func (h *SystemHost) OnGCE(ctx context.Context) bool {
	return metadata.OnGCE()
}

func (h *SystemHost) GKEClusterName(ctx context.Context) (string, error) {
	name, err := h.metadataClient().InstanceAttributeValueWithContext(ctx, "cluster-name")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(name), nil
}

func (h *SystemHost) GCPProjectID(ctx context.Context) (string, error) {
	return h.metadataClient().ProjectIDWithContext(ctx)
}

func (h *SystemHost) ContainerRuntimeOS(ctx context.Context) (string, error) {
	cli, err := dockerclient.NewClientWithOpts(dockerclient.FromEnv, dockerclient.WithAPIVersionNegotiation())
	if err != nil {
		return "", err
	}
	defer cli.Close()

	info, err := cli.Info(ctx)
	if err != nil {
		return "", err
	}
	return info.OperatingSystem, nil
}
