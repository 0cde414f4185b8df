// Package cluster reads workload state from the Kubernetes API.
package cluster

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/moolen/vigil/internal/logging"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

// Options configures how the client connects.
type Options struct {
	// Kubeconfig path; empty uses $KUBECONFIG or ~/.kube/config
	Kubeconfig string
	// Context overrides the current kubeconfig context
	Context string
	// Timeout applied to every request made through the rest config
	Timeout time.Duration
}

// Client is a thin read-only view over the Kubernetes API.
type Client struct {
	clientset   kubernetes.Interface
	host        string
	contextName string
	logger      *logging.Logger
}

// New builds a client from in-cluster config, falling back to kubeconfig.
func New(opts Options) (*Client, error) {
	restConfig, contextName, err := buildClientConfig(opts)
	if err != nil {
		return nil, err
	}
	if opts.Timeout > 0 {
		restConfig.Timeout = opts.Timeout
	}

	clientset, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create clientset: %w", err)
	}

	return NewForClientset(clientset, restConfig.Host, contextName), nil
}

// NewForClientset wraps an existing clientset. host and contextName feed ClusterInfo.
func NewForClientset(clientset kubernetes.Interface, host, contextName string) *Client {
	return &Client{
		clientset:   clientset,
		host:        host,
		contextName: contextName,
		logger:      logging.GetLogger("cluster"),
	}
}

func buildClientConfig(opts Options) (*rest.Config, string, error) {
	if opts.Kubeconfig == "" && opts.Context == "" {
		if cfg, err := rest.InClusterConfig(); err == nil {
			return cfg, "in-cluster", nil
		}
	}

	rules := clientcmd.NewDefaultClientConfigLoadingRules()
	if opts.Kubeconfig != "" {
		rules.ExplicitPath = opts.Kubeconfig
	} else if os.Getenv(clientcmd.RecommendedConfigPathEnvVar) == "" {
		if home, err := os.UserHomeDir(); err == nil {
			rules.ExplicitPath = filepath.Join(home, ".kube", "config")
		}
	}

	overrides := &clientcmd.ConfigOverrides{CurrentContext: opts.Context}
	loader := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(rules, overrides)

	cfg, err := loader.ClientConfig()
	if err != nil {
		return nil, "", fmt.Errorf("failed to build client config: %w", err)
	}

	contextName := opts.Context
	if contextName == "" {
		if raw, err := loader.RawConfig(); err == nil {
			contextName = raw.CurrentContext
		}
	}
	return cfg, contextName, nil
}

// Reachable reports whether the API server answers a version request.
func (c *Client) Reachable(ctx context.Context) bool {
	if err := ctx.Err(); err != nil {
		return false
	}
	version, err := c.clientset.Discovery().ServerVersion()
	if err != nil {
		c.logger.Debug("API server not reachable: %v", err)
		return false
	}
	c.logger.Debug("API server reachable, version %s", version.GitVersion)
	return true
}

// ClusterInfo returns the API server host and context name, lower-cased.
// It plays the role of `kubectl cluster-info` output for local-cluster detection.
func (c *Client) ClusterInfo() string {
	return strings.ToLower(strings.TrimSpace(c.host + " " + c.contextName))
}

// NodeProviderID returns spec.providerID of the first node, e.g. "aws:///eu-west-1a/i-0abc".
func (c *Client) NodeProviderID(ctx context.Context) (string, error) {
	nodes, err := c.clientset.CoreV1().Nodes().List(ctx, metav1.ListOptions{Limit: 1})
	if err != nil {
		return "", fmt.Errorf("list nodes: %w", err)
	}
	if len(nodes.Items) == 0 {
		return "", nil
	}
	return nodes.Items[0].Spec.ProviderID, nil
}

// ListPods returns all pods in namespace.
func (c *Client) ListPods(ctx context.Context, namespace string) ([]corev1.Pod, error) {
	pods, err := c.clientset.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("list pods in %s: %w", namespace, err)
	}
	return pods.Items, nil
}

// ListEvents returns events in namespace sorted by their last occurrence, oldest first.
func (c *Client) ListEvents(ctx context.Context, namespace string) ([]corev1.Event, error) {
	events, err := c.clientset.CoreV1().Events(namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("list events in %s: %w", namespace, err)
	}
	items := events.Items
	sort.SliceStable(items, func(i, j int) bool {
		return EventTime(items[i]).Before(EventTime(items[j]))
	})
	return items, nil
}

// EventTime returns the most specific timestamp recorded on an event.
func EventTime(e corev1.Event) time.Time {
	switch {
	case e.Series != nil && !e.Series.LastObservedTime.IsZero():
		return e.Series.LastObservedTime.Time
	case !e.LastTimestamp.IsZero():
		return e.LastTimestamp.Time
	case !e.EventTime.IsZero():
		return e.EventTime.Time
	case !e.FirstTimestamp.IsZero():
		return e.FirstTimestamp.Time
	default:
		return e.CreationTimestamp.Time
	}
}
