package cluster

import (
	"context"
	"fmt"
	"sort"
	"strings"

	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// Monitoring endpoint names produced by DiscoverMonitoringServices.
const (
	ServiceMetrics   = "metrics"
	ServiceDashboard = "dashboard"
)

// DiscoverMonitoringServices looks for Prometheus and Grafana services across
// all namespaces and returns their in-cluster URLs keyed by ServiceMetrics and
// ServiceDashboard. The first match in namespace/name order wins.
func (c *Client) DiscoverMonitoringServices(ctx context.Context) (map[string]string, error) {
	services, err := c.clientset.CoreV1().Services(metav1.NamespaceAll).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}

	items := services.Items
	sort.Slice(items, func(i, j int) bool {
		if items[i].Namespace != items[j].Namespace {
			return items[i].Namespace < items[j].Namespace
		}
		return items[i].Name < items[j].Name
	})

	found := make(map[string]string)
	for _, svc := range items {
		name := strings.ToLower(svc.Name)
		var key string
		switch {
		case strings.Contains(name, "prometheus") && !strings.Contains(name, "operator"):
			key = ServiceMetrics
		case strings.Contains(name, "grafana"):
			key = ServiceDashboard
		default:
			continue
		}
		if _, exists := found[key]; exists {
			continue
		}
		found[key] = serviceURL(svc)
		c.logger.Debug("Discovered %s service %s/%s", key, svc.Namespace, svc.Name)
	}
	return found, nil
}

func serviceURL(svc corev1.Service) string {
	url := fmt.Sprintf("http://%s.%s.svc.cluster.local", svc.Name, svc.Namespace)
	if len(svc.Spec.Ports) > 0 && svc.Spec.Ports[0].Port != 80 {
		url = fmt.Sprintf("%s:%d", url, svc.Spec.Ports[0].Port)
	}
	return url
}
