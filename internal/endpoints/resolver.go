// Package endpoints resolves the concrete endpoint URLs a run talks to.
package endpoints

import (
	"strings"

	"github.com/moolen/vigil/internal/environment"
)

// Unset marks an endpoint with no usable URL.
const Unset = "unset"

// Mock URLs handed out for synthetic profiles.
const (
	MockMetricsURL   = "http://mock-prometheus"
	MockDashboardURL = "http://mock-grafana"
)

var mockURLs = map[string]string{
	environment.EndpointMetrics:   MockMetricsURL,
	environment.EndpointDashboard: MockDashboardURL,
}

// Standard names every resolved map contains.
var Standard = []string{environment.EndpointMetrics, environment.EndpointDashboard}

// Overrides are explicit endpoint URLs keyed by endpoint name. Empty values are ignored.
type Overrides map[string]string

// Resolve returns endpoint name -> URL. For every endpoint the first of these
// wins: a non-empty override, the profile-derived URL, a mock URL when the
// profile is synthetic, Unset. Resolve has no side effects.
func Resolve(profile environment.Profile, overrides Overrides) map[string]string {
	resolved := make(map[string]string)

	names := profile.Endpoints()
	for _, name := range Standard {
		names[name] = names[name]
	}
	for name := range overrides {
		names[name] = names[name]
	}

	for name, derived := range names {
		switch {
		case strings.TrimSpace(overrides[name]) != "":
			resolved[name] = strings.TrimSpace(overrides[name])
		case derived != "":
			resolved[name] = derived
		case profile.Kind().Synthetic() && mockURLs[name] != "":
			resolved[name] = mockURLs[name]
		default:
			resolved[name] = Unset
		}
	}
	return resolved
}

// Usable reports whether url can be dialled: neither Unset, empty nor a mock URL.
func Usable(url string) bool {
	return url != "" && url != Unset && !IsMock(url)
}

// IsMock reports whether url is a placeholder for synthetic runs.
func IsMock(url string) bool {
	return strings.Contains(strings.ToLower(url), "mock")
}
