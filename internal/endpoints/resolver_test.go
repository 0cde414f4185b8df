package endpoints

import (
	"testing"

	"github.com/moolen/vigil/internal/environment"
	"github.com/stretchr/testify/assert"
)

func profile(kind environment.Kind, endpoints map[string]string) environment.Profile {
	return environment.NewProfile(environment.ProfileData{Kind: kind, Endpoints: endpoints})
}

func TestResolve_Precedence(t *testing.T) {
	tests := []struct {
		name      string
		profile   environment.Profile
		overrides Overrides
		want      map[string]string
	}{
		{
			name:      "override beats profile",
			profile:   profile(environment.KindLocalK8s, map[string]string{"metrics": "http://localhost:9090"}),
			overrides: Overrides{"metrics": "http://prom.example.com"},
			want: map[string]string{
				"metrics":   "http://prom.example.com",
				"dashboard": Unset,
			},
		},
		{
			name:      "empty override falls through to profile",
			profile:   profile(environment.KindLocalK8s, map[string]string{"metrics": "http://localhost:9090", "dashboard": "http://localhost:3000"}),
			overrides: Overrides{"metrics": "  "},
			want: map[string]string{
				"metrics":   "http://localhost:9090",
				"dashboard": "http://localhost:3000",
			},
		},
		{
			name:    "simulated gets mocks",
			profile: profile(environment.KindSimulated, nil),
			want: map[string]string{
				"metrics":   MockMetricsURL,
				"dashboard": MockDashboardURL,
			},
		},
		{
			name:      "override wins even when simulated",
			profile:   profile(environment.KindSimulated, nil),
			overrides: Overrides{"dashboard": "http://grafana.example.com"},
			want: map[string]string{
				"metrics":   MockMetricsURL,
				"dashboard": "http://grafana.example.com",
			},
		},
		{
			name:    "unknown gets mocks",
			profile: profile(environment.KindUnknown, nil),
			want: map[string]string{
				"metrics":   MockMetricsURL,
				"dashboard": MockDashboardURL,
			},
		},
		{
			name:    "real profile without data is unset",
			profile: profile(environment.KindCIPlatform, nil),
			want: map[string]string{
				"metrics":   Unset,
				"dashboard": Unset,
			},
		},
		{
			name:    "provider endpoints are carried",
			profile: profile(environment.KindCloudK8s, map[string]string{"cloudwatch": "https://monitoring.eu-west-1.amazonaws.com"}),
			want: map[string]string{
				"metrics":    Unset,
				"dashboard":  Unset,
				"cloudwatch": "https://monitoring.eu-west-1.amazonaws.com",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(tt.profile, tt.overrides))
		})
	}
}

func TestResolve_Pure(t *testing.T) {
	p := profile(environment.KindLocalK8s, map[string]string{"metrics": "http://localhost:9090"})
	overrides := Overrides{"dashboard": "http://grafana"}

	first := Resolve(p, overrides)
	second := Resolve(p, overrides)

	assert.Equal(t, first, second)
	assert.Equal(t, Overrides{"dashboard": "http://grafana"}, overrides)
	assert.Equal(t, "http://localhost:9090", p.Endpoint("metrics"))
	assert.Empty(t, p.Endpoint("dashboard"))
}

func TestUsable(t *testing.T) {
	assert.True(t, Usable("http://prometheus:9090"))
	assert.False(t, Usable(Unset))
	assert.False(t, Usable(""))
	assert.False(t, Usable(MockMetricsURL))
}
