package config

import (
	"fmt"
	"strings"
	"time"
)

// Narrative provider names accepted by NarrativeProvider.
const (
	ProviderBedrock   = "bedrock"
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
	ProviderNone      = "none"
)

// MaxSimulationUnits caps the number of synthetic units per run.
const MaxSimulationUnits = 100

// Config holds all configuration for a vigil run.
type Config struct {
	// Namespace is the scope in which units and events are enumerated
	Namespace string `koanf:"namespace"`

	// MetricsURL explicitly overrides the detected metrics backend
	MetricsURL string `koanf:"metrics_url"`

	// DashboardURL explicitly overrides the detected dashboard
	DashboardURL string `koanf:"dashboard_url"`

	// NarrativeProvider selects the model backend (bedrock, anthropic, gemini, none)
	NarrativeProvider string `koanf:"narrative_provider"`
	ModelID           string `koanf:"model_id"`
	ModelRegion       string `koanf:"model_region"`
	AnthropicAPIKey   string `koanf:"anthropic_api_key"`
	GeminiAPIKey      string `koanf:"gemini_api_key"`

	// TelegramToken and TelegramChatID enable notifications when both are set
	TelegramToken  string `koanf:"telegram_token"`
	TelegramChatID string `koanf:"telegram_chat_id"`

	// Pipeline labels. Used for output only, never for decisions.
	PipelineID  string `koanf:"pipeline_id"`
	CommitSHA   string `koanf:"commit_sha"`
	Environment string `koanf:"environment"`

	BlockingMode      bool    `koanf:"blocking_mode"`
	BlockingThreshold float64 `koanf:"blocking_threshold"`
	Simulation        bool    `koanf:"simulation"`

	SimulationMinUnits int `koanf:"simulation_min_units"`
	SimulationMaxUnits int `koanf:"simulation_max_units"`

	ProbeTimeout      time.Duration `koanf:"probe_timeout"`
	QueryTimeout      time.Duration `koanf:"query_timeout"`
	RangeQueryTimeout time.Duration `koanf:"range_query_timeout"`
	NotifyTimeout     time.Duration `koanf:"notify_timeout"`
	NarrativeTimeout  time.Duration `koanf:"narrative_timeout"`

	// PushgatewayURL receives run metrics when set
	PushgatewayURL string `koanf:"pushgateway_url"`

	// TracingEndpoint is the OTLP gRPC endpoint; empty disables tracing
	TracingEndpoint string `koanf:"tracing_endpoint"`
	TracingInsecure bool   `koanf:"tracing_insecure"`
}

// Default returns the configuration used when nothing else is set.
func Default() *Config {
	return &Config{
		Namespace:          "default",
		NarrativeProvider:  ProviderBedrock,
		ModelID:            "us.anthropic.claude-sonnet-4-20250514-v1:0",
		ModelRegion:        "us-east-1",
		PipelineID:         "manual-execution",
		CommitSHA:          "unknown",
		Environment:        "development",
		BlockingMode:       true,
		BlockingThreshold:  70,
		SimulationMinUnits: 3,
		SimulationMaxUnits: 8,
		ProbeTimeout:       5 * time.Second,
		QueryTimeout:       5 * time.Second,
		RangeQueryTimeout:  10 * time.Second,
		NotifyTimeout:      10 * time.Second,
		NarrativeTimeout:   120 * time.Second,
	}
}

// NotificationsEnabled reports whether both notification credentials are present.
func (c *Config) NotificationsEnabled() bool {
	return c.TelegramToken != "" && c.TelegramChatID != ""
}

// ClusterTimeout bounds Kubernetes API requests. It stays below ProbeTimeout
// so a hanging API server cannot exhaust an environment probe.
func (c *Config) ClusterTimeout() time.Duration {
	return min(c.QueryTimeout, c.ProbeTimeout/2)
}

// ShortCommit returns the first 8 characters of the commit id.
func (c *Config) ShortCommit() string {
	if len(c.CommitSHA) > 8 {
		return c.CommitSHA[:8]
	}
	return c.CommitSHA
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Namespace) == "" {
		return NewConfigError("Namespace must not be empty")
	}

	if c.BlockingThreshold < 0 || c.BlockingThreshold > 100 {
		return NewConfigError("BlockingThreshold must be between 0 and 100")
	}

	if c.SimulationMinUnits < 1 {
		return NewConfigError("SimulationMinUnits must be at least 1")
	}

	if c.SimulationMaxUnits < c.SimulationMinUnits {
		return NewConfigError("SimulationMaxUnits must not be smaller than SimulationMinUnits")
	}

	if c.SimulationMaxUnits > MaxSimulationUnits {
		return NewConfigError(fmt.Sprintf("SimulationMaxUnits must not exceed %d", MaxSimulationUnits))
	}

	if c.ProbeTimeout <= 0 || c.ProbeTimeout > 10*time.Second {
		return NewConfigError("ProbeTimeout must be within (0s, 10s]")
	}

	for name, d := range map[string]time.Duration{
		"QueryTimeout":      c.QueryTimeout,
		"RangeQueryTimeout": c.RangeQueryTimeout,
		"NotifyTimeout":     c.NotifyTimeout,
		"NarrativeTimeout":  c.NarrativeTimeout,
	} {
		if d <= 0 {
			return NewConfigError(fmt.Sprintf("%s must be positive", name))
		}
	}

	switch c.NarrativeProvider {
	case ProviderBedrock, ProviderAnthropic, ProviderGemini, ProviderNone:
	default:
		return NewConfigError(fmt.Sprintf("unknown narrative provider %q (must be bedrock, anthropic, gemini or none)", c.NarrativeProvider))
	}

	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	message string
}

// NewConfigError creates a new configuration error
func NewConfigError(message string) *ConfigError {
	return &ConfigError{message: message}
}

// Error returns the error message
func (e *ConfigError) Error() string {
	return e.message
}
