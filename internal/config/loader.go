package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// LoadOptions controls where Load reads configuration from.
type LoadOptions struct {
	// ConfigFile is an optional YAML file. Missing file is an error when set.
	ConfigFile string

	// EnvFile is loaded with godotenv before the environment is read.
	// A missing EnvFile is ignored.
	EnvFile string

	// LookupEnv defaults to os.LookupEnv.
	LookupEnv func(string) (string, bool)
}

// Load builds a Config from defaults, the YAML file and the environment,
// in increasing order of precedence. Flags are applied by the caller.
func Load(opts LoadOptions) (*Config, error) {
	cfg := Default()

	if opts.ConfigFile != "" {
		if err := loadFile(cfg, opts.ConfigFile); err != nil {
			return nil, err
		}
	}

	if opts.EnvFile != "" {
		if err := godotenv.Load(opts.EnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load env file %q: %w", opts.EnvFile, err)
		}
	}

	lookup := opts.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if err := applyEnv(cfg, lookup); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadFile(cfg *Config, path string) error {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return fmt.Errorf("failed to load config from %q: %w", path, err)
	}
	if err := k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return fmt.Errorf("failed to parse config from %q: %w", path, err)
	}
	return nil
}

// applyEnv overlays the recognised environment variables on cfg.
func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	str("NAMESPACE", &cfg.Namespace)
	str("PROM_URL", &cfg.MetricsURL)
	str("GRAFANA_URL", &cfg.DashboardURL)
	str("NARRATIVE_PROVIDER", &cfg.NarrativeProvider)
	str("BEDROCK_MODEL_ID", &cfg.ModelID)
	str("BEDROCK_REGION", &cfg.ModelRegion)
	str("ANTHROPIC_API_KEY", &cfg.AnthropicAPIKey)
	str("GEMINI_API_KEY", &cfg.GeminiAPIKey)
	str("TELEGRAM_BOT_TOKEN", &cfg.TelegramToken)
	str("TELEGRAM_CHAT_ID", &cfg.TelegramChatID)
	str("CI_PIPELINE_ID", &cfg.PipelineID)
	str("CI_COMMIT_SHA", &cfg.CommitSHA)
	str("CI_ENVIRONMENT", &cfg.Environment)
	str("PUSHGATEWAY_URL", &cfg.PushgatewayURL)
	str("OTEL_EXPORTER_OTLP_ENDPOINT", &cfg.TracingEndpoint)

	cfg.NarrativeProvider = strings.ToLower(cfg.NarrativeProvider)

	if v, ok := lookup("BLOCKING_MODE"); ok && v != "" {
		cfg.BlockingMode = parseBool(v)
	}
	if v, ok := lookup("AI_OBSERVABILITY_SIMULATION"); ok && v != "" {
		cfg.Simulation = parseBool(v)
	}

	if v, ok := lookup("BLOCKING_THRESHOLD"); ok && v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return NewConfigError(fmt.Sprintf("BLOCKING_THRESHOLD: invalid number %q", v))
		}
		cfg.BlockingThreshold = f
	}

	if v, ok := lookup("PROBE_TIMEOUT"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return NewConfigError(fmt.Sprintf("PROBE_TIMEOUT: invalid duration %q", v))
		}
		cfg.ProbeTimeout = d
	}

	return nil
}

// parseBool accepts the spellings pipelines commonly use; anything else is false.
func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
