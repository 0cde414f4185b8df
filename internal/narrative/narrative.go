// Package narrative turns a finished analysis into a short human-readable
// verdict using a hosted language model.
package narrative

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/moolen/vigil/internal/config"
	"github.com/moolen/vigil/internal/logging"
)

// ErrDisabled is returned by the no-op generator.
var ErrDisabled = errors.New("narrative generation disabled")

// Generator produces a narrative from a system prompt and a query.
type Generator interface {
	Generate(ctx context.Context, systemPrompt, query string) (string, error)

	// Name returns the provider name for logging and display.
	Name() string
}

// Default model identifiers for the directly addressed providers.
const (
	DefaultAnthropicModel = "claude-sonnet-4-20250514"
	DefaultGeminiModel    = "gemini-2.5-flash"
)

// Settings selects and configures a provider.
type Settings struct {
	Provider        string
	ModelID         string
	Region          string
	AnthropicAPIKey string
	GeminiAPIKey    string

	// BaseURL overrides the provider API root (anthropic and gemini only).
	BaseURL string

	MaxTokens   int
	Temperature float64
}

// SettingsFromConfig maps the run configuration onto provider settings.
func SettingsFromConfig(cfg *config.Config) Settings {
	return Settings{
		Provider:        cfg.NarrativeProvider,
		ModelID:         cfg.ModelID,
		Region:          cfg.ModelRegion,
		AnthropicAPIKey: cfg.AnthropicAPIKey,
		GeminiAPIKey:    cfg.GeminiAPIKey,
	}
}

func (s Settings) withDefaults() Settings {
	if s.MaxTokens <= 0 {
		s.MaxTokens = 1024
	}
	if s.Temperature == 0 {
		s.Temperature = 0.1
	}
	return s
}

// modelFor returns the configured model unless it is a Bedrock inference
// profile id, which only Bedrock understands.
func (s Settings) modelFor(fallback string) string {
	if s.ModelID == "" || strings.Contains(s.ModelID, "anthropic.") {
		return fallback
	}
	return s.ModelID
}

// New creates the generator for s. A provider whose credential is missing
// yields Noop; only construction failures are returned as errors.
func New(ctx context.Context, s Settings) (Generator, error) {
	logger := logging.GetLogger("narrative")
	s = s.withDefaults()

	switch s.Provider {
	case config.ProviderNone, "":
		return Noop{}, nil
	case config.ProviderBedrock:
		return NewBedrock(ctx, s)
	case config.ProviderAnthropic:
		if s.AnthropicAPIKey == "" {
			logger.Warn("ANTHROPIC_API_KEY not set, narrative disabled")
			return Noop{}, nil
		}
		return NewAnthropic(s), nil
	case config.ProviderGemini:
		if s.GeminiAPIKey == "" {
			logger.Warn("GEMINI_API_KEY not set, narrative disabled")
			return Noop{}, nil
		}
		return NewGemini(ctx, s)
	default:
		return nil, fmt.Errorf("unknown narrative provider %q", s.Provider)
	}
}

// Noop never calls a model.
type Noop struct{}

func (Noop) Generate(ctx context.Context, systemPrompt, query string) (string, error) {
	return "", ErrDisabled
}

func (Noop) Name() string { return "none" }
