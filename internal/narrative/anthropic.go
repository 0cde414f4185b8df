package narrative

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/bedrock"
	"github.com/anthropics/anthropic-sdk-go/option"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
)

// Anthropic generates narratives with Claude, either directly or via Bedrock.
type Anthropic struct {
	client      anthropic.Client
	name        string
	model       string
	maxTokens   int
	temperature float64
}

// NewAnthropic talks to the Anthropic API with an API key.
func NewAnthropic(s Settings) *Anthropic {
	s = s.withDefaults()
	opts := []option.RequestOption{
		option.WithAPIKey(s.AnthropicAPIKey),
		option.WithMaxRetries(0),
	}
	if s.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(s.BaseURL))
	}
	return &Anthropic{
		client:      anthropic.NewClient(opts...),
		name:        "anthropic",
		model:       s.modelFor(DefaultAnthropicModel),
		maxTokens:   s.MaxTokens,
		temperature: s.Temperature,
	}
}

// NewBedrock talks to Claude on Amazon Bedrock using the default AWS credential chain.
func NewBedrock(ctx context.Context, s Settings) (*Anthropic, error) {
	s = s.withDefaults()
	if s.ModelID == "" {
		return nil, fmt.Errorf("bedrock requires a model id")
	}
	region := s.Region
	if region == "" {
		region = "us-east-1"
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return &Anthropic{
		client: anthropic.NewClient(
			bedrock.WithConfig(awsCfg),
			option.WithMaxRetries(0),
		),
		name:        "bedrock",
		model:       s.ModelID,
		maxTokens:   s.MaxTokens,
		temperature: s.Temperature,
	}, nil
}

func (a *Anthropic) Name() string { return a.name }

// Generate sends a single user turn and returns the concatenated text blocks.
func (a *Anthropic) Generate(ctx context.Context, systemPrompt, query string) (string, error) {
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(a.model),
		MaxTokens:   int64(a.maxTokens),
		Temperature: anthropic.Float(a.temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(query)),
		},
	}
	if systemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: systemPrompt}}
	}

	resp, err := a.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("%s API call failed: %w", a.name, err)
	}

	var parts []string
	for i := range resp.Content {
		if block := &resp.Content[i]; block.Type == "text" {
			parts = append(parts, block.Text)
		}
	}
	return strings.TrimSpace(strings.Join(parts, "")), nil
}
