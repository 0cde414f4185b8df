package narrative

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// Gemini generates narratives with the Gemini API.
type Gemini struct {
	client      *genai.Client
	model       string
	maxTokens   int
	temperature float64
}

// NewGemini creates a Gemini API client.
func NewGemini(ctx context.Context, s Settings) (*Gemini, error) {
	s = s.withDefaults()
	cc := &genai.ClientConfig{
		APIKey:  s.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if s.BaseURL != "" {
		cc.HTTPOptions.BaseURL = s.BaseURL
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &Gemini{
		client:      client,
		model:       s.modelFor(DefaultGeminiModel),
		maxTokens:   s.MaxTokens,
		temperature: s.Temperature,
	}, nil
}

func (g *Gemini) Name() string { return "gemini" }

// Generate sends a single request with the system prompt as system instruction.
func (g *Gemini) Generate(ctx context.Context, systemPrompt, query string) (string, error) {
	cfg := &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(float32(g.temperature)),
		MaxOutputTokens: int32(g.maxTokens),
	}
	if systemPrompt != "" {
		cfg.SystemInstruction = genai.NewContentFromText(systemPrompt, genai.RoleUser)
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(query), cfg)
	if err != nil {
		return "", fmt.Errorf("gemini API call failed: %w", err)
	}
	return strings.TrimSpace(resp.Text()), nil
}
