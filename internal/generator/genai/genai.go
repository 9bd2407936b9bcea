// Package genai completes prompts with Google's Gemini models.
package genai

import (
	"context"
	"errors"
	"fmt"
	"os"

	"google.golang.org/genai"

	"itemforge/internal/domain"
)

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.5-flash"

// generateAPI is the subset of *genai.Models used here.
type generateAPI interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Config configures the Gemini completer.
type Config struct {
	APIKeyEnv   string
	Model       string
	Temperature float64
}

// Client requests JSON replies from Gemini.
type Client struct {
	models      generateAPI
	model       string
	temperature float64
}

// NewClient creates a Gemini completer.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("%w: missing API key in env %s", domain.ErrGeneratorUnavailable, cfg.APIKeyEnv)
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  key,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return newClient(client.Models, cfg), nil
}

func newClient(models generateAPI, cfg Config) *Client {
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	return &Client{models: models, model: model, temperature: cfg.Temperature}
}

// Complete sends system as the system instruction and user as the only turn.
func (c *Client) Complete(ctx context.Context, system, user string) (string, error) {
	cfg := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		ResponseMIMEType:  "application/json",
	}
	if c.temperature > 0 {
		cfg.Temperature = genai.Ptr(float32(c.temperature))
	}
	resp, err := c.models.GenerateContent(ctx, c.model, genai.Text(user), cfg)
	if err != nil {
		return "", fmt.Errorf("genai generate: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return "", errors.New("genai returned no text")
	}
	return text, nil
}
