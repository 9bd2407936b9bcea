package generator

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"itemforge/internal/config"
	"itemforge/internal/domain"
	"itemforge/internal/generator/genai"
	"itemforge/internal/generator/openai"
)

// New builds the configured generator. Type "none" yields Unavailable.
func New(ctx context.Context, cfg config.GeneratorConfig, summarizer domain.Summarizer, logger *zap.Logger) (domain.Generator, error) {
	var (
		c   Completer
		err error
	)
	switch cfg.Type {
	case "", "none":
		return Unavailable{}, nil
	case "openai":
		if cfg.OpenAI == nil {
			return nil, fmt.Errorf("openai generator config missing")
		}
		c, err = openai.NewClient(openai.Config{
			BaseURL:           cfg.OpenAI.BaseURL,
			APIKeyEnv:         cfg.OpenAI.APIKeyEnv,
			Model:             cfg.OpenAI.Model,
			Timeout:           time.Duration(cfg.OpenAI.TimeoutSecs) * time.Second,
			RequestsPerSecond: cfg.OpenAI.RequestsPerSecond,
			Temperature:       cfg.Temperature,
		})
	case "genai":
		if cfg.GenAI == nil {
			return nil, fmt.Errorf("genai generator config missing")
		}
		c, err = genai.NewClient(ctx, genai.Config{
			APIKeyEnv:   cfg.GenAI.APIKeyEnv,
			Model:       cfg.GenAI.Model,
			Temperature: cfg.Temperature,
		})
	default:
		return nil, fmt.Errorf("unknown generator: %s", cfg.Type)
	}
	if err != nil {
		return nil, err
	}
	return NewDraftGenerator(c, WithSummarizer(summarizer, cfg.ContextSentences), WithLogger(logger)), nil
}
