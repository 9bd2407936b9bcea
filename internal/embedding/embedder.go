// Package embedding selects the embedding provider used to vectorize the
// knowledge base and incoming queries.
package embedding

import (
	"context"
	"fmt"
	"time"

	"itemforge/internal/config"
	"itemforge/internal/domain"
	"itemforge/internal/embedding/genai"
	"itemforge/internal/embedding/openai"
	"itemforge/internal/embedding/tfidf"
)

// Preparer is implemented by embedders that must be fitted on the corpus
// before they can embed.
type Preparer interface {
	Prepare(corpus []string) error
}

// Stateful is implemented by embedders whose fitted state is persisted with
// the index snapshot so a reload does not need the corpus.
type Stateful interface {
	MarshalState() ([]byte, error)
	RestoreState(data []byte) error
}

// Factory returns a fresh embedder. Every knowledge base build asks for a new
// instance so a fitted model is never mutated while queries are using it.
type Factory func(ctx context.Context) (domain.Embedder, error)

// NewFactory validates cfg and returns a Factory for the configured backend.
func NewFactory(cfg config.EmbedderConfig) (Factory, error) {
	switch cfg.Type {
	case "tfidf", "":
		return func(context.Context) (domain.Embedder, error) {
			return tfidf.NewEmbedder(cfg.Dimension), nil
		}, nil
	case "openai":
		if cfg.OpenAI == nil {
			return nil, fmt.Errorf("openai embedder config missing")
		}
		oc := *cfg.OpenAI
		return func(context.Context) (domain.Embedder, error) {
			return openai.NewClient(openai.Config{
				BaseURL:           oc.BaseURL,
				APIKeyEnv:         oc.APIKeyEnv,
				Model:             oc.Model,
				Timeout:           time.Duration(oc.TimeoutSecs) * time.Second,
				Dimension:         cfg.Dimension,
				RequestsPerSecond: oc.RequestsPerSecond,
			})
		}, nil
	case "genai":
		if cfg.GenAI == nil {
			return nil, fmt.Errorf("genai embedder config missing")
		}
		gc := *cfg.GenAI
		return func(ctx context.Context) (domain.Embedder, error) {
			return genai.NewEngine(ctx, genai.Config{
				APIKeyEnv: gc.APIKeyEnv,
				Model:     gc.Model,
				Dimension: cfg.Dimension,
			})
		}, nil
	default:
		return nil, fmt.Errorf("unknown embedder: %s", cfg.Type)
	}
}
