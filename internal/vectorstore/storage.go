// Package vectorstore selects the vector index backend.
package vectorstore

import (
	"context"
	"fmt"
	"os"
	"time"

	"itemforge/internal/config"
	"itemforge/internal/domain"
	"itemforge/internal/vectorstore/memory"
	"itemforge/internal/vectorstore/qdrant"
)

// Factory creates an empty index for one knowledge base build.
type Factory func(ctx context.Context, dimension int, buildID string) (domain.VectorIndex, error)

// Dropper is implemented by indexes whose storage outlives the process.
// A superseded generation is dropped once the new one is live.
type Dropper interface {
	Drop(ctx context.Context) error
}

// NewFactory validates cfg and returns a Factory for the configured backend.
func NewFactory(cfg config.VectorStoreConfig) (Factory, domain.Metric, error) {
	metric, err := domain.ParseMetric(cfg.Metric)
	if err != nil {
		return nil, "", err
	}
	switch cfg.Type {
	case "memory", "":
		return func(_ context.Context, dimension int, _ string) (domain.VectorIndex, error) {
			return memory.NewIndex(dimension, metric)
		}, metric, nil
	case "qdrant":
		if cfg.Qdrant == nil {
			return nil, "", fmt.Errorf("qdrant config missing")
		}
		qc := qdrant.Config{
			URL:        cfg.Qdrant.URL,
			APIKey:     os.Getenv(cfg.Qdrant.APIKeyEnv),
			Collection: cfg.Qdrant.Collection,
			Timeout:    time.Duration(cfg.Qdrant.TimeoutSecs) * time.Second,
		}
		return func(ctx context.Context, dimension int, buildID string) (domain.VectorIndex, error) {
			return qdrant.NewIndex(ctx, qc, dimension, metric, buildID)
		}, metric, nil
	default:
		return nil, "", fmt.Errorf("unknown vector store: %s", cfg.Type)
	}
}
