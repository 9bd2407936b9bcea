package ingest

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"itemforge/internal/domain"
	"itemforge/internal/embedding"
	"itemforge/internal/snapshot"
)

// Restore turns a persisted snapshot back into a servable build without
// calling the embedding backend for the stored records.
func (b *Builder) Restore(ctx context.Context, snap *snapshot.Snapshot) (*Result, error) {
	start := time.Now()
	if len(snap.Records) == 0 {
		return nil, domain.ErrNoContent
	}
	emb, err := b.newEmbedder(ctx)
	if err != nil {
		return nil, fmt.Errorf("create embedder: %w", err)
	}
	switch e := emb.(type) {
	case embedding.Stateful:
		if len(snap.EmbedderState) == 0 {
			return nil, fmt.Errorf("snapshot %s has no state for embedder %s", snap.BuildID, emb.Name())
		}
		if err := e.RestoreState(snap.EmbedderState); err != nil {
			return nil, fmt.Errorf("restore embedder: %w", err)
		}
	case embedding.Preparer:
		texts := make([]string, len(snap.Records))
		for i, r := range snap.Records {
			texts[i] = r.Text
		}
		if err := e.Prepare(texts); err != nil {
			return nil, fmt.Errorf("prepare embedder: %w", err)
		}
	}
	if emb.Name() != snap.Embedder {
		b.logger.Warn("embedder differs from snapshot",
			zap.String("build_id", snap.BuildID), zap.String("snapshot", snap.Embedder), zap.String("configured", emb.Name()))
	}
	if d := emb.Dimension(); d > 0 && d != snap.Dimension {
		return nil, fmt.Errorf("%w: embedder has %d, snapshot %s has %d", domain.ErrDimensionMismatch, d, snap.BuildID, snap.Dimension)
	}

	idx, err := b.newIndex(ctx, snap.Dimension, snap.BuildID)
	if err != nil {
		return nil, fmt.Errorf("create index: %w", err)
	}
	if idx.Metric() != snap.Metric {
		_ = idx.Close()
		return nil, fmt.Errorf("snapshot %s uses metric %s, index uses %s", snap.BuildID, snap.Metric, idx.Metric())
	}
	// A remote collection for this build may already hold the records.
	if idx.Len() != len(snap.Records) {
		if err := idx.Reset(ctx); err != nil {
			_ = idx.Close()
			return nil, fmt.Errorf("reset index: %w", err)
		}
		if err := idx.Insert(ctx, snap.Records); err != nil {
			_ = idx.Close()
			return nil, fmt.Errorf("populate index: %w", err)
		}
	}

	res := &Result{
		BuildID:  snap.BuildID,
		Index:    idx,
		Embedder: emb,
		Records:  snap.Records,
		Duration: time.Since(start),
	}
	b.logger.Info("knowledge base restored",
		zap.String("build_id", snap.BuildID),
		zap.Int("records", len(snap.Records)),
		zap.Duration("duration", res.Duration))
	return res, nil
}
