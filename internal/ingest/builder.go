package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"itemforge/internal/domain"
	"itemforge/internal/embedding"
	"itemforge/internal/logging"
	"itemforge/internal/snapshot"
	"itemforge/internal/vectorstore"
)

// Builder produces a complete, populated index from source documents. It
// never touches an index that is serving queries: every build gets a fresh
// embedder and a fresh index from the factories.
type Builder struct {
	newEmbedder embedding.Factory
	newIndex    vectorstore.Factory
	batchSize   int
	concurrency int
	logger      *zap.Logger
}

// Option configures a Builder.
type Option func(*Builder)

func WithBatchSize(n int) Option {
	return func(b *Builder) {
		if n > 0 {
			b.batchSize = n
		}
	}
}

func WithConcurrency(n int) Option {
	return func(b *Builder) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(b *Builder) { b.logger = logging.OrNop(l) }
}

// NewBuilder creates a Builder.
func NewBuilder(newEmbedder embedding.Factory, newIndex vectorstore.Factory, opts ...Option) *Builder {
	b := &Builder{
		newEmbedder: newEmbedder,
		newIndex:    newIndex,
		batchSize:   32,
		concurrency: 4,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Result is a finished build, ready to be installed.
type Result struct {
	BuildID   string
	Index     domain.VectorIndex
	Embedder  domain.Embedder
	Records   []domain.Record
	Documents int
	Skipped   []Skip
	Duration  time.Duration
}

// Build normalizes docs, embeds every entry and populates a new index.
// Record ids follow ingestion order. It returns domain.ErrNoContent when no
// document yields text.
func (b *Builder) Build(ctx context.Context, docs []SourceDocument) (*Result, error) {
	start := time.Now()
	var (
		entries []Entry
		skipped []Skip
	)
	for _, doc := range docs {
		e, s := Normalize(doc)
		entries = append(entries, e...)
		skipped = append(skipped, s...)
	}
	for _, s := range skipped {
		b.logger.Warn("skipped source content",
			zap.String("source", s.Source), zap.Int("element", s.Element), zap.String("reason", s.Reason))
	}
	if len(entries) == 0 {
		return nil, domain.ErrNoContent
	}

	emb, err := b.newEmbedder(ctx)
	if err != nil {
		return nil, fmt.Errorf("create embedder: %w", err)
	}
	texts := make([]string, len(entries))
	for i, e := range entries {
		texts[i] = e.Text
	}
	if p, ok := emb.(embedding.Preparer); ok {
		if err := p.Prepare(texts); err != nil {
			return nil, fmt.Errorf("prepare embedder: %w", err)
		}
	}

	vectors, err := b.embedAll(ctx, emb, texts)
	if err != nil {
		return nil, err
	}
	dim := emb.Dimension()
	if dim == 0 {
		dim = len(vectors[0])
	}
	records := make([]domain.Record, len(entries))
	for i, e := range entries {
		if len(vectors[i]) != dim {
			return nil, fmt.Errorf("%w: entry %d has %d, expected %d", domain.ErrDimensionMismatch, i, len(vectors[i]), dim)
		}
		records[i] = domain.Record{ID: i, Text: e.Text, Vector: vectors[i], Metadata: e.Metadata}
	}

	buildID := snapshot.NewBuildID()
	idx, err := b.newIndex(ctx, dim, buildID)
	if err != nil {
		return nil, fmt.Errorf("create index: %w", err)
	}
	if err := idx.Insert(ctx, records); err != nil {
		if d, ok := idx.(vectorstore.Dropper); ok {
			_ = d.Drop(context.WithoutCancel(ctx))
		}
		_ = idx.Close()
		return nil, fmt.Errorf("populate index: %w", err)
	}

	res := &Result{
		BuildID:   buildID,
		Index:     idx,
		Embedder:  emb,
		Records:   records,
		Documents: len(docs),
		Skipped:   skipped,
		Duration:  time.Since(start),
	}
	b.logger.Info("knowledge base built",
		zap.String("build_id", buildID),
		zap.Int("documents", len(docs)),
		zap.Int("records", len(records)),
		zap.Int("skipped", len(skipped)),
		zap.Duration("duration", res.Duration))
	return res, nil
}

// embedAll embeds texts in batches with bounded concurrency. The first
// failure cancels the remaining batches.
func (b *Builder) embedAll(ctx context.Context, emb domain.Embedder, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	want := emb.Dimension()
	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(b.concurrency)
	for start := 0; start < len(texts); start += b.batchSize {
		start, end := start, min(start+b.batchSize, len(texts))
		eg.Go(func() error {
			out, err := emb.EmbedBatch(egCtx, texts[start:end])
			if err != nil {
				return fmt.Errorf("embed batch %d-%d: %w", start, end, err)
			}
			if len(out) != end-start {
				return fmt.Errorf("embed batch %d-%d: got %d vectors", start, end, len(out))
			}
			for i, v := range out {
				if want > 0 && len(v) != want {
					return fmt.Errorf("%w: entry %d has %d, expected %d", domain.ErrDimensionMismatch, start+i, len(v), want)
				}
				vectors[start+i] = v
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	if len(vectors) == 0 || vectors[0] == nil {
		return nil, errors.New("embedder returned no vectors")
	}
	return vectors, nil
}
