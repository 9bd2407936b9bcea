// Package retrieval serves similarity queries against the active knowledge
// base generation and installs new generations without blocking readers.
package retrieval

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"itemforge/internal/domain"
	"itemforge/internal/logging"
	"itemforge/internal/vectorstore"
)

// Generation is one complete, immutable build of the knowledge base.
type Generation struct {
	BuildID  string
	Index    domain.VectorIndex
	Embedder domain.Embedder
	BuiltAt  time.Time
	// Records backs the lexical fallback. It may be nil for remote indexes.
	Records []domain.Record

	refs    atomic.Int64
	retired atomic.Bool
	once    sync.Once
	drop    bool
	logger  *zap.Logger
}

func (g *Generation) release() {
	if g.refs.Add(-1) == 0 && g.retired.Load() {
		g.destroy()
	}
}

func (g *Generation) destroy() {
	g.once.Do(func() {
		if d, ok := g.Index.(vectorstore.Dropper); ok && g.drop {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := d.Drop(ctx); err != nil {
				g.logger.Warn("drop retired index", zap.String("build_id", g.BuildID), zap.Error(err))
			}
		}
		if err := g.Index.Close(); err != nil {
			g.logger.Warn("close retired index", zap.String("build_id", g.BuildID), zap.Error(err))
		}
	})
}

// KnowledgeBase holds the active generation. Readers never lock; a swap
// retires the previous generation once its last reader is done.
type KnowledgeBase struct {
	current atomic.Pointer[Generation]
	logger  *zap.Logger
}

// NewKnowledgeBase returns an empty knowledge base.
func NewKnowledgeBase(logger *zap.Logger) *KnowledgeBase {
	return &KnowledgeBase{logger: logging.OrNop(logger)}
}

// Current returns the active generation or nil. The result must not be used
// after a later Swap; query paths use acquire instead.
func (kb *KnowledgeBase) Current() *Generation {
	return kb.current.Load()
}

// acquire pins the active generation until release is called.
func (kb *KnowledgeBase) acquire() *Generation {
	for {
		g := kb.current.Load()
		if g == nil {
			return nil
		}
		g.refs.Add(1)
		if kb.current.Load() == g {
			return g
		}
		g.release()
	}
}

// Swap installs g and retires the previous generation. Retired remote
// collections are dropped.
func (kb *KnowledgeBase) Swap(g *Generation) {
	g.logger = kb.logger
	g.drop = true
	if g.BuiltAt.IsZero() {
		g.BuiltAt = time.Now()
	}
	old := kb.current.Swap(g)
	kb.logger.Info("knowledge base generation installed",
		zap.String("build_id", g.BuildID), zap.Int("records", g.Index.Len()))
	if old == nil || old == g {
		return
	}
	old.retired.Store(true)
	if old.refs.Load() == 0 {
		old.destroy()
	}
}

// Close releases the active generation without dropping remote data.
func (kb *KnowledgeBase) Close() error {
	g := kb.current.Swap(nil)
	if g == nil {
		return nil
	}
	g.drop = false
	g.retired.Store(true)
	if g.refs.Load() == 0 {
		g.destroy()
	}
	return nil
}
