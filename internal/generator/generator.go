// Package generator drafts magic items with a language model. The model is a
// black box behind Completer; this package owns the prompt and makes sense
// of whatever comes back.
package generator

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"itemforge/internal/domain"
	"itemforge/internal/logging"
)

// Completer sends one system and one user message to a model and returns
// the raw reply.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// DraftGenerator implements domain.Generator.
type DraftGenerator struct {
	completer        Completer
	summarizer       domain.Summarizer
	contextSentences int
	logger           *zap.Logger
}

// Option configures a DraftGenerator.
type Option func(*DraftGenerator)

// WithSummarizer trims each context passage to n sentences.
func WithSummarizer(s domain.Summarizer, n int) Option {
	return func(g *DraftGenerator) {
		g.summarizer = s
		g.contextSentences = n
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(g *DraftGenerator) { g.logger = logging.OrNop(l) }
}

// NewDraftGenerator creates a generator over c.
func NewDraftGenerator(c Completer, opts ...Option) *DraftGenerator {
	g := &DraftGenerator{completer: c, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *DraftGenerator) trim(text string) string {
	if g.summarizer == nil || g.contextSentences <= 0 {
		return text
	}
	out, err := g.summarizer.Summarize(text, g.contextSentences)
	if err != nil || out == "" {
		return text
	}
	return out
}

// Draft asks the model for an item. Any failure, including an unusable
// reply, is reported as domain.ErrNoDraft.
func (g *DraftGenerator) Draft(ctx context.Context, request string, passages []domain.SearchResult) (*domain.Draft, error) {
	if strings.TrimSpace(request) == "" {
		return nil, domain.ErrEmptyQuery
	}
	system := SystemPrompt(ContextBlock(passages, g.trim))
	reply, err := g.completer.Complete(ctx, system, request)
	if err != nil {
		g.logger.Warn("completion failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %v", domain.ErrNoDraft, err)
	}
	draft, err := ParseDraft(reply)
	if err != nil {
		g.logger.Warn("unusable completion", zap.Error(err), zap.Int("reply_bytes", len(reply)))
		return nil, fmt.Errorf("%w: %v", domain.ErrNoDraft, err)
	}
	if draft.SourceType == "" {
		draft.SourceType = "Paizo PF1e"
	}
	return draft, nil
}

// Unavailable is the generator used when none is configured.
type Unavailable struct{}

func (Unavailable) Draft(context.Context, string, []domain.SearchResult) (*domain.Draft, error) {
	return nil, domain.ErrGeneratorUnavailable
}
