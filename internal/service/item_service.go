// Package service runs the item pipeline: retrieve context, draft, price and
// validate. Each call is one request; nothing is shared between requests
// except the read-only knowledge base behind the Searcher.
package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"itemforge/internal/domain"
	"itemforge/internal/generator"
	"itemforge/internal/logging"
	"itemforge/internal/pricing"
	"itemforge/internal/retrieval"
	"itemforge/internal/validation"
)

// Searcher answers knowledge base queries.
type Searcher interface {
	Query(ctx context.Context, text string, k int) (retrieval.Response, error)
}

// Outcome is the result of one generation request.
type Outcome struct {
	RequestID     string                `json:"request_id"`
	ContextStatus retrieval.Status      `json:"context_status"`
	Context       []domain.SearchResult `json:"context,omitempty"`
	Draft         *domain.Draft         `json:"draft,omitempty"`
	Item          domain.ValidatedItem  `json:"item"`
}

// ItemService wires retrieval, generation, pricing and validation.
type ItemService struct {
	search    Searcher
	generator domain.Generator
	pricer    *pricing.Engine
	validator *validation.Validator
	contextK  int
	logger    *zap.Logger
}

// Option configures an ItemService.
type Option func(*ItemService)

// WithContextSize sets how many passages are retrieved for a prompt.
func WithContextSize(k int) Option {
	return func(s *ItemService) {
		if k > 0 {
			s.contextK = k
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(s *ItemService) { s.logger = logging.OrNop(l) }
}

// New creates an ItemService. A nil generator disables Generate and a nil
// validator uses validation.Default.
func New(search Searcher, gen domain.Generator, pricer *pricing.Engine, v *validation.Validator, opts ...Option) *ItemService {
	if gen == nil {
		gen = generator.Unavailable{}
	}
	if v == nil {
		v = validation.Default()
	}
	s := &ItemService{
		search:    search,
		generator: gen,
		pricer:    pricer,
		validator: v,
		contextK:  retrieval.DefaultTopK,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search queries the knowledge base and optionally re-ranks the results.
func (s *ItemService) Search(ctx context.Context, query string, k int, criteria ...retrieval.Criterion) (retrieval.Response, error) {
	resp, err := s.search.Query(ctx, query, k)
	if err != nil {
		return resp, err
	}
	if len(criteria) > 0 && resp.Status == retrieval.StatusReady {
		resp.Results = retrieval.Rerank(resp.Results, criteria...)
	}
	return resp, nil
}

// Generate drafts, prices and validates an item for a free-text request.
// Generation failures return domain.ErrNoDraft or
// domain.ErrGeneratorUnavailable; a missing knowledge base only means the
// prompt carries no context.
func (s *ItemService) Generate(ctx context.Context, request string) (*Outcome, error) {
	if strings.TrimSpace(request) == "" {
		return nil, domain.ErrEmptyQuery
	}
	out := &Outcome{RequestID: uuid.NewString()}
	log := s.logger.With(zap.String("request_id", out.RequestID))
	start := time.Now()

	resp, err := s.search.Query(ctx, request, s.contextK)
	if err != nil {
		return nil, err
	}
	out.ContextStatus = resp.Status
	if resp.Status == retrieval.StatusReady {
		out.Context = resp.Results
	} else {
		log.Info("generating without context", zap.String("status", string(resp.Status)))
	}

	draft, err := s.generator.Draft(ctx, request, out.Context)
	if err != nil {
		log.Warn("no draft produced", zap.Error(err))
		return nil, err
	}
	out.Draft = draft
	out.Item = s.Process(ctx, *draft)
	log.Info("item generated",
		zap.String("name", out.Item.Name),
		zap.Bool("valid", out.Item.IsValid),
		zap.Int("context", len(out.Context)),
		zap.Duration("duration", time.Since(start)))
	return out, nil
}

// Price derives price, cost, CL and aura for a draft.
func (s *ItemService) Price(ctx context.Context, d domain.Draft) domain.PricedItem {
	return s.pricer.Apply(ctx, d)
}

// Process prices and validates a draft.
func (s *ItemService) Process(ctx context.Context, d domain.Draft) domain.ValidatedItem {
	return s.Validate(s.Price(ctx, d))
}

// Validate checks an already priced item.
func (s *ItemService) Validate(item domain.PricedItem) domain.ValidatedItem {
	return s.validator.Validate(item)
}
