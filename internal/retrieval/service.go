package retrieval

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"itemforge/internal/domain"
	"itemforge/internal/embedding"
	"itemforge/internal/ingest"
	"itemforge/internal/logging"
	"itemforge/internal/snapshot"
	"itemforge/internal/textutil"
)

// Status tells callers whether an empty result means "nothing matched" or
// "no context available".
type Status string

const (
	StatusReady         Status = "ready"
	StatusUninitialized Status = "uninitialized"
	StatusUnavailable   Status = "unavailable"
)

const (
	DefaultTopK    = 5
	DefaultTimeout = 10 * time.Second
)

// Response is the outcome of one query. Only StatusReady carries results.
type Response struct {
	Status  Status                `json:"status"`
	BuildID string                `json:"build_id,omitempty"`
	Lexical bool                  `json:"lexical,omitempty"`
	Results []domain.SearchResult `json:"results"`
}

// Stats describes the active generation.
type Stats struct {
	Status    Status        `json:"status"`
	BuildID   string        `json:"build_id,omitempty"`
	BuiltAt   time.Time     `json:"built_at,omitempty"`
	Records   int           `json:"records"`
	Dimension int           `json:"dimension"`
	Metric    domain.Metric `json:"metric,omitempty"`
	Embedder  string        `json:"embedder,omitempty"`
}

// Service answers similarity queries and owns knowledge base rebuilds.
type Service struct {
	kb      *KnowledgeBase
	builder *ingest.Builder
	store   *snapshot.Store
	topK    int
	timeout time.Duration
	logger  *zap.Logger

	// serialises rebuilds; queries never take it
	buildMu sync.Mutex
}

// Option configures a Service.
type Option func(*Service)

// WithStore persists every rebuild and enables Load.
func WithStore(st *snapshot.Store) Option {
	return func(s *Service) { s.store = st }
}

func WithTopK(k int) Option {
	return func(s *Service) {
		if k > 0 {
			s.topK = k
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = logging.OrNop(l) }
}

// NewService creates a Service over kb.
func NewService(kb *KnowledgeBase, builder *ingest.Builder, opts ...Option) *Service {
	s := &Service{
		kb:      kb,
		builder: builder,
		topK:    DefaultTopK,
		timeout: DefaultTimeout,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Query embeds text and returns up to k nearest records. k <= 0 selects the
// configured default. Blank text is rejected with domain.ErrEmptyQuery
// before anything is embedded.
func (s *Service) Query(ctx context.Context, text string, k int) (Response, error) {
	if strings.TrimSpace(text) == "" {
		return Response{}, domain.ErrEmptyQuery
	}
	if k <= 0 {
		k = s.topK
	}
	gen := s.kb.acquire()
	if gen == nil {
		return Response{Status: StatusUninitialized}, nil
	}
	defer gen.release()
	if gen.Index.Len() == 0 {
		return Response{Status: StatusUninitialized, BuildID: gen.BuildID}, nil
	}

	qctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	start := time.Now()

	vec, err := gen.Embedder.Embed(qctx, text)
	if err != nil {
		return s.unavailable(ctx, gen, "embed query", err)
	}
	if isZero(vec) {
		return Response{Status: StatusReady, BuildID: gen.BuildID, Lexical: true, Results: lexicalSearch(gen.Records, text, k)}, nil
	}
	hits, err := gen.Index.Search(qctx, vec, k)
	if err != nil {
		return s.unavailable(ctx, gen, "search index", err)
	}
	metric := gen.Index.Metric()
	results := make([]domain.SearchResult, len(hits))
	for i, h := range hits {
		results[i] = domain.SearchResult{
			ID:       h.Record.ID,
			Text:     h.Record.Text,
			Metadata: h.Record.Metadata,
			Distance: h.Distance,
			Score:    metric.Score(h.Distance),
		}
	}
	if allZeroScores(results) && gen.Records != nil {
		return Response{Status: StatusReady, BuildID: gen.BuildID, Lexical: true, Results: lexicalSearch(gen.Records, text, k)}, nil
	}
	s.logger.Debug("query served",
		zap.String("build_id", gen.BuildID), zap.Int("results", len(results)), zap.Duration("duration", time.Since(start)))
	return Response{Status: StatusReady, BuildID: gen.BuildID, Results: results}, nil
}

// unavailable degrades a failed query. Cancellation by the caller is
// returned as an error; everything else, including the retrieval timeout,
// becomes StatusUnavailable.
func (s *Service) unavailable(ctx context.Context, gen *Generation, op string, err error) (Response, error) {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return Response{}, ctxErr
	}
	s.logger.Warn("retrieval unavailable",
		zap.String("build_id", gen.BuildID), zap.String("op", op), zap.Error(err))
	return Response{Status: StatusUnavailable, BuildID: gen.BuildID}, nil
}

func isZero(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

// allZeroScores reports whether no hit scores above zero. Beyond the
// zero-vector query this also covers a query whose known terms occur in no
// record, where every cosine score is 0 or negative.
func allZeroScores(results []domain.SearchResult) bool {
	for _, r := range results {
		if r.Score > 1e-9 {
			return false
		}
	}
	return len(results) > 0
}

// lexicalSearch ranks records by Ochiai token overlap with the query. It is
// used when no vector hit scores positive.
func lexicalSearch(records []domain.Record, query string, k int) []domain.SearchResult {
	qset := textutil.TokenSet(query)
	out := make([]domain.SearchResult, len(records))
	for i, r := range records {
		score := textutil.Ochiai(qset, r.Text)
		out[i] = domain.SearchResult{ID: r.ID, Text: r.Text, Metadata: r.Metadata, Distance: 1 - score, Score: score}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ID < out[j].ID
	})
	if k < len(out) {
		out = out[:k]
	}
	return out
}

// Ingest rebuilds the knowledge base from docs and returns the number of
// records in the new generation.
func (s *Service) Ingest(ctx context.Context, docs []ingest.SourceDocument) (int, error) {
	res, err := s.Rebuild(ctx, docs)
	if err != nil {
		return 0, err
	}
	return len(res.Records), nil
}

// Rebuild performs a full build off to the side, persists it when a store is
// configured, then swaps it in. The serving generation is untouched on
// failure.
func (s *Service) Rebuild(ctx context.Context, docs []ingest.SourceDocument) (*ingest.Result, error) {
	s.buildMu.Lock()
	defer s.buildMu.Unlock()

	res, err := s.builder.Build(ctx, docs)
	if err != nil {
		return nil, err
	}
	if s.store != nil {
		if err := s.persist(ctx, res); err != nil {
			discard(res)
			return nil, err
		}
	}
	s.kb.Swap(&Generation{
		BuildID:  res.BuildID,
		Index:    res.Index,
		Embedder: res.Embedder,
		Records:  res.Records,
	})
	return res, nil
}

func (s *Service) persist(ctx context.Context, res *ingest.Result) error {
	snap := &snapshot.Snapshot{
		BuildID:   res.BuildID,
		CreatedAt: time.Now().UTC(),
		Metric:    res.Index.Metric(),
		Dimension: res.Index.Dimension(),
		Embedder:  res.Embedder.Name(),
		Records:   res.Records,
	}
	if st, ok := res.Embedder.(embedding.Stateful); ok {
		state, err := st.MarshalState()
		if err != nil {
			return fmt.Errorf("marshal embedder state: %w", err)
		}
		snap.EmbedderState = state
	}
	if err := s.store.Save(ctx, snap); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

func discard(res *ingest.Result) {
	g := &Generation{BuildID: res.BuildID, Index: res.Index, drop: true, logger: zap.NewNop()}
	g.destroy()
}

// Load installs the persisted build, if any. It returns
// domain.ErrIndexNotReady when nothing was saved.
func (s *Service) Load(ctx context.Context) error {
	if s.store == nil {
		return domain.ErrIndexNotReady
	}
	s.buildMu.Lock()
	defer s.buildMu.Unlock()

	snap, err := s.store.Load(ctx)
	if err != nil {
		return err
	}
	res, err := s.builder.Restore(ctx, snap)
	if err != nil {
		return err
	}
	s.kb.Swap(&Generation{
		BuildID:  res.BuildID,
		Index:    res.Index,
		Embedder: res.Embedder,
		Records:  res.Records,
		BuiltAt:  snap.CreatedAt,
	})
	return nil
}

// Stats reports on the active generation.
func (s *Service) Stats() Stats {
	gen := s.kb.acquire()
	if gen == nil {
		return Stats{Status: StatusUninitialized}
	}
	defer gen.release()
	st := Stats{
		Status:    StatusReady,
		BuildID:   gen.BuildID,
		BuiltAt:   gen.BuiltAt,
		Records:   gen.Index.Len(),
		Dimension: gen.Index.Dimension(),
		Metric:    gen.Index.Metric(),
		Embedder:  gen.Embedder.Name(),
	}
	if st.Records == 0 {
		st.Status = StatusUninitialized
	}
	return st
}

// IsNotReady reports whether err means no build has been made yet.
func IsNotReady(err error) bool {
	return errors.Is(err, domain.ErrIndexNotReady)
}
