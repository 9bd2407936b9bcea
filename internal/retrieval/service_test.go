package retrieval

import (
	"context"
	"errors"
	"sort"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"itemforge/internal/config"
	"itemforge/internal/domain"
	"itemforge/internal/embedding"
	"itemforge/internal/ingest"
	"itemforge/internal/snapshot"
	"itemforge/internal/vectorstore"
	"itemforge/internal/vectorstore/memory"
)

const spellDoc = `[
  {"name": "Fireball", "level": "sorcerer/wizard 3", "school": "evocation [fire]", "description": "A burst of flame explodes."},
  {"name": "Cat's Grace", "level": "bard 2, sorcerer/wizard 2", "school": "transmutation", "description": "The creature becomes more graceful, agile and coordinated."},
  {"name": "Bull's Strength", "level": "cleric 2, druid 2, sorcerer/wizard 2", "school": "transmutation", "description": "The subject becomes stronger."}
]`

const itemDoc = `{"items": [
  {"name": "Ring of Protection", "aura": "faint abjuration", "cl": 5, "slot": "ring", "price": "2,000 gp", "description": "Offers continual magical protection as a deflection bonus to AC."},
  {"name": "Cloak of Resistance", "aura": "faint abjuration", "cl": 5, "slot": "shoulders", "price": "1,000 gp", "description": "Resistance bonus on all saving throws."}
]}`

func testDocs() []ingest.SourceDocument {
	return []ingest.SourceDocument{
		{Source: "spells.json", Data: []byte(spellDoc)},
		{Source: "items.json", Data: []byte(itemDoc)},
	}
}

func newTestBuilder(t *testing.T) *ingest.Builder {
	t.Helper()
	ef, err := embedding.NewFactory(config.EmbedderConfig{Type: "tfidf", Dimension: 256})
	require.NoError(t, err)
	vf, _, err := vectorstore.NewFactory(config.VectorStoreConfig{Type: "memory", Metric: "cosine"})
	require.NoError(t, err)
	return ingest.NewBuilder(ef, vf)
}

func newTestService(t *testing.T, opts ...Option) *Service {
	t.Helper()
	kb := NewKnowledgeBase(nil)
	t.Cleanup(func() { _ = kb.Close() })
	return NewService(kb, newTestBuilder(t), opts...)
}

// fakeEmbedder returns a fixed vector, an error, or blocks until the
// context is done.
type fakeEmbedder struct {
	vec   []float32
	err   error
	block bool
	calls atomic.Int32
}

func (f *fakeEmbedder) Name() string   { return "fake" }
func (f *fakeEmbedder) Dimension() int { return len(f.vec) }
func (f *fakeEmbedder) Embed(ctx context.Context, _ string) ([]float32, error) {
	f.calls.Add(1)
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.vec, f.err
}
func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		v, err := f.Embed(ctx, texts[i])
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func installFake(t *testing.T, s *Service, emb *fakeEmbedder) {
	t.Helper()
	idx, err := memory.NewIndex(2, domain.MetricCosine)
	require.NoError(t, err)
	require.NoError(t, idx.Insert(context.Background(), []domain.Record{
		{ID: 0, Text: "ring of protection", Vector: []float32{1, 0}},
		{ID: 1, Text: "cloak of resistance", Vector: []float32{0, 1}},
	}))
	s.kb.Swap(&Generation{BuildID: "fake", Index: idx, Embedder: emb})
}

func TestQuery_RejectsBlankText(t *testing.T) {
	s := newTestService(t)
	emb := &fakeEmbedder{vec: []float32{1, 0}}
	installFake(t, s, emb)

	for _, q := range []string{"", "   ", "\n\t"} {
		_, err := s.Query(context.Background(), q, 3)
		assert.ErrorIs(t, err, domain.ErrEmptyQuery)
	}
	assert.Zero(t, emb.calls.Load())
}

func TestQuery_Uninitialized(t *testing.T) {
	s := newTestService(t)
	resp, err := s.Query(context.Background(), "fireball", 3)
	require.NoError(t, err)
	assert.Equal(t, StatusUninitialized, resp.Status)
	assert.Empty(t, resp.Results)
	assert.Equal(t, StatusUninitialized, s.Stats().Status)
}

func TestQuery_Ready(t *testing.T) {
	s := newTestService(t, WithTopK(2))
	n, err := s.Ingest(context.Background(), testDocs())
	require.NoError(t, err)
	require.Equal(t, 5, n)

	resp, err := s.Query(context.Background(), "fireball burst of flame", 3)
	require.NoError(t, err)
	require.Equal(t, StatusReady, resp.Status)
	require.Len(t, resp.Results, 3)
	assert.Equal(t, "Fireball", resp.Results[0].Metadata.String("name"))
	assert.InDelta(t, 1-resp.Results[0].Distance, resp.Results[0].Score, 1e-9)
	assert.True(t, sort.SliceIsSorted(resp.Results, func(i, j int) bool {
		return resp.Results[i].Distance < resp.Results[j].Distance
	}))

	resp, err = s.Query(context.Background(), "transmutation", 50)
	require.NoError(t, err)
	assert.Len(t, resp.Results, 5)

	resp, err = s.Query(context.Background(), "transmutation", 0)
	require.NoError(t, err)
	assert.Len(t, resp.Results, 2)

	st := s.Stats()
	assert.Equal(t, StatusReady, st.Status)
	assert.Equal(t, 5, st.Records)
	assert.Equal(t, 256, st.Dimension)
	assert.Equal(t, domain.MetricCosine, st.Metric)
	assert.Equal(t, "tfidf", st.Embedder)
	assert.Equal(t, resp.BuildID, st.BuildID)
}

func TestQuery_LexicalFallback(t *testing.T) {
	s := newTestService(t)
	_, err := s.Ingest(context.Background(), testDocs())
	require.NoError(t, err)

	// only stopwords: the embedder yields a zero vector
	resp, err := s.Query(context.Background(), "of the", 2)
	require.NoError(t, err)
	assert.Equal(t, StatusReady, resp.Status)
	assert.True(t, resp.Lexical)
	assert.Len(t, resp.Results, 2)
}

func TestAllZeroScores(t *testing.T) {
	tests := []struct {
		name   string
		scores []float64
		want   bool
	}{
		{"empty", nil, false},
		{"zero", []float64{0, 0}, true},
		{"negative only", []float64{-0.3, -1, 1e-10}, true},
		{"one positive", []float64{-0.3, 0.2}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			results := make([]domain.SearchResult, len(tt.scores))
			for i, s := range tt.scores {
				results[i] = domain.SearchResult{ID: i, Score: s}
			}
			assert.Equal(t, tt.want, allZeroScores(results))
		})
	}
}

func TestQuery_Unavailable(t *testing.T) {
	s := newTestService(t)
	installFake(t, s, &fakeEmbedder{err: errors.New("connection refused")})
	resp, err := s.Query(context.Background(), "ring", 2)
	require.NoError(t, err)
	assert.Equal(t, StatusUnavailable, resp.Status)
	assert.Empty(t, resp.Results)
}

func TestQuery_Timeout(t *testing.T) {
	s := newTestService(t, WithTimeout(20*time.Millisecond))
	installFake(t, s, &fakeEmbedder{block: true})
	resp, err := s.Query(context.Background(), "ring", 2)
	require.NoError(t, err)
	assert.Equal(t, StatusUnavailable, resp.Status)
}

func TestQuery_CallerCancellation(t *testing.T) {
	s := newTestService(t)
	installFake(t, s, &fakeEmbedder{block: true})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Query(ctx, "ring", 2)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRebuild_SwapsGeneration(t *testing.T) {
	s := newTestService(t)
	first, err := s.Rebuild(context.Background(), testDocs())
	require.NoError(t, err)
	second, err := s.Rebuild(context.Background(), testDocs()[:1])
	require.NoError(t, err)

	assert.NotEqual(t, first.BuildID, second.BuildID)
	assert.Equal(t, second.BuildID, s.Stats().BuildID)
	assert.Equal(t, 3, s.Stats().Records)

	// a failed build leaves the serving generation alone
	_, err = s.Rebuild(context.Background(), []ingest.SourceDocument{{Source: "bad", Data: []byte("{")}})
	assert.ErrorIs(t, err, domain.ErrNoContent)
	assert.Equal(t, second.BuildID, s.Stats().BuildID)
}

func TestLoad_RestoresPersistedBuild(t *testing.T) {
	dir := t.TempDir()
	store, err := snapshot.Open(dir)
	require.NoError(t, err)
	defer store.Close()

	s := newTestService(t, WithStore(store))
	_, err = s.Ingest(context.Background(), testDocs())
	require.NoError(t, err)
	want, err := s.Query(context.Background(), "graceful agile", 3)
	require.NoError(t, err)

	cold := newTestService(t, WithStore(store))
	require.NoError(t, cold.Load(context.Background()))
	got, err := cold.Query(context.Background(), "graceful agile", 3)
	require.NoError(t, err)

	assert.Equal(t, want.BuildID, got.BuildID)
	require.Len(t, got.Results, len(want.Results))
	for i := range want.Results {
		assert.Equal(t, want.Results[i].ID, got.Results[i].ID)
		assert.InDelta(t, want.Results[i].Distance, got.Results[i].Distance, 1e-6)
	}
}

func TestLoad_NothingSaved(t *testing.T) {
	store, err := snapshot.Open(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	err = newTestService(t, WithStore(store)).Load(context.Background())
	assert.True(t, IsNotReady(err))

	err = newTestService(t).Load(context.Background())
	assert.True(t, IsNotReady(err))
}
