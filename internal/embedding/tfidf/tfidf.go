// Package tfidf implements an offline TF-IDF embedder. Terms are hashed into
// a fixed number of buckets so every vector has the same dimension
// regardless of corpus vocabulary.
package tfidf

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"math"
	"sync"

	"itemforge/internal/textutil"
)

// DefaultDimension matches the 384-wide sentence embeddings the knowledge
// base was originally sized for.
const DefaultDimension = 384

// ErrNotPrepared is returned by Embed before Prepare or RestoreState.
var ErrNotPrepared = errors.New("tfidf embedder not prepared")

// Embedder implements a hashed TF-IDF vectorizer.
type Embedder struct {
	mu        sync.RWMutex
	dimension int
	documents int
	idf       []float64
	prepared  bool
}

// NewEmbedder creates an unprepared TF-IDF embedder producing vectors of
// the given dimension (DefaultDimension when <= 0).
func NewEmbedder(dimension int) *Embedder {
	if dimension <= 0 {
		dimension = DefaultDimension
	}
	return &Embedder{dimension: dimension}
}

// Name returns the identifier of this embedder implementation.
func (e *Embedder) Name() string { return "tfidf" }

// Dimension returns the dimensionality of the produced embedding vectors.
func (e *Embedder) Dimension() int { return e.dimension }

// Prepare computes document frequencies per bucket from the provided corpus.
func (e *Embedder) Prepare(corpus []string) error {
	if len(corpus) == 0 {
		return errors.New("empty corpus for TF-IDF prepare")
	}
	df := make([]int, e.dimension)
	tokensSeen := false
	for _, text := range corpus {
		seen := make(map[int]struct{})
		for _, tok := range textutil.ContentTokens(text) {
			tokensSeen = true
			b := e.bucket(tok)
			if _, ok := seen[b]; ok {
				continue
			}
			seen[b] = struct{}{}
			df[b]++
		}
	}
	if !tokensSeen {
		return errors.New("no tokens found in corpus; ensure tokenizer supports your language")
	}
	idf := make([]float64, e.dimension)
	n := float64(len(corpus))
	for i := range idf {
		// Smoothed IDF
		idf[i] = math.Log((1+n)/(1+float64(df[i]))) + 1.0
	}
	e.mu.Lock()
	e.idf = idf
	e.documents = len(corpus)
	e.prepared = true
	e.mu.Unlock()
	return nil
}

// Embed computes the L2-normalized TF-IDF embedding for the given text.
// Text without known tokens yields the zero vector.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	if !e.prepared {
		return nil, ErrNotPrepared
	}
	tokens := textutil.ContentTokens(text)
	vec := make([]float32, e.dimension)
	if len(tokens) == 0 {
		return vec, nil
	}
	tf := make(map[int]int)
	for _, tok := range tokens {
		tf[e.bucket(tok)]++
	}
	weights := make([]float64, e.dimension)
	norm := 0.0
	for idx, count := range tf {
		w := float64(count) / float64(len(tokens)) * e.idf[idx]
		weights[idx] = w
		norm += w * w
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i, w := range weights {
			vec[i] = float32(w / norm)
		}
	}
	return vec, nil
}

// EmbedBatch embeds each text in order.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

type state struct {
	Dimension int       `json:"dimension"`
	Documents int       `json:"documents"`
	IDF       []float64 `json:"idf"`
}

// MarshalState serializes the fitted IDF table.
func (e *Embedder) MarshalState() ([]byte, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if !e.prepared {
		return nil, ErrNotPrepared
	}
	return json.Marshal(state{Dimension: e.dimension, Documents: e.documents, IDF: e.idf})
}

// RestoreState loads an IDF table produced by MarshalState.
func (e *Embedder) RestoreState(data []byte) error {
	var s state
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("decode tfidf state: %w", err)
	}
	if s.Dimension <= 0 || len(s.IDF) != s.Dimension {
		return fmt.Errorf("tfidf state: idf table has %d entries for dimension %d", len(s.IDF), s.Dimension)
	}
	e.mu.Lock()
	e.dimension = s.Dimension
	e.documents = s.Documents
	e.idf = s.IDF
	e.prepared = true
	e.mu.Unlock()
	return nil
}

func (e *Embedder) bucket(tok string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(tok))
	return int(h.Sum32() % uint32(e.dimension))
}
