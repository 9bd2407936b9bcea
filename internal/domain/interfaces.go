package domain

import "context"

// Embedder converts free text into a numeric vector representation.
// Implementations with a corpus-fitting phase also implement embedding.Preparer.
type Embedder interface {
	Name() string
	Dimension() int
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// VectorIndex stores fixed-dimension records and answers nearest-neighbor
// queries under a metric fixed at construction.
type VectorIndex interface {
	// Insert adds records; either all records are stored or none is.
	Insert(ctx context.Context, records []Record) error
	// Search returns up to k hits ordered by ascending distance.
	Search(ctx context.Context, vector []float32, k int) ([]Hit, error)
	// Reset removes every record. Calling it twice is a no-op.
	Reset(ctx context.Context) error
	Len() int
	Dimension() int
	Metric() Metric
	// Records exports stored records in id order, or nil when the
	// backend keeps them remotely.
	Records() []Record
	Close() error
}

// Summarizer produces a brief summary of the provided text.
type Summarizer interface {
	Summarize(text string, maxSentences int) (string, error)
}

// Generator turns a user request plus retrieval context into an item draft.
type Generator interface {
	Draft(ctx context.Context, request string, passages []SearchResult) (*Draft, error)
}
