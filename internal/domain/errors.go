package domain

import "errors"

var (
	// ErrEmptyQuery is returned when a query or request is blank.
	ErrEmptyQuery = errors.New("empty query")
	// ErrIndexNotReady means no knowledge base generation has been built or loaded.
	ErrIndexNotReady = errors.New("knowledge base not initialized")
	// ErrDimensionMismatch is returned when a vector does not match the index dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	// ErrNoContent means ingestion found no document that yields text.
	ErrNoContent = errors.New("no indexable content")
	// ErrNoDraft means the generator failed or returned unparseable content.
	ErrNoDraft = errors.New("no draft produced")
	// ErrEmbedderUnavailable means the embedding backend cannot be used.
	ErrEmbedderUnavailable = errors.New("embedder unavailable")
	// ErrGeneratorUnavailable means no generator backend is configured.
	ErrGeneratorUnavailable = errors.New("generator unavailable")
)
