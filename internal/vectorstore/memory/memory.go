// Package memory is a brute-force in-process vector index.
package memory

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"itemforge/internal/domain"
)

// Index keeps every record in memory and scans all of them on search.
type Index struct {
	mu        sync.RWMutex
	metric    domain.Metric
	dimension int
	records   []domain.Record
}

// NewIndex creates an empty index for vectors of the given dimension.
func NewIndex(dimension int, metric domain.Metric) (*Index, error) {
	if dimension <= 0 {
		return nil, errors.New("invalid dimension")
	}
	if metric == "" {
		metric = domain.MetricCosine
	}
	return &Index{metric: metric, dimension: dimension}, nil
}

func (s *Index) Dimension() int        { return s.dimension }
func (s *Index) Metric() domain.Metric { return s.metric }

func (s *Index) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Insert validates every vector before storing any of them.
func (s *Index) Insert(_ context.Context, records []domain.Record) error {
	for i := range records {
		if len(records[i].Vector) != s.dimension {
			return fmt.Errorf("%w: record %d has %d, index has %d",
				domain.ErrDimensionMismatch, records[i].ID, len(records[i].Vector), s.dimension)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, records...)
	return nil
}

// Search ranks all records by ascending distance, breaking ties by id.
func (s *Index) Search(ctx context.Context, vector []float32, k int) ([]domain.Hit, error) {
	if len(vector) != s.dimension {
		return nil, fmt.Errorf("%w: query has %d, index has %d", domain.ErrDimensionMismatch, len(vector), s.dimension)
	}
	if k <= 0 {
		return []domain.Hit{}, nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	hits := make([]domain.Hit, len(s.records))
	for i := range s.records {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		hits[i] = domain.Hit{Record: s.records[i], Distance: s.metric.Distance(vector, s.records[i].Vector)}
	}
	slices.SortStableFunc(hits, func(a, b domain.Hit) int {
		switch {
		case a.Distance < b.Distance:
			return -1
		case a.Distance > b.Distance:
			return 1
		default:
			return a.Record.ID - b.Record.ID
		}
	})
	if k > len(hits) {
		k = len(hits)
	}
	return hits[:k], nil
}

func (s *Index) Reset(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = nil
	return nil
}

// Records returns a copy of the stored records in insertion order.
func (s *Index) Records() []domain.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.records)
}

func (s *Index) Close() error { return nil }
