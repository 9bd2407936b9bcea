package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"itemforge/internal/domain"
)

func rec(id int, v ...float32) domain.Record {
	return domain.Record{ID: id, Text: "r", Vector: v, Metadata: domain.Metadata{"source": "test"}}
}

func TestSearch_AscendingDistance(t *testing.T) {
	ctx := context.Background()
	idx, err := NewIndex(2, domain.MetricEuclidean)
	require.NoError(t, err)
	require.NoError(t, idx.Insert(ctx, []domain.Record{rec(0, 5, 5), rec(1, 1, 1), rec(2, 0, 0), rec(3, 2, 2)}))

	hits, err := idx.Search(ctx, []float32{0, 0}, 3)
	require.NoError(t, err)
	require.Len(t, hits, 3)

	var ids []int
	for i, h := range hits {
		ids = append(ids, h.Record.ID)
		if i > 0 {
			assert.LessOrEqual(t, hits[i-1].Distance, h.Distance)
		}
	}
	assert.Equal(t, []int{2, 1, 3}, ids)
	assert.InDelta(t, 2.0, hits[1].Distance, 1e-9)
}

func TestSearch_TiesBrokenByID(t *testing.T) {
	ctx := context.Background()
	idx, _ := NewIndex(2, domain.MetricCosine)
	require.NoError(t, idx.Insert(ctx, []domain.Record{rec(2, 1, 0), rec(0, 2, 0), rec(1, 3, 0)}))

	hits, err := idx.Search(ctx, []float32{1, 0}, 3)
	require.NoError(t, err)
	assert.Equal(t, 0, hits[0].Record.ID)
	assert.Equal(t, 1, hits[1].Record.ID)
	assert.Equal(t, 2, hits[2].Record.ID)
}

func TestSearch_Boundaries(t *testing.T) {
	ctx := context.Background()
	idx, _ := NewIndex(2, domain.MetricCosine)

	hits, err := idx.Search(ctx, []float32{1, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, hits)

	require.NoError(t, idx.Insert(ctx, []domain.Record{rec(0, 1, 0), rec(1, 0, 1)}))
	hits, err = idx.Search(ctx, []float32{1, 0}, 10)
	require.NoError(t, err)
	assert.Len(t, hits, 2)

	_, err = idx.Search(ctx, []float32{1, 0, 0}, 1)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestInsert_AllOrNothing(t *testing.T) {
	ctx := context.Background()
	idx, _ := NewIndex(2, domain.MetricCosine)

	err := idx.Insert(ctx, []domain.Record{rec(0, 1, 0), rec(1, 1, 0, 0)})
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
	assert.Equal(t, 0, idx.Len())
}

func TestReset_Idempotent(t *testing.T) {
	ctx := context.Background()
	idx, _ := NewIndex(2, domain.MetricCosine)
	require.NoError(t, idx.Insert(ctx, []domain.Record{rec(0, 1, 0)}))

	require.NoError(t, idx.Reset(ctx))
	require.NoError(t, idx.Reset(ctx))
	assert.Equal(t, 0, idx.Len())
	assert.Empty(t, idx.Records())
}

func TestNewIndex_InvalidDimension(t *testing.T) {
	_, err := NewIndex(0, domain.MetricCosine)
	assert.Error(t, err)
}
