package snapshot

import (
	"context"
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"itemforge/internal/domain"
)

func testSnapshot(id string) *Snapshot {
	return &Snapshot{
		BuildID:       id,
		Metric:        domain.MetricCosine,
		Dimension:     3,
		Embedder:      "tfidf",
		EmbedderState: []byte(`{"dimension":3}`),
		Records: []domain.Record{
			{ID: 0, Text: "Spell: fireball.", Vector: []float32{0.1, 0.2, 0.3}, Metadata: domain.Metadata{"source": "spells.json", "type": "spell", "name": "fireball"}},
			{ID: 1, Text: "Paragraph.", Vector: []float32{-1, 0, 1.5}, Metadata: domain.Metadata{"source": "rules.json", "type": "paragraph"}},
		},
	}
}

func TestStore_SaveThenLoad(t *testing.T) {
	ctx := context.Background()
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	want := testSnapshot(NewBuildID())
	require.NoError(t, s.Save(ctx, want))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want.BuildID, got.BuildID)
	assert.Equal(t, want.EmbedderState, got.EmbedderState)
	assert.Equal(t, domain.MetricCosine, got.Metric)
	if diff := cmp.Diff(want.Records, got.Records); diff != "" {
		t.Errorf("records mismatch (-want +got):\n%s", diff)
	}
}

func TestStore_LoadEmpty(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Load(context.Background())
	assert.ErrorIs(t, err, domain.ErrIndexNotReady)
	_, err = s.Active(context.Background())
	assert.ErrorIs(t, err, domain.ErrIndexNotReady)
}

func TestStore_NewBuildReplacesOld(t *testing.T) {
	ctx := context.Background()
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Save(ctx, testSnapshot("first")))
	second := testSnapshot("second")
	second.Records = second.Records[:1]
	require.NoError(t, s.Save(ctx, second))

	info, err := s.Active(ctx)
	require.NoError(t, err)
	assert.Equal(t, "second", info.BuildID)
	assert.Equal(t, 1, info.Records)

	var builds, vectors int
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM builds`).Scan(&builds))
	require.NoError(t, s.db.QueryRow(`SELECT COUNT(*) FROM vectors`).Scan(&vectors))
	assert.Equal(t, 1, builds)
	assert.Equal(t, 1, vectors)
}

func TestStore_RejectsMisalignedSnapshot(t *testing.T) {
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	defer s.Close()

	snap := testSnapshot("bad")
	snap.Records[1].ID = 7
	assert.Error(t, s.Save(context.Background(), snap))

	snap = testSnapshot("bad-dim")
	snap.Records[0].Vector = []float32{1}
	assert.ErrorIs(t, s.Save(context.Background(), snap), domain.ErrDimensionMismatch)
}

func TestStore_DetectsForeignMetadataLog(t *testing.T) {
	ctx := context.Background()
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	defer s.Close()
	require.NoError(t, s.Save(ctx, testSnapshot("real")))

	require.NoError(t, os.WriteFile(s.LogPath(), []byte(`{"build_id":"other","records":[]}`), 0o644))
	_, err = s.Load(ctx)
	assert.ErrorIs(t, err, ErrCorrupt)

	require.NoError(t, os.Remove(s.LogPath()))
	_, err = s.Load(ctx)
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestNewBuildID_Monotonic(t *testing.T) {
	a, b := NewBuildID(), NewBuildID()
	assert.Len(t, a, 26)
	assert.Less(t, a, b)
}

func TestVectorBlobEncoding(t *testing.T) {
	v := []float32{0, -1.25, 3.5e-7}
	assert.Equal(t, v, bytesToFloat32Slice(float32SliceToBytes(v)))
}
