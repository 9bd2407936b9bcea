// Package snapshot persists a built knowledge base so a cold start can reload
// it without re-embedding. Vectors live in SQLite; record text and metadata
// live in a parallel JSON log whose positions match the vector ids.
package snapshot

import (
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"itemforge/internal/domain"
)

// Snapshot is one complete knowledge base build.
type Snapshot struct {
	BuildID       string
	CreatedAt     time.Time
	Metric        domain.Metric
	Dimension     int
	Embedder      string
	EmbedderState []byte
	Records       []domain.Record
}

// BuildInfo describes the active build without loading its records.
type BuildInfo struct {
	BuildID   string        `json:"build_id"`
	CreatedAt time.Time     `json:"created_at"`
	Metric    domain.Metric `json:"metric"`
	Dimension int           `json:"dimension"`
	Embedder  string        `json:"embedder"`
	Records   int           `json:"records"`
}

// ErrCorrupt is returned when the database and the metadata log disagree.
var ErrCorrupt = errors.New("snapshot corrupt")

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewBuildID returns a sortable identifier for a knowledge base build.
func NewBuildID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

func (s *Snapshot) validate() error {
	if s.BuildID == "" {
		return errors.New("snapshot without build id")
	}
	if s.Dimension <= 0 {
		return errors.New("snapshot without dimension")
	}
	for i, r := range s.Records {
		if r.ID != i {
			return fmt.Errorf("record at position %d has id %d", i, r.ID)
		}
		if len(r.Vector) != s.Dimension {
			return fmt.Errorf("%w: record %d", domain.ErrDimensionMismatch, r.ID)
		}
	}
	return nil
}

func float32SliceToBytes(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func bytesToFloat32Slice(b []byte) []float32 {
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}
