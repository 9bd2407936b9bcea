package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"itemforge/internal/domain"
)

const (
	dbFile  = "index.db"
	logFile = "metadata.json"
)

// Store keeps the active knowledge base build under one directory.
type Store struct {
	db      *sql.DB
	logPath string
}

// Open opens or creates the snapshot store in dir.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}
	db, err := sql.Open("sqlite", filepath.Join(dir, dbFile)+"?_pragma=journal_mode(wal)&_pragma=foreign_keys(on)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	s := &Store{db: db, logPath: filepath.Join(dir, logFile)}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error { return s.db.Close() }

// LogPath is the location of the metadata log.
func (s *Store) LogPath() string { return s.logPath }

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS builds (
		id             TEXT PRIMARY KEY,
		created_at     TEXT NOT NULL,
		metric         TEXT NOT NULL,
		dimension      INTEGER NOT NULL,
		embedder       TEXT NOT NULL,
		embedder_state BLOB,
		records        INTEGER NOT NULL,
		active         INTEGER NOT NULL DEFAULT 0
	);
	CREATE TABLE IF NOT EXISTS vectors (
		build_id TEXT NOT NULL REFERENCES builds(id) ON DELETE CASCADE,
		id       INTEGER NOT NULL,
		vector   BLOB NOT NULL,
		PRIMARY KEY (build_id, id)
	);
	CREATE INDEX IF NOT EXISTS idx_builds_active ON builds(active);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Save makes snap the active build. The metadata log is staged first, the
// database transaction commits the vectors and retires older builds, and
// only then is the log moved into place.
func (s *Store) Save(ctx context.Context, snap *Snapshot) error {
	if err := snap.validate(); err != nil {
		return err
	}
	tmp, err := writeLogTemp(s.logPath, snap)
	if err != nil {
		return err
	}
	defer os.Remove(tmp)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	created := snap.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM builds WHERE id = ?`, snap.BuildID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO builds (id, created_at, metric, dimension, embedder, embedder_state, records, active)
		 VALUES (?, ?, ?, ?, ?, ?, ?, 0)`,
		snap.BuildID, created.UTC().Format(time.RFC3339Nano), string(snap.Metric), snap.Dimension,
		snap.Embedder, snap.EmbedderState, len(snap.Records)); err != nil {
		return fmt.Errorf("insert build: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO vectors (build_id, id, vector) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range snap.Records {
		if _, err := stmt.ExecContext(ctx, snap.BuildID, r.ID, float32SliceToBytes(r.Vector)); err != nil {
			return fmt.Errorf("insert vector %d: %w", r.ID, err)
		}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM builds WHERE id != ?`, snap.BuildID); err != nil {
		return fmt.Errorf("retire builds: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE builds SET active = 1 WHERE id = ?`, snap.BuildID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}
	if err := os.Rename(tmp, s.logPath); err != nil {
		return fmt.Errorf("install metadata log: %w", err)
	}
	return nil
}

// Active describes the active build, or returns domain.ErrIndexNotReady.
func (s *Store) Active(ctx context.Context) (*BuildInfo, error) {
	info, _, err := s.active(ctx)
	return info, err
}

func (s *Store) active(ctx context.Context) (*BuildInfo, []byte, error) {
	var (
		info    BuildInfo
		created string
		metric  string
		state   []byte
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, created_at, metric, dimension, embedder, embedder_state, records
		 FROM builds WHERE active = 1 ORDER BY created_at DESC LIMIT 1`).
		Scan(&info.BuildID, &created, &metric, &info.Dimension, &info.Embedder, &state, &info.Records)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, domain.ErrIndexNotReady
	}
	if err != nil {
		return nil, nil, err
	}
	info.Metric = domain.Metric(metric)
	info.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	return &info, state, nil
}

// Load reads the active build together with its metadata log.
func (s *Store) Load(ctx context.Context) (*Snapshot, error) {
	info, state, err := s.active(ctx)
	if err != nil {
		return nil, err
	}
	logBuild, records, err := ReadLog(s.logPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: metadata log missing", ErrCorrupt)
	}
	if err != nil {
		return nil, err
	}
	if logBuild != info.BuildID || len(records) != info.Records {
		return nil, fmt.Errorf("%w: metadata log is for build %s with %d records, database has %s with %d",
			ErrCorrupt, logBuild, len(records), info.BuildID, info.Records)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT id, vector FROM vectors WHERE build_id = ? ORDER BY id`, info.BuildID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	n := 0
	for rows.Next() {
		var (
			id   int
			blob []byte
		)
		if err := rows.Scan(&id, &blob); err != nil {
			return nil, err
		}
		if id != n || id >= len(records) {
			return nil, fmt.Errorf("%w: unexpected vector id %d", ErrCorrupt, id)
		}
		vec := bytesToFloat32Slice(blob)
		if len(vec) != info.Dimension {
			return nil, fmt.Errorf("%w: vector %d", domain.ErrDimensionMismatch, id)
		}
		records[id].Vector = vec
		n++
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if n != len(records) {
		return nil, fmt.Errorf("%w: %d vectors for %d records", ErrCorrupt, n, len(records))
	}
	return &Snapshot{
		BuildID:       info.BuildID,
		CreatedAt:     info.CreatedAt,
		Metric:        info.Metric,
		Dimension:     info.Dimension,
		Embedder:      info.Embedder,
		EmbedderState: state,
		Records:       records,
	}, nil
}
