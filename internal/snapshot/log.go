package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"itemforge/internal/domain"
)

type logEntry struct {
	ID       int             `json:"id"`
	Text     string          `json:"text"`
	Metadata domain.Metadata `json:"metadata"`
}

type metadataLog struct {
	BuildID string     `json:"build_id"`
	Records []logEntry `json:"records"`
}

// writeLogTemp writes the metadata log next to path and returns the temp
// file name; the caller renames it into place once the database commits.
func writeLogTemp(path string, snap *Snapshot) (string, error) {
	entries := make([]logEntry, len(snap.Records))
	for i, r := range snap.Records {
		entries[i] = logEntry{ID: r.ID, Text: r.Text, Metadata: r.Metadata}
	}
	f, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("create metadata log: %w", err)
	}
	enc := json.NewEncoder(f)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(metadataLog{BuildID: snap.BuildID, Records: entries}); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("write metadata log: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

// ReadLog reads a metadata log written by Store.Save.
func ReadLog(path string) (string, []domain.Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", nil, err
	}
	var l metadataLog
	if err := json.Unmarshal(data, &l); err != nil {
		return "", nil, fmt.Errorf("%w: metadata log: %v", ErrCorrupt, err)
	}
	out := make([]domain.Record, len(l.Records))
	for i, e := range l.Records {
		if e.ID != i {
			return "", nil, fmt.Errorf("%w: metadata log position %d holds id %d", ErrCorrupt, i, e.ID)
		}
		out[i] = domain.Record{ID: e.ID, Text: e.Text, Metadata: e.Metadata}
	}
	return l.BuildID, out, nil
}
