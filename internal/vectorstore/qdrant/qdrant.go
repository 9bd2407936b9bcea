// Package qdrant stores the knowledge base in a Qdrant collection through its
// REST API. Each build gets its own collection so a rebuild never disturbs
// the collection that queries are hitting.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"itemforge/internal/domain"
)

const upsertBatch = 256

// Index is a minimal REST client bound to one Qdrant collection.
type Index struct {
	url        string
	apiKey     string
	collection string
	dimension  int
	metric     domain.Metric
	client     *http.Client
	count      atomic.Int64
}

type Config struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// CollectionName derives the per-build collection name.
func CollectionName(base, buildID string) string {
	if buildID == "" {
		return base
	}
	return base + "_" + strings.ToLower(buildID)
}

// NewIndex opens the collection for buildID, creating it when missing.
func NewIndex(ctx context.Context, cfg Config, dimension int, metric domain.Metric, buildID string) (*Index, error) {
	if dimension <= 0 {
		return nil, errors.New("invalid dimension")
	}
	if metric == "" {
		metric = domain.MetricCosine
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}
	s := &Index{
		url:        strings.TrimRight(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		collection: CollectionName(cfg.Collection, buildID),
		dimension:  dimension,
		metric:     metric,
		client:     hc,
	}
	exists, points, err := s.info(ctx)
	if err != nil {
		return nil, err
	}
	if exists {
		s.count.Store(points)
		return s, nil
	}
	if err := s.create(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Index) Collection() string    { return s.collection }
func (s *Index) Dimension() int        { return s.dimension }
func (s *Index) Metric() domain.Metric { return s.metric }
func (s *Index) Len() int              { return int(s.count.Load()) }

// Records is nil: vectors live in Qdrant.
func (s *Index) Records() []domain.Record { return nil }

func (s *Index) Close() error { return nil }

func (s *Index) distanceName() string {
	if s.metric == domain.MetricEuclidean {
		return "Euclid"
	}
	return "Cosine"
}

func (s *Index) create(ctx context.Context) error {
	body := map[string]any{
		"vectors": map[string]any{
			"size":     s.dimension,
			"distance": s.distanceName(),
		},
	}
	return s.do(ctx, http.MethodPut, s.collectionURL(), body, nil)
}

func (s *Index) info(ctx context.Context) (bool, int64, error) {
	var resp struct {
		Result struct {
			PointsCount int64 `json:"points_count"`
		} `json:"result"`
	}
	err := s.do(ctx, http.MethodGet, s.collectionURL(), nil, &resp)
	var se *statusError
	if errors.As(err, &se) && se.code == http.StatusNotFound {
		return false, 0, nil
	}
	if err != nil {
		return false, 0, err
	}
	return true, resp.Result.PointsCount, nil
}

// Insert upserts records in batches. If any batch fails the collection is
// recreated empty so no partial build remains.
func (s *Index) Insert(ctx context.Context, records []domain.Record) error {
	for i := range records {
		if len(records[i].Vector) != s.dimension {
			return fmt.Errorf("%w: record %d has %d, index has %d",
				domain.ErrDimensionMismatch, records[i].ID, len(records[i].Vector), s.dimension)
		}
	}
	for start := 0; start < len(records); start += upsertBatch {
		end := min(start+upsertBatch, len(records))
		points := make([]map[string]any, 0, end-start)
		for _, r := range records[start:end] {
			points = append(points, map[string]any{
				"id":     r.ID,
				"vector": r.Vector,
				"payload": map[string]any{
					"record_id": r.ID,
					"text":      r.Text,
					"metadata":  r.Metadata,
				},
			})
		}
		body := map[string]any{"points": points}
		if err := s.do(ctx, http.MethodPut, s.collectionURL()+"/points?wait=true", body, nil); err != nil {
			if start > 0 {
				_ = s.Reset(context.WithoutCancel(ctx))
			}
			return err
		}
	}
	s.count.Add(int64(len(records)))
	return nil
}

// Search queries Qdrant and converts its scores into distances under the
// index metric: cosine similarity s becomes 1 - s and Qdrant's plain L2
// distance is squared.
func (s *Index) Search(ctx context.Context, vector []float32, k int) ([]domain.Hit, error) {
	if len(vector) != s.dimension {
		return nil, fmt.Errorf("%w: query has %d, index has %d", domain.ErrDimensionMismatch, len(vector), s.dimension)
	}
	if k <= 0 || s.Len() == 0 {
		return []domain.Hit{}, nil
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        k,
		"with_payload": true,
		"with_vector":  true,
	}
	var resp struct {
		Result []struct {
			ID      json.Number `json:"id"`
			Score   float64     `json:"score"`
			Vector  []float32   `json:"vector"`
			Payload struct {
				RecordID int             `json:"record_id"`
				Text     string          `json:"text"`
				Metadata domain.Metadata `json:"metadata"`
			} `json:"payload"`
		} `json:"result"`
	}
	if err := s.do(ctx, http.MethodPost, s.collectionURL()+"/points/search", req, &resp); err != nil {
		return nil, err
	}
	hits := make([]domain.Hit, 0, len(resp.Result))
	for _, r := range resp.Result {
		d := 1 - r.Score
		if s.metric == domain.MetricEuclidean {
			d = r.Score * r.Score
		}
		hits = append(hits, domain.Hit{
			Record: domain.Record{
				ID:       r.Payload.RecordID,
				Text:     r.Payload.Text,
				Vector:   r.Vector,
				Metadata: r.Payload.Metadata,
			},
			Distance: math.Max(d, 0),
		})
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
	return hits, nil
}

// Reset drops and recreates the collection.
func (s *Index) Reset(ctx context.Context) error {
	if err := s.Drop(ctx); err != nil {
		return err
	}
	return s.create(ctx)
}

// Drop deletes the collection. Dropping a missing collection is not an error.
func (s *Index) Drop(ctx context.Context) error {
	err := s.do(ctx, http.MethodDelete, s.collectionURL(), nil, nil)
	var se *statusError
	if err != nil && !(errors.As(err, &se) && se.code == http.StatusNotFound) {
		return err
	}
	s.count.Store(0)
	return nil
}

func (s *Index) collectionURL() string {
	return fmt.Sprintf("%s/collections/%s", s.url, s.collection)
}

type statusError struct {
	method string
	url    string
	code   int
	status string
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("qdrant %s %s failed: %s %s", e.method, e.url, e.status, e.body)
}

func (s *Index) do(ctx context.Context, method, url string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &statusError{method: method, url: url, code: resp.StatusCode, status: resp.Status, body: strings.TrimSpace(string(msg))}
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
