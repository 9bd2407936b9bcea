package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Record kinds stored under the "type" metadata key.
const (
	KindParagraph = "paragraph"
	KindTable     = "table"
	KindSpell     = "spell"
	KindItem      = "item"
)

// Metadata is the free-form description attached to every indexed record.
// It always carries "source" plus "section" and/or "type".
type Metadata map[string]any

// String returns the value stored under key rendered as text, or "".
func (m Metadata) String(key string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(data)
	}
}

func (m Metadata) Source() string  { return m.String("source") }
func (m Metadata) Section() string { return m.String("section") }
func (m Metadata) Kind() string    { return m.String("type") }

// Content returns the passage text used in prompts: "text" when present,
// otherwise the serialized "content".
func (m Metadata) Content() string {
	if s := m.String("text"); s != "" {
		return s
	}
	return m.String("content")
}

// Clone returns a shallow copy.
func (m Metadata) Clone() Metadata {
	out := make(Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Record is one indexed unit of the knowledge base. ID is the position in
// ingestion order and is stable for the lifetime of a build.
type Record struct {
	ID       int
	Text     string
	Vector   []float32
	Metadata Metadata
}

// Hit is a raw nearest-neighbor match.
type Hit struct {
	Record   Record
	Distance float64
}

// SearchResult is a ranked record as returned to callers.
type SearchResult struct {
	ID       int      `json:"id"`
	Text     string   `json:"text"`
	Metadata Metadata `json:"metadata"`
	Distance float64  `json:"distance"`
	Score    float64  `json:"score"`
}

// Metric selects the distance function of a vector index.
type Metric string

const (
	// MetricCosine is 1 - cosine similarity.
	MetricCosine Metric = "cosine"
	// MetricEuclidean is the squared L2 distance.
	MetricEuclidean Metric = "euclidean"
)

// ParseMetric maps a config value onto a Metric. Empty means cosine.
func ParseMetric(s string) (Metric, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "cosine", "cos":
		return MetricCosine, nil
	case "euclidean", "l2", "euclid":
		return MetricEuclidean, nil
	default:
		return "", fmt.Errorf("unknown metric %q", s)
	}
}
