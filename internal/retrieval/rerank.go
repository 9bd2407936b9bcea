package retrieval

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"itemforge/internal/domain"
)

// Criterion names a re-ranking preference for search results.
type Criterion string

const (
	// HighCL prefers records with a higher caster level.
	HighCL Criterion = "high_cl"
	// LowCost prefers records with a lower numeric price.
	LowCost Criterion = "low_cost"
)

// ParseCriteria parses a comma separated criteria list.
func ParseCriteria(s string) ([]Criterion, error) {
	var out []Criterion
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(strings.ToLower(part))
		if part == "" {
			continue
		}
		switch c := Criterion(part); c {
		case HighCL, LowCost:
			out = append(out, c)
		default:
			return nil, fmt.Errorf("unknown rerank criterion %q", part)
		}
	}
	return out, nil
}

// Rerank returns a copy of results re-sorted by each criterion in turn. Every
// pass is stable, so the last criterion dominates and earlier orderings break
// its ties.
func Rerank(results []domain.SearchResult, criteria ...Criterion) []domain.SearchResult {
	out := append([]domain.SearchResult(nil), results...)
	for _, c := range criteria {
		switch c {
		case HighCL:
			sort.SliceStable(out, func(i, j int) bool { return casterLevel(out[i]) > casterLevel(out[j]) })
		case LowCost:
			sort.SliceStable(out, func(i, j int) bool { return numericCost(out[i]) < numericCost(out[j]) })
		}
	}
	return out
}

// casterLevel is 0 when the record has no numeric cl.
func casterLevel(r domain.SearchResult) float64 {
	switch v := r.Metadata["cl"].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f
		}
	}
	return 0
}

// numericCost is +Inf when the record has no parseable price.
func numericCost(r domain.SearchResult) float64 {
	raw := r.Metadata.String("price")
	if raw == "" {
		raw = r.Metadata.String("cost")
	}
	raw = strings.ReplaceAll(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(raw), "gp")), ",", "")
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return math.Inf(1)
	}
	return f
}
