// Package summarizer trims long passages down to their most informative
// sentences before they are placed into a generation prompt.
package summarizer

import (
	"math"
	"sort"
	"strings"

	"itemforge/internal/textutil"
)

// DefaultMaxSentences is used when a caller asks for zero or fewer sentences.
const DefaultMaxSentences = 5

// FrequencySummarizer ranks sentences by content-word frequency.
type FrequencySummarizer struct{}

// NewFrequencySummarizer creates a frequency-based sentence ranker.
func NewFrequencySummarizer() *FrequencySummarizer {
	return &FrequencySummarizer{}
}

// Summarize keeps the maxSentences highest scoring sentences of text in their
// original order. Text with fewer sentences is returned unchanged.
func (s *FrequencySummarizer) Summarize(text string, maxSentences int) (string, error) {
	if maxSentences <= 0 {
		maxSentences = DefaultMaxSentences
	}
	sentences := textutil.Sentences(text)
	if len(sentences) <= maxSentences {
		return strings.Join(sentences, " "), nil
	}

	tokens := make([][]string, len(sentences))
	freq := map[string]float64{}
	for i, sent := range sentences {
		tokens[i] = textutil.ContentTokens(sent)
		for _, tok := range tokens[i] {
			freq[tok]++
		}
	}
	maxF := 0.0
	for _, v := range freq {
		maxF = math.Max(maxF, v)
	}
	if maxF > 0 {
		for k, v := range freq {
			freq[k] = v / maxF
		}
	}

	type scored struct {
		idx   int
		score float64
	}
	scores := make([]scored, len(sentences))
	for i := range sentences {
		sum := 0.0
		for _, tok := range tokens[i] {
			sum += freq[tok]
		}
		// long sentences would otherwise always win
		if l := float64(len(tokens[i])); l > 0 {
			sum /= math.Sqrt(l)
		}
		scores[i] = scored{i, sum}
	}
	sort.SliceStable(scores, func(i, j int) bool { return scores[i].score > scores[j].score })

	selected := make([]int, maxSentences)
	for i := range selected {
		selected[i] = scores[i].idx
	}
	sort.Ints(selected)
	out := make([]string, len(selected))
	for i, idx := range selected {
		out[i] = sentences[idx]
	}
	return strings.Join(out, " "), nil
}

// LeadSummarizer keeps the first sentences of a passage.
type LeadSummarizer struct{}

func (LeadSummarizer) Summarize(text string, maxSentences int) (string, error) {
	if maxSentences <= 0 {
		maxSentences = DefaultMaxSentences
	}
	sentences := textutil.Sentences(text)
	if len(sentences) > maxSentences {
		sentences = sentences[:maxSentences]
	}
	return strings.Join(sentences, " "), nil
}
