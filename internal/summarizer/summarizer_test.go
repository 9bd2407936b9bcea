package summarizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"itemforge/internal/config"
)

const passage = "Wondrous items are crafted with Craft Wondrous Item. " +
	"The weather was nice. " +
	"A wondrous item grants an enhancement bonus to an ability score. " +
	"Enhancement bonus items cost bonus squared times one thousand gold."

func TestFrequencySummarizer_KeepsOrderAndDropsNoise(t *testing.T) {
	out, err := NewFrequencySummarizer().Summarize(passage, 2)
	require.NoError(t, err)

	assert.NotContains(t, out, "weather")
	assert.Contains(t, out, "enhancement bonus to an ability score.")
	assert.Less(t, len(out), len(passage))
}

func TestFrequencySummarizer_ShortTextUnchanged(t *testing.T) {
	out, err := NewFrequencySummarizer().Summarize("  One sentence. Two sentences.  ", 5)
	require.NoError(t, err)
	assert.Equal(t, "One sentence. Two sentences.", out)

	out, err = NewFrequencySummarizer().Summarize("", 0)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestLeadSummarizer(t *testing.T) {
	out, err := LeadSummarizer{}.Summarize(passage, 1)
	require.NoError(t, err)
	assert.Equal(t, "Wondrous items are crafted with Craft Wondrous Item.", out)
}

func TestNew(t *testing.T) {
	s, err := New(config.SummarizerConfig{})
	require.NoError(t, err)
	assert.IsType(t, &FrequencySummarizer{}, s)

	_, err = New(config.SummarizerConfig{Type: "bogus"})
	assert.Error(t, err)
}
