package summarizer

import (
	"fmt"

	"itemforge/internal/config"
	"itemforge/internal/domain"
)

// New returns the summarizer selected by cfg.Type.
func New(cfg config.SummarizerConfig) (domain.Summarizer, error) {
	switch cfg.Type {
	case "", "frequency":
		return NewFrequencySummarizer(), nil
	case "lead":
		return LeadSummarizer{}, nil
	default:
		return nil, fmt.Errorf("unknown summarizer type %q", cfg.Type)
	}
}
