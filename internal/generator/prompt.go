package generator

import (
	"fmt"
	"strings"

	"itemforge/internal/domain"
)

const systemPreamble = `You are an expert Pathfinder 1E game master and item creator. Your task is to generate a magic item based on the user's request, strictly adhering to Pathfinder 1E rules.
First, generate the item's name, type, slot, and a brief description. Then, outline its primary magical effects.
Do NOT include specific GP costs, CL, or Aura in this initial draft, as those will be calculated by an external module.
Focus on creativity and adherence to Pathfinder lore and mechanics.`

const systemKeys = `Generate the item in a JSON format with the following keys: name, type, slot, description, primary_spell_effect (if any), other_effects (list of strings), rarity (use Italian terms: "Comune", "Non comune", "Raro", "Unico"), source_type (default to "Paizo PF1e"), activation, duration, playtest_note.`

// ContextBlock lists retrieved passages for the prompt. Empty input yields
// an empty block.
func ContextBlock(results []domain.SearchResult, trim func(string) string) string {
	if len(results) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Relevant Pathfinder 1E rules and information:\n")
	for _, r := range results {
		content := r.Metadata.Content()
		if content == "" {
			content = r.Text
		}
		if trim != nil {
			content = trim(content)
		}
		fmt.Fprintf(&b, "- Source: %s, Section: %s\n", r.Metadata.Source(), r.Metadata.Section())
		fmt.Fprintf(&b, "  Content: %s\n", content)
	}
	return b.String()
}

// SystemPrompt assembles the instructions sent with every request.
func SystemPrompt(contextBlock string) string {
	parts := []string{systemPreamble}
	if contextBlock != "" {
		parts = append(parts, strings.TrimRight(contextBlock, "\n"))
	}
	parts = append(parts, systemKeys)
	return strings.Join(parts, "\n")
}
