// Package textutil holds the sentence splitting and tokenisation shared by
// the embedders, the summarizer, lexical fallback ranking and the TUI.
package textutil

import (
	"regexp"
	"strings"
)

var sentenceRe = regexp.MustCompile(`(?m)(?U)([^.!?]+[.!?])`)

// Sentences splits text on terminal punctuation. Trailing text without a
// terminator is kept as a final sentence; blank input yields nil.
func Sentences(text string) []string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return nil
	}
	found := sentenceRe.FindAllStringIndex(trimmed, -1)
	if len(found) == 0 {
		return []string{trimmed}
	}
	out := make([]string, 0, len(found)+1)
	end := 0
	for _, loc := range found {
		if s := strings.TrimSpace(trimmed[loc[0]:loc[1]]); s != "" {
			out = append(out, s)
		}
		end = loc[1]
	}
	if tail := strings.TrimSpace(trimmed[end:]); tail != "" {
		out = append(out, tail)
	}
	return out
}

// Window groups sentences into passages of size sentences with overlap
// sentences shared between neighbours.
func Window(sentences []string, size, overlap int) []string {
	if size <= 0 {
		size = 5
	}
	if overlap < 0 || overlap >= size {
		overlap = 0
	}
	var out []string
	i := 0
	for i < len(sentences) {
		end := i + size
		if end > len(sentences) {
			end = len(sentences)
		}
		out = append(out, strings.Join(sentences[i:end], " "))
		if end == len(sentences) {
			break
		}
		i = end - overlap
	}
	return out
}
