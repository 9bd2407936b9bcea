package textutil

import (
	"math"
	"regexp"
	"strings"
)

var wordRe = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*|\d+`)

// Tokens lowercases text and returns its word and number tokens.
func Tokens(text string) []string {
	return wordRe.FindAllString(strings.ToLower(text), -1)
}

// ContentTokens is Tokens with stopwords removed.
func ContentTokens(text string) []string {
	raw := Tokens(text)
	out := raw[:0]
	for _, t := range raw {
		if !IsStopword(t) {
			out = append(out, t)
		}
	}
	return out
}

// TokenSet returns the distinct tokens of text.
func TokenSet(text string) map[string]struct{} {
	tokens := Tokens(text)
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

// Overlap counts distinct tokens of text that appear in query.
func Overlap(query map[string]struct{}, text string) int {
	n := 0
	for t := range TokenSet(text) {
		if _, ok := query[t]; ok {
			n++
		}
	}
	return n
}

// Ochiai returns |A∩B| / sqrt(|A||B|) between the query set and the tokens of text.
func Ochiai(query map[string]struct{}, text string) float64 {
	set := TokenSet(text)
	if len(query) == 0 || len(set) == 0 {
		return 0
	}
	return float64(Overlap(query, text)) / math.Sqrt(float64(len(query))*float64(len(set)))
}

// IsStopword reports whether tok is an English or Italian function word.
func IsStopword(tok string) bool {
	_, ok := stopwords[tok]
	return ok
}

var stopwords = func() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "this", "that", "these", "those", "from", "up", "down", "over", "under", "again", "further", "than", "so", "such", "into", "about", "between", "through", "during", "before", "after", "above", "below", "out", "off", "own", "same", "too", "very", "can", "will", "just", "don", "should", "now",
		"il", "lo", "la", "i", "gli", "le", "un", "uno", "una", "di", "da", "del", "della", "dei", "delle", "al", "alla", "ai", "alle", "e", "o", "che", "per", "con", "su", "non", "si", "è",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}()
