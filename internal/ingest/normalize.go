package ingest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"itemforge/internal/domain"
)

// Entry is a normalized (text, metadata) pair awaiting an id and a vector.
type Entry struct {
	Text     string
	Metadata domain.Metadata
}

type listHint int

const (
	hintNone listHint = iota
	hintSpells
	hintItems
)

// Normalize decodes one source document and converts it into entries.
// Three shapes are understood: a flat JSON array of spells or items, an
// object wrapping such an array under "spells" or "items", and a sectioned
// rules document with paragraphs and tables. A document that decodes but
// yields no entry is reported as a whole-document skip.
func Normalize(doc SourceDocument) ([]Entry, []Skip) {
	entries, skips := normalize(doc)
	if len(entries) > 0 {
		return entries, skips
	}
	for _, s := range skips {
		if s.Element == -1 {
			return nil, skips
		}
	}
	return nil, append(skips, Skip{Source: doc.Source, Element: -1, Reason: "no textual content"})
}

func normalize(doc SourceDocument) ([]Entry, []Skip) {
	var root any
	dec := json.NewDecoder(bytes.NewReader(doc.Data))
	if err := dec.Decode(&root); err != nil {
		return nil, []Skip{{Source: doc.Source, Element: -1, Reason: fmt.Sprintf("invalid JSON: %v", err)}}
	}
	switch v := root.(type) {
	case []any:
		return normalizeList(doc.Source, v, hintNone)
	case map[string]any:
		if sections, ok := v["sections"].([]any); ok {
			return normalizeSectioned(doc.Source, v, sections)
		}
		if spells, ok := v["spells"].([]any); ok {
			return normalizeList(sourceOf(v, doc.Source), spells, hintSpells)
		}
		if items, ok := v["items"].([]any); ok {
			return normalizeList(sourceOf(v, doc.Source), items, hintItems)
		}
	}
	return nil, []Skip{{Source: doc.Source, Element: -1, Reason: "unrecognized document shape"}}
}

func normalizeList(source string, list []any, hint listHint) ([]Entry, []Skip) {
	var (
		entries []Entry
		skips   []Skip
	)
	for i, el := range list {
		m, ok := el.(map[string]any)
		if !ok {
			skips = append(skips, Skip{Source: source, Element: i, Reason: "element is not an object"})
			continue
		}
		var (
			e   Entry
			err error
		)
		if hint == hintSpells || (hint == hintNone && isSpell(m)) {
			e, err = spellEntry(source, m)
		} else {
			e, err = itemEntry(source, m)
		}
		if err != nil {
			skips = append(skips, Skip{Source: source, Element: i, Reason: err.Error()})
			continue
		}
		entries = append(entries, e)
	}
	return entries, skips
}

func isSpell(m map[string]any) bool {
	_, ok := m["school"]
	return ok
}

func spellEntry(docSource string, m map[string]any) (Entry, error) {
	name, desc := field(m, "name"), field(m, "description")
	if name == "" && desc == "" {
		return Entry{}, fmt.Errorf("spell without name or description")
	}
	level, school := field(m, "level"), field(m, "school")
	text := fmt.Sprintf("Spell: %s. Level: %s. School: %s. Description: %s", name, level, school, desc)
	return Entry{
		Text: text,
		Metadata: domain.Metadata{
			"source":  firstNonEmpty(field(m, "source_url"), field(m, "url"), docSource),
			"section": "Spells",
			"type":    domain.KindSpell,
			"name":    name,
			"level":   level,
			"school":  school,
			"text":    text,
		},
	}, nil
}

var itemFields = []struct{ key, label string }{
	{"name", "Name"},
	{"aura", "Aura"},
	{"cl", "CL"},
	{"slot", "Slot"},
	{"price", "Price"},
	{"weight", "Weight"},
	{"description", "Description"},
	{"requirements", "Requirements"},
}

func itemEntry(docSource string, m map[string]any) (Entry, error) {
	values := map[string]string{}
	for _, f := range itemFields {
		values[f.key] = field(m, f.key)
	}
	if values["price"] == "" {
		values["price"] = field(m, "cost")
	}
	if values["cl"] == "" {
		values["cl"] = field(m, "CL")
	}
	var parts []string
	for _, f := range itemFields {
		if v := values[f.key]; v != "" {
			parts = append(parts, fmt.Sprintf("%s: %s.", f.label, strings.TrimRight(v, ".")))
		}
	}
	if len(parts) == 0 {
		return Entry{}, fmt.Errorf("item without any text field")
	}
	text := strings.Join(parts, " ")
	md := domain.Metadata{
		"source":  firstNonEmpty(field(m, "source_url"), field(m, "url"), docSource),
		"section": "Magic Items",
		"type":    domain.KindItem,
		"text":    text,
	}
	for _, k := range []string{"name", "aura", "cl", "slot", "price", "weight"} {
		if v := values[k]; v != "" {
			md[k] = v
		}
	}
	if cl, ok := m["cl"].(float64); ok {
		md["cl"] = cl
	}
	if url := field(m, "url"); url != "" {
		md["url"] = url
	}
	return Entry{Text: text, Metadata: md}, nil
}

func normalizeSectioned(docSource string, root map[string]any, sections []any) ([]Entry, []Skip) {
	source := sourceOf(root, docSource)
	title := field(root, "title")
	var (
		entries []Entry
		skips   []Skip
	)
	for si, raw := range sections {
		sec, ok := raw.(map[string]any)
		if !ok {
			skips = append(skips, Skip{Source: source, Element: si, Reason: "section is not an object"})
			continue
		}
		heading := firstNonEmpty(field(sec, "heading"), "N/A")
		content, _ := sec["content"].([]any)
		for _, c := range content {
			node, ok := c.(map[string]any)
			if !ok || field(node, "type") != domain.KindParagraph {
				continue
			}
			text := field(node, "text")
			if text == "" {
				continue
			}
			md := domain.Metadata{"source": source, "section": heading, "type": domain.KindParagraph, "text": text}
			if title != "" {
				md["title"] = title
			}
			entries = append(entries, Entry{Text: text, Metadata: md})
		}
		tables, _ := sec["tables"].([]any)
		for _, table := range tables {
			text, err := canonicalJSON(table)
			if err != nil || text == "" || text == "null" || text == "[]" {
				continue
			}
			md := domain.Metadata{"source": source, "section": heading, "type": domain.KindTable, "content": table}
			if title != "" {
				md["title"] = title
			}
			entries = append(entries, Entry{Text: text, Metadata: md})
		}
	}
	return entries, skips
}

// canonicalJSON serializes v deterministically: encoding/json sorts map keys.
func canonicalJSON(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimSpace(buf.String()), nil
}

func sourceOf(root map[string]any, fallback string) string {
	return firstNonEmpty(field(root, "source_url"), field(root, "source"), fallback)
}

func field(m map[string]any, key string) string {
	return strings.TrimSpace(domain.Metadata(m).String(key))
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
