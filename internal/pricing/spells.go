package pricing

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"

	"itemforge/internal/domain"
	"itemforge/internal/logging"
	"itemforge/internal/retrieval"
)

// Spell is what pricing needs to know about a spell.
type Spell struct {
	Name string
	// Level is the lowest class level the spell appears at. 0 is a cantrip
	// or orison.
	Level  int
	School string
}

// SpellLookup resolves a clean spell name. ok is false when the spell is
// unknown or the knowledge base cannot answer.
type SpellLookup interface {
	LookupSpell(ctx context.Context, name string) (spell Spell, ok bool)
}

var (
	quotedRe  = regexp.MustCompile(`(?:^|\s)'([^']+)'|"([^"]+)"|“([^”]+)”|\*\*([^*]+)\*\*|\*([^*]+)\*`)
	keywordRe = regexp.MustCompile(`(?i)\b(?:spell|incantesimo)\b:?\s+(?:the\s+|of\s+|di\s+)?`)
	stopRe    = regexp.MustCompile(`(?i)[(,.;:!?]|\s(?:once|twice|per|times|una|al giorno)\b|\s\d`)
)

// SpellName extracts a lookup name from a spell reference. A nested
// spell_name is used as given; free text prefers a quoted or emphasised
// segment, then the words after "spell" or "incantesimo". Markup and any
// parenthetical tail are removed.
func SpellName(ref *domain.SpellRef) string {
	if ref.IsZero() {
		return ""
	}
	if strings.TrimSpace(ref.SpellName) != "" {
		return clean(ref.SpellName)
	}
	text := strings.TrimSpace(ref.Text)
	if m := quotedRe.FindStringSubmatch(text); m != nil {
		for _, g := range m[1:] {
			if strings.TrimSpace(g) != "" {
				return clean(g)
			}
		}
	}
	if loc := keywordRe.FindStringIndex(text); loc != nil {
		rest := text[loc[1]:]
		if stop := stopRe.FindStringIndex(rest); stop != nil {
			rest = rest[:stop[0]]
		}
		if name := clean(rest); name != "" {
			return name
		}
	}
	return clean(text)
}

func clean(s string) string {
	s = strings.NewReplacer(`"`, "", "**", "", "*", "", "“", "", "”", "").Replace(s)
	if i := strings.Index(s, "("); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimFunc(s, func(r rune) bool { return unicode.IsSpace(r) || strings.ContainsRune(".,;:", r) })
	return strings.Join(strings.Fields(s), " ")
}

var levelRe = regexp.MustCompile(`\d+`)

// MinClassLevel parses a class level list such as
// "sorcerer/wizard 3, cleric 4" and returns the lowest level.
func MinClassLevel(levels string) (int, bool) {
	best, found := 0, false
	for _, part := range strings.FieldsFunc(levels, func(r rune) bool { return r == ',' || r == ';' }) {
		nums := levelRe.FindAllString(part, -1)
		if len(nums) == 0 {
			continue
		}
		n, err := strconv.Atoi(nums[len(nums)-1])
		if err != nil || n > 9 {
			continue
		}
		if !found || n < best {
			best, found = n, true
		}
	}
	return best, found
}

// schoolWord returns the first word of a school field, title-cased:
// "evocation [fire]" becomes "Evocation".
func schoolWord(school string) string {
	fields := strings.FieldsFunc(school, func(r rune) bool { return unicode.IsSpace(r) || r == '(' || r == '[' || r == ';' || r == ',' })
	if len(fields) == 0 {
		return ""
	}
	w := strings.ToLower(fields[0])
	r, size := utf8.DecodeRuneInString(w)
	return string(unicode.ToUpper(r)) + w[size:]
}

// Searcher is the part of the retrieval service spell lookups use.
type Searcher interface {
	Query(ctx context.Context, text string, k int) (retrieval.Response, error)
}

// RetrievalLookup resolves spells against the knowledge base.
type RetrievalLookup struct {
	searcher Searcher
	k        int
	logger   *zap.Logger
}

// NewRetrievalLookup creates a lookup that inspects the top k hits per query.
func NewRetrievalLookup(s Searcher, k int, logger *zap.Logger) *RetrievalLookup {
	if k <= 0 {
		k = retrieval.DefaultTopK
	}
	return &RetrievalLookup{searcher: s, k: k, logger: logging.OrNop(logger)}
}

// LookupSpell keeps spell records whose name equals name, ignoring case, and
// takes the minimum class level among them.
func (l *RetrievalLookup) LookupSpell(ctx context.Context, name string) (Spell, bool) {
	if name == "" {
		return Spell{}, false
	}
	resp, err := l.searcher.Query(ctx, fmt.Sprintf("Pathfinder 1E spell %s details", name), l.k)
	if err != nil || resp.Status != retrieval.StatusReady {
		l.logger.Debug("spell lookup without context",
			zap.String("spell", name), zap.String("status", string(resp.Status)), zap.Error(err))
		return Spell{}, false
	}
	var (
		spell Spell
		found bool
	)
	for _, r := range resp.Results {
		md := r.Metadata
		if md.Kind() != domain.KindSpell || !strings.EqualFold(strings.TrimSpace(md.String("name")), name) {
			continue
		}
		level, ok := MinClassLevel(md.String("level"))
		if !ok {
			continue
		}
		if !found || level < spell.Level {
			spell = Spell{Name: md.String("name"), Level: level, School: schoolWord(md.String("school"))}
			found = true
		}
	}
	return spell, found
}
