package pricing

import (
	"fmt"
	"strings"
)

// Locale selects the language of derived aura labels.
type Locale string

const (
	LocaleEN Locale = "en"
	LocaleIT Locale = "it"
)

// ParseLocale accepts "en", "it" and the empty string (English).
func ParseLocale(s string) (Locale, error) {
	switch l := Locale(strings.ToLower(strings.TrimSpace(s))); l {
	case "", LocaleEN:
		return LocaleEN, nil
	case LocaleIT:
		return LocaleIT, nil
	default:
		return "", fmt.Errorf("unsupported locale %q", s)
	}
}

// CasterLevel returns the minimum caster level for a spell level
// (2×level−1). Cantrips and orisons use caster level 1.
func CasterLevel(spellLevel int) int {
	if spellLevel <= 1 {
		return 1
	}
	return 2*spellLevel - 1
}

type tier struct {
	minCL  int
	en, it string
}

// The lowest tier matches domain.DefaultAura, so an unresolved spell and a
// resolved CL 1 spell share the "Faint" label.
var auraTiers = []tier{
	{11, "Strong", "Forte"},
	{7, "Moderate", "Moderata"},
	{4, "Faint-plus", "Debole"},
	{1, "Faint", "Minore"},
}

// AuraStrength labels a caster level.
func AuraStrength(cl int, loc Locale) string {
	for _, t := range auraTiers {
		if cl >= t.minCL {
			if loc == LocaleIT {
				return t.it
			}
			return t.en
		}
	}
	if loc == LocaleIT {
		return auraTiers[len(auraTiers)-1].it
	}
	return auraTiers[len(auraTiers)-1].en
}

var schoolIT = map[string]string{
	"Abjuration":    "Abjurazione",
	"Conjuration":   "Evocazione",
	"Divination":    "Divinazione",
	"Enchantment":   "Ammaliamento",
	"Evocation":     "Invocazione",
	"Illusion":      "Illusione",
	"Necromancy":    "Necromanzia",
	"Transmutation": "Trasmutazione",
	"Universal":     "Universale",
}

// TranslateSchool returns the Italian name of an English school. Unknown
// names are returned unchanged.
func TranslateSchool(school string) string {
	if it, ok := schoolIT[school]; ok {
		return it
	}
	return school
}

// Aura builds a "<strength> <school>" label. An unknown school is shown as
// "(None)".
func Aura(cl int, school string, loc Locale) string {
	school = strings.TrimSpace(school)
	if school == "" {
		return AuraStrength(cl, loc) + " (None)"
	}
	if loc == LocaleIT {
		school = TranslateSchool(school)
	}
	return AuraStrength(cl, loc) + " " + school
}

// TranslateAura rewrites an English "<strength> <school>" aura label in
// Italian. Labels it does not recognise are returned unchanged.
func TranslateAura(aura string) string {
	parts := strings.Fields(aura)
	if len(parts) < 2 {
		return aura
	}
	translated := false
	for _, t := range auraTiers {
		if strings.EqualFold(parts[0], t.en) {
			parts[0] = t.it
			translated = true
			break
		}
	}
	if it, ok := schoolIT[parts[1]]; ok {
		parts[1] = it
		translated = true
	}
	if !translated {
		return aura
	}
	return strings.Join(parts, " ")
}
