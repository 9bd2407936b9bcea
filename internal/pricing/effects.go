package pricing

import (
	"fmt"
	"strings"

	"itemforge/internal/domain"
)

// EffectRule prices one known effect. An effect matches when its lowercased
// text contains any of the phrases.
type EffectRule struct {
	Label   string
	Phrases []string
	CostGP  float64
}

// EffectTable is evaluated in order; the first matching rule prices an effect.
type EffectTable []EffectRule

// Match returns the first rule whose phrase occurs in effect.
func (t EffectTable) Match(effect string) (EffectRule, bool) {
	norm := normalizeEffect(effect)
	if norm == "" {
		return EffectRule{}, false
	}
	for _, rule := range t {
		for _, p := range rule.Phrases {
			if containsPhrase(norm, p) {
				return rule, true
			}
		}
	}
	return EffectRule{}, false
}

// Price sums the cost of every matched effect. Unmatched effects cost
// nothing and produce no line.
func (t EffectTable) Price(effects []string) (float64, []domain.PriceLine) {
	var (
		total float64
		lines []domain.PriceLine
	)
	for _, effect := range effects {
		rule, ok := t.Match(effect)
		if !ok {
			continue
		}
		total += rule.CostGP
		lines = append(lines, domain.PriceLine{Source: effect, Label: rule.Label, GP: rule.CostGP})
	}
	return total, lines
}

// containsPhrase is strings.Contains except that a phrase ending in a digit
// must not be followed by another digit, so "+1" never matches "+10".
func containsPhrase(s, phrase string) bool {
	for from := 0; from <= len(s)-len(phrase); {
		i := strings.Index(s[from:], phrase)
		if i < 0 {
			return false
		}
		end := from + i + len(phrase)
		if end == len(s) || !isDigit(phrase[len(phrase)-1]) || !isDigit(s[end]) {
			return true
		}
		from += i + 1
	}
	return false
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func normalizeEffect(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer("’", "'", "`", "'").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

type term struct{ en, it string }

var abilities = []term{
	{"strength", "alla forza"},
	{"dexterity", "alla destrezza"},
	{"constitution", "alla costituzione"},
	{"intelligence", "all'intelligenza"},
	{"wisdom", "alla saggezza"},
	{"charisma", "al carisma"},
}

var energies = []term{
	{"fire", "al fuoco"},
	{"cold", "al freddo"},
	{"acid", "all'acido"},
	{"electricity", "all'elettricità"},
	{"sonic", "al suono"},
}

var energiesIT = map[string]string{
	"fire":        "fuoco",
	"cold":        "freddo",
	"acid":        "acido",
	"electricity": "elettricità",
	"sonic":       "sonoro",
}

// DefaultEffects returns the built-in effect table.
func DefaultEffects() EffectTable {
	var t EffectTable
	abilityCost := map[int]float64{2: 4000, 4: 16000, 6: 36000}
	for _, bonus := range []int{2, 4, 6} {
		for _, a := range abilities {
			t = append(t, EffectRule{
				Label: fmt.Sprintf("+%d enhancement bonus to %s", bonus, a.en),
				Phrases: []string{
					fmt.Sprintf("+%d %s bonus", bonus, a.en),
					fmt.Sprintf("+%d enhancement bonus to %s", bonus, a.en),
					fmt.Sprintf("+%d bonus to %s", bonus, a.en),
					fmt.Sprintf("+%d to %s", bonus, a.en),
					fmt.Sprintf("bonus di potenziamento +%d %s", bonus, a.it),
					fmt.Sprintf("bonus di potenziamento di +%d %s", bonus, a.it),
					fmt.Sprintf("+%d %s", bonus, a.it),
				},
				CostGP: abilityCost[bonus],
			})
		}
	}
	for _, e := range energies {
		t = append(t, EffectRule{
			Label: fmt.Sprintf("%s resistance 10", e.en),
			Phrases: []string{
				fmt.Sprintf("%s resistance 10", e.en),
				fmt.Sprintf("resistance to %s 10", e.en),
				fmt.Sprintf("resist %s 10", e.en),
				fmt.Sprintf("energy resistance (%s) 10", e.en),
				fmt.Sprintf("resistenza all'energia (%s) 10", energiesIT[e.en]),
				fmt.Sprintf("resistenza %s 10", e.it),
			},
			CostGP: 4000,
		})
	}
	for bonus := 1; bonus <= 5; bonus++ {
		sq := float64(bonus * bonus)
		t = append(t,
			EffectRule{
				Label: fmt.Sprintf("+%d deflection bonus to AC", bonus),
				Phrases: []string{
					fmt.Sprintf("+%d deflection", bonus),
					fmt.Sprintf("deflection bonus of +%d", bonus),
					fmt.Sprintf("bonus di deviazione +%d", bonus),
					fmt.Sprintf("bonus di deviazione di +%d", bonus),
				},
				CostGP: sq * 2000,
			},
			EffectRule{
				Label: fmt.Sprintf("+%d natural armor bonus", bonus),
				Phrases: []string{
					fmt.Sprintf("+%d natural armor", bonus),
					fmt.Sprintf("+%d enhancement bonus to natural armor", bonus),
					fmt.Sprintf("bonus di armatura naturale +%d", bonus),
					fmt.Sprintf("+%d all'armatura naturale", bonus),
				},
				CostGP: sq * 2000,
			},
			EffectRule{
				Label: fmt.Sprintf("+%d resistance bonus on saves", bonus),
				Phrases: []string{
					fmt.Sprintf("+%d resistance bonus", bonus),
					fmt.Sprintf("resistance bonus of +%d", bonus),
					fmt.Sprintf("bonus di resistenza +%d", bonus),
					fmt.Sprintf("bonus di resistenza di +%d", bonus),
					fmt.Sprintf("+%d ai tiri salvezza", bonus),
				},
				CostGP: sq * 1000,
			},
		)
	}
	return t
}
