// Package validation checks priced items against the magic item checklist.
//
// Every rule runs; failures are collected as messages and never stop the
// remaining rules. The checklist grows by registering new rules. Planned
// extensions that are not implemented as rules yet:
//   - bonus type stacking (item bonuses must name a type and not stack
//     with bonuses of the same type)
//   - terminology and formatting conventions (Italian school names, spells
//     in italics, conditions in bold)
//   - navigation anchors (title emoji and a matching HTML anchor)
package validation

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"itemforge/internal/domain"
)

// Rule checks one aspect of an item and returns its violations.
type Rule interface {
	Name() string
	Check(item domain.PricedItem) []string
}

// RuleFunc adapts a function to a Rule.
type RuleFunc struct {
	RuleName string
	Fn       func(domain.PricedItem) []string
}

func (r RuleFunc) Name() string                          { return r.RuleName }
func (r RuleFunc) Check(item domain.PricedItem) []string { return r.Fn(item) }

// Validator runs an ordered checklist.
type Validator struct {
	rules []Rule
}

// New returns a validator with the given rules.
func New(rules ...Rule) *Validator {
	return &Validator{rules: append([]Rule(nil), rules...)}
}

// Default returns the standard checklist.
func Default() *Validator {
	return New(
		ThirdPartyRule(),
		SlotRule(),
		CasterLevelRule(),
		HalfPriceRule(),
		ActivationRule(),
		PlaytestRule(),
		RarityRule(),
	)
}

// Register appends a rule to the checklist.
func (v *Validator) Register(r Rule) {
	v.rules = append(v.rules, r)
}

// Rules lists the registered rule names in order.
func (v *Validator) Rules() []string {
	names := make([]string, len(v.rules))
	for i, r := range v.rules {
		names[i] = r.Name()
	}
	return names
}

// Check returns every violation in rule order.
func (v *Validator) Check(item domain.PricedItem) (bool, []string) {
	errs := []string{}
	for _, r := range v.rules {
		errs = append(errs, r.Check(item)...)
	}
	return len(errs) == 0, errs
}

// Validate produces the final record.
func (v *Validator) Validate(item domain.PricedItem) domain.ValidatedItem {
	ok, errs := v.Check(item)
	return domain.ValidatedItem{PricedItem: item, IsValid: ok, ValidationErrors: errs}
}

// PriceTolerance is the allowed absolute drift between crafting cost and
// half the market price.
const PriceTolerance = 0.01

// ValidSlots are the accepted equipment slots, in Italian and English.
var ValidSlots = []string{
	"Collo", "Testa", "Cintura", "Corpo", "Torso", "Piedi", "Mani", "Fascia", "Occhi", "Spalle", "Polso", "Anello", "Arma", "Armatura", "Scudo",
	"Neck", "Head", "Belt", "Body", "Chest", "Feet", "Hands", "Headband", "Eyes", "Shoulders", "Wrist", "Ring", "Weapon", "Armor", "Shield",
}

// ValidRarities is the closed rarity enumeration. The generator prompt asks
// for these Italian labels.
var ValidRarities = []string{"Comune", "Non comune", "Raro", "Unico"}

func ThirdPartyRule() Rule {
	return RuleFunc{"source", func(item domain.PricedItem) []string {
		if strings.EqualFold(strings.TrimSpace(item.SourceType), "3PP") {
			return []string{"Item uses 3rd-party content, which is not allowed."}
		}
		return nil
	}}
}

func SlotRule() Rule {
	return RuleFunc{"slot", func(item domain.PricedItem) []string {
		if item.Slot == "" || slices.Contains(ValidSlots, item.Slot) {
			return nil
		}
		return []string{fmt.Sprintf("Invalid slot: %q.", item.Slot)}
	}}
}

func CasterLevelRule() Rule {
	return RuleFunc{"caster_level", func(item domain.PricedItem) []string {
		if item.CL == nil || *item.CL < 1 {
			return []string{"Caster Level (CL) is missing or invalid."}
		}
		return nil
	}}
}

func HalfPriceRule() Rule {
	return RuleFunc{"half_price", func(item domain.PricedItem) []string {
		if item.MarketPriceGP == nil || item.CraftingCostGP == nil {
			return nil
		}
		market, craft := *item.MarketPriceGP, *item.CraftingCostGP
		if math.Abs(craft-market/2.0) > PriceTolerance {
			return []string{fmt.Sprintf("Crafting cost (%v) is not half of market price (%v).", craft, market)}
		}
		return nil
	}}
}

func ActivationRule() Rule {
	return RuleFunc{"activation", func(item domain.PricedItem) []string {
		if strings.TrimSpace(item.Activation) == "" || strings.TrimSpace(item.Duration) == "" {
			return []string{"Activation or duration is missing."}
		}
		return nil
	}}
}

func PlaytestRule() Rule {
	return RuleFunc{"playtest_note", func(item domain.PricedItem) []string {
		if strings.TrimSpace(item.PlaytestNote) == "" {
			return []string{"Playtest note is missing."}
		}
		return nil
	}}
}

func RarityRule() Rule {
	return RuleFunc{"rarity", func(item domain.PricedItem) []string {
		if item.Rarity == "" || slices.Contains(ValidRarities, item.Rarity) {
			return nil
		}
		return []string{fmt.Sprintf("Invalid rarity: %s.", item.Rarity)}
	}}
}
