package domain

import (
	"bytes"
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Defaults applied when an item carries no primary spell effect.
const (
	DefaultCL   = 1
	DefaultAura = "Faint (None)"
)

// SpellRef references the spell an item replicates. Generators emit it either
// as free text ("casts 'flame blade' once per day") or as {"spell_name": ...}.
type SpellRef struct {
	Text      string
	SpellName string
}

// Raw returns the nested name when present, otherwise the free text.
func (r SpellRef) Raw() string {
	if strings.TrimSpace(r.SpellName) != "" {
		return r.SpellName
	}
	return r.Text
}

func (r *SpellRef) IsZero() bool {
	return r == nil || strings.TrimSpace(r.Raw()) == ""
}

func (r SpellRef) MarshalJSON() ([]byte, error) {
	if r.SpellName != "" && r.Text == "" {
		return json.Marshal(map[string]string{"spell_name": r.SpellName})
	}
	return json.Marshal(r.Raw())
}

func (r *SpellRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*r = SpellRef{}
		return nil
	}
	if data[0] == '{' {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(data, &obj); err != nil {
			return err
		}
		for _, key := range []string{"spell_name", "name", "spell"} {
			if raw, ok := obj[key]; ok {
				*r = SpellRef{SpellName: looseString(raw)}
				return nil
			}
		}
		*r = SpellRef{}
		return nil
	}
	*r = SpellRef{Text: looseString(data)}
	return nil
}

// Draft is the semi-structured output of the generator. Every field is optional.
type Draft struct {
	Name               string    `json:"name,omitempty"`
	Type               string    `json:"type,omitempty"`
	Slot               string    `json:"slot,omitempty"`
	Description        string    `json:"description,omitempty"`
	PrimarySpellEffect *SpellRef `json:"primary_spell_effect,omitempty"`
	OtherEffects       []string  `json:"other_effects,omitempty"`
	Rarity             string    `json:"rarity,omitempty"`
	SourceType         string    `json:"source_type,omitempty"`
	Activation         string    `json:"activation,omitempty"`
	Duration           string    `json:"duration,omitempty"`
	PlaytestNote       string    `json:"playtest_note,omitempty"`
}

// UnmarshalJSON accepts the loose shapes language models produce: numbers
// where strings are expected and a single string for other_effects.
func (d *Draft) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*d = Draft{
		Name:         looseString(raw["name"]),
		Type:         looseString(raw["type"]),
		Slot:         looseString(raw["slot"]),
		Description:  looseString(raw["description"]),
		OtherEffects: looseStrings(raw["other_effects"]),
		Rarity:       looseString(raw["rarity"]),
		SourceType:   looseString(raw["source_type"]),
		Activation:   looseString(raw["activation"]),
		Duration:     looseString(raw["duration"]),
		PlaytestNote: looseString(raw["playtest_note"]),
	}
	if v, ok := raw["primary_spell_effect"]; ok {
		var ref SpellRef
		if err := json.Unmarshal(v, &ref); err == nil && !ref.IsZero() {
			d.PrimarySpellEffect = &ref
		}
	}
	return nil
}

// PriceLine is one contribution to an item's market price.
type PriceLine struct {
	Source string  `json:"source"`
	Label  string  `json:"label"`
	GP     float64 `json:"gp"`
}

// PricedItem is a draft plus derived fields. Derived fields are pointers so
// hand-built records can omit them and the validator can tell.
type PricedItem struct {
	Draft
	CL             *int        `json:"CL,omitempty"`
	Aura           string      `json:"aura,omitempty"`
	MarketPriceGP  *float64    `json:"market_price_gp,omitempty"`
	CraftingCostGP *float64    `json:"crafting_cost_gp,omitempty"`
	SpellLevel     *float64    `json:"spell_level,omitempty"`
	PriceBreakdown []PriceLine `json:"price_breakdown,omitempty"`
}

type pricedFields struct {
	CL             json.RawMessage `json:"CL"`
	Aura           json.RawMessage `json:"aura"`
	MarketPriceGP  *float64        `json:"market_price_gp"`
	CraftingCostGP *float64        `json:"crafting_cost_gp"`
	SpellLevel     *float64        `json:"spell_level"`
	PriceBreakdown []PriceLine     `json:"price_breakdown"`
}

// UnmarshalJSON decodes the draft fields loosely. CL is kept only when it is
// an integral JSON number; strings and fractions leave it nil.
func (p *PricedItem) UnmarshalJSON(data []byte) error {
	var d Draft
	if err := d.UnmarshalJSON(data); err != nil {
		return err
	}
	var f pricedFields
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*p = PricedItem{
		Draft:          d,
		Aura:           looseString(f.Aura),
		MarketPriceGP:  f.MarketPriceGP,
		CraftingCostGP: f.CraftingCostGP,
		SpellLevel:     f.SpellLevel,
		PriceBreakdown: f.PriceBreakdown,
	}
	var n json.Number
	dec := json.NewDecoder(bytes.NewReader(f.CL))
	dec.UseNumber()
	if len(f.CL) > 0 && f.CL[0] != '"' && dec.Decode(&n) == nil {
		if v, err := n.Float64(); err == nil && v == math.Trunc(v) {
			cl := int(v)
			p.CL = &cl
		}
	}
	return nil
}

// ValidatedItem is the pipeline's final output.
type ValidatedItem struct {
	PricedItem
	IsValid          bool     `json:"is_valid"`
	ValidationErrors []string `json:"validation_errors"`
}

func (v *ValidatedItem) UnmarshalJSON(data []byte) error {
	var p PricedItem
	if err := p.UnmarshalJSON(data); err != nil {
		return err
	}
	var f struct {
		IsValid          bool     `json:"is_valid"`
		ValidationErrors []string `json:"validation_errors"`
	}
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*v = ValidatedItem{PricedItem: p, IsValid: f.IsValid, ValidationErrors: f.ValidationErrors}
	return nil
}

// Rendering defaults for keys that are unknown on an item.
const (
	DefaultName        = "Unnamed Item"
	DefaultSlot        = "None"
	DefaultRarity      = "Comune"
	DefaultPlaytest    = "None"
	DefaultUnspecified = "Unspecified"
)

// Fields returns the rendering view of the item. Every key consumed by
// renderers is present, filled with the defaults above when unknown.
func (v ValidatedItem) Fields() map[string]any {
	cl := DefaultCL
	if v.CL != nil {
		cl = *v.CL
	}
	var market, craft float64
	if v.MarketPriceGP != nil {
		market = *v.MarketPriceGP
	}
	if v.CraftingCostGP != nil {
		craft = *v.CraftingCostGP
	}
	spell := ""
	if !v.PrimarySpellEffect.IsZero() {
		spell = v.PrimarySpellEffect.Raw()
	}
	effects := append([]string{}, v.OtherEffects...)
	errs := append([]string{}, v.ValidationErrors...)
	return map[string]any{
		"name":                 orDefault(v.Name, DefaultName),
		"type":                 v.Type,
		"slot":                 orDefault(v.Slot, DefaultSlot),
		"aura":                 orDefault(v.Aura, DefaultAura),
		"CL":                   cl,
		"market_price_gp":      market,
		"crafting_cost_gp":     craft,
		"description":          v.Description,
		"primary_spell_effect": spell,
		"other_effects":        effects,
		"activation":           orDefault(v.Activation, DefaultUnspecified),
		"duration":             orDefault(v.Duration, DefaultUnspecified),
		"playtest_note":        orDefault(v.PlaytestNote, DefaultPlaytest),
		"rarity":               orDefault(v.Rarity, DefaultRarity),
		"is_valid":             v.IsValid,
		"validation_errors":    errs,
	}
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

func looseString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return strconv.FormatBool(b)
	}
	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err == nil {
		return strings.Join(looseStrings(raw), "; ")
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err == nil {
		keys := make([]string, 0, len(obj))
		for k := range obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			if s := looseString(obj[k]); s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, " ")
	}
	return string(raw)
}

func looseStrings(raw json.RawMessage) []string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	var list []json.RawMessage
	if err := json.Unmarshal(raw, &list); err != nil {
		if s := looseString(raw); s != "" {
			return []string{s}
		}
		return nil
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s := looseString(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}
