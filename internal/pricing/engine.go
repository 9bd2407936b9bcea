// Package pricing derives market price, crafting cost, caster level and aura
// for item drafts. Effects are priced from a declarative table and a primary
// spell is resolved through the knowledge base. Pricing never fails: unknown
// inputs contribute nothing and fall back to the documented defaults.
package pricing

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"itemforge/internal/domain"
	"itemforge/internal/logging"
)

// Quote is the priced outcome of a set of effects and a spell reference.
type Quote struct {
	MarketPriceGP float64
	Lines         []domain.PriceLine
	CL            int
	Aura          string
	// SpellLevel is nil when no spell was resolved.
	SpellLevel *float64
}

// Engine prices item drafts.
type Engine struct {
	effects EffectTable
	spells  SpellLookup
	locale  Locale
	logger  *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

func WithEffects(t EffectTable) Option {
	return func(e *Engine) { e.effects = t }
}

func WithLocale(l Locale) Option {
	return func(e *Engine) { e.locale = l }
}

func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = logging.OrNop(l) }
}

// NewEngine creates an Engine. A nil lookup prices every spell reference as
// unknown.
func NewEngine(spells SpellLookup, opts ...Option) *Engine {
	e := &Engine{
		effects: DefaultEffects(),
		spells:  spells,
		locale:  LocaleEN,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) resolve(ctx context.Context, ref *domain.SpellRef) (Spell, bool) {
	name := SpellName(ref)
	if name == "" || e.spells == nil {
		return Spell{}, false
	}
	spell, ok := e.spells.LookupSpell(ctx, name)
	if !ok {
		e.logger.Debug("spell not resolved", zap.String("spell", name))
	}
	return spell, ok
}

// CasterLevelAndAura derives CL and aura from a spell reference, returning
// domain.DefaultCL and domain.DefaultAura when the spell is absent or unknown.
func (e *Engine) CasterLevelAndAura(ctx context.Context, ref *domain.SpellRef) (int, string) {
	spell, ok := e.resolve(ctx, ref)
	if !ok {
		return domain.DefaultCL, domain.DefaultAura
	}
	cl := CasterLevel(spell.Level)
	return cl, Aura(cl, spell.School, e.locale)
}

// Price sums the effect table contributions and, for a resolved spell, the
// 1/day spell-like ability cost CL × level × 1800 / 5. Level 0 spells count
// as half a level.
func (e *Engine) Price(ctx context.Context, effects []string, ref *domain.SpellRef) Quote {
	total, lines := e.effects.Price(effects)
	q := Quote{MarketPriceGP: total, Lines: lines, CL: domain.DefaultCL, Aura: domain.DefaultAura}

	spell, ok := e.resolve(ctx, ref)
	if !ok {
		return q
	}
	q.CL = CasterLevel(spell.Level)
	q.Aura = Aura(q.CL, spell.School, e.locale)
	level := float64(spell.Level)
	if level == 0 {
		level = 0.5
	}
	q.SpellLevel = &level
	gp := float64(q.CL) * level * 1800 / 5
	q.MarketPriceGP += gp
	q.Lines = append(q.Lines, domain.PriceLine{
		Source: ref.Raw(),
		Label:  fmt.Sprintf("%s 1/day (spell level %g, CL %d)", spell.Name, level, q.CL),
		GP:     gp,
	})
	return q
}

// CraftCost is half the market price, exactly.
func CraftCost(marketPrice float64) float64 {
	return marketPrice / 2.0
}

// Apply prices a draft.
func (e *Engine) Apply(ctx context.Context, d domain.Draft) domain.PricedItem {
	q := e.Price(ctx, d.OtherEffects, d.PrimarySpellEffect)
	market := q.MarketPriceGP
	craft := CraftCost(market)
	cl := q.CL
	e.logger.Debug("draft priced",
		zap.String("name", d.Name),
		zap.Float64("market_price_gp", market),
		zap.Int("cl", cl),
		zap.String("aura", q.Aura))
	return domain.PricedItem{
		Draft:          d,
		CL:             &cl,
		Aura:           q.Aura,
		MarketPriceGP:  &market,
		CraftingCostGP: &craft,
		SpellLevel:     q.SpellLevel,
		PriceBreakdown: q.Lines,
	}
}
