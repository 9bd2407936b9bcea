package pricing

import (
	"context"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"itemforge/internal/config"
	"itemforge/internal/domain"
	"itemforge/internal/embedding"
	"itemforge/internal/ingest"
	"itemforge/internal/retrieval"
	"itemforge/internal/vectorstore"
)

type fakeLookup map[string]Spell

func (f fakeLookup) LookupSpell(_ context.Context, name string) (Spell, bool) {
	s, ok := f[strings.ToLower(name)]
	return s, ok
}

var spells = fakeLookup{
	"fireball":     {Name: "Fireball", Level: 3, School: "Evocation"},
	"light":        {Name: "Light", Level: 0, School: "Evocation"},
	"true seeing":  {Name: "True Seeing", Level: 6, School: "Divination"},
	"mystery cult": {Name: "Mystery Cult", Level: 2},
}

func TestApply_DexterityBeltWithoutSpell(t *testing.T) {
	for _, e := range []*Engine{NewEngine(nil), NewEngine(spells)} {
		item := e.Apply(context.Background(), domain.Draft{OtherEffects: []string{"+2 dexterity bonus"}})

		require.NotNil(t, item.MarketPriceGP)
		require.NotNil(t, item.CraftingCostGP)
		require.NotNil(t, item.CL)
		assert.Equal(t, 4000.0, *item.MarketPriceGP)
		assert.Equal(t, 2000.0, *item.CraftingCostGP)
		assert.Equal(t, 1, *item.CL)
		assert.Equal(t, "Faint (None)", item.Aura)
		assert.Nil(t, item.SpellLevel)
	}
}

func TestApply_SpellEffect(t *testing.T) {
	e := NewEngine(spells)
	item := e.Apply(context.Background(), domain.Draft{
		Name:               "Amulet of the Valiant Flame",
		PrimarySpellEffect: &domain.SpellRef{Text: "fireball"},
		OtherEffects:       []string{"Fire resistance 10"},
	})
	assert.Equal(t, 5, *item.CL)
	assert.Equal(t, "Faint-plus Evocation", item.Aura)
	assert.Equal(t, 4000.0+5*3*1800/5.0, *item.MarketPriceGP)
	assert.Equal(t, 3.0, *item.SpellLevel)
	require.Len(t, item.PriceBreakdown, 2)
	assert.Equal(t, 5400.0, item.PriceBreakdown[1].GP)
}

func TestCasterLevelAndAura(t *testing.T) {
	en := NewEngine(spells)
	it := NewEngine(spells, WithLocale(LocaleIT))
	ctx := context.Background()

	cl, aura := en.CasterLevelAndAura(ctx, &domain.SpellRef{SpellName: "True Seeing"})
	assert.Equal(t, 11, cl)
	assert.Equal(t, "Strong Divination", aura)

	cl, aura = it.CasterLevelAndAura(ctx, &domain.SpellRef{SpellName: "fireball"})
	assert.Equal(t, 5, cl)
	assert.Equal(t, "Debole Invocazione", aura)

	_, aura = en.CasterLevelAndAura(ctx, &domain.SpellRef{Text: "mystery cult"})
	assert.Equal(t, domain.DefaultAura, aura)

	cl, aura = en.CasterLevelAndAura(ctx, &domain.SpellRef{Text: "Unknown Spell Name"})
	assert.Equal(t, domain.DefaultCL, cl)
	assert.Equal(t, domain.DefaultAura, aura)

	cl, aura = en.CasterLevelAndAura(ctx, nil)
	assert.Equal(t, domain.DefaultCL, cl)
	assert.Equal(t, domain.DefaultAura, aura)
}

func TestPrice_Cantrip(t *testing.T) {
	q := NewEngine(spells).Price(context.Background(), nil, &domain.SpellRef{Text: "light"})
	assert.Equal(t, 1, q.CL)
	assert.Equal(t, 180.0, q.MarketPriceGP)
	assert.Equal(t, "Faint Evocation", q.Aura)
}

func TestPrice_NothingResolvable(t *testing.T) {
	q := NewEngine(spells).Price(context.Background(), []string{"glows", ""}, &domain.SpellRef{Text: "unheard of"})
	assert.Zero(t, q.MarketPriceGP)
	assert.Empty(t, q.Lines)
}

func TestApply_CraftCostIsHalfPrice(t *testing.T) {
	effects := []string{
		"+2 dexterity bonus", "+4 wisdom bonus", "+3 deflection bonus",
		"+1 natural armor", "+5 resistance bonus", "cold resistance 10", "sparkles",
	}
	refs := []*domain.SpellRef{nil, {Text: "fireball"}, {Text: "light"}, {SpellName: "true seeing"}}
	rng := rand.New(rand.NewSource(7))
	e := NewEngine(spells)
	for i := 0; i < 500; i++ {
		var picked []string
		for _, eff := range effects {
			if rng.Intn(2) == 0 {
				picked = append(picked, eff)
			}
		}
		item := e.Apply(context.Background(), domain.Draft{OtherEffects: picked, PrimarySpellEffect: refs[rng.Intn(len(refs))]})
		assert.GreaterOrEqual(t, *item.MarketPriceGP, 0.0)
		assert.Equal(t, *item.MarketPriceGP/2, *item.CraftingCostGP)
		assert.GreaterOrEqual(t, *item.CL, 1)
	}
	for i := 0; i < 500; i++ {
		p := rng.Float64() * 1e6
		assert.Equal(t, p, CraftCost(p)*2)
	}
}

func TestEngine_WithKnowledgeBase(t *testing.T) {
	ef, err := embedding.NewFactory(config.EmbedderConfig{Type: "tfidf", Dimension: 256})
	require.NoError(t, err)
	vf, _, err := vectorstore.NewFactory(config.VectorStoreConfig{Type: "memory"})
	require.NoError(t, err)
	kb := retrieval.NewKnowledgeBase(nil)
	defer kb.Close()
	svc := retrieval.NewService(kb, ingest.NewBuilder(ef, vf))
	_, err = svc.Ingest(context.Background(), []ingest.SourceDocument{{Source: "spells.json", Data: []byte(`[
	  {"name": "Fireball", "level": "sorcerer/wizard 3, magus 3", "school": "evocation [fire]", "description": "A burst of flame."},
	  {"name": "Haste", "level": "bard 3, sorcerer/wizard 3, summoner 2", "school": "transmutation", "description": "Creatures move faster."}
	]`)}})
	require.NoError(t, err)

	e := NewEngine(NewRetrievalLookup(svc, 5, nil))
	cl, aura := e.CasterLevelAndAura(context.Background(), &domain.SpellRef{SpellName: `"Haste" (self)`})
	assert.Equal(t, 3, cl)
	assert.Equal(t, "Faint Transmutation", aura)

	cl, aura = e.CasterLevelAndAura(context.Background(), &domain.SpellRef{Text: "*Fireball*"})
	assert.Equal(t, 5, cl)
	assert.Equal(t, "Faint-plus Evocation", aura)
}
