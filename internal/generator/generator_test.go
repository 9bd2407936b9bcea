package generator

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"itemforge/internal/config"
	"itemforge/internal/domain"
	"itemforge/internal/summarizer"
)

type fakeCompleter struct {
	reply        string
	err          error
	system, user string
}

func (f *fakeCompleter) Complete(_ context.Context, system, user string) (string, error) {
	f.system, f.user = system, user
	return f.reply, f.err
}

var passages = []domain.SearchResult{
	{Text: "Creating magic items costs half the price.", Metadata: domain.Metadata{
		"source": "https://aonprd.com/Rules.aspx?ID=401", "section": "Magic Item Creation", "type": "paragraph",
		"text": "Creating magic items costs half the price. It takes one day per 1,000 gp. The weather is nice. Spells must be known.",
	}},
	{Text: `[{"Effect":"Ability bonus"}]`, Metadata: domain.Metadata{"source": "pricing.json", "section": "Pricing", "type": "table"}},
}

func TestDraft_BuildsPromptAndParses(t *testing.T) {
	fc := &fakeCompleter{reply: "```json\n{\"name\": \"Belt of the Cat\", \"other_effects\": \"+2 dexterity bonus\", \"rarity\": \"Raro\"}\n```"}
	g := NewDraftGenerator(fc, WithSummarizer(summarizer.LeadSummarizer{}, 2))

	d, err := g.Draft(context.Background(), "a belt for a rogue", passages)
	require.NoError(t, err)
	assert.Equal(t, "Belt of the Cat", d.Name)
	assert.Equal(t, []string{"+2 dexterity bonus"}, d.OtherEffects)
	assert.Equal(t, "Paizo PF1e", d.SourceType)

	assert.Equal(t, "a belt for a rogue", fc.user)
	assert.Contains(t, fc.system, "Relevant Pathfinder 1E rules and information:\n")
	assert.Contains(t, fc.system, "- Source: https://aonprd.com/Rules.aspx?ID=401, Section: Magic Item Creation\n"+
		"  Content: Creating magic items costs half the price. It takes one day per 1,000 gp.\n")
	assert.NotContains(t, fc.system, "weather")
	assert.Contains(t, fc.system, `  Content: [{"Effect":"Ability bonus"}]`)
	assert.Contains(t, fc.system, "Do NOT include specific GP costs, CL, or Aura")
	assert.True(t, strings.HasSuffix(fc.system, "playtest_note."))
}

func TestDraft_NoContext(t *testing.T) {
	fc := &fakeCompleter{reply: `{"name": "Ring"}`}
	_, err := NewDraftGenerator(fc).Draft(context.Background(), "ring", nil)
	require.NoError(t, err)
	assert.NotContains(t, fc.system, "Relevant Pathfinder")
}

func TestDraft_Failures(t *testing.T) {
	cases := map[string]*fakeCompleter{
		"completer error": {err: errors.New("timeout")},
		"prose":           {reply: "I cannot help with that."},
		"broken json":     {reply: `{"name": "Ring"`},
		"unknown keys":    {reply: `{"foo": 1}`},
	}
	for name, fc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewDraftGenerator(fc).Draft(context.Background(), "ring", nil)
			assert.ErrorIs(t, err, domain.ErrNoDraft)
		})
	}
	_, err := NewDraftGenerator(&fakeCompleter{}).Draft(context.Background(), "  ", nil)
	assert.ErrorIs(t, err, domain.ErrEmptyQuery)
}

func TestParseDraft(t *testing.T) {
	d, err := ParseDraft("Here you go:\n{\"name\": \"Cloak\", \"primary_spell_effect\": {\"spell_name\": \"Invisibility\"}, \"CL\": 3}\nEnjoy!")
	require.NoError(t, err)
	assert.Equal(t, "Cloak", d.Name)
	require.NotNil(t, d.PrimarySpellEffect)
	assert.Equal(t, "Invisibility", d.PrimarySpellEffect.SpellName)

	d, err = ParseDraft("```\n{\"name\": \"Boots\", \"primary_spell_effect\": null}\n```")
	require.NoError(t, err)
	assert.Equal(t, "Boots", d.Name)
	assert.Nil(t, d.PrimarySpellEffect)
}

func TestNew(t *testing.T) {
	g, err := New(context.Background(), config.GeneratorConfig{Type: "none"}, nil, nil)
	require.NoError(t, err)
	_, err = g.Draft(context.Background(), "ring", nil)
	assert.ErrorIs(t, err, domain.ErrGeneratorUnavailable)

	_, err = New(context.Background(), config.GeneratorConfig{Type: "openai"}, nil, nil)
	assert.Error(t, err)

	_, err = New(context.Background(), config.GeneratorConfig{Type: "claude"}, nil, nil)
	assert.Error(t, err)

	g, err = New(context.Background(), config.GeneratorConfig{
		Type:   "openai",
		OpenAI: &config.OpenAIConfig{BaseURL: "http://localhost:11434/v1", Model: "llama3"},
	}, summarizer.NewFrequencySummarizer(), nil)
	require.NoError(t, err)
	assert.IsType(t, &DraftGenerator{}, g)
}
