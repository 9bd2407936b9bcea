package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"itemforge/internal/domain"
	"itemforge/internal/retrieval"
	"itemforge/internal/service"
)

type fakePort struct {
	resp    retrieval.Response
	out     *service.Outcome
	err     error
	queries []string
}

func (f *fakePort) Search(_ context.Context, q string, _ int, _ ...retrieval.Criterion) (retrieval.Response, error) {
	f.queries = append(f.queries, q)
	return f.resp, f.err
}

func (f *fakePort) Generate(_ context.Context, q string) (*service.Outcome, error) {
	f.queries = append(f.queries, q)
	return f.out, f.err
}

func typed(t *testing.T, m Model, text string) Model {
	t.Helper()
	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 30})
	m = next.(Model)
	m.input.SetValue(text)
	return m
}

// press sends a key and feeds the resulting command's message back in.
func press(t *testing.T, m Model, key tea.KeyMsg) Model {
	t.Helper()
	next, cmd := m.Update(key)
	m = next.(Model)
	require.True(t, m.busy)
	require.NotNil(t, cmd)
	next, _ = m.Update(cmd())
	return next.(Model)
}

func TestSearch(t *testing.T) {
	port := &fakePort{resp: retrieval.Response{Status: retrieval.StatusReady, Results: []domain.SearchResult{
		{Text: "A bright flash. A burst of flame explodes.", Metadata: domain.Metadata{"name": "Fireball", "source": "spells.json"}, Score: 0.8},
		{Text: "Grace.", Metadata: domain.Metadata{"section": "Cat's Grace"}, Score: 0.2},
	}}}
	m := typed(t, New(context.Background(), port, "5 records"), "flame burst")
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})

	assert.False(t, m.busy)
	assert.Equal(t, []string{"flame burst"}, port.queries)
	assert.Equal(t, `Results for "flame burst"`, m.status)
	view := m.renderCurrent()
	assert.Contains(t, view, "Result 1/2  Fireball  score=0.800")
	assert.Contains(t, view, "spells.json")

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyDown})
	assert.Contains(t, next.(Model).renderCurrent(), "Result 2/2  Cat's Grace")
	next, _ = next.(Model).Update(tea.KeyMsg{Type: tea.KeyDown})
	assert.Contains(t, next.(Model).renderCurrent(), "Result 1/2")
}

func TestSearch_NotReady(t *testing.T) {
	port := &fakePort{resp: retrieval.Response{Status: retrieval.StatusUninitialized}}
	m := press(t, typed(t, New(context.Background(), port, ""), "belt"), tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, "Knowledge base uninitialized", m.status)
	assert.Equal(t, "No results yet.", m.renderCurrent())
}

func TestBlankInputDoesNothing(t *testing.T) {
	port := &fakePort{}
	m := typed(t, New(context.Background(), port, ""), "   ")
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.False(t, next.(Model).busy)
	assert.Empty(t, port.queries)
}

func TestGenerate(t *testing.T) {
	cl := 3
	price, craft := 2160.0, 1080.0
	item := domain.ValidatedItem{PricedItem: domain.PricedItem{
		Draft:          domain.Draft{Name: "Boots of Haste", Type: "Wondrous Item", Slot: "Feet"},
		CL:             &cl,
		Aura:           "Faint Transmutation",
		MarketPriceGP:  &price,
		CraftingCostGP: &craft,
	}, ValidationErrors: []string{"Playtest note is missing."}}
	port := &fakePort{out: &service.Outcome{RequestID: "r1", ContextStatus: retrieval.StatusReady, Item: item}}

	m := press(t, typed(t, New(context.Background(), port, ""), "fast boots"), tea.KeyMsg{Type: tea.KeyCtrlG})
	view := m.renderCurrent()
	assert.Contains(t, view, "Boots of Haste")
	assert.Contains(t, view, "**Aura/Scuola:** Minore Trasmutazione")
	assert.Contains(t, view, "Checklist:\n- Playtest note is missing.")
	assert.True(t, strings.HasPrefix(m.status, "Generated from"))

	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, "No results yet.", next.(Model).renderCurrent())
}

func TestGenerate_Failure(t *testing.T) {
	port := &fakePort{err: domain.ErrGeneratorUnavailable}
	m := press(t, typed(t, New(context.Background(), port, ""), "boots"), tea.KeyMsg{Type: tea.KeyCtrlG})
	assert.Equal(t, "Generation failed: "+domain.ErrGeneratorUnavailable.Error(), m.status)

	port.err = errors.New("boom")
	m = press(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, "Error: boom", m.status)
}

func TestHighlightBestSentence(t *testing.T) {
	text := "The ring glows. It grants fire resistance. Nothing else."
	out := highlightBestSentence(text, "fire resistance")
	assert.Contains(t, out, "The ring glows.")
	assert.Contains(t, out, "It grants fire resistance.")
	assert.Contains(t, out, "Nothing else.")

	assert.Equal(t, "", highlightBestSentence("", "x"))
	assert.Equal(t, "A. B.", highlightBestSentence("A. B.", ""))
}
