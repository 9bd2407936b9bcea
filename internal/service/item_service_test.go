package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"itemforge/internal/domain"
	"itemforge/internal/pricing"
	"itemforge/internal/retrieval"
)

type fakeSearcher struct {
	resp  retrieval.Response
	err   error
	calls []string
}

func (f *fakeSearcher) Query(_ context.Context, text string, k int) (retrieval.Response, error) {
	f.calls = append(f.calls, fmt.Sprintf("%s/%d", text, k))
	return f.resp, f.err
}

type fakeGenerator struct {
	draft   *domain.Draft
	err     error
	context []domain.SearchResult
}

func (f *fakeGenerator) Draft(_ context.Context, _ string, passages []domain.SearchResult) (*domain.Draft, error) {
	f.context = passages
	return f.draft, f.err
}

func belt() *domain.Draft {
	return &domain.Draft{
		Name:         "Belt of the Cat",
		Type:         "Wondrous Item",
		Slot:         "Belt",
		OtherEffects: []string{"+2 dexterity bonus"},
		Rarity:       "Non comune",
		SourceType:   "Paizo PF1e",
		Activation:   "continuous",
		Duration:     "permanent",
		PlaytestNote: "Standard Big Six item.",
	}
}

var ready = retrieval.Response{Status: retrieval.StatusReady, Results: []domain.SearchResult{
	{ID: 1, Text: "belts", Metadata: domain.Metadata{"name": "Belt", "cl": 8.0, "price": "4,000 gp"}},
	{ID: 2, Text: "cloaks", Metadata: domain.Metadata{"name": "Cloak", "cl": 3.0, "price": "1,000 gp"}},
}}

func TestGenerate(t *testing.T) {
	fs := &fakeSearcher{resp: ready}
	fg := &fakeGenerator{draft: belt()}
	svc := New(fs, fg, pricing.NewEngine(nil), nil, WithContextSize(3))

	out, err := svc.Generate(context.Background(), "a belt for a rogue")
	require.NoError(t, err)

	_, err = uuid.Parse(out.RequestID)
	assert.NoError(t, err)
	assert.Equal(t, []string{"a belt for a rogue/3"}, fs.calls)
	assert.Equal(t, retrieval.StatusReady, out.ContextStatus)
	assert.Len(t, fg.context, 2)
	assert.True(t, out.Item.IsValid, out.Item.ValidationErrors)
	assert.Equal(t, 4000.0, *out.Item.MarketPriceGP)
	assert.Equal(t, 2000.0, *out.Item.CraftingCostGP)
	assert.Equal(t, 1, *out.Item.CL)
	assert.Equal(t, domain.DefaultAura, out.Item.Aura)
}

func TestGenerate_WithoutContext(t *testing.T) {
	fs := &fakeSearcher{resp: retrieval.Response{Status: retrieval.StatusUninitialized}}
	fg := &fakeGenerator{draft: belt()}
	out, err := New(fs, fg, pricing.NewEngine(nil), nil).Generate(context.Background(), "belt")
	require.NoError(t, err)
	assert.Equal(t, retrieval.StatusUninitialized, out.ContextStatus)
	assert.Nil(t, fg.context)
	assert.Empty(t, out.Context)
}

func TestGenerate_Errors(t *testing.T) {
	fs := &fakeSearcher{resp: ready}

	_, err := New(fs, &fakeGenerator{}, pricing.NewEngine(nil), nil).Generate(context.Background(), " ")
	assert.ErrorIs(t, err, domain.ErrEmptyQuery)
	assert.Empty(t, fs.calls, "blank requests never reach retrieval")

	_, err = New(fs, &fakeGenerator{err: fmt.Errorf("%w: bad json", domain.ErrNoDraft)}, pricing.NewEngine(nil), nil).
		Generate(context.Background(), "belt")
	assert.ErrorIs(t, err, domain.ErrNoDraft)

	_, err = New(fs, nil, pricing.NewEngine(nil), nil).Generate(context.Background(), "belt")
	assert.ErrorIs(t, err, domain.ErrGeneratorUnavailable)

	_, err = New(&fakeSearcher{err: context.Canceled}, &fakeGenerator{draft: belt()}, pricing.NewEngine(nil), nil).
		Generate(context.Background(), "belt")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSearch_Rerank(t *testing.T) {
	svc := New(&fakeSearcher{resp: ready}, nil, pricing.NewEngine(nil), nil)

	resp, err := svc.Search(context.Background(), "belt", 2, retrieval.LowCost)
	require.NoError(t, err)
	assert.Equal(t, "Cloak", resp.Results[0].Metadata.String("name"))

	resp, err = svc.Search(context.Background(), "belt", 2)
	require.NoError(t, err)
	assert.Equal(t, "Belt", resp.Results[0].Metadata.String("name"))
}

func TestProcess_InvalidDraft(t *testing.T) {
	svc := New(&fakeSearcher{}, nil, pricing.NewEngine(nil), nil)
	item := svc.Process(context.Background(), domain.Draft{Slot: "Invalid Slot", SourceType: "3PP"})
	assert.False(t, item.IsValid)
	assert.Contains(t, item.ValidationErrors, `Invalid slot: "Invalid Slot".`)
	assert.Contains(t, item.ValidationErrors, "Item uses 3rd-party content, which is not allowed.")

	fields := item.Fields()
	assert.Equal(t, domain.DefaultName, fields["name"])
	assert.Equal(t, 0.0, fields["market_price_gp"])
}
