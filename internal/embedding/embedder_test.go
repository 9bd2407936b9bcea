package embedding

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"itemforge/internal/config"
)

func TestNewFactory_TFIDFReturnsFreshInstances(t *testing.T) {
	f, err := NewFactory(config.EmbedderConfig{Type: "tfidf", Dimension: 32})
	require.NoError(t, err)

	a, err := f(context.Background())
	require.NoError(t, err)
	b, err := f(context.Background())
	require.NoError(t, err)

	assert.NotSame(t, a, b)
	assert.Equal(t, 32, a.Dimension())
	assert.Implements(t, (*Preparer)(nil), a)
	assert.Implements(t, (*Stateful)(nil), a)
}

func TestNewFactory_Errors(t *testing.T) {
	_, err := NewFactory(config.EmbedderConfig{Type: "word2vec"})
	assert.Error(t, err)
	_, err = NewFactory(config.EmbedderConfig{Type: "openai"})
	assert.Error(t, err)
	_, err = NewFactory(config.EmbedderConfig{Type: "genai"})
	assert.Error(t, err)
}

func TestNewFactory_OpenAIAgainstLocalServer(t *testing.T) {
	f, err := NewFactory(config.EmbedderConfig{
		Type:      "openai",
		Dimension: 768,
		OpenAI:    &config.OpenAIConfig{BaseURL: "http://localhost:11434/v1", Model: "nomic-embed-text"},
	})
	require.NoError(t, err)
	e, err := f(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 768, e.Dimension())
}
