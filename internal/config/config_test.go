package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "tfidf", cfg.Embedder.Type)
	assert.Equal(t, 384, cfg.Embedder.Dimension)
	assert.Equal(t, "memory", cfg.VectorStore.Type)
	assert.Equal(t, "cosine", cfg.VectorStore.Metric)
	assert.Equal(t, 5, cfg.Retrieval.TopK)
	assert.Equal(t, 10*time.Second, cfg.RetrievalTimeout())
	assert.Equal(t, "none", cfg.Generator.Type)
}

func TestLoad_AppliesBackendDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
embedder:
  type: openai
vector_store:
  type: qdrant
  metric: euclidean
generator:
  type: genai
pricing:
  locale: it
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	require.NotNil(t, cfg.Embedder.OpenAI)
	assert.Equal(t, "https://api.openai.com/v1", cfg.Embedder.OpenAI.BaseURL)
	assert.Equal(t, "text-embedding-3-small", cfg.Embedder.OpenAI.Model)
	require.NotNil(t, cfg.VectorStore.Qdrant)
	assert.Equal(t, "http://localhost:6333", cfg.VectorStore.Qdrant.URL)
	assert.Equal(t, "euclidean", cfg.VectorStore.Metric)
	require.NotNil(t, cfg.Generator.GenAI)
	assert.Equal(t, "gemini-2.5-flash", cfg.Generator.GenAI.Model)
	assert.Equal(t, "it", cfg.Pricing.Locale)
}

func TestSaveThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := defaultConfig()
	cfg.Retrieval.TopK = 8
	require.NoError(t, Save(path, cfg))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 8, got.Retrieval.TopK)
	assert.Equal(t, cfg.KnowledgeBase.Sources, got.KnowledgeBase.Sources)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("embedder: [unclosed"), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}
