// Package genai embeds text with Google's Gemini embedding models.
package genai

import (
	"context"
	"fmt"
	"os"

	"google.golang.org/genai"

	"itemforge/internal/domain"
)

const (
	// DefaultModel is the Gemini embedding model used when none is configured.
	DefaultModel = "gemini-embedding-001"

	taskQuery    = "RETRIEVAL_QUERY"
	taskDocument = "RETRIEVAL_DOCUMENT"
	maxBatch     = 100
)

// embedAPI is the subset of *genai.Models used here.
type embedAPI interface {
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
}

// Engine implements domain.Embedder on top of the GenAI SDK.
type Engine struct {
	models    embedAPI
	model     string
	dimension int
}

// Config configures the GenAI embedder.
type Config struct {
	APIKeyEnv string
	Model     string
	Dimension int
}

// NewEngine creates a GenAI embedding engine.
func NewEngine(ctx context.Context, cfg Config) (*Engine, error) {
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("%w: missing API key in env %s", domain.ErrEmbedderUnavailable, cfg.APIKeyEnv)
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  key,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return newEngine(client.Models, cfg), nil
}

func newEngine(models embedAPI, cfg Config) *Engine {
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	dim := cfg.Dimension
	if dim <= 0 {
		dim = 768
	}
	return &Engine{models: models, model: model, dimension: dim}
}

func (e *Engine) Name() string   { return "genai:" + e.model }
func (e *Engine) Dimension() int { return e.dimension }

// Embed embeds a query.
func (e *Engine) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := e.embed(ctx, []string{text}, taskQuery)
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// EmbedBatch embeds knowledge base documents, in chunks of at most 100.
func (e *Engine) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += maxBatch {
		end := min(start+maxBatch, len(texts))
		vecs, err := e.embed(ctx, texts[start:end], taskDocument)
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (e *Engine) embed(ctx context.Context, texts []string, task string) ([][]float32, error) {
	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}
	dim := int32(e.dimension)
	resp, err := e.models.EmbedContent(ctx, e.model, contents, &genai.EmbedContentConfig{
		TaskType:             task,
		OutputDimensionality: &dim,
	})
	if err != nil {
		return nil, fmt.Errorf("genai embed: %w", err)
	}
	if resp == nil || len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("genai embed: expected %d embeddings", len(texts))
	}
	out := make([][]float32, len(texts))
	for i, emb := range resp.Embeddings {
		if emb == nil || len(emb.Values) != e.dimension {
			return nil, fmt.Errorf("%w: embedding %d", domain.ErrDimensionMismatch, i)
		}
		out[i] = emb.Values
	}
	return out, nil
}
