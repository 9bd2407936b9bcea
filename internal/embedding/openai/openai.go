// Package openai embeds text through an OpenAI-compatible /embeddings
// endpoint. Ollama's native response shape is accepted as well.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"itemforge/internal/domain"
)

// Client is an OpenAI-compatible embeddings client implementing domain.Embedder.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	client     *http.Client
	limiter    *rate.Limiter
	maxRetries int

	mu        sync.Mutex
	dimension int
}

// Config configures the OpenAI-compatible embeddings client.
type Config struct {
	BaseURL   string
	APIKeyEnv string
	Model     string
	Timeout   time.Duration
	// Dimension, when set, is enforced on every response.
	Dimension int
	// RequestsPerSecond throttles outgoing calls; 0 disables throttling.
	RequestsPerSecond float64
	HTTPClient        *http.Client
}

// NewClient creates a new embeddings client using the provided configuration.
// A missing key is only an error against the public OpenAI endpoint; local
// servers such as Ollama accept anonymous requests.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com/v1"
	}
	key := ""
	if cfg.APIKeyEnv != "" {
		key = os.Getenv(cfg.APIKeyEnv)
	}
	if key == "" && cfg.BaseURL == "https://api.openai.com/v1" {
		return nil, fmt.Errorf("%w: missing API key in env %s", domain.ErrEmbedderUnavailable, cfg.APIKeyEnv)
	}
	if cfg.Model == "" {
		cfg.Model = "text-embedding-3-small"
	}
	t := cfg.Timeout
	if t == 0 {
		t = 30 * time.Second
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: t}
	}
	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     key,
		model:      cfg.Model,
		client:     hc,
		limiter:    rate.NewLimiter(limit, 1),
		maxRetries: 5,
		dimension:  cfg.Dimension,
	}, nil
}

// Name returns the identifier of this embedder implementation.
func (c *Client) Name() string { return "openai:" + c.model }

// Dimension returns the dimensionality of the produced embedding vectors,
// or 0 until the first response when it was not configured.
func (c *Client) Dimension() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dimension
}

// Embed returns an embedding vector for the given text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// EmbedBatch embeds texts in a single request. Servers that only return a
// single embedding per call are handled by falling back to one request per text.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	vectors, err := c.do(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(texts) {
		if len(texts) == 1 {
			return nil, errors.New("no embedding returned")
		}
		vectors = make([][]float32, len(texts))
		for i, t := range texts {
			v, err := c.do(ctx, []string{t})
			if err != nil {
				return nil, err
			}
			if len(v) != 1 {
				return nil, errors.New("no embedding returned")
			}
			vectors[i] = v[0]
		}
	}
	for _, v := range vectors {
		if err := c.checkDimension(len(v)); err != nil {
			return nil, err
		}
	}
	return vectors, nil
}

func (c *Client) checkDimension(n int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dimension == 0 {
		c.dimension = n
		return nil
	}
	if n != c.dimension {
		return fmt.Errorf("%w: got %d, want %d", domain.ErrDimensionMismatch, n, c.dimension)
	}
	return nil
}

type reqBody struct {
	Input  any    `json:"input,omitempty"`
	Prompt string `json:"prompt,omitempty"`
	Model  string `json:"model"`
}

func (c *Client) do(ctx context.Context, texts []string) ([][]float32, error) {
	body := reqBody{Model: c.model}
	if len(texts) == 1 {
		body.Input = texts[0]
		body.Prompt = texts[0]
	} else {
		body.Input = texts
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	url := fmt.Sprintf("%s/embeddings", c.baseURL)

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = err
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if err := sleep(ctx, retryDelay(attempt)); err != nil {
				return nil, err
			}
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			_ = resp.Body.Close()
			lastErr = fmt.Errorf("openai embeddings failed: %s", resp.Status)
			delay := retryDelay(attempt)
			// Respect Retry-After if provided
			if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil {
				delay = time.Duration(secs) * time.Second
			}
			if attempt == c.maxRetries {
				break
			}
			if err := sleep(ctx, delay); err != nil {
				return nil, err
			}
			continue
		}

		if resp.StatusCode >= 300 {
			_ = resp.Body.Close()
			return nil, fmt.Errorf("openai embeddings failed: %s", resp.Status)
		}

		payload, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			lastErr = err
			if err := sleep(ctx, retryDelay(attempt)); err != nil {
				return nil, err
			}
			continue
		}
		if vectors := decode(payload); len(vectors) > 0 {
			return vectors, nil
		}
		lastErr = errors.New("no embedding returned")
		if err := sleep(ctx, retryDelay(attempt)); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: %v", domain.ErrEmbedderUnavailable, lastErr)
}

func decode(payload []byte) [][]float32 {
	// Try OpenAI-compatible response first
	var openaiOut struct {
		Data []struct {
			Index     int       `json:"index"`
			Embedding []float32 `json:"embedding"`
		} `json:"data"`
	}
	if err := json.Unmarshal(payload, &openaiOut); err == nil && len(openaiOut.Data) > 0 {
		out := make([][]float32, len(openaiOut.Data))
		for i, d := range openaiOut.Data {
			idx := d.Index
			if idx < 0 || idx >= len(out) || out[idx] != nil {
				idx = i
			}
			out[idx] = d.Embedding
		}
		for _, v := range out {
			if len(v) == 0 {
				return nil
			}
		}
		return out
	}
	// Fallback to Ollama-native shape: { "embedding": [...] }
	var ollamaOut struct {
		Embedding []float32 `json:"embedding"`
	}
	if err := json.Unmarshal(payload, &ollamaOut); err == nil && len(ollamaOut.Embedding) > 0 {
		return [][]float32{ollamaOut.Embedding}
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func retryDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	base := 200 * time.Millisecond
	// exponential backoff capped at 5s
	d := base << attempt
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	return d
}
