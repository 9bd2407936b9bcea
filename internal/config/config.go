package config

import (
	"errors"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// OpenAIConfig holds connection details for an OpenAI-compatible endpoint
// (OpenAI, Ollama, vLLM, ...).
type OpenAIConfig struct {
	BaseURL           string  `yaml:"base_url"`
	APIKeyEnv         string  `yaml:"api_key_env"`
	Model             string  `yaml:"model"`
	TimeoutSecs       int     `yaml:"timeout_secs"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

// GenAIConfig holds connection details for the Google GenAI backend.
type GenAIConfig struct {
	APIKeyEnv string `yaml:"api_key_env"`
	Model     string `yaml:"model"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type      string        `yaml:"type"`
	Dimension int           `yaml:"dimension"`
	BatchSize int           `yaml:"batch_size"`
	OpenAI    *OpenAIConfig `yaml:"openai,omitempty"`
	GenAI     *GenAIConfig  `yaml:"genai,omitempty"`
}

// VectorStoreConfig selects and configures the vector index implementation.
type VectorStoreConfig struct {
	Type   string        `yaml:"type"`
	Metric string        `yaml:"metric"`
	Qdrant *QdrantConfig `yaml:"qdrant,omitempty"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	URL         string `yaml:"url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Collection  string `yaml:"collection"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// KnowledgeBaseConfig locates the scraped sources and the persisted snapshot.
type KnowledgeBaseConfig struct {
	Sources          []string `yaml:"sources"`
	DataDir          string   `yaml:"data_dir"`
	BuildConcurrency int      `yaml:"build_concurrency"`
}

// RetrievalConfig bounds queries against the knowledge base.
type RetrievalConfig struct {
	TopK        int `yaml:"top_k"`
	TimeoutSecs int `yaml:"timeout_secs"`
}

// GeneratorConfig selects the language model used to draft items.
type GeneratorConfig struct {
	Type             string        `yaml:"type"`
	Temperature      float64       `yaml:"temperature"`
	ContextSentences int           `yaml:"context_sentences"`
	OpenAI           *OpenAIConfig `yaml:"openai,omitempty"`
	GenAI            *GenAIConfig  `yaml:"genai,omitempty"`
}

// PricingConfig controls derivation output.
type PricingConfig struct {
	Locale string `yaml:"locale"`
}

// SummarizerConfig selects and configures the summarizer.
type SummarizerConfig struct {
	Type         string `yaml:"type"`
	MaxSentences int    `yaml:"max_sentences"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr           string   `yaml:"addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	TimeoutSecs    int      `yaml:"timeout_secs"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Embedder      EmbedderConfig      `yaml:"embedder"`
	VectorStore   VectorStoreConfig   `yaml:"vector_store"`
	KnowledgeBase KnowledgeBaseConfig `yaml:"knowledge_base"`
	Retrieval     RetrievalConfig     `yaml:"retrieval"`
	Generator     GeneratorConfig     `yaml:"generator"`
	Pricing       PricingConfig       `yaml:"pricing"`
	Summarizer    SummarizerConfig    `yaml:"summarizer"`
	Server        ServerConfig        `yaml:"server"`
}

// RetrievalTimeout returns the bounded wait for a retrieval call.
func (c *AppConfig) RetrievalTimeout() time.Duration {
	return time.Duration(c.Retrieval.TimeoutSecs) * time.Second
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := defaultConfig()
			return cfg, nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyConfigDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/itemforge/config.yaml.
// If neither exists, it writes defaults to ~/.config/itemforge/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "itemforge", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{
		Embedder:      EmbedderConfig{Type: "tfidf"},
		VectorStore:   VectorStoreConfig{Type: "memory", Metric: "cosine"},
		KnowledgeBase: KnowledgeBaseConfig{Sources: []string{"data/*.json"}},
		Generator:     GeneratorConfig{Type: "none"},
		Pricing:       PricingConfig{Locale: "en"},
		Summarizer:    SummarizerConfig{Type: "frequency"},
	}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = "tfidf"
	}
	if cfg.Embedder.Dimension == 0 && cfg.Embedder.Type == "tfidf" {
		cfg.Embedder.Dimension = 384
	}
	if cfg.Embedder.BatchSize == 0 {
		cfg.Embedder.BatchSize = 32
	}
	if cfg.Embedder.Type == "openai" {
		if cfg.Embedder.OpenAI == nil {
			cfg.Embedder.OpenAI = &OpenAIConfig{}
		}
		applyOpenAIDefaults(cfg.Embedder.OpenAI, "text-embedding-3-small")
	}
	if cfg.Embedder.Type == "genai" {
		if cfg.Embedder.GenAI == nil {
			cfg.Embedder.GenAI = &GenAIConfig{}
		}
		applyGenAIDefaults(cfg.Embedder.GenAI, "gemini-embedding-001")
	}
	if cfg.VectorStore.Type == "" {
		cfg.VectorStore.Type = "memory"
	}
	if cfg.VectorStore.Metric == "" {
		cfg.VectorStore.Metric = "cosine"
	}
	if cfg.VectorStore.Type == "qdrant" {
		if cfg.VectorStore.Qdrant == nil {
			cfg.VectorStore.Qdrant = &QdrantConfig{}
		}
		q := cfg.VectorStore.Qdrant
		if q.URL == "" {
			q.URL = "http://localhost:6333"
		}
		if q.APIKeyEnv == "" {
			q.APIKeyEnv = "QDRANT_API_KEY"
		}
		if q.Collection == "" {
			q.Collection = "pathfinder_kb"
		}
		if q.TimeoutSecs == 0 {
			q.TimeoutSecs = 15
		}
	}
	if cfg.KnowledgeBase.DataDir == "" {
		cfg.KnowledgeBase.DataDir = "kb_vectors"
	}
	if cfg.KnowledgeBase.BuildConcurrency == 0 {
		cfg.KnowledgeBase.BuildConcurrency = 4
	}
	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 5
	}
	if cfg.Retrieval.TimeoutSecs == 0 {
		cfg.Retrieval.TimeoutSecs = 10
	}
	if cfg.Generator.Type == "" {
		cfg.Generator.Type = "none"
	}
	if cfg.Generator.ContextSentences == 0 {
		cfg.Generator.ContextSentences = 4
	}
	if cfg.Generator.Type == "openai" {
		if cfg.Generator.OpenAI == nil {
			cfg.Generator.OpenAI = &OpenAIConfig{}
		}
		applyOpenAIDefaults(cfg.Generator.OpenAI, "gpt-4o-mini")
	}
	if cfg.Generator.Type == "genai" {
		if cfg.Generator.GenAI == nil {
			cfg.Generator.GenAI = &GenAIConfig{}
		}
		applyGenAIDefaults(cfg.Generator.GenAI, "gemini-2.5-flash")
	}
	if cfg.Pricing.Locale == "" {
		cfg.Pricing.Locale = "en"
	}
	if cfg.Summarizer.Type == "" {
		cfg.Summarizer.Type = "frequency"
	}
	if cfg.Summarizer.MaxSentences == 0 {
		cfg.Summarizer.MaxSentences = 5
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8080"
	}
	if len(cfg.Server.AllowedOrigins) == 0 {
		cfg.Server.AllowedOrigins = []string{"*"}
	}
	if cfg.Server.TimeoutSecs == 0 {
		cfg.Server.TimeoutSecs = 120
	}
}

func applyOpenAIDefaults(c *OpenAIConfig, model string) {
	if c.BaseURL == "" {
		c.BaseURL = "https://api.openai.com/v1"
	}
	if c.APIKeyEnv == "" {
		c.APIKeyEnv = "OPENAI_API_KEY"
	}
	if c.Model == "" {
		c.Model = model
	}
	if c.TimeoutSecs == 0 {
		c.TimeoutSecs = 30
	}
}

func applyGenAIDefaults(c *GenAIConfig, model string) {
	if c.APIKeyEnv == "" {
		c.APIKeyEnv = "GEMINI_API_KEY"
	}
	if c.Model == "" {
		c.Model = model
	}
}
