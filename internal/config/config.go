// Package config loads mcsagent configuration from YAML with environment
// overrides for secrets.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"mcsagent/internal/logging"
)

// Config holds all mcsagent configuration.
type Config struct {
	// LLM configures the chat-completion gateway.
	LLM LLMConfig `yaml:"llm"`

	// Embedding configures the embedding engine.
	Embedding EmbeddingConfig `yaml:"embedding"`

	// Store configures the persistent knowledge store.
	Store StoreConfig `yaml:"store"`

	// Retrieval configures chunking and the answer pipeline.
	Retrieval RetrievalConfig `yaml:"retrieval"`

	// Graph configures the orchestration state machine.
	Graph GraphConfig `yaml:"graph"`

	// Logging configures zap output.
	Logging logging.Config `yaml:"logging"`
}

// LLMConfig configures the chat model gateway.
type LLMConfig struct {
	Provider string `yaml:"provider"` // openai (any OpenAI-compatible endpoint), gemini
	APIKey   string `yaml:"api_key"`
	Model    string `yaml:"model"`
	BaseURL  string `yaml:"base_url"`
	Timeout  string `yaml:"timeout"`

	// SupportsImages declares vision capability explicitly. When nil, a
	// keyword match against the model name decides, which is a known gap
	// for unseen model names.
	SupportsImages *bool `yaml:"supports_images"`
}

// EmbeddingConfig configures the embedding engine.
type EmbeddingConfig struct {
	Provider string `yaml:"provider"` // ollama, genai, openai
	Endpoint string `yaml:"endpoint"`
	Model    string `yaml:"model"`
	APIKey   string `yaml:"api_key"`
}

// StoreConfig configures the persistent vector store.
type StoreConfig struct {
	DatabasePath string `yaml:"database_path"`
	Collection   string `yaml:"collection"`
}

// RetrievalConfig configures chunking, indexing, and the answer pipeline.
// RewriteThreshold and the single-rewrite bound are heuristics with no
// documented derivation, so they stay configurable rather than hard-coded.
type RetrievalConfig struct {
	TopK             int     `yaml:"top_k"`             // retrieval depth, default 5
	ContextChunks    int     `yaml:"context_chunks"`    // chunks composed into the answer context, default 4
	RewriteThreshold float64 `yaml:"rewrite_threshold"` // default 0.35
	ChunkSize        int     `yaml:"chunk_size"`        // default 2000
	ChunkOverlap     int     `yaml:"chunk_overlap"`     // default 200
	BatchSize        int     `yaml:"batch_size"`        // insert batch size, default 10
}

// GraphConfig configures the orchestration graph.
type GraphConfig struct {
	MaxSteps       int `yaml:"max_steps"`        // total transition bound, default 20
	WorkerMaxTurns int `yaml:"worker_max_turns"` // tool-loop bound per worker run, default 10
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider: "openai",
			Model:    "gpt-4o-mini",
			Timeout:  "120s",
		},
		Embedding: EmbeddingConfig{
			Provider: "ollama",
			Endpoint: "http://localhost:11434",
			Model:    "embeddinggemma",
		},
		Store: StoreConfig{
			DatabasePath: filepath.Join(".mcsagent", "knowledge.db"),
			Collection:   "mcs_knowledge",
		},
		Retrieval: RetrievalConfig{
			TopK:             5,
			ContextChunks:    4,
			RewriteThreshold: 0.35,
			ChunkSize:        2000,
			ChunkOverlap:     200,
			BatchSize:        10,
		},
		Graph: GraphConfig{
			MaxSteps:       20,
			WorkerMaxTurns: 10,
		},
		Logging: logging.Config{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads config from path, filling unset fields with defaults and then
// applying environment overrides. A missing file yields pure defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnv()
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides secrets from the environment so keys stay out of
// config files.
func (c *Config) applyEnv() {
	if v := os.Getenv("MCSAGENT_API_KEY"); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv("MCSAGENT_BASE_URL"); v != "" {
		c.LLM.BaseURL = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" && c.Embedding.APIKey == "" {
		c.Embedding.APIKey = v
	}
}

func (c *Config) validate() error {
	if _, err := c.LLMTimeout(); err != nil {
		return err
	}
	if c.Retrieval.ChunkSize <= 0 {
		return fmt.Errorf("retrieval.chunk_size must be positive")
	}
	if c.Retrieval.ChunkOverlap >= c.Retrieval.ChunkSize {
		return fmt.Errorf("retrieval.chunk_overlap must be smaller than chunk_size")
	}
	if c.Graph.MaxSteps <= 0 {
		return fmt.Errorf("graph.max_steps must be positive")
	}
	return nil
}

// LLMTimeout parses the LLM timeout string, defaulting to 120s.
func (c *Config) LLMTimeout() (time.Duration, error) {
	if c.LLM.Timeout == "" {
		return 120 * time.Second, nil
	}
	d, err := time.ParseDuration(c.LLM.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid llm.timeout %q: %w", c.LLM.Timeout, err)
	}
	return d, nil
}
