// Package config loads tuning parameters for the orchestration core from YAML
// files and environment variables. All values have safe defaults so the zero
// configuration path works for local development and tests.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// RetrievalConfig tunes chunking and lookup behavior.
type RetrievalConfig struct {
	// ChunkSize is the chunk window length in runes.
	ChunkSize int `yaml:"chunk_size"`
	// ChunkOverlap is the overlap between consecutive chunks in runes.
	ChunkOverlap int `yaml:"chunk_overlap"`
	// TopK is the default number of chunks returned by a query.
	TopK int `yaml:"top_k"`
	// ContextBudget caps the assembled context length in runes.
	ContextBudget int `yaml:"context_budget"`
}

// MemoryConfig tunes the conversation window.
type MemoryConfig struct {
	// WindowCapacity is the maximum number of messages retained per session.
	WindowCapacity int `yaml:"window_capacity"`
}

// ModelConfig tunes calls against the generative collaborator.
type ModelConfig struct {
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
	// Timeout is the hard wall-clock limit per generative call.
	Timeout time.Duration `yaml:"timeout"`
	// MaxRetries is the number of extra attempts after a transient failure.
	MaxRetries int `yaml:"max_retries"`
	// RetryBackoff is the base backoff between attempts (doubled, capped).
	RetryBackoff time.Duration `yaml:"retry_backoff"`
	// MaxCallsPerTurn bounds model calls within a single turn. 0 = unlimited.
	MaxCallsPerTurn int `yaml:"max_calls_per_turn"`
}

// RouterConfig tunes intent classification.
type RouterConfig struct {
	// CacheEnabled toggles the (input, stage) classification cache.
	CacheEnabled bool `yaml:"cache_enabled"`
}

// Config aggregates all sections.
type Config struct {
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Memory    MemoryConfig    `yaml:"memory"`
	Model     ModelConfig     `yaml:"model"`
	Router    RouterConfig    `yaml:"router"`
}

// Default returns the built-in configuration. Chunk constants follow the
// usual 1000/200 split that balances embedding context limits against
// continuity across chunk boundaries.
func Default() Config {
	return Config{
		Retrieval: RetrievalConfig{
			ChunkSize:     1000,
			ChunkOverlap:  200,
			TopK:          5,
			ContextBudget: 6000,
		},
		Memory: MemoryConfig{WindowCapacity: 20},
		Model: ModelConfig{
			MaxTokens:       2048,
			Temperature:     0.7,
			Timeout:         60 * time.Second,
			MaxRetries:      2,
			RetryBackoff:    500 * time.Millisecond,
			MaxCallsPerTurn: 8,
		},
		Router: RouterConfig{CacheEnabled: true},
	}
}

// Load reads a YAML file and merges it over the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// FromEnv overlays TUTORMESH_* environment variables on top of cfg.
// Unset or malformed variables leave the existing value untouched.
func FromEnv(cfg Config) Config {
	if v, ok := envInt("TUTORMESH_CHUNK_SIZE"); ok {
		cfg.Retrieval.ChunkSize = v
	}
	if v, ok := envInt("TUTORMESH_CHUNK_OVERLAP"); ok {
		cfg.Retrieval.ChunkOverlap = v
	}
	if v, ok := envInt("TUTORMESH_TOP_K"); ok {
		cfg.Retrieval.TopK = v
	}
	if v, ok := envInt("TUTORMESH_WINDOW_CAPACITY"); ok {
		cfg.Memory.WindowCapacity = v
	}
	if v, ok := envInt("TUTORMESH_MAX_RETRIES"); ok {
		cfg.Model.MaxRetries = v
	}
	if v, ok := os.LookupEnv("TUTORMESH_MODEL_TIMEOUT"); ok {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Model.Timeout = d
		}
	}
	return cfg
}

func envInt(key string) (int, bool) {
	v, ok := os.LookupEnv(key)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Validate checks cross-field invariants.
func (c Config) Validate() error {
	if c.Retrieval.ChunkSize <= 0 {
		return fmt.Errorf("retrieval.chunk_size must be positive, got %d", c.Retrieval.ChunkSize)
	}
	if c.Retrieval.ChunkOverlap < 0 || c.Retrieval.ChunkOverlap >= c.Retrieval.ChunkSize {
		return fmt.Errorf("retrieval.chunk_overlap must be in [0, chunk_size), got %d", c.Retrieval.ChunkOverlap)
	}
	if c.Retrieval.TopK <= 0 {
		return fmt.Errorf("retrieval.top_k must be positive, got %d", c.Retrieval.TopK)
	}
	if c.Memory.WindowCapacity <= 0 {
		return fmt.Errorf("memory.window_capacity must be positive, got %d", c.Memory.WindowCapacity)
	}
	if c.Model.MaxRetries < 0 {
		return fmt.Errorf("model.max_retries must be non-negative, got %d", c.Model.MaxRetries)
	}
	if c.Model.Timeout <= 0 {
		return fmt.Errorf("model.timeout must be positive, got %s", c.Model.Timeout)
	}
	return nil
}
