// Package config loads the service configuration from clausecheck.yaml
// with environment overrides on top.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"clausecheck/internal/embedding"
	"clausecheck/internal/llm"
)

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Addr string `yaml:"addr"`

	// RateLimitPerSecond is the per-client token refill rate; RateBurst
	// the bucket size. Zero disables rate limiting.
	RateLimitPerSecond float64 `yaml:"rate_limit_per_second"`
	RateBurst          int     `yaml:"rate_burst"`

	// InlineMode runs analyses synchronously inside the request instead
	// of a background goroutine. Used in tests and one-shot setups.
	InlineMode bool `yaml:"inline_mode"`
}

// LLMConfig configures the completion backend.
type LLMConfig struct {
	APIKey    string `yaml:"api_key"`
	BaseURL   string `yaml:"base_url"`
	Model     string `yaml:"model"`
	Timeout   string `yaml:"timeout"`
	MaxTokens int    `yaml:"max_tokens"`
}

// LoggingConfig configures structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Config is the root configuration.
type Config struct {
	Server       ServerConfig     `yaml:"server"`
	DatabasePath string           `yaml:"database_path"`
	PlaybookSeed string           `yaml:"playbook_seed"`
	WatchSeed    bool             `yaml:"watch_seed"`
	LLM          LLMConfig        `yaml:"llm"`
	Embedding    embedding.Config `yaml:"embedding"`
	CostRates    llm.CostRates    `yaml:"cost_rates"`
	Logging      LoggingConfig    `yaml:"logging"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr:               ":8000",
			RateLimitPerSecond: 10,
			RateBurst:          20,
		},
		DatabasePath: "data/clausecheck.db",
		PlaybookSeed: "data/standard_terms_playbook.md",
		LLM: LLMConfig{
			Model:     "claude-sonnet-4-5-20250514",
			Timeout:   "2m",
			MaxTokens: 256,
		},
		Embedding: embedding.Config{
			// No provider by default; retrieval uses keyword fallback.
			GenAIModel:     "gemini-embedding-001",
			OllamaEndpoint: "http://localhost:11434",
			OllamaModel:    "embeddinggemma",
		},
		CostRates: llm.DefaultCostRates(),
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults; environment overrides apply either way.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		c.LLM.APIKey = key
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		c.Embedding.GenAIAPIKey = key
		if c.Embedding.Provider == "" {
			c.Embedding.Provider = "genai"
		}
	}
	if path := os.Getenv("CLAUSECHECK_DB"); path != "" {
		c.DatabasePath = path
	}
	if path := os.Getenv("CLAUSECHECK_PLAYBOOK"); path != "" {
		c.PlaybookSeed = path
	}
	if addr := os.Getenv("CLAUSECHECK_ADDR"); addr != "" {
		c.Server.Addr = addr
	}
	if level := os.Getenv("CLAUSECHECK_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
}

// LLMTimeout returns the completion timeout as a duration.
func (c *Config) LLMTimeout() time.Duration {
	d, err := time.ParseDuration(c.LLM.Timeout)
	if err != nil {
		return 2 * time.Minute
	}
	return d
}
