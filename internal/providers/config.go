package providers

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Completion provider names.
const (
	Gemini    = "gemini"
	Anthropic = "anthropic"
)

// Config selects and parameterizes the embedding and completion providers.
// Embeddings always come from Gemini; completions from Provider.
type Config struct {
	Provider        string  `toml:"provider"`
	GeminiAPIKey    string  `toml:"gemini_api_key"`
	AnthropicAPIKey string  `toml:"anthropic_api_key"`
	EmbeddingModel  string  `toml:"embedding_model"`
	Dimensions      int     `toml:"dimensions"`
	CompletionModel string  `toml:"completion_model"`
	AnthropicModel  string  `toml:"anthropic_model"`
	Temperature     float64 `toml:"temperature"`
	MaxTokens       int     `toml:"max_tokens"`
	MaxEmbedInput   int     `toml:"max_embed_input"`
	Timeout         string  `toml:"timeout"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Provider        string
	GeminiAPIKey    string
	AnthropicAPIKey string
	EmbeddingModel  string
	CompletionModel string
	AnthropicModel  string
	Temperature     string
	Timeout         string
}

// TimeoutDuration returns Timeout as a time.Duration.
func (c *Config) TimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.Timeout)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *Config) Merge(overlay *Config) {
	if overlay.Provider != "" {
		c.Provider = overlay.Provider
	}
	if overlay.GeminiAPIKey != "" {
		c.GeminiAPIKey = overlay.GeminiAPIKey
	}
	if overlay.AnthropicAPIKey != "" {
		c.AnthropicAPIKey = overlay.AnthropicAPIKey
	}
	if overlay.EmbeddingModel != "" {
		c.EmbeddingModel = overlay.EmbeddingModel
	}
	if overlay.Dimensions != 0 {
		c.Dimensions = overlay.Dimensions
	}
	if overlay.CompletionModel != "" {
		c.CompletionModel = overlay.CompletionModel
	}
	if overlay.AnthropicModel != "" {
		c.AnthropicModel = overlay.AnthropicModel
	}
	if overlay.Temperature != 0 {
		c.Temperature = overlay.Temperature
	}
	if overlay.MaxTokens != 0 {
		c.MaxTokens = overlay.MaxTokens
	}
	if overlay.MaxEmbedInput != 0 {
		c.MaxEmbedInput = overlay.MaxEmbedInput
	}
	if overlay.Timeout != "" {
		c.Timeout = overlay.Timeout
	}
}

func (c *Config) loadDefaults() {
	if c.Provider == "" {
		c.Provider = Gemini
	}
	if c.EmbeddingModel == "" {
		c.EmbeddingModel = "text-embedding-004"
	}
	if c.Dimensions == 0 {
		c.Dimensions = 768
	}
	if c.CompletionModel == "" {
		c.CompletionModel = "gemini-2.0-flash"
	}
	if c.AnthropicModel == "" {
		c.AnthropicModel = "claude-sonnet-4-20250514"
	}
	if c.Temperature == 0 {
		c.Temperature = 0.1
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 4096
	}
	if c.MaxEmbedInput == 0 {
		c.MaxEmbedInput = 8000
	}
	if c.Timeout == "" {
		c.Timeout = "60s"
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.Provider != "" {
		if v := os.Getenv(env.Provider); v != "" {
			c.Provider = v
		}
	}
	if env.GeminiAPIKey != "" {
		if v := os.Getenv(env.GeminiAPIKey); v != "" {
			c.GeminiAPIKey = v
		}
	}
	if env.AnthropicAPIKey != "" {
		if v := os.Getenv(env.AnthropicAPIKey); v != "" {
			c.AnthropicAPIKey = v
		}
	}
	if env.EmbeddingModel != "" {
		if v := os.Getenv(env.EmbeddingModel); v != "" {
			c.EmbeddingModel = v
		}
	}
	if env.CompletionModel != "" {
		if v := os.Getenv(env.CompletionModel); v != "" {
			c.CompletionModel = v
		}
	}
	if env.AnthropicModel != "" {
		if v := os.Getenv(env.AnthropicModel); v != "" {
			c.AnthropicModel = v
		}
	}
	if env.Temperature != "" {
		if v := os.Getenv(env.Temperature); v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				c.Temperature = f
			}
		}
	}
	if env.Timeout != "" {
		if v := os.Getenv(env.Timeout); v != "" {
			c.Timeout = v
		}
	}
}

func (c *Config) validate() error {
	switch c.Provider {
	case Gemini, Anthropic:
	default:
		return fmt.Errorf("unknown provider %q", c.Provider)
	}
	if c.Dimensions < 1 {
		return fmt.Errorf("dimensions must be positive")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("temperature must be within [0, 2]")
	}
	if _, err := time.ParseDuration(c.Timeout); err != nil {
		return fmt.Errorf("invalid timeout: %w", err)
	}
	return nil
}
