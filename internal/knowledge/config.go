package knowledge

import (
	"fmt"
	"os"
	"strconv"
)

// Config bounds retrieval result sizes.
type Config struct {
	ProtocolLimit int `toml:"protocol_limit"`
	CodeLimit     int `toml:"code_limit"`
	MaxKeywords   int `toml:"max_keywords"`
	PerKeyword    int `toml:"per_keyword"`
	ContextBudget int `toml:"context_budget"`
	MaxEmbedInput int `toml:"max_embed_input"`
	ImportWorkers int `toml:"import_workers"`
}

// Env maps config fields to environment variable names.
type Env struct {
	ProtocolLimit string
	CodeLimit     string
	ContextBudget string
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
	if overlay.ProtocolLimit != 0 {
		c.ProtocolLimit = overlay.ProtocolLimit
	}
	if overlay.CodeLimit != 0 {
		c.CodeLimit = overlay.CodeLimit
	}
	if overlay.MaxKeywords != 0 {
		c.MaxKeywords = overlay.MaxKeywords
	}
	if overlay.PerKeyword != 0 {
		c.PerKeyword = overlay.PerKeyword
	}
	if overlay.ContextBudget != 0 {
		c.ContextBudget = overlay.ContextBudget
	}
	if overlay.MaxEmbedInput != 0 {
		c.MaxEmbedInput = overlay.MaxEmbedInput
	}
	if overlay.ImportWorkers != 0 {
		c.ImportWorkers = overlay.ImportWorkers
	}
}

func (c *Config) loadDefaults() {
	if c.ProtocolLimit == 0 {
		c.ProtocolLimit = 5
	}
	if c.CodeLimit == 0 {
		c.CodeLimit = 10
	}
	if c.MaxKeywords == 0 {
		c.MaxKeywords = 10
	}
	if c.PerKeyword == 0 {
		c.PerKeyword = 2
	}
	if c.ContextBudget == 0 {
		c.ContextBudget = 6000
	}
	if c.MaxEmbedInput == 0 {
		c.MaxEmbedInput = 8000
	}
	if c.ImportWorkers == 0 {
		c.ImportWorkers = 4
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.ProtocolLimit != "" {
		if v := os.Getenv(env.ProtocolLimit); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.ProtocolLimit = n
			}
		}
	}
	if env.CodeLimit != "" {
		if v := os.Getenv(env.CodeLimit); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.CodeLimit = n
			}
		}
	}
	if env.ContextBudget != "" {
		if v := os.Getenv(env.ContextBudget); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.ContextBudget = n
			}
		}
	}
}

func (c *Config) validate() error {
	if c.ProtocolLimit < 1 {
		return fmt.Errorf("protocol_limit must be positive")
	}
	if c.CodeLimit < 1 {
		return fmt.Errorf("code_limit must be positive")
	}
	if c.PerKeyword < 1 {
		return fmt.Errorf("per_keyword must be positive")
	}
	if c.ImportWorkers < 1 {
		return fmt.Errorf("import_workers must be positive")
	}
	return nil
}
