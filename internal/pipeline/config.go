package pipeline

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config bounds sheet processing.
type Config struct {
	Workers      int    `toml:"workers"`
	SheetTimeout string `toml:"sheet_timeout"`
}

// Env maps config fields to environment variable names.
type Env struct {
	Workers      string
	SheetTimeout string
}

// SheetTimeoutDuration returns SheetTimeout as a time.Duration.
func (c *Config) SheetTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.SheetTimeout)
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
	if overlay.Workers != 0 {
		c.Workers = overlay.Workers
	}
	if overlay.SheetTimeout != "" {
		c.SheetTimeout = overlay.SheetTimeout
	}
}

func (c *Config) loadDefaults() {
	if c.Workers == 0 {
		c.Workers = 4
	}
	if c.SheetTimeout == "" {
		c.SheetTimeout = "5m"
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.Workers != "" {
		if v := os.Getenv(env.Workers); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.Workers = n
			}
		}
	}
	if env.SheetTimeout != "" {
		if v := os.Getenv(env.SheetTimeout); v != "" {
			c.SheetTimeout = v
		}
	}
}

func (c *Config) validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("workers must be positive")
	}
	d, err := time.ParseDuration(c.SheetTimeout)
	if err != nil {
		return fmt.Errorf("invalid sheet_timeout: %w", err)
	}
	if d <= 0 {
		return fmt.Errorf("sheet_timeout must be positive")
	}
	return nil
}
