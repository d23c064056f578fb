package jobs

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds queue delivery settings.
type Config struct {
	Workers      int    `toml:"workers"`
	MaxAttempts  int    `toml:"max_attempts"`
	BaseBackoff  string `toml:"base_backoff"`
	MaxBackoff   string `toml:"max_backoff"`
	PollInterval string `toml:"poll_interval"`
	JobTimeout   string `toml:"job_timeout"`
	KeyPrefix    string `toml:"key_prefix"`
}

// Env maps config fields to environment variable names for override injection.
type Env struct {
	Workers     string
	MaxAttempts string
	KeyPrefix   string
}

// BaseBackoffDuration returns BaseBackoff as a time.Duration.
func (c *Config) BaseBackoffDuration() time.Duration {
	d, _ := time.ParseDuration(c.BaseBackoff)
	return d
}

// MaxBackoffDuration returns MaxBackoff as a time.Duration.
func (c *Config) MaxBackoffDuration() time.Duration {
	d, _ := time.ParseDuration(c.MaxBackoff)
	return d
}

// PollIntervalDuration returns PollInterval as a time.Duration.
func (c *Config) PollIntervalDuration() time.Duration {
	d, _ := time.ParseDuration(c.PollInterval)
	return d
}

// JobTimeoutDuration returns JobTimeout as a time.Duration.
func (c *Config) JobTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.JobTimeout)
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
	if overlay.MaxAttempts != 0 {
		c.MaxAttempts = overlay.MaxAttempts
	}
	if overlay.BaseBackoff != "" {
		c.BaseBackoff = overlay.BaseBackoff
	}
	if overlay.MaxBackoff != "" {
		c.MaxBackoff = overlay.MaxBackoff
	}
	if overlay.PollInterval != "" {
		c.PollInterval = overlay.PollInterval
	}
	if overlay.JobTimeout != "" {
		c.JobTimeout = overlay.JobTimeout
	}
	if overlay.KeyPrefix != "" {
		c.KeyPrefix = overlay.KeyPrefix
	}
}

func (c *Config) loadDefaults() {
	if c.Workers == 0 {
		c.Workers = 4
	}
	if c.MaxAttempts == 0 {
		c.MaxAttempts = 5
	}
	if c.BaseBackoff == "" {
		c.BaseBackoff = "2s"
	}
	if c.MaxBackoff == "" {
		c.MaxBackoff = "5m"
	}
	if c.PollInterval == "" {
		c.PollInterval = "1s"
	}
	if c.JobTimeout == "" {
		c.JobTimeout = "10m"
	}
	if c.KeyPrefix == "" {
		c.KeyPrefix = "auditor:jobs"
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
	if env.MaxAttempts != "" {
		if v := os.Getenv(env.MaxAttempts); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				c.MaxAttempts = n
			}
		}
	}
	if env.KeyPrefix != "" {
		if v := os.Getenv(env.KeyPrefix); v != "" {
			c.KeyPrefix = v
		}
	}
}

func (c *Config) validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("workers must be positive")
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("max_attempts must be positive")
	}
	for name, v := range map[string]string{
		"base_backoff":  c.BaseBackoff,
		"max_backoff":   c.MaxBackoff,
		"poll_interval": c.PollInterval,
		"job_timeout":   c.JobTimeout,
	} {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
		if d <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	if c.BaseBackoffDuration() > c.MaxBackoffDuration() {
		return fmt.Errorf("base_backoff exceeds max_backoff")
	}
	return nil
}
