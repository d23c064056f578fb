package physicians

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Config controls physician identity resolution.
type Config struct {
	EmailDomain      string `toml:"email_domain"`
	DirectoryTimeout string `toml:"directory_timeout"`
	LinkByTaxID      *bool  `toml:"link_by_tax_id"`
}

// Env maps config fields to environment variable names.
type Env struct {
	EmailDomain      string
	DirectoryTimeout string
}

// DirectoryTimeoutDuration returns DirectoryTimeout as a time.Duration.
func (c *Config) DirectoryTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.DirectoryTimeout)
	return d
}

// TaxIDLinking reports whether sheets are also linked by the physician tax ID.
func (c *Config) TaxIDLinking() bool {
	return c.LinkByTaxID == nil || *c.LinkByTaxID
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
	if overlay.EmailDomain != "" {
		c.EmailDomain = overlay.EmailDomain
	}
	if overlay.DirectoryTimeout != "" {
		c.DirectoryTimeout = overlay.DirectoryTimeout
	}
	if overlay.LinkByTaxID != nil {
		c.LinkByTaxID = overlay.LinkByTaxID
	}
}

func (c *Config) loadDefaults() {
	if c.EmailDomain == "" {
		c.EmailDomain = "emirmed.kz"
	}
	if c.DirectoryTimeout == "" {
		c.DirectoryTimeout = "30s"
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.EmailDomain != "" {
		if v := os.Getenv(env.EmailDomain); v != "" {
			c.EmailDomain = v
		}
	}
	if env.DirectoryTimeout != "" {
		if v := os.Getenv(env.DirectoryTimeout); v != "" {
			c.DirectoryTimeout = v
		}
	}
}

func (c *Config) validate() error {
	c.EmailDomain = strings.TrimPrefix(strings.TrimSpace(c.EmailDomain), "@")
	if c.EmailDomain == "" || strings.ContainsAny(c.EmailDomain, "@%_ ") {
		return fmt.Errorf("invalid email_domain %q", c.EmailDomain)
	}
	d, err := time.ParseDuration(c.DirectoryTimeout)
	if err != nil {
		return fmt.Errorf("invalid directory_timeout: %w", err)
	}
	if d <= 0 {
		return fmt.Errorf("directory_timeout must be positive")
	}
	return nil
}
