package storage

import (
	"fmt"
	"os"
)

// Config selects and configures the blob backend. An empty
// ConnectionString selects the in-memory backend.
type Config struct {
	ContainerName    string `toml:"container_name"`
	ConnectionString string `toml:"connection_string"`
	KeyPrefix        string `toml:"key_prefix"`
}

// Env names the environment variables that override Config.
type Env struct {
	ContainerName    string
	ConnectionString string
	KeyPrefix        string
}

func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

func (c *Config) Merge(overlay *Config) {
	mergeString(&c.ContainerName, overlay.ContainerName)
	mergeString(&c.ConnectionString, overlay.ConnectionString)
	mergeString(&c.KeyPrefix, overlay.KeyPrefix)
}

// InMemory reports whether no Azure connection string is configured.
func (c *Config) InMemory() bool {
	return c.ConnectionString == ""
}

func (c *Config) loadDefaults() {
	c.ContainerName = fallback(c.ContainerName, "advisory-sheets")
	c.KeyPrefix = fallback(c.KeyPrefix, "uploads")
}

func (c *Config) loadEnv(env *Env) {
	for name, dst := range map[string]*string{
		env.ContainerName:    &c.ContainerName,
		env.ConnectionString: &c.ConnectionString,
		env.KeyPrefix:        &c.KeyPrefix,
	} {
		if name != "" {
			mergeString(dst, os.Getenv(name))
		}
	}
}

func (c *Config) validate() error {
	if c.ContainerName == "" {
		return fmt.Errorf("container_name required")
	}
	if err := validateKey(c.KeyPrefix); err != nil {
		return fmt.Errorf("invalid key_prefix: %w", err)
	}
	return nil
}

func mergeString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func fallback(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
