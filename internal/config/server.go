package config

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"
)

const (
	EnvServerHost              = "AUDITOR_SERVER_HOST"
	EnvServerPort              = "AUDITOR_SERVER_PORT"
	EnvServerReadTimeout       = "AUDITOR_SERVER_READ_TIMEOUT"
	EnvServerReadHeaderTimeout = "AUDITOR_SERVER_READ_HEADER_TIMEOUT"
	EnvServerWriteTimeout      = "AUDITOR_SERVER_WRITE_TIMEOUT"
	EnvServerShutdownTimeout   = "AUDITOR_SERVER_SHUTDOWN_TIMEOUT"
)

// ServerConfig holds HTTP listener settings. WriteTimeout defaults high
// because synchronous verification requests wait on the model.
type ServerConfig struct {
	Host              string `toml:"host"`
	Port              int    `toml:"port"`
	ReadTimeout       string `toml:"read_timeout"`
	ReadHeaderTimeout string `toml:"read_header_timeout"`
	WriteTimeout      string `toml:"write_timeout"`
	ShutdownTimeout   string `toml:"shutdown_timeout"`
}

func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c *ServerConfig) ReadTimeoutDuration() time.Duration {
	return durationOf(c.ReadTimeout)
}

func (c *ServerConfig) ReadHeaderTimeoutDuration() time.Duration {
	return durationOf(c.ReadHeaderTimeout)
}

func (c *ServerConfig) WriteTimeoutDuration() time.Duration {
	return durationOf(c.WriteTimeout)
}

func (c *ServerConfig) ShutdownTimeoutDuration() time.Duration {
	return durationOf(c.ShutdownTimeout)
}

func (c *ServerConfig) Finalize() error {
	c.loadDefaults()
	if err := c.loadEnv(); err != nil {
		return err
	}
	return c.validate()
}

func (c *ServerConfig) Merge(overlay *ServerConfig) {
	if overlay.Host != "" {
		c.Host = overlay.Host
	}
	if overlay.Port != 0 {
		c.Port = overlay.Port
	}
	for _, f := range c.durations(overlay) {
		if *f.overlay != "" {
			*f.dst = *f.overlay
		}
	}
}

func (c *ServerConfig) loadDefaults() {
	if c.Host == "" {
		c.Host = "0.0.0.0"
	}
	if c.Port == 0 {
		c.Port = 8080
	}
	for _, f := range c.durations(nil) {
		if *f.dst == "" {
			*f.dst = f.def
		}
	}
}

func (c *ServerConfig) loadEnv() error {
	if v := os.Getenv(EnvServerHost); v != "" {
		c.Host = v
	}
	if v := os.Getenv(EnvServerPort); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvServerPort, err)
		}
		c.Port = port
	}
	for _, f := range c.durations(nil) {
		if v := os.Getenv(f.env); v != "" {
			*f.dst = v
		}
	}
	return nil
}

func (c *ServerConfig) validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Port)
	}
	for _, f := range c.durations(nil) {
		if _, err := time.ParseDuration(*f.dst); err != nil {
			return fmt.Errorf("invalid %s: %w", f.key, err)
		}
	}
	return nil
}

type durationField struct {
	key     string
	env     string
	def     string
	dst     *string
	overlay *string
}

// durations lists the duration-valued fields. overlay may be nil when the
// caller does not merge.
func (c *ServerConfig) durations(overlay *ServerConfig) []durationField {
	if overlay == nil {
		overlay = &ServerConfig{}
	}
	return []durationField{
		{"read_timeout", EnvServerReadTimeout, "1m", &c.ReadTimeout, &overlay.ReadTimeout},
		{"read_header_timeout", EnvServerReadHeaderTimeout, "10s", &c.ReadHeaderTimeout, &overlay.ReadHeaderTimeout},
		{"write_timeout", EnvServerWriteTimeout, "15m", &c.WriteTimeout, &overlay.WriteTimeout},
		{"shutdown_timeout", EnvServerShutdownTimeout, "30s", &c.ShutdownTimeout, &overlay.ShutdownTimeout},
	}
}

func durationOf(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}
