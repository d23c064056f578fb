package database

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds PostgreSQL connection and pool settings.
type Config struct {
	Host            string `toml:"host"`
	Port            int    `toml:"port"`
	Name            string `toml:"name"`
	User            string `toml:"user"`
	Password        string `toml:"password"`
	SSLMode         string `toml:"ssl_mode"`
	ApplicationName string `toml:"application_name"`
	MaxOpenConns    int    `toml:"max_open_conns"`
	MaxIdleConns    int    `toml:"max_idle_conns"`
	ConnMaxLifetime string `toml:"conn_max_lifetime"`
	ConnTimeout     string `toml:"conn_timeout"`
	// Extensions must be installed before the connection reports ready.
	Extensions []string `toml:"extensions"`
}

// Env names the environment variables that override Config.
type Env struct {
	Host            string
	Port            string
	Name            string
	User            string
	Password        string
	SSLMode         string
	ApplicationName string
	MaxOpenConns    string
	MaxIdleConns    string
	ConnMaxLifetime string
	ConnTimeout     string
}

func (c *Config) ConnMaxLifetimeDuration() time.Duration {
	d, _ := time.ParseDuration(c.ConnMaxLifetime)
	return d
}

func (c *Config) ConnTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ConnTimeout)
	return d
}

// Dsn returns a keyword/value connection string for the pgx driver.
// Values containing spaces or quotes are quoted.
func (c *Config) Dsn() string {
	pairs := []string{
		"host=" + quoteValue(c.Host),
		"port=" + strconv.Itoa(c.Port),
		"dbname=" + quoteValue(c.Name),
		"user=" + quoteValue(c.User),
		"password=" + quoteValue(c.Password),
		"sslmode=" + quoteValue(c.SSLMode),
	}
	if c.ApplicationName != "" {
		pairs = append(pairs, "application_name="+quoteValue(c.ApplicationName))
	}
	return strings.Join(pairs, " ")
}

// URL returns the postgres:// form expected by the migration tool.
func (c *Config) URL() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:   "/" + c.Name,
	}
	q := url.Values{"sslmode": {c.SSLMode}}
	if c.ApplicationName != "" {
		q.Set("application_name", c.ApplicationName)
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// Finalize fills defaults, applies env overrides when env is non-nil, and
// validates the result.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		if err := c.loadEnv(env); err != nil {
			return err
		}
	}
	return c.validate()
}

// Merge copies the non-zero fields of overlay onto c.
func (c *Config) Merge(overlay *Config) {
	for dst, v := range map[*string]string{
		&c.Host:            overlay.Host,
		&c.Name:            overlay.Name,
		&c.User:            overlay.User,
		&c.Password:        overlay.Password,
		&c.SSLMode:         overlay.SSLMode,
		&c.ApplicationName: overlay.ApplicationName,
		&c.ConnMaxLifetime: overlay.ConnMaxLifetime,
		&c.ConnTimeout:     overlay.ConnTimeout,
	} {
		if v != "" {
			*dst = v
		}
	}
	for dst, v := range map[*int]int{
		&c.Port:         overlay.Port,
		&c.MaxOpenConns: overlay.MaxOpenConns,
		&c.MaxIdleConns: overlay.MaxIdleConns,
	} {
		if v != 0 {
			*dst = v
		}
	}
	if len(overlay.Extensions) > 0 {
		c.Extensions = overlay.Extensions
	}
}

func (c *Config) loadDefaults() {
	if c.Host == "" {
		c.Host = "localhost"
	}
	if c.Port == 0 {
		c.Port = 5432
	}
	if c.SSLMode == "" {
		c.SSLMode = "disable"
	}
	if c.MaxOpenConns == 0 {
		c.MaxOpenConns = 25
	}
	if c.MaxIdleConns == 0 {
		c.MaxIdleConns = 5
	}
	if c.ConnMaxLifetime == "" {
		c.ConnMaxLifetime = "15m"
	}
	if c.ConnTimeout == "" {
		c.ConnTimeout = "5s"
	}
	// nil means unset; an explicit empty list disables the check.
	if c.Extensions == nil {
		c.Extensions = []string{"vector"}
	}
}

func (c *Config) loadEnv(env *Env) error {
	for name, dst := range map[string]*string{
		env.Host:            &c.Host,
		env.Name:            &c.Name,
		env.User:            &c.User,
		env.Password:        &c.Password,
		env.SSLMode:         &c.SSLMode,
		env.ApplicationName: &c.ApplicationName,
		env.ConnMaxLifetime: &c.ConnMaxLifetime,
		env.ConnTimeout:     &c.ConnTimeout,
	} {
		if v := getenv(name); v != "" {
			*dst = v
		}
	}

	for name, dst := range map[string]*int{
		env.Port:         &c.Port,
		env.MaxOpenConns: &c.MaxOpenConns,
		env.MaxIdleConns: &c.MaxIdleConns,
	} {
		v := getenv(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		*dst = n
	}
	return nil
}

func (c *Config) validate() error {
	var errs []error
	if c.Name == "" {
		errs = append(errs, errors.New("name required"))
	}
	if c.User == "" {
		errs = append(errs, errors.New("user required"))
	}
	if _, err := time.ParseDuration(c.ConnMaxLifetime); err != nil {
		errs = append(errs, fmt.Errorf("invalid conn_max_lifetime: %w", err))
	}
	if _, err := time.ParseDuration(c.ConnTimeout); err != nil {
		errs = append(errs, fmt.Errorf("invalid conn_timeout: %w", err))
	}
	return errors.Join(errs...)
}

func getenv(name string) string {
	if name == "" {
		return ""
	}
	return os.Getenv(name)
}

func quoteValue(v string) string {
	if v != "" && !strings.ContainsAny(v, ` '\`) {
		return v
	}
	r := strings.NewReplacer(`\`, `\\`, `'`, `\'`)
	return "'" + r.Replace(v) + "'"
}
