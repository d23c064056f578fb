package config

import (
	"cmp"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/JaimeStill/auditor/pkg/formatting"
	"github.com/JaimeStill/auditor/pkg/middleware"
	"github.com/JaimeStill/auditor/pkg/pagination"
)

const (
	EnvAPIBasePath      = "AUDITOR_API_BASE_PATH"
	EnvAPIMaxUploadSize = "AUDITOR_API_MAX_UPLOAD_SIZE"

	defaultMaxUploadSize = 50 << 20
)

var corsEnv = &middleware.CORSEnv{
	Enabled:          "AUDITOR_CORS_ENABLED",
	Origins:          "AUDITOR_CORS_ORIGINS",
	AllowedMethods:   "AUDITOR_CORS_ALLOWED_METHODS",
	AllowedHeaders:   "AUDITOR_CORS_ALLOWED_HEADERS",
	AllowCredentials: "AUDITOR_CORS_ALLOW_CREDENTIALS",
	MaxAge:           "AUDITOR_CORS_MAX_AGE",
}

var paginationEnv = &pagination.ConfigEnv{
	DefaultPageSize: "AUDITOR_PAGINATION_DEFAULT_PAGE_SIZE",
	MaxPageSize:     "AUDITOR_PAGINATION_MAX_PAGE_SIZE",
}

// APIConfig covers the /api module: its mount point, the largest
// accepted upload, and the nested CORS and paging settings.
type APIConfig struct {
	BasePath      string                `toml:"base_path"`
	MaxUploadSize formatting.Size       `toml:"max_upload_size"`
	CORS          middleware.CORSConfig `toml:"cors"`
	Pagination    pagination.Config     `toml:"pagination"`
}

// MaxUploadSizeBytes is the upload cap handed to the upload routes.
func (c *APIConfig) MaxUploadSizeBytes() int64 {
	return int64(c.MaxUploadSize)
}

func (c *APIConfig) Finalize() error {
	c.loadDefaults()
	if err := c.loadEnv(); err != nil {
		return err
	}
	if err := c.validate(); err != nil {
		return err
	}

	if err := c.CORS.Finalize(corsEnv); err != nil {
		return fmt.Errorf("cors: %w", err)
	}
	if err := c.Pagination.Finalize(paginationEnv); err != nil {
		return fmt.Errorf("pagination: %w", err)
	}
	return nil
}

func (c *APIConfig) Merge(overlay *APIConfig) {
	c.BasePath = cmp.Or(overlay.BasePath, c.BasePath)
	if overlay.MaxUploadSize > 0 {
		c.MaxUploadSize = overlay.MaxUploadSize
	}

	c.CORS.Merge(&overlay.CORS)
	c.Pagination.Merge(&overlay.Pagination)
}

func (c *APIConfig) loadDefaults() {
	c.BasePath = cmp.Or(c.BasePath, "/api")
	if c.MaxUploadSize == 0 {
		c.MaxUploadSize = defaultMaxUploadSize
	}
}

func (c *APIConfig) loadEnv() error {
	c.BasePath = cmp.Or(os.Getenv(EnvAPIBasePath), c.BasePath)

	if v := os.Getenv(EnvAPIMaxUploadSize); v != "" {
		if err := c.MaxUploadSize.UnmarshalText([]byte(v)); err != nil {
			return fmt.Errorf("%s: %w", EnvAPIMaxUploadSize, err)
		}
	}
	return nil
}

func (c *APIConfig) validate() error {
	var errs []error
	if !strings.HasPrefix(c.BasePath, "/") || strings.Count(c.BasePath, "/") != 1 || c.BasePath == "/" {
		errs = append(errs, fmt.Errorf("base_path %q must be a single segment such as /api", c.BasePath))
	}
	if c.MaxUploadSize <= 0 {
		errs = append(errs, fmt.Errorf("max_upload_size must be positive, got %s", c.MaxUploadSize))
	}
	return errors.Join(errs...)
}
