package config

import (
	"cmp"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/JaimeStill/auditor/internal/jobs"
	"github.com/JaimeStill/auditor/internal/knowledge"
	"github.com/JaimeStill/auditor/internal/physicians"
	"github.com/JaimeStill/auditor/internal/pipeline"
	"github.com/JaimeStill/auditor/internal/providers"
	"github.com/JaimeStill/auditor/pkg/database"
	"github.com/JaimeStill/auditor/pkg/redis"
	"github.com/JaimeStill/auditor/pkg/storage"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"

	EnvAuditorEnv             = "AUDITOR_ENV"
	EnvAuditorShutdownTimeout = "AUDITOR_SHUTDOWN_TIMEOUT"
	EnvAuditorVersion         = "AUDITOR_VERSION"
)

var databaseEnv = &database.Env{
	Host:            "AUDITOR_DB_HOST",
	Port:            "AUDITOR_DB_PORT",
	Name:            "AUDITOR_DB_NAME",
	User:            "AUDITOR_DB_USER",
	Password:        "AUDITOR_DB_PASSWORD",
	SSLMode:         "AUDITOR_DB_SSL_MODE",
	ApplicationName: "AUDITOR_DB_APPLICATION_NAME",
	MaxOpenConns:    "AUDITOR_DB_MAX_OPEN_CONNS",
	MaxIdleConns:    "AUDITOR_DB_MAX_IDLE_CONNS",
	ConnMaxLifetime: "AUDITOR_DB_CONN_MAX_LIFETIME",
	ConnTimeout:     "AUDITOR_DB_CONN_TIMEOUT",
}

var storageEnv = &storage.Env{
	ContainerName:    "AUDITOR_STORAGE_CONTAINER_NAME",
	ConnectionString: "AUDITOR_STORAGE_CONNECTION_STRING",
	KeyPrefix:        "AUDITOR_STORAGE_KEY_PREFIX",
}

var redisEnv = &redis.Env{
	URL:          "AUDITOR_REDIS_URL",
	PoolSize:     "AUDITOR_REDIS_POOL_SIZE",
	MinIdleConns: "AUDITOR_REDIS_MIN_IDLE_CONNS",
}

var aiEnv = &providers.Env{
	Provider:        "AUDITOR_AI_PROVIDER",
	GeminiAPIKey:    "AUDITOR_GEMINI_API_KEY",
	AnthropicAPIKey: "AUDITOR_ANTHROPIC_API_KEY",
	EmbeddingModel:  "AUDITOR_AI_EMBEDDING_MODEL",
	CompletionModel: "AUDITOR_AI_COMPLETION_MODEL",
	AnthropicModel:  "AUDITOR_AI_ANTHROPIC_MODEL",
	Temperature:     "AUDITOR_AI_TEMPERATURE",
	Timeout:         "AUDITOR_AI_TIMEOUT",
}

var knowledgeEnv = &knowledge.Env{
	ProtocolLimit: "AUDITOR_KNOWLEDGE_PROTOCOL_LIMIT",
	CodeLimit:     "AUDITOR_KNOWLEDGE_CODE_LIMIT",
	ContextBudget: "AUDITOR_KNOWLEDGE_CONTEXT_BUDGET",
}

var pipelineEnv = &pipeline.Env{
	Workers:      "AUDITOR_PIPELINE_WORKERS",
	SheetTimeout: "AUDITOR_PIPELINE_SHEET_TIMEOUT",
}

var identityEnv = &physicians.Env{
	EmailDomain:      "AUDITOR_IDENTITY_EMAIL_DOMAIN",
	DirectoryTimeout: "AUDITOR_IDENTITY_DIRECTORY_TIMEOUT",
}

var queueEnv = &jobs.Env{
	Workers:     "AUDITOR_QUEUE_WORKERS",
	MaxAttempts: "AUDITOR_QUEUE_MAX_ATTEMPTS",
	KeyPrefix:   "AUDITOR_QUEUE_KEY_PREFIX",
}

// Config is the root configuration for the auditor service.
type Config struct {
	Server          ServerConfig      `toml:"server"`
	Database        database.Config   `toml:"database"`
	Storage         storage.Config    `toml:"storage"`
	Redis           redis.Config      `toml:"redis"`
	API             APIConfig         `toml:"api"`
	AI              providers.Config  `toml:"ai"`
	Knowledge       knowledge.Config  `toml:"knowledge"`
	Pipeline        pipeline.Config   `toml:"pipeline"`
	Identity        physicians.Config `toml:"identity"`
	Queue           jobs.Config       `toml:"queue"`
	ShutdownTimeout string            `toml:"shutdown_timeout"`
	Version         string            `toml:"version"`
}

// Env names the deployment, selecting the config.<env>.toml overlay.
func (c *Config) Env() string {
	return cmp.Or(os.Getenv(EnvAuditorEnv), "local")
}

func (c *Config) ShutdownTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ShutdownTimeout)
	return d
}

// Load builds the configuration from config.toml, the overlay for the
// current environment, and AUDITOR_* variables, in increasing precedence.
// Either file may be absent.
func Load() (*Config, error) {
	cfg := new(Config)
	if _, err := decodeFile(BaseConfigFile, cfg); err != nil {
		return nil, err
	}

	overlay := new(Config)
	found, err := decodeFile(fmt.Sprintf(OverlayConfigPattern, cfg.Env()), overlay)
	if err != nil {
		return nil, fmt.Errorf("overlay: %w", err)
	}
	if found {
		cfg.Merge(overlay)
	}

	if err := cfg.finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}
	return cfg, nil
}

func (c *Config) Merge(overlay *Config) {
	c.ShutdownTimeout = cmp.Or(overlay.ShutdownTimeout, c.ShutdownTimeout)
	c.Version = cmp.Or(overlay.Version, c.Version)

	c.Server.Merge(&overlay.Server)
	c.Database.Merge(&overlay.Database)
	c.Storage.Merge(&overlay.Storage)
	c.Redis.Merge(&overlay.Redis)
	c.API.Merge(&overlay.API)
	c.AI.Merge(&overlay.AI)
	c.Knowledge.Merge(&overlay.Knowledge)
	c.Pipeline.Merge(&overlay.Pipeline)
	c.Identity.Merge(&overlay.Identity)
	c.Queue.Merge(&overlay.Queue)
}

type section struct {
	name     string
	finalize func() error
}

func (c *Config) sections() []section {
	return []section{
		{"server", c.Server.Finalize},
		{"database", func() error { return c.Database.Finalize(databaseEnv) }},
		{"storage", func() error { return c.Storage.Finalize(storageEnv) }},
		{"redis", func() error { return c.Redis.Finalize(redisEnv) }},
		{"api", c.API.Finalize},
		{"ai", func() error { return c.AI.Finalize(aiEnv) }},
		{"knowledge", func() error { return c.Knowledge.Finalize(knowledgeEnv) }},
		{"pipeline", func() error { return c.Pipeline.Finalize(pipelineEnv) }},
		{"identity", func() error { return c.Identity.Finalize(identityEnv) }},
		{"queue", func() error { return c.Queue.Finalize(queueEnv) }},
	}
}

func (c *Config) finalize() error {
	c.ShutdownTimeout = cmp.Or(os.Getenv(EnvAuditorShutdownTimeout), c.ShutdownTimeout, "30s")
	c.Version = cmp.Or(os.Getenv(EnvAuditorVersion), c.Version, "0.1.0")

	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("shutdown_timeout: %w", err)
	}

	for _, s := range c.sections() {
		if err := s.finalize(); err != nil {
			return fmt.Errorf("%s: %w", s.name, err)
		}
	}
	return nil
}

// decodeFile fills cfg from the TOML file at path, reporting whether the
// file exists.
func decodeFile(path string, cfg *Config) (bool, error) {
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("read %s: %w", path, err)
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return true, fmt.Errorf("parse %s: %w", path, err)
	}
	return true, nil
}
