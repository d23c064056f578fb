// Package infrastructure provides core service initialization for application startup.
// It assembles common dependencies (logging, database, storage, redis, metrics,
// and model providers) that domain systems require.
package infrastructure

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/JaimeStill/auditor/internal/config"
	"github.com/JaimeStill/auditor/internal/providers"
	"github.com/JaimeStill/auditor/pkg/database"
	"github.com/JaimeStill/auditor/pkg/lifecycle"
	"github.com/JaimeStill/auditor/pkg/redis"
	"github.com/JaimeStill/auditor/pkg/storage"
)

// Infrastructure holds the core systems required by all domain modules.
// Redis is nil when no URL is configured.
type Infrastructure struct {
	Lifecycle *lifecycle.Coordinator
	Logger    *slog.Logger
	Database  database.System
	Storage   storage.System
	Redis     redis.System
	Metrics   *prometheus.Registry
	Embedder  providers.Embedder
	Completer providers.Completer
}

// New creates an Infrastructure from the application configuration.
// It initializes all systems but does not start them; call Start separately.
func New(cfg *config.Config) (*Infrastructure, error) {
	lc := lifecycle.New()
	logger := newLogger(cfg.Env())

	db, err := database.New(&cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("database init failed: %w", err)
	}

	store, err := storage.New(&cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("storage init failed: %w", err)
	}

	var rdb redis.System
	if cfg.Redis.Enabled() {
		rdb, err = redis.New(&cfg.Redis, logger)
		if err != nil {
			return nil, fmt.Errorf("redis init failed: %w", err)
		}
	} else {
		logger.Info("redis url not set, jobs run inline")
	}

	embedder, err := providers.NewEmbedder(lc.Context(), &cfg.AI, logger)
	if err != nil {
		return nil, fmt.Errorf("embedder init failed: %w", err)
	}

	completer, err := providers.NewCompleter(lc.Context(), &cfg.AI, logger)
	if err != nil {
		return nil, fmt.Errorf("completer init failed: %w", err)
	}

	return &Infrastructure{
		Lifecycle: lc,
		Logger:    logger,
		Database:  db,
		Storage:   store,
		Redis:     rdb,
		Metrics:   NewRegistry(),
		Embedder:  embedder,
		Completer: completer,
	}, nil
}

// NewRegistry returns a metrics registry carrying the Go runtime and
// process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

type subsystem interface {
	lifecycle.ReadinessChecker
	Start(lc *lifecycle.Coordinator) error
}

// Start registers every system with the lifecycle coordinator and tracks
// each one for readiness under its name.
func (i *Infrastructure) Start() error {
	names := []string{"database", "storage"}
	systems := []subsystem{i.Database, i.Storage}
	if i.Redis != nil {
		names = append(names, "redis")
		systems = append(systems, i.Redis)
	}

	for n, sys := range systems {
		if err := sys.Start(i.Lifecycle); err != nil {
			return fmt.Errorf("%s start failed: %w", names[n], err)
		}
		i.Lifecycle.Track(names[n], sys)
	}
	return nil
}

func newLogger(env string) *slog.Logger {
	if env == "local" {
		return slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, nil))
}
