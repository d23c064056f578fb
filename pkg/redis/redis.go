// Package redis provides Redis connection management with lifecycle coordination.
package redis

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/redis/go-redis/v9"

	"github.com/JaimeStill/auditor/pkg/lifecycle"
)

// System manages a Redis client and lifecycle coordination.
type System interface {
	// Client returns the underlying go-redis client.
	Client() *redis.Client
	// Start registers startup and shutdown hooks with the lifecycle coordinator.
	Start(lc *lifecycle.Coordinator) error
	// Ready reports whether the startup ping succeeded.
	Ready() bool
}

type client struct {
	rdb    *redis.Client
	logger *slog.Logger
	ready  atomic.Bool
}

// New creates a Redis system from the given configuration. It parses the URL
// and applies pool settings but does not connect until Start is called.
func New(cfg *Config, logger *slog.Logger) (System, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}

	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns
	opts.DialTimeout = cfg.DialTimeoutDuration()
	opts.ReadTimeout = cfg.ReadTimeoutDuration()
	opts.WriteTimeout = cfg.WriteTimeoutDuration()

	return &client{
		rdb:    redis.NewClient(opts),
		logger: logger.With("system", "redis"),
	}, nil
}

func (c *client) Client() *redis.Client {
	return c.rdb
}

func (c *client) Ready() bool {
	return c.ready.Load()
}

func (c *client) Start(lc *lifecycle.Coordinator) error {
	c.logger.Info("starting redis connection")

	lc.OnStartup(func() {
		if err := c.ping(lc.Context()); err != nil {
			c.logger.Error("redis ping failed", "error", err)
			return
		}
		c.ready.Store(true)
		c.logger.Info("redis connection established")
	})

	lc.OnShutdown(func() {
		<-lc.Context().Done()
		c.ready.Store(false)

		if err := c.rdb.Close(); err != nil {
			c.logger.Error("redis close failed", "error", err)
			return
		}
		c.logger.Info("redis connection closed")
	})

	return nil
}

func (c *client) ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}
