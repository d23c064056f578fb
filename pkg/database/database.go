// Package database opens the PostgreSQL pool, verifies required
// extensions at startup, and closes the pool on shutdown.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/JaimeStill/auditor/pkg/lifecycle"
)

// System owns the connection pool.
type System interface {
	Connection() *sql.DB
	// Start pings and checks extensions on startup and closes the pool on
	// shutdown.
	Start(lc *lifecycle.Coordinator) error
	Ready() bool
	// Err is nil once ready. Otherwise it wraps ErrNotReady with the
	// startup failure, if any.
	Err() error
}

type database struct {
	conn        *sql.DB
	logger      *slog.Logger
	connTimeout time.Duration
	extensions  []string

	mu  sync.RWMutex
	err error
}

// New opens the pool without connecting. The first connection is made by
// the startup hook registered in Start.
func New(cfg *Config, logger *slog.Logger) (System, error) {
	db, err := sql.Open("pgx", cfg.Dsn())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetimeDuration())

	return &database{
		conn:        db,
		logger:      logger.With("system", "database", "host", cfg.Host, "name", cfg.Name),
		connTimeout: cfg.ConnTimeoutDuration(),
		extensions:  cfg.Extensions,
		err:         ErrNotReady,
	}, nil
}

func (d *database) Connection() *sql.DB {
	return d.conn
}

func (d *database) Ready() bool {
	return d.Err() == nil
}

func (d *database) Err() error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.err
}

func (d *database) setErr(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.err = err
}

func (d *database) Start(lc *lifecycle.Coordinator) error {
	lc.OnStartup(func() {
		ctx, cancel := context.WithTimeout(lc.Context(), d.connTimeout)
		defer cancel()

		if err := d.verify(ctx); err != nil {
			d.setErr(errors.Join(ErrNotReady, err))
			d.logger.Error("database unavailable", "error", err)
			return
		}

		d.setErr(nil)
		d.logger.Info("database connected", "extensions", d.extensions)
	})

	lc.OnShutdown(func() {
		<-lc.Context().Done()
		d.setErr(ErrNotReady)

		if err := d.conn.Close(); err != nil {
			d.logger.Error("database close failed", "error", err)
			return
		}
		d.logger.Info("database closed")
	})

	return nil
}

func (d *database) verify(ctx context.Context) error {
	if err := d.conn.PingContext(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}

	for _, name := range d.extensions {
		var installed bool
		err := d.conn.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM pg_extension WHERE extname = $1)`,
			name,
		).Scan(&installed)
		if err != nil {
			return fmt.Errorf("query extension %s: %w", name, err)
		}
		if !installed {
			return fmt.Errorf("%w: %s", ErrExtensionMissing, name)
		}
	}
	return nil
}
