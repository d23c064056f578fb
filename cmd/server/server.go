package main

import (
	"context"
	"fmt"
	"time"

	"github.com/JaimeStill/auditor/internal/config"
	"github.com/JaimeStill/auditor/internal/infrastructure"
)

// Server owns the shared infrastructure, the mounted modules, and the
// HTTP listener for one process.
type Server struct {
	infra   *infrastructure.Infrastructure
	modules *Modules
	http    *httpServer
}

func NewServer(cfg *config.Config) (*Server, error) {
	infra, err := infrastructure.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("infrastructure: %w", err)
	}

	modules, err := NewModules(infra, cfg)
	if err != nil {
		return nil, fmt.Errorf("modules: %w", err)
	}

	router := buildRouter(infra)
	modules.Mount(router)

	infra.Logger.Info("auditor configured",
		"env", cfg.Env(),
		"version", cfg.Version,
		"addr", cfg.Server.Addr(),
		"ai_provider", cfg.AI.Provider,
		"queue", infra.Redis != nil,
		"storage_in_memory", cfg.Storage.InMemory(),
	)

	return &Server{
		infra:   infra,
		modules: modules,
		http:    newHTTPServer(&cfg.Server, router, infra.Logger),
	}, nil
}

// Run starts every subsystem and the listener, then blocks until ctx is
// done and drains within timeout.
func (s *Server) Run(ctx context.Context, timeout time.Duration) error {
	lc := s.infra.Lifecycle

	if err := s.infra.Start(); err != nil {
		return fmt.Errorf("start infrastructure: %w", err)
	}
	if err := s.http.Start(lc); err != nil {
		return err
	}

	go s.reportReadiness()

	<-ctx.Done()
	s.infra.Logger.Info("shutting down", "timeout", timeout)
	return lc.Shutdown(timeout)
}

func (s *Server) reportReadiness() {
	lc := s.infra.Lifecycle
	lc.WaitForStartup()

	if pending := lc.Pending(); len(pending) > 0 {
		s.infra.Logger.Warn("startup finished with subsystems not ready",
			"pending", pending,
			"database", s.infra.Database.Err(),
		)
		return
	}
	s.infra.Logger.Info("ready")
}
