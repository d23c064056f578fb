// Package api assembles the API module with all domain systems and route registration.
package api

import (
	"fmt"
	"net/http"

	"github.com/JaimeStill/auditor/internal/config"
	"github.com/JaimeStill/auditor/internal/infrastructure"
	"github.com/JaimeStill/auditor/pkg/middleware"
	"github.com/JaimeStill/auditor/pkg/module"
)

// NewModule creates the API module with all domain handlers and middleware.
// The Redis queue, when configured, starts its workers on the lifecycle.
func NewModule(cfg *config.Config, infra *infrastructure.Infrastructure) (*module.Module, error) {
	runtime := NewRuntime(cfg, infra)
	domain := NewDomain(runtime, cfg)

	if domain.Queue != nil {
		if err := domain.Queue.Start(runtime.Lifecycle); err != nil {
			return nil, fmt.Errorf("job queue start failed: %w", err)
		}
	}

	mux := http.NewServeMux()
	registerRoutes(mux, domain, cfg, runtime)

	m := module.New(cfg.API.BasePath, mux)
	m.Use(
		middleware.Recover(runtime.Logger),
		middleware.CORS(&cfg.API.CORS),
		middleware.Logger(runtime.Logger),
	)

	return m, nil
}
