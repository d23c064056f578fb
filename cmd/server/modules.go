package main

import (
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/JaimeStill/auditor/internal/api"
	"github.com/JaimeStill/auditor/internal/config"
	"github.com/JaimeStill/auditor/internal/infrastructure"
	"github.com/JaimeStill/auditor/pkg/module"
)

type Modules struct {
	API *module.Module
}

func NewModules(infra *infrastructure.Infrastructure, cfg *config.Config) (*Modules, error) {
	apiModule, err := api.NewModule(cfg, infra)
	if err != nil {
		return nil, err
	}

	return &Modules{API: apiModule}, nil
}

func (m *Modules) Mount(router *module.Router) {
	router.Mount(m.API)
}

func buildRouter(infra *infrastructure.Infrastructure) *module.Router {
	router := module.NewRouter()
	router.Health(infra.Lifecycle.Pending)
	router.Handle("GET /metrics", promhttp.HandlerFor(infra.Metrics, promhttp.HandlerOpts{}))
	return router
}
