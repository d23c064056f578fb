package api_test

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/JaimeStill/auditor/internal/api"
	"github.com/JaimeStill/auditor/internal/config"
	"github.com/JaimeStill/auditor/internal/infrastructure"
	"github.com/JaimeStill/auditor/internal/jobs"
	"github.com/JaimeStill/auditor/internal/knowledge"
	"github.com/JaimeStill/auditor/internal/physicians"
	"github.com/JaimeStill/auditor/internal/pipeline"
	"github.com/JaimeStill/auditor/internal/providers"
	"github.com/JaimeStill/auditor/pkg/database"
	"github.com/JaimeStill/auditor/pkg/middleware"
	"github.com/JaimeStill/auditor/pkg/pagination"
)

func validConfig(t *testing.T) *config.Config {
	t.Helper()

	cfg := &config.Config{
		Server: config.ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     "1m",
			WriteTimeout:    "15m",
			ShutdownTimeout: "30s",
		},
		Database: database.Config{
			Host:            "localhost",
			Port:            5432,
			Name:            "auditor",
			User:            "auditor",
			Password:        "auditor",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: "15m",
			ConnTimeout:     "5s",
		},
		API: config.APIConfig{
			BasePath:      "/api",
			MaxUploadSize: 10 << 20,
			CORS:          middleware.CORSConfig{Enabled: false},
			Pagination: pagination.Config{
				DefaultPageSize: 20,
				MaxPageSize:     100,
			},
		},
		AI:              providers.Config{Provider: providers.Gemini, Dimensions: 768, Timeout: "30s"},
		ShutdownTimeout: "30s",
		Version:         "0.1.0",
	}

	if err := cfg.Knowledge.Finalize(&knowledge.Env{}); err != nil {
		t.Fatalf("knowledge config: %v", err)
	}
	if err := cfg.Pipeline.Finalize(&pipeline.Env{}); err != nil {
		t.Fatalf("pipeline config: %v", err)
	}
	if err := cfg.Identity.Finalize(&physicians.Env{}); err != nil {
		t.Fatalf("identity config: %v", err)
	}
	if err := cfg.Queue.Finalize(&jobs.Env{}); err != nil {
		t.Fatalf("queue config: %v", err)
	}
	if err := cfg.Storage.Finalize(nil); err != nil {
		t.Fatalf("storage config: %v", err)
	}
	return cfg
}

func setupInfra(t *testing.T, cfg *config.Config) *infrastructure.Infrastructure {
	t.Helper()
	infra, err := infrastructure.New(cfg)
	if err != nil {
		t.Fatalf("infrastructure.New() error = %v", err)
	}
	return infra
}

func TestNewModule(t *testing.T) {
	cfg := validConfig(t)
	infra := setupInfra(t, cfg)

	m, err := api.NewModule(cfg, infra)
	if err != nil {
		t.Fatalf("NewModule() error = %v", err)
	}

	if m.Prefix() != "/api" {
		t.Errorf("prefix: got %s, want /api", m.Prefix())
	}
}

func TestNewRuntime(t *testing.T) {
	cfg := validConfig(t)
	infra := setupInfra(t, cfg)

	runtime := api.NewRuntime(cfg, infra)

	if runtime.Pagination.DefaultPageSize != 20 {
		t.Errorf("pagination default page size: got %d, want 20", runtime.Pagination.DefaultPageSize)
	}
	if runtime.Logger == nil || runtime.Logger == infra.Logger {
		t.Error("runtime logger should be scoped to the module")
	}
	if runtime.Database != infra.Database {
		t.Error("runtime database should be shared with infrastructure")
	}
	if runtime.Metrics != infra.Metrics {
		t.Error("runtime metrics registry should be shared with infrastructure")
	}
}

func TestNewDomainInline(t *testing.T) {
	cfg := validConfig(t)
	runtime := api.NewRuntime(cfg, setupInfra(t, cfg))

	domain := api.NewDomain(runtime, cfg)

	if domain.Queue != nil {
		t.Error("queue should be nil without redis")
	}
	if _, ok := domain.Scheduler.(*jobs.Inline); !ok {
		t.Errorf("scheduler = %T, want *jobs.Inline", domain.Scheduler)
	}
	if domain.Sheets == nil || domain.Knowledge == nil || domain.Documents == nil ||
		domain.Physicians == nil || domain.Pipeline == nil {
		t.Error("every domain system should be assembled")
	}

	families, err := runtime.Metrics.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	for _, f := range families {
		if strings.HasPrefix(f.GetName(), "auditor_") {
			return
		}
	}
	t.Error("pipeline metrics should be registered on the infrastructure registry")
}

func TestRoutes(t *testing.T) {
	cfg := validConfig(t)
	infra := setupInfra(t, cfg)

	m, err := api.NewModule(cfg, infra)
	if err != nil {
		t.Fatalf("NewModule() error = %v", err)
	}

	if err := infra.Storage.Upload(context.Background(), "uploads/123456/sheet.txt", bytes.NewBufferString("Жалобы: кашель"), "text/plain"); err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	tests := []struct {
		name   string
		method string
		path   string
		status int
	}{
		{"physician malformed id", "GET", "/api/physicians/not-a-uuid", http.StatusBadRequest},
		{"sheet malformed id", "GET", "/api/sheets/not-a-uuid", http.StatusBadRequest},
		{"storage download", "GET", "/api/storage/download/uploads/123456/sheet.txt", http.StatusOK},
		{"storage missing", "GET", "/api/storage/download/uploads/none.txt", http.StatusNotFound},
		{"jobs without queue", "GET", "/api/jobs/stats", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			m.Serve(rec, httptest.NewRequest(tt.method, tt.path, nil))

			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d: %s", rec.Code, tt.status, rec.Body)
			}
		})
	}
}

func TestStorageDownloadHeaders(t *testing.T) {
	cfg := validConfig(t)
	infra := setupInfra(t, cfg)

	m, err := api.NewModule(cfg, infra)
	if err != nil {
		t.Fatalf("NewModule() error = %v", err)
	}

	if err := infra.Storage.Upload(context.Background(), "uploads/7/scan.pdf", bytes.NewBufferString("%PDF-1.4"), "application/pdf"); err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	rec := httptest.NewRecorder()
	m.Serve(rec, httptest.NewRequest("GET", "/api/storage/download/uploads/7/scan.pdf", nil))

	if got := rec.Header().Get("Content-Type"); got != "application/pdf" {
		t.Errorf("Content-Type = %q, want application/pdf", got)
	}
	if got := rec.Header().Get("Content-Disposition"); got != `attachment; filename="scan.pdf"` {
		t.Errorf("Content-Disposition = %q", got)
	}
	if rec.Body.String() != "%PDF-1.4" {
		t.Errorf("body = %q", rec.Body)
	}
}
