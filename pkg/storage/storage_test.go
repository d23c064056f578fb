package storage_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"github.com/JaimeStill/auditor/pkg/storage"
)

func TestFinalizeDefaults(t *testing.T) {
	cfg := storage.Config{}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("finalize failed: %v", err)
	}

	if cfg.ContainerName != "advisory-sheets" {
		t.Errorf("container_name: got %s, want advisory-sheets", cfg.ContainerName)
	}
	if cfg.KeyPrefix != "uploads" {
		t.Errorf("key_prefix: got %s, want uploads", cfg.KeyPrefix)
	}
	if !cfg.InMemory() {
		t.Error("empty connection string should select the in-memory backend")
	}
}

func TestFinalizeEnvOverrides(t *testing.T) {
	t.Setenv("TEST_STORAGE_CONTAINER", "sheets")
	t.Setenv("TEST_STORAGE_CONN", "UseDevelopmentStorage=true")
	t.Setenv("TEST_STORAGE_PREFIX", "raw")

	cfg := storage.Config{}
	err := cfg.Finalize(&storage.Env{
		ContainerName:    "TEST_STORAGE_CONTAINER",
		ConnectionString: "TEST_STORAGE_CONN",
		KeyPrefix:        "TEST_STORAGE_PREFIX",
	})
	if err != nil {
		t.Fatalf("finalize failed: %v", err)
	}

	if cfg.ContainerName != "sheets" || cfg.KeyPrefix != "raw" {
		t.Errorf("got container=%s prefix=%s", cfg.ContainerName, cfg.KeyPrefix)
	}
	if cfg.InMemory() {
		t.Error("connection string from env should select Azure")
	}
}

func TestFinalizeRejectsTraversalPrefix(t *testing.T) {
	cfg := storage.Config{KeyPrefix: "../escape"}
	if err := cfg.Finalize(nil); err == nil {
		t.Fatal("expected error for traversal prefix")
	}
}

func TestMerge(t *testing.T) {
	base := storage.Config{ContainerName: "base", KeyPrefix: "uploads"}
	base.Merge(&storage.Config{ContainerName: "overlay"})

	if base.ContainerName != "overlay" {
		t.Errorf("container_name: got %s, want overlay", base.ContainerName)
	}
	if base.KeyPrefix != "uploads" {
		t.Errorf("key_prefix should remain uploads, got %s", base.KeyPrefix)
	}
}

func TestNewSelectsMemoryBackend(t *testing.T) {
	sys, err := storage.New(&storage.Config{ContainerName: "sheets"}, slog.Default())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if sys == nil {
		t.Fatal("New() returned nil system")
	}
	if !sys.Ready() {
		t.Error("memory backend should be ready without Start")
	}
}

const azuriteConnection = "DefaultEndpointsProtocol=http;AccountName=devstoreaccount1;" +
	"AccountKey=Eby8vdM02xNOcqFlqUwJPLlmEtlCDXJ1OUzFT50uSRZ6IFsuFq2UVErCz4I6tq/K1SZFPTOtr/KBHBeksoGMGw==;" +
	"BlobEndpoint=http://127.0.0.1:10000/devstoreaccount1;"

func TestAzureNotReadyBeforeStart(t *testing.T) {
	cfg := storage.Config{ContainerName: "sheets", ConnectionString: azuriteConnection}
	sys, err := storage.New(&cfg, slog.Default())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if sys.Ready() {
		t.Error("azure backend should not be ready before its container is created")
	}
}

func TestNewInvalidConnectionString(t *testing.T) {
	cfg := storage.Config{ContainerName: "sheets", ConnectionString: "not-a-connection-string"}
	if _, err := storage.New(&cfg, slog.Default()); err == nil {
		t.Fatal("expected error for malformed connection string")
	}
}

func TestMemoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	sys := storage.NewMemory(slog.New(slog.NewTextHandler(io.Discard, nil)))
	key := storage.Key("uploads", "123456", "sheet.pdf")

	if err := sys.Upload(ctx, key, strings.NewReader("%PDF-1.7"), "application/pdf"); err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	exists, err := sys.Exists(ctx, key)
	if err != nil || !exists {
		t.Fatalf("Exists() = %v, %v; want true, nil", exists, err)
	}

	rc, err := sys.Download(ctx, key)
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	data, _ := io.ReadAll(rc)
	rc.Close()
	if string(data) != "%PDF-1.7" {
		t.Errorf("Download() = %q, want %%PDF-1.7", data)
	}

	if err := sys.Delete(ctx, key); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := sys.Delete(ctx, key); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
	if _, err := sys.Download(ctx, key); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("Download() after delete error = %v, want ErrNotFound", err)
	}
}

func TestKeyValidation(t *testing.T) {
	ctx := context.Background()
	sys := storage.NewMemory(slog.New(slog.NewTextHandler(io.Discard, nil)))

	tests := []struct {
		name string
		key  string
		want error
	}{
		{"empty", "", storage.ErrEmptyKey},
		{"traversal", "uploads/../secret", storage.ErrInvalidKey},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := sys.Upload(ctx, tt.key, strings.NewReader("x"), "text/plain")
			if !errors.Is(err, tt.want) {
				t.Errorf("Upload(%q) error = %v, want %v", tt.key, err, tt.want)
			}
		})
	}
}

func TestKey(t *testing.T) {
	if got := storage.Key("uploads", "123456", "sheet.docx"); got != "uploads/123456/sheet.docx" {
		t.Errorf("Key() = %q, want uploads/123456/sheet.docx", got)
	}
}

func TestMapHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"not found", storage.ErrNotFound, http.StatusNotFound},
		{"wrapped not found", fmt.Errorf("op: %w", storage.ErrNotFound), http.StatusNotFound},
		{"empty key", storage.ErrEmptyKey, http.StatusBadRequest},
		{"invalid key", storage.ErrInvalidKey, http.StatusBadRequest},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := storage.MapHTTPStatus(tt.err); got != tt.want {
				t.Errorf("MapHTTPStatus() = %d, want %d", got, tt.want)
			}
		})
	}
}
