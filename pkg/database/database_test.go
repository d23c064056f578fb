package database_test

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/JaimeStill/auditor/pkg/database"
)

func unstarted(t *testing.T) database.System {
	t.Helper()

	cfg := database.Config{
		Host:            "localhost",
		Port:            5432,
		Name:            "auditor",
		User:            "auditor",
		SSLMode:         "disable",
		MaxOpenConns:    42,
		MaxIdleConns:    7,
		ConnMaxLifetime: "10m",
		ConnTimeout:     "3s",
	}

	sys, err := database.New(&cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	// sql.Open is lazy, so closing never touches the network.
	t.Cleanup(func() { sys.Connection().Close() })
	return sys
}

func TestNewConfiguresPool(t *testing.T) {
	sys := unstarted(t)

	if got := sys.Connection().Stats().MaxOpenConnections; got != 42 {
		t.Errorf("MaxOpenConnections = %d, want 42", got)
	}
}

func TestNotReadyBeforeStart(t *testing.T) {
	sys := unstarted(t)

	if sys.Ready() {
		t.Error("Ready() = true before Start")
	}
	if !errors.Is(sys.Err(), database.ErrNotReady) {
		t.Errorf("Err() = %v, want ErrNotReady", sys.Err())
	}
}
