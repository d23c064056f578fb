package storage

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/JaimeStill/auditor/pkg/lifecycle"
)

type memory struct {
	mu     sync.RWMutex
	blobs  map[string][]byte
	logger *slog.Logger
}

// NewMemory creates a process-local storage system. Blobs are lost on restart.
func NewMemory(logger *slog.Logger) System {
	return &memory{
		blobs:  make(map[string][]byte),
		logger: logger.With("system", "storage"),
	}
}

func (m *memory) Start(lc *lifecycle.Coordinator) error {
	m.logger.Warn("blobs are held in memory and lost on restart")
	return nil
}

func (m *memory) Ready() bool {
	return true
}

func (m *memory) Upload(ctx context.Context, key string, reader io.Reader, contentType string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.blobs[key] = data
	return nil
}

func (m *memory) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.blobs[key]
	if !ok {
		return nil, ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memory) Delete(ctx context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.blobs[key]; !ok {
		return ErrNotFound
	}
	delete(m.blobs, key)
	return nil
}

func (m *memory) Exists(ctx context.Context, key string) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	_, ok := m.blobs[key]
	return ok, nil
}
