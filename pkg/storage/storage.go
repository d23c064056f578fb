// Package storage archives uploaded advisory sheet files in Azure Blob
// Storage, or in process memory when no connection string is configured.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"sync/atomic"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"

	"github.com/JaimeStill/auditor/pkg/lifecycle"
)

// System stores and retrieves blobs by key. Keys are slash-separated and
// may not contain "..".
type System interface {
	// Start ensures the container exists once the coordinator starts up.
	Start(lc *lifecycle.Coordinator) error
	// Ready reports whether the backend can accept uploads.
	Ready() bool
	Upload(ctx context.Context, key string, reader io.Reader, contentType string) error
	// Download returns ErrNotFound for a missing key. The caller closes the reader.
	Download(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete returns ErrNotFound for a missing key.
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}

type azure struct {
	client    *azblob.Client
	container string
	logger    *slog.Logger
	ready     atomic.Bool
}

// New returns the in-memory backend when cfg has no connection string,
// otherwise an Azure client that is not contacted until Start.
func New(cfg *Config, logger *slog.Logger) (System, error) {
	if cfg.InMemory() {
		return NewMemory(logger), nil
	}

	client, err := azblob.NewClientFromConnectionString(cfg.ConnectionString, nil)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}

	return &azure{
		client:    client,
		container: cfg.ContainerName,
		logger:    logger.With("system", "storage", "container", cfg.ContainerName),
	}, nil
}

func (a *azure) Start(lc *lifecycle.Coordinator) error {
	lc.OnStartup(func() {
		_, err := a.client.CreateContainer(lc.Context(), a.container, nil)
		if err != nil && !bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
			a.logger.Error("container setup failed", "error", err)
			return
		}
		a.ready.Store(true)
		a.logger.Info("container ready")
	})
	return nil
}

func (a *azure) Ready() bool {
	return a.ready.Load()
}

func (a *azure) Upload(ctx context.Context, key string, reader io.Reader, contentType string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	_, err := a.client.UploadStream(ctx, a.container, key, reader, &azblob.UploadStreamOptions{
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: &contentType},
	})
	return blobError("upload", key, err)
}

func (a *azure) Download(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := validateKey(key); err != nil {
		return nil, err
	}

	resp, err := a.client.DownloadStream(ctx, a.container, key, nil)
	if err != nil {
		return nil, blobError("download", key, err)
	}
	return resp.Body, nil
}

func (a *azure) Delete(ctx context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return err
	}

	_, err := a.client.DeleteBlob(ctx, a.container, key, nil)
	return blobError("delete", key, err)
}

func (a *azure) Exists(ctx context.Context, key string) (bool, error) {
	if err := validateKey(key); err != nil {
		return false, err
	}

	_, err := a.client.ServiceClient().
		NewContainerClient(a.container).
		NewBlobClient(key).
		GetProperties(ctx, nil)

	switch err = blobError("stat", key, err); {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

// blobError maps a missing blob to ErrNotFound and wraps everything else
// with the operation and key.
func blobError(op, key string, err error) error {
	switch {
	case err == nil:
		return nil
	case bloberror.HasCode(err, bloberror.BlobNotFound):
		return ErrNotFound
	default:
		return fmt.Errorf("%s blob %s: %w", op, key, err)
	}
}

// Key joins prefix and parts into a storage key.
func Key(prefix string, parts ...string) string {
	return path.Join(append([]string{prefix}, parts...)...)
}

func validateKey(key string) error {
	switch {
	case key == "":
		return ErrEmptyKey
	case strings.Contains(key, ".."):
		return ErrInvalidKey
	}
	return nil
}
