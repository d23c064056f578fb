package providers

import "errors"

var (
	// ErrNotConfigured indicates the provider has no API key.
	ErrNotConfigured = errors.New("provider not configured")
	// ErrEmptyResponse indicates the provider returned no content.
	ErrEmptyResponse = errors.New("provider returned empty response")
	// ErrDimensionMismatch indicates an embedding of unexpected length.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)
