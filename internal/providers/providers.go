// Package providers wraps the embedding and completion models used by
// knowledge retrieval and sheet verification.
package providers

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/JaimeStill/auditor/internal/extraction"
)

// Embedder produces fixed-dimension vectors for text.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}

// Completer returns a model completion for a single prompt.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// NewEmbedder returns the configured embedder. Without an API key the
// embedder fails every call with ErrNotConfigured.
func NewEmbedder(ctx context.Context, cfg *Config, logger *slog.Logger) (Embedder, error) {
	if cfg.GeminiAPIKey == "" {
		logger.Warn("gemini api key not set, embeddings disabled")
		return unavailable{dims: cfg.Dimensions}, nil
	}
	client, err := newGeminiClient(ctx, cfg.GeminiAPIKey)
	if err != nil {
		return nil, err
	}
	return NewGemini(client.Models, cfg), nil
}

// NewCompleter returns the completer named by cfg.Provider.
func NewCompleter(ctx context.Context, cfg *Config, logger *slog.Logger) (Completer, error) {
	switch cfg.Provider {
	case Anthropic:
		if cfg.AnthropicAPIKey == "" {
			logger.Warn("anthropic api key not set, completions disabled")
			return unavailable{}, nil
		}
		return NewClaude(newAnthropicMessager(cfg.AnthropicAPIKey), cfg), nil
	case Gemini:
		if cfg.GeminiAPIKey == "" {
			logger.Warn("gemini api key not set, completions disabled")
			return unavailable{}, nil
		}
		client, err := newGeminiClient(ctx, cfg.GeminiAPIKey)
		if err != nil {
			return nil, err
		}
		return NewGemini(client.Models, cfg), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}

// SafeEmbed embeds text truncated to maxInput characters. Blank input,
// provider errors, and wrong-length vectors all yield a zero vector of
// the embedder's dimension.
func SafeEmbed(ctx context.Context, e Embedder, text string, maxInput int, logger *slog.Logger) []float32 {
	dims := e.Dimensions()
	text = strings.TrimSpace(text)
	if text == "" {
		return make([]float32, dims)
	}
	if maxInput > 0 {
		text = extraction.Truncate(text, maxInput)
	}

	v, err := e.Embed(ctx, text)
	if err == nil && len(v) != dims {
		err = fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(v), dims)
	}
	if err != nil {
		logger.Warn("embedding failed, using zero vector", "error", err)
		return make([]float32, dims)
	}
	return v
}

// IsZero reports whether every component of v is zero.
func IsZero(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

type unavailable struct {
	dims int
}

func (u unavailable) Embed(context.Context, string) ([]float32, error) {
	return nil, ErrNotConfigured
}

func (u unavailable) Dimensions() int { return u.dims }

func (u unavailable) Complete(context.Context, string) (string, error) {
	return "", ErrNotConfigured
}
