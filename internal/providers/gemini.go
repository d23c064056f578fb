package providers

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// GeminiModels is the subset of the genai models service used here.
type GeminiModels interface {
	EmbedContent(ctx context.Context, model string, contents []*genai.Content, config *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error)
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiProvider implements Embedder and Completer against the Gemini API.
type GeminiProvider struct {
	models          GeminiModels
	embeddingModel  string
	completionModel string
	dims            int
	temperature     float32
	maxTokens       int32
	cfg             *Config
}

func newGeminiClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return client, nil
}

// NewGemini creates a provider over models.
func NewGemini(models GeminiModels, cfg *Config) *GeminiProvider {
	return &GeminiProvider{
		models:          models,
		embeddingModel:  cfg.EmbeddingModel,
		completionModel: cfg.CompletionModel,
		dims:            cfg.Dimensions,
		temperature:     float32(cfg.Temperature),
		maxTokens:       int32(cfg.MaxTokens),
		cfg:             cfg,
	}
}

func (g *GeminiProvider) Dimensions() int { return g.dims }

func (g *GeminiProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := withTimeout(ctx, g.cfg)
	defer cancel()

	dims := int32(g.dims)
	resp, err := g.models.EmbedContent(
		ctx,
		g.embeddingModel,
		[]*genai.Content{genai.NewContentFromText(text, genai.RoleUser)},
		&genai.EmbedContentConfig{OutputDimensionality: &dims},
	)
	if err != nil {
		return nil, fmt.Errorf("gemini embed: %w", err)
	}
	if resp == nil || len(resp.Embeddings) == 0 || resp.Embeddings[0] == nil {
		return nil, ErrEmptyResponse
	}
	return resp.Embeddings[0].Values, nil
}

func (g *GeminiProvider) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := withTimeout(ctx, g.cfg)
	defer cancel()

	resp, err := g.models.GenerateContent(ctx, g.completionModel, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(g.temperature),
		MaxOutputTokens: g.maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	if resp == nil {
		return "", ErrEmptyResponse
	}

	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func withTimeout(ctx context.Context, cfg *Config) (context.Context, context.CancelFunc) {
	if d := cfg.TimeoutDuration(); d > 0 {
		return context.WithTimeout(ctx, d)
	}
	return context.WithCancel(ctx)
}
