package providers

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// Messager is the subset of the Anthropic messages service used here.
type Messager interface {
	New(ctx context.Context, body anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

const claudeSystem = "You review outpatient advisory sheets for compliance with clinical protocols. " +
	"Answer with a single JSON object and no surrounding prose."

// ClaudeProvider implements Completer against the Anthropic messages API.
type ClaudeProvider struct {
	messages    Messager
	model       string
	temperature float64
	maxTokens   int64
	cfg         *Config
}

func newAnthropicMessager(apiKey string) Messager {
	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &client.Messages
}

// NewClaude creates a completer over messages.
func NewClaude(messages Messager, cfg *Config) *ClaudeProvider {
	return &ClaudeProvider{
		messages:    messages,
		model:       cfg.AnthropicModel,
		temperature: cfg.Temperature,
		maxTokens:   int64(cfg.MaxTokens),
		cfg:         cfg,
	}
}

func (c *ClaudeProvider) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := withTimeout(ctx, c.cfg)
	defer cancel()

	resp, err := c.messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		MaxTokens:   c.maxTokens,
		System:      []anthropic.TextBlockParam{{Text: claudeSystem}},
		Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(prompt))},
		Temperature: anthropic.Float(c.temperature),
	})
	if err != nil {
		return "", fmt.Errorf("anthropic messages: %w", err)
	}
	if resp == nil {
		return "", ErrEmptyResponse
	}

	var b strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}

	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
