package providers_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"google.golang.org/genai"

	"github.com/JaimeStill/auditor/internal/providers"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func finalized(t *testing.T) *providers.Config {
	t.Helper()
	cfg := &providers.Config{}
	if err := cfg.Finalize(nil); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}
	return cfg
}

type fakeEmbedder struct {
	dims   int
	vector []float32
	err    error
	input  string
	calls  int
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.calls++
	f.input = text
	return f.vector, f.err
}

func (f *fakeEmbedder) Dimensions() int { return f.dims }

func TestSafeEmbed(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		embedder  *fakeEmbedder
		wantZero  bool
		wantCalls int
	}{
		{"blank input", "   ", &fakeEmbedder{dims: 3, vector: []float32{1, 2, 3}}, true, 0},
		{"provider error", "текст", &fakeEmbedder{dims: 3, err: errors.New("boom")}, true, 1},
		{"wrong length", "текст", &fakeEmbedder{dims: 3, vector: []float32{1}}, true, 1},
		{"success", "текст", &fakeEmbedder{dims: 3, vector: []float32{1, 2, 3}}, false, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := providers.SafeEmbed(context.Background(), tt.embedder, tt.text, 8000, discard())

			if len(got) != 3 {
				t.Fatalf("length = %d, want 3", len(got))
			}
			if providers.IsZero(got) != tt.wantZero {
				t.Errorf("IsZero() = %v, want %v", providers.IsZero(got), tt.wantZero)
			}
			if tt.embedder.calls != tt.wantCalls {
				t.Errorf("calls = %d, want %d", tt.embedder.calls, tt.wantCalls)
			}
		})
	}
}

func TestSafeEmbedTruncatesInput(t *testing.T) {
	e := &fakeEmbedder{dims: 1, vector: []float32{1}}
	providers.SafeEmbed(context.Background(), e, strings.Repeat("ж", 9000), 8000, discard())

	if n := utf8.RuneCountInString(e.input); n != 8000 {
		t.Errorf("embedded input length = %d, want 8000", n)
	}
}

type fakeModels struct {
	embedResp    *genai.EmbedContentResponse
	generateResp *genai.GenerateContentResponse
	err          error
	model        string
	dims         int32
	temperature  float32
	hasDeadline  bool
}

func (f *fakeModels) EmbedContent(ctx context.Context, model string, _ []*genai.Content, cfg *genai.EmbedContentConfig) (*genai.EmbedContentResponse, error) {
	f.model = model
	_, f.hasDeadline = ctx.Deadline()
	if cfg != nil && cfg.OutputDimensionality != nil {
		f.dims = *cfg.OutputDimensionality
	}
	return f.embedResp, f.err
}

func (f *fakeModels) GenerateContent(ctx context.Context, model string, _ []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.model = model
	_, f.hasDeadline = ctx.Deadline()
	if cfg != nil && cfg.Temperature != nil {
		f.temperature = *cfg.Temperature
	}
	return f.generateResp, f.err
}

func TestGeminiEmbed(t *testing.T) {
	models := &fakeModels{
		embedResp: &genai.EmbedContentResponse{
			Embeddings: []*genai.ContentEmbedding{{Values: []float32{0.1, 0.2}}},
		},
	}
	g := providers.NewGemini(models, finalized(t))

	got, err := g.Embed(context.Background(), "текст")
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if len(got) != 2 {
		t.Errorf("vector = %v, want two values", got)
	}
	if models.model != "text-embedding-004" || models.dims != 768 {
		t.Errorf("request model=%s dims=%d, want text-embedding-004/768", models.model, models.dims)
	}
	if !models.hasDeadline {
		t.Error("embed call should carry the configured timeout")
	}
	if g.Dimensions() != 768 {
		t.Errorf("Dimensions() = %d, want 768", g.Dimensions())
	}
}

func TestGeminiEmbedEmpty(t *testing.T) {
	g := providers.NewGemini(&fakeModels{embedResp: &genai.EmbedContentResponse{}}, finalized(t))

	if _, err := g.Embed(context.Background(), "текст"); !errors.Is(err, providers.ErrEmptyResponse) {
		t.Errorf("Embed() error = %v, want ErrEmptyResponse", err)
	}
}

func TestGeminiComplete(t *testing.T) {
	models := &fakeModels{
		generateResp: &genai.GenerateContentResponse{
			Candidates: []*genai.Candidate{{
				Content: genai.NewContentFromText(`{"status":"compliant"}`, genai.RoleModel),
			}},
		},
	}
	g := providers.NewGemini(models, finalized(t))

	got, err := g.Complete(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if got != `{"status":"compliant"}` {
		t.Errorf("Complete() = %q", got)
	}
	if models.model != "gemini-2.0-flash" {
		t.Errorf("model = %s, want gemini-2.0-flash", models.model)
	}
	if models.temperature != float32(0.1) {
		t.Errorf("temperature = %v, want 0.1", models.temperature)
	}
}

func TestGeminiCompleteError(t *testing.T) {
	g := providers.NewGemini(&fakeModels{err: errors.New("quota")}, finalized(t))

	if _, err := g.Complete(context.Background(), "prompt"); err == nil {
		t.Error("Complete() should surface provider errors")
	}
}

type fakeMessager struct {
	resp   *anthropic.Message
	err    error
	params anthropic.MessageNewParams
}

func (f *fakeMessager) New(_ context.Context, body anthropic.MessageNewParams, _ ...option.RequestOption) (*anthropic.Message, error) {
	f.params = body
	return f.resp, f.err
}

func TestClaudeComplete(t *testing.T) {
	m := &fakeMessager{
		resp: &anthropic.Message{
			Content: []anthropic.ContentBlockUnion{
				{Type: "text", Text: `{"status":`},
				{Type: "thinking", Text: "ignored"},
				{Type: "text", Text: `"partial"}`},
			},
		},
	}
	cfg := finalized(t)
	cfg.AnthropicModel = "claude-test"
	c := providers.NewClaude(m, cfg)

	got, err := c.Complete(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if got != `{"status":"partial"}` {
		t.Errorf("Complete() = %q", got)
	}
	if string(m.params.Model) != "claude-test" {
		t.Errorf("model = %s, want claude-test", m.params.Model)
	}
	if m.params.MaxTokens != 4096 {
		t.Errorf("max tokens = %d, want 4096", m.params.MaxTokens)
	}
}

func TestClaudeCompleteEmpty(t *testing.T) {
	c := providers.NewClaude(&fakeMessager{resp: &anthropic.Message{}}, finalized(t))

	if _, err := c.Complete(context.Background(), "prompt"); !errors.Is(err, providers.ErrEmptyResponse) {
		t.Errorf("Complete() error = %v, want ErrEmptyResponse", err)
	}
}

func TestUnconfiguredProviders(t *testing.T) {
	cfg := finalized(t)

	e, err := providers.NewEmbedder(context.Background(), cfg, discard())
	if err != nil {
		t.Fatalf("NewEmbedder() error = %v", err)
	}
	if _, err := e.Embed(context.Background(), "x"); !errors.Is(err, providers.ErrNotConfigured) {
		t.Errorf("Embed() error = %v, want ErrNotConfigured", err)
	}
	if got := providers.SafeEmbed(context.Background(), e, "x", 0, discard()); len(got) != 768 || !providers.IsZero(got) {
		t.Error("unconfigured embedder should degrade to a 768-dim zero vector")
	}

	for _, name := range []string{providers.Gemini, providers.Anthropic} {
		cfg.Provider = name
		c, err := providers.NewCompleter(context.Background(), cfg, discard())
		if err != nil {
			t.Fatalf("NewCompleter(%s) error = %v", name, err)
		}
		if _, err := c.Complete(context.Background(), "x"); !errors.Is(err, providers.ErrNotConfigured) {
			t.Errorf("%s Complete() error = %v, want ErrNotConfigured", name, err)
		}
	}
}

func TestConfigFinalize(t *testing.T) {
	t.Setenv("TEST_AI_PROVIDER", "anthropic")
	t.Setenv("TEST_AI_TEMPERATURE", "0.3")

	cfg := &providers.Config{}
	err := cfg.Finalize(&providers.Env{Provider: "TEST_AI_PROVIDER", Temperature: "TEST_AI_TEMPERATURE"})
	if err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}
	if cfg.Provider != providers.Anthropic || cfg.Temperature != 0.3 {
		t.Errorf("env overrides not applied: %+v", cfg)
	}
	if cfg.Dimensions != 768 || cfg.MaxEmbedInput != 8000 {
		t.Errorf("defaults not applied: %+v", cfg)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name string
		cfg  providers.Config
	}{
		{"unknown provider", providers.Config{Provider: "openai"}},
		{"bad timeout", providers.Config{Timeout: "soon"}},
		{"temperature range", providers.Config{Temperature: 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Finalize(nil); err == nil {
				t.Error("Finalize() should fail")
			}
		})
	}
}

func TestConfigMerge(t *testing.T) {
	cfg := finalized(t)
	cfg.Merge(&providers.Config{CompletionModel: "gemini-x", Dimensions: 256})

	if cfg.CompletionModel != "gemini-x" || cfg.Dimensions != 256 {
		t.Errorf("Merge() = %+v", cfg)
	}
	if cfg.EmbeddingModel != "text-embedding-004" {
		t.Errorf("Merge() cleared EmbeddingModel: %q", cfg.EmbeddingModel)
	}
}
