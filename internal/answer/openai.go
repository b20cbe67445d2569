// CLAUDE:SUMMARY Chat-completions Generator — openai-go client against any OpenAI-compatible endpoint.
package answer

import (
	"context"
	"fmt"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// GeneratorConfig configures the chat-completions generator.
type GeneratorConfig struct {
	// BaseURL of an OpenAI-compatible API, e.g. a local vLLM server.
	// Empty uses the official endpoint.
	BaseURL string `json:"base_url" yaml:"base_url"`

	// APIKey for the endpoint. Local servers usually accept anything.
	APIKey string `json:"api_key" yaml:"api_key"`

	// Model name, e.g. "gpt-4o-mini" or a local model id.
	Model string `json:"model" yaml:"model"`

	// MaxTokens caps the generated answer length. Default: 512.
	MaxTokens int `json:"max_tokens" yaml:"max_tokens"`

	// Temperature for generation. Grounded QA wants it low. Default: 0.1.
	Temperature float64 `json:"temperature" yaml:"temperature"`

	// Timeout per request. Default: 120s.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
}

// OpenAIGenerator implements Generator over the chat completions API.
type OpenAIGenerator struct {
	client      openai.Client
	model       string
	maxTokens   int64
	temperature float64
}

// NewOpenAIGenerator creates a Generator from config.
func NewOpenAIGenerator(cfg GeneratorConfig) (*OpenAIGenerator, error) {
	if cfg.Model == "" {
		return nil, fmt.Errorf("generator: model is required")
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 512
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = 0.1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithRequestTimeout(cfg.Timeout),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAIGenerator{
		client:      openai.NewClient(opts...),
		model:       cfg.Model,
		maxTokens:   int64(cfg.MaxTokens),
		temperature: cfg.Temperature,
	}, nil
}

// Generate runs one chat completion and returns the first choice.
func (g *OpenAIGenerator) Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	resp, err := g.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(g.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(userPrompt),
		},
		MaxTokens:   openai.Int(g.maxTokens),
		Temperature: openai.Float(g.temperature),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion: no choices returned")
	}
	return resp.Choices[0].Message.Content, nil
}
