// CLAUDE:SUMMARY Transport-agnostic embedding client — OpenAI-compatible HTTP backend or deterministic local fallback.
// Package embed converts text to fixed-dimension float32 vectors via any
// OpenAI-compatible embedding server (vLLM, Ollama, ONNX Runtime Server).
//
// The vector dimension is fixed system-wide (default 384, all-MiniLM-L6-v2
// class models) and every response is validated against it: a model change
// that alters the dimension must fail loudly, because vectors of different
// dimensions cannot be compared.
//
// Usage:
//
//	emb := embed.New(embed.Config{
//	    Endpoint:  "http://localhost:8003",
//	    Model:     "all-MiniLM-L6-v2",
//	    Dimension: 384,
//	})
//	vec, err := emb.Embed(ctx, "What is photosynthesis?")
package embed

import (
	"context"
	"log/slog"
	"time"
)

// DefaultDimension is the system-wide vector dimension.
const DefaultDimension = 384

// Embedder converts text to vectors.
type Embedder interface {
	// Embed returns the embedding vector for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns embeddings for multiple texts in one HTTP call.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the fixed vector dimension.
	Dimension() int

	// Model returns the model name.
	Model() string
}

// Config configures the embedding client.
type Config struct {
	// Endpoint is the base URL of the embedding server. If empty, a
	// deterministic local embedder is returned (tests, offline runs).
	Endpoint string `json:"endpoint" yaml:"endpoint"`

	// Model is the model name sent in the request.
	Model string `json:"model" yaml:"model"`

	// Dimension is the required vector dimension. Default: 384.
	Dimension int `json:"dimension" yaml:"dimension"`

	// BatchSize is the maximum number of texts per HTTP request. Default: 32.
	BatchSize int `json:"batch_size" yaml:"batch_size"`

	// Timeout per HTTP request. Default: 30s.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// Logger for debug/error messages. Defaults to slog.Default().
	Logger *slog.Logger `json:"-" yaml:"-"`
}

func (c *Config) defaults() {
	if c.Dimension <= 0 {
		c.Dimension = DefaultDimension
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 32
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// New creates an Embedder from config. An empty Endpoint returns the
// deterministic local embedder at the configured dimension.
func New(cfg Config) Embedder {
	cfg.defaults()
	if cfg.Endpoint == "" {
		return Deterministic(cfg.Dimension)
	}
	return newClient(cfg)
}

// Error is a typed embedding failure.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return "embed: " + e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }
