// CLAUDE:SUMMARY Service configuration — YAML file plus defaults for storage, extraction, embedding, generation.
package docqa

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/docqa/docpipe"
	"github.com/hazyhaar/docqa/embed"
	"github.com/hazyhaar/docqa/internal/answer"
)

// Config is the full service configuration. All fields have working
// defaults; an empty config runs a local, offline instance.
type Config struct {
	// ListenAddr for the HTTP API. Default: ":8080".
	ListenAddr string `yaml:"listen_addr"`

	// DBPath is the SQLite database file. Default: "docqa.db".
	DBPath string `yaml:"db_path"`

	// BlobDir holds the uploaded PDF files. Default: "blobs".
	BlobDir string `yaml:"blob_dir"`

	// MaxUploadMB caps a single PDF upload. Default: 64.
	MaxUploadMB int64 `yaml:"max_upload_mb"`

	// Extract configures PDF text extraction and the OCR fallback.
	Extract docpipe.Config `yaml:"extract"`

	// Chunk controls page chunking.
	Chunk ChunkConfig `yaml:"chunk"`

	// Embed configures the embedding backend. An empty endpoint selects the
	// deterministic local embedder.
	Embed embed.Config `yaml:"embed"`

	// Generator configures answer synthesis. An empty model selects the
	// extractive fallback.
	Generator answer.GeneratorConfig `yaml:"generator"`

	// Ingest tunes the ingestion pipeline.
	Ingest IngestConfig `yaml:"ingest"`

	// Query tunes retrieval.
	Query QueryConfig `yaml:"query"`

	// EventRetentionDays prunes old event rows at startup. 0 keeps all.
	EventRetentionDays int `yaml:"event_retention_days"`

	// TraceDB enables SQL tracing when set: every query against the main
	// database is logged and persisted to this separate SQLite file.
	TraceDB string `yaml:"trace_db"`
}

// ChunkConfig mirrors chunk.Options for the YAML surface.
type ChunkConfig struct {
	MaxChars     int `yaml:"max_chars"`
	OverlapChars int `yaml:"overlap_chars"`
}

// QueryConfig tunes retrieval for questions and searches.
type QueryConfig struct {
	// MinScore drops retrieval hits below this cosine similarity. 0 keeps
	// everything.
	MinScore float64 `yaml:"min_score"`
}

// IngestConfig tunes embedding concurrency and retries.
type IngestConfig struct {
	EmbedWorkers  int           `yaml:"embed_workers"`
	EmbedBatch    int           `yaml:"embed_batch"`
	RetryAttempts int           `yaml:"retry_attempts"`
	RetryBackoff  time.Duration `yaml:"retry_backoff"`
}

// Defaults fills unset fields. Nested configs carry their own defaults and
// are left to their packages.
func (c *Config) Defaults() {
	if c.ListenAddr == "" {
		c.ListenAddr = ":8080"
	}
	if c.DBPath == "" {
		c.DBPath = "docqa.db"
	}
	if c.BlobDir == "" {
		c.BlobDir = "blobs"
	}
	if c.MaxUploadMB <= 0 {
		c.MaxUploadMB = 64
	}
	if c.Ingest.EmbedWorkers <= 0 {
		c.Ingest.EmbedWorkers = 4
	}
	if c.Ingest.EmbedBatch <= 0 {
		c.Ingest.EmbedBatch = 32
	}
	if c.Ingest.RetryAttempts <= 0 {
		c.Ingest.RetryAttempts = 3
	}
	if c.Ingest.RetryBackoff <= 0 {
		c.Ingest.RetryBackoff = 500 * time.Millisecond
	}
}

// LoadConfigFile reads a YAML config file and applies defaults.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.Defaults()
	return cfg, nil
}
