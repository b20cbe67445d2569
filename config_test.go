package docqa

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestConfig_Defaults(t *testing.T) {
	cfg := &Config{}
	cfg.Defaults()

	if cfg.ListenAddr != ":8080" {
		t.Errorf("listen addr: %q", cfg.ListenAddr)
	}
	if cfg.DBPath != "docqa.db" || cfg.BlobDir != "blobs" {
		t.Errorf("paths: %q %q", cfg.DBPath, cfg.BlobDir)
	}
	if cfg.MaxUploadMB != 64 {
		t.Errorf("max upload: %d", cfg.MaxUploadMB)
	}
	if cfg.Ingest.EmbedWorkers != 4 || cfg.Ingest.EmbedBatch != 32 {
		t.Errorf("ingest defaults: %+v", cfg.Ingest)
	}
	if cfg.Ingest.RetryAttempts != 3 || cfg.Ingest.RetryBackoff != 500*time.Millisecond {
		t.Errorf("retry defaults: %+v", cfg.Ingest)
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "docqa.yaml")
	data := `
listen_addr: "127.0.0.1:9999"
db_path: /tmp/test.db
max_upload_mb: 8
extract:
  min_native_chars: 30
  ocr_endpoint: http://ocr.local:8000
chunk:
  max_chars: 800
  overlap_chars: 80
embed:
  endpoint: http://embed.local:8001
  model: all-MiniLM-L6-v2
  dimension: 384
generator:
  model: gpt-4o-mini
  temperature: 0.2
ingest:
  embed_workers: 2
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfigFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ListenAddr != "127.0.0.1:9999" || cfg.DBPath != "/tmp/test.db" {
		t.Errorf("parsed: %+v", cfg)
	}
	if cfg.Extract.MinNativeChars != 30 || cfg.Extract.OCREndpoint != "http://ocr.local:8000" {
		t.Errorf("extract: %+v", cfg.Extract)
	}
	if cfg.Chunk.MaxChars != 800 || cfg.Chunk.OverlapChars != 80 {
		t.Errorf("chunk: %+v", cfg.Chunk)
	}
	if cfg.Embed.Model != "all-MiniLM-L6-v2" || cfg.Embed.Dimension != 384 {
		t.Errorf("embed: %+v", cfg.Embed)
	}
	if cfg.Generator.Model != "gpt-4o-mini" {
		t.Errorf("generator: %+v", cfg.Generator)
	}
	// Unset fields still pick up defaults.
	if cfg.BlobDir != "blobs" || cfg.Ingest.EmbedBatch != 32 {
		t.Errorf("defaults not applied: %+v", cfg)
	}
	if cfg.Ingest.EmbedWorkers != 2 {
		t.Errorf("embed workers: %d", cfg.Ingest.EmbedWorkers)
	}

	if _, err := LoadConfigFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("missing file: want error")
	}
}
