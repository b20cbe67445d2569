// CLAUDE:SUMMARY Top-level service — wires storage, extraction, embedding, index, orchestrators behind one API.
// Package docqa assembles the document question-answering service: PDF
// ingestion with OCR fallback, chunking, vector search, and grounded answer
// synthesis, served over HTTP and MCP.
package docqa

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"

	"github.com/hazyhaar/docqa/chunk"
	"github.com/hazyhaar/docqa/dbopen"
	"github.com/hazyhaar/docqa/docpipe"
	"github.com/hazyhaar/docqa/embed"
	"github.com/hazyhaar/docqa/idgen"
	"github.com/hazyhaar/docqa/internal/answer"
	"github.com/hazyhaar/docqa/internal/blob"
	"github.com/hazyhaar/docqa/internal/index"
	"github.com/hazyhaar/docqa/internal/ingest"
	"github.com/hazyhaar/docqa/internal/qa"
	"github.com/hazyhaar/docqa/internal/store"
	"github.com/hazyhaar/docqa/observability"
	"github.com/hazyhaar/docqa/retry"
	"github.com/hazyhaar/docqa/trace"
)

// Service is the assembled application.
type Service struct {
	cfg    *Config
	logger *slog.Logger
	ids    idgen.Generator

	store  *store.Store
	blobs  *blob.Store
	emb    embed.Embedder
	idx    *index.Index
	events *observability.EventLogger
	orch   *ingest.Orchestrator
	qa     *qa.Service

	traces  *trace.Store
	traceDB *sql.DB
}

// New wires the service from config. Call Start before serving and Close on
// shutdown.
func New(cfg *Config, logger *slog.Logger) (*Service, error) {
	cfg.Defaults()
	if logger == nil {
		logger = slog.Default()
	}

	var traces *trace.Store
	var traceDB *sql.DB
	storeOpts := []dbopen.Option{dbopen.WithSchema(observability.Schema)}
	if cfg.TraceDB != "" {
		db, err := dbopen.Open(cfg.TraceDB, dbopen.WithMkdirAll(), dbopen.WithSchema(trace.Schema))
		if err != nil {
			return nil, fmt.Errorf("open trace db: %w", err)
		}
		traceDB = db
		traces = trace.NewStore(db)
		trace.SetStore(traces)
		storeOpts = append(storeOpts, dbopen.WithDriver("sqlite-trace"))
	}

	st, err := store.Open(cfg.DBPath, storeOpts...)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	blobs, err := blob.NewStore(cfg.BlobDir)
	if err != nil {
		st.DB.Close()
		return nil, fmt.Errorf("open blob store: %w", err)
	}

	embCfg := cfg.Embed
	embCfg.Logger = logger
	emb := embed.New(embCfg)
	idx := index.New(emb.Dimension())
	events := observability.NewEventLogger(st.DB)

	retryPolicy := retry.Policy{
		MaxAttempts: cfg.Ingest.RetryAttempts,
		BaseBackoff: cfg.Ingest.RetryBackoff,
		Logger:      logger,
	}

	extractCfg := cfg.Extract
	extractCfg.OCRRetry = retryPolicy
	extractCfg.Logger = logger
	pipe := docpipe.New(extractCfg)

	var gen answer.Generator
	if cfg.Generator.Model != "" {
		gen, err = answer.NewOpenAIGenerator(cfg.Generator)
		if err != nil {
			st.DB.Close()
			return nil, err
		}
	}

	chunkOpts := chunk.Options{
		MaxChars:     cfg.Chunk.MaxChars,
		OverlapChars: cfg.Chunk.OverlapChars,
	}
	orch := ingest.New(ingest.Config{
		Store:        st,
		Blobs:        blobs,
		Extractor:    pipe,
		Embedder:     emb,
		Index:        idx,
		Events:       events,
		Logger:       logger,
		ChunkOptions: chunkOpts,
		EmbedWorkers: cfg.Ingest.EmbedWorkers,
		EmbedBatch:   cfg.Ingest.EmbedBatch,
		EmbedRetry:   retryPolicy,
	})
	qaSvc := qa.New(qa.Config{
		Store:       st,
		Embedder:    emb,
		Index:       idx,
		Synthesizer: answer.New(gen),
		Events:      events,
		Logger:      logger,
		EmbedRetry:  retryPolicy,
		MinScore:    cfg.Query.MinScore,
	})

	return &Service{
		cfg:     cfg,
		logger:  logger,
		ids:     idgen.UUIDv7(),
		store:   st,
		traces:  traces,
		traceDB: traceDB,
		blobs:   blobs,
		emb:     emb,
		idx:     idx,
		events:  events,
		orch:    orch,
		qa:      qaSvc,
	}, nil
}

// Start rebuilds the vector index from the database, resumes interrupted
// ingestions, and prunes old event rows.
func (s *Service) Start(ctx context.Context) error {
	n, err := s.orch.RebuildIndex(ctx)
	if err != nil {
		return fmt.Errorf("rebuild index: %w", err)
	}
	s.logger.Info("vector index rebuilt", "entries", n)

	if err := s.orch.Recover(ctx); err != nil {
		return fmt.Errorf("recover ingestion: %w", err)
	}

	if s.cfg.EventRetentionDays > 0 {
		if err := observability.Cleanup(ctx, s.store.DB, s.cfg.EventRetentionDays); err != nil {
			s.logger.Warn("event cleanup failed", "error", err)
		}
	}
	return nil
}

// Close drains in-flight ingestion and closes the databases.
func (s *Service) Close(ctx context.Context) error {
	err := s.orch.Shutdown(ctx)
	if cerr := s.store.DB.Close(); err == nil {
		err = cerr
	}
	if s.traces != nil {
		trace.SetStore(nil)
		s.traces.Close()
		if cerr := s.traceDB.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// Upload stores the PDF, creates the document record, and queues ingestion.
func (s *Service) Upload(ctx context.Context, filename string, r io.Reader) (*store.Document, error) {
	docID := s.ids()
	size, err := s.blobs.Put(docID, r)
	if err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}

	doc := &store.Document{
		ID:        docID,
		Filename:  filename,
		Status:    store.StatusUploading,
		SizeBytes: size,
	}
	if err := s.store.CreateDocument(ctx, doc); err != nil {
		s.blobs.Delete(docID)
		return nil, err
	}
	s.events.Log(ctx, observability.Event{
		EventType: observability.EventUpload, EntityID: docID, Action: "upload",
		Details: fmt.Sprintf(`{"filename":%q,"size":%d}`, filename, size), Success: true,
	})

	if err := s.orch.Enqueue(ctx, docID); err != nil {
		return nil, err
	}
	return s.store.GetDocument(ctx, docID)
}

// Document returns one document.
func (s *Service) Document(ctx context.Context, id string) (*store.Document, error) {
	return s.store.GetDocument(ctx, id)
}

// Documents lists all documents, newest first.
func (s *Service) Documents(ctx context.Context) ([]*store.Document, error) {
	return s.store.ListDocuments(ctx)
}

// Delete removes a document everywhere: index, database, blob store.
func (s *Service) Delete(ctx context.Context, id string) error {
	return s.orch.Delete(ctx, id)
}

// Reprocess runs the ingestion pipeline again for a ready or error document.
func (s *Service) Reprocess(ctx context.Context, id string) (*store.Document, error) {
	if err := s.orch.Reprocess(ctx, id); err != nil {
		return nil, err
	}
	return s.store.GetDocument(ctx, id)
}

// Ask answers a question over the corpus with citations.
func (s *Service) Ask(ctx context.Context, req qa.Request) (*answer.Answer, error) {
	return s.qa.Ask(ctx, req)
}

// Search returns ranked passages without synthesis.
func (s *Service) Search(ctx context.Context, req qa.Request) ([]qa.Hit, error) {
	return s.qa.Search(ctx, req)
}

// Stats reports corpus counts plus the live index size.
type Stats struct {
	store.Stats
	IndexEntries   int    `json:"index_entries"`
	EmbedModel     string `json:"embed_model"`
	EmbedDimension int    `json:"embed_dimension"`
}

// GetStats returns corpus and index statistics.
func (s *Service) GetStats(ctx context.Context) (*Stats, error) {
	st, err := s.store.GetStats(ctx)
	if err != nil {
		return nil, err
	}
	return &Stats{
		Stats:          *st,
		IndexEntries:   s.idx.Len(),
		EmbedModel:     s.emb.Model(),
		EmbedDimension: s.idx.Dimension(),
	}, nil
}
