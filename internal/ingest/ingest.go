// CLAUDE:SUMMARY Ingestion orchestrator — drives the document FSM through extraction, chunking, embedding, indexing.
// Package ingest runs the document ingestion pipeline and owns the document
// lifecycle: uploading → queued → processing → ready | error, with reprocess
// looping ready/error back through queued.
//
// Each document processes on its own goroutine with its own cancelable
// context. Cancellation (explicit or via shutdown) lands the document in the
// terminal error status so it never appears stuck in processing after a
// restart.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hazyhaar/docqa/chunk"
	"github.com/hazyhaar/docqa/docpipe"
	"github.com/hazyhaar/docqa/embed"
	"github.com/hazyhaar/docqa/internal/blob"
	"github.com/hazyhaar/docqa/internal/index"
	"github.com/hazyhaar/docqa/internal/store"
	"github.com/hazyhaar/docqa/observability"
	"github.com/hazyhaar/docqa/retry"
)

// Extractor produces per-page text from a PDF file. *docpipe.Pipeline is
// the production implementation.
type Extractor interface {
	Extract(ctx context.Context, path string) (*docpipe.Result, error)
}

// Config wires the orchestrator's dependencies.
type Config struct {
	Store     *store.Store
	Blobs     *blob.Store
	Extractor Extractor
	Embedder  embed.Embedder
	Index     *index.Index
	Events    *observability.EventLogger
	Logger    *slog.Logger

	// ChunkOptions control page chunking. Zero values use chunk defaults.
	ChunkOptions chunk.Options

	// EmbedWorkers bounds concurrent embedding batches. Default: 4.
	EmbedWorkers int

	// EmbedBatch is the number of chunks per embedding call. Default: 32.
	EmbedBatch int

	// EmbedRetry bounds retries of transient embedding failures.
	EmbedRetry retry.Policy
}

// Orchestrator runs document ingestion.
type Orchestrator struct {
	cfg Config

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
	wg      sync.WaitGroup
	closed  bool
}

// New creates an Orchestrator.
func New(cfg Config) *Orchestrator {
	if cfg.EmbedWorkers <= 0 {
		cfg.EmbedWorkers = 4
	}
	if cfg.EmbedBatch <= 0 {
		cfg.EmbedBatch = 32
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Orchestrator{
		cfg:     cfg,
		cancels: make(map[string]context.CancelFunc),
	}
}

// Enqueue moves an uploaded document to queued and starts processing it in
// the background. Illegal for documents that are not in uploading.
func (o *Orchestrator) Enqueue(ctx context.Context, docID string) error {
	return o.queueFrom(ctx, docID, store.StatusUploading, observability.EventQueued)
}

// Reprocess re-queues a ready or error document and runs the full pipeline
// again. Results are replaced wholesale, so reprocessing is idempotent.
func (o *Orchestrator) Reprocess(ctx context.Context, docID string) error {
	doc, err := o.cfg.Store.GetDocument(ctx, docID)
	if err != nil {
		return err
	}
	if !CanTransition(doc.Status, store.StatusQueued) {
		return &InvalidTransitionError{DocumentID: docID, From: doc.Status, To: store.StatusQueued}
	}
	return o.queueFrom(ctx, docID, doc.Status, observability.EventReprocess)
}

func (o *Orchestrator) queueFrom(ctx context.Context, docID, from, event string) error {
	if !CanTransition(from, store.StatusQueued) {
		return &InvalidTransitionError{DocumentID: docID, From: from, To: store.StatusQueued}
	}
	if err := o.cfg.Store.TransitionStatus(ctx, docID, from, store.StatusQueued, ""); err != nil {
		return err
	}
	o.cfg.Events.Log(ctx, observability.Event{
		EventType: event, EntityID: docID, Action: "queue", Success: true,
	})
	o.start(docID)
	return nil
}

// start registers a cancelable context for the document and launches the
// pipeline goroutine. A document already in flight is left alone.
func (o *Orchestrator) start(docID string) {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	if _, inFlight := o.cancels[docID]; inFlight {
		o.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	o.cancels[docID] = cancel
	o.wg.Add(1)
	o.mu.Unlock()

	go func() {
		defer o.wg.Done()
		defer func() {
			o.mu.Lock()
			delete(o.cancels, docID)
			o.mu.Unlock()
			cancel()
		}()
		o.process(ctx, docID)
	}()
}

// Cancel aborts in-flight processing for the document. Returns false when
// nothing was in flight. The document lands in the error status with a
// cancellation reason.
func (o *Orchestrator) Cancel(docID string) bool {
	o.mu.Lock()
	cancel, ok := o.cancels[docID]
	o.mu.Unlock()
	if ok {
		cancel()
	}
	return ok
}

// Delete cancels any in-flight processing, removes the document from the
// index, the database (pages and chunks cascade), and the blob store.
func (o *Orchestrator) Delete(ctx context.Context, docID string) error {
	o.Cancel(docID)
	o.cfg.Index.RemoveDocument(docID)
	if err := o.cfg.Store.DeleteDocument(ctx, docID); err != nil {
		return err
	}
	if err := o.cfg.Blobs.Delete(docID); err != nil {
		o.cfg.Logger.Warn("blob delete failed", "document_id", docID, "error", err)
	}
	o.cfg.Events.Log(ctx, observability.Event{
		EventType: observability.EventDeleted, EntityID: docID, Action: "delete", Success: true,
	})
	return nil
}

// RebuildIndex loads every embedded chunk of ready documents into the
// vector index. Called once at startup.
func (o *Orchestrator) RebuildIndex(ctx context.Context) (int, error) {
	n := 0
	err := o.cfg.Store.ForEachEmbeddedChunk(ctx, func(c *store.Chunk) error {
		vec := embed.DeserializeVector(c.Embedding)
		if err := o.cfg.Index.Add(index.Entry{
			ChunkID:    c.ID,
			DocumentID: c.DocumentID,
			PageNo:     c.PageNo,
			Vector:     vec,
			Norm:       c.Norm,
		}); err != nil {
			return fmt.Errorf("chunk %s: %w", c.ID, err)
		}
		n++
		return nil
	})
	return n, err
}

// Recover restarts ingestion for documents a previous run left in queued or
// processing. Called once at startup, after RebuildIndex.
func (o *Orchestrator) Recover(ctx context.Context) error {
	docs, err := o.cfg.Store.ListDocuments(ctx)
	if err != nil {
		return err
	}
	for _, d := range docs {
		switch d.Status {
		case store.StatusProcessing:
			// The owning goroutine is gone; re-queue.
			if err := o.cfg.Store.TransitionStatus(ctx, d.ID, store.StatusProcessing, store.StatusQueued, ""); err != nil {
				o.cfg.Logger.Warn("recover requeue failed", "document_id", d.ID, "error", err)
				continue
			}
			o.start(d.ID)
		case store.StatusQueued:
			o.start(d.ID)
		}
	}
	return nil
}

// Shutdown cancels all in-flight documents and waits for their goroutines.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.mu.Lock()
	o.closed = true
	for _, cancel := range o.cancels {
		cancel()
	}
	o.mu.Unlock()

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// process runs the full pipeline for one queued document.
func (o *Orchestrator) process(ctx context.Context, docID string) {
	log := o.cfg.Logger.With("document_id", docID)

	if err := o.cfg.Store.TransitionStatus(ctx, docID, store.StatusQueued, store.StatusProcessing, ""); err != nil {
		if ctx.Err() != nil {
			// Cancelled before the claim; the document is still queued.
			o.failFrom(docID, store.StatusQueued, "cancelled", log)
			return
		}
		log.Warn("could not claim document", "error", err)
		return
	}
	o.cfg.Events.Log(ctx, observability.Event{
		EventType: observability.EventProcessing, EntityID: docID, Action: "extract", Success: true,
	})
	started := time.Now()

	res, err := o.cfg.Extractor.Extract(ctx, o.cfg.Blobs.Path(docID))
	if err != nil {
		o.fail(docID, reasonForError(err), log)
		return
	}

	pages := make([]*store.Page, 0, len(res.Pages))
	for _, p := range res.Pages {
		pages = append(pages, &store.Page{PageNo: p.PageNo, Text: p.Text, Method: p.Method})
	}
	if err := o.cfg.Store.ReplacePages(ctx, docID, pages); err != nil {
		o.fail(docID, reasonForError(err), log)
		return
	}
	if err := o.cfg.Store.SetExtraction(ctx, docID, res.Title, res.PageCount); err != nil {
		o.fail(docID, reasonForError(err), log)
		return
	}

	chunks := o.chunkPages(docID, res.Pages)
	if len(chunks) == 0 {
		o.fail(docID, "no text content", log)
		return
	}

	embedded, err := o.embedChunks(ctx, chunks)
	if err != nil {
		o.fail(docID, reasonForError(err), log)
		return
	}
	chunks = embedded

	if err := o.cfg.Store.ReplaceChunks(ctx, docID, chunks); err != nil {
		o.fail(docID, reasonForError(err), log)
		return
	}

	// Swap the document's index entries. Stale entries are removed first so
	// superseded chunks never resurface; a concurrent search may briefly see
	// a partial set of the new ones until the adds finish.
	o.cfg.Index.RemoveDocument(docID)
	for _, c := range chunks {
		if err := o.cfg.Index.Add(index.Entry{
			ChunkID:    c.ID,
			DocumentID: docID,
			PageNo:     c.PageNo,
			Vector:     embed.DeserializeVector(c.Embedding),
			Norm:       c.Norm,
		}); err != nil {
			o.fail(docID, reasonForError(err), log)
			return
		}
	}

	if err := o.cfg.Store.TransitionStatus(ctx, docID, store.StatusProcessing, store.StatusReady, ""); err != nil {
		if ctx.Err() != nil {
			// Cancelled after the work was done but before the flip.
			o.fail(docID, "cancelled", log)
			return
		}
		log.Error("could not mark ready", "error", err)
		return
	}
	o.cfg.Events.Log(context.Background(), observability.Event{
		EventType: observability.EventReady, EntityID: docID, Action: "ingest",
		Details: fmt.Sprintf(`{"pages":%d,"chunks":%d,"elapsed_ms":%d}`,
			res.PageCount, len(chunks), time.Since(started).Milliseconds()),
		Success: true,
	})
	log.Info("document ready", "pages", res.PageCount, "chunks", len(chunks),
		"elapsed", time.Since(started))
}

// chunkPages splits every usable page, numbering chunks sequentially across
// the whole document so chunk ids order by creation.
func (o *Orchestrator) chunkPages(docID string, pages []docpipe.Page) []*store.Chunk {
	var chunks []*store.Chunk
	seq := 0
	for _, p := range pages {
		if p.Method == docpipe.MethodFailed {
			continue
		}
		for _, c := range chunk.Split(p.Text, o.cfg.ChunkOptions) {
			chunks = append(chunks, &store.Chunk{
				ID:          store.ChunkID(docID, seq),
				DocumentID:  docID,
				PageNo:      p.PageNo,
				ChunkIndex:  seq,
				Text:        c.Text,
				StartOff:    c.Start,
				EndOff:      c.End,
				OverlapPrev: c.OverlapPrev,
			})
			seq++
		}
	}
	return chunks
}

// embedChunks embeds all chunks with bounded concurrency, fan-out per batch.
// A batch whose retries exhaust is dropped: its chunks stay without an
// embedding and the survivors are returned. The error is non-nil only on
// cancellation or when not a single chunk embedded.
func (o *Orchestrator) embedChunks(ctx context.Context, chunks []*store.Chunk) ([]*store.Chunk, error) {
	sem := make(chan struct{}, o.cfg.EmbedWorkers)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var lastErr error

	for start := 0; start < len(chunks); start += o.cfg.EmbedBatch {
		end := start + o.cfg.EmbedBatch
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			wg.Wait()
			return nil, ctx.Err()
		}

		wg.Add(1)
		go func(batch []*store.Chunk) {
			defer wg.Done()
			defer func() { <-sem }()

			texts := make([]string, len(batch))
			for i, c := range batch {
				texts[i] = c.Text
			}

			var vecs [][]float32
			err := retry.Do(ctx, o.cfg.EmbedRetry, "embed batch", func(ctx context.Context) error {
				var rerr error
				vecs, rerr = o.cfg.Embedder.EmbedBatch(ctx, texts)
				return rerr
			})
			if err != nil {
				mu.Lock()
				lastErr = err
				mu.Unlock()
				o.cfg.Logger.Warn("embedding batch dropped",
					"document_id", batch[0].DocumentID, "chunks", len(batch), "error", err)
				return
			}
			for i, c := range batch {
				c.Embedding = embed.SerializeVector(vecs[i])
				c.Norm = embed.CalculateNorm(vecs[i])
			}
		}(batch)
	}

	wg.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	embedded := make([]*store.Chunk, 0, len(chunks))
	for _, c := range chunks {
		if len(c.Embedding) > 0 {
			embedded = append(embedded, c)
		}
	}
	if len(embedded) == 0 {
		return nil, lastErr
	}
	if dropped := len(chunks) - len(embedded); dropped > 0 {
		o.cfg.Logger.Warn("document embedded partially",
			"document_id", chunks[0].DocumentID, "embedded", len(embedded), "dropped", dropped)
	}
	return embedded, nil
}

// fail lands a processing document in the terminal error status.
func (o *Orchestrator) fail(docID, reason string, log *slog.Logger) {
	o.failFrom(docID, store.StatusProcessing, reason, log)
}

// failFrom is fail with an explicit current status, for documents cancelled
// before the processing claim. It runs on a fresh context: the document
// context may already be cancelled, and the status write must still go
// through.
func (o *Orchestrator) failFrom(docID, from, reason string, log *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := o.cfg.Store.TransitionStatus(ctx, docID, from, store.StatusError, reason); err != nil {
		log.Error("could not mark error", "reason", reason, "error", err)
		return
	}
	o.cfg.Events.Log(ctx, observability.Event{
		EventType: observability.EventError, EntityID: docID, Action: "ingest",
		Details: fmt.Sprintf(`{"reason":%q}`, reason), Success: false,
	})
	log.Warn("ingestion failed", "reason", reason)
}

// reasonForError maps pipeline errors to the stored error reason.
func reasonForError(err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return "cancelled"
	case errors.Is(err, docpipe.ErrCorruptPDF):
		return "corrupt PDF"
	case errors.Is(err, docpipe.ErrNoText):
		return "no text content"
	default:
		return err.Error()
	}
}
