// CLAUDE:SUMMARY Stateless query orchestrator — embed the question, rank chunks, synthesize a cited answer.
// Package qa answers questions over the ingested corpus. Each request is
// independent: embed the query, search the vector index, fetch the chunk
// texts, and hand the ranked passages to synthesis.
package qa

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hazyhaar/docqa/embed"
	"github.com/hazyhaar/docqa/internal/answer"
	"github.com/hazyhaar/docqa/internal/index"
	"github.com/hazyhaar/docqa/internal/store"
	"github.com/hazyhaar/docqa/observability"
	"github.com/hazyhaar/docqa/retry"
)

// ErrEmptyQuery is returned for blank questions.
var ErrEmptyQuery = errors.New("qa: empty query")

// DefaultTopK is the number of passages retrieved when the request does not
// specify one.
const DefaultTopK = 6

// MaxTopK caps client-requested retrieval depth.
const MaxTopK = 50

// Request is one question.
type Request struct {
	Query string `json:"query"`
	// DocumentID restricts retrieval to one document when set.
	DocumentID string `json:"documentId,omitempty"`
	TopK       int    `json:"top_k,omitempty"`
}

// Hit is one raw retrieval result, exposed by Search for callers that want
// passages without synthesis.
type Hit struct {
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"document_id"`
	PageNo     int     `json:"page_no"`
	Text       string  `json:"text"`
	Score      float64 `json:"score"`
}

// Config wires the query orchestrator.
type Config struct {
	Store       *store.Store
	Embedder    embed.Embedder
	Index       *index.Index
	Synthesizer *answer.Synthesizer
	Events      *observability.EventLogger
	Logger      *slog.Logger

	// EmbedRetry bounds retries of transient query-embedding failures.
	EmbedRetry retry.Policy

	// MinScore drops hits scoring below it, so a question with no real
	// support in the corpus gets a no-context answer instead of the least
	// bad passages. 0 keeps everything.
	MinScore float64
}

// Service answers questions. It holds no per-request state.
type Service struct {
	cfg Config
}

// New creates a Service.
func New(cfg Config) *Service {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Service{cfg: cfg}
}

// Ask retrieves passages for the question and synthesizes a cited answer.
func (s *Service) Ask(ctx context.Context, req Request) (*answer.Answer, error) {
	hits, err := s.Search(ctx, req)
	if err != nil {
		return nil, err
	}

	passages := make([]answer.Passage, len(hits))
	for i, h := range hits {
		passages[i] = answer.Passage{
			ChunkID:    h.ChunkID,
			DocumentID: h.DocumentID,
			PageNo:     h.PageNo,
			Text:       h.Text,
			Score:      h.Score,
		}
	}

	ans, err := s.cfg.Synthesizer.Synthesize(ctx, req.Query, passages)
	if err != nil {
		s.cfg.Events.Log(ctx, observability.Event{
			EventType: observability.EventQueryFailed, Action: "synthesize",
			Details: fmt.Sprintf(`{"error":%q}`, err.Error()),
		})
		return nil, err
	}

	eventType := observability.EventQueryServed
	if ans.NoContext {
		eventType = observability.EventQueryNoHit
	}
	s.cfg.Events.Log(ctx, observability.Event{
		EventType: eventType, EntityID: req.DocumentID, Action: "ask",
		Details: fmt.Sprintf(`{"hits":%d}`, len(hits)), Success: true,
	})
	return ans, nil
}

// Search embeds the question and returns the ranked passages without
// synthesis. The document filter is validated against the store so callers
// get a clean not-found instead of a silent empty result.
func (s *Service) Search(ctx context.Context, req Request) ([]Hit, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	topK := req.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}
	if topK > MaxTopK {
		topK = MaxTopK
	}
	if req.DocumentID != "" {
		if _, err := s.cfg.Store.GetDocument(ctx, req.DocumentID); err != nil {
			return nil, err
		}
	}

	var vec []float32
	err := retry.Do(ctx, s.cfg.EmbedRetry, "embed query", func(ctx context.Context) error {
		var rerr error
		vec, rerr = s.cfg.Embedder.Embed(ctx, query)
		return rerr
	})
	if err != nil {
		s.cfg.Events.Log(ctx, observability.Event{
			EventType: observability.EventQueryFailed, Action: "embed",
			Details: fmt.Sprintf(`{"error":%q}`, err.Error()),
		})
		return nil, fmt.Errorf("embed query: %w", err)
	}

	results := s.cfg.Index.Search(vec, topK, req.DocumentID)
	if s.cfg.MinScore > 0 {
		kept := results[:0]
		for _, r := range results {
			if r.Score >= s.cfg.MinScore {
				kept = append(kept, r)
			}
		}
		results = kept
	}
	if len(results) == 0 {
		return nil, nil
	}

	ids := make([]string, len(results))
	for i, r := range results {
		ids[i] = r.ChunkID
	}
	chunks, err := s.cfg.Store.GetChunksByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load chunks: %w", err)
	}

	hits := make([]Hit, 0, len(results))
	for _, r := range results {
		c, ok := chunks[r.ChunkID]
		if !ok {
			// Index briefly ahead of a concurrent delete; skip the orphan.
			continue
		}
		hits = append(hits, Hit{
			ChunkID:    r.ChunkID,
			DocumentID: r.DocumentID,
			PageNo:     r.PageNo,
			Text:       c.Text,
			Score:      r.Score,
		})
	}
	return hits, nil
}
