// CLAUDE:SUMMARY In-memory cosine vector index — RWMutex map, snapshot ranking, per-document filtering.
// Package index holds chunk embeddings in memory and answers top-k cosine
// similarity queries. The index is rebuilt from the chunks table at startup
// and kept in sync by the ingestion orchestrator.
package index

import (
	"fmt"
	"sort"
	"sync"

	"github.com/hazyhaar/docqa/embed"
)

// Entry is one indexed chunk vector.
type Entry struct {
	ChunkID    string
	DocumentID string
	PageNo     int
	Vector     []float32
	Norm       float64
}

// Result is one ranked search hit.
type Result struct {
	ChunkID    string  `json:"chunk_id"`
	DocumentID string  `json:"document_id"`
	PageNo     int     `json:"page_no"`
	Score      float64 `json:"score"`
}

// Index is a thread-safe in-memory vector index.
type Index struct {
	mu      sync.RWMutex
	dim     int
	entries map[string]Entry // chunk id → entry
}

// New creates an empty index for vectors of the given dimension.
func New(dim int) *Index {
	if dim <= 0 {
		dim = embed.DefaultDimension
	}
	return &Index{dim: dim, entries: make(map[string]Entry)}
}

// Dimension returns the index vector dimension.
func (ix *Index) Dimension() int { return ix.dim }

// Len returns the number of indexed chunks.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.entries)
}

// Add inserts or replaces an entry. The norm is computed when absent.
func (ix *Index) Add(e Entry) error {
	if len(e.Vector) != ix.dim {
		return fmt.Errorf("index: vector dimension %d, want %d", len(e.Vector), ix.dim)
	}
	if e.Norm == 0 {
		e.Norm = embed.CalculateNorm(e.Vector)
	}
	ix.mu.Lock()
	ix.entries[e.ChunkID] = e
	ix.mu.Unlock()
	return nil
}

// RemoveDocument removes every entry of a document and returns the count.
// Used on delete and before re-ingestion.
func (ix *Index) RemoveDocument(docID string) int {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	n := 0
	for id, e := range ix.entries {
		if e.DocumentID == docID {
			delete(ix.entries, id)
			n++
		}
	}
	return n
}

// Search returns the topK entries most similar to query by cosine
// similarity, ranked descending with ties broken by ascending chunk id.
// A non-empty docFilter restricts candidates to that document; the result
// equals filtering the full ranking and then taking the top k.
func (ix *Index) Search(query []float32, topK int, docFilter string) []Result {
	if topK <= 0 || len(query) != ix.dim {
		return nil
	}
	qNorm := embed.CalculateNorm(query)
	if qNorm == 0 {
		return nil
	}

	// Snapshot candidates under the read lock, score outside it.
	ix.mu.RLock()
	candidates := make([]Entry, 0, len(ix.entries))
	for _, e := range ix.entries {
		if docFilter != "" && e.DocumentID != docFilter {
			continue
		}
		candidates = append(candidates, e)
	}
	ix.mu.RUnlock()

	results := make([]Result, 0, len(candidates))
	for _, e := range candidates {
		score := embed.CosineSimilarityOptimized(query, e.Vector, qNorm, e.Norm)
		results = append(results, Result{
			ChunkID:    e.ChunkID,
			DocumentID: e.DocumentID,
			PageNo:     e.PageNo,
			Score:      score,
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ChunkID < results[j].ChunkID
	})

	if len(results) > topK {
		results = results[:topK]
	}
	return results
}
