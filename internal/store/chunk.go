// CLAUDE:SUMMARY Chunks table — replace-all insert with embeddings, ordered ids, index rebuild scan.
package store

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Chunk is one overlapping page fragment with its embedding.
type Chunk struct {
	ID          string  `json:"id"`
	DocumentID  string  `json:"document_id"`
	PageNo      int     `json:"page_no"`
	ChunkIndex  int     `json:"chunk_index"`
	Text        string  `json:"text"`
	StartOff    int     `json:"start_off"`
	EndOff      int     `json:"end_off"`
	OverlapPrev int     `json:"overlap_prev"`
	Embedding   []byte  `json:"-"`
	Norm        float64 `json:"-"`
	CreatedAt   int64   `json:"created_at"`
}

// ChunkID builds the canonical chunk id. Zero-padding keeps lexicographic
// order equal to creation order, which the ranking tie-break relies on.
func ChunkID(docID string, index int) string {
	return fmt.Sprintf("%s:%06d", docID, index)
}

// ReplaceChunks deletes any existing chunks for the document and inserts the
// given set in one transaction, then refreshes the document's chunk count.
func (s *Store) ReplaceChunks(ctx context.Context, docID string, chunks []*Chunk) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE document_id = ?`, docID); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (id, document_id, page_no, chunk_index, text, start_off, end_off, overlap_prev, embedding, norm, created_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now().UnixMilli()
	for _, c := range chunks {
		if c.ID == "" {
			c.ID = ChunkID(docID, c.ChunkIndex)
		}
		if c.CreatedAt == 0 {
			c.CreatedAt = now
		}
		if _, err := stmt.ExecContext(ctx,
			c.ID, docID, c.PageNo, c.ChunkIndex, c.Text,
			c.StartOff, c.EndOff, c.OverlapPrev, c.Embedding, c.Norm, c.CreatedAt,
		); err != nil {
			return err
		}
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE documents SET chunk_count = ?, updated_at = ? WHERE id = ?`,
		len(chunks), now, docID); err != nil {
		return err
	}
	return tx.Commit()
}

// GetChunksByIDs returns the chunks for the given ids, keyed by id.
// Missing ids are simply absent from the map.
func (s *Store) GetChunksByIDs(ctx context.Context, ids []string) (map[string]*Chunk, error) {
	if len(ids) == 0 {
		return map[string]*Chunk{}, nil
	}
	placeholders := strings.Repeat("?,", len(ids)-1) + "?"
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, document_id, page_no, chunk_index, text, start_off, end_off, overlap_prev, embedding, norm, created_at
		FROM chunks WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string]*Chunk, len(ids))
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		out[c.ID] = c
	}
	return out, rows.Err()
}

// GetChunks returns all chunks for a document, ordered by chunk index.
func (s *Store) GetChunks(ctx context.Context, docID string) ([]*Chunk, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, document_id, page_no, chunk_index, text, start_off, end_off, overlap_prev, embedding, norm, created_at
		FROM chunks WHERE document_id = ? ORDER BY chunk_index`, docID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanChunks(rows)
}

// ForEachEmbeddedChunk streams every chunk that carries an embedding, for
// rebuilding the in-memory vector index at startup. Only ready documents
// participate: error and in-flight documents must stay invisible to search.
func (s *Store) ForEachEmbeddedChunk(ctx context.Context, fn func(*Chunk) error) error {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT c.id, c.document_id, c.page_no, c.chunk_index, c.text, c.start_off, c.end_off, c.overlap_prev, c.embedding, c.norm, c.created_at
		FROM chunks c
		JOIN documents d ON d.id = c.document_id
		WHERE c.embedding IS NOT NULL AND d.status = 'ready'
		ORDER BY c.id`)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return err
		}
		if err := fn(c); err != nil {
			return err
		}
	}
	return rows.Err()
}

type rowScanner interface{ Scan(...any) error }

func scanChunk(row rowScanner) (*Chunk, error) {
	c := &Chunk{}
	err := row.Scan(&c.ID, &c.DocumentID, &c.PageNo, &c.ChunkIndex, &c.Text,
		&c.StartOff, &c.EndOff, &c.OverlapPrev, &c.Embedding, &c.Norm, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func scanChunks(rows interface {
	rowScanner
	Next() bool
	Err() error
}) ([]*Chunk, error) {
	var chunks []*Chunk
	for rows.Next() {
		c, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}
