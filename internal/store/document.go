// CLAUDE:SUMMARY CRUD and guarded status transitions for the documents table.
package store

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Document lifecycle statuses.
const (
	StatusUploading  = "uploading"
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusReady      = "ready"
	StatusError      = "error"
)

// Document is one uploaded PDF and its ingestion state.
type Document struct {
	ID          string `json:"id"`
	Filename    string `json:"filename"`
	Title       string `json:"title,omitempty"`
	Status      string `json:"status"`
	ErrorReason string `json:"error_reason,omitempty"`
	SizeBytes   int64  `json:"size_bytes"`
	PageCount   int    `json:"page_count"`
	ChunkCount  int    `json:"chunk_count"`
	CreatedAt   int64  `json:"created_at"`
	UpdatedAt   int64  `json:"updated_at"`
}

const documentCols = `id, filename, title, status, error_reason, size_bytes, page_count, chunk_count, created_at, updated_at`

func scanDocument(row interface{ Scan(...any) error }) (*Document, error) {
	d := &Document{}
	err := row.Scan(&d.ID, &d.Filename, &d.Title, &d.Status, &d.ErrorReason,
		&d.SizeBytes, &d.PageCount, &d.ChunkCount, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// CreateDocument inserts a new document. Status defaults to uploading.
func (s *Store) CreateDocument(ctx context.Context, d *Document) error {
	now := time.Now().UnixMilli()
	if d.CreatedAt == 0 {
		d.CreatedAt = now
	}
	d.UpdatedAt = now
	if d.Status == "" {
		d.Status = StatusUploading
	}
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO documents (id, filename, title, status, error_reason, size_bytes, page_count, chunk_count, created_at, updated_at)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		d.ID, d.Filename, d.Title, d.Status, d.ErrorReason,
		d.SizeBytes, d.PageCount, d.ChunkCount, d.CreatedAt, d.UpdatedAt)
	return err
}

// GetDocument returns a document by id, or ErrNotFound.
func (s *Store) GetDocument(ctx context.Context, id string) (*Document, error) {
	row := s.DB.QueryRowContext(ctx,
		`SELECT `+documentCols+` FROM documents WHERE id = ?`, id)
	d, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return d, err
}

// ListDocuments returns all documents, newest first.
func (s *Store) ListDocuments(ctx context.Context) ([]*Document, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT `+documentCols+` FROM documents ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// DeleteDocument removes a document; pages and chunks cascade.
// Returns ErrNotFound when the document does not exist.
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// TransitionStatus moves a document from one status to another, guarded by
// the current status: if the row is not in from-status the update does not
// apply and ErrConflict is returned. Transition legality is the caller's
// concern; this only guarantees atomicity against concurrent writers.
func (s *Store) TransitionStatus(ctx context.Context, id, from, to, errorReason string) error {
	res, err := s.DB.ExecContext(ctx, `
		UPDATE documents SET status = ?, error_reason = ?, updated_at = ?
		WHERE id = ? AND status = ?`,
		to, errorReason, time.Now().UnixMilli(), id, from)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, gerr := s.GetDocument(ctx, id); gerr != nil {
			return gerr
		}
		return ErrConflict
	}
	return nil
}

// SetExtraction records title and page count after extraction.
func (s *Store) SetExtraction(ctx context.Context, id, title string, pageCount int) error {
	_, err := s.DB.ExecContext(ctx, `
		UPDATE documents SET title = ?, page_count = ?, updated_at = ?
		WHERE id = ?`,
		title, pageCount, time.Now().UnixMilli(), id)
	return err
}

// Stats aggregates document and chunk counts for the whole corpus.
type Stats struct {
	Documents      int            `json:"documents"`
	ByStatus       map[string]int `json:"by_status"`
	Chunks         int            `json:"chunks"`
	EmbeddedChunks int            `json:"embedded_chunks"`
}

// GetStats returns corpus-level counts.
func (s *Store) GetStats(ctx context.Context) (*Stats, error) {
	st := &Stats{ByStatus: make(map[string]int)}

	rows, err := s.DB.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM documents GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		st.ByStatus[status] = n
		st.Documents += n
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := s.DB.QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(embedding) FROM chunks`).
		Scan(&st.Chunks, &st.EmbeddedChunks); err != nil {
		return nil, err
	}
	return st, nil
}
