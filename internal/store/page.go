// CLAUDE:SUMMARY Pages table — replace-all semantics so re-ingestion is idempotent.
package store

import (
	"context"
)

// Page is the extracted text of one PDF page.
type Page struct {
	DocumentID string `json:"document_id"`
	PageNo     int    `json:"page_no"`
	Text       string `json:"text"`
	Method     string `json:"method"`
}

// ReplacePages deletes any existing pages for the document and inserts the
// given set in one transaction. Re-running ingestion therefore never leaves
// stale pages behind.
func (s *Store) ReplacePages(ctx context.Context, docID string, pages []*Page) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM pages WHERE document_id = ?`, docID); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO pages (document_id, page_no, text, method) VALUES (?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, p := range pages {
		if _, err := stmt.ExecContext(ctx, docID, p.PageNo, p.Text, p.Method); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetPages returns all pages for a document, ordered by page number.
func (s *Store) GetPages(ctx context.Context, docID string) ([]*Page, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT document_id, page_no, text, method FROM pages
		WHERE document_id = ? ORDER BY page_no`, docID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pages []*Page
	for rows.Next() {
		p := &Page{}
		if err := rows.Scan(&p.DocumentID, &p.PageNo, &p.Text, &p.Method); err != nil {
			return nil, err
		}
		pages = append(pages, p)
	}
	return pages, rows.Err()
}
