// CLAUDE:SUMMARY SQLite database handle for docqa — opens DB with WAL pragmas and applies schema.
// Package store provides the SQLite persistence layer for documents, pages,
// and chunks.
package store

import (
	"database/sql"
	"errors"

	"github.com/hazyhaar/docqa/dbopen"
)

// ErrNotFound is returned when a document does not exist.
var ErrNotFound = errors.New("store: not found")

// ErrConflict is returned when a guarded status transition finds the
// document in a different state than expected.
var ErrConflict = errors.New("store: status conflict")

// Store is the docqa database handle.
type Store struct {
	DB *sql.DB
}

// Open opens (or creates) the docqa SQLite database at path,
// applies pragmas and the schema.
func Open(path string, opts ...dbopen.Option) (*Store, error) {
	allOpts := append([]dbopen.Option{
		dbopen.WithMkdirAll(),
		dbopen.WithSchema(Schema),
	}, opts...)

	db, err := dbopen.Open(path, allOpts...)
	if err != nil {
		return nil, err
	}
	return &Store{DB: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.DB.Close()
}
