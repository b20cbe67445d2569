// CLAUDE:SUMMARY Filesystem blob store for uploaded PDFs — sharded by document id, atomic writes.
// Package blob stores uploaded document files on disk.
package blob

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Store keeps document files under a root directory, sharded by the first
// two characters of the document id to keep directories small.
type Store struct {
	root string
}

// NewStore creates a Store rooted at dir, creating it if needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("blob root: %w", err)
	}
	return &Store{root: dir}, nil
}

// Path returns the on-disk path for a document id.
func (s *Store) Path(docID string) string {
	shard := "00"
	if len(docID) >= 2 {
		shard = docID[:2]
	}
	return filepath.Join(s.root, shard, docID+".pdf")
}

// Put streams r to the file for docID. The write goes through a temp file
// and a rename so a crash never leaves a half-written PDF at the final path.
func (s *Store) Put(docID string, r io.Reader) (int64, error) {
	path := s.Path(docID)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return 0, fmt.Errorf("blob shard: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+docID+".*")
	if err != nil {
		return 0, fmt.Errorf("blob temp: %w", err)
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, r)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return 0, fmt.Errorf("blob write: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return 0, fmt.Errorf("blob rename: %w", err)
	}
	return n, nil
}

// Open opens the stored file for docID.
func (s *Store) Open(docID string) (*os.File, error) {
	return os.Open(s.Path(docID))
}

// Delete removes the stored file for docID. Missing files are not an error:
// deletion must be idempotent.
func (s *Store) Delete(docID string) error {
	err := os.Remove(s.Path(docID))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("blob delete: %w", err)
	}
	return nil
}
