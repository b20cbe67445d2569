package blob

import (
	"os"
	"strings"
	"testing"
)

func TestStore_PutOpenDelete(t *testing.T) {
	s, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	n, err := s.Put("ab12cd", strings.NewReader("%PDF-1.4 fake"))
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if n != 13 {
		t.Errorf("bytes written: got %d", n)
	}

	f, err := s.Open("ab12cd")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	f.Close()

	if !strings.Contains(s.Path("ab12cd"), "/ab/") {
		t.Errorf("path not sharded: %s", s.Path("ab12cd"))
	}

	if err := s.Delete("ab12cd"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Open("ab12cd"); !os.IsNotExist(err) {
		t.Errorf("open after delete: %v", err)
	}
	// Idempotent.
	if err := s.Delete("ab12cd"); err != nil {
		t.Errorf("second delete: %v", err)
	}
}

func TestStore_PutOverwrites(t *testing.T) {
	s, _ := NewStore(t.TempDir())
	if _, err := s.Put("doc1", strings.NewReader("first")); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Put("doc1", strings.NewReader("second version")); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(s.Path("doc1"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "second version" {
		t.Errorf("content: %q", data)
	}
}
