package store

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/hazyhaar/docqa/dbopen"

	_ "modernc.org/sqlite"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	db := dbopen.OpenMemory(t, dbopen.WithSchema(Schema))
	return &Store{DB: db}
}

func TestDocumentLifecycle(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	doc := &Document{ID: "doc1", Filename: "report.pdf", SizeBytes: 1024}
	if err := s.CreateDocument(ctx, doc); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := s.GetDocument(ctx, "doc1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != StatusUploading {
		t.Errorf("initial status: %s", got.Status)
	}

	if err := s.TransitionStatus(ctx, "doc1", StatusUploading, StatusQueued, ""); err != nil {
		t.Fatalf("uploading→queued: %v", err)
	}
	if err := s.TransitionStatus(ctx, "doc1", StatusQueued, StatusProcessing, ""); err != nil {
		t.Fatalf("queued→processing: %v", err)
	}

	// Guarded transition from a stale expected status must conflict.
	err = s.TransitionStatus(ctx, "doc1", StatusQueued, StatusReady, "")
	if !errors.Is(err, ErrConflict) {
		t.Fatalf("stale transition: got %v, want ErrConflict", err)
	}

	if err := s.TransitionStatus(ctx, "doc1", StatusProcessing, StatusError, "extraction failed"); err != nil {
		t.Fatalf("processing→error: %v", err)
	}
	got, _ = s.GetDocument(ctx, "doc1")
	if got.Status != StatusError || got.ErrorReason != "extraction failed" {
		t.Errorf("error state: status=%s reason=%q", got.Status, got.ErrorReason)
	}
}

func TestGetDocument_NotFound(t *testing.T) {
	s := testStore(t)
	if _, err := s.GetDocument(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
	if err := s.TransitionStatus(context.Background(), "nope", StatusQueued, StatusReady, ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("transition missing doc: got %v, want ErrNotFound", err)
	}
}

func TestDeleteDocument_Cascades(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	if err := s.CreateDocument(ctx, &Document{ID: "doc1", Filename: "a.pdf"}); err != nil {
		t.Fatal(err)
	}
	if err := s.ReplacePages(ctx, "doc1", []*Page{
		{PageNo: 1, Text: "page one", Method: "text"},
	}); err != nil {
		t.Fatal(err)
	}
	if err := s.ReplaceChunks(ctx, "doc1", []*Chunk{
		{ChunkIndex: 0, PageNo: 1, Text: "page one", Embedding: []byte{0, 0, 128, 63}, Norm: 1},
	}); err != nil {
		t.Fatal(err)
	}

	if err := s.DeleteDocument(ctx, "doc1"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	pages, _ := s.GetPages(ctx, "doc1")
	if len(pages) != 0 {
		t.Errorf("pages after cascade: %d", len(pages))
	}
	chunks, _ := s.GetChunks(ctx, "doc1")
	if len(chunks) != 0 {
		t.Errorf("chunks after cascade: %d", len(chunks))
	}
	if err := s.DeleteDocument(ctx, "doc1"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete: %v", err)
	}
}

func TestReplacePages_Idempotent(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	if err := s.CreateDocument(ctx, &Document{ID: "doc1", Filename: "a.pdf"}); err != nil {
		t.Fatal(err)
	}

	first := []*Page{
		{PageNo: 1, Text: "old one", Method: "text"},
		{PageNo: 2, Text: "old two", Method: "ocr"},
		{PageNo: 3, Text: "", Method: "failed"},
	}
	if err := s.ReplacePages(ctx, "doc1", first); err != nil {
		t.Fatal(err)
	}
	second := []*Page{{PageNo: 1, Text: "new one", Method: "text"}}
	if err := s.ReplacePages(ctx, "doc1", second); err != nil {
		t.Fatal(err)
	}

	pages, err := s.GetPages(ctx, "doc1")
	if err != nil {
		t.Fatal(err)
	}
	if len(pages) != 1 || pages[0].Text != "new one" {
		t.Errorf("pages after replace: %+v", pages)
	}
}

func TestReplaceChunks_OrderAndCount(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	if err := s.CreateDocument(ctx, &Document{ID: "doc1", Filename: "a.pdf"}); err != nil {
		t.Fatal(err)
	}

	chunks := []*Chunk{
		{ChunkIndex: 0, PageNo: 1, Text: "alpha"},
		{ChunkIndex: 1, PageNo: 1, Text: "beta", OverlapPrev: 5},
		{ChunkIndex: 2, PageNo: 2, Text: "gamma"},
	}
	if err := s.ReplaceChunks(ctx, "doc1", chunks); err != nil {
		t.Fatal(err)
	}

	got, err := s.GetChunks(ctx, "doc1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("chunks: %d", len(got))
	}
	ids := []string{got[0].ID, got[1].ID, got[2].ID}
	if !sort.StringsAreSorted(ids) {
		t.Errorf("chunk ids not in creation order: %v", ids)
	}
	if got[1].OverlapPrev != 5 {
		t.Errorf("overlap: %d", got[1].OverlapPrev)
	}

	doc, _ := s.GetDocument(ctx, "doc1")
	if doc.ChunkCount != 3 {
		t.Errorf("chunk_count: %d", doc.ChunkCount)
	}
}

func TestForEachEmbeddedChunk_OnlyReadyDocs(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	emb := []byte{0, 0, 128, 63}
	for _, tc := range []struct {
		id     string
		status string
	}{
		{"ready1", StatusReady},
		{"errdoc", StatusError},
		{"inflight", StatusProcessing},
	} {
		if err := s.CreateDocument(ctx, &Document{ID: tc.id, Filename: tc.id + ".pdf", Status: tc.status}); err != nil {
			t.Fatal(err)
		}
		if err := s.ReplaceChunks(ctx, tc.id, []*Chunk{
			{ChunkIndex: 0, PageNo: 1, Text: "t", Embedding: emb, Norm: 1},
		}); err != nil {
			t.Fatal(err)
		}
	}
	// A ready doc with a chunk missing its embedding stays out too.
	if err := s.CreateDocument(ctx, &Document{ID: "ready2", Filename: "r2.pdf", Status: StatusReady}); err != nil {
		t.Fatal(err)
	}
	if err := s.ReplaceChunks(ctx, "ready2", []*Chunk{{ChunkIndex: 0, PageNo: 1, Text: "t"}}); err != nil {
		t.Fatal(err)
	}

	var seen []string
	err := s.ForEachEmbeddedChunk(ctx, func(c *Chunk) error {
		seen = append(seen, c.DocumentID)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(seen) != 1 || seen[0] != "ready1" {
		t.Errorf("embedded chunks seen: %v", seen)
	}
}

func TestGetStats(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()

	for _, tc := range []struct{ id, status string }{
		{"a", StatusReady}, {"b", StatusReady}, {"c", StatusError},
	} {
		if err := s.CreateDocument(ctx, &Document{ID: tc.id, Filename: tc.id + ".pdf", Status: tc.status}); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.ReplaceChunks(ctx, "a", []*Chunk{
		{ChunkIndex: 0, PageNo: 1, Text: "x", Embedding: []byte{1, 2, 3, 4}, Norm: 1},
		{ChunkIndex: 1, PageNo: 1, Text: "y"},
	}); err != nil {
		t.Fatal(err)
	}

	st, err := s.GetStats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if st.Documents != 3 || st.ByStatus[StatusReady] != 2 || st.ByStatus[StatusError] != 1 {
		t.Errorf("stats docs: %+v", st)
	}
	if st.Chunks != 2 || st.EmbeddedChunks != 1 {
		t.Errorf("stats chunks: %+v", st)
	}
}
