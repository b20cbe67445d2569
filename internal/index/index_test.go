package index

import (
	"fmt"
	"sync"
	"testing"
)

func vec(dim int, vals ...float32) []float32 {
	v := make([]float32, dim)
	copy(v, vals)
	return v
}

func TestSearch_RanksByCosine(t *testing.T) {
	ix := New(3)
	ix.Add(Entry{ChunkID: "a:000000", DocumentID: "a", PageNo: 1, Vector: []float32{1, 0, 0}})
	ix.Add(Entry{ChunkID: "a:000001", DocumentID: "a", PageNo: 2, Vector: []float32{0.9, 0.1, 0}})
	ix.Add(Entry{ChunkID: "b:000000", DocumentID: "b", PageNo: 1, Vector: []float32{0, 1, 0}})

	got := ix.Search([]float32{1, 0, 0}, 2, "")
	if len(got) != 2 {
		t.Fatalf("results: %d", len(got))
	}
	if got[0].ChunkID != "a:000000" || got[1].ChunkID != "a:000001" {
		t.Errorf("ranking: %v", got)
	}
	if got[0].Score < got[1].Score {
		t.Errorf("scores not descending: %f < %f", got[0].Score, got[1].Score)
	}
	if got[0].PageNo != 1 || got[0].DocumentID != "a" {
		t.Errorf("hit metadata: %+v", got[0])
	}
}

func TestSearch_TieBreaksByAscendingChunkID(t *testing.T) {
	ix := New(2)
	// Parallel vectors: identical cosine scores regardless of magnitude.
	ix.Add(Entry{ChunkID: "doc:000002", DocumentID: "doc", Vector: []float32{2, 0}})
	ix.Add(Entry{ChunkID: "doc:000000", DocumentID: "doc", Vector: []float32{1, 0}})
	ix.Add(Entry{ChunkID: "doc:000001", DocumentID: "doc", Vector: []float32{3, 0}})

	got := ix.Search([]float32{1, 0}, 3, "")
	want := []string{"doc:000000", "doc:000001", "doc:000002"}
	for i, w := range want {
		if got[i].ChunkID != w {
			t.Fatalf("tie order: got %v, want %v", got, want)
		}
	}
}

func TestSearch_DocumentFilterEqualsFilteredRanking(t *testing.T) {
	ix := New(2)
	for doc := 0; doc < 3; doc++ {
		for i := 0; i < 5; i++ {
			id := fmt.Sprintf("doc%d:%06d", doc, i)
			ix.Add(Entry{
				ChunkID:    id,
				DocumentID: fmt.Sprintf("doc%d", doc),
				Vector:     []float32{float32(i + 1), float32(doc)},
			})
		}
	}

	query := []float32{1, 0.3}
	filtered := ix.Search(query, 3, "doc1")

	// Reference: full ranking, then restrict to doc1, then take 3.
	full := ix.Search(query, ix.Len(), "")
	var want []Result
	for _, r := range full {
		if r.DocumentID == "doc1" {
			want = append(want, r)
		}
		if len(want) == 3 {
			break
		}
	}

	if len(filtered) != len(want) {
		t.Fatalf("filtered: %d results, want %d", len(filtered), len(want))
	}
	for i := range want {
		if filtered[i].ChunkID != want[i].ChunkID {
			t.Errorf("position %d: got %s, want %s", i, filtered[i].ChunkID, want[i].ChunkID)
		}
	}
}

func TestSearch_TopKTruncatesAndHandlesSmallCorpus(t *testing.T) {
	ix := New(2)
	ix.Add(Entry{ChunkID: "a:000000", DocumentID: "a", Vector: []float32{1, 0}})

	if got := ix.Search([]float32{1, 0}, 6, ""); len(got) != 1 {
		t.Errorf("small corpus: %d results", len(got))
	}
	if got := ix.Search([]float32{1, 0}, 0, ""); got != nil {
		t.Errorf("topK=0: %v", got)
	}
	if got := ix.Search([]float32{0, 0}, 3, ""); got != nil {
		t.Errorf("zero query vector: %v", got)
	}
	if got := ix.Search([]float32{1, 0, 0}, 3, ""); got != nil {
		t.Errorf("wrong dimension query: %v", got)
	}
}

func TestAdd_DimensionMismatch(t *testing.T) {
	ix := New(3)
	if err := ix.Add(Entry{ChunkID: "x", Vector: []float32{1, 2}}); err == nil {
		t.Fatal("want dimension error")
	}
}

func TestRemoveDocument(t *testing.T) {
	ix := New(2)
	ix.Add(Entry{ChunkID: "a:000000", DocumentID: "a", Vector: []float32{1, 0}})
	ix.Add(Entry{ChunkID: "a:000001", DocumentID: "a", Vector: []float32{0, 1}})
	ix.Add(Entry{ChunkID: "b:000000", DocumentID: "b", Vector: []float32{1, 1}})

	if n := ix.RemoveDocument("a"); n != 2 {
		t.Errorf("removed: %d", n)
	}
	if ix.Len() != 1 {
		t.Errorf("remaining: %d", ix.Len())
	}
	for _, r := range ix.Search([]float32{1, 0}, 10, "") {
		if r.DocumentID == "a" {
			t.Errorf("deleted document still searchable: %+v", r)
		}
	}
}

func TestConcurrentAddSearchRemove(t *testing.T) {
	ix := New(4)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			doc := fmt.Sprintf("doc%d", g%4)
			for i := 0; i < 50; i++ {
				ix.Add(Entry{
					ChunkID:    fmt.Sprintf("%s:%06d", doc, i),
					DocumentID: doc,
					Vector:     vec(4, float32(i), float32(g), 1),
				})
				ix.Search(vec(4, 1, 1, 1), 5, "")
				if i%10 == 9 {
					ix.RemoveDocument(doc)
				}
			}
		}(g)
	}
	wg.Wait()
}
