package qa

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/hazyhaar/docqa/dbopen"
	"github.com/hazyhaar/docqa/embed"
	"github.com/hazyhaar/docqa/internal/answer"
	"github.com/hazyhaar/docqa/internal/index"
	"github.com/hazyhaar/docqa/internal/store"
	"github.com/hazyhaar/docqa/observability"
	"github.com/hazyhaar/docqa/retry"

	_ "modernc.org/sqlite"
)

type echoGen struct{ calls int }

func (g *echoGen) Generate(_ context.Context, _, userPrompt string) (string, error) {
	g.calls++
	return "synthesized from: " + userPrompt[:20], nil
}

type fixture struct {
	svc *Service
	st  *store.Store
	idx *index.Index
	gen *echoGen
}

// newFixture seeds two ready documents whose chunks are embedded with the
// deterministic embedder, so queries sharing tokens with a chunk rank it
// first.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	db := dbopen.OpenMemory(t, dbopen.WithSchema(store.Schema), dbopen.WithSchema(observability.Schema))
	st := &store.Store{DB: db}
	emb := embed.Deterministic(32)
	idx := index.New(32)
	gen := &echoGen{}

	docs := map[string][]string{
		"biology": {
			"photosynthesis converts light energy into chemical energy",
			"chlorophyll pigment absorbs red and blue light wavelengths",
		},
		"finance": {
			"quarterly revenue grew twelve percent year over year",
			"operating margin improved on lower cloud costs",
		},
	}
	for docID, texts := range docs {
		if err := st.CreateDocument(ctx, &store.Document{ID: docID, Filename: docID + ".pdf", Status: store.StatusReady}); err != nil {
			t.Fatal(err)
		}
		var chunks []*store.Chunk
		for i, text := range texts {
			vec, _ := emb.Embed(ctx, text)
			chunks = append(chunks, &store.Chunk{
				ID: store.ChunkID(docID, i), ChunkIndex: i, PageNo: i + 1, Text: text,
				Embedding: embed.SerializeVector(vec), Norm: embed.CalculateNorm(vec),
			})
		}
		if err := st.ReplaceChunks(ctx, docID, chunks); err != nil {
			t.Fatal(err)
		}
		for _, c := range chunks {
			if err := idx.Add(index.Entry{
				ChunkID: c.ID, DocumentID: docID, PageNo: c.PageNo,
				Vector: embed.DeserializeVector(c.Embedding), Norm: c.Norm,
			}); err != nil {
				t.Fatal(err)
			}
		}
	}

	svc := New(Config{
		Store:       st,
		Embedder:    emb,
		Index:       idx,
		Synthesizer: answer.New(gen),
		Events:      observability.NewEventLogger(db),
		EmbedRetry:  retry.Policy{MaxAttempts: 1},
	})
	return &fixture{svc: svc, st: st, idx: idx, gen: gen}
}

func TestSearch_RanksRelevantChunkFirst(t *testing.T) {
	f := newFixture(t)
	hits, err := f.svc.Search(context.Background(), Request{Query: "photosynthesis light energy"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) == 0 {
		t.Fatal("no hits")
	}
	if hits[0].DocumentID != "biology" || !strings.Contains(hits[0].Text, "photosynthesis") {
		t.Errorf("top hit: %+v", hits[0])
	}
	for i := 1; i < len(hits); i++ {
		if hits[i].Score > hits[i-1].Score {
			t.Errorf("scores not descending at %d", i)
		}
	}
}

func TestSearch_DocumentFilter(t *testing.T) {
	f := newFixture(t)
	hits, err := f.svc.Search(context.Background(), Request{Query: "photosynthesis light", DocumentID: "finance"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	for _, h := range hits {
		if h.DocumentID != "finance" {
			t.Errorf("filter leaked: %+v", h)
		}
	}

	if _, err := f.svc.Search(context.Background(), Request{Query: "q", DocumentID: "missing"}); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("missing filter doc: %v", err)
	}
}

func TestSearch_EmptyQuery(t *testing.T) {
	f := newFixture(t)
	if _, err := f.svc.Search(context.Background(), Request{Query: "   "}); !errors.Is(err, ErrEmptyQuery) {
		t.Fatalf("got %v, want ErrEmptyQuery", err)
	}
}

func TestSearch_TopKDefaultsAndCaps(t *testing.T) {
	f := newFixture(t)
	hits, err := f.svc.Search(context.Background(), Request{Query: "photosynthesis", TopK: 0})
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) > DefaultTopK {
		t.Errorf("default top-k exceeded: %d", len(hits))
	}
	if _, err := f.svc.Search(context.Background(), Request{Query: "photosynthesis", TopK: 10_000}); err != nil {
		t.Errorf("huge top-k: %v", err)
	}
}

func TestAsk_SynthesizesWithCitations(t *testing.T) {
	f := newFixture(t)
	ans, err := f.svc.Ask(context.Background(), Request{Query: "what does chlorophyll absorb?"})
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if ans.NoContext {
		t.Fatal("unexpected no-context")
	}
	if !strings.HasPrefix(ans.Text, "synthesized from:") {
		t.Errorf("answer: %q", ans.Text)
	}
	if len(ans.Citations) == 0 {
		t.Fatal("no citations")
	}
	seen := map[string]bool{}
	for _, c := range ans.Citations {
		key := fmt.Sprintf("%s:%d", c.DocumentID, c.PageNo)
		if seen[key] {
			t.Errorf("duplicate citation: %+v", c)
		}
		seen[key] = true
	}
	if f.gen.calls != 1 {
		t.Errorf("generator calls: %d", f.gen.calls)
	}
}

func TestAsk_EmptyIndexYieldsNoContext(t *testing.T) {
	db := dbopen.OpenMemory(t, dbopen.WithSchema(store.Schema), dbopen.WithSchema(observability.Schema))
	gen := &echoGen{}
	svc := New(Config{
		Store:       &store.Store{DB: db},
		Embedder:    embed.Deterministic(32),
		Index:       index.New(32),
		Synthesizer: answer.New(gen),
		Events:      observability.NewEventLogger(db),
		EmbedRetry:  retry.Policy{MaxAttempts: 1},
	})

	ans, err := svc.Ask(context.Background(), Request{Query: "anything at all"})
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if !ans.NoContext || ans.Text != answer.NoContextText {
		t.Errorf("answer: %+v", ans)
	}
	if gen.calls != 0 {
		t.Error("generator called without context")
	}
}

func TestAsk_BelowMinScoreYieldsNoContext(t *testing.T) {
	f := newFixture(t)
	// Only a near-exact match clears this bar; an off-topic question must
	// come back empty-handed instead of citing the least bad passages.
	f.svc.cfg.MinScore = 0.999

	hits, err := f.svc.Search(context.Background(), Request{Query: "galaxies and dark matter telescopes"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) != 0 {
		t.Fatalf("hits below threshold leaked: %+v", hits)
	}

	ans, err := f.svc.Ask(context.Background(), Request{Query: "galaxies and dark matter telescopes"})
	if err != nil {
		t.Fatalf("ask: %v", err)
	}
	if !ans.NoContext || ans.Text != answer.NoContextText {
		t.Errorf("answer: %+v", ans)
	}
	if f.gen.calls != 0 {
		t.Error("generator called without context")
	}

	// The exact chunk text still clears the bar.
	f.svc.cfg.MinScore = 0.9
	hits, err = f.svc.Search(context.Background(), Request{Query: "photosynthesis converts light energy into chemical energy"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(hits) == 0 || hits[0].DocumentID != "biology" {
		t.Errorf("exact match filtered out: %+v", hits)
	}
}

type brokenEmbedder struct{ embed.Embedder }

func (b *brokenEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return nil, errors.New("embedding backend down")
}

func TestAsk_EmbeddingFailureSurfaces(t *testing.T) {
	f := newFixture(t)
	f.svc.cfg.Embedder = &brokenEmbedder{f.svc.cfg.Embedder}

	_, err := f.svc.Ask(context.Background(), Request{Query: "q"})
	if err == nil || !strings.Contains(err.Error(), "embed query") {
		t.Fatalf("got %v", err)
	}
}
