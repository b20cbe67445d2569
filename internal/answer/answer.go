// CLAUDE:SUMMARY Answer synthesis from retrieved passages — grounded prompt, deduplicated citations, no-context guard.
// Package answer turns ranked passages into a grounded answer with citations.
package answer

import (
	"context"
	"fmt"
	"strings"
)

// Generator produces text from a system and user prompt. The production
// implementation talks to an OpenAI-compatible chat API; tests substitute a
// canned one.
type Generator interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Passage is one ranked retrieval hit handed to synthesis.
type Passage struct {
	ChunkID    string
	DocumentID string
	PageNo     int
	Text       string
	Score      float64
}

// Citation points at a source page. One citation per (document, page) pair,
// ordered by first appearance in the ranking.
type Citation struct {
	DocumentID string `json:"documentId"`
	PageNo     int    `json:"pageNo"`
	Snippet    string `json:"snippet,omitempty"`
}

// Answer is the synthesis result.
type Answer struct {
	Text      string     `json:"answer"`
	Citations []Citation `json:"citations"`
	NoContext bool       `json:"noContext"`
}

// SynthesisError wraps a generation failure so callers can distinguish it
// from retrieval problems.
type SynthesisError struct {
	Err error
}

func (e *SynthesisError) Error() string { return "answer synthesis: " + e.Err.Error() }
func (e *SynthesisError) Unwrap() error { return e.Err }

// NoContextText is returned verbatim when retrieval produced nothing usable.
const NoContextText = "I could not find relevant information in the available documents to answer this question."

const systemPrompt = `You are a question answering assistant. Answer using ONLY the provided context passages. If the context does not contain the answer, say so plainly. Do not invent facts, names, or numbers that are not in the passages. Keep the answer concise.`

const snippetLen = 160

// Synthesizer builds grounded answers from passages.
type Synthesizer struct {
	gen Generator
}

// New creates a Synthesizer backed by gen. A nil gen falls back to
// extractive mode: the top passages are returned verbatim instead of a
// generated answer, so the service stays usable without a chat model.
func New(gen Generator) *Synthesizer {
	return &Synthesizer{gen: gen}
}

// Synthesize generates an answer for the question from the ranked passages.
// Empty passages short-circuit to the no-context answer without calling the
// generator.
func (s *Synthesizer) Synthesize(ctx context.Context, question string, passages []Passage) (*Answer, error) {
	if len(passages) == 0 {
		return &Answer{Text: NoContextText, Citations: []Citation{}, NoContext: true}, nil
	}

	if s.gen == nil {
		return &Answer{
			Text:      extractiveAnswer(passages),
			Citations: buildCitations(passages),
		}, nil
	}

	text, err := s.gen.Generate(ctx, systemPrompt, buildUserPrompt(question, passages))
	if err != nil {
		return nil, &SynthesisError{Err: err}
	}

	return &Answer{
		Text:      strings.TrimSpace(text),
		Citations: buildCitations(passages),
	}, nil
}

// extractiveMax bounds how many passages the no-model fallback echoes.
const extractiveMax = 2

func extractiveAnswer(passages []Passage) string {
	n := len(passages)
	if n > extractiveMax {
		n = extractiveMax
	}
	parts := make([]string, 0, n)
	for _, p := range passages[:n] {
		parts = append(parts, strings.TrimSpace(p.Text))
	}
	return strings.Join(parts, "\n\n")
}

// buildUserPrompt numbers the passages and appends the question.
func buildUserPrompt(question string, passages []Passage) string {
	var sb strings.Builder
	sb.WriteString("Context passages:\n\n")
	for i, p := range passages {
		fmt.Fprintf(&sb, "[%d] (document %s, page %d)\n%s\n\n", i+1, p.DocumentID, p.PageNo, p.Text)
	}
	sb.WriteString("Question: ")
	sb.WriteString(question)
	return sb.String()
}

// buildCitations deduplicates passages by (document, page), keeping ranking
// order of first appearance.
func buildCitations(passages []Passage) []Citation {
	type key struct {
		doc  string
		page int
	}
	seen := make(map[key]bool, len(passages))
	citations := make([]Citation, 0, len(passages))
	for _, p := range passages {
		k := key{p.DocumentID, p.PageNo}
		if seen[k] {
			continue
		}
		seen[k] = true
		citations = append(citations, Citation{
			DocumentID: p.DocumentID,
			PageNo:     p.PageNo,
			Snippet:    snippet(p.Text),
		})
	}
	return citations
}

func snippet(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= snippetLen {
		return text
	}
	return string(runes[:snippetLen]) + "…"
}
