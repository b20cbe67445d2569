// CLAUDE:SUMMARY Offset-preserving sentence chunker — overlapping spans that reconstruct the page text exactly.
// Package chunk splits page text into overlapping spans suitable for
// embedding and retrieval.
//
// Splitting strategy:
//  1. Prefer sentence and line boundaries
//  2. Accumulate sentences up to a character budget
//  3. Re-open the next chunk with the previous chunk's trailing overlap,
//     snapped to a word start so no token is cut mid-word
//  4. Word-split sentences that alone exceed the budget
//
// Every chunk is an exact subslice of the input: Text == input[Start:End].
// Stripping OverlapPrev bytes from each chunk after the first and
// concatenating reconstructs the input byte-for-byte.
package chunk

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Options configures the chunking behaviour.
type Options struct {
	// MaxChars is the chunk budget in runes. Default: 500.
	MaxChars int
	// OverlapChars is the target overlap between consecutive chunks in
	// runes. Clamped to MaxChars/4 when it would reach the budget.
	// Default: 50.
	OverlapChars int
}

func (o *Options) defaults() {
	if o.MaxChars <= 0 {
		o.MaxChars = 500
	}
	if o.OverlapChars < 0 {
		o.OverlapChars = 0
	}
	if o.OverlapChars == 0 {
		o.OverlapChars = 50
	}
	if o.OverlapChars >= o.MaxChars {
		o.OverlapChars = o.MaxChars / 4
	}
}

// Chunk is one span of the input text.
type Chunk struct {
	Index       int    // 0-based position in the sequence
	Text        string // exact subslice of the input
	Start       int    // byte offset of Text in the input
	End         int    // byte offset one past the last byte of Text
	OverlapPrev int    // leading bytes shared with the previous chunk
}

// Split divides text into overlapping chunks. Whitespace-only input yields nil.
func Split(text string, opts Options) []Chunk {
	opts.defaults()

	if strings.TrimSpace(text) == "" {
		return nil
	}

	if utf8.RuneCountInString(text) <= opts.MaxChars {
		return []Chunk{{Index: 0, Text: text, Start: 0, End: len(text)}}
	}

	bounds := sentenceBounds(text)

	var chunks []Chunk
	start := 0
	overlapPrev := 0

	emit := func(end int) {
		chunks = append(chunks, Chunk{
			Index:       len(chunks),
			Text:        text[start:end],
			Start:       start,
			End:         end,
			OverlapPrev: overlapPrev,
		})
		next := overlapStart(text, start, end, opts.OverlapChars)
		overlapPrev = end - next
		start = next
	}

	bi := 0
	for start < len(text) {
		// Furthest sentence boundary that still fits the budget.
		fit := -1
		for i := bi; i < len(bounds); i++ {
			b := bounds[i]
			if b <= start {
				bi = i + 1
				continue
			}
			if utf8.RuneCountInString(text[start:b]) > opts.MaxChars {
				break
			}
			fit = b
			bi = i + 1
		}

		if fit == -1 {
			// No sentence fits: hard-split at the last word boundary
			// inside the budget.
			fit = wordSplit(text, start, opts.MaxChars)
		}

		if fit >= len(text) {
			emitFinal(&chunks, text, start, overlapPrev)
			return chunks
		}
		emit(fit)
	}
	return chunks
}

func emitFinal(chunks *[]Chunk, text string, start, overlapPrev int) {
	*chunks = append(*chunks, Chunk{
		Index:       len(*chunks),
		Text:        text[start:],
		Start:       start,
		End:         len(text),
		OverlapPrev: overlapPrev,
	})
}

// sentenceBounds returns byte offsets just past each sentence terminator
// (./!/? followed by space or end) and past each newline, plus len(text).
func sentenceBounds(text string) []int {
	var bounds []int
	prev := rune(0)
	for i, r := range text {
		if r == '\n' {
			bounds = append(bounds, i+1)
		}
		if (prev == '.' || prev == '!' || prev == '?') && unicode.IsSpace(r) {
			bounds = append(bounds, i)
		}
		prev = r
	}
	bounds = append(bounds, len(text))
	return bounds
}

// wordSplit finds the largest offset > start whose span stays within the
// rune budget, preferring the last space so words stay whole.
func wordSplit(text string, start, maxChars int) int {
	end := start
	lastSpace := -1
	count := 0
	for i := start; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		if count >= maxChars {
			break
		}
		if unicode.IsSpace(r) {
			lastSpace = i + size
		}
		i += size
		count++
		end = i
	}
	if end >= len(text) {
		return len(text)
	}
	if lastSpace > start {
		return lastSpace
	}
	return end // single unbroken token longer than the budget
}

// overlapStart computes where the next chunk begins: up to overlapChars runes
// before end, advanced to the next word start, and never at or before the
// current chunk's start (progress guarantee).
func overlapStart(text string, start, end, overlapChars int) int {
	if overlapChars <= 0 || end >= len(text) {
		return end
	}
	p := end
	for n := 0; n < overlapChars && p > start; n++ {
		_, size := utf8.DecodeLastRuneInString(text[:p])
		p -= size
	}
	// Snap forward to a word start so the overlap doesn't open mid-token.
	if p > 0 {
		if r, _ := utf8.DecodeLastRuneInString(text[:p]); !unicode.IsSpace(r) {
			if idx := strings.IndexFunc(text[p:end], unicode.IsSpace); idx >= 0 {
				p += idx + 1
			} else {
				p = end
			}
		}
	}
	if p <= start {
		return end
	}
	return p
}
