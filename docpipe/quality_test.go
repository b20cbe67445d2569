package docpipe

import (
	"strings"
	"testing"
)

func TestCountInformativeChars(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"   \n\t  ", 0},
		{"abc 123", 6},
		{"!!! ... ---", 0},
		{" ok", 2}, // PUA garbage ignored
		{"élan", 4},
	}
	for _, c := range cases {
		if got := countInformativeChars(c.in); got != c.want {
			t.Errorf("countInformativeChars(%q): got %d, want %d", c.in, got, c.want)
		}
	}
}

func TestComputePrintableRatio(t *testing.T) {
	// WHAT: Clean text scores ~1.0, PUA-heavy garbage scores low.
	// WHY: The ratio separates real extractions from font-table noise.
	if got := computePrintableRatio("normal readable text"); got < 0.99 {
		t.Errorf("clean text: got %f", got)
	}
	garbage := strings.Repeat("\ue000", 20) + "ok"
	if got := computePrintableRatio(garbage); got > 0.2 {
		t.Errorf("garbage text: got %f", got)
	}
	if got := computePrintableRatio(""); got != 1.0 {
		t.Errorf("empty text: got %f", got)
	}
}

func TestComputeWordlikeRatio(t *testing.T) {
	if got := computeWordlikeRatio("these are normal words"); got != 1.0 {
		t.Errorf("normal words: got %f", got)
	}
	if got := computeWordlikeRatio("x " + strings.Repeat("q", 40)); got != 0 {
		t.Errorf("non-wordlike tokens: got %f", got)
	}
	if got := computeWordlikeRatio(""); got != 0 {
		t.Errorf("empty: got %f", got)
	}
}
