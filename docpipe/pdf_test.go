package docpipe

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

func TestExtract_TextPDF(t *testing.T) {
	// WHAT: PDF with native text extracts one page via the text method.
	// WHY: The native pass must serve readable PDFs without touching OCR.
	dir := t.TempDir()
	path := filepath.Join(dir, "text.pdf")
	raw := buildTextPDF("Photosynthesis converts light energy into chemical energy in plants")
	if err := os.WriteFile(path, raw, 0644); err != nil {
		t.Fatal(err)
	}

	pipe := New(Config{})
	res, err := pipe.Extract(context.Background(), path)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if res.PageCount != 1 || len(res.Pages) != 1 {
		t.Fatalf("pages: count=%d len=%d", res.PageCount, len(res.Pages))
	}
	p := res.Pages[0]
	if p.PageNo != 1 {
		t.Errorf("page no: got %d", p.PageNo)
	}
	if p.Method != MethodText {
		t.Errorf("method: got %s, want %s", p.Method, MethodText)
	}
	if !strings.Contains(p.Text, "Photosynthesis") {
		t.Errorf("text: %q", p.Text)
	}
	if res.Quality == nil {
		t.Fatal("expected quality metrics")
	}
	if res.Title == "" {
		t.Error("expected a title from the first line")
	}
}

func TestExtract_CorruptPDF(t *testing.T) {
	// WHAT: Garbage bytes fail with ErrCorruptPDF.
	// WHY: Ingestion maps corrupt uploads to a terminal error status.
	dir := t.TempDir()
	path := filepath.Join(dir, "garbage.pdf")
	if err := os.WriteFile(path, []byte("this is not a pdf at all"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := New(Config{}).Extract(context.Background(), path)
	if !errors.Is(err, ErrCorruptPDF) {
		t.Fatalf("want ErrCorruptPDF, got %v", err)
	}
}

func TestExtract_ImageOnlyPDF(t *testing.T) {
	// WHAT: A page with only an image XObject and no OCR yields no text.
	// WHY: Scanned documents without OCR configured must fail loudly, not
	// silently produce an empty ready document.
	dir := t.TempDir()
	path := filepath.Join(dir, "image.pdf")
	if err := os.WriteFile(path, buildImageOnlyPDF(), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := New(Config{}).Extract(context.Background(), path)
	if err == nil {
		t.Fatal("want error for image-only PDF without OCR")
	}
	if !errors.Is(err, ErrNoText) && !errors.Is(err, ErrCorruptPDF) {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestExtractTextFromStream(t *testing.T) {
	stream := []byte("BT\n/F1 12 Tf\n72 720 Td\n(Hello) Tj\nT*\n(World) Tj\nET")
	got := extractTextFromStream(stream)
	if !strings.Contains(got, "Hello") || !strings.Contains(got, "World") {
		t.Errorf("stream text: %q", got)
	}
}

func TestDecodePDFString(t *testing.T) {
	cases := []struct{ in, want string }{
		{`plain`, "plain"},
		{`a\(b\)c`, "a(b)c"},
		{`tab\there`, "tab\there"},
		{`oct\040al`, "oct al"},
		{`back\\slash`, `back\slash`},
	}
	for _, c := range cases {
		if got := decodePDFString([]byte(c.in)); got != c.want {
			t.Errorf("decode %q: got %q, want %q", c.in, got, c.want)
		}
	}
}

func TestCleanPDFText(t *testing.T) {
	got := cleanPDFText("  multiple   spaces\n\nand\tlines  ")
	if got != "multiple spaces and lines" {
		t.Errorf("clean: %q", got)
	}
}

// --- PDF test helpers ---

// buildTextPDF creates a valid single-page PDF with proper xref offsets.
func buildTextPDF(text string) []byte {
	escaped := strings.ReplaceAll(text, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, "(", `\(`)
	escaped = strings.ReplaceAll(escaped, ")", `\)`)

	stream := "BT\n/F1 12 Tf\n72 720 Td\n(" + escaped + ") Tj\nET"

	var b strings.Builder
	b.WriteString("%PDF-1.4\n")

	offsets := make([]int, 6)

	offsets[1] = b.Len()
	b.WriteString("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")

	offsets[2] = b.Len()
	b.WriteString("2 0 obj\n<< /Type /Pages /Kids [3 0 R] /Count 1 >>\nendobj\n")

	offsets[3] = b.Len()
	b.WriteString("3 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents 4 0 R /Resources << /Font << /F1 5 0 R >> >> >>\nendobj\n")

	offsets[4] = b.Len()
	b.WriteString("4 0 obj\n<< /Length ")
	b.WriteString(strconv.Itoa(len(stream)))
	b.WriteString(" >>\nstream\n")
	b.WriteString(stream)
	b.WriteString("\nendstream\nendobj\n")

	offsets[5] = b.Len()
	b.WriteString("5 0 obj\n<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>\nendobj\n")

	writeXref(&b, offsets)
	return []byte(b.String())
}

func buildImageOnlyPDF() []byte {
	imgData := "\xff\xd8\xff\xe0"

	var b strings.Builder
	b.WriteString("%PDF-1.4\n")

	offsets := make([]int, 6)

	offsets[1] = b.Len()
	b.WriteString("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")

	offsets[2] = b.Len()
	b.WriteString("2 0 obj\n<< /Type /Pages /Kids [3 0 R] /Count 1 >>\nendobj\n")

	offsets[3] = b.Len()
	b.WriteString("3 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << /XObject << /Im1 4 0 R >> >> /Contents 5 0 R >>\nendobj\n")

	offsets[4] = b.Len()
	b.WriteString("4 0 obj\n<< /Type /XObject /Subtype /Image /Width 1 /Height 1 /ColorSpace /DeviceRGB /BitsPerComponent 8 /Length ")
	b.WriteString(strconv.Itoa(len(imgData)))
	b.WriteString(" >>\nstream\n")
	b.WriteString(imgData)
	b.WriteString("\nendstream\nendobj\n")

	drawStream := "q 100 0 0 100 72 692 cm /Im1 Do Q"
	offsets[5] = b.Len()
	b.WriteString("5 0 obj\n<< /Length ")
	b.WriteString(strconv.Itoa(len(drawStream)))
	b.WriteString(" >>\nstream\n")
	b.WriteString(drawStream)
	b.WriteString("\nendstream\nendobj\n")

	writeXref(&b, offsets)
	return []byte(b.String())
}

func writeXref(b *strings.Builder, offsets []int) {
	xrefOffset := b.Len()
	b.WriteString("xref\n0 ")
	b.WriteString(strconv.Itoa(len(offsets)))
	b.WriteString("\n0000000000 65535 f \n")
	for i := 1; i < len(offsets); i++ {
		s := strconv.Itoa(offsets[i])
		for len(s) < 10 {
			s = "0" + s
		}
		b.WriteString(s)
		b.WriteString(" 00000 n \n")
	}
	b.WriteString("trailer\n<< /Size ")
	b.WriteString(strconv.Itoa(len(offsets)))
	b.WriteString(" /Root 1 0 R >>\nstartxref\n")
	b.WriteString(strconv.Itoa(xrefOffset))
	b.WriteString("\n%%EOF\n")
}
