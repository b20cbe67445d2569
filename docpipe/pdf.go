// CLAUDE:SUMMARY Native PDF text passes — pdfcpu content streams first, ledongthuc plain text second.
package docpipe

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	ltpdf "github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// nativeResult holds per-page native text, index 0 = page 1.
type nativeResult struct {
	pages     []string
	hasImages bool
}

// extractNative runs both native passes. pdfcpu parses the content streams
// page by page; pages it leaves empty get a second chance with ledongthuc,
// whose font-aware decoder handles encodings the stream parser cannot.
func extractNative(path string) (*nativeResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	conf := model.NewDefaultConfiguration()
	ctx, err := api.ReadValidateAndOptimize(f, conf)
	if err != nil {
		// pdfcpu rejects the file outright: ledongthuc alone decides.
		return extractLedongthuc(path)
	}

	res := &nativeResult{
		pages:     make([]string, ctx.PageCount),
		hasImages: detectImageStreams(ctx),
	}

	var lt *ltpdf.Reader
	var ltFile *os.File
	defer func() {
		if ltFile != nil {
			ltFile.Close()
		}
	}()

	for pageNr := 1; pageNr <= ctx.PageCount; pageNr++ {
		text := extractPageText(ctx, pageNr)
		if strings.TrimSpace(text) == "" {
			if lt == nil && ltFile == nil {
				ltFile, lt, _ = openLedongthuc(path)
			}
			if lt != nil {
				text = ledongthucPage(lt, pageNr)
			}
		}
		res.pages[pageNr-1] = text
	}

	if ctx.PageCount == 0 {
		return nil, fmt.Errorf("PDF has no pages")
	}
	return res, nil
}

// extractLedongthuc builds the full result from the second-pass library alone.
func extractLedongthuc(path string) (*nativeResult, error) {
	f, rdr, err := openLedongthuc(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	n := rdr.NumPage()
	if n == 0 {
		return nil, fmt.Errorf("PDF has no pages")
	}
	res := &nativeResult{pages: make([]string, n)}
	for i := 1; i <= n; i++ {
		res.pages[i-1] = ledongthucPage(rdr, i)
	}
	return res, nil
}

func openLedongthuc(path string) (*os.File, *ltpdf.Reader, error) {
	f, rdr, err := ltpdf.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("pdf open: %w", err)
	}
	return f, rdr, nil
}

func ledongthucPage(rdr *ltpdf.Reader, pageNr int) string {
	defer func() {
		// The library panics on some malformed font tables; a lost page is
		// recoverable, a crashed ingestion is not.
		_ = recover()
	}()
	if pageNr < 1 || pageNr > rdr.NumPage() {
		return ""
	}
	p := rdr.Page(pageNr)
	if p.V.IsNull() {
		return ""
	}
	text, err := p.GetPlainText(nil)
	if err != nil {
		return ""
	}
	return cleanPDFText(text)
}

// extractPageText extracts text from a single PDF page via pdfcpu content stream.
func extractPageText(ctx *model.Context, pageNr int) string {
	r, err := pdfcpu.ExtractPageContent(ctx, pageNr)
	if err != nil {
		return ""
	}
	data, err := io.ReadAll(r)
	if err != nil || len(data) == 0 {
		return ""
	}
	return extractTextFromStream(data)
}

// detectImageStreams checks if the PDF contains image XObjects.
func detectImageStreams(ctx *model.Context) bool {
	if ctx.Optimize != nil {
		for pageNr := 1; pageNr <= ctx.PageCount; pageNr++ {
			if len(pdfcpu.ImageObjNrs(ctx, pageNr)) > 0 {
				return true
			}
		}
	}
	return false
}

// extractPageImage pulls the raw bytes of the first image XObject on a page,
// for OCR submission. Returns the image data and its file type ("png", "jpg").
func extractPageImage(path string, pageNr int) ([]byte, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	conf := model.NewDefaultConfiguration()
	imgs, err := api.ExtractImagesRaw(f, []string{strconv.Itoa(pageNr)}, conf)
	if err != nil {
		return nil, "", fmt.Errorf("extract images: %w", err)
	}
	for _, pageImgs := range imgs {
		for _, img := range pageImgs {
			data, err := io.ReadAll(img)
			if err != nil || len(data) == 0 {
				continue
			}
			ft := img.FileType
			if ft == "" {
				ft = "png"
			}
			return data, ft, nil
		}
	}
	return nil, "", fmt.Errorf("page %d has no image streams", pageNr)
}

// pdfStringRe matches PDF string literals in parentheses: (text here)
var pdfStringRe = regexp.MustCompile(`\(([^)]*)\)`)

// extractTextFromStream parses PDF content stream operators for text.
func extractTextFromStream(data []byte) string {
	var sb strings.Builder

	for _, line := range bytes.Split(data, []byte{'\n'}) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		// Tj / TJ operators: (text) Tj, [(text) -100 (more)] TJ
		if bytes.HasSuffix(line, []byte("Tj")) || bytes.HasSuffix(line, []byte("TJ")) {
			for _, m := range pdfStringRe.FindAllSubmatch(line, -1) {
				sb.WriteString(decodePDFString(m[1]))
			}
		}

		// ' operator (move to next line and show text): (text) '
		if bytes.HasSuffix(line, []byte("'")) && bytes.Contains(line, []byte("(")) {
			for _, m := range pdfStringRe.FindAllSubmatch(line, -1) {
				if text := decodePDFString(m[1]); text != "" {
					sb.WriteByte('\n')
					sb.WriteString(text)
				}
			}
		}

		// Td/TD operator (text positioning).
		if bytes.HasSuffix(line, []byte("Td")) || bytes.HasSuffix(line, []byte("TD")) {
			if sb.Len() > 0 {
				sb.WriteByte(' ')
			}
		}

		// T* operator (move to start of next line).
		if bytes.Equal(line, []byte("T*")) {
			sb.WriteByte('\n')
		}
	}

	return cleanPDFText(sb.String())
}

// decodePDFString handles basic PDF escape sequences.
func decodePDFString(raw []byte) string {
	var sb strings.Builder
	for i := 0; i < len(raw); i++ {
		if raw[i] == '\\' && i+1 < len(raw) {
			i++
			switch raw[i] {
			case 'n':
				sb.WriteByte('\n')
			case 'r':
				sb.WriteByte('\r')
			case 't':
				sb.WriteByte('\t')
			case '\\':
				sb.WriteByte('\\')
			case '(':
				sb.WriteByte('(')
			case ')':
				sb.WriteByte(')')
			default:
				// Octal escape (e.g. \040 for space).
				if raw[i] >= '0' && raw[i] <= '7' {
					val := int(raw[i] - '0')
					if i+1 < len(raw) && raw[i+1] >= '0' && raw[i+1] <= '7' {
						i++
						val = val*8 + int(raw[i]-'0')
						if i+1 < len(raw) && raw[i+1] >= '0' && raw[i+1] <= '7' {
							i++
							val = val*8 + int(raw[i]-'0')
						}
					}
					sb.WriteByte(byte(val))
				} else {
					sb.WriteByte(raw[i])
				}
			}
		} else {
			sb.WriteByte(raw[i])
		}
	}
	return sb.String()
}

// cleanPDFText normalises whitespace in extracted PDF text.
func cleanPDFText(text string) string {
	var sb strings.Builder
	prevSpace := false
	for _, r := range text {
		if unicode.IsSpace(r) {
			if !prevSpace && sb.Len() > 0 {
				sb.WriteByte(' ')
				prevSpace = true
			}
		} else if unicode.IsPrint(r) {
			sb.WriteRune(r)
			prevSpace = false
		}
	}
	return strings.TrimSpace(sb.String())
}
