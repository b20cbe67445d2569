// CLAUDE:SUMMARY PDF extraction pipeline — page-aware native text with OCR fallback for scanned pages.
// Package docpipe extracts per-page text from PDF files.
//
// Extraction runs two native passes before falling back to OCR: pdfcpu
// content-stream parsing first, then ledongthuc/pdf plain-text extraction for
// pages the first pass leaves empty. A page whose native text stays below the
// informative-character threshold is sent to the OCR service when one is
// configured; a page that fails every pass is marked failed but never aborts
// the document.
package docpipe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hazyhaar/docqa/retry"
)

// Extraction method per page.
const (
	MethodText   = "text"
	MethodOCR    = "ocr"
	MethodFailed = "failed"
)

// ErrCorruptPDF means the file could not be parsed as a PDF by any pass.
var ErrCorruptPDF = errors.New("docpipe: corrupt or unreadable PDF")

// ErrNoText means the PDF parsed but yielded no text on any page.
var ErrNoText = errors.New("docpipe: no text content found")

// Page is the extraction result for one PDF page.
type Page struct {
	PageNo int    `json:"page_no"` // 1-based
	Text   string `json:"text"`
	Method string `json:"method"` // text | ocr | failed
}

// Result is the extraction result for a whole document.
type Result struct {
	Title     string             `json:"title"`
	PageCount int                `json:"page_count"`
	Pages     []Page             `json:"pages"`
	Quality   *ExtractionQuality `json:"quality"`
}

// Config configures the extraction pipeline.
type Config struct {
	// MinNativeChars is the informative-character threshold below which a
	// page's native text is considered unusable and OCR is attempted.
	// Default: 20.
	MinNativeChars int `json:"min_native_chars" yaml:"min_native_chars"`

	// OCREndpoint is the base URL of the OCR service. Empty disables OCR;
	// low-text pages are then kept as-is or marked failed.
	OCREndpoint string `json:"ocr_endpoint" yaml:"ocr_endpoint"`

	// OCRModel is the model name sent to the OCR service.
	OCRModel string `json:"ocr_model" yaml:"ocr_model"`

	// OCRTimeout per OCR request. Default: 60s.
	OCRTimeout time.Duration `json:"ocr_timeout" yaml:"ocr_timeout"`

	// OCRRetry bounds retries of transient OCR failures.
	OCRRetry retry.Policy `json:"-" yaml:"-"`

	Logger *slog.Logger `json:"-" yaml:"-"`
}

func (c *Config) defaults() {
	if c.MinNativeChars <= 0 {
		c.MinNativeChars = 20
	}
	if c.OCRTimeout <= 0 {
		c.OCRTimeout = 60 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// Pipeline extracts text from PDF files.
type Pipeline struct {
	cfg Config
	ocr *OCRClient
}

// New creates a Pipeline. OCR is enabled only when cfg.OCREndpoint is set.
func New(cfg Config) *Pipeline {
	cfg.defaults()
	p := &Pipeline{cfg: cfg}
	if cfg.OCREndpoint != "" {
		p.ocr = NewOCRClient(cfg.OCREndpoint, cfg.OCRModel, cfg.OCRTimeout)
	}
	return p
}

// Extract extracts per-page text from the PDF at path.
//
// Returns ErrCorruptPDF when no pass can parse the file and ErrNoText when
// the document parsed but no page produced text.
func (p *Pipeline) Extract(ctx context.Context, path string) (*Result, error) {
	native, err := extractNative(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptPDF, err)
	}

	res := &Result{PageCount: len(native.pages)}
	var allText strings.Builder

	for i, text := range native.pages {
		pageNo := i + 1
		page := Page{PageNo: pageNo, Text: text, Method: MethodText}

		if countInformativeChars(text) < p.cfg.MinNativeChars {
			page = p.recoverPage(ctx, path, pageNo, text)
		}

		if page.Method != MethodFailed {
			if allText.Len() > 0 {
				allText.WriteByte('\n')
			}
			allText.WriteString(page.Text)
			if res.Title == "" {
				res.Title = firstLine(page.Text)
			}
		}
		res.Pages = append(res.Pages, page)
	}

	full := allText.String()
	if strings.TrimSpace(full) == "" {
		return nil, ErrNoText
	}

	var charsPerPage float64
	if res.PageCount > 0 {
		charsPerPage = float64(len([]rune(full))) / float64(res.PageCount)
	}
	res.Quality = &ExtractionQuality{
		PageCount:       res.PageCount,
		CharsPerPage:    charsPerPage,
		PrintableRatio:  computePrintableRatio(full),
		WordlikeRatio:   computeWordlikeRatio(full),
		HasImageStreams: native.hasImages,
	}
	return res, nil
}

// recoverPage handles a page whose native text is below the threshold:
// OCR when available, otherwise keep whatever native text exists.
func (p *Pipeline) recoverPage(ctx context.Context, path string, pageNo int, native string) Page {
	if p.ocr == nil {
		if strings.TrimSpace(native) != "" {
			return Page{PageNo: pageNo, Text: native, Method: MethodText}
		}
		return Page{PageNo: pageNo, Method: MethodFailed}
	}

	img, format, err := extractPageImage(path, pageNo)
	if err != nil {
		p.cfg.Logger.Warn("no page image for OCR", "page", pageNo, "error", err)
		return Page{PageNo: pageNo, Text: native, Method: methodOrFailed(native)}
	}

	var text string
	err = retry.Do(ctx, p.cfg.OCRRetry, fmt.Sprintf("ocr page %d", pageNo), func(ctx context.Context) error {
		var rerr error
		text, rerr = p.ocr.Recognize(ctx, img, format, pageNo)
		return rerr
	})
	if err != nil {
		p.cfg.Logger.Warn("OCR failed", "page", pageNo, "error", err)
		return Page{PageNo: pageNo, Text: native, Method: methodOrFailed(native)}
	}

	return Page{PageNo: pageNo, Text: text, Method: MethodOCR}
}

func methodOrFailed(text string) string {
	if strings.TrimSpace(text) != "" {
		return MethodText
	}
	return MethodFailed
}

func firstLine(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			if len(line) > 200 {
				line = line[:200]
			}
			return line
		}
	}
	return ""
}
