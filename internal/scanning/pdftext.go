package scanning

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ledongthuc/pdf"
)

const defaultMinTextLayerChars = 32

// PDFTextLayer reads the embedded text of digitally produced PDFs and only
// falls back to next for scans and images.
type PDFTextLayer struct {
	next     Recognizer
	minChars int
	maxPages int
}

// NewPDFTextLayer wraps next. A text layer shorter than minChars
// non-space characters is treated as absent.
func NewPDFTextLayer(next Recognizer, minChars, maxPages int) *PDFTextLayer {
	if minChars <= 0 {
		minChars = defaultMinTextLayerChars
	}
	if maxPages <= 0 {
		maxPages = defaultMaxPages
	}
	return &PDFTextLayer{next: next, minChars: minChars, maxPages: maxPages}
}

// Name returns the name of the wrapped engine
func (p *PDFTextLayer) Name() string {
	return p.next.Name()
}

// Recognize returns the text layer of PDFs that have one, and otherwise
// delegates to the wrapped engine.
func (p *PDFTextLayer) Recognize(ctx context.Context, data []byte, contentType string) (Text, error) {
	contentType = DetectContentType(data, contentType)
	if !IsPDF(contentType) {
		return p.next.Recognize(ctx, data, contentType)
	}

	text, pages, err := readTextLayer(data, p.maxPages)
	switch {
	case err != nil:
		slog.Debug("Reading PDF text layer failed, falling back to OCR", "error", err)
	case countNonSpace(text) < p.minChars:
		slog.Debug("PDF has no usable text layer, falling back to OCR", "chars", countNonSpace(text))
	default:
		return Text{Content: text, Pages: pages, Method: MethodPDFText, Confidence: 100}, nil
	}
	return p.next.Recognize(ctx, data, contentType)
}

// Close closes the wrapped engine
func (p *PDFTextLayer) Close() error {
	return p.next.Close()
}

// readTextLayer extracts the text of up to maxPages pages, row by row.
// The pdf package panics on some malformed files; that is reported as an error.
func readTextLayer(data []byte, maxPages int) (text string, pages int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("reading PDF: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", 0, fmt.Errorf("opening PDF: %w", err)
	}

	pages = reader.NumPage()
	if pages > maxPages {
		pages = maxPages
	}

	var out strings.Builder
	for i := 1; i <= pages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		rows, err := page.GetTextByRow()
		if err != nil {
			return "", 0, fmt.Errorf("reading page %d: %w", i, err)
		}
		for _, row := range rows {
			words := make([]string, 0, len(row.Content))
			for _, word := range row.Content {
				words = append(words, word.S)
			}
			out.WriteString(strings.Join(words, " "))
			out.WriteString("\n")
		}
		out.WriteString("\n")
	}
	return strings.TrimSpace(out.String()), pages, nil
}

func countNonSpace(s string) int {
	n := 0
	for _, r := range s {
		if r != ' ' && r != '\n' && r != '\t' && r != '\r' {
			n++
		}
	}
	return n
}
