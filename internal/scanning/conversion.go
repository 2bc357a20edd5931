package scanning

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"log/slog"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gabriel-vasile/mimetype"
	"github.com/gen2brain/go-fitz"
	"github.com/gen2brain/heic"
	_ "golang.org/x/image/bmp"  // Register BMP decoder
	_ "golang.org/x/image/tiff" // Register TIFF decoder
	_ "golang.org/x/image/webp" // Register WebP decoder
)

// transcriptionPrompt is the shared prompt used by the LLM engines. They are
// asked for a plain transcription so the same field rules apply to every engine.
const transcriptionPrompt = `You are transcribing a scanned invoice. Read every piece of printed text in the image and write it out exactly as it appears.

Rules:
- Keep each printed line on its own line, top to bottom
- Keep each table row on one line, with columns separated by at least two spaces
- Copy numbers, dates, currency symbols and invoice identifiers character for character
- Do not summarize, translate, correct or reorder anything
- Do not add commentary, headings or markdown
- If the image contains no text, reply with nothing`

const (
	defaultDPI      = 300
	defaultMaxPages = 10
)

// PageOptions controls how documents are turned into page images
type PageOptions struct {
	DPI          float64 // PDF rasterization resolution
	MaxPages     int     // PDF pages beyond this are ignored
	MaxDimension int     // pages are scaled down to fit this many pixels; 0 keeps the size
}

func (o PageOptions) withDefaults() PageOptions {
	if o.DPI <= 0 {
		o.DPI = defaultDPI
	}
	if o.MaxPages <= 0 {
		o.MaxPages = defaultMaxPages
	}
	return o
}

// DetectContentType normalizes contentType, sniffing it from data when it is
// empty or generic.
func DetectContentType(data []byte, contentType string) string {
	mimeType, _, _ := strings.Cut(contentType, ";")
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType, _, _ = strings.Cut(mimetype.Detect(data).String(), ";")
	}
	if mimeType == "image/jpg" {
		mimeType = "image/jpeg"
	}
	return mimeType
}

// IsPDF reports whether the content type names a PDF
func IsPDF(mimeType string) bool {
	return mimeType == "application/pdf" || mimeType == "application/x-pdf"
}

// isHEICMimeType checks if the MIME type indicates HEIC/HEIF format
func isHEICMimeType(mimeType string) bool {
	return strings.Contains(mimeType, "heic") || strings.Contains(mimeType, "heif")
}

// Prepare converts a PDF or image into PNG-encoded pages
func Prepare(data []byte, contentType string, opts PageOptions) ([][]byte, error) {
	opts = opts.withDefaults()
	mimeType := DetectContentType(data, contentType)

	var images []image.Image
	switch {
	case IsPDF(mimeType):
		pages, err := pdfToImages(data, opts)
		if err != nil {
			return nil, fmt.Errorf("%w: converting PDF to images: %w", ErrCorruptInput, err)
		}
		images = pages
	case isHEICMimeType(mimeType):
		img, err := heic.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%w: decoding HEIC/HEIF image: %w", ErrCorruptInput, err)
		}
		images = []image.Image{img}
	case strings.HasPrefix(mimeType, "image/"):
		img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
		if err != nil {
			if strings.Contains(err.Error(), "unknown format") {
				return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, mimeType)
			}
			return nil, fmt.Errorf("%w: decoding image: %w", ErrCorruptInput, err)
		}
		images = []image.Image{img}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, mimeType)
	}

	pages := make([][]byte, 0, len(images))
	for i, img := range images {
		if opts.MaxDimension > 0 {
			b := img.Bounds()
			if b.Dx() > opts.MaxDimension || b.Dy() > opts.MaxDimension {
				img = imaging.Fit(img, opts.MaxDimension, opts.MaxDimension, imaging.Lanczos)
			}
		}
		var buf bytes.Buffer
		if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
			return nil, fmt.Errorf("encoding page %d as PNG: %w", i+1, err)
		}
		pages = append(pages, buf.Bytes())
	}
	return pages, nil
}

// pdfToImages renders up to opts.MaxPages pages of a PDF
func pdfToImages(pdfData []byte, opts PageOptions) ([]image.Image, error) {
	doc, err := fitz.NewFromMemory(pdfData)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer doc.Close()

	n := doc.NumPage()
	if n == 0 {
		return nil, fmt.Errorf("PDF has no pages")
	}
	if n > opts.MaxPages {
		slog.Warn("Ignoring PDF pages beyond limit", "pages", n, "max_pages", opts.MaxPages)
		n = opts.MaxPages
	}

	images := make([]image.Image, 0, n)
	for i := 0; i < n; i++ {
		img, err := doc.ImageDPI(i, opts.DPI)
		if err != nil {
			return nil, fmt.Errorf("rendering PDF page %d: %w", i+1, err)
		}
		images = append(images, img)
	}
	return images, nil
}

// pageRecognizer reads the text of one PNG page
type pageRecognizer func(ctx context.Context, page []byte) (text string, confidence float64, err error)

// recognizePages prepares data and runs recognize over each page in order.
// Page texts are joined with a blank line.
func recognizePages(ctx context.Context, data []byte, contentType string, opts PageOptions, recognize pageRecognizer) (Text, error) {
	pages, err := Prepare(data, contentType, opts)
	if err != nil {
		return Text{}, err
	}

	texts := make([]string, 0, len(pages))
	var confidence float64
	for i, page := range pages {
		if err := ctx.Err(); err != nil {
			return Text{}, err
		}
		text, conf, err := recognize(ctx, page)
		if err != nil {
			return Text{}, fmt.Errorf("page %d: %w", i+1, err)
		}
		if text = strings.TrimSpace(text); text != "" {
			texts = append(texts, text)
		}
		confidence += conf
	}

	if len(texts) == 0 {
		return Text{}, ErrNoText
	}
	return Text{
		Content:    strings.Join(texts, "\n\n"),
		Pages:      len(pages),
		Method:     MethodOCR,
		Confidence: confidence / float64(len(pages)),
	}, nil
}
