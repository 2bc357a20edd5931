//go:build cgo

package scanning

import (
	"context"
	"fmt"

	"github.com/otiai10/gosseract/v2"
)

const (
	defaultLanguage = "eng"
	// uniform block of text; suits invoices better than automatic segmentation
	defaultPageSegMode = int(gosseract.PSM_SINGLE_BLOCK)
)

// Tesseract implements the Recognizer interface using a local Tesseract install
type Tesseract struct {
	language string
	psm      int
	pages    PageOptions
}

// NewTesseract creates a new Tesseract Recognizer instance
func NewTesseract(language string, psm int, pages PageOptions) (*Tesseract, error) {
	if language == "" {
		language = defaultLanguage
	}
	if psm <= 0 {
		psm = defaultPageSegMode
	}
	return &Tesseract{
		language: language,
		psm:      psm,
		pages:    pages,
	}, nil
}

// Name returns "tesseract"
func (t *Tesseract) Name() string {
	return "tesseract"
}

// Recognize runs Tesseract over every page of the document. gosseract clients
// are not safe for concurrent use, so each call creates its own.
func (t *Tesseract) Recognize(ctx context.Context, data []byte, contentType string) (Text, error) {
	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(t.language); err != nil {
		return Text{}, fmt.Errorf("setting language: %w", err)
	}
	if err := client.SetPageSegMode(gosseract.PageSegMode(t.psm)); err != nil {
		return Text{}, fmt.Errorf("setting page segmentation mode: %w", err)
	}

	return recognizePages(ctx, data, contentType, t.pages, func(ctx context.Context, page []byte) (string, float64, error) {
		if err := client.SetImageFromBytes(page); err != nil {
			return "", 0, fmt.Errorf("setting image: %w", err)
		}
		text, err := client.Text()
		if err != nil {
			return "", 0, fmt.Errorf("recognizing text: %w", err)
		}
		return text, meanConfidence(client), nil
	})
}

// meanConfidence averages the word confidences of the last recognized image
func meanConfidence(client *gosseract.Client) float64 {
	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil || len(boxes) == 0 {
		return 0
	}
	var sum float64
	for _, b := range boxes {
		sum += b.Confidence
	}
	return sum / float64(len(boxes))
}

// Close is a no-op; clients live for one Recognize call
func (t *Tesseract) Close() error {
	return nil
}
