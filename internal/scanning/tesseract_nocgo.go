//go:build !cgo

package scanning

import (
	"context"
	"fmt"
)

// Tesseract needs cgo; without it every call fails with ErrEngineUnavailable.
type Tesseract struct{}

// NewTesseract reports that Tesseract is not compiled in
func NewTesseract(language string, psm int, pages PageOptions) (*Tesseract, error) {
	return nil, fmt.Errorf("tesseract: %w (built without cgo)", ErrEngineUnavailable)
}

// Name returns "tesseract"
func (t *Tesseract) Name() string {
	return "tesseract"
}

// Recognize always fails with ErrEngineUnavailable
func (t *Tesseract) Recognize(ctx context.Context, data []byte, contentType string) (Text, error) {
	return Text{}, ErrEngineUnavailable
}

// Close is a no-op
func (t *Tesseract) Close() error {
	return nil
}
