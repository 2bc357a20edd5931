package extraction

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/zombor/invoice-extractor/internal/invoice"
)

// MethodText marks results extracted from text supplied directly, without OCR
const MethodText = "text"

// Result represents the outcome of extracting one input
type Result struct {
	ID          string         `json:"id"`
	Source      string         `json:"source"`           // input path, or "-" for stdin
	Engine      string         `json:"engine,omitempty"` // empty for text inputs
	Method      string         `json:"method"`           // text, pdf-text, ocr or cache
	Pages       int            `json:"pages"`
	Confidence  float64        `json:"confidence"` // mean word confidence 0-100, 0 when unknown
	Text        string         `json:"raw_text"`
	Record      invoice.Record `json:"record"`
	ExtractedAt time.Time      `json:"extracted_at"`
	Duration    time.Duration  `json:"-"`
	Err         error          `json:"-"` // set when the input could not be read or recognized
}

// MarshalJSON renders the duration as text and the error as its message
func (r *Result) MarshalJSON() ([]byte, error) {
	type result Result
	envelope := struct {
		result
		Duration string `json:"duration"`
		Error    string `json:"error,omitempty"`
	}{
		result:   result(*r),
		Duration: r.Duration.String(),
	}
	if r.Err != nil {
		envelope.Error = r.Err.Error()
	}
	return json.Marshal(envelope)
}

// Failed reports whether the input could not be processed
func (r *Result) Failed() bool {
	return r.Err != nil
}

// Row returns the result in the shape the tabular writers take
func (r *Result) Row() invoice.Row {
	return invoice.Row{Source: r.Source, Record: r.Record}
}

// Rows converts results for the tabular writers, in order
func Rows(results []*Result) []invoice.Row {
	rows := make([]invoice.Row, 0, len(results))
	for _, r := range results {
		rows = append(rows, r.Row())
	}
	return rows
}

// Records returns the record of every result, in order
func Records(results []*Result) []invoice.Record {
	records := make([]invoice.Record, 0, len(results))
	for _, r := range results {
		records = append(records, r.Record)
	}
	return records
}

// WriteResultsJSON writes the full results, raw text and provenance included.
// A single result is written as an object, anything else as an array.
func WriteResultsJSON(w io.Writer, results []*Result) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")

	var v any = results
	if len(results) == 1 {
		v = results[0]
	} else if results == nil {
		v = []*Result{}
	}
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding results: %w", err)
	}
	return nil
}
