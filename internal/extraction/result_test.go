package extraction

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/zombor/invoice-extractor/internal/invoice"
)

var _ = Describe("WriteResultsJSON", func() {
	var (
		results []*Result
		buf     *bytes.Buffer
		err     error
	)

	BeforeEach(func() {
		buf = &bytes.Buffer{}
		results = []*Result{{
			ID:          "test-id-123",
			Source:      "acme.png",
			Engine:      "tesseract",
			Method:      "ocr",
			Pages:       1,
			Confidence:  91.25,
			Text:        invoiceText,
			Record:      invoice.NewExtractor().Extract(invoiceText),
			ExtractedAt: time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC),
			Duration:    1500 * time.Millisecond,
		}}
	})

	JustBeforeEach(func() {
		err = WriteResultsJSON(buf, results)
	})

	It("should write the raw text and provenance with the record", func() {
		Expect(err).NotTo(HaveOccurred())
		var doc map[string]any
		Expect(json.Unmarshal(buf.Bytes(), &doc)).To(Succeed())
		Expect(doc).To(HaveKeyWithValue("id", "test-id-123"))
		Expect(doc).To(HaveKeyWithValue("engine", "tesseract"))
		Expect(doc).To(HaveKeyWithValue("method", "ocr"))
		Expect(doc).To(HaveKeyWithValue("confidence", 91.25))
		Expect(doc).To(HaveKeyWithValue("raw_text", invoiceText))
		Expect(doc).To(HaveKeyWithValue("extracted_at", "2024-01-15T10:00:00Z"))
		Expect(doc).To(HaveKeyWithValue("duration", "1.5s"))
		Expect(doc).NotTo(HaveKey("error"))
		Expect(doc["record"]).To(HaveKeyWithValue("invoice_number", "INV-2024-001"))
	})

	When("an input failed", func() {
		BeforeEach(func() {
			results = append(results, &Result{
				Source: "missing.png",
				Record: invoice.Record{Items: []invoice.LineItem{}},
				Err:    &InputError{Path: "missing.png", Err: errors.New("no such file")},
			})
		})

		It("should write an array carrying the error message", func() {
			Expect(strings.TrimSpace(buf.String())).To(HavePrefix("["))
			var docs []map[string]any
			Expect(json.Unmarshal(buf.Bytes(), &docs)).To(Succeed())
			Expect(docs).To(HaveLen(2))
			Expect(docs[1]).To(HaveKeyWithValue("error", ContainSubstring("no such file")))
			Expect(docs[1]["record"]).To(HaveKeyWithValue("vendor", BeNil()))
		})
	})

	When("there are no results", func() {
		BeforeEach(func() {
			results = nil
		})

		It("should write an empty array", func() {
			Expect(strings.TrimSpace(buf.String())).To(Equal("[]"))
		})
	})
})
