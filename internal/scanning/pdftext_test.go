package scanning

import (
	"context"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("PDFTextLayer", func() {
	var (
		next        *mockRecognizer
		layer       *PDFTextLayer
		data        []byte
		contentType string
		result      Text
		err         error
	)

	BeforeEach(func() {
		next = newMockRecognizer()
		layer = NewPDFTextLayer(next, 0, 0)
		contentType = ""
	})

	JustBeforeEach(func() {
		result, err = layer.Recognize(context.Background(), data, contentType)
	})

	When("the PDF has a text layer", func() {
		BeforeEach(func() {
			var readErr error
			data, readErr = os.ReadFile("testdata/text-layer.pdf")
			Expect(readErr).NotTo(HaveOccurred())
		})

		It("should return the embedded text without OCR", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(next.calls).To(BeZero())
			Expect(result.Method).To(Equal(MethodPDFText))
			Expect(result.Pages).To(Equal(1))
			Expect(result.Content).To(ContainSubstring("INV-2024-001"))
			Expect(result.Content).To(ContainSubstring("ACME SUPPLIES INC"))
		})

		When("the text layer is shorter than the minimum", func() {
			BeforeEach(func() {
				layer = NewPDFTextLayer(next, 10000, 0)
			})

			It("should fall back to the wrapped engine", func() {
				Expect(next.calls).To(Equal(1))
				Expect(result.Method).To(Equal(MethodOCR))
			})
		})
	})

	When("the input is an image", func() {
		BeforeEach(func() {
			data = testImage(8, 8)
		})

		It("should delegate with the detected content type", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(next.calls).To(Equal(1))
			Expect(next.contentTypes).To(Equal([]string{"image/png"}))
		})
	})

	When("the PDF is corrupt", func() {
		BeforeEach(func() {
			data = []byte("%PDF-1.4\nthis is not really a pdf\n")
		})

		It("should fall back to the wrapped engine", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(next.calls).To(Equal(1))
			Expect(next.contentTypes).To(Equal([]string{"application/pdf"}))
		})
	})

	It("should report the wrapped engine's name", func() {
		Expect(layer.Name()).To(Equal("mock"))
	})
})
