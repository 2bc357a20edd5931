package scanning

import (
	"context"
	"errors"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

// mockRecognizer is a mock implementation of Recognizer
type mockRecognizer struct {
	name         string
	text         Text
	recognizeErr error
	calls        int
	contentTypes []string
	closed       bool
}

func newMockRecognizer() *mockRecognizer {
	return &mockRecognizer{
		name: "mock",
		text: Text{Content: "Invoice # 12\nTotal 10.00", Pages: 1, Method: MethodOCR, Confidence: 91},
	}
}

func (m *mockRecognizer) Name() string {
	return m.name
}

func (m *mockRecognizer) Recognize(ctx context.Context, data []byte, contentType string) (Text, error) {
	m.calls++
	m.contentTypes = append(m.contentTypes, contentType)
	if m.recognizeErr != nil {
		return Text{}, m.recognizeErr
	}
	return m.text, nil
}

func (m *mockRecognizer) Close() error {
	m.closed = true
	return nil
}

var _ = Describe("Cache", func() {
	var (
		dbPath string
		next   *mockRecognizer
		cache  *Cache
	)

	BeforeEach(func() {
		dbPath = filepath.Join(GinkgoT().TempDir(), "cache.db")
		next = newMockRecognizer()
		var err error
		cache, err = OpenCache(dbPath, next)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		if cache != nil {
			cache.Close()
		}
	})

	It("should report the wrapped engine's name", func() {
		Expect(cache.Name()).To(Equal("mock"))
	})

	Describe("Recognize", func() {
		var (
			data   []byte
			result Text
			err    error
		)

		BeforeEach(func() {
			data = []byte("image bytes")
		})

		JustBeforeEach(func() {
			result, err = cache.Recognize(context.Background(), data, "image/png")
		})

		When("the input has not been seen", func() {
			It("should call the wrapped engine", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(next.calls).To(Equal(1))
				Expect(result).To(Equal(next.text))
			})

			It("should store the text", func() {
				Expect(cache.Len()).To(Equal(1))
			})
		})

		When("the input has been seen", func() {
			BeforeEach(func() {
				_, err := cache.Recognize(context.Background(), data, "image/png")
				Expect(err).NotTo(HaveOccurred())
			})

			It("should not call the wrapped engine again", func() {
				Expect(err).NotTo(HaveOccurred())
				Expect(next.calls).To(Equal(1))
			})

			It("should return the cached text", func() {
				Expect(result.Content).To(Equal(next.text.Content))
				Expect(result.Pages).To(Equal(1))
				Expect(result.Confidence).To(Equal(91.0))
				Expect(result.Method).To(Equal(MethodCache))
			})
		})

		When("a different engine saw the input", func() {
			BeforeEach(func() {
				_, err := cache.Recognize(context.Background(), data, "image/png")
				Expect(err).NotTo(HaveOccurred())
				next.name = "other"
			})

			It("should recognize it again", func() {
				Expect(next.calls).To(Equal(2))
				Expect(cache.Len()).To(Equal(2))
			})
		})

		When("the wrapped engine fails", func() {
			BeforeEach(func() {
				next.recognizeErr = ErrNoText
			})

			It("should return the error", func() {
				Expect(errors.Is(err, ErrNoText)).To(BeTrue())
			})

			It("should not store anything", func() {
				Expect(cache.Len()).To(Equal(0))
			})
		})
	})

	When("the cache is reopened", func() {
		BeforeEach(func() {
			_, err := cache.Recognize(context.Background(), []byte("persisted"), "")
			Expect(err).NotTo(HaveOccurred())
			Expect(cache.Close()).To(Succeed())

			next = newMockRecognizer()
			cache, err = OpenCache(dbPath, next)
			Expect(err).NotTo(HaveOccurred())
		})

		It("should still hold the text", func() {
			result, err := cache.Recognize(context.Background(), []byte("persisted"), "")
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Method).To(Equal(MethodCache))
			Expect(next.calls).To(BeZero())
		})
	})

	Describe("Close", func() {
		It("should close the wrapped engine", func() {
			Expect(cache.Close()).To(Succeed())
			Expect(next.closed).To(BeTrue())
			cache = nil
		})
	})
})
