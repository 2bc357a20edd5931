package scanning

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"
)

var _ = Describe("Ollama", func() {
	var (
		server   *ghttp.Server
		ollama   *Ollama
		requests []ollamaChatRequest
		result   Text
		err      error
	)

	recordRequest := func(w http.ResponseWriter, r *http.Request) {
		var req ollamaChatRequest
		Expect(json.NewDecoder(r.Body).Decode(&req)).To(Succeed())
		requests = append(requests, req)
	}

	BeforeEach(func() {
		server = ghttp.NewServer()
		requests = nil
		var newErr error
		ollama, newErr = NewOllama(server.URL()+"/", "qwen2.5vl", PageOptions{}, 0)
		Expect(newErr).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		server.Close()
	})

	JustBeforeEach(func() {
		result, err = ollama.Recognize(context.Background(), testImage(16, 16), "image/png")
	})

	When("the model transcribes the page", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.CombineHandlers(
				ghttp.VerifyRequest(http.MethodPost, "/api/chat"),
				ghttp.VerifyContentType("application/json"),
				recordRequest,
				ghttp.RespondWithJSONEncoded(http.StatusOK, ollamaChatResponse{
					Message: ollamaMessage{Role: "assistant", Content: "```\nInvoice # 7\nTotal: 12.00\n```"},
					Done:    true,
				}),
			))
		})

		It("should return the cleaned transcript", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(result.Content).To(Equal("Invoice # 7\nTotal: 12.00"))
			Expect(result.Pages).To(Equal(1))
			Expect(result.Method).To(Equal(MethodOCR))
		})

		It("should send the page image with the user message", func() {
			Expect(requests).To(HaveLen(1))
			Expect(requests[0].Model).To(Equal("qwen2.5vl"))
			Expect(requests[0].Stream).To(BeFalse())
			Expect(requests[0].Messages).To(HaveLen(2))
			Expect(requests[0].Messages[1].Content).To(Equal(transcriptionPrompt))
			Expect(requests[0].Messages[1].Images).To(HaveLen(1))
		})
	})

	When("the model returns nothing", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.RespondWithJSONEncoded(http.StatusOK, ollamaChatResponse{Done: true}))
		})

		It("should return ErrNoText", func() {
			Expect(errors.Is(err, ErrNoText)).To(BeTrue())
		})
	})

	When("the API fails", func() {
		BeforeEach(func() {
			server.AppendHandlers(ghttp.RespondWith(http.StatusInternalServerError, "model not loaded"))
		})

		It("should return the status and body", func() {
			Expect(err).To(MatchError(ContainSubstring("status 500")))
			Expect(err).To(MatchError(ContainSubstring("model not loaded")))
		})
	})

	It("should be named ollama", func() {
		Expect(ollama.Name()).To(Equal("ollama"))
	})
})

var _ = Describe("New", func() {
	var (
		cfg        Config
		recognizer Recognizer
		err        error
	)

	BeforeEach(func() {
		cfg = Config{}
	})

	JustBeforeEach(func() {
		recognizer, err = New(cfg)
	})

	When("the engine is ollama", func() {
		BeforeEach(func() {
			cfg.Engine = "ollama"
		})

		It("should create an Ollama recognizer", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(recognizer.Name()).To(Equal("ollama"))
		})
	})

	When("the engine is gemini without a key", func() {
		BeforeEach(func() {
			cfg.Engine = "gemini"
		})

		It("should return an error and no recognizer", func() {
			Expect(err).To(MatchError(ContainSubstring("api key is required")))
			Expect(recognizer).To(BeNil())
		})
	})

	When("the engine is azure without an endpoint", func() {
		BeforeEach(func() {
			cfg.Engine = "azure"
			cfg.AzureKey = "key"
		})

		It("should return an error and no recognizer", func() {
			Expect(err).To(HaveOccurred())
			Expect(recognizer).To(BeNil())
		})
	})

	When("the engine is azure with credentials", func() {
		BeforeEach(func() {
			cfg.Engine = "azure"
			cfg.AzureEndpoint = "https://example.cognitiveservices.azure.com/"
			cfg.AzureKey = "key"
		})

		It("should create an Azure recognizer", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(recognizer.Name()).To(Equal("azure"))
		})
	})

	When("the engine is unknown", func() {
		BeforeEach(func() {
			cfg.Engine = "abbyy"
		})

		It("should list the valid engines", func() {
			Expect(err).To(MatchError(ContainSubstring("tesseract, gemini, ollama, azure")))
		})
	})
})
