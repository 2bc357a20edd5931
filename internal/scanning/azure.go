package scanning

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/services/cognitiveservices/v3.0/computervision"
	"github.com/Azure/go-autorest/autorest"
)

const defaultAzureTimeout = 60 * time.Second

// azureLanguages maps Tesseract language codes to Computer Vision OCR languages
var azureLanguages = map[string]computervision.OcrLanguages{
	"eng": computervision.OcrLanguagesEn,
	"deu": computervision.OcrLanguagesDe,
	"fra": computervision.OcrLanguagesFr,
	"spa": computervision.OcrLanguagesEs,
	"ita": computervision.OcrLanguagesIt,
	"nld": computervision.OcrLanguagesNl,
	"por": computervision.OcrLanguagesPt,
}

// Azure implements the Recognizer interface using Azure Computer Vision
type Azure struct {
	client   computervision.BaseClient
	language computervision.OcrLanguages
	pages    PageOptions
	timeout  time.Duration
}

// NewAzure creates a new Azure Computer Vision Recognizer instance
func NewAzure(endpoint, apiKey, language string, pages PageOptions, timeout time.Duration) (*Azure, error) {
	if endpoint == "" || apiKey == "" {
		return nil, fmt.Errorf("azure endpoint and api key are required")
	}
	if timeout <= 0 {
		timeout = defaultAzureTimeout
	}

	lang, ok := azureLanguages[strings.ToLower(language)]
	if !ok {
		lang = computervision.OcrLanguagesUnk // let the service detect it
	}

	client := computervision.New(strings.TrimRight(endpoint, "/"))
	client.Authorizer = autorest.NewCognitiveServicesAuthorizer(apiKey)

	return &Azure{
		client:   client,
		language: lang,
		pages:    pages,
		timeout:  timeout,
	}, nil
}

// Name returns "azure"
func (a *Azure) Name() string {
	return "azure"
}

// Recognize runs printed-text OCR over every page of the document
func (a *Azure) Recognize(ctx context.Context, data []byte, contentType string) (Text, error) {
	return recognizePages(ctx, data, contentType, a.pages, a.recognizePage)
}

func (a *Azure) recognizePage(ctx context.Context, page []byte) (string, float64, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	result, err := a.client.RecognizePrintedTextInStream(ctx, true, io.NopCloser(bytes.NewReader(page)), a.language)
	if err != nil {
		return "", 0, fmt.Errorf("calling azure computer vision: %w", err)
	}
	return ocrResultText(result), 0, nil
}

// ocrResultText joins the recognized words line by line, regions in reading order
func ocrResultText(result computervision.OcrResult) string {
	if result.Regions == nil {
		return ""
	}
	var out strings.Builder
	for _, region := range *result.Regions {
		if region.Lines == nil {
			continue
		}
		for _, line := range *region.Lines {
			if line.Words == nil {
				continue
			}
			words := make([]string, 0, len(*line.Words))
			for _, word := range *line.Words {
				if word.Text != nil {
					words = append(words, *word.Text)
				}
			}
			out.WriteString(strings.Join(words, " "))
			out.WriteString("\n")
		}
		out.WriteString("\n")
	}
	return strings.TrimSpace(out.String())
}

// Close is a no-op for the HTTP based client
func (a *Azure) Close() error {
	return nil
}
