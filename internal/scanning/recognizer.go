package scanning

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Methods report how a Text was obtained
const (
	MethodOCR     = "ocr"
	MethodPDFText = "pdf-text"
	MethodCache   = "cache"
)

var (
	// ErrNoText is returned when recognition succeeds but yields no usable text
	ErrNoText = errors.New("no text recognized")
	// ErrEngineUnavailable is returned when an engine cannot run in this build
	ErrEngineUnavailable = errors.New("recognition engine unavailable")
	// ErrUnsupportedFormat is returned for inputs that are neither images nor PDFs
	ErrUnsupportedFormat = errors.New("unsupported format")
	// ErrCorruptInput is returned when an image or PDF cannot be decoded
	ErrCorruptInput = errors.New("corrupt input")
)

// Text contains the recognized text of one document
type Text struct {
	Content    string
	Pages      int
	Method     string
	Confidence float64 // mean word confidence 0-100, 0 when the engine reports none
}

// Recognizer defines the interface for turning an image or PDF into text
type Recognizer interface {
	// Name identifies the engine, e.g. "tesseract"
	Name() string
	// Recognize returns the text of data. contentType may be empty, in which
	// case it is detected from the bytes.
	Recognize(ctx context.Context, data []byte, contentType string) (Text, error)
	// Close releases resources held by the engine
	Close() error
}

// Config selects and configures a recognition engine
type Config struct {
	Engine string // tesseract, gemini, ollama or azure

	Language    string // tesseract language, e.g. "eng"
	PageSegMode int    // tesseract page segmentation mode

	Pages PageOptions

	GeminiKey   string
	GeminiModel string

	OllamaURL   string
	OllamaModel string

	AzureEndpoint string
	AzureKey      string

	// Timeout bounds a single remote engine call; zero uses the engine default
	Timeout time.Duration
}

// Engines lists the accepted Config.Engine values
var Engines = []string{"tesseract", "gemini", "ollama", "azure"}

// New creates the Recognizer named by cfg.Engine
func New(cfg Config) (Recognizer, error) {
	switch cfg.Engine {
	case "", "tesseract":
		return newRecognizer(NewTesseract(cfg.Language, cfg.PageSegMode, cfg.Pages))
	case "gemini":
		return newRecognizer(NewGemini(cfg.GeminiKey, cfg.GeminiModel, cfg.Pages, cfg.Timeout))
	case "ollama":
		return newRecognizer(NewOllama(cfg.OllamaURL, cfg.OllamaModel, cfg.Pages, cfg.Timeout))
	case "azure":
		return newRecognizer(NewAzure(cfg.AzureEndpoint, cfg.AzureKey, cfg.Language, cfg.Pages, cfg.Timeout))
	default:
		return nil, fmt.Errorf("unknown engine %q, valid engines: %s", cfg.Engine, strings.Join(Engines, ", "))
	}
}

// newRecognizer drops the typed nil a failed constructor returns
func newRecognizer[R Recognizer](r R, err error) (Recognizer, error) {
	if err != nil {
		return nil, err
	}
	return r, nil
}
