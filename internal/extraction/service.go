package extraction

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/zombor/invoice-extractor/internal/invoice"
	"github.com/zombor/invoice-extractor/internal/scanning"
)

// IDGenerator generates unique IDs for results
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

// Extractor turns recognized text into a record
type Extractor interface {
	Extract(text string) invoice.Record
}

// uuidGenerator generates random UUIDs
type uuidGenerator struct{}

func (g *uuidGenerator) Generate() string {
	return uuid.NewString()
}

// defaultTimeSource provides the current time
type defaultTimeSource struct{}

func (t *defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Service runs inputs through recognition and extraction. It keeps no state
// between calls and may be used from several goroutines.
type Service struct {
	recognizer  scanning.Recognizer
	extractor   Extractor
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewService creates a new Service with default ID generator and time source.
// recognizer may be nil when only text inputs are processed.
func NewService(recognizer scanning.Recognizer, extractor Extractor) *Service {
	return &Service{
		recognizer:  recognizer,
		extractor:   extractor,
		idGenerator: &uuidGenerator{},
		timeSource:  &defaultTimeSource{},
	}
}

// NewServiceWithDeps creates a new Service with custom dependencies for testing
func NewServiceWithDeps(recognizer scanning.Recognizer, extractor Extractor, idGen IDGenerator, timeSrc TimeSource) *Service {
	return &Service{
		recognizer:  recognizer,
		extractor:   extractor,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

func (s *Service) newResult(source string) *Result {
	return &Result{
		ID:          s.idGenerator.Generate(),
		Source:      source,
		Record:      invoice.Record{Items: []invoice.LineItem{}},
		ExtractedAt: s.timeSource.Now(),
	}
}

// ProcessText extracts a record from text that needs no recognition
func (s *Service) ProcessText(source, text string) *Result {
	result := s.newResult(source)
	result.Method = MethodText
	s.extractText(result, text)
	return result
}

// ProcessReader extracts a record from all text read from r
func (s *Service) ProcessReader(source string, r io.Reader) (*Result, error) {
	result := s.newResult(source)
	result.Method = MethodText
	data, err := io.ReadAll(r)
	if err != nil {
		return s.fail(result, &InputError{Path: source, Err: err})
	}
	s.extractText(result, string(data))
	return result, nil
}

// ProcessTextFile extracts a record from a file known to hold text, whatever
// its content looks like
func (s *Service) ProcessTextFile(path string) (*Result, error) {
	result := s.newResult(path)
	result.Method = MethodText
	data, err := os.ReadFile(path)
	if err != nil {
		return s.fail(result, &InputError{Path: path, Err: err})
	}
	s.extractText(result, string(data))
	return result, nil
}

func (s *Service) extractText(result *Result, text string) {
	result.Text = text
	result.Record = s.extractor.Extract(text)
	s.done(result)
}

// fail records err on result and logs it
func (s *Service) fail(result *Result, err error) (*Result, error) {
	result.Err = err
	result.Duration = s.timeSource.Now().Sub(result.ExtractedAt)
	slog.Error("Failed to process input",
		"source", result.Source,
		"engine", result.Engine,
		"error", err,
	)
	return result, err
}

func (s *Service) done(result *Result) {
	result.Duration = s.timeSource.Now().Sub(result.ExtractedAt)
	slog.Debug("Processed input",
		"source", result.Source,
		"method", result.Method,
		"pages", result.Pages,
		"fields", result.Record.Fields(),
		"items", len(result.Record.Items),
		"duration", result.Duration,
	)
}

// ProcessFile reads, recognizes and extracts one file. Plain text files skip
// recognition. The returned Result is never nil: on failure it carries the
// error and a record with every field absent, so that callers can report it.
func (s *Service) ProcessFile(ctx context.Context, path string) (*Result, error) {
	result := s.newResult(path)
	if err := s.processFile(ctx, path, result); err != nil {
		return s.fail(result, err)
	}
	s.done(result)
	return result, nil
}

func (s *Service) processFile(ctx context.Context, path string, result *Result) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return &InputError{Path: path, Err: err}
	}
	if len(data) == 0 {
		return &InputError{Path: path, Err: errors.New("file is empty")}
	}

	contentType := scanning.DetectContentType(data, "")
	if contentType == "text/plain" {
		result.Method = MethodText
		result.Text = string(data)
		result.Record = s.extractor.Extract(result.Text)
		return nil
	}

	if s.recognizer == nil {
		return &RecognitionError{Path: path, Err: scanning.ErrEngineUnavailable}
	}
	result.Engine = s.recognizer.Name()

	text, err := s.recognizer.Recognize(ctx, data, contentType)
	if err != nil {
		if errors.Is(err, scanning.ErrUnsupportedFormat) || errors.Is(err, scanning.ErrCorruptInput) {
			return &InputError{Path: path, Err: err}
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("recognizing %s: %w", path, err)
		}
		return &RecognitionError{Path: path, Engine: result.Engine, Err: err}
	}

	result.Method = text.Method
	result.Pages = text.Pages
	result.Confidence = text.Confidence
	result.Text = text.Content
	result.Record = s.extractor.Extract(text.Content)
	return nil
}

// ProcessBatch processes paths with at most workers files in flight. Results
// are returned in input order; a failed input is recorded on its own Result
// and does not stop the others. Inputs not started before ctx is cancelled
// fail with the context error.
func (s *Service) ProcessBatch(ctx context.Context, paths []string, workers int) []*Result {
	if workers <= 0 {
		workers = 1
	}
	results := make([]*Result, len(paths))

	var g errgroup.Group
	g.SetLimit(workers)
	for i, path := range paths {
		g.Go(func() error {
			results[i], _ = s.ProcessFile(ctx, path)
			return nil
		})
	}
	_ = g.Wait()

	return results
}
