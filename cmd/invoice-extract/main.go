package main

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"syscall"
	"time"

	"github.com/peterbourgon/ff/v4"
	"github.com/peterbourgon/ff/v4/ffhelp"
	"github.com/zombor/invoice-extractor/internal/extraction"
	"github.com/zombor/invoice-extractor/internal/invoice"
	"github.com/zombor/invoice-extractor/internal/scanning"
)

//go:embed VERSION.txt
var versionFile string

var version = strings.TrimSpace(versionFile)

const (
	exitOK      = 0
	exitFailed  = 1
	exitUsage   = 2
	stdinSource = "-"
)

var formats = []string{"json", "csv", "xlsx"}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

type options struct {
	output          string
	format          string
	metadata        bool
	text            bool
	engine          scanning.Config
	cachePath       string
	noPDFText       bool
	workers         int
	defaultCurrency string
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := ff.NewFlagSet("invoice-extract")
	var (
		output          = fs.String('o', "output", "", "Output file, or directory for one file per input (stdout when empty)")
		format          = fs.String('f', "format", "", "Output format: json, csv or xlsx (default from the output extension, else json)")
		metadata        = fs.BoolLong("metadata", "Write JSON results with raw text, engine, confidence and timing around each record")
		textMode        = fs.BoolLong("text", "Treat inputs as plain text and skip OCR ('-' reads stdin)")
		engine          = fs.StringLong("engine", "tesseract", "OCR engine: "+strings.Join(scanning.Engines, ", "))
		lang            = fs.StringLong("lang", "eng", "OCR language")
		psm             = fs.IntLong("psm", 6, "Tesseract page segmentation mode")
		dpi             = fs.IntLong("dpi", 300, "PDF rasterization resolution")
		maxPages        = fs.IntLong("max-pages", 10, "Maximum PDF pages to read per input")
		maxDimension    = fs.IntLong("max-dimension", 0, "Scale pages down to fit this many pixels (0 keeps the size)")
		geminiKey       = fs.StringLong("gemini-key", "", "Google Gemini API key (or set GEMINI_API_KEY env var)")
		geminiModel     = fs.StringLong("gemini-model", "gemini-2.5-pro", "Google Gemini model name")
		ollamaURL       = fs.StringLong("ollama-url", "http://localhost:11434", "Ollama API base URL")
		ollamaModel     = fs.StringLong("ollama-model", "llava", "Ollama model name (e.g., llava, llava-phi3, qwen2-vl)")
		azureEndpoint   = fs.StringLong("azure-endpoint", "", "Azure Computer Vision endpoint")
		azureKey        = fs.StringLong("azure-key", "", "Azure Computer Vision subscription key")
		timeout         = fs.DurationLong("timeout", 0, "Timeout for one remote OCR call (0 uses the engine default)")
		cachePath       = fs.StringLong("cache", "", "Path of an OCR text cache database (optional)")
		noPDFText       = fs.BoolLong("no-pdf-text", "Always OCR PDFs, even when they carry a text layer")
		workers         = fs.IntLong("workers", runtime.NumCPU(), "Number of inputs processed concurrently")
		defaultCurrency = fs.StringLong("default-currency", "", "Currency code or symbol used when an invoice names none")
		verbose         = fs.Bool('v', "verbose", "Log debug output")
		showVersion     = fs.BoolLong("version", "Show version information")
		_               = fs.StringLong("config", "", "Config file (key value per line)")
	)

	if err := ff.Parse(fs, args,
		ff.WithEnvVarPrefix("INVOICE_EXTRACT"),
		ff.WithConfigFileFlag("config"),
		ff.WithConfigFileParser(ff.PlainParser),
	); err != nil {
		fmt.Fprintf(stderr, "%s\n", ffhelp.Flags(fs))
		if errors.Is(err, ff.ErrHelp) {
			return exitOK
		}
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitUsage
	}

	if *showVersion {
		fmt.Fprintln(stdout, version)
		return exitOK
	}

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level})))

	inputs := fs.GetArgs()
	if len(inputs) == 0 {
		fmt.Fprintf(stderr, "%s\n", ffhelp.Flags(fs))
		fmt.Fprintf(stderr, "error: no inputs given\n")
		return exitUsage
	}

	key := *geminiKey
	if key == "" {
		key = os.Getenv("GEMINI_API_KEY")
	}
	opts := options{
		output:   *output,
		format:   *format,
		metadata: *metadata,
		text:     *textMode,
		engine: scanning.Config{
			Engine:      *engine,
			Language:    *lang,
			PageSegMode: *psm,
			Pages: scanning.PageOptions{
				DPI:          float64(*dpi),
				MaxPages:     *maxPages,
				MaxDimension: *maxDimension,
			},
			GeminiKey:     key,
			GeminiModel:   *geminiModel,
			OllamaURL:     *ollamaURL,
			OllamaModel:   *ollamaModel,
			AzureEndpoint: *azureEndpoint,
			AzureKey:      *azureKey,
			Timeout:       *timeout,
		},
		cachePath:       *cachePath,
		noPDFText:       *noPDFText,
		workers:         *workers,
		defaultCurrency: *defaultCurrency,
	}

	if err := opts.resolveFormat(); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitUsage
	}
	if opts.defaultCurrency != "" {
		code, ok := invoice.NormalizeCurrency(opts.defaultCurrency)
		if !ok {
			fmt.Fprintf(stderr, "error: invalid default currency %q, want a three-letter code or a currency symbol\n", opts.defaultCurrency)
			return exitUsage
		}
		opts.defaultCurrency = code
	}

	return extract(ctx, opts, inputs, stdin, stdout)
}

// resolveFormat fills in the format from the output extension and checks it
func (o *options) resolveFormat() error {
	if o.format == "" {
		o.format = strings.TrimPrefix(strings.ToLower(filepath.Ext(o.output)), ".")
		if !slices.Contains(formats, o.format) {
			o.format = "json"
		}
	}
	o.format = strings.ToLower(o.format)
	if !slices.Contains(formats, o.format) {
		return fmt.Errorf("invalid format %q, want one of %s", o.format, strings.Join(formats, ", "))
	}
	if o.metadata && o.format != "json" {
		return fmt.Errorf("--metadata needs the json format, not %s", o.format)
	}
	return nil
}

func extract(ctx context.Context, opts options, args []string, stdin io.Reader, stdout io.Writer) int {
	start := time.Now()

	exts := extraction.DefaultExtensions
	if opts.text {
		exts = []string{".txt"}
	}
	inputs, err := extraction.ExpandInputs(args, exts)
	if err != nil {
		slog.Error("Failed to expand inputs", "error", err)
		return exitUsage
	}

	var recognizer scanning.Recognizer
	if needsRecognizer(inputs, opts.text) {
		recognizer, err = newRecognizer(opts)
		if err != nil {
			slog.Error("Failed to initialize OCR engine", "engine", opts.engine.Engine, "error", err)
			return exitUsage
		}
		defer recognizer.Close()
		slog.Info("Initialized OCR engine", "engine", recognizer.Name())
	}

	extractor := invoice.NewExtractor(invoice.WithDefaultCurrency(opts.defaultCurrency))
	service := extraction.NewService(recognizer, extractor)

	results := process(ctx, service, inputs, opts, stdin)

	code := exitOK
	failed := 0
	for _, result := range results {
		if result.Failed() {
			failed++
			code = exitFailed
		}
	}

	if err := writeResults(results, opts, stdout); err != nil {
		slog.Error("Failed to write output", "output", opts.output, "error", err)
		code = exitFailed
	}

	slog.Info("Extraction finished",
		"inputs", len(results),
		"failed", failed,
		"format", opts.format,
		"duration", time.Since(start),
	)
	return code
}

// needsRecognizer reports whether any input may need OCR. Stdin and .txt
// files are read as text.
func needsRecognizer(inputs []string, textMode bool) bool {
	if textMode {
		return false
	}
	for _, input := range inputs {
		if input != stdinSource && !strings.EqualFold(filepath.Ext(input), ".txt") {
			return true
		}
	}
	return false
}

func newRecognizer(opts options) (scanning.Recognizer, error) {
	recognizer, err := scanning.New(opts.engine)
	if err != nil {
		return nil, err
	}
	if !opts.noPDFText {
		recognizer = scanning.NewPDFTextLayer(recognizer, 0, opts.engine.Pages.MaxPages)
	}
	if opts.cachePath != "" {
		cache, err := scanning.OpenCache(opts.cachePath, recognizer)
		if err != nil {
			recognizer.Close()
			return nil, err
		}
		recognizer = cache
	}
	return recognizer, nil
}

// process runs every input and returns the results in input order
func process(ctx context.Context, service *extraction.Service, inputs []string, opts options, stdin io.Reader) []*extraction.Result {
	results := make([]*extraction.Result, len(inputs))

	var files []string
	var fileIndex []int
	for i, input := range inputs {
		switch {
		case input == stdinSource:
			results[i], _ = service.ProcessReader(stdinSource, stdin)
		case opts.text:
			results[i], _ = service.ProcessTextFile(input)
		default:
			files = append(files, input)
			fileIndex = append(fileIndex, i)
		}
	}

	if len(files) > 0 {
		for i, result := range service.ProcessBatch(ctx, files, opts.workers) {
			results[fileIndex[i]] = result
		}
	}
	return results
}

func writeResults(results []*extraction.Result, opts options, stdout io.Writer) error {
	switch {
	case opts.output == "":
		return encode(stdout, opts, results)
	case isDir(opts.output):
		return writeDir(results, opts)
	default:
		return writeFile(results, opts)
	}
}

// isDir reports whether output names a directory, existing or to be created
func isDir(output string) bool {
	if strings.HasSuffix(output, "/") || strings.HasSuffix(output, string(filepath.Separator)) {
		return true
	}
	info, err := os.Stat(output)
	return err == nil && info.IsDir()
}

func encode(w io.Writer, opts options, results []*extraction.Result) error {
	if opts.metadata {
		return extraction.WriteResultsJSON(w, results)
	}
	switch opts.format {
	case "csv":
		return invoice.WriteCSV(w, extraction.Rows(results))
	case "xlsx":
		return invoice.WriteXLSX(w, extraction.Rows(results))
	default:
		return invoice.WriteJSON(w, extraction.Records(results)...)
	}
}

// itemsName returns the name of the line item file written next to a csv file
func itemsName(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + "_items.csv"
}

func writeFile(results []*extraction.Result, opts options) error {
	var buf bytes.Buffer
	if err := encode(&buf, opts, results); err != nil {
		return err
	}
	if err := os.WriteFile(opts.output, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", opts.output, err)
	}
	slog.Debug("Wrote output", "path", opts.output)

	if opts.format != "csv" {
		return nil
	}
	buf.Reset()
	if err := invoice.WriteItemsCSV(&buf, extraction.Rows(results)); err != nil {
		return err
	}
	path := itemsName(opts.output)
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	slog.Debug("Wrote output", "path", path)
	return nil
}

// writeDir writes one output file per input into the output directory
func writeDir(results []*extraction.Result, opts options) error {
	sink, err := extraction.NewLocalSink(opts.output)
	if err != nil {
		return err
	}

	var errs []error
	for _, result := range results {
		if err := saveResult(sink, result, opts); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", result.Source, err))
		}
	}
	return errors.Join(errs...)
}

func saveResult(sink extraction.Sink, result *extraction.Result, opts options) error {
	format := opts.format
	var buf bytes.Buffer
	if err := encode(&buf, opts, []*extraction.Result{result}); err != nil {
		return err
	}
	path, err := sink.Save(extraction.OutputName(result.Source, "."+format), buf.Bytes())
	if err != nil {
		return err
	}
	slog.Debug("Wrote output", "source", result.Source, "path", path)

	if format != "csv" {
		return nil
	}
	buf.Reset()
	if err := invoice.WriteItemsCSV(&buf, []invoice.Row{result.Row()}); err != nil {
		return err
	}
	if _, err := sink.Save(filepath.Base(itemsName(path)), buf.Bytes()); err != nil {
		return err
	}
	return nil
}
