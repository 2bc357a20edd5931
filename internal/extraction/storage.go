package extraction

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// Sink defines the interface for writing output files
type Sink interface {
	// Save writes a file and returns the path it was written to
	Save(filename string, data []byte) (string, error)
}

// LocalSink implements the Sink interface using the local filesystem.
// Names written once are not reused: a second file with the same name gets
// a numeric suffix. A LocalSink is not safe for concurrent use.
type LocalSink struct {
	basePath string
	used     map[string]bool
}

// NewLocalSink creates a new LocalSink writing below basePath
func NewLocalSink(basePath string) (*LocalSink, error) {
	// Create directory if it doesn't exist
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	return &LocalSink{
		basePath: basePath,
		used:     make(map[string]bool),
	}, nil
}

// Save writes data to a file in the output directory
func (l *LocalSink) Save(filename string, data []byte) (string, error) {
	filename = l.reserve(filename)
	path := filepath.Join(l.basePath, filename)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("writing file: %w", err)
	}
	return path, nil
}

func (l *LocalSink) reserve(filename string) string {
	ext := filepath.Ext(filename)
	base := strings.TrimSuffix(filename, ext)
	name := filename
	for i := 2; l.used[name]; i++ {
		name = base + "-" + strconv.Itoa(i) + ext
	}
	l.used[name] = true
	return name
}

var (
	reUnsafeChars = regexp.MustCompile(`[^a-zA-Z0-9\s\-_]`)
	reSpaces      = regexp.MustCompile(`\s+`)
)

// OutputName derives the name of the output file for an input: the input's
// base name, cleaned of special characters, with ext in place of its extension.
func OutputName(source, ext string) string {
	base := filepath.Base(source)
	base = strings.TrimSuffix(base, filepath.Ext(base))

	// Remove special characters, keep only alphanumeric, spaces, hyphens, and underscores
	base = reUnsafeChars.ReplaceAllString(base, "")
	base = reSpaces.ReplaceAllString(base, " ")
	base = strings.TrimSpace(base)

	// Truncate to reasonable length (50 chars for base, plus extension)
	if len(base) > 50 {
		base = base[:50]
	}
	if base == "" || source == "-" {
		base = "invoice"
	}
	return base + ext
}
