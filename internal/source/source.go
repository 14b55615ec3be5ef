// Package source reads the raw product snapshot left by the fetch job.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/Veraticus/the-basket-must-flow/internal/common"
	"github.com/Veraticus/the-basket-must-flow/internal/model"
)

// Origin names which file a batch came from.
const (
	OriginPrimary  = "primary"
	OriginFallback = "fallback"
)

// Batch is one loaded snapshot.
type Batch struct {
	Origin  string
	Path    string
	Records []model.RawRecord
}

// FileLoader reads records from a primary file, or from a fallback file when
// the primary one does not exist.
type FileLoader struct {
	primary  string
	fallback string
}

// NewFileLoader creates a loader. fallback may be empty.
func NewFileLoader(primary, fallback string) *FileLoader {
	return &FileLoader{primary: primary, fallback: fallback}
}

// Load reads the first existing file. Missing and malformed input are
// reported as InputValidationError.
func (l *FileLoader) Load(ctx context.Context) (*Batch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	candidates := []struct{ origin, path string }{{OriginPrimary, l.primary}}
	if l.fallback != "" {
		candidates = append(candidates, struct{ origin, path string }{OriginFallback, l.fallback})
	}

	for _, c := range candidates {
		if c.path == "" {
			continue
		}
		records, err := ReadFile(c.path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return &Batch{Origin: c.origin, Path: c.path, Records: records}, nil
	}

	tried := l.primary
	if l.fallback != "" {
		tried += ", " + l.fallback
	}
	return nil, common.NewInputError(common.ErrInputNotFound, "no input file at %s", tried)
}

// ReadFile decodes path according to its extension (.json or .csv).
func ReadFile(path string) ([]model.RawRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		return nil, common.NewInputError(common.ErrMalformedInput, "open %s: %v", path, err)
	}
	defer f.Close()

	return Decode(f, formatFor(path))
}

// Format is an input encoding.
type Format string

// Supported formats.
const (
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// Decode reads records from r in the given format.
func Decode(r io.Reader, format Format) ([]model.RawRecord, error) {
	switch format {
	case FormatJSON:
		return decodeJSON(r)
	case FormatCSV:
		return decodeCSV(r)
	default:
		return nil, common.NewInputError(common.ErrMalformedInput, "unsupported input format %q", format)
	}
}

func formatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV
	case ".json":
		return FormatJSON
	default:
		return Format(strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."))
	}
}

func malformed(format string, args ...any) error {
	return common.NewInputError(common.ErrMalformedInput, "%s", fmt.Sprintf(format, args...))
}
