package extract

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

var (
	// ErrUnsupportedFormat marks a file type no extractor claims.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrExtraction marks a corrupt file or one with no usable text.
	ErrExtraction = errors.New("text extraction failed")
)

// File is one uploaded document held in memory for the length of a run.
// Size carries the declared upload size so oversized files can be rejected
// without ever buffering their content; zero means unknown.
type File struct {
	Name    string
	Content []byte
	Size    int64
}

// Extractor turns one document format into plain text.
type Extractor interface {
	// Extensions lists the lowercase file extensions this extractor claims,
	// dot included.
	Extensions() []string

	Extract(ctx context.Context, f File) (string, error)
}

// Registry dispatches files to extractors by extension. Registering a new
// format touches nothing but the registry construction site.
type Registry struct {
	byExt map[string]Extractor
}

func NewRegistry(extractors ...Extractor) *Registry {
	r := &Registry{byExt: make(map[string]Extractor)}
	for _, ex := range extractors {
		for _, ext := range ex.Extensions() {
			r.byExt[strings.ToLower(ext)] = ex
		}
	}
	return r
}

// DefaultRegistry claims plain text, Word documents and PDFs.
func DefaultRegistry() *Registry {
	return NewRegistry(
		NewPlainText(),
		NewDOCX(),
		NewPDF(nil),
	)
}

func (r *Registry) For(name string) (Extractor, error) {
	ext := strings.ToLower(filepath.Ext(name))
	ex, ok := r.byExt[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
	return ex, nil
}

// Extract dispatches f and rejects results with no usable text.
func (r *Registry) Extract(ctx context.Context, f File) (string, error) {
	ex, err := r.For(f.Name)
	if err != nil {
		return "", err
	}
	text, err := ex.Extract(ctx, f)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: no extractable text in %s", ErrExtraction, f.Name)
	}
	return text, nil
}
