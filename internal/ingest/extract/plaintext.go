package extract

import (
	"context"
	"fmt"
	"unicode/utf8"
)

// PlainText passes UTF-8 text files through unchanged.
type PlainText struct{}

func NewPlainText() *PlainText { return &PlainText{} }

func (p *PlainText) Extensions() []string {
	return []string{".txt", ".text", ".md", ".csv"}
}

func (p *PlainText) Extract(_ context.Context, f File) (string, error) {
	if !utf8.Valid(f.Content) {
		return "", fmt.Errorf("%w: %s is not valid UTF-8", ErrExtraction, f.Name)
	}
	return string(f.Content), nil
}
