package extract

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

// CommandRunner executes an external tool and returns its stdout. A seam so
// tests never shell out.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// PDF extracts text by shelling out to pdftotext (poppler-utils). The
// document is staged in a temp file because pdftotext reads from disk.
type PDF struct {
	runner CommandRunner
}

func NewPDF(runner CommandRunner) *PDF {
	if runner == nil {
		runner = execRunner{}
	}
	return &PDF{runner: runner}
}

func (p *PDF) Extensions() []string {
	return []string{".pdf"}
}

func (p *PDF) Extract(ctx context.Context, f File) (string, error) {
	dir, err := os.MkdirTemp("", "synthesis-pdf-")
	if err != nil {
		return "", fmt.Errorf("%w: staging %s: %v", ErrExtraction, f.Name, err)
	}
	defer os.RemoveAll(dir)

	src := filepath.Join(dir, "input.pdf")
	if err := os.WriteFile(src, f.Content, 0o600); err != nil {
		return "", fmt.Errorf("%w: staging %s: %v", ErrExtraction, f.Name, err)
	}

	// "-" streams the layout-preserving text to stdout.
	out, err := p.runner.Run(ctx, "pdftotext", "-layout", src, "-")
	if err != nil {
		return "", fmt.Errorf("%w: pdftotext on %s: %v", ErrExtraction, f.Name, err)
	}
	return string(out), nil
}
