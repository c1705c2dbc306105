// Package pdf extracts plain text from PDF bytes using the poppler
// pdftotext utility.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/keepstack/keepstack/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.PDFExtractor = (*Extractor)(nil)

// CommandRunner executes an external command with the given stdin.
// It exists so tests can substitute the pdftotext binary.
type CommandRunner interface {
	Run(ctx context.Context, name string, stdin []byte, args ...string) ([]byte, error)
}

// execRunner runs commands through os/exec.
type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, stdin []byte, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdin = bytes.NewReader(stdin)

	var out bytes.Buffer
	cmd.Stdout = &out
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("run %s: %w", name, err)
	}
	return out.Bytes(), nil
}

// Extractor converts PDF bytes to text with per-page markers.
type Extractor struct {
	runner CommandRunner
}

// New creates an extractor backed by the pdftotext binary.
func New() *Extractor {
	return &Extractor{runner: execRunner{}}
}

// NewWithRunner creates an extractor with a custom command runner.
func NewWithRunner(runner CommandRunner) *Extractor {
	return &Extractor{runner: runner}
}

// ExtractText returns the document text, pages prefixed with a
// "[Page N]" marker and joined with blank lines. Pages without text are
// skipped. Errors are returned as-is; indexing callers degrade them to an
// empty-content outcome.
func (e *Extractor) ExtractText(ctx context.Context, data []byte) (string, error) {
	out, err := e.runner.Run(ctx, "pdftotext", data, "-enc", "UTF-8", "-", "-")
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}

	// pdftotext separates pages with form feeds.
	pages := strings.Split(string(out), "\f")

	var parts []string
	for i, page := range pages {
		page = strings.TrimSpace(page)
		if page == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("[Page %d]\n%s", i+1, page))
	}

	return strings.Join(parts, "\n\n"), nil
}
