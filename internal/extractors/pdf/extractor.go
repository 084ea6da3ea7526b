// Package pdf extracts text from PDF files by shelling out to the
// pdftotext tool from poppler-utils. The tool emits one form feed per
// page boundary, which this package converts into paragraph breaks.
package pdf

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"github.com/archivo-labs/archivo-cli/internal/core/domain"
	"github.com/archivo-labs/archivo-cli/internal/core/ports/driven"
	"github.com/archivo-labs/archivo-cli/internal/extractors"
	"github.com/archivo-labs/archivo-cli/internal/logger"
)

// ErrToolNotFound indicates pdftotext is not installed or not on PATH.
var ErrToolNotFound = fmt.Errorf("pdftotext not found")

// Extractor runs pdftotext against the document's path and reads the
// plain text from stdout.
type Extractor struct {
	runner driven.CommandRunner
}

var _ driven.Extractor = (*Extractor)(nil)

// New creates a PDF extractor. Pass nil to use the real pdftotext
// binary; tests inject a fake runner.
func New(runner driven.CommandRunner) *Extractor {
	if runner == nil {
		runner = execRunner{}
	}
	return &Extractor{runner: runner}
}

func (e *Extractor) SupportedMIMETypes() []string {
	return []string{"application/pdf"}
}

func (e *Extractor) Priority() int {
	return 10
}

func (e *Extractor) Extract(ctx context.Context, ref domain.DocumentRef, _ []byte) (string, error) {
	out, err := e.runner.Run(ctx, "pdftotext", "-enc", "UTF-8", ref.Path, "-")
	if err != nil {
		if isNotFound(err) {
			return "", fmt.Errorf("extract %q: %w\n%s", ref.Path, ErrToolNotFound, InstallInstructions())
		}
		return "", fmt.Errorf("pdftotext %q: %v: %w", ref.Path, err, domain.ErrExtraction)
	}

	pages := strings.Split(string(out), "\f")
	empty := 0
	var b strings.Builder
	for _, page := range pages {
		if strings.TrimSpace(page) == "" {
			empty++
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(page)
	}
	if empty > 0 {
		logger.Debug("pdf %s: skipped %d empty page(s)", ref.Path, empty)
	}

	text := extractors.NormalizeText(b.String())
	if text == "" {
		return "", fmt.Errorf("%q has no extractable text: %w", ref.Path, domain.ErrNoContent)
	}
	return text, nil
}

// CheckAvailable reports whether pdftotext is on PATH.
func CheckAvailable() error {
	if _, err := exec.LookPath("pdftotext"); err != nil {
		return fmt.Errorf("%w\n%s", ErrToolNotFound, InstallInstructions())
	}
	return nil
}

// InstallInstructions returns platform-appropriate guidance for
// installing poppler-utils.
func InstallInstructions() string {
	switch runtime.GOOS {
	case "darwin":
		return "Install poppler with: brew install poppler"
	case "linux":
		return "Install poppler-utils with: sudo apt install poppler-utils (Debian/Ubuntu) or sudo dnf install poppler-utils (Fedora)"
	default:
		return "Install poppler from https://poppler.freedesktop.org/"
	}
}

func isNotFound(err error) bool {
	var execErr *exec.Error
	return errors.As(err, &execErr) && errors.Is(execErr.Err, exec.ErrNotFound)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}
