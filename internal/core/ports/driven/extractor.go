package driven

import (
	"context"

	"github.com/archivo-labs/archivo-cli/internal/core/domain"
)

// Extractor converts raw document bytes into normalised plain text.
// Each extractor handles specific MIME types (e.g., PDF, DOCX).
type Extractor interface {
	// SupportedMIMETypes returns the MIME types this extractor handles.
	SupportedMIMETypes() []string

	// Priority returns the selection priority (higher = preferred) when
	// multiple extractors claim the same MIME type.
	// Format-specific extractors should return 50-89.
	// Fallback extractors should return 1-9.
	Priority() int

	// Extract returns the normalised text for the document. It fails with
	// domain.ErrExtraction (or a wrapped cause such as domain.ErrNoContent)
	// when the document cannot be converted; extraction never touches the
	// index.
	Extract(ctx context.Context, ref domain.DocumentRef, content []byte) (string, error)
}

// ExtractorRegistry selects and runs the appropriate extractor for a
// document, based on its declared content type.
type ExtractorRegistry interface {
	// Register adds an extractor to the registry.
	Register(e Extractor)

	// Extract picks the highest-priority extractor for the ref's MIME
	// type and runs it. Returns domain.ErrUnsupportedType when no
	// extractor claims the type.
	Extract(ctx context.Context, ref domain.DocumentRef, content []byte) (string, error)
}

// CommandRunner executes an external command and returns its combined
// output. Extractors that shell out (pdftotext) accept a runner so tests
// can inject a double.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}
