// Package plaintext extracts text from plain text and markdown files.
package plaintext

import (
	"context"
	"fmt"
	"strings"

	"github.com/archivo-labs/archivo-cli/internal/core/domain"
	"github.com/archivo-labs/archivo-cli/internal/core/ports/driven"
	"github.com/archivo-labs/archivo-cli/internal/extractors"
)

// Extractor handles plain text content. Invalid UTF-8 sequences are
// replaced rather than rejected, so files with stray bytes still yield
// their readable content.
type Extractor struct{}

var _ driven.Extractor = (*Extractor)(nil)

func New() *Extractor {
	return &Extractor{}
}

func (e *Extractor) SupportedMIMETypes() []string {
	return []string{"text/plain", "text/markdown"}
}

func (e *Extractor) Priority() int {
	return 10
}

func (e *Extractor) Extract(_ context.Context, ref domain.DocumentRef, content []byte) (string, error) {
	text := strings.ToValidUTF8(string(content), "�")
	text = extractors.NormalizeText(text)
	if text == "" {
		return "", fmt.Errorf("%q: %w", ref.Path, domain.ErrNoContent)
	}
	return text, nil
}
