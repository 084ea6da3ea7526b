package extractors

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/archivo-labs/archivo-cli/internal/core/domain"
	"github.com/archivo-labs/archivo-cli/internal/core/ports/driven"
)

// Registry dispatches extraction to the highest-priority extractor that
// supports the document's MIME type. Registration happens once during
// startup; lookups are safe for concurrent use afterwards.
type Registry struct {
	mu         sync.RWMutex
	byMIMEType map[string][]driven.Extractor
}

var _ driven.ExtractorRegistry = (*Registry)(nil)

// NewRegistry creates an empty extractor registry.
func NewRegistry() *Registry {
	return &Registry{
		byMIMEType: make(map[string][]driven.Extractor),
	}
}

// Register adds an extractor for all MIME types it supports. Extractors
// sharing a MIME type are ordered by descending priority.
func (r *Registry) Register(e driven.Extractor) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, mimeType := range e.SupportedMIMETypes() {
		extractors := append(r.byMIMEType[mimeType], e)
		sort.SliceStable(extractors, func(i, j int) bool {
			return extractors[i].Priority() > extractors[j].Priority()
		})
		r.byMIMEType[mimeType] = extractors
	}
}

// Extract runs the best-matching extractor for the document's content
// type. Returns ErrUnsupportedType when no extractor handles the type.
func (r *Registry) Extract(ctx context.Context, ref domain.DocumentRef, content []byte) (string, error) {
	mimeType := ref.ContentType.MIMEType()

	r.mu.RLock()
	extractors := r.byMIMEType[mimeType]
	r.mu.RUnlock()

	if len(extractors) == 0 {
		return "", fmt.Errorf("no extractor for %q (%s): %w", ref.Path, mimeType, domain.ErrUnsupportedType)
	}

	return extractors[0].Extract(ctx, ref, content)
}
