package extractors

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archivo-labs/archivo-cli/internal/core/domain"
)

type stubExtractor struct {
	mimeTypes []string
	priority  int
	result    string
}

func (s *stubExtractor) SupportedMIMETypes() []string { return s.mimeTypes }
func (s *stubExtractor) Priority() int                { return s.priority }

func (s *stubExtractor) Extract(context.Context, domain.DocumentRef, []byte) (string, error) {
	return s.result, nil
}

func TestRegistry_Extract(t *testing.T) {
	registry := NewRegistry()
	registry.Register(&stubExtractor{
		mimeTypes: []string{"text/plain"},
		priority:  10,
		result:    "plain text",
	})

	ref := domain.DocumentRef{Path: "notes.txt", ContentType: domain.ContentTypeText}
	text, err := registry.Extract(context.Background(), ref, []byte("ignored"))
	require.NoError(t, err)
	assert.Equal(t, "plain text", text)
}

func TestRegistry_Extract_PrefersHigherPriority(t *testing.T) {
	registry := NewRegistry()
	registry.Register(&stubExtractor{
		mimeTypes: []string{"text/plain"},
		priority:  10,
		result:    "low",
	})
	registry.Register(&stubExtractor{
		mimeTypes: []string{"text/plain"},
		priority:  20,
		result:    "high",
	})

	ref := domain.DocumentRef{Path: "notes.txt", ContentType: domain.ContentTypeText}
	text, err := registry.Extract(context.Background(), ref, nil)
	require.NoError(t, err)
	assert.Equal(t, "high", text)
}

func TestRegistry_Extract_UnsupportedType(t *testing.T) {
	registry := NewRegistry()

	ref := domain.DocumentRef{Path: "scan.pdf", ContentType: domain.ContentTypePDF}
	_, err := registry.Extract(context.Background(), ref, nil)
	assert.ErrorIs(t, err, domain.ErrUnsupportedType)
}
