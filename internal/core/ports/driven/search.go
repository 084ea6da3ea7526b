package driven

import (
	"context"

	"github.com/archivo-labs/archivo-cli/internal/core/domain"
)

// SearchEngine provides lexical full-text search over ingested chunks.
// Backed by Bleve for BM25 scoring. It stores chunk text and provenance
// itself, so degraded-mode retrieval works even when the vector index is
// unreadable.
type SearchEngine interface {
	// Index adds or updates chunks in the search index.
	Index(ctx context.Context, entries []domain.IndexEntry) error

	// Delete removes a chunk from the search index.
	Delete(ctx context.Context, chunkID string) error

	// DeleteByDocument removes all chunks belonging to a document.
	DeleteByDocument(ctx context.Context, documentID string) error

	// Search performs a keyword search and returns matching chunks with
	// their stored text and provenance, ordered by descending score.
	Search(ctx context.Context, query string, limit int) ([]SearchHit, error)

	// Close releases resources.
	Close() error
}

// SearchHit is a lexical search result.
type SearchHit struct {
	// ChunkID is the matched chunk.
	ChunkID string

	// DocumentID, Source and ChunkIndex carry provenance for citation.
	DocumentID string
	Source     string
	ChunkIndex int

	// Text is the stored chunk content.
	Text string

	// Score is the BM25 relevance score.
	Score float64
}
