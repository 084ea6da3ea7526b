package driven

import (
	"context"

	"github.com/archivo-labs/archivo-cli/internal/core/domain"
)

// VectorIndex persists ingested chunks with their embeddings and provides
// similarity search. It is the single durable store the core owns; its
// contents define what has been ingested.
//
// All mutation goes through Upsert and DeleteByDocument, both safe under
// concurrent invocation. Upsert is atomic per chunk: concurrent readers
// see either the old or the new entry, never a torn one.
type VectorIndex interface {
	// Upsert inserts or replaces entries. Idempotent: upserting an entry
	// whose chunk ID and content hash already match the stored row is a
	// no-op. Fails with domain.ErrDimensionMismatch when an embedding's
	// dimension disagrees with the index's pinned dimension.
	Upsert(ctx context.Context, entries []domain.IndexEntry) error

	// Query returns up to k entries ordered by descending cosine
	// similarity. Ties break by most recent ingestion timestamp, then
	// chunk ID lexical order, so repeated queries are deterministic.
	Query(ctx context.Context, vector []float32, k int) ([]domain.VectorHit, error)

	// Exists reports whether a chunk with the given ID and content hash is
	// already stored. Used by ingestion to skip unchanged chunks.
	Exists(ctx context.Context, chunkID, contentHash string) (bool, error)

	// Get retrieves a stored entry by chunk ID.
	Get(ctx context.Context, chunkID string) (*domain.IndexEntry, error)

	// DeleteByDocument removes all chunks belonging to a document. Used
	// when a document is deleted at the source or re-chunked with
	// different parameters, so no stale chunk IDs orphan.
	DeleteByDocument(ctx context.Context, documentID string) error

	// Count returns the number of stored entries.
	Count(ctx context.Context) (int, error)

	// DocumentIDs returns the distinct documents currently stored. Used
	// by ingestion to purge documents no longer present at the source.
	DocumentIDs(ctx context.Context) ([]string, error)

	// Dimensions returns the pinned vector dimension, or 0 when the index
	// is empty and no dimension has been pinned yet.
	Dimensions() int

	// Close releases resources.
	Close() error
}
