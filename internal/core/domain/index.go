package domain

import "time"

// Metadata keys persisted with every index entry. These are a
// compatibility contract: existing indices break if they are renamed
// without a migration.
const (
	MetaSource     = "source"
	MetaDocumentID = "document_id"
	MetaChunkIndex = "chunk_index"
	MetaIngestedAt = "ingested_at"
)

// IndexEntry is the persisted tuple owned by the vector index. The index
// is the single source of truth for what has been ingested.
type IndexEntry struct {
	// ChunkID is the deterministic chunk identifier.
	ChunkID string

	// DocumentID links to the source document.
	DocumentID string

	// Source is the display filename for citation.
	Source string

	// ChunkIndex is the chunk's ordinal position within the document.
	ChunkIndex int

	// Text is the chunk content.
	Text string

	// ContentHash is the hash of Text, used for idempotency checks.
	ContentHash string

	// Embedding is the stored vector. Its dimension is constant for the
	// lifetime of one index.
	Embedding []float32

	// IngestedAt is when the entry was (last) upserted.
	IngestedAt time.Time
}

// VectorHit is a nearest-neighbour result from the vector index.
type VectorHit struct {
	// ChunkID is the matched chunk.
	ChunkID string

	// Similarity is the cosine similarity score (0-1 for non-negative
	// embeddings).
	Similarity float64
}
