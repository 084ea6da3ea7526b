package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// ContentType identifies the format of a source document.
type ContentType string

// Supported content types.
const (
	// ContentTypePDF is a PDF document.
	ContentTypePDF ContentType = "pdf"

	// ContentTypeDOCX is a Word (OOXML) document.
	ContentTypeDOCX ContentType = "docx"

	// ContentTypeText is a plain text document.
	ContentTypeText ContentType = "text"
)

// IsValid returns true if the content type is recognised.
func (c ContentType) IsValid() bool {
	switch c {
	case ContentTypePDF, ContentTypeDOCX, ContentTypeText:
		return true
	default:
		return false
	}
}

// MIMEType returns the canonical MIME type for the content type.
func (c ContentType) MIMEType() string {
	switch c {
	case ContentTypePDF:
		return "application/pdf"
	case ContentTypeDOCX:
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case ContentTypeText:
		return "text/plain"
	default:
		return "application/octet-stream"
	}
}

// DocumentRef identifies a source file produced by the external sync step.
// The core reads the file once during extraction and never mutates it.
type DocumentRef struct {
	// ID is the stable document identifier (drive id or path).
	ID string

	// Path is the local filesystem location of the downloaded file.
	Path string

	// ContentType declares the document format.
	ContentType ContentType

	// ModifiedAt is the source modification timestamp. A change here is
	// the re-ingestion trigger.
	ModifiedAt time.Time
}

// Document is a source document after extraction and normalisation.
type Document struct {
	// ID is the stable document identifier from the DocumentRef.
	ID string

	// Source is the display filename for citation.
	Source string

	// Content is the full normalised text before chunking.
	Content string

	// ModifiedAt is carried over from the DocumentRef.
	ModifiedAt time.Time
}

// Chunk is a contiguous span of normalised text from one Document.
// Chunks are immutable once created; re-ingestion replaces them wholesale.
type Chunk struct {
	// ID is deterministic: ChunkID(DocumentID, Index). Re-ingestion of an
	// unchanged document therefore overwrites rather than duplicates.
	ID string

	// DocumentID links to the parent document.
	DocumentID string

	// Source is the parent document's display filename.
	Source string

	// Text is the chunk content.
	Text string

	// Index is the ordinal position within the document.
	Index int

	// Start and End are character offsets into the normalised document
	// text. Consecutive chunks overlap by the configured overlap.
	Start int
	End   int

	// Embedding is the vector representation, populated by the embedder.
	Embedding []float32
}

// ChunkID builds the deterministic chunk identifier for a document and
// sequence index.
func ChunkID(documentID string, index int) string {
	return fmt.Sprintf("%s:%d", documentID, index)
}

// ContentHash returns the hash used for idempotency checks: two chunks
// with equal text share a hash, so unchanged chunks are skipped on
// re-ingestion.
func ContentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
