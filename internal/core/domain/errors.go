package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidConfig indicates invalid configuration values, such as a
	// chunk overlap that is not smaller than the chunk size. Fatal at
	// call time; never silently clamped.
	ErrInvalidConfig = errors.New("invalid configuration")

	// Extraction errors. Recoverable at batch level: the failing document
	// is recorded in the ingest report and the batch continues.

	// ErrExtraction indicates a document could not be converted to text.
	ErrExtraction = errors.New("extraction failed")

	// ErrUnsupportedType indicates no extractor handles the content type.
	ErrUnsupportedType = errors.New("unsupported type")

	// ErrNoContent indicates a document yielded zero extractable text.
	ErrNoContent = errors.New("no extractable text")

	// Systemic errors. These propagate to the caller as a single failure
	// and route retrieval through the degraded lexical backend.

	// ErrEmbeddingUnavailable indicates the embedding service is missing
	// or failed to respond. Not retried per call.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrIndexCorrupted indicates the persisted vector index is
	// unreadable. Recovery requires rebuilding the index, which is why it
	// is surfaced distinctly from ErrEmbeddingUnavailable.
	ErrIndexCorrupted = errors.New("vector index corrupted")

	// ErrDimensionMismatch indicates an embedding dimension disagrees
	// with the stored index's vector dimension. Treated as fatal rather
	// than silently returning garbage neighbours; changing the embedding
	// model requires rebuilding the index.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)
