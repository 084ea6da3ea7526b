package domain

import "time"

// IngestOptions configures one ingestion run.
type IngestOptions struct {
	// Force re-embeds and re-upserts every chunk, skipping the
	// unchanged-chunk check.
	Force bool

	// ChunkSize is the chunk window in characters.
	ChunkSize int

	// ChunkOverlap is the overlap between consecutive chunks in
	// characters. Must satisfy 0 <= overlap < size.
	ChunkOverlap int

	// Prune removes stored documents that are absent from this run's
	// document set. Only safe when the run covers the whole source, so
	// single-file ingestion leaves it off.
	Prune bool
}

// Validate rejects invalid chunk parameters before processing begins.
// Invalid values are never silently clamped.
func (o IngestOptions) Validate() error {
	if o.ChunkSize <= 0 {
		return ErrInvalidConfig
	}
	if o.ChunkOverlap < 0 || o.ChunkOverlap >= o.ChunkSize {
		return ErrInvalidConfig
	}
	return nil
}

// DocumentFailure records one document that could not be ingested.
// Per-document failures do not abort the batch.
type DocumentFailure struct {
	// DocumentID identifies the failed document.
	DocumentID string

	// Source is the display filename.
	Source string

	// Reason is the failure description.
	Reason string
}

// IngestReport summarises one ingestion run. It accurately reflects what
// is queryable after the run completes, including partially ingested
// documents on cancellation.
type IngestReport struct {
	// RunID uniquely identifies the ingestion run.
	RunID string

	// StartedAt and FinishedAt bound the run.
	StartedAt  time.Time
	FinishedAt time.Time

	// DocumentsProcessed counts documents whose chunks are now queryable.
	DocumentsProcessed int

	// ChunksAdded counts chunks embedded and upserted this run.
	ChunksAdded int

	// ChunksSkipped counts chunks skipped as unchanged.
	ChunksSkipped int

	// DocumentsPurged counts stored documents removed because they were
	// absent from the source. Zero unless pruning was requested.
	DocumentsPurged int

	// Failures lists documents that could not be ingested, with reasons.
	Failures []DocumentFailure
}
