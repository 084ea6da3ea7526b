package driving

import (
	"context"

	"github.com/archivo-labs/archivo-cli/internal/core/domain"
)

// Ingestor runs the extract - chunk - embed - index pipeline for a batch
// of documents.
type Ingestor interface {
	// Ingest processes the documents and returns a report of what is now
	// queryable. Per-document extraction failures are recorded in the
	// report and do not abort the batch; an embedding outage aborts the
	// run with domain.ErrEmbeddingUnavailable. Cancellation via ctx is
	// honoured at document boundaries.
	Ingest(ctx context.Context, refs []domain.DocumentRef, opts domain.IngestOptions) (*domain.IngestReport, error)
}
