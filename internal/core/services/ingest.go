package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/archivo-labs/archivo-cli/internal/chunker"
	"github.com/archivo-labs/archivo-cli/internal/core/domain"
	"github.com/archivo-labs/archivo-cli/internal/core/ports/driven"
	"github.com/archivo-labs/archivo-cli/internal/core/ports/driving"
	"github.com/archivo-labs/archivo-cli/internal/logger"
)

// Ensure IngestService implements the interface.
var _ driving.Ingestor = (*IngestService)(nil)

// DefaultEmbedBatchSize is how many chunks are embedded per call when no
// batch size is configured.
const DefaultEmbedBatchSize = 32

// IngestService runs the extract, chunk, embed, index pipeline.
type IngestService struct {
	extractors driven.ExtractorRegistry
	embedder   driven.EmbeddingService
	index      driven.VectorIndex
	search     driven.SearchEngine
	batchSize  int

	// readFile is swappable for tests.
	readFile func(string) ([]byte, error)
}

// NewIngestService creates an ingestion service. The search engine may
// be nil, in which case chunks are only vector-indexed.
func NewIngestService(
	extractors driven.ExtractorRegistry,
	embedder driven.EmbeddingService,
	index driven.VectorIndex,
	search driven.SearchEngine,
	batchSize int,
) *IngestService {
	if batchSize <= 0 {
		batchSize = DefaultEmbedBatchSize
	}
	return &IngestService{
		extractors: extractors,
		embedder:   embedder,
		index:      index,
		search:     search,
		batchSize:  batchSize,
		readFile:   os.ReadFile,
	}
}

// pendingDocument holds one extracted document awaiting embedding.
type pendingDocument struct {
	ref    domain.DocumentRef
	source string
	chunks []domain.Chunk
	// skipped chunks were already stored with identical content.
	skipped int
}

// Ingest processes the documents and reports what is now queryable.
// Extraction failures are recorded per document and do not abort the
// batch; an embedding outage aborts the run. Cancellation is honoured at
// document boundaries, so the report stays accurate for partial runs.
func (s *IngestService) Ingest(
	ctx context.Context, refs []domain.DocumentRef, opts domain.IngestOptions,
) (*domain.IngestReport, error) {
	// Ingestion needs the full backend; retrieval may degrade to
	// lexical-only, ingestion never does.
	if s.embedder == nil {
		return nil, fmt.Errorf("ingestion requires an embedding backend: %w", domain.ErrEmbeddingUnavailable)
	}
	if s.index == nil {
		return nil, fmt.Errorf("ingestion requires the vector index: %w", domain.ErrIndexCorrupted)
	}

	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("chunk size %d overlap %d: %w", opts.ChunkSize, opts.ChunkOverlap, err)
	}

	splitter, err := chunker.New(opts.ChunkSize, opts.ChunkOverlap)
	if err != nil {
		return nil, err
	}

	report := &domain.IngestReport{
		RunID:     uuid.NewString(),
		StartedAt: time.Now().UTC(),
	}
	logger.Section("Ingestion")
	logger.Info("run %s: %d document(s), chunk size %d overlap %d, force=%t",
		report.RunID, len(refs), opts.ChunkSize, opts.ChunkOverlap, opts.Force)

	pending, err := s.extractAll(ctx, refs, splitter, opts, report)
	if err != nil {
		report.FinishedAt = time.Now().UTC()
		return report, err
	}

	if err := s.embedPending(ctx, pending); err != nil {
		report.FinishedAt = time.Now().UTC()
		return report, err
	}

	if err := s.indexAll(ctx, pending, report); err != nil {
		report.FinishedAt = time.Now().UTC()
		return report, err
	}

	if opts.Prune {
		if err := s.pruneMissing(ctx, refs, report); err != nil {
			report.FinishedAt = time.Now().UTC()
			return report, err
		}
	}

	report.FinishedAt = time.Now().UTC()
	logger.Info("run %s: %d processed, %d chunks added, %d skipped, %d failed",
		report.RunID, report.DocumentsProcessed, report.ChunksAdded,
		report.ChunksSkipped, len(report.Failures))
	return report, nil
}

// extractAll reads, extracts and chunks every document, recording
// per-document failures and filtering out unchanged chunks.
func (s *IngestService) extractAll(
	ctx context.Context,
	refs []domain.DocumentRef,
	splitter *chunker.Chunker,
	opts domain.IngestOptions,
	report *domain.IngestReport,
) ([]*pendingDocument, error) {
	pending := make([]*pendingDocument, 0, len(refs))

	for _, ref := range refs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		source := filepath.Base(ref.Path)
		doc, err := s.extractOne(ctx, ref, source, splitter)
		if err != nil {
			logger.Warn("document %s (%s): %v", ref.ID, source, err)
			report.Failures = append(report.Failures, domain.DocumentFailure{
				DocumentID: ref.ID,
				Source:     source,
				Reason:     err.Error(),
			})
			continue
		}

		if err := s.dropStaleChunks(ctx, ref.ID, len(doc.chunks)); err != nil {
			return nil, err
		}

		if !opts.Force {
			kept := doc.chunks[:0]
			for _, chunk := range doc.chunks {
				exists, err := s.index.Exists(ctx, chunk.ID, domain.ContentHash(chunk.Text))
				if err != nil {
					return nil, fmt.Errorf("checking chunk %s: %w", chunk.ID, err)
				}
				if exists {
					doc.skipped++
					continue
				}
				kept = append(kept, chunk)
			}
			doc.chunks = kept
		}

		pending = append(pending, doc)
	}

	return pending, nil
}

// extractOne turns a file into chunks.
func (s *IngestService) extractOne(
	ctx context.Context, ref domain.DocumentRef, source string, splitter *chunker.Chunker,
) (*pendingDocument, error) {
	content, err := s.readFile(ref.Path)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}

	text, err := s.extractors.Extract(ctx, ref, content)
	if err != nil {
		return nil, err
	}

	doc := &domain.Document{
		ID:         ref.ID,
		Source:     source,
		Content:    text,
		ModifiedAt: ref.ModifiedAt,
	}
	chunks := splitter.Chunk(doc)
	if len(chunks) == 0 {
		return nil, domain.ErrNoContent
	}
	logger.Debug("document %s (%s): %d chunk(s)", ref.ID, source, len(chunks))

	return &pendingDocument{ref: ref, source: source, chunks: chunks}, nil
}

// dropStaleChunks deletes a document's stored chunks when the current
// chunking yields fewer chunks than are stored. Chunk indices are
// contiguous, so a stored entry at the new chunk count means stale IDs
// would otherwise survive.
func (s *IngestService) dropStaleChunks(ctx context.Context, documentID string, newCount int) error {
	_, err := s.index.Get(ctx, domain.ChunkID(documentID, newCount))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("checking stored chunks for %s: %w", documentID, err)
	}

	logger.Debug("document %s: chunking scheme changed, dropping stored chunks", documentID)
	if err := s.index.DeleteByDocument(ctx, documentID); err != nil {
		return fmt.Errorf("dropping stale chunks for %s: %w", documentID, err)
	}
	if s.search != nil {
		if err := s.search.DeleteByDocument(ctx, documentID); err != nil {
			return fmt.Errorf("dropping stale lexical chunks for %s: %w", documentID, err)
		}
	}
	return nil
}

// embedPending embeds all pending chunks across documents in fixed-size
// batches. Any embedding failure is systemic and aborts the run.
func (s *IngestService) embedPending(ctx context.Context, pending []*pendingDocument) error {
	var all []*domain.Chunk
	for _, doc := range pending {
		for i := range doc.chunks {
			all = append(all, &doc.chunks[i])
		}
	}
	if len(all) == 0 {
		return nil
	}
	logger.Debug("embedding %d chunk(s) in batches of %d", len(all), s.batchSize)

	for start := 0; start < len(all); start += s.batchSize {
		end := start + s.batchSize
		if end > len(all) {
			end = len(all)
		}
		batch := all[start:end]

		texts := make([]string, len(batch))
		for i, chunk := range batch {
			texts[i] = chunk.Text
		}

		vectors, err := s.embedder.EmbedBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("embedding batch: %w", err)
		}
		if len(vectors) != len(batch) {
			return fmt.Errorf("embedding batch returned %d vectors for %d texts: %w",
				len(vectors), len(batch), domain.ErrEmbeddingUnavailable)
		}
		for i, chunk := range batch {
			chunk.Embedding = vectors[i]
		}
	}
	return nil
}

// indexAll upserts each document's chunks into the vector index and the
// lexical engine, checkpointing between documents.
func (s *IngestService) indexAll(ctx context.Context, pending []*pendingDocument, report *domain.IngestReport) error {
	now := time.Now().UTC()

	for _, doc := range pending {
		if err := ctx.Err(); err != nil {
			return err
		}

		entries := make([]domain.IndexEntry, len(doc.chunks))
		for i, chunk := range doc.chunks {
			entries[i] = domain.IndexEntry{
				ChunkID:     chunk.ID,
				DocumentID:  chunk.DocumentID,
				Source:      doc.source,
				ChunkIndex:  chunk.Index,
				Text:        chunk.Text,
				ContentHash: domain.ContentHash(chunk.Text),
				Embedding:   chunk.Embedding,
				IngestedAt:  now,
			}
		}

		if len(entries) > 0 {
			if err := s.index.Upsert(ctx, entries); err != nil {
				return fmt.Errorf("indexing document %s: %w", doc.ref.ID, err)
			}
			if s.search != nil {
				if err := s.search.Index(ctx, entries); err != nil {
					return fmt.Errorf("lexical-indexing document %s: %w", doc.ref.ID, err)
				}
			}
		}

		report.DocumentsProcessed++
		report.ChunksAdded += len(entries)
		report.ChunksSkipped += doc.skipped
	}
	return nil
}

// pruneMissing removes stored documents that are absent from this run's
// document set, keeping the index in step with the source.
func (s *IngestService) pruneMissing(
	ctx context.Context, refs []domain.DocumentRef, report *domain.IngestReport,
) error {
	current := make(map[string]bool, len(refs))
	for _, ref := range refs {
		current[ref.ID] = true
	}

	stored, err := s.index.DocumentIDs(ctx)
	if err != nil {
		return fmt.Errorf("listing stored documents: %w", err)
	}

	for _, id := range stored {
		if current[id] {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		logger.Debug("document %s gone from source, purging", id)
		if err := s.index.DeleteByDocument(ctx, id); err != nil {
			return fmt.Errorf("purging document %s: %w", id, err)
		}
		if s.search != nil {
			if err := s.search.DeleteByDocument(ctx, id); err != nil {
				return fmt.Errorf("purging document %s from lexical index: %w", id, err)
			}
		}
		report.DocumentsPurged++
	}
	return nil
}
