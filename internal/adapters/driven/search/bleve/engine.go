// Package bleve implements the lexical search engine on a Bleve index.
//
// Chunk text is analysed with the standard analyzer for BM25 scoring,
// while provenance fields use the keyword analyzer so they can be
// matched exactly. Text and provenance are stored in the index itself,
// which keeps degraded-mode retrieval independent of the vector index.
package bleve

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/archivo-labs/archivo-cli/internal/core/domain"
	"github.com/archivo-labs/archivo-cli/internal/core/ports/driven"
)

// Stored field names. Provenance fields reuse the shared metadata keys;
// renaming any of them breaks existing indices.
const (
	fieldText       = "text"
	fieldDocumentID = domain.MetaDocumentID
	fieldSource     = domain.MetaSource
	fieldChunkIndex = domain.MetaChunkIndex
)

// deleteBatchSize bounds how many hits a DeleteByDocument search pages
// through at once.
const deleteBatchSize = 500

// Engine is a Bleve-backed search engine.
type Engine struct {
	index bleve.Index
	path  string
}

var _ driven.SearchEngine = (*Engine)(nil)

// Open opens the index at path, creating it when absent.
func Open(path string) (*Engine, error) {
	if path == "" {
		return nil, fmt.Errorf("search index path is required: %w", domain.ErrInvalidConfig)
	}

	index, err := bleve.Open(path)
	if errors.Is(err, bleve.ErrorIndexPathDoesNotExist) {
		if mkErr := os.MkdirAll(filepath.Dir(path), 0700); mkErr != nil {
			return nil, fmt.Errorf("creating search index directory: %w", mkErr)
		}
		index, err = bleve.New(path, buildMapping())
	}
	if err != nil {
		return nil, fmt.Errorf("opening search index at %s: %w", path, err)
	}

	return &Engine{index: index, path: path}, nil
}

func buildMapping() *mapping.IndexMappingImpl {
	textField := bleve.NewTextFieldMapping()

	keywordField := bleve.NewTextFieldMapping()
	keywordField.Analyzer = keyword.Name

	numericField := bleve.NewNumericFieldMapping()

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt(fieldText, textField)
	docMapping.AddFieldMappingsAt(fieldDocumentID, keywordField)
	docMapping.AddFieldMappingsAt(fieldSource, keywordField)
	docMapping.AddFieldMappingsAt(fieldChunkIndex, numericField)

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = docMapping
	return indexMapping
}

// Close closes the underlying index.
func (e *Engine) Close() error {
	return e.index.Close()
}

// Path returns the index directory.
func (e *Engine) Path() string {
	return e.path
}

// Index adds or updates chunks in batch.
func (e *Engine) Index(ctx context.Context, entries []domain.IndexEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	batch := e.index.NewBatch()
	for _, entry := range entries {
		doc := map[string]any{
			fieldText:       entry.Text,
			fieldDocumentID: entry.DocumentID,
			fieldSource:     entry.Source,
			fieldChunkIndex: entry.ChunkIndex,
		}
		if err := batch.Index(entry.ChunkID, doc); err != nil {
			return fmt.Errorf("adding chunk %s to batch: %w", entry.ChunkID, err)
		}
	}

	if err := e.index.Batch(batch); err != nil {
		return fmt.Errorf("indexing batch: %w", err)
	}
	return nil
}

// Delete removes a single chunk.
func (e *Engine) Delete(ctx context.Context, chunkID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := e.index.Delete(chunkID); err != nil {
		return fmt.Errorf("deleting chunk %s: %w", chunkID, err)
	}
	return nil
}

// DeleteByDocument removes all chunks belonging to a document.
func (e *Engine) DeleteByDocument(ctx context.Context, documentID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	query := bleve.NewTermQuery(documentID)
	query.SetField(fieldDocumentID)

	for {
		req := bleve.NewSearchRequest(query)
		req.Size = deleteBatchSize

		result, err := e.index.Search(req)
		if err != nil {
			return fmt.Errorf("finding chunks for document %s: %w", documentID, err)
		}
		if len(result.Hits) == 0 {
			return nil
		}

		batch := e.index.NewBatch()
		for _, hit := range result.Hits {
			batch.Delete(hit.ID)
		}
		if err := e.index.Batch(batch); err != nil {
			return fmt.Errorf("deleting chunks for document %s: %w", documentID, err)
		}
	}
}

// Search runs a BM25 match query over chunk text.
func (e *Engine) Search(ctx context.Context, queryText string, limit int) ([]driven.SearchHit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive: %w", domain.ErrInvalidInput)
	}

	query := bleve.NewMatchQuery(queryText)
	query.SetField(fieldText)

	req := bleve.NewSearchRequest(query)
	req.Size = limit
	req.Fields = []string{fieldText, fieldDocumentID, fieldSource, fieldChunkIndex}

	result, err := e.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("searching: %w", err)
	}

	hits := make([]driven.SearchHit, 0, len(result.Hits))
	for _, hit := range result.Hits {
		h := driven.SearchHit{
			ChunkID: hit.ID,
			Score:   hit.Score,
		}
		if text, ok := hit.Fields[fieldText].(string); ok {
			h.Text = text
		}
		if docID, ok := hit.Fields[fieldDocumentID].(string); ok {
			h.DocumentID = docID
		}
		if source, ok := hit.Fields[fieldSource].(string); ok {
			h.Source = source
		}
		if index, ok := hit.Fields[fieldChunkIndex].(float64); ok {
			h.ChunkIndex = int(index)
		}
		hits = append(hits, h)
	}
	return hits, nil
}

// Count returns the number of indexed chunks.
func (e *Engine) Count() (uint64, error) {
	return e.index.DocCount()
}
