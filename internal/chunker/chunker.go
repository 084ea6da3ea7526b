// Package chunker splits normalised document text into overlapping
// fixed-size chunks with stable, reproducible boundaries.
package chunker

import (
	"fmt"

	"github.com/archivo-labs/archivo-cli/internal/core/domain"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 800

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 100

// Chunker slides a window of chunkSize characters across the text,
// advancing by chunkSize-overlap each step. Boundaries are character
// (rune) offsets, so multi-byte text never splits mid-rune.
type Chunker struct {
	chunkSize int
	overlap   int
}

// New creates a chunker. Invalid parameters are rejected up front and
// never clamped: chunkSize must be positive and overlap must satisfy
// 0 <= overlap < chunkSize.
func New(chunkSize, overlap int) (*Chunker, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size %d: %w", chunkSize, domain.ErrInvalidConfig)
	}
	if overlap < 0 || overlap >= chunkSize {
		return nil, fmt.Errorf("chunk overlap %d for size %d: %w", overlap, chunkSize, domain.ErrInvalidConfig)
	}
	return &Chunker{chunkSize: chunkSize, overlap: overlap}, nil
}

// ChunkSize returns the configured window size in characters.
func (c *Chunker) ChunkSize() int { return c.chunkSize }

// Overlap returns the configured overlap in characters.
func (c *Chunker) Overlap() int { return c.overlap }

// Chunk splits the document content into chunks covering the entire input
// with no gaps. Consecutive chunks from the same document overlap by
// exactly the configured overlap; the final chunk may be shorter. A tail
// no longer than the overlap is merged into the previous chunk instead of
// emitting a near-duplicate trailing chunk.
func (c *Chunker) Chunk(doc *domain.Document) []domain.Chunk {
	if doc == nil || doc.Content == "" {
		return nil
	}

	runes := []rune(doc.Content)
	n := len(runes)
	step := c.chunkSize - c.overlap

	estimated := n/step + 1
	chunks := make([]domain.Chunk, 0, estimated)

	for start := 0; start < n; start += step {
		end := start + c.chunkSize

		// The tail-merge rule: when the text beyond this window is no
		// longer than the overlap, a further chunk would contribute
		// almost nothing new. Absorb it here.
		last := false
		if end >= n || n-end <= c.overlap {
			end = n
			last = true
		}

		index := len(chunks)
		chunks = append(chunks, domain.Chunk{
			ID:         domain.ChunkID(doc.ID, index),
			DocumentID: doc.ID,
			Source:     doc.Source,
			Text:       string(runes[start:end]),
			Index:      index,
			Start:      start,
			End:        end,
		})

		if last {
			break
		}
	}

	return chunks
}
