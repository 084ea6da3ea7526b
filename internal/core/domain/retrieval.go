package domain

// RetrievalMode identifies which retrieval backend is active.
type RetrievalMode string

// Available retrieval modes.
const (
	// ModeOptimized uses vector similarity with optional lexical blending.
	ModeOptimized RetrievalMode = "optimized"

	// ModeDegraded uses lexical scoring only. Selected once at startup
	// when the embedding stack or vector index is unavailable; the
	// controller never transitions back within a process lifetime.
	ModeDegraded RetrievalMode = "degraded"
)

// IsValid returns true if the retrieval mode is recognised.
func (m RetrievalMode) IsValid() bool {
	switch m {
	case ModeOptimized, ModeDegraded:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (m RetrievalMode) String() string {
	return string(m)
}

// Description returns a human-readable description of the mode.
func (m RetrievalMode) Description() string {
	switch m {
	case ModeOptimized:
		return "Optimized (vector + lexical blend)"
	case ModeDegraded:
		return "Degraded (lexical only, reduced quality)"
	default:
		return "Unknown"
	}
}

// RetrievalOptions configures a retrieval query. Zero values fall back to
// the configured defaults.
type RetrievalOptions struct {
	// TopK is the maximum number of results.
	TopK int

	// MaxChunksPerDocument caps chunks from one document to promote
	// source diversity.
	MaxChunksPerDocument int

	// OversampleFactor multiplies TopK for the candidate query, so the
	// per-document cap does not starve the result set.
	OversampleFactor int

	// LexicalWeight blends term-overlap scoring into the vector score
	// (0 disables the blend, 1 is lexical only).
	LexicalWeight float64
}

// RetrievalResult is one scored context passage with full provenance.
// Results are ephemeral; they are discarded once the caller consumes them.
type RetrievalResult struct {
	// Text is the chunk content.
	Text string `json:"text"`

	// Score is the final relevance score, descending across a result set.
	Score float64 `json:"score"`

	// Source is the display filename for citation.
	Source string `json:"source"`

	// DocumentID identifies the source document.
	DocumentID string `json:"document_id"`

	// ChunkIndex is the chunk's position within the document.
	ChunkIndex int `json:"chunk_index"`

	// Degraded is true when the result was produced by lexical-only
	// retrieval, so callers can warn that quality is reduced.
	Degraded bool `json:"degraded"`
}
