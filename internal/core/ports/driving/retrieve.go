package driving

import (
	"context"

	"github.com/archivo-labs/archivo-cli/internal/core/domain"
)

// Retriever answers a question with a ranked, deduplicated set of context
// passages plus provenance. The generative step consuming those passages
// is an external collaborator.
type Retriever interface {
	// Retrieve embeds the question, queries the index and assembles the
	// context window. In degraded mode the same contract is served from
	// lexical scoring only and every result carries the degraded flag.
	Retrieve(ctx context.Context, question string, opts domain.RetrievalOptions) ([]domain.RetrievalResult, error)

	// Mode reports which retrieval backend is active for this process.
	Mode() domain.RetrievalMode
}
