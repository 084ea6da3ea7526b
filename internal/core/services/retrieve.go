package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/archivo-labs/archivo-cli/internal/core/domain"
	"github.com/archivo-labs/archivo-cli/internal/core/ports/driven"
	"github.com/archivo-labs/archivo-cli/internal/core/ports/driving"
	"github.com/archivo-labs/archivo-cli/internal/logger"
)

// Ensure RetrieveService implements the interface.
var _ driving.Retriever = (*RetrieveService)(nil)

// Fallback defaults applied when an option is zero and the service has
// no configured default either.
const (
	fallbackTopK                 = 5
	fallbackMaxChunksPerDocument = 2
	fallbackOversampleFactor     = 3
)

// RetrieveService answers questions with ranked context passages. The
// mode is fixed at construction: optimized uses the vector index with an
// optional lexical blend, degraded serves the same contract from the
// lexical engine only.
type RetrieveService struct {
	embedder driven.EmbeddingService
	index    driven.VectorIndex
	search   driven.SearchEngine
	mode     domain.RetrievalMode
	defaults domain.RetrievalOptions
}

// NewRetrieveService creates a retriever. In degraded mode the embedder
// and index may be nil; in optimized mode both are required. The
// defaults fill in zero-valued per-query options.
func NewRetrieveService(
	embedder driven.EmbeddingService,
	index driven.VectorIndex,
	search driven.SearchEngine,
	mode domain.RetrievalMode,
	defaults domain.RetrievalOptions,
) *RetrieveService {
	return &RetrieveService{
		embedder: embedder,
		index:    index,
		search:   search,
		mode:     mode,
		defaults: defaults,
	}
}

// Mode reports which retrieval backend is active for this process.
func (s *RetrieveService) Mode() domain.RetrievalMode {
	return s.mode
}

// Retrieve embeds the question, queries the index and assembles the
// ranked context set. Results are deterministic for an unchanged index.
func (s *RetrieveService) Retrieve(
	ctx context.Context, question string, opts domain.RetrievalOptions,
) ([]domain.RetrievalResult, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return []domain.RetrievalResult{}, nil
	}

	opts = s.fillDefaults(opts)
	logger.Section("Retrieval")
	logger.Debug("question: %q, top_k=%d, cap=%d, oversample=%d, lexical_weight=%g, mode=%s",
		question, opts.TopK, opts.MaxChunksPerDocument, opts.OversampleFactor, opts.LexicalWeight, s.mode)

	if s.mode == domain.ModeDegraded {
		return s.retrieveLexical(ctx, question, opts)
	}
	return s.retrieveVector(ctx, question, opts)
}

// retrieveVector is the optimized path: cosine candidates, optional
// lexical blend, per-document cap, truncate.
func (s *RetrieveService) retrieveVector(
	ctx context.Context, question string, opts domain.RetrievalOptions,
) ([]domain.RetrievalResult, error) {
	vector, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embedding question: %w", err)
	}

	candidates := opts.TopK * opts.OversampleFactor
	hits, err := s.index.Query(ctx, vector, candidates)
	if err != nil {
		return nil, fmt.Errorf("querying index: %w", err)
	}
	logger.Debug("%d candidate(s) from vector index", len(hits))

	queryTerms := termSet(question)
	results := make([]domain.RetrievalResult, 0, len(hits))
	for _, hit := range hits {
		entry, err := s.index.Get(ctx, hit.ChunkID)
		if err != nil {
			return nil, fmt.Errorf("hydrating chunk %s: %w", hit.ChunkID, err)
		}

		score := hit.Similarity
		if opts.LexicalWeight > 0 {
			overlap := termOverlap(queryTerms, entry.Text)
			score = (1-opts.LexicalWeight)*hit.Similarity + opts.LexicalWeight*overlap
		}

		results = append(results, domain.RetrievalResult{
			Text:       entry.Text,
			Score:      score,
			Source:     entry.Source,
			DocumentID: entry.DocumentID,
			ChunkIndex: entry.ChunkIndex,
		})
	}

	// Stable sort keeps the index's deterministic tie-breaks for equal
	// blended scores.
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	results = capPerDocument(results, opts.MaxChunksPerDocument)
	if len(results) > opts.TopK {
		results = results[:opts.TopK]
	}
	return results, nil
}

// retrieveLexical is the degraded path: BM25 only, scores normalised to
// 0-1 by the top hit, degraded flag set on every result.
func (s *RetrieveService) retrieveLexical(
	ctx context.Context, question string, opts domain.RetrievalOptions,
) ([]domain.RetrievalResult, error) {
	candidates := opts.TopK * opts.OversampleFactor
	hits, err := s.search.Search(ctx, question, candidates)
	if err != nil {
		return nil, fmt.Errorf("lexical search: %w", err)
	}
	logger.Debug("%d candidate(s) from lexical engine", len(hits))

	var topScore float64
	if len(hits) > 0 {
		topScore = hits[0].Score
	}

	results := make([]domain.RetrievalResult, 0, len(hits))
	for _, hit := range hits {
		score := hit.Score
		if topScore > 0 {
			score = hit.Score / topScore
		}
		results = append(results, domain.RetrievalResult{
			Text:       hit.Text,
			Score:      score,
			Source:     hit.Source,
			DocumentID: hit.DocumentID,
			ChunkIndex: hit.ChunkIndex,
			Degraded:   true,
		})
	}

	results = capPerDocument(results, opts.MaxChunksPerDocument)
	if len(results) > opts.TopK {
		results = results[:opts.TopK]
	}
	return results, nil
}

func (s *RetrieveService) fillDefaults(opts domain.RetrievalOptions) domain.RetrievalOptions {
	if opts.TopK <= 0 {
		opts.TopK = s.defaults.TopK
	}
	if opts.TopK <= 0 {
		opts.TopK = fallbackTopK
	}
	if opts.MaxChunksPerDocument <= 0 {
		opts.MaxChunksPerDocument = s.defaults.MaxChunksPerDocument
	}
	if opts.MaxChunksPerDocument <= 0 {
		opts.MaxChunksPerDocument = fallbackMaxChunksPerDocument
	}
	if opts.OversampleFactor < 1 {
		opts.OversampleFactor = s.defaults.OversampleFactor
	}
	if opts.OversampleFactor < 1 {
		opts.OversampleFactor = fallbackOversampleFactor
	}
	if opts.LexicalWeight == 0 {
		opts.LexicalWeight = s.defaults.LexicalWeight
	}
	return opts
}

// capPerDocument drops results beyond the per-document limit, keeping
// input (score) order.
func capPerDocument(results []domain.RetrievalResult, limit int) []domain.RetrievalResult {
	if limit <= 0 {
		return results
	}
	counts := make(map[string]int, len(results))
	capped := results[:0]
	for _, r := range results {
		if counts[r.DocumentID] >= limit {
			continue
		}
		counts[r.DocumentID]++
		capped = append(capped, r)
	}
	return capped
}

// termSet lowercases and splits a question into unique terms.
func termSet(text string) map[string]struct{} {
	terms := make(map[string]struct{})
	for _, term := range strings.Fields(strings.ToLower(text)) {
		term = strings.Trim(term, ".,;:!?\"'()[]")
		if term != "" {
			terms[term] = struct{}{}
		}
	}
	return terms
}

// termOverlap is the fraction of query terms present in the chunk text.
func termOverlap(queryTerms map[string]struct{}, text string) float64 {
	if len(queryTerms) == 0 {
		return 0
	}
	chunkTerms := termSet(text)
	matched := 0
	for term := range queryTerms {
		if _, ok := chunkTerms[term]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(queryTerms))
}
