package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archivo-labs/archivo-cli/internal/core/domain"
)

func seedIndex(t *testing.T, embedder *fakeEmbedder, index *fakeIndex, search *fakeSearch, texts map[string]string) {
	t.Helper()
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	var entries []domain.IndexEntry
	for chunkID, text := range texts {
		docID := chunkID[:len(chunkID)-2] // strip ":N"
		vector, err := embedder.Embed(ctx, text)
		require.NoError(t, err)
		entries = append(entries, domain.IndexEntry{
			ChunkID:     chunkID,
			DocumentID:  docID,
			Source:      docID + ".txt",
			ChunkIndex:  int(chunkID[len(chunkID)-1] - '0'),
			Text:        text,
			ContentHash: domain.ContentHash(text),
			Embedding:   vector,
			IngestedAt:  now,
		})
	}
	require.NoError(t, index.Upsert(ctx, entries))
	if search != nil {
		require.NoError(t, search.Index(ctx, entries))
	}
}

func optimizedRetriever(embedder *fakeEmbedder, index *fakeIndex, search *fakeSearch) *RetrieveService {
	return NewRetrieveService(embedder, index, search, domain.ModeOptimized, domain.RetrievalOptions{
		TopK:                 3,
		MaxChunksPerDocument: 2,
		OversampleFactor:     3,
	})
}

func TestRetrieve_EmptyQuestion(t *testing.T) {
	svc := optimizedRetriever(newFakeEmbedder(4), newFakeIndex(), nil)

	results, err := svc.Retrieve(context.Background(), "   ", domain.RetrievalOptions{})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestRetrieve_RanksBySimilarity(t *testing.T) {
	embedder := newFakeEmbedder(8)
	index := newFakeIndex()
	seedIndex(t, embedder, index, nil, map[string]string{
		"docA:0": "quarterly revenue figures grew strongly",
		"docB:0": "office coffee machine maintenance schedule",
	})
	svc := optimizedRetriever(embedder, index, nil)

	results, err := svc.Retrieve(context.Background(),
		"quarterly revenue figures grew strongly", domain.RetrievalOptions{})
	require.NoError(t, err)
	require.Len(t, results, 2)

	// The identical text embeds to the identical vector.
	assert.Equal(t, "docA", results[0].DocumentID)
	assert.InDelta(t, 1.0, results[0].Score, 1e-9)
	assert.GreaterOrEqual(t, results[0].Score, results[1].Score)

	// Provenance is populated and nothing is degraded.
	for _, r := range results {
		assert.NotEmpty(t, r.Source)
		assert.NotEmpty(t, r.Text)
		assert.False(t, r.Degraded)
	}
}

func TestRetrieve_Deterministic(t *testing.T) {
	embedder := newFakeEmbedder(8)
	index := newFakeIndex()
	seedIndex(t, embedder, index, nil, map[string]string{
		"docA:0": "alpha beta gamma",
		"docA:1": "beta gamma delta",
		"docB:0": "gamma delta epsilon",
		"docC:0": "delta epsilon zeta",
	})
	svc := optimizedRetriever(embedder, index, nil)

	first, err := svc.Retrieve(context.Background(), "gamma delta", domain.RetrievalOptions{})
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		again, err := svc.Retrieve(context.Background(), "gamma delta", domain.RetrievalOptions{})
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestRetrieve_CapsChunksPerDocument(t *testing.T) {
	embedder := newFakeEmbedder(8)
	index := newFakeIndex()
	// All docA chunks match the question exactly, so they score 1.0 and
	// sort ahead of docB, tie-broken by chunk ID.
	seedIndex(t, embedder, index, nil, map[string]string{
		"docA:0": "target phrase exact wording",
		"docA:1": "target phrase exact wording",
		"docA:2": "target phrase exact wording",
		"docB:0": "something else entirely",
	})
	svc := optimizedRetriever(embedder, index, nil)

	results, err := svc.Retrieve(context.Background(), "target phrase exact wording", domain.RetrievalOptions{
		TopK:                 3,
		MaxChunksPerDocument: 2,
	})
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "docA", results[0].DocumentID)
	assert.Equal(t, 0, results[0].ChunkIndex)
	assert.Equal(t, "docA", results[1].DocumentID)
	assert.Equal(t, 1, results[1].ChunkIndex)
	assert.Equal(t, "docB", results[2].DocumentID)
}

func TestRetrieve_LexicalWeightBlendsTermOverlap(t *testing.T) {
	embedder := newFakeEmbedder(8)
	index := newFakeIndex()
	seedIndex(t, embedder, index, nil, map[string]string{
		"docA:0": "kubernetes deployment rollout steps",
		"docB:0": "kubernetes cluster sizing guide",
		"docC:0": "unrelated meeting notes",
	})
	svc := optimizedRetriever(embedder, index, nil)

	// Weight 1.0 makes the score pure term overlap, so the ranking and
	// the exact scores are known regardless of vector similarity.
	results, err := svc.Retrieve(context.Background(), "kubernetes deployment",
		domain.RetrievalOptions{TopK: 3, LexicalWeight: 1.0})
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, "docA", results[0].DocumentID)
	assert.InDelta(t, 1.0, results[0].Score, 1e-9)
	assert.Equal(t, "docB", results[1].DocumentID)
	assert.InDelta(t, 0.5, results[1].Score, 1e-9)
	assert.Equal(t, "docC", results[2].DocumentID)
	assert.InDelta(t, 0.0, results[2].Score, 1e-9)
}

func TestRetrieve_DegradedServesLexicalOnly(t *testing.T) {
	embedder := newFakeEmbedder(8)
	index := newFakeIndex()
	search := newFakeSearch()
	seedIndex(t, embedder, index, search, map[string]string{
		"docA:0": "incident response runbook for outages",
		"docB:0": "holiday rota and scheduling",
	})

	svc := NewRetrieveService(nil, nil, search, domain.ModeDegraded, domain.RetrievalOptions{
		TopK:                 3,
		MaxChunksPerDocument: 2,
		OversampleFactor:     3,
	})
	assert.Equal(t, domain.ModeDegraded, svc.Mode())

	results, err := svc.Retrieve(context.Background(), "incident response", domain.RetrievalOptions{})
	require.NoError(t, err)
	require.Len(t, results, 1)

	top := results[0]
	assert.True(t, top.Degraded)
	assert.Equal(t, "docA", top.DocumentID)
	assert.Equal(t, "docA.txt", top.Source)
	assert.InDelta(t, 1.0, top.Score, 1e-9, "top lexical hit normalises to 1")
}

func TestRetrieve_DegradedCapsPerDocument(t *testing.T) {
	search := newFakeSearch()
	now := time.Now().UTC()
	var entries []domain.IndexEntry
	for i := 0; i < 4; i++ {
		entries = append(entries, domain.IndexEntry{
			ChunkID:    domain.ChunkID("docA", i),
			DocumentID: "docA",
			Source:     "docA.txt",
			ChunkIndex: i,
			Text:       "repeated keyword everywhere",
			IngestedAt: now,
		})
	}
	require.NoError(t, search.Index(context.Background(), entries))

	svc := NewRetrieveService(nil, nil, search, domain.ModeDegraded, domain.RetrievalOptions{
		TopK:                 4,
		MaxChunksPerDocument: 2,
		OversampleFactor:     3,
	})

	results, err := svc.Retrieve(context.Background(), "keyword", domain.RetrievalOptions{})
	require.NoError(t, err)
	assert.Len(t, results, 2)
}

func TestRetrieve_EmbedderFailureInOptimizedMode(t *testing.T) {
	embedder := newFakeEmbedder(8)
	embedder.failAfter = 1
	svc := optimizedRetriever(embedder, newFakeIndex(), nil)

	_, err := svc.Retrieve(context.Background(), "anything", domain.RetrievalOptions{})
	assert.ErrorIs(t, err, domain.ErrEmbeddingUnavailable)
}

func TestTermOverlap(t *testing.T) {
	terms := termSet("How does the deployment work?")
	assert.InDelta(t, 1.0, termOverlap(terms, "the deployment does work, how nice"), 1e-9)
	assert.InDelta(t, 0.0, termOverlap(terms, "completely unrelated"), 1e-9)

	half := termOverlap(termSet("alpha beta"), "alpha only here")
	assert.InDelta(t, 0.5, half, 1e-9)
}
