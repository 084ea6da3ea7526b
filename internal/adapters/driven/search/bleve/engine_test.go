package bleve

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/archivo-labs/archivo-cli/internal/core/domain"
)

func openTestEngine(t *testing.T) *Engine {
	t.Helper()
	engine, err := Open(filepath.Join(t.TempDir(), "lexical.bleve"))
	require.NoError(t, err)
	t.Cleanup(func() { engine.Close() })
	return engine
}

func indexEntry(chunkID, documentID, text string, index int) domain.IndexEntry {
	return domain.IndexEntry{
		ChunkID:     chunkID,
		DocumentID:  documentID,
		Source:      documentID + ".txt",
		ChunkIndex:  index,
		Text:        text,
		ContentHash: domain.ContentHash(text),
		IngestedAt:  time.Now().UTC(),
	}
}

func TestIndexAndSearch(t *testing.T) {
	engine := openTestEngine(t)
	ctx := context.Background()

	require.NoError(t, engine.Index(ctx, []domain.IndexEntry{
		indexEntry("doc1:0", "doc1", "the quarterly revenue report shows growth", 0),
		indexEntry("doc1:1", "doc1", "marketing spend decreased this quarter", 1),
		indexEntry("doc2:0", "doc2", "employee onboarding checklist and forms", 0),
	}))

	hits, err := engine.Search(ctx, "revenue report", 10)
	require.NoError(t, err)
	require.NotEmpty(t, hits)

	top := hits[0]
	assert.Equal(t, "doc1:0", top.ChunkID)
	assert.Equal(t, "doc1", top.DocumentID)
	assert.Equal(t, "doc1.txt", top.Source)
	assert.Equal(t, 0, top.ChunkIndex)
	assert.Equal(t, "the quarterly revenue report shows growth", top.Text)
	assert.Greater(t, top.Score, 0.0)
}

func TestSearch_NoMatches(t *testing.T) {
	engine := openTestEngine(t)
	ctx := context.Background()

	require.NoError(t, engine.Index(ctx, []domain.IndexEntry{
		indexEntry("doc1:0", "doc1", "completely unrelated content", 0),
	}))

	hits, err := engine.Search(ctx, "zyzzyva", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSearch_RespectsLimit(t *testing.T) {
	engine := openTestEngine(t)
	ctx := context.Background()

	entries := make([]domain.IndexEntry, 5)
	for i := range entries {
		entries[i] = indexEntry(domain.ChunkID("doc1", i), "doc1", "shared keyword apples", i)
	}
	require.NoError(t, engine.Index(ctx, entries))

	hits, err := engine.Search(ctx, "apples", 2)
	require.NoError(t, err)
	assert.Len(t, hits, 2)
}

func TestDelete(t *testing.T) {
	engine := openTestEngine(t)
	ctx := context.Background()

	require.NoError(t, engine.Index(ctx, []domain.IndexEntry{
		indexEntry("doc1:0", "doc1", "disposable entry", 0),
	}))
	require.NoError(t, engine.Delete(ctx, "doc1:0"))

	hits, err := engine.Search(ctx, "disposable", 10)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestDeleteByDocument(t *testing.T) {
	engine := openTestEngine(t)
	ctx := context.Background()

	require.NoError(t, engine.Index(ctx, []domain.IndexEntry{
		indexEntry("doc1:0", "doc1", "alpha chunk from first document", 0),
		indexEntry("doc1:1", "doc1", "beta chunk from first document", 1),
		indexEntry("doc2:0", "doc2", "gamma chunk from second document", 0),
	}))

	require.NoError(t, engine.DeleteByDocument(ctx, "doc1"))

	count, err := engine.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)

	hits, err := engine.Search(ctx, "chunk document", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "doc2:0", hits[0].ChunkID)
}

func TestIndex_Reupsert(t *testing.T) {
	engine := openTestEngine(t)
	ctx := context.Background()

	require.NoError(t, engine.Index(ctx, []domain.IndexEntry{
		indexEntry("doc1:0", "doc1", "original wording", 0),
	}))
	require.NoError(t, engine.Index(ctx, []domain.IndexEntry{
		indexEntry("doc1:0", "doc1", "replacement wording", 0),
	}))

	count, err := engine.Count()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)

	hits, err := engine.Search(ctx, "replacement", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "replacement wording", hits[0].Text)
}

func TestOpen_ReopensExistingIndex(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lexical.bleve")
	ctx := context.Background()

	engine, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, engine.Index(ctx, []domain.IndexEntry{
		indexEntry("doc1:0", "doc1", "persistent entry", 0),
	}))
	require.NoError(t, engine.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	hits, err := reopened.Search(ctx, "persistent", 10)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "doc1:0", hits[0].ChunkID)
}
