package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/archivo-labs/archivo-cli/internal/core/domain"
	"github.com/archivo-labs/archivo-cli/internal/core/ports/driven"
)

// fakeEmbedder produces deterministic vectors derived from the text, so
// tests can reason about similarity without a real model.
type fakeEmbedder struct {
	mu         sync.Mutex
	dimensions int
	calls      int
	batchSizes []int
	failAfter  int // fail on call number failAfter (1-based); 0 disables
	pingErr    error
}

var _ driven.EmbeddingService = (*fakeEmbedder)(nil)

func newFakeEmbedder(dimensions int) *fakeEmbedder {
	return &fakeEmbedder{dimensions: dimensions}
}

func (f *fakeEmbedder) vectorFor(text string) []float32 {
	v := make([]float32, f.dimensions)
	for i, r := range text {
		v[i%f.dimensions] += float32(r%13) + 1
	}
	return v
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failAfter > 0 && f.calls >= f.failAfter {
		return nil, domain.ErrEmbeddingUnavailable
	}
	return f.vectorFor(text), nil
}

func (f *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.batchSizes = append(f.batchSizes, len(texts))
	if f.failAfter > 0 && f.calls >= f.failAfter {
		return nil, domain.ErrEmbeddingUnavailable
	}
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = f.vectorFor(text)
	}
	return vectors, nil
}

func (f *fakeEmbedder) Dimensions() int        { return f.dimensions }
func (f *fakeEmbedder) ModelName() string      { return "fake-model" }
func (f *fakeEmbedder) Ping(context.Context) error { return f.pingErr }
func (f *fakeEmbedder) Close() error           { return nil }

// fakeIndex is an in-memory VectorIndex with the same ordering contract
// as the SQLite adapter.
type fakeIndex struct {
	mu      sync.Mutex
	entries map[string]domain.IndexEntry
}

var _ driven.VectorIndex = (*fakeIndex)(nil)

func newFakeIndex() *fakeIndex {
	return &fakeIndex{entries: make(map[string]domain.IndexEntry)}
}

func (f *fakeIndex) Upsert(_ context.Context, entries []domain.IndexEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range entries {
		if existing, ok := f.entries[e.ChunkID]; ok && existing.ContentHash == e.ContentHash {
			continue
		}
		f.entries[e.ChunkID] = e
	}
	return nil
}

func (f *fakeIndex) Query(_ context.Context, vector []float32, k int) ([]domain.VectorHit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	type scored struct {
		id         string
		sim        float64
		ingestedAt time.Time
	}
	var hits []scored
	for id, e := range f.entries {
		hits = append(hits, scored{id: id, sim: cosine(vector, e.Embedding), ingestedAt: e.IngestedAt})
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].sim != hits[j].sim {
			return hits[i].sim > hits[j].sim
		}
		if !hits[i].ingestedAt.Equal(hits[j].ingestedAt) {
			return hits[i].ingestedAt.After(hits[j].ingestedAt)
		}
		return hits[i].id < hits[j].id
	})
	if len(hits) > k {
		hits = hits[:k]
	}
	out := make([]domain.VectorHit, len(hits))
	for i, h := range hits {
		out[i] = domain.VectorHit{ChunkID: h.id, Similarity: h.sim}
	}
	return out, nil
}

func (f *fakeIndex) Exists(_ context.Context, chunkID, contentHash string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entries[chunkID]
	return ok && e.ContentHash == contentHash, nil
}

func (f *fakeIndex) Get(_ context.Context, chunkID string) (*domain.IndexEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.entries[chunkID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &e, nil
}

func (f *fakeIndex) DeleteByDocument(_ context.Context, documentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, e := range f.entries {
		if e.DocumentID == documentID {
			delete(f.entries, id)
		}
	}
	return nil
}

func (f *fakeIndex) Count(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.entries), nil
}

func (f *fakeIndex) DocumentIDs(context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	seen := make(map[string]bool)
	var ids []string
	for _, e := range f.entries {
		if !seen[e.DocumentID] {
			seen[e.DocumentID] = true
			ids = append(ids, e.DocumentID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (f *fakeIndex) Dimensions() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.entries {
		return len(e.Embedding)
	}
	return 0
}

func (f *fakeIndex) Close() error { return nil }

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// fakeSearch is a naive lexical engine scoring by shared term count.
type fakeSearch struct {
	mu      sync.Mutex
	entries map[string]domain.IndexEntry
	err     error
}

var _ driven.SearchEngine = (*fakeSearch)(nil)

func newFakeSearch() *fakeSearch {
	return &fakeSearch{entries: make(map[string]domain.IndexEntry)}
}

func (f *fakeSearch) Index(_ context.Context, entries []domain.IndexEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range entries {
		f.entries[e.ChunkID] = e
	}
	return nil
}

func (f *fakeSearch) Delete(_ context.Context, chunkID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.entries, chunkID)
	return nil
}

func (f *fakeSearch) DeleteByDocument(_ context.Context, documentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, e := range f.entries {
		if e.DocumentID == documentID {
			delete(f.entries, id)
		}
	}
	return nil
}

func (f *fakeSearch) Search(_ context.Context, query string, limit int) ([]driven.SearchHit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}

	terms := strings.Fields(strings.ToLower(query))
	var hits []driven.SearchHit
	for _, e := range f.entries {
		text := strings.ToLower(e.Text)
		score := 0.0
		for _, term := range terms {
			if strings.Contains(text, term) {
				score++
			}
		}
		if score > 0 {
			hits = append(hits, driven.SearchHit{
				ChunkID:    e.ChunkID,
				DocumentID: e.DocumentID,
				Source:     e.Source,
				ChunkIndex: e.ChunkIndex,
				Text:       e.Text,
				Score:      score,
			})
		}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ChunkID < hits[j].ChunkID
	})
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func (f *fakeSearch) Close() error { return nil }

// fakeRegistry extracts by returning file content as-is, or failing for
// configured paths.
type fakeRegistry struct {
	failPaths map[string]error
}

var _ driven.ExtractorRegistry = (*fakeRegistry)(nil)

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{failPaths: make(map[string]error)}
}

func (f *fakeRegistry) Register(driven.Extractor) {}

func (f *fakeRegistry) Extract(_ context.Context, ref domain.DocumentRef, content []byte) (string, error) {
	if err, ok := f.failPaths[ref.Path]; ok {
		return "", err
	}
	return string(content), nil
}

// fileSet backs the ingest service's readFile hook with in-memory files.
type fileSet map[string]string

func (fs fileSet) read(path string) ([]byte, error) {
	content, ok := fs[path]
	if !ok {
		return nil, fmt.Errorf("open %s: %w", path, errors.New("file does not exist"))
	}
	return []byte(content), nil
}
