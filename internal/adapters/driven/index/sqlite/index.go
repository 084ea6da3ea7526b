// Package sqlite implements the vector index on a single SQLite file.
//
// Entries live in one table with the embedding stored as a little-endian
// float32 blob. All vectors are also held in an in-memory cache so
// similarity queries never touch disk; the cache is rebuilt from the
// table on open. The first upsert pins the embedding model and dimension
// in index_meta, and every later upsert must match it.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/archivo-labs/archivo-cli/internal/adapters/driven/index/sqlite/migrations"
	"github.com/archivo-labs/archivo-cli/internal/core/domain"
	"github.com/archivo-labs/archivo-cli/internal/core/ports/driven"
)

// index_meta keys.
const (
	metaKeyModel      = "embedding_model"
	metaKeyDimensions = "embedding_dimensions"
)

// Index is a SQLite-backed vector index with an in-memory vector cache.
type Index struct {
	db   *sql.DB
	path string

	mu         sync.RWMutex
	vectors    map[string]cachedVector
	dimensions int
	model      string
}

type cachedVector struct {
	embedding  []float32
	ingestedAt time.Time
}

var _ driven.VectorIndex = (*Index)(nil)

// Config holds configuration for opening the index.
type Config struct {
	// Path is the database file location. Parent directories are created.
	Path string

	// Model is the embedding model this index is built with. On first
	// upsert the model is pinned; opening an index pinned to a different
	// model fails.
	Model string
}

// Open opens or creates the index at cfg.Path. A database that exists
// but cannot be read or migrated is reported as domain.ErrIndexCorrupted
// so callers can fall back to lexical search.
func Open(cfg Config) (*Index, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("index path is required: %w", domain.ErrInvalidConfig)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0700); err != nil {
		return nil, fmt.Errorf("creating index directory: %w", err)
	}

	existed := false
	if _, err := os.Stat(cfg.Path); err == nil {
		existed = true
	}

	db, err := sql.Open("sqlite", cfg.Path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening index database: %w", err)
	}

	idx := &Index{
		db:      db,
		path:    cfg.Path,
		vectors: make(map[string]cachedVector),
		model:   cfg.Model,
	}

	if err := idx.migrate(migrations.FS); err != nil {
		db.Close()
		if existed {
			return nil, fmt.Errorf("index at %s: %v: %w", cfg.Path, err, domain.ErrIndexCorrupted)
		}
		return nil, fmt.Errorf("initialising index: %w", err)
	}

	if err := idx.loadMeta(); err != nil {
		db.Close()
		return nil, err
	}

	if err := idx.loadVectors(); err != nil {
		db.Close()
		return nil, fmt.Errorf("index at %s: %v: %w", cfg.Path, err, domain.ErrIndexCorrupted)
	}

	return idx, nil
}

// Close closes the database connection.
func (idx *Index) Close() error {
	return idx.db.Close()
}

// Path returns the database file path.
func (idx *Index) Path() string {
	return idx.path
}

// Dimensions returns the pinned vector dimension, or 0 when nothing has
// been upserted yet.
func (idx *Index) Dimensions() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.dimensions
}

// Model returns the pinned embedding model name, or the configured model
// when nothing has been upserted yet.
func (idx *Index) Model() string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.model
}

// Upsert inserts or replaces entries. Entries whose chunk ID and content
// hash already match the stored row are skipped. The first entry ever
// stored pins the index dimension; later entries must match it.
func (idx *Index) Upsert(ctx context.Context, entries []domain.IndexEntry) error {
	if len(entries) == 0 {
		return nil
	}

	idx.mu.Lock()
	defer idx.mu.Unlock()

	// Before the dimension is pinned, the first entry of the first batch
	// sets the expectation; a mixed batch must not store anything.
	dimensions := idx.dimensions
	if dimensions == 0 {
		dimensions = len(entries[0].Embedding)
	}
	for _, e := range entries {
		if len(e.Embedding) == 0 {
			return fmt.Errorf("entry %s has no embedding: %w", e.ChunkID, domain.ErrInvalidInput)
		}
		if len(e.Embedding) != dimensions {
			return fmt.Errorf("entry %s has %d dimensions, index pinned to %d: %w",
				e.ChunkID, len(e.Embedding), dimensions, domain.ErrDimensionMismatch)
		}
	}

	tx, err := idx.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if idx.dimensions == 0 {
		if err := idx.pinMetaTx(ctx, tx, dimensions); err != nil {
			return err
		}
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO entries (chunk_id, document_id, source, chunk_index, text, content_hash, embedding, ingested_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(chunk_id) DO UPDATE SET
			document_id = excluded.document_id,
			source = excluded.source,
			chunk_index = excluded.chunk_index,
			text = excluded.text,
			content_hash = excluded.content_hash,
			embedding = excluded.embedding,
			ingested_at = excluded.ingested_at
	`)
	if err != nil {
		return fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	written := make([]domain.IndexEntry, 0, len(entries))
	for _, e := range entries {
		var existing string
		err := tx.QueryRowContext(ctx,
			"SELECT content_hash FROM entries WHERE chunk_id = ?", e.ChunkID).Scan(&existing)
		if err == nil && existing == e.ContentHash {
			continue
		}
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("checking entry %s: %w", e.ChunkID, err)
		}

		if e.IngestedAt.IsZero() {
			e.IngestedAt = time.Now().UTC()
		}

		if _, err := stmt.ExecContext(ctx, e.ChunkID, e.DocumentID, e.Source, e.ChunkIndex,
			e.Text, e.ContentHash, float32SliceToBytes(e.Embedding), e.IngestedAt); err != nil {
			return fmt.Errorf("upserting entry %s: %w", e.ChunkID, err)
		}
		written = append(written, e)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}

	idx.dimensions = dimensions
	for _, e := range written {
		idx.vectors[e.ChunkID] = cachedVector{
			embedding:  e.Embedding,
			ingestedAt: e.IngestedAt,
		}
	}
	return nil
}

// Query returns up to k chunk IDs ordered by descending cosine
// similarity against the in-memory cache. Ties break by most recent
// ingestion time, then lexical chunk ID, keeping repeated queries
// deterministic.
func (idx *Index) Query(ctx context.Context, vector []float32, k int) ([]domain.VectorHit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive: %w", domain.ErrInvalidInput)
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if idx.dimensions != 0 && len(vector) != idx.dimensions {
		return nil, fmt.Errorf("query vector has %d dimensions, index pinned to %d: %w",
			len(vector), idx.dimensions, domain.ErrDimensionMismatch)
	}

	type scored struct {
		chunkID    string
		similarity float64
		ingestedAt time.Time
	}

	hits := make([]scored, 0, len(idx.vectors))
	for chunkID, cached := range idx.vectors {
		hits = append(hits, scored{
			chunkID:    chunkID,
			similarity: cosineSimilarity(vector, cached.embedding),
			ingestedAt: cached.ingestedAt,
		})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].similarity != hits[j].similarity {
			return hits[i].similarity > hits[j].similarity
		}
		if !hits[i].ingestedAt.Equal(hits[j].ingestedAt) {
			return hits[i].ingestedAt.After(hits[j].ingestedAt)
		}
		return hits[i].chunkID < hits[j].chunkID
	})

	if len(hits) > k {
		hits = hits[:k]
	}

	results := make([]domain.VectorHit, len(hits))
	for i, h := range hits {
		results[i] = domain.VectorHit{ChunkID: h.chunkID, Similarity: h.similarity}
	}
	return results, nil
}

// Exists reports whether a chunk with the given ID and content hash is
// already stored.
func (idx *Index) Exists(ctx context.Context, chunkID, contentHash string) (bool, error) {
	var stored string
	err := idx.db.QueryRowContext(ctx,
		"SELECT content_hash FROM entries WHERE chunk_id = ?", chunkID).Scan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking entry %s: %w", chunkID, err)
	}
	return stored == contentHash, nil
}

// Get retrieves a stored entry by chunk ID.
func (idx *Index) Get(ctx context.Context, chunkID string) (*domain.IndexEntry, error) {
	row := idx.db.QueryRowContext(ctx, `
		SELECT chunk_id, document_id, source, chunk_index, text, content_hash, embedding, ingested_at
		FROM entries WHERE chunk_id = ?
	`, chunkID)

	var e domain.IndexEntry
	var blob []byte
	if err := row.Scan(&e.ChunkID, &e.DocumentID, &e.Source, &e.ChunkIndex,
		&e.Text, &e.ContentHash, &blob, &e.IngestedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("scanning entry: %w", err)
	}
	e.Embedding = bytesToFloat32Slice(blob)
	return &e, nil
}

// DeleteByDocument removes all chunks belonging to a document.
func (idx *Index) DeleteByDocument(ctx context.Context, documentID string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	rows, err := idx.db.QueryContext(ctx,
		"SELECT chunk_id FROM entries WHERE document_id = ?", documentID)
	if err != nil {
		return fmt.Errorf("querying document chunks: %w", err)
	}

	var chunkIDs []string //nolint:prealloc // size unknown from query
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("scanning chunk id: %w", err)
		}
		chunkIDs = append(chunkIDs, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("iterating chunk ids: %w", err)
	}
	rows.Close()

	if _, err := idx.db.ExecContext(ctx,
		"DELETE FROM entries WHERE document_id = ?", documentID); err != nil {
		return fmt.Errorf("deleting document chunks: %w", err)
	}

	for _, id := range chunkIDs {
		delete(idx.vectors, id)
	}
	return nil
}

// Count returns the number of stored entries.
func (idx *Index) Count(ctx context.Context) (int, error) {
	var count int
	if err := idx.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM entries").Scan(&count); err != nil {
		return 0, fmt.Errorf("counting entries: %w", err)
	}
	return count, nil
}

// CountDocuments returns the number of distinct documents with at least
// one stored chunk.
func (idx *Index) CountDocuments(ctx context.Context) (int, error) {
	var count int
	if err := idx.db.QueryRowContext(ctx,
		"SELECT COUNT(DISTINCT document_id) FROM entries").Scan(&count); err != nil {
		return 0, fmt.Errorf("counting documents: %w", err)
	}
	return count, nil
}

// DocumentIDs returns the distinct document IDs with at least one stored
// chunk, in lexical order.
func (idx *Index) DocumentIDs(ctx context.Context) ([]string, error) {
	rows, err := idx.db.QueryContext(ctx,
		"SELECT DISTINCT document_id FROM entries ORDER BY document_id")
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning document id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	return ids, nil
}

// migrate runs all pending migrations.
func (idx *Index) migrate(fsys embed.FS) error {
	_, err := idx.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := idx.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= currentVersion {
			continue
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := idx.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := idx.db.Exec(
			"INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// loadMeta reads the pinned model and dimension, validating that the
// configured model matches what the index was built with.
func (idx *Index) loadMeta() error {
	rows, err := idx.db.Query("SELECT key, value FROM index_meta")
	if err != nil {
		return fmt.Errorf("index at %s: %v: %w", idx.path, err, domain.ErrIndexCorrupted)
	}
	defer rows.Close()

	meta := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return fmt.Errorf("scanning index meta: %w", err)
		}
		meta[key] = value
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterating index meta: %w", err)
	}

	if dims, ok := meta[metaKeyDimensions]; ok {
		n, err := strconv.Atoi(dims)
		if err != nil {
			return fmt.Errorf("index at %s has invalid dimension %q: %w", idx.path, dims, domain.ErrIndexCorrupted)
		}
		idx.dimensions = n
	}

	if pinned, ok := meta[metaKeyModel]; ok {
		if idx.model != "" && pinned != idx.model {
			return fmt.Errorf("index at %s was built with model %s, configured model is %s: %w",
				idx.path, pinned, idx.model, domain.ErrDimensionMismatch)
		}
		idx.model = pinned
	}

	return nil
}

// pinMetaTx records the model and dimension on first upsert.
func (idx *Index) pinMetaTx(ctx context.Context, tx *sql.Tx, dimensions int) error {
	pairs := map[string]string{
		metaKeyDimensions: strconv.Itoa(dimensions),
	}
	if idx.model != "" {
		pairs[metaKeyModel] = idx.model
	}
	for key, value := range pairs {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO index_meta (key, value) VALUES (?, ?)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value
		`, key, value); err != nil {
			return fmt.Errorf("pinning index meta %s: %w", key, err)
		}
	}
	return nil
}

// loadVectors rebuilds the in-memory cache from the entries table.
func (idx *Index) loadVectors() error {
	rows, err := idx.db.Query("SELECT chunk_id, embedding, ingested_at FROM entries")
	if err != nil {
		return fmt.Errorf("querying vectors: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var chunkID string
		var blob []byte
		var ingestedAt time.Time
		if err := rows.Scan(&chunkID, &blob, &ingestedAt); err != nil {
			return fmt.Errorf("scanning vector: %w", err)
		}
		embedding := bytesToFloat32Slice(blob)
		if idx.dimensions != 0 && len(embedding) != idx.dimensions {
			return fmt.Errorf("entry %s has %d dimensions, meta says %d", chunkID, len(embedding), idx.dimensions)
		}
		idx.vectors[chunkID] = cachedVector{embedding: embedding, ingestedAt: ingestedAt}
	}
	return rows.Err()
}

// cosineSimilarity computes the cosine of the angle between two vectors.
// Returns 0 when either vector has zero magnitude or lengths differ.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// float32SliceToBytes converts a []float32 to a little-endian byte slice
// for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}
