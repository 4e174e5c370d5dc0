package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/pgvector/pgvector-go"

	"github.com/custodia-labs/fusionqa/internal/core/domain"
	"github.com/custodia-labs/fusionqa/internal/core/ports/driven"
	"github.com/custodia-labs/fusionqa/internal/vecmath"
)

// Ensure VectorStore implements the interface.
var _ driven.VectorStore = (*VectorStore)(nil)

const dimensionsKey = "dimensions"

// VectorStore keeps embeddings in SQLite and ranks them by brute-force
// cosine similarity. Vectors use the pgvector text encoding.
type VectorStore struct {
	store *Store

	mu   sync.RWMutex
	dims int
}

func newVectorStore(ctx context.Context, s *Store, dims int) (*VectorStore, error) {
	var stored string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM vector_meta WHERE key = ?`, dimensionsKey).Scan(&stored)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		vs := &VectorStore{store: s}
		if dims > 0 {
			if err := vs.persistDims(ctx, dims); err != nil {
				return nil, err
			}
		}
		return vs, nil
	case err != nil:
		return nil, fmt.Errorf("read vector dimensions: %w", err)
	}

	persisted, err := strconv.Atoi(stored)
	if err != nil {
		return nil, fmt.Errorf("parse vector dimensions %q: %w", stored, err)
	}
	if dims > 0 && dims != persisted {
		return nil, fmt.Errorf("%w: configured %d, database has %d", domain.ErrDimensionMismatch, dims, persisted)
	}
	return &VectorStore{store: s, dims: persisted}, nil
}

func (v *VectorStore) persistDims(ctx context.Context, dims int) error {
	_, err := v.store.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO vector_meta (key, value) VALUES (?, ?)`, dimensionsKey, strconv.Itoa(dims))
	if err != nil {
		return fmt.Errorf("persist vector dimensions: %w", err)
	}
	v.dims = dims
	return nil
}

// Upsert stores a record. Overwriting a chunk ID keeps its insertion order.
func (v *VectorStore) Upsert(ctx context.Context, rec domain.EmbeddingRecord) error {
	if rec.ChunkID == "" || len(rec.Vector) == 0 {
		return fmt.Errorf("%w: embedding record needs a chunk ID and a vector", domain.ErrInvalidInput)
	}

	if err := v.ensureDims(ctx, len(rec.Vector)); err != nil {
		return err
	}

	vec := pgvector.NewVector(rec.Vector)
	_, err := v.store.db.ExecContext(ctx, `
		INSERT INTO embeddings (chunk_id, source_id, section, locator, text, vector)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(chunk_id) DO UPDATE SET
			source_id = excluded.source_id,
			section = excluded.section,
			locator = excluded.locator,
			text = excluded.text,
			vector = excluded.vector
	`, rec.ChunkID, rec.Metadata.SourceID, rec.Metadata.Section, rec.Metadata.Locator, rec.Metadata.Text, vec)
	if err != nil {
		return fmt.Errorf("upsert embedding %s: %w", rec.ChunkID, err)
	}
	return nil
}

func (v *VectorStore) ensureDims(ctx context.Context, n int) error {
	v.mu.RLock()
	dims := v.dims
	v.mu.RUnlock()
	if dims == 0 {
		v.mu.Lock()
		if v.dims == 0 {
			if err := v.persistDims(ctx, n); err != nil {
				v.mu.Unlock()
				return err
			}
		}
		dims = v.dims
		v.mu.Unlock()
	}
	if n != dims {
		return fmt.Errorf("%w: got %d, store has %d", domain.ErrDimensionMismatch, n, dims)
	}
	return nil
}

// Query returns the k most similar records, most similar first.
func (v *VectorStore) Query(ctx context.Context, vector []float32, k int) ([]domain.VectorHit, error) {
	if k <= 0 {
		return []domain.VectorHit{}, nil
	}

	// One statement reads ranking and presentation data, so a concurrent
	// delete cannot strand a ranked hit without its metadata.
	rows, err := v.store.db.QueryContext(ctx,
		`SELECT rowid, chunk_id, source_id, section, locator, text, vector FROM embeddings`)
	if err != nil {
		return nil, fmt.Errorf("query embeddings: %w", err)
	}
	defer rows.Close()

	dims := v.Dimensions()
	if len(vector) != dims && dims > 0 {
		return nil, fmt.Errorf("%w: query has %d, store has %d", domain.ErrDimensionMismatch, len(vector), dims)
	}
	qnorm := vecmath.Norm(vector)
	var candidates []vecmath.Scored
	metas := make(map[string]domain.ChunkMetadata)
	for rows.Next() {
		var (
			seq    uint64
			meta   domain.ChunkMetadata
			stored pgvector.Vector
		)
		if err := rows.Scan(&seq, &meta.ChunkID, &meta.SourceID, &meta.Section, &meta.Locator, &meta.Text, &stored); err != nil {
			return nil, fmt.Errorf("scan embedding: %w", err)
		}
		vec := stored.Slice()
		if len(vec) != len(vector) {
			return nil, fmt.Errorf("%w: query has %d, store has %d", domain.ErrDimensionMismatch, len(vector), len(vec))
		}
		candidates = append(candidates, vecmath.Scored{
			ID:         meta.ChunkID,
			Similarity: vecmath.Cosine(vector, vec, qnorm, vecmath.Norm(vec)),
			Seq:        seq,
		})
		metas[meta.ChunkID] = meta
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read embeddings: %w", err)
	}

	top := vecmath.TopK(candidates, k)
	hits := make([]domain.VectorHit, 0, len(top))
	for _, c := range top {
		hits = append(hits, domain.VectorHit{
			ChunkID:    c.ID,
			Metadata:   metas[c.ID],
			Similarity: vecmath.Relevance(c.Similarity),
		})
	}
	return hits, nil
}

// DeleteBySource removes every record of a source.
func (v *VectorStore) DeleteBySource(ctx context.Context, sourceID string) (int, error) {
	res, err := v.store.db.ExecContext(ctx, `DELETE FROM embeddings WHERE source_id = ?`, sourceID)
	if err != nil {
		return 0, fmt.Errorf("delete embeddings of %s: %w", sourceID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// Stats summarises the store.
func (v *VectorStore) Stats(ctx context.Context) (domain.VectorStats, error) {
	stats := domain.VectorStats{
		Dimensions: v.Dimensions(),
		Backend:    string(domain.BackendSQLite),
	}
	err := v.store.db.QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(DISTINCT source_id) FROM embeddings`,
	).Scan(&stats.Embeddings, &stats.Sources)
	if err != nil {
		return domain.VectorStats{}, fmt.Errorf("count embeddings: %w", err)
	}
	return stats, nil
}

// Dimensions returns the vector dimension, or 0 if not yet fixed.
func (v *VectorStore) Dimensions() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.dims
}

// Close releases this store's reference to the database.
func (v *VectorStore) Close() error {
	return v.store.release()
}
