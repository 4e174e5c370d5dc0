// Package pgvector stores chunk embeddings in Postgres with the pgvector
// extension and ranks them with the cosine distance operator.
package pgvector

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	pgv "github.com/pgvector/pgvector-go"

	"github.com/custodia-labs/fusionqa/internal/core/domain"
	"github.com/custodia-labs/fusionqa/internal/core/ports/driven"
	"github.com/custodia-labs/fusionqa/internal/vecmath"
)

// Ensure VectorStore implements the interface.
var _ driven.VectorStore = (*VectorStore)(nil)

const table = "fusionqa_embeddings"

// VectorStore is a pgvector-backed embedding index.
type VectorStore struct {
	pool *pgxpool.Pool
	dims int
}

// NewVectorStore connects to dsn and ensures the embeddings table exists
// with a vector column of dims dimensions.
func NewVectorStore(ctx context.Context, dsn string, dims int) (*VectorStore, error) {
	if dsn == "" {
		return nil, fmt.Errorf("%w: postgres dsn is required", domain.ErrInvalidInput)
	}
	if dims <= 0 {
		return nil, fmt.Errorf("%w: pgvector needs a positive dimension", domain.ErrInvalidInput)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: connect postgres: %w", domain.ErrStoreUnavailable, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: ping postgres: %w", domain.ErrStoreUnavailable, err)
	}

	s := &VectorStore{pool: pool, dims: dims}
	if err := s.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

func (s *VectorStore) ensureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements(s.dims) {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("%w: ensure schema: %w", domain.ErrStoreUnavailable, err)
		}
	}

	var existing int
	err := s.pool.QueryRow(ctx, `
		SELECT atttypmod FROM pg_attribute
		WHERE attrelid = $1::regclass AND attname = 'embedding'
	`, table).Scan(&existing)
	if err != nil {
		return fmt.Errorf("%w: read vector dimension: %w", domain.ErrStoreUnavailable, err)
	}
	if existing > 0 && existing != s.dims {
		return fmt.Errorf("%w: configured %d, table has %d", domain.ErrDimensionMismatch, s.dims, existing)
	}
	return nil
}

func schemaStatements(dims int) []string {
	return []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
			chunk_id  TEXT PRIMARY KEY,
			seq       BIGSERIAL,
			source_id TEXT NOT NULL,
			section   TEXT NOT NULL DEFAULT '',
			locator   TEXT NOT NULL DEFAULT '',
			text      TEXT NOT NULL DEFAULT '',
			embedding vector(%d) NOT NULL
		)`, table, dims),
		`CREATE INDEX IF NOT EXISTS fusionqa_embeddings_source_idx ON ` + table + ` (source_id)`,
	}
}

// Upsert stores a record. Overwriting a chunk ID keeps its sequence.
func (s *VectorStore) Upsert(ctx context.Context, rec domain.EmbeddingRecord) error {
	if rec.ChunkID == "" || len(rec.Vector) == 0 {
		return fmt.Errorf("%w: embedding record needs a chunk ID and a vector", domain.ErrInvalidInput)
	}
	if len(rec.Vector) != s.dims {
		return fmt.Errorf("%w: got %d, store has %d", domain.ErrDimensionMismatch, len(rec.Vector), s.dims)
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO `+table+` (chunk_id, source_id, section, locator, text, embedding)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (chunk_id) DO UPDATE SET
			source_id = EXCLUDED.source_id,
			section = EXCLUDED.section,
			locator = EXCLUDED.locator,
			text = EXCLUDED.text,
			embedding = EXCLUDED.embedding
	`, rec.ChunkID, rec.Metadata.SourceID, rec.Metadata.Section, rec.Metadata.Locator, rec.Metadata.Text,
		pgv.NewVector(rec.Vector))
	if err != nil {
		return fmt.Errorf("upsert embedding %s: %w", rec.ChunkID, err)
	}
	return nil
}

// Query returns the k most similar records, most similar first.
func (s *VectorStore) Query(ctx context.Context, vector []float32, k int) ([]domain.VectorHit, error) {
	if k <= 0 {
		return []domain.VectorHit{}, nil
	}
	if len(vector) != s.dims {
		return nil, fmt.Errorf("%w: query has %d, store has %d", domain.ErrDimensionMismatch, len(vector), s.dims)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT chunk_id, source_id, section, locator, text, 1 - (embedding <=> $1) AS similarity
		FROM `+table+`
		ORDER BY embedding <=> $1, seq
		LIMIT $2
	`, pgv.NewVector(vector), k)
	if err != nil {
		return nil, fmt.Errorf("vector query: %w", err)
	}

	hits, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.VectorHit, error) {
		var h domain.VectorHit
		var similarity *float64
		if err := row.Scan(&h.ChunkID, &h.Metadata.SourceID, &h.Metadata.Section,
			&h.Metadata.Locator, &h.Metadata.Text, &similarity); err != nil {
			return h, err
		}
		h.Metadata.ChunkID = h.ChunkID
		if similarity != nil {
			h.Similarity = vecmath.Relevance(*similarity)
		}
		return h, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan vector hits: %w", err)
	}
	if hits == nil {
		hits = []domain.VectorHit{}
	}
	return hits, nil
}

// DeleteBySource removes every record of a source.
func (s *VectorStore) DeleteBySource(ctx context.Context, sourceID string) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM `+table+` WHERE source_id = $1`, sourceID)
	if err != nil {
		return 0, fmt.Errorf("delete embeddings of %s: %w", sourceID, err)
	}
	return int(tag.RowsAffected()), nil
}

// Stats summarises the store.
func (s *VectorStore) Stats(ctx context.Context) (domain.VectorStats, error) {
	stats := domain.VectorStats{Dimensions: s.dims, Backend: string(domain.BackendPGVector)}
	err := s.pool.QueryRow(ctx, `SELECT COUNT(*), COUNT(DISTINCT source_id) FROM `+table).
		Scan(&stats.Embeddings, &stats.Sources)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return domain.VectorStats{}, fmt.Errorf("count embeddings: %w", err)
	}
	return stats, nil
}

// Dimensions returns the configured vector length.
func (s *VectorStore) Dimensions() int {
	return s.dims
}

// Close closes the connection pool.
func (s *VectorStore) Close() error {
	s.pool.Close()
	return nil
}
