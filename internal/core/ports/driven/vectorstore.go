package driven

import (
	"context"

	"github.com/custodia-labs/fusionqa/internal/core/domain"
)

// VectorStore persists chunk embeddings and answers nearest-neighbour queries.
//
// Implementations must:
//   - reject vectors whose length differs from Dimensions with domain.ErrDimensionMismatch
//   - order Query results by descending cosine similarity, ties by first insertion
//   - return an empty slice (not an error) when the store is empty
//   - be safe for concurrent Upsert of distinct chunk IDs
type VectorStore interface {
	// Upsert stores or replaces one chunk's embedding.
	Upsert(ctx context.Context, record domain.EmbeddingRecord) error

	// Query returns up to k hits ordered by similarity.
	Query(ctx context.Context, vector []float32, k int) ([]domain.VectorHit, error)

	// DeleteBySource removes every embedding belonging to a source.
	// Returns the number removed.
	DeleteBySource(ctx context.Context, sourceID string) (int, error)

	// Stats summarises the store contents.
	Stats(ctx context.Context) (domain.VectorStats, error)

	// Dimensions returns the configured vector length.
	Dimensions() int

	// Close releases resources.
	Close() error
}
