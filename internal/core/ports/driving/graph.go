package driving

import (
	"context"

	"github.com/custodia-labs/fusionqa/internal/core/domain"
)

// GraphService exposes read-only views of the knowledge graph and vector store.
type GraphService interface {
	// Stats returns node, edge and entity type counts.
	Stats(ctx context.Context) (domain.GraphStats, error)

	// Visualize returns up to limit edges with their nodes.
	Visualize(ctx context.Context, limit int) (domain.GraphSnapshot, error)

	// VectorStats summarises the vector store.
	VectorStats(ctx context.Context) (domain.VectorStats, error)
}
