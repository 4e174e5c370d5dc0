package driven

import (
	"context"

	"github.com/custodia-labs/fusionqa/internal/core/domain"
)

// GraphStore is a labelled property graph of entities and relations.
//
// Implementations must:
//   - merge entities by canonical key, unioning aliases
//   - merge relations by (type, source key, target key), unioning provenance
//   - serialise read-merge-write per canonical key (or use an atomic upsert)
//   - never revisit a (node, depth) pair during traversal and cap returned edges
type GraphStore interface {
	// Upsert merges entities and relations. Relation endpoints missing from
	// the graph are created from the reference.
	Upsert(ctx context.Context, entities []domain.Entity, relations []domain.Relation) error

	// QueryPaths performs a bounded breadth-first traversal from seeds.
	QueryPaths(ctx context.Context, seeds []domain.EntityRef, q domain.PathQuery) ([]domain.GraphPath, error)

	// FindEntities matches entities whose name or alias contains any of the
	// given names (case-insensitive), returning at most limitPerName per name.
	FindEntities(ctx context.Context, names []string, limitPerName int) ([]domain.Entity, error)

	// EntitiesForChunks returns endpoints of relations whose provenance
	// cites any of the given chunks.
	EntitiesForChunks(ctx context.Context, chunkIDs []string) ([]domain.EntityRef, error)

	// RemoveSource drops provenance belonging to a source and deletes edges
	// left without provenance. Entities are retained.
	RemoveSource(ctx context.Context, sourceID string) error

	// Stats returns node, edge and entity type counts.
	Stats(ctx context.Context) (domain.GraphStats, error)

	// Snapshot returns up to limit edges and their endpoint nodes.
	Snapshot(ctx context.Context, limit int) (domain.GraphSnapshot, error)

	// Close releases resources.
	Close() error
}

// EntityResolver maps an incoming entity onto an existing canonical entity.
// It is the extension point for near-duplicate merging ("Apple" vs "Apple Inc.").
type EntityResolver interface {
	// Resolve returns the entity to merge into. Returning e unchanged keeps
	// exact canonical-key semantics.
	Resolve(ctx context.Context, e domain.Entity) (domain.Entity, error)
}
