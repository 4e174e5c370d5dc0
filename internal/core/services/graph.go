package services

import (
	"context"
	"fmt"

	"github.com/custodia-labs/fusionqa/internal/core/domain"
	"github.com/custodia-labs/fusionqa/internal/core/ports/driven"
	"github.com/custodia-labs/fusionqa/internal/core/ports/driving"
)

// Ensure GraphService implements the interface.
var _ driving.GraphService = (*GraphService)(nil)

// DefaultVisualizeLimit bounds snapshot size when no limit is given.
const DefaultVisualizeLimit = 100

// GraphService exposes read-only store summaries.
type GraphService struct {
	graph   driven.GraphStore
	vectors driven.VectorStore
}

// NewGraphService creates a new graph service.
func NewGraphService(graph driven.GraphStore, vectors driven.VectorStore) *GraphService {
	return &GraphService{graph: graph, vectors: vectors}
}

// Stats returns node, edge and entity type counts.
func (s *GraphService) Stats(ctx context.Context) (domain.GraphStats, error) {
	if s.graph == nil {
		return domain.GraphStats{}, fmt.Errorf("%w: no graph store configured", domain.ErrStoreUnavailable)
	}
	stats, err := s.graph.Stats(ctx)
	if err != nil {
		return domain.GraphStats{}, fmt.Errorf("graph stats: %w", err)
	}
	if stats.EntityTypeCounts == nil {
		stats.EntityTypeCounts = map[string]int{}
	}
	return stats, nil
}

// Visualize returns up to limit edges and their nodes.
func (s *GraphService) Visualize(ctx context.Context, limit int) (domain.GraphSnapshot, error) {
	if s.graph == nil {
		return domain.GraphSnapshot{}, fmt.Errorf("%w: no graph store configured", domain.ErrStoreUnavailable)
	}
	if limit <= 0 {
		limit = DefaultVisualizeLimit
	}
	snap, err := s.graph.Snapshot(ctx, limit)
	if err != nil {
		return domain.GraphSnapshot{}, fmt.Errorf("graph snapshot: %w", err)
	}
	if snap.Nodes == nil {
		snap.Nodes = []domain.GraphNode{}
	}
	if snap.Edges == nil {
		snap.Edges = []domain.GraphEdge{}
	}
	return snap, nil
}

// VectorStats summarises the vector store.
func (s *GraphService) VectorStats(ctx context.Context) (domain.VectorStats, error) {
	if s.vectors == nil {
		return domain.VectorStats{}, fmt.Errorf("%w: no vector store configured", domain.ErrStoreUnavailable)
	}
	stats, err := s.vectors.Stats(ctx)
	if err != nil {
		return domain.VectorStats{}, fmt.Errorf("vector stats: %w", err)
	}
	return stats, nil
}
