package services

import (
	"context"
	"time"

	"github.com/custodia-labs/fusionqa/internal/core/domain"
	"github.com/custodia-labs/fusionqa/internal/core/ports/driven"
	"github.com/custodia-labs/fusionqa/internal/core/ports/driving"
)

// Ensure HealthService implements the interface.
var _ driving.HealthService = (*HealthService)(nil)

const healthProbeTimeout = 3 * time.Second

// HealthService probes every dependency of the QA engine.
type HealthService struct {
	embedder driven.EmbeddingService
	llm      driven.LLMService
	graph    driven.GraphStore
	vectors  driven.VectorStore
	backends map[string]string
}

// NewHealthService creates a health checker. llm may be nil.
// backends labels the store components, keyed "graph" and "vector".
func NewHealthService(
	embedder driven.EmbeddingService,
	llm driven.LLMService,
	graph driven.GraphStore,
	vectors driven.VectorStore,
	backends map[string]string,
) *HealthService {
	return &HealthService{
		embedder: embedder,
		llm:      llm,
		graph:    graph,
		vectors:  vectors,
		backends: backends,
	}
}

// Check runs each probe with its own timeout.
func (s *HealthService) Check(ctx context.Context) domain.Health {
	components := []domain.ComponentHealth{
		s.probe(ctx, "embedding", s.embedder != nil, func(ctx context.Context) error {
			return s.embedder.Ping(ctx)
		}),
		s.probe(ctx, "llm", s.llm != nil, func(ctx context.Context) error {
			return s.llm.Ping(ctx)
		}),
		s.probe(ctx, "graph", s.graph != nil, func(ctx context.Context) error {
			_, err := s.graph.Stats(ctx)
			return err
		}),
		s.probe(ctx, "vector", s.vectors != nil, func(ctx context.Context) error {
			_, err := s.vectors.Stats(ctx)
			return err
		}),
	}
	if s.embedder != nil {
		components[0].Detail = s.embedder.ModelName()
	}
	if s.llm != nil && components[1].Status == domain.HealthOK {
		components[1].Detail = s.llm.ModelName()
	}

	status := domain.HealthOK
	for _, c := range components {
		switch {
		case c.Status == domain.HealthOK:
		case c.Name == "llm":
			if status == domain.HealthOK {
				status = domain.HealthDegraded
			}
		default:
			status = domain.HealthUnavailable
		}
	}
	return domain.Health{Status: status, Components: components}
}

func (s *HealthService) probe(ctx context.Context, name string, enabled bool, fn func(context.Context) error) domain.ComponentHealth {
	c := domain.ComponentHealth{Name: name, Backend: s.backends[name]}
	if !enabled {
		c.Status = domain.HealthDisabled
		return c
	}

	probeCtx, cancel := context.WithTimeout(ctx, healthProbeTimeout)
	defer cancel()
	if err := fn(probeCtx); err != nil {
		c.Status = domain.HealthUnavailable
		c.Detail = err.Error()
		return c
	}
	c.Status = domain.HealthOK
	return c
}
