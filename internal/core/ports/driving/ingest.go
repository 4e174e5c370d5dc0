package driving

import (
	"context"

	"github.com/custodia-labs/fusionqa/internal/core/domain"
)

// IngestService runs sources through the indexing pipeline.
type IngestService interface {
	// Ingest processes a batch. Per-source failures are reported in the
	// result; only invalid input or cancellation return an error.
	Ingest(ctx context.Context, sources []domain.Source) (*domain.IngestResult, error)

	// Status returns the latest status of a source, or domain.ErrNotFound.
	Status(ctx context.Context, sourceID string) (*domain.SourceStatus, error)

	// Remove deletes every artifact derived from a source.
	Remove(ctx context.Context, sourceID string) error
}
