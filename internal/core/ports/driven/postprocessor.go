package driven

import (
	"context"

	"github.com/custodia-labs/fusionqa/internal/core/domain"
)

// PostProcessor turns normalised segments into chunks or refines chunks.
// PostProcessors are chained in a pipeline (e.g., chunking, section labelling).
type PostProcessor interface {
	// Name returns the processor name for logging and configuration.
	Name() string

	// Process receives the source, its segments, and the chunks so far.
	// A chunk-creating processor (chunker) receives nil chunks.
	Process(ctx context.Context, src *domain.Source, segments []domain.Segment, chunks []domain.Chunk) ([]domain.Chunk, error)
}

// PostProcessorPipeline chains multiple PostProcessors.
type PostProcessorPipeline interface {
	// Process runs the segments through all processors in order.
	Process(ctx context.Context, src *domain.Source, segments []domain.Segment) ([]domain.Chunk, error)
}
