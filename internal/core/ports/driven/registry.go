package driven

import (
	"context"

	"github.com/custodia-labs/fusionqa/internal/core/domain"
)

// Normalizer turns a source into bounded chunks.
// It dispatches to the best Normaliser for the source kind and then runs
// the post-processing pipeline.
type Normalizer interface {
	// Normalize fails with domain.ErrUnsupportedKind for unknown kinds and
	// domain.ErrParse for undecodable content.
	Normalize(ctx context.Context, src *domain.Source) ([]domain.Chunk, error)

	// Register adds a normaliser.
	Register(normaliser Normaliser)

	// SupportedKinds returns all kinds that can be normalised.
	SupportedKinds() []domain.SourceKind
}

// Extractor finds entities and relations in a chunk.
type Extractor interface {
	// Extract fails with domain.ErrExtraction when the output cannot be
	// parsed after one corrective retry.
	Extract(ctx context.Context, chunk domain.Chunk) (domain.Extraction, error)
}
