package driven

import (
	"context"

	"github.com/custodia-labs/fusionqa/internal/core/domain"
)

// Normaliser decodes one source kind into plain-text segments.
// Segments follow the natural units of the kind (paragraph, row, record).
type Normaliser interface {
	// SupportedKinds returns the source kinds this normaliser handles.
	SupportedKinds() []domain.SourceKind

	// Priority returns the selection priority (higher = preferred).
	Priority() int

	// Normalise decodes the source. Undecodable content fails with domain.ErrParse.
	Normalise(ctx context.Context, src *domain.Source) (*NormaliseResult, error)
}

// NormaliseResult contains the output of normalisation.
// Chunking is handled by the PostProcessor pipeline.
type NormaliseResult struct {
	// Title is a best-effort document title.
	Title string

	// Segments are the natural text units in document order.
	Segments []domain.Segment
}
