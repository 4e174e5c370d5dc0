package driving

import (
	"context"

	"github.com/custodia-labs/fusionqa/internal/core/domain"
)

// QAService answers questions by fusing vector and graph evidence.
type QAService interface {
	// Answer returns a cited answer. When synthesis is unavailable the
	// answer carries the ranked evidence with Degraded set.
	Answer(ctx context.Context, q domain.Question) (*domain.Answer, error)
}
