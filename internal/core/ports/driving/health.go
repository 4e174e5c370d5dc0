package driving

import (
	"context"

	"github.com/custodia-labs/fusionqa/internal/core/domain"
)

// HealthService probes the AI services and stores.
type HealthService interface {
	Check(ctx context.Context) domain.Health
}
