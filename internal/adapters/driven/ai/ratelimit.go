package ai

import (
	"context"
	"math"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/fusionqa/internal/core/ports/driven"
)

// Ensure the limiters implement the interfaces.
var (
	_ driven.LLMService       = (*RateLimitedLLM)(nil)
	_ driven.EmbeddingService = (*RateLimitedEmbedding)(nil)
)

// newLimiter builds a token bucket whose burst is the per-second rate,
// rounded up, so short bursts are not serialised.
func newLimiter(rps float64) *rate.Limiter {
	burst := int(math.Ceil(rps))
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(rps), burst)
}

// RateLimitedLLM throttles Generate calls on a wrapped LLMService.
type RateLimitedLLM struct {
	driven.LLMService
	limiter *rate.Limiter
}

// NewRateLimitedLLM wraps svc with a limiter of rps requests per second.
func NewRateLimitedLLM(svc driven.LLMService, rps float64) *RateLimitedLLM {
	return &RateLimitedLLM{LLMService: svc, limiter: newLimiter(rps)}
}

// Generate waits for a token, then delegates.
func (l *RateLimitedLLM) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return l.LLMService.Generate(ctx, prompt, opts)
}

// RateLimitedEmbedding throttles embedding calls on a wrapped EmbeddingService.
// A batch costs one token.
type RateLimitedEmbedding struct {
	driven.EmbeddingService
	limiter *rate.Limiter
}

// NewRateLimitedEmbedding wraps svc with a limiter of rps requests per second.
func NewRateLimitedEmbedding(svc driven.EmbeddingService, rps float64) *RateLimitedEmbedding {
	return &RateLimitedEmbedding{EmbeddingService: svc, limiter: newLimiter(rps)}
}

// Embed waits for a token, then delegates.
func (l *RateLimitedEmbedding) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return l.EmbeddingService.Embed(ctx, text)
}

// EmbedBatch waits for a token, then delegates.
func (l *RateLimitedEmbedding) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return l.EmbeddingService.EmbedBatch(ctx, texts)
}
