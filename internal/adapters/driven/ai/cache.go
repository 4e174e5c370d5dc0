package ai

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/custodia-labs/fusionqa/internal/core/ports/driven"
)

// Ensure CachedEmbedding implements the interface.
var _ driven.EmbeddingService = (*CachedEmbedding)(nil)

// DefaultCacheTTL is how long a single-text embedding stays cached.
const DefaultCacheTTL = 30 * time.Minute

// CachedEmbedding memoises Embed results by text. Repeated questions skip
// the provider round trip. EmbedBatch is used for ingestion and passes
// straight through.
type CachedEmbedding struct {
	driven.EmbeddingService
	cache *cache.Cache
}

// NewCachedEmbedding wraps svc with an in-process cache.
func NewCachedEmbedding(svc driven.EmbeddingService, ttl time.Duration) *CachedEmbedding {
	return &CachedEmbedding{
		EmbeddingService: svc,
		cache:            cache.New(ttl, 2*ttl),
	}
}

// Embed returns a cached vector or embeds and caches text.
// The cached slice is copied so callers cannot mutate it.
func (c *CachedEmbedding) Embed(ctx context.Context, text string) ([]float32, error) {
	if x, found := c.cache.Get(text); found {
		return append([]float32(nil), x.([]float32)...), nil
	}
	vec, err := c.EmbeddingService.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Set(text, append([]float32(nil), vec...), cache.DefaultExpiration)
	return vec, nil
}

// Close flushes the cache and closes the wrapped service.
func (c *CachedEmbedding) Close() error {
	c.cache.Flush()
	return c.EmbeddingService.Close()
}
