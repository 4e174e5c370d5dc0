package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/fusionqa/internal/core/domain"
	"github.com/custodia-labs/fusionqa/internal/core/ports/driven"
	"github.com/custodia-labs/fusionqa/internal/vecmath"
)

// Ensure VectorStore implements the interface.
var _ driven.VectorStore = (*VectorStore)(nil)

type vectorEntry struct {
	record domain.EmbeddingRecord
	norm   float64
	seq    uint64
}

// VectorStore is an in-memory brute-force cosine index.
type VectorStore struct {
	mu      sync.RWMutex
	dims    int
	entries map[string]*vectorEntry
	seq     uint64
}

// NewVectorStore creates a store for vectors of the given dimension.
// A dimension of zero is fixed by the first upsert.
func NewVectorStore(dims int) *VectorStore {
	return &VectorStore{
		dims:    dims,
		entries: make(map[string]*vectorEntry),
	}
}

// Upsert stores a record. Overwriting an ID keeps its insertion sequence.
func (s *VectorStore) Upsert(_ context.Context, rec domain.EmbeddingRecord) error {
	if rec.ChunkID == "" || len(rec.Vector) == 0 {
		return fmt.Errorf("%w: embedding record needs a chunk ID and a vector", domain.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.dims == 0 {
		s.dims = len(rec.Vector)
	}
	if len(rec.Vector) != s.dims {
		return fmt.Errorf("%w: got %d, store has %d", domain.ErrDimensionMismatch, len(rec.Vector), s.dims)
	}

	vec := append([]float32(nil), rec.Vector...)
	rec.Vector = vec

	if existing, ok := s.entries[rec.ChunkID]; ok {
		existing.record = rec
		existing.norm = vecmath.Norm(vec)
		return nil
	}
	s.seq++
	s.entries[rec.ChunkID] = &vectorEntry{record: rec, norm: vecmath.Norm(vec), seq: s.seq}
	return nil
}

// Query returns the k most similar records, most similar first.
func (s *VectorStore) Query(_ context.Context, vector []float32, k int) ([]domain.VectorHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.entries) == 0 || k <= 0 {
		return []domain.VectorHit{}, nil
	}
	if len(vector) != s.dims {
		return nil, fmt.Errorf("%w: query has %d, store has %d", domain.ErrDimensionMismatch, len(vector), s.dims)
	}

	qnorm := vecmath.Norm(vector)
	candidates := make([]vecmath.Scored, 0, len(s.entries))
	for id, e := range s.entries {
		candidates = append(candidates, vecmath.Scored{
			ID:         id,
			Similarity: vecmath.Cosine(vector, e.record.Vector, qnorm, e.norm),
			Seq:        e.seq,
		})
	}

	top := vecmath.TopK(candidates, k)
	hits := make([]domain.VectorHit, 0, len(top))
	for _, c := range top {
		e := s.entries[c.ID]
		hits = append(hits, domain.VectorHit{
			ChunkID:    c.ID,
			Metadata:   e.record.Metadata,
			Similarity: vecmath.Relevance(c.Similarity),
		})
	}
	return hits, nil
}

// DeleteBySource removes every record of a source.
func (s *VectorStore) DeleteBySource(_ context.Context, sourceID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, e := range s.entries {
		if e.record.Metadata.SourceID == sourceID {
			delete(s.entries, id)
			removed++
		}
	}
	return removed, nil
}

// Stats summarises the store.
func (s *VectorStore) Stats(_ context.Context) (domain.VectorStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sources := make(map[string]struct{})
	for _, e := range s.entries {
		sources[e.record.Metadata.SourceID] = struct{}{}
	}
	return domain.VectorStats{
		Embeddings: len(s.entries),
		Sources:    len(sources),
		Dimensions: s.dims,
		Backend:    string(domain.BackendMemory),
	}, nil
}

// Dimensions returns the vector dimension, or 0 if not yet fixed.
func (s *VectorStore) Dimensions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dims
}

// Close is a no-op.
func (s *VectorStore) Close() error {
	return nil
}
