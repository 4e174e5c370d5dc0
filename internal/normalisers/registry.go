package normalisers

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/fusionqa/internal/core/domain"
	"github.com/custodia-labs/fusionqa/internal/core/ports/driven"
	"github.com/custodia-labs/fusionqa/internal/logger"
	"github.com/custodia-labs/fusionqa/internal/normalisers/csv"
	"github.com/custodia-labs/fusionqa/internal/normalisers/html"
	"github.com/custodia-labs/fusionqa/internal/normalisers/jsondoc"
	"github.com/custodia-labs/fusionqa/internal/normalisers/markdown"
	"github.com/custodia-labs/fusionqa/internal/normalisers/pdf"
	"github.com/custodia-labs/fusionqa/internal/normalisers/plaintext"
)

// Ensure Registry implements the interface.
var _ driven.Normalizer = (*Registry)(nil)

// Registry dispatches sources to the highest-priority normaliser for their
// kind and runs the resulting segments through a post-processing pipeline.
type Registry struct {
	mu       sync.RWMutex
	byKind   map[domain.SourceKind][]driven.Normaliser
	pipeline driven.PostProcessorPipeline
}

// NewRegistry creates an empty registry that chunks with the given pipeline.
func NewRegistry(pipeline driven.PostProcessorPipeline) *Registry {
	return &Registry{
		byKind:   make(map[domain.SourceKind][]driven.Normaliser),
		pipeline: pipeline,
	}
}

// RegisterDefaults registers all built-in normalisers with the registry.
func RegisterDefaults(r *Registry) {
	r.Register(plaintext.New())
	r.Register(markdown.New())
	r.Register(html.New())
	r.Register(csv.New())
	r.Register(jsondoc.New())
	r.Register(pdf.New())
}

// Register adds a normaliser for each of its supported kinds.
func (r *Registry) Register(n driven.Normaliser) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, kind := range n.SupportedKinds() {
		list := append(r.byKind[kind], n)
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].Priority() > list[j].Priority()
		})
		r.byKind[kind] = list
	}
}

// SupportedKinds returns all kinds with at least one normaliser, sorted.
func (r *Registry) SupportedKinds() []domain.SourceKind {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]domain.SourceKind, 0, len(r.byKind))
	for kind := range r.byKind {
		kinds = append(kinds, kind)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	return kinds
}

// Get returns the preferred normaliser for a kind.
func (r *Registry) Get(kind domain.SourceKind) (driven.Normaliser, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := r.byKind[kind]
	if len(list) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedKind, kind)
	}
	return list[0], nil
}

// Normalize decodes the source and chunks it.
// An empty document yields zero chunks and no error.
func (r *Registry) Normalize(ctx context.Context, src *domain.Source) ([]domain.Chunk, error) {
	if src == nil {
		return nil, domain.ErrInvalidInput
	}
	if !src.Kind.IsValid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedKind, src.Kind)
	}

	n, err := r.Get(src.Kind)
	if err != nil {
		return nil, err
	}

	result, err := n.Normalise(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("normalise %s: %w", src.DisplayName(), err)
	}
	if result == nil || len(result.Segments) == 0 {
		logger.Debug("normalise %s: no text segments", src.DisplayName())
		return nil, nil
	}

	if r.pipeline == nil {
		return nil, fmt.Errorf("normalise %s: no chunking pipeline configured", src.DisplayName())
	}
	chunks, err := r.pipeline.Process(ctx, src, result.Segments)
	if err != nil {
		return nil, fmt.Errorf("chunk %s: %w", src.DisplayName(), err)
	}

	logger.Debug("normalise %s: %d segments, %d chunks", src.DisplayName(), len(result.Segments), len(chunks))
	return chunks, nil
}
