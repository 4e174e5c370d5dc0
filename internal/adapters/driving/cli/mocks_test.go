package cli

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/fusionqa/internal/core/domain"
)

type mockSettingsService struct {
	settings domain.AppSettings
	values   map[string]string
	err      error
}

func newMockSettingsService() *mockSettingsService {
	return &mockSettingsService{settings: domain.DefaultAppSettings(), values: map[string]string{}}
}

func (m *mockSettingsService) Get() (*domain.AppSettings, error) {
	if m.err != nil {
		return nil, m.err
	}
	s := m.settings
	return &s, nil
}

func (m *mockSettingsService) Set(key, value string) error {
	if m.err != nil {
		return m.err
	}
	if key == "unknown.key" {
		return fmt.Errorf("%w: unknown config key %q", domain.ErrInvalidInput, key)
	}
	m.values[key] = value
	return nil
}

func (m *mockSettingsService) Keys() []string {
	keys := []string{"llm.api_key", "llm.provider", "qa.n_results"}
	sort.Strings(keys)
	return keys
}

type mockIngestService struct {
	mu       sync.Mutex
	received []domain.Source
	removed  []string
	result   *domain.IngestResult
	err      error
}

func (m *mockIngestService) Ingest(_ context.Context, sources []domain.Source) (*domain.IngestResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.received = append(m.received, sources...)
	if m.err != nil {
		return nil, m.err
	}
	if m.result != nil {
		return m.result, nil
	}
	result := &domain.IngestResult{SourcesIngested: len(sources), DocumentsIndexed: len(sources)}
	for _, s := range sources {
		result.ChunksIndexed += 2
		result.Sources = append(result.Sources, domain.SourceStatus{
			SourceID: s.ID, Locator: s.Locator, State: domain.StateDone, Chunks: 2,
		})
	}
	return result, nil
}

func (m *mockIngestService) Status(_ context.Context, _ string) (*domain.SourceStatus, error) {
	return nil, domain.ErrNotFound
}

func (m *mockIngestService) Remove(_ context.Context, sourceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.removed = append(m.removed, sourceID)
	return nil
}

func (m *mockIngestService) sources() []domain.Source {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Source(nil), m.received...)
}

type mockQAService struct {
	last   domain.Question
	answer *domain.Answer
	err    error
}

func (m *mockQAService) Answer(_ context.Context, q domain.Question) (*domain.Answer, error) {
	m.last = q
	if m.err != nil {
		return nil, m.err
	}
	if m.answer != nil {
		return m.answer, nil
	}
	return &domain.Answer{Question: q.Text, Text: "Acme is headquartered in Berlin."}, nil
}

type mockGraphService struct {
	stats     domain.GraphStats
	snapshot  domain.GraphSnapshot
	vectors   domain.VectorStats
	lastLimit int
	err       error
}

func (m *mockGraphService) Stats(_ context.Context) (domain.GraphStats, error) {
	return m.stats, m.err
}

func (m *mockGraphService) Visualize(_ context.Context, limit int) (domain.GraphSnapshot, error) {
	m.lastLimit = limit
	return m.snapshot, m.err
}

func (m *mockGraphService) VectorStats(_ context.Context) (domain.VectorStats, error) {
	return m.vectors, m.err
}

type mockHealthService struct {
	report domain.Health
}

func (m *mockHealthService) Check(_ context.Context) domain.Health {
	return m.report
}
