package api

import (
	"context"
	"sync"

	"github.com/custodia-labs/fusionqa/internal/core/domain"
)

type mockIngestService struct {
	mu       sync.Mutex
	received []domain.Source
	result   *domain.IngestResult
	err      error
}

func (m *mockIngestService) Ingest(_ context.Context, sources []domain.Source) (*domain.IngestResult, error) {
	m.mu.Lock()
	m.received = append(m.received, sources...)
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	if m.result != nil {
		return m.result, nil
	}
	result := &domain.IngestResult{SourcesIngested: len(sources), DocumentsIndexed: len(sources)}
	for _, s := range sources {
		result.Sources = append(result.Sources, domain.SourceStatus{SourceID: s.ID, State: domain.StateDone})
	}
	return result, nil
}

func (m *mockIngestService) Remove(_ context.Context, _ string) error {
	return m.err
}

func (m *mockIngestService) Status(_ context.Context, _ string) (*domain.SourceStatus, error) {
	return nil, domain.ErrNotFound
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
	return &domain.Answer{Question: q.Text, Text: "42"}, nil
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
