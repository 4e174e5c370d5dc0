package mcp

import (
	"context"

	"github.com/custodia-labs/fusionqa/internal/core/domain"
)

// mockQAService is a mock implementation of driving.QAService.
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
	return &domain.Answer{Question: q.Text}, nil
}

// mockIngestService is a mock implementation of driving.IngestService.
type mockIngestService struct {
	received []domain.Source
	status   *domain.SourceStatus
	err      error
}

func (m *mockIngestService) Ingest(_ context.Context, sources []domain.Source) (*domain.IngestResult, error) {
	m.received = append(m.received, sources...)
	if m.err != nil {
		return nil, m.err
	}
	return &domain.IngestResult{SourcesIngested: len(sources), DocumentsIndexed: len(sources)}, nil
}

func (m *mockIngestService) Remove(_ context.Context, _ string) error {
	return m.err
}

func (m *mockIngestService) Status(_ context.Context, _ string) (*domain.SourceStatus, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.status == nil {
		return nil, domain.ErrNotFound
	}
	return m.status, nil
}

// mockGraphService is a mock implementation of driving.GraphService.
type mockGraphService struct {
	stats   domain.GraphStats
	vectors domain.VectorStats
	err     error
}

func (m *mockGraphService) Stats(_ context.Context) (domain.GraphStats, error) {
	return m.stats, m.err
}

func (m *mockGraphService) Visualize(_ context.Context, _ int) (domain.GraphSnapshot, error) {
	return domain.GraphSnapshot{}, m.err
}

func (m *mockGraphService) VectorStats(_ context.Context) (domain.VectorStats, error) {
	return m.vectors, m.err
}
