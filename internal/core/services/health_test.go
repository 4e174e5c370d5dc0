package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/custodia-labs/fusionqa/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/fusionqa/internal/core/domain"
)

type unreachableLLM struct {
	*mockLLMService
}

func (unreachableLLM) Ping(context.Context) error { return errors.New("connection refused") }

func componentStatus(h domain.Health) map[string]string {
	out := make(map[string]string, len(h.Components))
	for _, c := range h.Components {
		out[c.Name] = c.Status
	}
	return out
}

func TestHealthService_AllOK(t *testing.T) {
	svc := NewHealthService(newMockEmbedder(), &mockLLMService{}, memory.NewGraphStore(), memory.NewVectorStore(64),
		map[string]string{"graph": "memory", "vector": "memory"})

	h := svc.Check(context.Background())

	assert.Equal(t, domain.HealthOK, h.Status)
	assert.Equal(t, map[string]string{
		"embedding": domain.HealthOK,
		"llm":       domain.HealthOK,
		"graph":     domain.HealthOK,
		"vector":    domain.HealthOK,
	}, componentStatus(h))
	assert.Equal(t, "memory", h.Components[2].Backend)
	assert.Equal(t, "mock-llm", h.Components[1].Detail)
}

func TestHealthService_NoLLMIsDegraded(t *testing.T) {
	svc := NewHealthService(newMockEmbedder(), nil, memory.NewGraphStore(), memory.NewVectorStore(64), nil)

	h := svc.Check(context.Background())

	assert.Equal(t, domain.HealthDegraded, h.Status)
	assert.Equal(t, domain.HealthDisabled, componentStatus(h)["llm"])
}

func TestHealthService_UnreachableLLMIsDegraded(t *testing.T) {
	svc := NewHealthService(newMockEmbedder(), unreachableLLM{&mockLLMService{}}, memory.NewGraphStore(), memory.NewVectorStore(64), nil)

	h := svc.Check(context.Background())

	assert.Equal(t, domain.HealthDegraded, h.Status)
	assert.Equal(t, domain.HealthUnavailable, componentStatus(h)["llm"])
	assert.Contains(t, h.Components[1].Detail, "connection refused")
}

func TestHealthService_MissingStoreIsUnavailable(t *testing.T) {
	svc := NewHealthService(newMockEmbedder(), &mockLLMService{}, nil, memory.NewVectorStore(64), nil)

	h := svc.Check(context.Background())

	assert.Equal(t, domain.HealthUnavailable, h.Status)
	assert.Equal(t, domain.HealthDisabled, componentStatus(h)["graph"])
}
