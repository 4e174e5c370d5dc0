package mcp

import (
	"github.com/custodia-labs/fusionqa/internal/core/domain"
	"github.com/custodia-labs/fusionqa/internal/core/ports/driving"
)

// DiscoverFunc expands file and directory paths into sources.
type DiscoverFunc func(paths ...string) ([]domain.Source, error)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// QA answers questions.
	QA driving.QAService

	// Ingest runs sources through the pipeline. Without it the ingest
	// tool is not registered.
	Ingest driving.IngestService

	// Graph exposes graph and vector statistics.
	Graph driving.GraphService

	// Discover resolves paths for the ingest tool.
	Discover DiscoverFunc
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p == nil || p.QA == nil {
		return ErrMissingQAService
	}
	// Ingest and Graph are optional
	return nil
}
