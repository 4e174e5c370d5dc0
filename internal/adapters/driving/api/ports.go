// Package api serves the FusionQA HTTP API with fiber.
package api

import (
	"errors"

	"github.com/custodia-labs/fusionqa/internal/core/ports/driving"
)

// ErrMissingService is returned when a required port is nil.
var ErrMissingService = errors.New("api: ingest, qa and graph services are required")

// Ports aggregates the driving ports the HTTP handlers call.
type Ports struct {
	Ingest driving.IngestService
	QA     driving.QAService
	Graph  driving.GraphService

	// Health is optional; without it /api/health only reports liveness.
	Health driving.HealthService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil || p.Ingest == nil || p.QA == nil || p.Graph == nil {
		return ErrMissingService
	}
	return nil
}
