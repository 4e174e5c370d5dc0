// Package tui provides an interactive question-answering chat for the
// terminal, built on bubbletea.
package tui

import (
	"github.com/custodia-labs/fusionqa/internal/core/domain"
	"github.com/custodia-labs/fusionqa/internal/core/ports/driving"
)

// Ports aggregates the driving ports the chat uses.
type Ports struct {
	// QA answers questions. Required.
	QA driving.QAService

	// Graph supplies the header statistics. Optional.
	Graph driving.GraphService

	// Defaults seed the per-question options.
	Defaults domain.QASettings
}

// Validate ensures the required ports are set.
func (p *Ports) Validate() error {
	if p == nil || p.QA == nil {
		return ErrMissingQAService
	}
	return nil
}
