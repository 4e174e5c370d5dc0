// Package mcp provides an MCP (Model Context Protocol) server adapter for FusionQA.
// It lets AI assistants ingest documents and ask grounded questions.
package mcp

import (
	"errors"

	"github.com/custodia-labs/fusionqa/internal/core/domain"
)

// ErrMissingQAService is returned when the QA service is not provided.
var ErrMissingQAService = errors.New("mcp: qa service is required")

// toolError converts a service error into its structured form so tool
// results always carry "<kind>: <message>".
func toolError(err error) error {
	return domain.AsError(err)
}
