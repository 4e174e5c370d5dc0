package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/fusionqa/internal/core/domain"
)

const (
	// URIScheme is the custom URI scheme for FusionQA resources.
	uriScheme = "fusionqa://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	if s.ports.Graph != nil {
		s.server.AddResource(&mcp.Resource{
			URI:         uriScheme + "graph/stats",
			Name:        "graph-stats",
			Description: "Knowledge graph node, edge and entity type counts",
			MIMEType:    "application/json",
		}, s.handleGraphStatsResource)

		s.server.AddResource(&mcp.Resource{
			URI:         uriScheme + "vector-store/stats",
			Name:        "vector-store-stats",
			Description: "Embedding count, dimensions and distinct sources of the vector store",
			MIMEType:    "application/json",
		}, s.handleVectorStatsResource)
	}

	if s.ports.Ingest != nil {
		// Template for the ingestion state of a source.
		s.server.AddResourceTemplate(&mcp.ResourceTemplate{
			URITemplate: uriScheme + "sources/{sourceId}/status",
			Name:        "source-status",
			Description: "Latest ingestion state of a source",
			MIMEType:    "application/json",
		}, s.handleSourceStatusResource)
	}
}

// handleGraphStatsResource returns graph statistics.
func (s *Server) handleGraphStatsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	stats, err := s.ports.Graph.Stats(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading graph stats: %w", err)
	}
	return jsonResource(req.Params.URI, stats)
}

// handleVectorStatsResource returns vector store statistics.
func (s *Server) handleVectorStatsResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	stats, err := s.ports.Graph.VectorStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading vector stats: %w", err)
	}
	return jsonResource(req.Params.URI, stats)
}

// handleSourceStatusResource returns the ingestion status of one source.
func (s *Server) handleSourceStatusResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	// Extract sourceId from URI: fusionqa://sources/{sourceId}/status
	sourceID := extractSourceID(req.Params.URI)
	if sourceID == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	status, err := s.ports.Ingest.Status(ctx, sourceID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}
	if err != nil {
		return nil, fmt.Errorf("reading source status: %w", err)
	}

	type statusInfo struct {
		SourceID  string `json:"source_id"`
		Locator   string `json:"locator,omitempty"`
		State     string `json:"state"`
		Chunks    int    `json:"chunks"`
		Entities  int    `json:"entities"`
		Relations int    `json:"relations"`
		Reason    string `json:"reason,omitempty"`
	}

	return jsonResource(req.Params.URI, statusInfo{
		SourceID:  status.SourceID,
		Locator:   status.Locator,
		State:     string(status.State),
		Chunks:    status.Chunks,
		Entities:  status.Entities,
		Relations: status.Relations,
		Reason:    status.Reason,
	})
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling resource: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractSourceID extracts the source ID from a URI like fusionqa://sources/{sourceId}/status.
func extractSourceID(uri string) string {
	const prefix = uriScheme + "sources/"
	const suffix = "/status"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	uri = strings.TrimPrefix(uri, prefix)
	if !strings.HasSuffix(uri, suffix) {
		return ""
	}

	return strings.TrimSuffix(uri, suffix)
}
