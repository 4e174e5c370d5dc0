package mcp

import (
	"context"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/fusionqa/internal/core/domain"
)

// AnswerInput is the input schema for the answer tool.
type AnswerInput struct {
	Question     string `json:"question" jsonschema:"the natural-language question to answer"`
	NResults     int    `json:"n_results,omitempty" jsonschema:"number of document chunks to retrieve (default 5, max 20)"`
	IncludeGraph *bool  `json:"include_graph,omitempty" jsonschema:"whether to traverse the knowledge graph (default true)"`
}

// DocumentInput is an inline document for the ingest tool.
type DocumentInput struct {
	Kind    string `json:"kind" jsonschema:"one of pdf, csv, markdown, html, json, text"`
	Locator string `json:"locator,omitempty" jsonschema:"where the document came from, used in citations"`
	Content string `json:"content" jsonschema:"the document text"`
	UseCase string `json:"use_case,omitempty" jsonschema:"optional label such as financial"`
}

// IngestInput is the input schema for the ingest tool.
type IngestInput struct {
	Paths     []string        `json:"paths,omitempty" jsonschema:"files or directories to ingest recursively"`
	Documents []DocumentInput `json:"documents,omitempty" jsonschema:"inline documents to ingest"`
	UseCase   string          `json:"use_case,omitempty" jsonschema:"label applied to every path-based source"`
}

// GraphStatsInput is the input schema for the graph_stats tool.
type GraphStatsInput struct{}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "answer",
		Description: "Answer a question from the ingested documents and knowledge graph, with citations",
	}, s.handleAnswer)

	if s.ports.Ingest != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "ingest",
			Description: "Ingest files, directories or inline documents into the knowledge base",
		}, s.handleIngest)
	}

	if s.ports.Graph != nil {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        "graph_stats",
			Description: "Count knowledge graph nodes, edges and entities by type",
		}, s.handleGraphStats)
	}
}

// handleAnswer handles the answer tool invocation.
func (s *Server) handleAnswer(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AnswerInput,
) (*mcp.CallToolResult, domain.AnswerView, error) {
	q := domain.Question{
		Text:         input.Question,
		NResults:     input.NResults,
		IncludeGraph: true,
	}
	if q.NResults <= 0 {
		q.NResults = domain.DefaultNResults
	}
	if input.IncludeGraph != nil {
		q.IncludeGraph = *input.IncludeGraph
	}

	answer, err := s.ports.QA.Answer(ctx, q)
	if err != nil {
		return nil, domain.AnswerView{}, toolError(err)
	}
	return nil, answer.Present(), nil
}

// handleIngest handles the ingest tool invocation.
func (s *Server) handleIngest(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input IngestInput,
) (*mcp.CallToolResult, domain.IngestResultView, error) {
	if len(input.Paths) == 0 && len(input.Documents) == 0 {
		return nil, domain.IngestResultView{}, toolError(
			fmt.Errorf("%w: provide paths or documents", domain.ErrInvalidInput))
	}

	var sources []domain.Source
	if len(input.Paths) > 0 {
		if s.ports.Discover == nil {
			return nil, domain.IngestResultView{}, toolError(
				fmt.Errorf("%w: path ingestion is not available", domain.ErrInvalidInput))
		}
		discovered, err := s.ports.Discover(input.Paths...)
		if err != nil {
			return nil, domain.IngestResultView{}, toolError(err)
		}
		for i := range discovered {
			discovered[i].UseCase = input.UseCase
		}
		sources = append(sources, discovered...)
	}

	for _, doc := range input.Documents {
		kind, ok := domain.ParseSourceKind(doc.Kind)
		if !ok {
			kind = domain.SourceKind(doc.Kind)
		}
		useCase := doc.UseCase
		if useCase == "" {
			useCase = input.UseCase
		}
		sources = append(sources, domain.Source{
			Kind:    kind,
			Locator: doc.Locator,
			Content: []byte(doc.Content),
			UseCase: useCase,
		})
	}

	result, err := s.ports.Ingest.Ingest(ctx, sources)
	if err != nil {
		return nil, domain.IngestResultView{}, toolError(err)
	}
	return nil, result.Present(), nil
}

// handleGraphStats handles the graph_stats tool invocation.
func (s *Server) handleGraphStats(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ GraphStatsInput,
) (*mcp.CallToolResult, domain.GraphStats, error) {
	stats, err := s.ports.Graph.Stats(ctx)
	if err != nil {
		return nil, domain.GraphStats{}, toolError(err)
	}
	return nil, stats, nil
}
