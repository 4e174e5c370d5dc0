package mcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/fusionqa/internal/logger"
)

// Version is the MCP server version.
const Version = "0.1.0"

// ShutdownTimeout bounds the graceful stop of the HTTP transport.
const ShutdownTimeout = 5 * time.Second

const instructions = "FusionQA answers questions over ingested documents by fusing vector " +
	"search with a knowledge graph. Call ingest with file paths or inline documents, " +
	"then answer with a question. Answers cite their sources."

// Server is the MCP server for FusionQA.
type Server struct {
	ports  *Ports
	server *mcp.Server
}

// NewServer creates a new MCP server with the given ports.
func NewServer(ports *Ports) (*Server, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("validating ports: %w", err)
	}

	impl := &mcp.Implementation{
		Name:    "fusionqa",
		Version: Version,
	}

	s := &Server{
		ports:  ports,
		server: mcp.NewServer(impl, &mcp.ServerOptions{Instructions: instructions}),
	}

	s.registerTools()
	s.registerResources()

	return s, nil
}

// Run serves over stdio until ctx is cancelled or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	logger.With("transport", "stdio", "tools", s.toolNames()).Info("Starting MCP server")
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// RunHTTP serves the streamable HTTP transport on addr until ctx is
// cancelled. In-flight requests get ShutdownTimeout to finish.
func (s *Server) RunHTTP(ctx context.Context, addr string) error {
	handler := mcp.NewStreamableHTTPHandler(func(_ *http.Request) *mcp.Server {
		return s.server
	}, nil)

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	done := make(chan error, 1)
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		done <- httpServer.Shutdown(shutdownCtx)
	}()

	logger.With("transport", "http", "addr", addr, "tools", s.toolNames()).Info("Starting MCP server")
	if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	if err := <-done; err != nil {
		return fmt.Errorf("shutdown mcp http server: %w", err)
	}
	logger.Debug("MCP HTTP server stopped")
	return nil
}

// toolNames lists the tools registered for the configured ports.
func (s *Server) toolNames() []string {
	names := []string{"answer"}
	if s.ports.Ingest != nil {
		names = append(names, "ingest")
	}
	if s.ports.Graph != nil {
		names = append(names, "graph_stats")
	}
	return names
}
