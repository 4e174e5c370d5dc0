package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/fusionqa/internal/adapters/driving/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server so AI assistants can ask
questions, ingest documents and read graph statistics.

By default, the server communicates over stdio using JSON-RPC.
Use --port to start an HTTP server instead.

Tools:      answer, ingest, graph_stats
Resources:  fusionqa://graph/stats, fusionqa://vector-store/stats,
            fusionqa://sources/{sourceId}/status

Examples:
  # Stdio mode (default)
  fusionqa mcp serve

  # HTTP mode (for MCP Inspector, remote access)
  fusionqa mcp serve --port 8080

Client configuration:
  {
    "mcpServers": {
      "fusionqa": {
        "command": "/path/to/fusionqa",
        "args": ["mcp", "serve"]
      }
    }
  }`,
	Args: cobra.NoArgs,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}

	ctx := contextOf(cmd)
	if err := ensureServices(ctx); err != nil {
		return err
	}
	if qaService == nil {
		return errors.New("qa service not configured")
	}

	ports := &mcp.Ports{
		QA:       qaService,
		Ingest:   ingestService,
		Graph:    graphService,
		Discover: discover,
	}

	server, err := mcp.NewServer(ports)
	if err != nil {
		return err
	}

	if port > 0 {
		addr := fmt.Sprintf(":%d", port)
		fmt.Fprintf(cmd.ErrOrStderr(), "MCP server listening on http://localhost%s\n", addr)
		return server.RunHTTP(ctx, addr)
	}

	return server.Run(ctx)
}
