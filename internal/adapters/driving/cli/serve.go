package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/fusionqa/internal/adapters/driving/api"
	"github.com/custodia-labs/fusionqa/internal/logger"
)

// runServer blocks serving the API. Replaced in tests.
var runServer = func(ctx context.Context, s *api.Server) error {
	return s.Run(ctx)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the FusionQA HTTP API.

Endpoints:
  POST /api/qa                  answer a question
  POST /api/ingest              ingest inline documents
  POST /api/upload              ingest uploaded files (multipart)
  GET  /api/graph/stats         graph node, edge and type counts
  GET  /api/graph/visualize     graph nodes and edges (?limit=100)
  GET  /api/vector-store/stats  vector store statistics
  GET  /api/health              AI service and store health

The listen address defaults to server.addr from the config.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default from config)")
	serveCmd.Flags().String("cors", "", "comma-separated CORS allow list, e.g. *")
	serveCmd.Flags().Int("body-limit-mb", api.DefaultBodyLimit/(1024*1024), "maximum request body size in MiB")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := contextOf(cmd)
	if err := ensureServices(ctx); err != nil {
		return err
	}
	if ingestService == nil || qaService == nil || graphService == nil {
		return errors.New("services not configured")
	}

	addr, _ := cmd.Flags().GetString("addr")
	cors, _ := cmd.Flags().GetString("cors")
	limitMB, _ := cmd.Flags().GetInt("body-limit-mb")
	if addr == "" {
		addr = appSettings.Server.Addr
	}

	server, err := api.NewServer(&api.Ports{
		Ingest: ingestService,
		QA:     qaService,
		Graph:  graphService,
		Health: healthService,
	}, api.Config{
		Addr:         addr,
		BodyLimit:    limitMB * 1024 * 1024,
		QA:           appSettings.QA,
		AllowOrigins: cors,
	})
	if err != nil {
		return err
	}

	logger.With("addr", addr, "graph", appSettings.Graph.Backend, "vector", appSettings.Vector.Backend).
		Info("Starting HTTP API")
	cmd.Printf("FusionQA API listening on %s\n", addr)
	return runServer(ctx, server)
}
