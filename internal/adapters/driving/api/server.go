package api

import (
	"context"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/custodia-labs/fusionqa/internal/core/domain"
	"github.com/custodia-labs/fusionqa/internal/logger"
)

// Default server limits.
const (
	DefaultBodyLimit       = 32 * 1024 * 1024
	DefaultShutdownTimeout = 10 * time.Second
)

// Config holds HTTP server options.
type Config struct {
	// Addr is the listen address, e.g. ":8000".
	Addr string

	// BodyLimit caps request bodies, including uploads.
	BodyLimit int

	// QA supplies defaults for omitted question fields.
	QA domain.QASettings

	// AllowOrigins is the CORS allow list; empty disables CORS.
	AllowOrigins string
}

// Server is the FusionQA HTTP API.
type Server struct {
	app  *fiber.App
	addr string
}

// NewServer builds the fiber app and registers every route.
func NewServer(ports *Ports, cfg Config) (*Server, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("validating ports: %w", err)
	}
	if cfg.BodyLimit <= 0 {
		cfg.BodyLimit = DefaultBodyLimit
	}
	if cfg.QA.NResults <= 0 {
		cfg.QA.NResults = domain.DefaultNResults
	}

	app := fiber.New(fiber.Config{
		AppName:               "fusionqa",
		BodyLimit:             cfg.BodyLimit,
		ErrorHandler:          ErrorHandler,
		DisableStartupMessage: true,
	})
	app.Use(recover.New())
	if cfg.AllowOrigins != "" {
		app.Use(cors.New(cors.Config{
			AllowOrigins: cfg.AllowOrigins,
			AllowHeaders: "Origin, Content-Type, Accept",
			AllowMethods: "GET, POST, OPTIONS",
		}))
	}

	var (
		qaHandler     = NewQAHandler(ports.QA, cfg.QA)
		ingestHandler = NewIngestHandler(ports.Ingest)
		graphHandler  = NewGraphHandler(ports.Graph)
		healthHandler = NewHealthHandler(ports.Health)
		api           = app.Group("/api")
	)

	api.Post("/qa", qaHandler.HandleQuestion)
	api.Post("/ingest", ingestHandler.HandleIngest)
	api.Post("/upload", ingestHandler.HandleUpload)
	api.Get("/graph/stats", graphHandler.HandleStats)
	api.Get("/graph/visualize", graphHandler.HandleVisualize)
	api.Get("/vector-store/stats", graphHandler.HandleVectorStats)
	api.Get("/health", healthHandler.HandleHealth)

	return &Server{app: app, addr: cfg.Addr}, nil
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Run listens until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP API listening on %s", s.addr)
		errCh <- s.app.Listen(s.addr)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("Shutting down HTTP API")
		if err := s.app.ShutdownWithTimeout(DefaultShutdownTimeout); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return <-errCh
	}
}
