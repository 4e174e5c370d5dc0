// Package cli provides the fusionqa command-line interface.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/fusionqa/internal/core/domain"
	"github.com/custodia-labs/fusionqa/internal/core/ports/driving"
	"github.com/custodia-labs/fusionqa/internal/core/services"
	"github.com/custodia-labs/fusionqa/internal/logger"
)

// version is set at build time.
var version = "dev"

// Services wired by SetServiceBuilder or directly by tests.
var (
	settingsService driving.SettingsService
	ingestService   driving.IngestService
	qaService       driving.QAService
	graphService    driving.GraphService
	healthService   driving.HealthService

	// appSettings is the effective configuration once services are built.
	appSettings = domain.DefaultAppSettings()

	discover   = services.DiscoverSources
	readSource = services.SourceFromFile

	serviceBuilder ServiceBuilder
	closeServices  func() error
)

// Services are the core services a command can use. Close releases them.
type Services struct {
	Ingest driving.IngestService
	QA     driving.QAService
	Graph  driving.GraphService
	Health driving.HealthService
	Close  func() error
}

// ServiceBuilder opens services from effective settings. It runs at most
// once per process, and only for commands that need services.
type ServiceBuilder func(ctx context.Context, settings domain.AppSettings) (*Services, error)

var rootCmd = &cobra.Command{
	Use:   "fusionqa",
	Short: "Answer questions from documents and a knowledge graph",
	Long: `FusionQA ingests documents into a vector store and a knowledge graph,
then answers questions by fusing semantic search with graph traversal.

Configuration lives in ~/.fusionqa/config.toml and can be overridden with
FUSIONQA_* environment variables or a .env file.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		verbose, err := cmd.Flags().GetBool("verbose")
		if err != nil {
			return err
		}
		format, err := cmd.Flags().GetString("log-format")
		if err != nil {
			return err
		}
		logger.SetVerbose(verbose)
		logger.SetFormat(format)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().String("log-format", logger.FormatConsole, "log format: console or json")
}

// SetVersion sets the version reported by the version command.
func SetVersion(v string) {
	version = v
}

// SetSettingsService wires the settings service used by config commands
// and by the service builder.
func SetSettingsService(s driving.SettingsService) {
	settingsService = s
}

// SetServiceBuilder wires the function that opens core services.
func SetServiceBuilder(b ServiceBuilder) {
	serviceBuilder = b
}

// Execute runs the root command and closes any services it opened.
func Execute(ctx context.Context) error {
	defer func() {
		if closeServices == nil {
			return
		}
		if err := closeServices(); err != nil {
			logger.Warn("Closing services: %v", err)
		}
		closeServices = nil
	}()
	return rootCmd.ExecuteContext(ctx)
}

// FormatError renders err for the terminal. Classified errors show
// their kind.
func FormatError(err error) string {
	if err == nil {
		return ""
	}
	var structured *domain.Error
	if !errors.As(err, &structured) && domain.KindOf(err) == domain.KindInternal {
		return "Error: " + err.Error()
	}
	e := domain.AsError(err)
	return fmt.Sprintf("Error: %s: %s", e.Kind, e.Message)
}

// ensureServices builds services on first use. Services already set are
// left alone.
func ensureServices(ctx context.Context) error {
	if ingestService != nil && qaService != nil && graphService != nil && healthService != nil {
		return nil
	}
	if serviceBuilder == nil {
		return nil
	}

	if settingsService != nil {
		s, err := settingsService.Get()
		if err != nil {
			return fmt.Errorf("load settings: %w", err)
		}
		appSettings = *s
	}

	svc, err := serviceBuilder(ctx, appSettings)
	if err != nil {
		return err
	}
	serviceBuilder = nil

	if ingestService == nil {
		ingestService = svc.Ingest
	}
	if qaService == nil {
		qaService = svc.QA
	}
	if graphService == nil {
		graphService = svc.Graph
	}
	if healthService == nil {
		healthService = svc.Health
	}
	closeServices = svc.Close
	return nil
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
