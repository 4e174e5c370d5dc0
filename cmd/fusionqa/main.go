// Command fusionqa answers questions over documents and a knowledge graph.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/custodia-labs/fusionqa/internal/adapters/driven/config/env"
	"github.com/custodia-labs/fusionqa/internal/adapters/driven/config/file"
	"github.com/custodia-labs/fusionqa/internal/adapters/driving/cli"
	"github.com/custodia-labs/fusionqa/internal/app"
	"github.com/custodia-labs/fusionqa/internal/core/domain"
	"github.com/custodia-labs/fusionqa/internal/core/services"
	"github.com/custodia-labs/fusionqa/internal/logger"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	defer logger.Sync()

	if err := env.LoadDotEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	dir, err := homeDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	store, err := file.NewConfigStore(dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	cli.SetVersion(version)
	cli.SetSettingsService(services.NewSettingsService(env.NewOverlay(store, nil)))
	cli.SetServiceBuilder(func(ctx context.Context, settings domain.AppSettings) (*cli.Services, error) {
		if settings.DataDir == "" {
			settings.DataDir = filepath.Join(dir, "data")
		}
		prompts, err := file.NewPromptStore(filepath.Join(dir, "prompts"), services.DefaultPrompts())
		if err != nil {
			return nil, err
		}
		a, err := app.New(ctx, settings, app.WithPromptStore(prompts))
		if err != nil {
			return nil, err
		}
		return &cli.Services{
			Ingest: a.Ingest,
			QA:     a.QA,
			Graph:  a.Graph,
			Health: a.Health,
			Close:  a.Close,
		}, nil
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.Execute(ctx); err != nil {
		fmt.Fprintln(os.Stderr, cli.FormatError(err))
		return 1
	}
	return 0
}

// homeDir is FUSIONQA_HOME when set, otherwise ~/.fusionqa.
func homeDir() (string, error) {
	if dir := os.Getenv("FUSIONQA_HOME"); dir != "" {
		return dir, nil
	}
	return file.DefaultDir()
}
