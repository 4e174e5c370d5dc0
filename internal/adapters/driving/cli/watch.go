package cli

import (
	"context"
	"errors"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/fusionqa/internal/core/domain"
	"github.com/custodia-labs/fusionqa/internal/logger"
	"github.com/custodia-labs/fusionqa/internal/watcher"
)

var watchCmd = &cobra.Command{
	Use:   "watch [dirs...]",
	Short: "Re-ingest files as they change",
	Long: `Ingest the given directories, then watch them and keep the stores in
step with the files: written files are re-ingested and removed files have
their chunks, embeddings and graph provenance deleted.

Bursts of changes are grouped using --debounce.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().Duration("debounce", watcher.DefaultDebounce, "quiet period before changes are applied")
	watchCmd.Flags().String("use-case", "", "label applied to every ingested source")
	watchCmd.Flags().Bool("skip-initial", false, "do not ingest existing files on start")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx := contextOf(cmd)
	if err := ensureServices(ctx); err != nil {
		return err
	}
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	debounce, _ := cmd.Flags().GetDuration("debounce")
	useCase, _ := cmd.Flags().GetString("use-case")
	skipInitial, _ := cmd.Flags().GetBool("skip-initial")

	w := watcher.New(debounce, args...)
	changes, err := w.Watch(ctx)
	if err != nil {
		return err
	}

	if !skipInitial {
		sources, err := discover(w.Roots()...)
		if err != nil {
			return err
		}
		if len(sources) > 0 {
			for i := range sources {
				sources[i].UseCase = useCase
			}
			result, err := ingestService.Ingest(ctx, sources)
			if err != nil {
				return err
			}
			cmd.Printf("Ingested %d of %d existing files\n", result.SourcesIngested, len(sources))
		}
	}

	cmd.Printf("Watching %s (Ctrl+C to stop)\n", strings.Join(w.Roots(), ", "))
	watchLoop(ctx, cmd, changes, useCase)
	return nil
}

// watchLoop applies batches until the channel closes.
func watchLoop(ctx context.Context, cmd *cobra.Command, changes <-chan []watcher.Change, useCase string) {
	for batch := range changes {
		applyChanges(ctx, cmd, batch, useCase)
	}
}

func applyChanges(ctx context.Context, cmd *cobra.Command, batch []watcher.Change, useCase string) {
	logger.Section("Applying file changes")

	var sources []domain.Source
	for _, c := range batch {
		if c.Deleted {
			id := domain.SourceIDFromLocator(c.Path)
			if err := ingestService.Remove(ctx, id); err != nil {
				logger.Warn("Removing %s: %v", c.Path, err)
				continue
			}
			cmd.Printf("  removed  %s\n", filepath.Base(c.Path))
			continue
		}

		src, err := readSource(c.Path)
		if err != nil {
			logger.Warn("Reading %s: %v", c.Path, err)
			continue
		}
		src.UseCase = useCase
		sources = append(sources, src)
	}

	if len(sources) == 0 {
		return
	}

	result, err := ingestService.Ingest(ctx, sources)
	if err != nil {
		logger.Warn("Ingesting changes: %v", err)
		return
	}
	for _, s := range result.Sources {
		name := filepath.Base(s.Locator)
		if s.State == domain.StateFailed {
			cmd.Printf("  failed   %s: %s\n", name, s.Reason)
			continue
		}
		cmd.Printf("  indexed  %s (%d chunks)\n", name, s.Chunks)
	}
}
