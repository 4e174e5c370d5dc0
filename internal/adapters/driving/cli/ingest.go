package cli

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/fusionqa/internal/core/domain"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [paths...]",
	Short: "Ingest files or directories",
	Long: `Ingest files or directories into the vector store and knowledge graph.

Directories are walked recursively. Hidden entries and unsupported
extensions are skipped. Supported kinds: pdf, csv, markdown, html, json, text.

Re-ingesting a file replaces everything previously derived from it.

Examples:
  fusionqa ingest ./reports
  fusionqa ingest annual.pdf notes.md --use-case financial`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().String("use-case", "", "label applied to every ingested source")
	ingestCmd.Flags().Bool("json", false, "print the result as JSON")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := contextOf(cmd)
	if err := ensureServices(ctx); err != nil {
		return err
	}
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	useCase, _ := cmd.Flags().GetString("use-case")
	asJSON, _ := cmd.Flags().GetBool("json")

	sources, err := discover(args...)
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		return fmt.Errorf("%w: no supported files found", domain.ErrInvalidInput)
	}
	for i := range sources {
		sources[i].UseCase = useCase
	}

	result, err := ingestService.Ingest(ctx, sources)
	if err != nil {
		return err
	}

	if asJSON {
		return printJSON(cmd, struct {
			domain.IngestResultView
			UseCase       string               `json:"use_case,omitempty"`
			PipelineStats domain.PipelineStats `json:"pipeline_stats"`
		}{result.Present(), useCase, result.PipelineStats()})
	}

	printIngestResult(cmd, result)

	if result.SourcesIngested == 0 {
		return domain.NewError(domain.KindIngestionFailed,
			fmt.Sprintf("all %d sources failed", len(sources)))
	}
	return nil
}

func printIngestResult(cmd *cobra.Command, result *domain.IngestResult) {
	for _, s := range result.Sources {
		name := s.SourceID
		if s.Locator != "" {
			name = filepath.Base(s.Locator)
		}
		if s.State == domain.StateFailed {
			cmd.Printf("  %-7s %s: %s\n", s.State, name, s.Reason)
			continue
		}
		cmd.Printf("  %-7s %s (%d chunks, %d entities, %d relations)\n",
			s.State, name, s.Chunks, s.Entities, s.Relations)
	}
	cmd.Println()
	cmd.Printf("Ingested %d of %d sources in %s\n",
		result.SourcesIngested, len(result.Sources), result.Duration.Round(time.Millisecond))
	cmd.Printf("  Chunks:    %d\n", result.ChunksIndexed)
	cmd.Printf("  Entities:  %d\n", result.EntitiesExtracted)
	cmd.Printf("  Relations: %d\n", result.RelationsExtracted)
	if n := len(result.ChunkFailures); n > 0 {
		cmd.Printf("  Chunks without graph extraction: %d\n", n)
	}
}
