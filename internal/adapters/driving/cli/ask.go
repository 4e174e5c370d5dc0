package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/fusionqa/internal/core/domain"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question",
	Long: `Answer a question from the ingested documents and knowledge graph.

The answer cites the document chunks it used and lists the graph
relations that supported it. When no LLM is reachable the ranked
evidence is printed instead.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().IntP("n-results", "n", 0, "chunks to retrieve (default from config)")
	askCmd.Flags().Bool("no-graph", false, "skip knowledge graph traversal")
	askCmd.Flags().Bool("json", false, "print the answer as JSON")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := contextOf(cmd)
	if err := ensureServices(ctx); err != nil {
		return err
	}
	if qaService == nil {
		return errors.New("qa service not configured")
	}

	nResults, _ := cmd.Flags().GetInt("n-results")
	noGraph, _ := cmd.Flags().GetBool("no-graph")
	asJSON, _ := cmd.Flags().GetBool("json")

	if nResults == 0 {
		nResults = appSettings.QA.NResults
	}
	if nResults < 1 || nResults > domain.MaxNResults {
		return fmt.Errorf("%w: n-results must be between 1 and %d", domain.ErrInvalidInput, domain.MaxNResults)
	}

	q := domain.Question{
		Text:         strings.Join(args, " "),
		NResults:     nResults,
		IncludeGraph: appSettings.QA.IncludeGraph && !noGraph,
	}

	answer, err := qaService.Answer(ctx, q)
	if err != nil {
		return err
	}

	view := answer.Present()
	if asJSON {
		return printJSON(cmd, view)
	}

	printAnswer(cmd, view)
	return nil
}

func printAnswer(cmd *cobra.Command, view domain.AnswerView) {
	cmd.Println(view.Answer)

	if view.Degraded {
		reason := "synthesis unavailable"
		if view.Error != nil {
			reason = view.Error.Message
		}
		cmd.Println()
		cmd.Printf("(degraded: %s)\n", reason)
	}

	if len(view.Citations) > 0 {
		cmd.Println()
		cmd.Println("Citations:")
		for i, c := range view.Citations {
			section := ""
			if c.Section != "" {
				section = " / " + c.Section
			}
			cmd.Printf("  [%d] %s%s (relevance %.3f)\n", i+1, c.Source, section, c.Relevance)
		}
	}

	if len(view.GraphPaths) > 0 {
		cmd.Println()
		cmd.Println("Graph:")
		for _, p := range view.GraphPaths {
			cmd.Printf("  %s -[%s]-> %s\n", p.Source, p.Relation, p.Target)
		}
	}

	cmd.Println()
	cmd.Printf("Sources: %d chunks, %d graph entities\n",
		view.Sources.VectorResults, view.Sources.GraphEntities)
}
