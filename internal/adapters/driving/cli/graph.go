package cli

import (
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/fusionqa/internal/core/domain"
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Inspect the knowledge graph and vector store",
}

var graphStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show node, edge and entity type counts",
	Args:  cobra.NoArgs,
	RunE:  runGraphStats,
}

var graphVisualizeCmd = &cobra.Command{
	Use:   "visualize",
	Short: "Print a sample of graph edges",
	Long: `Print up to --limit edges of the knowledge graph with their nodes.
Use --json for a nodes/edges document suitable for graph viewers.`,
	Args: cobra.NoArgs,
	RunE: runGraphVisualize,
}

var graphVectorsCmd = &cobra.Command{
	Use:   "vectors",
	Short: "Show vector store statistics",
	Args:  cobra.NoArgs,
	RunE:  runGraphVectors,
}

func init() {
	graphCmd.PersistentFlags().Bool("json", false, "print as JSON")
	graphVisualizeCmd.Flags().Int("limit", 100, "maximum number of edges")
	graphCmd.AddCommand(graphStatsCmd)
	graphCmd.AddCommand(graphVisualizeCmd)
	graphCmd.AddCommand(graphVectorsCmd)
	rootCmd.AddCommand(graphCmd)
}

func requireGraphService(cmd *cobra.Command) error {
	if err := ensureServices(contextOf(cmd)); err != nil {
		return err
	}
	if graphService == nil {
		return errors.New("graph service not configured")
	}
	return nil
}

func runGraphStats(cmd *cobra.Command, _ []string) error {
	if err := requireGraphService(cmd); err != nil {
		return err
	}

	stats, err := graphService.Stats(contextOf(cmd))
	if err != nil {
		return err
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return printJSON(cmd, stats)
	}

	cmd.Println("Knowledge Graph")
	cmd.Println("===============")
	cmd.Printf("  Nodes: %d\n", stats.NodeCount)
	cmd.Printf("  Edges: %d\n", stats.EdgeCount)
	if len(stats.EntityTypeCounts) > 0 {
		cmd.Println()
		cmd.Println("Entities by type:")
		types := make([]string, 0, len(stats.EntityTypeCounts))
		for t := range stats.EntityTypeCounts {
			types = append(types, t)
		}
		sort.Strings(types)
		for _, t := range types {
			cmd.Printf("  %-14s %d\n", t, stats.EntityTypeCounts[t])
		}
	}
	return nil
}

func runGraphVisualize(cmd *cobra.Command, _ []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	if limit < 1 {
		return fmt.Errorf("%w: limit must be positive", domain.ErrInvalidInput)
	}
	if err := requireGraphService(cmd); err != nil {
		return err
	}

	snapshot, err := graphService.Visualize(contextOf(cmd), limit)
	if err != nil {
		return err
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return printJSON(cmd, snapshot)
	}

	if len(snapshot.Edges) == 0 {
		cmd.Println("The graph is empty.")
		return nil
	}

	names := make(map[string]string, len(snapshot.Nodes))
	for _, n := range snapshot.Nodes {
		names[n.ID] = fmt.Sprintf("%s (%s)", n.Name, n.Type)
	}
	label := func(id string) string {
		if name, ok := names[id]; ok {
			return name
		}
		return id
	}

	for _, e := range snapshot.Edges {
		cmd.Printf("%s -[%s]-> %s\n", label(e.Source), e.Relation, label(e.Target))
	}
	cmd.Println()
	cmd.Printf("%d nodes, %d edges shown\n", len(snapshot.Nodes), len(snapshot.Edges))
	return nil
}

func runGraphVectors(cmd *cobra.Command, _ []string) error {
	if err := requireGraphService(cmd); err != nil {
		return err
	}

	stats, err := graphService.VectorStats(contextOf(cmd))
	if err != nil {
		return err
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return printJSON(cmd, stats)
	}

	cmd.Println("Vector Store")
	cmd.Println("============")
	cmd.Printf("  Backend:    %s\n", stats.Backend)
	cmd.Printf("  Embeddings: %d\n", stats.Embeddings)
	cmd.Printf("  Sources:    %d\n", stats.Sources)
	cmd.Printf("  Dimensions: %d\n", stats.Dimensions)
	return nil
}
