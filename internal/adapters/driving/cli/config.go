package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/fusionqa/internal/core/domain"
)

// readSecret reads a value without echo when stdin is a terminal.
// Replaced in tests.
var readSecret = func(in io.Reader) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		secret, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", fmt.Errorf("read secret: %w", err)
		}
		return strings.TrimSpace(string(secret)), nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read secret: %w", err)
	}
	return strings.TrimSpace(line), nil
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "View and change configuration",
	Long: `View and change FusionQA configuration.

Settings are stored in ~/.fusionqa/config.toml. Any key can be overridden
by an environment variable named FUSIONQA_ followed by the key in upper
case with dots replaced by underscores, e.g. FUSIONQA_LLM_API_KEY.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective settings",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Set a configuration key",
	Long: `Set a configuration key. Run 'fusionqa config keys' for the list.

When the value is omitted for an API key or password, it is read from
the terminal without echo.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runConfigSet,
}

var configKeysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List configuration keys",
	Args:  cobra.NoArgs,
	RunE:  runConfigKeys,
}

var configCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Check AI services and stores",
	Long:  `Probe the embedding service, LLM, graph store and vector store.`,
	Args:  cobra.NoArgs,
	RunE:  runConfigCheck,
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configKeysCmd)
	configCmd.AddCommand(configCheckCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}

	cmd.Println("Current Settings")
	cmd.Println("================")
	cmd.Println()

	cmd.Println("[Embedding]")
	cmd.Printf("  Provider: %s\n", settings.Embedding.Provider.Description())
	cmd.Printf("  Model: %s\n", settings.Embedding.Model)
	cmd.Printf("  Dimensions: %d\n", settings.Embedding.ResolvedDimensions())
	printProviderAccess(cmd, settings.Embedding.Provider, settings.Embedding.BaseURL, settings.Embedding.APIKey)
	cmd.Printf("  Status: %s\n", configuredLabel(settings.Embedding.IsConfigured()))
	cmd.Println()

	cmd.Println("[LLM]")
	cmd.Printf("  Provider: %s\n", settings.LLM.Provider.Description())
	cmd.Printf("  Model: %s\n", settings.LLM.Model)
	cmd.Printf("  Call timeout: %s\n", settings.LLM.CallTimeout)
	printProviderAccess(cmd, settings.LLM.Provider, settings.LLM.BaseURL, settings.LLM.APIKey)
	cmd.Printf("  Status: %s\n", configuredLabel(settings.LLM.IsConfigured()))
	cmd.Println()

	cmd.Println("[Graph]")
	cmd.Printf("  Backend: %s\n", settings.Graph.Backend)
	if settings.Graph.Backend == domain.BackendNeo4j {
		cmd.Printf("  URI: %s\n", settings.Graph.Neo4jURI)
		cmd.Printf("  User: %s\n", settings.Graph.Neo4jUser)
		cmd.Printf("  Password: %s\n", maskSecret(settings.Graph.Neo4jPassword))
	}
	cmd.Printf("  Max hops: %d\n", settings.Graph.MaxHops)
	cmd.Printf("  Max edges: %d\n", settings.Graph.MaxEdges)
	cmd.Println()

	cmd.Println("[Vector]")
	cmd.Printf("  Backend: %s\n", settings.Vector.Backend)
	if settings.Vector.Backend == domain.BackendPGVector {
		cmd.Printf("  DSN: %s\n", maskSecret(settings.Vector.PostgresDSN))
	}
	cmd.Println()

	cmd.Println("[Chunker]")
	cmd.Printf("  Size: %d %s\n", settings.Chunker.Size, settings.Chunker.Unit)
	cmd.Printf("  Overlap: %d\n", settings.Chunker.Overlap)
	cmd.Println()

	cmd.Println("[QA]")
	cmd.Printf("  Results: %d\n", settings.QA.NResults)
	cmd.Printf("  Include graph: %t\n", settings.QA.IncludeGraph)
	cmd.Println()

	cmd.Println("[Server]")
	cmd.Printf("  Address: %s\n", settings.Server.Addr)

	return nil
}

func printProviderAccess(cmd *cobra.Command, p domain.AIProvider, baseURL, apiKey string) {
	if baseURL != "" || p == domain.AIProviderOllama {
		cmd.Printf("  Base URL: %s\n", valueOr(baseURL, "(default)"))
	}
	if p.RequiresAPIKey() {
		cmd.Printf("  API Key: %s\n", maskSecret(apiKey))
	}
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	key := args[0]
	var value string
	switch {
	case len(args) == 2:
		value = args[1]
	case isSecretKey(key):
		cmd.Printf("Enter %s: ", key)
		secret, err := readSecret(cmd.InOrStdin())
		cmd.Println()
		if err != nil {
			return err
		}
		value = secret
	default:
		return fmt.Errorf("%w: a value is required for %s", domain.ErrInvalidInput, key)
	}

	if err := settingsService.Set(key, value); err != nil {
		return err
	}

	shown := value
	if isSecretKey(key) {
		shown = maskSecret(value)
	}
	cmd.Printf("Set %s = %s\n", key, shown)
	return nil
}

func runConfigKeys(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}
	for _, k := range settingsService.Keys() {
		cmd.Println(k)
	}
	return nil
}

func runConfigCheck(cmd *cobra.Command, _ []string) error {
	ctx := contextOf(cmd)
	if err := ensureServices(ctx); err != nil {
		return err
	}
	if healthService == nil {
		return errors.New("health service not configured")
	}

	health := healthService.Check(ctx)
	for _, c := range health.Components {
		line := fmt.Sprintf("  %-10s %-12s", c.Name, c.Status)
		if c.Backend != "" {
			line += " " + c.Backend
		}
		if c.Detail != "" {
			line += " (" + c.Detail + ")"
		}
		cmd.Println(line)
	}
	cmd.Println()
	cmd.Printf("Status: %s\n", health.Status)

	if health.Status == domain.HealthUnavailable {
		return domain.NewError(domain.KindUnavailable, "one or more required components are unavailable")
	}
	return nil
}

func isSecretKey(key string) bool {
	return strings.HasSuffix(key, "api_key") || strings.HasSuffix(key, "password") ||
		strings.HasSuffix(key, "_dsn")
}

func configuredLabel(ok bool) string {
	if ok {
		return "configured"
	}
	return "not configured"
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func maskSecret(key string) string {
	if key == "" {
		return "(not set)"
	}
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
