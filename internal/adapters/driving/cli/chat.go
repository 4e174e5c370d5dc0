package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/fusionqa/internal/adapters/driving/tui"
)

// runChat blocks running the chat UI. Replaced in tests.
var runChat = tui.Run

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Ask questions interactively",
	Long: `Open an interactive terminal chat over the knowledge base.

Controls:
  Enter       - Ask the typed question
  Ctrl+G      - Toggle graph traversal
  PgUp/PgDn   - Scroll the transcript
  Ctrl+L      - Clear the transcript
  F1          - Toggle help
  Esc/Ctrl+C  - Quit`,
	Args: cobra.NoArgs,
	RunE: runChatCmd,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChatCmd(cmd *cobra.Command, _ []string) error {
	ctx := contextOf(cmd)
	if err := ensureServices(ctx); err != nil {
		return err
	}
	if qaService == nil {
		return errors.New("qa service not configured")
	}

	return runChat(ctx, &tui.Ports{
		QA:       qaService,
		Graph:    graphService,
		Defaults: appSettings.QA,
	})
}
