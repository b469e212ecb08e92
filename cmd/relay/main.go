// Relay — action execution engine for assistant-proposed CRM mutations.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "relay",
	Short: "Relay — typed action execution engine for assistant-driven CRM workflows.",
	Long: `Relay executes structured mutations proposed by an upstream AI assistant
against a CRM dataset. Every call is validated against a typed schema and
dispatched by risk tier: reads and undoable mutations auto-execute, external
communications are held for human approval. The last run stays revertible
for a bounded window.`,
	RunE:          runServe, // Default to serve mode.
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(serveCmd, mcpCmd, actionsCmd, versionCmd)
	_ = godotenv.Load()
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}
