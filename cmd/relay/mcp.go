package main

import (
	"fmt"
	"log/slog"
	"os"

	goutils "github.com/jkaninda/go-utils"
	"github.com/spf13/cobra"

	"github.com/jkaninda/relay/internal/config"
	"github.com/jkaninda/relay/internal/gateway/mcpserver"
)

var mcpConfigPath string

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the action catalog as MCP tools over stdio",
	Long: `Expose every registered action as an MCP tool over stdio, for use as
a local tool server by an MCP-capable assistant. Tier-2 actions still go
through the approval flow; the tool result reports the pending run ID.`,
	RunE: runMCP,
}

func init() {
	mcpCmd.Flags().StringVarP(&mcpConfigPath, "config", "c", config.DefaultConfigPath(), "Path to config file (YAML or JSON)")
}

func runMCP(_ *cobra.Command, _ []string) error {
	// stdout carries the MCP transport, so logs must go to stderr.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
	slog.SetDefault(logger)

	cfg, err := loadConfig(goutils.Env("RELAY_CONFIG", mcpConfigPath))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	sc, err := initShared(cfg, nil, logger)
	if err != nil {
		return err
	}
	defer sc.Cleanup()

	userID := goutils.Env("RELAY_MCP_USER", "mcp")
	srv := mcpserver.NewServer(sc.Registry, sc.Runs, sc.Undo, sc.OrgID, userID, logger)
	return srv.ServeStdio()
}
