package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jkaninda/relay/internal/actions"
	"github.com/jkaninda/relay/internal/crm"
	"github.com/jkaninda/relay/internal/observability"
	"github.com/jkaninda/relay/internal/outbound"
)

var actionsCmd = &cobra.Command{
	Use:   "actions",
	Short: "List the registered actions and their risk tiers",
	RunE:  runActions,
}

func runActions(cmd *cobra.Command, _ []string) error {
	// Catalog listing needs no storage: build the registry against an
	// in-memory store, with the outbound actions always registered so the
	// full catalog is shown regardless of local config.
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	mem := crm.NewMemoryStore()
	reg := actions.NewRegistry(actions.Deps{
		Contacts: mem.Contacts(),
		Deals:    mem.Deals(),
		Tasks:    mem.Tasks(),
		Messages: mem.Messages(),
		SMS:      catalogSender{channel: "sms"},
		Email:    catalogSender{channel: "email"},
		Metrics:  observability.NewMetricsCollector(),
		Logger:   logger,
	})

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tTIER\tDESCRIPTION")
	for _, a := range reg.All() {
		fmt.Fprintf(w, "%s\t%d (%s)\t%s\n", a.Name(), a.RiskTier(), a.RiskTier().Label(), a.Description())
	}
	return w.Flush()
}

// catalogSender satisfies outbound.Sender for catalog listing only.
type catalogSender struct {
	channel string
}

func (s catalogSender) Channel() string { return s.channel }

func (s catalogSender) Send(_ context.Context, _ *outbound.Message) error {
	return fmt.Errorf("%s sender is not configured", s.channel)
}
