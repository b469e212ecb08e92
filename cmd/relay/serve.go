package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	goutils "github.com/jkaninda/go-utils"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/jkaninda/relay/internal/config"
	"github.com/jkaninda/relay/internal/gateway/httpapi"
	"github.com/jkaninda/relay/internal/gateway/ws"
	"github.com/jkaninda/relay/internal/outbound"
	"github.com/jkaninda/relay/internal/reminder"
)

var (
	serveConfigPath string
	serveListenAddr string
	serveEnableDocs bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Relay HTTP API server",
	Long: `Start the HTTP API server exposing the action execution engine:
run submission, approval, undo, the action catalog, and the WebSocket
run-event feed.`,
	RunE: runServe,
}

func init() {
	// Register flags on both root and serve so that `relay --config path`
	// and `relay serve --config path` both work.
	for _, cmd := range []*cobra.Command{rootCmd, serveCmd} {
		cmd.Flags().StringVarP(&serveConfigPath, "config", "c", config.DefaultConfigPath(), "Path to config file (YAML or JSON)")
		cmd.Flags().StringVar(&serveListenAddr, "listen", "", "Listen address override (e.g. :8080)")
		cmd.Flags().BoolVar(&serveEnableDocs, "docs", false, "Enable the interactive OpenAPI documentation UI")
	}
}

func runServe(_ *cobra.Command, _ []string) error {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := loadConfig(goutils.Env("RELAY_CONFIG", serveConfigPath))
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if serveListenAddr != "" {
		cfg.Server.ListenAddr = serveListenAddr
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Every run event is also broadcast on the WebSocket feed.
	hub := ws.NewHub(wsToken(cfg), logger)

	sc, err := initShared(cfg, hub, logger)
	if err != nil {
		return err
	}
	defer sc.Cleanup()

	if healthCfg := healthConfig(cfg); healthCfg == nil || healthCfg.IncludeDB {
		sc.Obs.Health.AddCheck("database", sc.Store.Ping)
	}

	// Undo window expiry sweep.
	stopCleanup := sc.Undo.StartCleanup(ctx, cfg.Undo.CleanupInterval())
	defer stopCleanup()

	// Due-task reminder digest, when configured.
	if cfg.Reminder != nil {
		emailCfg := cfg.SMTPSenderConfig()
		sender := outbound.NewEmailSender(*emailCfg, logger)
		poller, err := reminder.New(reminder.Config{
			Schedule:  cfg.Reminder.CronSchedule(),
			Recipient: cfg.Reminder.Recipient,
		}, sc.Store.Tasks(), sender, sc.Obs.Metrics, logger)
		if err != nil {
			return fmt.Errorf("initializing reminder poller: %w", err)
		}
		stopPoller := poller.Start(ctx)
		defer stopPoller()
	}

	gw := httpapi.NewGateway(httpapi.Config{
		ListenAddr:      cfg.Server.Addr(),
		EnableDocs:      serveEnableDocs,
		APIKeys:         apiKeyMap(cfg.Server.APIKeys),
		MetricsRegistry: metricsRegistry(cfg, sc),
		MetricsPath:     metricsPath(cfg),
		HealthChecker:   sc.Obs.Health,
		Metrics:         sc.Obs.Metrics,
		Tracer:          sc.Obs.TracerOrNil(),
	}, sc.Runs, sc.Undo, sc.Registry, sc.OrgID, cfg.RateLimit.Limiter(), logger)

	gw.WithHandler("/v1/events", hub.Handler())
	if serveEnableDocs {
		gw.WithOpenAPIDocs()
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- gw.Start(ctx)
	}()

	logger.Info("relay started",
		slog.String("addr", cfg.Server.Addr()),
		slog.String("version", version),
	)

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := gw.Stop(shutdownCtx); err != nil {
		logger.Error("shutdown error", slog.String("error", err.Error()))
	}
	return nil
}

// apiKeyMap derives a stable user ID per configured API key. The server runs
// single-tenant; the ID only identifies the caller in run audit records.
func apiKeyMap(keys []string) map[string]string {
	m := make(map[string]string, len(keys))
	for i, k := range keys {
		if k == "" {
			continue
		}
		m[k] = fmt.Sprintf("api-key-%d", i+1)
	}
	return m
}

// wsToken returns the token protecting the WebSocket feed. The first API key
// is reused; an open API means an open feed.
func wsToken(cfg *config.Config) string {
	if len(cfg.Server.APIKeys) > 0 {
		return cfg.Server.APIKeys[0]
	}
	return ""
}

func healthConfig(cfg *config.Config) *config.HealthConfig {
	if cfg.Observability == nil {
		return nil
	}
	return cfg.Observability.Health
}

func metricsPath(cfg *config.Config) string {
	if cfg.Observability != nil && cfg.Observability.Metrics != nil && cfg.Observability.Metrics.Path != "" {
		return cfg.Observability.Metrics.Path
	}
	return "/metrics"
}

// metricsRegistry returns the Prometheus registry when exposition is enabled,
// nil otherwise. Metrics are still collected either way.
func metricsRegistry(cfg *config.Config, sc *SharedComponents) *prometheus.Registry {
	if cfg.Observability != nil && cfg.Observability.Metrics != nil && !cfg.Observability.Metrics.Enabled {
		return nil
	}
	return sc.Obs.Metrics.Registry
}
