package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/jkaninda/relay/internal/actions"
	"github.com/jkaninda/relay/internal/config"
	"github.com/jkaninda/relay/internal/engine"
	"github.com/jkaninda/relay/internal/observability"
	"github.com/jkaninda/relay/internal/outbound"
	"github.com/jkaninda/relay/internal/storage"
	pgstore "github.com/jkaninda/relay/internal/storage/postgres"
	sqlitestore "github.com/jkaninda/relay/internal/storage/sqlite"

	"github.com/jkaninda/relay/internal/action"
)

// SharedComponents holds all initialized subsystems that both serve and mcp
// modes require. Built once by initShared, torn down by Cleanup.
type SharedComponents struct {
	Config   *config.Config
	Logger   *slog.Logger
	Store    storage.Store // Unified store (SQLite or PostgreSQL).
	Obs      *observability.Observability
	Registry *action.Registry
	Undo     *engine.UndoManager
	Runs     *engine.RunManager
	OrgID    uuid.UUID

	cleanups []func()
}

// Cleanup runs all deferred cleanup functions in reverse order.
func (sc *SharedComponents) Cleanup() {
	for i := len(sc.cleanups) - 1; i >= 0; i-- {
		sc.cleanups[i]()
	}
}

func (sc *SharedComponents) addCleanup(fn func()) {
	sc.cleanups = append(sc.cleanups, fn)
}

// loadConfig loads the config file, falling back to the zero-config default
// when the file does not exist at the default path.
func loadConfig(path string) (*config.Config, error) {
	if path == config.DefaultConfigPath() {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return config.Default(), nil
		}
	}
	return config.Load(path)
}

// initShared performs all common initialization shared between serve and
// mcp modes. Callers must call sc.Cleanup() when done. events may be nil.
func initShared(cfg *config.Config, events engine.Events, logger *slog.Logger) (*SharedComponents, error) {
	sc := &SharedComponents{
		Config: cfg,
		Logger: logger,
	}

	// Observability.
	obs, err := observability.New(cfg.Observability, logger)
	if err != nil {
		return nil, fmt.Errorf("initializing observability: %w", err)
	}
	sc.Obs = obs
	sc.addCleanup(func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		obs.Shutdown(shutdownCtx)
	})

	// Storage.
	store, err := initStore(cfg, logger)
	if err != nil {
		sc.Cleanup()
		return nil, fmt.Errorf("initializing storage: %w", err)
	}
	sc.Store = store
	sc.addCleanup(func() {
		if err := store.Close(); err != nil {
			logger.Error("closing store", slog.String("error", err.Error()))
		}
	})

	// Run migrations.
	if err := store.Migrate(context.Background()); err != nil {
		sc.Cleanup()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	// Bootstrap the tenant.
	orgName := cfg.OrgName
	if orgName == "" {
		orgName = "default"
	}
	orgID, err := store.EnsureOrg(context.Background(), orgName)
	if err != nil {
		sc.Cleanup()
		return nil, fmt.Errorf("ensuring org: %w", err)
	}
	sc.OrgID = orgID
	logger.Debug("org initialized",
		slog.String("org_name", orgName),
		slog.String("org_id", orgID.String()),
	)

	// Outbound senders (optional).
	var smsSender, emailSender outbound.Sender
	if smsCfg := cfg.SMSSenderConfig(); smsCfg != nil {
		smsSender = outbound.NewSMSSender(*smsCfg, logger)
	}
	if smtpCfg := cfg.SMTPSenderConfig(); smtpCfg != nil {
		emailSender = outbound.NewEmailSender(*smtpCfg, logger)
	}

	// Action registry.
	sc.Registry = actions.NewRegistry(actions.Deps{
		Contacts: store.Contacts(),
		Deals:    store.Deals(),
		Tasks:    store.Tasks(),
		Messages: store.Messages(),
		SMS:      smsSender,
		Email:    emailSender,
		Metrics:  obs.Metrics,
		Logger:   logger,
	})

	// Engine.
	sc.Undo = engine.NewUndoManager(cfg.Undo.Window(), obs.Metrics, logger)
	router := engine.NewRouter(sc.Registry, sc.Undo, obs.Metrics, logger)
	sc.Runs = engine.NewRunManager(router, store.Runs(), events, obs.Metrics, logger)

	logger.Info("engine initialized",
		slog.Int("actions", len(sc.Registry.All())),
		slog.String("storage", store.Driver()),
		slog.String("undo_window", cfg.Undo.Window().String()),
	)

	return sc, nil
}

// initStore creates the appropriate storage backend from config.
func initStore(cfg *config.Config, logger *slog.Logger) (storage.Store, error) {
	driver := cfg.Storage.StorageDriver()

	switch driver {
	case config.DriverPostgres:
		return initPostgresStore(cfg, logger)
	case config.DriverSQLite:
		return initSQLiteStore(cfg, logger)
	default:
		return nil, fmt.Errorf("unknown storage driver: %q", driver)
	}
}

func initSQLiteStore(cfg *config.Config, logger *slog.Logger) (storage.Store, error) {
	dbPath, err := cfg.SQLitePath()
	if err != nil {
		return nil, err
	}
	journalMode := ""
	if cfg.Storage != nil && cfg.Storage.SQLite != nil {
		journalMode = cfg.Storage.SQLite.JournalMode
	}
	return sqlitestore.Open(sqlitestore.Config{
		Path:        dbPath,
		JournalMode: journalMode,
	}, logger)
}

func initPostgresStore(cfg *config.Config, logger *slog.Logger) (storage.Store, error) {
	pg := cfg.Storage.Postgres
	pgDB, err := pgstore.Open(pgstore.Config{
		DSN:             pg.DSN,
		MaxOpenConns:    pg.MaxOpenConns,
		MaxIdleConns:    pg.MaxIdleConns,
		ConnMaxLifetime: time.Duration(pg.ConnMaxLifetimeS) * time.Second,
	}, logger)
	if err != nil {
		return nil, err
	}
	return pgstore.NewStore(pgDB), nil
}
