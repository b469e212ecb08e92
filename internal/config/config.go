// Package config handles loading and validating Relay configuration.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/jkaninda/relay/internal/outbound"
	"github.com/jkaninda/relay/internal/ratelimit"
)

// Storage driver names accepted in StorageConfig.Driver.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

func init() {
	// Load .env file if it exists
	_ = godotenv.Load()
}

// Config is the root configuration for Relay.
type Config struct {
	DataDir       string               `json:"data_dir,omitempty" yaml:"data_dir,omitempty"` // Persistent data directory. Default: ~/.relay. Override: RELAY_DATA_DIR env var.
	OrgName       string               `json:"org_name,omitempty" yaml:"org_name,omitempty"` // Tenant bootstrapped at startup. Default: "default".
	Server        ServerConfig         `json:"server" yaml:"server"`
	Storage       *StorageConfig       `json:"storage,omitempty" yaml:"storage,omitempty"`             // nil = SQLite default (derived from data dir)
	Undo          UndoConfig           `json:"undo" yaml:"undo"`
	RateLimit     *RateLimitConfig     `json:"rate_limit,omitempty" yaml:"rate_limit,omitempty"`       // nil = unlimited
	Observability *ObservabilityConfig `json:"observability,omitempty" yaml:"observability,omitempty"` // nil = metrics only, no tracing
	Outbound      *OutboundConfig      `json:"outbound,omitempty" yaml:"outbound,omitempty"`           // nil = send_sms/send_email unavailable
	Reminder      *ReminderConfig      `json:"reminder,omitempty" yaml:"reminder,omitempty"`           // nil = reminder digests disabled
}

// ServerConfig configures the HTTP API listener.
type ServerConfig struct {
	ListenAddr string   `json:"listen_addr" yaml:"listen_addr"` // Default: ":8080". Override: RELAY_LISTEN_ADDR.
	APIKeys    []string `json:"api_keys" yaml:"api_keys"`       // Bearer tokens accepted by the API. Override/append: RELAY_API_KEY.
}

// Addr returns the listen address, defaulting to ":8080".
func (s ServerConfig) Addr() string {
	if s.ListenAddr != "" {
		return s.ListenAddr
	}
	return ":8080"
}

// StorageConfig configures the persistence backend.
// When nil, defaults to SQLite with the database path derived from the data dir.
type StorageConfig struct {
	Driver   string                 `json:"driver" yaml:"driver"`                         // "sqlite" (default) or "postgres".
	SQLite   *SQLiteStorageConfig   `json:"sqlite,omitempty" yaml:"sqlite,omitempty"`     // SQLite-specific settings.
	Postgres *PostgresStorageConfig `json:"postgres,omitempty" yaml:"postgres,omitempty"` // PostgreSQL-specific settings.
}

// StorageDriver returns the configured driver, defaulting to "sqlite".
func (s *StorageConfig) StorageDriver() string {
	if s != nil && s.Driver != "" {
		return s.Driver
	}
	return DriverSQLite
}

// SQLiteStorageConfig holds SQLite-specific settings.
type SQLiteStorageConfig struct {
	Path        string `json:"path,omitempty" yaml:"path,omitempty"` // Database file path. Default: <data_dir>/relay.db.
	JournalMode string `json:"journal_mode" yaml:"journal_mode"`     // "wal" (default), "delete", "truncate", etc.
}

// PostgresStorageConfig holds PostgreSQL-specific settings.
type PostgresStorageConfig struct {
	DSN              string `json:"dsn" yaml:"dsn"`
	MaxOpenConns     int    `json:"max_open_conns" yaml:"max_open_conns"`           // Default: 25
	MaxIdleConns     int    `json:"max_idle_conns" yaml:"max_idle_conns"`           // Default: 5
	ConnMaxLifetimeS int    `json:"conn_max_lifetime_s" yaml:"conn_max_lifetime_s"` // Default: 1800 (30 min)
}

// UndoConfig bounds how long the last run stays revertible.
type UndoConfig struct {
	WindowMinutes          int `json:"window_minutes" yaml:"window_minutes"`                     // Default: 5.
	CleanupIntervalSeconds int `json:"cleanup_interval_seconds" yaml:"cleanup_interval_seconds"` // Default: 60.
}

// Window returns the undo window, defaulting to 5 minutes.
func (u UndoConfig) Window() time.Duration {
	if u.WindowMinutes > 0 {
		return time.Duration(u.WindowMinutes) * time.Minute
	}
	return 5 * time.Minute
}

// CleanupInterval returns the expiry sweep interval, defaulting to 1 minute.
func (u UndoConfig) CleanupInterval() time.Duration {
	if u.CleanupIntervalSeconds > 0 {
		return time.Duration(u.CleanupIntervalSeconds) * time.Second
	}
	return time.Minute
}

// RateLimitConfig configures per-caller rate limiting on the HTTP API.
type RateLimitConfig struct {
	RequestsPerMinute int `json:"requests_per_minute" yaml:"requests_per_minute"`
	BurstSize         int `json:"burst_size" yaml:"burst_size"`
}

// Limiter builds a ratelimit.Limiter from this config. A nil config means
// unlimited.
func (r *RateLimitConfig) Limiter() *ratelimit.Limiter {
	if r == nil {
		return ratelimit.NewLimiter(ratelimit.Config{})
	}
	return ratelimit.NewLimiter(ratelimit.Config{
		RequestsPerMinute: r.RequestsPerMinute,
		BurstSize:         r.BurstSize,
	})
}

// ObservabilityConfig configures metrics exposition and tracing.
type ObservabilityConfig struct {
	Metrics *MetricsConfig `json:"metrics,omitempty" yaml:"metrics,omitempty"`
	Tracing *TracingConfig `json:"tracing,omitempty" yaml:"tracing,omitempty"`
	Health  *HealthConfig  `json:"health,omitempty" yaml:"health,omitempty"`
}

// MetricsConfig configures Prometheus metrics exposition.
type MetricsConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Path    string `json:"path" yaml:"path"` // Default: "/metrics"
}

// TracingConfig configures OpenTelemetry distributed tracing.
type TracingConfig struct {
	Enabled     bool    `json:"enabled" yaml:"enabled"`
	Endpoint    string  `json:"endpoint" yaml:"endpoint"`         // OTLP endpoint, e.g. "localhost:4317"
	Protocol    string  `json:"protocol" yaml:"protocol"`         // "grpc" or "http". Default: "grpc"
	ServiceName string  `json:"service_name" yaml:"service_name"` // Default: "relay"
	SampleRate  float64 `json:"sample_rate" yaml:"sample_rate"`   // 0.0–1.0. Default: 1.0
	Insecure    bool    `json:"insecure" yaml:"insecure"`         // Skip TLS for dev
}

// HealthConfig configures dependency health checks for readiness probes.
type HealthConfig struct {
	IncludeDB bool `json:"include_db" yaml:"include_db"`
}

// OutboundConfig configures the external communication senders behind the
// tier-2 actions. A nil section (or nil sub-section) leaves the corresponding
// action unregistered.
type OutboundConfig struct {
	SMS   *SMSConfig  `json:"sms,omitempty" yaml:"sms,omitempty"`
	Email *SMTPConfig `json:"email,omitempty" yaml:"email,omitempty"`
}

// SMSConfig configures the HTTP SMS provider.
type SMSConfig struct {
	APIBase  string `json:"api_base" yaml:"api_base"`
	From     string `json:"from" yaml:"from"`
	TokenEnv string `json:"token_env" yaml:"token_env"` // Env var holding the bearer token. Default: RELAY_SMS_TOKEN.
}

// SMTPConfig configures the SMTP email sender.
type SMTPConfig struct {
	Host        string `json:"host" yaml:"host"`
	Port        int    `json:"port" yaml:"port"` // Default: 587.
	Username    string `json:"username" yaml:"username"`
	From        string `json:"from" yaml:"from"`
	PasswordEnv string `json:"password_env" yaml:"password_env"` // Env var holding the password. Default: RELAY_SMTP_PASSWORD.
	TLS         bool   `json:"tls" yaml:"tls"`
}

// ReminderConfig configures the due-task reminder digest.
type ReminderConfig struct {
	Schedule  string `json:"schedule" yaml:"schedule"`   // Cron expression. Default: "*/5 * * * *".
	Recipient string `json:"recipient" yaml:"recipient"` // Digest email address. Required when enabled.
}

// CronSchedule returns the digest cron expression, defaulting to every five
// minutes.
func (r *ReminderConfig) CronSchedule() string {
	if r != nil && r.Schedule != "" {
		return r.Schedule
	}
	return "*/5 * * * *"
}

// DefaultConfigPath returns the default location of the config file.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "configs/relay.yaml" // fallback for environments without a home dir
	}
	return filepath.Join(home, ".relay", "config.yaml")
}

// Load reads a config file (YAML or JSON by extension) and applies
// environment variable overrides.
func Load(path string) (*Config, error) {
	// Expand ~ in config path.
	resolved, err := resolvePath(path)
	if err != nil {
		return nil, fmt.Errorf("resolving config path %s: %w", path, err)
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", resolved, err)
	}

	var cfg Config
	switch ext := strings.ToLower(filepath.Ext(resolved)); ext {
	case ".yml", ".yaml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing YAML config %s: %w", resolved, err)
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parsing JSON config %s: %w", resolved, err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a zero-config setup: SQLite under the data dir, no
// outbound senders, no tracing.
func Default() *Config {
	cfg := &Config{}
	cfg.applyEnvOverrides()
	return cfg
}

// applyEnvOverrides applies environment variables on top of file values —
// env vars take precedence over config values.
func (c *Config) applyEnvOverrides() {
	if envDD := os.Getenv("RELAY_DATA_DIR"); envDD != "" {
		c.DataDir = envDD
	}
	if envOrg := os.Getenv("RELAY_ORG_NAME"); envOrg != "" {
		c.OrgName = envOrg
	}
	if envAddr := os.Getenv("RELAY_LISTEN_ADDR"); envAddr != "" {
		c.Server.ListenAddr = envAddr
	}
	if envKey := os.Getenv("RELAY_API_KEY"); envKey != "" {
		c.Server.APIKeys = append(c.Server.APIKeys, envKey)
	}
	if envDSN := os.Getenv("RELAY_DB_DSN"); envDSN != "" {
		if c.Storage == nil {
			c.Storage = &StorageConfig{}
		}
		if c.Storage.Postgres == nil {
			c.Storage.Postgres = &PostgresStorageConfig{}
		}
		c.Storage.Driver = DriverPostgres
		c.Storage.Postgres.DSN = envDSN
	}
	if envPath := os.Getenv("RELAY_SQLITE_PATH"); envPath != "" {
		if c.Storage == nil {
			c.Storage = &StorageConfig{}
		}
		if c.Storage.SQLite == nil {
			c.Storage.SQLite = &SQLiteStorageConfig{}
		}
		c.Storage.SQLite.Path = envPath
	}
}

// Validate checks cross-field constraints that would otherwise surface as
// confusing runtime failures.
func (c *Config) Validate() error {
	if c.Storage.StorageDriver() == DriverPostgres {
		if c.Storage == nil || c.Storage.Postgres == nil || c.Storage.Postgres.DSN == "" {
			return fmt.Errorf("storage driver is postgres but no DSN is configured")
		}
	}
	if c.Reminder != nil && c.Reminder.Recipient == "" {
		return fmt.Errorf("reminder is enabled but no recipient is configured")
	}
	if c.Reminder != nil && (c.Outbound == nil || c.Outbound.Email == nil) {
		return fmt.Errorf("reminder digests require an outbound email sender")
	}
	return nil
}

// ResolveDataDir returns the data directory, defaulting to ~/.relay.
func (c *Config) ResolveDataDir() (string, error) {
	if c.DataDir != "" {
		return resolvePath(c.DataDir)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home dir: %w", err)
	}
	return filepath.Join(home, ".relay"), nil
}

// SQLitePath returns the SQLite database path, derived from the data dir
// when not set explicitly.
func (c *Config) SQLitePath() (string, error) {
	if c.Storage != nil && c.Storage.SQLite != nil && c.Storage.SQLite.Path != "" {
		return resolvePath(c.Storage.SQLite.Path)
	}
	dir, err := c.ResolveDataDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "relay.db"), nil
}

// SMSSenderConfig converts the SMS section into the outbound package's
// config. Returns nil when the section is absent.
func (c *Config) SMSSenderConfig() *outbound.SMSConfig {
	if c.Outbound == nil || c.Outbound.SMS == nil {
		return nil
	}
	s := c.Outbound.SMS
	return &outbound.SMSConfig{
		APIBase:  s.APIBase,
		From:     s.From,
		TokenEnv: s.TokenEnv,
	}
}

// SMTPSenderConfig converts the Email section into the outbound package's
// config. Returns nil when the section is absent.
func (c *Config) SMTPSenderConfig() *outbound.SMTPConfig {
	if c.Outbound == nil || c.Outbound.Email == nil {
		return nil
	}
	e := c.Outbound.Email
	return &outbound.SMTPConfig{
		Host:        e.Host,
		Port:        e.Port,
		Username:    e.Username,
		From:        e.From,
		PasswordEnv: e.PasswordEnv,
		TLS:         e.TLS,
	}
}

func resolvePath(path string) (string, error) {
	if strings.HasPrefix(path, "~/") || path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		path = filepath.Join(home, path[1:])
	}
	return filepath.Abs(path)
}
