// Package storage defines the unified Store interface that abstracts all persistence operations.
// Two backends are provided: SQLite (default, zero-config) and PostgreSQL (production/multi-tenant).
package storage

import (
	"context"

	"github.com/google/uuid"

	"github.com/jkaninda/relay/internal/crm"
	"github.com/jkaninda/relay/internal/engine"
)

// Store is the unified persistence interface for Relay.
// It provides access to all domain-specific sub-stores through accessor methods.
// Both SQLite and PostgreSQL backends implement this interface.
type Store interface {
	// Sub-store accessors — each returns a domain-specific store interface.
	// The returned stores share the same underlying connection.
	Contacts() crm.ContactStore
	Deals() crm.DealStore
	Tasks() crm.TaskStore
	Messages() crm.MessageStore
	Runs() engine.RunStore

	// EnsureOrg creates or retrieves an organization by name.
	EnsureOrg(ctx context.Context, name string) (uuid.UUID, error)

	// Ping checks connectivity for health/readiness probes.
	Ping(ctx context.Context) error

	// Lifecycle.
	Migrate(ctx context.Context) error
	Close() error

	// Driver returns the storage driver name ("sqlite" or "postgres").
	Driver() string
}

// Driver names reported by Store.Driver.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)
