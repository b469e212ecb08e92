// Package crm defines the persistence contracts for the business dataset the
// action engine mutates: contacts, deals, tasks, and outbound messages.
// Interfaces live here, next to their consumers; GORM implementations live in
// internal/storage and an in-memory implementation in this package.
package crm

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/jkaninda/relay/internal/domain"
)

// ErrNotFound is returned by lookups that resolve to nothing within the
// caller's tenant. Callers translate it into an actionable failure message.
var ErrNotFound = errors.New("not found")

// ContactStore provides contact persistence, always scoped to one org.
type ContactStore interface {
	Create(ctx context.Context, c *domain.Contact) error
	Get(ctx context.Context, orgID, id uuid.UUID) (*domain.Contact, error)
	Update(ctx context.Context, c *domain.Contact) error
	Delete(ctx context.Context, orgID, id uuid.UUID) error

	// FindByName resolves a contact by case-insensitive substring match on
	// name, most recently updated first. First match wins; zero matches
	// return ErrNotFound.
	FindByName(ctx context.Context, orgID uuid.UUID, query string) (*domain.Contact, error)

	// Search returns all contacts matching the query, most recently updated
	// first, capped at limit.
	Search(ctx context.Context, orgID uuid.UUID, query string, limit int) ([]domain.Contact, error)
}

// DealStore provides deal persistence.
type DealStore interface {
	Create(ctx context.Context, d *domain.Deal) error
	Get(ctx context.Context, orgID, id uuid.UUID) (*domain.Deal, error)
	Update(ctx context.Context, d *domain.Deal) error
	Delete(ctx context.Context, orgID, id uuid.UUID) error
	FindByTitle(ctx context.Context, orgID uuid.UUID, query string) (*domain.Deal, error)
	Search(ctx context.Context, orgID uuid.UUID, query string, limit int) ([]domain.Deal, error)
}

// TaskStore provides task persistence.
type TaskStore interface {
	Create(ctx context.Context, t *domain.Task) error
	Get(ctx context.Context, orgID, id uuid.UUID) (*domain.Task, error)
	Update(ctx context.Context, t *domain.Task) error
	Delete(ctx context.Context, orgID, id uuid.UUID) error

	// FindOpenByTitle resolves an open (not done) task by case-insensitive
	// substring match on title, most recently updated first.
	FindOpenByTitle(ctx context.Context, orgID uuid.UUID, query string) (*domain.Task, error)

	Search(ctx context.Context, orgID uuid.UUID, query string, includeDone bool, limit int) ([]domain.Task, error)

	// ListDueUnreminded returns tasks across all orgs that are open, due at
	// or before the given time, and not yet included in a reminder digest.
	// Used only by the reminder poller; action executors never call it.
	ListDueUnreminded(ctx context.Context, before time.Time) ([]domain.Task, error)

	// MarkReminded stamps RemindedAt on the given tasks.
	MarkReminded(ctx context.Context, ids []uuid.UUID, at time.Time) error
}

// MessageStore records outbound communications. Append-only.
type MessageStore interface {
	Create(ctx context.Context, m *domain.OutboundMessage) error
	List(ctx context.Context, orgID uuid.UUID, limit int) ([]domain.OutboundMessage, error)
}

// DefaultSearchLimit caps search results returned to the model.
const DefaultSearchLimit = 25
