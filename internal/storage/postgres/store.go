package postgres

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/jkaninda/relay/internal/crm"
	"github.com/jkaninda/relay/internal/engine"
	"github.com/jkaninda/relay/internal/storage"
)

// Store implements storage.Store backed by PostgreSQL.
// It wraps the existing DB and lazily creates sub-store repositories.
type Store struct {
	pgDB *DB

	mu       sync.Mutex
	contacts crm.ContactStore
	deals    crm.DealStore
	tasks    crm.TaskStore
	messages crm.MessageStore
	runs     engine.RunStore
}

// NewStore wraps an existing DB as a unified Store.
func NewStore(pgDB *DB) *Store {
	return &Store{pgDB: pgDB}
}

func (s *Store) Migrate(_ context.Context) error {
	// PostgreSQL migration is done in Open() via autoMigrate.
	return nil
}

func (s *Store) Close() error {
	return s.pgDB.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pgDB.Ping(ctx)
}

func (s *Store) Driver() string {
	return storage.DriverPostgres
}

// GormDB returns the underlying GORM DB for direct access when needed.
func (s *Store) GormDB() *DB {
	return s.pgDB
}

func (s *Store) EnsureOrg(ctx context.Context, name string) (uuid.UUID, error) {
	repo := NewOrgRepository(s.pgDB.GormDB())
	return repo.EnsureDefaultOrg(ctx, name)
}

func (s *Store) Contacts() crm.ContactStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.contacts == nil {
		s.contacts = NewContactRepository(s.pgDB.GormDB())
	}
	return s.contacts
}

func (s *Store) Deals() crm.DealStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.deals == nil {
		s.deals = NewDealRepository(s.pgDB.GormDB())
	}
	return s.deals
}

func (s *Store) Tasks() crm.TaskStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tasks == nil {
		s.tasks = NewTaskRepository(s.pgDB.GormDB())
	}
	return s.tasks
}

func (s *Store) Messages() crm.MessageStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.messages == nil {
		s.messages = NewMessageRepository(s.pgDB.GormDB())
	}
	return s.messages
}

func (s *Store) Runs() engine.RunStore {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runs == nil {
		s.runs = NewRunRepository(s.pgDB.GormDB())
	}
	return s.runs
}
