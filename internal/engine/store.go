package engine

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/jkaninda/relay/internal/crm"
	"github.com/jkaninda/relay/internal/domain"
)

// RunStore is the persistence interface for runs and their action outcomes.
// The GORM backends implement it; MemoryRunStore covers tests and
// zero-config runs.
type RunStore interface {
	Create(ctx context.Context, run *domain.Run) error
	Get(ctx context.Context, orgID, id uuid.UUID) (*domain.Run, error)
	Update(ctx context.Context, run *domain.Run) error
}

// MemoryRunStore keeps runs in memory. Thread-safe.
type MemoryRunStore struct {
	mu   sync.RWMutex
	runs map[uuid.UUID]domain.Run
}

// NewMemoryRunStore creates an empty in-memory run store.
func NewMemoryRunStore() *MemoryRunStore {
	return &MemoryRunStore{runs: make(map[uuid.UUID]domain.Run)}
}

func (s *MemoryRunStore) Create(_ context.Context, run *domain.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[run.ID] = cloneRun(run)
	return nil
}

func (s *MemoryRunStore) Get(_ context.Context, orgID, id uuid.UUID) (*domain.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[id]
	if !ok || run.OrgID != orgID {
		return nil, crm.ErrNotFound
	}
	out := cloneRun(&run)
	return &out, nil
}

func (s *MemoryRunStore) Update(_ context.Context, run *domain.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.runs[run.ID]; !ok || existing.OrgID != run.OrgID {
		return crm.ErrNotFound
	}
	s.runs[run.ID] = cloneRun(run)
	return nil
}

// List returns all runs for an org, newest first. Used by tests.
func (s *MemoryRunStore) List(_ context.Context, orgID uuid.UUID) ([]domain.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Run
	for _, run := range s.runs {
		if run.OrgID == orgID {
			out = append(out, cloneRun(&run))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// cloneRun deep-copies a run so callers cannot mutate stored state.
func cloneRun(run *domain.Run) domain.Run {
	out := *run
	out.Actions = make([]domain.RunAction, len(run.Actions))
	copy(out.Actions, run.Actions)
	return out
}
