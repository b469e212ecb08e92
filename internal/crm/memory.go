package crm

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jkaninda/relay/internal/domain"
)

// MemoryStore is an in-memory implementation of all CRM stores. Used for
// tests and for zero-config single-process runs; the GORM backends replace
// it in production.
type MemoryStore struct {
	mu       sync.RWMutex
	contacts map[uuid.UUID]domain.Contact
	deals    map[uuid.UUID]domain.Deal
	tasks    map[uuid.UUID]domain.Task
	messages []domain.OutboundMessage
}

// NewMemoryStore creates an empty in-memory CRM store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		contacts: make(map[uuid.UUID]domain.Contact),
		deals:    make(map[uuid.UUID]domain.Deal),
		tasks:    make(map[uuid.UUID]domain.Task),
	}
}

// matches reports a case-insensitive substring hit.
func matches(haystack, query string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(query))
}

// --- ContactStore ---

func (s *MemoryStore) Create(ctx context.Context, c *domain.Contact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contacts[c.ID] = *c
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, orgID, id uuid.UUID) (*domain.Contact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.contacts[id]
	if !ok || c.OrgID != orgID {
		return nil, ErrNotFound
	}
	out := c
	return &out, nil
}

func (s *MemoryStore) Update(ctx context.Context, c *domain.Contact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.contacts[c.ID]; !ok || existing.OrgID != c.OrgID {
		return ErrNotFound
	}
	s.contacts[c.ID] = *c
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, orgID, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.contacts[id]; !ok || c.OrgID != orgID {
		return ErrNotFound
	}
	delete(s.contacts, id)
	return nil
}

func (s *MemoryStore) FindByName(ctx context.Context, orgID uuid.UUID, query string) (*domain.Contact, error) {
	out, err := s.Search(ctx, orgID, query, 1)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	c := out[0]
	return &c, nil
}

func (s *MemoryStore) Search(ctx context.Context, orgID uuid.UUID, query string, limit int) ([]domain.Contact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Contact
	for _, c := range s.contacts {
		if c.OrgID == orgID && matches(c.Name, query) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// --- DealStore ---

func (s *MemoryStore) CreateDeal(ctx context.Context, d *domain.Deal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deals[d.ID] = *d
	return nil
}

func (s *MemoryStore) GetDeal(ctx context.Context, orgID, id uuid.UUID) (*domain.Deal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.deals[id]
	if !ok || d.OrgID != orgID {
		return nil, ErrNotFound
	}
	out := d
	return &out, nil
}

func (s *MemoryStore) UpdateDeal(ctx context.Context, d *domain.Deal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.deals[d.ID]; !ok || existing.OrgID != d.OrgID {
		return ErrNotFound
	}
	s.deals[d.ID] = *d
	return nil
}

func (s *MemoryStore) DeleteDeal(ctx context.Context, orgID, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if d, ok := s.deals[id]; !ok || d.OrgID != orgID {
		return ErrNotFound
	}
	delete(s.deals, id)
	return nil
}

func (s *MemoryStore) FindDealByTitle(ctx context.Context, orgID uuid.UUID, query string) (*domain.Deal, error) {
	out, err := s.SearchDeals(ctx, orgID, query, 1)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	d := out[0]
	return &d, nil
}

func (s *MemoryStore) SearchDeals(ctx context.Context, orgID uuid.UUID, query string, limit int) ([]domain.Deal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Deal
	for _, d := range s.deals {
		if d.OrgID == orgID && matches(d.Title, query) {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// --- TaskStore ---

func (s *MemoryStore) CreateTask(ctx context.Context, t *domain.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tasks[t.ID] = *t
	return nil
}

func (s *MemoryStore) GetTask(ctx context.Context, orgID, id uuid.UUID) (*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	if !ok || t.OrgID != orgID {
		return nil, ErrNotFound
	}
	out := t
	return &out, nil
}

func (s *MemoryStore) UpdateTask(ctx context.Context, t *domain.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.tasks[t.ID]; !ok || existing.OrgID != t.OrgID {
		return ErrNotFound
	}
	s.tasks[t.ID] = *t
	return nil
}

func (s *MemoryStore) DeleteTask(ctx context.Context, orgID, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.tasks[id]; !ok || t.OrgID != orgID {
		return ErrNotFound
	}
	delete(s.tasks, id)
	return nil
}

func (s *MemoryStore) FindOpenTaskByTitle(ctx context.Context, orgID uuid.UUID, query string) (*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Task
	for _, t := range s.tasks {
		if t.OrgID == orgID && !t.Done && matches(t.Title, query) {
			out = append(out, t)
		}
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	t := out[0]
	return &t, nil
}

func (s *MemoryStore) SearchTasks(ctx context.Context, orgID uuid.UUID, query string, includeDone bool, limit int) ([]domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Task
	for _, t := range s.tasks {
		if t.OrgID != orgID || (t.Done && !includeDone) {
			continue
		}
		if matches(t.Title, query) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) ListDueUnreminded(ctx context.Context, before time.Time) ([]domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Task
	for _, t := range s.tasks {
		if !t.Done && t.RemindedAt == nil && t.DueAt != nil && !t.DueAt.After(before) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DueAt.Before(*out[j].DueAt) })
	return out, nil
}

func (s *MemoryStore) MarkReminded(ctx context.Context, ids []uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		if t, ok := s.tasks[id]; ok {
			stamp := at
			t.RemindedAt = &stamp
			s.tasks[id] = t
		}
	}
	return nil
}

// --- MessageStore ---

func (s *MemoryStore) CreateMessage(ctx context.Context, m *domain.OutboundMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, *m)
	return nil
}

func (s *MemoryStore) ListMessages(ctx context.Context, orgID uuid.UUID, limit int) ([]domain.OutboundMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.OutboundMessage
	for i := len(s.messages) - 1; i >= 0; i-- {
		if s.messages[i].OrgID == orgID {
			out = append(out, s.messages[i])
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}

// Contacts returns the store's ContactStore view.
func (s *MemoryStore) Contacts() ContactStore { return contactView{s} }

// Deals returns the store's DealStore view.
func (s *MemoryStore) Deals() DealStore { return dealView{s} }

// Tasks returns the store's TaskStore view.
func (s *MemoryStore) Tasks() TaskStore { return taskView{s} }

// Messages returns the store's MessageStore view.
func (s *MemoryStore) Messages() MessageStore { return messageView{s} }

// Views adapt the flat MemoryStore methods onto the per-entity interfaces.

type contactView struct{ s *MemoryStore }

func (v contactView) Create(ctx context.Context, c *domain.Contact) error { return v.s.Create(ctx, c) }
func (v contactView) Get(ctx context.Context, orgID, id uuid.UUID) (*domain.Contact, error) {
	return v.s.Get(ctx, orgID, id)
}
func (v contactView) Update(ctx context.Context, c *domain.Contact) error { return v.s.Update(ctx, c) }
func (v contactView) Delete(ctx context.Context, orgID, id uuid.UUID) error {
	return v.s.Delete(ctx, orgID, id)
}
func (v contactView) FindByName(ctx context.Context, orgID uuid.UUID, q string) (*domain.Contact, error) {
	return v.s.FindByName(ctx, orgID, q)
}
func (v contactView) Search(ctx context.Context, orgID uuid.UUID, q string, limit int) ([]domain.Contact, error) {
	return v.s.Search(ctx, orgID, q, limit)
}

type dealView struct{ s *MemoryStore }

func (v dealView) Create(ctx context.Context, d *domain.Deal) error { return v.s.CreateDeal(ctx, d) }
func (v dealView) Get(ctx context.Context, orgID, id uuid.UUID) (*domain.Deal, error) {
	return v.s.GetDeal(ctx, orgID, id)
}
func (v dealView) Update(ctx context.Context, d *domain.Deal) error { return v.s.UpdateDeal(ctx, d) }
func (v dealView) Delete(ctx context.Context, orgID, id uuid.UUID) error {
	return v.s.DeleteDeal(ctx, orgID, id)
}
func (v dealView) FindByTitle(ctx context.Context, orgID uuid.UUID, q string) (*domain.Deal, error) {
	return v.s.FindDealByTitle(ctx, orgID, q)
}
func (v dealView) Search(ctx context.Context, orgID uuid.UUID, q string, limit int) ([]domain.Deal, error) {
	return v.s.SearchDeals(ctx, orgID, q, limit)
}

type taskView struct{ s *MemoryStore }

func (v taskView) Create(ctx context.Context, t *domain.Task) error { return v.s.CreateTask(ctx, t) }
func (v taskView) Get(ctx context.Context, orgID, id uuid.UUID) (*domain.Task, error) {
	return v.s.GetTask(ctx, orgID, id)
}
func (v taskView) Update(ctx context.Context, t *domain.Task) error { return v.s.UpdateTask(ctx, t) }
func (v taskView) Delete(ctx context.Context, orgID, id uuid.UUID) error {
	return v.s.DeleteTask(ctx, orgID, id)
}
func (v taskView) FindOpenByTitle(ctx context.Context, orgID uuid.UUID, q string) (*domain.Task, error) {
	return v.s.FindOpenTaskByTitle(ctx, orgID, q)
}
func (v taskView) Search(ctx context.Context, orgID uuid.UUID, q string, includeDone bool, limit int) ([]domain.Task, error) {
	return v.s.SearchTasks(ctx, orgID, q, includeDone, limit)
}
func (v taskView) ListDueUnreminded(ctx context.Context, before time.Time) ([]domain.Task, error) {
	return v.s.ListDueUnreminded(ctx, before)
}
func (v taskView) MarkReminded(ctx context.Context, ids []uuid.UUID, at time.Time) error {
	return v.s.MarkReminded(ctx, ids, at)
}

type messageView struct{ s *MemoryStore }

func (v messageView) Create(ctx context.Context, m *domain.OutboundMessage) error {
	return v.s.CreateMessage(ctx, m)
}
func (v messageView) List(ctx context.Context, orgID uuid.UUID, limit int) ([]domain.OutboundMessage, error) {
	return v.s.ListMessages(ctx, orgID, limit)
}
