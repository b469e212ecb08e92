package crm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/jkaninda/relay/internal/domain"
)

func contactAt(orgID uuid.UUID, name string, updated time.Time) *domain.Contact {
	return &domain.Contact{
		ID: domain.NewID(), OrgID: orgID, Name: name,
		CreatedAt: updated, UpdatedAt: updated,
	}
}

func TestMemoryStore_FindByNameMostRecentWins(t *testing.T) {
	mem := NewMemoryStore()
	orgID := uuid.New()
	base := time.Now().UTC()
	_ = mem.Contacts().Create(context.Background(), contactAt(orgID, "John Smith", base.Add(-time.Hour)))
	newer := contactAt(orgID, "John Smithers", base)
	_ = mem.Contacts().Create(context.Background(), newer)

	got, err := mem.Contacts().FindByName(context.Background(), orgID, "john")
	if err != nil {
		t.Fatalf("FindByName() error: %v", err)
	}
	if got.ID != newer.ID {
		t.Errorf("resolved %q, want most recently updated %q", got.Name, newer.Name)
	}
}

func TestMemoryStore_FindByNameCaseInsensitive(t *testing.T) {
	mem := NewMemoryStore()
	orgID := uuid.New()
	_ = mem.Contacts().Create(context.Background(), contactAt(orgID, "María García", time.Now().UTC()))

	if _, err := mem.Contacts().FindByName(context.Background(), orgID, "garcía"); err != nil {
		t.Errorf("case-insensitive lookup failed: %v", err)
	}
	if _, err := mem.Contacts().FindByName(context.Background(), orgID, "nobody"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryStore_TenantIsolation(t *testing.T) {
	mem := NewMemoryStore()
	orgA, orgB := uuid.New(), uuid.New()
	c := contactAt(orgA, "Secret Contact", time.Now().UTC())
	_ = mem.Contacts().Create(context.Background(), c)

	if _, err := mem.Contacts().Get(context.Background(), orgB, c.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("get crossed tenants: %v", err)
	}
	if err := mem.Contacts().Delete(context.Background(), orgB, c.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("delete crossed tenants: %v", err)
	}
	found, _ := mem.Contacts().Search(context.Background(), orgB, "secret", 10)
	if len(found) != 0 {
		t.Errorf("search crossed tenants: %v", found)
	}
}

func TestMemoryStore_SearchLimit(t *testing.T) {
	mem := NewMemoryStore()
	orgID := uuid.New()
	base := time.Now().UTC()
	for i := 0; i < 5; i++ {
		_ = mem.Contacts().Create(context.Background(), contactAt(orgID, "Clone", base.Add(time.Duration(i)*time.Second)))
	}

	out, err := mem.Contacts().Search(context.Background(), orgID, "clone", 3)
	if err != nil {
		t.Fatalf("Search() error: %v", err)
	}
	if len(out) != 3 {
		t.Errorf("results = %d, want 3", len(out))
	}
}

func TestMemoryStore_ListDueUnreminded(t *testing.T) {
	mem := NewMemoryStore()
	now := time.Now().UTC()
	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)

	mk := func(title string, due *time.Time, done bool, reminded *time.Time) *domain.Task {
		return &domain.Task{
			ID: domain.NewID(), OrgID: uuid.New(), Title: title,
			DueAt: due, Done: done, RemindedAt: reminded,
			CreatedAt: now, UpdatedAt: now,
		}
	}
	ctx := context.Background()
	tasks := mem.Tasks()
	_ = tasks.Create(ctx, mk("due", &past, false, nil))
	_ = tasks.Create(ctx, mk("not yet due", &future, false, nil))
	_ = tasks.Create(ctx, mk("done", &past, true, nil))
	_ = tasks.Create(ctx, mk("already reminded", &past, false, &past))
	_ = tasks.Create(ctx, mk("no due date", nil, false, nil))

	due, err := tasks.ListDueUnreminded(ctx, now)
	if err != nil {
		t.Fatalf("ListDueUnreminded() error: %v", err)
	}
	if len(due) != 1 || due[0].Title != "due" {
		t.Fatalf("due = %v, want only the overdue open unreminded task", due)
	}

	// Stamping removes it from the next scan.
	if err := tasks.MarkReminded(ctx, []uuid.UUID{due[0].ID}, now); err != nil {
		t.Fatalf("MarkReminded() error: %v", err)
	}
	due, _ = tasks.ListDueUnreminded(ctx, now)
	if len(due) != 0 {
		t.Errorf("reminded task still listed: %v", due)
	}
}

func TestMemoryStore_MessagesNewestFirst(t *testing.T) {
	mem := NewMemoryStore()
	orgID := uuid.New()
	ctx := context.Background()
	for _, body := range []string{"first", "second", "third"} {
		_ = mem.Messages().Create(ctx, &domain.OutboundMessage{
			ID: domain.NewID(), OrgID: orgID, Channel: "sms", Body: body,
			Status: "sent", CreatedAt: time.Now().UTC(),
		})
	}

	out, err := mem.Messages().List(ctx, orgID, 2)
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(out) != 2 || out[0].Body != "third" || out[1].Body != "second" {
		t.Errorf("messages = %v, want newest first capped at 2", out)
	}
}
