package contact

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/jkaninda/relay/internal/action"
	"github.com/jkaninda/relay/internal/crm"
	"github.com/jkaninda/relay/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func scopedCtx(orgID uuid.UUID) context.Context {
	return action.WithScope(context.Background(), action.Scope{OrgID: orgID, RunID: uuid.New(), UserID: "tester"})
}

func seedContact(t *testing.T, store crm.ContactStore, orgID uuid.UUID, name string) *domain.Contact {
	t.Helper()
	now := time.Now().UTC()
	c := &domain.Contact{
		ID:        domain.NewID(),
		OrgID:     orgID,
		Name:      name,
		Email:     "old@example.com",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := store.Create(context.Background(), c); err != nil {
		t.Fatalf("seeding contact: %v", err)
	}
	return c
}

func TestCreateContact(t *testing.T) {
	store := crm.NewMemoryStore().Contacts()
	orgID := uuid.New()
	a := NewCreateAction(store, testLogger())

	res, err := a.Execute(scopedCtx(orgID), map[string]any{
		"name":    "  Ada Lovelace  ",
		"email":   "ada@example.com",
		"company": "Analytical Engines Ltd",
	})
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if !res.Success {
		t.Fatalf("Execute() failed: %q", res.Message)
	}

	id, err := uuid.Parse(res.Data["contact_id"].(string))
	if err != nil {
		t.Fatalf("contact_id not a uuid: %v", err)
	}
	got, err := store.Get(context.Background(), orgID, id)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got.Name != "Ada Lovelace" {
		t.Errorf("name = %q, input not trimmed", got.Name)
	}

	// The reversal deletes the created row.
	if res.Reversal == nil {
		t.Fatal("create must capture a reversal")
	}
	if err := res.Reversal.Apply(context.Background()); err != nil {
		t.Fatalf("reversal error: %v", err)
	}
	if _, err := store.Get(context.Background(), orgID, id); !errors.Is(err, crm.ErrNotFound) {
		t.Errorf("contact survived its reversal: %v", err)
	}
}

func TestCreateContact_NoScope(t *testing.T) {
	a := NewCreateAction(crm.NewMemoryStore().Contacts(), testLogger())
	if _, err := a.Execute(context.Background(), map[string]any{"name": "x"}); err == nil {
		t.Fatal("expected error without execution scope")
	}
}

func TestUpdateContact(t *testing.T) {
	store := crm.NewMemoryStore().Contacts()
	orgID := uuid.New()
	seeded := seedContact(t, store, orgID, "Grace Hopper")
	a := NewUpdateAction(store, testLogger())

	res, err := a.Execute(scopedCtx(orgID), map[string]any{
		"name":  "grace",
		"email": "grace@navy.mil",
	})
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if !res.Success {
		t.Fatalf("Execute() failed: %q", res.Message)
	}

	got, _ := store.Get(context.Background(), orgID, seeded.ID)
	if got.Email != "grace@navy.mil" {
		t.Errorf("email = %q", got.Email)
	}

	// The reversal restores the pre-mutation snapshot.
	if err := res.Reversal.Apply(context.Background()); err != nil {
		t.Fatalf("reversal error: %v", err)
	}
	got, _ = store.Get(context.Background(), orgID, seeded.ID)
	if got.Email != "old@example.com" {
		t.Errorf("email after reversal = %q, want old@example.com", got.Email)
	}
}

func TestUpdateContact_NotFoundMessage(t *testing.T) {
	a := NewUpdateAction(crm.NewMemoryStore().Contacts(), testLogger())

	_, err := a.Execute(scopedCtx(uuid.New()), map[string]any{
		"name":  "Jane Doe",
		"email": "jane@example.com",
	})
	var nf *action.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if err.Error() != `Could not find a contact named "Jane Doe".` {
		t.Errorf("message = %q", err.Error())
	}
}

func TestUpdateContact_NothingToUpdate(t *testing.T) {
	store := crm.NewMemoryStore().Contacts()
	orgID := uuid.New()
	seedContact(t, store, orgID, "Grace Hopper")
	a := NewUpdateAction(store, testLogger())

	res, err := a.Execute(scopedCtx(orgID), map[string]any{"name": "grace"})
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if res.Success {
		t.Fatal("update with no fields must fail")
	}
	if !strings.Contains(res.Message, "Nothing to update") {
		t.Errorf("message = %q", res.Message)
	}
}

func TestUpdateContact_TenantScoped(t *testing.T) {
	store := crm.NewMemoryStore().Contacts()
	seedContact(t, store, uuid.New(), "Grace Hopper")
	a := NewUpdateAction(store, testLogger())

	// A different org must not resolve the other tenant's contact.
	_, err := a.Execute(scopedCtx(uuid.New()), map[string]any{
		"name":  "grace",
		"email": "evil@example.com",
	})
	var nf *action.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError across tenants, got %v", err)
	}
}

func TestSearchContacts(t *testing.T) {
	store := crm.NewMemoryStore().Contacts()
	orgID := uuid.New()
	seedContact(t, store, orgID, "Ada Lovelace")
	seedContact(t, store, orgID, "Alan Turing")
	seedContact(t, store, uuid.New(), "Ada Byron") // other tenant
	a := NewSearchAction(store, testLogger())

	res, err := a.Execute(scopedCtx(orgID), map[string]any{"query": "ada"})
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	items := res.Data["contacts"].([]map[string]any)
	if len(items) != 1 {
		t.Fatalf("found %d contacts, want 1", len(items))
	}
	if items[0]["name"] != "Ada Lovelace" {
		t.Errorf("name = %v", items[0]["name"])
	}
	if !strings.Contains(res.Message, "1 contact(s)") {
		t.Errorf("message = %q", res.Message)
	}
}
