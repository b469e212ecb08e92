package followup

import (
	"context"
	"errors"
	"io"
	"log/slog"
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

func TestScheduleFollowUp(t *testing.T) {
	mem := crm.NewMemoryStore()
	orgID := uuid.New()
	now := time.Now().UTC()
	contact := &domain.Contact{
		ID: domain.NewID(), OrgID: orgID, Name: "Sam Carter",
		CreatedAt: now, UpdatedAt: now,
	}
	if err := mem.Contacts().Create(context.Background(), contact); err != nil {
		t.Fatalf("seeding contact: %v", err)
	}

	a := New(mem.Contacts(), mem.Tasks(), testLogger())
	res, err := a.Execute(scopedCtx(orgID), map[string]any{
		"contact_name":  "sam",
		"days_from_now": float64(7),
		"notes":         "Discuss renewal pricing",
	})
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if !res.Success {
		t.Fatalf("Execute() failed: %q", res.Message)
	}

	taskID := uuid.MustParse(res.Data["task_id"].(string))
	task, err := mem.Tasks().Get(context.Background(), orgID, taskID)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if task.ContactID == nil || *task.ContactID != contact.ID {
		t.Error("follow-up task not linked to the contact")
	}
	if task.Title != "Follow up with Sam Carter" {
		t.Errorf("title = %q", task.Title)
	}
	if task.DueAt == nil {
		t.Fatal("due date not set")
	}
	want := now.AddDate(0, 0, 7)
	if diff := task.DueAt.Sub(want); diff < -time.Minute || diff > time.Minute {
		t.Errorf("due at = %v, want about %v", task.DueAt, want)
	}

	// The reversal deletes the follow-up task, never the contact.
	if err := res.Reversal.Apply(context.Background()); err != nil {
		t.Fatalf("reversal error: %v", err)
	}
	if _, err := mem.Tasks().Get(context.Background(), orgID, taskID); !errors.Is(err, crm.ErrNotFound) {
		t.Errorf("task survived its reversal: %v", err)
	}
	if _, err := mem.Contacts().Get(context.Background(), orgID, contact.ID); err != nil {
		t.Errorf("contact removed by reversal: %v", err)
	}
}

func TestScheduleFollowUp_UnknownContact(t *testing.T) {
	mem := crm.NewMemoryStore()
	a := New(mem.Contacts(), mem.Tasks(), testLogger())

	_, err := a.Execute(scopedCtx(uuid.New()), map[string]any{
		"contact_name":  "Nobody",
		"days_from_now": float64(1),
	})
	var nf *action.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestScheduleFollowUp_NegativeDays(t *testing.T) {
	mem := crm.NewMemoryStore()
	orgID := uuid.New()
	now := time.Now().UTC()
	_ = mem.Contacts().Create(context.Background(), &domain.Contact{
		ID: domain.NewID(), OrgID: orgID, Name: "Sam Carter",
		CreatedAt: now, UpdatedAt: now,
	})

	a := New(mem.Contacts(), mem.Tasks(), testLogger())
	res, err := a.Execute(scopedCtx(orgID), map[string]any{
		"contact_name":  "sam",
		"days_from_now": float64(-1),
	})
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if res.Success {
		t.Fatal("negative days must fail")
	}
}
