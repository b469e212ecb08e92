package task

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

func seedTask(t *testing.T, store crm.TaskStore, orgID uuid.UUID, title string, done bool) *domain.Task {
	t.Helper()
	now := time.Now().UTC()
	task := &domain.Task{
		ID:        domain.NewID(),
		OrgID:     orgID,
		Title:     title,
		Done:      done,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if done {
		task.CompletedAt = &now
	}
	if err := store.Create(context.Background(), task); err != nil {
		t.Fatalf("seeding task: %v", err)
	}
	return task
}

func TestCreateTask_WithDueDate(t *testing.T) {
	store := crm.NewMemoryStore().Tasks()
	orgID := uuid.New()
	a := NewCreateAction(store, testLogger())

	res, err := a.Execute(scopedCtx(orgID), map[string]any{
		"title":       "Send proposal",
		"due_in_days": float64(3),
	})
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if !res.Success {
		t.Fatalf("Execute() failed: %q", res.Message)
	}

	id := uuid.MustParse(res.Data["task_id"].(string))
	got, err := store.Get(context.Background(), orgID, id)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if got.DueAt == nil {
		t.Fatal("due date not set")
	}
	want := time.Now().UTC().AddDate(0, 0, 3)
	if diff := got.DueAt.Sub(want); diff < -time.Minute || diff > time.Minute {
		t.Errorf("due at = %v, want about %v", got.DueAt, want)
	}

	// The reversal deletes the created row.
	if err := res.Reversal.Apply(context.Background()); err != nil {
		t.Fatalf("reversal error: %v", err)
	}
	if _, err := store.Get(context.Background(), orgID, id); !errors.Is(err, crm.ErrNotFound) {
		t.Errorf("task survived its reversal: %v", err)
	}
}

func TestCreateTask_NoDueDate(t *testing.T) {
	store := crm.NewMemoryStore().Tasks()
	orgID := uuid.New()
	a := NewCreateAction(store, testLogger())

	res, err := a.Execute(scopedCtx(orgID), map[string]any{"title": "Someday"})
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	id := uuid.MustParse(res.Data["task_id"].(string))
	got, _ := store.Get(context.Background(), orgID, id)
	if got.DueAt != nil {
		t.Errorf("due at = %v, want nil", got.DueAt)
	}
}

func TestCompleteTask(t *testing.T) {
	store := crm.NewMemoryStore().Tasks()
	orgID := uuid.New()
	seeded := seedTask(t, store, orgID, "Call the vendor", false)
	a := NewCompleteAction(store, testLogger())

	res, err := a.Execute(scopedCtx(orgID), map[string]any{"title": "vendor"})
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if !res.Success {
		t.Fatalf("Execute() failed: %q", res.Message)
	}

	got, _ := store.Get(context.Background(), orgID, seeded.ID)
	if !got.Done || got.CompletedAt == nil {
		t.Errorf("task not completed: done=%v completedAt=%v", got.Done, got.CompletedAt)
	}

	// The reversal reopens the task.
	if err := res.Reversal.Apply(context.Background()); err != nil {
		t.Fatalf("reversal error: %v", err)
	}
	got, _ = store.Get(context.Background(), orgID, seeded.ID)
	if got.Done || got.CompletedAt != nil {
		t.Errorf("task not reopened: done=%v completedAt=%v", got.Done, got.CompletedAt)
	}
}

func TestCompleteTask_AlreadyDoneIsIdempotent(t *testing.T) {
	store := crm.NewMemoryStore().Tasks()
	orgID := uuid.New()
	seeded := seedTask(t, store, orgID, "Call the vendor", true)
	a := NewCompleteAction(store, testLogger())

	res, err := a.Execute(scopedCtx(orgID), map[string]any{"title": "vendor"})
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if !res.Success {
		t.Fatalf("completing a done task must succeed: %q", res.Message)
	}
	if !strings.Contains(res.Message, "already complete") {
		t.Errorf("message = %q", res.Message)
	}
	if res.Data["task_id"] != seeded.ID.String() {
		t.Errorf("task_id = %v", res.Data["task_id"])
	}
	// No reversal: the row was not touched.
	if res.Reversal != nil {
		t.Error("idempotent completion must not capture a reversal")
	}
}

func TestCompleteTask_NotFound(t *testing.T) {
	a := NewCompleteAction(crm.NewMemoryStore().Tasks(), testLogger())

	_, err := a.Execute(scopedCtx(uuid.New()), map[string]any{"title": "ghost"})
	var nf *action.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
	if err.Error() != `Could not find an open task titled "ghost".` {
		t.Errorf("message = %q", err.Error())
	}
}

func TestSearchTasks_OpenOnlyByDefault(t *testing.T) {
	store := crm.NewMemoryStore().Tasks()
	orgID := uuid.New()
	seedTask(t, store, orgID, "Review contract", false)
	seedTask(t, store, orgID, "Review slides", true)
	a := NewSearchAction(store, testLogger())

	res, err := a.Execute(scopedCtx(orgID), map[string]any{"query": "review"})
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	items := res.Data["tasks"].([]map[string]any)
	if len(items) != 1 {
		t.Fatalf("found %d tasks, want 1 open", len(items))
	}

	res, err = a.Execute(scopedCtx(orgID), map[string]any{"query": "review", "include_done": true})
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	items = res.Data["tasks"].([]map[string]any)
	if len(items) != 2 {
		t.Fatalf("found %d tasks with include_done, want 2", len(items))
	}
}
