package reminder

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/jkaninda/relay/internal/crm"
	"github.com/jkaninda/relay/internal/domain"
	"github.com/jkaninda/relay/internal/outbound"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeSender struct {
	sent []outbound.Message
	err  error
}

func (f *fakeSender) Channel() string { return "email" }
func (f *fakeSender) Send(_ context.Context, msg *outbound.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, *msg)
	return nil
}

func seedDueTask(t *testing.T, store crm.TaskStore, title string, due time.Time) *domain.Task {
	t.Helper()
	now := time.Now().UTC()
	task := &domain.Task{
		ID: domain.NewID(), OrgID: domain.NewID(), Title: title,
		DueAt: &due, CreatedAt: now, UpdatedAt: now,
	}
	if err := store.Create(context.Background(), task); err != nil {
		t.Fatalf("seeding task: %v", err)
	}
	return task
}

func TestNew_RejectsBadCron(t *testing.T) {
	mem := crm.NewMemoryStore()
	if _, err := New(Config{Schedule: "not a cron"}, mem.Tasks(), &fakeSender{}, nil, testLogger()); err == nil {
		t.Fatal("expected error for invalid cron expression")
	}
}

func TestTick_SendsDigestAndStampsTasks(t *testing.T) {
	mem := crm.NewMemoryStore()
	store := mem.Tasks()
	past := time.Now().UTC().Add(-time.Hour)
	future := time.Now().UTC().Add(24 * time.Hour)
	due := seedDueTask(t, store, "Send proposal", past)
	seedDueTask(t, store, "Not due yet", future)

	sender := &fakeSender{}
	p, err := New(Config{Recipient: "ops@example.com"}, store, sender, nil, testLogger())
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	p.tick(context.Background())

	if len(sender.sent) != 1 {
		t.Fatalf("digests sent = %d, want 1", len(sender.sent))
	}
	msg := sender.sent[0]
	if msg.Recipient != "ops@example.com" {
		t.Errorf("recipient = %q", msg.Recipient)
	}
	if msg.Subject != "1 task(s) due" {
		t.Errorf("subject = %q", msg.Subject)
	}
	if !strings.Contains(msg.Body, "Send proposal") || strings.Contains(msg.Body, "Not due yet") {
		t.Errorf("body = %q", msg.Body)
	}

	// The next cycle must skip the already-reminded task.
	got, _ := store.Get(context.Background(), due.OrgID, due.ID)
	if got.RemindedAt == nil {
		t.Fatal("task not stamped as reminded")
	}
	p.tick(context.Background())
	if len(sender.sent) != 1 {
		t.Errorf("reminded task re-sent: %d digests", len(sender.sent))
	}
}

func TestTick_NoDueTasksSendsNothing(t *testing.T) {
	mem := crm.NewMemoryStore()
	sender := &fakeSender{}
	p, _ := New(Config{Recipient: "ops@example.com"}, mem.Tasks(), sender, nil, testLogger())

	p.tick(context.Background())
	if len(sender.sent) != 0 {
		t.Errorf("empty digest sent: %+v", sender.sent)
	}
}

func TestTick_SendFailureLeavesTasksUnstamped(t *testing.T) {
	mem := crm.NewMemoryStore()
	store := mem.Tasks()
	due := seedDueTask(t, store, "Send proposal", time.Now().UTC().Add(-time.Hour))

	sender := &fakeSender{err: errors.New("smtp down")}
	p, _ := New(Config{Recipient: "ops@example.com"}, store, sender, nil, testLogger())

	p.tick(context.Background())

	// The task stays eligible so the next cycle retries it.
	got, _ := store.Get(context.Background(), due.OrgID, due.ID)
	if got.RemindedAt != nil {
		t.Error("task stamped despite failed delivery")
	}
}

func TestDigestBody_GroupsByTenant(t *testing.T) {
	now := time.Now().UTC()
	earlier := now.Add(-2 * time.Hour)
	orgA, orgB := domain.NewID(), domain.NewID()
	tasks := []domain.Task{
		{OrgID: orgA, Title: "A late", DueAt: &now},
		{OrgID: orgA, Title: "A early", DueAt: &earlier},
		{OrgID: orgB, Title: "B only", DueAt: &now},
	}

	body := digestBody(tasks)
	if !strings.Contains(body, "Tenant ") {
		t.Errorf("multi-tenant digest missing tenant headers: %q", body)
	}
	if strings.Index(body, "A early") > strings.Index(body, "A late") {
		t.Errorf("tasks not ordered by due time: %q", body)
	}

	// A single-tenant digest needs no headers.
	single := digestBody(tasks[:2])
	if strings.Contains(single, "Tenant ") {
		t.Errorf("single-tenant digest has tenant header: %q", single)
	}
}
