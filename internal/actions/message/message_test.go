package message

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"

	"github.com/jkaninda/relay/internal/action"
	"github.com/jkaninda/relay/internal/crm"
	"github.com/jkaninda/relay/internal/outbound"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func scopedCtx(orgID uuid.UUID) context.Context {
	return action.WithScope(context.Background(), action.Scope{OrgID: orgID, RunID: uuid.New(), UserID: "tester"})
}

// fakeSender records sent messages and optionally fails.
type fakeSender struct {
	channel string
	sent    []outbound.Message
	err     error
}

func (f *fakeSender) Channel() string { return f.channel }
func (f *fakeSender) Send(_ context.Context, msg *outbound.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, *msg)
	return nil
}

func TestSendSMS(t *testing.T) {
	mem := crm.NewMemoryStore()
	orgID := uuid.New()
	sender := &fakeSender{channel: "sms"}
	a := NewSendSMSAction(sender, mem.Messages(), nil, testLogger())

	if tier := a.RiskTier(); tier != action.TierApproval {
		t.Fatalf("send_sms tier = %d, must require approval", tier)
	}

	res, err := a.Execute(scopedCtx(orgID), map[string]any{
		"phone_number": "+15551234567",
		"message":      "Your order shipped.",
	})
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if !res.Success {
		t.Fatalf("Execute() failed: %q", res.Message)
	}
	if len(sender.sent) != 1 || sender.sent[0].Recipient != "+15551234567" {
		t.Errorf("sent = %+v", sender.sent)
	}
	if res.Reversal != nil {
		t.Error("a delivered message must never be undoable")
	}

	// Every attempt leaves an audit row.
	msgs, err := mem.Messages().List(context.Background(), orgID, 10)
	if err != nil {
		t.Fatalf("List() error: %v", err)
	}
	if len(msgs) != 1 {
		t.Fatalf("audit rows = %d, want 1", len(msgs))
	}
	m := msgs[0]
	if m.Channel != "sms" || m.Status != "sent" || m.SentAt == nil {
		t.Errorf("audit row = %+v", m)
	}
}

func TestSendSMS_DeliveryFailure(t *testing.T) {
	mem := crm.NewMemoryStore()
	orgID := uuid.New()
	sender := &fakeSender{channel: "sms", err: errors.New("gateway timeout")}
	a := NewSendSMSAction(sender, mem.Messages(), nil, testLogger())

	_, err := a.Execute(scopedCtx(orgID), map[string]any{
		"phone_number": "+15551234567",
		"message":      "hello",
	})
	var ext *action.ExternalServiceError
	if !errors.As(err, &ext) {
		t.Fatalf("expected ExternalServiceError, got %v", err)
	}

	// The failed attempt is audited too, without a sent timestamp.
	msgs, _ := mem.Messages().List(context.Background(), orgID, 10)
	if len(msgs) != 1 {
		t.Fatalf("audit rows = %d, want 1", len(msgs))
	}
	if msgs[0].Status != "failed" || msgs[0].SentAt != nil {
		t.Errorf("audit row = %+v", msgs[0])
	}
}

func TestSendEmail(t *testing.T) {
	mem := crm.NewMemoryStore()
	orgID := uuid.New()
	sender := &fakeSender{channel: "email"}
	a := NewSendEmailAction(sender, mem.Messages(), nil, testLogger())

	if tier := a.RiskTier(); tier != action.TierApproval {
		t.Fatalf("send_email tier = %d, must require approval", tier)
	}

	res, err := a.Execute(scopedCtx(orgID), map[string]any{
		"to":      "client@example.com",
		"subject": "Proposal attached",
		"body":    "Hi, please find the proposal below.",
	})
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if !res.Success {
		t.Fatalf("Execute() failed: %q", res.Message)
	}
	if len(sender.sent) != 1 || sender.sent[0].Subject != "Proposal attached" {
		t.Errorf("sent = %+v", sender.sent)
	}

	msgs, _ := mem.Messages().List(context.Background(), orgID, 10)
	if len(msgs) != 1 || msgs[0].Channel != "email" {
		t.Errorf("audit rows = %+v", msgs)
	}
}

func TestSendEmail_SchemaRequiresAllFields(t *testing.T) {
	a := NewSendEmailAction(&fakeSender{channel: "email"}, crm.NewMemoryStore().Messages(), nil, testLogger())

	err := a.Schema().Validate(map[string]any{"to": "client@example.com"})
	verr, ok := err.(*action.ValidationError)
	if !ok {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(verr.Fields) != 2 {
		t.Errorf("field errors = %d, want 2 (subject, body)", len(verr.Fields))
	}
}
