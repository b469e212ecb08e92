// Package message implements the tier-2 external communication actions:
// send_sms and send_email. These never execute until a human approves the
// run, and are never undoable — a delivered message cannot be recalled.
package message

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jkaninda/relay/internal/action"
	"github.com/jkaninda/relay/internal/crm"
	"github.com/jkaninda/relay/internal/domain"
	"github.com/jkaninda/relay/internal/observability"
	"github.com/jkaninda/relay/internal/outbound"
)

// SendSMSAction delivers a text message through the SMS gateway. Tier 2.
type SendSMSAction struct {
	sender   outbound.Sender
	messages crm.MessageStore
	metrics  *observability.MetricsCollector
	logger   *slog.Logger
}

// NewSendSMSAction creates the send_sms action.
func NewSendSMSAction(sender outbound.Sender, messages crm.MessageStore, metrics *observability.MetricsCollector, logger *slog.Logger) *SendSMSAction {
	return &SendSMSAction{sender: sender, messages: messages, metrics: metrics, logger: logger}
}

func (a *SendSMSAction) Name() string { return "send_sms" }
func (a *SendSMSAction) Description() string {
	return "Send a text message to a phone number. Requires human approval before sending."
}
func (a *SendSMSAction) RiskTier() action.RiskTier { return action.TierApproval }

func (a *SendSMSAction) Schema() *action.Schema {
	return action.NewSchema(
		action.Field{Name: "phone_number", Type: action.TypeString, Required: true,
			Description: "Recipient phone number in E.164 format (e.g. '+15551234567')"},
		action.Field{Name: "message", Type: action.TypeString, Required: true, MaxLen: 1600,
			Description: "Text message body"},
	)
}

func (a *SendSMSAction) Execute(ctx context.Context, params map[string]any) (*action.Result, error) {
	scope, ok := action.ScopeFromContext(ctx)
	if !ok {
		return nil, fmt.Errorf("execution scope not available in context")
	}

	recipient := action.String(params, "phone_number")
	body := action.String(params, "message")

	err := a.sender.Send(ctx, &outbound.Message{Recipient: recipient, Body: body})
	a.record(ctx, scope, recipient, "", body, err)
	if err != nil {
		return nil, &action.ExternalServiceError{Service: "SMS", Err: err}
	}

	return &action.Result{
		Success: true,
		Message: fmt.Sprintf("Sent SMS to %s.", recipient),
	}, nil
}

func (a *SendSMSAction) record(ctx context.Context, scope action.Scope, recipient, subject, body string, sendErr error) {
	recordDelivery(ctx, a.messages, a.metrics, a.logger, scope, "sms", recipient, subject, body, sendErr)
}

// SendEmailAction delivers an email through the SMTP gateway. Tier 2.
type SendEmailAction struct {
	sender   outbound.Sender
	messages crm.MessageStore
	metrics  *observability.MetricsCollector
	logger   *slog.Logger
}

// NewSendEmailAction creates the send_email action.
func NewSendEmailAction(sender outbound.Sender, messages crm.MessageStore, metrics *observability.MetricsCollector, logger *slog.Logger) *SendEmailAction {
	return &SendEmailAction{sender: sender, messages: messages, metrics: metrics, logger: logger}
}

func (a *SendEmailAction) Name() string { return "send_email" }
func (a *SendEmailAction) Description() string {
	return "Send an email. Requires human approval before sending."
}
func (a *SendEmailAction) RiskTier() action.RiskTier { return action.TierApproval }

func (a *SendEmailAction) Schema() *action.Schema {
	return action.NewSchema(
		action.Field{Name: "to", Type: action.TypeString, Required: true,
			Description: "Recipient email address"},
		action.Field{Name: "subject", Type: action.TypeString, Required: true, MaxLen: 200,
			Description: "Email subject line"},
		action.Field{Name: "body", Type: action.TypeString, Required: true,
			Description: "Plain text email body"},
	)
}

func (a *SendEmailAction) Execute(ctx context.Context, params map[string]any) (*action.Result, error) {
	scope, ok := action.ScopeFromContext(ctx)
	if !ok {
		return nil, fmt.Errorf("execution scope not available in context")
	}

	recipient := action.String(params, "to")
	subject := action.String(params, "subject")
	body := action.String(params, "body")

	err := a.sender.Send(ctx, &outbound.Message{Recipient: recipient, Subject: subject, Body: body})
	recordDelivery(ctx, a.messages, a.metrics, a.logger, scope, "email", recipient, subject, body, err)
	if err != nil {
		return nil, &action.ExternalServiceError{Service: "email", Err: err}
	}

	return &action.Result{
		Success: true,
		Message: fmt.Sprintf("Sent email to %s.", recipient),
	}, nil
}

// recordDelivery appends an OutboundMessage audit row for every attempt,
// sent or failed. A failed audit write is logged, never surfaced — the
// delivery outcome is what the caller needs to know.
func recordDelivery(ctx context.Context, messages crm.MessageStore, metrics *observability.MetricsCollector, logger *slog.Logger, scope action.Scope, channel, recipient, subject, body string, sendErr error) {
	now := time.Now().UTC()
	m := &domain.OutboundMessage{
		ID:        domain.NewID(),
		OrgID:     scope.OrgID,
		Channel:   channel,
		Recipient: recipient,
		Subject:   subject,
		Body:      body,
		Status:    "sent",
		SentAt:    &now,
		CreatedAt: now,
	}
	if sendErr != nil {
		m.Status = "failed"
		m.SentAt = nil
	}
	if metrics != nil {
		metrics.OutboundTotal.WithLabelValues(channel, m.Status).Inc()
	}
	if err := messages.Create(ctx, m); err != nil {
		logger.Error("recording outbound message failed",
			slog.String("channel", channel),
			slog.String("error", err.Error()),
		)
	}
}
