// Package outbound implements the external communication gateways invoked by
// tier-2 actions after approval: SMS via an HTTP provider API and email via
// SMTP. Delivery failures surface as action.ExternalServiceError so the
// engine reports them as specific, actionable failures.
package outbound

import "context"

// Message is the payload delivered through a sender.
type Message struct {
	Recipient string // Phone number (SMS) or email address.
	Subject   string // Email only; ignored by SMS.
	Body      string
}

// Sender delivers one message through a single channel backend.
type Sender interface {
	// Channel returns the channel identifier ("sms" or "email").
	Channel() string
	// Send delivers the message. Blocking; honors ctx cancellation.
	Send(ctx context.Context, msg *Message) error
}
