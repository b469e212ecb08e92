// Package domain defines cross-cutting entity types used across the system.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Org is the tenant boundary. Every entity lookup and mutation is confined
// to a single org; nothing in the engine crosses it.
type Org struct {
	ID        uuid.UUID
	Name      string
	Slug      string
	CreatedAt time.Time
}

// Contact is a person record in the CRM dataset.
type Contact struct {
	ID        uuid.UUID
	OrgID     uuid.UUID
	Name      string
	Email     string
	Phone     string
	Company   string
	Notes     string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Deal is a sales opportunity, optionally linked to a contact.
type Deal struct {
	ID        uuid.UUID
	OrgID     uuid.UUID
	ContactID *uuid.UUID
	Title     string
	Stage     string // "lead", "qualified", "proposal", "won", "lost".
	AmountUSD float64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// DealStages are the stages update_deal_stage accepts.
var DealStages = []string{"lead", "qualified", "proposal", "won", "lost"}

// Task is a to-do item, optionally linked to a contact (e.g. a follow-up).
type Task struct {
	ID          uuid.UUID
	OrgID       uuid.UUID
	ContactID   *uuid.UUID
	Title       string
	Notes       string
	DueAt       *time.Time
	Done        bool
	CompletedAt *time.Time
	RemindedAt  *time.Time // Set once the reminder digest has included this task.
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// OutboundMessage is an append-only record of an external communication
// (SMS or email) sent on behalf of a tenant. Never updated or deleted.
type OutboundMessage struct {
	ID        uuid.UUID
	OrgID     uuid.UUID
	ContactID *uuid.UUID
	Channel   string // "sms" or "email".
	Recipient string // Phone number or email address.
	Subject   string // Email only.
	Body      string
	Status    string // "sent" or "failed".
	SentAt    *time.Time
	CreatedAt time.Time
}

// RunStatus is the lifecycle state of a run.
type RunStatus string

const (
	RunPendingApproval RunStatus = "pending_approval"
	RunExecuting       RunStatus = "executing"
	RunCompleted       RunStatus = "completed"
	RunPartiallyFailed RunStatus = "partially_failed"
	// RunDiscarded marks a pending run dropped before approval. Nothing
	// executed after the discard; already-executed tier-0/1 calls stand.
	RunDiscarded RunStatus = "discarded"
)

// Run groups the action calls proposed in one assistant turn. It is the unit
// of approval, partial-failure reporting, and undo.
type Run struct {
	ID               uuid.UUID
	OrgID            uuid.UUID
	Status           RunStatus
	ActionsSucceeded int
	ActionsFailed    int
	Actions          []RunAction
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// RunActionStatus is the per-call outcome within a run.
type RunActionStatus string

const (
	ActionPending   RunActionStatus = "pending"
	ActionSucceeded RunActionStatus = "succeeded"
	ActionFailed    RunActionStatus = "failed"
	ActionSkipped   RunActionStatus = "skipped"
)

// RunAction is a single proposed action call attached to a run, in proposal
// order. Params are kept verbatim so pending tier-2 calls can be re-executed
// after approval.
type RunAction struct {
	ID       uuid.UUID
	RunID    uuid.UUID
	Seq      int
	Name     string
	Params   map[string]any
	RiskTier int
	Status   RunActionStatus
	Message  string
}

// NewID generates a new random UUID.
func NewID() uuid.UUID {
	return uuid.New()
}
