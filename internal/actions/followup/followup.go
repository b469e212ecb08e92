// Package followup implements the schedule_follow_up action: resolve a
// contact by name and create a follow-up task due a number of days from now.
package followup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jkaninda/relay/internal/action"
	"github.com/jkaninda/relay/internal/crm"
	"github.com/jkaninda/relay/internal/domain"
)

// Action schedules a follow-up task linked to a contact. Tier 1.
type Action struct {
	contacts crm.ContactStore
	tasks    crm.TaskStore
	logger   *slog.Logger
}

// New creates the schedule_follow_up action.
func New(contacts crm.ContactStore, tasks crm.TaskStore, logger *slog.Logger) *Action {
	return &Action{contacts: contacts, tasks: tasks, logger: logger}
}

func (a *Action) Name() string { return "schedule_follow_up" }
func (a *Action) Description() string {
	return "Schedule a follow-up with an existing contact: creates a task linked to the " +
		"contact, due the given number of days from now."
}
func (a *Action) RiskTier() action.RiskTier { return action.TierUndoable }

func (a *Action) Schema() *action.Schema {
	return action.NewSchema(
		action.Field{Name: "contact_name", Type: action.TypeString, Required: true,
			Description: "Name of the contact to follow up with (substring match, case-insensitive)"},
		action.Field{Name: "days_from_now", Type: action.TypeInteger, Required: true,
			Description: "How many days from now the follow-up is due"},
		action.Field{Name: "notes", Type: action.TypeString,
			Description: "What the follow-up is about"},
	)
}

func (a *Action) Execute(ctx context.Context, params map[string]any) (*action.Result, error) {
	scope, ok := action.ScopeFromContext(ctx)
	if !ok {
		return nil, fmt.Errorf("execution scope not available in context")
	}

	contactName := action.String(params, "contact_name")
	c, err := a.contacts.FindByName(ctx, scope.OrgID, contactName)
	if err != nil {
		if errors.Is(err, crm.ErrNotFound) {
			return nil, &action.NotFoundError{What: "a contact", Query: contactName}
		}
		return nil, fmt.Errorf("resolving contact: %w", err)
	}
	if c.OrgID != scope.OrgID {
		return nil, &action.CrossTenantError{Entity: "contact"}
	}

	days := action.Integer(params, "days_from_now")
	if days < 0 {
		return action.Failure("days_from_now must not be negative."), nil
	}

	now := time.Now().UTC()
	due := now.AddDate(0, 0, days)
	t := &domain.Task{
		ID:        domain.NewID(),
		OrgID:     scope.OrgID,
		ContactID: &c.ID,
		Title:     fmt.Sprintf("Follow up with %s", c.Name),
		Notes:     action.String(params, "notes"),
		DueAt:     &due,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := a.tasks.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("creating follow-up task: %w", err)
	}

	store, orgID, id := a.tasks, scope.OrgID, t.ID
	return &action.Result{
		Success: true,
		Message: fmt.Sprintf("Scheduled a follow-up with %s for %s.", c.Name, due.Format("Jan 2, 2006")),
		Data: map[string]any{
			"task_id":    t.ID.String(),
			"contact_id": c.ID.String(),
			"due_at":     due.Format(time.RFC3339),
		},
		Reversal: &action.Reversal{
			Description: fmt.Sprintf("delete follow-up task for %q", c.Name),
			Apply: func(ctx context.Context) error {
				return store.Delete(ctx, orgID, id)
			},
		},
	}, nil
}
