// Package contact implements the contact actions: create_contact,
// update_contact, and search_contacts.
package contact

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

// CreateAction inserts a new contact. Tier 1: the reversal deletes it.
type CreateAction struct {
	store  crm.ContactStore
	logger *slog.Logger
}

// NewCreateAction creates the create_contact action.
func NewCreateAction(store crm.ContactStore, logger *slog.Logger) *CreateAction {
	return &CreateAction{store: store, logger: logger}
}

func (a *CreateAction) Name() string { return "create_contact" }
func (a *CreateAction) Description() string {
	return "Create a new contact. Name is required; email, phone, company, and notes are optional."
}
func (a *CreateAction) RiskTier() action.RiskTier { return action.TierUndoable }

func (a *CreateAction) Schema() *action.Schema {
	return action.NewSchema(
		action.Field{Name: "name", Type: action.TypeString, Required: true, MaxLen: 200,
			Description: "Full name of the contact (e.g. 'Jane Doe')"},
		action.Field{Name: "email", Type: action.TypeString, Description: "Email address"},
		action.Field{Name: "phone", Type: action.TypeString, Description: "Phone number in E.164 format"},
		action.Field{Name: "company", Type: action.TypeString, Description: "Company name"},
		action.Field{Name: "notes", Type: action.TypeString, Description: "Free-form notes"},
	)
}

func (a *CreateAction) Execute(ctx context.Context, params map[string]any) (*action.Result, error) {
	scope, ok := action.ScopeFromContext(ctx)
	if !ok {
		return nil, fmt.Errorf("execution scope not available in context")
	}

	now := time.Now().UTC()
	c := &domain.Contact{
		ID:        domain.NewID(),
		OrgID:     scope.OrgID,
		Name:      action.String(params, "name"),
		Email:     action.String(params, "email"),
		Phone:     action.String(params, "phone"),
		Company:   action.String(params, "company"),
		Notes:     action.String(params, "notes"),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := a.store.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("creating contact: %w", err)
	}

	store, orgID, id := a.store, scope.OrgID, c.ID
	return &action.Result{
		Success: true,
		Message: fmt.Sprintf("Created contact %q.", c.Name),
		Data:    map[string]any{"contact_id": c.ID.String()},
		Reversal: &action.Reversal{
			Description: fmt.Sprintf("delete contact %q", c.Name),
			Apply: func(ctx context.Context) error {
				return store.Delete(ctx, orgID, id)
			},
		},
	}, nil
}

// UpdateAction patches fields on a contact resolved by fuzzy name lookup.
// Tier 1: the reversal writes back the pre-mutation field values.
type UpdateAction struct {
	store  crm.ContactStore
	logger *slog.Logger
}

// NewUpdateAction creates the update_contact action.
func NewUpdateAction(store crm.ContactStore, logger *slog.Logger) *UpdateAction {
	return &UpdateAction{store: store, logger: logger}
}

func (a *UpdateAction) Name() string { return "update_contact" }
func (a *UpdateAction) Description() string {
	return "Update an existing contact found by name. When several contacts match, " +
		"the most recently updated one is used. Provide at least one field to change."
}
func (a *UpdateAction) RiskTier() action.RiskTier { return action.TierUndoable }

func (a *UpdateAction) Schema() *action.Schema {
	return action.NewSchema(
		action.Field{Name: "name", Type: action.TypeString, Required: true,
			Description: "Name of the contact to update (substring match, case-insensitive)"},
		action.Field{Name: "email", Type: action.TypeString, Description: "New email address"},
		action.Field{Name: "phone", Type: action.TypeString, Description: "New phone number"},
		action.Field{Name: "company", Type: action.TypeString, Description: "New company name"},
		action.Field{Name: "notes", Type: action.TypeString, Description: "New notes (replaces existing)"},
	)
}

func (a *UpdateAction) Execute(ctx context.Context, params map[string]any) (*action.Result, error) {
	scope, ok := action.ScopeFromContext(ctx)
	if !ok {
		return nil, fmt.Errorf("execution scope not available in context")
	}

	query := action.String(params, "name")
	c, err := a.store.FindByName(ctx, scope.OrgID, query)
	if err != nil {
		if errors.Is(err, crm.ErrNotFound) {
			return nil, &action.NotFoundError{What: "a contact", Query: query}
		}
		return nil, fmt.Errorf("resolving contact: %w", err)
	}
	// The store is tenant-scoped already; re-check before mutating anyway.
	if c.OrgID != scope.OrgID {
		return nil, &action.CrossTenantError{Entity: "contact"}
	}

	prev := *c
	changed := false
	for _, f := range []struct {
		key  string
		dest *string
	}{
		{"email", &c.Email},
		{"phone", &c.Phone},
		{"company", &c.Company},
		{"notes", &c.Notes},
	} {
		if _, present := params[f.key]; present {
			*f.dest = action.String(params, f.key)
			changed = true
		}
	}
	if !changed {
		return action.Failure("Nothing to update: provide at least one of email, phone, company, notes."), nil
	}

	c.UpdatedAt = time.Now().UTC()
	if err := a.store.Update(ctx, c); err != nil {
		return nil, fmt.Errorf("updating contact: %w", err)
	}

	store := a.store
	return &action.Result{
		Success: true,
		Message: fmt.Sprintf("Updated contact %q.", c.Name),
		Data:    map[string]any{"contact_id": c.ID.String()},
		Reversal: &action.Reversal{
			Description: fmt.Sprintf("restore contact %q", prev.Name),
			Apply: func(ctx context.Context) error {
				restore := prev
				return store.Update(ctx, &restore)
			},
		},
	}, nil
}

// SearchAction finds contacts by substring match. Tier 0, read-only.
type SearchAction struct {
	store  crm.ContactStore
	logger *slog.Logger
}

// NewSearchAction creates the search_contacts action.
func NewSearchAction(store crm.ContactStore, logger *slog.Logger) *SearchAction {
	return &SearchAction{store: store, logger: logger}
}

func (a *SearchAction) Name() string { return "search_contacts" }
func (a *SearchAction) Description() string {
	return "Search contacts by name (case-insensitive substring match, most recently updated first)."
}
func (a *SearchAction) RiskTier() action.RiskTier { return action.TierReadOnly }

func (a *SearchAction) Schema() *action.Schema {
	return action.NewSchema(
		action.Field{Name: "query", Type: action.TypeString, Required: true,
			Description: "Name or partial name to search for"},
	)
}

func (a *SearchAction) Execute(ctx context.Context, params map[string]any) (*action.Result, error) {
	scope, ok := action.ScopeFromContext(ctx)
	if !ok {
		return nil, fmt.Errorf("execution scope not available in context")
	}

	query := action.String(params, "query")
	contacts, err := a.store.Search(ctx, scope.OrgID, query, crm.DefaultSearchLimit)
	if err != nil {
		return nil, fmt.Errorf("searching contacts: %w", err)
	}

	items := make([]map[string]any, len(contacts))
	for i, c := range contacts {
		items[i] = map[string]any{
			"id":      c.ID.String(),
			"name":    c.Name,
			"email":   c.Email,
			"phone":   c.Phone,
			"company": c.Company,
		}
	}

	return &action.Result{
		Success: true,
		Message: fmt.Sprintf("Found %d contact(s) matching %q.", len(contacts), query),
		Data:    map[string]any{"contacts": items},
	}, nil
}
