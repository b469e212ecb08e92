// Package deal implements the deal actions: create_deal, update_deal_stage,
// and search_deals.
package deal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/jkaninda/relay/internal/action"
	"github.com/jkaninda/relay/internal/crm"
	"github.com/jkaninda/relay/internal/domain"
)

// CreateAction inserts a new deal, optionally linked to a contact resolved
// by fuzzy name lookup. Tier 1: the reversal deletes it.
type CreateAction struct {
	deals    crm.DealStore
	contacts crm.ContactStore
	logger   *slog.Logger
}

// NewCreateAction creates the create_deal action.
func NewCreateAction(deals crm.DealStore, contacts crm.ContactStore, logger *slog.Logger) *CreateAction {
	return &CreateAction{deals: deals, contacts: contacts, logger: logger}
}

func (a *CreateAction) Name() string { return "create_deal" }
func (a *CreateAction) Description() string {
	return "Create a new deal. Optionally link it to an existing contact by name."
}
func (a *CreateAction) RiskTier() action.RiskTier { return action.TierUndoable }

func (a *CreateAction) Schema() *action.Schema {
	return action.NewSchema(
		action.Field{Name: "title", Type: action.TypeString, Required: true, MaxLen: 200,
			Description: "Short descriptive title for the deal"},
		action.Field{Name: "amount_usd", Type: action.TypeNumber, Description: "Deal value in USD"},
		action.Field{Name: "stage", Type: action.TypeString, Enum: domain.DealStages,
			Description: "Initial pipeline stage (default: lead)"},
		action.Field{Name: "contact_name", Type: action.TypeString,
			Description: "Name of an existing contact to link the deal to"},
	)
}

func (a *CreateAction) Execute(ctx context.Context, params map[string]any) (*action.Result, error) {
	scope, ok := action.ScopeFromContext(ctx)
	if !ok {
		return nil, fmt.Errorf("execution scope not available in context")
	}

	var contactID *uuid.UUID
	if contactName := action.String(params, "contact_name"); contactName != "" {
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
		contactID = &c.ID
	}

	stage := action.String(params, "stage")
	if stage == "" {
		stage = "lead"
	}

	now := time.Now().UTC()
	d := &domain.Deal{
		ID:        domain.NewID(),
		OrgID:     scope.OrgID,
		ContactID: contactID,
		Title:     action.String(params, "title"),
		Stage:     stage,
		AmountUSD: action.Number(params, "amount_usd"),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := a.deals.Create(ctx, d); err != nil {
		return nil, fmt.Errorf("creating deal: %w", err)
	}

	store, orgID, id := a.deals, scope.OrgID, d.ID
	return &action.Result{
		Success: true,
		Message: fmt.Sprintf("Created deal %q in stage %q.", d.Title, d.Stage),
		Data:    map[string]any{"deal_id": d.ID.String()},
		Reversal: &action.Reversal{
			Description: fmt.Sprintf("delete deal %q", d.Title),
			Apply: func(ctx context.Context) error {
				return store.Delete(ctx, orgID, id)
			},
		},
	}, nil
}

// UpdateStageAction moves a deal resolved by fuzzy title lookup to a new
// stage. Idempotent: a deal already in the target stage reports success
// without touching the row. Tier 1: the reversal restores the prior stage.
type UpdateStageAction struct {
	store  crm.DealStore
	logger *slog.Logger
}

// NewUpdateStageAction creates the update_deal_stage action.
func NewUpdateStageAction(store crm.DealStore, logger *slog.Logger) *UpdateStageAction {
	return &UpdateStageAction{store: store, logger: logger}
}

func (a *UpdateStageAction) Name() string { return "update_deal_stage" }
func (a *UpdateStageAction) Description() string {
	return "Move a deal to a different pipeline stage. The deal is found by title; " +
		"when several match, the most recently updated one is used."
}
func (a *UpdateStageAction) RiskTier() action.RiskTier { return action.TierUndoable }

func (a *UpdateStageAction) Schema() *action.Schema {
	return action.NewSchema(
		action.Field{Name: "title", Type: action.TypeString, Required: true,
			Description: "Title of the deal to move (substring match, case-insensitive)"},
		action.Field{Name: "stage", Type: action.TypeString, Required: true, Enum: domain.DealStages,
			Description: "Target pipeline stage"},
	)
}

func (a *UpdateStageAction) Execute(ctx context.Context, params map[string]any) (*action.Result, error) {
	scope, ok := action.ScopeFromContext(ctx)
	if !ok {
		return nil, fmt.Errorf("execution scope not available in context")
	}

	query := action.String(params, "title")
	d, err := a.store.FindByTitle(ctx, scope.OrgID, query)
	if err != nil {
		if errors.Is(err, crm.ErrNotFound) {
			return nil, &action.NotFoundError{What: "a deal", Ref: "titled", Query: query}
		}
		return nil, fmt.Errorf("resolving deal: %w", err)
	}
	if d.OrgID != scope.OrgID {
		return nil, &action.CrossTenantError{Entity: "deal"}
	}

	stage := action.String(params, "stage")
	if d.Stage == stage {
		return &action.Result{
			Success: true,
			Message: fmt.Sprintf("Deal %q is already in stage %q.", d.Title, stage),
			Data:    map[string]any{"deal_id": d.ID.String()},
		}, nil
	}

	prevStage := d.Stage
	d.Stage = stage
	d.UpdatedAt = time.Now().UTC()
	if err := a.store.Update(ctx, d); err != nil {
		return nil, fmt.Errorf("updating deal: %w", err)
	}

	store, orgID, id := a.store, scope.OrgID, d.ID
	return &action.Result{
		Success: true,
		Message: fmt.Sprintf("Moved deal %q from %q to %q.", d.Title, prevStage, stage),
		Data:    map[string]any{"deal_id": d.ID.String()},
		Reversal: &action.Reversal{
			Description: fmt.Sprintf("restore deal %q to stage %q", d.Title, prevStage),
			Apply: func(ctx context.Context) error {
				cur, err := store.Get(ctx, orgID, id)
				if err != nil {
					return err
				}
				cur.Stage = prevStage
				return store.Update(ctx, cur)
			},
		},
	}, nil
}

// SearchAction finds deals by substring match on title. Tier 0.
type SearchAction struct {
	store  crm.DealStore
	logger *slog.Logger
}

// NewSearchAction creates the search_deals action.
func NewSearchAction(store crm.DealStore, logger *slog.Logger) *SearchAction {
	return &SearchAction{store: store, logger: logger}
}

func (a *SearchAction) Name() string { return "search_deals" }
func (a *SearchAction) Description() string {
	return "Search deals by title (case-insensitive substring match, most recently updated first)."
}
func (a *SearchAction) RiskTier() action.RiskTier { return action.TierReadOnly }

func (a *SearchAction) Schema() *action.Schema {
	return action.NewSchema(
		action.Field{Name: "query", Type: action.TypeString, Required: true,
			Description: "Title or partial title to search for"},
	)
}

func (a *SearchAction) Execute(ctx context.Context, params map[string]any) (*action.Result, error) {
	scope, ok := action.ScopeFromContext(ctx)
	if !ok {
		return nil, fmt.Errorf("execution scope not available in context")
	}

	query := action.String(params, "query")
	deals, err := a.store.Search(ctx, scope.OrgID, query, crm.DefaultSearchLimit)
	if err != nil {
		return nil, fmt.Errorf("searching deals: %w", err)
	}

	items := make([]map[string]any, len(deals))
	for i, d := range deals {
		items[i] = map[string]any{
			"id":         d.ID.String(),
			"title":      d.Title,
			"stage":      d.Stage,
			"amount_usd": d.AmountUSD,
		}
	}

	return &action.Result{
		Success: true,
		Message: fmt.Sprintf("Found %d deal(s) matching %q.", len(deals), query),
		Data:    map[string]any{"deals": items},
	}, nil
}
