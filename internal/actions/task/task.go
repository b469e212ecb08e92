// Package task implements the task actions: create_task, complete_task, and
// search_tasks.
package task

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

// CreateAction inserts a new task with an optional due date. Tier 1.
type CreateAction struct {
	store  crm.TaskStore
	logger *slog.Logger
}

// NewCreateAction creates the create_task action.
func NewCreateAction(store crm.TaskStore, logger *slog.Logger) *CreateAction {
	return &CreateAction{store: store, logger: logger}
}

func (a *CreateAction) Name() string { return "create_task" }
func (a *CreateAction) Description() string {
	return "Create a to-do task with an optional due date expressed as days from now."
}
func (a *CreateAction) RiskTier() action.RiskTier { return action.TierUndoable }

func (a *CreateAction) Schema() *action.Schema {
	return action.NewSchema(
		action.Field{Name: "title", Type: action.TypeString, Required: true, MaxLen: 200,
			Description: "Short descriptive title for the task"},
		action.Field{Name: "notes", Type: action.TypeString, Description: "Free-form notes"},
		action.Field{Name: "due_in_days", Type: action.TypeInteger,
			Description: "Days from now the task is due (omit for no due date)"},
	)
}

func (a *CreateAction) Execute(ctx context.Context, params map[string]any) (*action.Result, error) {
	scope, ok := action.ScopeFromContext(ctx)
	if !ok {
		return nil, fmt.Errorf("execution scope not available in context")
	}

	now := time.Now().UTC()
	t := &domain.Task{
		ID:        domain.NewID(),
		OrgID:     scope.OrgID,
		Title:     action.String(params, "title"),
		Notes:     action.String(params, "notes"),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, present := params["due_in_days"]; present {
		due := now.AddDate(0, 0, action.Integer(params, "due_in_days"))
		t.DueAt = &due
	}

	if err := a.store.Create(ctx, t); err != nil {
		return nil, fmt.Errorf("creating task: %w", err)
	}

	store, orgID, id := a.store, scope.OrgID, t.ID
	return &action.Result{
		Success: true,
		Message: fmt.Sprintf("Created task %q.", t.Title),
		Data:    map[string]any{"task_id": t.ID.String()},
		Reversal: &action.Reversal{
			Description: fmt.Sprintf("delete task %q", t.Title),
			Apply: func(ctx context.Context) error {
				return store.Delete(ctx, orgID, id)
			},
		},
	}, nil
}

// CompleteAction marks an open task done, resolved by fuzzy title lookup.
// Idempotent: completing an already-done task reports success without
// touching the row. Tier 1: the reversal reopens the task.
type CompleteAction struct {
	store  crm.TaskStore
	logger *slog.Logger
}

// NewCompleteAction creates the complete_task action.
func NewCompleteAction(store crm.TaskStore, logger *slog.Logger) *CompleteAction {
	return &CompleteAction{store: store, logger: logger}
}

func (a *CompleteAction) Name() string { return "complete_task" }
func (a *CompleteAction) Description() string {
	return "Mark an open task as complete. The task is found by title; when several " +
		"match, the most recently updated one is used."
}
func (a *CompleteAction) RiskTier() action.RiskTier { return action.TierUndoable }

func (a *CompleteAction) Schema() *action.Schema {
	return action.NewSchema(
		action.Field{Name: "title", Type: action.TypeString, Required: true,
			Description: "Title of the task to complete (substring match, case-insensitive)"},
	)
}

func (a *CompleteAction) Execute(ctx context.Context, params map[string]any) (*action.Result, error) {
	scope, ok := action.ScopeFromContext(ctx)
	if !ok {
		return nil, fmt.Errorf("execution scope not available in context")
	}

	query := action.String(params, "title")
	t, err := a.store.FindOpenByTitle(ctx, scope.OrgID, query)
	if err != nil {
		if !errors.Is(err, crm.ErrNotFound) {
			return nil, fmt.Errorf("resolving task: %w", err)
		}
		// No open task matched. Check completed ones before failing so the
		// action stays idempotent when called twice on the same task.
		done, derr := a.store.Search(ctx, scope.OrgID, query, true, 1)
		if derr == nil && len(done) > 0 && done[0].Done {
			return &action.Result{
				Success: true,
				Message: fmt.Sprintf("Task %q was already complete.", done[0].Title),
				Data:    map[string]any{"task_id": done[0].ID.String()},
			}, nil
		}
		return nil, &action.NotFoundError{What: "an open task", Ref: "titled", Query: query}
	}
	if t.OrgID != scope.OrgID {
		return nil, &action.CrossTenantError{Entity: "task"}
	}

	now := time.Now().UTC()
	t.Done = true
	t.CompletedAt = &now
	t.UpdatedAt = now
	if err := a.store.Update(ctx, t); err != nil {
		return nil, fmt.Errorf("completing task: %w", err)
	}

	store, orgID, id := a.store, scope.OrgID, t.ID
	return &action.Result{
		Success: true,
		Message: fmt.Sprintf("Completed task %q.", t.Title),
		Data:    map[string]any{"task_id": t.ID.String()},
		Reversal: &action.Reversal{
			Description: fmt.Sprintf("reopen task %q", t.Title),
			Apply: func(ctx context.Context) error {
				cur, err := store.Get(ctx, orgID, id)
				if err != nil {
					return err
				}
				cur.Done = false
				cur.CompletedAt = nil
				return store.Update(ctx, cur)
			},
		},
	}, nil
}

// SearchAction finds tasks by substring match on title. Tier 0.
type SearchAction struct {
	store  crm.TaskStore
	logger *slog.Logger
}

// NewSearchAction creates the search_tasks action.
func NewSearchAction(store crm.TaskStore, logger *slog.Logger) *SearchAction {
	return &SearchAction{store: store, logger: logger}
}

func (a *SearchAction) Name() string { return "search_tasks" }
func (a *SearchAction) Description() string {
	return "Search tasks by title (case-insensitive substring match, most recently updated first). " +
		"Open tasks only unless include_done is true."
}
func (a *SearchAction) RiskTier() action.RiskTier { return action.TierReadOnly }

func (a *SearchAction) Schema() *action.Schema {
	return action.NewSchema(
		action.Field{Name: "query", Type: action.TypeString, Required: true,
			Description: "Title or partial title to search for"},
		action.Field{Name: "include_done", Type: action.TypeBoolean,
			Description: "Include completed tasks (default: false)"},
	)
}

func (a *SearchAction) Execute(ctx context.Context, params map[string]any) (*action.Result, error) {
	scope, ok := action.ScopeFromContext(ctx)
	if !ok {
		return nil, fmt.Errorf("execution scope not available in context")
	}

	query := action.String(params, "query")
	includeDone := action.Boolean(params, "include_done", false)
	tasks, err := a.store.Search(ctx, scope.OrgID, query, includeDone, crm.DefaultSearchLimit)
	if err != nil {
		return nil, fmt.Errorf("searching tasks: %w", err)
	}

	items := make([]map[string]any, len(tasks))
	for i, t := range tasks {
		item := map[string]any{
			"id":    t.ID.String(),
			"title": t.Title,
			"done":  t.Done,
		}
		if t.DueAt != nil {
			item["due_at"] = t.DueAt.Format(time.RFC3339)
		}
		items[i] = item
	}

	return &action.Result{
		Success: true,
		Message: fmt.Sprintf("Found %d task(s) matching %q.", len(tasks), query),
		Data:    map[string]any{"tasks": items},
	}, nil
}
