// Package engine implements the action execution pipeline: the dispatch
// router, the run/approval manager, and the undo manager. It is the only
// place where untrusted model-proposed calls are converted into validated,
// risk-gated, reversible state changes.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jkaninda/relay/internal/action"
	"github.com/jkaninda/relay/internal/observability"
)

// Router validates and dispatches a single action call. Nothing thrown
// inside an executor escapes Dispatch — every outcome is a Result.
type Router struct {
	registry *action.Registry
	undo     *UndoManager
	metrics  *observability.MetricsCollector
	logger   *slog.Logger
}

// NewRouter creates a Router over the given registry. The undo manager and
// metrics collector are optional.
func NewRouter(reg *action.Registry, undo *UndoManager, metrics *observability.MetricsCollector, logger *slog.Logger) *Router {
	return &Router{registry: reg, undo: undo, metrics: metrics, logger: logger}
}

// Registry returns the underlying action registry.
func (r *Router) Registry() *action.Registry { return r.registry }

// Dispatch looks up, validates, and risk-gates one call. Tier-0/1 calls
// execute immediately; tier-2 calls are never executed here — the caller
// (RunManager) holds them pending until approval.
func (r *Router) Dispatch(ctx context.Context, call action.Call) *action.Result {
	def := r.registry.Get(call.Name)
	if def == nil {
		return action.Failure("Unknown action: " + call.Name)
	}

	if err := def.Schema().Validate(call.Params); err != nil {
		return action.Failure(err.Error())
	}

	if def.RiskTier() == action.TierApproval {
		return &action.Result{
			Success: true,
			Message: fmt.Sprintf("%s requires approval before it can run.", call.Name),
			Data:    map[string]any{"requires_approval": true},
		}
	}

	return r.Execute(ctx, def, call.Params)
}

// Execute runs an already-validated call with panic recovery and undo
// capture. Used by Dispatch for tier 0/1 and by the RunManager for approved
// tier-2 calls.
func (r *Router) Execute(ctx context.Context, def action.Action, params map[string]any) (res *action.Result) {
	start := time.Now()

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("action executor panicked",
				slog.String("action", def.Name()),
				slog.Any("panic", rec),
			)
			res = action.Failure(fmt.Sprintf("Action failed: %v", rec))
		}
		r.observe(def.Name(), res, time.Since(start))
	}()

	result, err := def.Execute(ctx, params)
	if err != nil {
		return r.failureFor(def.Name(), err)
	}
	if result == nil {
		return action.Failure("Action failed: executor returned no result")
	}

	// Tier-1 success hands its reversal to the undo manager. Tier-2 results
	// are never captured — external communication is irreversible, whatever
	// an executor claims.
	if result.Success && def.RiskTier() == action.TierUndoable && result.Reversal != nil && r.undo != nil {
		if scope, ok := action.ScopeFromContext(ctx); ok {
			r.undo.Capture(scope.OrgID, scope.RunID, result.Reversal)
		}
	}

	return result
}

// failureFor maps the error taxonomy onto caller-facing failure results.
// Domain errors keep their specific, actionable message; anything else is
// treated as an executor fault and generalized.
func (r *Router) failureFor(name string, err error) *action.Result {
	var (
		notFound    *action.NotFoundError
		crossTenant *action.CrossTenantError
		external    *action.ExternalServiceError
		validation  *action.ValidationError
	)
	switch {
	case errors.As(err, &notFound),
		errors.As(err, &crossTenant),
		errors.As(err, &external),
		errors.As(err, &validation):
		return action.Failure(err.Error())
	default:
		r.logger.Error("action execution failed",
			slog.String("action", name),
			slog.String("error", err.Error()),
		)
		return action.Failure("Action failed: " + err.Error())
	}
}

func (r *Router) observe(name string, res *action.Result, elapsed time.Duration) {
	if r.metrics == nil {
		return
	}
	status := "failed"
	if res != nil && res.Success {
		status = "succeeded"
	}
	r.metrics.ActionExecutionsTotal.WithLabelValues(name, status).Inc()
	r.metrics.ActionExecutionDuration.WithLabelValues(name).Observe(elapsed.Seconds())
}
