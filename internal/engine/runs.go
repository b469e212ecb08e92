package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/jkaninda/relay/internal/action"
	"github.com/jkaninda/relay/internal/domain"
	"github.com/jkaninda/relay/internal/observability"
)

// Event describes a run lifecycle change published to the UI feed.
type Event struct {
	Type             string    `json:"type"` // "run_created", "run_updated", "run_undone".
	RunID            uuid.UUID `json:"run_id"`
	OrgID            uuid.UUID `json:"org_id"`
	Status           string    `json:"status"`
	ActionsSucceeded int       `json:"actions_succeeded"`
	ActionsFailed    int       `json:"actions_failed"`
}

// Events receives run lifecycle events. The WebSocket hub implements it;
// a nil Events on the RunManager disables publishing.
type Events interface {
	Publish(ctx context.Context, evt Event)
}

// RunManager groups one assistant turn's proposed calls into a run, executes
// the auto-executable tiers in order, holds tier-2 calls for approval, and
// aggregates per-call outcomes.
type RunManager struct {
	router  *Router
	runs    RunStore
	events  Events
	metrics *observability.MetricsCollector
	logger  *slog.Logger
}

// NewRunManager creates a RunManager. events and metrics are optional.
func NewRunManager(router *Router, runs RunStore, events Events, metrics *observability.MetricsCollector, logger *slog.Logger) *RunManager {
	return &RunManager{
		router:  router,
		runs:    runs,
		events:  events,
		metrics: metrics,
		logger:  logger,
	}
}

// CreateRun partitions the proposed calls by risk tier, executes tier-0/1
// calls immediately in proposal order, and attaches tier-2 calls pending.
// One failing call never stops its siblings. Returns the run and the
// per-call results in proposal order.
func (m *RunManager) CreateRun(ctx context.Context, orgID uuid.UUID, userID string, calls []action.Call) (*domain.Run, []action.Result, error) {
	if len(calls) == 0 {
		return nil, nil, fmt.Errorf("a run requires at least one action call")
	}

	now := time.Now().UTC()
	run := &domain.Run{
		ID:        domain.NewID(),
		OrgID:     orgID,
		Status:    domain.RunExecuting,
		CreatedAt: now,
		UpdatedAt: now,
	}

	for i, call := range calls {
		tier := 0
		if def := m.router.Registry().Get(call.Name); def != nil {
			tier = int(def.RiskTier())
		}
		run.Actions = append(run.Actions, domain.RunAction{
			ID:       domain.NewID(),
			RunID:    run.ID,
			Seq:      i,
			Name:     call.Name,
			Params:   call.Params,
			RiskTier: tier,
			Status:   domain.ActionPending,
		})
	}

	if err := m.runs.Create(ctx, run); err != nil {
		return nil, nil, fmt.Errorf("creating run: %w", err)
	}

	scope := action.Scope{OrgID: orgID, RunID: run.ID, UserID: userID}
	execCtx := action.WithScope(ctx, scope)

	results := make([]action.Result, len(run.Actions))
	for i := range run.Actions {
		ra := &run.Actions[i]
		res := m.router.Dispatch(execCtx, action.Call{Name: ra.Name, Params: ra.Params})
		results[i] = *res
		if ra.RiskTier == int(action.TierApproval) && heldForApproval(res) {
			// The call passed validation and is gated on approval; its
			// status stays pending rather than becoming an outcome.
			continue
		}
		m.recordOutcome(run, ra, res)
	}

	m.finalize(run)
	if run.Status == domain.RunPendingApproval && m.metrics != nil {
		m.metrics.PendingApprovals.Inc()
	}

	if err := m.runs.Update(ctx, run); err != nil {
		return nil, nil, fmt.Errorf("updating run: %w", err)
	}

	m.logger.Info("run created",
		slog.String("run_id", run.ID.String()),
		slog.String("org_id", orgID.String()),
		slog.String("user_id", userID),
		slog.Int("actions", len(run.Actions)),
		slog.String("status", string(run.Status)),
	)
	m.publish(ctx, run, "run_created")

	return run, results, nil
}

// Approve executes all still-pending tier-2 calls in the run, in their
// original order, then settles the run status. Approving a run with no
// pending calls is a no-op success.
func (m *RunManager) Approve(ctx context.Context, orgID uuid.UUID, userID string, runID uuid.UUID) (*domain.Run, error) {
	run, err := m.runs.Get(ctx, orgID, runID)
	if err != nil {
		return nil, fmt.Errorf("getting run %s: %w", runID, err)
	}

	if !hasPending(run) {
		return run, nil
	}

	wasPending := run.Status == domain.RunPendingApproval
	run.Status = domain.RunExecuting
	scope := action.Scope{OrgID: orgID, RunID: run.ID, UserID: userID}
	execCtx := action.WithScope(ctx, scope)

	for i := range run.Actions {
		ra := &run.Actions[i]
		if ra.Status != domain.ActionPending {
			continue
		}
		def := m.router.Registry().Get(ra.Name)
		if def == nil {
			m.recordOutcome(run, ra, action.Failure("Unknown action: "+ra.Name))
			continue
		}
		// Re-validate: params were stored verbatim at proposal time.
		if verr := def.Schema().Validate(ra.Params); verr != nil {
			m.recordOutcome(run, ra, action.Failure(verr.Error()))
			continue
		}
		res := m.router.Execute(execCtx, def, ra.Params)
		m.recordOutcome(run, ra, res)
	}

	m.finalize(run)
	if wasPending && run.Status != domain.RunPendingApproval && m.metrics != nil {
		m.metrics.PendingApprovals.Dec()
	}
	run.UpdatedAt = time.Now().UTC()

	if err := m.runs.Update(ctx, run); err != nil {
		return nil, fmt.Errorf("updating run: %w", err)
	}

	m.logger.Info("run approved",
		slog.String("run_id", run.ID.String()),
		slog.String("approved_by", userID),
		slog.String("status", string(run.Status)),
	)
	m.publish(ctx, run, "run_updated")

	return run, nil
}

// Discard drops a pending run without executing its held calls. Only a run
// in pending_approval can be discarded; nothing that already executed is
// rolled back here (that is what undo is for).
func (m *RunManager) Discard(ctx context.Context, orgID uuid.UUID, runID uuid.UUID) (*domain.Run, error) {
	run, err := m.runs.Get(ctx, orgID, runID)
	if err != nil {
		return nil, fmt.Errorf("getting run %s: %w", runID, err)
	}
	if run.Status != domain.RunPendingApproval {
		return nil, fmt.Errorf("run %s is %s, only pending runs can be discarded", runID, run.Status)
	}

	for i := range run.Actions {
		if run.Actions[i].Status == domain.ActionPending {
			run.Actions[i].Status = domain.ActionSkipped
			run.Actions[i].Message = "Discarded without executing."
		}
	}
	run.Status = domain.RunDiscarded
	run.UpdatedAt = time.Now().UTC()

	if err := m.runs.Update(ctx, run); err != nil {
		return nil, fmt.Errorf("updating run: %w", err)
	}
	if m.metrics != nil {
		m.metrics.PendingApprovals.Dec()
		m.metrics.RunsTotal.WithLabelValues(string(domain.RunDiscarded)).Inc()
	}
	m.publish(ctx, run, "run_updated")
	return run, nil
}

// Get returns a run within the caller's tenant.
func (m *RunManager) Get(ctx context.Context, orgID, runID uuid.UUID) (*domain.Run, error) {
	return m.runs.Get(ctx, orgID, runID)
}

// NotifyUndone publishes a run_undone event after the undo manager has
// reverted a run. The undo manager itself has no event sink.
func (m *RunManager) NotifyUndone(ctx context.Context, orgID, runID uuid.UUID) {
	if m.events == nil {
		return
	}
	m.events.Publish(ctx, Event{
		Type:   "run_undone",
		RunID:  runID,
		OrgID:  orgID,
		Status: "undone",
	})
}

// recordOutcome applies one dispatch result to the run's aggregates.
func (m *RunManager) recordOutcome(run *domain.Run, ra *domain.RunAction, res *action.Result) {
	ra.Message = res.Message
	if res.Success {
		ra.Status = domain.ActionSucceeded
		run.ActionsSucceeded++
	} else {
		ra.Status = domain.ActionFailed
		run.ActionsFailed++
	}
	if m.metrics != nil {
		m.metrics.RunActionsTotal.WithLabelValues(string(ra.Status)).Inc()
	}
}

// finalize settles the run status from its per-action outcomes.
func (m *RunManager) finalize(run *domain.Run) {
	if hasPending(run) {
		run.Status = domain.RunPendingApproval
		return
	}
	if run.ActionsFailed > 0 {
		run.Status = domain.RunPartiallyFailed
	} else {
		run.Status = domain.RunCompleted
	}
	if m.metrics != nil {
		m.metrics.RunsTotal.WithLabelValues(string(run.Status)).Inc()
	}
}

func (m *RunManager) publish(ctx context.Context, run *domain.Run, eventType string) {
	if m.events == nil {
		return
	}
	m.events.Publish(ctx, Event{
		Type:             eventType,
		RunID:            run.ID,
		OrgID:            run.OrgID,
		Status:           string(run.Status),
		ActionsSucceeded: run.ActionsSucceeded,
		ActionsFailed:    run.ActionsFailed,
	})
}

// heldForApproval reports whether a dispatch result is an approval hold
// rather than a terminal outcome.
func heldForApproval(res *action.Result) bool {
	if res == nil || !res.Success {
		return false
	}
	held, ok := res.Data["requires_approval"].(bool)
	return ok && held
}

func hasPending(run *domain.Run) bool {
	for i := range run.Actions {
		if run.Actions[i].Status == domain.ActionPending {
			return true
		}
	}
	return false
}
