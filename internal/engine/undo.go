package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jkaninda/relay/internal/action"
	"github.com/jkaninda/relay/internal/observability"
)

// DefaultUndoWindow is how long a run's reversal data stays valid.
const DefaultUndoWindow = 5 * time.Minute

// undoRecord holds the reversal descriptors captured for one run. Only the
// most recent run per tenant is kept — undo is a single-level affordance.
type undoRecord struct {
	runID      uuid.UUID
	reversals  []*action.Reversal
	validUntil time.Time
}

// UndoManager stores per-tenant reversal data for the most recent run
// containing tier-1 mutations, within a short validity window.
// Thread-safe. Records are consumed on first use and expire silently.
type UndoManager struct {
	mu      sync.Mutex
	latest  map[uuid.UUID]*undoRecord // Keyed by org ID.
	window  time.Duration
	metrics *observability.MetricsCollector
	logger  *slog.Logger
}

// NewUndoManager creates an undo manager with the given validity window.
// A zero window means DefaultUndoWindow.
func NewUndoManager(window time.Duration, metrics *observability.MetricsCollector, logger *slog.Logger) *UndoManager {
	if window <= 0 {
		window = DefaultUndoWindow
	}
	return &UndoManager{
		latest:  make(map[uuid.UUID]*undoRecord),
		window:  window,
		metrics: metrics,
		logger:  logger,
	}
}

// Capture stores a reversal for the given run. Called by the Router after
// each successful tier-1 execution. A capture for a newer run replaces the
// previous run's record; captures within the same run accumulate.
func (m *UndoManager) Capture(orgID, runID uuid.UUID, rev *action.Reversal) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec := m.latest[orgID]
	if rec == nil || rec.runID != runID {
		rec = &undoRecord{runID: runID}
		m.latest[orgID] = rec
	}
	rec.reversals = append(rec.reversals, rev)
	rec.validUntil = time.Now().UTC().Add(m.window)

	m.logger.Debug("undo reversal captured",
		slog.String("org_id", orgID.String()),
		slog.String("run_id", runID.String()),
		slog.String("reversal", rev.Description),
	)
}

// CanUndo reports whether a non-expired undo record exists for the tenant,
// and if so which run it would revert.
func (m *UndoManager) CanUndo(orgID uuid.UUID) (bool, uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rec := m.latest[orgID]
	if rec == nil || time.Now().UTC().After(rec.validUntil) {
		return false, uuid.Nil
	}
	return true, rec.runID
}

// UndoLast reverts the most recent run for the tenant by applying its
// captured reversals in reverse order. The record is consumed on first use.
// An absent or expired record is an explicit failure, not a silent no-op —
// the UI disables its single undo affordance off this message.
func (m *UndoManager) UndoLast(ctx context.Context, orgID uuid.UUID) *action.Result {
	m.mu.Lock()
	rec := m.latest[orgID]
	if rec == nil {
		m.mu.Unlock()
		m.observe("nothing")
		return action.Failure("Nothing to undo.")
	}
	if time.Now().UTC().After(rec.validUntil) {
		delete(m.latest, orgID)
		m.mu.Unlock()
		m.observe("expired")
		return action.Failure("The undo window for the last run has expired.")
	}
	// Consume before applying: a failed reversal must not be retryable with
	// stale pre-images.
	delete(m.latest, orgID)
	m.mu.Unlock()

	reverted := 0
	for i := len(rec.reversals) - 1; i >= 0; i-- {
		rev := rec.reversals[i]
		if err := rev.Apply(ctx); err != nil {
			m.logger.Error("undo reversal failed",
				slog.String("org_id", orgID.String()),
				slog.String("run_id", rec.runID.String()),
				slog.String("reversal", rev.Description),
				slog.String("error", err.Error()),
			)
			m.observe("failed")
			return action.Failure(fmt.Sprintf("Undo failed after reverting %d change(s): %v", reverted, err))
		}
		reverted++
	}

	m.logger.Info("run undone",
		slog.String("org_id", orgID.String()),
		slog.String("run_id", rec.runID.String()),
		slog.Int("reverted", reverted),
	)
	m.observe("succeeded")

	return &action.Result{
		Success: true,
		Message: fmt.Sprintf("Undid the last run: %d change(s) reverted.", reverted),
		Data:    map[string]any{"run_id": rec.runID.String(), "reverted": reverted},
	}
}

// Cleanup removes expired records.
func (m *UndoManager) Cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now().UTC()
	for orgID, rec := range m.latest {
		if now.After(rec.validUntil) {
			delete(m.latest, orgID)
		}
	}
}

// StartCleanup starts a background goroutine that removes expired records
// periodically. Returns a cancel function to stop the goroutine.
func (m *UndoManager) StartCleanup(ctx context.Context, interval time.Duration) func() {
	ctx, cancel := context.WithCancel(ctx)
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				m.Cleanup()
			}
		}
	}()
	return cancel
}

func (m *UndoManager) observe(status string) {
	if m.metrics != nil {
		m.metrics.UndoTotal.WithLabelValues(status).Inc()
	}
}
