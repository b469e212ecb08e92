package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/jkaninda/relay/internal/action"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func scopedCtx(orgID uuid.UUID) context.Context {
	return action.WithScope(context.Background(), action.Scope{
		OrgID:  orgID,
		RunID:  uuid.New(),
		UserID: "tester",
	})
}

// fakeAction is a configurable Action for engine tests.
type fakeAction struct {
	name    string
	tier    action.RiskTier
	schema  *action.Schema
	execute func(ctx context.Context, params map[string]any) (*action.Result, error)
	calls   int
}

func (f *fakeAction) Name() string        { return f.name }
func (f *fakeAction) Description() string { return "fake " + f.name }
func (f *fakeAction) Schema() *action.Schema {
	if f.schema != nil {
		return f.schema
	}
	return action.NewSchema()
}
func (f *fakeAction) RiskTier() action.RiskTier { return f.tier }
func (f *fakeAction) Execute(ctx context.Context, params map[string]any) (*action.Result, error) {
	f.calls++
	if f.execute != nil {
		return f.execute(ctx, params)
	}
	return &action.Result{Success: true, Message: f.name + " done"}, nil
}

func newTestRouter(actions ...action.Action) (*Router, *UndoManager) {
	reg := action.NewRegistry()
	for _, a := range actions {
		reg.Register(a)
	}
	undo := NewUndoManager(0, nil, testLogger())
	return NewRouter(reg, undo, nil, testLogger()), undo
}

func TestRouter_UnknownAction(t *testing.T) {
	r, _ := newTestRouter()
	res := r.Dispatch(scopedCtx(uuid.New()), action.Call{Name: "no_such_action"})
	if res.Success {
		t.Fatal("expected failure for unknown action")
	}
	if !strings.Contains(res.Message, "no_such_action") {
		t.Errorf("message should name the action: %q", res.Message)
	}
}

func TestRouter_ValidationFailureSkipsExecutor(t *testing.T) {
	fa := &fakeAction{
		name:   "create_thing",
		tier:   action.TierUndoable,
		schema: action.NewSchema(action.Field{Name: "name", Type: action.TypeString, Required: true}),
	}
	r, _ := newTestRouter(fa)

	res := r.Dispatch(scopedCtx(uuid.New()), action.Call{Name: "create_thing", Params: map[string]any{}})
	if res.Success {
		t.Fatal("expected validation failure")
	}
	if fa.calls != 0 {
		t.Errorf("executor ran %d times despite invalid params", fa.calls)
	}
}

func TestRouter_ApprovalTierNeverExecutes(t *testing.T) {
	fa := &fakeAction{name: "send_thing", tier: action.TierApproval}
	r, _ := newTestRouter(fa)

	res := r.Dispatch(scopedCtx(uuid.New()), action.Call{Name: "send_thing"})
	if !res.Success {
		t.Fatalf("holding for approval is not a failure: %q", res.Message)
	}
	if fa.calls != 0 {
		t.Errorf("tier-2 executor ran %d times from Dispatch", fa.calls)
	}
	if res.Data["requires_approval"] != true {
		t.Errorf("result should flag requires_approval: %v", res.Data)
	}
}

func TestRouter_PanicBecomesFailure(t *testing.T) {
	fa := &fakeAction{
		name: "explode",
		tier: action.TierReadOnly,
		execute: func(context.Context, map[string]any) (*action.Result, error) {
			panic("boom")
		},
	}
	r, _ := newTestRouter(fa)

	res := r.Dispatch(scopedCtx(uuid.New()), action.Call{Name: "explode"})
	if res == nil || res.Success {
		t.Fatal("expected a failure result, not a panic")
	}
	if !strings.Contains(res.Message, "boom") {
		t.Errorf("panic value lost: %q", res.Message)
	}
}

func TestRouter_DomainErrorKeepsMessage(t *testing.T) {
	fa := &fakeAction{
		name: "update_thing",
		tier: action.TierUndoable,
		execute: func(context.Context, map[string]any) (*action.Result, error) {
			return nil, &action.NotFoundError{What: "a contact", Query: "Jane Doe"}
		},
	}
	r, _ := newTestRouter(fa)

	res := r.Dispatch(scopedCtx(uuid.New()), action.Call{Name: "update_thing"})
	if res.Success {
		t.Fatal("expected failure")
	}
	if res.Message != `Could not find a contact named "Jane Doe".` {
		t.Errorf("domain error message mangled: %q", res.Message)
	}
}

func TestRouter_InternalErrorGeneralized(t *testing.T) {
	fa := &fakeAction{
		name: "flaky",
		tier: action.TierReadOnly,
		execute: func(context.Context, map[string]any) (*action.Result, error) {
			return nil, errors.New("connection reset")
		},
	}
	r, _ := newTestRouter(fa)

	res := r.Dispatch(scopedCtx(uuid.New()), action.Call{Name: "flaky"})
	if res.Success {
		t.Fatal("expected failure")
	}
	if !strings.HasPrefix(res.Message, "Action failed:") {
		t.Errorf("internal error not generalized: %q", res.Message)
	}
}

func TestRouter_NilResultIsFailure(t *testing.T) {
	fa := &fakeAction{
		name: "empty",
		tier: action.TierReadOnly,
		execute: func(context.Context, map[string]any) (*action.Result, error) {
			return nil, nil
		},
	}
	r, _ := newTestRouter(fa)

	if res := r.Dispatch(scopedCtx(uuid.New()), action.Call{Name: "empty"}); res.Success {
		t.Fatal("nil result must not be reported as success")
	}
}

func TestRouter_CapturesReversalForUndoableTier(t *testing.T) {
	orgID := uuid.New()
	fa := &fakeAction{
		name: "create_thing",
		tier: action.TierUndoable,
		execute: func(context.Context, map[string]any) (*action.Result, error) {
			return &action.Result{
				Success:  true,
				Reversal: &action.Reversal{Description: "undo it", Apply: func(context.Context) error { return nil }},
			}, nil
		},
	}
	r, undo := newTestRouter(fa)

	if res := r.Dispatch(scopedCtx(orgID), action.Call{Name: "create_thing"}); !res.Success {
		t.Fatalf("dispatch failed: %q", res.Message)
	}
	if ok, _ := undo.CanUndo(orgID); !ok {
		t.Error("reversal was not captured")
	}
}

func TestRouter_ReadOnlyReversalIgnored(t *testing.T) {
	// A tier-0 action claiming a reversal must not populate undo.
	orgID := uuid.New()
	fa := &fakeAction{
		name: "search_thing",
		tier: action.TierReadOnly,
		execute: func(context.Context, map[string]any) (*action.Result, error) {
			return &action.Result{
				Success:  true,
				Reversal: &action.Reversal{Description: "bogus", Apply: func(context.Context) error { return nil }},
			}, nil
		},
	}
	r, undo := newTestRouter(fa)

	r.Dispatch(scopedCtx(orgID), action.Call{Name: "search_thing"})
	if ok, _ := undo.CanUndo(orgID); ok {
		t.Error("read-only action populated undo state")
	}
}
