package action

import (
	"context"
	"testing"

	"github.com/google/uuid"
)

// stubAction is a minimal Action for registry tests.
type stubAction struct {
	name string
	tier RiskTier
}

func (s stubAction) Name() string        { return s.name }
func (s stubAction) Description() string { return "stub " + s.name }
func (s stubAction) Schema() *Schema     { return NewSchema() }
func (s stubAction) RiskTier() RiskTier  { return s.tier }
func (s stubAction) Execute(context.Context, map[string]any) (*Result, error) {
	return &Result{Success: true}, nil
}

func TestRegistry_RegistrationOrder(t *testing.T) {
	r := NewRegistry()
	r.Register(stubAction{name: "b_second", tier: TierReadOnly})
	r.Register(stubAction{name: "a_first", tier: TierUndoable})

	all := r.All()
	if len(all) != 2 {
		t.Fatalf("All() = %d actions, want 2", len(all))
	}
	if all[0].Name() != "b_second" || all[1].Name() != "a_first" {
		t.Errorf("catalog order not registration order: %s, %s", all[0].Name(), all[1].Name())
	}
}

func TestRegistry_Get(t *testing.T) {
	r := NewRegistry()
	r.Register(stubAction{name: "create_widget", tier: TierUndoable})

	if got := r.Get("create_widget"); got == nil {
		t.Fatal("Get(create_widget) = nil")
	}
	if got := r.Get("no_such_action"); got != nil {
		t.Errorf("Get(no_such_action) = %v, want nil", got)
	}
}

func TestRegistry_DuplicatePanics(t *testing.T) {
	r := NewRegistry()
	r.Register(stubAction{name: "dup"})

	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on duplicate registration")
		}
	}()
	r.Register(stubAction{name: "dup"})
}

func TestRegistry_Describe(t *testing.T) {
	r := NewRegistry()
	r.Register(stubAction{name: "send_thing", tier: TierApproval})

	entries := r.Describe()
	if len(entries) != 1 {
		t.Fatalf("Describe() = %d entries, want 1", len(entries))
	}
	e := entries[0]
	if e.Name != "send_thing" || e.RiskTier != 2 {
		t.Errorf("unexpected entry: %+v", e)
	}
	if e.RiskLabel != TierApproval.Label() {
		t.Errorf("RiskLabel = %q", e.RiskLabel)
	}
}

func TestRiskTier_Labels(t *testing.T) {
	cases := map[RiskTier]string{
		TierReadOnly: "read-only, auto-execute",
		TierUndoable: "mutation with undo, auto-execute",
		TierApproval: "external communication, requires approval",
		RiskTier(9):  "unknown",
	}
	for tier, want := range cases {
		if got := tier.Label(); got != want {
			t.Errorf("Label(%d) = %q, want %q", tier, got, want)
		}
	}
}

// --- Execution scope ---

func TestScope_RoundTrip(t *testing.T) {
	orgID := uuid.New()
	ctx := WithScope(context.Background(), Scope{OrgID: orgID, RunID: uuid.New(), UserID: "u1"})

	scope, ok := ScopeFromContext(ctx)
	if !ok {
		t.Fatal("ScopeFromContext() ok = false")
	}
	if scope.OrgID != orgID || scope.UserID != "u1" {
		t.Errorf("unexpected scope: %+v", scope)
	}
}

func TestScope_AbsentOrNilOrg(t *testing.T) {
	if _, ok := ScopeFromContext(context.Background()); ok {
		t.Error("expected ok=false without scope")
	}
	ctx := WithScope(context.Background(), Scope{})
	if _, ok := ScopeFromContext(ctx); ok {
		t.Error("expected ok=false for nil org")
	}
}
