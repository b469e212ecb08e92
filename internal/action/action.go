// Package action defines the action interface and registry for Relay.
// Each action declares a parameter schema and a risk tier so the engine can
// validate model-proposed calls and gate them behind approval before execution.
package action

import (
	"context"
	"sync"
)

// RiskTier classifies what the engine may do with an action without a human
// in the loop.
type RiskTier int

const (
	// TierReadOnly actions mutate nothing and auto-execute.
	TierReadOnly RiskTier = 0
	// TierUndoable actions mutate tenant data, auto-execute, and capture a
	// reversal so the run can be undone within the undo window.
	TierUndoable RiskTier = 1
	// TierApproval actions reach outside the system (SMS, email) and never
	// execute until a human approves the run.
	TierApproval RiskTier = 2
)

// Label returns the human-readable tier label shown in the action catalog.
func (t RiskTier) Label() string {
	switch t {
	case TierReadOnly:
		return "read-only, auto-execute"
	case TierUndoable:
		return "mutation with undo, auto-execute"
	case TierApproval:
		return "external communication, requires approval"
	default:
		return "unknown"
	}
}

// Action is the interface all Relay actions must implement.
type Action interface {
	// Name returns the action's unique identifier (e.g. "create_contact").
	Name() string

	// Description returns a human-readable description. This is the only
	// capability discovery mechanism the upstream model sees.
	Description() string

	// Schema returns the declarative parameter schema used for validation
	// and for rendering the JSON Schema in the catalog.
	Schema() *Schema

	// RiskTier returns the action's risk classification.
	RiskTier() RiskTier

	// Execute runs the action with validated parameters. The execution scope
	// (tenant, run) is carried on ctx. Implementations return domain failures
	// as a Result with Success=false; an error return is reserved for faults
	// the router converts at its boundary.
	Execute(ctx context.Context, params map[string]any) (*Result, error)
}

// Result is the outcome of an action execution. It always crosses the engine
// boundary in place of an error or panic.
type Result struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`

	// Reversal is set by tier-1 actions on success when the mutation can be
	// undone. The engine stores it opaquely; it never inspects the business
	// meaning of the reversal.
	Reversal *Reversal `json:"-"`
}

// Reversal is a command-pattern descriptor captured by the undo manager.
// Apply re-writes the pre-mutation state (or applies the inverse operation).
type Reversal struct {
	Description string
	Apply       func(ctx context.Context) error
}

// Failure builds a failed result with the given message.
func Failure(message string) *Result {
	return &Result{Success: false, Message: message}
}

// Call is a raw action call proposed by the upstream model. Ephemeral —
// never persisted standalone, only as part of a run.
type Call struct {
	Name   string         `json:"name"`
	Params map[string]any `json:"params"`
}

// CatalogEntry describes one registered action for model introspection.
type CatalogEntry struct {
	Name        string `json:"name"`
	RiskTier    int    `json:"risk_tier"`
	RiskLabel   string `json:"risk_label"`
	Description string `json:"description"`
}

// Registry holds available actions keyed by name.
// Thread-safe for concurrent reads; writes should only happen at startup.
type Registry struct {
	mu      sync.RWMutex
	actions map[string]Action
	order   []string // Registration order, for stable catalog output.
}

// NewRegistry creates an empty action registry.
func NewRegistry() *Registry {
	return &Registry{actions: make(map[string]Action)}
}

// Register adds an action. Panics on duplicate names (startup config error,
// not a runtime condition).
func (r *Registry) Register(a Action) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.actions[a.Name()]; exists {
		panic("duplicate action registration: " + a.Name())
	}
	r.actions[a.Name()] = a
	r.order = append(r.order, a.Name())
}

// Get returns the action by name, or nil if not found.
func (r *Registry) Get(name string) Action {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.actions[name]
}

// All returns all registered actions in registration order.
func (r *Registry) All() []Action {
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]Action, 0, len(r.order))
	for _, name := range r.order {
		result = append(result, r.actions[name])
	}
	return result
}

// Describe returns catalog entries for every registered action.
func (r *Registry) Describe() []CatalogEntry {
	all := r.All()
	entries := make([]CatalogEntry, len(all))
	for i, a := range all {
		entries[i] = CatalogEntry{
			Name:        a.Name(),
			RiskTier:    int(a.RiskTier()),
			RiskLabel:   a.RiskTier().Label(),
			Description: a.Description(),
		}
	}
	return entries
}
