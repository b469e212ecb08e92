package action

import (
	"context"

	"github.com/google/uuid"
)

// Scope carries the caller's tenant and the current run. Constructed per
// call by the engine, never persisted.
type Scope struct {
	OrgID  uuid.UUID
	RunID  uuid.UUID
	UserID string // External caller identity, for logging.
}

// contextKey is an unexported type for context keys defined in this package.
type contextKey int

const scopeKey contextKey = iota

// WithScope returns a new context carrying the execution scope.
// The engine attaches it before every dispatch.
func WithScope(ctx context.Context, s Scope) context.Context {
	return context.WithValue(ctx, scopeKey, s)
}

// ScopeFromContext extracts the execution scope, or ok=false if not set.
// Executors must fail when the scope is absent — there is no default tenant.
func ScopeFromContext(ctx context.Context) (Scope, bool) {
	s, ok := ctx.Value(scopeKey).(Scope)
	return s, ok && s.OrgID != uuid.Nil
}
