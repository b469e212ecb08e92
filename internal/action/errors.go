package action

import "fmt"

// NotFoundError means a fuzzy or id lookup resolved to nothing. The message
// names the search string so the model can correct itself.
type NotFoundError struct {
	What  string // Entity kind, e.g. "a contact", "an open task".
	Ref   string // "named" (default) or "titled".
	Query string // The name/title the caller searched for.
}

func (e *NotFoundError) Error() string {
	ref := e.Ref
	if ref == "" {
		ref = "named"
	}
	return fmt.Sprintf("Could not find %s %s %q.", e.What, ref, e.Query)
}

// CrossTenantError means a resolved entity belongs to a different tenant
// than the caller. This is a hard failure, never a silent fallthrough.
type CrossTenantError struct {
	Entity string
}

func (e *CrossTenantError) Error() string {
	return fmt.Sprintf("%s belongs to a different tenant", e.Entity)
}

// ExternalServiceError wraps a failed outbound call from a tier-2 action.
type ExternalServiceError struct {
	Service string
	Err     error
}

func (e *ExternalServiceError) Error() string {
	return fmt.Sprintf("%s delivery failed: %v", e.Service, e.Err)
}

func (e *ExternalServiceError) Unwrap() error { return e.Err }
