package observability

import (
	"context"
	"log/slog"
	"time"
)

// Dependency checks share one deadline so a hung database cannot stall the
// readiness probe past the kubelet's own timeout.
const readinessTimeout = 3 * time.Second

// CheckFunc probes one dependency. A nil error means the dependency is
// usable.
type CheckFunc func(ctx context.Context) error

// HealthChecker answers the liveness and readiness probes. Liveness is
// unconditional; readiness degrades when any registered dependency check
// fails. Checks are registered once at startup, before the listener accepts
// traffic.
type HealthChecker struct {
	names  []string
	checks []CheckFunc
	logger *slog.Logger
}

// HealthStatus is the probe response body.
type HealthStatus struct {
	Status string                 `json:"status"` // "ok" or "degraded"
	Checks map[string]CheckResult `json:"checks,omitempty"`
}

// CheckResult reports one dependency's outcome within a readiness response.
type CheckResult struct {
	Status  string `json:"status"`            // "ok" or "fail"
	Message string `json:"message,omitempty"` // failure detail
}

func NewHealthChecker(logger *slog.Logger) *HealthChecker {
	return &HealthChecker{logger: logger}
}

// AddCheck registers a named dependency check. Not safe for concurrent use
// with the probe handlers.
func (h *HealthChecker) AddCheck(name string, check func(ctx context.Context) error) {
	h.names = append(h.names, name)
	h.checks = append(h.checks, check)
}

// CheckHealth reports liveness. A process that can answer is alive, so this
// never consults the dependency checks.
func (h *HealthChecker) CheckHealth() HealthStatus {
	return HealthStatus{Status: "ok"}
}

// CheckReady runs every registered check and aggregates: "ok" only when all
// pass, "degraded" otherwise. With no checks registered it reports "ok".
func (h *HealthChecker) CheckReady(ctx context.Context) HealthStatus {
	if len(h.checks) == 0 {
		return HealthStatus{Status: "ok"}
	}

	ctx, cancel := context.WithTimeout(ctx, readinessTimeout)
	defer cancel()

	out := HealthStatus{
		Status: "ok",
		Checks: make(map[string]CheckResult, len(h.checks)),
	}
	for i, check := range h.checks {
		res := h.probe(ctx, h.names[i], check)
		if res.Status != "ok" {
			out.Status = "degraded"
		}
		out.Checks[h.names[i]] = res
	}
	return out
}

func (h *HealthChecker) probe(ctx context.Context, name string, check CheckFunc) CheckResult {
	err := check(ctx)
	if err == nil {
		return CheckResult{Status: "ok"}
	}
	if h.logger != nil {
		h.logger.Warn("readiness check failed",
			slog.String("check", name),
			slog.String("error", err.Error()),
		)
	}
	return CheckResult{Status: "fail", Message: err.Error()}
}
