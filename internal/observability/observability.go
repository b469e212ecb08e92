// Package observability provides Prometheus metrics, OpenTelemetry tracing,
// and health checks for Relay. Tracing is optional and nil-safe; metrics are
// always collected and exposed only when the metrics endpoint is enabled.
package observability

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"github.com/jkaninda/relay/internal/config"
)

// Observability is the top-level facade holding all observability components.
// Tracer may be nil when tracing is disabled.
type Observability struct {
	Metrics *MetricsCollector
	Tracer  *TracerSetup
	Health  *HealthChecker
}

// New creates an Observability instance from config. The config may be nil —
// metrics and health checks are still created so internal accounting works.
func New(cfg *config.ObservabilityConfig, logger *slog.Logger) (*Observability, error) {
	obs := &Observability{
		Metrics: NewMetricsCollector(),
		Health:  NewHealthChecker(logger),
	}

	if cfg != nil && cfg.Tracing != nil && cfg.Tracing.Enabled {
		ts, err := NewTracerSetup(cfg.Tracing)
		if err != nil {
			return nil, fmt.Errorf("initializing tracing: %w", err)
		}
		obs.Tracer = ts
	}

	return obs, nil
}

// Shutdown releases observability resources.
func (o *Observability) Shutdown(ctx context.Context) {
	if o == nil {
		return
	}
	if o.Tracer != nil {
		_ = o.Tracer.Shutdown(ctx)
	}
}

// TracerOrNil returns the OTel tracer, or nil when tracing is disabled so
// the HTTP middleware skips span creation entirely.
func (o *Observability) TracerOrNil() trace.Tracer {
	if o == nil || o.Tracer == nil {
		return nil
	}
	return o.Tracer.Tracer()
}
