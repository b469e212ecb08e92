// Package httpapi implements the HTTP API gateway for Relay.
//
// Security:
//   - API key authentication on every request (constant-time comparison)
//   - Request body size limits (default 1 MB)
//   - Per-key rate limiting via token bucket
//   - All requests logged with correlation IDs
//   - TLS expected via reverse proxy (not handled here)
package httpapi

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/trace"

	"github.com/jkaninda/okapi"

	"github.com/jkaninda/relay/internal/action"
	"github.com/jkaninda/relay/internal/crm"
	"github.com/jkaninda/relay/internal/domain"
	"github.com/jkaninda/relay/internal/engine"
	"github.com/jkaninda/relay/internal/observability"
	"github.com/jkaninda/relay/internal/ratelimit"
)

const defaultMaxRequestSize = 1 << 20 // 1 MB

// ErrorBody is the standard error response used in OpenAPI documentation.
type ErrorBody struct {
	Error string `json:"error"`
}

// Config configures the HTTP API gateway.
type Config struct {
	ListenAddr     string // e.g., ":8080"
	EnableDocs     bool
	APIKeys        map[string]string // API key → user ID mapping. Keys from env.
	MaxRequestSize int64             // Maximum request body in bytes. 0 = 1 MB default.

	// Observability
	MetricsRegistry *prometheus.Registry            // Custom Prometheus registry for /metrics.
	MetricsPath     string                          // Path for metrics endpoint. Default: "/metrics".
	HealthChecker   *observability.HealthChecker    // Health checker for /readyz endpoint.
	Metrics         *observability.MetricsCollector // Metrics collector for HTTP middleware.
	Tracer          trace.Tracer                    // OTel tracer for HTTP middleware.
}

// Gateway is the HTTP API gateway. One deployment serves one tenant; the
// org is bootstrapped at startup and every request is scoped to it.
type Gateway struct {
	config   Config
	runs     *engine.RunManager
	undo     *engine.UndoManager
	registry *action.Registry
	orgID    uuid.UUID
	limiter  *ratelimit.Limiter
	logger   *slog.Logger
	server   *http.Server

	// Extra handlers mounted on the HTTP mux (e.g., the WebSocket event feed).
	extraRoutes []extraRoute

	okapi *okapi.Okapi
	group *okapi.Group
}

// extraRoute stores an additional handler to be mounted on the HTTP mux.
type extraRoute struct {
	pattern string
	handler http.Handler
}

// NewGateway creates an HTTP API gateway.
func NewGateway(cfg Config, runs *engine.RunManager, undo *engine.UndoManager, registry *action.Registry, orgID uuid.UUID, rl *ratelimit.Limiter, logger *slog.Logger) *Gateway {
	return &Gateway{
		config:   cfg,
		runs:     runs,
		undo:     undo,
		registry: registry,
		orgID:    orgID,
		limiter:  rl,
		logger:   logger,
		okapi:    okapi.New(okapi.WithMaxMultipartMemory(defaultMaxRequestSize)),
	}
}

// WithHandler mounts an additional handler on the HTTP mux at the given pattern.
// Used for the WebSocket run-event feed.
func (g *Gateway) WithHandler(pattern string, handler http.Handler) *Gateway {
	g.extraRoutes = append(g.extraRoutes, extraRoute{pattern: pattern, handler: handler})
	return g
}

// WithOpenAPIDocs enables the interactive OpenAPI documentation UI.
func (g *Gateway) WithOpenAPIDocs() *Gateway {
	g.okapi.WithOpenAPIDocs(
		okapi.OpenAPI{
			Title:   "Relay",
			Version: "v0.1.0",
		},
	)
	return g
}

// Start launches the HTTP server and blocks until it exits or ctx is canceled.
func (g *Gateway) Start(ctx context.Context) error {
	// Authenticated /v1 group with metrics/tracing middleware.
	g.group = g.okapi.Group("/v1", g.authenticate, observability.MetricsMiddleware(g.config.Metrics, g.config.Tracer))

	g.group.Post("/runs", g.handleRunCreate,
		okapi.DocSummary("Submit a batch of proposed action calls"),
		okapi.DocTags("Runs"),
		okapi.DocRequestBody(RunCreateRequest{}),
		okapi.DocResponse(RunResponse{}),
		okapi.DocResponse(http.StatusAccepted, RunResponse{}),
		okapi.DocResponse(http.StatusBadRequest, ErrorBody{}),
		okapi.DocResponse(http.StatusUnauthorized, ErrorBody{}),
		okapi.DocResponse(http.StatusTooManyRequests, ErrorBody{}),
	)
	g.group.Get("/runs/{id}", g.handleRunGet,
		okapi.DocSummary("Get a run by ID"),
		okapi.DocTags("Runs"),
		okapi.DocPathParam("id", "string", "Run ID (UUID)"),
		okapi.DocResponse(RunResponse{}),
		okapi.DocResponse(http.StatusNotFound, ErrorBody{}),
	)
	g.group.Post("/runs/{id}/approve", g.handleRunApprove,
		okapi.DocSummary("Approve a pending run and execute its held calls"),
		okapi.DocTags("Runs"),
		okapi.DocPathParam("id", "string", "Run ID (UUID)"),
		okapi.DocResponse(RunResponse{}),
		okapi.DocResponse(http.StatusNotFound, ErrorBody{}),
	)
	g.group.Post("/runs/{id}/discard", g.handleRunDiscard,
		okapi.DocSummary("Discard a pending run without executing"),
		okapi.DocTags("Runs"),
		okapi.DocPathParam("id", "string", "Run ID (UUID)"),
		okapi.DocResponse(RunResponse{}),
		okapi.DocResponse(http.StatusConflict, ErrorBody{}),
		okapi.DocResponse(http.StatusNotFound, ErrorBody{}),
	)
	g.group.Post("/undo", g.handleUndo,
		okapi.DocSummary("Undo the last run"),
		okapi.DocTags("Undo"),
		okapi.DocResponse(UndoResponse{}),
	)
	g.group.Get("/undo", g.handleUndoStatus,
		okapi.DocSummary("Check whether the last run can still be undone"),
		okapi.DocTags("Undo"),
		okapi.DocResponse(UndoStatusResponse{}),
	)
	g.group.Get("/actions", g.handleActionCatalog,
		okapi.DocSummary("List registered actions with risk tiers and schemas"),
		okapi.DocTags("Actions"),
		okapi.DocResponse([]ActionCatalogEntry{}),
	)

	// Extra handlers (e.g., WebSocket event feed).
	for _, er := range g.extraRoutes {
		g.okapi.HandleStd("GET", er.pattern, er.handler.ServeHTTP)
	}

	// Observability endpoints (unauthenticated).
	g.okapi.Get("/healthz", g.handleLiveness)
	g.okapi.Get("/readyz", g.handleReadiness)

	if g.config.MetricsRegistry != nil {
		path := g.config.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		g.okapi.HandleStd("GET", path, promhttp.HandlerFor(g.config.MetricsRegistry, promhttp.HandlerOpts{}).ServeHTTP)
	}
	if g.config.EnableDocs {
		g.WithOpenAPIDocs()
	}

	g.server = &http.Server{
		Addr:              g.config.ListenAddr,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	g.logger.Info("http api gateway starting", slog.String("addr", g.config.ListenAddr))

	return g.okapi.StartServer(g.server)
}

// Stop gracefully shuts down the HTTP server.
func (g *Gateway) Stop(_ context.Context) error {
	if g.server == nil {
		return nil
	}
	g.logger.Info("http api gateway stopping")
	return g.okapi.Shutdown(g.server)
}

// --- Handlers ---

// RunCreateRequest is the JSON body for POST /v1/runs.
type RunCreateRequest struct {
	Calls []action.Call `json:"calls"`
}

// RunActionView is one action call's outcome within a run response.
type RunActionView struct {
	Seq       int            `json:"seq"`
	Name      string         `json:"name"`
	RiskTier  int            `json:"risk_tier"`
	RiskLabel string         `json:"risk_label"`
	Status    string         `json:"status"`
	Message   string         `json:"message,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
}

// RunResponse is the JSON representation of a run.
type RunResponse struct {
	ID               string          `json:"id"`
	Status           string          `json:"status"`
	ActionsSucceeded int             `json:"actions_succeeded"`
	ActionsFailed    int             `json:"actions_failed"`
	Actions          []RunActionView `json:"actions"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

func (g *Gateway) handleRunCreate(c *okapi.Context) error {
	userID := c.GetString("userID")

	if g.limiter != nil {
		if err := g.limiter.Allow(userID); err != nil {
			return c.AbortTooManyRequests("rate limit exceeded")
		}
	}

	var req RunCreateRequest
	if err := c.Bind(&req); err != nil {
		return c.AbortBadRequest("invalid request body")
	}
	if len(req.Calls) == 0 {
		return c.AbortBadRequest("calls is required")
	}

	correlationID := newCorrelationID()
	g.logger.Info("http run submit",
		slog.String("user_id", userID),
		slog.String("correlation_id", correlationID),
		slog.Int("calls", len(req.Calls)),
	)

	run, results, err := g.runs.CreateRun(c.Context(), g.orgID, userID, req.Calls)
	if err != nil {
		g.logger.Error("run creation failed",
			slog.String("correlation_id", correlationID),
			slog.String("error", err.Error()),
		)
		return c.AbortInternalServerError("run creation failed")
	}

	resp := toRunResponse(run, results)
	if run.Status == domain.RunPendingApproval {
		return c.JSON(http.StatusAccepted, resp)
	}
	return c.OK(resp)
}

func (g *Gateway) handleRunGet(c *okapi.Context) error {
	runID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.AbortBadRequest("invalid run id")
	}

	run, err := g.runs.Get(c.Context(), g.orgID, runID)
	if err != nil {
		return runError(c, err)
	}
	return c.OK(toRunResponse(run, nil))
}

func (g *Gateway) handleRunApprove(c *okapi.Context) error {
	userID := c.GetString("userID")

	runID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.AbortBadRequest("invalid run id")
	}

	g.logger.Info("http run approve",
		slog.String("user_id", userID),
		slog.String("run_id", runID.String()),
	)

	run, err := g.runs.Approve(c.Context(), g.orgID, userID, runID)
	if err != nil {
		return runError(c, err)
	}
	return c.OK(toRunResponse(run, nil))
}

func (g *Gateway) handleRunDiscard(c *okapi.Context) error {
	userID := c.GetString("userID")

	runID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return c.AbortBadRequest("invalid run id")
	}

	g.logger.Info("http run discard",
		slog.String("user_id", userID),
		slog.String("run_id", runID.String()),
	)

	run, err := g.runs.Discard(c.Context(), g.orgID, runID)
	if err != nil {
		if errors.Is(err, crm.ErrNotFound) {
			return c.JSON(http.StatusNotFound, okapi.M{"error": "run not found"})
		}
		return c.JSON(http.StatusConflict, okapi.M{"error": err.Error()})
	}
	return c.OK(toRunResponse(run, nil))
}

// UndoResponse is the JSON response for POST /v1/undo.
type UndoResponse struct {
	Success bool           `json:"success"`
	Message string         `json:"message"`
	Data    map[string]any `json:"data,omitempty"`
}

func (g *Gateway) handleUndo(c *okapi.Context) error {
	userID := c.GetString("userID")

	if g.limiter != nil {
		if err := g.limiter.Allow(userID); err != nil {
			return c.AbortTooManyRequests("rate limit exceeded")
		}
	}

	res := g.undo.UndoLast(c.Context(), g.orgID)

	if res.Success {
		if id, ok := res.Data["run_id"].(string); ok {
			if runID, err := uuid.Parse(id); err == nil {
				g.runs.NotifyUndone(c.Context(), g.orgID, runID)
			}
		}
	}

	g.logger.Info("http undo",
		slog.String("user_id", userID),
		slog.Bool("success", res.Success),
	)

	return c.OK(UndoResponse{
		Success: res.Success,
		Message: res.Message,
		Data:    res.Data,
	})
}

// UndoStatusResponse is the JSON response for GET /v1/undo.
type UndoStatusResponse struct {
	CanUndo   bool   `json:"can_undo"`
	LastRunID string `json:"last_run_id,omitempty"`
}

func (g *Gateway) handleUndoStatus(c *okapi.Context) error {
	ok, runID := g.undo.CanUndo(g.orgID)
	resp := UndoStatusResponse{CanUndo: ok}
	if ok {
		resp.LastRunID = runID.String()
	}
	return c.OK(resp)
}

// ActionCatalogEntry describes one registered action for clients and the
// upstream model.
type ActionCatalogEntry struct {
	Name        string         `json:"name"`
	RiskTier    int            `json:"risk_tier"`
	RiskLabel   string         `json:"risk_label"`
	Description string         `json:"description"`
	Schema      map[string]any `json:"schema"`
}

func (g *Gateway) handleActionCatalog(c *okapi.Context) error {
	all := g.registry.All()
	out := make([]ActionCatalogEntry, 0, len(all))
	for _, a := range all {
		out = append(out, ActionCatalogEntry{
			Name:        a.Name(),
			RiskTier:    int(a.RiskTier()),
			RiskLabel:   a.RiskTier().Label(),
			Description: a.Description(),
			Schema:      a.Schema().JSONSchema(),
		})
	}
	return c.OK(out)
}

// HealthResponse is the JSON response for the health endpoints.
type HealthResponse struct {
	Status string `json:"status"`
}

// handleLiveness is the Kubernetes liveness probe
func (g *Gateway) handleLiveness(c *okapi.Context) error {
	return c.OK(&HealthResponse{Status: "ok"})
}

// handleReadiness checks all registered dependencies and returns 200 or 503.
func (g *Gateway) handleReadiness(c *okapi.Context) error {
	if g.config.HealthChecker == nil {
		return c.OK(&HealthResponse{Status: "ok"})
	}

	status := g.config.HealthChecker.CheckReady(c.Context())
	code := http.StatusOK
	if status.Status != "ok" {
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, status)
}

// --- Middleware ---

func (g *Gateway) authenticate(next okapi.HandlerFunc) okapi.HandlerFunc {
	return func(c *okapi.Context) error {
		authHeader := c.Header("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			return c.AbortUnauthorized("missing or invalid Authorization header")
		}
		apiKey := strings.TrimPrefix(authHeader, "Bearer ")

		userID := ""
		for key, userId := range g.config.APIKeys {
			if subtle.ConstantTimeCompare([]byte(apiKey), []byte(key)) == 1 {
				userID = userId
			}
		}
		if userID == "" {
			return c.AbortUnauthorized("invalid API key")
		}
		c.Set("userID", userID)
		return next(c)
	}
}

// --- Helpers ---

func toRunResponse(run *domain.Run, results []action.Result) RunResponse {
	actions := make([]RunActionView, 0, len(run.Actions))
	for i := range run.Actions {
		ra := &run.Actions[i]
		view := RunActionView{
			Seq:       ra.Seq,
			Name:      ra.Name,
			RiskTier:  ra.RiskTier,
			RiskLabel: action.RiskTier(ra.RiskTier).Label(),
			Status:    string(ra.Status),
			Message:   ra.Message,
		}
		if results != nil && i < len(results) {
			view.Data = results[i].Data
		}
		actions = append(actions, view)
	}
	return RunResponse{
		ID:               run.ID.String(),
		Status:           string(run.Status),
		ActionsSucceeded: run.ActionsSucceeded,
		ActionsFailed:    run.ActionsFailed,
		Actions:          actions,
		CreatedAt:        run.CreatedAt,
		UpdatedAt:        run.UpdatedAt,
	}
}

// runError maps run lookup errors to appropriate HTTP responses.
func runError(c *okapi.Context, err error) error {
	if errors.Is(err, crm.ErrNotFound) {
		return c.JSON(http.StatusNotFound, okapi.M{"error": "run not found"})
	}
	return c.AbortInternalServerError("run error")
}

func newCorrelationID() string {
	b := make([]byte, 8)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
