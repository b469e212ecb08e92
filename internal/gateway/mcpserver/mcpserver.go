// Package mcpserver exposes the action registry over MCP (Model Context
// Protocol) via stdio. Each registered action becomes an MCP tool whose
// description is prefixed with its risk-tier label, so the upstream model
// sees which calls auto-execute and which come back as "approval required".
// Every call flows through the same run pipeline as the HTTP API.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/jkaninda/relay/internal/action"
	"github.com/jkaninda/relay/internal/domain"
	"github.com/jkaninda/relay/internal/engine"
)

// Server wraps an MCP stdio server over the action registry.
type Server struct {
	mcps   *server.MCPServer
	runs   *engine.RunManager
	undo   *engine.UndoManager
	orgID  uuid.UUID
	userID string
	logger *slog.Logger
}

// NewServer builds the MCP server and registers one tool per action, plus
// an undo_last_run tool.
func NewServer(registry *action.Registry, runs *engine.RunManager, undo *engine.UndoManager, orgID uuid.UUID, userID string, logger *slog.Logger) *Server {
	s := &Server{
		mcps:   server.NewMCPServer("relay", "0.1.0"),
		runs:   runs,
		undo:   undo,
		orgID:  orgID,
		userID: userID,
		logger: logger,
	}

	for _, a := range registry.All() {
		s.mcps.AddTool(toolFor(a), s.handlerFor(a.Name()))
	}

	s.mcps.AddTool(
		mcp.NewTool("undo_last_run",
			mcp.WithDescription("[mutation with undo, auto-execute] Revert the changes made by the most recent run, if the undo window has not expired."),
		),
		s.handleUndo,
	)

	return s
}

// ServeStdio blocks serving MCP over stdin/stdout until the stream closes.
func (s *Server) ServeStdio() error {
	s.logger.Info("mcp server starting on stdio")
	return server.ServeStdio(s.mcps)
}

// toolFor converts an action's schema into an MCP tool definition.
func toolFor(a action.Action) mcp.Tool {
	opts := []mcp.ToolOption{
		mcp.WithDescription(fmt.Sprintf("[%s] %s", a.RiskTier().Label(), a.Description())),
	}
	for _, f := range a.Schema().Fields() {
		opts = append(opts, fieldOption(f))
	}
	return mcp.NewTool(a.Name(), opts...)
}

func fieldOption(f action.Field) mcp.ToolOption {
	switch f.Type {
	case action.TypeNumber, action.TypeInteger:
		props := []mcp.PropertyOption{mcp.Description(f.Description)}
		if f.Required {
			props = append(props, mcp.Required())
		}
		return mcp.WithNumber(f.Name, props...)
	case action.TypeBoolean:
		props := []mcp.PropertyOption{mcp.Description(f.Description)}
		if f.Required {
			props = append(props, mcp.Required())
		}
		return mcp.WithBoolean(f.Name, props...)
	default:
		props := []mcp.PropertyOption{mcp.Description(f.Description)}
		if f.Required {
			props = append(props, mcp.Required())
		}
		if len(f.Enum) > 0 {
			props = append(props, mcp.Enum(f.Enum...))
		}
		return mcp.WithString(f.Name, props...)
	}
}

// handlerFor returns an MCP tool handler that submits a single-call run.
func (s *Server) handlerFor(name string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		params := req.GetArguments()
		if params == nil {
			params = map[string]any{}
		}

		s.logger.Info("mcp tool call", slog.String("action", name))

		run, results, err := s.runs.CreateRun(ctx, s.orgID, s.userID, []action.Call{{Name: name, Params: params}})
		if err != nil {
			return nil, fmt.Errorf("executing %s: %w", name, err)
		}

		out := map[string]any{
			"run_id":  run.ID.String(),
			"status":  string(run.Status),
			"message": run.Actions[0].Message,
		}
		if run.Status == domain.RunPendingApproval {
			out["message"] = "Approval required. A human must approve this run before it executes."
		}
		if len(results) > 0 && results[0].Data != nil {
			out["data"] = results[0].Data
		}

		text, err := json.Marshal(out)
		if err != nil {
			return nil, fmt.Errorf("encoding result: %w", err)
		}

		res := mcp.NewToolResultText(string(text))
		res.IsError = run.Actions[0].Status == domain.ActionFailed
		return res, nil
	}
}

func (s *Server) handleUndo(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result := s.undo.UndoLast(ctx, s.orgID)

	out := map[string]any{
		"success": result.Success,
		"message": result.Message,
	}
	if result.Data != nil {
		out["data"] = result.Data
	}

	text, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("encoding result: %w", err)
	}

	res := mcp.NewToolResultText(string(text))
	res.IsError = !result.Success
	return res, nil
}
