// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes read-only integrity tools via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/algiz/internal/apperr"
	"github.com/starford/algiz/internal/baseline"
	"github.com/starford/algiz/internal/history"
	"github.com/starford/algiz/internal/models"
	"github.com/starford/algiz/internal/monitor"
)

const defaultLimit = 20

// Server wraps the MCP server with the integrity tools.
type Server struct {
	mcp     *server.MCPServer
	store   baseline.Store
	checker *monitor.Checker
	db      *history.DB
}

// New creates a new MCP server with all tools registered. db may be nil when
// the event history is disabled; the event tools then report an error.
func New(store baseline.Store, checker *monitor.Checker, db *history.DB, version string) *Server {
	s := &Server{store: store, checker: checker, db: db}

	s.mcp = server.NewMCPServer(
		"Algiz",
		version,
		server.WithToolCapabilities(false),
	)

	s.mcp.AddTool(mcp.NewTool("integrity_status",
		mcp.WithDescription("Run one integrity check of the persisted baseline and report the outcome of every "+
			"evaluated file. The check stops at the first modified or missing file."),
	), s.integrityStatus)

	s.mcp.AddTool(mcp.NewTool("get_baseline",
		mcp.WithDescription("Return the persisted baseline: monitored paths and their trusted SHA-256 digests."),
	), s.getBaseline)

	s.mcp.AddTool(mcp.NewTool("list_events",
		mcp.WithDescription("List recent monitor events, newest first."),
		mcp.WithNumber("limit", mcp.Description("Maximum number of events (default 20)")),
		mcp.WithString("level", mcp.Description("Optional level filter: DEBUG, INFO, WARNING, ERROR or ALERT")),
	), s.listEvents)

	s.mcp.AddTool(mcp.NewTool("list_alerts",
		mcp.WithDescription("List recent intrusion alerts, newest first."),
		mcp.WithNumber("limit", mcp.Description("Maximum number of alerts (default 20)")),
	), s.listAlerts)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

func (s *Server) loadBaseline(ctx context.Context) (baseline.Baseline, *mcp.CallToolResult) {
	b, err := s.store.Load(ctx)
	if errors.Is(err, apperr.ErrNotFound) {
		return b, mcp.NewToolResultError(fmt.Sprintf("no baseline persisted at %s", s.store.Location()))
	}
	if err != nil {
		return b, mcp.NewToolResultError(err.Error())
	}
	return b, nil
}

func (s *Server) integrityStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	b, errResult := s.loadBaseline(ctx)
	if errResult != nil {
		return errResult, nil
	}
	report := s.checker.Check(b)
	out, _ := json.MarshalIndent(report, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) getBaseline(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	b, errResult := s.loadBaseline(ctx)
	if errResult != nil {
		return errResult, nil
	}
	out, _ := json.MarshalIndent(b.Entries(), "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listEvents(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	level, ok := models.ParseLevel(req.GetString("level", ""))
	if !ok {
		return mcp.NewToolResultError("unknown level"), nil
	}
	if s.db == nil {
		return mcp.NewToolResultError("event history disabled"), nil
	}
	return listing(s.db.Recent(req.GetInt("limit", defaultLimit), level))
}

func (s *Server) listAlerts(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.db == nil {
		return mcp.NewToolResultError("event history disabled"), nil
	}
	return listing(s.db.Alerts(req.GetInt("limit", defaultLimit)))
}

func listing(events []models.Event, err error) (*mcp.CallToolResult, error) {
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(events) == 0 {
		return mcp.NewToolResultText("no events found"), nil
	}
	out, _ := json.MarshalIndent(events, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}
