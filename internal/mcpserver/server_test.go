package mcpserver

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/algiz/internal/baseline"
	"github.com/starford/algiz/internal/history"
	"github.com/starford/algiz/internal/models"
	"github.com/starford/algiz/internal/monitor"
	"github.com/starford/algiz/internal/testutil"
)

type testEnv struct {
	srv   *Server
	dir   string
	store *baseline.FileStore
	db    *history.DB
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	store := baseline.NewFileStore(filepath.Join(dir, "baseline_hashes.json"))
	db := testutil.TestHistory(t)
	events, _ := testutil.NewEvents(t)
	checker := monitor.New(baseline.FileDigester, events, time.Second)
	return &testEnv{srv: New(store, checker, db, "test"), dir: dir, store: store, db: db}
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	var result *mcp.CallToolResult
	var err error

	switch name {
	case "integrity_status":
		result, err = srv.integrityStatus(ctx, req)
	case "get_baseline":
		result, err = srv.getBaseline(ctx, req)
	case "list_events":
		result, err = srv.listEvents(ctx, req)
	case "list_alerts":
		result, err = srv.listAlerts(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestIntegrityStatus_NoBaseline(t *testing.T) {
	env := newTestEnv(t)
	r := callTool(t, env.srv, "integrity_status", map[string]interface{}{})
	if !r.IsError {
		t.Fatal("expected error without a persisted baseline")
	}
	if !strings.Contains(resultText(r), "no baseline persisted") {
		t.Errorf("text = %q", resultText(r))
	}
}

func TestIntegrityStatus_DetectsModification(t *testing.T) {
	env := newTestEnv(t)
	a := testutil.WriteFile(t, env.dir, "a.txt", "hello")
	b := testutil.WriteFile(t, env.dir, "b.txt", "world")
	events, _ := testutil.NewEvents(t)
	baseline.NewManager([]string{a, b}, env.store, baseline.FileDigester, events).Establish(context.Background())

	r := callTool(t, env.srv, "integrity_status", map[string]interface{}{})
	var report monitor.Report
	if err := json.Unmarshal([]byte(resultText(r)), &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.Intrusion || len(report.Results) != 2 {
		t.Fatalf("clean report = %+v", report)
	}

	_ = os.WriteFile(a, []byte("HELLO"), 0o644)
	r = callTool(t, env.srv, "integrity_status", map[string]interface{}{})
	_ = json.Unmarshal([]byte(resultText(r)), &report)
	if !report.Intrusion || len(report.Results) != 1 || report.Results[0].Outcome != models.OutcomeModified {
		t.Errorf("tampered report = %+v", report)
	}
}

func TestGetBaseline(t *testing.T) {
	env := newTestEnv(t)
	a := testutil.WriteFile(t, env.dir, "a.txt", "hello")
	events, _ := testutil.NewEvents(t)
	baseline.NewManager([]string{a}, env.store, baseline.FileDigester, events).Establish(context.Background())

	r := callTool(t, env.srv, "get_baseline", map[string]interface{}{})
	if !strings.Contains(resultText(r), a) {
		t.Errorf("baseline = %q, want path %s", resultText(r), a)
	}
}

func TestListEventsAndAlerts(t *testing.T) {
	env := newTestEnv(t)
	_ = env.db.Record(models.Event{Level: models.LevelInfo, Message: "Running integrity check..."})
	_ = env.db.Record(models.Event{Level: models.LevelAlert, Message: "banner", Path: "/etc/hosts"})

	r := callTool(t, env.srv, "list_events", map[string]interface{}{"limit": float64(5)})
	var events []models.Event
	if err := json.Unmarshal([]byte(resultText(r)), &events); err != nil {
		t.Fatalf("decode events: %v", err)
	}
	if len(events) != 2 {
		t.Errorf("events = %d, want 2", len(events))
	}

	r = callTool(t, env.srv, "list_alerts", map[string]interface{}{})
	_ = json.Unmarshal([]byte(resultText(r)), &events)
	if len(events) != 1 || events[0].Path != "/etc/hosts" {
		t.Errorf("alerts = %+v", events)
	}

	r = callTool(t, env.srv, "list_events", map[string]interface{}{"level": "bogus"})
	if !r.IsError {
		t.Error("expected error for unknown level")
	}
}

func TestListEvents_HistoryDisabled(t *testing.T) {
	env := newTestEnv(t)
	env.srv.db = nil
	r := callTool(t, env.srv, "list_alerts", map[string]interface{}{})
	if !r.IsError {
		t.Error("expected error when history is disabled")
	}
}
