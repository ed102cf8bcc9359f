package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/starford/algiz/internal/baseline"
	"github.com/starford/algiz/internal/checksum"
	"github.com/starford/algiz/internal/models"
	"github.com/starford/algiz/internal/monitor"
	"github.com/starford/algiz/internal/testutil"
)

type fixedStatus monitor.Status

func (s fixedStatus) Status() monitor.Status { return monitor.Status(s) }

type brokenEvents struct{}

func (brokenEvents) Recent(int, models.Level) ([]models.Event, error) {
	return nil, errors.New("database is locked")
}

func testBaseline() baseline.Baseline {
	return baseline.FromEntries(
		baseline.Entry{Path: "/etc/hosts", Digest: checksum.Sum([]byte("hosts"))},
		baseline.Entry{Path: "/etc/passwd", Digest: checksum.Sum([]byte("passwd"))},
	)
}

func testRouter(t *testing.T, token string, events EventSource) http.Handler {
	t.Helper()
	status := fixedStatus{State: models.StateMonitoring, BaselineSize: 2, IntervalSeconds: 5, Cycles: 3}
	h := NewHandler(status, testBaseline(), events)
	return NewRouter(h, token != "", token, nil)
}

func get(t *testing.T, router http.Handler, target string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestStatus(t *testing.T) {
	router := testRouter(t, "", nil)
	w := get(t, router, "/status", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var s monitor.Status
	if err := json.Unmarshal(w.Body.Bytes(), &s); err != nil {
		t.Fatal(err)
	}
	if s.State != models.StateMonitoring || s.Cycles != 3 || s.BaselineSize != 2 {
		t.Errorf("status = %+v", s)
	}
}

func TestBaselineListing(t *testing.T) {
	router := testRouter(t, "", nil)
	w := get(t, router, "/baseline", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp BaselineResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Count != 2 || len(resp.Entries) != 2 {
		t.Fatalf("resp = %+v", resp)
	}
	if resp.Entries[0].Path != "/etc/hosts" || resp.Entries[1].Path != "/etc/passwd" {
		t.Errorf("order = %+v", resp.Entries)
	}
	if len(resp.Fingerprint) != 64 {
		t.Errorf("fingerprint = %q, want a SHA-256 hex digest", resp.Fingerprint)
	}
}

func TestEvents_FromHistory(t *testing.T) {
	db := testutil.TestHistory(t)
	_ = db.Record(models.Event{Time: time.Now(), Level: models.LevelInfo, Message: "Running integrity check..."})
	_ = db.Record(models.Event{Time: time.Now(), Level: models.LevelAlert, Message: "banner", Path: "/etc/hosts"})
	router := testRouter(t, "", db)

	w := get(t, router, "/events?limit=10", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp EventsResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Events) != 2 {
		t.Errorf("events = %d, want 2", len(resp.Events))
	}

	w = get(t, router, "/events?level=alert", nil)
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Events) != 1 || resp.Events[0].Path != "/etc/hosts" {
		t.Errorf("alert filter = %+v", resp.Events)
	}

	w = get(t, router, "/alerts", nil)
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if len(resp.Events) != 1 {
		t.Errorf("alerts = %+v", resp.Events)
	}
}

func TestEvents_UnknownLevel(t *testing.T) {
	router := testRouter(t, "", testutil.TestHistory(t))
	w := get(t, router, "/events?level=panic", nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestEvents_HistoryDisabled(t *testing.T) {
	router := testRouter(t, "", nil)
	w := get(t, router, "/events", nil)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}

func TestEvents_StoreError(t *testing.T) {
	router := testRouter(t, "", brokenEvents{})
	w := get(t, router, "/alerts", nil)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}

func TestAuth(t *testing.T) {
	router := testRouter(t, "s3cret", nil)

	if w := get(t, router, "/status", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("no token: status = %d, want 401", w.Code)
	}
	if w := get(t, router, "/status", map[string]string{"Authorization": "Bearer wrong"}); w.Code != http.StatusUnauthorized {
		t.Errorf("wrong token: status = %d, want 401", w.Code)
	}
	if w := get(t, router, "/status", map[string]string{"Authorization": "Bearer s3cret"}); w.Code != http.StatusOK {
		t.Errorf("valid token: status = %d, want 200", w.Code)
	}
}
