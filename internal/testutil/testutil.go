// Package testutil provides shared test helpers for monitored files, event
// recording and the history database.
package testutil

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/starford/algiz/internal/eventlog"
	"github.com/starford/algiz/internal/history"
	"github.com/starford/algiz/internal/models"
)

// WriteFile writes content to name under dir and returns the full path.
func WriteFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

// TestHistory creates a temporary history database that is automatically cleaned up.
func TestHistory(t *testing.T) *history.DB {
	t.Helper()
	dbFile, err := os.CreateTemp("", "algiz-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })

	db, err := history.Open(dbFile.Name())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// Recorder is an event sink that keeps every event it receives.
type Recorder struct {
	mu     sync.Mutex
	events []models.Event
}

// HandleEvent records ev.
func (r *Recorder) HandleEvent(ev models.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []models.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.Event(nil), r.events...)
}

// Count returns the number of recorded events at level.
func (r *Recorder) Count(level models.Level) int {
	n := 0
	for _, ev := range r.Events() {
		if ev.Level == level {
			n++
		}
	}
	return n
}

// Outcomes returns the outcomes of recorded events that carry one, in order.
func (r *Recorder) Outcomes() []models.Outcome {
	var out []models.Outcome
	for _, ev := range r.Events() {
		if ev.Outcome != "" {
			out = append(out, ev.Outcome)
		}
	}
	return out
}

// NewEvents returns an event logger that writes its log file into a temp
// directory and records every event.
func NewEvents(t *testing.T) (*eventlog.Logger, *Recorder) {
	t.Helper()
	rec := &Recorder{}
	f, err := os.Create(filepath.Join(t.TempDir(), "security_events.log"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { f.Close() })
	return eventlog.New(f, eventlog.WithSink(rec)), rec
}

// CountingDigester wraps a digester and records every path it is asked for.
type CountingDigester struct {
	mu    sync.Mutex
	inner func(path string) (string, bool)
	calls []string
}

// NewCountingDigester wraps inner.
func NewCountingDigester(inner func(path string) (string, bool)) *CountingDigester {
	return &CountingDigester{inner: inner}
}

// Digest records path and delegates.
func (d *CountingDigester) Digest(path string) (string, bool) {
	d.mu.Lock()
	d.calls = append(d.calls, path)
	d.mu.Unlock()
	return d.inner(path)
}

// Calls returns the paths digested so far, in call order.
func (d *CountingDigester) Calls() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.calls...)
}

// Reset forgets recorded calls.
func (d *CountingDigester) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = nil
}
