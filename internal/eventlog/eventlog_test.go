package eventlog

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starford/algiz/internal/models"
)

func fixedClock() time.Time {
	return time.Date(2026, 3, 14, 9, 26, 53, 0, time.Local)
}

func TestEvent_WritesTimestampedLine(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, WithClock(fixedClock))

	l.Event(models.LevelInfo, "Running integrity check...")

	want := "[2026-03-14 09:26:53] [INFO] Running integrity check...\n"
	if buf.String() != want {
		t.Errorf("line = %q, want %q", buf.String(), want)
	}
}

func TestAlert_Banner(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, WithClock(fixedClock))

	l.Alert("/etc/hosts", "aaa", models.MissingDigest)

	out := buf.String()
	for _, want := range []string{
		"[ALERT]",
		"!!! CRITICAL INTRUSION ALERT: FILE TAMPERING DETECTED !!!",
		"FILE: /etc/hosts",
		"BASELINE HASH: aaa",
		"CURRENT HASH:  FILE NOT FOUND/INACCESSIBLE",
		"ACTION: System integrity compromised. Monitoring stopped.",
		strings.Repeat("=", 80),
	} {
		if !strings.Contains(out, want) {
			t.Errorf("alert output missing %q:\n%s", want, out)
		}
	}
}

func TestAlert_OutcomeFromDigest(t *testing.T) {
	var got []models.Event
	l := New(nil, WithSink(SinkFunc(func(ev models.Event) { got = append(got, ev) })))

	l.Alert("a", "x", models.MissingDigest)
	l.Alert("b", "x", "y")

	if len(got) != 2 {
		t.Fatalf("events = %d, want 2", len(got))
	}
	if got[0].Outcome != models.OutcomeMissing {
		t.Errorf("outcome[0] = %s, want MISSING", got[0].Outcome)
	}
	if got[1].Outcome != models.OutcomeModified || got[1].CurrentDigest != "y" {
		t.Errorf("event[1] = %+v", got[1])
	}
}

func TestConsoleMirror_DebugSuppressed(t *testing.T) {
	var console bytes.Buffer
	cl := slog.New(slog.NewJSONHandler(&console, &slog.HandlerOptions{
		Level:       slog.LevelInfo,
		ReplaceAttr: ReplaceLevel,
	}))
	l := New(nil, WithConsole(cl))

	l.Event(models.LevelDebug, "File a.txt is OK.")
	if console.Len() != 0 {
		t.Fatalf("debug event reached console: %s", console.String())
	}

	l.Alert("a.txt", "x", "y")
	var rec map[string]any
	if err := json.Unmarshal(console.Bytes(), &rec); err != nil {
		t.Fatalf("console output not JSON: %v (%s)", err, console.String())
	}
	if rec["level"] != "ALERT" {
		t.Errorf("level = %v, want ALERT", rec["level"])
	}
	if rec["path"] != "a.txt" || rec["current_digest"] != "y" {
		t.Errorf("missing alert attrs: %v", rec)
	}
}

func TestSinksReceiveStampedEvents(t *testing.T) {
	var got models.Event
	l := New(nil, WithClock(fixedClock), WithSink(SinkFunc(func(ev models.Event) { got = ev })))

	l.Emit(models.Event{Level: models.LevelDebug, Message: "ok", Path: "p", Outcome: models.OutcomeOK})

	if !got.Time.Equal(fixedClock()) {
		t.Errorf("time = %v, want %v", got.Time, fixedClock())
	}
	if got.Outcome != models.OutcomeOK || got.Path != "p" {
		t.Errorf("event = %+v", got)
	}
}

func TestSlogLevel(t *testing.T) {
	cases := map[models.Level]slog.Level{
		models.LevelDebug:   slog.LevelDebug,
		models.LevelInfo:    slog.LevelInfo,
		models.LevelWarning: slog.LevelWarn,
		models.LevelError:   slog.LevelError,
		models.LevelAlert:   LevelAlert,
	}
	for in, want := range cases {
		if got := SlogLevel(in); got != want {
			t.Errorf("SlogLevel(%s) = %v, want %v", in, got, want)
		}
	}
}

func TestOpenFile_AppendsAcrossInstances(t *testing.T) {
	p := filepath.Join(t.TempDir(), "logs", "security_events.log")

	w := OpenFile(FileConfig{Path: p})
	New(w, WithClock(fixedClock)).Event(models.LevelInfo, "first")
	_ = w.Close()

	w = OpenFile(FileConfig{Path: p})
	New(w, WithClock(fixedClock)).Event(models.LevelWarning, "second")
	_ = w.Close()

	data, err := os.ReadFile(p)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %d, want 2: %q", len(lines), data)
	}
	if !strings.HasSuffix(lines[1], "[WARNING] second") {
		t.Errorf("second line = %q", lines[1])
	}
}
