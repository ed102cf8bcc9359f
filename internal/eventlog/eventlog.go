// Package eventlog records monitor events: a timestamped line per event in a
// persistent (rotated) log file, mirrored to the structured console logger and
// fanned out to any registered sinks.
package eventlog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/starford/algiz/internal/models"
)

// LevelAlert is the slog level used for ALERT events; it sorts above ERROR.
const LevelAlert = slog.Level(12)

const timeLayout = "2006-01-02 15:04:05"

var banner = strings.Repeat("=", 80)

// Emitter is the event-logging surface consumed by the monitor components.
type Emitter interface {
	Event(level models.Level, msg string)
	Emit(ev models.Event)
	Alert(path, baselineDigest, currentDigest string)
}

// Sink receives every event after it has been written to the log file.
type Sink interface {
	HandleEvent(ev models.Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ev models.Event)

// HandleEvent calls f(ev).
func (f SinkFunc) HandleEvent(ev models.Event) { f(ev) }

// Logger implements Emitter.
type Logger struct {
	mu      sync.Mutex
	out     io.Writer
	console *slog.Logger
	sinks   []Sink
	now     func() time.Time
}

// Option configures a Logger.
type Option func(*Logger)

// WithConsole mirrors events to l. DEBUG events only reach the console when
// l is enabled for slog.LevelDebug.
func WithConsole(l *slog.Logger) Option {
	return func(lg *Logger) {
		lg.console = l
	}
}

// WithSink registers an additional event sink.
func WithSink(s Sink) Option {
	return func(lg *Logger) {
		if s != nil {
			lg.sinks = append(lg.sinks, s)
		}
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) Option {
	return func(lg *Logger) {
		lg.now = now
	}
}

// New returns a Logger that appends event lines to out. A nil out discards
// the lines but still mirrors and fans out events.
func New(out io.Writer, opts ...Option) *Logger {
	if out == nil {
		out = io.Discard
	}
	l := &Logger{out: out, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Event records msg at level.
func (l *Logger) Event(level models.Level, msg string) {
	l.Emit(models.Event{Level: level, Message: msg})
}

// Alert records a critical intrusion event for path. currentDigest is
// models.MissingDigest when the path could not be read.
func (l *Logger) Alert(path, baselineDigest, currentDigest string) {
	outcome := models.OutcomeModified
	if currentDigest == models.MissingDigest {
		outcome = models.OutcomeMissing
	}
	l.Emit(models.Event{
		Level:          models.LevelAlert,
		Message:        FormatAlert(path, baselineDigest, currentDigest),
		Path:           path,
		Outcome:        outcome,
		BaselineDigest: baselineDigest,
		CurrentDigest:  currentDigest,
	})
}

// Emit writes ev to the log file, mirrors it to the console and hands it to
// every sink. A zero ev.Time is stamped with the current time.
func (l *Logger) Emit(ev models.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if ev.Time.IsZero() {
		ev.Time = l.now()
	}

	if _, err := io.WriteString(l.out, FormatLine(ev)); err != nil && l.console != nil {
		l.console.Error("event log write failed", slog.String("error", err.Error()))
	}

	if l.console != nil {
		l.mirror(ev)
	}

	for _, s := range l.sinks {
		s.HandleEvent(ev)
	}
}

func (l *Logger) mirror(ev models.Event) {
	msg := ev.Message
	attrs := make([]slog.Attr, 0, 4)
	if ev.Path != "" {
		attrs = append(attrs,
			slog.String("path", ev.Path),
			slog.String("outcome", string(ev.Outcome)))
	}
	if ev.Level == models.LevelAlert {
		msg = "intrusion alert"
		attrs = append(attrs,
			slog.String("baseline_digest", ev.BaselineDigest),
			slog.String("current_digest", ev.CurrentDigest))
	}
	l.console.LogAttrs(context.Background(), SlogLevel(ev.Level), msg, attrs...)
}

// FormatLine renders ev as a persistent log line: "[time] [LEVEL] message\n".
func FormatLine(ev models.Event) string {
	return fmt.Sprintf("[%s] [%s] %s\n", ev.Time.Format(timeLayout), ev.Level, ev.Message)
}

// FormatAlert renders the multi-line intrusion banner.
func FormatAlert(path, baselineDigest, currentDigest string) string {
	var b strings.Builder
	b.WriteString("\n" + banner + "\n")
	b.WriteString("!!! CRITICAL INTRUSION ALERT: FILE TAMPERING DETECTED !!!\n")
	fmt.Fprintf(&b, "FILE: %s\n", path)
	fmt.Fprintf(&b, "BASELINE HASH: %s\n", baselineDigest)
	fmt.Fprintf(&b, "CURRENT HASH:  %s\n", currentDigest)
	b.WriteString("ACTION: System integrity compromised. Monitoring stopped.\n")
	b.WriteString(banner + "\n")
	return b.String()
}

// SlogLevel maps an event level onto the console logger's levels.
func SlogLevel(level models.Level) slog.Level {
	switch level {
	case models.LevelDebug:
		return slog.LevelDebug
	case models.LevelWarning:
		return slog.LevelWarn
	case models.LevelError:
		return slog.LevelError
	case models.LevelAlert:
		return LevelAlert
	default:
		return slog.LevelInfo
	}
}

// ReplaceLevel is a slog.HandlerOptions.ReplaceAttr hook that prints
// LevelAlert as "ALERT" instead of "ERROR+4".
func ReplaceLevel(_ []string, a slog.Attr) slog.Attr {
	if a.Key != slog.LevelKey {
		return a
	}
	if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == LevelAlert {
		a.Value = slog.StringValue(string(models.LevelAlert))
	}
	return a
}

// FileConfig describes the rotated persistent log file.
type FileConfig struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// OpenFile returns a rotating append-only writer for c.Path. The file and its
// directory are created on first write.
func OpenFile(c FileConfig) io.WriteCloser {
	return &lumberjack.Logger{
		Filename:   c.Path,
		MaxSize:    c.MaxSizeMB,  // megabytes
		MaxBackups: c.MaxBackups, // files
		MaxAge:     c.MaxAgeDays, // days
		Compress:   c.Compress,
	}
}
