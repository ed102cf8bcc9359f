// Package models defines the domain types shared by the monitor components.
package models

import (
	"strings"
	"time"
)

// Level is the severity of a monitor event.
type Level string

// Event levels.
const (
	LevelDebug   Level = "DEBUG"
	LevelInfo    Level = "INFO"
	LevelWarning Level = "WARNING"
	LevelError   Level = "ERROR"
	LevelAlert   Level = "ALERT"
)

// ParseLevel accepts an empty string (no level) or a known level in any case.
func ParseLevel(s string) (Level, bool) {
	if s == "" {
		return "", true
	}
	level := Level(strings.ToUpper(s))
	switch level {
	case LevelDebug, LevelInfo, LevelWarning, LevelError, LevelAlert:
		return level, true
	}
	return "", false
}

// Outcome is the per-path result of one check cycle.
type Outcome string

// Check outcomes.
const (
	OutcomeOK       Outcome = "OK"
	OutcomeModified Outcome = "MODIFIED"
	OutcomeMissing  Outcome = "MISSING"
)

// State is the monitor lifecycle state.
type State string

// Monitor states. StateStarting is only reported before the loop is entered.
const (
	StateStarting   State = "STARTING"
	StateMonitoring State = "MONITORING"
	StateHalted     State = "HALTED"
)

// MissingDigest stands in for the current digest of a path that could not be read.
const MissingDigest = "FILE NOT FOUND/INACCESSIBLE"

// Event is a single entry in the monitor event stream.
type Event struct {
	Time           time.Time `json:"time"`
	Level          Level     `json:"level"`
	Message        string    `json:"message"`
	Path           string    `json:"path,omitempty"`
	Outcome        Outcome   `json:"outcome,omitempty"`
	BaselineDigest string    `json:"baseline_digest,omitempty"`
	CurrentDigest  string    `json:"current_digest,omitempty"`
}

// CheckResult is the evaluated outcome for one path in one cycle.
type CheckResult struct {
	Path           string  `json:"path"`
	Outcome        Outcome `json:"outcome"`
	BaselineDigest string  `json:"baseline_digest"`
	CurrentDigest  string  `json:"current_digest"`
}
