package baseline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/starford/algiz/internal/apperr"
	"github.com/starford/algiz/internal/checksum"
	"github.com/starford/algiz/internal/eventlog"
	"github.com/starford/algiz/internal/models"
)

// Digester computes the current digest of a file. ok is false when the file
// cannot be read for any reason.
type Digester interface {
	Digest(path string) (digest string, ok bool)
}

// DigestFunc adapts a function to Digester.
type DigestFunc func(path string) (string, bool)

// Digest calls f(path).
func (f DigestFunc) Digest(path string) (string, bool) { return f(path) }

// FileDigester hashes files from disk with SHA-256.
var FileDigester Digester = DigestFunc(checksum.File)

// Manager establishes the baseline once at startup.
type Manager struct {
	paths  []string
	store  Store
	digest Digester
	events eventlog.Emitter
}

// NewManager returns a Manager for the ordered monitored path set.
func NewManager(paths []string, store Store, digest Digester, events eventlog.Emitter) *Manager {
	return &Manager{
		paths:  append([]string(nil), paths...),
		store:  store,
		digest: digest,
		events: events,
	}
}

// Establish loads the persisted baseline, or computes and persists a fresh one
// when none is persisted or the persisted one is unusable. A loaded baseline
// is trusted as-is. Failures never abort: unreadable paths are skipped and a
// failed save still returns the in-memory baseline. The result may be empty.
func (m *Manager) Establish(ctx context.Context) Baseline {
	m.events.Event(models.LevelInfo, "--- Initializing Baseline ---")

	loaded, err := m.store.Load(ctx)
	switch {
	case err == nil:
		m.events.Event(models.LevelInfo, fmt.Sprintf("Loaded existing baseline from %s.", m.store.Location()))
		return loaded
	case errors.Is(err, apperr.ErrNotFound):
	default:
		m.events.Event(models.LevelError,
			fmt.Sprintf("Failed to load baseline from %s. Creating new baseline. (%v)", m.store.Location(), err))
	}

	fresh := m.compute()

	if err := m.store.Save(ctx, fresh); err != nil {
		m.events.Event(models.LevelError, fmt.Sprintf("Failed to save new baseline: %v", err))
	} else {
		m.events.Event(models.LevelInfo, "New baseline successfully saved.")
	}
	return fresh
}

func (m *Manager) compute() Baseline {
	entries := make([]Entry, 0, len(m.paths))
	for _, p := range m.paths {
		digest, ok := m.digest.Digest(p)
		if !ok {
			m.events.Event(models.LevelWarning, fmt.Sprintf("File not found or inaccessible: %s. Skipping.", p))
			continue
		}
		entries = append(entries, Entry{Path: p, Digest: digest})
		m.events.Event(models.LevelInfo, fmt.Sprintf("Baseline set for %s.", filepath.Base(p)))
	}
	return FromEntries(entries...)
}
