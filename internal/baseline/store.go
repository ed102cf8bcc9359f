package baseline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/starford/algiz/internal/apperr"
	"github.com/starford/algiz/internal/storage"
)

const (
	lockTimeout    = 10 * time.Second
	lockRetryDelay = 100 * time.Millisecond
)

// Store persists a baseline between runs.
type Store interface {
	// Load returns the persisted baseline. It returns apperr.ErrNotFound when
	// nothing has been persisted and wraps apperr.ErrCorruptBaseline when the
	// stored data is not a well-formed baseline.
	Load(ctx context.Context) (Baseline, error)
	// Save persists b, replacing any previous baseline.
	Save(ctx context.Context, b Baseline) error
	// Location describes where the baseline lives, for log messages.
	Location() string
}

// FileStore keeps the baseline as a JSON file. Access is serialised across
// processes with an advisory lock on "<path>.lock".
type FileStore struct {
	path string
}

// NewFileStore returns a FileStore for path.
func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Location returns the baseline file path.
func (s *FileStore) Location() string {
	return s.path
}

// Load reads and decodes the baseline file under a shared lock.
func (s *FileStore) Load(ctx context.Context) (Baseline, error) {
	if _, err := os.Stat(s.path); errors.Is(err, fs.ErrNotExist) {
		return Baseline{}, apperr.ErrNotFound
	}

	unlock, err := s.lock(ctx, true)
	if err != nil {
		return Baseline{}, err
	}
	defer unlock()

	data, err := storage.Read(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Baseline{}, apperr.ErrNotFound
		}
		return Baseline{}, fmt.Errorf("baseline: load: %w", err)
	}

	var b Baseline
	if err := json.Unmarshal(data, &b); err != nil {
		if errors.Is(err, apperr.ErrCorruptBaseline) {
			return Baseline{}, err
		}
		return Baseline{}, fmt.Errorf("baseline: load: %v: %w", err, apperr.ErrCorruptBaseline)
	}
	return b, nil
}

// Save encodes b and writes it atomically under an exclusive lock.
func (s *FileStore) Save(ctx context.Context, b Baseline) error {
	data, err := b.Encode()
	if err != nil {
		return fmt.Errorf("baseline: encode: %w", err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("baseline: mkdir: %w", err)
	}

	unlock, err := s.lock(ctx, false)
	if err != nil {
		return err
	}
	defer unlock()

	if err := storage.WriteAtomic(s.path, data, 0o644); err != nil {
		return fmt.Errorf("baseline: save: %w", err)
	}
	return nil
}

func (s *FileStore) lock(ctx context.Context, shared bool) (func(), error) {
	fileLock := flock.New(s.path + ".lock")
	lockCtx, cancel := context.WithTimeout(ctx, lockTimeout)
	defer cancel()

	var (
		locked bool
		err    error
	)
	if shared {
		locked, err = fileLock.TryRLockContext(lockCtx, lockRetryDelay)
	} else {
		locked, err = fileLock.TryLockContext(lockCtx, lockRetryDelay)
	}
	if err != nil {
		return nil, fmt.Errorf("baseline: lock %s: %w", fileLock.Path(), err)
	}
	if !locked {
		return nil, fmt.Errorf("baseline: timed out locking %s", fileLock.Path())
	}
	return func() { _ = fileLock.Unlock() }, nil
}
