package index

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// LockFileName is created inside the index directory and held for the
// lifetime of an Engine.
const LockFileName = ".lock"

// ErrLocked is returned when another process owns the index directory.
var ErrLocked = errors.New("index directory is locked by another process")

// dirLock is a cross-process exclusive lock on an index directory.
type dirLock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

func newDirLock(dir string) *dirLock {
	path := filepath.Join(dir, LockFileName)
	return &dirLock{path: path, flock: flock.New(path)}
}

// tryLock acquires the lock without blocking. It fails with ErrLocked when
// another process holds it.
func (l *dirLock) tryLock() error {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("failed to create lock directory: %w", err)
	}

	acquired, err := l.flock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !acquired {
		return ErrLocked
	}
	l.locked = true
	return nil
}

// unlock releases the lock; calling it again is a no-op.
func (l *dirLock) unlock() error {
	if !l.locked {
		return nil
	}
	l.locked = false
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}
