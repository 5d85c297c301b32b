package index

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/YauheniMa/witcher-bot/internal/errors"
)

// FileLock guards an on-disk lexical index against a second process
// writing the same directory.
type FileLock struct {
	path   string
	flock  *flock.Flock
	locked bool
}

// NewFileLock creates a lock next to the index at indexPath.
func NewFileLock(indexPath string) *FileLock {
	path := indexPath + ".lock"
	return &FileLock{
		path:  path,
		flock: flock.New(path),
	}
}

// TryLock takes the lock without blocking. It reports false if another
// process holds it.
func (l *FileLock) TryLock() (bool, error) {
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return false, fmt.Errorf("failed to create lock directory: %w", err)
	}

	ok, err := l.flock.TryLock()
	if err != nil {
		return false, fmt.Errorf("failed to try lock: %w", err)
	}
	l.locked = ok
	return ok, nil
}

// Unlock releases the lock. Unlocking an unheld lock is a no-op.
func (l *FileLock) Unlock() error {
	if !l.locked {
		return nil
	}
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	l.locked = false
	return nil
}

// Path returns the lock file path.
func (l *FileLock) Path() string {
	return l.path
}

// IsLocked reports whether this lock is held.
func (l *FileLock) IsLocked() bool {
	return l.locked
}

// acquireIndexLock locks indexPath or fails with ERR_205 when it is busy.
func acquireIndexLock(indexPath string) (*FileLock, error) {
	lock := NewFileLock(indexPath)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, errors.New(errors.ErrCodeIndexStorage, "cannot lock lexical index", err).
			WithDetail("lock", lock.Path())
	}
	if !ok {
		return nil, errors.New(errors.ErrCodeIndexStorage, "lexical index is in use by another process", nil).
			WithDetail("lock", lock.Path()).
			WithSuggestion("Stop the other witcher process or point lexical.index_dir at another directory.")
	}
	return lock, nil
}
