package workdir

import (
	"fmt"
	"path/filepath"

	"github.com/gofrs/flock"

	"niftymic/internal/services"
)

// LockFileName sits in the root, outside every stage subdirectory.
const LockFileName = ".niftymic.lock"

// Lock is an exclusive advisory lock on one working directory.
type Lock struct {
	lock *flock.Flock
}

// Lock acquires the directory lock without blocking. A directory already
// held by another process fails with services.ErrDirectoryBusy.
func (w *WorkingDirectory) Lock() (*Lock, error) {
	path := filepath.Join(w.Root, LockFileName)
	fl := flock.New(path)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", path, err)
	}
	if !ok {
		return nil, services.Wrap(services.ErrDirectoryBusy, stageName, "lock", fmt.Sprintf("%s is in use by another process", w.Root), nil)
	}
	return &Lock{lock: fl}, nil
}

// Unlock releases the lock. It is safe to call on a nil Lock.
func (l *Lock) Unlock() error {
	if l == nil || l.lock == nil {
		return nil
	}
	return l.lock.Unlock()
}
