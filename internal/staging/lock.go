package staging

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/rs/zerolog/log"

	"github.com/fpang/photo-backup/internal/apierr"
)

// LockPath returns the lock file guarding the staging area. It sits next to
// the directory so clearing the directory does not release it.
func (a *Area) LockPath() string {
	return filepath.Clean(a.dir) + ".lock"
}

// Lock takes an exclusive, cross-process lock on the staging area. It does
// not wait: if another process holds it, Lock returns apierr.ErrBusy. The
// returned func releases the lock.
func (a *Area) Lock() (func() error, error) {
	lockPath := a.LockPath()
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}

	fl := flock.New(lockPath)
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire staging lock %s: %w", lockPath, err)
	}
	if !locked {
		return nil, fmt.Errorf("staging area %s: %w", a.dir, apierr.ErrBusy)
	}
	log.Debug().Str("lock", lockPath).Msg("Staging area locked")

	return func() error {
		if err := fl.Unlock(); err != nil {
			return fmt.Errorf("release staging lock: %w", err)
		}
		return nil
	}, nil
}
