//go:build unix

package container

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/aimstack/aimstore/pkg/local_storage/common"
	"github.com/aimstack/aimstore/pkg/util"
	"golang.org/x/sys/unix"
)

// fileLock is an exclusive advisory lock on the file.
type fileLock struct {
	f    *os.File
	path string
}

// acquireLock takes exclusive lock on the file at p without blocking.
// Returns common.ErrWriteLockHeld if the lock is held.
func acquireLock(p string, perm fs.FileMode) (*fileLock, error) {
	for {
		f, err := os.OpenFile(p, os.O_CREATE|os.O_RDWR, perm)
		if err != nil {
			return nil, fmt.Errorf("open lock file: %w", err)
		}

		err = unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
		if err != nil {
			_ = f.Close()

			if errors.Is(err, unix.EWOULDBLOCK) {
				return nil, common.ErrWriteLockHeld
			}

			return nil, fmt.Errorf("flock %s: %w", p, err)
		}

		// previous holder removes the file on release, the lock
		// is valid only if it is still linked at p
		locked, err := f.Stat()
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("stat lock file: %w", err)
		}

		linked, err := os.Stat(p)
		if err == nil && os.SameFile(locked, linked) {
			return &fileLock{f: f, path: p}, nil
		}

		_ = f.Close()

		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("stat lock file: %w", err)
		}
	}
}

// release removes the lock file and unlocks it.
func (l *fileLock) release() error {
	rmErr := util.RemoveIfExists(l.path)
	if err := l.f.Close(); err != nil {
		return err
	}
	return rmErr
}
