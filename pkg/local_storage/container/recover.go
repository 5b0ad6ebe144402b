package container

import (
	"fmt"
	"path/filepath"

	storagelog "github.com/aimstack/aimstore/pkg/local_storage/internal/storagelog"
	"github.com/aimstack/aimstore/pkg/util"
)

// Recover rolls back uncommitted writes of the chunk left by a dead writer:
// the last committed state of the chunk is kept, the progress marker and
// temporary files are removed. Returns true if the chunk was in progress.
//
// Returns common.ErrWriteLockHeld if the chunk has a live writer.
func Recover(path string, opts ...Option) (bool, error) {
	c := defaultCfg()

	for i := range opts {
		opts[i](c)
	}

	if !IsInProgress(path) {
		return false, nil
	}

	if err := util.MkdirAllX(filepath.Dir(LockPath(path)), c.perm); err != nil {
		return false, fmt.Errorf("create locks directory: %w", err)
	}

	lock, err := acquireLock(LockPath(path), c.perm&^0o111)
	if err != nil {
		return false, fmt.Errorf("chunk %s: %w", path, err)
	}

	defer func() { _ = lock.release() }()

	// the writer could commit before the lock was taken
	if !IsInProgress(path) {
		return false, nil
	}

	c.log.Warn("rolling back uncommitted writes of the dead writer",
		storagelog.PathField(path),
	)

	if err := rollback(path); err != nil {
		return false, fmt.Errorf("roll back chunk %s: %w", path, err)
	}

	return true, nil
}

// rollback removes leftovers of the interrupted write session. Must be
// called under the writer lock.
func rollback(path string) error {
	if err := util.RemoveIfExists(commitPath(path)); err != nil {
		return err
	}
	return util.RemoveIfExists(ProgressPath(path))
}
