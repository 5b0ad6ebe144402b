//go:build !unix

package container

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/aimstack/aimstore/pkg/local_storage/common"
	"github.com/aimstack/aimstore/pkg/util"
)

// fileLock is an exclusive lock represented by the existence of the file.
type fileLock struct {
	f    *os.File
	path string
}

// acquireLock creates the lock file exclusively. Returns
// common.ErrWriteLockHeld if the file exists.
func acquireLock(p string, perm fs.FileMode) (*fileLock, error) {
	f, err := os.OpenFile(p, os.O_CREATE|os.O_EXCL|os.O_RDWR, perm)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil, common.ErrWriteLockHeld
		}
		return nil, fmt.Errorf("create lock file: %w", err)
	}

	return &fileLock{f: f, path: p}, nil
}

func (l *fileLock) release() error {
	if err := l.f.Close(); err != nil {
		return err
	}
	return util.RemoveIfExists(l.path)
}
