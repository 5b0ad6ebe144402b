package util

import (
	"errors"
	"io/fs"
	"os"
)

// MkdirAllX calls os.MkdirAll with the passed permissions
// but with +x for a user and a group. This makes the created
// dir openable regardless of the passed permissions.
func MkdirAllX(path string, perm os.FileMode) error {
	return os.MkdirAll(path, perm|0110)
}

// RemoveIfExists removes the file ignoring its absence.
func RemoveIfExists(p string) error {
	err := os.Remove(p)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// SyncDir flushes entries of the directory to the disk, so renames and
// removals inside it survive power loss.
func SyncDir(dir string) error {
	f, err := os.Open(dir)
	if err != nil {
		return err
	}

	err = f.Sync()
	if cErr := f.Close(); err == nil {
		err = cErr
	}

	return err
}
