package container

import (
	"os"
	"path/filepath"
	"strings"
)

// Directory names of the container layout.
const (
	ChunksDir   = "chunks"
	LocksDir    = "locks"
	ProgressDir = "progress"
)

// commitSuffix is a suffix of the temporary file written during commit.
const commitSuffix = ".commit"

// LockPath returns path of the writer lock file of the chunk.
func LockPath(chunkPath string) string {
	return siblingPath(chunkPath, LocksDir)
}

// ProgressPath returns path of the in-progress marker of the chunk.
func ProgressPath(chunkPath string) string {
	return siblingPath(chunkPath, ProgressDir)
}

func siblingPath(chunkPath, dir string) string {
	return filepath.Join(filepath.Dir(filepath.Dir(chunkPath)), dir, filepath.Base(chunkPath))
}

func commitPath(chunkPath string) string {
	return filepath.Join(filepath.Dir(chunkPath), "."+filepath.Base(chunkPath)+commitSuffix)
}

// IsTempName checks whether the file name in the chunks directory belongs to
// a temporary file rather than to a chunk.
func IsTempName(name string) bool {
	return strings.HasPrefix(name, ".")
}

// IsInProgress checks whether the chunk has uncommitted writes.
func IsInProgress(chunkPath string) bool {
	_, err := os.Stat(ProgressPath(chunkPath))
	return err == nil
}
