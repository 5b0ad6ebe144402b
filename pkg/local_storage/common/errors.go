package common

import (
	"errors"

	"github.com/aimstack/aimstore/pkg/local_storage/util/logicerr"
)

// ErrReadOnly MUST be returned for modifying operations when the storage was opened
// in readonly mode.
var ErrReadOnly = logicerr.New("opened as read-only")

// ErrEmptyKey is returned when a key of zero length is passed to a container.
var ErrEmptyKey = logicerr.New("empty key")

// ErrNotFound is returned when the requested key is missing. It is an
// expected condition, callers decide whether it is fatal.
var ErrNotFound = errors.New("key not found")

// ErrWriteLockHeld is returned when a chunk is opened for writing while
// another writer holds its lock. The call never blocks: callers may retry,
// back off or pick another chunk identifier.
var ErrWriteLockHeld = errors.New("write lock is held by another writer")

// ErrCorruptChunk is returned when a chunk file is structurally inconsistent.
// It is fatal for the chunk only.
var ErrCorruptChunk = errors.New("corrupt chunk")

// ErrClosed is returned for operations on a closed container.
var ErrClosed = errors.New("container is closed")

// IsErrNotFound checks if the error corresponds to the missing key.
func IsErrNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
