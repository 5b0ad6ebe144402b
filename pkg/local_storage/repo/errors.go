package repo

import (
	"errors"

	"github.com/aimstack/aimstore/pkg/local_storage/util/logicerr"
)

// ErrRepoReadOnly is returned when writable access is requested from the
// read-only repository.
var ErrRepoReadOnly = logicerr.New("repository is read-only")

// ErrSubRequired is returned when a physical chunk is requested without
// the chunk identifier.
var ErrSubRequired = logicerr.New("chunk identifier is required")

// ErrRunNotFound is returned when the run is missing in the meta tree.
var ErrRunNotFound = errors.New("run not found")

// ErrRemoteNotFound is returned when the remote is missing in the
// repository config.
var ErrRemoteNotFound = errors.New("remote not found")
