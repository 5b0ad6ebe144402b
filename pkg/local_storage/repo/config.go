package repo

import (
	"fmt"
	"path/filepath"

	"github.com/aimstack/aimstore/pkg/local_storage/container"
)

// ContainerConfig identifies cached containers and views of the Repo.
type ContainerConfig struct {
	Name     string
	Sub      string
	HasSub   bool
	ReadOnly bool
}

func (c ContainerConfig) String() string {
	mode := "rw"
	if c.ReadOnly {
		mode = "ro"
	}

	if !c.HasSub {
		return fmt.Sprintf("%s (%s)", c.Name, mode)
	}

	return fmt.Sprintf("%s/%s (%s)", c.Name, c.Sub, mode)
}

// ContainerKind is a kind of the container backing the view.
type ContainerKind uint8

const (
	// KindPhysical is a single chunk.
	KindPhysical ContainerKind = iota
	// KindUnion is a merge of all chunks of the container.
	KindUnion
)

func (k ContainerKind) String() string {
	switch k {
	case KindPhysical:
		return "PHYSICAL"
	case KindUnion:
		return "UNION"
	default:
		return "UNDEFINED"
	}
}

// resolve returns the kind and the path relative to the repository root of
// the container backing the view. Writable views are always backed by a
// physical chunk.
func resolve(cfg ContainerConfig, fromUnion bool) (ContainerKind, string, error) {
	if cfg.ReadOnly && fromUnion {
		return KindUnion, cfg.Name, nil
	}

	if !cfg.HasSub {
		return 0, "", fmt.Errorf("container %s: %w", cfg.Name, ErrSubRequired)
	}

	return KindPhysical, filepath.Join(cfg.Name, container.ChunksDir, cfg.Sub), nil
}
