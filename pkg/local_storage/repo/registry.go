package repo

import (
	"fmt"
	"path/filepath"
	"sync"
	"weak"
)

// DefaultPath is a path of the repository used by Registry.Default.
const DefaultPath = ".aim"

// Registry keeps opened repositories: at most one live Repo exists per
// canonical path. Repositories are held weakly and reopened after they are
// collected.
type Registry struct {
	opts []Option

	mtx   sync.Mutex
	repos map[string]weak.Pointer[Repo]
}

// NewRegistry returns Registry which opens repositories with the options.
func NewRegistry(opts ...Option) *Registry {
	return &Registry{
		opts:  opts,
		repos: make(map[string]weak.Pointer[Repo]),
	}
}

// FromPath returns the live Repo at the path or opens a new one. The
// read-only flag is taken into account only when the Repo is opened.
func (g *Registry) FromPath(path string, readOnly bool) (*Repo, error) {
	abs, err := canonicalPath(path)
	if err != nil {
		return nil, err
	}

	g.mtx.Lock()
	defer g.mtx.Unlock()

	if wp, ok := g.repos[abs]; ok {
		if r := wp.Value(); r != nil && !r.closed.Load() {
			return r, nil
		}
		delete(g.repos, abs)
	}

	c := defaultCfg()
	for i := range g.opts {
		g.opts[i](c)
	}

	r, err := newRepo(abs, readOnly, c)
	if err != nil {
		return nil, fmt.Errorf("open repository %s: %w", abs, err)
	}

	g.repos[abs] = weak.Make(r)

	return r, nil
}

// Default opens the repository in the working directory.
func (g *Registry) Default() (*Repo, error) {
	return g.FromPath(DefaultPath, false)
}

// canonicalPath returns absolute path with resolved symbolic links. Missing
// tail of the path is kept as is.
func canonicalPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve repository path: %w", err)
	}

	var missing []string

	for dir := abs; ; {
		resolved, err := filepath.EvalSymlinks(dir)
		if err == nil {
			return filepath.Join(append([]string{resolved}, missing...)...), nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return abs, nil
		}

		missing = append([]string{filepath.Base(dir)}, missing...)
		dir = parent
	}
}
