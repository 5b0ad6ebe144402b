package repo

import (
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/aimstack/aimstore/pkg/local_storage/common"
	"github.com/aimstack/aimstore/pkg/local_storage/container"
	"github.com/aimstack/aimstore/pkg/local_storage/encoding"
	storagelog "github.com/aimstack/aimstore/pkg/local_storage/internal/storagelog"
	"github.com/aimstack/aimstore/pkg/local_storage/rundb"
	"github.com/aimstack/aimstore/pkg/local_storage/union"
	"github.com/aimstack/aimstore/pkg/local_storage/view"
	"github.com/aimstack/aimstore/pkg/util"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// MetaContainer is a name of the container holding run metadata.
const MetaContainer = "meta"

// SentinelRun is a reserved key of the meta tree holding repository level
// metadata.
const SentinelRun = "_"

// metaPrefix is a prefix of the meta tree in the meta container.
var metaPrefix = encoding.Encode(encoding.String(MetaContainer), encoding.Sep())

// Repo is a storage repository at the file system path. It caches opened
// containers and views: at most one live instance exists per
// ContainerConfig.
//
// Repo is safe for concurrent use.
type Repo struct {
	*state
}

// state holds the Repo resources.
type state struct {
	*cfg

	path     string
	readOnly bool

	closed *atomic.Bool

	// mtx serializes cache misses.
	mtx sync.Mutex

	containerPool  *containerPool
	persistentPool map[ContainerConfig]common.Container
	viewPool       *weakPool[ContainerConfig, view.SingleContainerView]

	metaTree *view.Tree

	runDB *rundb.DB
}

// containerPool holds weak references to the opened containers.
type containerPool struct {
	physical *weakPool[ContainerConfig, container.Container]
	unions   *weakPool[ContainerConfig, union.Container]
}

func (p *containerPool) get(k ContainerConfig) common.Container {
	if c := p.physical.get(k); c != nil {
		return c
	}
	if u := p.unions.get(k); u != nil {
		return u
	}
	return nil
}

// newRepo opens the repository at the absolute path.
func newRepo(path string, readOnly bool, c *cfg) (*Repo, error) {
	st := &state{
		cfg:      c,
		path:     path,
		readOnly: readOnly,
		closed:   atomic.NewBool(false),
		containerPool: &containerPool{
			physical: newWeakPool[ContainerConfig, container.Container](),
			unions:   newWeakPool[ContainerConfig, union.Container](),
		},
		persistentPool: make(map[ContainerConfig]common.Container),
		viewPool:       newWeakPool[ContainerConfig, view.SingleContainerView](),
	}

	st.log.Debug("opening repository",
		storagelog.PathField(path),
		zap.Bool("read-only", readOnly),
	)

	for _, dir := range []string{
		path,
		filepath.Join(path, container.ChunksDir),
		filepath.Join(path, container.LocksDir),
		filepath.Join(path, container.ProgressDir),
	} {
		if err := util.MkdirAllX(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create repository directory %s: %w", dir, err)
		}
	}

	r := &Repo{state: st}

	meta, err := r.Request(MetaContainer, "", true, true)
	if err != nil {
		_ = st.close()
		return nil, fmt.Errorf("open meta tree: %w", err)
	}

	st.metaTree = meta.View(metaPrefix).Tree()

	st.runDB, err = rundb.FromPath(path,
		rundb.WithLogger(st.log),
		rundb.WithReadOnly(readOnly),
	)
	if err != nil {
		_ = st.close()
		return nil, fmt.Errorf("open run database: %w", err)
	}

	return r, nil
}

// Path returns the absolute path of the repository.
func (r *Repo) Path() string {
	return r.path
}

// ReadOnly returns true if the repository was opened in read-only mode.
func (r *Repo) ReadOnly() bool {
	return r.readOnly
}

// MetaTree returns the tree of the run metadata merged from all chunks of
// the meta container.
func (r *Repo) MetaTree() *view.Tree {
	return r.metaTree
}

// RunDB returns the side database of the run metadata.
func (r *Repo) RunDB() *rundb.DB {
	return r.runDB
}

func (r *Repo) String() string {
	return fmt.Sprintf("Repo(%s, read-only=%t)", r.path, r.readOnly)
}

// Close closes all cached containers and the side database. Close is
// idempotent.
//
// A Repo which is dropped without Close does not close anything: containers
// and views handed out stay usable while referenced and are released by the
// garbage collector.
func (r *Repo) Close() error {
	return r.close()
}

func (s *state) close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}

	s.log.Debug("closing repository", storagelog.PathField(s.path))

	s.mtx.Lock()
	defer s.mtx.Unlock()

	var errs []error

	for cfg, c := range s.persistentPool {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close container %s: %w", cfg, err))
		}
	}

	clear(s.persistentPool)

	for _, c := range s.containerPool.physical.values() {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chunk %s: %w", c.Path(), err))
		}
	}

	if s.runDB != nil {
		if err := s.runDB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close run database: %w", err))
		}
	}

	return errors.Join(errs...)
}
