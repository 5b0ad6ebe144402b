package container

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/aimstack/aimstore/pkg/local_storage/common"
	storagelog "github.com/aimstack/aimstore/pkg/local_storage/internal/storagelog"
	"github.com/aimstack/aimstore/pkg/local_storage/mode"
	"github.com/aimstack/aimstore/pkg/util"
	"go.etcd.io/bbolt"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

const storageType = "chunk"

// dataBucket is the name of the single bucket holding container entries.
var dataBucket = []byte("data")

// Container represents a physical chunk.
//
// Container is safe for concurrent use. Dropped containers which were not
// closed release their resources when garbage collected.
type Container struct {
	*core
}

// core holds the container state. It must not reference the Container so
// that the cleanup can run.
type core struct {
	*cfg

	path string

	closed *atomic.Bool

	// mtx protects the committed data handle.
	mtx sync.Mutex
	h   *handle

	// wmtx protects the write state.
	wmtx       sync.Mutex
	lock       *fileLock
	buf        *buffer
	inProgress *atomic.Bool
}

// handle is an opened committed chunk file.
type handle struct {
	db *bbolt.DB
	fi os.FileInfo
}

// Open opens the chunk at the path.
//
// In read-write mode Open creates the missing directories and an empty
// chunk file, and takes the writer lock. If the lock is held by another
// writer, common.ErrWriteLockHeld is returned immediately. Uncommitted
// writes left by a dead writer are rolled back.
//
// In read-only mode the chunk file may be absent: such container is empty
// until the file appears.
func Open(path string, opts ...Option) (*Container, error) {
	c := defaultCfg()

	for i := range opts {
		opts[i](c)
	}

	path, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve chunk path: %w", err)
	}

	cr := &core{
		cfg:        c,
		path:       path,
		closed:     atomic.NewBool(false),
		inProgress: atomic.NewBool(false),
	}

	m := mode.FromReadOnly(c.readOnly)

	cr.log.Debug("opening container",
		storagelog.PathField(path),
		zap.Stringer("mode", m),
	)

	if !c.readOnly {
		if err := cr.initWriter(); err != nil {
			return nil, err
		}
	}

	cr.mtx.Lock()
	err = cr.refresh()
	cr.mtx.Unlock()
	if err != nil {
		_ = cr.close()
		return nil, err
	}

	cr.metrics.IncOpen(m)

	res := &Container{core: cr}

	runtime.AddCleanup(res, func(cr *core) {
		if err := cr.close(); err != nil {
			cr.log.Warn("could not release dropped container",
				storagelog.PathField(cr.path),
				zap.Error(err),
			)
		}
	}, cr)

	return res, nil
}

func (c *core) filePerm() fs.FileMode {
	return c.perm &^ 0o111
}

func (c *core) initWriter() error {
	for _, dir := range []string{
		filepath.Dir(c.path),
		filepath.Dir(LockPath(c.path)),
		filepath.Dir(ProgressPath(c.path)),
	} {
		if err := util.MkdirAllX(dir, c.perm); err != nil {
			return fmt.Errorf("create container directory %s: %w", dir, err)
		}
	}

	lock, err := acquireLock(LockPath(c.path), c.filePerm())
	if err != nil {
		if errors.Is(err, common.ErrWriteLockHeld) {
			c.metrics.IncLockContention()
			return fmt.Errorf("chunk %s: %w", c.path, err)
		}
		return err
	}

	c.lock = lock
	c.buf = newBuffer()

	if IsInProgress(c.path) {
		c.log.Warn("rolling back uncommitted writes of the previous writer",
			storagelog.PathField(c.path),
		)

		if err := rollback(c.path); err != nil {
			_ = c.releaseLock()
			return fmt.Errorf("roll back chunk %s: %w", c.path, err)
		}
	}

	if _, err := os.Stat(c.path); errors.Is(err, fs.ErrNotExist) {
		err = c.writeCommitted(func(*bbolt.Tx) error { return nil })
		if err != nil {
			_ = c.releaseLock()
			return fmt.Errorf("create chunk %s: %w", c.path, err)
		}
	}

	return nil
}

// refresh reopens the committed chunk file if it was replaced since the
// last access. Must be called under mtx.
func (c *core) refresh() error {
	fi, err := os.Stat(c.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			c.retire(c.h)
			c.h = nil
			return nil
		}
		return fmt.Errorf("stat chunk %s: %w", c.path, err)
	}

	if c.h != nil && sameFile(c.h.fi, fi) {
		return nil
	}

	h, err := c.openHandle(fi)
	if err != nil {
		return err
	}

	c.retire(c.h)
	c.h = h

	return nil
}

// isEnvironmentErr checks whether the BoltDB open error is caused by the
// environment rather than by the file contents.
func isEnvironmentErr(err error) bool {
	return errors.Is(err, bbolt.ErrTimeout) ||
		errors.Is(err, fs.ErrPermission) ||
		errors.Is(err, fs.ErrNotExist)
}

func sameFile(a, b os.FileInfo) bool {
	return os.SameFile(a, b) && a.Size() == b.Size() && a.ModTime().Equal(b.ModTime())
}

const maxOpenAttempts = 5

func (c *core) openHandle(fi os.FileInfo) (h *handle, err error) {
	defer common.BboltFatalHandler(&err)

	if fi.Size() == 0 {
		return nil, fmt.Errorf("%w: %s: empty file", common.ErrCorruptChunk, c.path)
	}

	opts := *c.boltOptions
	opts.ReadOnly = true

	for range maxOpenAttempts {
		db, err := bbolt.Open(c.path, c.perm, &opts)
		if err != nil {
			if isEnvironmentErr(err) {
				return nil, fmt.Errorf("open chunk %s: %w", c.path, err)
			}
			return nil, fmt.Errorf("%w: %s: %w", common.ErrCorruptChunk, c.path, err)
		}

		err = db.View(func(tx *bbolt.Tx) error {
			if tx.Bucket(dataBucket) == nil {
				return fmt.Errorf("%w: %s: missing data bucket", common.ErrCorruptChunk, c.path)
			}
			return nil
		})
		if err != nil {
			_ = db.Close()
			return nil, err
		}

		// the file could be replaced between Stat and Open
		opened, err := os.Stat(c.path)
		if err == nil && sameFile(fi, opened) {
			return &handle{db: db, fi: fi}, nil
		}

		_ = db.Close()

		if err != nil {
			return nil, fmt.Errorf("stat chunk %s: %w", c.path, err)
		}

		fi = opened
	}

	return nil, fmt.Errorf("open chunk %s: file is replaced too often", c.path)
}

// retire closes the handle in background: Close waits for the read
// transactions of the handle to finish.
func (c *core) retire(h *handle) {
	if h == nil {
		return
	}

	go func() {
		if err := h.db.Close(); err != nil {
			c.log.Debug("could not close replaced chunk file",
				storagelog.PathField(c.path),
				zap.Error(err),
			)
		}
	}()
}

// beginRead starts read transaction over the committed data. Returns nil
// transaction if the chunk file does not exist.
func (c *core) beginRead() (*bbolt.Tx, error) {
	c.mtx.Lock()
	defer c.mtx.Unlock()

	if c.closed.Load() {
		return nil, common.ErrClosed
	}

	if err := c.refresh(); err != nil {
		return nil, err
	}

	if c.h == nil {
		return nil, nil
	}

	tx, err := c.h.db.Begin(false)
	if err != nil {
		return nil, fmt.Errorf("begin read transaction of chunk %s: %w", c.path, err)
	}

	return tx, nil
}

// Path returns the path of the chunk file.
func (c *Container) Path() string {
	return c.path
}

// ReadOnly returns true if the container is opened in read-only mode.
func (c *Container) ReadOnly() bool {
	return c.readOnly
}

// InProgress returns true if the container has staged writes which are not
// committed yet.
func (c *Container) InProgress() bool {
	return c.inProgress.Load()
}

// Close releases the chunk file and the writer lock. Staged writes are
// discarded. Close is idempotent.
func (c *Container) Close() error {
	return c.close()
}

func (c *core) close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}

	c.log.Debug("closing container", storagelog.PathField(c.path))

	var errs []error

	if c.lock != nil {
		c.wmtx.Lock()
		if c.buf.size() > 0 {
			c.log.Debug("discarding uncommitted writes",
				storagelog.PathField(c.path),
				zap.Int("count", c.buf.size()),
			)
			c.buf.clear()
		}

		if err := util.RemoveIfExists(ProgressPath(c.path)); err != nil {
			errs = append(errs, fmt.Errorf("remove progress marker: %w", err))
		}
		c.inProgress.Store(false)

		if err := c.releaseLock(); err != nil {
			errs = append(errs, fmt.Errorf("release lock: %w", err))
		}
		c.wmtx.Unlock()
	}

	c.mtx.Lock()
	if c.h != nil {
		if err := c.h.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chunk file: %w", err))
		}
		c.h = nil
	}
	c.mtx.Unlock()

	return errors.Join(errs...)
}

func (c *core) releaseLock() error {
	if c.lock == nil {
		return nil
	}

	err := c.lock.release()
	c.lock = nil

	return err
}
