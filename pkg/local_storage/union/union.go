package union

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"

	"github.com/aimstack/aimstore/pkg/local_storage/common"
	"github.com/aimstack/aimstore/pkg/local_storage/container"
	storagelog "github.com/aimstack/aimstore/pkg/local_storage/internal/storagelog"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// Container is a read-only merge of all chunks of the container directory.
//
// Chunks with uncommitted writes and corrupt chunks are excluded from the
// merge. The directory is rescanned on each access, so chunks created or
// committed by other processes become visible without reopening.
type Container struct {
	*cfg

	dir string

	closed *atomic.Bool

	mtx sync.RWMutex

	// directory state at the last scan
	scanned    bool
	files      []chunkFile
	inProgress map[string]struct{}

	// opened contains all opened chunks by identifier.
	opened map[string]*container.Container

	// corrupt contains the chunk files failed to open.
	corrupt map[string]os.FileInfo

	// visible contains merged chunks in merge order.
	visible []visibleChunk

	cache *lru.Cache[string, lookup]
}

type visibleChunk struct {
	id string
	c  *container.Container
}

type lookup struct {
	value []byte
	found bool
}

// New creates union Container over the chunks of the dir. The directory
// may not exist yet.
func New(dir string, opts ...Option) (*Container, error) {
	c := defaultCfg()

	for i := range opts {
		opts[i](c)
	}

	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve container directory: %w", err)
	}

	u := &Container{
		cfg:     c,
		dir:     dir,
		closed:  atomic.NewBool(false),
		opened:  make(map[string]*container.Container),
		corrupt: make(map[string]os.FileInfo),
	}

	if c.cacheSize > 0 {
		u.cache, err = lru.New[string, lookup](c.cacheSize)
		if err != nil {
			return nil, fmt.Errorf("create lookup cache: %w", err)
		}
	}

	u.log.Debug("opening union container", storagelog.PathField(dir))

	if err := u.rescan(); err != nil {
		_ = u.Close()
		return nil, err
	}

	return u, nil
}

// Path returns the container directory.
func (u *Container) Path() string {
	return u.dir
}

// ReadOnly always returns true.
func (u *Container) ReadOnly() bool {
	return true
}

// Set always returns common.ErrReadOnly.
func (u *Container) Set(_, _ []byte) error {
	return common.ErrReadOnly
}

// Delete always returns common.ErrReadOnly.
func (u *Container) Delete(_ []byte) error {
	return common.ErrReadOnly
}

// Commit always returns common.ErrReadOnly.
func (u *Container) Commit() error {
	return common.ErrReadOnly
}

// Chunks returns identifiers of the visible chunks in merge order.
func (u *Container) Chunks() ([]string, error) {
	if err := u.rescan(); err != nil {
		return nil, err
	}

	u.mtx.RLock()
	defer u.mtx.RUnlock()

	res := make([]string, len(u.visible))
	for i := range u.visible {
		res[i] = u.visible[i].id
	}

	return res, nil
}

// Get returns the value of the key from the greatest visible chunk
// holding it. Returns common.ErrNotFound if no chunk holds the key.
func (u *Container) Get(key []byte) ([]byte, error) {
	if len(key) == 0 {
		return nil, common.ErrEmptyKey
	}

	if err := u.rescan(); err != nil {
		return nil, err
	}

	u.mtx.RLock()
	defer u.mtx.RUnlock()

	if u.cache != nil {
		if l, ok := u.cache.Get(string(key)); ok {
			if !l.found {
				return nil, common.ErrNotFound
			}
			return bytes.Clone(l.value), nil
		}
	}

	for i := len(u.visible) - 1; i >= 0; i-- {
		v, err := u.visible[i].c.Get(key)
		if err == nil {
			if u.cache != nil {
				u.cache.Add(string(key), lookup{value: v, found: true})
			}
			return bytes.Clone(v), nil
		}

		if !errors.Is(err, common.ErrNotFound) {
			return nil, fmt.Errorf("get from chunk %s: %w", u.visible[i].id, err)
		}
	}

	if u.cache != nil {
		u.cache.Add(string(key), lookup{})
	}

	return nil, common.ErrNotFound
}

// Range returns merged entries of the visible chunks whose key starts with
// prefix. On equal keys the value of the greatest chunk is returned.
func (u *Container) Range(prefix []byte) (common.Iterator, error) {
	if err := u.rescan(); err != nil {
		return nil, err
	}

	u.mtx.RLock()
	defer u.mtx.RUnlock()

	sources := make([]common.Iterator, 0, len(u.visible))

	for i := range u.visible {
		it, err := u.visible[i].c.Range(prefix)
		if err != nil {
			for j := range sources {
				_ = sources[j].Close()
			}
			return nil, fmt.Errorf("range over chunk %s: %w", u.visible[i].id, err)
		}

		sources = append(sources, it)
	}

	return common.NewMergeIterator(sources), nil
}

// Close closes all chunks. Iterators returned by Range must be closed
// before.
func (u *Container) Close() error {
	if !u.closed.CompareAndSwap(false, true) {
		return nil
	}

	u.log.Debug("closing union container", storagelog.PathField(u.dir))

	u.mtx.Lock()
	defer u.mtx.Unlock()

	var errs []error

	for id, c := range u.opened {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close chunk %s: %w", id, err))
		}
	}

	u.opened = nil
	u.visible = nil

	if u.cache != nil {
		u.cache.Purge()
	}

	return errors.Join(errs...)
}

// chunkFile is a directory entry of the chunk.
type chunkFile struct {
	id string
	fi os.FileInfo
}

// scanDir lists chunk files sorted by name and chunks in progress.
func (u *Container) scanDir() ([]chunkFile, map[string]struct{}, error) {
	entries, err := os.ReadDir(filepath.Join(u.dir, container.ChunksDir))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, nil, fmt.Errorf("read chunks directory: %w", err)
	}

	files := make([]chunkFile, 0, len(entries))

	for _, e := range entries {
		if e.IsDir() || container.IsTempName(e.Name()) {
			continue
		}

		fi, err := e.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, nil, fmt.Errorf("stat chunk %s: %w", e.Name(), err)
		}

		files = append(files, chunkFile{id: e.Name(), fi: fi})
	}

	markers, err := os.ReadDir(filepath.Join(u.dir, container.ProgressDir))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, nil, fmt.Errorf("read progress directory: %w", err)
	}

	inProgress := make(map[string]struct{}, len(markers))
	for _, m := range markers {
		inProgress[m.Name()] = struct{}{}
	}

	return files, inProgress, nil
}

func sameFile(a, b os.FileInfo) bool {
	return os.SameFile(a, b) && a.Size() == b.Size() && a.ModTime().Equal(b.ModTime())
}

// unchanged checks whether the directory state matches the last scan.
// Must be called under mtx.
func (u *Container) unchanged(files []chunkFile, inProgress map[string]struct{}) bool {
	if !u.scanned || len(files) != len(u.files) || len(inProgress) != len(u.inProgress) {
		return false
	}

	for i := range files {
		if files[i].id != u.files[i].id || !sameFile(files[i].fi, u.files[i].fi) {
			return false
		}
	}

	for id := range inProgress {
		if _, ok := u.inProgress[id]; !ok {
			return false
		}
	}

	return true
}

// rescan updates the set of visible chunks if the directory changed since
// the last scan.
func (u *Container) rescan() error {
	if u.closed.Load() {
		return common.ErrClosed
	}

	files, inProgress, err := u.scanDir()
	if err != nil {
		return fmt.Errorf("scan union container %s: %w", u.dir, err)
	}

	u.mtx.RLock()
	same := u.unchanged(files, inProgress)
	u.mtx.RUnlock()

	if same {
		return nil
	}

	u.mtx.Lock()
	defer u.mtx.Unlock()

	if u.closed.Load() {
		return common.ErrClosed
	}

	if u.unchanged(files, inProgress) {
		return nil
	}

	present := make(map[string]struct{}, len(files))
	for i := range files {
		present[files[i].id] = struct{}{}
	}

	for id, c := range u.opened {
		if _, ok := present[id]; !ok {
			delete(u.opened, id)
			// Close waits for the iterators over the chunk
			go func() { _ = c.Close() }()
		}
	}

	for id := range u.corrupt {
		if _, ok := present[id]; !ok {
			delete(u.corrupt, id)
		}
	}

	if err := u.openNew(files, inProgress); err != nil {
		return fmt.Errorf("scan union container %s: %w", u.dir, err)
	}

	visible := make([]visibleChunk, 0, len(files))

	for i := range files {
		id := files[i].id

		if _, ok := inProgress[id]; ok {
			continue
		}

		c, ok := u.opened[id]
		if !ok {
			continue
		}

		visible = append(visible, visibleChunk{id: id, c: c})
	}

	slices.SortFunc(visible, func(a, b visibleChunk) int {
		return u.order(a.id, b.id)
	})

	u.visible = visible
	u.files = files
	u.inProgress = inProgress
	u.scanned = true

	if u.cache != nil {
		u.cache.Purge()
	}

	u.metrics.SetVisibleChunks(u.dir, len(visible))

	u.log.Debug("visible chunk set changed",
		storagelog.PathField(u.dir),
		zap.Int("visible", len(visible)),
		zap.Int("in progress", len(inProgress)),
	)

	return nil
}

// openNew opens chunks which are not opened yet. Corrupted chunks are
// excluded until their files change, other failures are returned. Must be
// called under mtx.
func (u *Container) openNew(files []chunkFile, inProgress map[string]struct{}) error {
	type result struct {
		id  string
		fi  os.FileInfo
		c   *container.Container
		err error
	}

	var (
		wg      sync.WaitGroup
		resMtx  sync.Mutex
		results []result
	)

	for i := range files {
		f := files[i]

		if _, ok := u.opened[f.id]; ok {
			continue
		}

		if _, ok := inProgress[f.id]; ok {
			continue
		}

		if fi, ok := u.corrupt[f.id]; ok && sameFile(fi, f.fi) {
			continue
		}

		wg.Add(1)

		open := func() {
			defer wg.Done()

			opts := append(slices.Clone(u.containerOpts),
				container.WithReadOnly(true),
				container.WithLogger(u.log),
				container.WithMetrics(u.metrics),
			)

			c, err := container.Open(filepath.Join(u.dir, container.ChunksDir, f.id), opts...)

			resMtx.Lock()
			results = append(results, result{id: f.id, fi: f.fi, c: c, err: err})
			resMtx.Unlock()
		}

		if err := u.pool.Submit(open); err != nil {
			u.log.Debug("could not submit chunk opening to the pool, opening synchronously",
				storagelog.ChunkField(f.id),
				zap.Error(err),
			)
			open()
		}
	}

	wg.Wait()

	var errs []error

	for _, r := range results {
		switch {
		case r.err == nil:
			delete(u.corrupt, r.id)
			u.opened[r.id] = r.c
		case errors.Is(r.err, common.ErrCorruptChunk):
			u.corrupt[r.id] = r.fi
			u.log.Warn("chunk excluded from union container",
				storagelog.PathField(u.dir),
				storagelog.ChunkField(r.id),
				zap.Error(r.err),
			)
		case errors.Is(r.err, fs.ErrNotExist):
			// removed after the scan, next scan drops it
		default:
			errs = append(errs, fmt.Errorf("chunk %s: %w", r.id, r.err))
		}
	}

	return errors.Join(errs...)
}
