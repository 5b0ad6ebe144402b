package repo

import (
	"fmt"
	"path/filepath"
	"slices"

	"github.com/aimstack/aimstore/pkg/local_storage/common"
	"github.com/aimstack/aimstore/pkg/local_storage/container"
	storagelog "github.com/aimstack/aimstore/pkg/local_storage/internal/storagelog"
	"github.com/aimstack/aimstore/pkg/local_storage/union"
	"github.com/aimstack/aimstore/pkg/local_storage/view"
	"go.uber.org/zap"
)

// GetContainer returns the container at the path relative to the
// repository root. Union containers are kept for the Repo lifetime,
// physical chunks are cached while referenced.
//
// Returns ErrRepoReadOnly if writable container is requested from the
// read-only Repo.
func (r *Repo) GetContainer(name string, readOnly, fromUnion bool) (common.Container, error) {
	if r.readOnly && !readOnly {
		return nil, fmt.Errorf("container %s: %w", name, ErrRepoReadOnly)
	}

	if r.closed.Load() {
		return nil, common.ErrClosed
	}

	key := ContainerConfig{Name: name, ReadOnly: readOnly}

	r.mtx.Lock()
	defer r.mtx.Unlock()

	if c := r.containerPool.get(key); c != nil {
		return c, nil
	}

	path := filepath.Join(r.path, name)

	if fromUnion {
		u, err := union.New(path, r.unionOptions()...)
		if err != nil {
			return nil, fmt.Errorf("open union container %s: %w", path, err)
		}

		r.persistentPool[key] = u
		r.containerPool.unions.put(key, u)

		return u, nil
	}

	c, err := container.Open(path, r.containerOptions(readOnly)...)
	if err != nil {
		return nil, fmt.Errorf("open chunk %s: %w", path, err)
	}

	r.containerPool.physical.put(key, c)

	return c, nil
}

func (s *state) containerOptions(readOnly bool) []container.Option {
	return append(slices.Clone(s.containerOpts),
		container.WithReadOnly(readOnly),
		container.WithLogger(s.log),
		container.WithMetrics(s.metrics),
	)
}

func (s *state) unionOptions() []union.Option {
	opts := []union.Option{
		union.WithLogger(s.log),
		union.WithCacheSize(s.unionCacheSize),
		union.WithWorkerPool(s.pool),
		union.WithMetrics(s.metrics),
		union.WithContainerOptions(s.containerOpts...),
	}

	if s.chunkOrder != nil {
		opts = append(opts, union.WithChunkOrder(s.chunkOrder))
	}

	return opts
}

// Request returns the view of the container. Read-only requests may be
// served by the union of all chunks of the container (fromUnion) or by the
// chunk sub. Writable requests are always served by the chunk sub opened
// for writing, fromUnion is ignored for them.
//
// Returns ErrSubRequired if the chunk is requested without sub,
// ErrRepoReadOnly if writable view is requested from the read-only Repo,
// common.ErrWriteLockHeld if the chunk has another writer.
func (r *Repo) Request(name, sub string, readOnly, fromUnion bool) (view.ContainerView, error) {
	key := ContainerConfig{
		Name:     name,
		Sub:      sub,
		HasSub:   sub != "",
		ReadOnly: readOnly,
	}

	if v := r.viewPool.get(key); v != nil {
		return v, nil
	}

	kind, rel, err := resolve(key, fromUnion)
	if err != nil {
		return nil, err
	}

	c, err := r.GetContainer(rel, readOnly, kind == KindUnion)
	if err != nil {
		return nil, err
	}

	r.mtx.Lock()
	defer r.mtx.Unlock()

	// concurrent miss could construct the view
	if v := r.viewPool.get(key); v != nil {
		return v, nil
	}

	var opts []view.Option
	if r.comp != nil {
		opts = append(opts, view.WithCompression(r.comp))
	}

	v := view.NewSingleContainerView(c, readOnly, nil, opts...)
	r.viewPool.put(key, v)

	r.log.Debug("container view constructed",
		zap.Stringer("config", key),
		zap.Stringer("kind", kind),
		storagelog.PathField(c.Path()),
	)

	return v, nil
}

// release closes the writable chunk and drops it from the caches.
func (r *Repo) release(name, sub string) error {
	viewKey := ContainerConfig{Name: name, Sub: sub, HasSub: true}

	_, rel, err := resolve(viewKey, false)
	if err != nil {
		return err
	}

	containerKey := ContainerConfig{Name: rel}

	r.mtx.Lock()
	defer r.mtx.Unlock()

	r.viewPool.remove(viewKey)

	c := r.containerPool.physical.get(containerKey)
	r.containerPool.physical.remove(containerKey)

	if c == nil {
		return nil
	}

	return c.Close()
}
