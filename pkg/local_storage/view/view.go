package view

import (
	"bytes"

	"github.com/aimstack/aimstore/pkg/local_storage/common"
)

// ContainerView is a projection of the container onto a key prefix. Keys
// passed to and returned from a view are relative to its prefix.
type ContainerView interface {
	common.Reader

	// Set stages the value for the key. Returns common.ErrReadOnly for
	// read-only views.
	Set(key, value []byte) error
	// Delete stages removal of the key. Returns common.ErrReadOnly for
	// read-only views.
	Delete(key []byte) error
	// Commit persists staged writes of the underlying container. Returns
	// common.ErrReadOnly for read-only views.
	Commit() error

	// View returns nested view with the prefix extended by sub.
	View(sub []byte) ContainerView
	// Tree returns hierarchical facade over the view.
	Tree() *Tree

	Prefix() []byte
	ReadOnly() bool
	Container() common.Container
}

// SingleContainerView is a ContainerView over one container.
type SingleContainerView struct {
	*cfg

	c        common.Container
	readOnly bool
	prefix   []byte
}

// NewSingleContainerView returns view of the container at the prefix. View
// over the read-only container is always read-only.
func NewSingleContainerView(c common.Container, readOnly bool, prefix []byte, opts ...Option) *SingleContainerView {
	cfg := defaultCfg()

	for i := range opts {
		opts[i](cfg)
	}

	return &SingleContainerView{
		cfg:      cfg,
		c:        c,
		readOnly: readOnly || c.ReadOnly(),
		prefix:   bytes.Clone(prefix),
	}
}

func (v *SingleContainerView) key(k []byte) []byte {
	res := make([]byte, 0, len(v.prefix)+len(k))
	res = append(res, v.prefix...)
	return append(res, k...)
}

// Get returns the value stored for the relative key.
func (v *SingleContainerView) Get(key []byte) ([]byte, error) {
	return v.c.Get(v.key(key))
}

// Range returns entries whose relative key starts with prefix. Returned keys
// are relative.
func (v *SingleContainerView) Range(prefix []byte) (common.Iterator, error) {
	it, err := v.c.Range(v.key(prefix))
	if err != nil {
		return nil, err
	}

	return &stripIterator{Iterator: it, prefix: v.prefix}, nil
}

// Set implements ContainerView.
func (v *SingleContainerView) Set(key, value []byte) error {
	if v.readOnly {
		return common.ErrReadOnly
	}
	return v.c.Set(v.key(key), value)
}

// Delete implements ContainerView.
func (v *SingleContainerView) Delete(key []byte) error {
	if v.readOnly {
		return common.ErrReadOnly
	}
	return v.c.Delete(v.key(key))
}

// Commit implements ContainerView.
func (v *SingleContainerView) Commit() error {
	if v.readOnly {
		return common.ErrReadOnly
	}
	return v.c.Commit()
}

// View implements ContainerView.
func (v *SingleContainerView) View(sub []byte) ContainerView {
	return &SingleContainerView{
		cfg:      v.cfg,
		c:        v.c,
		readOnly: v.readOnly,
		prefix:   v.key(sub),
	}
}

// Tree implements ContainerView.
func (v *SingleContainerView) Tree() *Tree {
	return &Tree{v: v, codec: v.codec}
}

// Prefix returns the absolute key prefix of the view.
func (v *SingleContainerView) Prefix() []byte {
	return bytes.Clone(v.prefix)
}

// ReadOnly implements ContainerView.
func (v *SingleContainerView) ReadOnly() bool {
	return v.readOnly
}

// Container returns the underlying container.
func (v *SingleContainerView) Container() common.Container {
	return v.c
}

// stripIterator cuts the view prefix off the keys.
type stripIterator struct {
	common.Iterator
	prefix []byte
}

func (it *stripIterator) Key() []byte {
	k := it.Iterator.Key()
	if len(k) < len(it.prefix) {
		return nil
	}
	return k[len(it.prefix):]
}

func (it *stripIterator) Seek(key []byte) {
	k := make([]byte, 0, len(it.prefix)+len(key))
	k = append(k, it.prefix...)
	it.Iterator.Seek(append(k, key...))
}
