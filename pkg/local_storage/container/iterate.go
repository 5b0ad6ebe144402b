package container

import (
	"bytes"

	"github.com/aimstack/aimstore/pkg/local_storage/common"
	"go.etcd.io/bbolt"
)

// Range returns entries whose key starts with prefix in ascending byte
// order. Staged writes overlay the committed data. The iterator holds a
// read transaction of the chunk file and must be closed.
func (c *Container) Range(prefix []byte) (common.Iterator, error) {
	committed, err := c.rangeCommitted(prefix)
	if err != nil {
		return nil, err
	}

	if c.readOnly {
		return committed, nil
	}

	c.wmtx.Lock()
	staged := c.buf.items(prefix)
	c.wmtx.Unlock()

	if len(staged) == 0 {
		return committed, nil
	}

	return common.NewMergeIterator([]common.Iterator{
		committed,
		common.NewSliceIterator(staged),
	}), nil
}

func (c *core) rangeCommitted(prefix []byte) (common.Iterator, error) {
	tx, err := c.beginRead()
	if err != nil {
		return nil, err
	}

	if tx == nil {
		return common.EmptyIterator(), nil
	}

	return &boltIterator{
		tx:     tx,
		cursor: tx.Bucket(dataBucket).Cursor(),
		prefix: bytes.Clone(prefix),
	}, nil
}

// boltIterator iterates over the keys of the data bucket with the prefix.
// Returned slices are valid until Close.
type boltIterator struct {
	tx     *bbolt.Tx
	cursor *bbolt.Cursor
	prefix []byte

	started bool
	done    bool
	// seek is a key to position the cursor at on the next Next
	seek    []byte
	seeking bool
	key     []byte
	value   []byte

	err error
}

func (it *boltIterator) Next() bool {
	if it.done || it.err != nil {
		return false
	}

	defer common.BboltFatalHandler(&it.err)

	var k, v []byte

	switch {
	case it.seeking:
		it.started, it.seeking = true, false

		if len(it.seek) == 0 {
			k, v = it.cursor.First()
		} else {
			k, v = it.cursor.Seek(it.seek)
		}
	case !it.started:
		it.started = true

		if len(it.prefix) == 0 {
			k, v = it.cursor.First()
		} else {
			k, v = it.cursor.Seek(it.prefix)
		}
	default:
		k, v = it.cursor.Next()
	}

	// nested buckets are not used, skip them anyway
	for k != nil && v == nil {
		k, v = it.cursor.Next()
	}

	if k == nil || !bytes.HasPrefix(k, it.prefix) {
		it.done = true
		it.key, it.value = nil, nil
		return false
	}

	it.key, it.value = k, v

	return true
}

func (it *boltIterator) Seek(key []byte) {
	if it.tx == nil || it.err != nil {
		return
	}

	if bytes.Compare(key, it.prefix) < 0 {
		key = it.prefix
	}

	it.seek = bytes.Clone(key)
	it.seeking = true
	it.done = false
	it.key, it.value = nil, nil
}

func (it *boltIterator) Key() []byte {
	return it.key
}

func (it *boltIterator) Value() []byte {
	return it.value
}

func (it *boltIterator) Err() error {
	return it.err
}

func (it *boltIterator) Close() error {
	it.done = true

	if it.tx == nil {
		return nil
	}

	tx := it.tx
	it.tx = nil

	if err := tx.Rollback(); err != nil && err != bbolt.ErrTxClosed {
		return err
	}

	return nil
}
