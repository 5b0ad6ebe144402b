package container

import (
	"bytes"

	"github.com/aimstack/aimstore/pkg/local_storage/common"
)

// Get returns copy of the value stored for the key. Staged writes of the
// container take precedence over the committed data.
//
// Returns common.ErrNotFound if the key is missing.
func (c *Container) Get(key []byte) ([]byte, error) {
	if len(key) == 0 {
		return nil, common.ErrEmptyKey
	}

	if !c.readOnly {
		c.wmtx.Lock()
		e, ok := c.buf.get(key)
		c.wmtx.Unlock()

		if ok {
			if e.deleted {
				return nil, common.ErrNotFound
			}
			return bytes.Clone(e.value), nil
		}
	}

	return c.getCommitted(key)
}

func (c *core) getCommitted(key []byte) (val []byte, err error) {
	defer common.BboltFatalHandler(&err)

	tx, err := c.beginRead()
	if err != nil {
		return nil, err
	}

	if tx == nil {
		return nil, common.ErrNotFound
	}

	defer func() { _ = tx.Rollback() }()

	k, v := tx.Bucket(dataBucket).Cursor().Seek(key)
	if k == nil || v == nil || !bytes.Equal(k, key) {
		return nil, common.ErrNotFound
	}

	return bytes.Clone(v), nil
}
