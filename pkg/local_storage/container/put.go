package container

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aimstack/aimstore/pkg/local_storage/common"
	storagelog "github.com/aimstack/aimstore/pkg/local_storage/internal/storagelog"
	"github.com/aimstack/aimstore/pkg/util"
	"go.etcd.io/bbolt"
	"go.uber.org/zap"
)

// Set stages the value for the key. The value becomes visible to other
// readers after Commit.
//
// Returns common.ErrReadOnly in read-only mode, common.ErrEmptyKey for the
// empty key.
func (c *Container) Set(key, value []byte) error {
	if value == nil {
		value = []byte{}
	}
	return c.stage(key, entry{value: bytes.Clone(value)})
}

// Delete stages removal of the key. Removal of the missing key is not an
// error.
//
// Returns common.ErrReadOnly in read-only mode, common.ErrEmptyKey for the
// empty key.
func (c *Container) Delete(key []byte) error {
	return c.stage(key, entry{deleted: true})
}

func (c *core) stage(key []byte, e entry) error {
	if c.readOnly {
		return common.ErrReadOnly
	}

	if len(key) == 0 {
		return common.ErrEmptyKey
	}

	if c.closed.Load() {
		return common.ErrClosed
	}

	c.wmtx.Lock()
	defer c.wmtx.Unlock()

	if !c.inProgress.Load() {
		err := os.WriteFile(ProgressPath(c.path), nil, c.filePerm())
		if err != nil {
			return fmt.Errorf("create progress marker of chunk %s: %w", c.path, err)
		}

		c.inProgress.Store(true)
	}

	c.buf.put(key, e)

	return nil
}

// Commit durably persists staged writes and makes them visible to readers.
// Commit without staged writes is a no-op.
//
// Returns common.ErrReadOnly in read-only mode.
func (c *Container) Commit() error {
	if c.readOnly {
		return common.ErrReadOnly
	}

	if c.closed.Load() {
		return common.ErrClosed
	}

	c.wmtx.Lock()
	defer c.wmtx.Unlock()

	n := c.buf.size()
	if n == 0 {
		return nil
	}

	start := time.Now()

	err := c.writeCommitted(func(tx *bbolt.Tx) error {
		b := tx.Bucket(dataBucket)

		return c.buf.each(func(key []byte, e entry) error {
			if e.deleted {
				return b.Delete(key)
			}
			return b.Put(key, e.value)
		})
	})
	if err != nil {
		return fmt.Errorf("commit chunk %s: %w", c.path, err)
	}

	c.buf.clear()

	c.mtx.Lock()
	err = c.refresh()
	c.mtx.Unlock()
	if err != nil {
		return fmt.Errorf("reopen committed chunk: %w", err)
	}

	if err := util.RemoveIfExists(ProgressPath(c.path)); err != nil {
		return fmt.Errorf("remove progress marker of chunk %s: %w", c.path, err)
	}

	c.inProgress.Store(false)

	c.metrics.AddCommitDuration(time.Since(start))

	storagelog.Write(c.log,
		storagelog.PathField(c.path),
		storagelog.StorageTypeField(storageType),
		storagelog.OpField("COMMIT"),
		zap.Int("entries", n),
	)

	return nil
}

// writeCommitted writes a new version of the chunk file: it copies the
// committed data into a temporary file, applies f to it and replaces the
// chunk file by rename.
func (c *core) writeCommitted(f func(tx *bbolt.Tx) error) error {
	tmp := commitPath(c.path)

	if err := util.RemoveIfExists(tmp); err != nil {
		return fmt.Errorf("remove stale commit file: %w", err)
	}

	err := c.copyCommitted(tmp)
	if err == nil {
		err = c.applyTo(tmp, f)
	}
	if err == nil {
		err = os.Rename(tmp, c.path)
	}
	if err == nil && !c.noSync {
		err = util.SyncDir(filepath.Dir(c.path))
	}

	if err != nil {
		_ = util.RemoveIfExists(tmp)
		return err
	}

	return nil
}

func (c *core) copyCommitted(dst string) (err error) {
	defer common.BboltFatalHandler(&err)

	tx, err := c.beginRead()
	if err != nil || tx == nil {
		return err
	}

	defer func() { _ = tx.Rollback() }()

	if err := tx.CopyFile(dst, c.filePerm()); err != nil {
		return fmt.Errorf("copy committed data: %w", err)
	}

	return nil
}

func (c *core) applyTo(p string, f func(tx *bbolt.Tx) error) (err error) {
	defer common.BboltFatalHandler(&err)

	opts := *c.boltOptions
	opts.ReadOnly = false
	opts.NoSync = c.noSync

	db, err := bbolt.Open(p, c.filePerm(), &opts)
	if err != nil {
		return fmt.Errorf("open commit file: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(dataBucket); err != nil {
			return err
		}
		return f(tx)
	})

	if cErr := db.Close(); err == nil {
		err = cErr
	}

	return err
}
