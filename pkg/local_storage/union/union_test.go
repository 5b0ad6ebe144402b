package union

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aimstack/aimstore/internal/testutil"
	"github.com/aimstack/aimstore/pkg/local_storage/common"
	"github.com/aimstack/aimstore/pkg/local_storage/container"
	"github.com/aimstack/aimstore/pkg/util"
	"github.com/stretchr/testify/require"
	"go.etcd.io/bbolt"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

func writeChunk(t *testing.T, dir, id string, kvs ...string) {
	c, err := container.Open(filepath.Join(dir, container.ChunksDir, id),
		container.WithNoSync(true),
		container.WithLogger(zaptest.NewLogger(t)),
	)
	require.NoError(t, err)

	for i := 0; i < len(kvs); i += 2 {
		require.NoError(t, c.Set([]byte(kvs[i]), []byte(kvs[i+1])))
	}

	require.NoError(t, c.Commit())
	require.NoError(t, c.Close())
}

func newTest(t *testing.T, dir string, opts ...Option) *Container {
	u, err := New(dir, append([]Option{WithLogger(zaptest.NewLogger(t))}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, u.Close()) })
	return u
}

func collect(t *testing.T, u *Container, prefix string) map[string]string {
	it, err := u.Range([]byte(prefix))
	require.NoError(t, err)

	items, err := common.Collect(it)
	require.NoError(t, err)

	res := make(map[string]string, len(items))
	for i := range items {
		res[string(items[i].Key)] = string(items[i].Value)
	}
	return res
}

func TestUnion_LastWriterWins(t *testing.T) {
	dir := t.TempDir()

	writeChunk(t, dir, "a", "k", "from-a", "only-a", "1")
	writeChunk(t, dir, "b", "k", "from-b", "only-b", "2")

	u := newTest(t, dir)

	v, err := u.Get([]byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("from-b"), v)

	require.Equal(t, map[string]string{
		"k":      "from-b",
		"only-a": "1",
		"only-b": "2",
	}, collect(t, u, ""))

	ids, err := u.Chunks()
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, ids)
}

func TestUnion_ChunkOrder(t *testing.T) {
	dir := t.TempDir()

	writeChunk(t, dir, "a", "k", "from-a")
	writeChunk(t, dir, "b", "k", "from-b")

	reversed := func(a, b string) int { return strings.Compare(b, a) }

	u := newTest(t, dir, WithChunkOrder(reversed))

	v, err := u.Get([]byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("from-a"), v)
	require.Equal(t, map[string]string{"k": "from-a"}, collect(t, u, "k"))
}

func TestUnion_Rescan(t *testing.T) {
	dir := t.TempDir()

	u := newTest(t, dir, WithCacheSize(16))

	_, err := u.Get([]byte("k"))
	require.ErrorIs(t, err, common.ErrNotFound)

	writeChunk(t, dir, "a", "k", "v1")

	v, err := u.Get([]byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("v1"), v)

	// commit into the same chunk purges cached lookups
	writeChunk(t, dir, "a", "k", "v2")

	v, err = u.Get([]byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("v2"), v)

	require.NoError(t, os.Remove(filepath.Join(dir, container.ChunksDir, "a")))

	_, err = u.Get([]byte("k"))
	require.ErrorIs(t, err, common.ErrNotFound)
}

func TestUnion_InProgressInvisible(t *testing.T) {
	dir := t.TempDir()

	writeChunk(t, dir, "a", "k", "committed")

	w, err := container.Open(filepath.Join(dir, container.ChunksDir, "b"), container.WithNoSync(true))
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, w.Set([]byte("k"), []byte("staged")))

	u := newTest(t, dir)

	v, err := u.Get([]byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("committed"), v)

	ids, err := u.Chunks()
	require.NoError(t, err)
	require.Equal(t, []string{"a"}, ids)

	require.NoError(t, w.Commit())

	v, err = u.Get([]byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("staged"), v)
}

func TestUnion_CorruptChunkExcluded(t *testing.T) {
	dir := t.TempDir()

	writeChunk(t, dir, "a", "k", "v")
	require.NoError(t, os.WriteFile(filepath.Join(dir, container.ChunksDir, "b"), []byte("garbage"), 0o600))

	l, lb := testutil.NewBufferedLogger(t, zap.WarnLevel)
	u := newTest(t, dir, WithLogger(l))

	v, err := u.Get([]byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("v"), v)

	ids, err := u.Chunks()
	require.NoError(t, err)
	require.Equal(t, []string{"a"}, ids)

	lb.AssertContains(testutil.LogEntry{
		Level:   zap.WarnLevel,
		Message: "chunk excluded from union container",
		Fields:  map[string]any{"path": dir, "chunk": "b"},
	})
}

func TestUnion_OpenFailureSurfaced(t *testing.T) {
	dir := t.TempDir()

	writeChunk(t, dir, "a", "k", "from-a")

	u := newTest(t, dir, WithContainerOptions(container.WithOpenTimeout(50*time.Millisecond)))

	v, err := u.Get([]byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("from-a"), v)

	writeChunk(t, dir, "b", "k", "from-b")

	// exclusive file lock makes the chunk unopenable while the file is valid
	holder, err := bbolt.Open(filepath.Join(dir, container.ChunksDir, "b"), 0o600, nil)
	require.NoError(t, err)

	_, err = u.Get([]byte("k"))
	require.ErrorIs(t, err, bbolt.ErrTimeout)
	require.ErrorContains(t, err, "chunk b")

	_, err = u.Range(nil)
	require.ErrorIs(t, err, bbolt.ErrTimeout)

	require.NoError(t, holder.Close())

	v, err = u.Get([]byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("from-b"), v)

	ids, err := u.Chunks()
	require.NoError(t, err)
	require.Equal(t, []string{"a", "b"}, ids)
}

func TestUnion_ReadOnly(t *testing.T) {
	u := newTest(t, t.TempDir())

	require.True(t, u.ReadOnly())
	require.ErrorIs(t, u.Set([]byte("k"), []byte("v")), common.ErrReadOnly)
	require.ErrorIs(t, u.Delete([]byte("k")), common.ErrReadOnly)
	require.ErrorIs(t, u.Commit(), common.ErrReadOnly)
}

func TestUnion_WorkerPool(t *testing.T) {
	dir := t.TempDir()

	for _, id := range []string{"1", "2", "3", "4", "5"} {
		writeChunk(t, dir, id, "k", id, "k"+id, id)
	}

	pool, err := util.NewWorkerPool(2, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer pool.Release()

	u := newTest(t, dir, WithWorkerPool(pool), WithCacheSize(0))

	v, err := u.Get([]byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("5"), v)
	require.Len(t, collect(t, u, "k"), 6)
}

func TestUnion_Closed(t *testing.T) {
	u, err := New(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, u.Close())
	require.NoError(t, u.Close())

	_, err = u.Get([]byte("k"))
	require.ErrorIs(t, err, common.ErrClosed)
}
