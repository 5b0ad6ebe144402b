package repo

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/aimstack/aimstore/pkg/local_storage/common"
	"github.com/aimstack/aimstore/pkg/local_storage/container"
	"github.com/aimstack/aimstore/pkg/local_storage/encoding"
	"github.com/aimstack/aimstore/pkg/local_storage/rundb"
	"github.com/aimstack/aimstore/pkg/local_storage/view"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

// sequentialIDs returns generator of the ordered chunk identifiers.
func sequentialIDs() ChunkIDGenerator {
	n := atomic.NewUint32(0)
	return func() (string, error) {
		return fmt.Sprintf("run-%03d", n.Inc()), nil
	}
}

func newRegistry(t *testing.T, opts ...Option) *Registry {
	return NewRegistry(append([]Option{
		WithLogger(zaptest.NewLogger(t)),
		WithChunkIDGenerator(sequentialIDs()),
		WithContainerOptions(container.WithNoSync(true)),
	}, opts...)...)
}

func openRepo(t *testing.T, path string, readOnly bool) *Repo {
	r, err := newRegistry(t).FromPath(path, readOnly)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, r.Close()) })
	return r
}

func TestRegistry_FromPath(t *testing.T) {
	dir := t.TempDir()
	g := newRegistry(t)

	r1, err := g.FromPath(dir, false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r1.Close() })

	r2, err := g.FromPath(filepath.Join(dir, "x", ".."), false)
	require.NoError(t, err)
	require.Same(t, r1, r2)

	for _, sub := range []string{container.ChunksDir, container.LocksDir, container.ProgressDir} {
		require.DirExists(t, filepath.Join(dir, sub))
	}

	require.NoError(t, r1.Close())

	// closed repositories are reopened
	r3, err := g.FromPath(dir, false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r3.Close() })
	require.NotSame(t, r1, r3)
}

func TestContainerConfig_Equality(t *testing.T) {
	a := ContainerConfig{Name: "meta", Sub: "c1", HasSub: true, ReadOnly: true}
	b := ContainerConfig{Name: "meta", Sub: "c1", HasSub: true, ReadOnly: true}
	require.Equal(t, a, b)

	m := map[ContainerConfig]int{a: 1}
	require.Equal(t, 1, m[b])

	for _, c := range []ContainerConfig{
		{Name: "meta", Sub: "c1", HasSub: true, ReadOnly: false},
		{Name: "meta", Sub: "c2", HasSub: true, ReadOnly: true},
		{Name: "meta", ReadOnly: true},
		{Name: "trcs", Sub: "c1", HasSub: true, ReadOnly: true},
	} {
		_, ok := m[c]
		require.False(t, ok, c.String())
	}
}

func TestResolve(t *testing.T) {
	for _, tc := range []struct {
		cfg       ContainerConfig
		fromUnion bool
		kind      ContainerKind
		path      string
		err       error
	}{
		{
			cfg:       ContainerConfig{Name: "meta", ReadOnly: true},
			fromUnion: true,
			kind:      KindUnion,
			path:      "meta",
		},
		{
			cfg:  ContainerConfig{Name: "meta", Sub: "c1", HasSub: true, ReadOnly: true},
			kind: KindPhysical,
			path: filepath.Join("meta", "chunks", "c1"),
		},
		{
			cfg:       ContainerConfig{Name: "meta", Sub: "c1", HasSub: true},
			fromUnion: true,
			kind:      KindPhysical,
			path:      filepath.Join("meta", "chunks", "c1"),
		},
		{
			cfg: ContainerConfig{Name: "meta", ReadOnly: true},
			err: ErrSubRequired,
		},
		{
			cfg:       ContainerConfig{Name: "meta"},
			fromUnion: true,
			err:       ErrSubRequired,
		},
	} {
		t.Run(fmt.Sprintf("%s union=%t", tc.cfg, tc.fromUnion), func(t *testing.T) {
			kind, path, err := resolve(tc.cfg, tc.fromUnion)
			if tc.err != nil {
				require.ErrorIs(t, err, tc.err)
				return
			}

			require.NoError(t, err)
			require.Equal(t, tc.kind, kind)
			require.Equal(t, tc.path, path)
		})
	}
}

func TestRepo_SingletonCaching(t *testing.T) {
	r := openRepo(t, t.TempDir(), false)

	v1, err := r.Request("meta", "", true, true)
	require.NoError(t, err)
	v2, err := r.Request("meta", "", true, true)
	require.NoError(t, err)
	require.Same(t, v1, v2)

	w1, err := r.Request("meta", "c1", false, false)
	require.NoError(t, err)
	w2, err := r.Request("meta", "c1", false, true)
	require.NoError(t, err)
	require.Same(t, w1, w2)
	require.NotSame(t, v1, w1)

	c1, err := r.GetContainer("meta", true, true)
	require.NoError(t, err)
	require.Same(t, v1.Container(), c1)

	c2, err := r.GetContainer(filepath.Join("meta", "chunks", "c1"), false, false)
	require.NoError(t, err)
	require.Same(t, w1.Container(), c2)

	_, err = r.Request("meta", "", false, false)
	require.ErrorIs(t, err, ErrSubRequired)
}

func TestRepo_ReadOnly(t *testing.T) {
	dir := t.TempDir()
	r := openRepo(t, dir, true)
	require.True(t, r.ReadOnly())

	_, err := r.Request("meta", "c1", false, false)
	require.ErrorIs(t, err, ErrRepoReadOnly)

	_, err = r.GetContainer("meta", false, false)
	require.ErrorIs(t, err, ErrRepoReadOnly)

	_, err = r.CreateRun("run", "")
	require.ErrorIs(t, err, ErrRepoReadOnly)

	v, err := r.Request("meta", "", true, true)
	require.NoError(t, err)
	require.ErrorIs(t, v.Set([]byte("k"), []byte("v")), common.ErrReadOnly)
}

func TestRepo_WriteIsolation(t *testing.T) {
	dir := t.TempDir()

	writer := openRepo(t, dir, false)
	reader := openRepo(t, dir, true)

	w1, err := writer.Request("trcs", "c1", false, false)
	require.NoError(t, err)

	w2, err := writer.Request("trcs", "c2", false, false)
	require.NoError(t, err)

	u, err := reader.Request("trcs", "", true, true)
	require.NoError(t, err)

	require.NoError(t, w1.Set([]byte("k"), []byte("v")))

	t.Run("other chunk", func(t *testing.T) {
		_, err := w2.Get([]byte("k"))
		require.ErrorIs(t, err, common.ErrNotFound)

		require.NoError(t, w1.Commit())

		_, err = w2.Get([]byte("k"))
		require.ErrorIs(t, err, common.ErrNotFound)

		c2, err := reader.Request("trcs", "c2", true, false)
		require.NoError(t, err)

		_, err = c2.Get([]byte("k"))
		require.ErrorIs(t, err, common.ErrNotFound)
	})

	t.Run("union", func(t *testing.T) {
		require.NoError(t, w1.Set([]byte("staged"), []byte("v")))

		// the chunk being written is invisible as a whole
		_, err := u.Get([]byte("staged"))
		require.ErrorIs(t, err, common.ErrNotFound)
		_, err = u.Get([]byte("k"))
		require.ErrorIs(t, err, common.ErrNotFound)

		require.NoError(t, w1.Commit())

		val, err := u.Get([]byte("k"))
		require.NoError(t, err)
		require.Equal(t, []byte("v"), val)

		val, err = u.Get([]byte("staged"))
		require.NoError(t, err)
		require.Equal(t, []byte("v"), val)
	})
}

func TestRepo_RequestDistinctConfigs(t *testing.T) {
	r := openRepo(t, t.TempDir(), false)

	base, err := r.Request("trcs", "c1", true, false)
	require.NoError(t, err)

	for _, tc := range []struct {
		name     string
		sub      string
		readOnly bool
	}{
		{name: "meta", sub: "c1", readOnly: true},
		{name: "trcs", sub: "c2", readOnly: true},
		{name: "trcs", sub: "c1", readOnly: false},
	} {
		v, err := r.Request(tc.name, tc.sub, tc.readOnly, false)
		require.NoError(t, err)
		require.NotSame(t, base, v, "%s/%s read-only=%t", tc.name, tc.sub, tc.readOnly)
	}

	same, err := r.Request("trcs", "c1", true, false)
	require.NoError(t, err)
	require.Same(t, base, same)
}

func TestRepo_WriteLockHeld(t *testing.T) {
	dir := t.TempDir()

	r1 := openRepo(t, dir, false)
	r2 := openRepo(t, dir, false)

	_, err := r1.Request("meta", "c1", false, false)
	require.NoError(t, err)

	_, err = r2.Request("meta", "c1", false, false)
	require.ErrorIs(t, err, common.ErrWriteLockHeld)
}

func TestRepo_UnionLastWriterWins(t *testing.T) {
	dir := t.TempDir()
	r := openRepo(t, dir, false)

	for _, sub := range []string{"c2", "c1", "c3"} {
		w, err := r.Request("trcs", sub, false, false)
		require.NoError(t, err)
		require.NoError(t, w.Set([]byte("k"), []byte(sub)))
		require.NoError(t, w.Commit())
	}

	u, err := r.Request("trcs", "", true, true)
	require.NoError(t, err)

	v, err := u.Get([]byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("c3"), v)
}

func TestRepo_UnionRange(t *testing.T) {
	r := openRepo(t, t.TempDir(), false)

	for _, w := range []struct{ sub, val string }{
		{sub: "a", val: "1"},
		{sub: "b", val: "2"},
	} {
		v, err := r.Request("x", w.sub, false, false)
		require.NoError(t, err)
		require.NoError(t, v.Set([]byte("x"), []byte(w.val)))
		require.NoError(t, v.Commit())
	}

	u, err := r.Request("x", "", true, true)
	require.NoError(t, err)

	it, err := u.Range(nil)
	require.NoError(t, err)
	items, err := common.Collect(it)
	require.NoError(t, err)
	require.Equal(t, []common.Item{{Key: []byte("x"), Value: []byte("2")}}, items)
}

func TestRepo_InProgressInvisible(t *testing.T) {
	dir := t.TempDir()
	r := openRepo(t, dir, false)

	run, err := r.CreateRun("baseline", "exp")
	require.NoError(t, err)

	_, err = r.Run(run.Hash())
	require.ErrorIs(t, err, ErrRunNotFound)

	require.NoError(t, run.Commit())

	got, err := r.Run(run.Hash())
	require.NoError(t, err)

	name, err := got.Name()
	require.NoError(t, err)
	require.Equal(t, "baseline", name)
	require.NoError(t, run.Close())
}

func TestRepo_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	r := openRepo(t, dir, false)

	a, err := r.CreateRun("a", "exp1")
	require.NoError(t, err)
	require.NoError(t, a.Set(encoding.Path{encoding.String("hparams")}, map[string]any{"lr": 0.1}))
	require.NoError(t, a.AddTrace("loss", map[string]any{"subset": "train"}))
	require.NoError(t, a.AddTrace("loss", map[string]any{"subset": "val"}))
	require.NoError(t, a.AddTrace("acc", map[string]any{"subset": "train"}))
	require.NoError(t, a.Commit())
	require.NoError(t, a.Close())

	b, err := r.CreateRun("b", "exp2")
	require.NoError(t, err)
	require.NoError(t, b.AddTrace("loss", nil))
	require.NoError(t, b.Commit())
	require.NoError(t, b.Close())

	// another process
	reader := openRepo(t, dir, true)

	var hashes []string
	for run, err := range reader.IterRuns() {
		require.NoError(t, err)
		require.True(t, run.ReadOnly())
		hashes = append(hashes, run.Hash())
	}
	require.Equal(t, []string{a.Hash(), b.Hash()}, hashes)

	// iteration is restartable
	var n int
	for _, err := range reader.IterRuns() {
		require.NoError(t, err)
		n++
	}
	require.Equal(t, 2, n)

	run, err := reader.Run(a.Hash())
	require.NoError(t, err)

	lr, err := run.Get(encoding.String("hparams"), encoding.String("lr"))
	require.NoError(t, err)
	require.Equal(t, 0.1, lr)

	runs, err := reader.QueryRuns(`run.experiment == "exp2"`)
	require.NoError(t, err)
	matched, err := runs.All()
	require.NoError(t, err)
	require.Len(t, matched, 1)
	require.Equal(t, b.Hash(), matched[0].Hash())

	all, err := reader.QueryRuns("")
	require.NoError(t, err)
	matched, err = all.All()
	require.NoError(t, err)
	require.Len(t, matched, 2)

	traces, err := reader.Traces(`metric.name == "loss" && metric.context.subset == "train"`)
	require.NoError(t, err)
	found, err := traces.All()
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.Equal(t, a.Hash(), found[0].Run.Hash())
	require.Equal(t, map[string]any{"subset": "train"}, found[0].Context)

	traces, err = reader.Traces(`metric.name == "loss"`)
	require.NoError(t, err)
	found, err = traces.All()
	require.NoError(t, err)
	require.Len(t, found, 3)

	_, err = reader.QueryRuns("run.name ==")
	require.Error(t, err)

	recs, err := reader.RunDB().Runs()
	require.NoError(t, err)
	require.Len(t, recs, 2)
	require.Equal(t, rundb.Run{Hash: a.Hash(), Name: "a", Experiment: "exp1"}, withoutTime(recs[0]))
}

func withoutTime(r rundb.Run) rundb.Run {
	r.CreatedAt = time.Time{}
	return r
}

func TestRepo_SentinelSkipped(t *testing.T) {
	dir := t.TempDir()
	r := openRepo(t, dir, false)

	v, err := r.Request(MetaContainer, "repo", false, false)
	require.NoError(t, err)
	require.NoError(t, v.View(metaPrefix).Tree().Assign(
		encoding.Path{encoding.String(SentinelRun)},
		map[string]any{"version": int64(1)},
	))
	require.NoError(t, v.Commit())

	run, err := r.CreateRun("only", "")
	require.NoError(t, err)
	require.NoError(t, run.Commit())

	var hashes []string
	for run, err := range r.IterRuns() {
		require.NoError(t, err)
		hashes = append(hashes, run.Hash())
	}
	require.Equal(t, []string{run.Hash()}, hashes)

	_, err = r.Run(SentinelRun)
	require.ErrorIs(t, err, ErrRunNotFound)

	version, err := r.MetaTree().Resolve(encoding.String(SentinelRun), encoding.String("version"))
	require.NoError(t, err)
	require.Equal(t, int64(1), version)
}

// dropRun opens writable run and drops it without closing.
func dropRun(t *testing.T, r *Repo, hash string) {
	run, err := r.OpenRun(hash)
	require.NoError(t, err)
	require.NoError(t, run.Set(encoding.Path{encoding.String("name")}, "dropped"))
}

func TestRepo_DroppedRunReleased(t *testing.T) {
	r := openRepo(t, t.TempDir(), false)

	dropRun(t, r, "run-x")

	require.Eventually(t, func() bool {
		runtime.GC()

		run, err := r.OpenRun("run-x")
		if err != nil {
			return false
		}

		require.NoError(t, run.Close())
		return true
	}, 5*time.Second, 10*time.Millisecond)
}

func TestRepo_LsFilesRemote(t *testing.T) {
	dir := t.TempDir()
	r := openRepo(t, dir, false)

	run, err := r.CreateRun("a", "")
	require.NoError(t, err)
	require.NoError(t, run.Commit())

	files, err := r.LsFiles()
	require.NoError(t, err)
	require.Contains(t, files, filepath.Join(r.Path(), MetaContainer, container.ChunksDir, run.Hash()))
	require.Contains(t, files, filepath.Join(r.Path(), rundb.FileName))

	for _, f := range files {
		require.NotContains(t, f, string(filepath.Separator)+container.LocksDir+string(filepath.Separator))
	}

	_, err = r.RemoteURL("origin")
	require.ErrorIs(t, err, ErrRemoteNotFound)

	require.NoError(t, os.WriteFile(filepath.Join(dir, ConfigFile), []byte("remotes:\n  origin: aim://localhost:53800/project\n"), 0o600))

	url, err := r.RemoteURL("origin")
	require.NoError(t, err)
	require.Equal(t, "aim://localhost:53800/project", url)

	_, err = r.RemoteURL("backup")
	require.ErrorIs(t, err, ErrRemoteNotFound)
}

func TestRepo_Recover(t *testing.T) {
	dir := t.TempDir()
	r := openRepo(t, dir, false)

	run, err := r.CreateRun("a", "")
	require.NoError(t, err)
	require.NoError(t, run.Commit())
	require.NoError(t, run.Close())

	chunk := filepath.Join(r.Path(), MetaContainer, container.ChunksDir, run.Hash())

	// live writer is not touched
	live, err := r.OpenRun(run.Hash())
	require.NoError(t, err)
	require.NoError(t, live.Set(encoding.Path{encoding.String("x")}, int64(1)))

	recovered, err := r.Recover()
	require.NoError(t, err)
	require.Empty(t, recovered)
	require.True(t, container.IsInProgress(chunk))

	require.NoError(t, live.Close())

	// marker of a dead writer
	require.NoError(t, os.WriteFile(container.ProgressPath(chunk), nil, 0o600))

	_, err = r.Run(run.Hash())
	require.ErrorIs(t, err, ErrRunNotFound)

	recovered, err = r.Recover()
	require.NoError(t, err)
	require.Equal(t, []string{chunk}, recovered)

	got, err := r.Run(run.Hash())
	require.NoError(t, err)

	_, err = got.Get(encoding.String("x"))
	require.ErrorIs(t, err, common.ErrNotFound)
}

// dropRepo opens the repository and returns its views without keeping the
// Repo.
func dropRepo(t *testing.T, dir string) (view.ContainerView, view.ContainerView, *view.Tree) {
	r, err := NewRegistry(
		WithLogger(zap.NewNop()),
		WithContainerOptions(container.WithNoSync(true)),
	).FromPath(dir, false)
	require.NoError(t, err)

	w, err := r.Request("trcs", "c1", false, false)
	require.NoError(t, err)

	u, err := r.Request("trcs", "", true, true)
	require.NoError(t, err)

	return w, u, r.MetaTree()
}

func TestRepo_ViewsOutliveDroppedRepo(t *testing.T) {
	w, u, meta := dropRepo(t, t.TempDir())
	t.Cleanup(func() {
		require.NoError(t, w.Container().Close())
		require.NoError(t, u.Container().Close())
		require.NoError(t, meta.View().Container().Close())
	})

	require.NoError(t, w.Set([]byte("k"), []byte("v")))

	for range 3 {
		runtime.GC()
		time.Sleep(10 * time.Millisecond)
	}

	val, err := w.Get([]byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("v"), val)

	require.NoError(t, w.Commit())

	val, err = u.Get([]byte("k"))
	require.NoError(t, err)
	require.Equal(t, []byte("v"), val)

	keys, err := meta.Keys()
	require.NoError(t, err)
	require.Empty(t, keys)
}
