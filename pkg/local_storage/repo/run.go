package repo

import (
	"errors"
	"fmt"
	"iter"
	"reflect"
	"time"

	"github.com/aimstack/aimstore/pkg/local_storage/common"
	"github.com/aimstack/aimstore/pkg/local_storage/encoding"
	"github.com/aimstack/aimstore/pkg/local_storage/rundb"
	"github.com/aimstack/aimstore/pkg/local_storage/view"
)

// Keys of the run metadata.
const (
	keyName       = "name"
	keyExperiment = "experiment"
	keyCreatedAt  = "created_at"
	keyContexts   = "contexts"
	keyTraces     = "traces"
)

// Run is a named entity of the meta tree. Read-only runs see the merged
// metadata of all chunks, writable runs own the chunk named by their hash.
type Run struct {
	hash     string
	repo     *Repo
	readOnly bool

	tree *view.Tree
	v    view.ContainerView
}

// RunIterator is a lazy sequence of runs. Each iteration reads the current
// state of the meta tree.
type RunIterator = iter.Seq2[*Run, error]

// IterRuns returns runs of the repository in the key order. The repository
// level sentinel key is skipped.
func (r *Repo) IterRuns() RunIterator {
	return func(yield func(*Run, error) bool) {
		keys, err := r.metaTree.Keys()
		if err != nil {
			yield(nil, fmt.Errorf("list runs: %w", err))
			return
		}

		for _, k := range keys {
			hash, ok := k.AsString()
			if !ok || hash == SentinelRun {
				continue
			}

			if !yield(r.readRun(hash), nil) {
				return
			}
		}
	}
}

func (r *Repo) readRun(hash string) *Run {
	return &Run{
		hash:     hash,
		repo:     r,
		readOnly: true,
		tree:     r.metaTree.Subtree(encoding.String(hash)),
	}
}

// Run returns read-only run by hash. Returns ErrRunNotFound if the run is
// missing.
func (r *Repo) Run(hash string) (*Run, error) {
	ok, err := r.metaTree.Exists(encoding.String(hash))
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", hash, err)
	}

	if !ok || hash == SentinelRun {
		return nil, fmt.Errorf("run %s: %w", hash, ErrRunNotFound)
	}

	return r.readRun(hash), nil
}

// CreateRun creates writable run in a new chunk of the meta container. The
// run metadata is staged: it becomes visible to readers after Commit.
func (r *Repo) CreateRun(name, experiment string) (*Run, error) {
	if r.readOnly {
		return nil, ErrRepoReadOnly
	}

	hash, err := r.chunkID()
	if err != nil {
		return nil, fmt.Errorf("generate run hash: %w", err)
	}

	run, err := r.OpenRun(hash)
	if err != nil {
		return nil, err
	}

	created := time.Now()

	err = run.tree.Assign(nil, map[string]any{
		keyName:       name,
		keyExperiment: experiment,
		keyCreatedAt:  created.Unix(),
		keyContexts:   map[int64]any{},
		keyTraces:     map[int64]any{},
	})
	if err != nil {
		_ = run.Close()
		return nil, fmt.Errorf("run %s: %w", hash, err)
	}

	err = r.runDB.CreateRun(rundb.Run{
		Hash:       hash,
		Name:       name,
		Experiment: experiment,
		CreatedAt:  created,
	})
	if err != nil {
		_ = run.Close()
		return nil, err
	}

	return run, nil
}

// OpenRun opens writable run stored in the chunk of the meta container
// named by the hash.
//
// Returns common.ErrWriteLockHeld if the run has another writer.
func (r *Repo) OpenRun(hash string) (*Run, error) {
	if hash == "" || hash == SentinelRun {
		return nil, fmt.Errorf("invalid run hash %q", hash)
	}

	v, err := r.Request(MetaContainer, hash, false, false)
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", hash, err)
	}

	return &Run{
		hash: hash,
		repo: r,
		v:    v,
		tree: v.View(metaPrefix).Tree().Subtree(encoding.String(hash)),
	}, nil
}

// Hash returns the run hash.
func (r *Run) Hash() string {
	return r.hash
}

// ReadOnly returns true for runs read from the merged meta tree.
func (r *Run) ReadOnly() bool {
	return r.readOnly
}

// Tree returns the metadata tree of the run.
func (r *Run) Tree() *view.Tree {
	return r.tree
}

// Get returns the metadata value at the path.
func (r *Run) Get(path ...encoding.Segment) (any, error) {
	return r.tree.Resolve(path...)
}

// Set replaces the metadata value at the path.
func (r *Run) Set(path encoding.Path, value any) error {
	if r.readOnly {
		return common.ErrReadOnly
	}
	return r.tree.Assign(path, value)
}

// Meta returns all metadata of the run.
func (r *Run) Meta() (map[string]any, error) {
	v, err := r.tree.Resolve()
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, fmt.Errorf("run %s: %w", r.hash, ErrRunNotFound)
		}
		return nil, err
	}

	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("run %s: unexpected metadata type %T", r.hash, v)
	}

	return m, nil
}

// Name returns the run name.
func (r *Run) Name() (string, error) {
	v, err := r.tree.Resolve(encoding.String(keyName))
	if err != nil {
		return "", err
	}

	s, _ := v.(string)

	return s, nil
}

// AddTrace registers the trace of the metric in the context.
func (r *Run) AddTrace(name string, context map[string]any) error {
	if r.readOnly {
		return common.ErrReadOnly
	}

	if context == nil {
		context = map[string]any{}
	}

	ctxID, err := r.contextID(context)
	if err != nil {
		return err
	}

	return r.tree.Assign(encoding.Path{
		encoding.String(keyTraces),
		encoding.Int(ctxID),
		encoding.String(name),
	}, map[string]any{})
}

// contextID returns identifier of the context, registering it if needed.
func (r *Run) contextID(context map[string]any) (int64, error) {
	var next int64

	keys, err := r.tree.Keys(encoding.String(keyContexts))
	if err != nil {
		return 0, err
	}

	for _, k := range keys {
		id, ok := k.AsInt()
		if !ok {
			continue
		}

		stored, err := r.tree.Resolve(encoding.String(keyContexts), k)
		if err != nil {
			return 0, err
		}

		if reflect.DeepEqual(normalizeContext(stored), normalizeContext(context)) {
			return id, nil
		}

		next = max(next, id+1)
	}

	err = r.tree.Assign(encoding.Path{encoding.String(keyContexts), encoding.Int(next)}, context)
	if err != nil {
		return 0, err
	}

	return next, nil
}

// normalizeContext brings the context to the form returned by Resolve.
func normalizeContext(v any) any {
	switch x := v.(type) {
	case map[string]any:
		if len(x) == 0 {
			return map[string]any{}
		}
		res := make(map[string]any, len(x))
		for k, val := range x {
			res[k] = normalizeContext(val)
		}
		return res
	case int:
		return int64(x)
	case int32:
		return int64(x)
	default:
		return v
	}
}

// Commit persists staged metadata of the writable run.
func (r *Run) Commit() error {
	if r.readOnly {
		return common.ErrReadOnly
	}
	return r.v.Commit()
}

// Close releases the chunk of the writable run. Uncommitted metadata is
// discarded.
func (r *Run) Close() error {
	if r.readOnly {
		return nil
	}
	return r.repo.release(MetaContainer, r.hash)
}
