package repo

import (
	"fmt"
	"iter"
	"strings"

	"github.com/aimstack/aimstore/pkg/local_storage/encoding"
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Names of the query environment variables.
const (
	envRun    = "run"
	envMetric = "metric"
	envHash   = "hash"
)

// QueryRuns returns runs matching the query. See NewQueryRunCollection.
func (r *Repo) QueryRuns(query string) (*RunCollection, error) {
	return NewQueryRunCollection(r, query)
}

// Traces returns traces matching the query. See NewQueryTraceCollection.
func (r *Repo) Traces(query string) (*TraceCollection, error) {
	return NewQueryTraceCollection(r, query)
}

// compileQuery compiles boolean expression. Empty query matches everything.
func compileQuery(query string) (*vm.Program, error) {
	if strings.TrimSpace(query) == "" {
		return nil, nil
	}

	p, err := expr.Compile(query, expr.AsBool(), expr.AllowUndefinedVariables())
	if err != nil {
		return nil, fmt.Errorf("compile query %q: %w", query, err)
	}

	return p, nil
}

func match(p *vm.Program, env map[string]any) (bool, error) {
	if p == nil {
		return true, nil
	}

	res, err := expr.Run(p, env)
	if err != nil {
		return false, fmt.Errorf("evaluate query: %w", err)
	}

	ok, _ := res.(bool)

	return ok, nil
}

func runEnv(run *Run) (map[string]any, error) {
	meta, err := run.Meta()
	if err != nil {
		return nil, err
	}

	meta[envHash] = run.Hash()

	return meta, nil
}

// RunCollection is a set of runs matching the query. The query is an
// expression over the variable run holding the run metadata and its hash:
//
//	run.experiment == "baseline" && run.hash != "..."
type RunCollection struct {
	repo    *Repo
	query   string
	program *vm.Program
}

// NewQueryRunCollection compiles the query and returns the collection.
func NewQueryRunCollection(repo *Repo, query string) (*RunCollection, error) {
	p, err := compileQuery(query)
	if err != nil {
		return nil, err
	}

	return &RunCollection{repo: repo, query: query, program: p}, nil
}

// Query returns the query source.
func (c *RunCollection) Query() string {
	return c.query
}

// Iter returns the lazy sequence of the matching runs.
func (c *RunCollection) Iter() RunIterator {
	return func(yield func(*Run, error) bool) {
		for run, err := range c.repo.IterRuns() {
			if err != nil {
				yield(nil, err)
				return
			}

			env, err := runEnv(run)
			if err != nil {
				yield(nil, err)
				return
			}

			ok, err := match(c.program, map[string]any{envRun: env})
			if err != nil {
				yield(nil, fmt.Errorf("run %s: %w", run.Hash(), err))
				return
			}

			if ok && !yield(run, nil) {
				return
			}
		}
	}
}

// All returns all matching runs.
func (c *RunCollection) All() ([]*Run, error) {
	var res []*Run

	for run, err := range c.Iter() {
		if err != nil {
			return nil, err
		}
		res = append(res, run)
	}

	return res, nil
}

// Trace is a metric of the run tracked in the context.
type Trace struct {
	Run       *Run
	Name      string
	Context   map[string]any
	ContextID int64
}

// TraceCollection is a set of traces matching the query. In addition to
// run the query may use the variable metric with fields name and context:
//
//	metric.name == "loss" && metric.context.subset == "train"
type TraceCollection struct {
	repo    *Repo
	query   string
	program *vm.Program
}

// NewQueryTraceCollection compiles the query and returns the collection.
func NewQueryTraceCollection(repo *Repo, query string) (*TraceCollection, error) {
	p, err := compileQuery(query)
	if err != nil {
		return nil, err
	}

	return &TraceCollection{repo: repo, query: query, program: p}, nil
}

// Query returns the query source.
func (c *TraceCollection) Query() string {
	return c.query
}

// Iter returns the lazy sequence of the matching traces.
func (c *TraceCollection) Iter() iter.Seq2[Trace, error] {
	return func(yield func(Trace, error) bool) {
		for run, err := range c.repo.IterRuns() {
			if err != nil {
				yield(Trace{}, err)
				return
			}

			traces, err := runTraces(run)
			if err != nil {
				yield(Trace{}, fmt.Errorf("run %s: %w", run.Hash(), err))
				return
			}

			if len(traces) == 0 {
				continue
			}

			env, err := runEnv(run)
			if err != nil {
				yield(Trace{}, err)
				return
			}

			for _, t := range traces {
				ok, err := match(c.program, map[string]any{
					envRun: env,
					envMetric: map[string]any{
						"name":    t.Name,
						"context": t.Context,
					},
				})
				if err != nil {
					yield(Trace{}, fmt.Errorf("run %s: %w", run.Hash(), err))
					return
				}

				if ok && !yield(t, nil) {
					return
				}
			}
		}
	}
}

// All returns all matching traces.
func (c *TraceCollection) All() ([]Trace, error) {
	var res []Trace

	for t, err := range c.Iter() {
		if err != nil {
			return nil, err
		}
		res = append(res, t)
	}

	return res, nil
}

// runTraces lists traces of the run.
func runTraces(run *Run) ([]Trace, error) {
	ctxKeys, err := run.tree.Keys(encoding.String(keyTraces))
	if err != nil {
		return nil, err
	}

	var res []Trace

	for _, ck := range ctxKeys {
		ctxID, ok := ck.AsInt()
		if !ok {
			continue
		}

		context := map[string]any{}

		v, err := run.tree.Resolve(encoding.String(keyContexts), ck)
		if err == nil {
			if m, ok := v.(map[string]any); ok {
				context = m
			}
		}

		names, err := run.tree.Keys(encoding.String(keyTraces), ck)
		if err != nil {
			return nil, err
		}

		for _, nk := range names {
			name, ok := nk.AsString()
			if !ok {
				continue
			}

			res = append(res, Trace{
				Run:       run,
				Name:      name,
				Context:   context,
				ContextID: ctxID,
			})
		}
	}

	return res, nil
}
