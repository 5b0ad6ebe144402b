package repo

import (
	"runtime"
	"sync"
	"weak"
)

// weakPool maps keys to weakly held values. Entries of collected values
// are removed.
type weakPool[K comparable, V any] struct {
	mtx sync.Mutex
	m   map[K]weak.Pointer[V]
}

func newWeakPool[K comparable, V any]() *weakPool[K, V] {
	return &weakPool[K, V]{m: make(map[K]weak.Pointer[V])}
}

// get returns the value if it is still referenced.
func (p *weakPool[K, V]) get(k K) *V {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	wp, ok := p.m[k]
	if !ok {
		return nil
	}

	v := wp.Value()
	if v == nil {
		delete(p.m, k)
	}

	return v
}

func (p *weakPool[K, V]) put(k K, v *V) {
	wp := weak.Make(v)

	p.mtx.Lock()
	p.m[k] = wp
	p.mtx.Unlock()

	runtime.AddCleanup(v, p.evict, cleanupArg[K, V]{key: k, ptr: wp})
}

type cleanupArg[K comparable, V any] struct {
	key K
	ptr weak.Pointer[V]
}

// evict removes the entry if it still refers to the collected value.
func (p *weakPool[K, V]) evict(a cleanupArg[K, V]) {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	if cur, ok := p.m[a.key]; ok && cur == a.ptr {
		delete(p.m, a.key)
	}
}

func (p *weakPool[K, V]) remove(k K) {
	p.mtx.Lock()
	delete(p.m, k)
	p.mtx.Unlock()
}

// values returns all referenced values.
func (p *weakPool[K, V]) values() []*V {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	res := make([]*V, 0, len(p.m))
	for _, wp := range p.m {
		if v := wp.Value(); v != nil {
			res = append(res, v)
		}
	}

	return res
}

func (p *weakPool[K, V]) len() int {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	return len(p.m)
}
