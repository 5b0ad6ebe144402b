package common

import (
	"bytes"
	"errors"

	"github.com/emirpasic/gods/trees/binaryheap"
)

// NewMergeIterator returns Iterator performing k-way merge of the sorted
// sources. Sources are ordered by priority: when several of them hold the
// same key, the value of the source with the greatest index wins and the
// superseded entries are skipped. Entries whose winning source reports a
// tombstone (see Tombstoner) are skipped as well.
//
// Closing the merge iterator closes all sources.
func NewMergeIterator(sources []Iterator) Iterator {
	return &mergeIterator{
		sources: sources,
		heap:    binaryheap.NewWith(compareHeads),
	}
}

// head is the current entry of one source.
type head struct {
	key   []byte
	value []byte
	tomb  bool
	src   int
}

// compareHeads orders heads by key, then by descending priority so that
// the winning entry of equal keys is popped first.
func compareHeads(a, b interface{}) int {
	ha, hb := a.(head), b.(head)

	if c := bytes.Compare(ha.key, hb.key); c != 0 {
		return c
	}

	switch {
	case ha.src > hb.src:
		return -1
	case ha.src < hb.src:
		return 1
	default:
		return 0
	}
}

type mergeIterator struct {
	sources []Iterator
	heap    *binaryheap.Heap

	started bool
	cur     head
	err     error
}

// advance moves source i forward and pushes its new head.
func (m *mergeIterator) advance(i int) bool {
	it := m.sources[i]

	if !it.Next() {
		if err := it.Err(); err != nil {
			m.err = err
			return false
		}

		return true
	}

	h := head{
		key:   it.Key(),
		value: it.Value(),
		src:   i,
	}

	if t, ok := it.(Tombstoner); ok {
		h.tomb = t.Tombstone()
	}

	m.heap.Push(h)

	return true
}

func (m *mergeIterator) Next() bool {
	if m.err != nil {
		return false
	}

	if !m.started {
		m.started = true

		for i := range m.sources {
			if !m.advance(i) {
				return false
			}
		}
	}

	for {
		top, ok := m.heap.Pop()
		if !ok {
			m.cur = head{}
			return false
		}

		winner := top.(head)

		// drop superseded entries of the same key
		for {
			next, ok := m.heap.Peek()
			if !ok || !bytes.Equal(next.(head).key, winner.key) {
				break
			}

			m.heap.Pop()

			if !m.advance(next.(head).src) {
				return false
			}
		}

		if !m.advance(winner.src) {
			return false
		}

		if winner.tomb {
			continue
		}

		m.cur = winner

		return true
	}
}

func (m *mergeIterator) Seek(key []byte) {
	if m.err != nil {
		return
	}

	m.heap.Clear()
	m.cur = head{}

	for i := range m.sources {
		m.sources[i].Seek(key)
	}

	// heads are pushed again by the following Next
	m.started = false
}

func (m *mergeIterator) Key() []byte {
	return m.cur.key
}

func (m *mergeIterator) Value() []byte {
	return m.cur.value
}

func (m *mergeIterator) Err() error {
	return m.err
}

func (m *mergeIterator) Close() error {
	var errs []error

	for i := range m.sources {
		if err := m.sources[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
