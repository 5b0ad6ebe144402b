package container

import (
	"strings"

	"github.com/aimstack/aimstore/pkg/local_storage/common"
	"github.com/emirpasic/gods/maps/treemap"
	"github.com/emirpasic/gods/utils"
)

// entry is a staged write.
type entry struct {
	value   []byte
	deleted bool
}

// buffer is an ordered set of staged writes.
type buffer struct {
	m *treemap.Map
}

func newBuffer() *buffer {
	return &buffer{m: treemap.NewWith(utils.StringComparator)}
}

func (b *buffer) get(key []byte) (entry, bool) {
	v, ok := b.m.Get(string(key))
	if !ok {
		return entry{}, false
	}
	return v.(entry), true
}

func (b *buffer) put(key []byte, e entry) {
	b.m.Put(string(key), e)
}

func (b *buffer) size() int {
	return b.m.Size()
}

func (b *buffer) clear() {
	b.m.Clear()
}

// items returns sorted staged writes of the keys with the prefix.
func (b *buffer) items(prefix []byte) []common.Item {
	p := string(prefix)
	it := b.m.Iterator()

	found := it.NextTo(func(k, _ interface{}) bool {
		return strings.HasPrefix(k.(string), p)
	})
	if !found {
		return nil
	}

	var res []common.Item

	for ok := true; ok && strings.HasPrefix(it.Key().(string), p); ok = it.Next() {
		e := it.Value().(entry)
		res = append(res, common.Item{
			Key:     []byte(it.Key().(string)),
			Value:   e.value,
			Deleted: e.deleted,
		})
	}

	return res
}

// each calls f for each staged write in key order.
func (b *buffer) each(f func(key []byte, e entry) error) error {
	it := b.m.Iterator()
	for it.Next() {
		if err := f([]byte(it.Key().(string)), it.Value().(entry)); err != nil {
			return err
		}
	}
	return nil
}
