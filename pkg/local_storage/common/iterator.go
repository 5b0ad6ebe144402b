package common

import (
	"bytes"
	"slices"
)

// Item is a key-value pair.
type Item struct {
	Key   []byte
	Value []byte

	// Deleted marks a removal staged over the committed data.
	Deleted bool
}

// NewSliceIterator returns Iterator over sorted items. Items are
// not copied.
func NewSliceIterator(items []Item) Iterator {
	return &sliceIterator{items: items, pos: -1}
}

// EmptyIterator returns Iterator with no items.
func EmptyIterator() Iterator {
	return NewSliceIterator(nil)
}

type sliceIterator struct {
	items []Item
	pos   int
}

func (it *sliceIterator) Next() bool {
	if it.pos+1 >= len(it.items) {
		it.pos = len(it.items)
		return false
	}

	it.pos++

	return true
}

func (it *sliceIterator) Seek(key []byte) {
	i, _ := slices.BinarySearchFunc(it.items, key, func(item Item, k []byte) int {
		return bytes.Compare(item.Key, k)
	})

	it.pos = i - 1
}

func (it *sliceIterator) cur() *Item {
	if it.pos < 0 || it.pos >= len(it.items) {
		return nil
	}

	return &it.items[it.pos]
}

func (it *sliceIterator) Key() []byte {
	if c := it.cur(); c != nil {
		return c.Key
	}

	return nil
}

func (it *sliceIterator) Value() []byte {
	if c := it.cur(); c != nil {
		return c.Value
	}

	return nil
}

func (it *sliceIterator) Tombstone() bool {
	if c := it.cur(); c != nil {
		return c.Deleted
	}

	return false
}

func (it *sliceIterator) Err() error { return nil }

func (it *sliceIterator) Close() error { return nil }

// Collect drains the iterator into a slice of items and closes it.
func Collect(it Iterator) ([]Item, error) {
	defer it.Close()

	var res []Item
	for it.Next() {
		res = append(res, Item{
			Key:   bytes.Clone(it.Key()),
			Value: bytes.Clone(it.Value()),
		})
	}

	return res, it.Err()
}
