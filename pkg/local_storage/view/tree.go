package view

import (
	"errors"
	"fmt"

	"github.com/aimstack/aimstore/pkg/local_storage/common"
	"github.com/aimstack/aimstore/pkg/local_storage/encoding"
)

// Tree is a hierarchical facade over the ContainerView. A node at the path
// P is stored at the key encoding.Encode(P...): leaves hold CBOR encoded
// values, maps and lists are unfolded into one key per leaf plus the marker
// at the node key, so that empty containers survive.
type Tree struct {
	v     ContainerView
	codec *codec
}

// NewTree returns Tree over the view.
func NewTree(v ContainerView) *Tree {
	return v.Tree()
}

// View returns the view the Tree works over.
func (t *Tree) View() ContainerView {
	return t.v
}

// Subtree returns Tree rooted at the path.
func (t *Tree) Subtree(path ...encoding.Segment) *Tree {
	return &Tree{
		v:     t.v.View(encoding.Encode(path...)),
		codec: t.codec,
	}
}

// Exists checks whether the node at the path exists.
func (t *Tree) Exists(path ...encoding.Segment) (bool, error) {
	it, err := t.v.Range(encoding.Encode(path...))
	if err != nil {
		return false, err
	}
	defer it.Close()

	if it.Next() {
		return true, nil
	}

	return false, it.Err()
}

// Resolve returns the value of the node at the path. Maps are returned as
// map[string]any or map[int64]any (map[any]any for mixed keys), lists as
// []any.
//
// Returns common.ErrNotFound if the node does not exist.
func (t *Tree) Resolve(path ...encoding.Segment) (any, error) {
	items, err := t.collect(path)
	if err != nil {
		return nil, err
	}

	if len(items) == 0 {
		return nil, fmt.Errorf("resolve %s: %w", encoding.Path(path), common.ErrNotFound)
	}

	root := new(node)

	for i := range items {
		rel, err := encoding.Decode(items[i].Key)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: %w", encoding.Path(path), err)
		}

		val, kind, err := t.codec.decode(items[i].Value)
		if err != nil {
			return nil, fmt.Errorf("resolve %s: node %s: %w", encoding.Path(path), rel, err)
		}

		root.insert(rel, val, kind)
	}

	return root.value(), nil
}

// Keys returns the child keys of the node at the path in the encoding
// order. Leaves and missing nodes have no keys.
func (t *Tree) Keys(path ...encoding.Segment) ([]encoding.Segment, error) {
	it, err := t.v.Range(encoding.Encode(path...))
	if err != nil {
		return nil, err
	}
	defer it.Close()

	var (
		res  []encoding.Segment
		base = len(encoding.Encode(path...))
	)

	for it.Next() {
		key := it.Key()

		rel := key[base:]
		if len(rel) == 0 {
			continue
		}

		seg, rest, err := encoding.DecodeFirst(rel)
		if err != nil {
			return nil, fmt.Errorf("keys of %s: %w", encoding.Path(path), err)
		}

		res = append(res, seg)

		// skip the subtree of the child
		end := encoding.PrefixEnd(key[:len(key)-len(rest)])
		if end == nil {
			break
		}

		it.Seek(end)
	}

	if err := it.Err(); err != nil {
		return nil, err
	}

	return res, nil
}

// Assign replaces the node at the path with the value.
func (t *Tree) Assign(path encoding.Path, value any) error {
	if t.v.ReadOnly() {
		return common.ErrReadOnly
	}

	if err := t.Remove(path...); err != nil {
		return err
	}

	return t.write(path, value)
}

func (t *Tree) write(path encoding.Path, value any) error {
	switch v := value.(type) {
	case map[string]any:
		if err := t.setMarker(path, kindMap); err != nil {
			return err
		}
		for k, child := range v {
			if err := t.write(path.Append(encoding.String(k)), child); err != nil {
				return err
			}
		}
	case map[int]any:
		if err := t.setMarker(path, kindMap); err != nil {
			return err
		}
		for k, child := range v {
			if err := t.write(path.Append(encoding.Int(int64(k))), child); err != nil {
				return err
			}
		}
	case map[int64]any:
		if err := t.setMarker(path, kindMap); err != nil {
			return err
		}
		for k, child := range v {
			if err := t.write(path.Append(encoding.Int(k)), child); err != nil {
				return err
			}
		}
	case []any:
		if err := t.setMarker(path, kindList); err != nil {
			return err
		}
		for i, child := range v {
			if err := t.write(path.Append(encoding.Int(int64(i))), child); err != nil {
				return err
			}
		}
	default:
		data, err := t.codec.encodeLeaf(value)
		if err != nil {
			return fmt.Errorf("assign %s: %w", path, err)
		}
		return t.set(path, data)
	}

	return nil
}

func (t *Tree) setMarker(path encoding.Path, k nodeKind) error {
	data, err := t.codec.encodeMarker(k)
	if err != nil {
		return err
	}

	err = t.set(path, data)
	// view at the empty prefix can not hold the root marker
	if len(path) == 0 && errors.Is(err, common.ErrEmptyKey) {
		return nil
	}

	return err
}

func (t *Tree) set(path encoding.Path, data []byte) error {
	if err := t.v.Set(path.Encode(), data); err != nil {
		return fmt.Errorf("assign %s: %w", path, err)
	}
	return nil
}

// Remove removes the node at the path with all its descendants. Removal of
// the missing node is not an error.
func (t *Tree) Remove(path ...encoding.Segment) error {
	if t.v.ReadOnly() {
		return common.ErrReadOnly
	}

	items, err := t.collect(path)
	if err != nil {
		return err
	}

	base := encoding.Encode(path...)

	for i := range items {
		key := make([]byte, 0, len(base)+len(items[i].Key))
		key = append(key, base...)
		key = append(key, items[i].Key...)

		if err := t.v.Delete(key); err != nil {
			if len(key) == 0 && errors.Is(err, common.ErrEmptyKey) {
				continue
			}
			return fmt.Errorf("remove %s: %w", encoding.Path(path), err)
		}
	}

	return nil
}

// collect returns entries of the subtree at the path with keys relative to
// the path.
func (t *Tree) collect(path []encoding.Segment) ([]common.Item, error) {
	base := encoding.Encode(path...)

	it, err := t.v.Range(base)
	if err != nil {
		return nil, err
	}

	items, err := common.Collect(it)
	if err != nil {
		return nil, err
	}

	for i := range items {
		items[i].Key = items[i].Key[len(base):]
	}

	return items, nil
}
