package view

import (
	"github.com/aimstack/aimstore/pkg/local_storage/encoding"
)

// node is a decoded tree node.
type node struct {
	kind nodeKind
	leaf any

	keys     []encoding.Segment
	children map[encoding.Segment]*node
}

// insert stores the value at the path relative to n. Entries must be
// inserted in the key order.
func (n *node) insert(path encoding.Path, v any, k nodeKind) {
	cur := n

	for i := range path {
		if cur.children == nil {
			cur.children = make(map[encoding.Segment]*node)
		}

		child, ok := cur.children[path[i]]
		if !ok {
			child = new(node)
			cur.children[path[i]] = child
			cur.keys = append(cur.keys, path[i])
		}

		cur = child
	}

	cur.kind, cur.leaf = k, v
}

func (n *node) value() any {
	if len(n.children) == 0 {
		switch n.kind {
		case kindMap:
			return map[string]any{}
		case kindList:
			return []any{}
		default:
			return n.leaf
		}
	}

	if n.kind == kindList {
		res := make([]any, 0, len(n.keys))
		for _, k := range n.keys {
			res = append(res, n.children[k].value())
		}
		return res
	}

	var strKeys, intKeys int
	for _, k := range n.keys {
		switch k.Kind() {
		case encoding.KindString:
			strKeys++
		case encoding.KindInt:
			intKeys++
		}
	}

	switch len(n.keys) {
	case strKeys:
		res := make(map[string]any, len(n.keys))
		for _, k := range n.keys {
			s, _ := k.AsString()
			res[s] = n.children[k].value()
		}
		return res
	case intKeys:
		res := make(map[int64]any, len(n.keys))
		for _, k := range n.keys {
			i, _ := k.AsInt()
			res[i] = n.children[k].value()
		}
		return res
	default:
		res := make(map[any]any, len(n.keys))
		for _, k := range n.keys {
			res[k.Value()] = n.children[k].value()
		}
		return res
	}
}
