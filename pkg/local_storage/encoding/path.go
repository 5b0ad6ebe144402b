package encoding

import (
	"strings"
)

// Path is a hierarchical key.
type Path []Segment

// FromValues converts Go values into the Path, see FromValue.
func FromValues(vs ...any) (Path, error) {
	p := make(Path, 0, len(vs))

	for i := range vs {
		s, err := FromValue(vs[i])
		if err != nil {
			return nil, err
		}

		p = append(p, s)
	}

	return p, nil
}

// Append returns a new path extended with the segments. p is not modified.
func (p Path) Append(segs ...Segment) Path {
	res := make(Path, 0, len(p)+len(segs))
	res = append(res, p...)

	return append(res, segs...)
}

// Compare compares paths in depth-first, left-to-right order: a path goes
// before its descendants, and siblings are ordered by Segment.Compare.
func (p Path) Compare(o Path) int {
	for i := 0; i < len(p) && i < len(o); i++ {
		if c := p[i].Compare(o[i]); c != 0 {
			return c
		}
	}

	switch {
	case len(p) < len(o):
		return -1
	case len(p) > len(o):
		return 1
	default:
		return 0
	}
}

// Equal checks whether paths are the same.
func (p Path) Equal(o Path) bool {
	return len(p) == len(o) && p.Compare(o) == 0
}

// Encode is a shortcut for Encode(p...).
func (p Path) Encode() []byte {
	return Encode(p...)
}

func (p Path) String() string {
	var sb strings.Builder

	for i := range p {
		if i > 0 {
			sb.WriteByte('.')
		}

		sb.WriteString(p[i].String())
	}

	return sb.String()
}

// Compare compares paths, see Path.Compare.
func Compare(a, b Path) int {
	return a.Compare(b)
}
