package encoding

import (
	"bytes"
	"math"
	"math/rand"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func randPath(r *rand.Rand) Path {
	alphabet := []byte{0x00, 0x01, 'a', 'b', 0xfe, 0xff}

	p := make(Path, r.Intn(4))
	for i := range p {
		switch r.Intn(5) {
		case 0, 1:
			v := r.Int63n(7) - 3
			if r.Intn(4) == 0 {
				v = []int64{math.MinInt64, math.MaxInt64, -1 << 40, 1 << 40}[r.Intn(4)]
			}
			p[i] = Int(v)
		case 2, 3:
			b := make([]byte, r.Intn(4))
			for j := range b {
				b[j] = alphabet[r.Intn(len(alphabet))]
			}
			p[i] = String(string(b))
		default:
			p[i] = Sep()
		}
	}

	return p
}

func pathCmp() cmp.Option {
	return cmp.Comparer(func(a, b Segment) bool { return a.Compare(b) == 0 && a.Kind() == b.Kind() })
}

func TestRoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(1))

	for range 1000 {
		p := randPath(r)

		res, err := Decode(Encode(p...))
		require.NoError(t, err)

		if len(p) == 0 {
			require.Empty(t, res)
			continue
		}

		if diff := cmp.Diff(p, res, pathCmp()); diff != "" {
			t.Fatalf("decoded path mismatch (-want +got):\n%s", diff)
		}
	}
}

func TestOrderPreservation(t *testing.T) {
	r := rand.New(rand.NewSource(2))

	for range 5000 {
		a, b := randPath(r), randPath(r)

		ea, eb := Encode(a...), Encode(b...)

		require.Equal(t, sign(a.Compare(b)), sign(bytes.Compare(ea, eb)), "%s vs %s", a, b)
	}
}

func TestPrefixFreeness(t *testing.T) {
	r := rand.New(rand.NewSource(3))

	for range 5000 {
		a, b := randPath(r), randPath(r)

		isDescendant := len(b) >= len(a) && b[:len(a)].Equal(a)

		require.Equal(t, isDescendant, bytes.HasPrefix(Encode(b...), Encode(a...)), "%s vs %s", a, b)
	}
}

func TestSortedPaths(t *testing.T) {
	paths := []Path{
		{String("b")},
		{String("a"), Sep()},
		{Int(10)},
		{String("a"), Int(-1)},
		{String("a\x00")},
		{String("a")},
		{Int(-10)},
		{String("a"), String("x")},
	}

	expected := []Path{
		{Int(-10)},
		{Int(10)},
		{String("a")},
		{String("a"), Int(-1)},
		{String("a"), String("x")},
		{String("a"), Sep()},
		{String("a\x00")},
		{String("b")},
	}

	sort.Slice(paths, func(i, j int) bool {
		return bytes.Compare(Encode(paths[i]...), Encode(paths[j]...)) < 0
	})

	if diff := cmp.Diff(expected, paths, pathCmp()); diff != "" {
		t.Fatalf("order mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeCorrupt(t *testing.T) {
	for _, tc := range []struct {
		name string
		data []byte
	}{
		{"unknown tag", []byte{0x42}},
		{"truncated int", []byte{tagInt, 1, 2, 3}},
		{"unterminated string", []byte{tagString, 'a', 'b'}},
		{"truncated escape", []byte{tagString, 'a', 0x00}},
		{"invalid escape", []byte{tagString, 'a', 0x00, 0x07}},
		{"trailing garbage", append(Encode(String("run")), 0x11)},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Decode(tc.data)
			require.ErrorIs(t, err, ErrCorruptKey)
		})
	}
}

func TestDecodeFirst(t *testing.T) {
	data := Encode(String("run1"), Sep(), Int(3))

	seg, rest, err := DecodeFirst(data)
	require.NoError(t, err)
	require.Equal(t, String("run1"), seg)
	require.Equal(t, Encode(Sep(), Int(3)), rest)
}

func TestFromValues(t *testing.T) {
	p, err := FromValues("metrics", 3, int64(-5), uint8(7), Sep())
	require.NoError(t, err)
	require.Equal(t, Path{String("metrics"), Int(3), Int(-5), Int(7), Sep()}, p)

	_, err = FromValues("a", 1.5)
	require.Error(t, err)
}

func TestPathAppend(t *testing.T) {
	base := make(Path, 1, 4)
	base[0] = String("meta")

	a := base.Append(String("a"))
	b := base.Append(String("b"))

	require.Equal(t, Path{String("meta"), String("a")}, a)
	require.Equal(t, Path{String("meta"), String("b")}, b)
	require.Equal(t, "meta.a", a.String())
}

func sign(v int) int {
	switch {
	case v < 0:
		return -1
	case v > 0:
		return 1
	default:
		return 0
	}
}

func TestPrefixEnd(t *testing.T) {
	for _, tc := range []struct {
		prefix, end []byte
	}{
		{prefix: []byte{0x20, 'a', 0x00, 0x01}, end: []byte{0x20, 'a', 0x00, 0x02}},
		{prefix: []byte{0x10, 0xff, 0xff}, end: []byte{0x11}},
		{prefix: []byte{0xff, 0xff}, end: nil},
		{prefix: nil, end: nil},
	} {
		require.Equal(t, tc.end, PrefixEnd(tc.prefix))
	}

	r := rand.New(rand.NewSource(5))

	for range 1000 {
		a, b := randPath(r), randPath(r)

		pa, pb := Encode(a...), Encode(b...)
		end := PrefixEnd(pa)
		if end == nil {
			// empty path
			continue
		}

		if bytes.HasPrefix(pb, pa) {
			require.Negative(t, bytes.Compare(pb, end), "%s vs %s", a, b)
		} else if bytes.Compare(pb, pa) > 0 {
			require.GreaterOrEqual(t, bytes.Compare(pb, end), 0, "%s vs %s", a, b)
		}
	}
}
