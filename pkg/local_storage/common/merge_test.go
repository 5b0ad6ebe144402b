package common

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func items(kv ...string) []Item {
	res := make([]Item, 0, len(kv)/2)
	for i := 0; i < len(kv); i += 2 {
		res = append(res, Item{Key: []byte(kv[i]), Value: []byte(kv[i+1])})
	}

	return res
}

func collectStrings(t *testing.T, it Iterator) []string {
	res, err := Collect(it)
	require.NoError(t, err)

	var out []string
	for i := range res {
		out = append(out, string(res[i].Key)+"="+string(res[i].Value))
	}

	return out
}

func TestMergeIterator(t *testing.T) {
	t.Run("later source wins", func(t *testing.T) {
		it := NewMergeIterator([]Iterator{
			NewSliceIterator(items("a", "1", "b", "1", "d", "1")),
			NewSliceIterator(items("b", "2", "c", "2")),
			NewSliceIterator(items("b", "3", "e", "3")),
		})

		require.Equal(t, []string{"a=1", "b=3", "c=2", "d=1", "e=3"}, collectStrings(t, it))
	})

	t.Run("no sources", func(t *testing.T) {
		require.Empty(t, collectStrings(t, NewMergeIterator(nil)))
	})

	t.Run("empty sources", func(t *testing.T) {
		it := NewMergeIterator([]Iterator{EmptyIterator(), NewSliceIterator(items("x", "1")), EmptyIterator()})
		require.Equal(t, []string{"x=1"}, collectStrings(t, it))
	})

	t.Run("tombstones", func(t *testing.T) {
		staged := []Item{
			{Key: []byte("a"), Deleted: true},
			{Key: []byte("c"), Value: []byte("new")},
			{Key: []byte("z"), Deleted: true},
		}

		it := NewMergeIterator([]Iterator{
			NewSliceIterator(items("a", "old", "b", "old", "c", "old")),
			NewSliceIterator(staged),
		})

		require.Equal(t, []string{"b=old", "c=new"}, collectStrings(t, it))
	})

	t.Run("error", func(t *testing.T) {
		it := NewMergeIterator([]Iterator{
			NewSliceIterator(items("a", "1")),
			&failingIterator{err: errors.New("broken chunk")},
		})

		require.False(t, it.Next())
		require.EqualError(t, it.Err(), "broken chunk")
		require.NoError(t, it.Close())
	})
}

func TestMergeIterator_Seek(t *testing.T) {
	it := NewMergeIterator([]Iterator{
		NewSliceIterator(items("a", "1", "c", "1", "e", "1")),
		NewSliceIterator(items("b", "2", "c", "2", "f", "2")),
	})

	require.True(t, it.Next())
	require.Equal(t, "a", string(it.Key()))

	it.Seek([]byte("bb"))
	require.Equal(t, []string{"c=2", "e=1", "f=2"}, collectStrings(t, it))

	it = NewMergeIterator([]Iterator{
		NewSliceIterator(items("a", "1", "c", "1")),
		NewSliceIterator(items("b", "2")),
	})

	require.True(t, it.Next())
	require.True(t, it.Next())
	require.Equal(t, "b", string(it.Key()))

	// backwards
	it.Seek(nil)
	require.Equal(t, []string{"a=1", "b=2", "c=1"}, collectStrings(t, it))
}

type failingIterator struct {
	err error
}

func (f *failingIterator) Next() bool    { return false }
func (f *failingIterator) Key() []byte   { return nil }
func (f *failingIterator) Value() []byte { return nil }
func (f *failingIterator) Seek([]byte)   {}
func (f *failingIterator) Err() error    { return f.err }
func (f *failingIterator) Close() error  { return nil }
