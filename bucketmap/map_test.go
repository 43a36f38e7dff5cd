package bucketmap

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/statsrelay/relaycore/collab"
)

func TestGetPutRoundtrip(t *testing.T) {
	m := New[int](4)

	_, ok := m.Get("missing")
	require.False(t, ok)

	m.Put("a", 1, "meta-a")
	v, ok := m.Get("a")
	require.True(t, ok)
	require.Equal(t, 1, v)

	m.Put("a", 2, "meta-a-2")
	v, ok = m.Get("a")
	require.True(t, ok)
	require.Equal(t, 2, v)
	require.Equal(t, 1, m.Size())
}

func TestIterDeletesOnDeleteDecision(t *testing.T) {
	m := New[int](4)
	m.Put("keep", 1, nil)
	m.Put("drop", 2, nil)

	m.Iter(func(key string, value int, _ any) collab.IterDecision {
		if key == "drop" {
			return collab.Delete
		}
		return collab.Continue
	})

	require.Equal(t, 1, m.Size())
	_, ok := m.Get("drop")
	require.False(t, ok)
	_, ok = m.Get("keep")
	require.True(t, ok)
}

func TestFilterRemovesFalsePredicateEntries(t *testing.T) {
	m := New[int](4)
	m.Put("even", 2, nil)
	m.Put("odd", 3, nil)

	m.Filter(func(_ string, value int, _ any) bool {
		return value%2 == 0
	})

	require.Equal(t, 1, m.Size())
	_, ok := m.Get("even")
	require.True(t, ok)
}

func TestDestroyEmptiesButKeepsMapUsable(t *testing.T) {
	m := New[int](4)
	m.Put("a", 1, nil)
	m.Destroy()

	require.Equal(t, 0, m.Size())
	m.Put("b", 2, nil)
	v, ok := m.Get("b")
	require.True(t, ok)
	require.Equal(t, 2, v)
}

func TestMetadataRoundtrips(t *testing.T) {
	m := New[string](2)
	m.Put("k", "v", 42)

	m.Iter(func(key string, value string, metadata any) collab.IterDecision {
		require.Equal(t, "k", key)
		require.Equal(t, "v", value)
		require.Equal(t, 42, metadata)
		return collab.Continue
	})
}
