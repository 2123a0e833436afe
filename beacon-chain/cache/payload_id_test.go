package cache

import (
	"testing"

	"github.com/ethwake/beacon-core/testing/require"
)

func TestPayloadIDCache_SetGet(t *testing.T) {
	c := NewPayloadIDCache()
	var root [32]byte
	root[0] = 0x01

	_, ok := c.Get(5, root)
	require.Equal(t, false, ok)

	want := [8]byte{1, 2, 3, 4, 5, 6, 7, 8}
	c.Set(5, root, want)

	got, ok := c.Get(5, root)
	require.Equal(t, true, ok)
	require.Equal(t, want, got)
}

func TestPayloadIDCache_DistinctKeys(t *testing.T) {
	c := NewPayloadIDCache()
	var rootA, rootB [32]byte
	rootA[0] = 0xaa
	rootB[0] = 0xbb

	c.Set(1, rootA, [8]byte{1})
	c.Set(1, rootB, [8]byte{2})
	c.Set(2, rootA, [8]byte{3})

	got, ok := c.Get(1, rootA)
	require.Equal(t, true, ok)
	require.Equal(t, [8]byte{1}, got)

	got, ok = c.Get(1, rootB)
	require.Equal(t, true, ok)
	require.Equal(t, [8]byte{2}, got)

	got, ok = c.Get(2, rootA)
	require.Equal(t, true, ok)
	require.Equal(t, [8]byte{3}, got)

	_, ok = c.Get(2, rootB)
	require.Equal(t, false, ok)
}
