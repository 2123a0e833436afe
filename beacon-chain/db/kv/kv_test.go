package kv

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethwake/beacon-core/consensus-types/primitives"
	"github.com/ethwake/beacon-core/testing/require"
)

func setupStore(t *testing.T) *Store {
	dir := t.TempDir()
	s, err := NewStore(filepath.Join(dir, "beacon.db"))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, s.Close()) })
	return s
}

func TestStore_SaveBlockRoundTrip(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	var root [32]byte
	root[0] = 7

	require.Equal(t, false, s.HasBlock(ctx, root))

	require.NoError(t, s.SaveBlock(ctx, root, []byte("encoded-block")))
	require.Equal(t, true, s.HasBlock(ctx, root))

	got, err := s.Block(ctx, root)
	require.NoError(t, err)
	require.Equal(t, []byte("encoded-block"), got)

	require.NoError(t, s.DeleteBlock(ctx, root))
	require.Equal(t, false, s.HasBlock(ctx, root))
}

func TestStore_GenesisBlockRoot(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	_, err := s.GenesisBlockRoot(ctx)
	require.Error(t, err)

	var root [32]byte
	root[1] = 9
	require.NoError(t, s.SaveGenesisBlockRoot(ctx, root))

	got, err := s.GenesisBlockRoot(ctx)
	require.NoError(t, err)
	require.Equal(t, root, got)
}

func TestStore_FinalizedCheckpointDefaultsToZero(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	epoch, root, err := s.FinalizedCheckpoint(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(0), epoch)
	require.Equal(t, [32]byte{}, root)

	var want [32]byte
	want[2] = 3
	require.NoError(t, s.SaveFinalizedCheckpoint(ctx, 11, want))

	epoch, root, err = s.FinalizedCheckpoint(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(11), epoch)
	require.Equal(t, want, root)
}

func TestStore_ScanFinalizedBlockRootsRangeAndLimit(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	for i := primitives.Slot(1); i <= 5; i++ {
		var root [32]byte
		root[0] = byte(i)
		require.NoError(t, s.SaveFinalizedBlockRootBySlot(ctx, i, root))
	}

	gteKey := make([]byte, 8)
	putUint64(gteKey, 2)
	ltKey := make([]byte, 8)
	putUint64(ltKey, 5)

	out, err := s.ScanFinalizedBlockRoots(ctx, RangeScanOpts{GTE: gteKey, LT: ltKey})
	require.NoError(t, err)
	require.Equal(t, 3, len(out)) // slots 2, 3, 4

	limited, err := s.ScanFinalizedBlockRoots(ctx, RangeScanOpts{Limit: 2})
	require.NoError(t, err)
	require.Equal(t, 2, len(limited))
}

func TestStore_ReopenPersistsData(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "beacon.db")
	ctx := context.Background()

	s1, err := NewStore(path)
	require.NoError(t, err)
	var root [32]byte
	root[0] = 42
	require.NoError(t, s1.SaveBlock(ctx, root, []byte("persisted")))
	require.NoError(t, s1.Close())

	_, statErr := os.Stat(path)
	require.NoError(t, statErr)

	s2, err := NewStore(path)
	require.NoError(t, err)
	defer func() { require.NoError(t, s2.Close()) }()

	got, err := s2.Block(ctx, root)
	require.NoError(t, err)
	require.Equal(t, []byte("persisted"), got)
}
