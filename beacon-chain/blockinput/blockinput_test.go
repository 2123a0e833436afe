package blockinput

import (
	"testing"

	"github.com/ethwake/beacon-core/consensus-types/blocks"
	"github.com/ethwake/beacon-core/consensus-types/primitives"
	"github.com/ethwake/beacon-core/runtime/version"
	"github.com/ethwake/beacon-core/testing/require"
)

func denebBlock(t *testing.T, commitCount int) blocks.ROBlock {
	t.Helper()
	commits := make([][]byte, commitCount)
	for i := range commits {
		commits[i] = []byte{byte(i)}
	}
	body, err := blocks.NewBeaconBlockBody(blocks.BodyConfig{Version: version.Deneb, BlobKzgCommitments: commits})
	require.NoError(t, err)
	blk, err := blocks.NewBeaconBlock(primitives.Slot(100), 0, [32]byte{1}, [32]byte{2}, body)
	require.NoError(t, err)
	signed, err := blocks.NewSignedBeaconBlock(blk, [96]byte{})
	require.NoError(t, err)
	ro, err := blocks.NewROBlock(signed)
	require.NoError(t, err)
	return ro
}

func phase0Block(t *testing.T, slot primitives.Slot) blocks.ROBlock {
	t.Helper()
	body, err := blocks.NewBeaconBlockBody(blocks.BodyConfig{Version: version.Phase0})
	require.NoError(t, err)
	blk, err := blocks.NewBeaconBlock(slot, 0, [32]byte{}, [32]byte{}, body)
	require.NoError(t, err)
	signed, err := blocks.NewSignedBeaconBlock(blk, [96]byte{})
	require.NoError(t, err)
	ro, err := blocks.NewROBlock(signed)
	require.NoError(t, err)
	return ro
}

func roBlob(t *testing.T, root [32]byte, index uint64, payload string) blocks.ROBlob {
	t.Helper()
	sc, err := blocks.NewROBlob(root, index, primitives.Slot(100), 0, [32]byte{2}, []byte(payload), []byte{1}, []byte{1})
	require.NoError(t, err)
	return sc
}

func roColumn(t *testing.T, root [32]byte, slot primitives.Slot, index uint64, payload string) blocks.ROColumn {
	t.Helper()
	sc, err := blocks.NewROColumn(root, index, slot, 0, [32]byte{}, [][]byte{[]byte(payload)}, [][]byte{{1}}, [][]byte{{1}})
	require.NoError(t, err)
	return sc
}

func TestObserveBlock_PreData(t *testing.T) {
	ro := phase0Block(t, 1)

	bi := New(ro.Root())
	ready, err := bi.ObserveBlock(ro)
	require.NoError(t, err)
	require.Equal(t, true, ready)
	require.Equal(t, VariantPreData, bi.Variant())
}

func TestObserveBlob_OutOfOrderThenBlock(t *testing.T) {
	ro := denebBlock(t, 2)
	bi := New(ro.Root())

	ready, err := bi.ObserveBlob(roBlob(t, ro.Root(), 1, "blob1"))
	require.NoError(t, err)
	require.Equal(t, false, ready)

	ready, err = bi.ObserveBlob(roBlob(t, ro.Root(), 0, "blob0"))
	require.NoError(t, err)
	require.Equal(t, false, ready, "no expected count until the block arrives")

	ready, err = bi.ObserveBlock(ro)
	require.NoError(t, err)
	require.Equal(t, true, ready)
	require.Equal(t, VariantAwaitingBlobs, bi.Variant())

	ordered := bi.OrderedBlobs()
	require.DeepEqual(t, []byte("blob0"), ordered[0].Blob)
	require.DeepEqual(t, []byte("blob1"), ordered[1].Blob)
}

func TestObserveBlob_DuplicateDifferentContent(t *testing.T) {
	ro := denebBlock(t, 1)
	bi := New(ro.Root())
	_, err := bi.ObserveBlock(ro)
	require.NoError(t, err)

	_, err = bi.ObserveBlob(roBlob(t, ro.Root(), 0, "a"))
	require.NoError(t, err)
	_, err = bi.ObserveBlob(roBlob(t, ro.Root(), 0, "b"))
	require.ErrorIs(t, err, ErrDuplicateSidecar)
}

func TestObserveBlob_MismatchAfterPreDataBlock(t *testing.T) {
	ro := phase0Block(t, 1)
	bi := New(ro.Root())
	_, err := bi.ObserveBlock(ro)
	require.NoError(t, err)
	require.Equal(t, VariantPreData, bi.Variant())

	_, err = bi.ObserveBlob(roBlob(t, ro.Root(), 0, "forged"))
	require.ErrorIs(t, err, ErrWrongFork)
	require.Equal(t, VariantPreData, bi.Variant(), "a rejected sidecar must not mutate the pinned variant")
}

func TestObserveColumn_MismatchAfterBlobsBlock(t *testing.T) {
	ro := denebBlock(t, 1)
	bi := New(ro.Root())
	_, err := bi.ObserveBlock(ro)
	require.NoError(t, err)
	require.Equal(t, VariantAwaitingBlobs, bi.Variant())

	_, err = bi.ObserveColumn(roColumn(t, ro.Root(), ro.Slot(), 0, "c0"), 2)
	require.ErrorIs(t, err, ErrWrongFork)
	require.Equal(t, VariantAwaitingBlobs, bi.Variant(), "a rejected sidecar must not mutate the pinned variant")
}

func TestObserveColumn_PartialThenEnoughForCustody(t *testing.T) {
	root := [32]byte{9}
	bi := New(root)
	ready, err := bi.ObserveColumn(roColumn(t, root, 200, 0, "c0"), 2)
	require.NoError(t, err)
	require.Equal(t, false, ready, "no block yet")

	body, err := blocks.NewBeaconBlockBody(blocks.BodyConfig{Version: version.Fulu})
	require.NoError(t, err)
	blk, err := blocks.NewBeaconBlock(200, 0, [32]byte{}, [32]byte{}, body)
	require.NoError(t, err)
	signed, err := blocks.NewSignedBeaconBlock(blk, [96]byte{})
	require.NoError(t, err)
	ro, err := blocks.NewROBlockWithRoot(signed, root)
	require.NoError(t, err)

	ready, err = bi.ObserveBlock(ro)
	require.NoError(t, err)
	require.Equal(t, false, ready, "only 1 of 2 custody columns present")

	ready, err = bi.ObserveColumn(roColumn(t, root, 200, 1, "c1"), 2)
	require.NoError(t, err)
	require.Equal(t, true, ready)
	require.Equal(t, VariantAwaitingColumns, bi.Variant())
}

func TestObserveColumn_DuplicateDifferentContent(t *testing.T) {
	root := [32]byte{9}
	body, err := blocks.NewBeaconBlockBody(blocks.BodyConfig{Version: version.Fulu})
	require.NoError(t, err)
	blk, err := blocks.NewBeaconBlock(200, 0, [32]byte{}, [32]byte{}, body)
	require.NoError(t, err)
	signed, err := blocks.NewSignedBeaconBlock(blk, [96]byte{})
	require.NoError(t, err)
	ro, err := blocks.NewROBlockWithRoot(signed, root)
	require.NoError(t, err)

	bi := New(root)
	_, err = bi.ObserveBlock(ro)
	require.NoError(t, err)

	_, err = bi.ObserveColumn(roColumn(t, root, 200, 0, "c0"), 2)
	require.NoError(t, err)
	_, err = bi.ObserveColumn(roColumn(t, root, 200, 0, "different"), 2)
	require.ErrorIs(t, err, ErrDuplicateSidecar)
}
