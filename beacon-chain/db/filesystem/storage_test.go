package filesystem

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/afero"

	"github.com/ethwake/beacon-core/consensus-types/blocks"
	"github.com/ethwake/beacon-core/consensus-types/primitives"
	"github.com/ethwake/beacon-core/testing/require"
)

func testBlob(t *testing.T, root [32]byte, index uint64) blocks.ROBlob {
	t.Helper()
	var parent [32]byte
	parent[0] = 0xaa
	b, err := blocks.NewROBlob(root, index, primitives.Slot(12345), primitives.ValidatorIndex(42), parent,
		[]byte("blob payload"), []byte{0x0a, 0x0b, 0x0c}, []byte{0x0d, 0x0e, 0x0f})
	require.NoError(t, err)
	return b
}

func testColumn(t *testing.T, root [32]byte, index uint64) blocks.ROColumn {
	t.Helper()
	var parent [32]byte
	parent[0] = 0xbb
	c, err := blocks.NewROColumn(root, index, primitives.Slot(54321), primitives.ValidatorIndex(7), parent,
		[][]byte{{0x01}, {0x02}}, [][]byte{{0x0a}, {0x0b}}, [][]byte{{0x0c}, {0x0d}})
	require.NoError(t, err)
	return c
}

func TestBlobStorage_SaveGetRoundTrip(t *testing.T) {
	bs := NewEphemeralBlobStorage("blobs")
	var root [32]byte
	root[0] = 0x01
	want := testBlob(t, root, 3)

	require.NoError(t, bs.Save(want))

	got, err := bs.Get(root, 3)
	require.NoError(t, err)
	// cmp.Diff gives a field-level diff on failure instead of a bare
	// mismatch, matching the teacher's ssz_test.go debug-log convention.
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("round-tripped blob mismatch (-want +got):\n%s", diff)
	}
}

func TestBlobStorage_SaveDuplicateIsNoOp(t *testing.T) {
	bs := NewEphemeralBlobStorage("blobs")
	var root [32]byte
	root[0] = 0x02
	b := testBlob(t, root, 0)

	require.NoError(t, bs.Save(b))
	require.NoError(t, bs.Save(b))

	got, err := bs.Get(root, 0)
	require.NoError(t, err)
	require.Equal(t, b.Index, got.Index)
}

func TestBlobStorage_GetMissingReturnsErrNotFound(t *testing.T) {
	bs := NewEphemeralBlobStorage("blobs")
	var root [32]byte
	root[0] = 0x03

	_, err := bs.Get(root, 0)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestBlobStorage_Indices(t *testing.T) {
	bs := NewEphemeralBlobStorage("blobs")
	var root [32]byte
	root[0] = 0x04
	require.NoError(t, bs.Save(testBlob(t, root, 0)))
	require.NoError(t, bs.Save(testBlob(t, root, 2)))

	idx, err := bs.Indices(root, 4)
	require.NoError(t, err)
	require.Equal(t, []bool{true, false, true, false}, idx)
}

func TestBlobStorage_Remove(t *testing.T) {
	bs := NewEphemeralBlobStorage("blobs")
	var root [32]byte
	root[0] = 0x05
	require.NoError(t, bs.Save(testBlob(t, root, 0)))
	require.NoError(t, bs.Save(testBlob(t, root, 1)))

	require.NoError(t, bs.Remove(root))

	_, err := bs.Get(root, 0)
	require.ErrorIs(t, err, ErrNotFound)
	_, err = bs.Get(root, 1)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestColumnStorage_SaveGetRoundTrip(t *testing.T) {
	cs := NewEphemeralColumnStorage("columns")
	var root [32]byte
	root[0] = 0x11
	want := testColumn(t, root, 5)

	require.NoError(t, cs.Save(want))

	got, err := cs.Get(root, 5)
	require.NoError(t, err)
	require.Equal(t, want.Index, got.Index)
	require.Equal(t, want.Slot, got.Slot)
	require.Equal(t, len(want.Column), len(got.Column))
	for i := range want.Column {
		require.Equal(t, true, string(want.Column[i]) == string(got.Column[i]))
		require.Equal(t, true, string(want.KzgCommitments[i]) == string(got.KzgCommitments[i]))
		require.Equal(t, true, string(want.KzgProofs[i]) == string(got.KzgProofs[i]))
	}
}

func TestColumnStorage_GetMissingReturnsErrNotFound(t *testing.T) {
	cs := NewEphemeralColumnStorage("columns")
	var root [32]byte
	root[0] = 0x12

	_, err := cs.Get(root, 0)
	require.ErrorIs(t, err, ErrNotFound)
}

// TestConcurrentSaveRace exercises the same-sidecar concurrent-write path
// atomicWrite's part-file nonce guards against: many goroutines saving the
// identical sidecar must never corrupt the file or return an error.
func TestConcurrentSaveRace(t *testing.T) {
	bs := NewEphemeralBlobStorage("blobs")
	var root [32]byte
	root[0] = 0x20
	b := testBlob(t, root, 0)

	const n = 10
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() { errs <- bs.Save(b) }()
	}
	for i := 0; i < n; i++ {
		require.NoError(t, <-errs)
	}

	got, err := bs.Get(root, 0)
	require.NoError(t, err)
	require.Equal(t, true, string(b.Blob) == string(got.Blob))
}

func TestStorage_SaveBlobSaveColumn(t *testing.T) {
	st := NewEphemeralStorage("sidecars")
	var root [32]byte
	root[0] = 0x30
	blob := testBlob(t, root, 0)
	col := testColumn(t, root, 0)

	require.NoError(t, st.SaveBlob(blob))
	require.NoError(t, st.SaveColumn(col))

	_, err := st.Blobs.Get(root, 0)
	require.NoError(t, err)
	_, err = st.Columns.Get(root, 0)
	require.NoError(t, err)
}

// TestStorage_SharesUnderlyingFs confirms NewStorage splits blob/column
// storage into disjoint subdirectories of one afero.Fs rather than two
// independent filesystems, so an operator pointed at one baseDir finds
// both under it.
func TestStorage_SharesUnderlyingFs(t *testing.T) {
	fs := afero.NewMemMapFs()
	st := NewStorage(fs, "root")
	var root [32]byte
	root[0] = 0x40
	require.NoError(t, st.SaveBlob(testBlob(t, root, 0)))

	exists, err := afero.DirExists(fs, "root/blobs")
	require.NoError(t, err)
	require.Equal(t, true, exists)
}
