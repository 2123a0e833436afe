package filesystem

import (
	"testing"

	"github.com/ethwake/beacon-core/testing/require"
)

func TestDefaultLayout_PathsByKind(t *testing.T) {
	l := &defaultLayout{base: "base"}
	var root [32]byte
	root[0] = 0xde
	root[1] = 0xad

	blobIdent := identForBlob(root, 3)
	colIdent := identForColumn(root, 3)

	require.Equal(t, "base/dead000000000000000000000000000000000000000000000000000000000000", l.dir(blobIdent))
	require.Equal(t, l.dir(blobIdent), l.dir(colIdent), "dir is keyed by root only, independent of kind")
	require.Equal(t, l.dir(blobIdent)+"/3.blob", l.path(blobIdent))
	require.Equal(t, l.dir(colIdent)+"/3.column", l.path(colIdent))
}

func TestDefaultLayout_PartPathUniqueness(t *testing.T) {
	l := &defaultLayout{base: "base"}
	var root [32]byte
	ident := identForBlob(root, 0)

	p1 := l.partPath(ident, "a")
	p2 := l.partPath(ident, "b")
	require.NotEqual(t, p1, p2)
	require.Equal(t, l.path(ident)+".part.a", p1)
}

func TestNextPartNonce_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		n := nextPartNonce()
		require.Equal(t, false, seen[n])
		seen[n] = true
	}
}
