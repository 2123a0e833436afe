// Package filesystem adapts github.com/spf13/afero to the blob/column
// sidecar storage §6 and §4.5 describe as a collaborator contract: bulky
// per-slot sidecar payloads live on a filesystem instead of the bucketed
// hot KV store (db/kv), keyed by block root and sidecar index, written
// atomically (temp file + rename) so a crash mid-write never leaves a
// corrupt sidecar a reader can observe. Grounded on the teacher's
// beacon-chain/db/filesystem package (retrieved as blob_test.go,
// blob_storage_test.go, save_blob_test.go, layout_test.go — real
// production behavior reconstructed from those call sites, since no
// production source for this package survived retrieval) swapping the
// teacher's direct os.* calls for an injectable afero.Fs so tests can run
// against afero.NewMemMapFs() instead of a real tempdir, matching
// layout_test.go's fsLayout seam.
package filesystem

import (
	"fmt"
)

// blobIdent identifies one sidecar file: its parent block root, the
// sidecar index (blob or column index, same index space shape), and
// whether it's a blob or column payload.
type blobIdent struct {
	root  [32]byte
	index uint64
	kind  sidecarKind
}

type sidecarKind int

const (
	kindBlob sidecarKind = iota
	kindColumn
)

func (k sidecarKind) ext() string {
	if k == kindColumn {
		return "column"
	}
	return "blob"
}

// fsLayout computes the on-disk paths for a sidecar identity, mirroring
// the teacher's mockLayout seam (dir/sszPath/partPath/iterateIdents) so
// storage logic and path logic stay independently testable.
type fsLayout interface {
	dir(ident blobIdent) string
	path(ident blobIdent) string
	partPath(ident blobIdent, uniq string) string
}

// defaultLayout lays sidecars out as "<base>/<root-hex>/<index>.<ext>",
// one directory per block root so Remove/Clear can operate on a whole
// block's sidecars with a single directory removal.
type defaultLayout struct {
	base string
}

func (l *defaultLayout) dir(ident blobIdent) string {
	return fmt.Sprintf("%s/%x", l.base, ident.root)
}

func (l *defaultLayout) path(ident blobIdent) string {
	return fmt.Sprintf("%s/%d.%s", l.dir(ident), ident.index, ident.kind.ext())
}

// partPath names the temp file a write lands in before the atomic rename
// into place; uniq (a caller-supplied nonce, e.g. a goroutine-local
// counter) keeps concurrent writers of the same sidecar from colliding on
// the same partial file, matching save_blob_test.go's "race conditions"
// case.
func (l *defaultLayout) partPath(ident blobIdent, uniq string) string {
	return l.path(ident) + ".part." + uniq
}

var _ fsLayout = (*defaultLayout)(nil)

func identForBlob(root [32]byte, index uint64) blobIdent {
	return blobIdent{root: root, index: index, kind: kindBlob}
}

func identForColumn(root [32]byte, index uint64) blobIdent {
	return blobIdent{root: root, index: index, kind: kindColumn}
}
