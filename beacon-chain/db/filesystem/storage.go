package filesystem

import (
	"os"
	"strconv"
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"github.com/ethwake/beacon-core/consensus-types/blocks"
)

// ErrNotFound is returned by Get/Indices when the requested sidecar (or
// its parent block's directory) does not exist.
var ErrNotFound = errors.New("filesystem: sidecar not found")

var partCounter uint64

func nextPartNonce() string {
	return strconv.FormatUint(atomic.AddUint64(&partCounter, 1), 10)
}

// BlobStorage persists Deneb/Electra blob sidecars on an afero filesystem,
// one file per (block root, index), written atomically via a temp file
// plus rename so a concurrent reader never observes a partial write —
// grounded on save_blob_test.go's "race conditions" case.
type BlobStorage struct {
	fs     afero.Fs
	layout fsLayout
}

// NewBlobStorage opens blob sidecar storage rooted at baseDir on fs.
func NewBlobStorage(fs afero.Fs, baseDir string) *BlobStorage {
	return &BlobStorage{fs: fs, layout: &defaultLayout{base: baseDir}}
}

// NewEphemeralBlobStorage is a convenience constructor for tests, backed
// by an in-memory afero filesystem, matching the teacher's
// NewEphemeralBlobStorage(t) helper.
func NewEphemeralBlobStorage(baseDir string) *BlobStorage {
	return NewBlobStorage(afero.NewMemMapFs(), baseDir)
}

// Save writes b to disk. Saving an already-present (root, index) is a
// no-op success, matching save_blob_test.go's "no error for duplicate"
// case — sidecars are content-addressed and immutable once accepted.
func (s *BlobStorage) Save(b blocks.ROBlob) error {
	ident := identForBlob(b.BlockRoot, b.Index)
	if ok, err := afero.Exists(s.fs, s.layout.path(ident)); err == nil && ok {
		return nil
	}
	return atomicWrite(s.fs, s.layout, ident, encodeBlob(b))
}

// Get reads back a previously saved blob sidecar.
func (s *BlobStorage) Get(root [32]byte, index uint64) (blocks.ROBlob, error) {
	ident := identForBlob(root, index)
	raw, err := afero.ReadFile(s.fs, s.layout.path(ident))
	if err != nil {
		if os.IsNotExist(err) {
			return blocks.ROBlob{}, ErrNotFound
		}
		return blocks.ROBlob{}, errors.Wrap(err, "filesystem: could not read blob sidecar")
	}
	return decodeBlob(raw)
}

// Indices reports which blob indices are present for root, sized to
// maxBlobsPerBlock (callers index the returned slice by sidecar index).
func (s *BlobStorage) Indices(root [32]byte, maxBlobsPerBlock uint64) ([]bool, error) {
	out := make([]bool, maxBlobsPerBlock)
	for i := uint64(0); i < maxBlobsPerBlock; i++ {
		ok, err := afero.Exists(s.fs, s.layout.path(identForBlob(root, i)))
		if err != nil {
			return nil, errors.Wrap(err, "filesystem: could not stat blob sidecar")
		}
		out[i] = ok
	}
	return out, nil
}

// Remove deletes every blob sidecar stored for root.
func (s *BlobStorage) Remove(root [32]byte) error {
	return s.fs.RemoveAll(s.layout.dir(identForBlob(root, 0)))
}

// ColumnStorage persists Fulu+ PeerDAS data-column sidecars the same way
// BlobStorage persists blobs, mirroring the teacher's parallel blob/state
// storage packages sharing one layout convention.
type ColumnStorage struct {
	fs     afero.Fs
	layout fsLayout
}

// NewColumnStorage opens column sidecar storage rooted at baseDir on fs.
func NewColumnStorage(fs afero.Fs, baseDir string) *ColumnStorage {
	return &ColumnStorage{fs: fs, layout: &defaultLayout{base: baseDir}}
}

// NewEphemeralColumnStorage is the ColumnStorage analog of
// NewEphemeralBlobStorage.
func NewEphemeralColumnStorage(baseDir string) *ColumnStorage {
	return NewColumnStorage(afero.NewMemMapFs(), baseDir)
}

// Save writes c to disk, idempotently.
func (s *ColumnStorage) Save(c blocks.ROColumn) error {
	ident := identForColumn(c.BlockRoot, c.Index)
	if ok, err := afero.Exists(s.fs, s.layout.path(ident)); err == nil && ok {
		return nil
	}
	return atomicWrite(s.fs, s.layout, ident, encodeColumn(c))
}

// Get reads back a previously saved column sidecar.
func (s *ColumnStorage) Get(root [32]byte, index uint64) (blocks.ROColumn, error) {
	ident := identForColumn(root, index)
	raw, err := afero.ReadFile(s.fs, s.layout.path(ident))
	if err != nil {
		if os.IsNotExist(err) {
			return blocks.ROColumn{}, ErrNotFound
		}
		return blocks.ROColumn{}, errors.Wrap(err, "filesystem: could not read column sidecar")
	}
	return decodeColumn(raw)
}

// Indices reports which column indices are present for root.
func (s *ColumnStorage) Indices(root [32]byte, numberOfColumns uint64) ([]bool, error) {
	out := make([]bool, numberOfColumns)
	for i := uint64(0); i < numberOfColumns; i++ {
		ok, err := afero.Exists(s.fs, s.layout.path(identForColumn(root, i)))
		if err != nil {
			return nil, errors.Wrap(err, "filesystem: could not stat column sidecar")
		}
		out[i] = ok
	}
	return out, nil
}

// Remove deletes every column sidecar stored for root. The invalid-block
// pruning in the blockchain package does not call it; that path deletes
// only the block from the hot database.
func (s *ColumnStorage) Remove(root [32]byte) error {
	return s.fs.RemoveAll(s.layout.dir(identForColumn(root, 0)))
}

// atomicWrite writes data to a part file and renames it into place,
// avoiding a torn read if two writers race on the same sidecar
// (save_blob_test.go's "race conditions" case) or a crash lands mid-write.
func atomicWrite(fs afero.Fs, layout fsLayout, ident blobIdent, data []byte) error {
	dir := layout.dir(ident)
	if err := fs.MkdirAll(dir, 0700); err != nil {
		return errors.Wrap(err, "filesystem: could not create sidecar directory")
	}
	part := layout.partPath(ident, nextPartNonce())
	if err := afero.WriteFile(fs, part, data, 0600); err != nil {
		return errors.Wrap(err, "filesystem: could not write part file")
	}
	if err := fs.Rename(part, layout.path(ident)); err != nil {
		_ = fs.Remove(part)
		return errors.Wrap(err, "filesystem: could not rename part file into place")
	}
	return nil
}

// Storage bundles BlobStorage and ColumnStorage behind the single
// SaveBlob/SaveColumn surface the sync package's SidecarStorage
// collaborator interface expects, since a node runs both pre-Fulu blob
// storage and Fulu+ column storage side by side during the fork
// transition rather than swapping one for the other.
type Storage struct {
	Blobs   *BlobStorage
	Columns *ColumnStorage
}

// NewStorage opens blob and column storage rooted at baseDir/blobs and
// baseDir/columns respectively, sharing one underlying afero filesystem.
func NewStorage(fs afero.Fs, baseDir string) *Storage {
	return &Storage{
		Blobs:   NewBlobStorage(fs, baseDir+"/blobs"),
		Columns: NewColumnStorage(fs, baseDir+"/columns"),
	}
}

// NewEphemeralStorage is NewStorage backed by an in-memory afero
// filesystem, for tests and the other_examples-style ephemeral helpers
// the teacher's NewEphemeralBlobStorage(t) pattern uses.
func NewEphemeralStorage(baseDir string) *Storage {
	return NewStorage(afero.NewMemMapFs(), baseDir)
}

// SaveBlob implements sync.SidecarStorage.
func (s *Storage) SaveBlob(b blocks.ROBlob) error { return s.Blobs.Save(b) }

// SaveColumn implements sync.SidecarStorage.
func (s *Storage) SaveColumn(c blocks.ROColumn) error { return s.Columns.Save(c) }
