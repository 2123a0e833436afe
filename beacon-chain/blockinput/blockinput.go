// Package blockinput implements C3: the polymorphic container uniting a
// block with its data-availability payload (blobs pre-Fulu, data columns
// post-Fulu) as both stream in independently over gossip, plus the
// assembler operations that mutate it as new pieces arrive.
//
// BlockInput is a tagged sum type (see the Design Note in the teacher's own
// consensus-types packages, which avoid inheritance in favor of explicit
// variant constructors): each variant carries exactly the fields legal for
// it, and transitions between variants are one-way upgrades driven by fork
// version, never downgrades.
package blockinput

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/ethwake/beacon-core/consensus-types/blocks"
	"github.com/ethwake/beacon-core/runtime/version"
)

// Variant tags which shape a BlockInput currently holds.
type Variant int

const (
	// VariantPreData is used by forks before Deneb: no data-availability
	// requirement exists, so a block alone is immediately complete.
	VariantPreData Variant = iota
	// VariantAwaitingBlobs is Deneb/Electra: the block carries KZG blob
	// commitments and the input isn't ready until every blob arrives.
	VariantAwaitingBlobs
	// VariantAwaitingColumns is Fulu+ (PeerDAS): the block's data is
	// spread across NUMBER_OF_COLUMNS column sidecars, a subset of which
	// (the node's custody set) must arrive before reconstruction.
	VariantAwaitingColumns
	// VariantAvailable is terminal: the data-availability check passed.
	VariantAvailable
)

// ErrVariantDowngrade is returned when an operation would move a
// BlockInput to an earlier-fork variant than the one it already holds —
// an impossible transition per the invariant that a block root's fork
// version is immutable once observed.
var ErrVariantDowngrade = errors.New("blockinput: illegal variant downgrade")

// ErrWrongFork is returned when a sidecar observation implies a variant
// that disagrees with the variant a block already observed for the same
// root has established — §4.1's "later observations of the other piece
// type for the same block root must agree with the variant (mismatch
// => fail with WrongFork)". Unlike ErrVariantDowngrade (an upgrade
// attempted before any block pinned the fork), this fires regardless of
// whether the sidecar's implied variant is higher or lower than the
// block's: once a block is known, its variant is the only legal one.
var ErrWrongFork = errors.New("blockinput: sidecar variant does not match the block's established fork")

// ErrDuplicateSidecar is returned when a sidecar with an (index) already
// held arrives again with different bytes — gossip-duplicate suppression
// for identical copies happens in C2, upstream of this package; by the
// time a sidecar reaches here, an index collision is a fork-choice-worthy
// equivocation, not a network replay.
var ErrDuplicateSidecar = errors.New("blockinput: duplicate sidecar index with differing content")

// AvailableData is the reconstructed, order-restored blob or column set a
// BlockInput exposes once it transitions to VariantAvailable.
type AvailableData struct {
	Blobs   [][]byte // Deneb/Electra: raw blob bytes, ascending index order
	Columns [][]byte // Fulu+: raw column bytes, ascending index order
}

// BlockInput is the mutable per-block-root assembly state. It is never
// copied; the seen-cache owns the only *BlockInput for a given root and
// the import pipeline holds a borrow (a pointer) for the duration of
// verification.
type BlockInput struct {
	mu sync.Mutex

	root    [32]byte
	variant Variant

	block blocks.ROBlock
	hasBlock bool

	expectedBlobs uint64
	blobs         map[uint64]blocks.ROBlob

	custody       map[uint64]struct{}
	columns       map[uint64]blocks.ROColumn
	numberOfCols  uint64

	available AvailableData
}

// New creates an empty BlockInput for root, with no block and no sidecars
// observed yet. The variant is decided the first time a block or sidecar
// establishes the fork version.
func New(root [32]byte) *BlockInput {
	return &BlockInput{root: root, variant: VariantPreData, blobs: make(map[uint64]blocks.ROBlob)}
}

// Root returns the block root this input is keyed on.
func (bi *BlockInput) Root() [32]byte { return bi.root }

// Variant returns the input's current tagged variant.
func (bi *BlockInput) Variant() Variant {
	bi.mu.Lock()
	defer bi.mu.Unlock()
	return bi.variant
}

// Block returns the observed block and whether one has arrived yet.
func (bi *BlockInput) Block() (blocks.ROBlock, bool) {
	bi.mu.Lock()
	defer bi.mu.Unlock()
	return bi.block, bi.hasBlock
}

// ObserveBlock folds a newly observed block into the input, establishing
// its variant from the block's fork version if this is the first sighting.
// Returns the ReadyForImport flag.
func (bi *BlockInput) ObserveBlock(block blocks.ROBlock) (ready bool, err error) {
	bi.mu.Lock()
	defer bi.mu.Unlock()

	v := variantForFork(block.Block().Version())
	if bi.hasBlock {
		if v != bi.variant {
			return false, ErrWrongFork
		}
	} else {
		if err := bi.upgradeVariantLocked(v); err != nil {
			return false, err
		}
	}
	bi.block = block
	bi.hasBlock = true

	if bi.variant == VariantAwaitingBlobs {
		commits, cerr := block.Block().Body().BlobKzgCommitments()
		if cerr == nil {
			bi.expectedBlobs = uint64(len(commits))
		}
	}
	if bi.variant == VariantAwaitingColumns && bi.custody == nil {
		bi.custody = make(map[uint64]struct{})
		bi.columns = make(map[uint64]blocks.ROColumn)
	}

	return bi.readyLocked(), nil
}

// ObserveBlob folds a blob sidecar (Deneb/Electra) into the input, keeping
// the sidecar's own commitment/proof alongside its payload so the
// data-availability check (das.IsAvailable) can run the real KZG proof
// verification over exactly what was observed, not just a byte count.
func (bi *BlockInput) ObserveBlob(sc blocks.ROBlob) (ready bool, err error) {
	bi.mu.Lock()
	defer bi.mu.Unlock()

	if err := bi.matchOrUpgradeVariantLocked(VariantAwaitingBlobs); err != nil {
		return false, err
	}
	if existing, ok := bi.blobs[sc.Index]; ok {
		if string(existing.Blob) != string(sc.Blob) {
			return false, ErrDuplicateSidecar
		}
		return bi.readyLocked(), nil
	}
	bi.blobs[sc.Index] = sc
	return bi.readyLocked(), nil
}

// ObserveColumn folds a data-column sidecar (Fulu+/PeerDAS) into the
// input. custodyWidth is the size of this node's custody set, supplied by
// the caller (the das package) so the assembler doesn't need direct
// config coupling beyond NumberOfColumns. The sidecar's KZG commitments
// and cell proofs are kept so the DA check can batch-verify them, the
// same reason ObserveBlob keeps the whole ROBlob rather than raw bytes.
func (bi *BlockInput) ObserveColumn(sc blocks.ROColumn, custodyWidth uint64) (ready bool, err error) {
	bi.mu.Lock()
	defer bi.mu.Unlock()

	if err := bi.matchOrUpgradeVariantLocked(VariantAwaitingColumns); err != nil {
		return false, err
	}
	if bi.custody == nil {
		bi.custody = make(map[uint64]struct{})
		bi.columns = make(map[uint64]blocks.ROColumn)
	}
	bi.numberOfCols = custodyWidth
	if existing, ok := bi.columns[sc.Index]; ok {
		if !columnBytesEqual(existing.Column, sc.Column) {
			return false, ErrDuplicateSidecar
		}
		return bi.readyLocked(), nil
	}
	bi.columns[sc.Index] = sc
	return bi.readyLocked(), nil
}

func columnBytesEqual(a, b [][]byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if string(a[i]) != string(b[i]) {
			return false
		}
	}
	return true
}

// upgradeVariantLocked moves bi.variant forward to v if v is a later
// variant than the current one; rejects any attempt to move backward.
// Callers must hold bi.mu.
func (bi *BlockInput) upgradeVariantLocked(v Variant) error {
	if bi.variant == VariantAvailable {
		return nil
	}
	if v < bi.variant {
		return ErrVariantDowngrade
	}
	bi.variant = v
	return nil
}

// matchOrUpgradeVariantLocked enforces §4.1's "later observations of the
// other piece type for the same block root must agree with the variant"
// rule for sidecar observations. Once a block has pinned bi.variant, any
// sidecar whose implied variant differs — higher or lower — is a hard
// fork mismatch, not a permitted upgrade; only while no block has been
// seen yet may a sidecar still move the variant forward (the block simply
// hasn't arrived to pin it down). The terminal VariantAvailable state is
// always a no-op match, mirroring upgradeVariantLocked. Callers must hold
// bi.mu.
func (bi *BlockInput) matchOrUpgradeVariantLocked(v Variant) error {
	if bi.variant == VariantAvailable {
		return nil
	}
	if bi.hasBlock {
		if v != bi.variant {
			return ErrWrongFork
		}
		return nil
	}
	return bi.upgradeVariantLocked(v)
}

// readyLocked computes ReadyForImport per §4.1: PreData is ready once a
// block is present; AwaitingBlobs is ready once every expected blob has
// arrived; AwaitingColumns is ready once enough columns are present to
// reconstruct (delegated to the caller via MarkAvailable, since
// reconstruction math lives in the das package — this only reports when
// the node's own custody requirement is satisfied). Callers must hold
// bi.mu.
func (bi *BlockInput) readyLocked() bool {
	switch bi.variant {
	case VariantPreData:
		return bi.hasBlock
	case VariantAwaitingBlobs:
		if !bi.hasBlock {
			return false
		}
		return uint64(len(bi.blobs)) >= bi.expectedBlobs
	case VariantAwaitingColumns:
		if !bi.hasBlock || bi.numberOfCols == 0 {
			return false
		}
		return uint64(len(bi.columns)) >= bi.numberOfCols
	case VariantAvailable:
		return true
	}
	return false
}

// MarkAvailable transitions the input to the terminal VariantAvailable
// state once the caller (the das package, after running reconstruction or
// the blob-equality check) has confirmed the data-availability check
// passed. Subsequent observes are no-ops: contents are immutable once
// Available, per the BlockInput invariant.
func (bi *BlockInput) MarkAvailable(data AvailableData) {
	bi.mu.Lock()
	defer bi.mu.Unlock()
	bi.variant = VariantAvailable
	bi.available = data
}

// Available returns the reconstructed data-availability payload; valid
// only once Variant() reports VariantAvailable.
func (bi *BlockInput) Available() AvailableData {
	bi.mu.Lock()
	defer bi.mu.Unlock()
	return bi.available
}

// ColumnCount returns the number of distinct column indices observed so
// far, for callers (the das package's reconstruction threshold check)
// that need the raw count independent of this node's custody width.
func (bi *BlockInput) ColumnCount() int {
	bi.mu.Lock()
	defer bi.mu.Unlock()
	return len(bi.columns)
}

// Columns returns a copy of the observed column index -> sidecar map, for
// callers (the das package's reconstruction and KZG cell-proof batch
// check) that need both the raw bytes and the commitments/proofs that
// came with them.
func (bi *BlockInput) Columns() map[uint64]blocks.ROColumn {
	bi.mu.Lock()
	defer bi.mu.Unlock()
	out := make(map[uint64]blocks.ROColumn, len(bi.columns))
	for k, v := range bi.columns {
		out[k] = v
	}
	return out
}

// OrderedBlobs returns the observed blob sidecars in ascending index
// order, for callers (the KZG batch verifier) that need a stable ordering
// before the input has necessarily reached VariantAvailable.
func (bi *BlockInput) OrderedBlobs() []blocks.ROBlob {
	bi.mu.Lock()
	defer bi.mu.Unlock()
	out := make([]blocks.ROBlob, bi.expectedBlobs)
	for i, b := range bi.blobs {
		if i < uint64(len(out)) {
			out[i] = b
		}
	}
	return out
}

func variantForFork(v int) Variant {
	switch {
	case v >= version.Fulu:
		return VariantAwaitingColumns
	case v >= version.Deneb:
		return VariantAwaitingBlobs
	default:
		return VariantPreData
	}
}
