package blocks

import (
	"github.com/pkg/errors"

	"github.com/ethwake/beacon-core/consensus-types/interfaces"
	"github.com/ethwake/beacon-core/consensus-types/primitives"
)

// SignedBeaconBlock pairs a BeaconBlock with its proposer signature.
type SignedBeaconBlock struct {
	block     *BeaconBlock
	signature [96]byte
}

// NewSignedBeaconBlock wraps a block and signature. The teacher's
// blocks.NewSignedBeaconBlock takes a single generic proto object and
// switches on its concrete type to pick the wire version; this core
// constructs the version-tagged BeaconBlock directly via NewBeaconBlock and
// wraps it here, since there's no wire protobuf type generation in this
// tree to switch over.
func NewSignedBeaconBlock(block *BeaconBlock, signature [96]byte) (*SignedBeaconBlock, error) {
	if block == nil {
		return nil, errors.New("blocks: nil block")
	}
	return &SignedBeaconBlock{block: block, signature: signature}, nil
}

func (s *SignedBeaconBlock) IsNil() bool      { return s == nil || s.block == nil }
func (s *SignedBeaconBlock) Signature() [96]byte { return s.signature }
func (s *SignedBeaconBlock) Version() int {
	if s.IsNil() {
		return 0
	}
	return s.block.Version()
}
func (s *SignedBeaconBlock) Block() interfaces.ReadOnlyBeaconBlock {
	if s.block == nil {
		return (*BeaconBlock)(nil)
	}
	return s.block
}

// BeaconBlockIsNil mirrors the teacher's consensus-types/blocks.BeaconBlockIsNil
// guard used at the top of notifyForkchoiceUpdate/notifyNewPayload before
// touching Block()/Body().
func BeaconBlockIsNil(b interfaces.ReadOnlySignedBeaconBlock) error {
	if b == nil || b.IsNil() {
		return interfaces.ErrNilObject
	}
	blk := b.Block()
	if blk == nil || blk.IsNil() {
		return interfaces.ErrNilObject
	}
	return nil
}

// ROBlock is a read-only, root-cached view of a signed block: the root is
// computed once at construction and reused by every cache/fork-choice
// lookup rather than rehashed per access, matching the teacher's
// consensus-types/blocks.ROBlock (see das/availability_columns_test.go's
// blocks.NewROBlock(sb) usage).
type ROBlock struct {
	interfaces.ReadOnlySignedBeaconBlock
	root [32]byte
}

// NewROBlock computes and caches the block's root.
func NewROBlock(b interfaces.ReadOnlySignedBeaconBlock) (ROBlock, error) {
	if err := BeaconBlockIsNil(b); err != nil {
		return ROBlock{}, err
	}
	root, err := b.Block().HashTreeRoot()
	if err != nil {
		return ROBlock{}, err
	}
	return ROBlock{ReadOnlySignedBeaconBlock: b, root: root}, nil
}

// NewROBlockWithRoot wraps a block with a root supplied by the caller (e.g.
// recovered from gossip metadata), skipping recomputation.
func NewROBlockWithRoot(b interfaces.ReadOnlySignedBeaconBlock, root [32]byte) (ROBlock, error) {
	if err := BeaconBlockIsNil(b); err != nil {
		return ROBlock{}, err
	}
	return ROBlock{ReadOnlySignedBeaconBlock: b, root: root}, nil
}

// Root returns the cached block root.
func (r ROBlock) Root() [32]byte { return r.root }

// Slot is a convenience forward to the wrapped block's slot, used
// constantly by seen-caches and the DA window check.
func (r ROBlock) Slot() primitives.Slot { return r.Block().Slot() }
