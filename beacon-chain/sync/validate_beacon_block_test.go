package sync

import (
	"context"
	"testing"
	"time"

	"github.com/ethwake/beacon-core/beacon-chain/blockchain"
	"github.com/ethwake/beacon-core/beacon-chain/cache"
	"github.com/ethwake/beacon-core/beacon-chain/forkchoice"
	doublylinkedtree "github.com/ethwake/beacon-core/beacon-chain/forkchoice/doubly-linked-tree"
	"github.com/ethwake/beacon-core/consensus-types/blocks"
	"github.com/ethwake/beacon-core/consensus-types/primitives"
	"github.com/ethwake/beacon-core/testing/require"
)

func newTestChildBlock(t *testing.T, parentRoot [32]byte, slot primitives.Slot, proposer primitives.ValidatorIndex, rootByte byte) blocks.ROBlock {
	t.Helper()
	body, err := blocks.NewBeaconBlockBody(blocks.BodyConfig{Version: 0})
	require.NoError(t, err)
	blk, err := blocks.NewBeaconBlock(slot, proposer, parentRoot, [32]byte{}, body)
	require.NoError(t, err)
	var sig [96]byte
	signed, err := blocks.NewSignedBeaconBlock(blk, sig)
	require.NoError(t, err)
	var r [32]byte
	r[31] = rootByte
	ro, err := blocks.NewROBlockWithRoot(signed, r)
	require.NoError(t, err)
	return ro
}

func newTestSyncService(t *testing.T, now time.Time) (*Service, *doublylinkedtree.ForkChoice) {
	t.Helper()
	fc := doublylinkedtree.New()
	clock := blockchain.Genesis(now.Add(-time.Hour)).WithNowFn(func() time.Time { return now })
	chain := &stubChain{clock: clock, fc: fc}

	seenBlocks, err := cache.NewSeenBlockCache()
	require.NoError(t, err)
	seenSidecars, err := cache.NewSeenSidecarCache()
	require.NoError(t, err)
	sigCache, err := cache.NewProposerSignatureCache()
	require.NoError(t, err)

	svc, err := NewService(
		WithChain(chain),
		WithSeenBlockCache(seenBlocks),
		WithSeenSidecarCache(seenSidecars),
		WithProposerSignatureCache(sigCache),
		WithSignatureVerifier(acceptingSigVerifier{}),
	)
	require.NoError(t, err)
	return svc, fc
}

// stubChain adapts a bare Clock/ForkChoicer pair to the Chain interface
// without pulling in a full blockchain.Service, since this package's
// tests only exercise gossip-validation stages.
type stubChain struct {
	clock *blockchain.Clock
	fc    *doublylinkedtree.ForkChoice
}

func (c *stubChain) Clock() *blockchain.Clock               { return c.clock }
func (c *stubChain) ForkChoicer() forkchoice.ForkChoicer { return c.fc }

// acceptingSigVerifier stands in for the BLS collaborator in tests that
// only exercise the non-signature gossip stages.
type acceptingSigVerifier struct{}

func (acceptingSigVerifier) VerifyProposerSignature(ctx context.Context, block BlockLike) error {
	return nil
}

func TestValidateBeaconBlock_AcceptsKnownParent(t *testing.T) {
	now := time.Now()
	svc, fc := newTestSyncService(t, now)
	genesis := [32]byte{}

	block := newTestChildBlock(t, genesis, 1, 0, 1)
	require.Equal(t, true, fc.HasNode(genesis))

	err := svc.ValidateBeaconBlock(context.Background(), block)
	require.NoError(t, err)
}

func TestValidateBeaconBlock_IgnoresUnknownParent(t *testing.T) {
	now := time.Now()
	svc, _ := newTestSyncService(t, now)
	var unknownParent [32]byte
	unknownParent[0] = 0xff

	block := newTestChildBlock(t, unknownParent, 1, 0, 1)
	err := svc.ValidateBeaconBlock(context.Background(), block)
	require.ErrorIs(t, err, blockchain.ErrParentUnknown)
}

func TestValidateBeaconBlock_IgnoresFutureSlot(t *testing.T) {
	now := time.Now()
	svc, _ := newTestSyncService(t, now)
	genesis := [32]byte{}

	block := newTestChildBlock(t, genesis, 10_000_000, 0, 1)
	err := svc.ValidateBeaconBlock(context.Background(), block)
	require.ErrorIs(t, err, blockchain.ErrFutureSlot)
}

func TestValidateBeaconBlock_IgnoresDuplicateForSameTuple(t *testing.T) {
	now := time.Now()
	svc, _ := newTestSyncService(t, now)
	genesis := [32]byte{}

	first := newTestChildBlock(t, genesis, 1, 0, 1)
	require.NoError(t, svc.ValidateBeaconBlock(context.Background(), first))

	second := newTestChildBlock(t, genesis, 1, 0, 2)
	err := svc.ValidateBeaconBlock(context.Background(), second)
	require.ErrorIs(t, err, blockchain.ErrAlreadySeenForSlotProposer)
}
