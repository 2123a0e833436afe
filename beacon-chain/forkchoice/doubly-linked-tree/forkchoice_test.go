package doublylinkedtree

import (
	"testing"

	"github.com/ethwake/beacon-core/beacon-chain/forkchoice"
	"github.com/ethwake/beacon-core/consensus-types/primitives"
	"github.com/ethwake/beacon-core/testing/require"
)

func rootFor(b byte) [32]byte {
	var r [32]byte
	r[31] = b
	return r
}

func TestForkChoice_OnBlockAndGetHead(t *testing.T) {
	fc := New()
	genesis := fc.Head()

	require.NoError(t, fc.OnBlock(forkchoice.BlockAndCheckpoints{Root: rootFor(1), ParentRoot: genesis, Slot: 1}))
	head, err := fc.GetHead()
	require.NoError(t, err)
	require.Equal(t, rootFor(1), head)
}

func TestForkChoice_AttestationWeightPicksHeavierBranch(t *testing.T) {
	fc := New()
	genesis := fc.Head()

	require.NoError(t, fc.OnBlock(forkchoice.BlockAndCheckpoints{Root: rootFor(1), ParentRoot: genesis, Slot: 1}))
	require.NoError(t, fc.OnBlock(forkchoice.BlockAndCheckpoints{Root: rootFor(2), ParentRoot: genesis, Slot: 1}))

	require.NoError(t, fc.OnAttestation(rootFor(2), 1, []primitives.ValidatorIndex{0, 1, 2}))
	require.NoError(t, fc.OnAttestation(rootFor(1), 1, []primitives.ValidatorIndex{3}))

	head, err := fc.GetHead()
	require.NoError(t, err)
	require.Equal(t, rootFor(2), head)
}

func TestForkChoice_OnAttestationUnknownRoot(t *testing.T) {
	fc := New()
	err := fc.OnAttestation(rootFor(9), 1, []primitives.ValidatorIndex{0})
	require.ErrorIs(t, err, forkchoice.ErrUnknownNode)
}

func TestForkChoice_OnAttesterSlashingZeroesVote(t *testing.T) {
	fc := New()
	genesis := fc.Head()
	require.NoError(t, fc.OnBlock(forkchoice.BlockAndCheckpoints{Root: rootFor(1), ParentRoot: genesis, Slot: 1}))
	require.NoError(t, fc.OnBlock(forkchoice.BlockAndCheckpoints{Root: rootFor(2), ParentRoot: genesis, Slot: 1}))
	require.NoError(t, fc.OnAttestation(rootFor(1), 1, []primitives.ValidatorIndex{0}))
	fc.OnAttesterSlashing([]primitives.ValidatorIndex{0})

	head, err := fc.GetHead()
	require.NoError(t, err)
	// With no votes left, the tie-break (greater root) decides.
	require.Equal(t, rootFor(2), head)
}

func TestForkChoice_CommonAncestorDepth(t *testing.T) {
	fc := New()
	genesis := fc.Head()
	require.NoError(t, fc.OnBlock(forkchoice.BlockAndCheckpoints{Root: rootFor(1), ParentRoot: genesis, Slot: 1}))
	require.NoError(t, fc.OnBlock(forkchoice.BlockAndCheckpoints{Root: rootFor(2), ParentRoot: rootFor(1), Slot: 2}))
	require.NoError(t, fc.OnBlock(forkchoice.BlockAndCheckpoints{Root: rootFor(3), ParentRoot: rootFor(1), Slot: 2}))

	depth, err := fc.GetCommonAncestorDepth(rootFor(2), rootFor(3))
	require.NoError(t, err)
	require.Equal(t, uint64(1), depth)
}
