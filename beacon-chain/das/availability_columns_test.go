package das

import (
	"testing"

	"github.com/ethereum/go-ethereum/p2p/enode"

	"github.com/ethwake/beacon-core/cmd/beacon-chain/flags"
	"github.com/ethwake/beacon-core/config/params"
	"github.com/ethwake/beacon-core/consensus-types/blocks"
	"github.com/ethwake/beacon-core/consensus-types/primitives"
	"github.com/ethwake/beacon-core/encoding/bytesutil"
	"github.com/ethwake/beacon-core/runtime/version"
	"github.com/ethwake/beacon-core/testing/require"
	"github.com/ethwake/beacon-core/time/slots"
)

func roBlockWithVersion(t *testing.T, v int, slot primitives.Slot, commits [][]byte) blocks.ROBlock {
	t.Helper()
	body, err := blocks.NewBeaconBlockBody(blocks.BodyConfig{Version: v, BlobKzgCommitments: commits})
	require.NoError(t, err)
	blk, err := blocks.NewBeaconBlock(slot, 0, [32]byte{}, [32]byte{}, body)
	require.NoError(t, err)
	signed, err := blocks.NewSignedBeaconBlock(blk, [96]byte{})
	require.NoError(t, err)
	ro, err := blocks.NewROBlock(signed)
	require.NoError(t, err)
	return ro
}

func TestFullCommitmentsToCheck(t *testing.T) {
	windowSlots, err := slots.EpochEnd(params.BeaconConfig().MinEpochsForDataColumnSidecarsRequest)
	require.NoError(t, err)
	commits := [][]byte{
		bytesutil.PadTo([]byte("a"), 48),
		bytesutil.PadTo([]byte("b"), 48),
		bytesutil.PadTo([]byte("c"), 48),
		bytesutil.PadTo([]byte("d"), 48),
	}
	cases := []struct {
		name    string
		commits [][]byte
		block   func(*testing.T) blocks.ROBlock
		slot    primitives.Slot
	}{
		{
			name: "pre deneb",
			block: func(t *testing.T) blocks.ROBlock {
				return roBlockWithVersion(t, version.Bellatrix, 0, nil)
			},
		},
		{
			name: "commitments within da",
			block: func(t *testing.T) blocks.ROBlock {
				return roBlockWithVersion(t, version.Deneb, 100, commits)
			},
			commits: commits,
			slot:    100,
		},
		{
			name: "commitments outside da",
			block: func(t *testing.T) blocks.ROBlock {
				return roBlockWithVersion(t, version.Deneb, 0, commits)
			},
			slot: windowSlots + 1,
		},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			resetFlags := flags.Get()
			gFlags := new(flags.GlobalFlags)
			gFlags.SubscribeToAllSubnets = true
			flags.Init(gFlags)
			defer flags.Init(resetFlags)

			b := c.block(t)
			co, err := fullCommitmentsToCheck(enode.ID{}, b, c.slot)
			require.NoError(t, err)
			for _, got := range co {
				require.DeepEqual(t, c.commits, got)
			}
		})
	}
}
