package das

import (
	"testing"

	"github.com/ethwake/beacon-core/config/params"
	"github.com/ethwake/beacon-core/testing/require"
)

func TestCanReconstruct(t *testing.T) {
	total := int(params.BeaconConfig().NumberOfColumns)
	require.Equal(t, true, CanReconstruct(total/2))
	require.Equal(t, false, CanReconstruct(total/2-1))
	require.Equal(t, true, CanReconstruct(total))
}

func TestReconstructColumns(t *testing.T) {
	total := int(params.BeaconConfig().NumberOfColumns)
	received := make(map[uint64][]byte, total/2)
	for i := 0; i < total/2; i++ {
		received[uint64(i)] = []byte{byte(i)}
	}
	out, err := ReconstructColumns(received)
	require.NoError(t, err)
	require.Equal(t, total, len(out))

	_, err = ReconstructColumns(map[uint64][]byte{0: {1}})
	require.ErrorIs(t, err, ErrReconstructionFailed)
}
