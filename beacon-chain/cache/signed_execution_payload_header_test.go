package cache

import (
	"testing"

	"github.com/ethwake/beacon-core/consensus-types/interfaces"
	"github.com/ethwake/beacon-core/testing/require"
)

func TestSignedExecutionPayloadHeader(t *testing.T) {
	resetHeaderCache()
	currentSignedExecutionPayloadHeaderMu.Lock()
	currentSignedExecutionPayloadHeader = nil
	currentSignedExecutionPayloadHeaderMu.Unlock()

	require.IsNil(t, SignedExecutionPayloadHeader())

	h := &interfaces.SignedExecutionPayloadHeader{Slot: 5, ParentBlockHash: []byte("parent"), Value: 42}
	SaveSignedExecutionPayloadHeader(h)
	require.DeepEqual(t, h, SignedExecutionPayloadHeader())
}
