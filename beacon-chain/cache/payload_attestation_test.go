package cache

import (
	"testing"

	"github.com/ethwake/beacon-core/consensus-types/interfaces"
	"github.com/ethwake/beacon-core/testing/require"
)

func TestPayloadAttestationCache(t *testing.T) {
	p := &PayloadAttestationCache{}

	root := [32]byte{'r'}
	idx := uint64(5)
	require.Equal(t, false, p.Seen(root, idx))

	msg := &PayloadAttestationMessage{
		Signature: []byte("sig-a"),
		Data: &interfaces.PayloadAttestationData{
			BeaconBlockRoot: root,
			Slot:            1,
			PayloadPresent:  true,
		},
	}

	require.NoError(t, p.Add(msg, idx))
	require.Equal(t, true, p.Seen(root, idx))
	require.Equal(t, root, p.root)
	att := p.attestations[true]
	indices := att.AggregationBits.BitIndices()
	require.DeepEqual(t, []int{int(idx)}, indices)
	require.DeepEqual(t, []byte("sig-a"), att.Signature)

	require.Equal(t, true, p.Seen(root, idx))
	require.Equal(t, false, p.Seen(root, idx+1))

	data := att.Data
	msg2 := &PayloadAttestationMessage{
		Signature: []byte("sig-b"),
		Data:      &data,
	}
	idx2 := uint64(7)
	require.NoError(t, p.Add(msg2, idx2))
	att = p.attestations[true]
	indices = att.AggregationBits.BitIndices()
	require.DeepEqual(t, []int{int(idx), int(idx2)}, indices)

	// Re-adding the same index is a no-op.
	require.NoError(t, p.Add(msg2, idx2))
	att2 := p.attestations[true]
	indices = att.AggregationBits.BitIndices()
	require.DeepEqual(t, []int{int(idx), int(idx2)}, indices)
	require.DeepEqual(t, att, att2)

	require.Equal(t, true, p.Seen(root, idx2))
	require.Equal(t, false, p.Seen(root, idx2+1))

	// A different payload status on the same root opens a new bucket.
	msg3 := &PayloadAttestationMessage{
		Signature: []byte("sig-c"),
		Data: &interfaces.PayloadAttestationData{
			BeaconBlockRoot: root,
			Slot:            1,
			PayloadPresent:  false,
		},
	}
	idx3 := uint64(17)
	require.NoError(t, p.Add(msg3, idx3))
	att3 := p.attestations[false]
	indices3 := att3.AggregationBits.BitIndices()
	require.DeepEqual(t, []int{int(idx3)}, indices3)

	// A new root resets the cache entirely.
	root2 := [32]byte{'s'}
	msg.Data.BeaconBlockRoot = root2
	require.NoError(t, p.Add(msg, idx))
	require.Equal(t, root2, p.root)
	require.Equal(t, true, p.Seen(root2, idx))
	require.Equal(t, false, p.Seen(root, idx))
}
