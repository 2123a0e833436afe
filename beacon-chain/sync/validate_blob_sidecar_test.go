package sync

import (
	"context"
	"testing"
	"time"

	"github.com/ethwake/beacon-core/beacon-chain/blockchain"
	"github.com/ethwake/beacon-core/beacon-chain/cache"
	"github.com/ethwake/beacon-core/consensus-types/blocks"
	"github.com/ethwake/beacon-core/consensus-types/primitives"
	"github.com/ethwake/beacon-core/testing/require"
)

func newTestBlob(t *testing.T, slot primitives.Slot, proposer primitives.ValidatorIndex, index uint64) blocks.ROBlob {
	t.Helper()
	sc, err := blocks.NewROBlob([32]byte{1}, index, slot, proposer, [32]byte{}, []byte("blob"), []byte("commitment"), []byte("proof"))
	require.NoError(t, err)
	return sc
}

func TestValidateBlobSidecar_RejectsOutOfRangeIndex(t *testing.T) {
	svc, _ := newTestSyncService(t, time.Now())
	sc := newTestBlob(t, 1, 0, 999)
	err := svc.ValidateBlobSidecar(context.Background(), sc, [32]byte{}, nil, 0)
	require.ErrorIs(t, err, blockchain.ErrWrongSubnet)
}

func TestValidateBlobSidecar_IgnoresFutureSlot(t *testing.T) {
	svc, _ := newTestSyncService(t, time.Now())
	sc := newTestBlob(t, 10_000_000, 0, 0)
	err := svc.ValidateBlobSidecar(context.Background(), sc, [32]byte{}, nil, 0)
	require.ErrorIs(t, err, blockchain.ErrFutureSlot)
}

func TestValidateBlobSidecar_IgnoresDuplicateTuple(t *testing.T) {
	svc, _ := newTestSyncService(t, time.Now())
	svc.seenSidecars.MarkSeen(cache.SidecarTuple{Slot: 1, Proposer: 0, Index: 0})

	sc := newTestBlob(t, 1, 0, 0)
	err := svc.ValidateBlobSidecar(context.Background(), sc, [32]byte{}, nil, 0)
	require.ErrorIs(t, err, blockchain.ErrNotFirstForTuple)
}
