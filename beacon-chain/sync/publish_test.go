package sync

import (
	"context"
	"testing"
	"time"

	"github.com/ethwake/beacon-core/beacon-chain/blockchain"
	"github.com/ethwake/beacon-core/consensus-types/blocks"
	"github.com/ethwake/beacon-core/testing/require"
)

type stubBroadcaster struct {
	blocks  [][32]byte
	blobs   int
	columns int
}

func (b *stubBroadcaster) BroadcastBlock(ctx context.Context, root [32]byte, block blocks.ROBlock) error {
	b.blocks = append(b.blocks, root)
	return nil
}
func (b *stubBroadcaster) BroadcastBlob(ctx context.Context, root [32]byte, index uint64, data []byte) error {
	b.blobs++
	return nil
}
func (b *stubBroadcaster) BroadcastColumn(ctx context.Context, root [32]byte, index uint64, data []byte) error {
	b.columns++
	return nil
}

type stubImporter struct {
	received []([32]byte)
}

func (i *stubImporter) ReceiveBlock(ctx context.Context, block blocks.ROBlock, postState blockchain.CachedState, opts blockchain.ReceiveBlockOpts) error {
	i.received = append(i.received, block.Root())
	return nil
}

func TestPublishBlock_NoneLevelSkipsValidationAndFansOut(t *testing.T) {
	svc, _ := newTestSyncService(t, time.Now())
	genesis := [32]byte{}
	block := newTestChildBlock(t, genesis, 1, 0, 1)

	bcast := &stubBroadcaster{}
	imp := &stubImporter{}

	err := svc.PublishBlock(context.Background(), block, false, SidecarSet{Blobs: map[uint64][]byte{0: []byte("a")}}, ValidationNone,
		WithPublishBroadcaster(bcast), WithImporter(imp))
	require.NoError(t, err)
	require.Equal(t, 1, len(bcast.blocks))
	require.Equal(t, 1, bcast.blobs)
	require.Equal(t, 1, len(imp.received))
}

func TestPublishBlock_GossipLevelRejectsUnknownParent(t *testing.T) {
	svc, _ := newTestSyncService(t, time.Now())
	var unknownParent [32]byte
	unknownParent[0] = 0xaa
	block := newTestChildBlock(t, unknownParent, 1, 0, 1)

	imp := &stubImporter{}
	err := svc.PublishBlock(context.Background(), block, false, SidecarSet{}, ValidationGossip, WithImporter(imp))
	require.ErrorIs(t, err, blockchain.ErrParentUnknown)
	require.Equal(t, 0, len(imp.received))
}

func TestPublishBlock_ConsensusAndEquivocationRejectsDifferentBlockSameTuple(t *testing.T) {
	svc, _ := newTestSyncService(t, time.Now())
	genesis := [32]byte{}
	first := newTestChildBlock(t, genesis, 1, 0, 1)
	second := newTestChildBlock(t, genesis, 1, 0, 2)

	imp := &stubImporter{}
	require.NoError(t, svc.PublishBlock(context.Background(), first, false, SidecarSet{}, ValidationConsensusAndEquivocation, WithImporter(imp)))

	err := svc.PublishBlock(context.Background(), second, false, SidecarSet{}, ValidationConsensusAndEquivocation, WithImporter(imp))
	require.ErrorIs(t, err, blockchain.ErrEquivocatingBlock)
}
