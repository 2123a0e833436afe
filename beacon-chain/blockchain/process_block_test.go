package blockchain

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethwake/beacon-core/beacon-chain/db/kv"
	doublylinkedtree "github.com/ethwake/beacon-core/beacon-chain/forkchoice/doubly-linked-tree"
	"github.com/ethwake/beacon-core/consensus-types/blocks"
	"github.com/ethwake/beacon-core/consensus-types/primitives"
	"github.com/ethwake/beacon-core/testing/require"
)

func newChildBlock(t *testing.T, parentRoot [32]byte, slot primitives.Slot, rootByte byte) blocks.ROBlock {
	t.Helper()
	body, err := blocks.NewBeaconBlockBody(blocks.BodyConfig{Version: 0})
	require.NoError(t, err)
	blk, err := blocks.NewBeaconBlock(slot, 0, parentRoot, [32]byte{}, body)
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

func setupTestService(t *testing.T) *Service {
	t.Helper()
	dir := t.TempDir()
	store, err := kv.NewStore(filepath.Join(dir, "beacon.db"))
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, store.Close()) })

	fc := doublylinkedtree.New()

	svc, err := NewService(context.Background(),
		WithDatabase(store),
		WithForkChoiceStore(fc),
		WithGenesisTime(time.Now().Add(-time.Hour)),
	)
	require.NoError(t, err)
	return svc
}

func TestReceiveBlock_PersistsAndUpdatesHead(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()

	genesis := svc.ForkChoicer().Head()
	block := newChildBlock(t, genesis, 1, 1)

	require.NoError(t, svc.ReceiveBlock(ctx, block, nil, ReceiveBlockOpts{EagerPersistBlock: true}))

	head, err := svc.ForkChoicer().GetHead()
	require.NoError(t, err)
	require.Equal(t, block.Root(), head)
	require.Equal(t, true, svc.cfg.Database.HasBlock(ctx, block.Root()))
}

func TestReceiveBlock_IdempotentOnSecondCall(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()

	genesis := svc.ForkChoicer().Head()
	block := newChildBlock(t, genesis, 1, 1)

	require.NoError(t, svc.ReceiveBlock(ctx, block, nil, ReceiveBlockOpts{EagerPersistBlock: true}))
	require.NoError(t, svc.ReceiveBlock(ctx, block, nil, ReceiveBlockOpts{EagerPersistBlock: true}))

	head, err := svc.ForkChoicer().GetHead()
	require.NoError(t, err)
	require.Equal(t, block.Root(), head)
}

func TestReceiveBlock_EmitsBlockEventWithinRecentWindow(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()

	feedCh := make(chan *Event, 1)
	sub := svc.cfg.StateNotifier.StateFeed().Subscribe(feedCh)
	defer sub.Unsubscribe()

	genesis := svc.ForkChoicer().Head()
	block := newChildBlock(t, genesis, 1, 1)

	require.NoError(t, svc.ReceiveBlock(ctx, block, nil, ReceiveBlockOpts{}))

	select {
	case ev := <-feedCh:
		require.Equal(t, BlockProcessed, ev.Type)
		be, ok := ev.Data.(BlockEvent)
		require.Equal(t, true, ok)
		require.Equal(t, primitives.Root(block.Root()), be.Root)
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for BlockEvent")
	}
}

func TestReceiveBlock_ForksToHeavierBranch(t *testing.T) {
	svc := setupTestService(t)
	ctx := context.Background()

	genesis := svc.ForkChoicer().Head()
	left := newChildBlock(t, genesis, 1, 1)
	right := newChildBlock(t, genesis, 1, 2)

	require.NoError(t, svc.ReceiveBlock(ctx, left, nil, ReceiveBlockOpts{}))
	require.NoError(t, svc.ReceiveBlock(ctx, right, nil, ReceiveBlockOpts{}))

	require.NoError(t, svc.ForkChoicer().OnAttestation(right.Root(), 1, []primitives.ValidatorIndex{0, 1, 2}))
	require.NoError(t, svc.ForkChoicer().OnAttestation(left.Root(), 1, []primitives.ValidatorIndex{3}))

	head, err := svc.ForkChoicer().GetHead()
	require.NoError(t, err)
	require.Equal(t, right.Root(), head)
}
