package sync

import (
	"context"

	"go.opencensus.io/trace"

	"github.com/ethwake/beacon-core/beacon-chain/blockchain"
	"github.com/ethwake/beacon-core/consensus-types/blocks"
)

// ValidateBeaconBlock runs the six ordered gossip-validation stages for
// the beacon_block topic, grounded stage-for-stage on the teacher's
// validateBeaconBlockPubSub/validateBeaconBlock pair: future-slot check,
// finalized-slot check, expected-proposer match, first-for-(slot,
// proposer) dedup, known-parent check, and proposer-signature
// verification. A nil return means ACCEPT; any other return is always a
// *blockchain.ValidationError, so callers can switch on its Action field
// to drive gossip accept/reject/ignore and peer scoring without this
// package knowing anything about libp2p.
func (s *Service) ValidateBeaconBlock(ctx context.Context, ro blocks.ROBlock) error {
	_, span := trace.StartSpan(ctx, "sync.validateBeaconBlock")
	defer span.End()

	blk := ro.Block()
	slot := blk.Slot()
	root := ro.Root()

	// Stage 1: reject/ignore blocks too far in the future of the local
	// clock (MAXIMUM_GOSSIP_CLOCK_DISPARITY).
	if s.chain.Clock().IsFutureSlot(slot, blockchain.MaximumGossipClockDisparity()) {
		return blockchain.Ignore("future_slot", blockchain.ErrFutureSlot)
	}

	// Stage 2: a block at or before the finalized checkpoint's slot can
	// never become head; ignore it rather than penalise a peer that may
	// simply be behind on finality.
	if finalizedStart, err := s.finalizedStartSlot(); err == nil && slot <= finalizedStart {
		return blockchain.Ignore("before_finalized_slot", blockchain.ErrBeforeFinalizedSlot)
	}

	// Stage 3: proposer index must match the expected proposer for this
	// slot/parent. A resolver that reports the shuffling isn't computable
	// yet downgrades this to IGNORE instead of REJECT, since the fault may
	// be this node's view lagging, not the sender's.
	if s.proposerResolver != nil {
		expected, err := s.proposerResolver.ExpectedProposerIndex(ctx, blk.ParentRoot(), slot)
		if err != nil {
			return blockchain.Ignore("shuffling_not_computable", blockchain.ErrShufflingNotComputable)
		}
		if expected != blk.ProposerIndex() {
			return blockchain.Reject("wrong_proposer", blockchain.ErrWrongProposer)
		}
	}

	// Stage 4: first valid block seen for this (slot, proposer) tuple
	// wins; a later, different block at the same tuple is an
	// equivocation, but gossip validation still only IGNOREs it — the
	// REJECT-worthy verdict belongs to the publish path's
	// consensus_and_equivocation check (§9 Open Question 1), not to every
	// peer relaying gossip.
	if existing, seen := s.firstSeenForSlotProposer(slot, blk.ProposerIndex(), root); seen && existing != root {
		return blockchain.Ignore("already_seen_for_slot_proposer", blockchain.ErrAlreadySeenForSlotProposer)
	}

	// Stage 5: the parent must already be known to fork-choice, or this
	// block goes into the pending queue (a collaborator outside this
	// package's scope) and the sync layer is told to go find the parent.
	if !s.chain.ForkChoicer().HasNode(blk.ParentRoot()) {
		s.notifyUnknownParent(root, blk.ParentRoot())
		return blockchain.Ignore("parent_unknown", blockchain.ErrParentUnknown)
	}

	// Stage 6: the proposer signature, verified once per root and cached
	// so every data-column sidecar of the same block can skip re-checking
	// it.
	if !s.proposerSigCache.Verified(root) {
		if s.sigVerifier == nil {
			return blockchain.Reject("invalid_proposer_signature", blockchain.ErrInvalidProposerSignature)
		}
		if err := s.sigVerifier.VerifyProposerSignature(ctx, ro); err != nil {
			return blockchain.Reject("invalid_proposer_signature", blockchain.ErrInvalidProposerSignature)
		}
		s.proposerSigCache.MarkVerified(root)
	}

	return nil
}

// notifyUnknownParent emits an UnknownBlockParentEvent so whatever
// subsystem fetches missing ancestors (range sync, a backfill worker —
// out of this package's scope) learns about the gap.
func (s *Service) notifyUnknownParent(root, parentRoot [32]byte) {
	if s.notifier == nil {
		return
	}
	s.notifier.StateFeed().Send(&blockchain.Event{
		Type: blockchain.UnknownBlockParent,
		Data: &blockchain.UnknownBlockParentEvent{Root: root, ParentRoot: parentRoot},
	})
}
