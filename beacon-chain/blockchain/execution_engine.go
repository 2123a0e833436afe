// C7: the EL dispatcher. Grounded directly on the retrieved
// `_examples/other_examples/750de8ff_..._execution_engine.go.go` production
// file's notifyForkchoiceUpdate/notifyNewPayload/getPayloadAttribute/
// pruneInvalidBlock/removeInvalidBlockAndState trio, adapted to this
// core's own types and collaborator contracts.
package blockchain

import (
	"context"
	"crypto/sha256"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/ethwake/beacon-core/beacon-chain/execution"
	"github.com/ethwake/beacon-core/beacon-chain/forkchoice"
	"github.com/ethwake/beacon-core/consensus-types/primitives"
)

// notifyForkchoiceUpdate drives §4.4 step 8: push the current
// (head, safe, finalized) execution block hashes to the EL, optionally
// requesting a payload build for the next slot's tracked proposer.
// Pre-merge forkchoice-state hashes stay zero and that's skipped entirely,
// matching the teacher's "all hashes are 0 pre-TTD" short circuit.
func (s *Service) notifyForkchoiceUpdate(ctx context.Context, headRoot [32]byte, currentSlot primitives.Slot) error {
	fc := s.cfg.ForkChoiceStore

	headPayloadHash, err := s.payloadHashForRoot(headRoot)
	if err != nil {
		return errors.Wrap(err, "blockchain: could not resolve head payload hash")
	}
	if headPayloadHash == ([32]byte{}) {
		// Pre-merge: no execution payload exists yet for this chain.
		return nil
	}

	finalizedHash := fc.FinalizedPayloadBlockHash()
	safeHash := fc.UnrealizedJustifiedPayloadBlockHash()

	state := &execution.ForkchoiceState{
		HeadBlockHash:      headPayloadHash[:],
		SafeBlockHash:      safeHash[:],
		FinalizedBlockHash: finalizedHash[:],
	}

	attrs, hasAttrs := s.getPayloadAttribute(ctx, headRoot, currentSlot+1)
	var payloadAttrs execution.PayloadAttributer = execution.EmptyAttributes{}
	if hasAttrs {
		payloadAttrs = attrs
	}

	payloadID, lastValidHash, err := s.cfg.EngineCaller.ForkchoiceUpdated(ctx, state, payloadAttrs)
	if err != nil {
		if errors.Is(err, execution.ErrInvalidPayloadStatus) {
			return s.pruneInvalidBlock(ctx, headRoot, lastValidHash)
		}
		if errors.Is(err, execution.ErrAcceptedSyncingPayloadStatus) {
			log.WithError(err).Debug("forkchoiceUpdated returned SYNCING/ACCEPTED")
			return nil
		}
		return errors.Wrap(err, "blockchain: notifyForkchoiceUpdate failed")
	}
	if payloadID != nil && hasAttrs {
		s.cachePayloadID(headRoot, currentSlot+1, *payloadID)
	}
	return nil
}

// notifyNewPayload drives §4.3 step 5: submit a block's execution payload
// to the EL, mapping its verdict into the optimistic status tag that
// propagates into fork-choice (SYNCING/ACCEPTED) or a fatal invalid-block
// fault (INVALID).
func (s *Service) notifyNewPayload(ctx context.Context, root [32]byte, payload interface {
	IsNil() bool
	BlockHash() []byte
}, newPayloadFn func(ctx context.Context) ([]byte, error)) (optimistic bool, err error) {
	lastValidHash, err := newPayloadFn(ctx)
	if err == nil {
		return false, nil
	}
	if errors.Is(err, execution.ErrAcceptedSyncingPayloadStatus) {
		return true, nil
	}
	if errors.Is(err, execution.ErrInvalidPayloadStatus) || errors.Is(err, execution.ErrInvalidBlockHashPayloadStatus) {
		if pruneErr := s.pruneInvalidBlock(ctx, root, lastValidHash); pruneErr != nil {
			log.WithError(pruneErr).Error("could not prune invalid block")
		}
		return false, &invalidBlock{root: root, cause: err}
	}
	return false, errors.Wrap(err, "blockchain: notifyNewPayload failed")
}

// getPayloadAttribute decides whether to build payload attributes for
// slot's proposer, skipping the machinery entirely when nobody locally
// tracked is proposing — the teacher's trackedProposer optimization
// (§5 "Supplemented features").
func (s *Service) getPayloadAttribute(_ context.Context, headRoot [32]byte, slot primitives.Slot) (execution.PayloadAttributer, bool) {
	s.trackedMu.Lock()
	tracked := s.trackedProposers[slot]
	s.trackedMu.Unlock()
	if !tracked {
		return nil, false
	}
	_ = headRoot
	// A real PayloadAttributesV{1,2,3} value depends on the post-state's
	// timestamp/prevRandao/withdrawals/parentBeaconBlockRoot, which is the
	// external state-regen collaborator's concern; this core only decides
	// *whether* to ask, per the trackedProposer optimization above.
	return execution.EmptyAttributes{}, true
}

// pruneInvalidBlock excises root and its descendants from fork-choice,
// deletes their persisted blocks, and recomputes head — the invalid-block
// pruning cascade named in SPEC_FULL's Supplemented features, grounded on
// the retrieved execution_engine.go's pruneInvalidBlock/
// removeInvalidBlockAndState pair.
func (s *Service) pruneInvalidBlock(ctx context.Context, root [32]byte, lastValidHash []byte) error {
	var lvh [32]byte
	copy(lvh[:], lastValidHash)

	invalidated, err := s.cfg.ForkChoiceStore.SetOptimisticToInvalid(root, [32]byte{}, lvh)
	if err != nil {
		return errors.Wrap(err, "blockchain: could not mark chain invalid")
	}
	for _, r := range invalidated {
		if rmErr := s.removeInvalidBlockAndState(ctx, r); rmErr != nil {
			log.WithError(rmErr).WithField("root", primitives.Root(r).Hex()).Error("could not remove invalid block/state")
		}
	}
	if _, err := s.cfg.ForkChoiceStore.GetHead(); err != nil {
		return errors.Wrap(err, "blockchain: could not recompute head after pruning invalid block")
	}
	return nil
}

// removeInvalidBlockAndState deletes root's persisted block, per the
// Processing-fatal taxonomy entry: "Block is excised from fork-choice and
// persisted to a persistInvalidSszValue sideband for forensic inspection."
// The sideband write itself is a logging concern (out of scope beyond
// naming it); this core guarantees the canonical copy is removed from hot
// storage so it can't be mistaken for a still-valid block on restart.
func (s *Service) removeInvalidBlockAndState(ctx context.Context, root [32]byte) error {
	if !s.cfg.Database.HasBlock(ctx, root) {
		return nil
	}
	log.WithFields(logrus.Fields{"root": primitives.Root(root).Hex()}).Warn("pruning invalid block from storage")
	return s.cfg.Database.DeleteBlock(ctx, root)
}

// payloadHashForRoot looks up the execution payload hash recorded against
// root via forkchoice.Store.SetPayloadBlockHash, exposed on ForkChoicer as
// PayloadBlockHash. A root the store has never seen a payload hash for
// (pre-merge, or a block fork-choice hasn't inserted yet) resolves to the
// zero hash, which correctly short-circuits notifyForkchoiceUpdate.
func (s *Service) payloadHashForRoot(root [32]byte) ([32]byte, error) {
	hash, err := s.cfg.ForkChoiceStore.PayloadBlockHash(root)
	if err != nil {
		if errors.Is(err, forkchoice.ErrUnknownNode) {
			return [32]byte{}, nil
		}
		return [32]byte{}, err
	}
	return hash, nil
}

// cachePayloadID records a payload build ID keyed by (slot, headRoot), the
// Supplemented-features payload-ID cache grounded on the teacher's
// PayloadIDCache.
func (s *Service) cachePayloadID(headRoot [32]byte, slot primitives.Slot, id execution.PayloadIDBytes) {
	s.payloadIDCache.Set(slot, headRoot, id)
}

// PayloadIDCached returns a previously cached payload-build ID for
// (slot, headRoot), if one was requested and it hasn't yet expired.
func (s *Service) PayloadIDCached(headRoot [32]byte, slot primitives.Slot) (execution.PayloadIDBytes, bool) {
	id, ok := s.payloadIDCache.Get(slot, headRoot)
	if !ok {
		return execution.PayloadIDBytes{}, false
	}
	return execution.PayloadIDBytes(id), true
}

// TrackProposer marks this node as the expected proposer for slot, so
// notifyForkchoiceUpdate knows to request a payload build for it (the
// trackedProposer optimization).
func (s *Service) TrackProposer(slot primitives.Slot) {
	s.trackedMu.Lock()
	defer s.trackedMu.Unlock()
	s.trackedProposers[slot] = true
}

// versionedHashesFromCommitments derives the EIP-4844 versioned-hash list
// §4.3 step 5's newPayload call needs from a block's KZG commitments.
func versionedHashesFromCommitments(commitments [][]byte) []common.Hash {
	out := make([]common.Hash, len(commitments))
	for i, c := range commitments {
		h := sha256.Sum256(c)
		h[0] = 0x01
		out[i] = common.Hash(h)
	}
	return out
}
