// C6: import/commit. ReceiveBlock implements §4.4's strict 10-step
// ordering. Grounded on the teacher's beacon-chain/blockchain.ReceiveBlock
// (the orchestration entry point every kept blockchain_test.go exercised
// before this pack's v5 copies were deleted as stale) and the retrieved
// execution_engine.go for step 8's dispatch.
package blockchain

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.opencensus.io/trace"

	"github.com/ethwake/beacon-core/beacon-chain/forkchoice"
	"github.com/ethwake/beacon-core/consensus-types/blocks"
	"github.com/ethwake/beacon-core/consensus-types/primitives"
	"github.com/ethwake/beacon-core/encoding/bytesutil"
	"github.com/ethwake/beacon-core/time/slots"
)

// recentImportWindow bounds step 10's fan-out per §4.4: "only when
// current_slot - block.slot < 64, to avoid flooding during sync."
const recentImportWindow = 64

// ReceiveBlockOpts mirrors the verifyOnly/eagerPersistBlock toggles the
// publish path (C9) and verify pipeline (C5) need threaded through import.
type ReceiveBlockOpts struct {
	BlockDelaySec      uint64
	EagerPersistBlock  bool
	Optimistic         bool
	DataAvailabilityOK bool
}

// ReceiveBlock is C6's entry point: given a fully-verified block (C5 has
// already run the state transition and signature/KZG/DA checks), commit it
// per §4.4's 10 ordered steps. A second call for an already-imported root
// is a no-op, per the Idempotence requirement.
func (s *Service) ReceiveBlock(ctx context.Context, block blocks.ROBlock, postState CachedState, opts ReceiveBlockOpts) error {
	ctx, span := trace.StartSpan(ctx, "beacon-chain.blockchain.ReceiveBlock")
	defer span.End()

	root := block.Root()

	if s.cfg.SeenBlockCache.Seen(root) && s.cfg.Database.HasBlock(ctx, root) {
		return nil // Idempotence: already imported.
	}

	// Step 1: persist block to hot DB, pre-emptively.
	if opts.EagerPersistBlock {
		encoded, err := encodeBlockForStorage(block)
		if err != nil {
			return errors.Wrap(err, "blockchain: could not encode block for storage")
		}
		if err := s.cfg.Database.SaveBlock(ctx, root, encoded); err != nil {
			return errors.Wrap(err, "blockchain: could not persist block")
		}
	}

	currentSlot := s.clock.CurrentSlot()

	// Step 2: fork-choice on_block.
	execStatus := opts.Optimistic
	payloadHash, err := execPayloadHash(block)
	if err != nil {
		return errors.Wrap(err, "blockchain: could not read execution payload hash")
	}
	bc := forkchoice.BlockAndCheckpoints{
		Root:             root,
		ParentRoot:       block.Block().ParentRoot(),
		Slot:             block.Block().Slot(),
		PayloadBlockHash: payloadHash,
		Optimistic:       execStatus,
	}
	if postState != nil {
		bc.JustifiedCheckpoint = postState.CurrentJustifiedCheckpoint()
		bc.FinalizedCheckpoint = postState.FinalizedCheckpoint()
	}
	if err := s.cfg.ForkChoiceStore.OnBlock(bc); err != nil {
		return errors.Wrap(err, "blockchain: fork-choice on_block failed")
	}
	s.cfg.SeenBlockCache.MarkSeen(root)

	// Step 3: publish post-state keyed by block-root-hex via the head-state
	// strong reference (§3's Ownership: the core pins head and checkpoint
	// states; this core doesn't keep a full state-cache of every imported
	// block's state, only the one the head ends up pointing at in step 6).

	// Step 4: attestation absorption.
	oldHead, err := s.cfg.ForkChoiceStore.GetHead()
	if err != nil {
		return errors.Wrap(err, "blockchain: could not read pre-import head")
	}
	s.absorbAttestations(block, postState)

	// Step 5: attester-slashings. This core's block type doesn't carry a
	// dedicated AttesterSlashing accessor (out of the Attestation/Deposit/
	// VoluntaryExit trio interfaces.ReadOnlyBeaconBlockBody exposes); when a
	// future fork adds one, fold its indices through
	// s.cfg.ForkChoiceStore.OnAttesterSlashing the same way absorbAttestations
	// does, warning rather than failing per §4.4 step 5.

	// Step 6: head recompute.
	newHead, err := s.cfg.ForkChoiceStore.GetHead()
	if err != nil {
		return errors.Wrap(err, "blockchain: could not recompute head")
	}
	if newHead != oldHead {
		s.onHeadChanged(ctx, oldHead, newHead)
	}

	// Step 7: proposer-boost override.
	suppressEL := false
	if s.cfg.ProposerBoostReorgEnabled && block.Block().Slot() >= currentSlot && postState != nil && postState.IsPostMerge() {
		nextSlot := currentSlot + 1
		s.trackedMu.Lock()
		weAreNextProposer := s.trackedProposers[nextSlot]
		s.trackedMu.Unlock()
		if weAreNextProposer {
			override, err := s.cfg.ForkChoiceStore.ShouldOverrideForkchoiceUpdate(newHead)
			if err != nil {
				log.WithError(err).Warn("could not evaluate proposer-boost override")
			} else if override {
				suppressEL = true
			}
		}
	}

	// Step 8: EL forkchoiceUpdated, unless suppressed.
	if !suppressEL && s.cfg.EngineCaller != nil {
		if err := s.notifyForkchoiceUpdate(ctx, newHead, currentSlot); err != nil {
			log.WithError(err).Warn("notifyForkchoiceUpdate failed")
		}
	}

	// Step 9: checkpoint / finalization events.
	if slots.IsEpochStart(block.Block().Slot()) && postState != nil {
		finalized := postState.FinalizedCheckpoint()
		if finalized.Epoch > s.lastFinalizedEpoch {
			s.lastFinalizedEpoch = finalized.Epoch
			s.cfg.StateNotifier.StateFeed().Send(&Event{
				Type: FinalizedCheckpointUpdated,
				Data: FinalizedCheckpointEvent{Epoch: finalized.Epoch, Root: finalized.Root},
			})
			if startSlot, err := slots.EpochStart(finalized.Epoch); err == nil {
				s.pruneBlockInputsBefore(startSlot)
			}
		}
	}

	// Step 10: fan-out events, but only within the recent-import window.
	if currentSlot < block.Block().Slot()+recentImportWindow {
		s.cfg.StateNotifier.StateFeed().Send(&Event{
			Type: BlockProcessed,
			Data: BlockEvent{Root: primitives.Root(root), Slot: block.Block().Slot()},
		})
	}

	return nil
}

// absorbAttestations folds every attestation in the block body into
// fork-choice per §4.4 step 4: only attestations whose target epoch is the
// current or previous epoch are absorbed; INVALID_ATTESTATION errors are
// tallied per error-code instead of logged individually, to cap log volume
// when a block carries hundreds.
func (s *Service) absorbAttestations(block blocks.ROBlock, state CachedState) {
	body := block.Block().Body()
	if body == nil || body.IsNil() {
		return
	}
	atts := body.Attestations()
	if len(atts) == 0 {
		return
	}
	currentEpoch := slots.ToEpoch(s.clock.CurrentSlot())
	errorTally := make(map[string]int)

	for _, att := range atts {
		if att == nil || att.Data == nil {
			continue
		}
		if att.Data.Target.Epoch != currentEpoch && att.Data.Target.Epoch+1 != currentEpoch {
			continue
		}
		if s.cfg.AttestationIndexer == nil {
			continue
		}
		dataRoot, slot, indices, err := s.cfg.AttestationIndexer.IndexedAttestation(att, state)
		if err != nil {
			errorTally["index_error"]++
			continue
		}
		if err := s.cfg.ForkChoiceStore.OnAttestation(dataRoot, slot, indices); err != nil {
			errorTally[err.Error()]++
			continue
		}
		s.cfg.SeenAggregateCache.MarkSeen(dataRoot)
		if s.cfg.AttestationPool != nil {
			if err := s.cfg.AttestationPool.DeleteSeen(att.Data); err != nil {
				log.WithError(err).Debug("could not delete seen attestation from pool")
			}
		}
	}
	if len(errorTally) > 0 {
		log.WithFields(logrus.Fields{"codes": errorTally, "block_root": primitives.Root(block.Root()).Hex()}).
			Warn("invalid attestations during absorption")
	}
}

// onHeadChanged implements §4.4 step 6's head/reorg event emission: pin
// the new head state, emit head with duty-dependent roots, and — if the
// old-vs-new lowest common ancestor is at positive depth — emit
// chain_reorg exactly once.
func (s *Service) onHeadChanged(ctx context.Context, oldHead, newHead [32]byte) {
	var prevDependent [32]byte
	if prevState := s.HeadState(); prevState != nil {
		if r, err := s.cfg.ForkChoiceStore.GetDependentRoot(prevState.CurrentJustifiedCheckpoint()); err == nil {
			prevDependent = r
		}
	}

	if s.cfg.StateRegenerator != nil {
		if st, err := s.cfg.StateRegenerator.StateByRoot(ctx, newHead); err == nil {
			s.setHeadState(st)
		} else {
			log.WithError(err).Warn("could not regenerate new head state")
		}
	}

	var currDependent [32]byte
	if head := s.HeadState(); head != nil {
		if r, err := s.cfg.ForkChoiceStore.GetDependentRoot(head.CurrentJustifiedCheckpoint()); err == nil {
			currDependent = r
		}
	}

	newSlot, err := forkChoiceSlot(s.cfg.ForkChoiceStore, newHead)
	if err != nil {
		newSlot = s.clock.CurrentSlot()
	}
	s.cfg.StateNotifier.StateFeed().Send(&Event{
		Type: HeadChanged,
		Data: HeadEvent{
			Slot:                      newSlot,
			Root:                      newHead,
			PreviousDutyDependentRoot: prevDependent,
			CurrentDutyDependentRoot:  currDependent,
		},
	})

	depth, err := s.cfg.ForkChoiceStore.GetCommonAncestorDepth(oldHead, newHead)
	if err != nil {
		log.WithError(err).Debug("could not compute common ancestor depth for reorg detection")
		return
	}
	if depth > 0 {
		s.cfg.StateNotifier.StateFeed().Send(&Event{
			Type: ChainReorg,
			Data: ChainReorgEvent{
				Slot:    newSlot,
				Depth:   depth,
				OldHead: oldHead,
				NewHead: newHead,
			},
		})
	}
}

// forkChoiceSlot is a small helper so onHeadChanged can read a root's slot
// through the narrow ForkChoicer interface without it exposing a direct
// Slot(root) accessor (only *forkchoice.Store concretely has one).
func forkChoiceSlot(fc forkchoice.ForkChoicer, root [32]byte) (primitives.Slot, error) {
	type slotter interface {
		Slot(root [32]byte) (primitives.Slot, error)
	}
	if s, ok := fc.(slotter); ok {
		return s.Slot(root)
	}
	return 0, errors.New("blockchain: fork-choice collaborator does not expose Slot()")
}

func execPayloadHash(block blocks.ROBlock) ([32]byte, error) {
	isExec, err := blocks.IsExecutionBlock(block.Block().Body())
	if err != nil || !isExec {
		return [32]byte{}, nil
	}
	exec, err := block.Block().Body().Execution()
	if err != nil {
		return [32]byte{}, nil
	}
	return bytesutil.ToBytes32(exec.BlockHash()), nil
}

// encodeBlockForStorage is a placeholder wire encoding: the real SSZ
// marshaling is ferranbt/fastssz generated code over the wire type this
// block is adapted from (see consensus-types/blocks.BeaconBlock's
// HashTreeRoot doc comment for the same caveat). This concatenates the
// block's own canonical fields (version, slot, proposer, parent/state
// roots, signature, and KZG commitments where present) instead of the
// root it's keyed under, so a later Database.Block(root) read returns the
// block's actual content instead of a disguised no-op.
func encodeBlockForStorage(block blocks.ROBlock) ([]byte, error) {
	b := block.Block()
	buf := make([]byte, 0, 256)
	buf = append(buf, uint64LE(uint64(b.Version()))...)
	buf = append(buf, uint64LE(uint64(b.Slot()))...)
	buf = append(buf, uint64LE(uint64(b.ProposerIndex()))...)
	parentRoot := b.ParentRoot()
	buf = append(buf, parentRoot[:]...)
	stateRoot := b.StateRoot()
	buf = append(buf, stateRoot[:]...)
	sig := block.Signature()
	buf = append(buf, sig[:]...)

	commits, err := b.Body().BlobKzgCommitments()
	if err == nil {
		buf = append(buf, uint64LE(uint64(len(commits)))...)
		for _, c := range commits {
			buf = append(buf, uint64LE(uint64(len(c)))...)
			buf = append(buf, c...)
		}
	}
	return buf, nil
}

// uint64LE mirrors consensus-types/blocks.BeaconBlock.HashTreeRoot's own
// little-endian field encoding, kept local since that helper is unexported.
func uint64LE(v uint64) []byte {
	out := make([]byte, 8)
	for i := 0; i < 8; i++ {
		out[i] = byte(v >> (8 * i))
	}
	return out
}
