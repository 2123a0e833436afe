// C5: the verify pipeline. VerifyBlocksInEpoch implements
// verify_blocks_in_epoch's six ordered stages over a chain of blocks that
// share a parent and an epoch boundary, grounded on the teacher's
// beacon-chain/blockchain/process_block_helpers.go's ancestry check and
// beacon-chain/sync/validate_beacon_blocks.go's "verify the whole chain,
// then batch-verify signatures once" structure.
package blockchain

import (
	"context"

	"github.com/pkg/errors"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ethwake/beacon-core/beacon-chain/das"
	"github.com/ethwake/beacon-core/consensus-types/blocks"
	"github.com/ethwake/beacon-core/consensus-types/interfaces"
)

// ErrNonContiguousAncestry is returned by VerifyBlocksInEpoch when a chain
// element's parent root doesn't match the previous element's root, or its
// slot doesn't strictly increase — stage 1 of §4.3.
var ErrNonContiguousAncestry = errors.New("blockchain: block chain is not contiguous ancestry")

// SignatureBatchVerifier is the external BLS collaborator stage 4
// delegates to: one aggregate pairing check across every signature kind
// named in §4.3 step 4. This core only orchestrates the call and the
// fallback to per-block re-verification on a batch failure; the actual
// aggregate-signature math is BLS-library internals (§1 exclusion).
type SignatureBatchVerifier interface {
	VerifyBatch(ctx context.Context, chain []blocks.ROBlock) error
	VerifyOne(ctx context.Context, block blocks.ROBlock) error
}

// VerifiedBlock pairs a chain element with the post-state and optimistic
// status the pipeline produced for it, the unit ReceiveBlock commits.
type VerifiedBlock struct {
	Block      blocks.ROBlock
	PostState  CachedState
	Optimistic bool
}

// VerifyBlocksInEpoch runs §4.3's six-stage pipeline over chain, a run of
// blocks sharing parentRoot as their common ancestor and all falling
// within one epoch boundary. It exits on the first fatal fault; a
// Validation-IGNORE style duplicate is downgraded to success when
// opts.IgnoreIfKnown is set.
func (s *Service) VerifyBlocksInEpoch(ctx context.Context, parentRoot [32]byte, chain []blocks.ROBlock, opts TransitionOpts) ([]VerifiedBlock, error) {
	if len(chain) == 0 {
		return nil, nil
	}

	if opts.IgnoreIfKnown {
		last := chain[len(chain)-1].Root()
		if s.cfg.SeenBlockCache.Seen(last) && s.cfg.Database.HasBlock(ctx, last) {
			return nil, nil
		}
	}

	// Stage 1: ancestry check.
	prevRoot := parentRoot
	prevSlot := int64(-1)
	for _, b := range chain {
		if b.Block().ParentRoot() != prevRoot {
			return nil, errors.Wrapf(ErrNonContiguousAncestry, "block %x does not chain from %x", b.Root(), prevRoot)
		}
		if int64(b.Block().Slot()) <= prevSlot {
			return nil, errors.Wrapf(ErrNonContiguousAncestry, "block %x does not strictly increase in slot", b.Root())
		}
		prevRoot = b.Root()
		prevSlot = int64(b.Block().Slot())
	}

	// Stage 2: state regen at parent, for the first block's slot.
	if s.cfg.StateRegenerator == nil {
		return nil, errors.New("blockchain: no StateRegenerator collaborator configured")
	}
	preState, err := s.cfg.StateRegenerator.StateBySlot(ctx, parentRoot, chain[0].Block().Slot())
	if err != nil {
		return nil, errors.Wrap(err, "blockchain: could not regenerate parent state")
	}

	// Stage 3: state transition, one block at a time, batching signatures
	// and (optionally) the execution payload for later stages.
	if s.cfg.StateTransition == nil {
		return nil, errors.New("blockchain: no StateTransitioner collaborator configured")
	}
	verified := make([]VerifiedBlock, 0, len(chain))
	state := preState
	for _, b := range chain {
		postState, err := s.cfg.StateTransition.ExecuteStateTransition(ctx, state, b, TransitionOpts{
			SkipVerifyBlockSignatures:  true,
			SkipVerifyExecutionPayload: opts.SkipVerifyExecutionPayload,
			VerifyOnly:                 opts.VerifyOnly,
		})
		if err != nil {
			return nil, &invalidBlock{root: b.Root(), cause: errors.Wrap(err, "state transition failed")}
		}
		verified = append(verified, VerifiedBlock{Block: b, PostState: postState})
		state = postState
	}

	// Stage 4: batch signature verification, unless the caller opted out
	// for a partial consensus-only check.
	if !opts.SkipVerifyBlockSignatures {
		blockChain := make([]blocks.ROBlock, len(chain))
		copy(blockChain, chain)
		if s.cfg.SignatureVerifier == nil {
			return nil, errors.New("blockchain: no SignatureBatchVerifier collaborator configured")
		}
		if err := s.cfg.SignatureVerifier.VerifyBatch(ctx, blockChain); err != nil {
			// Re-verify individually to locate the offending block, per
			// §4.3 step 4's "implementers may then re-verify individually."
			for _, b := range blockChain {
				if verr := s.cfg.SignatureVerifier.VerifyOne(ctx, b); verr != nil {
					return nil, &invalidBlock{root: b.Root(), cause: errors.Wrap(verr, "signature verification failed")}
				}
			}
			return nil, errors.Wrap(err, "blockchain: signature batch failed but no individual block reproduced it")
		}
	}

	// Stage 5: execution payload, per block.
	if !opts.SkipVerifyExecutionPayload && s.cfg.EngineCaller != nil {
		for i := range verified {
			optimistic, err := s.verifyExecutionPayload(ctx, verified[i].Block)
			if err != nil {
				return nil, err
			}
			verified[i].Optimistic = optimistic
		}
	}

	// Stage 6: data availability, per block.
	for i := range verified {
		if err := s.verifyDataAvailability(verified[i].Block); err != nil {
			return nil, errors.Wrapf(err, "blockchain: data availability check failed for %x", verified[i].Block.Root())
		}
	}

	return verified, nil
}

// verifyExecutionPayload drives §4.3 step 5: submit the block's payload
// to the EL and map its verdict to an optimistic status tag.
func (s *Service) verifyExecutionPayload(ctx context.Context, b blocks.ROBlock) (bool, error) {
	isExec, err := blocks.IsExecutionBlock(b.Block().Body())
	if err != nil {
		return false, errors.Wrap(err, "blockchain: could not determine execution-block status")
	}
	if !isExec {
		return false, nil
	}
	exec, err := b.Block().Body().Execution()
	if err != nil {
		return false, errors.Wrap(err, "blockchain: could not read execution payload")
	}
	versionedHashes, err := blobVersionedHashes(b)
	if err != nil {
		return false, err
	}
	requests, err := b.Block().Body().ExecutionRequests()
	if err != nil && !errors.Is(err, interfaces.ErrUnsupportedField) {
		return false, errors.Wrap(err, "blockchain: could not read execution requests")
	}
	parentRoot := common.Hash(b.Block().ParentRoot())
	return s.notifyNewPayload(ctx, b.Root(), exec, func(ctx context.Context) ([]byte, error) {
		return s.cfg.EngineCaller.NewPayload(ctx, exec, versionedHashes, &parentRoot, requests)
	})
}

func blobVersionedHashes(b blocks.ROBlock) ([]common.Hash, error) {
	commits, err := b.Block().Body().BlobKzgCommitments()
	if err != nil {
		if errors.Is(err, interfaces.ErrUnsupportedField) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "blockchain: could not read blob commitments")
	}
	return versionedHashesFromCommitments(commits), nil
}

// verifyDataAvailability drives §4.3 step 6 over the BlockInput this
// core's C3 registry tracks for the block's root. A block that never saw
// a gossip sidecar observation (e.g. one assembled straight from a trusted
// backfill source) still gets a fresh PreData/AwaitingBlobs entry seeded
// from the block itself via ObserveBlock, so pre-Deneb blocks and blocks
// whose blobs already arrived both resolve correctly.
func (s *Service) verifyDataAvailability(b blocks.ROBlock) error {
	bi := s.BlockInput(b.Root())
	if _, err := bi.ObserveBlock(b); err != nil {
		return errors.Wrap(err, "blockchain: could not observe block into its data-availability tracker")
	}
	if err := das.IsAvailable(bi, b); err != nil {
		return err
	}
	s.forgetBlockInput(b.Root())
	return nil
}
