package sync

import (
	"context"

	"github.com/ethwake/beacon-core/beacon-chain/blockchain"
	"github.com/ethwake/beacon-core/beacon-chain/blockchain/kzg"
	"github.com/ethwake/beacon-core/beacon-chain/cache"
	"github.com/ethwake/beacon-core/config/params"
	"github.com/ethwake/beacon-core/consensus-types/blocks"
)

// ValidateBlobSidecar runs the blob_sidecar_{subnet} topic rules: index
// bound, tuple uniqueness, future/finalized-slot checks shared with the
// block topic, the KZG inclusion proof tying the blob's commitment back
// to the block body it claims to belong to, and the individual KZG proof
// itself. The individual-proof check is done here via BatchVerifyBlobs
// with a single sidecar (this stage sees one sidecar at a time); a
// window-batched call across every sidecar accepted in a short span — the
// actual §4.2 batching policy — additionally runs once at import time
// over the whole BlockInput in das.IsAvailable, which is the gate that
// decides data availability and must re-check regardless of what gossip
// already screened out.
func (s *Service) ValidateBlobSidecar(ctx context.Context, sc blocks.ROBlob, bodyRoot [32]byte, proof [][]byte, subtreeIndex uint64) error {
	cfg := params.BeaconConfig()
	if sc.Index >= cfg.MaxBlobsPerBlockElectra {
		return blockchain.Reject("blob_index_out_of_range", blockchain.ErrWrongSubnet)
	}

	if s.chain.Clock().IsFutureSlot(sc.Slot, blockchain.MaximumGossipClockDisparity()) {
		return blockchain.Ignore("future_slot", blockchain.ErrFutureSlot)
	}
	if finalizedStart, err := s.finalizedStartSlot(); err == nil && sc.Slot <= finalizedStart {
		return blockchain.Ignore("before_finalized_slot", blockchain.ErrBeforeFinalizedSlot)
	}

	tuple := cache.SidecarTuple{Slot: sc.Slot, Proposer: sc.ProposerIndex, Index: sc.Index}
	if s.seenSidecars.Seen(tuple) {
		return blockchain.Ignore("not_first_for_tuple", blockchain.ErrNotFirstForTuple)
	}

	leaf := kzg.MerkleizeCommitments([][]byte{sc.KzgCommitment})
	if err := kzg.VerifyInclusionProof(bodyRoot, leaf, proof, cfg.KZGCommitmentsInclusionProofDepth, subtreeIndex); err != nil {
		return blockchain.Reject("inclusion_proof_failed", err)
	}
	if err := BatchVerifyBlobs(sc); err != nil {
		return blockchain.Reject("kzg_proof_failed", blockchain.ErrInvalidKZGProof)
	}

	s.seenSidecars.MarkSeen(tuple)
	s.persistBlob(sc)
	return nil
}

// persistBlob saves a gossip-accepted blob sidecar to the filesystem
// collaborator if one is configured. A write failure is logged and
// swallowed: the sidecar already passed validation and lives in the
// BlockInput assembler's in-memory view regardless of disk persistence.
func (s *Service) persistBlob(sc blocks.ROBlob) {
	if s.sidecarStorage == nil {
		return
	}
	if err := s.sidecarStorage.SaveBlob(sc); err != nil {
		log.WithError(err).WithField("index", sc.Index).Warn("could not persist blob sidecar")
	}
}
