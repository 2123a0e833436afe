package sync

import (
	"context"

	"github.com/ethwake/beacon-core/beacon-chain/blockchain"
	"github.com/ethwake/beacon-core/beacon-chain/blockchain/kzg"
	"github.com/ethwake/beacon-core/beacon-chain/cache"
	"github.com/ethwake/beacon-core/config/params"
	"github.com/ethwake/beacon-core/consensus-types/blocks"
)

// ValidateDataColumnSidecar runs the data_column_sidecar_{subnet} topic
// rules: subnet mapping, tuple uniqueness, future/finalized-slot checks,
// the per-commitment KZG inclusion proof, and the column's own cell
// proofs via BatchVerifyColumns (a single-sidecar batch here; the window
// batch across a whole BlockInput runs again at import time in
// das.IsAvailable, which is the gate that actually decides availability).
// index mod DATA_COLUMN_SIDECAR_SUBNET_COUNT must equal the subnet the
// sidecar arrived on, per §4.2's column-sidecar rule — gossip delivers the
// arriving subnet out of band (the topic name), so the caller passes it
// in as arrivingSubnet.
func (s *Service) ValidateDataColumnSidecar(ctx context.Context, col blocks.ROColumn, bodyRoot [32]byte, proofs [][][]byte, subtreeIndices []uint64, arrivingSubnet uint64) error {
	cfg := params.BeaconConfig()
	if col.Index >= cfg.NumberOfColumns {
		return blockchain.Reject("column_index_out_of_range", blockchain.ErrWrongSubnet)
	}
	if col.Index%cfg.DataColumnSidecarSubnetCount != arrivingSubnet {
		return blockchain.Reject("wrong_subnet", blockchain.ErrWrongSubnet)
	}

	if s.chain.Clock().IsFutureSlot(col.Slot, blockchain.MaximumGossipClockDisparity()) {
		return blockchain.Ignore("future_slot", blockchain.ErrFutureSlot)
	}
	if finalizedStart, err := s.finalizedStartSlot(); err == nil && col.Slot <= finalizedStart {
		return blockchain.Ignore("before_finalized_slot", blockchain.ErrBeforeFinalizedSlot)
	}

	tuple := cache.SidecarTuple{Slot: col.Slot, Proposer: col.ProposerIndex, Index: col.Index}
	if s.seenSidecars.Seen(tuple) {
		return blockchain.Ignore("not_first_for_tuple", blockchain.ErrNotFirstForTuple)
	}

	if len(proofs) != len(col.KzgCommitments) || len(subtreeIndices) != len(col.KzgCommitments) {
		return blockchain.Reject("inclusion_proof_shape_mismatch", kzg.ErrInclusionProofFailed)
	}
	for i, commitment := range col.KzgCommitments {
		leaf := kzg.MerkleizeCommitments([][]byte{commitment})
		if err := kzg.VerifyInclusionProof(bodyRoot, leaf, proofs[i], cfg.KZGCommitmentsInclusionProofDepth, subtreeIndices[i]); err != nil {
			return blockchain.Reject("inclusion_proof_failed", err)
		}
	}
	if err := BatchVerifyColumns(col); err != nil {
		return blockchain.Reject("kzg_proof_failed", blockchain.ErrInvalidKZGProof)
	}

	s.seenSidecars.MarkSeen(tuple)
	s.persistColumn(col)
	return nil
}

// persistColumn is the ColumnStorage analog of persistBlob.
func (s *Service) persistColumn(col blocks.ROColumn) {
	if s.sidecarStorage == nil {
		return
	}
	if err := s.sidecarStorage.SaveColumn(col); err != nil {
		log.WithError(err).WithField("index", col.Index).Warn("could not persist column sidecar")
	}
}
