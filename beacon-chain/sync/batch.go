package sync

import (
	"github.com/ethwake/beacon-core/beacon-chain/blockchain/kzg"
	"github.com/ethwake/beacon-core/consensus-types/blocks"
)

// BatchVerifyBlobs runs a single batched KZG proof verification over
// every blob sidecar that has already passed ValidateBlobSidecar's
// inclusion-proof stage, per §4.2's batching note: sidecars arriving in a
// short window are checked together rather than one proof-verification
// call per sidecar. Proposer signatures are deliberately excluded from
// this batch — they're verified once per block on the main path (stage 6
// of ValidateBeaconBlock) and reused via the proposer-signature cache,
// not re-batched per sidecar.
func BatchVerifyBlobs(sidecars ...blocks.ROBlob) error {
	return kzg.Verify(sidecars...)
}

// BatchVerifyColumns runs a single batched KZG cell-proof verification
// over every data-column sidecar that has already passed
// ValidateDataColumnSidecar's inclusion-proof stage.
func BatchVerifyColumns(columns ...blocks.ROColumn) error {
	return kzg.VerifyCells(columns...)
}
