package kzg

import (
	GoKZG "github.com/crate-crypto/go-kzg-4844"
	"github.com/pkg/errors"

	"github.com/ethwake/beacon-core/consensus-types/blocks"
)

// ErrContextNotInitialized is returned by Verify when Start has not been
// called yet.
var ErrContextNotInitialized = errors.New("kzg: context not initialized, call Start first")

// Verify runs a single batched KZG proof verification over every sidecar
// passed in. An empty argument list trivially succeeds (nothing to
// check), matching go-kzg-4844's own batch API.
func Verify(sidecars ...blocks.ROBlob) error {
	if len(sidecars) == 0 {
		return nil
	}
	if kzgContext == nil {
		return ErrContextNotInitialized
	}
	blobs := make([]GoKZG.Blob, len(sidecars))
	commitments := make([]GoKZG.KZGCommitment, len(sidecars))
	proofs := make([]GoKZG.KZGProof, len(sidecars))
	for i, sc := range sidecars {
		blobs[i] = bytesToBlob(sc.Blob)
		commitments[i] = bytesToCommitment(sc.KzgCommitment)
		proofs[i] = bytesToKZGProof(sc.KzgProof)
	}
	if err := kzgContext.VerifyBlobKZGProofBatch(blobs, commitments, proofs); err != nil {
		return errors.Wrap(err, "kzg: batch proof verification failed")
	}
	return nil
}
