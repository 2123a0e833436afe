package blocks

import (
	"github.com/pkg/errors"

	"github.com/ethwake/beacon-core/consensus-types/primitives"
)

// ErrNilBlobSidecar is returned when a blob sidecar's proto-equivalent
// fields are missing.
var ErrNilBlobSidecar = errors.New("blocks: nil blob sidecar")

// ROBlob is a read-only, root-cached view of a blob sidecar: the blob
// payload plus the KZG commitment/proof and the signed block header it
// was paired with at gossip time. KZG batch-verification (blockchain/kzg)
// operates over slices of these.
type ROBlob struct {
	BlockRoot       [32]byte
	Index           uint64
	Slot            primitives.Slot
	ProposerIndex   primitives.ValidatorIndex
	ParentRoot      [32]byte
	Blob            []byte
	KzgCommitment   []byte
	KzgProof        []byte
}

// NewROBlob builds an ROBlob, validating that the commitment and proof
// are present (a blob sidecar with neither is malformed and should never
// have passed gossip validation).
func NewROBlob(blockRoot [32]byte, index uint64, slot primitives.Slot, proposer primitives.ValidatorIndex, parentRoot [32]byte, blob, commitment, proof []byte) (ROBlob, error) {
	if len(commitment) == 0 || len(proof) == 0 {
		return ROBlob{}, ErrNilBlobSidecar
	}
	return ROBlob{
		BlockRoot:     blockRoot,
		Index:         index,
		Slot:          slot,
		ProposerIndex: proposer,
		ParentRoot:    parentRoot,
		Blob:          blob,
		KzgCommitment: commitment,
		KzgProof:      proof,
	}, nil
}
