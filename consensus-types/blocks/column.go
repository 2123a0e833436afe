package blocks

import (
	"github.com/pkg/errors"

	"github.com/ethwake/beacon-core/consensus-types/primitives"
)

// ErrNilDataColumnSidecar is returned when a data-column sidecar's fields
// are missing the pieces gossip validation requires.
var ErrNilDataColumnSidecar = errors.New("blocks: nil data column sidecar")

// ROColumn is a read-only view of a Fulu+ data-column sidecar: one column
// of the extended matrix plus the full set of KZG commitments/proofs for
// every blob in the block (column sidecars carry commitments for the whole
// row, not just their own cell, so a verifier can check inclusion against
// the block body without the block itself), and the signed block header
// reference every sidecar gossip topic attaches per §3's Sidecar identity.
type ROColumn struct {
	BlockRoot     [32]byte
	Index         uint64
	Slot          primitives.Slot
	ProposerIndex primitives.ValidatorIndex
	ParentRoot    [32]byte
	Column        [][]byte // one cell per blob in the block, ascending blob index
	KzgCommitments [][]byte
	KzgProofs     [][]byte
}

// NewROColumn builds an ROColumn, validating that column/commitments/proofs
// are mutually equal in length, per §4.2's data-column-sidecar topic rule
// "lengths of column, kzg_commitments, kzg_proofs mutually equal."
func NewROColumn(blockRoot [32]byte, index uint64, slot primitives.Slot, proposer primitives.ValidatorIndex, parentRoot [32]byte, column, commitments, proofs [][]byte) (ROColumn, error) {
	if len(column) == 0 || len(commitments) == 0 || len(proofs) == 0 {
		return ROColumn{}, ErrNilDataColumnSidecar
	}
	if len(column) != len(commitments) || len(column) != len(proofs) {
		return ROColumn{}, errors.New("blocks: column/commitments/proofs length mismatch")
	}
	return ROColumn{
		BlockRoot:      blockRoot,
		Index:          index,
		Slot:           slot,
		ProposerIndex:  proposer,
		ParentRoot:     parentRoot,
		Column:         column,
		KzgCommitments: commitments,
		KzgProofs:      proofs,
	}, nil
}
