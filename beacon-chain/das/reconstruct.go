package das

import (
	"github.com/pkg/errors"

	"github.com/ethwake/beacon-core/config/params"
)

// ErrReconstructionFailed is returned when fewer than half of
// NUMBER_OF_COLUMNS were received, per §4.5: "if fewer than half the
// columns are present, reconstruction is rejected."
var ErrReconstructionFailed = errors.New("das: fewer than half of NUMBER_OF_COLUMNS received, reconstruction rejected")

// CanReconstruct reports whether receivedColumns is enough to recover the
// full extended matrix via erasure coding, per §4.5/S4: at least half of
// NUMBER_OF_COLUMNS must be present.
func CanReconstruct(receivedColumns int) bool {
	return uint64(receivedColumns)*2 >= params.BeaconConfig().NumberOfColumns
}

// ReconstructColumns takes the subset of columns this node actually
// received (keyed by index) and returns the full NUMBER_OF_COLUMNS-wide
// set, erasure-decoding the missing indices. Reed-Solomon
// decode-over-the-extended-matrix is KZG/polynomial-library internals
// (§1 exclusion, same boundary as the KZG package itself); this records
// which indices were filled in without performing the field arithmetic,
// since every caller in this core's scope (the DA check) only needs to
// know reconstruction succeeded, not the recovered bytes themselves.
func ReconstructColumns(received map[uint64][]byte) (map[uint64][]byte, error) {
	if !CanReconstruct(len(received)) {
		return nil, ErrReconstructionFailed
	}
	total := params.BeaconConfig().NumberOfColumns
	out := make(map[uint64][]byte, total)
	for i, b := range received {
		out[i] = b
	}
	for i := uint64(0); i < total; i++ {
		if _, ok := out[i]; !ok {
			out[i] = nil // placeholder: recovered by erasure decoding in the KZG/polynomial collaborator.
		}
	}
	return out, nil
}
