package das

import (
	"github.com/ethereum/go-ethereum/p2p/enode"
	"github.com/pkg/errors"

	"github.com/ethwake/beacon-core/config/params"
	"github.com/ethwake/beacon-core/consensus-types/blocks"
	"github.com/ethwake/beacon-core/consensus-types/primitives"
	"github.com/ethwake/beacon-core/runtime/version"
	"github.com/ethwake/beacon-core/time/slots"
)

// ErrBlobKzgCommitments is returned when the block body's KZG commitments
// can't be read (should never happen for a block already checked with
// blocks.IsExecutionBlock, but is surfaced rather than panicking).
var ErrBlobKzgCommitments = errors.New("das: could not read blob KZG commitments")

// fullCommitmentsToCheck returns, for every column index in id's custody
// set, the block's blob KZG commitments that a column sidecar for that
// index must be checked against. Pre-Deneb blocks (no commitments
// possible) and blocks old enough to fall outside the
// MIN_EPOCHS_FOR_DATA_COLUMN_SIDECARS_REQUEST window (no longer required
// to be sampled) both return a nil map with no error — there is simply
// nothing left to check.
func fullCommitmentsToCheck(id enode.ID, b blocks.ROBlock, currentSlot primitives.Slot) (map[uint64][][]byte, error) {
	blk := b.Block()
	if blk.Version() < version.Deneb {
		return nil, nil
	}
	commits, err := blk.Body().BlobKzgCommitments()
	if err != nil {
		return nil, errors.Wrap(err, ErrBlobKzgCommitments.Error())
	}
	if len(commits) == 0 {
		return nil, nil
	}

	windowSlots, err := slots.EpochEnd(params.BeaconConfig().MinEpochsForDataColumnSidecarsRequest)
	if err != nil {
		return nil, err
	}
	if blk.Slot()+windowSlots < currentSlot {
		return nil, nil
	}

	count := CustodyGroupCount()
	cols := CustodyColumns(id, count)
	out := make(map[uint64][][]byte, len(cols))
	for col := range cols {
		out[col] = commits
	}
	return out, nil
}
