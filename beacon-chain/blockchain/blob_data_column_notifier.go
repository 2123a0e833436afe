package blockchain

import (
	"sync"

	"github.com/ethereum/go-ethereum/p2p/enode"

	"github.com/ethwake/beacon-core/beacon-chain/das"
)

// rootNotifier tracks, for one block root, which of the node's custody
// columns have arrived and fans out a close-on-complete channel to
// whichever goroutine is waiting on DataAvailable.
type rootNotifier struct {
	received map[uint64]bool
	ch       chan struct{}
	closed   bool
}

// blobDataColumnNotifier answers "do I have every data column sidecar I
// must custody for this block yet" per §4.3's PeerDAS availability gate,
// without itself doing reconstruction or sampling — it is pure
// bookkeeping over the custody set das.CustodyColumns already computed.
type blobDataColumnNotifier struct {
	mu                  sync.Mutex
	columnsNeedsCustody map[uint64]bool
	roots               map[[32]byte]*rootNotifier
}

// newBlobDataColumnNotifier derives the node's custody column set from
// its enode identity and returns a notifier tracking arrivals against it.
func newBlobDataColumnNotifier(id enode.ID) (*blobDataColumnNotifier, error) {
	count := das.CustodyGroupCount()
	cols := das.CustodyColumns(id, count)
	needed := make(map[uint64]bool, len(cols))
	for col := range cols {
		needed[col] = true
	}
	return &blobDataColumnNotifier{
		columnsNeedsCustody: needed,
		roots:               make(map[[32]byte]*rootNotifier),
	}, nil
}

func (b *blobDataColumnNotifier) rootNotifierLocked(root [32]byte) *rootNotifier {
	rn, ok := b.roots[root]
	if !ok {
		rn = &rootNotifier{received: make(map[uint64]bool), ch: make(chan struct{})}
		b.roots[root] = rn
	}
	return rn
}

// dataAvailable returns a channel that closes once every custody column
// for root has been received. If all columns already arrived before this
// call, the returned channel is already closed.
func (b *blobDataColumnNotifier) dataAvailable(root [32]byte) <-chan struct{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	rn := b.rootNotifierLocked(root)
	b.maybeCloseLocked(rn)
	return rn.ch
}

// receiveBlobDataColumn records that column col arrived for root, closing
// the root's availability channel once every custody column has arrived.
func (b *blobDataColumnNotifier) receiveBlobDataColumn(root [32]byte, col uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	rn := b.rootNotifierLocked(root)
	rn.received[col] = true
	b.maybeCloseLocked(rn)
}

func (b *blobDataColumnNotifier) maybeCloseLocked(rn *rootNotifier) {
	if rn.closed {
		return
	}
	for col := range b.columnsNeedsCustody {
		if !rn.received[col] {
			return
		}
	}
	rn.closed = true
	close(rn.ch)
}

// missingBlobDataColumns returns the custody column indices not yet
// received for root.
func (b *blobDataColumnNotifier) missingBlobDataColumns(root [32]byte) []uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	rn := b.rootNotifierLocked(root)
	var missing []uint64
	for col := range b.columnsNeedsCustody {
		if !rn.received[col] {
			missing = append(missing, col)
		}
	}
	return missing
}
