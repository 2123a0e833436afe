package cache

import (
	"bytes"
	"sync"

	"github.com/ethwake/beacon-core/consensus-types/interfaces"
	"github.com/ethwake/beacon-core/consensus-types/primitives"
)

// cachedSignedExecutionPayloadHeaderMu guards cachedSignedExecutionPayloadHeader.
var cachedSignedExecutionPayloadHeaderMu sync.Mutex

// cachedSignedExecutionPayloadHeader holds, per slot, every distinct
// (parentBlockHash) builder bid seen during that slot's ePBS/Gloas auction
// window. Only the two most recent slots are retained: the builder-bid
// gossip window never needs to look further back than the current and
// previous slot (see signed_execution_header_test.go's eviction cases).
var cachedSignedExecutionPayloadHeader = make(map[primitives.Slot][]*interfaces.SignedExecutionPayloadHeader)

const maxCachedHeaderSlots = 2

// SaveSignedExecutionPayloadHeader inserts header into the per-slot bucket,
// replacing any existing entry with the same parent block hash only if the
// new header's bid value is higher, and evicting the oldest slot once more
// than maxCachedHeaderSlots are tracked.
func SaveSignedExecutionPayloadHeader(header *interfaces.SignedExecutionPayloadHeader) {
	if header == nil {
		return
	}
	cachedSignedExecutionPayloadHeaderMu.Lock()
	defer cachedSignedExecutionPayloadHeaderMu.Unlock()

	slot := header.Slot
	bucket := cachedSignedExecutionPayloadHeader[slot]
	replaced := false
	for i, h := range bucket {
		if bytes.Equal(h.ParentBlockHash, header.ParentBlockHash) {
			if header.Value > h.Value {
				bucket[i] = header
			}
			replaced = true
			break
		}
	}
	if !replaced {
		bucket = append(bucket, header)
	}
	cachedSignedExecutionPayloadHeader[slot] = bucket

	if len(cachedSignedExecutionPayloadHeader) > maxCachedHeaderSlots {
		var oldest primitives.Slot
		first := true
		for s := range cachedSignedExecutionPayloadHeader {
			if first || s < oldest {
				oldest = s
				first = false
			}
		}
		delete(cachedSignedExecutionPayloadHeader, oldest)
	}

	currentSignedExecutionPayloadHeaderMu.Lock()
	currentSignedExecutionPayloadHeader = header
	currentSignedExecutionPayloadHeaderMu.Unlock()
}

// SignedExecutionPayloadHeaderByHash returns the cached header at slot
// matching parentBlockHash, or nil if none is cached.
func SignedExecutionPayloadHeaderByHash(slot primitives.Slot, parentBlockHash []byte) *interfaces.SignedExecutionPayloadHeader {
	cachedSignedExecutionPayloadHeaderMu.Lock()
	defer cachedSignedExecutionPayloadHeaderMu.Unlock()

	for _, h := range cachedSignedExecutionPayloadHeader[slot] {
		if bytes.Equal(h.ParentBlockHash, parentBlockHash) {
			return h
		}
	}
	return nil
}

// resetHeaderCache clears the cache; exported as lowercase to match the
// teacher's test-only reset helper, used by this package's own tests.
func resetHeaderCache() {
	cachedSignedExecutionPayloadHeaderMu.Lock()
	defer cachedSignedExecutionPayloadHeaderMu.Unlock()
	cachedSignedExecutionPayloadHeader = make(map[primitives.Slot][]*interfaces.SignedExecutionPayloadHeader)
}

// currentSignedExecutionPayloadHeaderMu guards currentSignedExecutionPayloadHeader,
// the most recently saved builder bid, used by the block builder path as a
// quick "what did we just hear" memo distinct from the per-slot
// auction-window map above.
var (
	currentSignedExecutionPayloadHeaderMu sync.RWMutex
	currentSignedExecutionPayloadHeader   *interfaces.SignedExecutionPayloadHeader
)

// SignedExecutionPayloadHeader returns the most recently saved builder bid,
// or nil if none has been saved yet.
func SignedExecutionPayloadHeader() *interfaces.SignedExecutionPayloadHeader {
	currentSignedExecutionPayloadHeaderMu.RLock()
	defer currentSignedExecutionPayloadHeaderMu.RUnlock()
	return currentSignedExecutionPayloadHeader
}
