package cache

import (
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/ethwake/beacon-core/consensus-types/primitives"
)

// payloadIDTTL bounds how long a cached payload-build ID stays valid: a
// payload requested for a given (slot, headRoot) is only ever consumed by
// that slot's own proposal flow, so an entry a few slots stale is dead
// weight, not a correctness concern.
const payloadIDTTL = 3 * 12 * time.Second

// PayloadIDCache is C7's "Payload-ID cache keyed by (slot, headRoot)":
// notifyForkchoiceUpdate stores the build ID the EL handed back for a
// requested payload, and the proposal path looks it up by the same key
// when it's time to call getPayload, grounded on the teacher's
// PayloadIDCache. Backed by patrickmn/go-cache instead of the generic LRU
// helpers in cache.go: entries here expire on a wall-clock TTL rather than
// a fixed capacity, since a stale payload ID for a slot that's already
// passed should disappear on its own rather than wait to be evicted by
// capacity pressure.
type PayloadIDCache struct {
	c *gocache.Cache
}

// NewPayloadIDCache constructs an empty PayloadIDCache.
func NewPayloadIDCache() *PayloadIDCache {
	return &PayloadIDCache{c: gocache.New(payloadIDTTL, payloadIDTTL/2)}
}

func payloadIDCacheKey(slot primitives.Slot, headRoot [32]byte) string {
	return fmt.Sprintf("%d-%x", slot, headRoot)
}

// Set records id as the payload build ID for (slot, headRoot).
func (p *PayloadIDCache) Set(slot primitives.Slot, headRoot [32]byte, id [8]byte) {
	p.c.SetDefault(payloadIDCacheKey(slot, headRoot), id)
}

// Get returns the payload build ID previously recorded for
// (slot, headRoot), if any and not yet expired.
func (p *PayloadIDCache) Get(slot primitives.Slot, headRoot [32]byte) ([8]byte, bool) {
	v, ok := p.c.Get(payloadIDCacheKey(slot, headRoot))
	if !ok {
		return [8]byte{}, false
	}
	return v.([8]byte), true
}
