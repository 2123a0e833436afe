package cache

import (
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ethwake/beacon-core/consensus-types/primitives"
)

// SidecarTuple identifies a single sidecar by the (slot, proposer, index)
// triple gossip validation dedups on, per the data-column-sidecar and
// blob-sidecar topic rules.
type SidecarTuple struct {
	Slot      primitives.Slot
	Proposer  primitives.ValidatorIndex
	Index     uint64
}

const (
	seenBlockCacheSize       = 1024
	seenSidecarCacheSize     = 1 << 16
	seenAggregateCacheSize   = 1 << 16
	proposerSignatureCacheSize = 1024
)

var (
	seenBlockCacheHit = promauto.NewCounter(prometheus.CounterOpts{
		Name: "seen_block_cache_hit_total",
		Help: "Number of times a block root was already present in the seen-block cache.",
	})
	seenBlockCacheMiss = promauto.NewCounter(prometheus.CounterOpts{
		Name: "seen_block_cache_miss_total",
		Help: "Number of times a block root was not yet present in the seen-block cache.",
	})
)

// SeenBlockCache deduplicates gossip/API block processing by root: C4
// consults it before handing a block to C3, and C6 registers a root in it
// once import begins so a concurrently-arriving duplicate short-circuits.
type SeenBlockCache struct {
	cache *lru.Cache[[32]byte, bool]
}

// NewSeenBlockCache constructs a bounded seen-block cache.
func NewSeenBlockCache() (*SeenBlockCache, error) {
	c, err := lru.New[[32]byte, bool](seenBlockCacheSize)
	if err != nil {
		return nil, err
	}
	return &SeenBlockCache{cache: c}, nil
}

// Seen reports whether root has already been registered, recording a
// hit/miss metric either way.
func (c *SeenBlockCache) Seen(root [32]byte) bool {
	_, ok := c.cache.Get(root)
	if ok {
		seenBlockCacheHit.Inc()
	} else {
		seenBlockCacheMiss.Inc()
	}
	return ok
}

// MarkSeen registers root as processed. It is idempotent: calling it twice
// for the same root is not an error, since the whole point is to let a
// second gossip copy or a second API submission collapse into a no-op.
func (c *SeenBlockCache) MarkSeen(root [32]byte) {
	c.cache.Add(root, true)
}

// SeenSidecarCache deduplicates blob/data-column sidecars by their
// (slot, proposer, index) tuple, independent of the SeenBlockCache (a
// sidecar can arrive and be validated before its block does).
type SeenSidecarCache struct {
	cache *lru.Cache[SidecarTuple, bool]
}

// NewSeenSidecarCache constructs a bounded seen-sidecar cache.
func NewSeenSidecarCache() (*SeenSidecarCache, error) {
	c, err := lru.New[SidecarTuple, bool](seenSidecarCacheSize)
	if err != nil {
		return nil, err
	}
	return &SeenSidecarCache{cache: c}, nil
}

// Seen reports whether tuple has already been registered.
func (c *SeenSidecarCache) Seen(tuple SidecarTuple) bool {
	_, ok := c.cache.Get(tuple)
	return ok
}

// MarkSeen registers tuple as processed.
func (c *SeenSidecarCache) MarkSeen(tuple SidecarTuple) {
	c.cache.Add(tuple, true)
}

// SeenAggregatedAttestationCache suppresses gossip re-publish of aggregate
// attestations the importer has already absorbed from a block body (§4.4
// step 4's "register as seen aggregated").
type SeenAggregatedAttestationCache struct {
	cache *lru.Cache[[32]byte, bool]
}

// NewSeenAggregatedAttestationCache constructs a bounded cache keyed by the
// attestation data root.
func NewSeenAggregatedAttestationCache() (*SeenAggregatedAttestationCache, error) {
	c, err := lru.New[[32]byte, bool](seenAggregateCacheSize)
	if err != nil {
		return nil, err
	}
	return &SeenAggregatedAttestationCache{cache: c}, nil
}

// Seen reports whether dataRoot has already been registered.
func (c *SeenAggregatedAttestationCache) Seen(dataRoot [32]byte) bool {
	_, ok := c.cache.Get(dataRoot)
	return ok
}

// MarkSeen registers dataRoot as absorbed.
func (c *SeenAggregatedAttestationCache) MarkSeen(dataRoot [32]byte) {
	c.cache.Add(dataRoot, true)
}

// ProposerSignatureCache memoizes a verified proposer signature by block
// root so that the (possibly many) data-column sidecars of one block, each
// of which revalidates the proposer signature per gossip rules, can reuse
// the main path's single verification instead of re-running a BLS pairing
// per sidecar (§4.3 gossip rule 6).
type ProposerSignatureCache struct {
	cache *lru.Cache[[32]byte, bool]
}

// NewProposerSignatureCache constructs a bounded proposer-signature cache.
func NewProposerSignatureCache() (*ProposerSignatureCache, error) {
	c, err := lru.New[[32]byte, bool](proposerSignatureCacheSize)
	if err != nil {
		return nil, err
	}
	return &ProposerSignatureCache{cache: c}, nil
}

// Verified reports whether root's proposer signature has already passed
// verification.
func (c *ProposerSignatureCache) Verified(root [32]byte) bool {
	v, ok := c.cache.Get(root)
	return ok && v
}

// MarkVerified records that root's proposer signature has been verified.
func (c *ProposerSignatureCache) MarkVerified(root [32]byte) {
	c.cache.Add(root, true)
}
