// Package sync is C4: the gossip validation pipeline. Each topic
// (beacon_block, blob_sidecar_{subnet}, data_column_sidecar_{subnet}) gets
// its own ordered stage list per §4.2, grounded on the teacher's
// beacon-chain/sync package — the retrieved
// _examples/.../prysm-spike/beacon-chain/sync/validate_beacon_blocks.go
// production file is this package's direct namesake and stage ordering
// (decode -> seen-cache -> bad-parent -> clock -> finalized-slot ->
// unknown-parent pending-queue -> proposer-signature/index), adapted from
// its pre-Deneb pubsub.ValidationResult return convention to this core's
// blockchain.ValidationError{Action} taxonomy (§7) so the libp2p-pubsub
// wiring at the transport boundary (out of scope, §1) is the only layer
// that needs to translate Action back into Accept/Reject/Ignore.
package sync

import (
	"context"
	"sync"

	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/ethwake/beacon-core/beacon-chain/blockchain"
	"github.com/ethwake/beacon-core/beacon-chain/cache"
	"github.com/ethwake/beacon-core/beacon-chain/db"
	"github.com/ethwake/beacon-core/beacon-chain/forkchoice"
	"github.com/ethwake/beacon-core/consensus-types/blocks"
	"github.com/ethwake/beacon-core/consensus-types/primitives"
	"github.com/ethwake/beacon-core/time/slots"
)

var log = logrus.WithField("prefix", "sync")

// Chain is the narrow read surface the gossip validator needs from C1/C6:
// the current slot/epoch, clock-disparity checks, and fork-choice ancestry
// lookups. *blockchain.Service satisfies this.
type Chain interface {
	Clock() *blockchain.Clock
	ForkChoicer() forkchoice.ForkChoicer
}

// ProposerResolver is the external collaborator that answers "who is the
// expected proposer for this slot, given this parent." The shuffling math
// behind it is state-transition-function internals (§1 exclusion); this
// package only consumes the answer, including the blockchain.ErrShufflingNotComputable
// sentinel that downgrades rule 3 from REJECT to IGNORE per §4.2.
type ProposerResolver interface {
	ExpectedProposerIndex(ctx context.Context, parentRoot [32]byte, slot primitives.Slot) (primitives.ValidatorIndex, error)
}

// ProposerSignatureVerifier is the external BLS collaborator for gossip
// rule 6: a single proposer-signature check per block, cached in C2 so
// every data-column sidecar of the same block can reuse it instead of
// re-verifying (§4.2's batching policy).
type ProposerSignatureVerifier interface {
	VerifyProposerSignature(ctx context.Context, block BlockLike) error
}

// BlockLike is the minimal surface validate_beacon_block.go and its
// collaborators need from a signed block, satisfied by blocks.ROBlock.
type BlockLike interface {
	Root() [32]byte
	Block() interface {
		Slot() primitives.Slot
		ProposerIndex() primitives.ValidatorIndex
		ParentRoot() [32]byte
	}
}

// SidecarStorage is the optional db/filesystem collaborator (§6's
// filesystem blob/column storage) a gossip-validated sidecar is persisted
// to, off the hot bucketed-KV path. Persistence failures are logged, not
// propagated as validation failures: a disk write error doesn't make a
// cryptographically valid sidecar invalid.
type SidecarStorage interface {
	SaveBlob(blocks.ROBlob) error
	SaveColumn(blocks.ROColumn) error
}

// slotProposerKey identifies a gossip block's (slot, proposer_index) pair,
// the tuple rule 4 deduplicates on and the publish path's equivocation
// check (§9 Open Question 1) compares against.
type slotProposerKey struct {
	slot     primitives.Slot
	proposer primitives.ValidatorIndex
}

// Service holds the gossip-validation collaborators and the per-topic
// first-seen bookkeeping rule 4 and the sidecar tuple rules need beyond
// what the bounded LRU seen-caches (C2) already cover: an exact record of
// which root was first seen for a (slot, proposer) pair, so a later
// differing block at the same tuple can be told apart from a duplicate of
// the same one (IGNORE) versus an equivocation (REJECT, and — in the
// publish path — EquivocatingBlock).
type Service struct {
	chain            Chain
	db               db.Database
	seenBlocks       *cache.SeenBlockCache
	seenSidecars     *cache.SeenSidecarCache
	proposerSigCache *cache.ProposerSignatureCache
	proposerResolver ProposerResolver
	sigVerifier      ProposerSignatureVerifier
	notifier         blockchain.Notifier
	sidecarStorage   SidecarStorage

	mu                sync.Mutex
	blockBySlotProposer map[slotProposerKey][32]byte
}

// Option configures a Service at construction time.
type Option func(*Service)

func WithChain(c Chain) Option { return func(s *Service) { s.chain = c } }
func WithDatabase(d db.Database) Option { return func(s *Service) { s.db = d } }
func WithSeenBlockCache(c *cache.SeenBlockCache) Option {
	return func(s *Service) { s.seenBlocks = c }
}
func WithSeenSidecarCache(c *cache.SeenSidecarCache) Option {
	return func(s *Service) { s.seenSidecars = c }
}
func WithProposerSignatureCache(c *cache.ProposerSignatureCache) Option {
	return func(s *Service) { s.proposerSigCache = c }
}
func WithProposerResolver(r ProposerResolver) Option {
	return func(s *Service) { s.proposerResolver = r }
}
func WithSignatureVerifier(v ProposerSignatureVerifier) Option {
	return func(s *Service) { s.sigVerifier = v }
}
func WithNotifier(n blockchain.Notifier) Option { return func(s *Service) { s.notifier = n } }

// WithSidecarStorage installs the optional filesystem sidecar-persistence
// collaborator; if never set, validated sidecars are simply not persisted
// to disk (the caller's own in-memory BlockInput assembly is unaffected).
func WithSidecarStorage(st SidecarStorage) Option {
	return func(s *Service) { s.sidecarStorage = st }
}

// NewService constructs a gossip validator from its collaborators.
func NewService(opts ...Option) (*Service, error) {
	s := &Service{blockBySlotProposer: make(map[slotProposerKey][32]byte)}
	for _, opt := range opts {
		opt(s)
	}
	if s.chain == nil {
		return nil, errors.New("sync: Chain collaborator is required")
	}
	if s.seenBlocks == nil || s.seenSidecars == nil || s.proposerSigCache == nil {
		return nil, errors.New("sync: seen-cache collaborators are required")
	}
	return s, nil
}

// selfPeer reports whether pid is this node's own libp2p identity — gossip
// validation always accepts messages the node published itself, per the
// teacher's validateBeaconBlockPubSub's "Validation runs on publish ...
// approve any message from ourselves."
func selfPeer(pid, self peer.ID) bool { return self != "" && pid == self }

// finalizedStartSlot resolves the fork-choice store's current finalized
// checkpoint epoch to its first slot, shared by every topic's
// before-finalized-slot stage.
func (s *Service) finalizedStartSlot() (primitives.Slot, error) {
	cp := s.chain.ForkChoicer().FinalizedCheckpoint()
	return slots.EpochStart(cp.Epoch)
}

// firstSeenForSlotProposer records root as the first block seen for
// (slot, proposer), or reports the already-recorded root if one exists.
func (s *Service) firstSeenForSlotProposer(slot primitives.Slot, proposer primitives.ValidatorIndex, root [32]byte) (existing [32]byte, seen bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := slotProposerKey{slot: slot, proposer: proposer}
	if r, ok := s.blockBySlotProposer[key]; ok {
		return r, true
	}
	s.blockBySlotProposer[key] = root
	return root, false
}
