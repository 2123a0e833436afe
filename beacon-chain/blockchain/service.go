// Package blockchain is the import/commit core: C1 (Clock), C5 (verify
// pipeline), C6 (import/commit), C7 (EL dispatcher), and C8 (event bus),
// wired together by
// Service the way the teacher's beacon-chain/blockchain.Service wires its
// own collaborators via functional options (WithDatabase, WithForkChoiceStore,
// WithStateNotifier, ...). Everything this core treats as out-of-scope per
// §1 — the state-transition function, state regeneration, the operations
// pools, the libp2p broadcaster — is named here as a narrow interface this
// package programs against, never a concrete dependency.
package blockchain

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/p2p/enode"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/ethwake/beacon-core/beacon-chain/blockchain/kzg"
	"github.com/ethwake/beacon-core/beacon-chain/blockinput"
	"github.com/ethwake/beacon-core/beacon-chain/cache"
	"github.com/ethwake/beacon-core/beacon-chain/das"
	"github.com/ethwake/beacon-core/beacon-chain/db"
	"github.com/ethwake/beacon-core/beacon-chain/execution"
	"github.com/ethwake/beacon-core/beacon-chain/forkchoice"
	"github.com/ethwake/beacon-core/consensus-types/blocks"
	"github.com/ethwake/beacon-core/consensus-types/interfaces"
	"github.com/ethwake/beacon-core/consensus-types/primitives"
)

var log = logrus.WithField("prefix", "blockchain")

// StateTransitioner is the external state-transition-function collaborator
// (§1's "state-transition function's internals" exclusion): given a
// pre-state and a block, it returns the post-state, or an error if the
// block is invalid under consensus rules.
type StateTransitioner interface {
	ExecuteStateTransition(ctx context.Context, preState CachedState, block blocks.ROBlock, opts TransitionOpts) (CachedState, error)
}

// TransitionOpts mirrors §4.3's verify_blocks_in_epoch options.
type TransitionOpts struct {
	VerifyOnly                bool
	SkipVerifyBlockSignatures bool
	SkipVerifyExecutionPayload bool
	IgnoreIfKnown             bool
}

// CachedState is the external state-regen collaborator's unit of work:
// §3's "state at a specific slot with precomputed shuffling, proposer,
// effective-balance-increment, and pubkey caches." This core only needs to
// read a handful of fields off it; the full state type is the regen
// collaborator's concern.
type CachedState interface {
	Slot() primitives.Slot
	CurrentJustifiedCheckpoint() forkchoice.Checkpoint
	FinalizedCheckpoint() forkchoice.Checkpoint
	ExpectedProposerIndex(slot primitives.Slot) (primitives.ValidatorIndex, error)
	ValidatorBalances() ([]uint64, error)
	IsPostMerge() bool
}

// StateRegenerator is the external collaborator that reconstructs a
// CachedState at an arbitrary slot/root, §3's "CachedState ... owned by an
// external state-regen collaborator."
type StateRegenerator interface {
	StateByRoot(ctx context.Context, root [32]byte) (CachedState, error)
	StateBySlot(ctx context.Context, parent [32]byte, slot primitives.Slot) (CachedState, error)
}

// AttestationPool is the external operations-pool collaborator §4.4 step 4
// forwards newly-seen attestations to once they're absorbed into
// fork-choice, so they stop being offered for inclusion in new blocks.
type AttestationPool interface {
	DeleteSeen(data *interfaces.AttestationData) error
}

// Broadcaster is the external libp2p collaborator (§1's "libp2p gossip
// transport" exclusion) that fans a block or sidecar out to the network.
type Broadcaster interface {
	BroadcastBlock(ctx context.Context, root [32]byte, block blocks.ROBlock) error
	BroadcastBlob(ctx context.Context, root [32]byte, index uint64, data []byte) error
	BroadcastColumn(ctx context.Context, root [32]byte, index uint64, data []byte) error
}

// BuilderClient is the external block-builder collaborator §4.6's blinded-
// block reconstruction path calls for a Fulu+ submitBlindedBlockNoResponse
// or pre-Fulu submitBlindedBlock round-trip.
type BuilderClient interface {
	SubmitBlindedBlock(ctx context.Context, root [32]byte) (blocks.ROBlock, error)
	SubmitBlindedBlockNoResponse(ctx context.Context, root [32]byte) error
}

// AttestationIndexer is the external collaborator that turns a block
// body's opaque Attestation into the indexed form on_attestation needs:
// the committee-shuffling math behind "compute indexed attestation" is
// state-transition-function internals (§1 exclusion), so this core only
// calls out to it and folds the result into fork-choice.
type AttestationIndexer interface {
	IndexedAttestation(att *interfaces.Attestation, state CachedState) ([32]byte, primitives.Slot, []primitives.ValidatorIndex, error)
}

// Service is the block-ingestion core: every component (C1-C9) hangs off
// this struct, constructed via functional options the way the teacher's
// beacon-chain/blockchain.Service is.
type Service struct {
	ctx    context.Context
	cancel context.CancelFunc

	clock *Clock

	cfg serviceConfig

	cachedHeadState CachedState
	headMu          sync.RWMutex

	blockInputs   map[[32]byte]*blockinput.BlockInput
	blockInputsMu sync.Mutex

	payloadIDCache *cache.PayloadIDCache

	trackedProposers map[primitives.Slot]bool
	trackedMu        sync.Mutex

	dataColumnNotifier *blobDataColumnNotifier

	lastFinalizedEpoch primitives.Epoch
}

// serviceConfig collects every collaborator Service depends on, each
// filled in by a With* option.
type serviceConfig struct {
	Database           db.Database
	ForkChoiceStore    forkchoice.ForkChoicer
	StateNotifier      Notifier
	EngineCaller       execution.Caller
	StateTransition    StateTransitioner
	StateRegenerator   StateRegenerator
	AttestationPool    AttestationPool
	Broadcaster        Broadcaster
	BuilderClient      BuilderClient
	AttestationIndexer AttestationIndexer
	SignatureVerifier  SignatureBatchVerifier
	SeenBlockCache     *cache.SeenBlockCache
	SeenSidecarCache   *cache.SeenSidecarCache
	SeenAggregateCache *cache.SeenAggregatedAttestationCache
	ProposerSigCache   *cache.ProposerSignatureCache
	NodeID             enode.ID
	GenesisTime        time.Time
	ProposerBoostReorgEnabled bool
}

// Option configures a Service at construction time.
type Option func(*Service)

// WithDatabase installs the hot-storage collaborator (§6).
func WithDatabase(d db.Database) Option { return func(s *Service) { s.cfg.Database = d } }

// WithForkChoiceStore installs the fork-choice collaborator (§3).
func WithForkChoiceStore(f forkchoice.ForkChoicer) Option {
	return func(s *Service) { s.cfg.ForkChoiceStore = f }
}

// WithStateNotifier installs the event-bus collaborator (C8).
func WithStateNotifier(n Notifier) Option { return func(s *Service) { s.cfg.StateNotifier = n } }

// WithEngineCaller installs the EL JSON-RPC collaborator (C7).
func WithEngineCaller(c execution.Caller) Option {
	return func(s *Service) { s.cfg.EngineCaller = c }
}

// WithStateTransition installs the external state-transition function.
func WithStateTransition(t StateTransitioner) Option {
	return func(s *Service) { s.cfg.StateTransition = t }
}

// WithStateRegenerator installs the external state-regen collaborator.
func WithStateRegenerator(r StateRegenerator) Option {
	return func(s *Service) { s.cfg.StateRegenerator = r }
}

// WithAttestationPool installs the operations-pool collaborator.
func WithAttestationPool(p AttestationPool) Option {
	return func(s *Service) { s.cfg.AttestationPool = p }
}

// WithBroadcaster installs the libp2p fan-out collaborator (C9).
func WithBroadcaster(b Broadcaster) Option { return func(s *Service) { s.cfg.Broadcaster = b } }

// WithBuilderClient installs the external block-builder collaborator.
func WithBuilderClient(b BuilderClient) Option {
	return func(s *Service) { s.cfg.BuilderClient = b }
}

// WithAttestationIndexer installs the external attestation-indexing
// collaborator §4.4 step 4 calls before on_attestation.
func WithAttestationIndexer(a AttestationIndexer) Option {
	return func(s *Service) { s.cfg.AttestationIndexer = a }
}

// WithSignatureVerifier installs the external BLS batch-verification
// collaborator §4.3 step 4 delegates to.
func WithSignatureVerifier(v SignatureBatchVerifier) Option {
	return func(s *Service) { s.cfg.SignatureVerifier = v }
}

// WithGenesisTime installs the genesis time the Clock is anchored to.
func WithGenesisTime(t time.Time) Option { return func(s *Service) { s.cfg.GenesisTime = t } }

// WithNodeID installs this node's enode identity, used to derive its
// PeerDAS custody column set (§4.5).
func WithNodeID(id enode.ID) Option { return func(s *Service) { s.cfg.NodeID = id } }

// WithProposerBoostReorg toggles §4.4 step 7's weak-block fcU suppression.
func WithProposerBoostReorg(enabled bool) Option {
	return func(s *Service) { s.cfg.ProposerBoostReorgEnabled = enabled }
}

// NewService constructs a Service from the supplied options, initializing
// the seen-caches (C2) and the genesis-anchored Clock (C1). Per §9's
// "Global state ... initialise at startup from genesis time and the
// latest finalized checkpoint loaded from DB," callers load the genesis
// time and finalized checkpoint before calling NewService and pass them
// in via WithGenesisTime and the supplied ForkChoiceStore.
func NewService(ctx context.Context, opts ...Option) (*Service, error) {
	ctx, cancel := context.WithCancel(ctx)
	s := &Service{
		ctx:              ctx,
		cancel:           cancel,
		blockInputs:      make(map[[32]byte]*blockinput.BlockInput),
		payloadIDCache:   cache.NewPayloadIDCache(),
		trackedProposers: make(map[primitives.Slot]bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cfg.Database == nil {
		return nil, errors.New("blockchain: Database collaborator is required")
	}
	if s.cfg.ForkChoiceStore == nil {
		return nil, errors.New("blockchain: ForkChoiceStore collaborator is required")
	}
	if s.cfg.StateNotifier == nil {
		s.cfg.StateNotifier = NewEventFeeds()
	}

	seenBlocks, err := cache.NewSeenBlockCache()
	if err != nil {
		return nil, errors.Wrap(err, "blockchain: could not construct seen-block cache")
	}
	seenSidecars, err := cache.NewSeenSidecarCache()
	if err != nil {
		return nil, errors.Wrap(err, "blockchain: could not construct seen-sidecar cache")
	}
	seenAggregates, err := cache.NewSeenAggregatedAttestationCache()
	if err != nil {
		return nil, errors.Wrap(err, "blockchain: could not construct seen-aggregate cache")
	}
	proposerSigs, err := cache.NewProposerSignatureCache()
	if err != nil {
		return nil, errors.Wrap(err, "blockchain: could not construct proposer-signature cache")
	}
	s.cfg.SeenBlockCache = seenBlocks
	s.cfg.SeenSidecarCache = seenSidecars
	s.cfg.SeenAggregateCache = seenAggregates
	s.cfg.ProposerSigCache = proposerSigs

	s.clock = Genesis(s.cfg.GenesisTime)

	notifier, err := newBlobDataColumnNotifier(s.cfg.NodeID)
	if err != nil {
		return nil, errors.Wrap(err, "blockchain: could not derive custody column set")
	}
	s.dataColumnNotifier = notifier

	return s, nil
}

// Start initializes the KZG trusted setup (fatal on failure) and logs that
// the service started. The import path itself runs synchronously per
// caller request (§5's "single-threaded cooperative at the import/commit
// granularity"); Start launches no background routines.
func (s *Service) Start() {
	if err := kzg.Start(); err != nil {
		log.WithError(err).Fatal("could not initialize KZG trusted setup")
	}
	log.Info("blockchain service started")
}

// Stop gracefully tears the service down: §9's "teardown gracefully on
// shutdown by flushing any in-flight DB batches."
func (s *Service) Stop() error {
	s.cancel()
	return s.cfg.Database.Close()
}

// Clock returns C1, for callers (the gossip validator, the publish path)
// that need the current slot/epoch or a disparity check.
func (s *Service) Clock() *Clock { return s.clock }

// ForkChoicer exposes the fork-choice collaborator to callers outside this
// package that need read-only head/ancestry queries (e.g. an HTTP handler
// out of scope here, or a test).
func (s *Service) ForkChoicer() forkchoice.ForkChoicer { return s.cfg.ForkChoiceStore }

// HeadState returns the strong reference to the current head's CachedState,
// per §3's Ownership: "the core only pins a strong reference to the head
// state and checkpoint states."
func (s *Service) HeadState() CachedState {
	s.headMu.RLock()
	defer s.headMu.RUnlock()
	return s.cachedHeadState
}

func (s *Service) setHeadState(st CachedState) {
	s.headMu.Lock()
	defer s.headMu.Unlock()
	s.cachedHeadState = st
}

// BlockInput returns the C3 assembler state tracked for root, creating an
// empty one on first reference. The gossip validator (C4) and verify
// pipeline (C5) share this registry so a sidecar observed before its block
// and a block observed before its sidecars converge on the same entry.
func (s *Service) BlockInput(root [32]byte) *blockinput.BlockInput {
	s.blockInputsMu.Lock()
	defer s.blockInputsMu.Unlock()
	bi, ok := s.blockInputs[root]
	if !ok {
		bi = blockinput.New(root)
		s.blockInputs[root] = bi
	}
	return bi
}

// forgetBlockInput releases a root's C3 tracking entry once it has been
// imported or discarded, bounding the registry to in-flight blocks.
func (s *Service) forgetBlockInput(root [32]byte) {
	s.blockInputsMu.Lock()
	defer s.blockInputsMu.Unlock()
	delete(s.blockInputs, root)
}

// pruneBlockInputsBefore implements §3's Ownership eviction rule: "On
// finalization of an earlier epoch, all inputs for slots <= finalized-
// start-slot are dropped along with their transitive parent chain
// references." A BlockInput still awaiting its block (no ROBlock
// observed yet) has no slot to compare against and is left in place —
// it either completes and is pruned on a later finalization, or is
// bounded by the seen-sidecar LRU's own eviction.
func (s *Service) pruneBlockInputsBefore(cutoff primitives.Slot) {
	s.blockInputsMu.Lock()
	defer s.blockInputsMu.Unlock()
	for root, bi := range s.blockInputs {
		block, ok := bi.Block()
		if !ok {
			continue
		}
		if block.Block().Slot() <= cutoff {
			delete(s.blockInputs, root)
		}
	}
}

// CustodyColumnCount reports this node's PeerDAS custody group count as
// returned by das.CustodyGroupCount. Neither the node's enode identity nor
// any validator balance enters the figure.
func (s *Service) CustodyColumnCount() uint64 {
	return das.CustodyGroupCount()
}
