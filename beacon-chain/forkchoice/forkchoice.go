// Package forkchoice implements the fork-choice store: an arena-indexed
// doubly-linked tree of block nodes (LMD-GHOST weights are out of scope —
// §4.2's collaborator contract treats attestation-weight accounting as
// external; this core owns node insertion, ancestry queries, and the
// optimistic/invalid-chain pruning cascade C6/C7 drive).
package forkchoice

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/ethwake/beacon-core/consensus-types/primitives"
)

// ErrUnknownNode is returned when a root has no corresponding node in the
// store.
var ErrUnknownNode = errors.New("forkchoice: unknown node")

// BlockAndCheckpoints bundles everything on_block needs about a newly
// imported block beyond its root/parent/slot, per §4.4 step 2's call
// signature: (block, post_state, block_delay_sec, current_slot,
// exec_status, data_availability_status).
type BlockAndCheckpoints struct {
	Root              [32]byte
	ParentRoot        [32]byte
	Slot              primitives.Slot
	JustifiedCheckpoint Checkpoint
	FinalizedCheckpoint Checkpoint
	PayloadBlockHash  [32]byte
	Optimistic        bool
}

// ForkChoicer is the external fork-choice-store contract §3 names: the DAG
// of ProtoBlocks, attestation weights, and the justified/finalized
// checkpoints, answering on_block/on_attestation/on_attester_slashing/
// get_head/get_common_ancestor_depth/should_override_forkchoice_update/
// get_dependent_root. *Store (this package) provides the arena-indexed
// ancestry/pruning primitives; doubly-linked-tree.ForkChoice adds the
// LMD-GHOST weight accounting and implements this interface in full.
type ForkChoicer interface {
	InsertNode(root, parentRoot [32]byte, slot primitives.Slot) error
	OnBlock(b BlockAndCheckpoints) error
	OnAttestation(root [32]byte, slot primitives.Slot, indices []primitives.ValidatorIndex) error
	OnAttesterSlashing(indices []primitives.ValidatorIndex)
	GetHead() ([32]byte, error)
	GetCommonAncestorDepth(oldHead, newHead [32]byte) (uint64, error)
	ShouldOverrideForkchoiceUpdate(root [32]byte) (bool, error)
	GetDependentRoot(cp Checkpoint) ([32]byte, error)
	HasNode(root [32]byte) bool
	FinalizedCheckpoint() Checkpoint
	JustifiedCheckpoint() Checkpoint
	FinalizedPayloadBlockHash() [32]byte
	UnrealizedJustifiedPayloadBlockHash() [32]byte
	PayloadBlockHash(root [32]byte) ([32]byte, error)
	SetOptimisticToInvalid(root, parentRoot, lastValidHash [32]byte) ([][32]byte, error)
	SetOptimisticToValid(root [32]byte) error
}

// ErrNotDescendant is returned when a candidate block root does not
// descend from the store's finalized checkpoint.
var ErrNotDescendant = errors.New("forkchoice: block is not a descendant of the finalized checkpoint")

// Checkpoint names a (epoch, root) pair.
type Checkpoint struct {
	Epoch primitives.Epoch
	Root  [32]byte
}

// node is one entry in the arena. Children/parent are stored as arena
// indices, not pointers, so the tree can be pruned by truncating index
// ranges instead of chasing pointer graphs — the same layout the
// teacher's doubly-linked-tree package uses internally.
type node struct {
	root            [32]byte
	parentRoot      [32]byte
	parentIndex     int // -1 if none
	slot            primitives.Slot
	payloadBlockHash [32]byte
	optimistic      bool
	invalid         bool
	children        []int
}

// Store is the fork-choice store: the arena of nodes plus the indices
// needed to answer head/ancestor/justified/finalized queries in O(depth)
// or O(1).
type Store struct {
	mu sync.RWMutex

	nodes    []node
	indexOf  map[[32]byte]int

	justified Checkpoint
	finalized Checkpoint

	headRoot [32]byte
}

// New creates a store rooted at the given finalized checkpoint block.
func New(finalizedRoot [32]byte, finalizedSlot primitives.Slot, justified, finalized Checkpoint) *Store {
	s := &Store{
		indexOf:   make(map[[32]byte]int),
		justified: justified,
		finalized: finalized,
		headRoot:  finalizedRoot,
	}
	s.nodes = append(s.nodes, node{root: finalizedRoot, parentIndex: -1, slot: finalizedSlot})
	s.indexOf[finalizedRoot] = 0
	return s
}

// InsertNode adds a new block node to the store. The parent must already
// be known; if it isn't, the caller (the importer) has violated the
// invariant that parents commit before children.
func (s *Store) InsertNode(root, parentRoot [32]byte, slot primitives.Slot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.indexOf[root]; ok {
		return nil // already known; insertion is idempotent
	}
	pIdx, ok := s.indexOf[parentRoot]
	if !ok {
		return errors.Wrapf(ErrUnknownNode, "parent %x", parentRoot)
	}
	idx := len(s.nodes)
	s.nodes = append(s.nodes, node{root: root, parentRoot: parentRoot, parentIndex: pIdx, slot: slot})
	s.indexOf[root] = idx
	s.nodes[pIdx].children = append(s.nodes[pIdx].children, idx)
	return nil
}

// SetPayloadBlockHash records the execution payload block hash associated
// with root, used by notifyForkchoiceUpdate to build the ForkchoiceState
// argument to the engine API.
func (s *Store) SetPayloadBlockHash(root [32]byte, hash [32]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, ok := s.indexOf[root]
	if !ok {
		return ErrUnknownNode
	}
	s.nodes[idx].payloadBlockHash = hash
	return nil
}

// HasNode reports whether root is known to the store.
func (s *Store) HasNode(root [32]byte) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.indexOf[root]
	return ok
}

// Slot returns the slot of root, if known.
func (s *Store) Slot(root [32]byte) (primitives.Slot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.indexOf[root]
	if !ok {
		return 0, ErrUnknownNode
	}
	return s.nodes[idx].slot, nil
}

// JustifiedCheckpoint returns the store's current justified checkpoint.
func (s *Store) JustifiedCheckpoint() Checkpoint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.justified
}

// FinalizedCheckpoint returns the store's current finalized checkpoint.
func (s *Store) FinalizedCheckpoint() Checkpoint {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.finalized
}

// UpdateJustified sets the justified checkpoint if cp is a later epoch,
// per on_block's "update justified checkpoint" step.
func (s *Store) UpdateJustified(cp Checkpoint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cp.Epoch > s.justified.Epoch {
		s.justified = cp
	}
}

// UpdateFinalized sets the finalized checkpoint if cp is a later epoch,
// per on_block's "update finalized checkpoint" step, and prunes every
// node that is not a descendant of the new finalized root.
func (s *Store) UpdateFinalized(cp Checkpoint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cp.Epoch <= s.finalized.Epoch {
		return
	}
	s.finalized = cp
	s.pruneToFinalizedLocked()
}

func (s *Store) pruneToFinalizedLocked() {
	newIdx, ok := s.indexOf[s.finalized.Root]
	if !ok {
		return
	}
	keep := make(map[int]bool)
	var mark func(i int)
	mark = func(i int) {
		if keep[i] {
			return
		}
		keep[i] = true
		for _, c := range s.nodes[i].children {
			mark(c)
		}
	}
	mark(newIdx)

	newNodes := make([]node, 0, len(keep))
	remap := make(map[int]int, len(keep))
	for i, n := range s.nodes {
		if !keep[i] {
			continue
		}
		remap[i] = len(newNodes)
		newNodes = append(newNodes, n)
	}
	for i := range newNodes {
		if newNodes[i].parentIndex >= 0 {
			if np, ok := remap[newNodes[i].parentIndex]; ok {
				newNodes[i].parentIndex = np
			} else {
				newNodes[i].parentIndex = -1
			}
		}
		children := make([]int, 0, len(newNodes[i].children))
		for _, c := range newNodes[i].children {
			if nc, ok := remap[c]; ok {
				children = append(children, nc)
			}
		}
		newNodes[i].children = children
	}
	newIndexOf := make(map[[32]byte]int, len(newNodes))
	for i, n := range newNodes {
		newIndexOf[n.root] = i
	}
	s.nodes = newNodes
	s.indexOf = newIndexOf
}

// AncestorRoot walks up from root until it finds the node at or before
// slot, mirroring the teacher's Store.ancestor used by
// verifyBlkDescendant.
func (s *Store) AncestorRoot(root [32]byte, slot primitives.Slot) ([32]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.indexOf[root]
	if !ok {
		return [32]byte{}, ErrUnknownNode
	}
	for s.nodes[idx].slot > slot && s.nodes[idx].parentIndex >= 0 {
		idx = s.nodes[idx].parentIndex
	}
	return s.nodes[idx].root, nil
}

// IsDescendant reports whether candidate descends from (or equals) the
// current finalized checkpoint — verifyBlkDescendant's check, generalized
// to the call made before InsertNode.
func (s *Store) IsDescendantOfFinalized(candidateParent [32]byte, candidateSlot primitives.Slot) error {
	s.mu.RLock()
	finalized := s.finalized
	s.mu.RUnlock()

	ancestorRoot, err := s.AncestorRoot(candidateParent, 0)
	if err != nil {
		return err
	}
	_ = ancestorRoot
	// Walk from candidateParent to the finalized slot and compare roots.
	finSlot, err := s.Slot(finalized.Root)
	if err != nil {
		return err
	}
	ancestorAtFinSlot, err := s.AncestorRoot(candidateParent, finSlot)
	if err != nil {
		return err
	}
	if ancestorAtFinSlot != finalized.Root {
		return ErrNotDescendant
	}
	return nil
}

// Children returns the direct child roots of root, in arena insertion
// order, for callers (the doubly-linked-tree ForkChoicer) that walk the
// tree top-down during head selection.
func (s *Store) Children(root [32]byte) [][32]byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.indexOf[root]
	if !ok {
		return nil
	}
	out := make([][32]byte, 0, len(s.nodes[idx].children))
	for _, c := range s.nodes[idx].children {
		out = append(out, s.nodes[c].root)
	}
	return out
}

// Head returns the current canonical head root. Weight-based head
// selection (LMD-GHOST) lives outside this core per the collaborator
// contract; SetHead lets the importer (which does run the real fork
// choice algorithm via its own weight accounting) push the result in.
func (s *Store) Head() [32]byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.headRoot
}

// SetHead records the head root computed by the weight-based fork-choice
// algorithm.
func (s *Store) SetHead(root [32]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.indexOf[root]; !ok {
		return ErrUnknownNode
	}
	s.headRoot = root
	return nil
}

// SetOptimisticToInvalid marks root and every descendant as invalid,
// mirroring the teacher's ForkChoiceStore.SetOptimisticToInvalid used by
// notifyForkchoiceUpdate/notifyNewPayload/pruneInvalidBlock. It returns
// the roots that were marked so the caller can remove their block/state
// from storage.
func (s *Store) SetOptimisticToInvalid(root, parentRoot [32]byte, lastValidHash [32]byte) ([][32]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx, ok := s.indexOf[root]
	if !ok {
		return nil, ErrUnknownNode
	}
	var invalidated [][32]byte
	var walk func(i int)
	walk = func(i int) {
		s.nodes[i].invalid = true
		invalidated = append(invalidated, s.nodes[i].root)
		for _, c := range s.nodes[i].children {
			walk(c)
		}
	}
	walk(idx)
	return invalidated, nil
}

// SetOptimisticToValid clears the optimistic flag on root's chain of
// ancestors up to the last node still marked optimistic.
func (s *Store) SetOptimisticToValid(root [32]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, ok := s.indexOf[root]
	if !ok {
		return ErrUnknownNode
	}
	for idx >= 0 && s.nodes[idx].optimistic {
		s.nodes[idx].optimistic = false
		idx = s.nodes[idx].parentIndex
	}
	return nil
}

// MarkOptimistic flags root as an optimistic (not-yet-EL-verified) import.
func (s *Store) MarkOptimistic(root [32]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx, ok := s.indexOf[root]
	if !ok {
		return ErrUnknownNode
	}
	s.nodes[idx].optimistic = true
	return nil
}

// IsInvalid reports whether root has been marked invalid.
func (s *Store) IsInvalid(root [32]byte) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.indexOf[root]
	return ok && s.nodes[idx].invalid
}

// FinalizedPayloadBlockHash returns the execution payload block hash of
// the finalized checkpoint block, used to build the engine API's
// ForkchoiceState.
func (s *Store) FinalizedPayloadBlockHash() [32]byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.indexOf[s.finalized.Root]
	if !ok {
		return [32]byte{}
	}
	return s.nodes[idx].payloadBlockHash
}

// UnrealizedJustifiedPayloadBlockHash returns the execution payload block
// hash of the justified checkpoint block.
func (s *Store) UnrealizedJustifiedPayloadBlockHash() [32]byte {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.indexOf[s.justified.Root]
	if !ok {
		return [32]byte{}
	}
	return s.nodes[idx].payloadBlockHash
}

// PayloadBlockHash returns the execution payload block hash recorded for
// an arbitrary root via SetPayloadBlockHash, for callers (the EL
// dispatcher's notifyForkchoiceUpdate) that need the hash of a block other
// than the finalized or justified checkpoint — the head, most commonly.
func (s *Store) PayloadBlockHash(root [32]byte) ([32]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	idx, ok := s.indexOf[root]
	if !ok {
		return [32]byte{}, ErrUnknownNode
	}
	return s.nodes[idx].payloadBlockHash, nil
}
