// Package doublylinkedtree is the concrete ForkChoicer (§3's external
// fork-choice-store contract): LMD-GHOST attestation-weight accounting and
// head selection layered over forkchoice.Store's arena-indexed ancestry
// primitives. Grounded on the teacher's forkchoice/doubly-linked-tree
// package (the real Prysm ProtoArray-successor implementation referenced
// by the retrieved forkchoice/process_block.go) and the Design Note in
// §9 ("Arena + index for fork-choice").
package doublylinkedtree

import (
	"sync"

	"github.com/pkg/errors"

	"github.com/ethwake/beacon-core/beacon-chain/forkchoice"
	"github.com/ethwake/beacon-core/consensus-types/primitives"
)

// BalancesByRooter looks up the effective-balance-weighted vote tally for
// every validator as of the state at root — the external state-regen
// collaborator's contract (§3's CachedState) that on_attestation's weight
// accounting depends on without this package needing to know how a state
// is fetched.
type BalancesByRooter func(root [32]byte) ([]uint64, error)

// ForkChoice is the concrete fork-choice store: forkchoice.Store's arena
// plus per-validator latest-message votes and weight accounting.
type ForkChoice struct {
	*forkchoice.Store

	mu sync.Mutex

	// votes[validatorIndex] is that validator's latest attested root/slot;
	// only a strictly newer slot updates it, per LMD-GHOST's "latest
	// message" rule.
	votes map[primitives.ValidatorIndex]vote

	balancesByRoot BalancesByRooter

	proposerBoostRoot [32]byte
	proposerBoostScore uint64

	payloadIDBySlotRoot map[primitives.Slot]map[[32]byte]struct{}
}

type vote struct {
	root [32]byte
	slot primitives.Slot
}

// New constructs a fork-choice store rooted at the finalized checkpoint
// block (genesis, at startup).
func New() *ForkChoice {
	root := [32]byte{}
	cp := forkchoice.Checkpoint{}
	return &ForkChoice{
		Store:               forkchoice.New(root, 0, cp, cp),
		votes:               make(map[primitives.ValidatorIndex]vote),
		payloadIDBySlotRoot: make(map[primitives.Slot]map[[32]byte]struct{}),
	}
}

// SetBalancesByRooter installs the state-regen collaborator's effective
// balance lookup, used to weight each validator's vote.
func (f *ForkChoice) SetBalancesByRooter(fn BalancesByRooter) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balancesByRoot = fn
}

// OnBlock attaches a newly verified block to the store per §4.4 step 2:
// insert the node, fold in the block's justified/finalized checkpoints,
// and record its payload hash for the FinalizedPayloadBlockHash /
// UnrealizedJustifiedPayloadBlockHash queries the EL dispatcher reads.
func (f *ForkChoice) OnBlock(b forkchoice.BlockAndCheckpoints) error {
	if err := f.Store.InsertNode(b.Root, b.ParentRoot, b.Slot); err != nil {
		return err
	}
	if err := f.Store.SetPayloadBlockHash(b.Root, b.PayloadBlockHash); err != nil {
		return err
	}
	if b.Optimistic {
		if err := f.Store.MarkOptimistic(b.Root); err != nil {
			return err
		}
	}
	f.Store.UpdateJustified(b.JustifiedCheckpoint)
	f.Store.UpdateFinalized(b.FinalizedCheckpoint)
	return nil
}

// OnAttestation folds indexed attestation votes into the weight table per
// §4.4 step 4. Only a strictly newer slot for a given validator updates
// its latest message — an older or equal-slot vote from the same
// validator is a no-op, matching LMD-GHOST's definition of "latest".
func (f *ForkChoice) OnAttestation(root [32]byte, slot primitives.Slot, indices []primitives.ValidatorIndex) error {
	if !f.Store.HasNode(root) {
		return forkchoice.ErrUnknownNode
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, idx := range indices {
		cur, ok := f.votes[idx]
		if ok && cur.slot >= slot {
			continue
		}
		f.votes[idx] = vote{root: root, slot: slot}
	}
	return nil
}

// OnAttesterSlashing zeroes out a slashed validator's vote weight so it no
// longer contributes to head selection; per §4.4 step 5, failures here are
// warnings, never fatal, so this never returns an error.
func (f *ForkChoice) OnAttesterSlashing(indices []primitives.ValidatorIndex) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, idx := range indices {
		delete(f.votes, idx)
	}
}

// weightsLocked tallies, for every known node, the sum of effective
// balances of validators whose latest vote lands on that node or one of
// its descendants — the textbook LMD-GHOST weight function. Callers must
// hold f.mu.
func (f *ForkChoice) weightsLocked() map[[32]byte]uint64 {
	weights := make(map[[32]byte]uint64)
	for idx, v := range f.votes {
		bal := uint64(1)
		if f.balancesByRoot != nil {
			if balances, err := f.balancesByRoot(v.root); err == nil && int(idx) < len(balances) {
				bal = balances[idx]
			}
		}
		r := v.root
		for {
			weights[r] += bal
			slot, err := f.Store.Slot(r)
			if err != nil {
				break
			}
			parent, err := f.Store.AncestorRoot(r, slot.SubSlot(1))
			if err != nil || parent == r {
				break
			}
			r = parent
		}
	}
	if f.proposerBoostRoot != ([32]byte{}) {
		weights[f.proposerBoostRoot] += f.proposerBoostScore
	}
	return weights
}

// GetHead runs LMD-GHOST from the justified checkpoint down to a leaf,
// at each fork choosing the child with the greatest accumulated weight
// (ties broken by the lexicographically greater root, matching the
// teacher's tie-break convention), and records the result as the store's
// head.
func (f *ForkChoice) GetHead() ([32]byte, error) {
	f.mu.Lock()
	weights := f.weightsLocked()
	f.mu.Unlock()

	cp := f.Store.JustifiedCheckpoint()
	start := cp.Root
	if !f.Store.HasNode(start) {
		start = f.Store.Head()
	}

	best := start
	for {
		children := f.Store.Children(best)
		if len(children) == 0 {
			break
		}
		next := children[0]
		for _, c := range children[1:] {
			if weights[c] > weights[next] || (weights[c] == weights[next] && greater(c, next)) {
				next = c
			}
		}
		if f.Store.IsInvalid(next) {
			break
		}
		best = next
	}
	if err := f.Store.SetHead(best); err != nil {
		return [32]byte{}, err
	}
	return best, nil
}

func greater(a, b [32]byte) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] > b[i]
		}
	}
	return false
}

// GetCommonAncestorDepth returns the number of blocks between newHead and
// its lowest common ancestor with oldHead — used by §4.4 step 6 to decide
// whether a head change is a reorg and, if so, at what depth.
func (f *ForkChoice) GetCommonAncestorDepth(oldHead, newHead [32]byte) (uint64, error) {
	oldSlot, err := f.Store.Slot(oldHead)
	if err != nil {
		return 0, err
	}
	newSlot, err := f.Store.Slot(newHead)
	if err != nil {
		return 0, err
	}
	a, b := oldHead, newHead
	as, bs := oldSlot, newSlot
	for as > bs {
		a, err = f.Store.AncestorRoot(a, bs)
		if err != nil {
			return 0, err
		}
		as = bs
	}
	for bs > as {
		b, err = f.Store.AncestorRoot(b, as)
		if err != nil {
			return 0, err
		}
		bs = as
	}
	depth := uint64(0)
	for a != b {
		as = as.SubSlot(1)
		a, err = f.Store.AncestorRoot(a, as)
		if err != nil {
			return depth, err
		}
		b, err = f.Store.AncestorRoot(b, as)
		if err != nil {
			return depth, err
		}
		depth++
		if depth > 1<<20 {
			return depth, errors.New("doublylinkedtree: ancestor search did not converge")
		}
	}
	return depth, nil
}

// ShouldOverrideForkchoiceUpdate implements §4.4 step 7's weak-block
// proposer-boost override: true when root's own weight is small relative
// to its parent's subtree, meaning a next-slot proposer building on root
// risks orphaning it and should instead reorg it out, so the EL should not
// yet be told to build on it.
func (f *ForkChoice) ShouldOverrideForkchoiceUpdate(root [32]byte) (bool, error) {
	if !f.Store.HasNode(root) {
		return false, forkchoice.ErrUnknownNode
	}
	f.mu.Lock()
	weights := f.weightsLocked()
	f.mu.Unlock()

	if root == f.proposerBoostRoot {
		return false, nil
	}
	parent, err := f.Store.AncestorRoot(root, mustSlotMinus1(f.Store, root))
	if err != nil {
		return false, nil
	}
	children := f.Store.Children(parent)
	var siblingWeight uint64
	for _, c := range children {
		if c != root {
			siblingWeight += weights[c]
		}
	}
	return weights[root] < siblingWeight, nil
}

func mustSlotMinus1(s *forkchoice.Store, root [32]byte) primitives.Slot {
	slot, err := s.Slot(root)
	if err != nil {
		return 0
	}
	return slot.SubSlot(1)
}

// SetProposerBoost records root as the gossip-boosted block for the
// current slot, per the proposer-boost fork-choice rule that weighs a
// freshly-seen block higher for one slot to deter late-block reorgs.
func (f *ForkChoice) SetProposerBoost(root [32]byte, score uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.proposerBoostRoot = root
	f.proposerBoostScore = score
}

// GetDependentRoot returns the block root whose state determined the
// shuffling for cp's epoch — the "dependent root" the head-event payload
// carries so duty calculators can detect a shuffling-affecting reorg.
func (f *ForkChoice) GetDependentRoot(cp forkchoice.Checkpoint) ([32]byte, error) {
	start, err := f.epochStartSlot(cp.Epoch)
	if err != nil {
		return [32]byte{}, err
	}
	return f.Store.AncestorRoot(cp.Root, start.SubSlot(1))
}

func (f *ForkChoice) epochStartSlot(epoch primitives.Epoch) (primitives.Slot, error) {
	const slotsPerEpoch = 32
	return primitives.Slot(uint64(epoch) * slotsPerEpoch), nil
}

var _ forkchoice.ForkChoicer = (*ForkChoice)(nil)
