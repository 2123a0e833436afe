package blockchain

import (
	"github.com/pkg/errors"

	"github.com/ethwake/beacon-core/consensus-types/primitives"
)

// Action classifies a validation outcome per §7's taxonomy: IGNORE is a
// benign skip that must not penalise the sender, REJECT is provably
// invalid and scores the source peer down.
type Action int

const (
	// ActionIgnore marks a Validation-IGNORE outcome.
	ActionIgnore Action = iota
	// ActionReject marks a Validation-REJECT outcome.
	ActionReject
)

// ValidationError is the structured value gossip-validation failures
// carry through the stack without being re-wrapped, per §7's propagation
// policy.
type ValidationError struct {
	Action  Action
	Code    string
	Context string
	cause   error
}

func (e *ValidationError) Error() string {
	if e.cause != nil {
		return e.Code + ": " + e.cause.Error()
	}
	return e.Code
}

func (e *ValidationError) Unwrap() error { return e.cause }

func ignore(code string, cause error) *ValidationError {
	return &ValidationError{Action: ActionIgnore, Code: code, cause: cause}
}

func reject(code string, cause error) *ValidationError {
	return &ValidationError{Action: ActionReject, Code: code, cause: cause}
}

// Ignore builds a Validation-IGNORE error for collaborators outside this
// package (the sync package's gossip stages) that need to report against
// the same taxonomy without reaching into unexported fields.
func Ignore(code string, cause error) *ValidationError { return ignore(code, cause) }

// Reject builds a Validation-REJECT error for collaborators outside this
// package.
func Reject(code string, cause error) *ValidationError { return reject(code, cause) }

// Validation-IGNORE sentinels, §4.2's block-topic stages 1-2, 4-5.
var (
	ErrFutureSlot            = errors.New("blockchain: slot too far in the future")
	ErrBeforeFinalizedSlot   = errors.New("blockchain: slot at or before finalized checkpoint")
	ErrAlreadySeenForSlotProposer = errors.New("blockchain: already have a valid block for this (slot, proposer)")
	ErrParentUnknown         = errors.New("blockchain: parent block unknown to fork-choice")
	ErrShufflingNotComputable = errors.New("blockchain: parent shuffling not yet computable")
)

// Validation-REJECT sentinels.
var (
	ErrWrongProposer         = errors.New("blockchain: proposer index does not match expected proposer")
	ErrInvalidProposerSignature = errors.New("blockchain: proposer signature invalid")
	ErrEquivocatingBlock     = errors.New("blockchain: a different block was already seen for this (slot, proposer)")
	ErrNotFirstForTuple      = errors.New("blockchain: not the first sidecar for this (slot, proposer, index) tuple")
	ErrWrongSubnet           = errors.New("blockchain: sidecar index does not map to the arriving gossip subnet")
	ErrNonZeroExecutionPaymentUnsupported = errors.New("blockchain: non-zero execution_payment is not yet supported (transitional restriction, see Gloas payload bid)")
	ErrInvalidKZGProof       = errors.New("blockchain: KZG proof verification failed")
)

// Processing-fatal/retriable sentinels driving §4.4/§4.3's commit path.
var (
	ErrInvalidAttestation  = errors.New("blockchain: invalid indexed attestation")
	ErrDAReconstructionFailed = errors.New("blockchain: data availability reconstruction failed")
	ErrClockDisparity      = errors.New("blockchain: publish slot outside clock disparity tolerance")
	ErrNotImplemented      = errors.New("blockchain: not implemented")
)

// invalidBlock is the carrier type for a Processing-fatal verdict against
// a specific block: the EL returned INVALID, or the state transition
// detected a consensus fault. It is excised from fork-choice and
// persisted to a forensic sideband, per §7.
type invalidBlock struct {
	root  [32]byte
	cause error
}

func (e *invalidBlock) Error() string {
	return "blockchain: invalid block " + primitives.Root(e.root).Hex() + ": " + e.cause.Error()
}

func (e *invalidBlock) Unwrap() error { return e.cause }
