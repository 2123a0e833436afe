// Package interfaces defines the capability contracts the rest of the core
// programs against instead of concrete block types. A block's available
// fields depend on its fork version; rather than modeling that with type
// assertions or embedding, each capability (execution payload, KZG
// commitments, execution requests, signed execution header) is its own
// method that returns ErrUnsupportedField when the block's version doesn't
// carry it.
package interfaces

import (
	"errors"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ethwake/beacon-core/consensus-types/primitives"
)

// ErrUnsupportedField is returned by a fork-gated accessor when the block's
// version predates the field.
var ErrUnsupportedField = errors.New("interfaces: field not supported by block version")

// ErrNilObject is returned when an accessor is called on a nil block/body.
var ErrNilObject = errors.New("interfaces: nil object")

// ExecutionData is the minimal read surface of an execution payload that the
// import/EL-dispatch path needs, independent of which fork's payload type
// backs it.
type ExecutionData interface {
	IsNil() bool
	BlockHash() []byte
	ParentHash() []byte
	BlockNumber() uint64
	Timestamp() uint64
	GasUsed() uint64
	GasLimit() uint64
	Transactions() ([][]byte, error)
	Withdrawals() ([]*Withdrawal, error)
}

// Withdrawal mirrors the EL withdrawal structure surfaced by Capella+.
type Withdrawal struct {
	Index          uint64
	ValidatorIndex primitives.ValidatorIndex
	Address        common.Address
	Amount         uint64
}

// ReadOnlyBeaconBlockBody is the fork-gated accessor surface for a block
// body. Every method beyond the Phase0 core returns ErrUnsupportedField on
// blocks from an earlier fork.
type ReadOnlyBeaconBlockBody interface {
	IsNil() bool
	RandaoReveal() [96]byte
	Graffiti() [32]byte
	Attestations() []*Attestation
	Deposits() []*Deposit
	VoluntaryExits() []*SignedVoluntaryExit

	Execution() (ExecutionData, error)
	BlobKzgCommitments() ([][]byte, error)
	ExecutionRequests() (*ExecutionRequests, error)
	SignedExecutionPayloadHeader() (*SignedExecutionPayloadHeader, error)
	PayloadAttestations() ([]*PayloadAttestation, error)
}

// ReadOnlyBeaconBlock is the fork-gated accessor surface for an unsigned
// beacon block.
type ReadOnlyBeaconBlock interface {
	IsNil() bool
	Slot() primitives.Slot
	ProposerIndex() primitives.ValidatorIndex
	ParentRoot() [32]byte
	StateRoot() [32]byte
	Body() ReadOnlyBeaconBlockBody
	Version() int
	HashTreeRoot() ([32]byte, error)
}

// ReadOnlySignedBeaconBlock wraps a block with its proposer signature.
type ReadOnlySignedBeaconBlock interface {
	IsNil() bool
	Block() ReadOnlyBeaconBlock
	Signature() [96]byte
	Version() int
}

// Attestation, Deposit, SignedVoluntaryExit are intentionally minimal — the
// import path only needs to count/forward them, not re-verify their
// internal wire shape.
type Attestation struct {
	AggregationBits []byte
	Data            *AttestationData
	Signature       [96]byte
}

// AttestationData is the common vote the fork-choice and operations pool
// care about.
type AttestationData struct {
	Slot            primitives.Slot
	CommitteeIndex  primitives.CommitteeIndex
	BeaconBlockRoot [32]byte
	Source          Checkpoint
	Target          Checkpoint
}

// Checkpoint identifies an epoch boundary block.
type Checkpoint struct {
	Epoch primitives.Epoch
	Root  [32]byte
}

// Deposit is carried opaquely by the block body.
type Deposit struct {
	Proof [][]byte
	Data  []byte
}

// SignedVoluntaryExit is carried opaquely by the block body.
type SignedVoluntaryExit struct {
	Epoch          primitives.Epoch
	ValidatorIndex primitives.ValidatorIndex
	Signature      [96]byte
}

// ExecutionRequests is the EIP-7685 triple-list carried by Electra+ blocks.
type ExecutionRequests struct {
	Deposits       []byte
	Withdrawals    []byte
	Consolidations []byte
}

// SignedExecutionPayloadHeader is the ePBS/Gloas builder commitment carried
// in place of a full execution payload. It also serves as the unit the
// builder-header cache (C2) accumulates per slot during the bid auction
// window, so it carries the parent hash and bid value the cache orders on.
type SignedExecutionPayloadHeader struct {
	BuilderIndex    primitives.ValidatorIndex
	Slot            primitives.Slot
	ParentBlockHash []byte
	BlockHash       [32]byte
	Value           uint64
	BlobKzgCount    uint64
	Signature       [96]byte
}

// PayloadAttestation is the ePBS/Gloas attestation-to-payload-availability
// record.
type PayloadAttestation struct {
	AggregationBits []byte
	Data            PayloadAttestationData
	Signature       [96]byte
}

// PayloadAttestationData names the slot/block root a payload attestation
// votes on and whether the payload was seen as present.
type PayloadAttestationData struct {
	BeaconBlockRoot [32]byte
	Slot            primitives.Slot
	PayloadPresent  bool
}
