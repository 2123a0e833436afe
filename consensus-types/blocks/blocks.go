// Package blocks implements the concrete, fork-aware beacon block types
// that satisfy consensus-types/interfaces. Rather than one struct per fork
// with type assertions at call sites, a single BeaconBlockBody carries every
// fork's optional fields and gates access by its own version field,
// returning interfaces.ErrUnsupportedField where the teacher's real
// consensus-types/blocks package does the same (see execution_engine.go's
// use of consensusblocks.BeaconBlockIsNil and interfaces.ReadOnlyBeaconBlockBody).
package blocks

import (
	"crypto/sha256"

	"github.com/pkg/errors"

	"github.com/ethwake/beacon-core/consensus-types/interfaces"
	"github.com/ethwake/beacon-core/consensus-types/primitives"
	"github.com/ethwake/beacon-core/encoding/bytesutil"
	"github.com/ethwake/beacon-core/runtime/version"
)

// executionPayload is the version-agnostic concrete ExecutionData.
type executionPayload struct {
	nil          bool
	blockHash    []byte
	parentHash   []byte
	blockNumber  uint64
	timestamp    uint64
	gasUsed      uint64
	gasLimit     uint64
	transactions [][]byte
	withdrawals  []*interfaces.Withdrawal
}

func (e *executionPayload) IsNil() bool           { return e == nil || e.nil }
func (e *executionPayload) BlockHash() []byte     { return e.blockHash }
func (e *executionPayload) ParentHash() []byte    { return e.parentHash }
func (e *executionPayload) BlockNumber() uint64   { return e.blockNumber }
func (e *executionPayload) Timestamp() uint64     { return e.timestamp }
func (e *executionPayload) GasUsed() uint64       { return e.gasUsed }
func (e *executionPayload) GasLimit() uint64      { return e.gasLimit }
func (e *executionPayload) Transactions() ([][]byte, error) {
	return e.transactions, nil
}
func (e *executionPayload) Withdrawals() ([]*interfaces.Withdrawal, error) {
	if e.withdrawals == nil {
		return nil, interfaces.ErrUnsupportedField
	}
	return e.withdrawals, nil
}

// NewExecutionData builds an interfaces.ExecutionData from raw fields. The
// zero-value withdrawals list (nil, not empty) marks a pre-Capella payload.
func NewExecutionData(blockHash, parentHash []byte, blockNumber, timestamp, gasUsed, gasLimit uint64, txs [][]byte, withdrawals []*interfaces.Withdrawal) interfaces.ExecutionData {
	return &executionPayload{
		blockHash:    blockHash,
		parentHash:   parentHash,
		blockNumber:  blockNumber,
		timestamp:    timestamp,
		gasUsed:      gasUsed,
		gasLimit:     gasLimit,
		transactions: txs,
		withdrawals:  withdrawals,
	}
}

// BeaconBlockBody is the version-agnostic concrete body. Fields past the
// Phase0 core are populated only for forks that carry them; accessors
// return interfaces.ErrUnsupportedField otherwise.
type BeaconBlockBody struct {
	v int

	randaoReveal   [96]byte
	graffiti       [32]byte
	attestations   []*interfaces.Attestation
	deposits       []*interfaces.Deposit
	voluntaryExits []*interfaces.SignedVoluntaryExit

	execution          interfaces.ExecutionData // Bellatrix+
	blobKzgCommitments [][]byte                 // Deneb+
	executionRequests  *interfaces.ExecutionRequests
	signedExecHeader   *interfaces.SignedExecutionPayloadHeader // ePBS/Gloas
	payloadAttestation []*interfaces.PayloadAttestation         // ePBS/Gloas
}

// BodyConfig is the set of optional fields a caller may populate when
// constructing a body; fields left nil/zero mean "not supported at this
// fork" rather than "empty".
type BodyConfig struct {
	Version              int
	RandaoReveal         [96]byte
	Graffiti             [32]byte
	Attestations         []*interfaces.Attestation
	Deposits             []*interfaces.Deposit
	VoluntaryExits       []*interfaces.SignedVoluntaryExit
	Execution            interfaces.ExecutionData
	BlobKzgCommitments   [][]byte
	ExecutionRequests    *interfaces.ExecutionRequests
	SignedExecHeader     *interfaces.SignedExecutionPayloadHeader
	PayloadAttestation   []*interfaces.PayloadAttestation
}

// NewBeaconBlockBody constructs a body from a BodyConfig, validating that
// only fields legal at the given fork version were populated.
func NewBeaconBlockBody(c BodyConfig) (*BeaconBlockBody, error) {
	if c.Version < version.Bellatrix && c.Execution != nil {
		return nil, errors.New("blocks: execution payload set on pre-Bellatrix body")
	}
	if c.Version < version.Deneb && c.BlobKzgCommitments != nil {
		return nil, errors.New("blocks: blob commitments set on pre-Deneb body")
	}
	if c.Version < version.Electra && c.ExecutionRequests != nil {
		return nil, errors.New("blocks: execution requests set on pre-Electra body")
	}
	if c.Version < version.Gloas && (c.SignedExecHeader != nil || c.PayloadAttestation != nil) {
		return nil, errors.New("blocks: ePBS fields set on pre-Gloas body")
	}
	return &BeaconBlockBody{
		v:                  c.Version,
		randaoReveal:       c.RandaoReveal,
		graffiti:           c.Graffiti,
		attestations:       c.Attestations,
		deposits:           c.Deposits,
		voluntaryExits:     c.VoluntaryExits,
		execution:          c.Execution,
		blobKzgCommitments: c.BlobKzgCommitments,
		executionRequests:  c.ExecutionRequests,
		signedExecHeader:   c.SignedExecHeader,
		payloadAttestation: c.PayloadAttestation,
	}, nil
}

func (b *BeaconBlockBody) IsNil() bool                           { return b == nil }
func (b *BeaconBlockBody) RandaoReveal() [96]byte                { return b.randaoReveal }
func (b *BeaconBlockBody) Graffiti() [32]byte                    { return b.graffiti }
func (b *BeaconBlockBody) Attestations() []*interfaces.Attestation { return b.attestations }
func (b *BeaconBlockBody) Deposits() []*interfaces.Deposit       { return b.deposits }
func (b *BeaconBlockBody) VoluntaryExits() []*interfaces.SignedVoluntaryExit {
	return b.voluntaryExits
}

func (b *BeaconBlockBody) Execution() (interfaces.ExecutionData, error) {
	if b.v < version.Bellatrix || b.execution == nil {
		return nil, interfaces.ErrUnsupportedField
	}
	return b.execution, nil
}

func (b *BeaconBlockBody) BlobKzgCommitments() ([][]byte, error) {
	if b.v < version.Deneb {
		return nil, interfaces.ErrUnsupportedField
	}
	return b.blobKzgCommitments, nil
}

func (b *BeaconBlockBody) ExecutionRequests() (*interfaces.ExecutionRequests, error) {
	if b.v < version.Electra || b.executionRequests == nil {
		return nil, interfaces.ErrUnsupportedField
	}
	return b.executionRequests, nil
}

func (b *BeaconBlockBody) SignedExecutionPayloadHeader() (*interfaces.SignedExecutionPayloadHeader, error) {
	if b.v < version.Gloas || b.signedExecHeader == nil {
		return nil, interfaces.ErrUnsupportedField
	}
	return b.signedExecHeader, nil
}

func (b *BeaconBlockBody) PayloadAttestations() ([]*interfaces.PayloadAttestation, error) {
	if b.v < version.Gloas {
		return nil, interfaces.ErrUnsupportedField
	}
	return b.payloadAttestation, nil
}

// IsExecutionBlock reports whether the body carries an execution payload,
// mirroring the teacher's core/blocks.IsExecutionBlock used to gate
// notifyForkchoiceUpdate/notifyNewPayload before The Merge.
func IsExecutionBlock(body interfaces.ReadOnlyBeaconBlockBody) (bool, error) {
	if body == nil || body.IsNil() {
		return false, interfaces.ErrNilObject
	}
	exec, err := body.Execution()
	if errors.Is(err, interfaces.ErrUnsupportedField) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return exec != nil && !exec.IsNil(), nil
}

// BeaconBlock is the unsigned, version-gated block.
type BeaconBlock struct {
	v             int
	slot          primitives.Slot
	proposerIndex primitives.ValidatorIndex
	parentRoot    [32]byte
	stateRoot     [32]byte
	body          *BeaconBlockBody
}

// NewBeaconBlock constructs an unsigned block, inheriting its version from
// the body.
func NewBeaconBlock(slot primitives.Slot, proposerIndex primitives.ValidatorIndex, parentRoot, stateRoot [32]byte, body *BeaconBlockBody) (*BeaconBlock, error) {
	if body == nil {
		return nil, errors.New("blocks: nil body")
	}
	return &BeaconBlock{v: body.v, slot: slot, proposerIndex: proposerIndex, parentRoot: parentRoot, stateRoot: stateRoot, body: body}, nil
}

func (b *BeaconBlock) IsNil() bool                            { return b == nil }
func (b *BeaconBlock) Slot() primitives.Slot                  { return b.slot }
func (b *BeaconBlock) ProposerIndex() primitives.ValidatorIndex { return b.proposerIndex }
func (b *BeaconBlock) ParentRoot() [32]byte                   { return b.parentRoot }
func (b *BeaconBlock) StateRoot() [32]byte                    { return b.stateRoot }
func (b *BeaconBlock) Version() int                           { return b.v }
func (b *BeaconBlock) Body() interfaces.ReadOnlyBeaconBlockBody {
	if b.body == nil {
		return (*BeaconBlockBody)(nil)
	}
	return b.body
}

// HashTreeRoot is a placeholder deterministic digest. The real SSZ hash
// tree root is produced by ferranbt/fastssz generated marshalers over the
// wire type this struct is adapted from; wiring that code generation is
// outside what a hand-written core can reproduce faithfully, so this
// computes a domain-separated hash over the block's canonical fields,
// sufficient for cache keys and equality checks but NOT a spec-conformant
// SSZ root.
func (b *BeaconBlock) HashTreeRoot() ([32]byte, error) {
	buf := make([]byte, 0, 8+8+32+32)
	buf = append(buf, uint64LE(uint64(b.slot))...)
	buf = append(buf, uint64LE(uint64(b.proposerIndex))...)
	buf = append(buf, b.parentRoot[:]...)
	buf = append(buf, b.stateRoot[:]...)
	sum := sha256.Sum256(buf)
	return bytesutil.ToBytes32(sum[:]), nil
}

func uint64LE(v uint64) []byte {
	out := make([]byte, 8)
	for i := 0; i < 8; i++ {
		out[i] = byte(v >> (8 * i))
	}
	return out
}
