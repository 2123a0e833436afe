// Package execreq implements EIP-7685 execution-requests (de)serialization:
// the deposit, withdrawal, and consolidation request lists an execution
// payload carries back to the consensus layer via engine_getPayloadV{3,4}
// and forward via engine_newPayloadV{3,4}'s executionRequests argument.
//
// The wire form is `concat(type_byte, ssz(list))` per request type, typed
// entries in strictly ascending type order, with empty lists omitted
// entirely rather than encoded as a zero-length entry. Each request struct
// here is fixed-size, so its SSZ list encoding is the flat concatenation of
// each element's fixed serialization — no offset table is needed, unlike
// the variable-size SSZ containers this core otherwise hand-rolls (see
// consensus-types/blocks.BeaconBlock's HashTreeRoot doc comment for that
// caveat); this package's encodings are exact, not approximations.
package execreq

import (
	"github.com/pkg/errors"
)

// Request type bytes, EIP-7685 ascending order.
const (
	TypeDeposit      byte = 0x00
	TypeWithdrawal   byte = 0x01
	TypeConsolidation byte = 0x02
)

const (
	depositSize      = 48 + 32 + 8 + 96 + 8 // pubkey + withdrawal_credentials + amount + signature + index
	withdrawalSize   = 20 + 48 + 8          // source_address + validator_pubkey + amount
	consolidationSize = 20 + 48 + 48        // source_address + source_pubkey + target_pubkey
)

var (
	// ErrMissingTypePrefix is returned when a raw request entry is too
	// short to even carry a type byte.
	ErrMissingTypePrefix = errors.New("execreq: entry shorter than a type prefix")
	// ErrEmptyData is returned when a raw request entry is exactly the
	// type byte with no list payload following it.
	ErrEmptyData = errors.New("execreq: entry has a type prefix but no data")
	// ErrOutOfOrder is returned when entries are not in strictly
	// ascending type order, or a type appears more than once.
	ErrOutOfOrder = errors.New("execreq: entries are not in strictly ascending type order")
	// ErrUnknownType is returned for a type byte this core does not
	// recognize.
	ErrUnknownType = errors.New("execreq: unrecognized request type")
	// ErrMalformedList is returned when a type's payload length is not an
	// exact multiple of that type's fixed element size.
	ErrMalformedList = errors.New("execreq: list length is not a multiple of the element size")
)

// Deposit is EIP-6110's deposit request, mirroring the deposit contract's
// log layout one-for-one into the execution payload.
type Deposit struct {
	PublicKey             [48]byte
	WithdrawalCredentials [32]byte
	Amount                uint64
	Signature             [96]byte
	Index                 uint64
}

// WithdrawalRequest is EIP-7002's execution-layer-triggered withdrawal
// request.
type WithdrawalRequest struct {
	SourceAddress   [20]byte
	ValidatorPubkey [48]byte
	Amount          uint64
}

// ConsolidationRequest is EIP-7251's validator consolidation request.
type ConsolidationRequest struct {
	SourceAddress [20]byte
	SourcePubkey  [48]byte
	TargetPubkey  [48]byte
}

// Requests is the decoded form of an execution payload's request lists,
// one slice per type, empty slices meaning that type was absent on the
// wire.
type Requests struct {
	Deposits       []Deposit
	Withdrawals    []WithdrawalRequest
	Consolidations []ConsolidationRequest
}

func putUint64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}

func getUint64(b []byte) uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v |= uint64(b[i]) << (8 * i)
	}
	return v
}

func encodeDeposits(deposits []Deposit) []byte {
	out := make([]byte, 0, len(deposits)*depositSize)
	for _, d := range deposits {
		var buf [depositSize]byte
		off := 0
		copy(buf[off:], d.PublicKey[:])
		off += 48
		copy(buf[off:], d.WithdrawalCredentials[:])
		off += 32
		putUint64(buf[off:off+8], d.Amount)
		off += 8
		copy(buf[off:], d.Signature[:])
		off += 96
		putUint64(buf[off:off+8], d.Index)
		out = append(out, buf[:]...)
	}
	return out
}

func decodeDeposits(data []byte) ([]Deposit, error) {
	if len(data)%depositSize != 0 {
		return nil, ErrMalformedList
	}
	deposits := make([]Deposit, 0, len(data)/depositSize)
	for off := 0; off < len(data); off += depositSize {
		var d Deposit
		p := off
		copy(d.PublicKey[:], data[p:p+48])
		p += 48
		copy(d.WithdrawalCredentials[:], data[p:p+32])
		p += 32
		d.Amount = getUint64(data[p : p+8])
		p += 8
		copy(d.Signature[:], data[p:p+96])
		p += 96
		d.Index = getUint64(data[p : p+8])
		deposits = append(deposits, d)
	}
	return deposits, nil
}

func encodeWithdrawals(withdrawals []WithdrawalRequest) []byte {
	out := make([]byte, 0, len(withdrawals)*withdrawalSize)
	for _, w := range withdrawals {
		var buf [withdrawalSize]byte
		off := 0
		copy(buf[off:], w.SourceAddress[:])
		off += 20
		copy(buf[off:], w.ValidatorPubkey[:])
		off += 48
		putUint64(buf[off:off+8], w.Amount)
		out = append(out, buf[:]...)
	}
	return out
}

func decodeWithdrawals(data []byte) ([]WithdrawalRequest, error) {
	if len(data)%withdrawalSize != 0 {
		return nil, ErrMalformedList
	}
	withdrawals := make([]WithdrawalRequest, 0, len(data)/withdrawalSize)
	for off := 0; off < len(data); off += withdrawalSize {
		var w WithdrawalRequest
		p := off
		copy(w.SourceAddress[:], data[p:p+20])
		p += 20
		copy(w.ValidatorPubkey[:], data[p:p+48])
		p += 48
		w.Amount = getUint64(data[p : p+8])
		withdrawals = append(withdrawals, w)
	}
	return withdrawals, nil
}

func encodeConsolidations(consolidations []ConsolidationRequest) []byte {
	out := make([]byte, 0, len(consolidations)*consolidationSize)
	for _, c := range consolidations {
		var buf [consolidationSize]byte
		off := 0
		copy(buf[off:], c.SourceAddress[:])
		off += 20
		copy(buf[off:], c.SourcePubkey[:])
		off += 48
		copy(buf[off:], c.TargetPubkey[:])
		out = append(out, buf[:]...)
	}
	return out
}

func decodeConsolidations(data []byte) ([]ConsolidationRequest, error) {
	if len(data)%consolidationSize != 0 {
		return nil, ErrMalformedList
	}
	consolidations := make([]ConsolidationRequest, 0, len(data)/consolidationSize)
	for off := 0; off < len(data); off += consolidationSize {
		var c ConsolidationRequest
		p := off
		copy(c.SourceAddress[:], data[p:p+20])
		p += 20
		copy(c.SourcePubkey[:], data[p:p+48])
		p += 48
		copy(c.TargetPubkey[:], data[p:p+48])
		consolidations = append(consolidations, c)
	}
	return consolidations, nil
}

// Encode serializes r into the engine API's executionRequests wire form:
// one concat(type_byte, ssz(list)) entry per non-empty type, in ascending
// type order. Empty lists are omitted rather than encoded as a bare type
// byte.
func Encode(r Requests) [][]byte {
	var entries [][]byte
	if len(r.Deposits) > 0 {
		entries = append(entries, append([]byte{TypeDeposit}, encodeDeposits(r.Deposits)...))
	}
	if len(r.Withdrawals) > 0 {
		entries = append(entries, append([]byte{TypeWithdrawal}, encodeWithdrawals(r.Withdrawals)...))
	}
	if len(r.Consolidations) > 0 {
		entries = append(entries, append([]byte{TypeConsolidation}, encodeConsolidations(r.Consolidations)...))
	}
	return entries
}

// Decode parses the engine API's executionRequests entries back into
// Requests. It rejects an entry with no type byte, a type byte with no
// list payload, a type this core does not recognize, and entries whose
// type bytes are not in strictly ascending order (which also catches a
// repeated type and an out-of-order submission).
func Decode(entries [][]byte) (Requests, error) {
	var r Requests
	var lastType int = -1
	for _, entry := range entries {
		if len(entry) < 1 {
			return Requests{}, ErrMissingTypePrefix
		}
		if len(entry) == 1 {
			return Requests{}, ErrEmptyData
		}
		typ := entry[0]
		if int(typ) <= lastType {
			return Requests{}, ErrOutOfOrder
		}
		lastType = int(typ)

		data := entry[1:]
		switch typ {
		case TypeDeposit:
			deposits, err := decodeDeposits(data)
			if err != nil {
				return Requests{}, err
			}
			r.Deposits = deposits
		case TypeWithdrawal:
			withdrawals, err := decodeWithdrawals(data)
			if err != nil {
				return Requests{}, err
			}
			r.Withdrawals = withdrawals
		case TypeConsolidation:
			consolidations, err := decodeConsolidations(data)
			if err != nil {
				return Requests{}, err
			}
			r.Consolidations = consolidations
		default:
			return Requests{}, ErrUnknownType
		}
	}
	return r, nil
}
