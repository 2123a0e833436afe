// Package primitives defines the scalar types threaded through the import
// pipeline: Slot, Epoch, and the 32-byte Root. Grounded on the teacher's
// consensus-types/primitives package (referenced throughout the kept v5
// test files, e.g. beacon-chain/das/availability_columns_test.go).
package primitives

import (
	"encoding/hex"
	"fmt"
)

// Slot is an unsigned slot number counted from genesis.
type Slot uint64

// Epoch is an unsigned epoch number; Epoch = Slot / SLOTS_PER_EPOCH.
type Epoch uint64

// Div divides the slot by a slots-per-epoch value, truncating.
func (s Slot) Div(slotsPerEpoch Slot) Epoch {
	if slotsPerEpoch == 0 {
		return 0
	}
	return Epoch(uint64(s) / uint64(slotsPerEpoch))
}

// Mod returns s modulo m.
func (s Slot) Mod(m uint64) uint64 {
	if m == 0 {
		return 0
	}
	return uint64(s) % m
}

// SubSlot returns s - other, saturating at zero instead of wrapping.
func (s Slot) SubSlot(other Slot) Slot {
	if other > s {
		return 0
	}
	return s - other
}

// AddEpochs returns e + n.
func (e Epoch) AddEpochs(n uint64) Epoch {
	return e + Epoch(n)
}

// Root is a 32-byte cryptographic hash, carried as raw bytes for equality
// and hashing, with a lowercase-hex string form for logging and map keys
// (string keys beat [32]byte keys when used as cache-hash-map keys across
// this codebase, per the teacher's hex-string convention in block-root
// indexed caches).
type Root [32]byte

// Hex returns the lowercase 0x-prefixed hex encoding.
func (r Root) Hex() string {
	return "0x" + hex.EncodeToString(r[:])
}

// String satisfies fmt.Stringer.
func (r Root) String() string {
	return r.Hex()
}

// RootFromBytes copies b into a Root, erroring if b isn't 32 bytes.
func RootFromBytes(b []byte) (Root, error) {
	var r Root
	if len(b) != 32 {
		return r, fmt.Errorf("invalid root length %d, expected 32", len(b))
	}
	copy(r[:], b)
	return r, nil
}

// ValidatorIndex identifies a validator by its position in the registry.
type ValidatorIndex uint64

// CommitteeIndex identifies a committee within a slot.
type CommitteeIndex uint64
