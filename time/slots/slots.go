// Package slots converts between slots, epochs, and wall-clock time.
// Grounded on the teacher's time/slots package (used throughout the kept
// das/availability_columns_test.go: slots.EpochEnd, and execution_engine.go:
// slots.ToEpoch, slots.ToTime).
package slots

import (
	"fmt"
	"time"

	"github.com/ethwake/beacon-core/config/params"
	"github.com/ethwake/beacon-core/consensus-types/primitives"
)

// ToEpoch returns the epoch containing slot.
func ToEpoch(slot primitives.Slot) primitives.Epoch {
	return slot.Div(params.BeaconConfig().SlotsPerEpoch)
}

// EpochStart returns the first slot of epoch.
func EpochStart(epoch primitives.Epoch) (primitives.Slot, error) {
	spe := uint64(params.BeaconConfig().SlotsPerEpoch)
	start := uint64(epoch) * spe
	if spe != 0 && start/spe != uint64(epoch) {
		return 0, fmt.Errorf("start slot overflow for epoch %d", epoch)
	}
	return primitives.Slot(start), nil
}

// EpochEnd returns the last slot of epoch.
func EpochEnd(epoch primitives.Epoch) (primitives.Slot, error) {
	start, err := EpochStart(epoch)
	if err != nil {
		return 0, err
	}
	return start + primitives.Slot(params.BeaconConfig().SlotsPerEpoch) - 1, nil
}

// ToTime returns the wall-clock time at which slot begins, given the
// genesis unix timestamp.
func ToTime(genesisTimeSec uint64, slot primitives.Slot) (time.Time, error) {
	spsOverflows, timeSinceGenesis := overflowMul(uint64(slot), params.BeaconConfig().SecondsPerSlot)
	if spsOverflows {
		return time.Time{}, fmt.Errorf("slot %d too large to convert to time", slot)
	}
	sTime := genesisTimeSec + timeSinceGenesis
	if sTime < genesisTimeSec {
		return time.Time{}, fmt.Errorf("slot time overflow for slot %d", slot)
	}
	return time.Unix(int64(sTime), 0), nil //nolint:gosec
}

func overflowMul(a, b uint64) (bool, uint64) {
	if a == 0 || b == 0 {
		return false, 0
	}
	result := a * b
	return result/b != a, result
}

// SinceGenesis returns the slot that contains t, given genesis time.
func SinceGenesis(genesisTime time.Time, t time.Time) primitives.Slot {
	if t.Before(genesisTime) {
		return 0
	}
	d := t.Sub(genesisTime)
	return primitives.Slot(uint64(d.Seconds()) / params.BeaconConfig().SecondsPerSlot)
}

// IsEpochStart returns true when slot is the first slot of its epoch.
func IsEpochStart(slot primitives.Slot) bool {
	return slot.Mod(uint64(params.BeaconConfig().SlotsPerEpoch)) == 0
}
