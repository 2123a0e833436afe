package blockchain

import (
	"time"

	"github.com/ethwake/beacon-core/config/params"
	"github.com/ethwake/beacon-core/consensus-types/primitives"
	"github.com/ethwake/beacon-core/time/slots"
)

// Clock is C1: monotone slot/epoch derivation from genesis time, plus the
// gossip-disparity tolerance check §4.2 rule 1 and the publish-path sleep
// §4.6 needs. It never returns a slot before genesis and never regresses,
// since CurrentSlot is a pure function of wall time and genesisTime.
type Clock struct {
	genesisTime time.Time
	now         func() time.Time
}

// Genesis constructs a Clock anchored at t. now defaults to time.Now; a
// test may override it via WithNowFn to make the clock deterministic.
func Genesis(t time.Time) *Clock {
	return &Clock{genesisTime: t, now: time.Now}
}

// WithNowFn overrides the clock's notion of "now", for tests that need a
// deterministic current time.
func (c *Clock) WithNowFn(fn func() time.Time) *Clock {
	c.now = fn
	return c
}

// GenesisTime returns the configured genesis time.
func (c *Clock) GenesisTime() time.Time { return c.genesisTime }

// CurrentSlot returns the slot containing the current time, never less
// than zero even if called before genesis.
func (c *Clock) CurrentSlot() primitives.Slot {
	return slots.SinceGenesis(c.genesisTime, c.now())
}

// CurrentEpoch returns the epoch containing CurrentSlot().
func (c *Clock) CurrentEpoch() primitives.Epoch {
	return slots.ToEpoch(c.CurrentSlot())
}

// SlotStart returns the wall-clock time at which slot begins.
func (c *Clock) SlotStart(slot primitives.Slot) (time.Time, error) {
	return slots.ToTime(uint64(c.genesisTime.Unix()), slot)
}

// IsFutureSlot reports whether slot starts more than disparity in the
// future of the clock's current time, per §4.2 rule 1's gossip-disparity
// tolerance (MAXIMUM_GOSSIP_CLOCK_DISPARITY = 500ms) and §4.6's publish
// clock-skew check (MAXIMUM_API_CLOCK_DISPARITY = 1000ms), both callable
// through this one helper with a caller-supplied tolerance.
func (c *Clock) IsFutureSlot(slot primitives.Slot, disparity time.Duration) bool {
	start, err := c.SlotStart(slot)
	if err != nil {
		return true
	}
	return start.After(c.now().Add(disparity))
}

// MaximumGossipClockDisparity is §4.2 rule 1's tolerance.
func MaximumGossipClockDisparity() time.Duration {
	return time.Duration(params.BeaconConfig().MaximumGossipClockDisparity) * time.Millisecond
}

// MaximumAPIClockDisparity is §4.6/§5's publish-path clock-skew tolerance.
func MaximumAPIClockDisparity() time.Duration {
	return time.Duration(params.BeaconConfig().MaximumAPIClockDisparity) * time.Millisecond
}

// SleepUntilSlotStart blocks the calling goroutine until slot's start time,
// or returns immediately if that time has already passed — the publish
// path's §4.6 "sleep up to MAX_API_CLOCK_DISPARITY_MS" behavior, and S6's
// "sleeps ~600ms then fans out" scenario.
func (c *Clock) SleepUntilSlotStart(slot primitives.Slot) {
	start, err := c.SlotStart(slot)
	if err != nil {
		return
	}
	d := start.Sub(c.now())
	if d > 0 {
		time.Sleep(d)
	}
}
