// Package params holds the beacon chain configuration: network constants,
// fork-version schedule, and the handful of PeerDAS/Gloas parameters this
// core depends on. Values mirror mainnet defaults; a different config can
// be installed wholesale with SetActive for devnets and tests.
package params

import (
	"sync"

	"github.com/ethwake/beacon-core/consensus-types/primitives"
)

// BeaconChainConfig holds constants referenced by the import pipeline.
// Field documentation intentionally stays terse: the meaning is the
// Ethereum consensus spec's, not this repo's to restate.
type BeaconChainConfig struct {
	// Time parameters.
	SecondsPerSlot      uint64
	SlotsPerEpoch       primitives.Slot
	SlotsPerHistoricalRoot primitives.Slot
	MinEpochsForDataColumnSidecarsRequest primitives.Epoch

	// Gossip / networking tolerances.
	MaximumGossipClockDisparity uint64 // milliseconds
	MaximumAPIClockDisparity    uint64 // milliseconds

	// Blob/column limits.
	MaxBlobsPerBlock                   uint64
	MaxBlobsPerBlockElectra            uint64
	KZGCommitmentsInclusionProofDepth  uint64
	NumberOfColumns                    uint64
	DataColumnSidecarSubnetCount       uint64
	NumberOfCustodyGroups              uint64
	CustodyRequirement                 uint64
	MinCustodyRequirement              uint64
	MaxCustodyRequirement              uint64
	SamplesPerSlot                     uint64

	// Fork schedule: fork -> epoch (MaxUint64 = not scheduled).
	ForkEpoch map[Fork]primitives.Epoch

	ZeroHash [32]byte
}

// Fork enumerates the ordered fork versions this core dispatches on.
// Ordering is semantic: Fork values compare with <, and later forks are
// always "greater than" earlier ones.
type Fork int

const (
	Phase0 Fork = iota
	Altair
	Bellatrix
	Capella
	Deneb
	Electra
	Fulu
	Gloas
)

func (f Fork) String() string {
	switch f {
	case Phase0:
		return "phase0"
	case Altair:
		return "altair"
	case Bellatrix:
		return "bellatrix"
	case Capella:
		return "capella"
	case Deneb:
		return "deneb"
	case Electra:
		return "electra"
	case Fulu:
		return "fulu"
	case Gloas:
		return "gloas"
	default:
		return "unknown"
	}
}

const maxEpoch = primitives.Epoch(1<<64 - 1)

func mainnetConfig() *BeaconChainConfig {
	return &BeaconChainConfig{
		SecondsPerSlot:                         12,
		SlotsPerEpoch:                          32,
		SlotsPerHistoricalRoot:                 8192,
		MinEpochsForDataColumnSidecarsRequest:  4096,
		MaximumGossipClockDisparity:            500,
		MaximumAPIClockDisparity:               1000,
		MaxBlobsPerBlock:                       6,
		MaxBlobsPerBlockElectra:                9,
		KZGCommitmentsInclusionProofDepth:      4,
		NumberOfColumns:                        128,
		DataColumnSidecarSubnetCount:           128,
		NumberOfCustodyGroups:                  128,
		CustodyRequirement:                     4,
		MinCustodyRequirement:                  4,
		MaxCustodyRequirement:                  128,
		SamplesPerSlot:                         8,
		ForkEpoch: map[Fork]primitives.Epoch{
			Phase0:    0,
			Altair:    0,
			Bellatrix: 0,
			Capella:   0,
			Deneb:     0,
			Electra:   maxEpoch,
			Fulu:      maxEpoch,
			Gloas:     maxEpoch,
		},
	}
}

var (
	activeConfig   *BeaconChainConfig
	activeConfigMu sync.RWMutex
)

func init() {
	activeConfig = mainnetConfig()
}

// BeaconConfig returns the currently active configuration.
func BeaconConfig() *BeaconChainConfig {
	activeConfigMu.RLock()
	defer activeConfigMu.RUnlock()
	return activeConfig
}

// SetActive installs cfg as the active configuration, returning the
// previous one so callers (mainly tests) can restore it.
func SetActive(cfg *BeaconChainConfig) *BeaconChainConfig {
	activeConfigMu.Lock()
	defer activeConfigMu.Unlock()
	prev := activeConfig
	activeConfig = cfg
	return prev
}

// MainnetConfig returns a fresh copy of the mainnet defaults.
func MainnetConfig() *BeaconChainConfig {
	return mainnetConfig()
}

// ForkVersionAtEpoch returns the fork active at the given epoch.
func (c *BeaconChainConfig) ForkAtEpoch(epoch primitives.Epoch) Fork {
	best := Phase0
	for f := Phase0; f <= Gloas; f++ {
		scheduled, ok := c.ForkEpoch[f]
		if !ok {
			continue
		}
		if scheduled <= epoch {
			best = f
		}
	}
	return best
}
