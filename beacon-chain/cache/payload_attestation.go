package cache

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/prysmaticlabs/go-bitfield"

	"github.com/ethwake/beacon-core/consensus-types/interfaces"
	"github.com/ethwake/beacon-core/encoding/bytesutil"
)

// aggregatedPayloadAttestation accumulates aggregation bits across every
// PayloadAttestationMessage seen for one (root, payload status) pair.
// Signature holds the signature of the latest message that set a new bit;
// signatures are not BLS-aggregated.
type aggregatedPayloadAttestation struct {
	Data            interfaces.PayloadAttestationData
	AggregationBits bitfield.Bitlist
	Signature       []byte
}

// PayloadAttestationCache is a single-slot, single-root cache of ePBS/Gloas
// payload attestations keyed by payload status, mirroring the teacher's
// cache.PayloadAttestationCache (see payload_attestation_test.go). Unlike
// the LRU caches in cache.go, this one tracks only the most recent root: a
// new root arriving resets the whole cache, since payload attestations are
// only ever gossiped for the current slot's block.
type PayloadAttestationCache struct {
	mu           sync.Mutex
	root         [32]byte
	attestations map[bool]*aggregatedPayloadAttestation
}

// Seen reports whether validatorIdx has already contributed an attestation
// for root, across any payload status.
func (p *PayloadAttestationCache) Seen(root [32]byte, validatorIdx uint64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.root != root {
		return false
	}
	for _, att := range p.attestations {
		if att == nil {
			continue
		}
		for _, idx := range att.AggregationBits.BitIndices() {
			if uint64(idx) == validatorIdx {
				return true
			}
		}
	}
	return false
}

// Add folds a single payload attestation message from validatorIdx into the
// cache, resetting on a new root. The first message for a status bucket
// seeds its signature; each later message from a new validator replaces it.
func (p *PayloadAttestationCache) Add(msg *PayloadAttestationMessage, validatorIdx uint64) error {
	if msg == nil || msg.Data == nil {
		return errors.New("cache: nil payload attestation message")
	}
	root := bytesutil.ToBytes32(msg.Data.BeaconBlockRoot[:])

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.root != root {
		p.root = root
		p.attestations = make(map[bool]*aggregatedPayloadAttestation)
	}
	if p.attestations == nil {
		p.attestations = make(map[bool]*aggregatedPayloadAttestation)
	}

	status := msg.Data.PayloadPresent
	att, ok := p.attestations[status]
	if !ok {
		bits := bitfield.NewBitlist(64)
		bits.SetBitAt(validatorIdx, true)
		p.attestations[status] = &aggregatedPayloadAttestation{
			Data:            *msg.Data,
			AggregationBits: bits,
			Signature:       bytesutil.SafeCopyBytes(msg.Signature),
		}
		return nil
	}
	if att.AggregationBits.BitAt(validatorIdx) {
		return nil
	}
	att.AggregationBits.SetBitAt(validatorIdx, true)
	att.Signature = msg.Signature
	return nil
}

// PayloadAttestationMessage is the gossip unit folded into the cache; it
// mirrors the wire message's shape without depending on a generated proto
// type.
type PayloadAttestationMessage struct {
	Data      *interfaces.PayloadAttestationData
	Signature []byte
}
