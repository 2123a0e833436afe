// Package kv adapts go.etcd.io/bbolt to this core's bucketed persistent-
// storage contract (§6): point get/put/delete, batch get/put/delete, and
// range scan by (gt|gte, lt|lte, reverse, limit), with keys composed as
// concat(bucket_id, ...) and never crossing bucket boundaries. Grounded on
// the teacher's beacon-chain/db/kv package, which wraps the same library
// the same way (bucket-prefixed keys, one *bbolt.DB per process).
package kv

import (
	"context"
	"os"
	"sort"

	"github.com/pkg/errors"
	bolt "go.etcd.io/bbolt"

	"github.com/ethwake/beacon-core/beacon-chain/db"
	"github.com/ethwake/beacon-core/consensus-types/primitives"
)

// Bucket names, one per key space this core persists. Each is a distinct
// bbolt bucket rather than a shared keyspace with a byte prefix, since
// bbolt already partitions by bucket; the "concat(bucket_id, ...)" framing
// in §6 describes the logical contract other engines (e.g. a flat
// leveldb) would need, which this bbolt adapter gets for free.
var (
	blocksBucket            = []byte("blocks")
	blockSlotIndicesBucket  = []byte("block-slot-indices")
	metadataBucket          = []byte("metadata")
	finalizedBlockRootsBucket = []byte("finalized-block-roots")
)

var (
	genesisBlockRootKey  = []byte("genesis-block-root")
	finalizedCheckpointKey = []byte("finalized-checkpoint")
)

// Store is the bbolt-backed Database implementation.
type Store struct {
	db *bolt.DB
}

// NewStore opens (creating if absent) a bbolt file at path and ensures
// every bucket this core needs exists.
func NewStore(path string) (*Store, error) {
	boltDB, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 0})
	if err != nil {
		return nil, errors.Wrap(err, "kv: could not open bbolt database")
	}
	s := &Store{db: boltDB}
	if err := s.db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{blocksBucket, blockSlotIndicesBucket, metadataBucket, finalizedBlockRootsBucket} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return err
			}
		}
		return nil
	}); err != nil {
		return nil, errors.Wrap(err, "kv: could not create buckets")
	}
	return s, nil
}

// SaveBlock persists an already-encoded block keyed by its root. §4.4 step
// 1 calls this before the block is known to fork-choice, so a crash
// between steps 1 and 2 can leave an orphaned block on disk; pruning that
// on next startup is the caller's concern (§5's cancellation/rollback
// rule), not this store's.
func (s *Store) SaveBlock(_ context.Context, root [32]byte, encoded []byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(blocksBucket).Put(root[:], encoded)
	})
}

// Block returns the raw encoded block for root, or (nil, nil) if absent.
func (s *Store) Block(_ context.Context, root [32]byte) ([]byte, error) {
	var out []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(blocksBucket).Get(root[:])
		if v == nil {
			return nil
		}
		out = append([]byte(nil), v...)
		return nil
	})
	return out, err
}

// HasBlock reports whether root is persisted.
func (s *Store) HasBlock(_ context.Context, root [32]byte) bool {
	found := false
	_ = s.db.View(func(tx *bolt.Tx) error {
		found = tx.Bucket(blocksBucket).Get(root[:]) != nil
		return nil
	})
	return found
}

// DeleteBlock removes root from storage, used by the invalid-block
// pruning cascade (§4.3's "excised from fork-choice and persisted to a
// sideband" path removes the canonical copy once the sideband copy is
// written).
func (s *Store) DeleteBlock(_ context.Context, root [32]byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(blocksBucket).Delete(root[:])
	})
}

// SaveGenesisBlockRoot records the genesis block root, read back at
// startup to seed the fork-choice store and clock.
func (s *Store) SaveGenesisBlockRoot(_ context.Context, root [32]byte) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(metadataBucket).Put(genesisBlockRootKey, root[:])
	})
}

// GenesisBlockRoot returns the stored genesis block root.
func (s *Store) GenesisBlockRoot(_ context.Context) ([32]byte, error) {
	var out [32]byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(metadataBucket).Get(genesisBlockRootKey)
		if v == nil {
			return errors.New("kv: genesis block root not set")
		}
		copy(out[:], v)
		return nil
	})
	return out, err
}

// SaveFinalizedCheckpoint persists the latest finalized (epoch, root) so a
// restart can seed the fork-choice store without replaying from genesis.
func (s *Store) SaveFinalizedCheckpoint(_ context.Context, epoch uint64, root [32]byte) error {
	buf := make([]byte, 40)
	putUint64(buf[:8], epoch)
	copy(buf[8:], root[:])
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(metadataBucket).Put(finalizedCheckpointKey, buf)
	})
}

// FinalizedCheckpoint returns the last persisted finalized checkpoint.
func (s *Store) FinalizedCheckpoint(_ context.Context) (uint64, [32]byte, error) {
	var epoch uint64
	var root [32]byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(metadataBucket).Get(finalizedCheckpointKey)
		if v == nil || len(v) != 40 {
			return nil // zero-value checkpoint: genesis, not an error
		}
		epoch = getUint64(v[:8])
		copy(root[:], v[8:])
		return nil
	})
	return epoch, root, err
}

// SaveFinalizedBlockRootBySlot indexes a block root under its slot within
// the finalized-roots bucket, supporting the canonical-by-slot range scans
// era-file export and historical-root lookups need.
func (s *Store) SaveFinalizedBlockRootBySlot(_ context.Context, slot primitives.Slot, root [32]byte) error {
	key := make([]byte, 8)
	putUint64(key, uint64(slot))
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(finalizedBlockRootsBucket).Put(key, root[:])
	})
}

// FinalizedBlockRootBySlot returns the canonical root at slot, if indexed.
func (s *Store) FinalizedBlockRootBySlot(_ context.Context, slot primitives.Slot) ([32]byte, bool, error) {
	var out [32]byte
	found := false
	key := make([]byte, 8)
	putUint64(key, uint64(slot))
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(finalizedBlockRootsBucket).Get(key)
		if v == nil {
			return nil
		}
		copy(out[:], v)
		found = true
		return nil
	})
	return out, found, err
}

// RangeScanOpts selects a (gt|gte, lt|lte, reverse, limit) window over a
// bucket's keys, per §6's range-scan contract.
type RangeScanOpts struct {
	GT, GTE []byte
	LT, LTE []byte
	Reverse bool
	Limit   int
}

// ScanFinalizedBlockRoots performs a range scan over the slot-indexed
// finalized-roots bucket, the one caller (era-file export) in this core
// that needs more than point lookups.
func (s *Store) ScanFinalizedBlockRoots(_ context.Context, opts RangeScanOpts) (map[primitives.Slot][32]byte, error) {
	out := make(map[primitives.Slot][32]byte)
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(finalizedBlockRootsBucket).Cursor()
		var keys [][]byte
		for k, v := c.First(); k != nil; k, v = c.Next() {
			if !inRange(k, opts) {
				continue
			}
			kk := append([]byte(nil), k...)
			keys = append(keys, kk)
			slot := primitives.Slot(getUint64(kk))
			var root [32]byte
			copy(root[:], v)
			out[slot] = root
		}
		if opts.Reverse {
			sort.Slice(keys, func(i, j int) bool { return getUint64(keys[i]) > getUint64(keys[j]) })
		}
		if opts.Limit > 0 && len(out) > opts.Limit {
			// Limit trims the result set deterministically by slot order.
			trimmed := make(map[primitives.Slot][32]byte, opts.Limit)
			count := 0
			for _, k := range keys {
				if count >= opts.Limit {
					break
				}
				slot := primitives.Slot(getUint64(k))
				trimmed[slot] = out[slot]
				count++
			}
			out = trimmed
		}
		return nil
	})
	return out, err
}

func inRange(k []byte, opts RangeScanOpts) bool {
	if opts.GT != nil && compare(k, opts.GT) <= 0 {
		return false
	}
	if opts.GTE != nil && compare(k, opts.GTE) < 0 {
		return false
	}
	if opts.LT != nil && compare(k, opts.LT) >= 0 {
		return false
	}
	if opts.LTE != nil && compare(k, opts.LTE) > 0 {
		return false
	}
	return true
}

func compare(a, b []byte) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}

func putUint64(b []byte, v uint64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (56 - 8*i))
	}
}

func getUint64(b []byte) uint64 {
	var v uint64
	for i := 0; i < 8 && i < len(b); i++ {
		v = v<<8 | uint64(b[i])
	}
	return v
}

// ApproximateSize reports bbolt's on-disk file size, the closest analog
// to the "approximate-size" operation §6 names (bbolt has no per-bucket
// size API; this is the whole-database figure).
func (s *Store) ApproximateSize() (int64, error) {
	info, err := os.Stat(s.db.Path())
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// Close flushes and releases the bbolt file handle, per §9's graceful
// shutdown requirement.
func (s *Store) Close() error {
	return s.db.Close()
}

var _ db.Database = (*Store)(nil)
