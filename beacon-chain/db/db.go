// Package db declares the hot-storage contract §6 names: a bucketed
// key-value store plus the block/state-summary operations the import
// path's persist step (§4.4 step 1) and startup/shutdown flush (§9) drive.
// The on-disk engine itself (bbolt) is an out-of-scope collaborator per
// §1; db/kv adapts it to this contract.
package db

import "context"

// Database is the hot-storage contract the import pipeline persists
// blocks through. State persistence, era-file cold storage, and the
// slashing-protection store are separate collaborators outside this
// interface's scope.
type Database interface {
	SaveBlock(ctx context.Context, root [32]byte, encoded []byte) error
	Block(ctx context.Context, root [32]byte) ([]byte, error)
	HasBlock(ctx context.Context, root [32]byte) bool
	DeleteBlock(ctx context.Context, root [32]byte) error

	SaveGenesisBlockRoot(ctx context.Context, root [32]byte) error
	GenesisBlockRoot(ctx context.Context) ([32]byte, error)

	SaveFinalizedCheckpoint(ctx context.Context, epoch uint64, root [32]byte) error
	FinalizedCheckpoint(ctx context.Context) (uint64, [32]byte, error)

	// Close flushes any in-flight batches and releases the underlying
	// file handle, per §9's graceful-teardown lifecycle.
	Close() error
}
