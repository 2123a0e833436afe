package execution

import (
	"context"

	"github.com/pkg/errors"
)

// These sentinel errors classify an engine API response into the
// VALID/INVALID/SYNCING/ACCEPTED taxonomy §4.3 step 5 dispatches on. The
// EL dispatcher (C7) matches against them with errors.Is rather than
// string-comparing JSON-RPC error payloads.
var (
	// ErrAcceptedSyncingPayloadStatus covers both SYNCING and ACCEPTED:
	// §4.3 maps either into a single "optimistic" status tag.
	ErrAcceptedSyncingPayloadStatus = errors.New("execution: payload status SYNCING or ACCEPTED")
	// ErrInvalidPayloadStatus is returned when the EL reports INVALID.
	ErrInvalidPayloadStatus = errors.New("execution: payload status INVALID")
	// ErrInvalidBlockHashPayloadStatus is returned when the EL reports
	// INVALID_BLOCK_HASH, a more specific reason the caller still treats as
	// a plain invalid-payload status.
	ErrInvalidBlockHashPayloadStatus = errors.New("execution: payload status INVALID_BLOCK_HASH")
	// ErrUnknownPayloadStatus covers a JSON-RPC response that sets a
	// status string this client doesn't recognize.
	ErrUnknownPayloadStatus = errors.New("execution: unknown payload status")
	// ErrRequestTooLarge is returned when GetBlobs is asked for more
	// items than the EL allows in one call.
	ErrRequestTooLarge = errors.New("execution: request too large")
	// ErrEmptyBlockHash is returned when a payload arrives with a
	// zero block hash, which the engine API never legitimately sends.
	ErrEmptyBlockHash = errors.New("execution: payload has empty block hash")
)

// isErrorAborted reports whether err is a context cancellation/deadline, or
// wraps one — §5's "Cancellation & timeouts" classification that downgrades
// an aborted EL round-trip from a logged error to a quiet retry signal.
func isErrorAborted(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

// isQueueErrorAborted is the same classification applied to an engine
// request that never left the local dispatch queue (e.g. the service shut
// down before the RPC round-trip began).
func isQueueErrorAborted(err error) bool {
	return isErrorAborted(err)
}
