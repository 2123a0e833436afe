// Package types holds the execution-layer data shapes the engine API
// client exchanges with go-ethereum: JSON-RPC header info and the
// minimal eth1 block/receipt views notifyForkchoiceUpdate/notifyNewPayload
// need.
package types

import (
	"encoding/json"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ErrMissingNumber is returned when a HeaderInfo is marshaled/unmarshaled
// without a block number, which every real eth1 header carries.
var ErrMissingNumber = errors.New("types: header is missing number field")

// HeaderInfo is a trimmed-down go-ethereum header: only the fields the
// engine-API client needs to correlate a payload with its execution
// block.
type HeaderInfo struct {
	Number *big.Int
	Hash   common.Hash
	Time   uint64
}

type headerInfoJSON struct {
	Number *hexutil.Big   `json:"number"`
	Hash   common.Hash    `json:"hash"`
	Time   hexutil.Uint64 `json:"timestamp"`
}

// MarshalJSON renders the header the way go-ethereum's JSON-RPC layer
// does: hex-encoded quantities.
func (h *HeaderInfo) MarshalJSON() ([]byte, error) {
	if h.Number == nil {
		return nil, ErrMissingNumber
	}
	enc := headerInfoJSON{
		Number: (*hexutil.Big)(h.Number),
		Hash:   h.Hash,
		Time:   hexutil.Uint64(h.Time),
	}
	return json.Marshal(enc)
}

// UnmarshalJSON parses a go-ethereum JSON-RPC header response.
func (h *HeaderInfo) UnmarshalJSON(data []byte) error {
	var dec headerInfoJSON
	if err := json.Unmarshal(data, &dec); err != nil {
		return err
	}
	if dec.Number == nil {
		return ErrMissingNumber
	}
	h.Number = (*big.Int)(dec.Number)
	h.Hash = dec.Hash
	h.Time = uint64(dec.Time)
	return nil
}
