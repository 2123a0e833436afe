package execution

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ethwake/beacon-core/consensus-types/interfaces"
	"github.com/ethwake/beacon-core/testing/require"
)

var zeroHash = common.Hash{}

type execRequests = interfaces.ExecutionRequests

type fakeExecData struct{}

func (fakeExecData) IsNil() bool         { return false }
func (fakeExecData) BlockHash() []byte   { return make([]byte, 32) }
func (fakeExecData) ParentHash() []byte  { return make([]byte, 32) }
func (fakeExecData) BlockNumber() uint64 { return 1 }
func (fakeExecData) Timestamp() uint64   { return 1 }
func (fakeExecData) GasUsed() uint64     { return 1 }
func (fakeExecData) GasLimit() uint64    { return 1 }
func (fakeExecData) Transactions() ([][]byte, error) { return nil, nil }
func (fakeExecData) Withdrawals() ([]*interfaces.Withdrawal, error) {
	return nil, interfaces.ErrUnsupportedField
}

func TestStatusToError(t *testing.T) {
	cases := []struct {
		name   string
		status *PayloadStatus
		expect error
	}{
		{"valid", &PayloadStatus{Status: payloadStatusValid}, nil},
		{"syncing", &PayloadStatus{Status: payloadStatusSyncing}, ErrAcceptedSyncingPayloadStatus},
		{"accepted", &PayloadStatus{Status: payloadStatusAccepted}, ErrAcceptedSyncingPayloadStatus},
		{"invalid", &PayloadStatus{Status: payloadStatusInvalid}, ErrInvalidPayloadStatus},
		{"invalid_block_hash", &PayloadStatus{Status: payloadStatusInvalidBlockHash}, ErrInvalidBlockHashPayloadStatus},
		{"unknown", &PayloadStatus{Status: "bogus"}, ErrUnknownPayloadStatus},
		{"nil", nil, ErrUnknownPayloadStatus},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := statusToError(c.status)
			if c.expect == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, c.expect)
		})
	}
}

func TestNewPayloadRequest_VersionDispatch(t *testing.T) {
	p := &fakeExecData{}
	method, _, err := newPayloadRequest(p, nil, nil, nil)
	require.NoError(t, err)
	require.Equal(t, NewPayloadMethodV1, method)

	method, _, err = newPayloadRequest(p, nil, &zeroHash, nil)
	require.NoError(t, err)
	require.Equal(t, NewPayloadMethodV3, method)

	reqs := &execRequests{}
	method, _, err = newPayloadRequest(p, nil, &zeroHash, reqs)
	require.NoError(t, err)
	require.Equal(t, NewPayloadMethodV4, method)
}

func TestNewPayloadRequest_NilPayload(t *testing.T) {
	_, _, err := newPayloadRequest(nil, nil, nil, nil)
	require.ErrorContains(t, "nil payload", err)
}

func TestMockCaller_SatisfiesInterface(t *testing.T) {
	m := &MockCaller{}
	var c Caller = m
	require.NotNil(t, c)
}
