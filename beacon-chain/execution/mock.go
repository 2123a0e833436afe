package execution

import (
	"context"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/ethwake/beacon-core/consensus-types/interfaces"
)

// MockCaller is a test double satisfying Caller, letting the blockchain
// package's own tests drive C7's EL-dispatch logic without a live engine
// API endpoint — grounded on the teacher's EngineClient test mocks
// referenced across notifyForkchoiceUpdate/notifyNewPayload call sites.
type MockCaller struct {
	mu sync.Mutex

	NewPayloadErr error
	NewPayloadLVH []byte

	FcUErr       error
	FcUPayloadID *PayloadIDBytes
	FcULVH       []byte

	GetPayloadResult interfaces.ExecutionData
	GetPayloadErr    error

	GetBlobsResult [][]byte
	GetBlobsErr    error

	NewPayloadCalls       int
	ForkchoiceUpdatedCalls int
	LastForkchoiceState   *ForkchoiceState
	LastAttributes        PayloadAttributer
}

// NewPayload records the call and returns the configured canned result.
func (m *MockCaller) NewPayload(_ context.Context, _ interfaces.ExecutionData, _ []common.Hash, _ *common.Hash, _ *interfaces.ExecutionRequests) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.NewPayloadCalls++
	return m.NewPayloadLVH, m.NewPayloadErr
}

// ForkchoiceUpdated records the call and returns the configured canned result.
func (m *MockCaller) ForkchoiceUpdated(_ context.Context, state *ForkchoiceState, attrs PayloadAttributer) (*PayloadIDBytes, []byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ForkchoiceUpdatedCalls++
	m.LastForkchoiceState = state
	m.LastAttributes = attrs
	return m.FcUPayloadID, m.FcULVH, m.FcUErr
}

// GetPayload returns the configured canned result.
func (m *MockCaller) GetPayload(_ context.Context, _ PayloadIDBytes, _ int) (interfaces.ExecutionData, error) {
	return m.GetPayloadResult, m.GetPayloadErr
}

// GetBlobs returns the configured canned result.
func (m *MockCaller) GetBlobs(_ context.Context, _ []common.Hash) ([][]byte, error) {
	return m.GetBlobsResult, m.GetBlobsErr
}

var _ Caller = (*MockCaller)(nil)
