package execreq

import (
	"testing"

	"github.com/ethwake/beacon-core/testing/require"
)

func sampleRequests() Requests {
	return Requests{
		Deposits: []Deposit{
			{PublicKey: [48]byte{1}, WithdrawalCredentials: [32]byte{2}, Amount: 32_000_000_000, Signature: [96]byte{3}, Index: 7},
		},
		Withdrawals: []WithdrawalRequest{
			{SourceAddress: [20]byte{4}, ValidatorPubkey: [48]byte{5}, Amount: 1000},
		},
		Consolidations: []ConsolidationRequest{
			{SourceAddress: [20]byte{6}, SourcePubkey: [48]byte{7}, TargetPubkey: [48]byte{8}},
		},
	}
}

func TestEncodeDecode_RoundTripIsIdentity(t *testing.T) {
	want := sampleRequests()
	entries := Encode(want)
	require.Equal(t, 3, len(entries))

	got, err := Decode(entries)
	require.NoError(t, err)
	require.DeepEqual(t, want, got)
}

func TestEncode_OmitsEmptyLists(t *testing.T) {
	r := Requests{Withdrawals: []WithdrawalRequest{{SourceAddress: [20]byte{1}, ValidatorPubkey: [48]byte{2}, Amount: 5}}}
	entries := Encode(r)
	require.Equal(t, 1, len(entries))
	require.Equal(t, TypeWithdrawal, entries[0][0])
}

func TestDecode_RejectsMissingTypePrefix(t *testing.T) {
	_, err := Decode([][]byte{{}})
	require.ErrorIs(t, err, ErrMissingTypePrefix)
}

func TestDecode_RejectsEmptyData(t *testing.T) {
	_, err := Decode([][]byte{{TypeDeposit}})
	require.ErrorIs(t, err, ErrEmptyData)
}

func TestDecode_RejectsOutOfOrderTypes(t *testing.T) {
	r := sampleRequests()
	entries := Encode(r)
	// entries[0] is deposit (type 0), entries[1] is withdrawal (type 1).
	// Swapping them breaks ascending order.
	swapped := [][]byte{entries[1], entries[0]}
	_, err := Decode(swapped)
	require.ErrorIs(t, err, ErrOutOfOrder)
}

func TestDecode_RejectsDuplicateType(t *testing.T) {
	r := Requests{Deposits: []Deposit{{Amount: 1}}}
	entries := Encode(r)
	_, err := Decode([][]byte{entries[0], entries[0]})
	require.ErrorIs(t, err, ErrOutOfOrder)
}

func TestDecode_RejectsUnknownType(t *testing.T) {
	_, err := Decode([][]byte{{0x03, 0x00}})
	require.ErrorIs(t, err, ErrUnknownType)
}

func TestDecode_RejectsMalformedListLength(t *testing.T) {
	// One byte short of a full deposit element.
	entry := append([]byte{TypeDeposit}, make([]byte, depositSize-1)...)
	_, err := Decode([][]byte{entry})
	require.ErrorIs(t, err, ErrMalformedList)
}
