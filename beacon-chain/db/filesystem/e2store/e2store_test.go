package e2store

import (
	"bytes"
	"encoding/hex"
	"io"
	"testing"

	"github.com/ethwake/beacon-core/testing/require"
)

func TestWriteRead(t *testing.T) {
	tests := []struct {
		name    string
		entries []Entry
		want    string
	}{
		{
			name:    "emptyEntry",
			entries: []Entry{{0xffff, nil}},
			want:    "ffff000000000000",
		},
		{
			name:    "beef",
			entries: []Entry{{42, mustHex("beef")}},
			want:    "2a00020000000000beef",
		},
		{
			name: "twoEntries",
			entries: []Entry{
				{42, mustHex("beef")},
				{9, mustHex("abcdabcd")},
			},
			want: "2a00020000000000beef0900040000000000abcdabcd",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			w := NewWriter(&buf)
			for _, e := range tt.entries {
				_, err := w.Write(e.Type, e.Value)
				require.NoError(t, err)
			}
			require.Equal(t, tt.want, hex.EncodeToString(buf.Bytes()))

			r := NewReader(bytes.NewReader(buf.Bytes()))
			for _, want := range tt.entries {
				have, err := r.Read()
				require.NoError(t, err)
				require.Equal(t, want.Type, have.Type)
				require.Equal(t, true, bytes.Equal(want.Value, have.Value))
			}
			_, err := r.Read()
			require.ErrorIs(t, err, io.EOF)
		})
	}
}

func TestReadErrors(t *testing.T) {
	tests := []struct {
		name string
		have string
		err  error
	}{
		{name: "reserved bytes non-zero", have: "ffff000000000001", err: ErrReservedBytesNonZero},
		{name: "empty stream is EOF", have: "", err: io.EOF},
		{name: "malformed type", have: "bad", err: io.ErrUnexpectedEOF},
		{name: "malformed length", have: "badbeef", err: io.ErrUnexpectedEOF},
		{name: "length longer than value", have: "beef010000000000", err: io.ErrUnexpectedEOF},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReader(bytes.NewReader(mustHex(tt.have)))
			_, err := r.Read()
			require.ErrorIs(t, err, tt.err)
		})
	}
}

// mustHex decodes s as hex, left-padding with a zero nibble on odd length
// (matching go-ethereum's common.FromHex, which the source fixtures these
// cases are transcribed from relies on for its odd-length malformed-input
// cases).
func mustHex(s string) []byte {
	if len(s)%2 == 1 {
		s = "0" + s
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		panic(err)
	}
	return b
}
