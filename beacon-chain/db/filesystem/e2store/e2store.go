// Package e2store implements the generic TLV framing era files are built
// from: an 8-byte header (2-byte little-endian type, 4-byte little-endian
// length, 2-byte reserved field that must be zero) followed by the value
// itself. Grounded on go-ethereum's internal/era/e2store package (retrieved
// here only as e2store_test.go; the header field order below is reverse-
// engineered from that file's hex fixtures — e.g. "2a00020000000000beef"
// decodes as type=42, length=2, reserved=0, value=beef — since no
// production source for this package survived retrieval).
package e2store

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// ErrReservedBytesNonZero is returned when a header's reserved field is
// not zero, per TestDecode's "reserved bytes are non-zero" case.
var ErrReservedBytesNonZero = errors.New("reserved bytes are non-zero")

// Entry is one decoded (or pending-to-encode) TLV record.
type Entry struct {
	Type  uint16
	Value []byte
}

// Writer appends e2store-framed entries to an underlying stream.
type Writer struct {
	w io.Writer
}

// NewWriter wraps w as an e2store Writer.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// Write appends one entry of typ carrying value, returning the number of
// bytes written.
func (w *Writer) Write(typ uint16, value []byte) (int, error) {
	header := make([]byte, 8)
	binary.LittleEndian.PutUint16(header[0:2], typ)
	binary.LittleEndian.PutUint32(header[2:6], uint32(len(value)))
	// header[6:8] is the reserved field, left zero.
	n, err := w.w.Write(header)
	if err != nil {
		return n, err
	}
	m, err := w.w.Write(value)
	return n + m, err
}

// Reader decodes e2store-framed entries from an underlying stream.
type Reader struct {
	r      io.ReaderAt
	offset int64
}

// NewReader wraps r as an e2store Reader starting at offset 0. r need only
// satisfy io.Reader for sequential use; ReadAt-based random access is
// layered on top by the era package via io.NewSectionReader.
func NewReader(r io.Reader) *Reader {
	if ra, ok := r.(io.ReaderAt); ok {
		return &Reader{r: ra}
	}
	return &Reader{r: &readerAtAdapter{r: r}}
}

// readerAtAdapter turns a plain sequential io.Reader into an io.ReaderAt
// sufficient for Reader's sequential-only usage pattern (it always reads
// from its own running offset).
type readerAtAdapter struct {
	r   io.Reader
	pos int64
}

func (a *readerAtAdapter) ReadAt(p []byte, off int64) (int, error) {
	if off < a.pos {
		return 0, errors.New("e2store: backward read unsupported on plain io.Reader")
	}
	if off > a.pos {
		if _, err := io.CopyN(io.Discard, a.r, off-a.pos); err != nil {
			return 0, err
		}
		a.pos = off
	}
	n, err := io.ReadFull(a.r, p)
	a.pos += int64(n)
	return n, err
}

// Read decodes the next entry, returning io.EOF when the stream is
// exhausted exactly at an entry boundary.
func (r *Reader) Read() (*Entry, error) {
	header := make([]byte, 8)
	n, err := r.r.ReadAt(header, r.offset)
	if n == 0 && (err == io.EOF || errors.Is(err, io.EOF)) {
		return nil, io.EOF
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	if n < 8 {
		return nil, io.ErrUnexpectedEOF
	}
	typ := binary.LittleEndian.Uint16(header[0:2])
	length := binary.LittleEndian.Uint32(header[2:6])
	if header[6] != 0 || header[7] != 0 {
		return nil, ErrReservedBytesNonZero
	}
	value := make([]byte, length)
	if length > 0 {
		vn, verr := r.r.ReadAt(value, r.offset+8)
		if vn < int(length) {
			return nil, io.ErrUnexpectedEOF
		}
		if verr != nil && !errors.Is(verr, io.EOF) {
			return nil, verr
		}
	}
	r.offset += 8 + int64(length)
	return &Entry{Type: typ, Value: value}, nil
}

// Offset returns the reader's current stream position, used by the era
// package to compute a slot index's byte offsets.
func (r *Reader) Offset() int64 {
	return r.offset
}

// Seek repositions the reader at an absolute stream offset, used to jump
// directly to a frame via a previously-read SlotIndex.
func (r *Reader) Seek(offset int64) {
	r.offset = offset
}
