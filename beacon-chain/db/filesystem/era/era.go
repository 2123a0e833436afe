// Package era implements the optional era-file cold-storage collaborator
// §6 describes: one file per SLOTS_PER_HISTORICAL_ROOT span of the chain,
// framed with e2store and snappy-compressed, named
// "<config>-<era5>-<historical_root_4B_hex>.era". Grounded on go-ethereum's
// internal/era package shape (Builder/Open/Filename, retrieved here only
// as era_test.go for the EL era1 format) adapted to the beacon-chain frame
// types §6 names (Version, CompressedBeaconState,
// CompressedSignedBeaconBlock, SlotIndex) instead of era1's header/body/
// receipts/difficulty quartet. Genesis era (index 0) carries a state frame
// and an empty SlotIndex; every later era carries a state frame followed by one
// CompressedSignedBeaconBlock per slot (sparse slots are skipped, recorded
// as a zero offset in the trailing SlotIndex) and a closing SlotIndex.
package era

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/golang/snappy"
	"github.com/pkg/errors"
	"github.com/spf13/afero"

	"github.com/ethwake/beacon-core/beacon-chain/db/filesystem/e2store"
	"github.com/ethwake/beacon-core/consensus-types/primitives"
)

// Frame type identifiers, matching the values the wider era-file ecosystem
// (Lighthouse, Nimbus, Prysm) has converged on for beacon-chain era files.
const (
	TypeVersion                   uint16 = 0x3265
	TypeCompressedBeaconState     uint16 = 0x02
	TypeCompressedSignedBeaconBlock uint16 = 0x01
	TypeSlotIndex                 uint16 = 0x3269
)

var (
	// ErrNoState is returned by Finalize when no state frame was written.
	ErrNoState = errors.New("era: no state frame written")
	// ErrUnexpectedVersion is returned by Open when the first frame isn't
	// a zero-length Version frame.
	ErrUnexpectedVersion = errors.New("era: missing or malformed version frame")
	// ErrSlotOutOfRange is returned when Block is asked for a slot this
	// era's SlotIndex does not cover.
	ErrSlotOutOfRange = errors.New("era: slot out of range for this era")
	// ErrSlotEmpty is returned by Block for a slot recorded as skipped.
	ErrSlotEmpty = errors.New("era: no block at slot")
)

// Filename builds the "<config>-<era5>-<historical_root_4B_hex>.era" name
// §6 specifies. era5 is zero-padded to 5 digits; the historical root is
// truncated to its first 4 bytes, lowercase hex.
func Filename(config string, era uint64, historicalRoot [32]byte) string {
	return fmt.Sprintf("%s-%05d-%x.era", config, era, historicalRoot[:4])
}

// countingWriter wraps an io.Writer, tracking total bytes written so
// Builder can record absolute frame offsets for the closing SlotIndex.
type countingWriter struct {
	w   io.Writer
	pos int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.pos += int64(n)
	return n, err
}

// Builder accumulates the frames of one era file and writes them to w in
// order: Version, state, blocks (in slot order), SlotIndex.
type Builder struct {
	cw           *countingWriter
	w            *e2store.Writer
	startSlot    primitives.Slot
	wroteState   bool
	blockOffsets []int64 // absolute byte offset of each slot's block frame, 0 if absent
}

// NewBuilder starts a new era file whose first slot is startSlot, writing
// the leading zero-length Version frame immediately.
func NewBuilder(w io.Writer, startSlot primitives.Slot) (*Builder, error) {
	cw := &countingWriter{w: w}
	ew := e2store.NewWriter(cw)
	if _, err := ew.Write(TypeVersion, nil); err != nil {
		return nil, errors.Wrap(err, "era: could not write version frame")
	}
	return &Builder{cw: cw, w: ew, startSlot: startSlot}, nil
}

// AddState writes the (already snappy-compressed) beacon state for the
// era's first slot. Exactly one state frame exists per era, written
// before any block frame.
func (b *Builder) AddState(compressedState []byte) error {
	if _, err := b.w.Write(TypeCompressedBeaconState, compressedState); err != nil {
		return errors.Wrap(err, "era: could not write state frame")
	}
	b.wroteState = true
	return nil
}

// AddBlock writes one compressed signed beacon block for slot, which must
// be monotonically increasing and within [startSlot, startSlot+count). A
// caller that skips a slot (no block proposed) must still call AddBlock
// with empty bytes so the offset table stays aligned; empty bytes are
// recorded as a zero offset, matching ErrSlotEmpty's read-side behavior.
func (b *Builder) AddBlock(slot primitives.Slot, compressedBlock []byte) error {
	idx := int(slot - b.startSlot)
	for len(b.blockOffsets) <= idx {
		b.blockOffsets = append(b.blockOffsets, 0)
	}
	if len(compressedBlock) == 0 {
		b.blockOffsets[idx] = 0
		return nil
	}
	b.blockOffsets[idx] = b.cw.pos
	if _, err := b.w.Write(TypeCompressedSignedBeaconBlock, compressedBlock); err != nil {
		return errors.Wrap(err, "era: could not write block frame")
	}
	return nil
}

// Finalize writes the closing SlotIndex frame (starting slot, one 8-byte
// little-endian offset per slot relative to the index frame's own start,
// 0 for an absent slot, followed by the slot count) and returns the
// number of block frames recorded.
func (b *Builder) Finalize() (int, error) {
	if !b.wroteState {
		return 0, ErrNoState
	}
	indexFrameStart := b.cw.pos
	buf := make([]byte, 8+8*len(b.blockOffsets)+8)
	binary.LittleEndian.PutUint64(buf[0:8], uint64(b.startSlot))
	count := 0
	for i, off := range b.blockOffsets {
		rel := int64(0)
		if off != 0 {
			rel = off - indexFrameStart
			count++
		}
		binary.LittleEndian.PutUint64(buf[8+8*i:16+8*i], uint64(rel))
	}
	binary.LittleEndian.PutUint64(buf[len(buf)-8:], uint64(len(b.blockOffsets)))
	if _, err := b.w.Write(TypeSlotIndex, buf); err != nil {
		return 0, errors.Wrap(err, "era: could not write slot index frame")
	}
	return count, nil
}

// Era is a read handle on an opened era file.
type Era struct {
	f         afero.File
	r         *e2store.Reader
	startSlot primitives.Slot
	offsets   []int64 // absolute byte offsets, 0 if absent
	stateOff  int64
}

// Open reads and validates an era file at path on fs, parsing its leading
// Version frame, state frame, and trailing SlotIndex so Block/State can
// perform direct offset reads instead of a linear scan.
func Open(fs afero.Fs, path string) (*Era, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "era: could not open file")
	}
	r := e2store.NewReader(f)
	versionEntry, err := r.Read()
	if err != nil {
		_ = f.Close()
		return nil, errors.Wrap(err, "era: could not read version frame")
	}
	if versionEntry.Type != TypeVersion || len(versionEntry.Value) != 0 {
		_ = f.Close()
		return nil, ErrUnexpectedVersion
	}
	stateOff := r.Offset()
	stateEntry, err := r.Read()
	if err != nil {
		_ = f.Close()
		return nil, errors.Wrap(err, "era: could not read state frame")
	}
	if stateEntry.Type != TypeCompressedBeaconState {
		_ = f.Close()
		return nil, errors.New("era: expected state frame after version")
	}

	size, err := fileSize(fs, path)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	indexEntry, indexOff, err := readTrailingSlotIndex(f, size)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	startSlot, offsets, err := decodeSlotIndex(indexEntry.Value, indexOff)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &Era{f: f, r: r, startSlot: startSlot, offsets: offsets, stateOff: stateOff}, nil
}

func fileSize(fs afero.Fs, path string) (int64, error) {
	info, err := fs.Stat(path)
	if err != nil {
		return 0, errors.Wrap(err, "era: could not stat file")
	}
	return info.Size(), nil
}

// readTrailingSlotIndex reads the final 8 bytes of the file (the slot
// count), uses it to compute the SlotIndex frame's length, then re-reads
// that whole frame including its 8-byte e2store header.
func readTrailingSlotIndex(f afero.File, size int64) (*e2store.Entry, int64, error) {
	var countBuf [8]byte
	if _, err := f.ReadAt(countBuf[:], size-8); err != nil {
		return nil, 0, errors.Wrap(err, "era: could not read slot count")
	}
	count := binary.LittleEndian.Uint64(countBuf[:])
	frameLen := int64(8 /*start slot*/ + 8*count + 8 /*count*/)
	frameStart := size - 8 /*header*/ - frameLen
	if frameStart < 0 {
		return nil, 0, errors.New("era: malformed slot index frame")
	}
	sr := io.NewSectionReader(f, frameStart, size-frameStart)
	entry, err := e2store.NewReader(sr).Read()
	if err != nil {
		return nil, 0, errors.Wrap(err, "era: could not read slot index frame")
	}
	return entry, frameStart, nil
}

func decodeSlotIndex(value []byte, indexFrameStart int64) (primitives.Slot, []int64, error) {
	if len(value) < 16 || (len(value)-16)%8 != 0 {
		return 0, nil, errors.New("era: malformed slot index payload")
	}
	startSlot := primitives.Slot(binary.LittleEndian.Uint64(value[0:8]))
	n := (len(value) - 16) / 8
	offsets := make([]int64, n)
	for i := 0; i < n; i++ {
		rel := int64(binary.LittleEndian.Uint64(value[8+8*i : 16+8*i]))
		if rel == 0 {
			offsets[i] = 0
			continue
		}
		offsets[i] = indexFrameStart + rel
	}
	return startSlot, offsets, nil
}

// State returns the snappy-decompressed beacon state frame.
func (e *Era) State() ([]byte, error) {
	sr := io.NewSectionReader(e.f, e.stateOff, 1<<40)
	entry, err := e2store.NewReader(sr).Read()
	if err != nil {
		return nil, errors.Wrap(err, "era: could not read state frame")
	}
	return snappy.Decode(nil, entry.Value)
}

// Block returns the snappy-decompressed signed beacon block for slot, or
// ErrSlotEmpty if no block was proposed that slot.
func (e *Era) Block(slot primitives.Slot) ([]byte, error) {
	idx := int(slot - e.startSlot)
	if idx < 0 || idx >= len(e.offsets) {
		return nil, ErrSlotOutOfRange
	}
	off := e.offsets[idx]
	if off == 0 {
		return nil, ErrSlotEmpty
	}
	sr := io.NewSectionReader(e.f, off, 1<<40)
	entry, err := e2store.NewReader(sr).Read()
	if err != nil {
		return nil, errors.Wrap(err, "era: could not read block frame")
	}
	return snappy.Decode(nil, entry.Value)
}

// SlotCount reports how many slots this era's index covers.
func (e *Era) SlotCount() int { return len(e.offsets) }

// StartSlot reports the first slot this era covers.
func (e *Era) StartSlot() primitives.Slot { return e.startSlot }

// Close releases the underlying file handle.
func (e *Era) Close() error {
	return e.f.Close()
}

// CompressState snappy-compresses a raw encoded state for AddState.
func CompressState(raw []byte) []byte {
	return snappy.Encode(nil, raw)
}

// CompressBlock snappy-compresses a raw encoded signed block for AddBlock.
func CompressBlock(raw []byte) []byte {
	return snappy.Encode(nil, raw)
}
