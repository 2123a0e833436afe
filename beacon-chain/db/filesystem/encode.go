package filesystem

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/ethwake/beacon-core/consensus-types/blocks"
	"github.com/ethwake/beacon-core/consensus-types/primitives"
)

// This package's sidecars are stored as a flat length-prefixed binary
// encoding rather than SSZ: this core has no SSZ code-generation pipeline
// for sidecar types (same documented gap as consensus-types/blocks'
// BeaconBlock.HashTreeRoot placeholder), and the on-disk bytes here are
// read back only by this package itself, never by a wire peer, so an
// exact-SSZ encoding buys nothing a simple self-describing format
// doesn't already give.

func putBytes(buf []byte, b []byte) []byte {
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(b)))
	buf = append(buf, lenBuf[:]...)
	return append(buf, b...)
}

func takeBytes(b []byte) ([]byte, []byte, error) {
	if len(b) < 4 {
		return nil, nil, errors.New("filesystem: truncated length prefix")
	}
	n := binary.LittleEndian.Uint32(b[:4])
	b = b[4:]
	if uint32(len(b)) < n {
		return nil, nil, errors.New("filesystem: truncated value")
	}
	return b[:n], b[n:], nil
}

func encodeBlob(b blocks.ROBlob) []byte {
	buf := make([]byte, 0, 64+len(b.Blob)+len(b.KzgCommitment)+len(b.KzgProof))
	buf = append(buf, b.BlockRoot[:]...)
	buf = append(buf, b.ParentRoot[:]...)
	var scratch [24]byte
	binary.LittleEndian.PutUint64(scratch[0:8], uint64(b.Index))
	binary.LittleEndian.PutUint64(scratch[8:16], uint64(b.Slot))
	binary.LittleEndian.PutUint64(scratch[16:24], uint64(b.ProposerIndex))
	buf = append(buf, scratch[:]...)
	buf = putBytes(buf, b.Blob)
	buf = putBytes(buf, b.KzgCommitment)
	buf = putBytes(buf, b.KzgProof)
	return buf
}

func decodeBlob(buf []byte) (blocks.ROBlob, error) {
	if len(buf) < 88 {
		return blocks.ROBlob{}, errors.New("filesystem: truncated blob record")
	}
	var root, parent [32]byte
	copy(root[:], buf[0:32])
	copy(parent[:], buf[32:64])
	index := binary.LittleEndian.Uint64(buf[64:72])
	slot := binary.LittleEndian.Uint64(buf[72:80])
	proposer := binary.LittleEndian.Uint64(buf[80:88])
	rest := buf[88:]

	blob, rest, err := takeBytes(rest)
	if err != nil {
		return blocks.ROBlob{}, err
	}
	commitment, rest, err := takeBytes(rest)
	if err != nil {
		return blocks.ROBlob{}, err
	}
	proof, _, err := takeBytes(rest)
	if err != nil {
		return blocks.ROBlob{}, err
	}
	return blocks.NewROBlob(root, index, primitives.Slot(slot), primitives.ValidatorIndex(proposer), parent, blob, commitment, proof)
}

func encodeColumn(c blocks.ROColumn) []byte {
	buf := make([]byte, 0, 88)
	buf = append(buf, c.BlockRoot[:]...)
	buf = append(buf, c.ParentRoot[:]...)
	var scratch [32]byte
	binary.LittleEndian.PutUint64(scratch[0:8], uint64(c.Index))
	binary.LittleEndian.PutUint64(scratch[8:16], uint64(c.Slot))
	binary.LittleEndian.PutUint64(scratch[16:24], uint64(c.ProposerIndex))
	binary.LittleEndian.PutUint64(scratch[24:32], uint64(len(c.Column)))
	buf = append(buf, scratch[:]...)
	for i := range c.Column {
		buf = putBytes(buf, c.Column[i])
		buf = putBytes(buf, c.KzgCommitments[i])
		buf = putBytes(buf, c.KzgProofs[i])
	}
	return buf
}

func decodeColumn(buf []byte) (blocks.ROColumn, error) {
	if len(buf) < 96 {
		return blocks.ROColumn{}, errors.New("filesystem: truncated column record")
	}
	var root, parent [32]byte
	copy(root[:], buf[0:32])
	copy(parent[:], buf[32:64])
	index := binary.LittleEndian.Uint64(buf[64:72])
	slot := binary.LittleEndian.Uint64(buf[72:80])
	proposer := binary.LittleEndian.Uint64(buf[80:88])
	n := binary.LittleEndian.Uint64(buf[88:96])
	rest := buf[96:]

	column := make([][]byte, 0, n)
	commitments := make([][]byte, 0, n)
	proofs := make([][]byte, 0, n)
	for i := uint64(0); i < n; i++ {
		var cell, commitment, proof []byte
		var err error
		cell, rest, err = takeBytes(rest)
		if err != nil {
			return blocks.ROColumn{}, err
		}
		commitment, rest, err = takeBytes(rest)
		if err != nil {
			return blocks.ROColumn{}, err
		}
		proof, rest, err = takeBytes(rest)
		if err != nil {
			return blocks.ROColumn{}, err
		}
		column = append(column, cell)
		commitments = append(commitments, commitment)
		proofs = append(proofs, proof)
	}
	return blocks.NewROColumn(root, index, primitives.Slot(slot), primitives.ValidatorIndex(proposer), parent, column, commitments, proofs)
}
