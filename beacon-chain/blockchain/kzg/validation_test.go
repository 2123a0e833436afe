package kzg

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"testing"

	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	GoKZG "github.com/crate-crypto/go-kzg-4844"

	"github.com/ethwake/beacon-core/consensus-types/blocks"
	"github.com/ethwake/beacon-core/testing/require"
)

func deterministicRandomness(seed int64) [32]byte {
	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.BigEndian, seed); err != nil {
		return [32]byte{}
	}
	return sha256.Sum256(buf.Bytes())
}

// getRandFieldElement returns a serialized random field element in big-endian.
func getRandFieldElement(seed int64) [32]byte {
	b := deterministicRandomness(seed)
	var r fr.Element
	r.SetBytes(b[:])
	return GoKZG.SerializeScalar(r)
}

// getRandBlob returns a random blob using seed as entropy.
func getRandBlob(seed int64) GoKZG.Blob {
	var blob GoKZG.Blob
	bytesPerBlob := GoKZG.ScalarsPerBlob * GoKZG.SerializedScalarSize
	for i := 0; i < bytesPerBlob; i += GoKZG.SerializedScalarSize {
		fieldElementBytes := getRandFieldElement(seed + int64(i))
		copy(blob[i:i+GoKZG.SerializedScalarSize], fieldElementBytes[:])
	}
	return blob
}

func generateCommitmentAndProof(blob GoKZG.Blob) (GoKZG.KZGCommitment, GoKZG.KZGProof, error) {
	commitment, err := kzgContext.BlobToKZGCommitment(blob, 0)
	if err != nil {
		return GoKZG.KZGCommitment{}, GoKZG.KZGProof{}, err
	}
	proof, err := kzgContext.ComputeBlobKZGProof(blob, commitment, 0)
	if err != nil {
		return GoKZG.KZGCommitment{}, GoKZG.KZGProof{}, err
	}
	return commitment, proof, err
}

func TestVerify_Empty(t *testing.T) {
	require.NoError(t, Start())
	require.NoError(t, Verify())
}

func TestBytesToAny(t *testing.T) {
	b := []byte{0x01, 0x02}
	blob := GoKZG.Blob{0x01, 0x02}
	commitment := GoKZG.KZGCommitment{0x01, 0x02}
	proof := GoKZG.KZGProof{0x01, 0x02}
	require.DeepEqual(t, blob, bytesToBlob(b))
	require.DeepEqual(t, commitment, bytesToCommitment(b))
	require.DeepEqual(t, proof, bytesToKZGProof(b))
}

func TestVerify_RoundTrip(t *testing.T) {
	require.NoError(t, Start())
	blob := getRandBlob(123)
	commitment, proof, err := generateCommitmentAndProof(blob)
	require.NoError(t, err)

	sc, err := blocks.NewROBlob([32]byte{}, 0, 0, 0, [32]byte{}, blob[:], commitment[:], proof[:])
	require.NoError(t, err)
	require.NoError(t, Verify(sc))
}
