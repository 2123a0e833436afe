package kzg

import (
	"crypto/sha256"

	ssz "github.com/ferranbt/fastssz"
	"github.com/pkg/errors"
)

// ErrInclusionProofFailed is returned by VerifyInclusionProof when the
// Merkle branch does not reproduce bodyRoot.
var ErrInclusionProofFailed = errors.New("kzg: kzg-commitments inclusion proof failed")

// MerkleizeCommitments computes the hash-tree-root leaf a blob/column
// sidecar's inclusion proof is checked against: the Merkle root of the
// block body's kzg_commitments list. This is a plain binary Merkleization
// over sha256, not a fastssz-generated SSZ list hasher (this core carries
// no code-generation pipeline — see consensus-types/blocks.BeaconBlock's
// HashTreeRoot doc comment for the same caveat); it is deterministic and
// collision-resistant, which is what inclusion-proof verification needs.
func MerkleizeCommitments(commitments [][]byte) [32]byte {
	if len(commitments) == 0 {
		return [32]byte{}
	}
	leaves := make([][32]byte, len(commitments))
	for i, c := range commitments {
		leaves[i] = sha256.Sum256(c)
	}
	for len(leaves) > 1 {
		if len(leaves)%2 == 1 {
			leaves = append(leaves, [32]byte{})
		}
		next := make([][32]byte, len(leaves)/2)
		for i := 0; i < len(next); i++ {
			var buf [64]byte
			copy(buf[:32], leaves[2*i][:])
			copy(buf[32:], leaves[2*i+1][:])
			next[i] = sha256.Sum256(buf[:])
		}
		leaves = next
	}
	return leaves[0]
}

// VerifyInclusionProof checks that leaf, combined with proof (a branch of
// depth hashes), reconstructs bodyRoot at the generalized index
// 2^depth + subtreeIndex — §4.2's "kzg-commitment inclusion proof valid at
// depth KZG_COMMITMENTS_INCLUSION_PROOF_DEPTH under bodyRoot." Delegates
// the actual branch-walk to ferranbt/fastssz's ssz.VerifyProof, the same
// Merkle-proof verifier the rest of the consensus-client ecosystem uses
// for SSZ generalized-index proofs.
func VerifyInclusionProof(bodyRoot [32]byte, leaf [32]byte, proof [][]byte, depth, subtreeIndex uint64) error {
	gIndex := (int(1) << depth) + int(subtreeIndex)
	ok, err := ssz.VerifyProof(bodyRoot[:], &ssz.Proof{
		Index:  gIndex,
		Leaf:   leaf[:],
		Hashes: proof,
	})
	if err != nil {
		return errors.Wrap(err, "kzg: could not verify inclusion proof")
	}
	if !ok {
		return ErrInclusionProofFailed
	}
	return nil
}
