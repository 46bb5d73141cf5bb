package core

import (
	"encoding/json"
	"testing"
)

func leavesOf(n int) [][]byte {
	out := make([][]byte, n)
	for i := range out {
		out[i] = []byte{byte(i), byte(i >> 8)}
	}
	return out
}

// TestMerkleProofEveryLeafVerifies verifies every leaf's authentication
// path reconstructs the tree root, across both even and odd leaf counts
// (odd counts exercise the lone-node promotion rule).
func TestMerkleProofEveryLeafVerifies(t *testing.T) {
	for _, n := range []int{1, 2, 3, 5, 7, 8, 15, 16, 50} {
		leaves := leavesOf(n)
		for i := 0; i < n; i++ {
			proof, root, err := MerkleProof(leaves, uint32(i))
			if err != nil {
				t.Fatalf("n=%d index=%d: proof error: %v", n, i, err)
			}
			if !VerifyMerklePath(root, leaves[i], proof, uint32(i), n) {
				t.Fatalf("n=%d index=%d: proof did not verify", n, i)
			}
		}
	}
}

// TestMerkleOddNodePromotedUnchanged verifies a three-leaf tree's odd last
// node is carried to the next level unchanged rather than self-paired and
// re-hashed.
func TestMerkleOddNodePromotedUnchanged(t *testing.T) {
	leaves := leavesOf(3)
	tree, err := BuildMerkleTree(leaves)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	// 3 leaves -> 2 nodes -> 1 root: three levels in all.
	if len(tree) != 3 {
		t.Fatalf("expected 3 levels for 3 leaves, got %d", len(tree))
	}
	// level 0 has 3 leaf hashes; level 1 should have 2 nodes: the hash of
	// (leaf0,leaf1) and leaf2's hash promoted unchanged.
	if len(tree[1]) != 2 {
		t.Fatalf("level 1 length = %d, want 2", len(tree[1]))
	}
	if tree[1][1] != tree[0][2] {
		t.Fatalf("odd last node was not promoted unchanged: %x vs %x", tree[1][1], tree[0][2])
	}
}

// TestMerkleProofTamperDetection verifies a mutated proof or leaf fails
// verification.
func TestMerkleProofTamperDetection(t *testing.T) {
	leaves := leavesOf(10)
	proof, root, err := MerkleProof(leaves, 4)
	if err != nil {
		t.Fatalf("proof: %v", err)
	}
	if !VerifyMerklePath(root, leaves[4], proof, 4, 10) {
		t.Fatalf("valid proof failed to verify")
	}

	// Tamper with the leaf.
	tampered := append([]byte{}, leaves[4]...)
	tampered[0] ^= 0xFF
	if VerifyMerklePath(root, tampered, proof, 4, 10) {
		t.Fatalf("tampered leaf verified")
	}

	// Tamper with a proof step's hash.
	tamperedProof := append([]MerkleProofStep{}, proof...)
	tamperedProof[0].Hash[0] ^= 0xFF
	if VerifyMerklePath(root, leaves[4], tamperedProof, 4, 10) {
		t.Fatalf("tampered proof verified")
	}

	// Wrong index.
	if VerifyMerklePath(root, leaves[4], proof, 5, 10) {
		t.Fatalf("proof verified against the wrong index")
	}

	// Truncated proof.
	if len(proof) > 0 && VerifyMerklePath(root, leaves[4], proof[:len(proof)-1], 4, 10) {
		t.Fatalf("truncated proof verified")
	}
}

// TestMerkleProofStepJSONHexRoundTrip verifies proof steps marshal as
// {hash, position} with a hex-encoded hash, and decode back losslessly.
func TestMerkleProofStepJSONHexRoundTrip(t *testing.T) {
	leaves := leavesOf(6)
	proof, _, err := MerkleProof(leaves, 2)
	if err != nil {
		t.Fatalf("proof: %v", err)
	}
	if len(proof) == 0 {
		t.Fatalf("expected a non-empty proof")
	}

	b, err := json.Marshal(proof[0])
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var wire map[string]any
	if err := json.Unmarshal(b, &wire); err != nil {
		t.Fatalf("unmarshal wire: %v", err)
	}
	h, ok := wire["hash"].(string)
	if !ok || len(h) != 64 {
		t.Fatalf("hash on the wire = %v, want 64 hex chars", wire["hash"])
	}

	var decoded MerkleProofStep
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded != proof[0] {
		t.Fatalf("round trip mismatch: %+v vs %+v", decoded, proof[0])
	}

	if err := json.Unmarshal([]byte(`{"hash":"abcd","position":"left"}`), &decoded); err == nil {
		t.Fatalf("short hash was accepted")
	}
}
