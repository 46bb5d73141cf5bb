package core

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
)

// MerkleProofStep is one sibling hash and its position relative to the
// node being authenticated, consumed bottom-up during verification.
type MerkleProofStep struct {
	Hash     [32]byte
	Position string // "left" or "right"
}

type merkleProofStepWire struct {
	Hash     string `json:"hash"`
	Position string `json:"position"`
}

// MarshalJSON encodes the sibling hash as lowercase hex, the form proof
// artifacts carry on the wire.
func (s MerkleProofStep) MarshalJSON() ([]byte, error) {
	return json.Marshal(merkleProofStepWire{
		Hash:     hex.EncodeToString(s.Hash[:]),
		Position: s.Position,
	})
}

func (s *MerkleProofStep) UnmarshalJSON(b []byte) error {
	var wire merkleProofStepWire
	if err := json.Unmarshal(b, &wire); err != nil {
		return err
	}
	raw, err := hex.DecodeString(wire.Hash)
	if err != nil {
		return fmt.Errorf("merkle proof hash: %w", err)
	}
	if len(raw) != len(s.Hash) {
		return fmt.Errorf("merkle proof hash must be %d bytes, got %d", len(s.Hash), len(raw))
	}
	copy(s.Hash[:], raw)
	s.Position = wire.Position
	return nil
}

// buildMerkleLevels returns the level-by-level nodes of a Merkle tree over
// leaves. An odd last node is promoted unchanged to the next level, never
// self-paired and re-hashed.
func buildMerkleLevels(leaves [][32]byte) ([][][32]byte, error) {
	if len(leaves) == 0 {
		return nil, errors.New("no leaves")
	}

	level := leaves
	tree := [][][32]byte{level}

	for len(level) > 1 {
		next := make([][32]byte, 0, (len(level)+1)/2)
		for i := 0; i+1 < len(level); i += 2 {
			next = append(next, sha256.Sum256(append(append([]byte{}, level[i][:]...), level[i+1][:]...)))
		}
		if len(level)%2 == 1 {
			next = append(next, level[len(level)-1])
		}
		tree = append(tree, next)
		level = next
	}

	return tree, nil
}

// BuildMerkleTree hashes each leaf with SHA-256 and builds the tree over
// those hashes, returning every level; the last level holds the single
// root.
func BuildMerkleTree(leaves [][]byte) ([][][32]byte, error) {
	if len(leaves) == 0 {
		return nil, errors.New("no leaves")
	}
	hashed := make([][32]byte, len(leaves))
	for i, l := range leaves {
		hashed[i] = sha256.Sum256(l)
	}
	return buildMerkleLevels(hashed)
}

// levelLength returns the length of the Merkle level at depth d, given n
// leaves, without rebuilding the tree: each level halves (rounding up) from
// the one below, since an odd last node merely carries forward.
func levelLength(n, d int) int {
	for i := 0; i < d; i++ {
		n = (n + 1) / 2
	}
	return n
}

// MerkleProof returns the authentication path for the leaf at index, and
// the tree's root. A level whose length is odd and whose current node is
// the lone last one contributes no proof step: it is promoted unchanged,
// not combined with a sibling.
func MerkleProof(leaves [][]byte, index uint32) ([]MerkleProofStep, [32]byte, error) {
	if len(leaves) == 0 {
		return nil, [32]byte{}, errors.New("no leaves")
	}
	if int(index) >= len(leaves) {
		return nil, [32]byte{}, errors.New("index out of range")
	}

	hashed := make([][32]byte, len(leaves))
	for i, l := range leaves {
		hashed[i] = sha256.Sum256(l)
	}
	tree, err := buildMerkleLevels(hashed)
	if err != nil {
		return nil, [32]byte{}, err
	}

	var proof []MerkleProofStep
	idx := int(index)
	for level := 0; level < len(tree)-1; level++ {
		length := len(tree[level])
		if length%2 == 1 && idx == length-1 {
			idx /= 2
			continue
		}
		if idx%2 == 0 {
			proof = append(proof, MerkleProofStep{Hash: tree[level][idx+1], Position: "right"})
		} else {
			proof = append(proof, MerkleProofStep{Hash: tree[level][idx-1], Position: "left"})
		}
		idx /= 2
	}

	root := tree[len(tree)-1][0]
	return proof, root, nil
}

// VerifyMerklePath reconstructs the root from leaf, its index, the total
// leaf count (needed to know which levels promote a lone node rather than
// consuming a proof step), and the authentication path, then compares it
// to root.
func VerifyMerklePath(root [32]byte, leaf []byte, proof []MerkleProofStep, index uint32, totalLeaves int) bool {
	h := sha256.Sum256(leaf)
	hash := h[:]
	idx := int(index)
	depth := 0
	step := 0

	for levelLength(totalLeaves, depth) > 1 {
		length := levelLength(totalLeaves, depth)
		if length%2 == 1 && idx == length-1 {
			idx /= 2
			depth++
			continue
		}
		if step >= len(proof) {
			return false
		}
		p := proof[step]
		step++
		var pair []byte
		if p.Position == "right" {
			pair = append(append([]byte{}, hash...), p.Hash[:]...)
		} else {
			pair = append(append([]byte{}, p.Hash[:]...), hash...)
		}
		sum := sha256.Sum256(pair)
		hash = sum[:]
		idx /= 2
		depth++
	}

	return step == len(proof) && bytes.Equal(hash, root[:])
}
