// Package merkle builds binary hash trees over ordered sets of content
// digests and produces membership proofs verifiable against the root alone.
//
// Pairings use sorted-pair hashing: the two children are ordered by byte
// value before concatenation, so a verifier only needs the sibling value,
// never its side. Odd node counts duplicate the last node at each level
// (duplicate-last padding), applied identically during construction, proof
// generation, and verification.
package merkle

import (
	"bytes"
	"crypto/sha256"
	"errors"

	"github.com/attestry/provenance-backend/interfaces"
)

var (
	// ErrEmptyTree is returned when building a tree from zero leaves.
	ErrEmptyTree = errors.New("empty merkle tree")

	// ErrInvalidIndex is returned for a leaf index outside the tree.
	ErrInvalidIndex = errors.New("invalid leaf index")
)

// Proof is the ordered sequence of sibling digests from leaf to root.
type Proof []interfaces.Digest

// Tree is an immutable binary Merkle tree over an ordered leaf list.
// Duplicate leaves are permitted; order is significant for proof indices.
// Once built, a Tree is read-only and safe for concurrent use.
type Tree struct {
	levels [][]interfaces.Digest // levels[0] is the leaf level
}

// nodeHash hashes a sorted pair of child digests.
func nodeHash(a, b interfaces.Digest) interfaces.Digest {
	if bytes.Compare(a[:], b[:]) > 0 {
		a, b = b, a
	}
	h := sha256.New()
	h.Write(a[:])
	h.Write(b[:])

	var out interfaces.Digest
	copy(out[:], h.Sum(nil))
	return out
}

// Build constructs a tree from the ordered leaf digests. Fails with
// ErrEmptyTree if leaves is empty.
func Build(leaves []interfaces.Digest) (*Tree, error) {
	if len(leaves) == 0 {
		return nil, ErrEmptyTree
	}

	level := make([]interfaces.Digest, len(leaves))
	copy(level, leaves)

	levels := [][]interfaces.Digest{level}
	for len(level) > 1 {
		if len(level)%2 == 1 {
			level = append(level, level[len(level)-1])
		}
		next := make([]interfaces.Digest, 0, len(level)/2)
		for i := 0; i < len(level); i += 2 {
			next = append(next, nodeHash(level[i], level[i+1]))
		}
		levels = append(levels, next)
		level = next
	}

	return &Tree{levels: levels}, nil
}

// Root returns the tree's root digest.
func (t *Tree) Root() interfaces.MerkleRoot {
	top := t.levels[len(t.levels)-1]
	return interfaces.MerkleRoot(top[0])
}

// LeafCount returns the number of leaves the tree was built over.
func (t *Tree) LeafCount() int {
	return len(t.levels[0])
}

// Leaf returns the leaf digest at index.
func (t *Tree) Leaf(index int) (interfaces.Digest, error) {
	if index < 0 || index >= len(t.levels[0]) {
		return interfaces.Digest{}, ErrInvalidIndex
	}
	return t.levels[0][index], nil
}

// Prove produces a membership proof for the leaf at index. Fails with
// ErrInvalidIndex if index is not a valid leaf position.
func (t *Tree) Prove(index int) (Proof, error) {
	if index < 0 || index >= len(t.levels[0]) {
		return nil, ErrInvalidIndex
	}

	proof := make(Proof, 0, len(t.levels)-1)
	for _, level := range t.levels[:len(t.levels)-1] {
		sibling := index ^ 1
		if sibling >= len(level) {
			// Odd level: the last node pairs with itself.
			sibling = index
		}
		proof = append(proof, level[sibling])
		index /= 2
	}
	return proof, nil
}

// Verify recomputes the root from leaf and proof and compares it byte-exact
// to root. Proof inputs come from untrusted sources: a malformed proof of any
// shape verifies false, it never panics and never returns an error.
func Verify(leaf interfaces.Digest, proof Proof, root interfaces.MerkleRoot) bool {
	acc := leaf
	for _, sibling := range proof {
		acc = nodeHash(acc, sibling)
	}
	return bytes.Equal(acc[:], root[:])
}
