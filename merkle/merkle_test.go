package merkle

import (
	"testing"

	"github.com/attestry/provenance-backend/hasher"
	"github.com/attestry/provenance-backend/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func leavesFor(items ...string) []interfaces.Digest {
	leaves := make([]interfaces.Digest, len(items))
	for i, item := range items {
		leaves[i] = hasher.Sum([]byte(item))
	}
	return leaves
}

func TestBuild_EmptyLeaves(t *testing.T) {
	_, err := Build(nil)
	assert.ErrorIs(t, err, ErrEmptyTree)

	_, err = Build([]interfaces.Digest{})
	assert.ErrorIs(t, err, ErrEmptyTree)
}

func TestBuild_SingleLeaf(t *testing.T) {
	leaf := hasher.Sum([]byte("solo"))
	tree, err := Build([]interfaces.Digest{leaf})
	require.NoError(t, err)

	assert.Equal(t, 1, tree.LeafCount())
	assert.Equal(t, leaf.Bytes(), tree.Root().Bytes(), "single-leaf root is the leaf itself")

	proof, err := tree.Prove(0)
	require.NoError(t, err)
	assert.Empty(t, proof)
	assert.True(t, Verify(leaf, proof, tree.Root()))
}

func TestProveVerify_AllIndices(t *testing.T) {
	// Cover even, odd and power-of-two leaf counts so the duplicate-last
	// padding path is exercised on both sides.
	for _, n := range []int{1, 2, 3, 4, 5, 6, 7, 8, 13} {
		items := make([]string, n)
		for i := range items {
			items[i] = string(rune('a' + i))
		}
		leaves := leavesFor(items...)

		tree, err := Build(leaves)
		require.NoError(t, err)

		for i := 0; i < n; i++ {
			proof, err := tree.Prove(i)
			require.NoError(t, err, "size %d index %d", n, i)
			assert.True(t, Verify(leaves[i], proof, tree.Root()), "size %d index %d should verify", n, i)
		}
	}
}

func TestProve_InvalidIndex(t *testing.T) {
	tree, err := Build(leavesFor("a", "b", "c"))
	require.NoError(t, err)

	_, err = tree.Prove(-1)
	assert.ErrorIs(t, err, ErrInvalidIndex)

	_, err = tree.Prove(3)
	assert.ErrorIs(t, err, ErrInvalidIndex)
}

func TestRoot_ChangesWithLeafMutation(t *testing.T) {
	before, err := Build(leavesFor("a", "b", "c"))
	require.NoError(t, err)

	after, err := Build(leavesFor("a", "b", "d"))
	require.NoError(t, err)

	assert.NotEqual(t, before.Root(), after.Root(), "replacing one leaf must change the root")
}

func TestVerify_WrongLeafForProof(t *testing.T) {
	leaves := leavesFor("a", "b", "c")
	tree, err := Build(leaves)
	require.NoError(t, err)

	proof, err := tree.Prove(2)
	require.NoError(t, err)

	assert.True(t, Verify(leaves[2], proof, tree.Root()))
	assert.False(t, Verify(leaves[0], proof, tree.Root()), "proof for index 2 must not verify leaf 0")
}

func TestVerify_MalformedProof(t *testing.T) {
	leaves := leavesFor("a", "b", "c", "d")
	tree, err := Build(leaves)
	require.NoError(t, err)

	proof, err := tree.Prove(1)
	require.NoError(t, err)

	// Truncated proof.
	assert.False(t, Verify(leaves[1], proof[:1], tree.Root()))

	// Extended proof.
	extended := append(Proof{}, proof...)
	extended = append(extended, hasher.Sum([]byte("junk")))
	assert.False(t, Verify(leaves[1], extended, tree.Root()))

	// Corrupted sibling.
	corrupt := append(Proof{}, proof...)
	corrupt[0][0] ^= 0xff
	assert.False(t, Verify(leaves[1], corrupt, tree.Root()))

	// Empty proof against a multi-leaf root.
	assert.False(t, Verify(leaves[1], nil, tree.Root()))
}

func TestVerify_OrderIndependentPairing(t *testing.T) {
	// Sorted-pair hashing: a two-leaf tree has the same root regardless of
	// which side each leaf was on when hashed, so the sibling alone suffices.
	a := hasher.Sum([]byte("a"))
	b := hasher.Sum([]byte("b"))

	tree, err := Build([]interfaces.Digest{a, b})
	require.NoError(t, err)

	assert.True(t, Verify(a, Proof{b}, tree.Root()))
	assert.True(t, Verify(b, Proof{a}, tree.Root()))
}

func TestTree_DuplicateLeavesPermitted(t *testing.T) {
	leaves := leavesFor("same", "same", "same")
	tree, err := Build(leaves)
	require.NoError(t, err)

	for i := range leaves {
		proof, err := tree.Prove(i)
		require.NoError(t, err)
		assert.True(t, Verify(leaves[i], proof, tree.Root()))
	}
}
