// Package merkle implements the binary Merkle commitment with sorted-
// position multi-proofs described in spec section 4.4: leaves are
// SHA3-256 digests of the canonical encoding of each entity; proofs carry
// sibling hashes in level order for a sorted set of leaf positions.
package merkle

import (
	"bytes"
	"sort"

	"golang.org/x/crypto/sha3"

	"github.com/niropok/sidechain/internal/consensuserrors"
)

// Digest is a SHA3-256 output.
type Digest [32]byte

func hashLeaf(data []byte) Digest {
	// Domain-separate leaves from internal nodes so a leaf can never be
	// replayed as an internal node and vice versa (second-preimage
	// resistance for the tree structure itself).
	buf := make([]byte, 0, len(data)+1)
	buf = append(buf, 0x00)
	buf = append(buf, data...)
	return sha3.Sum256(buf)
}

func hashNode(l, r Digest) Digest {
	buf := make([]byte, 0, 65)
	buf = append(buf, 0x01)
	buf = append(buf, l[:]...)
	buf = append(buf, r[:]...)
	return sha3.Sum256(buf)
}

// Tree is a binary Merkle tree with the leaf layer padded to a power of
// two by duplicating the final leaf, the common rs_merkle-style scheme.
type Tree struct {
	levels [][]Digest // levels[0] = leaves (padded), levels[last] = root
	n      int        // original, unpadded leaf count
}

// Build constructs a tree over the canonical byte encodings of items, in
// the given order; that order is the leaf index space used by Prove.
func Build(items [][]byte) (*Tree, error) {
	if len(items) == 0 {
		return nil, consensuserrors.ErrEmptyLeafSet
	}
	leaves := make([]Digest, len(items))
	for i, it := range items {
		leaves[i] = hashLeaf(it)
	}
	return buildFromLeaves(leaves, len(items)), nil
}

func buildFromLeaves(leaves []Digest, n int) *Tree {
	padded := make([]Digest, len(leaves))
	copy(padded, leaves)
	for !isPow2(len(padded)) {
		padded = append(padded, padded[len(padded)-1])
	}
	levels := [][]Digest{padded}
	cur := padded
	for len(cur) > 1 {
		next := make([]Digest, len(cur)/2)
		for i := range next {
			next[i] = hashNode(cur[2*i], cur[2*i+1])
		}
		levels = append(levels, next)
		cur = next
	}
	return &Tree{levels: levels, n: n}
}

func isPow2(n int) bool { return n != 0 && n&(n-1) == 0 }

// Root returns the tree's root digest.
func (t *Tree) Root() Digest {
	last := t.levels[len(t.levels)-1]
	return last[0]
}

// Len returns the number of original (unpadded) leaves.
func (t *Tree) Len() int { return t.n }

// Proof is a multi-position Merkle proof: the sibling digests needed to
// recompute the root from the leaves at Positions, supplied level by
// level, ordered left-to-right within each level.
type Proof struct {
	Positions []int
	Siblings  [][]Digest // Siblings[level] = sibling digests needed at that level
}

// Prove returns a multi-proof for the given sorted, ascending leaf
// positions.
func (t *Tree) Prove(positions []int) (*Proof, error) {
	if !sort.IntsAreSorted(positions) {
		return nil, consensuserrors.ErrPositionsUnsorted
	}
	for _, p := range positions {
		if p < 0 || p >= t.n {
			return nil, consensuserrors.ErrPositionOutOfRange
		}
	}
	proof := &Proof{Positions: append([]int(nil), positions...)}
	known := append([]int(nil), positions...)
	for level := 0; level < len(t.levels)-1; level++ {
		cur := t.levels[level]
		knownSet := make(map[int]bool, len(known))
		for _, idx := range known {
			knownSet[idx] = true
		}
		var siblings []Digest
		nextSet := make(map[int]bool)
		for _, idx := range known {
			sib := idx ^ 1
			if !knownSet[sib] {
				siblings = append(siblings, cur[sib])
			}
			nextSet[idx/2] = true
		}
		proof.Siblings = append(proof.Siblings, siblings)
		known = sortedKeys(nextSet)
	}
	return proof, nil
}

func sortedKeys(set map[int]bool) []int {
	out := make([]int, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}

// Verify checks that leaves (the canonical encodings at Positions, in
// the same order; Verify hashes them itself) recombine with proof to root, given totalLeaves as the
// original (unpadded) leaf count.
func Verify(root Digest, proof *Proof, totalLeaves int, leaves [][]byte) error {
	if len(proof.Positions) != len(leaves) {
		return consensuserrors.ErrInvalidProof
	}
	if !sort.IntsAreSorted(proof.Positions) {
		return consensuserrors.ErrPositionsUnsorted
	}

	known := make(map[int]Digest, len(leaves))
	order := make([]int, len(proof.Positions))
	copy(order, proof.Positions)
	for i, pos := range proof.Positions {
		if pos < 0 || pos >= totalLeaves {
			return consensuserrors.ErrPositionOutOfRange
		}
		known[pos] = hashLeaf(leaves[i])
	}

	for level := 0; level < len(proof.Siblings); level++ {
		siblings := proof.Siblings[level]
		sIdx := 0
		next := make(map[int]Digest)
		nextOrderSet := make(map[int]bool)
		var nextOrder []int
		for _, idx := range order {
			sib := idx ^ 1
			var sibDigest Digest
			if sv, ok := known[sib]; ok {
				sibDigest = sv
			} else {
				if sIdx >= len(siblings) {
					return consensuserrors.ErrInvalidProof
				}
				sibDigest = siblings[sIdx]
				sIdx++
			}
			var left, right Digest
			if idx%2 == 0 {
				left, right = known[idx], sibDigest
			} else {
				left, right = sibDigest, known[idx]
			}
			next[idx/2] = hashNode(left, right)
			if !nextOrderSet[idx/2] {
				nextOrderSet[idx/2] = true
				nextOrder = append(nextOrder, idx/2)
			}
		}
		if sIdx != len(siblings) {
			return consensuserrors.ErrInvalidProof
		}
		known = next
		sort.Ints(nextOrder)
		order = nextOrder
	}
	if len(known) != 1 || len(order) != 1 {
		return consensuserrors.ErrInvalidProof
	}
	got := known[order[0]]
	if !bytes.Equal(got[:], root[:]) {
		return consensuserrors.ErrInvalidProof
	}
	return nil
}
