package core

import "testing"

func TestHeaderHashDoesNotCollideOnEmptyTxs(t *testing.T) {
	b1 := &Block{ID: 5, Timestamp: 100, ProposerAddress: "v1"}
	b2 := &Block{ID: 6, Timestamp: 100, ProposerAddress: "v1"}
	b1.MerkleRootOfTxs = ComputeMerkleRootOfTxs(nil)
	b2.MerkleRootOfTxs = ComputeMerkleRootOfTxs(nil)
	if b1.HeaderHash() == b2.HeaderHash() {
		t.Fatal("distinct blocks with empty tx lists must not collide on header hash")
	}
}

func TestMerkleRootOfTxsEmptyIsZero(t *testing.T) {
	root := ComputeMerkleRootOfTxs(nil)
	var zero Hash32
	if root != zero {
		t.Fatal("empty tx list should yield all-zero merkle root")
	}
}
