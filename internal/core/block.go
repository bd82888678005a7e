package core

import (
	"encoding/binary"

	"golang.org/x/crypto/sha3"

	"github.com/niropok/sidechain/internal/ccok"
)

// Block is one slot's proposal, per spec section 3. `id` is 1 for genesis,
// monotonic thereafter.
//
// spec.md section 9 flags that the source's block hash equals the tx
// merkle root, so an empty-tx block and any other empty-tx block at any
// height collide; this implementation follows the spec's own recommended
// fix and hashes the full header (id, prev_hash, timestamp, proposer,
// slot_seed, tx_root) instead.
type Block struct {
	ID                uint64
	PrevHash          Hash32
	MerkleRootOfTxs   Hash32
	Timestamp         int64
	Txs               []Transaction
	ProposerAddress   string
	ProposerRevealHex string
	SlotSeed          [32]byte
	Certificate       *ccok.Certificate
}

// HeaderHash computes the block's identity hash over its header fields,
// deliberately excluding the certificate (which is attached after the
// block it references was already agreed on) and excluding the tx bodies
// themselves beyond their merkle root.
func (b *Block) HeaderHash() Hash32 {
	buf := make([]byte, 0, 8+32+8+len(b.ProposerAddress)+32+32)
	var b8 [8]byte
	binary.BigEndian.PutUint64(b8[:], b.ID)
	buf = append(buf, b8[:]...)
	buf = append(buf, b.PrevHash[:]...)
	binary.BigEndian.PutUint64(b8[:], uint64(b.Timestamp))
	buf = append(buf, b8[:]...)
	buf = append(buf, []byte(b.ProposerAddress)...)
	buf = append(buf, b.SlotSeed[:]...)
	buf = append(buf, b.MerkleRootOfTxs[:]...)
	return sha3.Sum256(buf)
}

// ComputeMerkleRootOfTxs hashes the transactions' own hashes into a
// Merkle root; an empty tx list yields the all-zero root, matching
// spec.md's description of the source's degenerate case (now harmless
// since HeaderHash no longer collides on it alone).
func ComputeMerkleRootOfTxs(txs []Transaction) Hash32 {
	if len(txs) == 0 {
		return Hash32{}
	}
	leaves := make([][]byte, len(txs))
	for i, tx := range txs {
		h := tx.Hash
		leaves[i] = h[:]
	}
	return merkleRootOf(leaves)
}

// merkleRootOf is a minimal standalone root computation kept local to
// core so this package does not need to depend on internal/merkle's
// proof machinery just to fold a list of hashes into a root; blocks never
// need Merkle multi-proofs over their own tx list in this spec.
func merkleRootOf(leaves [][]byte) Hash32 {
	level := make([]Hash32, len(leaves))
	for i, l := range leaves {
		level[i] = sha3.Sum256(l)
	}
	for len(level) > 1 {
		if len(level)%2 == 1 {
			level = append(level, level[len(level)-1])
		}
		next := make([]Hash32, len(level)/2)
		for i := range next {
			buf := make([]byte, 0, 64)
			buf = append(buf, level[2*i][:]...)
			buf = append(buf, level[2*i+1][:]...)
			next[i] = sha3.Sum256(buf)
		}
		level = next
	}
	return level[0]
}
