package blockchain

import (
	"time"

	"github.com/niropok/sidechain/internal/core"
)

// CreateGenesisBlock returns the id-1 block every node admits
// unconditionally (spec section 4.7). Genesis carries no transactions,
// no certificate, and a zero prev-hash; its proposer fields are left
// empty since no hash-chain reveal precedes epoch 0.
func CreateGenesisBlock() *core.Block {
	return &core.Block{
		ID:              1,
		PrevHash:        core.Hash32{},
		MerkleRootOfTxs: core.ComputeMerkleRootOfTxs(nil),
		Timestamp:       time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC).Unix(),
		Txs:             nil,
	}
}
