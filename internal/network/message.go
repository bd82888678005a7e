// Package network dispatches inbound gossip messages to the blockchain
// driver and implements the outbound Broadcaster it depends on, adapted
// from the teacher's simulated peer-to-peer network.
package network

import (
	"encoding/json"

	"github.com/niropok/sidechain/internal/core"
)

// Topic names are the wire identifiers of spec section 6.
const (
	TopicGenesis           = "genesis"
	TopicHashChains        = "hash_chains"
	TopicHashChainMessages = "hash_chain_messages"
	TopicBlocks            = "blocks"
	TopicBlockSignatures   = "block_signatures"
	TopicTransactions      = "transactions"
	TopicChains            = "chains"
)

// Envelope is the tagged wire message every topic's payload travels in.
type Envelope struct {
	Topic   string          `json:"topic"`
	Payload json.RawMessage `json:"payload"`
}

// GenesisMessage announces a node's initial self-stake, per
// SPEC_FULL.md's supplemented genesis feature (original_source/genesis.rs).
type GenesisMessage struct {
	StakeTx core.Transaction `json:"stake_tx"`
}

// HashChainCommitment is published once per epoch per validator on the
// hash_chains topic.
type HashChainCommitment struct {
	CommitHex string `json:"hash_chain_index"`
	Sender    string `json:"sender"`
}

// HashChainRevealMessage is published on each preimage reveal, on the
// hash_chain_messages topic.
type HashChainRevealMessage struct {
	RevealHex string `json:"hash"`
	Sender    string `json:"sender"`
	Epoch     uint64 `json:"epoch"`
}

// ChainRequest/ChainResponse are the sync topic's wire types. spec
// section 6 marks chain sync "unimplemented here"; these types exist so
// the topic is addressable, but the handler only logs
// ErrSyncNotImplemented and drops the message; it sends no response and
// serves no history.
type ChainRequest struct {
	FromPeerID string `json:"from_peer_id"`
}

type ChainResponse struct {
	Blocks     []core.Block       `json:"blocks"`
	Txs        []core.Transaction `json:"txs"`
	FromPeerID string             `json:"from_peer_id"`
}
