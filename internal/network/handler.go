package network

import (
	"encoding/json"

	"github.com/niropok/sidechain/internal/blockchain"
	"github.com/niropok/sidechain/internal/consensuserrors"
	"github.com/niropok/sidechain/internal/core"
	"github.com/niropok/sidechain/internal/hashchain"
	"github.com/niropok/sidechain/internal/logging"
)

var log = logging.Logger("NTWK")

// ErrSyncNotImplemented is logged when an inbound chain-sync message is
// dropped; fork choice and chain sync are explicit Non-goals (spec.md
// section 1/9). It is the same value as consensuserrors.ErrMalformedMessage.
var ErrSyncNotImplemented = consensuserrors.ErrMalformedMessage

// Handler dispatches inbound gossip envelopes to the blockchain driver,
// generalizing the teacher's single-type message switch to the full
// topic set of spec section 6.
type Handler struct {
	chain *blockchain.Blockchain
}

// NewHandler binds a dispatcher to chain.
func NewHandler(chain *blockchain.Blockchain) *Handler {
	return &Handler{chain: chain}
}

// Dispatch decodes env.Payload according to env.Topic and routes it to
// the matching driver operation. Malformed messages are logged and
// dropped, never causing a crash, per spec section 7.
func (h *Handler) Dispatch(env Envelope) {
	switch env.Topic {
	case TopicGenesis:
		h.onGenesis(env.Payload)
	case TopicHashChains:
		h.onHashChainCommitment(env.Payload)
	case TopicHashChainMessages:
		h.onHashChainReveal(env.Payload)
	case TopicBlocks:
		h.onBlock(env.Payload)
	case TopicBlockSignatures:
		h.onBlockSignature(env.Payload)
	case TopicTransactions:
		h.onTransaction(env.Payload)
	case TopicChains:
		h.onChainSync(env.Payload)
	default:
		log.Warnf("dropping message on unknown topic %q", env.Topic)
	}
}

func (h *Handler) onGenesis(payload json.RawMessage) {
	var msg GenesisMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		log.Warnf("malformed genesis message: %v", err)
		return
	}
	h.chain.Validators().Upsert(msg.StakeTx.Sender, msg.StakeTx.Amount)
}

func (h *Handler) onHashChainCommitment(payload json.RawMessage) {
	var msg HashChainCommitment
	if err := json.Unmarshal(payload, &msg); err != nil {
		log.Warnf("malformed hash-chain commitment: %v", err)
		return
	}
	commit, err := parseDigestHex(msg.CommitHex)
	if err != nil {
		log.Warnf("malformed hash-chain commitment hex from %s: %v", msg.Sender, err)
		return
	}
	h.chain.Validators().SetCommitment(msg.Sender, commit)
}

func (h *Handler) onHashChainReveal(payload json.RawMessage) {
	var msg HashChainRevealMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		log.Warnf("malformed hash-chain reveal: %v", err)
		return
	}
	reveal, err := parseDigestHex(msg.RevealHex)
	if err != nil {
		log.Warnf("malformed hash-chain reveal hex from %s: %v", msg.Sender, err)
		return
	}
	acct, ok := h.chain.Validators().Get(msg.Sender)
	if !ok {
		log.Warnf("hash-chain reveal from unknown validator %s dropped", msg.Sender)
		return
	}
	if err := hashchain.Verify(acct.Commitment, msg.Epoch, reveal); err != nil {
		log.Warnf("hash-chain reveal from %s failed verification: %v", msg.Sender, err)
		return
	}
	h.chain.Validators().RecordReveal(msg.Sender, reveal)
}

func (h *Handler) onBlock(payload json.RawMessage) {
	var block core.Block
	if err := json.Unmarshal(payload, &block); err != nil {
		log.Warnf("malformed block message: %v", err)
		return
	}
	if block.ID == 1 {
		if err := h.chain.AdmitGenesis(&block); err != nil {
			log.Warnf("genesis admission failed: %v", err)
		}
		return
	}
	if err := h.chain.VerifyBlock(&block); err != nil {
		log.Warnf("block %d rejected: %v", block.ID, err)
		return
	}
	h.chain.ApplyBlock(&block)
	if _, err := h.chain.SignBlock(&block); err != nil {
		log.Warnf("failed to sign block %d: %v", block.ID, err)
	}
}

func (h *Handler) onBlockSignature(payload json.RawMessage) {
	var bsig core.BlockSignature
	if err := json.Unmarshal(payload, &bsig); err != nil {
		log.Warnf("malformed block signature: %v", err)
		return
	}
	h.chain.ReceiveSignature(&bsig)
}

func (h *Handler) onTransaction(payload json.RawMessage) {
	var tx core.Transaction
	if err := json.Unmarshal(payload, &tx); err != nil {
		log.Warnf("malformed transaction: %v", err)
		return
	}
	if pub, ok := h.chain.PublicKey(tx.Sender); ok {
		if err := tx.VerifySignature(pub); err != nil {
			log.Debugf("transaction %x from %s failed verification, dropped", tx.Hash, tx.Sender)
			return
		}
	}
	h.chain.Mempool().Add(&tx)
}

func (h *Handler) onChainSync(payload json.RawMessage) {
	var req ChainRequest
	if err := json.Unmarshal(payload, &req); err == nil && req.FromPeerID != "" {
		log.Debugf("chain sync requested by %s: %v", req.FromPeerID, ErrSyncNotImplemented)
		return
	}
	log.Debugf("chain sync response received and ignored: %v", ErrSyncNotImplemented)
}

func parseDigestHex(s string) (hashchain.Digest, error) {
	var d hashchain.Digest
	if len(s) != 64 {
		return d, consensuserrors.ErrMalformedMessage
	}
	for i := 0; i < 32; i++ {
		hi, ok1 := hexNibble(s[i*2])
		lo, ok2 := hexNibble(s[i*2+1])
		if !ok1 || !ok2 {
			return d, consensuserrors.ErrMalformedMessage
		}
		d[i] = hi<<4 | lo
	}
	return d, nil
}

func hexNibble(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	default:
		return 0, false
	}
}
