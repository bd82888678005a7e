// Package core defines the wire-level entities shared by the blockchain
// driver, mempool, and network layers: transactions, blocks, and block
// signatures, per spec section 3.
package core

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/crypto/sha3"

	"github.com/niropok/sidechain/internal/pqsig"
)

// TxKind is the closed transaction-kind enum of spec section 3.
type TxKind uint8

const (
	TxTransfer TxKind = iota
	TxStake
	TxUnstake
	TxCoinbase
	TxValidatorReward
	TxCommit
)

// String renders the kind for logs and error messages.
func (k TxKind) String() string {
	switch k {
	case TxTransfer:
		return "Transfer"
	case TxStake:
		return "Stake"
	case TxUnstake:
		return "Unstake"
	case TxCoinbase:
		return "Coinbase"
	case TxValidatorReward:
		return "ValidatorReward"
	case TxCommit:
		return "Commit"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(k))
	}
}

// Hash32 is a SHA3-256 digest.
type Hash32 [32]byte

// Hex returns the lowercase hex encoding of the digest.
func (h Hash32) Hex() string {
	const hexdigits = "0123456789abcdef"
	out := make([]byte, 64)
	for i, b := range h {
		out[i*2] = hexdigits[b>>4]
		out[i*2+1] = hexdigits[b&0x0f]
	}
	return string(out)
}

// Transaction is the fundamental unit of value transfer and state change.
type Transaction struct {
	Hash      Hash32
	Sender    string
	Recipient string
	Signature pqsig.Signature
	Amount    uint64
	Timestamp int64
	Fee       uint64
	Kind      TxKind
}

// ComputeHash implements hash = H(sender || recipient || amount ||
// timestamp || fee || kind) from spec section 3, using SHA3-256.
func (tx *Transaction) ComputeHash() Hash32 {
	buf := make([]byte, 0, len(tx.Sender)+len(tx.Recipient)+8+8+8+1)
	buf = append(buf, []byte(tx.Sender)...)
	buf = append(buf, []byte(tx.Recipient)...)
	var b8 [8]byte
	binary.BigEndian.PutUint64(b8[:], tx.Amount)
	buf = append(buf, b8[:]...)
	binary.BigEndian.PutUint64(b8[:], uint64(tx.Timestamp))
	buf = append(buf, b8[:]...)
	binary.BigEndian.PutUint64(b8[:], tx.Fee)
	buf = append(buf, b8[:]...)
	buf = append(buf, byte(tx.Kind))
	return sha3.Sum256(buf)
}

// Sign computes and sets the hash, then signs it with priv.
func (tx *Transaction) Sign(priv *pqsig.PrivateKey) error {
	tx.Hash = tx.ComputeHash()
	sig, err := priv.Sign(tx.Hash[:])
	if err != nil {
		return err
	}
	tx.Signature = sig
	return nil
}

// VerifySignature checks tx.Signature against tx.Hash and the sender's
// public key; it recomputes the hash first so callers cannot spoof a
// stale or substituted hash.
func (tx *Transaction) VerifySignature(senderPub pqsig.PublicKey) error {
	want := tx.ComputeHash()
	if want != tx.Hash {
		return fmt.Errorf("transaction hash does not match its content")
	}
	return pqsig.Verify(senderPub, tx.Hash[:], tx.Signature)
}
