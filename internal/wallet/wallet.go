// Package wallet holds a validator's post-quantum keypair and builds
// signed transactions for RPC submission, playing the client-side role
// the teacher's wallet package describes but scoped to this chain's
// single transaction type instead of UTXO selection.
package wallet

import (
	"github.com/niropok/sidechain/internal/core"
	"github.com/niropok/sidechain/internal/pqsig"
)

// Wallet binds an on-chain address to the keypair that signs for it.
type Wallet struct {
	Address string
	priv    *pqsig.PrivateKey
}

// New generates a fresh keypair for address.
func New(address string) (*Wallet, error) {
	priv, err := pqsig.KeyGen()
	if err != nil {
		return nil, err
	}
	return &Wallet{Address: address, priv: priv}, nil
}

// FromPrivateKey builds a Wallet around an already-generated key, for
// nodes that persist their validator identity across restarts.
func FromPrivateKey(address string, priv *pqsig.PrivateKey) *Wallet {
	return &Wallet{Address: address, priv: priv}
}

// PublicKey returns the address's public key, for registration with the
// blockchain driver and peers.
func (w *Wallet) PublicKey() pqsig.PublicKey {
	return w.priv.Public()
}

// PrivateKey exposes the signing key to the blockchain driver, which
// needs it directly to sign block headers on this wallet's behalf.
func (w *Wallet) PrivateKey() *pqsig.PrivateKey {
	return w.priv
}

// NewTransaction builds and signs a transaction from this wallet to
// recipient, ready for RPC submission.
func (w *Wallet) NewTransaction(recipient string, amount, fee uint64, kind core.TxKind, timestamp int64) (*core.Transaction, error) {
	tx := &core.Transaction{
		Sender:    w.Address,
		Recipient: recipient,
		Amount:    amount,
		Fee:       fee,
		Kind:      kind,
		Timestamp: timestamp,
	}
	if err := tx.Sign(w.priv); err != nil {
		return nil, err
	}
	return tx, nil
}
