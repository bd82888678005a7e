package core

import (
	"testing"
	"time"

	"github.com/niropok/sidechain/internal/pqsig"
)

func TestTransactionHashIsIdempotent(t *testing.T) {
	tx := &Transaction{
		Sender:    "alice",
		Recipient: "bob",
		Amount:    100,
		Timestamp: time.Now().Unix(),
		Fee:       1,
		Kind:      TxTransfer,
	}
	h1 := tx.ComputeHash()
	h2 := tx.ComputeHash()
	if h1 != h2 {
		t.Fatal("transaction hash must be idempotent")
	}
}

func TestTransactionSignAndVerify(t *testing.T) {
	priv, err := pqsig.KeyGen()
	if err != nil {
		t.Fatalf("KeyGen: %v", err)
	}
	tx := &Transaction{Sender: "alice", Recipient: "bob", Amount: 5, Timestamp: 1, Fee: 0, Kind: TxTransfer}
	if err := tx.Sign(priv); err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if err := tx.VerifySignature(priv.Public()); err != nil {
		t.Fatalf("VerifySignature: %v", err)
	}
}

func TestTransactionVerifyRejectsTamperedAmount(t *testing.T) {
	priv, err := pqsig.KeyGen()
	if err != nil {
		t.Fatalf("KeyGen: %v", err)
	}
	tx := &Transaction{Sender: "alice", Recipient: "bob", Amount: 5, Timestamp: 1, Fee: 0, Kind: TxTransfer}
	if err := tx.Sign(priv); err != nil {
		t.Fatalf("Sign: %v", err)
	}
	tx.Amount = 999
	if err := tx.VerifySignature(priv.Public()); err == nil {
		t.Fatal("expected verification failure after tampering amount")
	}
}
