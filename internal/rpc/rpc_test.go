package rpc

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/niropok/sidechain/internal/core"
)

type recordingSubmitter struct {
	received []*core.Transaction
	fail     bool
}

func (r *recordingSubmitter) SubmitTransaction(tx *core.Transaction) error {
	if r.fail {
		return ErrDecodeTransaction
	}
	r.received = append(r.received, tx)
	return nil
}

func TestHandleTransactionAccepts(t *testing.T) {
	sub := &recordingSubmitter{}
	s := NewServer(DefaultConfig(), sub)

	tx := core.Transaction{Sender: "alice", Recipient: "bob", Amount: 42}
	body, err := json.Marshal(tx)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest("POST", "/rpc/transaction", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	s.httpSv.Handler.ServeHTTP(rec, req)

	if rec.Code != 200 {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if len(sub.received) != 1 {
		t.Fatalf("received %d transactions, want 1", len(sub.received))
	}
}

func TestHandleTransactionRejectsMalformedBody(t *testing.T) {
	sub := &recordingSubmitter{}
	s := NewServer(DefaultConfig(), sub)

	req := httptest.NewRequest("POST", "/rpc/transaction", bytes.NewReader([]byte("not json")))
	rec := httptest.NewRecorder()
	s.httpSv.Handler.ServeHTTP(rec, req)

	if rec.Code != 400 {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandleTransactionRejectsWrongMethod(t *testing.T) {
	sub := &recordingSubmitter{}
	s := NewServer(DefaultConfig(), sub)

	req := httptest.NewRequest("GET", "/rpc/transaction", nil)
	rec := httptest.NewRecorder()
	s.httpSv.Handler.ServeHTTP(rec, req)

	if rec.Code != 405 {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
}
