package mempool

import (
	"testing"

	"github.com/niropok/sidechain/internal/core"
)

func TestAddIgnoresDuplicateHash(t *testing.T) {
	mp := New()
	tx := &core.Transaction{Hash: core.Hash32{1, 2, 3}}
	mp.Add(tx)
	mp.Add(tx)
	if mp.Count() != 1 {
		t.Fatalf("count = %d, want 1", mp.Count())
	}
}

func TestTakeRespectsLimit(t *testing.T) {
	mp := New()
	for i := 0; i < 5; i++ {
		mp.Add(&core.Transaction{Hash: core.Hash32{byte(i)}})
	}
	taken := mp.Take(3)
	if len(taken) != 3 {
		t.Fatalf("took %d, want 3", len(taken))
	}
	if mp.Count() != 2 {
		t.Fatalf("remaining count = %d, want 2", mp.Count())
	}
}
