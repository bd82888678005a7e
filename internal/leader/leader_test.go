package leader

import (
	"testing"

	"github.com/niropok/sidechain/internal/seed"
)

func TestElectIsDeterministic(t *testing.T) {
	cands := []Candidate{
		{Address: "v1", CommitmentHex: "aa", Stake: 10},
		{Address: "v2", CommitmentHex: "bb", Stake: 20},
		{Address: "v3", CommitmentHex: "cc", Stake: 30},
	}
	var s seed.Seed
	s[0] = 0x42
	w1, err := Elect(s, cands)
	if err != nil {
		t.Fatalf("Elect: %v", err)
	}
	w2, err := Elect(s, cands)
	if err != nil {
		t.Fatalf("Elect: %v", err)
	}
	if w1 != w2 {
		t.Fatal("election must be deterministic for identical inputs")
	}
}

func TestElectEmptySetFails(t *testing.T) {
	var s seed.Seed
	if _, err := Elect(s, nil); err == nil {
		t.Fatal("expected error electing over an empty validator set")
	}
}

func TestElectTieBrokenByIterationOrder(t *testing.T) {
	cands := []Candidate{
		{Address: "first", CommitmentHex: "same", Stake: 50},
		{Address: "second", CommitmentHex: "same", Stake: 50},
	}
	var s seed.Seed
	winner, err := Elect(s, cands)
	if err != nil {
		t.Fatalf("Elect: %v", err)
	}
	if winner != "first" {
		t.Fatalf("expected tie broken toward first-in-iteration-order, got %s", winner)
	}
	swapped := []Candidate{cands[1], cands[0]}
	winner2, err := Elect(s, swapped)
	if err != nil {
		t.Fatalf("Elect: %v", err)
	}
	if winner2 != "second" {
		t.Fatalf("expected swapped iteration order to swap the winner, got %s", winner2)
	}
}
