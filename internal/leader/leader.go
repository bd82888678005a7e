// Package leader implements the deterministic weighted proposer lottery
// described in spec section 4.6.
package leader

import (
	"encoding/binary"

	"golang.org/x/crypto/sha3"

	"github.com/niropok/sidechain/internal/consensuserrors"
	"github.com/niropok/sidechain/internal/seed"
	"github.com/niropok/sidechain/internal/validatorset"
)

// Candidate is the minimal validator shape leader election needs.
type Candidate struct {
	Address       string
	CommitmentHex string
	Stake         uint64
}

// FromAccounts adapts a validatorset snapshot, in its iteration order, into
// election candidates.
func FromAccounts(accts []validatorset.Account) []Candidate {
	out := make([]Candidate, len(accts))
	for i, a := range accts {
		out[i] = Candidate{Address: a.Address, CommitmentHex: a.Commitment.Hex(), Stake: a.Stake}
	}
	return out
}

// Elect runs the lottery over candidates, in iteration order, for the
// given slot seed: argmin of weight_score_v, ties broken by first-in-
// iteration-order. Returns ErrNoValidators if candidates is empty.
func Elect(slotSeed seed.Seed, candidates []Candidate) (string, error) {
	if len(candidates) == 0 {
		return "", consensuserrors.ErrNoValidators
	}
	bestIdx := -1
	var bestScore float64
	for i, c := range candidates {
		if c.Stake == 0 {
			continue
		}
		buf := make([]byte, 0, 32+len(c.CommitmentHex))
		buf = append(buf, slotSeed[:]...)
		buf = append(buf, []byte(c.CommitmentHex)...)
		digest := sha3.Sum256(buf)
		numeric := binary.BigEndian.Uint64(digest[:8])
		score := 1e9 - float64(numeric)/float64(c.Stake)
		if bestIdx == -1 || score < bestScore {
			bestIdx = i
			bestScore = score
		}
	}
	if bestIdx == -1 {
		return "", consensuserrors.ErrNoValidators
	}
	return candidates[bestIdx].Address, nil
}
