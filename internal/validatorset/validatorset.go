// Package validatorset holds the ordered set of staked validator accounts
// described in spec section 3: an iteration-stable sequence of addresses
// with stakes, current hash-chain commitments, and last-revealed
// preimages.
package validatorset

import (
	"sync"

	"github.com/niropok/sidechain/internal/hashchain"
)

// Account is a validator's on-chain identity and stake.
type Account struct {
	Address    string
	Stake      uint64
	Commitment hashchain.Digest
	LastReveal hashchain.Digest
	HasRevealed bool
}

// Set is the ordered validator set. Iteration order (as Snapshot returns
// it) is the
// canonical Merkle-leaf order and must be stable across all honest nodes
// given the same transaction history: new validators are always appended,
// never inserted out of arrival order.
type Set struct {
	mu        sync.RWMutex
	addresses []string
	byAddress map[string]*Account
}

// New returns an empty validator set.
func New() *Set {
	return &Set{byAddress: make(map[string]*Account)}
}

// Upsert adds addr with the given stake if unseen, or updates its stake if
// already present. Returns the (possibly new) account.
func (s *Set) Upsert(addr string, stake uint64) *Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	if acct, ok := s.byAddress[addr]; ok {
		acct.Stake = stake
		return acct
	}
	acct := &Account{Address: addr, Stake: stake}
	s.byAddress[addr] = acct
	s.addresses = append(s.addresses, addr)
	return acct
}

// AddStake credits delta to addr's stake, creating the account at zero
// stake first if unseen.
func (s *Set) AddStake(addr string, delta uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.byAddress[addr]
	if !ok {
		acct = &Account{Address: addr}
		s.byAddress[addr] = acct
		s.addresses = append(s.addresses, addr)
	}
	acct.Stake += delta
}

// RemoveStake debits delta from addr's stake, floored at zero.
func (s *Set) RemoveStake(addr string, delta uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.byAddress[addr]
	if !ok {
		return
	}
	if delta >= acct.Stake {
		acct.Stake = 0
		return
	}
	acct.Stake -= delta
}

// SetCommitment records addr's published hash-chain commitment for the
// current epoch and clears its last reveal.
func (s *Set) SetCommitment(addr string, commit hashchain.Digest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.byAddress[addr]
	if !ok {
		acct = &Account{Address: addr}
		s.byAddress[addr] = acct
		s.addresses = append(s.addresses, addr)
	}
	acct.Commitment = commit
	acct.HasRevealed = false
	acct.LastReveal = hashchain.Digest{}
}

// RecordReveal stores addr's most recent hash-chain reveal.
func (s *Set) RecordReveal(addr string, reveal hashchain.Digest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if acct, ok := s.byAddress[addr]; ok {
		acct.LastReveal = reveal
		acct.HasRevealed = true
	}
}

// Get returns a copy of addr's account and whether it exists.
func (s *Set) Get(addr string) (Account, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acct, ok := s.byAddress[addr]
	if !ok {
		return Account{}, false
	}
	return *acct, true
}

// Snapshot returns the ordered accounts as of now, safe for the caller to
// retain (each element is a copy).
func (s *Set) Snapshot() []Account {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Account, 0, len(s.addresses))
	for _, addr := range s.addresses {
		out = append(out, *s.byAddress[addr])
	}
	return out
}

// TotalStake sums every account's current stake.
func (s *Set) TotalStake() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var total uint64
	for _, addr := range s.addresses {
		total += s.byAddress[addr].Stake
	}
	return total
}

// Len returns the number of validators in the set.
func (s *Set) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.addresses)
}
