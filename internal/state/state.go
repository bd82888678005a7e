// Package state holds the account-balance ledger and the epoch-boundary
// staking buffer, to the depth spec section 1 scopes account arithmetic:
// only what staking requires. Adapted from the teacher's state manager,
// simplified from a UTXO model to the account model spec section 3
// describes.
package state

import (
	"errors"
	"sync"

	"github.com/niropok/sidechain/internal/core"
	"github.com/niropok/sidechain/internal/logging"
	"github.com/niropok/sidechain/internal/validatorset"
)

var log = logging.Logger("STAT")

// ErrInsufficientBalance is returned when a transaction would overdraw
// the sender's balance.
var ErrInsufficientBalance = errors.New("state: insufficient balance")

// State is the account-balance ledger plus the pending staking buffer
// applied atomically at each epoch boundary (spec section 4.7).
type State struct {
	mu            sync.Mutex
	balances      map[string]uint64
	stakingBuffer map[string]int64
}

// New returns an empty ledger.
func New() *State {
	return &State{
		balances:      make(map[string]uint64),
		stakingBuffer: make(map[string]int64),
	}
}

// Balance returns addr's current balance.
func (s *State) Balance(addr string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balances[addr]
}

// Credit adds amount to addr's balance unconditionally, used for
// Coinbase and ValidatorReward transactions.
func (s *State) Credit(addr string, amount uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[addr] += amount
}

// ApplyTransaction updates the ledger and staking buffer for tx's effect,
// per the kinds supplemented from the original Rust source's stake.rs and
// accounts.rs (see SPEC_FULL.md).
func (s *State) ApplyTransaction(tx *core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch tx.Kind {
	case core.TxTransfer:
		if s.balances[tx.Sender] < tx.Amount+tx.Fee {
			return ErrInsufficientBalance
		}
		s.balances[tx.Sender] -= tx.Amount + tx.Fee
		s.balances[tx.Recipient] += tx.Amount
	case core.TxCoinbase, core.TxValidatorReward:
		s.balances[tx.Recipient] += tx.Amount
	case core.TxStake:
		if s.balances[tx.Sender] < tx.Amount {
			return ErrInsufficientBalance
		}
		s.balances[tx.Sender] -= tx.Amount
		s.stakingBuffer[tx.Sender] += int64(tx.Amount)
	case core.TxUnstake:
		s.stakingBuffer[tx.Sender] -= int64(tx.Amount)
	case core.TxCommit:
		// Hash-chain commitments carry no balance effect; the network
		// layer routes them to the validator set directly.
	}
	return nil
}

// ApplyStakingBuffer credits/debits every buffered stake delta into vs,
// then clears the buffer. Called once per epoch boundary, under the same
// single lock the blockchain driver already holds (see spec section 4.7).
func (s *State) ApplyStakingBuffer(vs *validatorset.Set) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for addr, delta := range s.stakingBuffer {
		if delta > 0 {
			vs.AddStake(addr, uint64(delta))
		} else if delta < 0 {
			vs.RemoveStake(addr, uint64(-delta))
		}
		delete(s.stakingBuffer, addr)
	}
	log.Debugf("staking buffer applied")
}
