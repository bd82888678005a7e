// Package mempool holds transactions awaiting inclusion in a block,
// adapted from the teacher's map-backed pending-transaction pool.
package mempool

import (
	"encoding/hex"
	"sync"

	"github.com/niropok/sidechain/internal/core"
)

// Mempool is a concurrency-safe set of pending transactions keyed by hash.
type Mempool struct {
	mu  sync.RWMutex
	txs map[string]*core.Transaction
}

// New returns an empty mempool.
func New() *Mempool {
	return &Mempool{txs: make(map[string]*core.Transaction)}
}

// Add inserts tx, silently ignoring duplicates by hash per spec section 7
// ("duplicates (by hash) are silently ignored").
func (m *Mempool) Add(tx *core.Transaction) {
	key := hex.EncodeToString(tx.Hash[:])
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.txs[key]; ok {
		return
	}
	m.txs[key] = tx
}

// Take drains up to limit transactions for block inclusion, removing them
// from the pool. Order is arbitrary (Go map iteration order; arrival
// order is not tracked), matching spec section 5's "no ordering guarantee
// across peers".
func (m *Mempool) Take(limit int) []*core.Transaction {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*core.Transaction, 0, limit)
	for key, tx := range m.txs {
		if len(out) >= limit {
			break
		}
		out = append(out, tx)
		delete(m.txs, key)
	}
	return out
}

// Remove drops tx (by hash) from the pool without returning it.
func (m *Mempool) Remove(hash [32]byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.txs, hex.EncodeToString(hash[:]))
}

// Count returns the number of pending transactions.
func (m *Mempool) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.txs)
}
