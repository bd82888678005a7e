// Package hashchain implements the per-validator epoch commitment chain
// described in spec section 4.1: a seeded chain of SHA3-256 preimages,
// revealed one link per slot in decreasing index order.
package hashchain

import (
	"crypto/rand"
	"encoding/binary"

	"golang.org/x/crypto/sha3"

	"github.com/niropok/sidechain/internal/consensuserrors"
	"github.com/niropok/sidechain/internal/logging"
)

var log = logging.Logger("HSCH")

// Digest is a SHA3-256 output.
type Digest [32]byte

// HashChain is the ordered sequence h[0..=EpochDuration+1] with
// h[0] = SHA3-256(nonce) and h[i+1] = SHA3-256(h[i]).
type HashChain struct {
	links []Digest
}

// New samples a uniform random nonce and builds a chain of length
// epochDuration+2 (indices 0..=epochDuration+1).
func New(epochDuration uint64) (*HashChain, error) {
	var nonce [8]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, err
	}
	return newFromNonce(binary.BigEndian.Uint64(nonce[:]), epochDuration), nil
}

// newFromNonce builds the chain deterministically from a given nonce;
// exported indirectly via New for production use, used directly in tests
// to pin the chain for exact-value assertions.
func newFromNonce(nonce uint64, epochDuration uint64) *HashChain {
	links := make([]Digest, epochDuration+2)
	var nb [8]byte
	binary.BigEndian.PutUint64(nb[:], nonce)
	links[0] = sha3.Sum256(nb[:])
	for i := uint64(0); i <= epochDuration; i++ {
		links[i+1] = sha3.Sum256(links[i][:])
	}
	return &HashChain{links: links}
}

// NewFromNonce is the deterministic constructor exposed for tests and for
// callers that need reproducible chains (e.g. golden-value tests).
func NewFromNonce(nonce uint64, epochDuration uint64) *HashChain {
	return newFromNonce(nonce, epochDuration)
}

// Commit returns h[EpochDuration+1], the value published at epoch start.
func (hc *HashChain) Commit() Digest {
	return hc.links[len(hc.links)-1]
}

// Reveal returns h[EpochDuration - slotInEpoch + 1], the preimage
// disclosed when this validator is elected at slotInEpoch.
func (hc *HashChain) Reveal(slotInEpoch, epochDuration uint64) (Digest, error) {
	idx := epochDuration - slotInEpoch + 1
	if idx >= uint64(len(hc.links)) {
		return Digest{}, consensuserrors.ErrInvalidHashChainReveal
	}
	return hc.links[idx], nil
}

// Verify checks that hashing reveal SHA3-256 exactly slotInEpoch times
// yields commit, per spec section 4.1's verification rule.
func Verify(commit Digest, slotInEpoch uint64, reveal Digest) error {
	x := reveal
	for i := uint64(0); i < slotInEpoch; i++ {
		x = sha3.Sum256(x[:])
	}
	if x != commit {
		log.Debugf("hash-chain reveal mismatch at slot %d", slotInEpoch)
		return consensuserrors.ErrInvalidHashChainReveal
	}
	return nil
}

// Hex returns the lowercase hex encoding of the digest.
func (d Digest) Hex() string {
	const hexdigits = "0123456789abcdef"
	out := make([]byte, 64)
	for i, b := range d {
		out[i*2] = hexdigits[b>>4]
		out[i*2+1] = hexdigits[b&0x0f]
	}
	return string(out)
}
