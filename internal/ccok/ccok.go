// Package ccok implements the Compact Certificate of Knowledge: a
// stake-weighted threshold signature aggregate with Fiat-Shamir reveal
// selection and Merkle-proven reveals, per spec section 4.5.
package ccok

import (
	"encoding/binary"
	"math"
	"sort"

	"golang.org/x/crypto/sha3"

	"github.com/niropok/sidechain/internal/consensuserrors"
	"github.com/niropok/sidechain/internal/logging"
	"github.com/niropok/sidechain/internal/merkle"
	"github.com/niropok/sidechain/internal/pqsig"
)

var log = logging.Logger("CCOK")

// Participant is one member of the validator-set snapshot a certificate is
// built over.
type Participant struct {
	PublicKey pqsig.PublicKey
	Weight    uint64
}

// SigSlot holds one participant's (optional) signature and the running
// sum of weights of signed participants before it.
type SigSlot struct {
	Signature         *pqsig.Signature
	AccumulatedWeight uint64
}

// Params are the public parameters a certificate is checked against.
type Params struct {
	Msg           []byte
	ProvenWeight  uint64
	SecurityParam uint32
}

// Reveal is one position's disclosed slot and participant.
type Reveal struct {
	SigSlot     SigSlot
	Participant Participant
}

// Certificate is the compact, verifiable aggregate.
type Certificate struct {
	SigCommit      merkle.Digest
	SignedWeight   uint64
	TotalSigs      int
	Reveals        map[int]Reveal
	SigProofs      *merkle.Proof
	PartyProofs    *merkle.Proof
	RevealPositions []int
	RevealIndices   []int
}

// ProofSize returns an approximate serialized size, useful for tests and
// operators gauging how the certificate scales with the security
// parameter and the weight margin rather than with participant count.
func (c *Certificate) ProofSize() int {
	size := 32 + 8 + 8 // sig_commit + signed_weight + total_sigs
	for range c.Reveals {
		size += 32 + pqsig.SignatureSize + pqsig.PublicKeySize + 8
	}
	for _, level := range c.SigProofs.Siblings {
		size += len(level) * 32
	}
	for _, level := range c.PartyProofs.Siblings {
		size += len(level) * 32
	}
	return size
}

// Builder accumulates signatures for a fixed participant snapshot and
// produces a Certificate once enough weight has signed.
type Builder struct {
	params        Params
	sigs          []SigSlot
	signedWeight  uint64
	participants  []Participant
	partyTreeRoot merkle.Digest
	partyTree     *merkle.Tree
}

// NewBuilder snapshots participants (in their canonical iteration order)
// and builds the party tree once up front.
func NewBuilder(params Params, participants []Participant) (*Builder, error) {
	leaves := make([][]byte, len(participants))
	for i, p := range participants {
		leaves[i] = encodeParticipant(p)
	}
	tree, err := merkle.Build(leaves)
	if err != nil {
		return nil, err
	}
	return &Builder{
		params:        params,
		sigs:          make([]SigSlot, len(participants)),
		participants:  append([]Participant(nil), participants...),
		partyTreeRoot: tree.Root(),
		partyTree:     tree,
	}, nil
}

// AddSignature records a signature at pos, per spec section 4.5.1's
// validation rules. Slots are expected to be filled in ascending position
// order; accumulated_weight is derived from the immediately preceding
// slot under that assumption. Build selects reveals from an independent
// cumulative-weight walk (signedCumulative/findCoinPosition), and
// Certificate.Verify cross-checks each re-derived coin against the
// revealed slot's AccumulatedWeight span.
func (b *Builder) AddSignature(pos int, sig pqsig.Signature) error {
	if pos < 0 || pos >= len(b.participants) {
		return consensuserrors.ErrInvalidPosition
	}
	if b.sigs[pos].Signature != nil {
		return consensuserrors.ErrDuplicateSignature
	}
	if b.participants[pos].Weight == 0 {
		return consensuserrors.ErrZeroWeight
	}
	s := sig
	b.sigs[pos].Signature = &s
	b.signedWeight += b.participants[pos].Weight
	if pos > 0 {
		b.sigs[pos].AccumulatedWeight = b.sigs[pos-1].AccumulatedWeight + b.participants[pos-1].Weight
	}
	return nil
}

// SignedWeight returns the total weight signed so far.
func (b *Builder) SignedWeight() uint64 { return b.signedWeight }

// PartyTreeRoot returns the participant-snapshot Merkle root this builder
// committed to, which callers must supply back to Certificate.Verify.
func (b *Builder) PartyTreeRoot() merkle.Digest { return b.partyTreeRoot }

// Build runs the algorithm of spec section 4.5.2.
func (b *Builder) Build() (*Certificate, error) {
	if b.signedWeight < b.params.ProvenWeight {
		return nil, consensuserrors.ErrInsufficientWeight
	}

	sigLeaves := make([][]byte, len(b.sigs))
	for i, s := range b.sigs {
		sigLeaves[i] = encodeSigSlot(s)
	}
	sigTree, err := merkle.Build(sigLeaves)
	if err != nil {
		return nil, err
	}
	sigCommit := sigTree.Root()

	cumPositions, cumWeights := signedCumulative(b.sigs, b.participants)

	fraction := 1 - float64(b.params.ProvenWeight)/float64(b.signedWeight)
	numReveals := int(math.Ceil(float64(b.params.SecurityParam) * fraction * 0.5))
	if numReveals < 1 {
		numReveals = 1
	}

	type pair struct {
		pos int
		idx int
	}
	revealMap := make(map[int]pair, numReveals)
	for i := 0; i < numReveals; i++ {
		coin := coinChoice(uint64(i), b.signedWeight, b.params.ProvenWeight, sigCommit, b.partyTreeRoot, b.params.Msg)
		pos := findCoinPosition(coin, cumPositions, cumWeights)
		if _, ok := revealMap[pos]; !ok {
			revealMap[pos] = pair{pos: pos, idx: i}
		}
	}

	pairs := make([]pair, 0, len(revealMap))
	for _, p := range revealMap {
		pairs = append(pairs, p)
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].pos < pairs[j].pos })

	positions := make([]int, len(pairs))
	indices := make([]int, len(pairs))
	reveals := make(map[int]Reveal, len(pairs))
	for i, p := range pairs {
		positions[i] = p.pos
		indices[i] = p.idx
		reveals[p.pos] = Reveal{SigSlot: b.sigs[p.pos], Participant: b.participants[p.pos]}
	}

	sigProofs, err := sigTree.Prove(positions)
	if err != nil {
		return nil, err
	}
	partyProofs, err := b.partyTree.Prove(positions)
	if err != nil {
		return nil, err
	}

	log.Debugf("built certificate: signed_weight=%d proven_weight=%d reveals=%d",
		b.signedWeight, b.params.ProvenWeight, len(positions))

	return &Certificate{
		SigCommit:       sigCommit,
		SignedWeight:    b.signedWeight,
		TotalSigs:       len(b.participants),
		Reveals:         reveals,
		SigProofs:       sigProofs,
		PartyProofs:     partyProofs,
		RevealPositions: positions,
		RevealIndices:   indices,
	}, nil
}

// Verify runs the algorithm of spec section 4.5.3, including the
// coin-choice re-derivation step (step 6) the original implementation
// skipped.
func (c *Certificate) Verify(params Params, partyTreeRoot merkle.Digest) error {
	if c.SignedWeight < params.ProvenWeight {
		return consensuserrors.ErrInsufficientWeight
	}
	if len(c.RevealPositions) != len(c.RevealIndices) {
		return consensuserrors.ErrInvalidProof
	}

	sigLeaves := make([][]byte, len(c.RevealPositions))
	partyLeaves := make([][]byte, len(c.RevealPositions))
	for i, pos := range c.RevealPositions {
		rv, ok := c.Reveals[pos]
		if !ok {
			return consensuserrors.ErrInvalidProof
		}
		if rv.SigSlot.Signature == nil {
			return consensuserrors.ErrRevealNotSigned
		}
		if err := pqsig.Verify(rv.Participant.PublicKey, params.Msg, *rv.SigSlot.Signature); err != nil {
			return consensuserrors.ErrSignatureVerification
		}
		sigLeaves[i] = encodeSigSlot(rv.SigSlot)
		partyLeaves[i] = encodeParticipant(rv.Participant)
	}

	if err := merkle.Verify(c.SigCommit, c.SigProofs, c.TotalSigs, sigLeaves); err != nil {
		return err
	}
	if err := merkle.Verify(partyTreeRoot, c.PartyProofs, c.TotalSigs, partyLeaves); err != nil {
		return err
	}

	for i, pos := range c.RevealPositions {
		idx := c.RevealIndices[i]
		rv := c.Reveals[pos]
		coin := coinChoice(uint64(idx), c.SignedWeight, params.ProvenWeight, c.SigCommit, partyTreeRoot, params.Msg)
		lo := rv.SigSlot.AccumulatedWeight
		hi := lo + rv.Participant.Weight
		if coin < lo || coin >= hi {
			log.Warnf("ccok verify: coin %d for reveal index %d falls outside position %d's span [%d,%d)",
				coin, idx, pos, lo, hi)
			return consensuserrors.ErrCoinMismatch
		}
	}

	return nil
}

// coinChoice derives the i-th Fiat-Shamir coin per spec section 4.5.2/3
// using Keccak-256 (distinct from the SHA3-256 used elsewhere; see
// spec.md section 6).
func coinChoice(i, signedWeight, provenWeight uint64, sigCommit, partyTreeRoot merkle.Digest, msg []byte) uint64 {
	h := sha3.NewLegacyKeccak256()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], i)
	h.Write(buf[:])
	binary.LittleEndian.PutUint64(buf[:], signedWeight)
	h.Write(buf[:])
	binary.LittleEndian.PutUint64(buf[:], provenWeight)
	h.Write(buf[:])
	h.Write(sigCommit[:])
	h.Write(partyTreeRoot[:])
	h.Write(msg)
	digest := h.Sum(nil)
	raw := binary.LittleEndian.Uint64(digest[:8])
	if signedWeight == 0 {
		return 0
	}
	return raw % signedWeight
}

// signedCumulative builds the cumulative-weight array over only the
// signed slots, in position order, for findCoinPosition's binary search.
func signedCumulative(sigs []SigSlot, participants []Participant) (positions []int, cumulative []uint64) {
	var running uint64
	for i, s := range sigs {
		if s.Signature == nil {
			continue
		}
		running += participants[i].Weight
		positions = append(positions, i)
		cumulative = append(cumulative, running)
	}
	return positions, cumulative
}

// findCoinPosition returns the position whose cumulative signed weight is
// the first to strictly exceed coin, via binary search.
func findCoinPosition(coin uint64, positions []int, cumulative []uint64) int {
	lo, hi := 0, len(cumulative)
	for lo < hi {
		mid := (lo + hi) / 2
		if cumulative[mid] > coin {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	if lo >= len(positions) {
		lo = len(positions) - 1
	}
	return positions[lo]
}

func encodeParticipant(p Participant) []byte {
	buf := make([]byte, 0, pqsig.PublicKeySize+8)
	buf = append(buf, p.PublicKey[:]...)
	var wb [8]byte
	binary.BigEndian.PutUint64(wb[:], p.Weight)
	buf = append(buf, wb[:]...)
	return buf
}

func encodeSigSlot(s SigSlot) []byte {
	buf := make([]byte, 0, 1+pqsig.SignatureSize+8)
	var wb [8]byte
	binary.BigEndian.PutUint64(wb[:], s.AccumulatedWeight)
	buf = append(buf, wb[:]...)
	if s.Signature != nil {
		buf = append(buf, 0x01)
		buf = append(buf, s.Signature[:]...)
	} else {
		buf = append(buf, 0x00)
	}
	return buf
}
