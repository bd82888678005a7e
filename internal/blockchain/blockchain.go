// Package blockchain implements the per-slot driver state machine of spec
// section 4.7: elect a proposer, propose or wait, sign, collect
// signatures, and build/attach the Compact Certificate of Knowledge.
// Exactly one task owns the Blockchain; every exported method that
// mutates state takes the single lock described in spec section 5.
package blockchain

import (
	"sort"
	"sync"
	"time"

	"github.com/niropok/sidechain/internal/ccok"
	"github.com/niropok/sidechain/internal/consensuserrors"
	"github.com/niropok/sidechain/internal/core"
	"github.com/niropok/sidechain/internal/epoch"
	"github.com/niropok/sidechain/internal/hashchain"
	"github.com/niropok/sidechain/internal/leader"
	"github.com/niropok/sidechain/internal/logging"
	"github.com/niropok/sidechain/internal/mempool"
	"github.com/niropok/sidechain/internal/pqsig"
	"github.com/niropok/sidechain/internal/seed"
	"github.com/niropok/sidechain/internal/state"
	"github.com/niropok/sidechain/internal/validatorset"
)

var log = logging.Logger("CNSS")

// Config carries the constants named in spec section 6.
type Config struct {
	EpochDuration    uint64
	BlockInterval    time.Duration
	StakingAmount    uint64
	MaxTxnsPerBlock  int
	SecurityParam    uint32
}

// DefaultConfig matches spec section 6's published constants.
func DefaultConfig() Config {
	return Config{
		EpochDuration:   10,
		BlockInterval:   6 * time.Second,
		StakingAmount:   10000, // STAKING_AMOUNT=100.00, fixed-point cents
		MaxTxnsPerBlock: 100,
		SecurityParam:   128,
	}
}

// Broadcaster is the outbound half of the P2P message handler; the
// blockchain driver depends only on this interface so it never imports
// the network package directly (network depends on blockchain instead).
type Broadcaster interface {
	BroadcastBlock(*core.Block)
	BroadcastBlockSignature(*core.BlockSignature)
	BroadcastHashChainCommitment(ownerAddress string, commit hashchain.Digest)
}

type certRef struct {
	blockID uint64
	cert    *ccok.Certificate
}

// Blockchain is the single-owner consensus state machine.
type Blockchain struct {
	mu sync.Mutex

	cfg Config

	blocks    []*core.Block
	byID      map[uint64]*core.Block
	validators *validatorset.Set
	state      *state.State
	mempool    *mempool.Mempool
	epoch      *epoch.Epoch

	selfAddress string
	selfPriv    *pqsig.PrivateKey
	pubKeys     map[string]pqsig.PublicKey

	localHashChain *hashchain.HashChain
	prevSlotSeed   seed.Seed

	pendingSignatures map[uint64][]*core.BlockSignature
	lastCertificate   *certRef

	net Broadcaster
}

// New constructs an empty driver (no genesis block yet).
func New(cfg Config, selfAddress string, selfPriv *pqsig.PrivateKey, net Broadcaster) *Blockchain {
	return &Blockchain{
		cfg:               cfg,
		byID:              make(map[uint64]*core.Block),
		validators:        validatorset.New(),
		state:             state.New(),
		mempool:           mempool.New(),
		epoch:             epoch.New(cfg.EpochDuration),
		selfAddress:       selfAddress,
		selfPriv:          selfPriv,
		pubKeys:           make(map[string]pqsig.PublicKey),
		pendingSignatures: make(map[uint64][]*core.BlockSignature),
		net:               net,
	}
}

// Validators exposes the validator set for wiring (registering public
// keys, genesis self-stake, gossip handlers).
func (bc *Blockchain) Validators() *validatorset.Set { return bc.validators }

// State exposes the account ledger for wiring.
func (bc *Blockchain) State() *state.State { return bc.state }

// Mempool exposes the pending-transaction pool for wiring.
func (bc *Blockchain) Mempool() *mempool.Mempool { return bc.mempool }

// RegisterPublicKey binds addr's post-quantum public key, needed to
// verify its block signatures and CCoK reveals.
func (bc *Blockchain) RegisterPublicKey(addr string, pub pqsig.PublicKey) {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	bc.pubKeys[addr] = pub
}

// PublicKey looks up addr's registered post-quantum public key.
func (bc *Blockchain) PublicKey(addr string) (pqsig.PublicKey, bool) {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	pub, ok := bc.pubKeys[addr]
	return pub, ok
}

// CurrentHeight returns the id of the latest block, or 0 if the chain is
// still empty (genesis not yet admitted).
func (bc *Blockchain) CurrentHeight() uint64 {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	if len(bc.blocks) == 0 {
		return 0
	}
	return bc.blocks[len(bc.blocks)-1].ID
}

// LatestBlock returns the chain tip, or nil if empty.
func (bc *Blockchain) LatestBlock() *core.Block {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	if len(bc.blocks) == 0 {
		return nil
	}
	return bc.blocks[len(bc.blocks)-1]
}

// AdmitGenesis appends block as id 1 unconditionally, per spec section
// 4.7's block-verification rule "(i) id == 1 => accept".
func (bc *Blockchain) AdmitGenesis(block *core.Block) error {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	if block.ID != 1 {
		return consensuserrors.ErrPrevHashMismatch
	}
	if _, exists := bc.byID[block.ID]; exists {
		return consensuserrors.ErrBlockAlreadyKnown
	}
	bc.appendLocked(block)
	return nil
}

func (bc *Blockchain) appendLocked(block *core.Block) {
	bc.blocks = append(bc.blocks, block)
	bc.byID[block.ID] = block
	for _, tx := range block.Txs {
		if err := bc.state.ApplyTransaction(&tx); err != nil {
			log.Warnf("tx %x rejected during block %d execution: %v", tx.Hash, block.ID, err)
		}
	}
}

// VerifyBlock runs the three checks of spec section 4.7's block
// verification: genesis admission, prev-hash continuity, and hash-chain
// reveal verification against the proposer's stored commitment.
func (bc *Blockchain) VerifyBlock(block *core.Block) error {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	if block.ID == 1 {
		return nil
	}
	tip := bc.blocks[len(bc.blocks)-1]
	if block.PrevHash != tip.HeaderHash() {
		return consensuserrors.ErrPrevHashMismatch
	}
	acct, ok := bc.validators.Get(block.ProposerAddress)
	if !ok {
		return consensuserrors.ErrUnknownValidator
	}
	reveal := hexDigest(block.ProposerRevealHex)
	return hashchain.Verify(acct.Commitment, bc.epoch.SlotInEpoch(), reveal)
}

func hexDigest(s string) hashchain.Digest {
	var d hashchain.Digest
	b := mustDecodeHex(s)
	copy(d[:], b)
	return d
}

func mustDecodeHex(s string) []byte {
	out := make([]byte, len(s)/2)
	for i := 0; i < len(out); i++ {
		hi := hexVal(s[i*2])
		lo := hexVal(s[i*2+1])
		out[i] = hi<<4 | lo
	}
	return out
}

func hexVal(c byte) byte {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10
	default:
		return 0
	}
}

// ApplyBlock admits a verified block onto the chain, executing its
// transactions and advancing the epoch counter. Callers must call
// VerifyBlock first (ApplyBlock does not re-verify).
func (bc *Blockchain) ApplyBlock(block *core.Block) {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	bc.appendLocked(block)
	if block.Certificate != nil {
		bc.lastCertificate = &certRef{blockID: block.ID, cert: block.Certificate}
	}
	if _, ok := bc.validators.Get(block.ProposerAddress); ok {
		reveal := hexDigest(block.ProposerRevealHex)
		bc.validators.RecordReveal(block.ProposerAddress, reveal)
		bc.prevSlotSeed = seed.SlotSeed(block.ProposerRevealHex, bc.prevSlotSeed)
	}
	bc.epoch.Progress()
	if bc.epoch.IsEndOfEpoch() {
		bc.rolloverEpochLocked()
	}
}

// rolloverEpochLocked applies the staking buffer, resets the epoch
// counter, and generates + broadcasts a fresh local hash chain, per spec
// section 4.7's epoch-boundary rule. Caller must hold bc.mu.
func (bc *Blockchain) rolloverEpochLocked() {
	bc.state.ApplyStakingBuffer(bc.validators)
	bc.epoch.Reset()
	hc, err := hashchain.New(bc.cfg.EpochDuration)
	if err != nil {
		log.Errorf("failed to generate new hash chain: %v", err)
		return
	}
	bc.localHashChain = hc
	commit := hc.Commit()
	bc.validators.SetCommitment(bc.selfAddress, commit)
	if bc.net != nil {
		bc.net.BroadcastHashChainCommitment(bc.selfAddress, commit)
	}
}

// ElectProposer runs the leader-election lottery over the current
// validator snapshot with the current slot seed (the one ApplyBlock last
// derived from a proposer's reveal), and returns the winner and that seed.
func (bc *Blockchain) ElectProposer() (string, seed.Seed, error) {
	bc.mu.Lock()
	defer bc.mu.Unlock()
	snapshot := bc.validators.Snapshot()
	candidates := leader.FromAccounts(snapshot)
	winner, err := leader.Elect(bc.prevSlotSeed, candidates)
	return winner, bc.prevSlotSeed, err
}

// IsLocalProposer reports whether addr is this node's own address.
func (bc *Blockchain) IsLocalProposer(addr string) bool {
	return addr == bc.selfAddress
}

// ProposeBlock builds and broadcasts the next block when this node was
// elected, per spec section 4.7's "IAmProposer" branch. It neither applies
// nor signs the block: every receiver, including this node's own peer,
// does that in the network handler.
func (bc *Blockchain) ProposeBlock(slotSeed seed.Seed) (*core.Block, error) {
	bc.mu.Lock()
	var prevHash core.Hash32
	var nextID uint64 = 1
	if len(bc.blocks) > 0 {
		tip := bc.blocks[len(bc.blocks)-1]
		prevHash = tip.HeaderHash()
		nextID = tip.ID + 1
	}
	slotInEpoch := bc.epoch.SlotInEpoch()
	var revealHex string
	if bc.localHashChain != nil {
		reveal, err := bc.localHashChain.Reveal(slotInEpoch, bc.cfg.EpochDuration)
		if err == nil {
			revealHex = reveal.Hex()
		}
	}
	var cert *ccok.Certificate
	if bc.lastCertificate != nil && len(bc.blocks) > 0 && bc.lastCertificate.blockID == bc.blocks[len(bc.blocks)-1].ID {
		cert = bc.lastCertificate.cert
	}
	bc.mu.Unlock()

	txs := bc.mempool.Take(bc.cfg.MaxTxnsPerBlock)
	plainTxs := make([]core.Transaction, len(txs))
	for i, tx := range txs {
		plainTxs[i] = *tx
	}

	block := &core.Block{
		ID:                nextID,
		PrevHash:          prevHash,
		MerkleRootOfTxs:   core.ComputeMerkleRootOfTxs(plainTxs),
		Timestamp:         time.Now().Unix(),
		Txs:               plainTxs,
		ProposerAddress:   bc.selfAddress,
		ProposerRevealHex: revealHex,
		SlotSeed:          slotSeed,
		Certificate:       cert,
	}

	if bc.net != nil {
		bc.net.BroadcastBlock(block)
	}
	return block, nil
}

// SignBlock produces this node's BlockSignature over block's header hash,
// per spec section 4.7's "Sign" state (every receiver signs the same
// block hash every honest node recomputed).
func (bc *Blockchain) SignBlock(block *core.Block) (*core.BlockSignature, error) {
	hashHex := block.HeaderHash().Hex()
	sig, err := bc.selfPriv.Sign([]byte(hashHex))
	if err != nil {
		return nil, err
	}
	bsig := &core.BlockSignature{
		BlockID:        block.ID,
		BlockHashHex:   hashHex,
		SenderAddress:  bc.selfAddress,
		SignatureBytes: sig,
	}
	if bc.net != nil {
		bc.net.BroadcastBlockSignature(bsig)
	}
	return bsig, nil
}

// ReceiveSignature records an inbound BlockSignature and, once the
// collected set reaches 100% validator participation (spec section 4.7's
// preserved-but-flagged gate), builds the CCoK for attachment to the next
// block.
func (bc *Blockchain) ReceiveSignature(bsig *core.BlockSignature) {
	bc.mu.Lock()
	defer bc.mu.Unlock()

	for _, existing := range bc.pendingSignatures[bsig.BlockID] {
		if existing.SenderAddress == bsig.SenderAddress {
			return
		}
	}
	bc.pendingSignatures[bsig.BlockID] = append(bc.pendingSignatures[bsig.BlockID], bsig)

	expected := bc.validators.Len()
	if expected == 0 || len(bc.pendingSignatures[bsig.BlockID]) < expected {
		return
	}

	block, ok := bc.byID[bsig.BlockID]
	if !ok {
		return
	}
	cert, err := bc.buildCertificateLocked(block, bc.pendingSignatures[bsig.BlockID])
	if err != nil {
		log.Warnf("ccok build for block %d failed, dropped for this slot: %v", bsig.BlockID, err)
		return
	}
	bc.lastCertificate = &certRef{blockID: block.ID, cert: cert}
	delete(bc.pendingSignatures, bsig.BlockID)
}

func (bc *Blockchain) buildCertificateLocked(block *core.Block, sigs []*core.BlockSignature) (*ccok.Certificate, error) {
	snapshot := bc.validators.Snapshot()
	participants := make([]ccok.Participant, len(snapshot))
	posByAddr := make(map[string]int, len(snapshot))
	for i, a := range snapshot {
		pub := bc.pubKeys[a.Address]
		participants[i] = ccok.Participant{PublicKey: pub, Weight: a.Stake}
		posByAddr[a.Address] = i
	}

	msg := []byte(block.HeaderHash().Hex())
	builder, err := ccok.NewBuilder(ccok.Params{
		Msg:           msg,
		ProvenWeight:  bc.validators.TotalStake(),
		SecurityParam: bc.cfg.SecurityParam,
	}, participants)
	if err != nil {
		return nil, err
	}
	// AccumulatedWeight is a running sum keyed to ascending position
	// (ccok.Builder.AddSignature assumes slot pos-1 is already filled
	// when pos is added), but signatures arrive from ReceiveSignature in
	// gossip order, not position order. Sort by position before adding so
	// the committed AccumulatedWeight values are correct regardless of
	// arrival order.
	ordered := make([]*core.BlockSignature, 0, len(sigs))
	for _, bsig := range sigs {
		if _, ok := posByAddr[bsig.SenderAddress]; ok {
			ordered = append(ordered, bsig)
		}
	}
	sort.Slice(ordered, func(i, j int) bool {
		return posByAddr[ordered[i].SenderAddress] < posByAddr[ordered[j].SenderAddress]
	})
	for _, bsig := range ordered {
		pos := posByAddr[bsig.SenderAddress]
		if err := builder.AddSignature(pos, bsig.SignatureBytes); err != nil {
			log.Debugf("ccok add_signature(%d) skipped: %v", pos, err)
		}
	}
	return builder.Build()
}
