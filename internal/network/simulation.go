package network

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"

	"github.com/niropok/sidechain/internal/core"
	"github.com/niropok/sidechain/internal/hashchain"
)

// Peer is a simulated remote node: an inbox and the handler that drains
// it, generalizing the teacher's single-channel-per-message-type Peer to
// the full topic set of spec section 6.
type Peer struct {
	ID      string
	inbox   chan Envelope
	handler *Handler
	stop    chan struct{}
	wg      sync.WaitGroup
}

// NewPeer wires an inbox to the handler that will process it.
func NewPeer(handler *Handler) *Peer {
	id := uuid.NewString()
	return &Peer{
		ID:      id,
		inbox:   make(chan Envelope, 256),
		handler: handler,
		stop:    make(chan struct{}),
	}
}

func (p *Peer) run() {
	defer p.wg.Done()
	for {
		select {
		case env, ok := <-p.inbox:
			if !ok {
				return
			}
			p.handler.Dispatch(env)
		case <-p.stop:
			return
		}
	}
}

// Start launches the peer's dispatch goroutine.
func (p *Peer) Start() {
	p.wg.Add(1)
	go p.run()
}

// Stop halts dispatch and waits for the goroutine to exit.
func (p *Peer) Stop() {
	close(p.stop)
	p.wg.Wait()
}

// SimulatedNetwork is an in-memory gossip fabric connecting any number of
// local Peers, standing in for the transport layer behind the
// blockchain.Broadcaster interface. Adapted from the teacher's
// SimulatedNetwork, generalized from two hardcoded broadcast channels to
// the full topic set and keyed by uuid peer identity instead of an
// operator-supplied node string.
type SimulatedNetwork struct {
	NodeID string

	mu    sync.RWMutex
	peers map[string]*Peer
}

// NewSimulatedNetwork creates a fabric identified by a generated uuid, or
// by nodeID if the caller supplies one (e.g. for log correlation).
func NewSimulatedNetwork(nodeID string) *SimulatedNetwork {
	if nodeID == "" {
		nodeID = uuid.NewString()
	}
	return &SimulatedNetwork{
		NodeID: nodeID,
		peers:  make(map[string]*Peer),
	}
}

// Join registers peer under the fabric and starts its dispatch loop.
func (sn *SimulatedNetwork) Join(peer *Peer) {
	sn.mu.Lock()
	sn.peers[peer.ID] = peer
	sn.mu.Unlock()
	peer.Start()
}

// Leave unregisters and stops peer.
func (sn *SimulatedNetwork) Leave(peerID string) {
	sn.mu.Lock()
	peer, ok := sn.peers[peerID]
	delete(sn.peers, peerID)
	sn.mu.Unlock()
	if ok {
		peer.Stop()
	}
}

// PeerCount reports the number of connected peers.
func (sn *SimulatedNetwork) PeerCount() int {
	sn.mu.RLock()
	defer sn.mu.RUnlock()
	return len(sn.peers)
}

func (sn *SimulatedNetwork) gossip(topic string, v interface{}) {
	payload, err := json.Marshal(v)
	if err != nil {
		log.Warnf("failed to marshal outbound %s message: %v", topic, err)
		return
	}
	env := Envelope{Topic: topic, Payload: payload}

	sn.mu.RLock()
	defer sn.mu.RUnlock()
	for _, peer := range sn.peers {
		select {
		case peer.inbox <- env:
		default:
			log.Warnf("peer %s inbox full, dropping %s message", peer.ID, topic)
		}
	}
}

// BroadcastBlock implements blockchain.Broadcaster.
func (sn *SimulatedNetwork) BroadcastBlock(block *core.Block) {
	sn.gossip(TopicBlocks, block)
}

// BroadcastBlockSignature implements blockchain.Broadcaster.
func (sn *SimulatedNetwork) BroadcastBlockSignature(bsig *core.BlockSignature) {
	sn.gossip(TopicBlockSignatures, bsig)
}

// BroadcastHashChainCommitment implements blockchain.Broadcaster.
func (sn *SimulatedNetwork) BroadcastHashChainCommitment(ownerAddress string, commit hashchain.Digest) {
	sn.gossip(TopicHashChains, HashChainCommitment{
		CommitHex: commit.Hex(),
		Sender:    ownerAddress,
	})
}

// BroadcastTransaction gossips a transaction on the transactions topic;
// not part of blockchain.Broadcaster since transactions enter from RPC
// ingress rather than the driver itself.
func (sn *SimulatedNetwork) BroadcastTransaction(tx *core.Transaction) {
	sn.gossip(TopicTransactions, tx)
}

// BroadcastGenesis gossips a node's self-stake announcement.
func (sn *SimulatedNetwork) BroadcastGenesis(msg GenesisMessage) {
	sn.gossip(TopicGenesis, msg)
}
