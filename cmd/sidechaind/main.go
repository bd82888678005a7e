// Command sidechaind runs a single post-quantum proof-of-stake sidechain
// node: it holds one validator identity, drives the blockchain state
// machine, and gossips over a simulated network fabric. Wiring order is
// adapted from the teacher's cmd/empower1d/main.go runNode/main split.
package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/niropok/sidechain/internal/blockchain"
	"github.com/niropok/sidechain/internal/config"
	"github.com/niropok/sidechain/internal/consensuserrors"
	"github.com/niropok/sidechain/internal/core"
	"github.com/niropok/sidechain/internal/logging"
	"github.com/niropok/sidechain/internal/network"
	"github.com/niropok/sidechain/internal/rpc"
	"github.com/niropok/sidechain/internal/wallet"
)

var log = logging.Logger("STAT")

// submitAdapter implements rpc.Submitter by adding an accepted
// transaction to the local mempool and gossiping it; the copy that loops
// back to this node's own peer is ignored by the mempool as a duplicate
// hash.
type submitAdapter struct {
	chain *blockchain.Blockchain
	net   *network.SimulatedNetwork
}

func (a *submitAdapter) SubmitTransaction(tx *core.Transaction) error {
	if pub, ok := a.chain.PublicKey(tx.Sender); ok {
		if err := tx.VerifySignature(pub); err != nil {
			return err
		}
	}
	a.chain.Mempool().Add(tx)
	a.net.BroadcastTransaction(tx)
	return nil
}

type node struct {
	chain  *blockchain.Blockchain
	net    *network.SimulatedNetwork
	rpcSv  *rpc.Server
	cfg    *config.Config
	stopCh chan struct{}
}

func runNode(cfg *config.Config) (*node, error) {
	if err := logging.InitLogRotator(cfg.LogFile); err != nil {
		return nil, fmt.Errorf("failed to initialize log rotator: %w", err)
	}
	logging.SetLevelString(cfg.DebugLevel)
	log.Info("initializing sidechain node components")

	w, err := wallet.New(cfg.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to generate validator keypair: %w", err)
	}

	bcCfg := blockchain.Config{
		EpochDuration:   cfg.EpochDuration,
		BlockInterval:   cfg.BlockInterval,
		StakingAmount:   cfg.StakingAmount,
		MaxTxnsPerBlock: cfg.MaxTxnsPerBlock,
		SecurityParam:   cfg.SecurityParam,
	}

	netFabric := network.NewSimulatedNetwork(cfg.ListenAddr)
	chain := blockchain.New(bcCfg, cfg.Address, w.PrivateKey(), netFabric)
	chain.RegisterPublicKey(cfg.Address, w.PublicKey())
	chain.Validators().Upsert(cfg.Address, cfg.StakingAmount)
	log.Infof("validator %s self-staked %d", cfg.Address, cfg.StakingAmount)

	handler := network.NewHandler(chain)
	self := network.NewPeer(handler)
	netFabric.Join(self)
	netFabric.BroadcastGenesis(network.GenesisMessage{StakeTx: core.Transaction{
		Sender:    cfg.Address,
		Recipient: cfg.Address,
		Amount:    cfg.StakingAmount,
		Kind:      core.TxStake,
	}})

	genesis := blockchain.CreateGenesisBlock()
	if err := chain.AdmitGenesis(genesis); err != nil {
		return nil, fmt.Errorf("failed to admit genesis block: %w", err)
	}
	log.Infof("genesis admitted, height now %d", chain.CurrentHeight())

	rpcSv := rpc.NewServer(rpc.Config{
		ListenAddr:   cfg.RPCListenAddr,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}, &submitAdapter{chain: chain, net: netFabric})

	n := &node{chain: chain, net: netFabric, rpcSv: rpcSv, cfg: cfg, stopCh: make(chan struct{})}
	go n.runRPC()
	go n.runProposerLoop()
	log.Info("sidechain node started")
	return n, nil
}

func (n *node) runRPC() {
	if err := n.rpcSv.ListenAndServe(); err != nil {
		log.Errorf("rpc server stopped: %v", err)
	}
}

// runProposerLoop drives block production on a fixed cadence: elect a
// proposer for the current slot, and if this node won, build, apply,
// sign, and broadcast a block.
func (n *node) runProposerLoop() {
	ticker := time.NewTicker(n.cfg.BlockInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			n.tryPropose()
		case <-n.stopCh:
			return
		}
	}
}

func (n *node) tryPropose() {
	proposer, slotSeed, err := n.chain.ElectProposer()
	if err != nil {
		if err != consensuserrors.ErrNoValidators {
			log.Warnf("leader election failed: %v", err)
		}
		return
	}
	if !n.chain.IsLocalProposer(proposer) {
		return
	}
	// ProposeBlock broadcasts over the gossip fabric, which loops back to
	// this node's own peer; the handler applies and signs it from there,
	// the same path every other validator follows.
	block, err := n.chain.ProposeBlock(slotSeed)
	if err != nil {
		log.Warnf("failed to propose block: %v", err)
		return
	}
	log.Infof("proposed block %d", block.ID)
}

func (n *node) shutdown() {
	close(n.stopCh)
	if err := n.rpcSv.Close(); err != nil {
		log.Warnf("error closing rpc server: %v", err)
	}
}

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	n, err := runNode(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "node initialization failed: %v\n", err)
		os.Exit(1)
	}

	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, os.Interrupt, syscall.SIGTERM)
	sig := <-shutdownCh
	log.Infof("caught signal %v, shutting down", sig)
	n.shutdown()
	log.Info("sidechain node shut down gracefully")
}
