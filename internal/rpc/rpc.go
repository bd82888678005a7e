// Package rpc provides the node's transaction-ingress HTTP surface
// (spec section 6): a single POST endpoint that accepts a signed
// transaction and hands it to the gossip layer. Modeled on the request
// handling shape of the pack's JSON-RPC handlers (wyf-ACCEPT-eth2030's
// pkg/node/rpc_handler.go), reduced to the one route this node exposes.
package rpc

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/niropok/sidechain/internal/core"
	"github.com/niropok/sidechain/internal/logging"
)

var log = logging.Logger("RPCS")

// ErrDecodeTransaction wraps malformed-body failures for callers that
// want to distinguish client from server error without string matching.
var ErrDecodeTransaction = errors.New("rpc: could not decode transaction body")

// Submitter accepts a transaction for gossip and local mempool admission.
// Satisfied in cmd/sidechaind by an adapter over the simulated network
// and the local mempool, so this package never imports blockchain or
// network.
type Submitter interface {
	SubmitTransaction(tx *core.Transaction) error
}

// Config controls the HTTP server's network behavior.
type Config struct {
	ListenAddr   string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultConfig binds to loopback on a fixed local port, matching the
// node's intra-host deployment in spec section 6.
func DefaultConfig() Config {
	return Config{
		ListenAddr:   "127.0.0.1:8645",
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
}

// Server is the node's RPC ingress surface.
type Server struct {
	cfg    Config
	sub    Submitter
	httpSv *http.Server
}

// NewServer builds a Server that forwards accepted transactions to sub.
func NewServer(cfg Config, sub Submitter) *Server {
	s := &Server{cfg: cfg, sub: sub}
	mux := http.NewServeMux()
	mux.HandleFunc("/rpc/transaction", s.handleTransaction)
	s.httpSv = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      mux,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// ListenAndServe blocks serving RPC requests until the server is closed.
func (s *Server) ListenAndServe() error {
	log.Infof("rpc server listening on %s", s.cfg.ListenAddr)
	err := s.httpSv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Close shuts the server down.
func (s *Server) Close() error {
	return s.httpSv.Close()
}

type submitResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleTransaction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var tx core.Transaction
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(&tx); err != nil {
		log.Debugf("rejecting malformed transaction body: %v", err)
		http.Error(w, errors.Wrap(ErrDecodeTransaction, err.Error()).Error(), http.StatusBadRequest)
		return
	}

	if tx.Hash == (core.Hash32{}) {
		tx.Hash = tx.ComputeHash()
	}
	if err := s.sub.SubmitTransaction(&tx); err != nil {
		log.Warnf("transaction %x rejected: %v", tx.Hash, err)
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(submitResponse{Status: "ok"})
}
