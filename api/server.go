package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	logging "github.com/ipfs/go-log/v2"
	"github.com/rs/cors"

	"github.com/gwrxuk/DeFiWallet/blockchain"
	"github.com/gwrxuk/DeFiWallet/config"
	"github.com/gwrxuk/DeFiWallet/defi"
	"github.com/gwrxuk/DeFiWallet/network"
	"github.com/gwrxuk/DeFiWallet/network/p2p"
	"github.com/gwrxuk/DeFiWallet/wallet"
)

func kindKnown(kind p2p.Kind) bool {
	for _, k := range p2p.Kinds() {
		if k == kind {
			return true
		}
	}
	return false
}

var log = logging.Logger("api")

// Server exposes the wallet, quote and mesh surfaces over REST.
type Server struct {
	cfg     *config.APIConfig
	wallets *wallet.Service
	chains  *blockchain.Service
	swaps   *defi.Service
	mesh    *network.Network
	status  func() map[string]interface{}

	router *mux.Router
	server *http.Server
}

// NewServer wires the routes. The status callback reports node-level
// state the server has no direct handle on.
func NewServer(cfg *config.APIConfig, wallets *wallet.Service, chains *blockchain.Service,
	swaps *defi.Service, mesh *network.Network, status func() map[string]interface{}) *Server {

	s := &Server{
		cfg:     cfg,
		wallets: wallets,
		chains:  chains,
		swaps:   swaps,
		mesh:    mesh,
		status:  status,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router = mux.NewRouter()
	api := s.router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/wallets", s.createWallet).Methods("POST")
	api.HandleFunc("/wallets", s.listWallets).Methods("GET")
	api.HandleFunc("/wallets/{address}", s.getWallet).Methods("GET")
	api.HandleFunc("/wallets/{address}/balance", s.getBalance).Methods("GET")

	api.HandleFunc("/transactions", s.sendTransaction).Methods("POST")
	api.HandleFunc("/transactions/pending", s.getPendingTransactions).Methods("GET")
	api.HandleFunc("/transactions/{hash}/status", s.getTransactionStatus).Methods("GET")

	api.HandleFunc("/swap/quote", s.getSwapQuote).Methods("POST")

	api.HandleFunc("/network/publish", s.publishMessage).Methods("POST")
	api.HandleFunc("/network/peers", s.getPeers).Methods("GET")
	api.HandleFunc("/network/status", s.getNetworkStatus).Methods("GET")

	api.HandleFunc("/status", s.getStatus).Methods("GET")
	api.HandleFunc("/health", s.getHealth).Methods("GET")

	if s.cfg.EnableCORS {
		c := cors.New(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders: []string{"*"},
		})
		s.router.Use(c.Handler)
	}
	s.router.Use(s.loggingMiddleware)
}

// Start serves until Stop or a listener error. ErrServerClosed from a
// clean shutdown is not reported as a failure.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.RESTAddr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Infow("REST API listening", "addr", s.cfg.RESTAddr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Stop shuts the server down, waiting for in-flight requests.
func (s *Server) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router exposes the handler for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Wallet endpoints

type createWalletRequest struct {
	ChainType string `json:"chain_type"`
}

func (s *Server) createWallet(w http.ResponseWriter, r *http.Request) {
	var req createWalletRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	chain, err := wallet.ParseChainType(req.ChainType)
	if err != nil {
		s.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	wlt, err := s.wallets.Create(chain)
	if err != nil {
		s.writeError(w, "wallet creation failed", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, wlt, http.StatusCreated)
}

func (s *Server) listWallets(w http.ResponseWriter, r *http.Request) {
	wallets, err := s.wallets.List()
	if err != nil {
		s.writeError(w, "wallet listing failed", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, map[string]interface{}{
		"wallets": wallets,
		"count":   len(wallets),
	}, http.StatusOK)
}

func (s *Server) getWallet(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]

	wlt, err := s.wallets.Get(address)
	if errors.Is(err, wallet.ErrWalletNotFound) {
		s.writeError(w, "wallet not found", http.StatusNotFound)
		return
	}
	if err != nil {
		s.writeError(w, "wallet lookup failed", http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, wlt, http.StatusOK)
}

// getBalance queries the chain for a live balance, stores it, and
// announces the update on the mesh.
func (s *Server) getBalance(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]

	wlt, err := s.wallets.Get(address)
	if errors.Is(err, wallet.ErrWalletNotFound) {
		s.writeError(w, "wallet not found", http.StatusNotFound)
		return
	}
	if err != nil {
		s.writeError(w, "wallet lookup failed", http.StatusInternalServerError)
		return
	}

	balance, err := s.chains.GetBalance(r.Context(), wlt.ChainType, address)
	if err != nil {
		s.writeError(w, "balance query failed: "+err.Error(), http.StatusBadGateway)
		return
	}

	if err := s.wallets.ApplyBalance(address, balance); err != nil {
		log.Warnw("balance not persisted", "address", address, "err", err)
	}
	if s.mesh != nil {
		if err := s.mesh.PublishWalletUpdate(r.Context(), address, balance); err != nil {
			log.Debugw("balance not announced", "address", address, "err", err)
		}
	}

	s.writeJSON(w, map[string]interface{}{
		"address":    address,
		"balance":    balance,
		"chain_type": wlt.ChainType,
	}, http.StatusOK)
}

// Transaction endpoints

type sendTransactionRequest struct {
	ChainType string  `json:"chain_type"`
	RawTx     string  `json:"raw_tx"`
	From      string  `json:"from"`
	To        string  `json:"to"`
	Amount    float64 `json:"amount"`
}

func (s *Server) sendTransaction(w http.ResponseWriter, r *http.Request) {
	var req sendTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	chain, err := wallet.ParseChainType(req.ChainType)
	if err != nil {
		s.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.RawTx == "" {
		s.writeError(w, "raw_tx is required", http.StatusBadRequest)
		return
	}

	hash, err := s.chains.SendRawTransaction(r.Context(), chain, req.RawTx)
	if err != nil {
		s.writeError(w, "transaction submission failed: "+err.Error(), http.StatusBadGateway)
		return
	}

	if s.mesh != nil && req.From != "" && req.To != "" {
		if err := s.mesh.PublishTransaction(r.Context(), req.From, req.To, req.Amount, req.ChainType); err != nil {
			log.Debugw("transaction not announced", "hash", hash, "err", err)
		}
	}

	s.writeJSON(w, map[string]interface{}{
		"hash":   hash,
		"status": blockchain.TxPending,
	}, http.StatusAccepted)
}

func (s *Server) getPendingTransactions(w http.ResponseWriter, r *http.Request) {
	pending := s.chains.PendingTransactions()
	s.writeJSON(w, map[string]interface{}{
		"transactions": pending,
		"count":        len(pending),
	}, http.StatusOK)
}

func (s *Server) getTransactionStatus(w http.ResponseWriter, r *http.Request) {
	hash := mux.Vars(r)["hash"]

	chain, err := wallet.ParseChainType(r.URL.Query().Get("chain_type"))
	if err != nil {
		s.writeError(w, err.Error(), http.StatusBadRequest)
		return
	}

	status, err := s.chains.GetTransactionStatus(r.Context(), chain, hash)
	if err != nil {
		s.writeError(w, "status query failed: "+err.Error(), http.StatusBadGateway)
		return
	}
	s.writeJSON(w, map[string]interface{}{
		"hash":   hash,
		"status": status,
	}, http.StatusOK)
}

// DeFi endpoints

type swapQuoteRequest struct {
	TokenIn  string  `json:"token_in"`
	TokenOut string  `json:"token_out"`
	AmountIn float64 `json:"amount_in"`
}

func (s *Server) getSwapQuote(w http.ResponseWriter, r *http.Request) {
	var req swapQuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	quote, err := s.swaps.GetSwapQuote(req.TokenIn, req.TokenOut, req.AmountIn)
	if err != nil {
		s.writeError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	s.writeJSON(w, quote, http.StatusOK)
}

// Network endpoints

type publishRequest struct {
	Topic   string          `json:"topic"`
	Kind    string          `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

func (s *Server) publishMessage(w http.ResponseWriter, r *http.Request) {
	if s.mesh == nil {
		s.writeError(w, "network disabled", http.StatusServiceUnavailable)
		return
	}

	var req publishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	kind := p2p.Kind(req.Kind)
	if !kindKnown(kind) {
		s.writeError(w, "unknown message kind "+req.Kind, http.StatusBadRequest)
		return
	}

	err := s.mesh.Publish(r.Context(), req.Topic, kind, req.Payload)
	if err != nil {
		s.writeError(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	s.writeJSON(w, map[string]interface{}{"published": true}, http.StatusAccepted)
}

func (s *Server) getPeers(w http.ResponseWriter, r *http.Request) {
	if s.mesh == nil {
		s.writeError(w, "network disabled", http.StatusServiceUnavailable)
		return
	}

	peers := s.mesh.Manager().ConnectedPeers()
	ids := make([]string, 0, len(peers))
	for _, p := range peers {
		ids = append(ids, p.String())
	}
	s.writeJSON(w, map[string]interface{}{
		"peers": ids,
		"count": len(ids),
	}, http.StatusOK)
}

func (s *Server) getNetworkStatus(w http.ResponseWriter, r *http.Request) {
	if s.mesh == nil {
		s.writeError(w, "network disabled", http.StatusServiceUnavailable)
		return
	}
	s.writeJSON(w, s.mesh.Stats(), http.StatusOK)
}

// Status endpoints

func (s *Server) getStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, s.status(), http.StatusOK)
}

func (s *Server) getHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
	}, http.StatusOK)
}

// Helpers

func (s *Server) writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Errorw("response encoding failed", "err", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error":     message,
		"status":    statusCode,
		"timestamp": time.Now().Unix(),
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Debugw("request",
			"method", r.Method, "path", r.URL.Path,
			"status", lrw.statusCode, "duration", time.Since(start))
	})
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}
