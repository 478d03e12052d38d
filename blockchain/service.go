package blockchain

import (
	"context"
	"fmt"
	"sync"

	logging "github.com/ipfs/go-log/v2"

	"github.com/gwrxuk/DeFiWallet/config"
	"github.com/gwrxuk/DeFiWallet/network/p2p"
	"github.com/gwrxuk/DeFiWallet/wallet"
)

var log = logging.Logger("blockchain")

// TxStatus describes the lifecycle of a submitted transaction.
type TxStatus string

const (
	TxPending   TxStatus = "pending"
	TxConfirmed TxStatus = "confirmed"
	TxFailed    TxStatus = "failed"
)

// maxPendingAnnouncements bounds the list of transactions observed
// through the mesh that have not been queried against a chain yet.
const maxPendingAnnouncements = 256

// chainClient is satisfied by per-chain RPC clients.
type chainClient interface {
	GetBalance(ctx context.Context, address string) (float64, error)
	SendRawTransaction(ctx context.Context, rawTx string) (string, error)
	GetTransactionStatus(ctx context.Context, txHash string) (TxStatus, error)
}

// Service routes balance queries and transaction submissions to the
// configured chain backends. It also records transaction announcements
// received from peers.
type Service struct {
	clients map[wallet.ChainType]chainClient

	mu      sync.Mutex
	pending []p2p.Transaction
}

// NewService wires RPC clients for every configured chain.
func NewService(cfg *config.BlockchainConfig) *Service {
	return &Service{
		clients: map[wallet.ChainType]chainClient{
			wallet.ChainEthereum: NewEthereumClient(cfg.EthereumRPCURL, cfg.RequestTimeout.Std()),
			wallet.ChainSolana:   NewSolanaClient(cfg.SolanaRPCURL, cfg.RequestTimeout.Std()),
		},
	}
}

func (s *Service) client(chain wallet.ChainType) (chainClient, error) {
	c, ok := s.clients[chain]
	if !ok {
		return nil, fmt.Errorf("no RPC backend for chain %s", chain)
	}
	return c, nil
}

// GetBalance queries the chain for the native-token balance of address.
func (s *Service) GetBalance(ctx context.Context, chain wallet.ChainType, address string) (float64, error) {
	c, err := s.client(chain)
	if err != nil {
		return 0, err
	}
	return c.GetBalance(ctx, address)
}

// SendRawTransaction submits a pre-signed transaction to the chain and
// returns its hash or signature.
func (s *Service) SendRawTransaction(ctx context.Context, chain wallet.ChainType, rawTx string) (string, error) {
	c, err := s.client(chain)
	if err != nil {
		return "", err
	}
	return c.SendRawTransaction(ctx, rawTx)
}

// GetTransactionStatus reports whether a transaction is pending,
// confirmed or failed on the given chain.
func (s *Service) GetTransactionStatus(ctx context.Context, chain wallet.ChainType, txHash string) (TxStatus, error) {
	c, err := s.client(chain)
	if err != nil {
		return "", err
	}
	return c.GetTransactionStatus(ctx, txHash)
}

// OnTransaction records a transaction announced by a peer. The list is
// bounded; when full the oldest announcement is discarded.
func (s *Service) OnTransaction(from, to string, amount float64, chainType string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.pending) >= maxPendingAnnouncements {
		s.pending = s.pending[1:]
	}
	s.pending = append(s.pending, p2p.Transaction{
		From:      from,
		To:        to,
		Amount:    amount,
		ChainType: chainType,
	})
	log.Debugw("recorded transaction announcement",
		"from", from, "to", to, "amount", amount, "chain", chainType)
}

// PendingTransactions returns a copy of the recorded announcements.
func (s *Service) PendingTransactions() []p2p.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]p2p.Transaction, len(s.pending))
	copy(out, s.pending)
	return out
}
