package defi

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	logging "github.com/ipfs/go-log/v2"

	"github.com/gwrxuk/DeFiWallet/blockchain"
	"github.com/gwrxuk/DeFiWallet/config"
)

var log = logging.Logger("defi")

// Service prices swaps against registered pools and reads ERC-20
// balances through the Ethereum client.
type Service struct {
	eth      *blockchain.EthereumClient
	slippage float64
	enabled  map[Protocol]bool

	mu    sync.RWMutex
	pools []Pool
}

// NewService builds a service restricted to the configured protocols.
func NewService(cfg *config.DeFiConfig, eth *blockchain.EthereumClient) (*Service, error) {
	enabled := make(map[Protocol]bool, len(cfg.SupportedProtocols))
	for _, name := range cfg.SupportedProtocols {
		proto, err := ParseProtocol(name)
		if err != nil {
			return nil, fmt.Errorf("defi config: %w", err)
		}
		enabled[proto] = true
	}
	return &Service{
		eth:      eth,
		slippage: cfg.DefaultSlippage,
		enabled:  enabled,
	}, nil
}

// RegisterPool adds a pool snapshot to the quoting set. Pools for
// protocols outside the configured set are rejected.
func (s *Service) RegisterPool(pool Pool) error {
	if !s.enabled[pool.Protocol] {
		return fmt.Errorf("protocol %s is not enabled", pool.Protocol)
	}
	if pool.ReserveIn <= 0 || pool.ReserveOut <= 0 {
		return fmt.Errorf("pool %s/%s has no liquidity", pool.TokenIn, pool.TokenOut)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pools = append(s.pools, pool)
	log.Debugw("registered pool",
		"protocol", pool.Protocol, "in", pool.TokenIn, "out", pool.TokenOut)
	return nil
}

// GetSwapQuote returns the best quote for the pair across all
// registered pools, using the configured slippage bound.
func (s *Service) GetSwapQuote(tokenIn, tokenOut string, amountIn float64) (*Quote, error) {
	s.mu.RLock()
	var candidates []Pool
	for _, pool := range s.pools {
		if pool.TokenIn == tokenIn && pool.TokenOut == tokenOut {
			candidates = append(candidates, pool)
		}
	}
	s.mu.RUnlock()

	if len(candidates) == 0 {
		return nil, fmt.Errorf("no pool for pair %s/%s", tokenIn, tokenOut)
	}
	return BestQuote(candidates, amountIn, s.slippage)
}

// GetTokenBalance reads an ERC-20 balance for holder. The amount is
// raw token units; decimals are the token's concern.
func (s *Service) GetTokenBalance(ctx context.Context, tokenContract, holder string) (*big.Int, error) {
	return s.eth.GetTokenBalance(ctx, tokenContract, holder)
}

// Protocols lists the enabled protocol names.
func (s *Service) Protocols() []string {
	out := make([]string, 0, len(s.enabled))
	for proto := range s.enabled {
		out = append(out, string(proto))
	}
	return out
}
