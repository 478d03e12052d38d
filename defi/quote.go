package defi

import "fmt"

// Protocol identifies a supported DEX.
type Protocol string

const (
	UniswapV2 Protocol = "uniswap_v2"
	UniswapV3 Protocol = "uniswap_v3"
	SushiSwap Protocol = "sushiswap"
	Curve     Protocol = "curve"
)

// swapFees holds each protocol's taker fee as a fraction of input.
var swapFees = map[Protocol]float64{
	UniswapV2: 0.003,
	UniswapV3: 0.003,
	SushiSwap: 0.003,
	Curve:     0.0004,
}

// ParseProtocol validates a protocol name from config or an API call.
func ParseProtocol(s string) (Protocol, error) {
	if _, ok := swapFees[Protocol(s)]; !ok {
		return "", fmt.Errorf("unsupported protocol %q", s)
	}
	return Protocol(s), nil
}

// Pool is a snapshot of a two-asset liquidity pool.
type Pool struct {
	Protocol   Protocol
	TokenIn    string
	TokenOut   string
	ReserveIn  float64
	ReserveOut float64
}

// Quote is the outcome of pricing a swap against a pool.
type Quote struct {
	Protocol     Protocol `json:"protocol"`
	TokenIn      string   `json:"token_in"`
	TokenOut     string   `json:"token_out"`
	AmountIn     float64  `json:"amount_in"`
	AmountOut    float64  `json:"amount_out"`
	MinAmountOut float64  `json:"min_amount_out"`
	Fee          float64  `json:"fee"`
	PriceImpact  float64  `json:"price_impact"`
}

// QuoteSwap prices amountIn against the pool using the constant-product
// rule. MinAmountOut applies the given slippage bound; PriceImpact is
// the relative loss against the pool's spot price.
func QuoteSwap(pool Pool, amountIn, slippage float64) (*Quote, error) {
	fee, ok := swapFees[pool.Protocol]
	if !ok {
		return nil, fmt.Errorf("unsupported protocol %q", pool.Protocol)
	}
	if amountIn <= 0 {
		return nil, fmt.Errorf("amount_in must be positive, got %f", amountIn)
	}
	if pool.ReserveIn <= 0 || pool.ReserveOut <= 0 {
		return nil, fmt.Errorf("pool %s/%s has no liquidity", pool.TokenIn, pool.TokenOut)
	}
	if slippage < 0 || slippage >= 1 {
		return nil, fmt.Errorf("slippage must be in [0,1), got %f", slippage)
	}

	// x*y = k with the fee taken from the input side.
	effectiveIn := amountIn * (1 - fee)
	amountOut := pool.ReserveOut * effectiveIn / (pool.ReserveIn + effectiveIn)

	spot := pool.ReserveOut / pool.ReserveIn
	execution := amountOut / amountIn
	impact := 1 - execution/spot
	if impact < 0 {
		impact = 0
	}

	return &Quote{
		Protocol:     pool.Protocol,
		TokenIn:      pool.TokenIn,
		TokenOut:     pool.TokenOut,
		AmountIn:     amountIn,
		AmountOut:    amountOut,
		MinAmountOut: amountOut * (1 - slippage),
		Fee:          amountIn * fee,
		PriceImpact:  impact,
	}, nil
}

// BestQuote prices the swap against every pool and returns the quote
// with the highest output, or an error when no pool can serve it.
func BestQuote(pools []Pool, amountIn, slippage float64) (*Quote, error) {
	var best *Quote
	for _, pool := range pools {
		q, err := QuoteSwap(pool, amountIn, slippage)
		if err != nil {
			continue
		}
		if best == nil || q.AmountOut > best.AmountOut {
			best = q
		}
	}
	if best == nil {
		return nil, fmt.Errorf("no pool can quote this swap")
	}
	return best, nil
}
