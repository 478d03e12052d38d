package defi

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gwrxuk/DeFiWallet/config"
)

func newTestDeFiService(t *testing.T) *Service {
	t.Helper()
	svc, err := NewService(&config.DeFiConfig{
		SupportedProtocols: []string{"uniswap_v2", "curve"},
		DefaultSlippage:    0.01,
	}, nil)
	require.NoError(t, err)
	return svc
}

func TestNewServiceRejectsUnknownProtocol(t *testing.T) {
	_, err := NewService(&config.DeFiConfig{
		SupportedProtocols: []string{"uniswap_v2", "hopeswap"},
	}, nil)
	require.Error(t, err)
}

func TestRegisterPool(t *testing.T) {
	svc := newTestDeFiService(t)

	require.NoError(t, svc.RegisterPool(testPool(UniswapV2)))

	// SushiSwap is not in the configured protocol set.
	require.Error(t, svc.RegisterPool(testPool(SushiSwap)))

	empty := testPool(UniswapV2)
	empty.ReserveIn = 0
	require.Error(t, svc.RegisterPool(empty))
}

func TestGetSwapQuote(t *testing.T) {
	svc := newTestDeFiService(t)
	require.NoError(t, svc.RegisterPool(testPool(UniswapV2)))
	require.NoError(t, svc.RegisterPool(testPool(Curve)))

	q, err := svc.GetSwapQuote("WETH", "USDC", 10)
	require.NoError(t, err)
	require.Equal(t, Curve, q.Protocol, "the lower-fee pool wins")
	require.InDelta(t, q.AmountOut*0.99, q.MinAmountOut, 1e-6, "config slippage applies")

	_, err = svc.GetSwapQuote("WETH", "DAI", 10)
	require.Error(t, err, "no pool for the pair")
}

func TestProtocols(t *testing.T) {
	svc := newTestDeFiService(t)
	protos := svc.Protocols()
	require.Len(t, protos, 2)
	require.Contains(t, protos, "uniswap_v2")
	require.Contains(t, protos, "curve")
}
