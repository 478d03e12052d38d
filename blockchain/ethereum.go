package blockchain

import (
	"context"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"time"
)

var weiPerEther = new(big.Float).SetFloat64(1e18)

// EthereumClient talks to an Ethereum JSON-RPC endpoint.
type EthereumClient struct {
	rpc rpcClient
}

// NewEthereumClient creates a client for the given RPC URL.
func NewEthereumClient(url string, timeout time.Duration) *EthereumClient {
	return &EthereumClient{rpc: rpcClient{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
	}}
}

// GetBalance returns the address balance in ether.
func (c *EthereumClient) GetBalance(ctx context.Context, address string) (float64, error) {
	var hexBalance string
	if err := c.rpc.call(ctx, "eth_getBalance", []interface{}{address, "latest"}, &hexBalance); err != nil {
		return 0, err
	}

	wei, err := parseHexBig(hexBalance)
	if err != nil {
		return 0, fmt.Errorf("invalid eth_getBalance result %q: %w", hexBalance, err)
	}

	ether, _ := new(big.Float).Quo(new(big.Float).SetInt(wei), weiPerEther).Float64()
	return ether, nil
}

// SendRawTransaction submits a pre-signed transaction and returns its
// hash. Signing happens in the caller; this node never holds chain gas
// keys in hot memory.
func (c *EthereumClient) SendRawTransaction(ctx context.Context, rawTx string) (string, error) {
	var txHash string
	if err := c.rpc.call(ctx, "eth_sendRawTransaction", []interface{}{rawTx}, &txHash); err != nil {
		return "", err
	}
	return txHash, nil
}

// GetTransactionStatus maps the receipt to Pending/Confirmed/Failed.
// A missing receipt means the transaction is still pending.
func (c *EthereumClient) GetTransactionStatus(ctx context.Context, txHash string) (TxStatus, error) {
	var receipt *struct {
		Status string `json:"status"`
	}
	if err := c.rpc.call(ctx, "eth_getTransactionReceipt", []interface{}{txHash}, &receipt); err != nil {
		return "", err
	}

	if receipt == nil {
		return TxPending, nil
	}
	if receipt.Status == "0x1" {
		return TxConfirmed, nil
	}
	return TxFailed, nil
}

// erc20BalanceOfSelector is the 4-byte selector of balanceOf(address).
const erc20BalanceOfSelector = "0x70a08231"

// GetTokenBalance reads an ERC-20 balance via eth_call. The result is
// the raw token amount; decimal scaling is the caller's concern.
func (c *EthereumClient) GetTokenBalance(ctx context.Context, tokenContract, holder string) (*big.Int, error) {
	holder = strings.TrimPrefix(holder, "0x")
	if len(holder) != 40 {
		return nil, fmt.Errorf("invalid holder address %q", holder)
	}
	data := erc20BalanceOfSelector + strings.Repeat("0", 24) + strings.ToLower(holder)

	var result string
	params := []interface{}{
		map[string]string{"to": tokenContract, "data": data},
		"latest",
	}
	if err := c.rpc.call(ctx, "eth_call", params, &result); err != nil {
		return nil, err
	}

	amount, err := parseHexBig(result)
	if err != nil {
		return nil, fmt.Errorf("invalid eth_call result %q: %w", result, err)
	}
	return amount, nil
}

func parseHexBig(s string) (*big.Int, error) {
	s = strings.TrimPrefix(s, "0x")
	if s == "" {
		return big.NewInt(0), nil
	}
	n, ok := new(big.Int).SetString(s, 16)
	if !ok {
		return nil, fmt.Errorf("not a hex quantity")
	}
	return n, nil
}
