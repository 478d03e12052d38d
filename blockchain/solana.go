package blockchain

import (
	"context"
	"net/http"
	"time"
)

const lamportsPerSol = 1e9

// SolanaClient talks to a Solana JSON-RPC endpoint.
type SolanaClient struct {
	rpc rpcClient
}

// NewSolanaClient creates a client for the given RPC URL.
func NewSolanaClient(url string, timeout time.Duration) *SolanaClient {
	return &SolanaClient{rpc: rpcClient{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
	}}
}

// GetBalance returns the account balance in SOL.
func (c *SolanaClient) GetBalance(ctx context.Context, address string) (float64, error) {
	var result struct {
		Value uint64 `json:"value"`
	}
	if err := c.rpc.call(ctx, "getBalance", []interface{}{address}, &result); err != nil {
		return 0, err
	}
	return float64(result.Value) / lamportsPerSol, nil
}

// SendRawTransaction submits a pre-signed base64 transaction and
// returns its signature.
func (c *SolanaClient) SendRawTransaction(ctx context.Context, rawTx string) (string, error) {
	var signature string
	params := []interface{}{rawTx, map[string]interface{}{"encoding": "base64"}}
	if err := c.rpc.call(ctx, "sendTransaction", params, &signature); err != nil {
		return "", err
	}
	return signature, nil
}

// GetTransactionStatus maps a signature status to Pending/Confirmed/
// Failed. An unknown signature is pending.
func (c *SolanaClient) GetTransactionStatus(ctx context.Context, signature string) (TxStatus, error) {
	var result struct {
		Value []*struct {
			ConfirmationStatus string      `json:"confirmationStatus"`
			Err                interface{} `json:"err"`
		} `json:"value"`
	}
	params := []interface{}{[]string{signature}}
	if err := c.rpc.call(ctx, "getSignatureStatuses", params, &result); err != nil {
		return "", err
	}

	if len(result.Value) == 0 || result.Value[0] == nil {
		return TxPending, nil
	}
	if result.Value[0].Err != nil {
		return TxFailed, nil
	}
	switch result.Value[0].ConfirmationStatus {
	case "confirmed", "finalized":
		return TxConfirmed, nil
	default:
		return TxPending, nil
	}
}
