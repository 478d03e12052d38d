package blockchain

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/gwrxuk/DeFiWallet/wallet"
)

func TestSolanaGetBalance(t *testing.T) {
	// 2.5 SOL in lamports.
	srv := fakeRPC(t, map[string]string{"getBalance": `{"context":{"slot":1},"value":2500000000}`})
	client := NewSolanaClient(srv.URL, time.Second)

	balance, err := client.GetBalance(context.Background(), "solAddr")
	require.NoError(t, err)
	require.InDelta(t, 2.5, balance, 1e-9)
}

func TestSolanaSendRawTransaction(t *testing.T) {
	srv := fakeRPC(t, map[string]string{"sendTransaction": `"5igSig"`})
	client := NewSolanaClient(srv.URL, time.Second)

	sig, err := client.SendRawTransaction(context.Background(), "base64tx")
	require.NoError(t, err)
	require.Equal(t, "5igSig", sig)
}

func TestSolanaTransactionStatus(t *testing.T) {
	tests := []struct {
		name   string
		result string
		want   TxStatus
	}{
		{"unknown signature", `{"value":[null]}`, TxPending},
		{"processed", `{"value":[{"confirmationStatus":"processed","err":null}]}`, TxPending},
		{"confirmed", `{"value":[{"confirmationStatus":"confirmed","err":null}]}`, TxConfirmed},
		{"finalized", `{"value":[{"confirmationStatus":"finalized","err":null}]}`, TxConfirmed},
		{"failed", `{"value":[{"confirmationStatus":"confirmed","err":{"InstructionError":[0,"Custom"]}}]}`, TxFailed},
		{"empty value", `{"value":[]}`, TxPending},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := fakeRPC(t, map[string]string{"getSignatureStatuses": tt.result})
			client := NewSolanaClient(srv.URL, time.Second)

			status, err := client.GetTransactionStatus(context.Background(), "5igSig")
			require.NoError(t, err)
			require.Equal(t, tt.want, status)
		})
	}
}

func TestServiceRoutesByChain(t *testing.T) {
	ethSrv := fakeRPC(t, map[string]string{"eth_getBalance": `"0xde0b6b3a7640000"`})
	solSrv := fakeRPC(t, map[string]string{"getBalance": `{"context":{"slot":1},"value":1000000000}`})

	svc := &Service{clients: map[wallet.ChainType]chainClient{
		wallet.ChainEthereum: NewEthereumClient(ethSrv.URL, time.Second),
		wallet.ChainSolana:   NewSolanaClient(solSrv.URL, time.Second),
	}}

	eth, err := svc.GetBalance(context.Background(), wallet.ChainEthereum, "0xabc")
	require.NoError(t, err)
	require.InDelta(t, 1.0, eth, 1e-9)

	sol, err := svc.GetBalance(context.Background(), wallet.ChainSolana, "solAddr")
	require.NoError(t, err)
	require.InDelta(t, 1.0, sol, 1e-9)

	_, err = svc.GetBalance(context.Background(), wallet.ChainBitcoin, "1abc")
	require.Error(t, err, "no backend is configured for bitcoin")
}

func TestServicePendingAnnouncements(t *testing.T) {
	svc := &Service{clients: map[wallet.ChainType]chainClient{}}

	svc.OnTransaction("0xa", "0xb", 5, "ethereum")
	svc.OnTransaction("0xc", "0xd", 7, "solana")

	pending := svc.PendingTransactions()
	require.Len(t, pending, 2)
	require.Equal(t, "0xa", pending[0].From)
	require.Equal(t, "solana", pending[1].ChainType)

	// The list is bounded; the oldest entries roll off.
	for i := 0; i < maxPendingAnnouncements; i++ {
		svc.OnTransaction("0xnew", "0xb", float64(i), "ethereum")
	}
	pending = svc.PendingTransactions()
	require.Len(t, pending, maxPendingAnnouncements)
	require.Equal(t, "0xnew", pending[0].From, "oldest announcements are evicted first")
}
