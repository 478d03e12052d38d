package p2p

import (
	"encoding/json"
	"testing"

	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/stretchr/testify/require"
)

const testOrigin = peer.ID("origin-peer")

func TestNewEnvelope(t *testing.T) {
	env, err := NewEnvelope(testOrigin, "wallets", KindWalletUpdate, WalletUpdate{
		Address: "0xabc",
		Balance: 1.5,
	})
	require.NoError(t, err)
	require.NotEmpty(t, env.ID)
	require.Equal(t, testOrigin.String(), env.Origin)
	require.Equal(t, "wallets", env.Topic)
	require.Equal(t, KindWalletUpdate, env.Kind)

	var payload WalletUpdate
	require.NoError(t, json.Unmarshal(env.Payload, &payload))
	require.Equal(t, "0xabc", payload.Address)
	require.Equal(t, 1.5, payload.Balance)
}

func TestEnvelopeIDIsContentDerived(t *testing.T) {
	update := WalletUpdate{Address: "0xabc", Balance: 1.5}

	a, err := NewEnvelope(testOrigin, "wallets", KindWalletUpdate, update)
	require.NoError(t, err)
	b, err := NewEnvelope(testOrigin, "wallets", KindWalletUpdate, update)
	require.NoError(t, err)
	require.Equal(t, a.ID, b.ID, "identical content must yield the same ID")

	c, err := NewEnvelope(testOrigin, "wallets", KindWalletUpdate, WalletUpdate{Address: "0xabc", Balance: 2.0})
	require.NoError(t, err)
	require.NotEqual(t, a.ID, c.ID, "different payload must yield a different ID")

	d, err := NewEnvelope(testOrigin, "transactions", KindWalletUpdate, update)
	require.NoError(t, err)
	require.NotEqual(t, a.ID, d.ID, "different topic must yield a different ID")

	e, err := NewEnvelope(peer.ID("other-peer"), "wallets", KindWalletUpdate, update)
	require.NoError(t, err)
	require.NotEqual(t, a.ID, e.ID, "different origin must yield a different ID")
}

func TestEnvelopeRoundTrip(t *testing.T) {
	tests := []struct {
		name    string
		kind    Kind
		payload interface{}
	}{
		{"wallet update", KindWalletUpdate, WalletUpdate{Address: "0xabc", Balance: 42}},
		{"transaction", KindTransaction, Transaction{From: "0xa", To: "0xb", Amount: 7, ChainType: "ethereum"}},
		{"peer discovery", KindPeerDiscovery, PeerDiscovery{Peers: []string{"/ip4/127.0.0.1/tcp/9000"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := NewEnvelope(testOrigin, "topic", tt.kind, tt.payload)
			require.NoError(t, err)

			data, err := json.Marshal(env)
			require.NoError(t, err)

			var decoded Envelope
			require.NoError(t, json.Unmarshal(data, &decoded))
			require.NoError(t, decoded.Validate())
			require.Equal(t, env.ID, decoded.ID)
			require.Equal(t, env.Kind, decoded.Kind)
			require.JSONEq(t, string(env.Payload), string(decoded.Payload))
		})
	}
}

func TestEnvelopeValidateRejectsMissingFields(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"empty object", "{}"},
		{"missing id", `{"topic":"wallets","kind":"wallet_update","payload":{}}`},
		{"missing topic", `{"id":"abc","kind":"wallet_update","payload":{}}`},
		{"missing kind", `{"id":"abc","topic":"wallets","payload":{}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var env Envelope
			require.NoError(t, json.Unmarshal([]byte(tt.data), &env))
			require.Error(t, env.Validate())
		})
	}
}

func TestEnvelopeDecodeIgnoresUnknownFields(t *testing.T) {
	data := `{"id":"abc","origin":"p","topic":"wallets","kind":"wallet_update","payload":{"address":"0xa","balance":1},"future_field":true}`

	var env Envelope
	require.NoError(t, json.Unmarshal([]byte(data), &env))
	require.NoError(t, env.Validate())
	require.Equal(t, "abc", env.ID)
	require.Equal(t, KindWalletUpdate, env.Kind)
}

func TestKindsCoversAllConstants(t *testing.T) {
	kinds := Kinds()
	require.Contains(t, kinds, KindWalletUpdate)
	require.Contains(t, kinds, KindTransaction)
	require.Contains(t, kinds, KindPeerDiscovery)
	require.Len(t, kinds, 3)
}
