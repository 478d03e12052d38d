package address

import (
	"crypto/ed25519"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func testPubKey(t *testing.T, seed int64) []byte {
	t.Helper()
	pub, _, err := ed25519.GenerateKey(rand.New(rand.NewSource(seed)))
	require.NoError(t, err)
	return pub
}

func TestEthereum(t *testing.T) {
	pub := testPubKey(t, 1234)

	addr, err := Ethereum(pub)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(addr, "0x"))
	require.Len(t, addr, EthereumLength)
	require.NoError(t, ValidateEthereum(addr))

	// Same key, same address.
	again, err := Ethereum(testPubKey(t, 1234))
	require.NoError(t, err)
	require.Equal(t, addr, again)

	// Different key, different address.
	other, err := Ethereum(testPubKey(t, 5678))
	require.NoError(t, err)
	require.NotEqual(t, addr, other)

	_, err = Ethereum(nil)
	require.Error(t, err)
}

func TestSolana(t *testing.T) {
	pub := testPubKey(t, 1234)

	addr, err := Solana(pub)
	require.NoError(t, err)
	require.NotEmpty(t, addr)
	require.NotContains(t, addr, "0") // base58 alphabet excludes 0, O, I, l
	require.NotContains(t, addr, "O")

	again, err := Solana(testPubKey(t, 1234))
	require.NoError(t, err)
	require.Equal(t, addr, again)

	_, err = Solana(nil)
	require.Error(t, err)
}

func TestBitcoin(t *testing.T) {
	pub := testPubKey(t, 1234)

	addr, err := Bitcoin(pub)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(addr, "1"), "mainnet P2PKH addresses start with 1")
	require.NoError(t, ValidateBitcoin(addr))

	again, err := Bitcoin(testPubKey(t, 1234))
	require.NoError(t, err)
	require.Equal(t, addr, again)

	_, err = Bitcoin(nil)
	require.Error(t, err)
}

func TestValidateEthereum(t *testing.T) {
	tests := []struct {
		name  string
		addr  string
		valid bool
	}{
		{"valid lowercase", "0x4a7b3c8d9e2f1a6b5c4d3e2f1a9b8c7d6e5f4321", true},
		{"valid uppercase", "0x4A7B3C8D9E2F1A6B5C4D3E2F1A9B8C7D6E5F4321", true},
		{"missing prefix", "4a7b3c8d9e2f1a6b5c4d3e2f1a9b8c7d6e5f4321", false},
		{"too short", "0x4a7b3c8d", false},
		{"too long", "0x4a7b3c8d9e2f1a6b5c4d3e2f1a9b8c7d6e5f4321ab", false},
		{"not hex", "0x4a7b3c8d9e2f1a6b5c4d3e2f1a9b8c7d6e5fzzzz", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEthereum(tt.addr)
			if tt.valid {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
			}
		})
	}
}

func TestValidateBitcoin(t *testing.T) {
	addr, err := Bitcoin(testPubKey(t, 42))
	require.NoError(t, err)
	require.NoError(t, ValidateBitcoin(addr))

	// Corrupting any character breaks the checksum.
	corrupted := []byte(addr)
	if corrupted[len(corrupted)-1] == '2' {
		corrupted[len(corrupted)-1] = '3'
	} else {
		corrupted[len(corrupted)-1] = '2'
	}
	require.Error(t, ValidateBitcoin(string(corrupted)))

	require.Error(t, ValidateBitcoin("not base58 0OIl"))
	require.Error(t, ValidateBitcoin("abc"))
}
