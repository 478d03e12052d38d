// Package wallet manages multi-chain wallets: key generation, address
// derivation, encrypted persistence and balance state. It is the
// wallet-state collaborator the network dispatch feeds.
package wallet

import (
	"fmt"
)

// ChainType names the chain a wallet belongs to. It travels on the
// wire in transaction announcements, so values are stable strings.
type ChainType string

const (
	ChainEthereum ChainType = "ethereum"
	ChainSolana   ChainType = "solana"
	ChainBitcoin  ChainType = "bitcoin"
)

// ParseChainType validates a chain name from config or the wire.
func ParseChainType(s string) (ChainType, error) {
	switch ChainType(s) {
	case ChainEthereum, ChainSolana, ChainBitcoin:
		return ChainType(s), nil
	}
	return "", fmt.Errorf("unsupported chain type %q", s)
}

// Wallet is the persisted wallet record. The private key is stored
// encrypted only; decryption requires the service passphrase.
type Wallet struct {
	Address             string    `cbor:"1,keyasint" json:"address"`
	PublicKey           []byte    `cbor:"2,keyasint" json:"public_key"`
	EncryptedPrivateKey []byte    `cbor:"3,keyasint" json:"-"`
	ChainType           ChainType `cbor:"4,keyasint" json:"chain_type"`
	Balance             float64   `cbor:"5,keyasint" json:"balance"`
	CreatedAt           int64     `cbor:"6,keyasint" json:"created_at"`
}
