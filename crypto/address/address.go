// Package address derives chain-specific wallet addresses from an
// ed25519 public key.
package address

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/ripemd160"
)

const (
	// Ethereum-style address format constants
	EthereumPrefix     = "0x"
	EthereumLength     = 42 // "0x" + 40 hex characters
	EthereumByteLength = 20

	// Bitcoin P2PKH version byte (mainnet)
	bitcoinVersion = 0x00
)

// Ethereum derives a 0x-prefixed 20-byte address: the last 20 bytes of
// the Blake2b-256 hash of the public key.
func Ethereum(pubKey []byte) (string, error) {
	if len(pubKey) == 0 {
		return "", fmt.Errorf("public key cannot be empty")
	}

	hashBytes := blake2b.Sum256(pubKey)
	return EthereumPrefix + hex.EncodeToString(hashBytes[len(hashBytes)-EthereumByteLength:]), nil
}

// Solana encodes the raw public key as base58.
func Solana(pubKey []byte) (string, error) {
	if len(pubKey) == 0 {
		return "", fmt.Errorf("public key cannot be empty")
	}
	return base58.Encode(pubKey), nil
}

// Bitcoin derives a P2PKH base58check address:
// base58(version || ripemd160(sha256(pub)) || checksum), checksum being
// the first 4 bytes of sha256(sha256(payload)).
func Bitcoin(pubKey []byte) (string, error) {
	if len(pubKey) == 0 {
		return "", fmt.Errorf("public key cannot be empty")
	}

	shaDigest := sha256.Sum256(pubKey)
	ripe := ripemd160.New()
	ripe.Write(shaDigest[:])
	pubKeyHash := ripe.Sum(nil)

	payload := append([]byte{bitcoinVersion}, pubKeyHash...)
	first := sha256.Sum256(payload)
	second := sha256.Sum256(first[:])

	return base58.Encode(append(payload, second[:4]...)), nil
}

// ValidateEthereum checks the 0x-hex address format.
func ValidateEthereum(addr string) error {
	if !strings.HasPrefix(addr, EthereumPrefix) {
		return fmt.Errorf("address must start with %s", EthereumPrefix)
	}
	if len(addr) != EthereumLength {
		return fmt.Errorf("address must be %d characters, got %d", EthereumLength, len(addr))
	}
	if _, err := hex.DecodeString(addr[2:]); err != nil {
		return fmt.Errorf("address must be valid hex: %w", err)
	}
	return nil
}

// ValidateBitcoin checks the base58check encoding and checksum.
func ValidateBitcoin(addr string) error {
	decoded, err := base58.Decode(addr)
	if err != nil {
		return fmt.Errorf("address must be valid base58: %w", err)
	}
	if len(decoded) != 25 { // version + 20-byte hash + 4-byte checksum
		return fmt.Errorf("decoded address must be 25 bytes, got %d", len(decoded))
	}

	payload, checksum := decoded[:21], decoded[21:]
	first := sha256.Sum256(payload)
	second := sha256.Sum256(first[:])
	for i := 0; i < 4; i++ {
		if checksum[i] != second[i] {
			return fmt.Errorf("address checksum mismatch")
		}
	}
	return nil
}
