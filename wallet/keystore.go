package wallet

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/nacl/secretbox"
)

const nonceSize = 24

// deriveKey turns the service passphrase into a secretbox key.
func deriveKey(passphrase string) [32]byte {
	return blake2b.Sum256([]byte(passphrase))
}

// sealKey encrypts private key material with a random nonce prepended
// to the ciphertext.
func sealKey(plain []byte, key *[32]byte) ([]byte, error) {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	return secretbox.Seal(nonce[:], plain, &nonce, key), nil
}

// openKey decrypts material produced by sealKey.
func openKey(sealed []byte, key *[32]byte) ([]byte, error) {
	if len(sealed) < nonceSize {
		return nil, errors.New("sealed key material is too short")
	}
	var nonce [nonceSize]byte
	copy(nonce[:], sealed[:nonceSize])

	plain, ok := secretbox.Open(nil, sealed[nonceSize:], &nonce, key)
	if !ok {
		return nil, errors.New("failed to decrypt private key: wrong passphrase or corrupt record")
	}
	return plain, nil
}
