package crypto

import (
	"bytes"
	"crypto/ed25519"
	"errors"
	"fmt"
)

type publicKey struct {
	pubKey ed25519.PublicKey
}

var _ PublicKey = (*publicKey)(nil)

// NewPublicKeyFromBytes restores a public key from its raw 32-byte form.
func NewPublicKeyFromBytes(keyData []byte) (PublicKey, error) {
	if len(keyData) == 0 {
		return nil, errors.New("public key data is empty")
	}
	if len(keyData) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("invalid public key size: got %d, want %d",
			len(keyData), ed25519.PublicKeySize)
	}

	keyCopy := make(ed25519.PublicKey, ed25519.PublicKeySize)
	copy(keyCopy, keyData)

	return &publicKey{pubKey: keyCopy}, nil
}

func (p *publicKey) Bytes() []byte {
	if len(p.pubKey) == 0 {
		return nil
	}
	result := make([]byte, len(p.pubKey))
	copy(result, p.pubKey)
	return result
}

func (p *publicKey) Verify(data, sig []byte) bool {
	if len(p.pubKey) == 0 || len(sig) != ed25519.SignatureSize {
		return false
	}
	return ed25519.Verify(p.pubKey, data, sig)
}

func (p *publicKey) Equal(other PublicKey) bool {
	if other == nil {
		return len(p.pubKey) == 0
	}
	return bytes.Equal(p.Bytes(), other.Bytes())
}

func (p *publicKey) String() string {
	if len(p.pubKey) == 0 {
		return "PubKey(nil)"
	}
	return fmt.Sprintf("PubKeyHex:%x", p.Bytes())
}
