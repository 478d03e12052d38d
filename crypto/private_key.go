package crypto

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
)

type privateKey struct {
	// Ed25519 private key (64 bytes: 32 bytes seed + 32 bytes public key)
	privKey ed25519.PrivateKey
}

var _ PrivateKey = (*privateKey)(nil)

// NewPrivateKey generates a fresh ed25519 wallet key. Key generation
// failing means the process is out of entropy, which is fatal for the
// caller to decide on.
func NewPrivateKey() (PrivateKey, error) {
	_, privKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ed25519 key: %w", err)
	}

	// Copy so the caller cannot mutate our backing array.
	keyCopy := make(ed25519.PrivateKey, ed25519.PrivateKeySize)
	copy(keyCopy, privKey)

	return &privateKey{privKey: keyCopy}, nil
}

// NewPrivateKeyFromBytes restores a key from its raw 64-byte form.
func NewPrivateKeyFromBytes(keyData []byte) (PrivateKey, error) {
	if len(keyData) == 0 {
		return nil, errors.New("private key data is empty")
	}
	if len(keyData) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("invalid private key size: got %d, want %d",
			len(keyData), ed25519.PrivateKeySize)
	}

	keyCopy := make(ed25519.PrivateKey, ed25519.PrivateKeySize)
	copy(keyCopy, keyData)

	return &privateKey{privKey: keyCopy}, nil
}

func (p *privateKey) Bytes() []byte {
	if len(p.privKey) == 0 {
		return nil
	}
	result := make([]byte, len(p.privKey))
	copy(result, p.privKey)
	return result
}

func (p *privateKey) Sign(data []byte) []byte {
	if len(p.privKey) == 0 {
		return nil
	}
	return ed25519.Sign(p.privKey, data)
}

func (p *privateKey) PublicKey() PublicKey {
	if len(p.privKey) == 0 {
		return nil
	}

	pub := p.privKey.Public().(ed25519.PublicKey)
	pubCopy := make(ed25519.PublicKey, ed25519.PublicKeySize)
	copy(pubCopy, pub)

	return &publicKey{pubKey: pubCopy}
}

func (p *privateKey) Equal(other PrivateKey) bool {
	if other == nil {
		return len(p.privKey) == 0
	}
	return bytes.Equal(p.Bytes(), other.Bytes())
}

// String never exposes key material.
func (p *privateKey) String() string {
	if len(p.privKey) == 0 {
		return "PrivateKey(nil)"
	}
	return fmt.Sprintf("PrivateKey(len:%d)", len(p.privKey))
}
