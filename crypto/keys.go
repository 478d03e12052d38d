// Package crypto holds the wallet signing keys. All wallet chains we
// support (Ethereum, Solana, Bitcoin) are addressed from an ed25519
// public key here; chain-specific address encoding lives in
// crypto/address.
package crypto

// PrivateKey is an immutable wallet signing key.
type PrivateKey interface {
	Bytes() []byte
	Sign(data []byte) []byte
	PublicKey() PublicKey
	Equal(other PrivateKey) bool
	String() string
}

// PublicKey is the verification half of a wallet key.
type PublicKey interface {
	Bytes() []byte
	Verify(data, sig []byte) bool
	Equal(other PublicKey) bool
	String() string
}
