package crypto

import (
	"crypto/ed25519"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewPrivateKey(t *testing.T) {
	priv, err := NewPrivateKey()
	require.NoError(t, err)
	require.Len(t, priv.Bytes(), ed25519.PrivateKeySize)
	require.Len(t, priv.PublicKey().Bytes(), ed25519.PublicKeySize)

	other, err := NewPrivateKey()
	require.NoError(t, err)
	require.False(t, priv.Equal(other), "two generated keys must differ")
}

func TestSignVerify(t *testing.T) {
	priv, err := NewPrivateKey()
	require.NoError(t, err)

	msg := []byte("balance update for 0xabc")
	sig := priv.Sign(msg)
	require.Len(t, sig, ed25519.SignatureSize)

	pub := priv.PublicKey()
	require.True(t, pub.Verify(msg, sig))
	require.False(t, pub.Verify([]byte("tampered"), sig))
	require.False(t, pub.Verify(msg, sig[:16]), "truncated signature must not verify")

	stranger, err := NewPrivateKey()
	require.NoError(t, err)
	require.False(t, stranger.PublicKey().Verify(msg, sig))
}

func TestPrivateKeyFromBytes(t *testing.T) {
	priv, err := NewPrivateKey()
	require.NoError(t, err)

	restored, err := NewPrivateKeyFromBytes(priv.Bytes())
	require.NoError(t, err)
	require.True(t, priv.Equal(restored))
	require.True(t, priv.PublicKey().Equal(restored.PublicKey()))

	_, err = NewPrivateKeyFromBytes([]byte("too short"))
	require.Error(t, err)
}

func TestPublicKeyFromBytes(t *testing.T) {
	priv, err := NewPrivateKey()
	require.NoError(t, err)

	pub, err := NewPublicKeyFromBytes(priv.PublicKey().Bytes())
	require.NoError(t, err)
	require.True(t, pub.Equal(priv.PublicKey()))

	_, err = NewPublicKeyFromBytes(nil)
	require.Error(t, err)
}

func TestBytesReturnsCopy(t *testing.T) {
	priv, err := NewPrivateKey()
	require.NoError(t, err)

	raw := priv.Bytes()
	raw[0] ^= 0xff
	require.NotEqual(t, raw[0], priv.Bytes()[0], "mutating the copy must not touch the key")

	pubRaw := priv.PublicKey().Bytes()
	pubRaw[0] ^= 0xff
	require.NotEqual(t, pubRaw[0], priv.PublicKey().Bytes()[0])
}

func TestStringHidesPrivateMaterial(t *testing.T) {
	priv, err := NewPrivateKey()
	require.NoError(t, err)
	require.NotContains(t, priv.String(), "PrivKeyHex", "private key string must not leak material")
}
