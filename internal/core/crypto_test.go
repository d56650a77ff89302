package core

import (
	"crypto/aes"
	"crypto/cipher"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/curve25519"
)

func hkdfSharedForTest(priv, peerPub [32]byte) ([]byte, error) {
	return curve25519.X25519(priv[:], peerPub[:])
}

func cbcEncryptForTest(t *testing.T, key, iv, plaintext []byte) []byte {
	t.Helper()
	block, err := aes.NewCipher(key)
	require.NoError(t, err)
	out := make([]byte, len(plaintext))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, plaintext)
	return out
}

func TestSignAndVerifyRoundTrip(t *testing.T) {
	var enc, mac [32]byte
	copy(enc[:], []byte("0123456789abcdef0123456789abcdef"))
	copy(mac[:], []byte("fedcba9876543210fedcba9876543210"))

	plaintext := []byte("a node's bytes, arbitrary length, not block-aligned")
	wire, err := signAndEncryptMessage(enc, mac, plaintext)
	require.NoError(t, err)

	got, err := verifyAndDecryptMessage(enc, mac, wire)
	require.NoError(t, err)
	assert.Equal(t, plaintext, got)
}

func TestVerifyRejectsTamperedFrame(t *testing.T) {
	var enc, mac [32]byte
	copy(enc[:], []byte("0123456789abcdef0123456789abcdef"))
	copy(mac[:], []byte("fedcba9876543210fedcba9876543210"))

	wire, err := signAndEncryptMessage(enc, mac, []byte("untouched"))
	require.NoError(t, err)

	tampered := append([]byte{}, wire...)
	tampered[len(tampered)-1] ^= 0xFF

	_, err = verifyAndDecryptMessage(enc, mac, tampered)
	assert.Error(t, err)
}

func TestCalculateSecretKeysRejectsBadLength(t *testing.T) {
	_, _, err := calculateSecretKeys(make([]byte, 10), [32]byte{})
	assert.Error(t, err)
}

func TestCalculateSecretKeysRoundTripAgainstFabricatedServerSecret(t *testing.T) {
	priv, pub, err := generateKeypair()
	require.NoError(t, err)

	serverPriv, serverPub, err := generateKeypair()
	require.NoError(t, err)

	shared, err := hkdfSharedForTest(serverPriv, pub)
	require.NoError(t, err)
	expanded, err := hkdfExpand(shared, 80)
	require.NoError(t, err)

	plaintext := make([]byte, 80)
	copy(plaintext[0:32], pub[:])
	copy(plaintext[32:64], []byte("0123456789abcdef0123456789abcdef"))

	ciphertext := cbcEncryptForTest(t, expanded[0:32], expanded[64:80], plaintext)

	hmacKey := expanded[32:64]
	tag := hmacSum(hmacKey, append(append([]byte{}, serverPub[:]...), ciphertext...))

	serverSecret := append(append(append([]byte{}, serverPub[:]...), tag...), ciphertext...)

	enc, mac, err := calculateSecretKeys(serverSecret, priv)
	require.NoError(t, err)
	assert.Equal(t, []byte("0123456789abcdef0123456789abcdef"), enc[:])
	assert.Equal(t, hmacKey, mac[:])
}

func TestPkcs7PadUnpadRoundTrip(t *testing.T) {
	for _, n := range []int{0, 1, 15, 16, 17, 31} {
		data := make([]byte, n)
		for i := range data {
			data[i] = byte(i)
		}
		padded := pkcs7Pad(data, 16)
		assert.Equal(t, 0, len(padded)%16)
		unpadded, err := pkcs7Unpad(padded)
		require.NoError(t, err)
		assert.Equal(t, data, unpadded)
	}
}
