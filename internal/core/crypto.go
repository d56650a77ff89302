// WAConnect Go - WhatsApp API Gateway
// Copyright (c) 2026 VertexHub
// Licensed under MIT License
// https://github.com/vertexhub/waconnect-go

package core

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"io"

	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/hkdf"
)

// generateKeypair produces an X25519 ephemeral keypair, public encoded
// as the raw 32-byte Montgomery u-coordinate.
func generateKeypair() (priv, pub [32]byte, err error) {
	if _, err = io.ReadFull(rand.Reader, priv[:]); err != nil {
		return
	}
	pubSlice, err := curve25519.X25519(priv[:], curve25519.Basepoint)
	if err != nil {
		return
	}
	copy(pub[:], pubSlice)
	return
}

// hkdfExpand derives n bytes from shared secret material with an empty
// salt and info, matching the handshake's key schedule.
func hkdfExpand(shared []byte, n int) ([]byte, error) {
	r := hkdf.New(sha256.New, shared, nil, nil)
	out := make([]byte, n)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, err
	}
	return out, nil
}

// calculateSecretKeys implements the ConnectionAck key derivation: the
// server sends back a 144-byte secret shaped
// pub_peer[0:32] || hmac_tag[32:64] || encrypted[64:144]. From it and
// our ephemeral private key we recover the enc/mac keys used for all
// subsequent binary traffic.
func calculateSecretKeys(serverSecret []byte, priv [32]byte) (enc, mac [32]byte, err error) {
	if len(serverSecret) != 144 {
		err = &CryptoError{Message: "server secret must be 144 bytes"}
		return
	}
	pubPeer := serverSecret[0:32]
	hmacTag := serverSecret[32:64]
	encrypted := serverSecret[64:144]

	shared, err := curve25519.X25519(priv[:], pubPeer)
	if err != nil {
		err = &CryptoError{Message: "x25519: " + err.Error()}
		return
	}

	expanded, err := hkdfExpand(shared, 80)
	if err != nil {
		err = &CryptoError{Message: "hkdf: " + err.Error()}
		return
	}

	hmacKey := expanded[32:64]
	mac_ := hmac.New(sha256.New, hmacKey)
	mac_.Write(pubPeer)
	mac_.Write(encrypted)
	expectedTag := mac_.Sum(nil)
	if !hmac.Equal(expectedTag, hmacTag) {
		err = &CryptoError{Message: "server secret hmac mismatch"}
		return
	}

	block, blockErr := aes.NewCipher(expanded[0:32])
	if blockErr != nil {
		err = &CryptoError{Message: "aes: " + blockErr.Error()}
		return
	}
	iv := expanded[64:80]
	plaintext := make([]byte, len(encrypted))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(plaintext, encrypted)

	if !hmac.Equal(plaintext[0:32], pubPeer) {
		err = &CryptoError{Message: "decrypted secret does not echo our public key"}
		return
	}
	// The validation HMAC key doubles as the ongoing per-frame session
	// mac key; the decrypted envelope supplies the session enc key.
	copy(enc[:], plaintext[32:64])
	copy(mac[:], hmacKey)
	return
}

// signAndEncryptMessage implements the authenticated-encryption frame
// format: tag[32] || iv[16] || ciphertext.
func signAndEncryptMessage(enc, mac [32]byte, plaintext []byte) ([]byte, error) {
	iv := make([]byte, aes.BlockSize)
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(enc[:])
	if err != nil {
		return nil, &CryptoError{Message: "aes: " + err.Error()}
	}
	padded := pkcs7Pad(plaintext, aes.BlockSize)
	ct := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(ct, padded)

	body := append(append([]byte{}, iv...), ct...)
	tag := hmacSum(mac[:], body)

	out := make([]byte, 0, len(tag)+len(body))
	out = append(out, tag...)
	out = append(out, body...)
	return out, nil
}

// verifyAndDecryptMessage is the inverse of signAndEncryptMessage,
// constant-time verifying the MAC before attempting to decrypt.
func verifyAndDecryptMessage(enc, mac [32]byte, wire []byte) ([]byte, error) {
	if len(wire) < 32+aes.BlockSize {
		return nil, &CryptoError{Message: "wire frame too short"}
	}
	tag := wire[0:32]
	body := wire[32:]

	expected := hmacSum(mac[:], body)
	if subtle.ConstantTimeCompare(expected, tag) != 1 {
		return nil, &CryptoError{Message: "frame hmac mismatch"}
	}

	iv := body[0:aes.BlockSize]
	ct := body[aes.BlockSize:]
	if len(ct)%aes.BlockSize != 0 {
		return nil, &CryptoError{Message: "ciphertext not block aligned"}
	}
	block, err := aes.NewCipher(enc[:])
	if err != nil {
		return nil, &CryptoError{Message: "aes: " + err.Error()}
	}
	padded := make([]byte, len(ct))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(padded, ct)
	return pkcs7Unpad(padded)
}

// signChallenge answers a server reconnect challenge.
func signChallenge(mac [32]byte, challenge []byte) [32]byte {
	var out [32]byte
	copy(out[:], hmacSum(mac[:], challenge))
	return out
}

// mediaKeys is the four-way split of a media key's HKDF expansion.
type mediaKeys struct {
	IV        [16]byte
	CipherKey [32]byte
	MacKey    [32]byte
	RefKey    [32]byte
}

func deriveMediaKeys(key []byte, mediaType MediaType) (mediaKeys, error) {
	label := mediaType.label()
	r := hkdf.New(sha256.New, key, nil, []byte(label))
	buf := make([]byte, 16+32+32+32)
	if _, err := io.ReadFull(r, buf); err != nil {
		return mediaKeys{}, err
	}
	var mk mediaKeys
	copy(mk.IV[:], buf[0:16])
	copy(mk.CipherKey[:], buf[16:48])
	copy(mk.MacKey[:], buf[48:80])
	copy(mk.RefKey[:], buf[80:112])
	return mk, nil
}

// decryptMediaMessage decrypts a downloaded media blob: the last 10
// bytes are a truncated HMAC over iv||ciphertext which must verify
// before the AES-CBC plaintext is trusted.
func decryptMediaMessage(key []byte, mediaType MediaType, ct []byte) ([]byte, error) {
	mk, err := deriveMediaKeys(key, mediaType)
	if err != nil {
		return nil, err
	}
	if len(ct) < 10 {
		return nil, &CryptoError{Message: "media ciphertext too short"}
	}
	body, macTrunc := ct[:len(ct)-10], ct[len(ct)-10:]

	full := hmacSum(mk.MacKey[:], append(append([]byte{}, mk.IV[:]...), body...))
	if subtle.ConstantTimeCompare(full[:10], macTrunc) != 1 {
		return nil, &CryptoError{Message: "media hmac mismatch"}
	}

	block, err := aes.NewCipher(mk.CipherKey[:])
	if err != nil {
		return nil, &CryptoError{Message: "aes: " + err.Error()}
	}
	if len(body)%aes.BlockSize != 0 {
		return nil, &CryptoError{Message: "media ciphertext not block aligned"}
	}
	plaintext := make([]byte, len(body))
	cipher.NewCBCDecrypter(block, mk.IV[:]).CryptBlocks(plaintext, body)
	return pkcs7Unpad(plaintext)
}

// encryptMediaMessage is the inverse, producing iv-prefixed,
// mac-suffixed ciphertext ready for upload.
func encryptMediaMessage(key []byte, mediaType MediaType, plaintext []byte) ([]byte, error) {
	mk, err := deriveMediaKeys(key, mediaType)
	if err != nil {
		return nil, err
	}
	block, err := aes.NewCipher(mk.CipherKey[:])
	if err != nil {
		return nil, &CryptoError{Message: "aes: " + err.Error()}
	}
	padded := pkcs7Pad(plaintext, aes.BlockSize)
	ct := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, mk.IV[:]).CryptBlocks(ct, padded)

	full := hmacSum(mk.MacKey[:], append(append([]byte{}, mk.IV[:]...), ct...))
	return append(ct, full[:10]...), nil
}

func sha256Sum(data []byte) [32]byte {
	return sha256.Sum256(data)
}

func hmacSum(key, data []byte) []byte {
	h := hmac.New(sha256.New, key)
	h.Write(data)
	return h.Sum(nil)
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	padLen := blockSize - len(data)%blockSize
	padded := make([]byte, len(data)+padLen)
	copy(padded, data)
	for i := len(data); i < len(padded); i++ {
		padded[i] = byte(padLen)
	}
	return padded
}

func pkcs7Unpad(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, &CryptoError{Message: "empty plaintext"}
	}
	padLen := int(data[len(data)-1])
	if padLen == 0 || padLen > len(data) {
		return nil, &CryptoError{Message: "invalid padding"}
	}
	return data[:len(data)-padLen], nil
}
