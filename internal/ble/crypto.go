package ble

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// keyInfo binds derived keys to this protocol so the same PSK reused
// elsewhere yields unrelated key material.
const keyInfo = "govoicekey-hid-bridge-v1"

// ParseKey decodes the hex-encoded 32-byte pre-shared key from config
// and derives the AES-256 session key via HKDF-SHA256.
func ParseKey(hexKey string) ([]byte, error) {
	psk, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("ble: decode key: %w", err)
	}
	if len(psk) != 32 {
		return nil, fmt.Errorf("ble: key must be 32 bytes, got %d", len(psk))
	}
	return deriveKey(psk)
}

// deriveKey expands the PSK into the 32-byte AES key the bridge expects.
func deriveKey(psk []byte) ([]byte, error) {
	r := hkdf.New(sha256.New, psk, nil, []byte(keyInfo))
	key := make([]byte, 32)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("ble: derive key: %w", err)
	}
	return key, nil
}

// seal encrypts plaintext with AES-256-GCM and returns nonce || ciphertext || tag,
// the layout the bridge firmware decrypts in place.
func seal(key, plaintext []byte) ([]byte, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("ble: random nonce: %w", err)
	}

	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

// open decrypts a sealed payload produced by seal.
func open(key, sealed []byte) ([]byte, error) {
	aead, err := newAEAD(key)
	if err != nil {
		return nil, err
	}
	if len(sealed) < aead.NonceSize() {
		return nil, fmt.Errorf("ble: sealed payload too short: %d bytes", len(sealed))
	}

	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("ble: decrypt: %w", err)
	}
	return plaintext, nil
}

func newAEAD(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("ble: new cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("ble: new GCM: %w", err)
	}
	return aead, nil
}
