package ble

import (
	"bytes"
	"encoding/hex"
	"strings"
	"testing"
)

func testKey(t *testing.T) []byte {
	t.Helper()
	key, err := ParseKey(strings.Repeat("ab", 32))
	if err != nil {
		t.Fatalf("ParseKey() error = %v", err)
	}
	return key
}

func TestParseKey(t *testing.T) {
	key := testKey(t)
	if len(key) != 32 {
		t.Errorf("derived key length = %d, want 32", len(key))
	}

	// Derivation must be deterministic for a given PSK.
	again := testKey(t)
	if !bytes.Equal(key, again) {
		t.Error("ParseKey() not deterministic for same PSK")
	}

	// And the derived key must differ from the raw PSK.
	psk, _ := hex.DecodeString(strings.Repeat("ab", 32))
	if bytes.Equal(key, psk) {
		t.Error("derived key equals raw PSK")
	}
}

func TestParseKeyErrors(t *testing.T) {
	tests := []struct {
		name   string
		hexKey string
	}{
		{"empty", ""},
		{"bad hex", "zz" + strings.Repeat("ab", 31)},
		{"too short", strings.Repeat("ab", 16)},
		{"too long", strings.Repeat("ab", 33)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseKey(tt.hexKey); err == nil {
				t.Errorf("ParseKey(%q) error = nil, want error", tt.hexKey)
			}
		})
	}
}

func TestSealOpenRoundTrip(t *testing.T) {
	key := testKey(t)
	plaintext := []byte("the quick brown fox")

	sealed, err := seal(key, plaintext)
	if err != nil {
		t.Fatalf("seal() error = %v", err)
	}
	if bytes.Contains(sealed, plaintext) {
		t.Error("sealed payload contains plaintext")
	}

	got, err := open(key, sealed)
	if err != nil {
		t.Fatalf("open() error = %v", err)
	}
	if !bytes.Equal(got, plaintext) {
		t.Errorf("open() = %q, want %q", got, plaintext)
	}
}

func TestSealUniqueNonces(t *testing.T) {
	key := testKey(t)
	a, err := seal(key, []byte("hello"))
	if err != nil {
		t.Fatalf("seal() error = %v", err)
	}
	b, err := seal(key, []byte("hello"))
	if err != nil {
		t.Fatalf("seal() error = %v", err)
	}
	if bytes.Equal(a, b) {
		t.Error("two seals of same plaintext produced identical output")
	}
}

func TestOpenRejectsTampering(t *testing.T) {
	key := testKey(t)
	sealed, err := seal(key, []byte("hello"))
	if err != nil {
		t.Fatalf("seal() error = %v", err)
	}

	sealed[len(sealed)-1] ^= 0x01
	if _, err := open(key, sealed); err == nil {
		t.Error("open() accepted tampered ciphertext")
	}
}

func TestOpenRejectsShortPayload(t *testing.T) {
	key := testKey(t)
	if _, err := open(key, []byte{0x01, 0x02}); err == nil {
		t.Error("open() accepted payload shorter than nonce")
	}
}

func TestOpenRejectsWrongKey(t *testing.T) {
	key := testKey(t)
	other, err := ParseKey(strings.Repeat("cd", 32))
	if err != nil {
		t.Fatalf("ParseKey() error = %v", err)
	}

	sealed, err := seal(key, []byte("hello"))
	if err != nil {
		t.Fatalf("seal() error = %v", err)
	}
	if _, err := open(other, sealed); err == nil {
		t.Error("open() accepted ciphertext sealed under different key")
	}
}
