package wallet

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/mr-tron/base58"
)

func TestGenerateKeypair(t *testing.T) {
	kp, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair failed: %v", err)
	}

	if len(kp.PrivateKeyHex) != 64 {
		t.Fatalf("expected 32-byte private key hex, got %d chars", len(kp.PrivateKeyHex))
	}
	if _, err := hex.DecodeString(kp.PrivateKeyHex); err != nil {
		t.Fatalf("private key is not valid hex: %v", err)
	}

	// TRON mainnet addresses are base58check with a 0x41 version byte.
	raw, err := base58.Decode(kp.Address)
	if err != nil {
		t.Fatalf("address is not valid base58: %v", err)
	}
	if len(raw) != 25 {
		t.Fatalf("expected 25-byte decoded address, got %d", len(raw))
	}
	if raw[0] != 0x41 {
		t.Fatalf("expected 0x41 version byte, got 0x%02x", raw[0])
	}

	body, checksum := raw[:21], raw[21:]
	first := sha256.Sum256(body)
	second := sha256.Sum256(first[:])
	for i := 0; i < 4; i++ {
		if checksum[i] != second[i] {
			t.Fatal("address checksum mismatch")
		}
	}
}

func TestGenerateKeypairUnique(t *testing.T) {
	a, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair failed: %v", err)
	}
	b, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("GenerateKeypair failed: %v", err)
	}
	if a.Address == b.Address || a.PrivateKeyHex == b.PrivateKeyHex {
		t.Fatal("two generated keypairs collided")
	}
}
