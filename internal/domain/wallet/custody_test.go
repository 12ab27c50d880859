package wallet

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"testing"
)

func TestCustodyRoundTrip(t *testing.T) {
	custody, err := NewCustody("test-master-secret")
	if err != nil {
		t.Fatalf("NewCustody failed: %v", err)
	}

	secrets := []string{
		"",
		"a",
		"9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08",
		string([]byte{0x00, 0xff, 0x10, 0x7f}),
	}

	// And some arbitrary byte strings.
	for i := 0; i < 8; i++ {
		buf := make([]byte, 16+i*7)
		rand.Read(buf)
		secrets = append(secrets, string(buf))
	}

	for _, secret := range secrets {
		encrypted, err := custody.Encrypt(secret)
		if err != nil {
			t.Fatalf("Encrypt failed: %v", err)
		}
		decrypted, err := custody.Decrypt(encrypted)
		if err != nil {
			t.Fatalf("Decrypt failed: %v", err)
		}
		if decrypted != secret {
			t.Fatalf("round trip mismatch: got %q want %q", hex.EncodeToString([]byte(decrypted)), hex.EncodeToString([]byte(secret)))
		}
	}
}

func TestCustodyNoncesDiffer(t *testing.T) {
	custody, err := NewCustody("test-master-secret")
	if err != nil {
		t.Fatalf("NewCustody failed: %v", err)
	}

	a, _ := custody.Encrypt("same secret")
	b, _ := custody.Encrypt("same secret")
	if a == b {
		t.Fatal("two encryptions of the same secret produced identical ciphertext")
	}
}

func TestCustodyTamperDetection(t *testing.T) {
	custody, err := NewCustody("test-master-secret")
	if err != nil {
		t.Fatalf("NewCustody failed: %v", err)
	}

	encrypted, err := custody.Encrypt("secret material")
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	// Flip a character in the middle of the ciphertext.
	tampered := []byte(encrypted)
	mid := len(tampered) / 2
	if tampered[mid] == 'A' {
		tampered[mid] = 'B'
	} else {
		tampered[mid] = 'A'
	}

	if _, err := custody.Decrypt(string(tampered)); !errors.Is(err, ErrKeyCorrupted) {
		t.Fatalf("expected ErrKeyCorrupted for tampered ciphertext, got %v", err)
	}

	if _, err := custody.Decrypt("not base64 at all!!!"); !errors.Is(err, ErrKeyCorrupted) {
		t.Fatalf("expected ErrKeyCorrupted for malformed input, got %v", err)
	}

	if _, err := custody.Decrypt(""); !errors.Is(err, ErrKeyCorrupted) {
		t.Fatalf("expected ErrKeyCorrupted for empty input, got %v", err)
	}
}

func TestCustodyWrongMasterSecret(t *testing.T) {
	first, err := NewCustody("master-secret-one")
	if err != nil {
		t.Fatalf("NewCustody failed: %v", err)
	}
	second, err := NewCustody("master-secret-two")
	if err != nil {
		t.Fatalf("NewCustody failed: %v", err)
	}

	encrypted, err := first.Encrypt("secret material")
	if err != nil {
		t.Fatalf("Encrypt failed: %v", err)
	}

	if _, err := second.Decrypt(encrypted); !errors.Is(err, ErrKeyCorrupted) {
		t.Fatalf("expected ErrKeyCorrupted under a different master secret, got %v", err)
	}
}

func TestCustodyRequiresSecret(t *testing.T) {
	if _, err := NewCustody(""); err == nil {
		t.Fatal("expected error for empty master secret")
	}
}
