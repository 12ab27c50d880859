package wallet

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// custodyKeyInfo binds derived keys to this usage so the same master secret
// can never be reused verbatim for another purpose.
const custodyKeyInfo = "tokenbay/wallet-custody/v1"

// Custody encrypts and decrypts wallet key material with AES-256-GCM.
// The AES key is derived from the configured master secret via HKDF-SHA256;
// every record gets a fresh random nonce, stored alongside the ciphertext.
type Custody struct {
	aead cipher.AEAD
}

func NewCustody(masterSecret string) (*Custody, error) {
	if masterSecret == "" {
		return nil, errors.New("wallet master secret is not configured")
	}

	kdf := hkdf.New(sha256.New, []byte(masterSecret), nil, []byte(custodyKeyInfo))
	key := make([]byte, 32)
	if _, err := io.ReadFull(kdf, key); err != nil {
		return nil, fmt.Errorf("derive custody key: %w", err)
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("init custody cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("init custody cipher: %w", err)
	}

	return &Custody{aead: aead}, nil
}

// Encrypt seals the secret and returns base64(nonce || ciphertext).
func (c *Custody) Encrypt(secret string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}

	sealed := c.aead.Seal(nonce, nonce, []byte(secret), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt opens a value produced by Encrypt. Any failure is ErrKeyCorrupted:
// a decryption error signals tampered or mismatched storage, never a
// retryable condition.
func (c *Custody) Decrypt(encoded string) (string, error) {
	sealed, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", ErrKeyCorrupted
	}
	if len(sealed) < c.aead.NonceSize() {
		return "", ErrKeyCorrupted
	}

	nonce, ciphertext := sealed[:c.aead.NonceSize()], sealed[c.aead.NonceSize():]
	plain, err := c.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", ErrKeyCorrupted
	}

	return string(plain), nil
}
