package wallet

import (
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/hex"
	"errors"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/mr-tron/base58"
)

// Keypair holds a freshly generated TRON keypair.
type Keypair struct {
	PrivateKeyHex string
	Address       string
}

// GenerateKeypair generates a new TRON wallet keypair.
func GenerateKeypair() (*Keypair, error) {
	privateKey, err := crypto.GenerateKey()
	if err != nil {
		return nil, err
	}

	privHex := hex.EncodeToString(crypto.FromECDSA(privateKey))

	address, err := tronAddress(&privateKey.PublicKey)
	if err != nil {
		return nil, err
	}

	return &Keypair{
		PrivateKeyHex: privHex,
		Address:       address,
	}, nil
}

// tronAddress derives the base58check TRON address from a public key:
// keccak256 of the raw pubkey, last 20 bytes, 0x41 prefix, double-SHA256 checksum.
func tronAddress(pub *ecdsa.PublicKey) (string, error) {
	pubBytes := crypto.FromECDSAPub(pub)[1:]
	if len(pubBytes) != 64 {
		return "", errors.New("invalid public key length")
	}

	hash := crypto.Keccak256(pubBytes)
	addr := append([]byte{0x41}, hash[12:]...)

	first := sha256.Sum256(addr)
	second := sha256.Sum256(first[:])
	checksum := second[:4]

	return base58.Encode(append(addr, checksum...)), nil
}
