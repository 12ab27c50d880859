package wallet

import "errors"

var (
	// ErrNotFound is returned when the user has no active wallet
	ErrNotFound = errors.New("wallet not found")

	// ErrAlreadyExists is returned when the user already has an active wallet
	ErrAlreadyExists = errors.New("wallet already exists")

	// ErrKeyCorrupted is returned when stored key material fails to decrypt.
	// This is fatal: it means the row or the master secret was tampered with.
	ErrKeyCorrupted = errors.New("wallet key material corrupted")
)
