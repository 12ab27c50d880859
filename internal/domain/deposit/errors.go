package deposit

import "errors"

var (
	// ErrIntentNotFound is returned when no intent matches
	ErrIntentNotFound = errors.New("deposit intent not found")

	// ErrInvalidAmount is returned when the expected amount is not positive
	ErrInvalidAmount = errors.New("invalid amount: must be greater than 0")

	// ErrTransferAlreadyCredited is returned when an on-chain transfer was
	// already used to confirm another intent. The transfer reference is
	// globally unique across intents and ledger entries.
	ErrTransferAlreadyCredited = errors.New("transfer already credited")

	// ErrProviderUnavailable wraps blockchain query failures. Retryable:
	// the intent stays pending and the next scan cycle tries again.
	ErrProviderUnavailable = errors.New("chain provider unavailable")
)
