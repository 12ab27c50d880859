package settlement

import "errors"

var (
	// ErrInvalidAmount is returned when amount is <= 0
	ErrInvalidAmount = errors.New("invalid amount: must be greater than 0")

	// ErrAmountOutOfBounds is returned when a withdrawal amount is outside configured bounds
	ErrAmountOutOfBounds = errors.New("amount outside withdrawal bounds")

	// ErrInsufficientBalance is returned when the wallet cannot cover the debit
	ErrInsufficientBalance = errors.New("insufficient wallet balance")

	// ErrNotWithdrawal is returned when approving or rejecting a non-withdrawal entry
	ErrNotWithdrawal = errors.New("ledger entry is not a withdrawal")
)
